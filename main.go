// Command btrfs-check samples mounted btrfs filesystems, inspects their
// chunk allocation once the overall usage crosses an activation
// threshold, and raises WARNING alerts through the system log. With
// --fix it also runs staged btrfs balance passes to compact sparse
// chunks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/albertofilice/btrfs-check/pkg/alert"
	"github.com/albertofilice/btrfs-check/pkg/btrfs"
	"github.com/albertofilice/btrfs-check/pkg/checks"
	"github.com/albertofilice/btrfs-check/pkg/config"
	"github.com/albertofilice/btrfs-check/pkg/metrics"
	"github.com/albertofilice/btrfs-check/pkg/mounts"
)

const (
	version   = "1.1.0"
	btrfsBin  = "btrfs"
	envPrefix = "BTRFS_CHECK_"
)

func main() {
	app := kingpin.New(filepath.Base(os.Args[0]), "Checks chunk allocation health of mounted btrfs filesystems and alerts through the system log.")
	app.Version(version)
	app.HelpFlag.Short('h')

	var (
		threshold = app.Flag("threshold", "Minimum overall usage percent before chunk allocation is inspected.").
			Short('t').Default("60").Envar(envPrefix + "THRESHOLD").Int()
		dataWatermark = app.Flag("data-watermark", "Alert when data chunk usage percent is at or below this value.").
			Short('b').Default("70").Envar(envPrefix + "DATA_WATERMARK").Int()
		metadataWatermark = app.Flag("metadata-watermark", "Alert when metadata chunk usage percent is at or above this value.").
			Short('m').Default("85").Envar(envPrefix + "METADATA_WATERMARK").Int()
		fix = app.Flag("fix", "Run btrfs balance remediation after alerting. Requires root.").
			Short('f').Envar(envPrefix + "FIX").Bool()
		dusage = app.Flag("dusage", "Comma or space separated ascending usage targets for data balance passes.").
			Default("0,5,10,15,25,50,75").Envar(envPrefix + "DUSAGE").String()
		musage = app.Flag("musage", "Comma or space separated ascending usage targets for metadata balance passes.").
			Default("0,5,10").Envar(envPrefix + "MUSAGE").String()
		paths = app.Flag("path", "Restrict the check to this mount point. Repeatable.").
			Envar(envPrefix + "PATH").Strings()
		execTimeout = app.Flag("exec-timeout", "Timeout for each btrfs diagnostic command.").
			Default("30s").Envar(envPrefix + "EXEC_TIMEOUT").Duration()
		balanceTimeout = app.Flag("balance-timeout", "Timeout for each balance pass. 0 waits indefinitely.").
			Default("0s").Envar(envPrefix + "BALANCE_TIMEOUT").Duration()
		textfileDir = app.Flag("textfile-dir", "Directory for the node_exporter textfile collector export. Empty disables the export.").
			Envar(envPrefix + "TEXTFILE_DIR").String()
		verbose = app.Flag("verbose", "Enable debug logging.").
			Short('v').Envar(envPrefix + "VERBOSE").Bool()
	)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := newLogger(*verbose)

	cfg := config.Default()
	cfg.Thresholds.Activation = *threshold
	cfg.Thresholds.DataLow = *dataWatermark
	cfg.Thresholds.MetadataHigh = *metadataWatermark
	cfg.Thresholds.Fix = *fix
	cfg.Paths = *paths
	cfg.ExecTimeout = *execTimeout
	cfg.BalanceTimeout = *balanceTimeout
	cfg.TextfileDir = *textfileDir
	cfg.Verbose = *verbose

	var err error
	if cfg.Plans.Data, err = config.ParseTargets(*dusage); err != nil {
		fatal(logger, fmt.Errorf("parse dusage plan: %w", err))
	}
	if cfg.Plans.Metadata, err = config.ParseTargets(*musage); err != nil {
		fatal(logger, fmt.Errorf("parse musage plan: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		fatal(logger, err)
	}
	if cfg.Thresholds.Fix && os.Geteuid() != 0 {
		fatal(logger, fmt.Errorf("balance remediation requires root, running as uid %d", os.Geteuid()))
	}

	bin, err := exec.LookPath(btrfsBin)
	if err != nil {
		fatal(logger, fmt.Errorf("required binary %q not found in PATH: %w", btrfsBin, err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, err := alert.NewSink(logger)
	if err != nil {
		level.Warn(logger).Log("msg", "system log unavailable, alerts go to stderr only", "err", err)
	}

	tool := btrfs.NewTool(bin, cfg.ExecTimeout, cfg.BalanceTimeout, logger)
	runner := checks.NewRunner(cfg, mounts.NewLister(cfg.Paths, logger), mounts.NewUsage(), tool, tool, sink, logger)

	sum, err := runner.Run(ctx)
	if err != nil {
		fatal(logger, err)
	}

	if cfg.TextfileDir != "" {
		exporter := metrics.NewExporter()
		exporter.Observe(sum)
		if err := exporter.WriteFile(cfg.TextfileDir); err != nil {
			level.Warn(logger).Log("msg", "metrics export failed", "dir", cfg.TextfileDir, "err", err)
		}
	}

	level.Info(logger).Log("msg", "run complete",
		"checked", sum.Checked,
		"skipped", sum.Skipped,
		"alerts", sum.Alerts,
		"balance_passes", sum.BalancePasses,
		"balance_failures", sum.BalanceFailures,
		"errors", sum.Errors)
}

func newLogger(verbose bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	if verbose {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	return log.With(logger, "ts", log.DefaultTimestampUTC)
}

func fatal(logger log.Logger, err error) {
	level.Error(logger).Log("err", err)
	os.Exit(1)
}
