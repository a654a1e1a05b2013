package metrics

import (
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/albertofilice/btrfs-check/pkg/btrfs"
	"github.com/albertofilice/btrfs-check/pkg/checks"
)

// Filename is the textfile-collector file this tool maintains.
const Filename = "btrfs_check.prom"

// Exporter publishes one run's results for the node_exporter textfile
// collector. It owns a private registry so a run never inherits series
// from elsewhere.
type Exporter struct {
	registry *prometheus.Registry

	usagePercent    *prometheus.GaugeVec
	skipped         *prometheus.GaugeVec
	poolTotalBytes  *prometheus.GaugeVec
	poolUsedBytes   *prometheus.GaugeVec
	poolUsedPercent *prometheus.GaugeVec
	alerts          *prometheus.GaugeVec
	balancePasses   *prometheus.GaugeVec
	balanceFailures *prometheus.GaugeVec
	errors          prometheus.Gauge
	lastRun         prometheus.Gauge
}

// NewExporter builds the gauge set and registers it.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),

		usagePercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "btrfscheck_usage_percent",
			Help: "Overall filesystem usage percent, rounded up",
		}, []string{"mountpoint"}),

		skipped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "btrfscheck_skipped",
			Help: "1 when the filesystem stayed below the activation threshold and its pools were not inspected",
		}, []string{"mountpoint"}),

		poolTotalBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "btrfscheck_pool_total_bytes",
			Help: "Bytes allocated to the pool's chunks",
		}, []string{"mountpoint", "pool"}),

		poolUsedBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "btrfscheck_pool_used_bytes",
			Help: "Bytes used inside the pool's allocated chunks",
		}, []string{"mountpoint", "pool"}),

		poolUsedPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "btrfscheck_pool_used_percent",
			Help: "Used share of the pool's allocated bytes, floored to a whole percent",
		}, []string{"mountpoint", "pool"}),

		alerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "btrfscheck_alerts",
			Help: "Number of watermark alerts raised for the pool in this run",
		}, []string{"mountpoint", "pool"}),

		balancePasses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "btrfscheck_balance_passes",
			Help: "Completed balance passes in this run",
		}, []string{"mountpoint", "pool"}),

		balanceFailures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "btrfscheck_balance_failures",
			Help: "Failed balance passes in this run",
		}, []string{"mountpoint", "pool"}),

		errors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "btrfscheck_errors",
			Help: "Mount points whose evaluation failed in this run",
		}),

		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "btrfscheck_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed run",
		}),
	}

	e.registry.MustRegister(
		e.usagePercent,
		e.skipped,
		e.poolTotalBytes,
		e.poolUsedBytes,
		e.poolUsedPercent,
		e.alerts,
		e.balancePasses,
		e.balanceFailures,
		e.errors,
		e.lastRun,
	)
	return e
}

// Observe publishes one run summary. Call once per run before WriteFile.
func (e *Exporter) Observe(sum checks.Summary) {
	e.usagePercent.Reset()
	e.skipped.Reset()
	e.poolTotalBytes.Reset()
	e.poolUsedBytes.Reset()
	e.poolUsedPercent.Reset()
	e.alerts.Reset()
	e.balancePasses.Reset()
	e.balanceFailures.Reset()

	for _, res := range sum.Results {
		if res.Err != nil || res.Sample == nil {
			continue
		}
		s := res.Sample
		e.usagePercent.WithLabelValues(s.MountPoint).Set(float64(s.OverallPercent))
		if s.BelowActivation {
			e.skipped.WithLabelValues(s.MountPoint).Set(1)
			continue
		}
		e.skipped.WithLabelValues(s.MountPoint).Set(0)
		e.observePool(s.MountPoint, btrfs.PoolData, s.Data)
		e.observePool(s.MountPoint, btrfs.PoolMetadata, s.Metadata)

		fired := map[btrfs.Pool]int{}
		for _, ev := range res.Events {
			fired[ev.Pool]++
		}
		for _, pool := range []btrfs.Pool{btrfs.PoolData, btrfs.PoolMetadata} {
			e.alerts.WithLabelValues(s.MountPoint, string(pool)).Set(float64(fired[pool]))
		}
		for _, rec := range res.Remediations {
			e.balancePasses.WithLabelValues(s.MountPoint, string(rec.Pool)).Set(float64(rec.Passes))
			e.balanceFailures.WithLabelValues(s.MountPoint, string(rec.Pool)).Set(float64(rec.Failures))
		}
	}

	e.errors.Set(float64(sum.Errors))
	e.lastRun.SetToCurrentTime()
}

func (e *Exporter) observePool(mountPoint string, pool btrfs.Pool, usage checks.PoolUsage) {
	if !usage.Present {
		return
	}
	e.poolTotalBytes.WithLabelValues(mountPoint, string(pool)).Set(float64(usage.TotalBytes))
	e.poolUsedBytes.WithLabelValues(mountPoint, string(pool)).Set(float64(usage.UsedBytes))
	e.poolUsedPercent.WithLabelValues(mountPoint, string(pool)).Set(float64(usage.UsedPercent))
}

// WriteFile writes the collected series into dir atomically, in the
// node_exporter textfile-collector format.
func (e *Exporter) WriteFile(dir string) error {
	return prometheus.WriteToTextfile(filepath.Join(dir, Filename), e.registry)
}
