package btrfs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Pool selects one of the two chunk allocation groups a balance can be
// filtered to.
type Pool string

const (
	PoolData     Pool = "data"
	PoolMetadata Pool = "metadata"
)

// UsageFilter is the balance filter flag that selects this pool.
func (p Pool) UsageFilter() string {
	if p == PoolMetadata {
		return "-musage"
	}
	return "-dusage"
}

// Tool invokes the btrfs command-line tool. Construct with NewTool.
type Tool struct {
	bin            string
	execTimeout    time.Duration
	balanceTimeout time.Duration
	logger         log.Logger

	// run is swapped out in tests.
	run func(ctx context.Context, args ...string) (string, error)
}

// NewTool returns a Tool invoking bin. execTimeout bounds diagnostic
// invocations and balanceTimeout bounds each balance pass; zero disables
// the respective deadline.
func NewTool(bin string, execTimeout, balanceTimeout time.Duration, logger log.Logger) *Tool {
	t := &Tool{
		bin:            bin,
		execTimeout:    execTimeout,
		balanceTimeout: balanceTimeout,
		logger:         logger,
	}
	t.run = t.runCommand
	return t
}

// Allocation runs `btrfs filesystem df` for mountPoint and parses the
// per-pool report.
func (t *Tool) Allocation(ctx context.Context, mountPoint string) (AllocationReport, error) {
	ctx, cancel := withTimeout(ctx, t.execTimeout)
	defer cancel()
	out, err := t.run(ctx, "filesystem", "df", mountPoint)
	if err != nil {
		return AllocationReport{}, err
	}
	return ParseReport(out), nil
}

// Balance runs one `btrfs balance start` pass against mountPoint,
// relocating chunks of the given pool whose usage is at or below target
// percent. It blocks until the pass completes.
func (t *Tool) Balance(ctx context.Context, mountPoint string, pool Pool, target int) error {
	ctx, cancel := withTimeout(ctx, t.balanceTimeout)
	defer cancel()
	out, err := t.run(ctx, "balance", "start", fmt.Sprintf("%s=%d", pool.UsageFilter(), target), mountPoint)
	if err != nil {
		return err
	}
	level.Debug(t.logger).Log("msg", "balance pass finished", "mountpoint", mountPoint, "pool", pool, "target", target, "output", strings.TrimSpace(out))
	return nil
}

func (t *Tool) runCommand(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	level.Debug(t.logger).Log("msg", "running command", "bin", t.bin, "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		// A context error is more telling than the generic "signal:
		// killed" the process dies with.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s %s: %w", t.bin, strings.Join(args, " "), ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s %s: %w: %s", t.bin, strings.Join(args, " "), err, msg)
		}
		return "", fmt.Errorf("%s %s: %w", t.bin, strings.Join(args, " "), err)
	}
	return stdout.String(), nil
}

// withTimeout wraps ctx with a deadline when timeout is positive.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
