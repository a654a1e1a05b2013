package checks

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/albertofilice/btrfs-check/pkg/config"
)

// Result is the outcome for one mount point.
type Result struct {
	Mount        Mount
	Sample       *FilesystemSample
	Events       []AlertEvent
	Remediations []RemediationRecord
	Err          error
}

// Summary aggregates one whole run.
type Summary struct {
	Results         []Result
	Checked         int
	Skipped         int
	Alerts          int
	BalancePasses   int
	BalanceFailures int
	Errors          int
}

// Runner evaluates every listed mount point sequentially, in mount-table
// order. Mount points are independent: an evaluation error or a failed
// balance on one never stops the rest.
type Runner struct {
	cfg        config.Config
	logger     log.Logger
	mounts     MountLister
	checker    *Checker
	alerter    Alerter
	remediator *Remediator
}

// NewRunner wires all collaborators together.
func NewRunner(cfg config.Config, mounts MountLister, usage UsageReporter, alloc AllocationReporter, balancer Balancer, alerter Alerter, logger log.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		logger:     logger,
		mounts:     mounts,
		checker:    NewChecker(usage, alloc, cfg.Thresholds.Activation, logger),
		alerter:    alerter,
		remediator: NewRemediator(balancer, cfg.Plans, logger),
	}
}

// Run processes all mount points once and returns the summary. The error
// is non-nil only when the mount table itself cannot be read.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	mounts, err := r.mounts.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list btrfs mounts: %w", err)
	}
	var sum Summary
	for _, m := range mounts {
		if ctx.Err() != nil {
			level.Warn(r.logger).Log("msg", "run interrupted", "err", ctx.Err())
			break
		}
		res := r.runOne(ctx, m)
		sum.Results = append(sum.Results, res)
		switch {
		case res.Err != nil:
			sum.Errors++
		case res.Sample.BelowActivation:
			sum.Skipped++
		default:
			sum.Checked++
		}
		sum.Alerts += len(res.Events)
		for _, rec := range res.Remediations {
			sum.BalancePasses += rec.Passes
			sum.BalanceFailures += rec.Failures
		}
	}
	return sum, nil
}

func (r *Runner) runOne(ctx context.Context, m Mount) Result {
	res := Result{Mount: m}
	sample, err := r.checker.Evaluate(ctx, m.MountPoint)
	if err != nil {
		res.Err = err
		level.Error(r.logger).Log("msg", "evaluation failed", "mountpoint", m.MountPoint, "device", m.Device, "err", err)
		return res
	}
	res.Sample = sample
	if sample.BelowActivation {
		level.Debug(r.logger).Log("msg", "below activation threshold", "mountpoint", m.MountPoint, "overall", sample.OverallPercent)
		return res
	}

	// The advisory always goes out first; remediation follows it.
	res.Events = Decide(sample, r.cfg)
	for _, e := range res.Events {
		r.alerter.Emit(e)
	}
	if r.cfg.Thresholds.Fix {
		for _, e := range res.Events {
			res.Remediations = append(res.Remediations, r.remediator.Remediate(ctx, e.MountPoint, e.Pool))
		}
	}
	return res
}
