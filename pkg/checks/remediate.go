package checks

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/albertofilice/btrfs-check/pkg/btrfs"
	"github.com/albertofilice/btrfs-check/pkg/config"
)

// Remediator drives balance passes for pools that raised alerts. Passes
// run strictly one after another: overlapping balances against the same
// filesystem fight over chunk relocation.
type Remediator struct {
	balancer Balancer
	plans    config.Plans
	logger   log.Logger
}

// NewRemediator returns a Remediator using the given schedules.
func NewRemediator(balancer Balancer, plans config.Plans, logger log.Logger) *Remediator {
	return &Remediator{balancer: balancer, plans: plans, logger: logger}
}

// RemediationRecord counts what one pool's schedule did.
type RemediationRecord struct {
	Pool     btrfs.Pool
	Passes   int
	Failures int
}

// Remediate walks the pool's schedule in ascending order, one blocking
// balance pass per target. A failed pass is logged distinctly and the
// schedule keeps going; a cancelled context stops it between passes.
func (r *Remediator) Remediate(ctx context.Context, mountPoint string, pool btrfs.Pool) RemediationRecord {
	plan := r.plans.Data
	if pool == btrfs.PoolMetadata {
		plan = r.plans.Metadata
	}
	rec := RemediationRecord{Pool: pool}
	level.Info(r.logger).Log("msg", "balance starting", "mountpoint", mountPoint, "pool", pool, "targets", fmt.Sprint(plan))
	for _, target := range plan {
		if ctx.Err() != nil {
			level.Warn(r.logger).Log("msg", "balance interrupted", "mountpoint", mountPoint, "pool", pool, "err", ctx.Err())
			break
		}
		if err := r.balancer.Balance(ctx, mountPoint, pool, target); err != nil {
			rec.Failures++
			level.Warn(r.logger).Log("msg", "balance pass failed", "mountpoint", mountPoint, "pool", pool, "target", target, "err", err)
			continue
		}
		rec.Passes++
	}
	level.Info(r.logger).Log("msg", "balance finished", "mountpoint", mountPoint, "pool", pool, "passes", rec.Passes, "failures", rec.Failures)
	return rec
}
