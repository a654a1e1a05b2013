package checks

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/albertofilice/btrfs-check/pkg/btrfs"
)

// Checker measures one mount point per call: overall usage first, then the
// per-pool allocation report once the activation threshold is crossed.
type Checker struct {
	usage      UsageReporter
	alloc      AllocationReporter
	activation int
	logger     log.Logger
}

// NewChecker wires the two measurement collaborators. activation is the
// overall usage percent that gates pool inspection.
func NewChecker(usage UsageReporter, alloc AllocationReporter, activation int, logger log.Logger) *Checker {
	return &Checker{usage: usage, alloc: alloc, activation: activation, logger: logger}
}

// Evaluate builds the sample for mountPoint. Below the activation
// threshold the sample comes back with BelowActivation set, absent pools,
// and no allocation report is queried at all. Per-pool problems (missing
// report line, malformed size token, zero total) leave that pool absent
// and never fail the evaluation; only a failed measurement query does.
func (c *Checker) Evaluate(ctx context.Context, mountPoint string) (*FilesystemSample, error) {
	overall, err := c.usage.UsedPercent(ctx, mountPoint)
	if err != nil {
		return nil, fmt.Errorf("overall usage of %s: %w", mountPoint, err)
	}
	s := &FilesystemSample{MountPoint: mountPoint, OverallPercent: overall}
	if overall < c.activation {
		s.BelowActivation = true
		return s, nil
	}

	rep, err := c.alloc.Allocation(ctx, mountPoint)
	if err != nil {
		return nil, err
	}
	s.Data = c.poolUsage(mountPoint, btrfs.PoolData, rep.Data)
	s.Metadata = c.poolUsage(mountPoint, btrfs.PoolMetadata, rep.Metadata)
	level.Debug(c.logger).Log("msg", "evaluated mount point", "mountpoint", mountPoint,
		"overall", overall, "data_percent", s.Data.UsedPercent, "data_present", s.Data.Present,
		"metadata_percent", s.Metadata.UsedPercent, "metadata_present", s.Metadata.Present)
	return s, nil
}

// poolUsage normalizes one pool's raw figures. Anything that cannot be
// turned into a positive total and a used byte count marks the pool
// absent; the failure never propagates further.
func (c *Checker) poolUsage(mountPoint string, pool btrfs.Pool, fig *btrfs.PoolFigures) PoolUsage {
	if fig == nil {
		return PoolUsage{}
	}
	total, err := btrfs.ParseSize(fig.Total)
	if err != nil {
		level.Debug(c.logger).Log("msg", "unreadable pool figures", "mountpoint", mountPoint, "pool", pool, "err", err)
		return PoolUsage{}
	}
	used, err := btrfs.ParseSize(fig.Used)
	if err != nil {
		level.Debug(c.logger).Log("msg", "unreadable pool figures", "mountpoint", mountPoint, "pool", pool, "err", err)
		return PoolUsage{}
	}
	if total <= 0 {
		// Zero allocation: the percentage is undefined and there is
		// nothing to balance.
		return PoolUsage{}
	}
	return PoolUsage{
		Present:     true,
		TotalBytes:  total,
		UsedBytes:   used,
		UsedPercent: int(used * 100 / total),
	}
}
