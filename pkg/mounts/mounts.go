package mounts

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/shirou/gopsutil/v4/disk"

	"github.com/albertofilice/btrfs-check/pkg/checks"
)

const fsType = "btrfs"

// Lister enumerates btrfs mounts from the host mount table.
type Lister struct {
	paths  []string
	logger log.Logger

	// partitions is swapped out in tests.
	partitions func(ctx context.Context, all bool) ([]disk.PartitionStat, error)
}

// NewLister returns a Lister. A non-empty paths slice restricts the result
// to exactly those mount points.
func NewLister(paths []string, logger log.Logger) *Lister {
	return &Lister{paths: paths, logger: logger, partitions: disk.PartitionsWithContext}
}

// List returns one entry per mounted btrfs filesystem, in mount-table
// order. Subvolume mounts share their device with the main mount, so each
// device is reported once (first mount wins). Read-only mounts are skipped
// because balance cannot run on them.
func (l *Lister) List(ctx context.Context) ([]checks.Mount, error) {
	parts, err := l.partitions(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("read mount table: %w", err)
	}
	seen := make(map[string]bool)
	var mounts []checks.Mount
	for _, p := range parts {
		if p.Fstype != fsType {
			continue
		}
		if len(l.paths) > 0 && !slices.Contains(l.paths, p.Mountpoint) {
			continue
		}
		if slices.Contains(p.Opts, "ro") {
			level.Debug(l.logger).Log("msg", "skipping read-only mount", "mountpoint", p.Mountpoint, "device", p.Device)
			continue
		}
		if seen[p.Device] {
			level.Debug(l.logger).Log("msg", "skipping subvolume mount", "mountpoint", p.Mountpoint, "device", p.Device)
			continue
		}
		seen[p.Device] = true
		mounts = append(mounts, checks.Mount{Device: p.Device, MountPoint: p.Mountpoint, FSType: p.Fstype})
	}
	return mounts, nil
}

// Usage reports overall filesystem utilization.
type Usage struct {
	// usage is swapped out in tests.
	usage func(ctx context.Context, path string) (*disk.UsageStat, error)
}

// NewUsage returns a statfs-backed Usage reporter.
func NewUsage() *Usage {
	return &Usage{usage: disk.UsageWithContext}
}

// UsedPercent returns the mount point's overall usage as a whole percent,
// rounded up the way df displays it.
func (u *Usage) UsedPercent(ctx context.Context, mountPoint string) (int, error) {
	st, err := u.usage(ctx, mountPoint)
	if err != nil {
		return 0, fmt.Errorf("usage of %s: %w", mountPoint, err)
	}
	return int(math.Ceil(st.UsedPercent)), nil
}
