package checks

import (
	"fmt"

	"github.com/albertofilice/btrfs-check/pkg/btrfs"
	"github.com/albertofilice/btrfs-check/pkg/config"
)

// Decide applies the watermark policy to a sample and returns at most one
// event per pool.
//
// The comparison directions differ on purpose. Data chunks fill up as
// files are written, so a LOW used percent across allocated data chunks
// means many sparse chunks: space balance can hand back. Metadata must
// never run out, so a HIGH used percent there means allocation headroom is
// nearly exhausted. The two signals are independent; one sample can raise
// both.
func Decide(s *FilesystemSample, cfg config.Config) []AlertEvent {
	if s == nil || s.BelowActivation {
		return nil
	}
	var events []AlertEvent
	if s.Data.Present && s.Data.UsedPercent <= cfg.Thresholds.DataLow {
		events = append(events, newEvent(s.MountPoint, btrfs.PoolData, s.Data, cfg.Plans.Data))
	}
	if s.Metadata.Present && s.Metadata.UsedPercent >= cfg.Thresholds.MetadataHigh {
		events = append(events, newEvent(s.MountPoint, btrfs.PoolMetadata, s.Metadata, cfg.Plans.Metadata))
	}
	return events
}

func newEvent(mountPoint string, pool btrfs.Pool, usage PoolUsage, plan []int) AlertEvent {
	return AlertEvent{
		Severity:    SeverityWarning,
		Pool:        pool,
		MountPoint:  mountPoint,
		UsedPercent: usage.UsedPercent,
		TotalBytes:  usage.TotalBytes,
		UsedBytes:   usage.UsedBytes,
		Command:     RecommendedCommand(mountPoint, pool, plan),
	}
}

// RecommendedCommand renders the balance invocation suggested to the
// operator: a single pass at the schedule's terminal target.
func RecommendedCommand(mountPoint string, pool btrfs.Pool, plan []int) string {
	target := 0
	if len(plan) > 0 {
		target = plan[len(plan)-1]
	}
	return fmt.Sprintf("btrfs balance start %s=%d %s", pool.UsageFilter(), target, mountPoint)
}
