package checks

import (
	"context"

	"github.com/albertofilice/btrfs-check/pkg/btrfs"
)

// SeverityWarning tags every alert this tool emits: chunk imbalance is
// always advisory, never an outage by itself.
const SeverityWarning = "WARNING"

// Mount is one btrfs entry from the host mount table.
type Mount struct {
	Device     string
	MountPoint string
	FSType     string
}

// PoolUsage is the evaluated state of one allocation pool. A pool that is
// missing from the report, has malformed figures, or a zero total keeps
// Present false and zero figures.
type PoolUsage struct {
	Present     bool
	TotalBytes  int64
	UsedBytes   int64
	UsedPercent int
}

// FilesystemSample is the measurement of one mount point in one run.
// Built fresh per run and discarded with it.
type FilesystemSample struct {
	MountPoint     string
	OverallPercent int
	// BelowActivation marks samples whose overall usage never reached the
	// activation threshold. Their pools are left absent and no alert can
	// fire for them.
	BelowActivation bool
	Data            PoolUsage
	Metadata        PoolUsage
}

// AlertEvent is one advisory emitted for a pool that crossed its
// watermark.
type AlertEvent struct {
	Severity    string
	Pool        btrfs.Pool
	MountPoint  string
	UsedPercent int
	TotalBytes  int64
	UsedBytes   int64
	// Command is the balance invocation recommended to the operator.
	Command string
}

// MountLister enumerates the btrfs mounts to evaluate.
type MountLister interface {
	List(ctx context.Context) ([]Mount, error)
}

// UsageReporter reports a mount point's overall usage as a whole percent.
type UsageReporter interface {
	UsedPercent(ctx context.Context, mountPoint string) (int, error)
}

// AllocationReporter queries the per-pool allocation report for a mount
// point.
type AllocationReporter interface {
	Allocation(ctx context.Context, mountPoint string) (btrfs.AllocationReport, error)
}

// Balancer runs one balance pass for a pool at a usage target.
type Balancer interface {
	Balance(ctx context.Context, mountPoint string, pool btrfs.Pool, target int) error
}

// Alerter delivers advisory alerts. Delivery is fire and forget.
type Alerter interface {
	Emit(event AlertEvent)
}
