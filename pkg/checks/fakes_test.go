package checks

import (
	"context"
	"fmt"

	"github.com/albertofilice/btrfs-check/pkg/btrfs"
)

const gib = int64(1) << 30

type fakeLister struct {
	mounts []Mount
	err    error
}

func (f *fakeLister) List(ctx context.Context) ([]Mount, error) { return f.mounts, f.err }

type fakeUsage struct {
	percents map[string]int
	errs     map[string]error
	calls    int
}

func (f *fakeUsage) UsedPercent(ctx context.Context, mountPoint string) (int, error) {
	f.calls++
	if err := f.errs[mountPoint]; err != nil {
		return 0, err
	}
	return f.percents[mountPoint], nil
}

type fakeAlloc struct {
	reports map[string]btrfs.AllocationReport
	err     error
	calls   int
}

func (f *fakeAlloc) Allocation(ctx context.Context, mountPoint string) (btrfs.AllocationReport, error) {
	f.calls++
	if f.err != nil {
		return btrfs.AllocationReport{}, f.err
	}
	return f.reports[mountPoint], nil
}

type balanceCall struct {
	MountPoint string
	Pool       btrfs.Pool
	Target     int
}

type fakeBalancer struct {
	calls   []balanceCall
	errOn   map[int]error
	journal *[]string
	cancel  context.CancelFunc
}

func (f *fakeBalancer) Balance(ctx context.Context, mountPoint string, pool btrfs.Pool, target int) error {
	f.calls = append(f.calls, balanceCall{MountPoint: mountPoint, Pool: pool, Target: target})
	if f.journal != nil {
		*f.journal = append(*f.journal, fmt.Sprintf("balance %s=%d", pool.UsageFilter(), target))
	}
	if f.cancel != nil {
		f.cancel()
	}
	return f.errOn[target]
}

type fakeAlerter struct {
	events  []AlertEvent
	journal *[]string
}

func (f *fakeAlerter) Emit(e AlertEvent) {
	f.events = append(f.events, e)
	if f.journal != nil {
		*f.journal = append(*f.journal, "alert "+string(e.Pool))
	}
}

// report assembles an allocation report from raw tokens; an empty total
// leaves that pool out entirely.
func report(dataTotal, dataUsed, metaTotal, metaUsed string) btrfs.AllocationReport {
	var rep btrfs.AllocationReport
	if dataTotal != "" {
		rep.Data = &btrfs.PoolFigures{Total: dataTotal, Used: dataUsed}
	}
	if metaTotal != "" {
		rep.Metadata = &btrfs.PoolFigures{Total: metaTotal, Used: metaUsed}
	}
	return rep
}
