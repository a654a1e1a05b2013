package mounts

import (
	"context"
	"errors"
	"testing"

	"github.com/go-kit/log"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/stretchr/testify/require"

	"github.com/albertofilice/btrfs-check/pkg/checks"
)

func listerWith(paths []string, parts []disk.PartitionStat, err error) *Lister {
	l := NewLister(paths, log.NewNopLogger())
	l.partitions = func(ctx context.Context, all bool) ([]disk.PartitionStat, error) {
		return parts, err
	}
	return l
}

func TestListFiltersAndDedupes(t *testing.T) {
	parts := []disk.PartitionStat{
		{Device: "/dev/sda1", Mountpoint: "/boot", Fstype: "ext4", Opts: []string{"rw", "relatime"}},
		{Device: "/dev/sdb1", Mountpoint: "/data", Fstype: "btrfs", Opts: []string{"rw", "relatime"}},
		{Device: "/dev/sdb1", Mountpoint: "/data/.snapshots", Fstype: "btrfs", Opts: []string{"rw", "relatime"}},
		{Device: "/dev/sdc1", Mountpoint: "/backup", Fstype: "btrfs", Opts: []string{"ro", "relatime"}},
		{Device: "/dev/sdd1", Mountpoint: "/srv", Fstype: "btrfs", Opts: []string{"rw"}},
	}

	mounts, err := listerWith(nil, parts, nil).List(context.Background())
	require.NoError(t, err)

	require.Equal(t, []checks.Mount{
		{Device: "/dev/sdb1", MountPoint: "/data", FSType: "btrfs"},
		{Device: "/dev/sdd1", MountPoint: "/srv", FSType: "btrfs"},
	}, mounts)
}

func TestListPathRestriction(t *testing.T) {
	parts := []disk.PartitionStat{
		{Device: "/dev/sdb1", Mountpoint: "/data", Fstype: "btrfs", Opts: []string{"rw"}},
		{Device: "/dev/sdd1", Mountpoint: "/srv", Fstype: "btrfs", Opts: []string{"rw"}},
	}

	mounts, err := listerWith([]string{"/srv"}, parts, nil).List(context.Background())
	require.NoError(t, err)

	require.Len(t, mounts, 1)
	require.Equal(t, "/srv", mounts[0].MountPoint)
}

func TestListEmptyTable(t *testing.T) {
	mounts, err := listerWith(nil, nil, nil).List(context.Background())
	require.NoError(t, err)
	require.Empty(t, mounts)
}

func TestListError(t *testing.T) {
	_, err := listerWith(nil, nil, errors.New("proc unavailable")).List(context.Background())
	require.ErrorContains(t, err, "read mount table")
}

func TestUsedPercentRoundsUp(t *testing.T) {
	for _, tc := range []struct {
		Name string
		In   float64
		Want int
	}{
		{Name: "fraction rounds up", In: 64.2, Want: 65},
		{Name: "whole stays", In: 65.0, Want: 65},
		{Name: "zero", In: 0, Want: 0},
		{Name: "nearly full", In: 99.01, Want: 100},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			u := NewUsage()
			u.usage = func(ctx context.Context, path string) (*disk.UsageStat, error) {
				return &disk.UsageStat{Path: path, UsedPercent: tc.In}, nil
			}
			got, err := u.UsedPercent(context.Background(), "/data")
			require.NoError(t, err)
			require.Equal(t, tc.Want, got)
		})
	}
}

func TestUsedPercentError(t *testing.T) {
	u := NewUsage()
	u.usage = func(ctx context.Context, path string) (*disk.UsageStat, error) {
		return nil, errors.New("no such file or directory")
	}
	_, err := u.UsedPercent(context.Background(), "/gone")
	require.ErrorContains(t, err, "usage of /gone")
}
