package checks

import (
	"context"
	"errors"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/albertofilice/btrfs-check/pkg/btrfs"
	"github.com/albertofilice/btrfs-check/pkg/config"
)

func TestRemediateWalksDataScheduleAscending(t *testing.T) {
	balancer := &fakeBalancer{}
	r := NewRemediator(balancer, config.Default().Plans, log.NewNopLogger())

	rec := r.Remediate(context.Background(), "/data", btrfs.PoolData)

	require.Equal(t, btrfs.PoolData, rec.Pool)
	require.Equal(t, 7, rec.Passes)
	require.Zero(t, rec.Failures)
	require.Equal(t, []balanceCall{
		{"/data", btrfs.PoolData, 0},
		{"/data", btrfs.PoolData, 5},
		{"/data", btrfs.PoolData, 10},
		{"/data", btrfs.PoolData, 15},
		{"/data", btrfs.PoolData, 25},
		{"/data", btrfs.PoolData, 50},
		{"/data", btrfs.PoolData, 75},
	}, balancer.calls)
}

func TestRemediateUsesMetadataSchedule(t *testing.T) {
	balancer := &fakeBalancer{}
	r := NewRemediator(balancer, config.Default().Plans, log.NewNopLogger())

	rec := r.Remediate(context.Background(), "/srv", btrfs.PoolMetadata)

	require.Equal(t, 3, rec.Passes)
	require.Equal(t, []balanceCall{
		{"/srv", btrfs.PoolMetadata, 0},
		{"/srv", btrfs.PoolMetadata, 5},
		{"/srv", btrfs.PoolMetadata, 10},
	}, balancer.calls)
}

func TestRemediateContinuesAfterFailedPass(t *testing.T) {
	balancer := &fakeBalancer{errOn: map[int]error{10: errors.New("balance cancelled by kernel")}}
	r := NewRemediator(balancer, config.Default().Plans, log.NewNopLogger())

	rec := r.Remediate(context.Background(), "/data", btrfs.PoolData)

	require.Len(t, balancer.calls, 7, "a failed pass must not stop the schedule")
	require.Equal(t, 6, rec.Passes)
	require.Equal(t, 1, rec.Failures)
}

func TestRemediateStopsBetweenPassesWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	balancer := &fakeBalancer{cancel: cancel}
	r := NewRemediator(balancer, config.Default().Plans, log.NewNopLogger())

	rec := r.Remediate(ctx, "/data", btrfs.PoolData)

	require.Len(t, balancer.calls, 1)
	require.Equal(t, 1, rec.Passes)
	require.Zero(t, rec.Failures)
}
