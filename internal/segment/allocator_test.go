package segment_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/sc-machine-go/scmem/address"
	"github.com/sc-machine-go/scmem/internal/segment"
)

func TestAllocateAndFreeRecycles(t *testing.T) {
	pool := segment.NewPool(1)
	alloc := segment.NewAllocator(pool)

	pid := alloc.BeginProcess()
	defer alloc.EndProcess(pid)

	const n = 100

	created := make([]address.Addr, 0, n)

	for i := 0; i < n; i++ {
		a, e, err := alloc.Allocate(pid)
		require.NoError(t, err)
		require.True(t, e.Flags.Live())
		created = append(created, a)
	}

	require.Equal(t, 1, pool.SegmentsCount())

	for _, a := range created {
		require.NoError(t, alloc.Free(a))
	}

	for i := 0; i < n; i++ {
		_, _, err := alloc.Allocate(pid)
		require.NoError(t, err)
	}

	require.Equal(t, 1, pool.SegmentsCount(), "recycling must not grow segment count")
}

func TestAllocateFullMemory(t *testing.T) {
	pool := segment.NewPool(1)
	alloc := segment.NewAllocator(pool)
	pid := alloc.BeginProcess()
	defer alloc.EndProcess(pid)

	count := 0
	for {
		_, _, err := alloc.Allocate(pid)
		if err != nil {
			require.ErrorIs(t, err, segment.ErrFull)
			break
		}
		count++
	}

	require.Equal(t, segment.Capacity-1, count)
}

func TestConcurrentAllocateDisjointSets(t *testing.T) {
	pool := segment.NewPool(0)
	alloc := segment.NewAllocator(pool)

	var g errgroup.Group

	for w := 0; w < 8; w++ {
		g.Go(func() error {
			pid := alloc.BeginProcess()
			defer alloc.EndProcess(pid)

			seen := map[string]bool{}

			for i := 0; i < 200; i++ {
				a, _, err := alloc.Allocate(pid)
				if err != nil {
					return err
				}

				key := a.String()
				if seen[key] {
					t.Errorf("duplicate address allocated: %v", key)
				}
				seen[key] = true
			}

			return nil
		})
	}

	require.NoError(t, g.Wait())
}

