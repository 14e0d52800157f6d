package iterator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/sc-machine-go/scmem/address"
	"github.com/sc-machine-go/scmem/element"
	"github.com/sc-machine-go/scmem/graph"
	"github.com/sc-machine-go/scmem/iterator"
)

var errUnexpectedEmptyValue = errors.New("iterator yielded an empty value")

func newStore(t *testing.T) *graph.Store {
	t.Helper()

	s, err := graph.New(context.Background(), graph.Options{Clear: true})
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, s.Close()) })

	return s
}

func collect(t *testing.T, it *iterator.Iterator) [][3]address.Addr {
	t.Helper()

	ctx := context.Background()

	var out [][3]address.Addr
	for it.Next(ctx) {
		out = append(out, [3]address.Addr{it.Value(0), it.Value(1), it.Value(2)})
	}

	return out
}

func TestIteratorFAA(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	n, err := s.CreateNode(ctx, 0)
	require.NoError(t, err)

	var links []address.Addr

	for i := 0; i < 3; i++ {
		l, err := s.CreateLink(ctx, 0)
		require.NoError(t, err)

		_, err = s.CreateConnector(ctx, element.Arc|element.ArcDirected, n, l)
		require.NoError(t, err)

		links = append(links, l)
	}

	it := iterator.NewFAA(s, s.Metrics(), n, element.Arc, element.Link)

	results := collect(t, it)
	require.Len(t, results, 3)

	var got []address.Addr
	for _, r := range results {
		require.Equal(t, n, r[0])
		got = append(got, r[2])
	}

	require.ElementsMatch(t, links, got)
}

func TestIteratorAFA(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	n, err := s.CreateNode(ctx, 0)
	require.NoError(t, err)

	l, err := s.CreateLink(ctx, 0)
	require.NoError(t, err)

	e, err := s.CreateConnector(ctx, element.Arc|element.ArcDirected, n, l)
	require.NoError(t, err)

	it := iterator.NewAFA(s, s.Metrics(), e, element.Node, element.Link)

	results := collect(t, it)
	require.Len(t, results, 1)
	require.Equal(t, n, results[0][0])
	require.Equal(t, e, results[0][1])
	require.Equal(t, l, results[0][2])
}

func TestIteratorFFF(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	n, err := s.CreateNode(ctx, 0)
	require.NoError(t, err)

	l, err := s.CreateLink(ctx, 0)
	require.NoError(t, err)

	e, err := s.CreateConnector(ctx, element.Arc|element.ArcDirected, n, l)
	require.NoError(t, err)

	it := iterator.NewFFF(s, s.Metrics(), n, e, l)
	require.Len(t, collect(t, it), 1)

	other, err := s.CreateNode(ctx, 0)
	require.NoError(t, err)

	missIt := iterator.NewFFF(s, s.Metrics(), other, e, l)
	require.Empty(t, collect(t, missIt))
}

func TestIteratorUndirectedEdgeOtherSide(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	a, err := s.CreateNode(ctx, 0)
	require.NoError(t, err)

	b, err := s.CreateNode(ctx, 0)
	require.NoError(t, err)

	_, err = s.CreateConnector(ctx, element.Arc|element.EdgeCommon, a, b)
	require.NoError(t, err)

	fromA := collect(t, iterator.NewFAA(s, s.Metrics(), a, element.Arc, element.Node))
	require.Len(t, fromA, 1)
	require.Equal(t, b, fromA[0][2])

	fromB := collect(t, iterator.NewAAF(s, s.Metrics(), b, element.Arc, element.Node))
	require.Len(t, fromB, 1)
	require.Equal(t, a, fromB[0][0])
}

func TestIteratorOnEmptyConstructionIsExhausted(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	n, err := s.CreateNode(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, s.EraseElement(ctx, n))

	it := iterator.NewFAA(s, s.Metrics(), n, element.Arc, element.Link)
	require.False(t, it.Next(context.Background()))
}

func TestIteratorSurvivesConcurrentDeletion(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	n, err := s.CreateNode(ctx, 0)
	require.NoError(t, err)

	const total = 1000

	arcs := make([]address.Addr, 0, total)

	for i := 0; i < total; i++ {
		target, err := s.CreateNode(ctx, 0)
		require.NoError(t, err)

		e, err := s.CreateConnector(ctx, element.Arc|element.ArcDirected, n, target)
		require.NoError(t, err)

		arcs = append(arcs, e)
	}

	var g errgroup.Group

	g.Go(func() error {
		it := iterator.NewFAA(s, s.Metrics(), n, element.Arc, element.Node)

		count := 0
		for it.Next(context.Background()) {
			if it.Value(1).IsEmpty() {
				return errUnexpectedEmptyValue
			}

			count++
		}

		return nil
	})

	g.Go(func() error {
		for i := 0; i < total; i += 2 {
			if err := s.EraseElement(ctx, arcs[i]); err != nil {
				return err
			}
		}

		return nil
	})

	require.NoError(t, g.Wait())
}
