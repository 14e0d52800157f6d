package fsmem_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sc-machine-go/scmem/fsmem"
)

func TestMemoryLinkRoundTrip(t *testing.T) {
	m := fsmem.NewMemory()

	require.NoError(t, m.LinkString(1, []byte("hello world"), true))

	data, ok, err := m.GetStringByLink(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello world", string(data))

	keys, err := m.GetLinksByString([]byte("hello world"))
	require.NoError(t, err)
	require.Contains(t, keys, uint64(1))
}

func TestMemorySubstringSearch(t *testing.T) {
	m := fsmem.NewMemory()
	require.NoError(t, m.LinkString(1, []byte("the quick brown fox"), true))
	require.NoError(t, m.LinkString(2, []byte("the lazy dog"), true))
	require.NoError(t, m.LinkString(3, []byte("unrelated content"), false))

	keys, err := m.GetLinksBySubstring([]byte("the"), 0)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint64{1, 2}, keys)
}

func TestMemoryUnlink(t *testing.T) {
	m := fsmem.NewMemory()
	require.NoError(t, m.LinkString(5, []byte("x"), true))
	require.NoError(t, m.UnlinkString(5))

	_, ok, err := m.GetStringByLink(5)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := fsmem.NewMemory()
	snap := fsmem.Snapshot{Segments: [][]byte{{1, 2, 3}, {4, 5}}}
	require.NoError(t, m.Save(snap))

	got, err := m.Load()
	require.NoError(t, err)
	require.Equal(t, snap, got)
}
