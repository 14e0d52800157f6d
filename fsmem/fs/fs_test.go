package fs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sc-machine-go/scmem/fsmem"
	scfs "github.com/sc-machine-go/scmem/fsmem/fs"
)

func TestSaveLoadRoundTripsSegmentsAndContent(t *testing.T) {
	dir := t.TempDir()

	s, err := scfs.New(dir)
	require.NoError(t, err)

	require.NoError(t, s.LinkString(7, []byte("payload"), true))
	require.NoError(t, s.Save(fsmem.Snapshot{Segments: [][]byte{{1, 2, 3}}}))

	s2, err := scfs.New(dir)
	require.NoError(t, err)

	snap, err := s2.Load()
	require.NoError(t, err)
	require.Equal(t, [][]byte{{1, 2, 3}}, snap.Segments)

	data, ok, err := s2.GetStringByLink(7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "payload", string(data))
}
