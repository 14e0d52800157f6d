package element_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sc-machine-go/scmem/element"
)

func TestTypeMatches(t *testing.T) {
	t1 := element.Node | element.Const | element.Perm
	require.True(t, t1.Matches(element.Node))
	require.True(t, t1.Matches(element.Node|element.Const))
	require.False(t, t1.Matches(element.Link))
	require.False(t, t1.Matches(element.Node|element.Var))
}

func TestIsConnectorIsEdge(t *testing.T) {
	directed := element.Arc | element.ArcDirected
	require.True(t, directed.IsConnector())
	require.False(t, directed.IsEdge())

	edge := element.Arc | element.EdgeCommon
	require.True(t, edge.IsConnector())
	require.True(t, edge.IsEdge())
}

func TestFlagsLive(t *testing.T) {
	f := element.Flags{AccessLevels: element.Exist}
	require.True(t, f.Live())
	require.False(t, f.DeletionRequested())

	f.AccessLevels |= element.RequestDeletion
	require.True(t, f.DeletionRequested())
}
