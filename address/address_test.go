package address_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sc-machine-go/scmem/address"
)

func TestPackUnpack(t *testing.T) {
	a := address.Addr{Seg: 7, Off: 42}
	key := a.Pack()
	require.Equal(t, a, address.Unpack(key))
}

func TestEmpty(t *testing.T) {
	require.True(t, address.Empty.IsEmpty())
	require.False(t, (address.Addr{Seg: 1}).IsEmpty())
	require.False(t, (address.Addr{Off: 1}).IsEmpty())
}

func TestEqual(t *testing.T) {
	a := address.Addr{Seg: 1, Off: 2}
	b := address.Addr{Seg: 1, Off: 2}
	c := address.Addr{Seg: 1, Off: 3}
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}
