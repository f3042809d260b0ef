package canlight

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetOrCreateProxyCapabilityMismatch(t *testing.T) {
	r := newRegistry()
	const did = "0022002a431458523530203800000000"

	_, err := r.getOrCreateProxy(did, CapabilityDimmer, func() Proxy {
		return newDimmerProxy(nil, did)
	})
	require.NoError(t, err)

	_, err = r.getOrCreateProxy(did, Capability("shutter"), func() Proxy {
		return newDimmerProxy(nil, did)
	})
	require.Error(t, err)
	require.True(t, IsErrCapabilityMismatch(err))
}

func TestGetOrCreateProxyReturnsSameInstance(t *testing.T) {
	r := newRegistry()
	const did = "0022002a431458523530203800000000"

	calls := 0
	factory := func() Proxy {
		calls++
		return newDimmerProxy(nil, did)
	}

	p1, err := r.getOrCreateProxy(did, CapabilityDimmer, factory)
	require.NoError(t, err)
	p2, err := r.getOrCreateProxy(did, CapabilityDimmer, factory)
	require.NoError(t, err)

	require.Same(t, p1, p2)
	require.Equal(t, 1, calls)
}

func TestRegistryCommitIsBijective(t *testing.T) {
	r := newRegistry()
	out := map[uint16]string{
		0: "aaaa0000000000000000000000000000",
		1: "bbbb0000000000000000000000000000",
	}
	r.commit(out)

	for tid, did := range out {
		gotDID, ok := r.lookupDID(tid)
		require.True(t, ok)
		require.Equal(t, did, gotDID)

		gotTID, ok := r.lookupTID(did)
		require.True(t, ok)
		require.Equal(t, tid, gotTID)
	}
}

func TestRegistryCommitDropsMissingDID(t *testing.T) {
	r := newRegistry()
	const did = "aaaa0000000000000000000000000000"

	p, err := r.getOrCreateProxy(did, CapabilityDimmer, func() Proxy {
		return newDimmerProxy(nil, did)
	})
	require.NoError(t, err)

	r.commit(map[uint16]string{0: did})
	require.True(t, p.Available())

	r.commit(map[uint16]string{})
	require.False(t, p.Available())
}
