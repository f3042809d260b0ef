package canlight

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDimmerSetNoOpWithoutTID(t *testing.T) {
	tr := newFakeTransport()
	b := newBus("sim0", tr)
	p := newDimmerProxy(b, "0022002a431458523530203800000000")

	p.Set(1, 1, 1, 1, 1)

	require.Empty(t, tr.sent, "Set on a proxy without a TID must not send any frame")
}

func TestDimmerSetSendsFrameWhenAvailable(t *testing.T) {
	tr := newFakeTransport()
	b := newBus("sim0", tr)
	p := newDimmerProxy(b, "0022002a431458523530203800000000")

	tid := uint16(3)
	p.setTID(&tid)
	p.Set(1.0, 0.0, 0.0, 0.0, 0.5)

	got, channels, ok, err := lastDimmerSetFrame(tr)
	require.NoError(t, err)
	require.True(t, ok, "expected a DimmerSet frame to have been sent")
	require.Equal(t, tid, got)
	// Scenario 4's payload: 0xFF,0x0F,0x00,0x00,0x00,0x00,0xFF,0x07.
	require.Equal(t, [5]uint16{4095, 0, 0, 0, 2047}, channels)
}

func lastDimmerSetFrame(tr *fakeTransport) (tid uint16, channels [5]uint16, ok bool, err error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for i := len(tr.sent) - 1; i >= 0; i-- {
		f := tr.sent[i]
		if t, c, derr := DecodeDimmerSet(f); derr == nil {
			return t, c, true, nil
		}
	}
	return 0, channels, false, nil
}
