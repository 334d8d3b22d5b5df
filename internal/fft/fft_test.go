package fft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_New_rejectsNothingForTableSizes(t *testing.T) {
	for _, w := range []int{6, 12, 48, 4860, 36864} {
		_, err := New(w)
		require.NoError(t, err, "window size %d", w)
	}
}

func Test_ForwardInverse_roundTripsDCSignal(t *testing.T) {
	const w = 48
	p, err := New(w)
	require.NoError(t, err)

	data := make([]complex128, w)
	for i := range data {
		data[i] = complex(1, 0)
	}

	require.NoError(t, p.Forward(data))

	// A constant input has all its energy in bin 0 (DC).
	assert.InDelta(t, float64(w), real(data[0]), 1e-6)
	for k := 1; k < w; k++ {
		assert.InDelta(t, 0, real(data[k]), 1e-6)
		assert.InDelta(t, 0, imag(data[k]), 1e-6)
	}

	// The inverse is normalized: a round trip reproduces the input at
	// unity gain.
	require.NoError(t, p.Inverse(data))
	for i := range data {
		assert.InDelta(t, 1, real(data[i]), 1e-6)
		assert.InDelta(t, 0, imag(data[i]), 1e-6)
	}
}

func Test_MirrorConjugate(t *testing.T) {
	const w = 8
	data := make([]complex128, w)
	data[1] = complex(3, 4)
	MirrorConjugate(data, 1, w/2, w)
	assert.Equal(t, complex(3, -4), data[w-1])

	// k == windowMidpoint must not be mirrored: bin W/2 is its own conjugate.
	data[w/2] = complex(5, 0)
	before := data[w/2]
	MirrorConjugate(data, w/2, w/2, w)
	assert.Equal(t, before, data[w/2])
}
