package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GWBasic/soft-matrix/internal/matrixprofile"
	"github.com/GWBasic/soft-matrix/internal/wavio"
)

func Test_BuildLFECurve_fullBelowFloorZeroAboveCeiling(t *testing.T) {
	const windowSize = 256
	const sampleRate = 8000

	curve := buildLFECurve(windowSize, sampleRate)

	assert.InDelta(t, 1, curve[0], 1e-6)
	assert.Equal(t, float32(0), curve[len(curve)-1])

	// Monotonically non-increasing across the roll-off.
	for k := 1; k < len(curve); k++ {
		assert.LessOrEqual(t, curve[k], curve[k-1]+1e-6)
	}
}

func Test_PannerWriter_fourChannelHasNoCenterOrLFE(t *testing.T) {
	const windowSize = 16
	source := buildTone(64, 1, 1)
	plan := mustPlan(t, windowSize)
	profile := matrixprofile.New(matrixprofile.Default)

	w := NewPannerWriter(nil, plan, profile, wavio.FourChannel, windowSize, source.NumSamples(), source.SampleRate)
	require.Nil(t, w.lfeCurve)

	rec := NewRecord(windowSize-1, make([]complex128, windowSize), make([]complex128, windowSize), nil, make([]matrixprofile.SteeringVector, windowSize/2))
	hasCenter := w.layout.HasCenter() && rec.mono != nil
	require.False(t, hasCenter)
}
