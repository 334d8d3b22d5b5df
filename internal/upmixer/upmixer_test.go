package upmixer

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GWBasic/soft-matrix/internal/fft"
	"github.com/GWBasic/soft-matrix/internal/matrixprofile"
	"github.com/GWBasic/soft-matrix/internal/pipeline"
	"github.com/GWBasic/soft-matrix/internal/upmixlog"
	"github.com/GWBasic/soft-matrix/internal/wavio"
)

func buildTone(totalSamples int) *wavio.Source {
	left := make([]float32, totalSamples)
	right := make([]float32, totalSamples)
	for i := range left {
		v := float32(math.Sin(2 * math.Pi * 0.05 * float64(i)))
		left[i] = v
		right[i] = v * 0.5
	}
	return &wavio.Source{SampleRate: 8000, Left: left, Right: right}
}

func Test_Upmixer_runsToCompletionWithMultipleWorkers(t *testing.T) {
	const windowSize = 16
	source := buildTone(500)

	plan, err := fft.New(windowSize)
	require.NoError(t, err)
	profile := matrixprofile.New(matrixprofile.Default)

	reader := pipeline.NewReader(source, windowSize, false, plan, profile)

	outPath := filepath.Join(t.TempDir(), "out.wav")
	sink, err := wavio.NewWriter(outPath, source.SampleRate, wavio.FourChannel, source.NumSamples())
	require.NoError(t, err)
	defer sink.Close()

	writer := pipeline.NewPannerWriter(sink, plan, profile, wavio.FourChannel, windowSize, source.NumSamples(), source.SampleRate)
	averager := pipeline.NewAverager(windowSize, source.NumSamples(), writer)

	logger := upmixlog.New(source.NumSamples())

	u := New(reader, averager, writer, logger, 4)
	require.NoError(t, u.Run())

	require.True(t, writer.Done())
	require.Greater(t, writer.SamplesWritten(), 0)
	require.LessOrEqual(t, writer.SamplesWritten(), source.NumSamples())
}

func Test_Upmixer_defaultsWorkerCountToGOMAXPROCS(t *testing.T) {
	const windowSize = 16
	source := buildTone(64)
	plan, err := fft.New(windowSize)
	require.NoError(t, err)
	profile := matrixprofile.New(matrixprofile.Default)
	reader := pipeline.NewReader(source, windowSize, false, plan, profile)

	outPath := filepath.Join(t.TempDir(), "out.wav")
	sink, err := wavio.NewWriter(outPath, source.SampleRate, wavio.FourChannel, source.NumSamples())
	require.NoError(t, err)
	defer sink.Close()

	writer := pipeline.NewPannerWriter(sink, plan, profile, wavio.FourChannel, windowSize, source.NumSamples(), source.SampleRate)
	averager := pipeline.NewAverager(windowSize, source.NumSamples(), writer)

	u := New(reader, averager, writer, nil, 0)
	require.Greater(t, u.numWorkers, 0)
}
