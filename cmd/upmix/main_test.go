package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestSource(t *testing.T, path string, numFrames, sampleRate int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 2, 1)

	data := make([]int, numFrames*2)
	for i := 0; i < numFrames; i++ {
		v := int(8000 * math.Sin(2*math.Pi*220*float64(i)/float64(sampleRate)))
		data[2*i] = v
		data[2*i+1] = v / 2
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:   data,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

func Test_Run_rejectsWrongArgumentCount(t *testing.T) {
	os.Args = []string{"upmix", "onlyone.wav"}
	err := run()
	assert.Error(t, err)
}

func Test_Run_rejectsUnknownChannelsValue(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.wav")
	writeTestSource(t, src, 4000, 8000)

	os.Args = []string{"upmix", src, filepath.Join(dir, "out.wav"), "--channels", "7.1"}
	err := run()
	assert.ErrorContains(t, err, "--channels")
}

func Test_Run_rejectsLowTooSmall(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.wav")
	writeTestSource(t, src, 4000, 8000)

	os.Args = []string{"upmix", src, filepath.Join(dir, "out.wav"), "--low", "0"}
	err := run()
	assert.ErrorContains(t, err, "--low")
}

func Test_Run_rejectsSourceShorterThanWindow(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.wav")
	writeTestSource(t, src, 4, 8000)

	os.Args = []string{"upmix", src, filepath.Join(dir, "out.wav")}
	err := run()
	assert.Error(t, err)
}

func Test_Run_upmixesAFourChannelFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")
	writeTestSource(t, src, 4000, 8000)

	os.Args = []string{"upmix", src, out, "--channels", "4", "--low", "200", "--threads", "2"}
	require.NoError(t, run())

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(44))
}
