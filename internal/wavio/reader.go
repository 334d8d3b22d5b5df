// Package wavio provides the source reader and sink writer that sit at the
// edges of the upmixer pipeline.
package wavio

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Source is a decoded stereo PCM source: front-left and front-right sample
// streams plus the sample rate they were recorded at. Samples are
// normalized to [-1, 1] float32, the pipeline's native sample type.
type Source struct {
	SampleRate int
	Left       []float32
	Right      []float32
}

// NumSamples returns the number of frames in the source.
func (s *Source) NumSamples() int {
	return len(s.Left)
}

// OpenSource decodes a stereo wav file. Anything other than two channels of
// PCM/float convertible samples is rejected with a human-readable error.
func OpenSource(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid wav file", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading PCM data from %s: %w", path, err)
	}

	if decoder.NumChans != 2 {
		return nil, fmt.Errorf("%s has %d channels, only stereo (front-left + front-right) input is supported", path, decoder.NumChans)
	}

	maxVal, err := fullScaleFor(decoder.BitDepth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	left, right := deinterleave(buf, maxVal)

	return &Source{
		SampleRate: int(decoder.SampleRate),
		Left:       left,
		Right:      right,
	}, nil
}

func fullScaleFor(bitDepth uint16) (float64, error) {
	switch bitDepth {
	case 8:
		return 128.0, nil
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
}

func deinterleave(buf *audio.IntBuffer, fullScale float64) ([]float32, []float32) {
	data := buf.Data
	numFrames := buf.NumFrames()

	left := make([]float32, numFrames)
	right := make([]float32, numFrames)

	for i := 0; i < numFrames; i++ {
		idx := i * 2
		left[i] = float32(float64(data[idx]) / fullScale)
		if idx+1 < len(data) {
			right[i] = float32(float64(data[idx+1]) / fullScale)
		}
	}

	return left, right
}

