// Package fft wraps a single complex128 FFT plan shared read-only across
// worker goroutines, plus the Hermitian-symmetry bookkeeping the pipeline
// leans on throughout.
package fft

import algofft "github.com/cwbudde/algo-fft"

// Plan is a forward/inverse FFT plan built once for a given window size and
// shared read-only across all workers: build once, call concurrently, each
// caller supplies its own arrays.
type Plan struct {
	windowSize int
	inner      *algofft.Plan[complex128]
}

// New builds the forward+inverse plan pair for windowSize. windowSize must
// be one of the values windowsize.Ideal returns.
func New(windowSize int) (*Plan, error) {
	inner, err := algofft.NewPlan64(windowSize)
	if err != nil {
		return nil, err
	}
	return &Plan{windowSize: windowSize, inner: inner}, nil
}

// WindowSize returns the window length this plan was built for.
func (p *Plan) WindowSize() int {
	return p.windowSize
}

// Forward runs the forward transform in place.
func (p *Plan) Forward(data []complex128) error {
	return p.inner.Forward(data, data)
}

// Inverse runs the inverse transform in place. algo-fft's inverse carries
// the 1/N normalization itself, so a Forward/Inverse round trip is the
// identity and callers write the results out at unity gain.
func (p *Plan) Inverse(data []complex128) error {
	return p.inner.Inverse(data, data)
}

// MirrorConjugate writes bin[windowSize-k] = conj(bin[k]) for 1 <= k <
// windowSize/2, preserving Hermitian symmetry after bin k was modified.
// windowMidpoint must equal windowSize/2.
func MirrorConjugate(data []complex128, k, windowMidpoint, windowSize int) {
	if k >= windowMidpoint {
		return
	}
	inverse := windowSize - k
	data[inverse] = complex(real(data[k]), -imag(data[k]))
}
