package pipeline

import (
	"fmt"
	"math"
	"sync"

	"github.com/GWBasic/soft-matrix/internal/fft"
	"github.com/GWBasic/soft-matrix/internal/matrixprofile"
	"github.com/GWBasic/soft-matrix/internal/wavio"
)

// Reader pulls samples from the source, maintains ring buffers of length
// windowSize, and hands out one transformed window per call to Read. One
// lock guards the ring buffers and the read counter; the forward FFT itself
// runs outside that lock on the caller's own arrays, so many workers can
// transform concurrently.
type Reader struct {
	mu sync.Mutex

	left, right, mono *ring
	needMono          bool

	source *wavio.Source

	windowSize     int
	windowMidpoint int

	totalSamplesRead    int
	totalSamplesToWrite int

	plan    *fft.Plan
	profile matrixprofile.Profile
}

// NewReader builds a Reader over source, pre-filling its ring buffers with
// windowSize-1 samples (padding with zero if the source is shorter).
func NewReader(source *wavio.Source, windowSize int, needMono bool, plan *fft.Plan, profile matrixprofile.Profile) *Reader {
	r := &Reader{
		left:                newRing(windowSize),
		right:               newRing(windowSize),
		needMono:            needMono,
		source:              source,
		windowSize:          windowSize,
		windowMidpoint:      windowSize / 2,
		totalSamplesToWrite: source.NumSamples(),
		plan:                plan,
		profile:             profile,
	}
	if needMono {
		r.mono = newRing(windowSize)
	}

	for i := 0; i < windowSize-1; i++ {
		r.queueNextSample()
	}

	return r
}

// queueNextSample reads (or zero-pads) the next input sample into the
// ring buffers and advances totalSamplesRead. Caller must hold mu.
func (r *Reader) queueNextSample() {
	var left, right float32
	if r.totalSamplesRead < r.source.NumSamples() {
		left = r.source.Left[r.totalSamplesRead]
		right = r.source.Right[r.totalSamplesRead]
	}
	// Past end-of-input the rings receive zero. Read stops once every input
	// sample has been queued, so this only happens while NewReader pre-fills
	// the rings from a source shorter than windowSize-1 samples.

	r.left.Push(complex(float64(left), 0))
	r.right.Push(complex(float64(right), 0))
	if r.needMono {
		r.mono.Push(complex(float64(left+right)/2, 0))
	}

	r.totalSamplesRead++
}

// TotalSamplesRead returns how many input samples (real or zero-padded)
// have been queued so far. The Logger polls this for progress reporting.
func (r *Reader) TotalSamplesRead() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalSamplesRead
}

// Read produces the next transformed window, or (nil, false) once
// totalSamplesRead has reached totalSamplesToWrite.
func (r *Reader) Read() (*Record, bool, error) {
	leftSnapshot, rightSnapshot, monoSnapshot, lastSampleCtr, ok := r.readAndQueue()
	if !ok {
		return nil, false, nil
	}

	if err := r.plan.Forward(leftSnapshot); err != nil {
		return nil, false, fmt.Errorf("forward transform (left): %w", err)
	}
	if err := r.plan.Forward(rightSnapshot); err != nil {
		return nil, false, fmt.Errorf("forward transform (right): %w", err)
	}
	if monoSnapshot != nil {
		if err := r.plan.Forward(monoSnapshot); err != nil {
			return nil, false, fmt.Errorf("forward transform (mono): %w", err)
		}
	}

	pans := make([]matrixprofile.SteeringVector, r.windowMidpoint)
	for k := 1; k <= r.windowMidpoint; k++ {
		leftAmp, leftPhase := polar(leftSnapshot[k])
		rightAmp, rightPhase := polar(rightSnapshot[k])
		pans[k-1] = r.profile.Steer(float32(leftAmp), float32(leftPhase), float32(rightAmp), float32(rightPhase))
	}

	return NewRecord(lastSampleCtr, leftSnapshot, rightSnapshot, monoSnapshot, pans), true, nil
}

func (r *Reader) readAndQueue() (left, right, mono []complex128, lastSampleCtr int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.totalSamplesRead >= r.totalSamplesToWrite {
		return nil, nil, nil, 0, false
	}

	r.queueNextSample()

	left = r.left.Snapshot()
	right = r.right.Snapshot()
	if r.needMono {
		mono = r.mono.Snapshot()
	}
	lastSampleCtr = r.totalSamplesRead - 1

	r.left.Pop()
	r.right.Pop()
	if r.needMono {
		r.mono.Pop()
	}

	return left, right, mono, lastSampleCtr, true
}

// polar converts a complex bin into amplitude/phase form, phase in (-pi, pi].
func polar(c complex128) (amplitude, phase float64) {
	re, im := real(c), imag(c)
	amplitude = math.Hypot(re, im)
	phase = math.Atan2(im, re)
	if phase == -math.Pi {
		phase = math.Pi
	}
	return
}
