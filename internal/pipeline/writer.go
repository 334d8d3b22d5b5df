package pipeline

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/GWBasic/soft-matrix/internal/fft"
	"github.com/GWBasic/soft-matrix/internal/matrixprofile"
	"github.com/GWBasic/soft-matrix/internal/wavio"
)

// lfeFullHz is the frequency below which the LFE channel passes at full
// gain; lfeStartHz is where it reaches zero. Between them the curve is a
// cosine roll-off, computed once at start.
const (
	lfeFullHz  = 20.0
	lfeStartHz = 40.0
)

// LFEStartHz is exported so CLI validation can reject a --low value that
// would leave no steerable range below the LFE crossover.
const LFEStartHz = lfeStartHz

// PannerWriter splits each averaged record into four-to-six output
// channels, inverse-transforms them, and writes one output frame at a time
// to the sink.
type PannerWriter struct {
	enqueueMu sync.Mutex
	queue     []*Record

	advanceMu sync.Mutex
	done      atomic.Bool

	sink    *wavio.Writer
	plan    *fft.Plan
	profile matrixprofile.Profile
	layout  wavio.Layout
	indices wavio.FrameIndices

	windowSize          int
	windowMidpoint      int
	totalSamplesToWrite int

	lfeCurve []float32 // indexed by bin k in [0, windowMidpoint]; nil if layout has no LFE
}

// NewPannerWriter builds the final pipeline stage writing to sink.
func NewPannerWriter(sink *wavio.Writer, plan *fft.Plan, profile matrixprofile.Profile, layout wavio.Layout, windowSize, totalSamplesToWrite, sampleRate int) *PannerWriter {
	w := &PannerWriter{
		sink:                sink,
		plan:                plan,
		profile:             profile,
		layout:              layout,
		indices:             layout.Indices(),
		windowSize:          windowSize,
		windowMidpoint:      windowSize / 2,
		totalSamplesToWrite: totalSamplesToWrite,
	}

	if layout.HasLFE() {
		w.lfeCurve = buildLFECurve(windowSize, sampleRate)
	}

	return w
}

func buildLFECurve(windowSize, sampleRate int) []float32 {
	midpoint := windowSize / 2
	curve := make([]float32, midpoint+1)
	hzPerBin := float64(sampleRate) / float64(windowSize)

	for k := 0; k <= midpoint; k++ {
		hz := float64(k) * hzPerBin
		switch {
		case hz <= lfeFullHz:
			curve[k] = 1
		case hz >= lfeStartHz:
			curve[k] = 0
		default:
			frac := (hz - lfeFullHz) / (lfeStartHz - lfeFullHz)
			curve[k] = float32(0.5 * (1 + math.Cos(math.Pi*frac)))
		}
	}

	return curve
}

// Enqueue appends an averaged record to the writer's deque.
func (w *PannerWriter) Enqueue(rec *Record) {
	w.enqueueMu.Lock()
	w.queue = append(w.queue, rec)
	w.enqueueMu.Unlock()
}

// TryAdvance drains every currently-queued record, in order, performing the
// inverse transform and writing samples. Only one worker drains at a time;
// others skip and continue doing parallelisable FFT work elsewhere in the
// pipeline.
func (w *PannerWriter) TryAdvance() (ran bool, err error) {
	if !w.advanceMu.TryLock() {
		return false, nil
	}
	defer w.advanceMu.Unlock()

	for {
		rec := w.popFront()
		if rec == nil {
			return true, nil
		}
		if err := w.process(rec); err != nil {
			return true, err
		}
	}
}

func (w *PannerWriter) popFront() *Record {
	w.enqueueMu.Lock()
	defer w.enqueueMu.Unlock()

	if len(w.queue) == 0 {
		return nil
	}
	rec := w.queue[0]
	w.queue = w.queue[1:]
	return rec
}

func (w *PannerWriter) process(rec *Record) error {
	leftFront := rec.TakeLeft()
	rightFront := rec.TakeRight()
	mono := rec.TakeMono()

	leftRear := make([]complex128, len(leftFront))
	rightRear := make([]complex128, len(rightFront))
	copy(leftRear, leftFront)
	copy(rightRear, rightFront)

	// Ultra-low frequencies are not steered to rear.
	leftRear[0] = 0
	rightRear[0] = 0

	var center, lfe []complex128
	hasCenter := w.layout.HasCenter() && mono != nil
	if hasCenter {
		center = make([]complex128, len(leftFront))
	}
	if w.layout.HasLFE() && mono != nil {
		lfe = make([]complex128, len(mono))
		w.buildLFESpectrum(lfe, mono)
	}

	for k := 1; k <= w.windowMidpoint; k++ {
		pans := rec.Pans[k-1]
		backToFront := pans.BackToFront
		frontToBack := 1 - backToFront

		leftAmp, leftPhase := polar(leftFront[k])
		rightAmp, rightPhase := polar(rightFront[k])

		leftFrontAmp := float32(leftAmp) * frontToBack
		rightFrontAmp := float32(rightAmp) * frontToBack
		leftRearAmp := float32(leftAmp) * backToFront
		rightRearAmp := float32(rightAmp) * backToFront

		leftFrontPhase := float32(leftPhase)
		rightFrontPhase := float32(rightPhase)
		leftRearPhase := leftFrontPhase
		rightRearPhase := rightFrontPhase

		if hasCenter {
			_, monoPhase := polar(mono[k])
			fractionInCenter := 1 - float32(math.Abs(float64(pans.LeftToRight)))
			centerAmp := fractionInCenter * (leftFrontAmp + rightFrontAmp)

			leftFrontAmp = clampNonNegative(leftFrontAmp - centerAmp)
			rightFrontAmp = clampNonNegative(rightFrontAmp - centerAmp)

			// Energy that used to come from two speakers now comes from one;
			// the constant-power trim keeps it equally loud.
			center[k] = complexFromPolar(centerAmp*w.profile.CenterAmplitudeAdjustment(), float32(monoPhase))
		}

		w.profile.PhaseShift(&leftFrontPhase, &rightFrontPhase, &leftRearPhase, &rightRearPhase)

		leftFront[k] = complexFromPolar(leftFrontAmp, leftFrontPhase)
		rightFront[k] = complexFromPolar(rightFrontAmp, rightFrontPhase)
		leftRear[k] = complexFromPolar(leftRearAmp, leftRearPhase)
		rightRear[k] = complexFromPolar(rightRearAmp, rightRearPhase)

		fft.MirrorConjugate(leftFront, k, w.windowMidpoint, w.windowSize)
		fft.MirrorConjugate(rightFront, k, w.windowMidpoint, w.windowSize)
		fft.MirrorConjugate(leftRear, k, w.windowMidpoint, w.windowSize)
		fft.MirrorConjugate(rightRear, k, w.windowMidpoint, w.windowSize)
		if hasCenter {
			fft.MirrorConjugate(center, k, w.windowMidpoint, w.windowSize)
		}
	}

	if err := w.plan.Inverse(leftFront); err != nil {
		return fmt.Errorf("inverse transform (left front): %w", err)
	}
	if err := w.plan.Inverse(rightFront); err != nil {
		return fmt.Errorf("inverse transform (right front): %w", err)
	}
	if err := w.plan.Inverse(leftRear); err != nil {
		return fmt.Errorf("inverse transform (left rear): %w", err)
	}
	if err := w.plan.Inverse(rightRear); err != nil {
		return fmt.Errorf("inverse transform (right rear): %w", err)
	}
	if hasCenter {
		if err := w.plan.Inverse(center); err != nil {
			return fmt.Errorf("inverse transform (center): %w", err)
		}
	}
	if lfe != nil {
		if err := w.plan.Inverse(lfe); err != nil {
			return fmt.Errorf("inverse transform (lfe): %w", err)
		}
	}

	if err := w.writeSamples(rec.LastSampleCtr, leftFront, rightFront, leftRear, rightRear, center, lfe); err != nil {
		return err
	}

	if rec.LastSampleCtr == w.totalSamplesToWrite-1 {
		w.done.Store(true)
	}

	return nil
}

// Done reports whether the final window (the one covering the last input
// sample) has been written. The orchestrator uses this, rather than a raw
// total-samples-written counter, to decide when every worker can stop: the
// first/last-window special cases in writeSamples leave a couple of
// absolute indices at the window boundary never individually written (they
// stay silent), so a written-count comparison against totalSamplesToWrite
// would never trip.
func (w *PannerWriter) Done() bool {
	return w.done.Load()
}

// SamplesWritten returns how many output frames the sink has written so
// far, for progress reporting.
func (w *PannerWriter) SamplesWritten() int {
	return w.sink.TotalSamplesWritten()
}

// buildLFESpectrum attenuates the mono spectrum by the precomputed LFE gain
// curve, mirroring Hermitian symmetry as it goes.
func (w *PannerWriter) buildLFESpectrum(dst, mono []complex128) {
	dst[0] = mono[0] * complex(float64(w.lfeCurve[0]), 0)
	for k := 1; k <= w.windowMidpoint; k++ {
		dst[k] = mono[k] * complex(float64(w.lfeCurve[k]), 0)
		fft.MirrorConjugate(dst, k, w.windowMidpoint, w.windowSize)
	}
}

// writeSamples determines which slice of this window's samples to emit and
// writes each as a multichannel frame: the first emitting window flushes
// its whole lower half, the last flushes its whole upper half, and every
// window in between contributes exactly its midpoint sample.
func (w *PannerWriter) writeSamples(lastSampleCtr int, leftFront, rightFront, leftRear, rightRear, center, lfe []complex128) error {
	sampleCtr := lastSampleCtr - w.windowMidpoint

	switch {
	case sampleCtr == w.windowMidpoint:
		// First emitting window: flush its entire lower half, at absolute
		// indices 0..sampleCtr-1.
		for s := 0; s < sampleCtr; s++ {
			if err := w.writeOneFrame(s, s, leftFront, rightFront, leftRear, rightRear, center, lfe); err != nil {
				return err
			}
		}
	case lastSampleCtr == w.totalSamplesToWrite-1:
		firstSampleInTransform := w.totalSamplesToWrite - w.windowSize
		for s := w.windowMidpoint; s < w.windowSize; s++ {
			if err := w.writeOneFrame(firstSampleInTransform+s, s, leftFront, rightFront, leftRear, rightRear, center, lfe); err != nil {
				return err
			}
		}
	default:
		if err := w.writeOneFrame(sampleCtr, w.windowMidpoint, leftFront, rightFront, leftRear, rightRear, center, lfe); err != nil {
			return err
		}
	}

	return nil
}

// writeOneFrame writes the frame whose real samples live at sampleInTransform
// within each (already inverse-transformed) channel buffer out to absolute
// output index absoluteIndex.
func (w *PannerWriter) writeOneFrame(absoluteIndex, sampleInTransform int, leftFront, rightFront, leftRear, rightRear, center, lfe []complex128) error {
	frame := make([]float32, w.layout.NumChannels())

	lf := float32(real(leftFront[sampleInTransform]))
	rf := float32(real(rightFront[sampleInTransform]))
	lr := float32(real(leftRear[sampleInTransform]))
	rr := float32(real(rightRear[sampleInTransform]))

	var c, l *float32
	var cv, lv float32
	if center != nil {
		cv = float32(real(center[sampleInTransform]))
		c = &cv
	}
	if lfe != nil {
		lv = float32(real(lfe[sampleInTransform]))
		l = &lv
	}

	w.profile.AdjustLevels(&lf, &rf, &lr, &rr, c, l)

	frame[w.indices.FrontLeft] = lf
	frame[w.indices.FrontRight] = rf
	frame[w.indices.BackLeft] = lr
	frame[w.indices.BackRight] = rr
	if center != nil {
		frame[w.indices.FrontCenter] = cv
	}
	if lfe != nil {
		frame[w.indices.LFE] = lv
	}

	return w.sink.WriteFrame(absoluteIndex, frame)
}

func clampNonNegative(v float32) float32 {
	if v < 0 {
		return 0
	}
	return v
}

func complexFromPolar(amplitude, phase float32) complex128 {
	sin, cos := math.Sincos(float64(phase))
	return complex(float64(amplitude)*cos, float64(amplitude)*sin)
}
