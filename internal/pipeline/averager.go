package pipeline

import (
	"sync"

	"github.com/GWBasic/soft-matrix/internal/matrixprofile"
)

// Averager holds a queue of recent steering vectors and maintains a per-bin
// rolling average whose window length equals that bin's wavelength in
// samples. Records arrive out of order from the Reader and are staged by
// lastSampleCtr before being released into the averaging queue in sequence.
type Averager struct {
	stagingMu sync.Mutex
	staging   map[int]*Record

	avgMu sync.Mutex // guards everything below; try-locked by workers

	lower, upper []int
	fraction     []float32

	nextToEnqueue int
	queue         []*Record
	panAverages   []matrixprofile.SteeringVector

	windowSize          int
	windowMidpoint      int
	totalSamplesToWrite int

	sink *PannerWriter
}

// NewAverager precomputes the per-bin averaging bounds: bin k averages over
// a window of windowSize/k samples centered within the queue, weighting
// each contribution by the reciprocal of that length.
func NewAverager(windowSize, totalSamplesToWrite int, sink *PannerWriter) *Averager {
	windowMidpoint := windowSize / 2

	lower := make([]int, windowMidpoint)
	upper := make([]int, windowMidpoint)
	fraction := make([]float32, windowMidpoint)

	for subFreq := 0; subFreq < windowMidpoint; subFreq++ {
		transformIndex := subFreq + 1
		wavelength := windowSize / transformIndex
		extraSamples := windowSize - wavelength

		lower[subFreq] = extraSamples / 2
		upper[subFreq] = lower[subFreq] + wavelength - 1
		fraction[subFreq] = 1.0 / float32(wavelength)
	}

	return &Averager{
		staging:             make(map[int]*Record),
		lower:               lower,
		upper:               upper,
		fraction:            fraction,
		nextToEnqueue:       windowSize - 1,
		windowSize:          windowSize,
		windowMidpoint:      windowMidpoint,
		totalSamplesToWrite: totalSamplesToWrite,
		sink:                sink,
	}
}

// Enqueue stages a just-transformed record for averaging. Safe to call
// concurrently from many workers; never blocks on the averaging try-lock.
func (a *Averager) Enqueue(rec *Record) {
	a.stagingMu.Lock()
	a.staging[rec.LastSampleCtr] = rec
	a.stagingMu.Unlock()
}

// TryAdvance attempts to drain staged records and advance the running
// average, handing finished records to the Panner & Writer. It is a no-op
// if another worker already holds the averaging lock; callers should treat
// that as "someone else is making progress" and move on.
func (a *Averager) TryAdvance() (ran bool) {
	if !a.avgMu.TryLock() {
		return false
	}
	defer a.avgMu.Unlock()

	a.drainStaging()

	if len(a.panAverages) == 0 {
		return true
	}

	for len(a.queue) >= a.windowSize {
		a.addUpperContribution()

		rec := a.queue[a.windowMidpoint]
		lastTransform := rec.LastSampleCtr == a.totalSamplesToWrite-1

		a.sink.Enqueue(NewRecord(rec.LastSampleCtr, rec.TakeLeft(), rec.TakeRight(), rec.TakeMono(), ClonePans(a.panAverages)))

		if lastTransform {
			a.queue = nil
			return true
		}

		a.subtractLowerContribution()
		a.queue = a.queue[1:]
	}

	return true
}

func (a *Averager) drainStaging() {
	for {
		a.stagingMu.Lock()
		rec, ok := a.staging[a.nextToEnqueue]
		if ok {
			delete(a.staging, a.nextToEnqueue)
		}
		a.stagingMu.Unlock()

		if !ok {
			return
		}

		a.enqueueOne(rec)
		a.nextToEnqueue++
	}
}

// enqueueOne appends rec to the averaging queue, padding with placeholder
// records at the ends of the file: the first transform is replicated
// backward so averaging has a warm start, and the last is replicated
// forward so the tail of the file keeps producing output.
func (a *Averager) enqueueOne(rec *Record) {
	if a.nextToEnqueue == a.windowSize-1 {
		// First transform ever seen: warm-start the queue with dummy
		// copies of its steering vectors so averaging can begin immediately.
		for len(a.queue) < a.windowMidpoint-1 {
			a.queue = append(a.queue, NewRecord(0, nil, nil, nil, ClonePans(rec.Pans)))
		}
	}

	if rec.LastSampleCtr == a.totalSamplesToWrite-1 {
		current := rec
		for i := 0; i < a.windowMidpoint; i++ {
			next := NewRecord(current.LastSampleCtr+1, nil, nil, nil, ClonePans(rec.Pans))
			a.queue = append(a.queue, current)
			current = next
		}
		rec = current
	}

	a.queue = append(a.queue, rec)

	if a.nextToEnqueue == a.windowSize+a.windowMidpoint {
		a.preSeedAverages()
	}
}

// preSeedAverages computes the initial running mean once enough of the
// queue has filled to cover every bin's averaging window.
func (a *Averager) preSeedAverages() {
	a.panAverages = make([]matrixprofile.SteeringVector, a.windowMidpoint)

	for k := 0; k < a.windowMidpoint; k++ {
		var ltr, btf float32
		// Sum over queue positions lower[k]..upper[k]-1 inclusive; the main
		// loop's first action for each emission adds the upper[k]
		// contribution, completing the full window before it is used.
		for sampleCtr := a.lower[k]; sampleCtr < a.upper[k]; sampleCtr++ {
			frac := a.fraction[k]
			pans := a.queue[sampleCtr].Pans[k]
			ltr += pans.LeftToRight * frac
			btf += pans.BackToFront * frac
		}
		a.panAverages[k] = matrixprofile.SteeringVector{LeftToRight: ltr, BackToFront: btf}
	}
}

func (a *Averager) addUpperContribution() {
	for k := 0; k < a.windowMidpoint; k++ {
		pans := a.queue[a.upper[k]].Pans[k]
		frac := a.fraction[k]
		a.panAverages[k].LeftToRight += pans.LeftToRight * frac
		a.panAverages[k].BackToFront += pans.BackToFront * frac
	}
}

func (a *Averager) subtractLowerContribution() {
	for k := 0; k < a.windowMidpoint; k++ {
		pans := a.queue[a.lower[k]].Pans[k]
		frac := a.fraction[k]
		a.panAverages[k].LeftToRight -= pans.LeftToRight * frac
		a.panAverages[k].BackToFront -= pans.BackToFront * frac
	}
}

