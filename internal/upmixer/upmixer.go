// Package upmixer drives the worker pool that ties the Reader, Panning
// Averager, and Panner & Writer stages together.
package upmixer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/GWBasic/soft-matrix/internal/pipeline"
	"github.com/GWBasic/soft-matrix/internal/upmixlog"
)

// Upmixer owns the three pipeline stages and runs one worker goroutine per
// available CPU, each looping: read a window, try to advance the averager,
// try to advance the writer. Only one worker at a time ever actually
// advances the averager or the writer (sync.Mutex.TryLock-gated); the rest
// spend that time performing forward FFTs for the next window, so the
// pipeline stays saturated without a central scheduler.
type Upmixer struct {
	reader   *pipeline.Reader
	averager *pipeline.Averager
	writer   *pipeline.PannerWriter
	logger   *upmixlog.Logger

	numWorkers int
}

// New builds an Upmixer. numWorkers <= 0 means "use every available CPU".
func New(reader *pipeline.Reader, averager *pipeline.Averager, writer *pipeline.PannerWriter, logger *upmixlog.Logger, numWorkers int) *Upmixer {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	return &Upmixer{
		reader:     reader,
		averager:   averager,
		writer:     writer,
		logger:     logger,
		numWorkers: numWorkers,
	}
}

// Run spawns the worker pool and blocks until every input sample has been
// upmixed and written, or a worker hits an unrecoverable error. An I/O
// error during the run is fatal to the whole run: the first error any
// worker observes is returned, and all workers stop.
func (u *Upmixer) Run() error {
	var wg sync.WaitGroup
	errs := make(chan error, u.numWorkers)

	for i := 0; i < u.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := u.runWorker(); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return fmt.Errorf("upmixing: %w", err)
		}
	}

	return nil
}

// runWorker is one worker's loop: read a window, offer it to the averager,
// let whichever worker is currently the averaging leader (if any) advance
// the running average, then let whichever worker is currently the writing
// leader (if any) drain newly-averaged windows to disk. Termination is
// driven by the Panner & Writer having processed the final window rather
// than a raw sample count, since the first/last-window handling in
// internal/pipeline/writer.go means a written-frame counter does not reach
// totalSamplesToWrite exactly.
func (u *Upmixer) runWorker() error {
	for {
		rec, ok, err := u.reader.Read()
		if err != nil {
			return fmt.Errorf("reading window: %w", err)
		}
		if ok {
			u.averager.Enqueue(rec)
		}

		u.averager.TryAdvance()

		if _, err := u.writer.TryAdvance(); err != nil {
			return fmt.Errorf("writing window: %w", err)
		}

		if u.logger != nil {
			u.logger.Tick(u.reader.TotalSamplesRead(), u.writer.SamplesWritten())
		}

		if !ok && u.writer.Done() {
			return nil
		}
	}
}
