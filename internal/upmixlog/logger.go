// Package upmixlog prints upmixing progress to the terminal, throttled to
// roughly ten updates a second, plus one-shot startup/error messages
// stamped with the time of day.
package upmixlog

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Logger tracks progress against a known total and rate-limits how often it
// actually writes to the terminal.
type Logger struct {
	progress *log.Logger
	events   *log.Logger

	totalSamplesToWrite int
	minInterval         time.Duration

	mu       sync.Mutex
	lastTick time.Time
	started  time.Time
}

// New builds a Logger for a run that will write totalSamplesToWrite output
// frames.
func New(totalSamplesToWrite int) *Logger {
	progress := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Prefix:          "upmix",
	})
	events := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "upmix",
	})

	return &Logger{
		progress:            progress,
		events:              events,
		totalSamplesToWrite: totalSamplesToWrite,
		minInterval:         100 * time.Millisecond, // ~10Hz
		started:             nowOrZero(),
	}
}

// nowOrZero exists so tests can construct a Logger without depending on
// wall-clock time mattering for anything but throttling.
func nowOrZero() time.Time { return time.Now() }

// Started logs a one-shot message that upmixing has begun.
func (l *Logger) Started(path string) {
	l.events.Infof("starting upmix of %s", path)
}

// Finished logs a one-shot completion message.
func (l *Logger) Finished() {
	l.events.Info("finished")
}

// Failed logs a one-shot error message. The caller still returns the error
// up the stack; this only makes sure it's visible on an otherwise
// progress-only terminal.
func (l *Logger) Failed(err error) {
	l.events.Error("upmix failed", "error", err)
}

// Tick reports current progress, throttled to at most one real write per
// minInterval regardless of how often callers invoke it (every worker calls
// this after every window).
func (l *Logger) Tick(samplesRead, samplesWritten int) {
	l.mu.Lock()
	now := time.Now()
	if !l.lastTick.IsZero() && now.Sub(l.lastTick) < l.minInterval {
		l.mu.Unlock()
		return
	}
	l.lastTick = now
	l.mu.Unlock()

	var fraction float64
	if l.totalSamplesToWrite > 0 {
		fraction = float64(samplesWritten) / float64(l.totalSamplesToWrite)
	}
	elapsed := now.Sub(l.started).Round(time.Second)

	l.progress.Info(fmt.Sprintf("%.1f%% (%d read, %d written of %d, %s elapsed)", fraction*100, samplesRead, samplesWritten, l.totalSamplesToWrite, elapsed))
}
