// Package pipeline implements the streaming STFT pipeline: the Reader,
// Panning Averager, and Panner & Writer stages, plus the shared record type
// that moves between them.
package pipeline

import "github.com/GWBasic/soft-matrix/internal/matrixprofile"

// Record is one transformed window traveling through the pipeline. The
// transform slices are nullable (nil) so a later stage can take ownership
// without a deep copy: Take* clears the field it returns, so only one owner
// ever holds the backing array.
type Record struct {
	LastSampleCtr int

	left  []complex128
	right []complex128
	mono  []complex128

	// Pans has length windowMidpoint; Pans[k-1] is the steering vector for
	// frequency bin k.
	Pans []matrixprofile.SteeringVector
}

// NewRecord builds a record owning the given transforms.
func NewRecord(lastSampleCtr int, left, right, mono []complex128, pans []matrixprofile.SteeringVector) *Record {
	return &Record{LastSampleCtr: lastSampleCtr, left: left, right: right, mono: mono, Pans: pans}
}

// TakeLeft moves the left transform out of the record.
func (r *Record) TakeLeft() []complex128 {
	v := r.left
	r.left = nil
	return v
}

// TakeRight moves the right transform out of the record.
func (r *Record) TakeRight() []complex128 {
	v := r.right
	r.right = nil
	return v
}

// TakeMono moves the mono transform out of the record, if present.
func (r *Record) TakeMono() []complex128 {
	v := r.mono
	r.mono = nil
	return v
}

// ClonePans returns a copy of the record's steering vectors, suitable for
// substituting in a downstream record that should carry averaged pans
// instead of the raw per-window estimate.
func ClonePans(pans []matrixprofile.SteeringVector) []matrixprofile.SteeringVector {
	out := make([]matrixprofile.SteeringVector, len(pans))
	copy(out, pans)
	return out
}
