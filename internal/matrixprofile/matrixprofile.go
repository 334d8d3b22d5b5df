// Package matrixprofile encapsulates the per-matrix-family constants and
// pure per-bin math of a surround decoder: rear phase shifts, per-channel
// level trims, and the optional "widen" factor that distinguishes QS and
// horseshoe style decoders from the default.
package matrixprofile

import "math"

// centerAmplitudeAdjustment is the constant-power panning trim: a tone of
// amplitude 1 in a single speaker carries the same perceived loudness as
// 0.707 in two, so energy collapsed into the center channel is lowered by
// sqrt(2)/2 to stay as loud as it was panned to the edges.
const centerAmplitudeAdjustment = 0.707106781186548 // sqrt(2) / 2

// minimumSteeredAmplitude is the floor a bin's amplitude must clear before
// its phase is trusted for steering; below it, solo-spike suppression
// copies the louder channel's phase onto the quieter one.
const minimumSteeredAmplitude = 0.0001

// Variant names a named matrix family, selectable from the CLI.
type Variant int

const (
	Default Variant = iota
	QS
	Horseshoe
	DolbySafe
	DolbyLoud
	RM
)

// ParseVariant maps a CLI string onto a Variant. "dolby" alone resolves to
// the safer of the two Dolby trims so the bare flag value stays
// conservative; "dolby-loud" reaches the louder one. "sq" is accepted but
// resolves to the Default profile: a full SQ decoder is a substantially
// more involved phase-matrix algorithm, so "--matrix sq" degrades to the
// default rather than erroring on a documented flag value.
func ParseVariant(s string) (Variant, bool) {
	switch s {
	case "default", "sq":
		return Default, true
	case "qs":
		return QS, true
	case "horseshoe":
		return Horseshoe, true
	case "dolby":
		return DolbySafe, true
	case "dolby-loud":
		return DolbyLoud, true
	case "rm":
		return RM, true
	default:
		return 0, false
	}
}

// Profile is a value object carrying one matrix family's constants. All
// operations are pure functions over a frequency bin.
type Profile struct {
	widen          float32
	leftRearShift  float32
	rightRearShift float32
	frontTrim      float32
	centerTrim     float32
	rearTrim       float32
	lfeTrim        float32
	MinimumSteered float32
}

// New builds the Profile for the given variant.
func New(v Variant) Profile {
	const halfPi = float32(math.Pi / 2)

	base := Profile{
		leftRearShift:  -halfPi,
		rightRearShift: halfPi,
		frontTrim:      1,
		centerTrim:     1,
		rearTrim:       1,
		lfeTrim:        1,
		MinimumSteered: minimumSteeredAmplitude,
	}

	switch v {
	case QS:
		largestSum := float32(0.924 + 0.383)
		largestPan := (0.924/largestSum)*2 - 1
		base.widen = 1 / largestPan
	case Horseshoe:
		base.widen = 2
	case DolbySafe:
		base.widen = 1
		base.frontTrim = 1 / float32(math.Sqrt2)
		base.lfeTrim = 1 / float32(math.Sqrt2)
	case DolbyLoud:
		base.widen = 1
		base.centerTrim = float32(math.Sqrt2)
		base.rearTrim = float32(math.Sqrt2)
	case RM:
		// RM shares the Default matrix's constants; it differs only in name.
		base.widen = 1
	default:
		base.widen = 1
	}

	return base
}

// SteeringVector is the per-bin estimate of where a frequency's energy
// should be placed in the output: left<->right and front<->back.
type SteeringVector struct {
	LeftToRight float32 // [-1, +1]: -1 all left, +1 all right
	BackToFront float32 // [0, 1]: 0 all front, 1 all rear
}

// Steer estimates the steering vector for one bin given the polar forms of
// the left and right channels at that bin.
func (p Profile) Steer(leftAmplitude, leftPhase, rightAmplitude, rightPhase float32) SteeringVector {
	leftAmplitude, leftPhase, rightAmplitude, rightPhase = suppressSoloSpike(
		leftAmplitude, leftPhase, rightAmplitude, rightPhase, p.MinimumSteered)

	phaseDifferenceTau := float32(math.Abs(float64(leftPhase - rightPhase)))

	var phaseDifferencePi float32
	if phaseDifferenceTau > math.Pi {
		phaseDifferencePi = float32(math.Pi) - (float32(2*math.Pi) - phaseDifferenceTau)
	} else {
		phaseDifferencePi = phaseDifferenceTau
	}

	backToFrontFromPhase := phaseDifferencePi / float32(math.Pi)

	amplitudeSum := leftAmplitude + rightAmplitude
	if amplitudeSum == 0 {
		return SteeringVector{}
	}

	leftToRight := (leftAmplitude/amplitudeSum)*-2 + 1
	leftToRight *= p.widen

	backToFrontFromPanning := float32(math.Max(float64(float32(math.Abs(float64(leftToRight)))-1), 0))
	backToFront := float32(math.Min(float64(backToFrontFromPanning+backToFrontFromPhase), 1))

	if leftToRight > 1 {
		leftToRight = 1
	} else if leftToRight < -1 {
		leftToRight = -1
	}

	return SteeringVector{LeftToRight: leftToRight, BackToFront: backToFront}
}

// suppressSoloSpike copies the louder channel's phase onto the quieter one
// when the quieter channel's amplitude is too low for its own phase to be
// trustworthy for steering.
func suppressSoloSpike(leftAmplitude, leftPhase, rightAmplitude, rightPhase, minimum float32) (float32, float32, float32, float32) {
	if leftAmplitude < minimum && rightAmplitude >= minimum {
		leftPhase = rightPhase
	} else if rightAmplitude < minimum && leftAmplitude >= minimum {
		rightPhase = leftPhase
	}
	return leftAmplitude, leftPhase, rightAmplitude, rightPhase
}

// PhaseShift adds the matrix's rear phase shifts to the two rear phases,
// normalizing the result back into (-pi, pi].
func (p Profile) PhaseShift(leftFrontPhase, rightFrontPhase, leftRearPhase, rightRearPhase *float32) {
	_ = leftFrontPhase
	_ = rightFrontPhase
	shiftInPlace(leftRearPhase, p.leftRearShift)
	shiftInPlace(rightRearPhase, p.rightRearShift)
}

func shiftInPlace(phase *float32, shift float32) {
	*phase += shift
	bringPhaseInRange(phase)
}

func bringPhaseInRange(phase *float32) {
	const pi = float32(math.Pi)
	const tau = float32(2 * math.Pi)
	if *phase > pi {
		*phase -= tau
	} else if *phase <= -pi {
		*phase += tau
	}
}

// CenterAmplitudeAdjustment returns the constant-power-panning trim used
// when deriving a center channel's amplitude from the front amplitudes.
func (p Profile) CenterAmplitudeAdjustment() float32 {
	return centerAmplitudeAdjustment
}

// AdjustLevels multiplies each present channel sample by its trim.
func (p Profile) AdjustLevels(leftFront, rightFront, leftRear, rightRear *float32, center, lfe *float32) {
	*leftFront *= p.frontTrim
	*rightFront *= p.frontTrim
	*leftRear *= p.rearTrim
	*rightRear *= p.rearTrim
	if center != nil {
		*center *= p.centerTrim
	}
	if lfe != nil {
		*lfe *= p.lfeTrim
	}
}
