package wavio

import "fmt"

// Layout names an output channel configuration.
type Layout int

const (
	FourChannel Layout = iota
	FiveChannel
	FiveOneChannel
)

// ParseLayout maps a CLI string onto a Layout.
func ParseLayout(s string) (Layout, bool) {
	switch s {
	case "4":
		return FourChannel, true
	case "5":
		return FiveChannel, true
	case "5.1":
		return FiveOneChannel, true
	default:
		return 0, false
	}
}

// Speaker positions, matching the WAVE_FORMAT_EXTENSIBLE channel mask bit
// assignments used by Microsoft's multichannel wav convention.
const (
	speakerFrontLeft    = 0x1
	speakerFrontRight   = 0x2
	speakerFrontCenter  = 0x4
	speakerLowFrequency = 0x8
	speakerBackLeft     = 0x10
	speakerBackRight    = 0x20
)

// NumChannels returns how many output channels this layout has.
func (l Layout) NumChannels() int {
	switch l {
	case FourChannel:
		return 4
	case FiveChannel:
		return 5
	case FiveOneChannel:
		return 6
	default:
		return 0
	}
}

// HasCenter reports whether this layout has a front-center channel.
func (l Layout) HasCenter() bool {
	return l == FiveChannel || l == FiveOneChannel
}

// HasLFE reports whether this layout has a low-frequency-effects channel.
func (l Layout) HasLFE() bool {
	return l == FiveOneChannel
}

// ChannelMask returns the WAVE_FORMAT_EXTENSIBLE speaker mask for this
// layout. Indices gives the position of each channel within a frame.
func (l Layout) ChannelMask() uint32 {
	switch l {
	case FourChannel:
		return speakerFrontLeft | speakerFrontRight | speakerBackLeft | speakerBackRight
	case FiveChannel:
		return speakerFrontLeft | speakerFrontRight | speakerFrontCenter | speakerBackLeft | speakerBackRight
	case FiveOneChannel:
		return speakerFrontLeft | speakerFrontRight | speakerFrontCenter | speakerLowFrequency | speakerBackLeft | speakerBackRight
	default:
		return 0
	}
}

// FrameIndices names the position of each channel within an output frame,
// in Microsoft speaker-mask bit order (the order wav files conventionally
// interleave channels in).
type FrameIndices struct {
	FrontLeft, FrontRight, FrontCenter, LFE, BackLeft, BackRight int
}

// Indices returns the per-channel frame offsets for this layout; channels
// the layout doesn't carry are set to -1.
func (l Layout) Indices() FrameIndices {
	switch l {
	case FourChannel:
		return FrameIndices{FrontLeft: 0, FrontRight: 1, FrontCenter: -1, LFE: -1, BackLeft: 2, BackRight: 3}
	case FiveChannel:
		return FrameIndices{FrontLeft: 0, FrontRight: 1, FrontCenter: 2, LFE: -1, BackLeft: 3, BackRight: 4}
	case FiveOneChannel:
		return FrameIndices{FrontLeft: 0, FrontRight: 1, FrontCenter: 2, LFE: 3, BackLeft: 4, BackRight: 5}
	default:
		return FrameIndices{}
	}
}

func (l Layout) String() string {
	switch l {
	case FourChannel:
		return "4"
	case FiveChannel:
		return "5"
	case FiveOneChannel:
		return "5.1"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}
