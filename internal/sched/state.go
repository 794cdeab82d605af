// Package sched implements the per-output frame scheduler: the state
// machine that turns surface damage into paced, vblank-aligned render
// submissions and delivers presentation feedback back to clients.
package sched

// State is an output's position in the render pipeline, per §4.8.
type State int32

const (
	// StateIdle: nothing damaged since the last presented frame.
	StateIdle State = iota
	// StateScheduled: damage arrived; waiting for the next render tick.
	StateScheduled
	// StateRendering: a frame is being composited and submitted to the
	// render back-end.
	StateRendering
	// StateWaitingVblank: submitted, waiting for the scan-out vblank
	// signal.
	StateWaitingVblank
	// StateWaitingPresentation: vblank reached; waiting for the back-end's
	// presentation-complete completion to fire feedback and releases.
	StateWaitingPresentation
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateRendering:
		return "rendering"
	case StateWaitingVblank:
		return "waiting-vblank"
	case StateWaitingPresentation:
		return "waiting-presentation"
	default:
		return "unknown"
	}
}

// TearingMode gates whether a frame may be submitted mid-scan-out
// rather than waiting for vblank.
type TearingMode int

const (
	TearingNever TearingMode = iota
	TearingAlways
	TearingVariant // per-surface opt-in via the tearing-control protocol
)

// VRRMode gates whether the output's refresh rate may vary to match
// render completion rather than holding a fixed period.
type VRRMode int

const (
	VRRNever VRRMode = iota
	VRRAlways
	VRRVariant // per-surface opt-in, same shape as TearingVariant
)

// PresentedFeedback is delivered to every feedback object subscribed
// to a surface once its frame has been presented.
type PresentedFeedback struct {
	TvSec   uint64
	TvNsec  uint32
	Refresh uint32
	Seq     uint64
	Flags   uint32
}
