package sched

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/waylens/waylens/internal/constants"
	"github.com/waylens/waylens/internal/interfaces"
	"github.com/waylens/waylens/internal/scene"
)

// SurfaceSource is the narrow view of an output the scheduler needs: a
// snapshot of the surfaces currently visible on it. *scene.Output
// satisfies this directly via VisibleSurfaces; kept as an interface so
// sched doesn't otherwise depend on scene's container/workspace types.
type SurfaceSource interface {
	VisibleSurfaces() []*scene.Surface
}

// OutputScheduler runs one output's render state machine, generalizing
// the teacher's per-tag owned/in-flight-fetch/in-flight-commit
// discipline (internal/queue/runner.go) into
// idle/scheduled/rendering/waiting-vblank/waiting-presentation, with
// the ring's submit/wait pairing mirrored by submit-frame/wait-vblank.
type OutputScheduler struct {
	name   string
	output SurfaceSource
	render interfaces.RenderContext

	width, height int

	state atomic.Int32

	mu               sync.Mutex
	seq              uint64
	tearing          TearingMode
	vrr              VRRMode
	pendingCallbacks []pendingCallback

	pacer *rate.Limiter // caps redundant re-renders under damage storms

	refreshPeriod time.Duration

	logger  interfaces.Logger
	metrics interfaces.MetricsRecorder
	clock   interfaces.Clock

	feedbackListeners []func(PresentedFeedback)
}

// Config configures a new OutputScheduler.
type Config struct {
	Name          string
	Output        SurfaceSource
	Width, Height int
	Render        interfaces.RenderContext
	RefreshPeriod time.Duration // 0 defaults to constants.DefaultRefreshPeriod
	Tearing       TearingMode
	VRR           VRRMode
	Logger        interfaces.Logger
	Metrics       interfaces.MetricsRecorder
	Clock         interfaces.Clock
}

// NewOutputScheduler creates a scheduler for one output, starting in
// StateIdle.
func NewOutputScheduler(cfg Config) *OutputScheduler {
	period := cfg.RefreshPeriod
	if period <= 0 {
		period = constants.DefaultRefreshPeriod
	}
	clock := cfg.Clock
	if clock == nil {
		clock = interfaces.SystemClock{}
	}
	s := &OutputScheduler{
		name:          cfg.Name,
		output:        cfg.Output,
		width:         cfg.Width,
		height:        cfg.Height,
		render:        cfg.Render,
		tearing:       cfg.Tearing,
		vrr:           cfg.VRR,
		refreshPeriod: period,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		clock:         clock,
		// A damage storm (e.g. a video surface at 120fps on a 60Hz
		// output) shouldn't re-render faster than one frame per refresh
		// period; the limiter caps re-scheduling to that rate.
		pacer: rate.NewLimiter(rate.Every(period), 1),
	}
	s.state.Store(int32(StateIdle))
	return s
}

// State returns the scheduler's current state.
func (s *OutputScheduler) State() State { return State(s.state.Load()) }

// OnPresented registers a listener invoked with presentation feedback
// once a submitted frame completes.
func (s *OutputScheduler) OnPresented(f func(PresentedFeedback)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedbackListeners = append(s.feedbackListeners, f)
}

// MarkDamaged transitions Idle -> Scheduled. Called whenever a commit
// or scene-graph change damages this output; a no-op if a render is
// already in flight, since that render will pick up the damage.
func (s *OutputScheduler) MarkDamaged() {
	s.state.CompareAndSwap(int32(StateIdle), int32(StateScheduled))
}

// Tick drives the state machine forward by one step. FrameScheduler's
// per-output tick loop calls it once per refresh period; it is not
// registered on the runtime's idle-callback hook. It returns true if a
// frame was submitted this tick.
func (s *OutputScheduler) Tick() bool {
	switch s.State() {
	case StateScheduled:
		return s.renderAndSubmit()
	case StateWaitingVblank:
		// Vblank arrives out of band via Vblank(); nothing to advance here
		// without it.
		return false
	default:
		return false
	}
}

func (s *OutputScheduler) renderAndSubmit() bool {
	if !s.pacer.Allow() {
		// Rate-limited: stay Scheduled: a subsequent Tick after the pacer
		// refills will pick this damage back up.
		return false
	}
	if !s.state.CompareAndSwap(int32(StateScheduled), int32(StateRendering)) {
		return false
	}

	surfaces := s.output.VisibleSurfaces()
	var damage []interfaces.Rect
	var callbacks []pendingCallback
	for _, surf := range surfaces {
		for _, r := range surf.DrainDamage() {
			damage = append(damage, interfaces.Rect{X: r.X, Y: r.Y, W: r.W, H: r.H})
		}
		for _, cb := range surf.DrainCallbacks() {
			callbacks = append(callbacks, pendingCallback{cb: cb})
		}
	}

	start := s.clock.Now()
	fb, err := s.render.AcquireFB(s.width, s.height)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("frame scheduler acquire framebuffer failed", "output", s.name, "error", err)
		}
		s.state.Store(int32(StateIdle))
		if s.metrics != nil {
			s.metrics.RecordFrame(uint64(s.clock.Now().Sub(start).Nanoseconds()), false, true)
		}
		return false
	}
	if err := s.render.SubmitFrame(fb, damage); err != nil {
		if s.logger != nil {
			s.logger.Warn("frame scheduler submit failed", "output", s.name, "error", err)
		}
		s.state.Store(int32(StateIdle))
		if s.metrics != nil {
			s.metrics.RecordFrame(uint64(s.clock.Now().Sub(start).Nanoseconds()), false, true)
		}
		return false
	}

	s.mu.Lock()
	s.pendingCallbacks = callbacks
	s.mu.Unlock()

	if s.tearing == TearingAlways {
		// Tearing permits presenting mid-scan-out: skip the vblank wait
		// and go straight to presentation feedback.
		s.completePresentation(start)
		return true
	}
	s.state.Store(int32(StateWaitingVblank))
	return true
}

// VblankSeq returns the number of vblank signals this output has
// reached so far. A surface's fifo_barrier_wait commit is promotable
// once this has advanced past the sequence recorded at its last
// fifo_barrier_set, giving the dispatcher the "next vblank after the
// most recent set" gate from §4.8 without the scheduler needing to
// know about individual surfaces' barrier state.
func (s *OutputScheduler) VblankSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Vblank signals that the output's scan-out has reached vblank,
// advancing WaitingVblank -> WaitingPresentation, firing presentation
// feedback and returning to Idle. It is a no-op in any other state.
func (s *OutputScheduler) Vblank() {
	if s.state.CompareAndSwap(int32(StateWaitingVblank), int32(StateWaitingPresentation)) {
		s.completePresentation(s.clock.Now())
	}
}

func (s *OutputScheduler) completePresentation(start time.Time) {
	now := s.clock.Now()
	s.mu.Lock()
	s.seq++
	seq := s.seq
	callbacks := s.pendingCallbacks
	s.pendingCallbacks = nil
	listeners := append([]func(PresentedFeedback){}, s.feedbackListeners...)
	s.mu.Unlock()

	fb := PresentedFeedback{
		TvSec:   uint64(now.Unix()),
		TvNsec:  uint32(now.Nanosecond()),
		Refresh: uint32(s.refreshPeriod.Nanoseconds()),
		Seq:     seq,
	}
	for _, l := range listeners {
		l(fb)
	}
	tvSec := uint32(now.Unix())
	for _, pc := range callbacks {
		pc.cb(tvSec, uint32(now.Nanosecond()))
	}

	if s.metrics != nil {
		s.metrics.RecordFrame(uint64(now.Sub(start).Nanoseconds()), true, false)
	}
	s.state.Store(int32(StateIdle))
}

type pendingCallback struct {
	cb scene.FrameCallback
}
