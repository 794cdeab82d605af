// Package input implements the seat: pointer/keyboard/touch focus
// resolution, the grab stack, drag-and-drop, pointer constraints, and
// the idle timer.
package input

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/waylens/waylens/internal/interfaces"
)

// PointerState is the seat's current pointer position and focus.
type PointerState struct {
	X, Y   float64 // output coordinates
	Focus  FocusTarget
	LocalX, LocalY float64 // focus-local coordinates, recomputed on focus change/move
}

// Modifiers tracks the keyboard's depressed/latched/locked modifier
// levels, as maintained by a compiled xkb state machine elsewhere; this
// package only stores the resulting bitmask triple.
type Modifiers struct {
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

// KeyboardState is the seat's current keyboard focus and modifier
// state.
type KeyboardState struct {
	Focus FocusTarget
	Mods  Modifiers
}

// TouchPoint tracks one active touch contact from down through up. Per
// §4.7, touch focus never changes during a slide: Focus is fixed at
// down time.
type TouchPoint struct {
	ID    int32
	Focus FocusTarget
	X, Y  float64
}

// FocusTarget is whatever in the scene graph can receive input: a
// surface-shaped object exposing its accepted input region. Kept as a
// narrow interface here so this package doesn't depend on the scene
// package's concrete Surface type, avoiding an import cycle with
// scene's own (future) dependency on input for seat-aware layout.
type FocusTarget interface {
	AcceptsInputAt(localX, localY float64) bool
}

// Seat is one logical collection of input devices: one pointer, one
// keyboard, a set of active touch points, a LIFO grab stack, a DnD
// session (a special kind of grab), and an idle timer.
type Seat struct {
	mu sync.Mutex

	Pointer  PointerState
	Keyboard KeyboardState
	touches  map[int32]*TouchPoint

	grabs *GrabStack

	constraint *Constraint

	idleTimeout   time.Duration
	idleLimiter   *rate.Limiter
	idleTimer     *time.Timer
	idled         bool
	lastActivity  time.Time
	idleListeners []func(idle bool)
	inhibitors    int

	clock interfaces.Clock
}

// NewSeat creates a seat with the given idle timeout. A zero timeout
// disables the idle timer.
func NewSeat(idleTimeout time.Duration, clock interfaces.Clock) *Seat {
	if clock == nil {
		clock = interfaces.SystemClock{}
	}
	s := &Seat{
		touches:     make(map[int32]*TouchPoint),
		grabs:       NewGrabStack(),
		idleTimeout: idleTimeout,
		// Coalesce bursts of input events (a mouse polling at 1000Hz) into
		// a single idle-timer reset rather than rearming a timer per
		// event: at most 30 resets/sec gets through the limiter.
		idleLimiter: rate.NewLimiter(rate.Limit(30), 1),
		clock:       clock,
	}
	if idleTimeout > 0 {
		s.armIdleTimer()
	}
	return s
}

// Grabs returns the seat's grab stack.
func (s *Seat) Grabs() *GrabStack { return s.grabs }

// Constraint returns the seat's active pointer constraint, if any.
func (s *Seat) Constraint() *Constraint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.constraint
}

// SetConstraint installs or clears the seat's pointer constraint. A
// constraint is only in force while its target surface has pointer
// focus, enforced by the caller checking that before installing one.
func (s *Seat) SetConstraint(c *Constraint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constraint = c
}

// NotifyActivity records activity and, if the seat was idle, fires the
// idle-notify "resumed" transition immediately. Only the underlying
// timer rearm is coalesced through idleLimiter (a 1kHz pointer doesn't
// need a fresh time.AfterFunc per event) — the un-idle bookkeeping
// above is never gated on it, and fireIdle re-checks lastActivity
// against the real clock before declaring idle, so a throttled rearm
// can never let a stale timer fire while activity is still arriving.
func (s *Seat) NotifyActivity() {
	if s.idleTimeout <= 0 {
		return
	}
	s.mu.Lock()
	s.lastActivity = s.clock.Now()
	wasIdle := s.idled
	s.idled = false
	var listeners []func(bool)
	if wasIdle {
		listeners = append([]func(bool){}, s.idleListeners...)
	}
	s.mu.Unlock()
	for _, l := range listeners {
		l(false)
	}
	if s.idleLimiter.Allow() {
		s.armIdleTimer()
	}
}

func (s *Seat) armIdleTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.idleTimeout, s.fireIdle)
}

// fireIdle is the idle timer's deadline callback. Because timer
// rearms are rate-limited, the timer can fire while activity has
// continued to arrive in the meantime; it re-derives the true
// remaining time from lastActivity and reschedules itself instead of
// declaring idle early, rather than trusting its own deadline.
func (s *Seat) fireIdle() {
	s.mu.Lock()
	if s.inhibitors > 0 {
		s.idleTimer = time.AfterFunc(s.idleTimeout, s.fireIdle)
		s.mu.Unlock()
		return
	}
	if remaining := s.idleTimeout - s.clock.Now().Sub(s.lastActivity); remaining > 0 {
		s.idleTimer = time.AfterFunc(remaining, s.fireIdle)
		s.mu.Unlock()
		return
	}
	s.idled = true
	listeners := append([]func(bool){}, s.idleListeners...)
	s.mu.Unlock()
	for _, l := range listeners {
		l(true)
	}
}

// OnIdle registers a listener invoked on every idle-state transition:
// once with idle=true when the seat goes idle, and once with
// idle=false the next time activity arrives — the idle-notify
// extension's "idled"/"resumed" pair.
func (s *Seat) OnIdle(f func(idle bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idleListeners = append(s.idleListeners, f)
}

// Idled reports whether the seat is currently idle.
func (s *Seat) Idled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idled
}

// Inhibit blocks the idle transition while count > 0; each Inhibit
// must be paired with a Release when the inhibiting surface is
// unmapped or loses visibility.
func (s *Seat) Inhibit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inhibitors++
}

// Release undoes one Inhibit.
func (s *Seat) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inhibitors > 0 {
		s.inhibitors--
	}
}

// TouchDown begins tracking a new touch point, fixing its focus for
// the duration of the slide.
func (s *Seat) TouchDown(id int32, x, y float64, focus FocusTarget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touches[id] = &TouchPoint{ID: id, Focus: focus, X: x, Y: y}
}

// TouchMove updates an active touch point's position without changing
// its focus.
func (s *Seat) TouchMove(id int32, x, y float64) (*TouchPoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tp, ok := s.touches[id]
	if !ok {
		return nil, false
	}
	tp.X, tp.Y = x, y
	return tp, true
}

// TouchUp ends tracking for id, returning the touch point that was
// released.
func (s *Seat) TouchUp(id int32) (*TouchPoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tp, ok := s.touches[id]
	if ok {
		delete(s.touches, id)
	}
	return tp, ok
}
