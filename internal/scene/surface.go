package scene

import (
	"sync"

	"github.com/waylens/waylens/internal/interfaces"
)

// SyncMode is a subsurface's commit synchronisation mode relative to
// its parent.
type SyncMode int

const (
	// SyncModeSynchronized: pending state is promoted only when the
	// parent (transitively) commits.
	SyncModeSynchronized SyncMode = iota
	// SyncModeDesynchronized: pending state promotes independently, as
	// soon as its own barrier predicates are satisfied.
	SyncModeDesynchronized
)

// FifoBarrier is a surface's FIFO pacing request, set by
// `fifo_barrier_set`/`fifo_barrier_wait`.
type FifoBarrier int

const (
	FifoBarrierNone FifoBarrier = iota
	FifoBarrierSet
	FifoBarrierWait
)

// FrameCallback is a one-shot per-tick callback registered on a
// surface; it fires once the output it was considered on completes a
// tick, whether or not the surface was actually composited.
type FrameCallback func(tvSec, tvNsec uint32)

// State is the promotable part of a surface: everything a commit can
// change. A commit never partially applies — State is swapped as a
// whole pointer under Surface.mu, never mutated field-by-field once
// promoted.
type State struct {
	Buffer        *Buffer
	OffsetX       int
	OffsetY       int
	Scale         float64
	Rotation      int // degrees, one of {0, 90, 180, 270}
	OpaqueRegion  *Region
	InputRegion   *Region
	Damage        *Region
	AcquirePoint  interfaces.SyncPoint
	FifoBarrier   FifoBarrier
	FrameCallbacks []FrameCallback
}

func newState() *State {
	return &State{Scale: 1.0}
}

// Surface is one wl_surface: a pending/current state pair plus a
// subsurface tree, generalizing the teacher's per-tag
// owned/in-flight-fetch/in-flight-commit state machine in
// internal/queue/runner.go into "pending state parked until its
// promotion predicates are satisfied."
type Surface struct {
	mu      sync.Mutex
	pending *State
	current *State

	parent   *Surface
	children []*Surface
	syncMode SyncMode
	stackPos int

	fifoLastSet bool // has fifo_barrier_set fired since the last vblank

	damageOut     *Region         // accumulated output-space damage, drained by the scheduler
	callbacksOut  []FrameCallback // one-shot frame callbacks parked by the last promotion, drained by the scheduler
}

// NewSurface creates a surface with empty pending/current state.
func NewSurface() *Surface {
	return &Surface{
		pending:   newState(),
		current:   newState(),
		syncMode:  SyncModeDesynchronized,
		damageOut: NewRegion(bucket64),
	}
}

// SetParent attaches s as a subsurface of parent at the given stacking
// position and sync mode. A nil parent detaches s back to being a
// top-level-owned surface.
func (s *Surface) SetParent(parent *Surface, stackPos int, mode SyncMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parent = parent
	s.stackPos = stackPos
	s.syncMode = mode
	if parent != nil {
		parent.mu.Lock()
		parent.children = append(parent.children, s)
		parent.mu.Unlock()
	}
}

// Pending returns the surface's pending state for a handler to mutate
// before calling Commit. Callers must hold no other lock on s while
// mutating the returned State's fields, since Commit takes s.mu to
// swap it in.
func (s *Surface) Pending() *State {
	return s.pending
}

// promotable reports whether s's pending state may be promoted right
// now: its own barrier predicates, and (if synchronized) whether its
// parent has most recently committed.
func (s *Surface) promotable(acquireSignalled bool, vblankReached bool) bool {
	if !acquireSignalled {
		return false
	}
	if s.pending.FifoBarrier == FifoBarrierWait && !vblankReached {
		return false
	}
	if s.syncMode == SyncModeSynchronized && s.parent != nil {
		// A synchronized child promotes only as part of its parent's
		// commit (see commitLocked), never independently.
		return false
	}
	return true
}

// Commit attempts to promote s's pending state to current. acquireSignalled
// and vblankReached are the external predicates the caller (dispatcher
// for the former, scheduler for the latter) has already evaluated. If any
// predicate is unmet the pending state stays parked and Commit is a no-op
// --- the caller must retry on the next triggering event.
//
// Per §4.5, a desynchronized subsurface promotes independently; a
// synchronized one's pending state is carried along and promoted
// transitively when its parent commits, via commitChildren.
func (s *Surface) Commit(acquireSignalled, vblankReached bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitLocked(acquireSignalled, vblankReached)
}

func (s *Surface) commitLocked(acquireSignalled, vblankReached bool) {
	if !s.promotable(acquireSignalled, vblankReached) {
		return
	}
	s.promoteLocked()
	s.commitChildrenLocked(acquireSignalled, vblankReached)
}

// commitChildrenLocked promotes every synchronized child transitively,
// and lets desynchronized children promote on their own schedule (they
// are committed independently by their own Commit calls, so nothing to
// do here for them beyond damage aggregation).
func (s *Surface) commitChildrenLocked(acquireSignalled, vblankReached bool) {
	for _, child := range s.children {
		if child.syncMode != SyncModeSynchronized {
			continue
		}
		child.mu.Lock()
		if child.promotableIgnoringSync(acquireSignalled, vblankReached) {
			child.promoteLocked()
			child.commitChildrenLocked(acquireSignalled, vblankReached)
		}
		child.mu.Unlock()
	}
}

func (child *Surface) promotableIgnoringSync(acquireSignalled, vblankReached bool) bool {
	if !acquireSignalled {
		return false
	}
	if child.pending.FifoBarrier == FifoBarrierWait && !vblankReached {
		return false
	}
	return true
}

// promoteLocked swaps pending into current as a single pointer write,
// aggregates damage, drops this surface's reference to the previous
// buffer if it was replaced, and parks the promoted state's one-shot
// frame callbacks for the scheduler to collect via DrainCallbacks.
func (s *Surface) promoteLocked() {
	prev := s.current
	next := s.pending

	// Aggregate damage: surface-local -> buffer -> output coordinates.
	if next.Damage != nil && !next.Damage.Empty() {
		for _, r := range next.Damage.Rects() {
			s.damageOut.AddTransformed(r, next.OffsetX, next.OffsetY, next.Scale)
		}
	}

	if prev.Buffer != nil && prev.Buffer != next.Buffer {
		prev.Buffer.Release()
	}

	s.current = next
	s.pending = clonePendingFrom(next)

	if len(next.FrameCallbacks) > 0 {
		s.callbacksOut = append(s.callbacksOut, next.FrameCallbacks...)
	}
}

// clonePendingFrom starts a fresh pending state inheriting the
// persistent parts of a just-promoted state (buffer reference is
// intentionally NOT inherited; a new commit must attach its own
// buffer, while offset/scale/regions persist until changed).
func clonePendingFrom(promoted *State) *State {
	return &State{
		OffsetX:      promoted.OffsetX,
		OffsetY:      promoted.OffsetY,
		Scale:        promoted.Scale,
		Rotation:     promoted.Rotation,
		OpaqueRegion: promoted.OpaqueRegion,
		InputRegion:  promoted.InputRegion,
	}
}

// Current returns the surface's current (promoted) state, safe to read
// concurrently with a commit since it's only ever replaced wholesale.
func (s *Surface) Current() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// DrainDamage returns and clears the surface's accumulated output-space
// damage, called once per output tick by the scheduler.
func (s *Surface) DrainDamage() []Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	rects := append([]Rect(nil), s.damageOut.Rects()...)
	s.damageOut.Clear()
	return rects
}

// DrainCallbacks returns and clears the surface's parked one-shot frame
// callbacks, called once per output tick by the scheduler for every
// surface it considered (composited or would have been).
func (s *Surface) DrainCallbacks() []FrameCallback {
	s.mu.Lock()
	defer s.mu.Unlock()
	cbs := s.callbacksOut
	s.callbacksOut = nil
	return cbs
}

// Children returns a snapshot of s's subsurfaces in the order they were
// attached; their stacking positions are not used to order it.
func (s *Surface) Children() []*Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Surface, len(s.children))
	copy(out, s.children)
	return out
}
