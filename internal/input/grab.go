package input

import "sync"

// Grab intercepts pointer and/or keyboard events ahead of normal focus
// dispatch while active. Implementations selectively forward events
// they don't care about back to normal dispatch by returning false.
type Grab interface {
	// Name identifies the grab kind for diagnostics (e.g. "move",
	// "resize", "dnd", "popup").
	Name() string
	// HandlePointerMotion processes pointer motion; returns true if the
	// event was consumed and should not reach normal focus dispatch.
	HandlePointerMotion(x, y float64) bool
	// HandleButton processes a pointer button event.
	HandleButton(button uint32, pressed bool) bool
	// HandleKey processes a key event.
	HandleKey(keycode uint32, pressed bool) bool
	// Cancel is called when the grab is forcibly ended by
	// GrabStack.CancelAll (seat teardown) rather than completing
	// normally. Pushing another grab on top does not cancel it.
	Cancel()
}

// GrabStack is a seat's LIFO stack of active grabs: the most recently
// pushed grab is offered every input event first, generalizing the
// per-tag mutual-exclusion discipline in the teacher's queue runner
// (only one submission in flight per tag at a time) into "only the
// topmost grab owns input at a time."
type GrabStack struct {
	mu    sync.Mutex
	stack []Grab
}

// NewGrabStack creates an empty grab stack.
func NewGrabStack() *GrabStack {
	return &GrabStack{}
}

// Push installs g as the new topmost grab.
func (gs *GrabStack) Push(g Grab) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.stack = append(gs.stack, g)
}

// Pop removes the topmost grab, if g is in fact topmost, without
// calling its Cancel method.
// Popping a grab that isn't on top (because a later grab superseded it)
// is a no-op; the caller should have tracked whether its grab was
// already superseded.
func (gs *GrabStack) Pop(g Grab) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if len(gs.stack) == 0 || gs.stack[len(gs.stack)-1] != g {
		return
	}
	gs.stack = gs.stack[:len(gs.stack)-1]
}

// Top returns the current topmost grab, or nil if none is active.
func (gs *GrabStack) Top() Grab {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if len(gs.stack) == 0 {
		return nil
	}
	return gs.stack[len(gs.stack)-1]
}

// Active reports whether any grab is currently in force.
func (gs *GrabStack) Active() bool {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return len(gs.stack) > 0
}

// CancelAll cancels every grab from the top down and empties the
// stack, used on seat teardown.
func (gs *GrabStack) CancelAll() {
	gs.mu.Lock()
	stack := gs.stack
	gs.stack = nil
	gs.mu.Unlock()
	for i := len(stack) - 1; i >= 0; i-- {
		stack[i].Cancel()
	}
}

// DispatchMotion offers a pointer motion event to the topmost grab, if
// any. It reports whether a grab was active (regardless of whether the
// grab consumed the event), so the caller knows whether normal focus
// dispatch should run at all.
func (gs *GrabStack) DispatchMotion(x, y float64) (consumed bool, grabActive bool) {
	top := gs.Top()
	if top == nil {
		return false, false
	}
	return top.HandlePointerMotion(x, y), true
}

// DragData is the mime-typed payload a DnD grab offers to the
// pointer-focused client.
type DragData struct {
	MimeTypes []string
	Source    FocusTarget
}

// DnDGrab is drag-and-drop modeled as a grab that owns a cursor
// surface and forwards motion to update the drop target, offering its
// data to whichever client currently has pointer focus.
type DnDGrab struct {
	Data       DragData
	cursorIcon FocusTarget
	onMotion   func(x, y float64)
	onDrop     func()
	onCancel   func()
}

// NewDnDGrab creates a drag-and-drop grab carrying data, invoking
// onMotion as the pointer moves and onDrop when the button is
// released over a target.
func NewDnDGrab(data DragData, onMotion func(x, y float64), onDrop, onCancel func()) *DnDGrab {
	return &DnDGrab{Data: data, onMotion: onMotion, onDrop: onDrop, onCancel: onCancel}
}

func (g *DnDGrab) Name() string { return "dnd" }

func (g *DnDGrab) HandlePointerMotion(x, y float64) bool {
	if g.onMotion != nil {
		g.onMotion(x, y)
	}
	return true
}

func (g *DnDGrab) HandleButton(button uint32, pressed bool) bool {
	if !pressed && g.onDrop != nil {
		g.onDrop()
	}
	return true
}

func (g *DnDGrab) HandleKey(keycode uint32, pressed bool) bool {
	return false // DnD doesn't consume keyboard events
}

func (g *DnDGrab) Cancel() {
	if g.onCancel != nil {
		g.onCancel()
	}
}

// SetCursorIcon attaches the surface used as the drag's cursor icon.
func (g *DnDGrab) SetCursorIcon(icon FocusTarget) { g.cursorIcon = icon }

// CursorIcon returns the drag's cursor icon surface, if any.
func (g *DnDGrab) CursorIcon() FocusTarget { return g.cursorIcon }
