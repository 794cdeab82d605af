package input

// HitTester descends the scene graph to find the top-most node whose
// input region contains a point, returning that node's FocusTarget and
// the point translated into its local coordinates. The scene package
// provides the concrete implementation; kept as an interface here so
// input doesn't import scene directly (scene may in turn want seat
// state for idle-aware rendering decisions).
type HitTester interface {
	HitTest(outputX, outputY float64) (target FocusTarget, localX, localY float64, ok bool)
}

// UpdatePointerFocus resolves pointer focus at (x, y) via hitTest,
// emitting leave to the previous focus and enter to the new one. It is
// a no-op (beyond updating position) if the focus target is unchanged.
// Per §4.7, this is bypassed while a grab is active; the caller checks
// Seat.Grabs().Active() first.
func (s *Seat) UpdatePointerFocus(x, y float64, hitTest HitTester) (leave, enter FocusTarget, localX, localY float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Pointer.X, s.Pointer.Y = x, y
	target, lx, ly, ok := hitTest.HitTest(x, y)
	if !ok {
		target = nil
	}

	prev := s.Pointer.Focus
	if prev == target {
		s.Pointer.LocalX, s.Pointer.LocalY = lx, ly
		return nil, nil, lx, ly
	}

	s.Pointer.Focus = target
	s.Pointer.LocalX, s.Pointer.LocalY = lx, ly
	return prev, target, lx, ly
}

// SetKeyboardFocus moves keyboard focus to target, returning the
// previous focus (for emitting leave) so the caller can emit
// leave/enter/modifier events in the right order. Per §4.7, keyboard
// focus always follows the seat's single active toplevel.
func (s *Seat) SetKeyboardFocus(target FocusTarget) (prev FocusTarget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.Keyboard.Focus
	s.Keyboard.Focus = target
	return prev
}

// ShortcutTable maps a (modifiers, keycode) chord to a handler that,
// if it returns true, consumes the key so it is not forwarded to the
// focused client.
type ShortcutTable struct {
	entries map[shortcutKey]func() bool
}

type shortcutKey struct {
	mods    uint32
	keycode uint32
}

// NewShortcutTable creates an empty shortcut table.
func NewShortcutTable() *ShortcutTable {
	return &ShortcutTable{entries: make(map[shortcutKey]func() bool)}
}

// Bind registers a handler for the given modifier mask and keycode.
func (t *ShortcutTable) Bind(mods, keycode uint32, handler func() bool) {
	t.entries[shortcutKey{mods: mods, keycode: keycode}] = handler
}

// Dispatch attempts to match (mods, keycode) against the table. It
// returns true if a handler matched and chose to consume the key.
func (t *ShortcutTable) Dispatch(mods, keycode uint32) bool {
	h, ok := t.entries[shortcutKey{mods: mods, keycode: keycode}]
	if !ok {
		return false
	}
	return h()
}

// HandleKeyEvent runs a key press/release through the grab stack (if
// active), the shortcut table, and finally the focused client, in that
// priority order, matching §4.7's "matched against the shortcut table
// before being forwarded to the focused client."
func (s *Seat) HandleKeyEvent(keycode uint32, pressed bool, mods Modifiers, shortcuts *ShortcutTable, forward func(target FocusTarget, keycode uint32, pressed bool, mods Modifiers)) {
	s.NotifyActivity()
	s.Keyboard.Mods = mods

	if top := s.grabs.Top(); top != nil {
		if top.HandleKey(keycode, pressed) {
			return
		}
	}

	if pressed && shortcuts != nil && shortcuts.Dispatch(depressedMask(mods), keycode) {
		return
	}

	if forward != nil {
		forward(s.Keyboard.Focus, keycode, pressed, mods)
	}
}

func depressedMask(m Modifiers) uint32 { return m.Depressed | m.Latched | m.Locked }
