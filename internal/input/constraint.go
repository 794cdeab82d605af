package input

// ConstraintKind distinguishes the two pointer constraint types.
type ConstraintKind int

const (
	// ConstraintLocked pins the cursor at a fixed point; motion events
	// still arrive (as unaccelerated deltas) but the visible cursor
	// position doesn't change.
	ConstraintLocked ConstraintKind = iota
	// ConstraintConfined clips cursor motion to a region; the cursor
	// moves freely within it.
	ConstraintConfined
)

// Constraint is a pointer constraint installed by a client, in force
// only while its Surface has pointer focus (checked by the caller
// before honoring LockedX/LockedY or Region).
type Constraint struct {
	Kind    ConstraintKind
	Surface FocusTarget

	LockedX, LockedY float64 // ConstraintLocked: the pinned point
	Region           []ConstraintRect // ConstraintConfined: allowed area
}

// ConstraintRect is one rectangle of a confinement region, in
// surface-local coordinates.
type ConstraintRect struct {
	X, Y, W, H float64
}

// Clamp applies the constraint to a proposed motion target, returning
// the actual position the pointer should end up at. For a locked
// constraint this is always the pinned point; for confined, motion
// outside every rectangle is clipped to the nearest edge of the
// rectangle the prior position was in.
func (c *Constraint) Clamp(prevX, prevY, targetX, targetY float64) (x, y float64) {
	if c == nil {
		return targetX, targetY
	}
	switch c.Kind {
	case ConstraintLocked:
		return c.LockedX, c.LockedY
	case ConstraintConfined:
		for _, r := range c.Region {
			if within(r, targetX, targetY) {
				return targetX, targetY
			}
		}
		// Outside every rectangle: clip to the rectangle containing the
		// previous position, if any; otherwise hold still.
		for _, r := range c.Region {
			if within(r, prevX, prevY) {
				return clip(r, targetX, targetY)
			}
		}
		return prevX, prevY
	default:
		return targetX, targetY
	}
}

func within(r ConstraintRect, x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

func clip(r ConstraintRect, x, y float64) (float64, float64) {
	if x < r.X {
		x = r.X
	}
	if x > r.X+r.W {
		x = r.X + r.W
	}
	if y < r.Y {
		y = r.Y
	}
	if y > r.Y+r.H {
		y = r.Y + r.H
	}
	return x, y
}

// ActiveFor reports whether c is currently enforced for target, i.e. c
// is non-nil and target currently has pointer focus.
func (c *Constraint) ActiveFor(currentPointerFocus FocusTarget) bool {
	return c != nil && c.Surface == currentPointerFocus
}
