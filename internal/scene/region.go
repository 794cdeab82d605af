package scene

import "math"

// Rect is an axis-aligned rectangle in some coordinate space (surface-
// local, buffer, or output); which space is always implied by context.
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rectangle covers no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Translate returns r shifted by (dx, dy).
func (r Rect) Translate(dx, dy int) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Scale returns r scaled by factor, rounding outward so damage is never
// under-reported.
func (r Rect) Scale(factor float64) Rect {
	x0 := int(math.Floor(float64(r.X) * factor))
	y0 := int(math.Floor(float64(r.Y) * factor))
	x1 := int(math.Ceil(float64(r.X+r.W) * factor))
	y1 := int(math.Ceil(float64(r.Y+r.H) * factor))
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Intersects reports whether r and o overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Region is an unordered set of damage rectangles. It does not merge
// overlapping rectangles eagerly (the cost of doing so per-commit
// outweighs the benefit at typical damage counts); a renderer
// consuming the region is expected to tolerate overlap.
type Region struct {
	rects []Rect
}

// NewRegion returns an empty region sized for roughly capHint commits
// worth of rectangles before it needs to grow.
func NewRegion(capHint int) *Region {
	return &Region{rects: getRectSlice(capHint)}
}

// Add appends a damage rectangle to the region, dropping empty ones.
func (rg *Region) Add(r Rect) {
	if r.Empty() {
		return
	}
	rg.rects = append(rg.rects, r)
}

// AddTransformed adds r after translating by (dx, dy) and scaling by
// factor, the surface-local -> buffer -> output pipeline described in
// §4.5.
func (rg *Region) AddTransformed(r Rect, dx, dy int, factor float64) {
	rg.Add(r.Scale(factor).Translate(dx, dy))
}

// Merge appends all of other's rectangles into rg, used when
// aggregating a subsurface's damage into its parent's.
func (rg *Region) Merge(other *Region) {
	if other == nil {
		return
	}
	rg.rects = append(rg.rects, other.rects...)
}

// Rects returns the region's rectangles. The caller must not retain the
// slice past the next Clear.
func (rg *Region) Rects() []Rect { return rg.rects }

// Empty reports whether the region carries no damage.
func (rg *Region) Empty() bool { return len(rg.rects) == 0 }

// Clear empties the region for reuse on the next commit, keeping its
// backing array (the scheduler drains and clears per-output damage
// every tick, so this is the hot path).
func (rg *Region) Clear() {
	rg.rects = rg.rects[:0]
}

// Release returns the region's backing slice to the shared pool. Call
// this only when the region itself is being destroyed (surface or
// output teardown), not on the per-tick clear.
func (rg *Region) Release() {
	putRectSlice(rg.rects)
	rg.rects = nil
}
