package scene

import "testing"

func TestRegionAddDropsEmptyRects(t *testing.T) {
	r := NewRegion(4)
	r.Add(Rect{W: 0, H: 10})
	r.Add(Rect{W: 10, H: 10})
	if len(r.Rects()) != 1 {
		t.Fatalf("expected empty rect to be dropped, got %d rects", len(r.Rects()))
	}
}

func TestRegionAddTransformed(t *testing.T) {
	r := NewRegion(4)
	r.AddTransformed(Rect{X: 1, Y: 1, W: 2, H: 2}, 10, 20, 2.0)
	got := r.Rects()[0]
	want := Rect{X: 12, Y: 22, W: 4, H: 4}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestRegionMerge(t *testing.T) {
	a := NewRegion(4)
	a.Add(Rect{W: 1, H: 1})
	b := NewRegion(4)
	b.Add(Rect{W: 2, H: 2})
	a.Merge(b)
	if len(a.Rects()) != 2 {
		t.Errorf("expected merged region to hold both rects, got %d", len(a.Rects()))
	}
}

func TestRegionClearKeepsBackingArray(t *testing.T) {
	r := NewRegion(4)
	r.Add(Rect{W: 1, H: 1})
	before := r.Rects()
	capBefore := cap(before)
	r.Clear()
	if !r.Empty() {
		t.Error("expected region to be empty after Clear")
	}
	r.Add(Rect{W: 5, H: 5})
	if cap(r.Rects()) != capBefore {
		t.Error("expected Clear to preserve the backing array's capacity")
	}
}

func TestRectIntersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 5, W: 10, H: 10}
	c := Rect{X: 20, Y: 20, W: 5, H: 5}
	if !a.Intersects(b) {
		t.Error("expected overlapping rects to intersect")
	}
	if a.Intersects(c) {
		t.Error("expected disjoint rects to not intersect")
	}
}
