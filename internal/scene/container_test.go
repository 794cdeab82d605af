package scene

import "testing"

func TestSplitContainerLayoutDividesSpaceEqually(t *testing.T) {
	c := NewSplitContainer(OrientationHorizontal)
	a := NewToplevel(NewSurface())
	b := NewToplevel(NewSurface())
	c.AddChild(a)
	c.AddChild(b)

	c.Layout(Rect{X: 0, Y: 0, W: 200, H: 100})

	ax, _, aw, _ := a.FloatGeometry()
	bx, _, bw, _ := b.FloatGeometry()
	if aw != 99 && aw != 100 {
		t.Errorf("expected first child ~half width, got %d", aw)
	}
	if ax != 0 {
		t.Errorf("expected first child at x=0, got %d", ax)
	}
	if bx <= ax {
		t.Errorf("expected second child positioned after first, got bx=%d ax=%d", bx, ax)
	}
	_ = bw
}

func TestMonoContainerOnlyOneActiveButAllPresent(t *testing.T) {
	c := NewMonoContainer()
	a := NewToplevel(NewSurface())
	b := NewToplevel(NewSurface())
	c.AddChild(a)
	c.AddChild(b)
	c.SetActive(1)

	if c.Active() != 1 {
		t.Errorf("expected active index 1, got %d", c.Active())
	}
	if len(c.Children()) != 2 {
		t.Errorf("expected both children present in a mono container, got %d", len(c.Children()))
	}
}

func TestContainerNavigateHorizontal(t *testing.T) {
	c := NewSplitContainer(OrientationHorizontal)
	a := NewToplevel(NewSurface())
	b := NewToplevel(NewSurface())
	c.AddChild(a)
	c.AddChild(b)

	if got := c.Navigate(a, DirRight); got != Node(b) {
		t.Error("expected Navigate right from a to reach b")
	}
	if got := c.Navigate(b, DirLeft); got != Node(a) {
		t.Error("expected Navigate left from b to reach a")
	}
	if got := c.Navigate(a, DirLeft); got != nil {
		t.Error("expected Navigate left from leftmost child to return nil")
	}
	if got := c.Navigate(a, DirUp); got != nil {
		t.Error("expected Navigate on the wrong axis to return nil for a horizontal split")
	}
}

func TestContainerRemoveChildRebalances(t *testing.T) {
	c := NewSplitContainer(OrientationHorizontal)
	a := NewToplevel(NewSurface())
	b := NewToplevel(NewSurface())
	c.AddChild(a)
	c.AddChild(b)
	c.RemoveChild(a)

	if len(c.Children()) != 1 {
		t.Fatalf("expected 1 child after removal, got %d", len(c.Children()))
	}
	if c.factors[0] != 1.0 {
		t.Errorf("expected sole remaining child to get full share, got %v", c.factors[0])
	}
}

func TestPropagateVisibleDepthFirst(t *testing.T) {
	root := NewMonoContainer()
	child := NewMonoContainer()
	leaf := NewToplevel(NewSurface())
	child.AddChild(leaf)
	root.AddChild(child)

	PropagateVisible(root, true)

	if !root.Visible() || !child.Visible() || !leaf.Visible() {
		t.Error("expected visibility to propagate to every descendant")
	}

	PropagateVisible(root, false)
	if leaf.Visible() {
		t.Error("expected visibility-off to propagate to every descendant")
	}
}
