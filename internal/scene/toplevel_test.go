package scene

import "testing"

func TestToplevelConsumeJustMappedFiresOnce(t *testing.T) {
	tl := NewToplevel(NewSurface())
	if !tl.ConsumeJustMapped() {
		t.Fatal("expected a freshly mapped toplevel to report just-mapped once")
	}
	if tl.ConsumeJustMapped() {
		t.Error("expected ConsumeJustMapped to not fire twice")
	}
}

func TestToplevelToggleMaximize(t *testing.T) {
	tl := NewToplevel(NewSurface())
	tl.ToggleMaximize()
	if !tl.Maximized() {
		t.Fatal("expected toggle to maximize")
	}
	tl.ToggleMaximize()
	if tl.Maximized() {
		t.Error("expected toggle to un-maximize")
	}
}

func TestToplevelUrgent(t *testing.T) {
	tl := NewToplevel(NewSurface())
	tl.SetUrgent(true)
	if !tl.Urgent() {
		t.Fatal("expected urgent flag to be set")
	}
}

func TestToplevelFullscreenRestoresFloatingState(t *testing.T) {
	tl := NewToplevel(NewSurface())
	tl.SetFloating(true)
	tl.SetFloatGeometry(1, 2, 300, 400)

	tl.SetFullscreen(true)
	if !tl.Fullscreen() {
		t.Fatal("expected fullscreen to be set")
	}

	tl.SetFullscreen(false)
	if tl.Fullscreen() {
		t.Error("expected fullscreen to be cleared")
	}
	x, y, w, h := tl.FloatGeometry()
	if x != 1 || y != 2 || w != 300 || h != 400 {
		t.Errorf("expected restored geometry (1,2,300,400), got (%d,%d,%d,%d)", x, y, w, h)
	}
	if !tl.Floating() {
		t.Error("expected floating state to be restored")
	}
}
