package sched

import (
	"testing"
	"time"

	"github.com/waylens/waylens/internal/interfaces"
	"github.com/waylens/waylens/internal/scene"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

type fakeFramebuffer struct{ w, h int }

func (f *fakeFramebuffer) Width() int  { return f.w }
func (f *fakeFramebuffer) Height() int { return f.h }
func (f *fakeFramebuffer) Release()    {}

type fakeRenderContext struct {
	submitted  [][]interfaces.Rect
	acquireErr error
	submitErr  error
}

func (r *fakeRenderContext) ImportDMABUF(fd int, width, height int, format uint32) (interfaces.Framebuffer, error) {
	return &fakeFramebuffer{w: width, h: height}, nil
}

func (r *fakeRenderContext) AcquireFB(width, height int) (interfaces.Framebuffer, error) {
	if r.acquireErr != nil {
		return nil, r.acquireErr
	}
	return &fakeFramebuffer{w: width, h: height}, nil
}

func (r *fakeRenderContext) SubmitFrame(fb interfaces.Framebuffer, damage []interfaces.Rect) error {
	if r.submitErr != nil {
		return r.submitErr
	}
	r.submitted = append(r.submitted, damage)
	return nil
}

func (r *fakeRenderContext) SignalSync(point interfaces.SyncPoint) error { return nil }
func (r *fakeRenderContext) Close() error                                { return nil }

type fakeSurfaceSource struct {
	surfaces []*scene.Surface
}

func (f *fakeSurfaceSource) VisibleSurfaces() []*scene.Surface { return f.surfaces }

func damagedSurface() *scene.Surface {
	s := scene.NewSurface()
	s.Pending().Damage = scene.NewRegion(1)
	s.Pending().Damage.Add(scene.Rect{X: 0, Y: 0, W: 10, H: 10})
	s.Commit(true, true)
	return s
}

func TestOutputSchedulerStartsIdle(t *testing.T) {
	sched := NewOutputScheduler(Config{
		Name:   "eDP-1",
		Output: &fakeSurfaceSource{},
		Render: &fakeRenderContext{},
		Clock:  &fakeClock{t: time.Unix(0, 0)},
	})
	if sched.State() != StateIdle {
		t.Fatalf("expected initial state idle, got %v", sched.State())
	}
}

func TestMarkDamagedTransitionsIdleToScheduled(t *testing.T) {
	sched := NewOutputScheduler(Config{
		Name:   "eDP-1",
		Output: &fakeSurfaceSource{},
		Render: &fakeRenderContext{},
		Clock:  &fakeClock{t: time.Unix(0, 0)},
	})
	sched.MarkDamaged()
	if sched.State() != StateScheduled {
		t.Fatalf("expected scheduled after damage, got %v", sched.State())
	}
}

func TestMarkDamagedIsNoOpWhileNotIdle(t *testing.T) {
	sched := NewOutputScheduler(Config{
		Name:   "eDP-1",
		Output: &fakeSurfaceSource{},
		Render: &fakeRenderContext{},
		Clock:  &fakeClock{t: time.Unix(0, 0)},
	})
	sched.state.Store(int32(StateRendering))
	sched.MarkDamaged()
	if sched.State() != StateRendering {
		t.Fatalf("expected MarkDamaged to leave a non-idle state untouched, got %v", sched.State())
	}
}

func TestTickRendersAndWaitsForVblank(t *testing.T) {
	render := &fakeRenderContext{}
	surf := damagedSurface()
	sched := NewOutputScheduler(Config{
		Name:   "eDP-1",
		Output: &fakeSurfaceSource{surfaces: []*scene.Surface{surf}},
		Render: render,
		Clock:  &fakeClock{t: time.Unix(0, 0)},
	})
	sched.MarkDamaged()

	if !sched.Tick() {
		t.Fatal("expected Tick to submit a frame")
	}
	if sched.State() != StateWaitingVblank {
		t.Fatalf("expected waiting-vblank after submit, got %v", sched.State())
	}
	if len(render.submitted) != 1 {
		t.Fatalf("expected one frame submitted, got %d", len(render.submitted))
	}
	if len(render.submitted[0]) != 1 {
		t.Fatalf("expected the surface's one damage rect to be collected, got %d", len(render.submitted[0]))
	}
}

func TestVblankCompletesPresentationAndFiresCallbacks(t *testing.T) {
	render := &fakeRenderContext{}
	surf := scene.NewSurface()
	var fired bool
	surf.Pending().FrameCallbacks = append(surf.Pending().FrameCallbacks, func(sec, nsec uint32) { fired = true })
	surf.Commit(true, true)

	sched := NewOutputScheduler(Config{
		Name:   "eDP-1",
		Output: &fakeSurfaceSource{surfaces: []*scene.Surface{surf}},
		Render: render,
		Clock:  &fakeClock{t: time.Unix(100, 0)},
	})
	var feedback PresentedFeedback
	sched.OnPresented(func(f PresentedFeedback) { feedback = f })

	sched.MarkDamaged()
	sched.Tick()
	sched.Vblank()

	if sched.State() != StateIdle {
		t.Fatalf("expected idle after presentation completes, got %v", sched.State())
	}
	if !fired {
		t.Error("expected the surface's frame callback to fire on presentation")
	}
	if feedback.Seq != 1 {
		t.Errorf("expected first presentation to carry seq 1, got %d", feedback.Seq)
	}
}

func TestTearingAlwaysSkipsVblankWait(t *testing.T) {
	render := &fakeRenderContext{}
	sched := NewOutputScheduler(Config{
		Name:    "eDP-1",
		Output:  &fakeSurfaceSource{},
		Render:  render,
		Tearing: TearingAlways,
		Clock:   &fakeClock{t: time.Unix(0, 0)},
	})
	sched.MarkDamaged()
	sched.Tick()
	if sched.State() != StateIdle {
		t.Fatalf("expected tearing mode to complete presentation immediately, got %v", sched.State())
	}
}

func TestRenderFailureReturnsToIdle(t *testing.T) {
	render := &fakeRenderContext{acquireErr: errBoom}
	sched := NewOutputScheduler(Config{
		Name:   "eDP-1",
		Output: &fakeSurfaceSource{},
		Render: render,
		Clock:  &fakeClock{t: time.Unix(0, 0)},
	})
	sched.MarkDamaged()
	if sched.Tick() {
		t.Fatal("expected Tick to report no frame submitted on acquire failure")
	}
	if sched.State() != StateIdle {
		t.Fatalf("expected failed render to fall back to idle, got %v", sched.State())
	}
}

var errBoom = &boomError{}

type boomError struct{}

func (*boomError) Error() string { return "boom" }
