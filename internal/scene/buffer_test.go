package scene

import (
	"testing"

	"github.com/waylens/waylens/internal/interfaces"
)

func TestBufferReleaseOnLastReference(t *testing.T) {
	fb := &fakeFramebuffer{}
	b := NewBuffer(fb)
	b.Acquire()

	b.Release()
	if fb.released {
		t.Fatal("expected framebuffer to stay alive while a reference remains")
	}
	b.Release()
	if !fb.released {
		t.Fatal("expected framebuffer to be released once the last reference drops")
	}
}

func TestBufferReleaseIsIdempotent(t *testing.T) {
	fb := &fakeFramebuffer{}
	b := NewBuffer(fb)
	b.Release()
	b.refcount.Store(1) // simulate a second drop-to-zero observation
	b.Release()
	// Release must only call fb.Release() once regardless; no panic, no
	// double-free semantics to check against since fakeFramebuffer.Release
	// is idempotent by construction, but the CompareAndSwap guard is what
	// we're exercising here.
	if !fb.released {
		t.Fatal("expected framebuffer released")
	}
}

func TestBufferSyncPointRoundTrip(t *testing.T) {
	b := NewBuffer(&fakeFramebuffer{})
	sp := interfaces.SyncPoint{Timeline: 7, Point: 3}
	b.SetReleaseSyncPoint(sp)
	if b.ReleaseSyncPoint() != sp {
		t.Errorf("expected sync point round trip, got %+v", b.ReleaseSyncPoint())
	}
}
