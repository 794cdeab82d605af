package scene

import (
	"sync/atomic"

	"github.com/waylens/waylens/internal/interfaces"
)

// Buffer is a client-submitted pixel buffer attached to a surface. It
// is reference counted the way the teacher counts outstanding
// metrics.go atomic counters: a plain int64 bumped/dropped with
// sync/atomic, no mutex needed since only Acquire/Release ever touch
// it.
type Buffer struct {
	fb       interfaces.Framebuffer
	refcount atomic.Int64
	sync     interfaces.SyncPoint
	released atomic.Bool
}

// NewBuffer wraps an imported framebuffer with an initial refcount of
// one (the surface holding it as "current").
func NewBuffer(fb interfaces.Framebuffer) *Buffer {
	b := &Buffer{fb: fb}
	b.refcount.Store(1)
	return b
}

// Acquire increments the buffer's reference count, called when a
// subsurface or the scheduler retains a pointer into it across a tick.
func (b *Buffer) Acquire() {
	b.refcount.Add(1)
}

// Release drops one reference; when the count reaches zero the
// underlying framebuffer is released back to the render backend
// exactly once.
func (b *Buffer) Release() {
	if b.refcount.Add(-1) == 0 {
		if b.released.CompareAndSwap(false, true) {
			b.fb.Release()
		}
	}
}

// Framebuffer returns the wrapped framebuffer handle.
func (b *Buffer) Framebuffer() interfaces.Framebuffer { return b.fb }

// SetReleaseSyncPoint records the sync point that fires when this
// buffer's GPU reads have completed, so the scheduler's presentation
// callback knows when it's safe to tell the client the buffer is free.
func (b *Buffer) SetReleaseSyncPoint(sp interfaces.SyncPoint) {
	b.sync = sp
}

// ReleaseSyncPoint returns the currently recorded release sync point.
func (b *Buffer) ReleaseSyncPoint() interfaces.SyncPoint {
	return b.sync
}
