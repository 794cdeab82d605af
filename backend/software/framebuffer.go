// Package software provides an in-memory render back-end implementing
// internal/interfaces.RenderBackend/RenderContext, used by tests and by
// any deployment with no GPU path available. It has no relation to a
// real DRM/GBM back-end beyond satisfying the same narrow capability
// interface the compositor core depends on.
package software

import (
	"sync"

	"github.com/waylens/waylens/internal/interfaces"
)

// shardSize is the size in bytes of each locked region of a
// Framebuffer's pixel storage, the same sharded-locking idiom used for
// the reference in-memory block storage elsewhere in this tree: wide
// enough to keep per-shard lock overhead low, narrow enough that
// concurrent writers to disjoint screen regions don't serialize on one
// mutex.
const shardSize = 64 * 1024

// bytesPerPixel assumes XRGB8888/ARGB8888, the only format the
// software path claims to support.
const bytesPerPixel = 4

// Framebuffer is an in-memory pixel buffer sharded the same way the
// reference RAM-backed storage shards a block device: one RWMutex per
// 64KB region so concurrent damage submission to disjoint rows doesn't
// serialize on a single lock.
type Framebuffer struct {
	width, height int
	pixels        []byte
	shards        []sync.RWMutex

	mu        sync.Mutex
	released  bool
	onRelease func(*Framebuffer)
}

func newFramebuffer(width, height int, onRelease func(*Framebuffer)) *Framebuffer {
	size := width * height * bytesPerPixel
	numShards := (size + shardSize - 1) / shardSize
	if numShards == 0 {
		numShards = 1
	}
	return &Framebuffer{
		width:     width,
		height:    height,
		pixels:    make([]byte, size),
		shards:    make([]sync.RWMutex, numShards),
		onRelease: onRelease,
	}
}

func (f *Framebuffer) Width() int  { return f.width }
func (f *Framebuffer) Height() int { return f.height }

// Release returns the framebuffer to its owning context's pool rather
// than freeing it, so repeated AcquireFB calls for the same output
// size reuse storage instead of churning allocations every frame.
func (f *Framebuffer) Release() {
	f.mu.Lock()
	if f.released {
		f.mu.Unlock()
		return
	}
	f.released = true
	f.mu.Unlock()

	if f.onRelease != nil {
		f.onRelease(f)
	}
}

func (f *Framebuffer) shardRange(x, y, w, h int) (start, end int) {
	if w <= 0 || h <= 0 {
		return 0, -1
	}
	first := (y*f.width + x) * bytesPerPixel
	last := ((y+h-1)*f.width + (x + w - 1)) * bytesPerPixel
	start = first / shardSize
	end = last / shardSize
	if end >= len(f.shards) {
		end = len(f.shards) - 1
	}
	if start < 0 {
		start = 0
	}
	return start, end
}

// clampRect intersects rect with the framebuffer's bounds.
func (f *Framebuffer) clampRect(rect interfaces.Rect) (x, y, w, h int) {
	x, y, w, h = rect.X, rect.Y, rect.W, rect.H
	if x < 0 {
		w += x
		x = 0
	}
	if y < 0 {
		h += y
		y = 0
	}
	if x+w > f.width {
		w = f.width - x
	}
	if y+h > f.height {
		h = f.height - y
	}
	return x, y, w, h
}

// touchRect briefly locks every shard covering rect, modeling the
// scanout engine's exclusive access to a damaged region while a frame
// is being submitted. The renderer is expected to have already written
// pixel data into the framebuffer directly; this method exists so
// SubmitFrame has something concrete to synchronize on per damage
// rect rather than a single whole-buffer lock.
func (f *Framebuffer) touchRect(rect interfaces.Rect) {
	x, y, w, h := f.clampRect(rect)
	start, end := f.shardRange(x, y, w, h)
	for i := start; i <= end; i++ {
		f.shards[i].Lock()
		f.shards[i].Unlock()
	}
}

// Pixels exposes the raw XRGB8888 pixel storage for tests and for a
// renderer that wants to write directly into it.
func (f *Framebuffer) Pixels() []byte { return f.pixels }
