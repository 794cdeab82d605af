package software

import (
	"fmt"
	"sync"

	"github.com/waylens/waylens/internal/interfaces"
)

// Backend is the software RenderBackend: every output gets its own
// Context, and every Context pools framebuffers by size so repeated
// AcquireFB calls for an unresized output reuse storage instead of
// allocating a fresh buffer every frame, mirroring the size-keyed reuse
// a real back-end gets almost for free from its swapchain.
type Backend struct{}

// New creates a software RenderBackend.
func New() *Backend { return &Backend{} }

func (b *Backend) CreateContext() (interfaces.RenderContext, error) {
	return &Context{pool: make(map[[2]int][]*Framebuffer)}, nil
}

// Context is one output's software render context.
type Context struct {
	mu     sync.Mutex
	pool   map[[2]int][]*Framebuffer
	closed bool

	frameCount uint64
	lastDamage []interfaces.Rect
}

// AcquireFB returns a framebuffer of the given size, reusing one from
// the pool if a same-sized buffer was previously Released.
func (c *Context) AcquireFB(width, height int) (interfaces.Framebuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("software: context closed")
	}

	key := [2]int{width, height}
	if bufs := c.pool[key]; len(bufs) > 0 {
		fb := bufs[len(bufs)-1]
		c.pool[key] = bufs[:len(bufs)-1]
		fb.mu.Lock()
		fb.released = false
		fb.mu.Unlock()
		return fb, nil
	}

	fb := newFramebuffer(width, height, c.release)
	return fb, nil
}

// ImportDMABUF has no real DMA-BUF path on the software back-end; it
// allocates a fresh framebuffer of the declared size, format ignored
// beyond dimension validation. Callers that need the imported content
// write it via Framebuffer.Pixels after import.
func (c *Context) ImportDMABUF(fd int, width, height int, format uint32) (interfaces.Framebuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("software: invalid dmabuf dimensions %dx%d", width, height)
	}
	return newFramebuffer(width, height, nil), nil
}

// SubmitFrame records the submitted damage for inspection by tests and
// briefly synchronizes on each damaged region's shards, standing in
// for the real back-end's scanout-engine handoff.
func (c *Context) SubmitFrame(fb interfaces.Framebuffer, damage []interfaces.Rect) error {
	sfb, ok := fb.(*Framebuffer)
	if !ok {
		return fmt.Errorf("software: foreign framebuffer type %T", fb)
	}
	for _, rect := range damage {
		sfb.touchRect(rect)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("software: context closed")
	}
	c.frameCount++
	c.lastDamage = append([]interfaces.Rect{}, damage...)
	return nil
}

// SignalSync is a no-op on the software path: there is no GPU fence,
// so the sync point is considered satisfied the instant it's signaled.
func (c *Context) SignalSync(point interfaces.SyncPoint) error { return nil }

func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.pool = nil
	return nil
}

// FrameCount reports how many frames SubmitFrame has accepted, for
// tests asserting the render pipeline actually reached the back-end.
func (c *Context) FrameCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameCount
}

// LastDamage returns the damage rects from the most recent SubmitFrame.
func (c *Context) LastDamage() []interfaces.Rect {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interfaces.Rect{}, c.lastDamage...)
}

func (c *Context) release(fb *Framebuffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	key := [2]int{fb.width, fb.height}
	c.pool[key] = append(c.pool[key], fb)
}

var (
	_ interfaces.RenderBackend = (*Backend)(nil)
	_ interfaces.RenderContext = (*Context)(nil)
	_ interfaces.Framebuffer   = (*Framebuffer)(nil)
)
