package wire

import (
	"sync"

	"github.com/waylens/waylens/internal/constants"
)

// InputRing is the fixed-size byte-and-fd ring the reader fills from the
// socket and the decoder drains from. A read that doesn't yet contain a
// full message (plus its fds) leaves the ring untouched so the caller
// can suspend until more data arrives, matching §4.2's reader-suspends
// semantics.
type InputRing struct {
	mu   sync.Mutex
	buf  []byte
	fds  []int
	size int // bytes currently held
}

// NewInputRing allocates an input ring with the given data and fd
// capacities, defaulting to the wire protocol's standard sizes.
func NewInputRing(dataCap, fdCap int) *InputRing {
	if dataCap <= 0 {
		dataCap = constants.DefaultInputBufferSize
	}
	if fdCap <= 0 {
		fdCap = constants.DefaultInputMaxFds
	}
	return &InputRing{
		buf: make([]byte, 0, dataCap),
		fds: make([]int, 0, fdCap),
	}
}

// Fill appends freshly read bytes and any fds received alongside them.
// It returns ErrRingFull if the ring has no room left.
func (r *InputRing) Fill(data []byte, fds []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf)+len(data) > cap(r.buf) {
		return ErrRingFull
	}
	if len(r.fds)+len(fds) > cap(r.fds) {
		return ErrRingFull
	}
	r.buf = append(r.buf, data...)
	r.fds = append(r.fds, fds...)
	return nil
}

// PeekHeader reports whether a full 8-byte header is available and, if
// so, decodes it without consuming anything.
func (r *InputRing) PeekHeader() (Header, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) < constants.MessageHeaderSize {
		return Header{}, false
	}
	return DecodeHeader(r.buf[:constants.MessageHeaderSize]), true
}

// TakeMessage consumes one message of the given total size (header +
// payload) and nFds file descriptors, if that much data is available.
// It returns ok=false if the ring doesn't yet hold a complete message,
// which the caller treats as "suspend until more data arrives."
func (r *InputRing) TakeMessage(size uint16, nFds int) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buf) < int(size) || len(r.fds) < nFds {
		return Message{}, false
	}

	hdr := DecodeHeader(r.buf[:constants.MessageHeaderSize])
	payload := make([]byte, int(size)-constants.MessageHeaderSize)
	copy(payload, r.buf[constants.MessageHeaderSize:size])

	var fds []int
	if nFds > 0 {
		fds = make([]int, nFds)
		copy(fds, r.fds[:nFds])
		r.fds = r.fds[:copy(r.fds, r.fds[nFds:])]
	}

	// Shift the remainder to the front so the ring keeps its full
	// capacity for later Fill calls.
	r.buf = r.buf[:copy(r.buf, r.buf[size:])]
	return Message{Header: hdr, Payload: payload, Fds: fds}, true
}

// Len reports the bytes currently buffered, for backlog diagnostics.
func (r *InputRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// OutputSwapchain is a pair of ring buffers for outbound events: the
// front buffer accumulates newly enqueued events while the back buffer
// drains to the socket. When the writer finishes draining the back
// buffer, the two swap. If the front buffer fills before a swap can
// happen, Enqueue reports ErrRingFull and the caller (the client
// connection) escalates to a slow-client disconnect once this condition
// persists past the grace period.
type OutputSwapchain struct {
	mu       sync.Mutex
	front    []byte
	back     []byte
	capacity int
}

// NewOutputSwapchain allocates a swapchain with the given per-buffer
// capacity (the watermark at which a connection is considered slow).
func NewOutputSwapchain(capacity int) *OutputSwapchain {
	if capacity <= 0 {
		capacity = constants.DefaultOutboundWatermark
	}
	return &OutputSwapchain{
		front:    make([]byte, 0, capacity),
		back:     make([]byte, 0, capacity),
		capacity: capacity,
	}
}

// Enqueue appends an encoded event to the front buffer.
func (s *OutputSwapchain) Enqueue(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.front)+len(data) > s.capacity {
		return ErrRingFull
	}
	s.front = append(s.front, data...)
	return nil
}

// Swap exchanges front and back, returning the (now-former-front) bytes
// ready to be written to the socket, and resets the new front to empty.
func (s *OutputSwapchain) Swap() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.front, s.back = s.back, s.front
	drain := s.back
	s.back = s.back[:0]
	return drain
}

// Backlog reports the combined byte count across both buffers, used by
// the connection's slow-client watchdog against the watermark.
func (s *OutputSwapchain) Backlog() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.front) + len(s.back)
}
