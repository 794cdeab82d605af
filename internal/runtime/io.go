// Package runtime implements the single-threaded cooperative async
// runtime: a FIFO ready queue, a hierarchical timer wheel, and an
// io-uring-backed submission/completion loop, generalizing the
// teacher's "submit a ublk command, wait for its completion" ring
// discipline (internal/uring/) into "submit a generic event-loop
// operation (read, write, timeout, eventfd wait), wake the task whose
// completion it was."
package runtime

import "errors"

// ErrQueueFull mirrors the teacher's ErrRingFull: the io backend's
// submission queue has no room for another operation this tick.
var ErrQueueFull = errors.New("runtime: io submission queue full")

// OpKind distinguishes the operations the runtime submits to its io
// backend. Unlike the teacher's single URING_CMD opcode (ublk control
// commands only), the compositor's event loop needs a handful of
// generic io_uring opcodes.
type OpKind int

const (
	OpRead OpKind = iota
	OpWrite
	OpTimeout
	OpPollAdd // wait for fd readability/writability without consuming data
)

// Completion is one io_uring completion, carrying back whatever
// UserData the submission was tagged with (the runtime uses this to
// look up the waiting task).
type Completion struct {
	UserData uint64
	Result   int32
	Err      error
}

// IOBackend is the narrow capability the runtime needs from an
// io_uring ring: submit operations, and wait for their completions.
// Two implementations exist, selected by build tag exactly as the
// teacher selects NewRealRing vs NewMinimalRing: a real
// pawelgaczynski/giouring-backed ring (tag "giouring"), and a pure-Go
// fallback issuing raw io_uring_setup/io_uring_enter syscalls.
type IOBackend interface {
	// Submit enqueues an operation; fd/offset/buf are interpreted
	// per kind (buf unused for OpTimeout, offset unused for OpPollAdd).
	// Returns ErrQueueFull if the submission queue has no free slot.
	Submit(kind OpKind, fd int, buf []byte, offset uint64, userData uint64) error

	// Flush submits every queued operation to the kernel in one
	// io_uring_enter call, returning the number submitted.
	Flush() (uint32, error)

	// Wait blocks up to timeout for at least one completion (a
	// negative timeout blocks indefinitely; zero polls without
	// blocking), returning whatever completions are ready.
	Wait(timeoutNs int64) ([]Completion, error)

	Close() error
}

// NewIOBackend creates the production IOBackend: NewRealIOBackend when
// built with -tags giouring, NewMinimalIOBackend otherwise.
func NewIOBackend(entries uint32) (IOBackend, error) {
	return newIOBackend(entries)
}
