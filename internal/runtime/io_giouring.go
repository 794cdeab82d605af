//go:build giouring

package runtime

import (
	"fmt"
	"syscall"

	"github.com/pawelgaczynski/giouring"
)

// realIOBackend wraps a pawelgaczynski/giouring ring, the real
// io_uring path the teacher selects via the same "giouring" build tag
// for its own control-command ring.
type realIOBackend struct {
	ring *giouring.Ring
}

func newIOBackend(entries uint32) (IOBackend, error) {
	ring, err := giouring.CreateRing(entries)
	if err != nil {
		return nil, fmt.Errorf("runtime: create io_uring ring: %w", err)
	}
	return &realIOBackend{ring: ring}, nil
}

func (r *realIOBackend) Submit(kind OpKind, fd int, buf []byte, offset uint64, userData uint64) error {
	sqe := r.ring.GetSQE()
	if sqe == nil {
		return ErrQueueFull
	}
	switch kind {
	case OpRead:
		sqe.PrepRead(int32(fd), buf, offset)
	case OpWrite:
		sqe.PrepWrite(int32(fd), buf, offset)
	case OpTimeout:
		ts := syscall.NsecToTimespec(int64(offset))
		sqe.PrepTimeout(&ts, 0, 0)
	case OpPollAdd:
		sqe.PrepPollAdd(int32(fd), unixPollIn)
	}
	sqe.UserData = userData
	return nil
}

func (r *realIOBackend) Flush() (uint32, error) {
	n, err := r.ring.Submit()
	if err != nil {
		return 0, fmt.Errorf("runtime: io_uring submit: %w", err)
	}
	return uint32(n), nil
}

func (r *realIOBackend) Wait(timeoutNs int64) ([]Completion, error) {
	var cqe *giouring.CompletionQueueEntry
	var err error
	if timeoutNs < 0 {
		cqe, err = r.ring.WaitCQE()
	} else {
		ts := syscall.NsecToTimespec(timeoutNs)
		cqe, err = r.ring.WaitCQETimeout(&ts)
	}
	if err != nil {
		return nil, fmt.Errorf("runtime: io_uring wait: %w", err)
	}
	if cqe == nil {
		return nil, nil
	}
	out := []Completion{{UserData: cqe.UserData, Result: cqe.Res}}
	r.ring.CQESeen(cqe)
	return out, nil
}

func (r *realIOBackend) Close() error {
	r.ring.QueueExit()
	return nil
}

const unixPollIn = 0x0001 // POLLIN
