//go:build !giouring

package runtime

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Pure-Go raw io_uring_setup/io_uring_enter fallback, ported from the
// teacher's internal/uring/minimal.go and generalized from "submit one
// URING_CMD, wait for its one completion" to "submit a batch of
// read/write/timeout/poll SQEs, drain whatever CQEs are ready."

const (
	ioringOpRead     = 22
	ioringOpWrite    = 23
	ioringOpTimeout  = 11
	ioringOpPollAdd  = 6
	ioringEnterGetevents = 1 << 0
)

type sqe struct {
	opcode      uint8
	flags       uint8
	ioprio      uint16
	fd          int32
	off         uint64
	addr        uint64
	len         uint32
	opcodeFlags uint32
	userData    uint64
	bufIndex    uint16
	personality uint16
	spliceOff   int32
	addr3       uint64
	_           uint64
}

type cqe struct {
	userData uint64
	res      int32
	flags    uint32
}

type ringParams struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCpu  uint32
	sqThreadIdle uint32
	features     uint32
	wqFd         uint32
	resv         [3]uint32
	sqOff        ringOffsets
	cqOff        ringOffsets
}

type ringOffsets struct {
	head, tail, ringMask, ringEntries, flags, dropped, array, resv1 uint32
	userAddr                                                        uint64
}

type minimalIOBackend struct {
	mu     sync.Mutex
	fd     int
	params ringParams
	sqMem  []byte
	cqMem  []byte
	queued []sqe // prepared but not yet flushed to the kernel
}

func newIOBackend(entries uint32) (IOBackend, error) {
	params := ringParams{sqEntries: entries, cqEntries: entries * 2}

	ringFD, _, errno := syscall.Syscall(unix.SYS_IO_URING_SETUP, uintptr(entries), uintptr(unsafe.Pointer(&params)), 0)
	if errno != 0 {
		return nil, fmt.Errorf("runtime: io_uring_setup: %v", errno)
	}

	sqSize := params.sqOff.array + params.sqEntries*4
	cqSize := params.cqOff.cqesOffset() + params.cqEntries*uint32(unsafe.Sizeof(cqe{}))

	sqMem, err := unix.Mmap(int(ringFD), 0, int(sqSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		syscall.Close(int(ringFD))
		return nil, fmt.Errorf("runtime: mmap sq ring: %w", err)
	}
	cqMem, err := unix.Mmap(int(ringFD), 0x8000000, int(cqSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Munmap(sqMem)
		syscall.Close(int(ringFD))
		return nil, fmt.Errorf("runtime: mmap cq ring: %w", err)
	}

	return &minimalIOBackend{fd: int(ringFD), params: params, sqMem: sqMem, cqMem: cqMem}, nil
}

// cqesOffset is a field accessor kept separate from the struct literal
// above since ringOffsets.array is reused by both rings but the CQE
// array offset has no equivalent name in sqOff.
func (o ringOffsets) cqesOffset() uint32 { return o.array }

func (b *minimalIOBackend) Submit(kind OpKind, fd int, buf []byte, offset uint64, userData uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if uint32(len(b.queued)) >= b.params.sqEntries {
		return ErrQueueFull
	}
	s := sqe{fd: int32(fd), off: offset, userData: userData}
	switch kind {
	case OpRead:
		s.opcode = ioringOpRead
		if len(buf) > 0 {
			s.addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
			s.len = uint32(len(buf))
		}
	case OpWrite:
		s.opcode = ioringOpWrite
		if len(buf) > 0 {
			s.addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
			s.len = uint32(len(buf))
		}
	case OpTimeout:
		s.opcode = ioringOpTimeout
	case OpPollAdd:
		s.opcode = ioringOpPollAdd
		s.opcodeFlags = 0x0001 // POLLIN
	}
	b.queued = append(b.queued, s)
	return nil
}

func (b *minimalIOBackend) Flush() (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queued) == 0 {
		return 0, nil
	}

	sqHead := (*uint32)(unsafe.Add(unsafe.Pointer(&b.sqMem[0]), b.params.sqOff.head))
	sqTail := (*uint32)(unsafe.Add(unsafe.Pointer(&b.sqMem[0]), b.params.sqOff.tail))
	sqMask := b.params.sqEntries - 1
	sqArrayBase := unsafe.Add(unsafe.Pointer(&b.sqMem[0]), b.params.sqOff.array)

	n := uint32(0)
	for _, entry := range b.queued {
		if (*sqTail - *sqHead) >= b.params.sqEntries {
			break
		}
		idx := *sqTail & sqMask
		slot := unsafe.Add(unsafe.Pointer(&b.sqMem[0]), uintptr(unsafe.Sizeof(sqe{}))*uintptr(idx))
		*(*sqe)(slot) = entry
		*(*uint32)(unsafe.Add(sqArrayBase, uintptr(4*idx))) = idx
		*sqTail++
		n++
	}
	b.queued = b.queued[:0]

	submitted, _, errno := syscall.Syscall6(unix.SYS_IO_URING_ENTER, uintptr(b.fd), uintptr(n), 0, 0, 0, 0)
	if errno != 0 {
		return 0, fmt.Errorf("runtime: io_uring_enter submit: %v", errno)
	}
	return uint32(submitted), nil
}

// Wait uses timeoutNs only to choose between polling and blocking: zero
// polls, and any other value, positive or negative, blocks until at
// least one completion arrives, with no time limit.
func (b *minimalIOBackend) Wait(timeoutNs int64) ([]Completion, error) {
	minComplete := uint32(0)
	if timeoutNs != 0 {
		minComplete = 1
	}
	_, _, errno := syscall.Syscall6(unix.SYS_IO_URING_ENTER, uintptr(b.fd), 0, uintptr(minComplete), ioringEnterGetevents, 0, 0)
	if errno != 0 && errno != syscall.EINTR {
		return nil, fmt.Errorf("runtime: io_uring_enter wait: %v", errno)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	cqHead := (*uint32)(unsafe.Add(unsafe.Pointer(&b.cqMem[0]), b.params.cqOff.head))
	cqTail := (*uint32)(unsafe.Add(unsafe.Pointer(&b.cqMem[0]), b.params.cqOff.tail))
	cqMask := b.params.cqEntries - 1
	cqesBase := unsafe.Add(unsafe.Pointer(&b.cqMem[0]), b.params.cqOff.cqesOffset())

	var out []Completion
	for *cqHead != *cqTail {
		idx := *cqHead & cqMask
		entry := (*cqe)(unsafe.Add(cqesBase, uintptr(unsafe.Sizeof(cqe{}))*uintptr(idx)))
		c := Completion{UserData: entry.userData, Result: entry.res}
		if entry.res < 0 {
			c.Err = syscall.Errno(-entry.res)
		}
		out = append(out, c)
		*cqHead++
	}
	return out, nil
}

func (b *minimalIOBackend) Close() error {
	unix.Munmap(b.sqMem)
	unix.Munmap(b.cqMem)
	return syscall.Close(b.fd)
}
