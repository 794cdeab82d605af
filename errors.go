package waylens

import (
	"errors"
	"fmt"
	"syscall"
)

// Code categorizes a compositor Error into the taxonomy handlers and the
// dispatcher use to decide whether to surface a protocol error, log and
// continue, or shut down.
type Code string

const (
	CodeProtocol      Code = "protocol"      // client fault: malformed message, bad id, version violation
	CodeClientIO      Code = "client_io"     // socket closed, slow client, oversized queue
	CodeResource      Code = "resource"      // buffer import failure, out of fds, out of memory
	CodeBackend       Code = "backend"       // GPU context lost, DRM commit failure, keymap compile failure
	CodeConfiguration Code = "configuration" // invalid shortcut, unknown keysym
	CodeFatal         Code = "fatal"         // listening socket creation failed, fatal signal
)

// Error is the structured error type threaded through every layer of the
// compositor: object id and opcode context for protocol errors, an errno
// for syscall-originated backend errors, and a wrapped inner error.
type Error struct {
	Op       string // operation that failed, e.g. "dispatch", "surface.commit"
	ObjectID uint32 // protocol object id, 0 if not applicable
	Opcode   uint16 // request/event opcode, 0 if not applicable
	Code     Code
	Errno    syscall.Errno
	Msg      string
	Inner    error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.ObjectID != 0 {
		parts = append(parts, fmt.Sprintf("object=%d", e.ObjectID))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("waylens: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("waylens: %s", msg)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// NewError creates a structured error with no object/opcode context.
func NewError(op string, code Code, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewProtocolError creates a protocol error tied to a specific object and
// opcode, the shape the dispatcher needs to emit a display.error event.
func NewProtocolError(op string, objectID uint32, opcode uint16, msg string) *Error {
	return &Error{Op: op, ObjectID: objectID, Opcode: opcode, Code: CodeProtocol, Msg: msg}
}

// NewErrorWithErrno creates a structured error carrying a kernel errno,
// used by the async runtime adapter and wire codec fd-passing paths.
func NewErrorWithErrno(op string, code Code, errno syscall.Errno) *Error {
	return &Error{Op: op, Code: code, Errno: errno, Msg: errno.Error()}
}

// WrapError attaches an operation name to an existing error, preserving a
// structured Error's fields or mapping a bare syscall.Errno to a backend
// error.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if we, ok := inner.(*Error); ok {
		return &Error{
			Op:       op,
			ObjectID: we.ObjectID,
			Opcode:   we.Opcode,
			Code:     we.Code,
			Errno:    we.Errno,
			Msg:      we.Msg,
			Inner:    we.Inner,
		}
	}
	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Code: CodeBackend, Errno: errno, Msg: errno.Error(), Inner: inner}
	}
	return &Error{Op: op, Code: CodeResource, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a structured Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Sentinel protocol errors surfaced verbatim on the offending client's
// display object, matching the wire codec's named failure modes.
var (
	ErrMessageSizeTooSmall = NewError("wire.decode", CodeProtocol, "message size too small")
	ErrMessageSizeTooLarge = NewError("wire.decode", CodeProtocol, "message size too large")
	ErrUnalignedMessage    = NewError("wire.decode", CodeProtocol, "message not 4-byte aligned")
	ErrNoFd                = NewError("wire.decode", CodeProtocol, "expected inline fd not present")
	ErrUnknownID           = NewError("dispatch", CodeProtocol, "unknown object id")
	ErrInvalidMethod       = NewError("dispatch", CodeProtocol, "unknown opcode for interface")
	ErrInvalidObject       = NewError("registry.lookup", CodeProtocol, "object exists with different interface")
	ErrPermissionDenied    = NewError("dispatch.bind", CodeProtocol, "client lacks required capability")
	ErrSlowClient          = NewError("conn.write", CodeClientIO, "outbound backlog exceeded watermark")
)
