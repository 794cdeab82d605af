package waylens

import (
	"errors"
	"syscall"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewError("dispatch", CodeProtocol, "unknown opcode")

	if err.Op != "dispatch" {
		t.Errorf("Expected Op=dispatch, got %s", err.Op)
	}
	if err.Code != CodeProtocol {
		t.Errorf("Expected Code=CodeProtocol, got %s", err.Code)
	}

	expected := "waylens: unknown opcode (op=dispatch)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestErrorWithErrno(t *testing.T) {
	err := NewErrorWithErrno("runtime.submit", CodeBackend, syscall.EAGAIN)

	if err.Errno != syscall.EAGAIN {
		t.Errorf("Expected Errno=EAGAIN, got %v", err.Errno)
	}
	if err.Code != CodeBackend {
		t.Errorf("Expected Code=CodeBackend, got %s", err.Code)
	}
}

func TestProtocolError(t *testing.T) {
	err := NewProtocolError("dispatch", 5, 3, "invalid argument")

	if err.ObjectID != 5 {
		t.Errorf("Expected ObjectID=5, got %d", err.ObjectID)
	}
	if err.Opcode != 3 {
		t.Errorf("Expected Opcode=3, got %d", err.Opcode)
	}

	expected := "waylens: invalid argument (op=dispatch)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestWrapError(t *testing.T) {
	inner := syscall.ENOENT
	err := WrapError("registry.lookup", inner)

	if err.Code != CodeBackend {
		t.Errorf("Expected Code=CodeBackend, got %s", err.Code)
	}
	if err.Errno != syscall.ENOENT {
		t.Errorf("Expected Errno=ENOENT, got %v", err.Errno)
	}
	if !errors.Is(err, syscall.ENOENT) {
		t.Error("Expected wrapped error to satisfy errors.Is for ENOENT")
	}
}

func TestWrapErrorPreservesStructuredFields(t *testing.T) {
	inner := NewProtocolError("wire.decode", 7, 2, "bad length")
	err := WrapError("conn.read", inner)

	if err.ObjectID != 7 || err.Opcode != 2 {
		t.Errorf("WrapError should preserve object/opcode context, got %+v", err)
	}
	if err.Code != CodeProtocol {
		t.Errorf("Expected Code=CodeProtocol, got %s", err.Code)
	}
}

func TestIsCode(t *testing.T) {
	err := NewError("seat.focus", CodeResource, "out of memory")

	if !IsCode(err, CodeResource) {
		t.Error("IsCode should return true for matching code")
	}
	if IsCode(err, CodeFatal) {
		t.Error("IsCode should return false for non-matching code")
	}
	if IsCode(nil, CodeResource) {
		t.Error("IsCode should return false for nil error")
	}
}

func TestErrorIsComparesCode(t *testing.T) {
	err := &Error{Code: CodeProtocol}
	if !errors.Is(err, ErrUnknownID) {
		t.Error("errors.Is should match on Code, regardless of message")
	}
	if errors.Is(err, ErrSlowClient) {
		t.Error("errors.Is should not match across differing codes")
	}
}
