// Package wire implements the Wayland wire codec: frame-accurate
// marshalling of typed messages with inline file descriptors, over a
// pair of bounded ring buffers per connection.
package wire

import (
	"encoding/binary"
	"math"

	"github.com/waylens/waylens/internal/constants"
)

// Header is the fixed 8-byte prefix of every wire message:
// [object_id:u32][opcode:u16][len:u16] (the wire's [len:u16][opcode:u16]
// field order from the protocol is a single tagged u32 word; this struct
// names the two halves separately for Go-side convenience).
type Header struct {
	ObjectID uint32
	Opcode   uint16
	Size     uint16
}

// Message is a fully decoded wire message: its header, payload bytes
// (already validated for length and alignment), and any inline fds
// consumed in argument order.
type Message struct {
	Header
	Payload []byte
	Fds     []int
}

// DecodeHeader reads the 8-byte header from buf. Callers must ensure
// len(buf) >= constants.MessageHeaderSize.
func DecodeHeader(buf []byte) Header {
	objectID := binary.LittleEndian.Uint32(buf[0:4])
	sizeOpcode := binary.LittleEndian.Uint32(buf[4:8])
	return Header{
		ObjectID: objectID,
		Opcode:   uint16(sizeOpcode & 0xffff),
		Size:     uint16(sizeOpcode >> 16),
	}
}

// EncodeHeader writes h's 8 bytes into buf. Callers must ensure
// len(buf) >= constants.MessageHeaderSize.
func EncodeHeader(h Header, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.ObjectID)
	sizeOpcode := uint32(h.Opcode) | uint32(h.Size)<<16
	binary.LittleEndian.PutUint32(buf[4:8], sizeOpcode)
}

// ValidateHeader checks the length/alignment invariants from §4.2 before
// a payload is read.
func ValidateHeader(h Header) error {
	if h.Size < constants.MessageHeaderSize {
		return ErrMessageSizeTooSmall
	}
	if int(h.Size) > constants.MaxMessageSize {
		return ErrMessageSizeTooLarge
	}
	if h.Size%constants.MessageAlignment != 0 {
		return ErrUnalignedMessage
	}
	return nil
}

// Fixed24_8 is a 24.8 fixed-point value, the wire encoding used for
// sub-pixel coordinates (pointer motion, viewport crop rectangles).
type Fixed24_8 int32

// ToFloat64 converts a wire fixed-point value to a float64.
func (f Fixed24_8) ToFloat64() float64 {
	return float64(f) / 256.0
}

// FixedFromFloat64 converts a float64 to the wire's 24.8 fixed-point
// encoding, matching the round-trip law in §8.
func FixedFromFloat64(v float64) Fixed24_8 {
	return Fixed24_8(math.Round(v * 256.0))
}

// PadLen4 returns the 4-byte-padded length of n bytes, matching the
// wire protocol's string/array encoding (NUL-terminated + padded for
// strings; plain padded for opaque arrays).
func PadLen4(n int) int {
	return (n + 3) &^ 3
}
