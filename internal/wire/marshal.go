package wire

import (
	"encoding/binary"
)

// ArgWriter builds a message payload by appending typed arguments in
// declaration order, matching the teacher's manual field-by-field
// encoding idiom (internal/uapi/marshal.go) rather than reflection.
type ArgWriter struct {
	buf []byte
	fds []int
}

// NewArgWriter returns an empty ArgWriter.
func NewArgWriter() *ArgWriter {
	return &ArgWriter{}
}

func (w *ArgWriter) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *ArgWriter) PutInt32(v int32) {
	w.PutUint32(uint32(v))
}

func (w *ArgWriter) PutFixed(v Fixed24_8) {
	w.PutInt32(int32(v))
}

func (w *ArgWriter) PutObjectID(v uint32) {
	w.PutUint32(v)
}

// PutString writes a length-prefixed, NUL-terminated, 4-byte-padded
// UTF-8 string: [len:u32 including the NUL][bytes...][NUL][pad].
func (w *ArgWriter) PutString(s string) {
	n := uint32(len(s) + 1)
	w.PutUint32(n)
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
	for len(w.buf)%4 != 0 {
		w.buf = append(w.buf, 0)
	}
}

// PutArray writes a length-prefixed, 4-byte-padded opaque byte array:
// [len:u32][bytes...][pad].
func (w *ArgWriter) PutArray(data []byte) {
	w.PutUint32(uint32(len(data)))
	w.buf = append(w.buf, data...)
	for len(w.buf)%4 != 0 {
		w.buf = append(w.buf, 0)
	}
}

// PutFd records an inline fd to be sent out-of-band alongside the
// payload; it does not consume any payload bytes.
func (w *ArgWriter) PutFd(fd int) {
	w.fds = append(w.fds, fd)
}

// Build assembles the full message (header + payload) for objectID and
// opcode around the accumulated argument bytes.
func (w *ArgWriter) Build(objectID uint32, opcode uint16) Message {
	size := uint16(MessageHeaderSizeFor(len(w.buf)))
	return Message{
		Header:  Header{ObjectID: objectID, Opcode: opcode, Size: size},
		Payload: w.buf,
		Fds:     w.fds,
	}
}

// MessageHeaderSizeFor returns the total wire size (header + payload)
// for a payload of payloadLen bytes.
func MessageHeaderSizeFor(payloadLen int) int {
	return 8 + payloadLen
}

// ArgReader decodes a payload in the same declared order it was
// written, consuming inline fds as it encounters fd-typed arguments.
type ArgReader struct {
	buf []byte
	fds []int
	off int
	fdOff int
}

// NewArgReader wraps a decoded message's payload and fds for argument
// extraction.
func NewArgReader(m Message) *ArgReader {
	return &ArgReader{buf: m.Payload, fds: m.Fds}
}

func (r *ArgReader) need(n int) error {
	if r.off+n > len(r.buf) {
		return ErrTruncatedArgument
	}
	return nil
}

func (r *ArgReader) GetUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *ArgReader) GetInt32() (int32, error) {
	v, err := r.GetUint32()
	return int32(v), err
}

func (r *ArgReader) GetFixed() (Fixed24_8, error) {
	v, err := r.GetInt32()
	return Fixed24_8(v), err
}

func (r *ArgReader) GetObjectID() (uint32, error) {
	return r.GetUint32()
}

// GetString reads a length-prefixed, NUL-terminated, padded string and
// returns it without the trailing NUL.
func (r *ArgReader) GetString() (string, error) {
	n, err := r.GetUint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.buf[r.off : r.off+int(n)-1]) // drop trailing NUL
	r.off += PadLen4(int(n))
	return s, nil
}

// GetArray reads a length-prefixed, padded opaque byte array.
func (r *ArgReader) GetArray() ([]byte, error) {
	n, err := r.GetUint32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	data := make([]byte, n)
	copy(data, r.buf[r.off:r.off+int(n)])
	r.off += PadLen4(int(n))
	return data, nil
}

// GetFd consumes the next inline fd, failing with ErrNoFd if none
// remain.
func (r *ArgReader) GetFd() (int, error) {
	if r.fdOff >= len(r.fds) {
		return -1, ErrNoFd
	}
	fd := r.fds[r.fdOff]
	r.fdOff++
	return fd, nil
}

// Remaining reports unconsumed payload bytes, for validating that a
// handler consumed exactly the arguments its schema declares.
func (r *ArgReader) Remaining() int {
	return len(r.buf) - r.off
}
