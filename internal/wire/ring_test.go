package wire

import "testing"

func buildWireMessage(objectID uint32, opcode uint16, payload []byte) []byte {
	buf := make([]byte, 8+len(payload))
	EncodeHeader(Header{ObjectID: objectID, Opcode: opcode, Size: uint16(8 + len(payload))}, buf)
	copy(buf[8:], payload)
	return buf
}

func TestInputRingSuspendsUntilFullMessage(t *testing.T) {
	ring := NewInputRing(64, 4)
	full := buildWireMessage(1, 2, []byte{1, 2, 3, 4})

	// Feed only the header first: TakeMessage should report not-ready.
	if err := ring.Fill(full[:8], nil); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	hdr, ok := ring.PeekHeader()
	if !ok {
		t.Fatal("expected header to be peekable once 8 bytes are buffered")
	}
	if _, ok := ring.TakeMessage(hdr.Size, 0); ok {
		t.Fatal("expected TakeMessage to report not-ready with only the header buffered")
	}

	// Feed the rest; now a full message should be available.
	if err := ring.Fill(full[8:], nil); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	msg, ok := ring.TakeMessage(hdr.Size, 0)
	if !ok {
		t.Fatal("expected TakeMessage to succeed once the full message is buffered")
	}
	if msg.ObjectID != 1 || msg.Opcode != 2 {
		t.Errorf("unexpected header: %+v", msg.Header)
	}
	if string(msg.Payload) != "\x01\x02\x03\x04" {
		t.Errorf("unexpected payload: %v", msg.Payload)
	}
}

func TestInputRingFullReportsError(t *testing.T) {
	ring := NewInputRing(8, 1)
	if err := ring.Fill(make([]byte, 8), nil); err != nil {
		t.Fatalf("first fill should fit exactly, got %v", err)
	}
	if err := ring.Fill([]byte{1}, nil); err != ErrRingFull {
		t.Fatalf("expected ErrRingFull once capacity is exceeded, got %v", err)
	}
}

func TestOutputSwapchainEnqueueAndSwap(t *testing.T) {
	sc := NewOutputSwapchain(64)
	if err := sc.Enqueue([]byte("event-one")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if sc.Backlog() != len("event-one") {
		t.Errorf("expected backlog=%d, got %d", len("event-one"), sc.Backlog())
	}

	drained := sc.Swap()
	if string(drained) != "event-one" {
		t.Errorf("expected drained front buffer, got %q", drained)
	}

	// New front should be clean for further enqueues.
	if err := sc.Enqueue([]byte("event-two")); err != nil {
		t.Fatalf("Enqueue after swap failed: %v", err)
	}
}

func TestOutputSwapchainWatermark(t *testing.T) {
	sc := NewOutputSwapchain(4)
	if err := sc.Enqueue([]byte("toolong")); err != ErrRingFull {
		t.Fatalf("expected ErrRingFull past the watermark, got %v", err)
	}
}
