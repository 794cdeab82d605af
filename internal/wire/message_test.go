package wire

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{ObjectID: 42, Opcode: 3, Size: 16}
	buf := make([]byte, 8)
	EncodeHeader(h, buf)

	got := DecodeHeader(buf)
	if got != h {
		t.Errorf("DecodeHeader(EncodeHeader(h)) = %+v, want %+v", got, h)
	}
}

func TestValidateHeader(t *testing.T) {
	tests := []struct {
		name    string
		h       Header
		wantErr error
	}{
		{"too small", Header{Size: 4}, ErrMessageSizeTooSmall},
		{"large but valid", Header{Size: 0xffff &^ 3}, nil}, // 65532 still within bounds
		{"unaligned", Header{Size: 9}, ErrUnalignedMessage},
		{"valid minimum", Header{Size: 8}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHeader(tt.h)
			if err != tt.wantErr {
				t.Errorf("ValidateHeader(%+v) = %v, want %v", tt.h, err, tt.wantErr)
			}
		})
	}
}

func TestFixedPointRoundTrip(t *testing.T) {
	values := []float64{0, 1, -1, 3.5, -3.5, 0.25, 100.125}
	for _, v := range values {
		f := FixedFromFloat64(v)
		got := f.ToFloat64()
		if got != v {
			t.Errorf("Fixed24_8 round trip for %v: got %v", v, got)
		}
	}
}

func TestPadLen4(t *testing.T) {
	cases := map[int]int{0: 0, 1: 4, 2: 4, 3: 4, 4: 4, 5: 8}
	for in, want := range cases {
		if got := PadLen4(in); got != want {
			t.Errorf("PadLen4(%d) = %d, want %d", in, got, want)
		}
	}
}
