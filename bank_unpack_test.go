// bank_unpack_test.go - Tests for the bank codec

package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"testing"
)

func TestUnpack_FourLiterals(t *testing.T) {
	raw := []byte{0, 1, 2, 3}
	packed := Pack(raw)
	if len(packed) != 16 {
		t.Fatalf("packed length = %d, want 16", len(packed))
	}
	if got := binary.BigEndian.Uint32(packed[12:]); got != 4 {
		t.Fatalf("trailing size word = %d, want 4", got)
	}
	out, err := Unpack(packed)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Fatalf("Unpack = %v, want %v", out, raw)
	}
}

func TestUnpack_HandAssembledStream(t *testing.T) {
	// Literal run "00" count=0 (one byte) of 0xAB, then a length-2
	// back-reference "01" offset 1: output is AB AB AB.
	var bits []byte
	push := func(v uint32, width int) {
		for i := width - 1; i >= 0; i-- {
			bits = append(bits, byte(v>>uint(i)&1))
		}
	}
	push(0, 2)
	push(0, 3)
	push(0xAB, 8)
	push(1, 2)
	push(1, 8)

	out, err := Unpack(packWords(bits, 3))
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if want := []byte{0xAB, 0xAB, 0xAB}; !bytes.Equal(out, want) {
		t.Fatalf("Unpack = % X, want % X", out, want)
	}
}

func TestPack_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	random := make([]byte, 5000)
	rng.Read(random)

	runs := bytes.Repeat([]byte{0x11}, 3000)

	var mixed []byte
	for i := 0; i < 400; i++ {
		mixed = append(mixed, []byte("polygon")...)
		mixed = append(mixed, byte(rng.Intn(4)))
	}

	farRepeat := append(append([]byte{}, random[:300]...), random[:2000]...)
	farRepeat = append(farRepeat, random[:300]...)

	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"single", []byte{0x42}},
		{"pair", []byte{9, 9}},
		{"random", random},
		{"runs", runs},
		{"mixed", mixed},
		{"far repeat", farRepeat},
		{"long literal", random[:600]},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			packed := Pack(tc.raw)
			if len(packed)%4 != 0 {
				t.Fatalf("packed length %d is not word aligned", len(packed))
			}
			out, err := Unpack(packed)
			if err != nil {
				t.Fatalf("Unpack: %v", err)
			}
			if len(out) != len(tc.raw) || !bytes.Equal(out, tc.raw) {
				t.Fatalf("round trip mismatch (got %d bytes, want %d)", len(out), len(tc.raw))
			}
		})
	}
}

func TestPack_CompressesRepetition(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAA, 0x55}, 2048)
	packed := Pack(raw)
	if len(packed) >= len(raw)/4 {
		t.Fatalf("packed %d bytes into %d, expected real compression", len(raw), len(packed))
	}
}

func TestUnpack_HeaderBitFlip(t *testing.T) {
	raw := make([]byte, 700)
	seed := uint32(0x1234567)
	for i := range raw {
		seed = seed*1103515245 + 12345
		raw[i] = byte(seed >> 16)
		if i%7 < 3 {
			raw[i] = byte(i / 50)
		}
	}
	packed := Pack(raw)
	words := []string{"chk", "crc", "size"}
	for bit := 0; bit < 96; bit++ {
		bad := append([]byte{}, packed...)
		// chk, crc and size are the last three words, size last
		pos := len(bad) - 12 + bit/8
		bad[pos] ^= 1 << uint(bit%8)
		if _, err := Unpack(bad); !errors.Is(err, ErrChecksum) {
			t.Errorf("%s bit %d: err = %v, want ErrChecksum", words[bit/32], bit%32, err)
		}
	}
}

func TestUnpack_SizeGrown(t *testing.T) {
	packed := Pack([]byte("the quick brown fox jumps over the lazy dog"))
	binary.BigEndian.PutUint32(packed[len(packed)-4:], 4096)
	if _, err := Unpack(packed); !errors.Is(err, ErrPackedUnderflow) {
		t.Fatalf("err = %v, want ErrPackedUnderflow", err)
	}
}

func TestUnpack_Truncated(t *testing.T) {
	if _, err := Unpack([]byte{0, 0, 0, 1}); !errors.Is(err, ErrPackedUnderflow) {
		t.Fatalf("short header: err = %v, want ErrPackedUnderflow", err)
	}

	packed := Pack(bytes.Repeat([]byte("abcdefgh"), 64))
	// Dropping leading words leaves the decoder short of input.
	if _, err := Unpack(packed[8:]); !errors.Is(err, ErrPackedUnderflow) {
		t.Fatalf("truncated stream: err = %v, want ErrPackedUnderflow", err)
	}
}

func TestUnpack_Overrun(t *testing.T) {
	// Literal run of 8 bytes declared, but the header only promises 2.
	var bits []byte
	push := func(v uint32, width int) {
		for i := width - 1; i >= 0; i-- {
			bits = append(bits, byte(v>>uint(i)&1))
		}
	}
	push(0, 2)
	push(7, 3)
	for i := 0; i < 8; i++ {
		push(uint32(i), 8)
	}
	if _, err := Unpack(packWords(bits, 2)); !errors.Is(err, ErrUnpackOverrun) {
		t.Fatalf("err = %v, want ErrUnpackOverrun", err)
	}

	// Back-reference pointing past the end of the output.
	bits = nil
	push(0, 2)
	push(0, 3)
	push(0x10, 8)
	push(1, 2)
	push(5, 8)
	if _, err := Unpack(packWords(bits, 3)); !errors.Is(err, ErrUnpackOverrun) {
		t.Fatalf("err = %v, want ErrUnpackOverrun", err)
	}
}
