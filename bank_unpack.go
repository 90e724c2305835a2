// bank_unpack.go - Bank resource decompression (back-to-front bit packer)

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrChecksum        = errors.New("bank unpack: checksum mismatch")
	ErrPackedUnderflow = errors.New("bank unpack: read past start of packed data")
	ErrUnpackOverrun   = errors.New("bank unpack: unit exceeds output buffer")
)

// Entries are described by 16-bit sizes; anything far beyond that is a
// corrupt header rather than data.
const maxUnpackedSize = 1 << 24

// unpackState holds the decoder registers. Both cursors move backwards.
type unpackState struct {
	packed   []byte
	inPos    int    // next word is packed[inPos-4:inPos]
	output   []byte
	outPos   int    // next byte goes to output[outPos-1]
	crc      uint32 // running checksum
	chk      uint32 // shift register
	dataSize int    // bytes still to emit
}

// Unpack decompresses a packed bank entry. The trailing three words of the
// stream are the unpacked size, the checksum seed and the first bit word.
func Unpack(packed []byte) ([]byte, error) {
	if len(packed) < 12 {
		return nil, fmt.Errorf("packed entry too short (%d bytes): %w", len(packed), ErrPackedUnderflow)
	}
	state := &unpackState{packed: packed, inPos: len(packed)}

	size, _ := state.readWord()
	state.crc, _ = state.readWord()
	state.chk, _ = state.readWord()
	state.crc ^= state.chk

	// Errors past this point also match ErrChecksum.
	if size > maxUnpackedSize {
		return nil, fmt.Errorf("implausible unpacked size %d: %w: %w", size, ErrChecksum, ErrUnpackOverrun)
	}
	state.dataSize = int(size)
	state.output = make([]byte, state.dataSize)
	state.outPos = state.dataSize

	for state.dataSize > 0 {
		if err := state.decodeUnit(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrChecksum, err)
		}
	}

	if state.crc != 0 {
		return nil, fmt.Errorf("residue 0x%08X: %w", state.crc, ErrChecksum)
	}
	return state.output, nil
}

func (s *unpackState) decodeUnit() error {
	bit, err := s.nextBit()
	if err != nil {
		return err
	}
	if !bit {
		second, err := s.nextBit()
		if err != nil {
			return err
		}
		if !second {
			return s.literalRun(3, 0)
		}
		return s.backReference(8, 1)
	}

	c, err := s.readBits(2)
	if err != nil {
		return err
	}
	switch {
	case c == 3:
		return s.literalRun(8, 8)
	case c < 2:
		return s.backReference(int(c)+9, int(c)+2)
	default:
		n, err := s.readBits(8)
		if err != nil {
			return err
		}
		return s.backReference(12, int(n))
	}
}

// literalRun copies count = bits(width)+add+1 bytes straight from the stream.
func (s *unpackState) literalRun(width, add int) error {
	n, err := s.readBits(width)
	if err != nil {
		return err
	}
	count := int(n) + add + 1
	if count > s.dataSize {
		return fmt.Errorf("literal run of %d with %d bytes left: %w", count, s.dataSize, ErrUnpackOverrun)
	}
	s.dataSize -= count
	for range count {
		b, err := s.readBits(8)
		if err != nil {
			return err
		}
		s.outPos--
		s.output[s.outPos] = byte(b)
	}
	return nil
}

// backReference replays size+1 bytes found offset positions above the
// write cursor.
func (s *unpackState) backReference(width, size int) error {
	offset, err := s.readBits(width)
	if err != nil {
		return err
	}
	count := size + 1
	if count > s.dataSize {
		return fmt.Errorf("back-reference of %d with %d bytes left: %w", count, s.dataSize, ErrUnpackOverrun)
	}
	if src := s.outPos + int(offset) - 1; src < 0 || src >= len(s.output) {
		return fmt.Errorf("back-reference source %d outside output of %d: %w", src, len(s.output), ErrUnpackOverrun)
	}
	s.dataSize -= count
	for range count {
		src := s.outPos + int(offset) - 1
		s.outPos--
		s.output[s.outPos] = s.output[src]
	}
	return nil
}

// readBits assembles width bits, first bit read is the most significant.
func (s *unpackState) readBits(width int) (uint16, error) {
	var v uint16
	for range width {
		bit, err := s.nextBit()
		if err != nil {
			return 0, err
		}
		v <<= 1
		if bit {
			v |= 1
		}
	}
	return v, nil
}

// nextBit rotates the shift register right. An empty register is refilled
// from the stream with a carry-in marking the word boundary.
func (s *unpackState) nextBit() (bool, error) {
	carry := s.chk&1 != 0
	s.chk >>= 1
	if s.chk == 0 {
		w, err := s.readWord()
		if err != nil {
			return false, err
		}
		s.chk = w
		s.crc ^= w
		carry = s.chk&1 != 0
		s.chk = (s.chk >> 1) | 0x80000000
	}
	return carry, nil
}

func (s *unpackState) readWord() (uint32, error) {
	if s.inPos < 4 {
		return 0, ErrPackedUnderflow
	}
	s.inPos -= 4
	return binary.BigEndian.Uint32(s.packed[s.inPos:]), nil
}
