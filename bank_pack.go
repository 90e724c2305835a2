// bank_pack.go - Encoder producing streams accepted by Unpack

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

import "encoding/binary"

const (
	packMaxOffset    = 1<<12 - 1
	packMaxMatch     = 256
	packMaxLiteral   = 8 + 256
	packChainLimit   = 512
	packShortLiteral = 8
)

// bitSink collects bits in the order the decoder consumes them.
type bitSink struct {
	bits []byte
}

func (b *bitSink) put(bit bool) {
	if bit {
		b.bits = append(b.bits, 1)
	} else {
		b.bits = append(b.bits, 0)
	}
}

func (b *bitSink) putBits(v uint32, width int) {
	for i := width - 1; i >= 0; i-- {
		b.put(v>>uint(i)&1 != 0)
	}
}

// Pack compresses raw into the bank format. Output written by the decoder
// from the end, so the encoder walks raw from the last byte to the first.
func Pack(raw []byte) []byte {
	sink := &bitSink{}
	n := len(raw)

	head := make(map[uint16]int)
	next := make([]int, n)
	insert := func(q int) {
		if q < 1 {
			return
		}
		key := uint16(raw[q])<<8 | uint16(raw[q-1])
		if old, ok := head[key]; ok {
			next[q] = old
		} else {
			next[q] = -1
		}
		head[key] = q
	}

	var pending []byte
	flush := func() {
		for len(pending) > 0 {
			m := min(len(pending), packMaxLiteral)
			if m <= packShortLiteral {
				sink.put(false)
				sink.put(false)
				sink.putBits(uint32(m-1), 3)
			} else {
				sink.put(true)
				sink.putBits(3, 2)
				sink.putBits(uint32(m-9), 8)
			}
			for _, b := range pending[:m] {
				sink.putBits(uint32(b), 8)
			}
			pending = pending[m:]
		}
	}

	pos := n
	for pos > 0 {
		length, offset := packFindMatch(raw, pos, head, next)
		if length == 0 {
			pending = append(pending, raw[pos-1])
			pos--
			insert(pos)
			continue
		}
		flush()
		switch {
		case length == 2 && offset < 1<<8:
			sink.put(false)
			sink.put(true)
			sink.putBits(uint32(offset), 8)
		case length == 3 && offset < 1<<9:
			sink.put(true)
			sink.putBits(0, 2)
			sink.putBits(uint32(offset), 9)
		case length == 4 && offset < 1<<10:
			sink.put(true)
			sink.putBits(1, 2)
			sink.putBits(uint32(offset), 10)
		default:
			sink.put(true)
			sink.putBits(2, 2)
			sink.putBits(uint32(length-1), 8)
			sink.putBits(uint32(offset), 12)
		}
		for range length {
			pos--
			insert(pos)
		}
	}
	flush()

	return packWords(sink.bits, uint32(n))
}

// packFindMatch returns the longest encodable back-reference for the byte
// run ending at raw[pos-1], or zero when literals are cheaper.
func packFindMatch(raw []byte, pos int, head map[uint16]int, next []int) (int, int) {
	if pos < 2 {
		return 0, 0
	}
	key := uint16(raw[pos-1])<<8 | uint16(raw[pos-2])
	q, ok := head[key]
	if !ok {
		return 0, 0
	}

	bestLen, bestOff := 0, 0
	var shortOff [5]int // smallest offset reaching length 2..4
	limit := min(pos, packMaxMatch)

	for steps := 0; q >= 0 && steps < packChainLimit; steps++ {
		offset := q - (pos - 1)
		if offset > packMaxOffset {
			break
		}
		l := 0
		for l < limit && raw[pos-1-l] == raw[q-l] {
			l++
		}
		for k := 2; k <= 4 && k <= l; k++ {
			if shortOff[k] == 0 {
				shortOff[k] = offset
			}
		}
		if l > bestLen {
			bestLen, bestOff = l, offset
			if l == limit {
				break
			}
		}
		q = next[q]
	}

	switch {
	case bestLen >= 5:
		return bestLen, bestOff
	case shortOff[4] != 0 && shortOff[4] < 1<<10:
		return 4, shortOff[4]
	case shortOff[3] != 0 && shortOff[3] < 1<<9:
		return 3, shortOff[3]
	case shortOff[2] != 0 && shortOff[2] < 1<<8:
		return 2, shortOff[2]
	}
	return 0, 0
}

// packWords lays the bit sequence out as the decoder pops it: size, crc,
// the partial first word (topped with its sentinel bit), then full words,
// each consumed least significant bit first.
func packWords(bits []byte, size uint32) []byte {
	first := len(bits) % 32
	words := []uint32{}

	chk := uint32(1) << uint(first)
	for i := 0; i < first; i++ {
		chk |= uint32(bits[i]) << uint(i)
	}
	words = append(words, chk)

	for i := first; i < len(bits); i += 32 {
		var w uint32
		for j := 0; j < 32; j++ {
			w |= uint32(bits[i+j]) << uint(j)
		}
		words = append(words, w)
	}

	var crc uint32
	for _, w := range words {
		crc ^= w
	}

	// Pop order is size, crc, then words; the file stores them reversed.
	popOrder := append([]uint32{size, crc}, words...)
	out := make([]byte, 4*len(popOrder))
	for i, w := range popOrder {
		binary.BigEndian.PutUint32(out[len(out)-4*(i+1):], w)
	}
	return out
}
