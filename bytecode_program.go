// bytecode_program.go - Parsed script program with address map

package main

import (
	"errors"
	"fmt"
)

var ErrUnresolvedJump = errors.New("jump target is not an instruction boundary")

// protectionPatch turns the code-wheel check of the first part into a
// pass-through. Offsets are into the raw bytecode.
var protectionPatch = []struct {
	offset int
	value  byte
}{
	{0xCB9, 0x81},
	{0xCBC, 0x0D},
	{0xCBD, 0x24},
	{0xD52, 0x0D},
	{0xD53, 0x5A},
}

// Program owns a copy of the bytecode of one part together with its
// decoded instructions.
type Program struct {
	Part         uint16
	Code         []byte
	Instructions []Instruction
	index        map[uint16]int
}

// ParseProgram copies code, applies the protection patch when part is the
// first part, and decodes it front to back. A trailing fragment too short
// for its opcode is kept as a single unknown instruction.
func ParseProgram(code []byte, part uint16) (*Program, error) {
	p := &Program{
		Part:  part,
		Code:  append([]byte(nil), code...),
		index: make(map[uint16]int),
	}
	if len(p.Code) > 0xFFFF {
		return nil, fmt.Errorf("bytecode of %d bytes exceeds 16-bit addressing", len(p.Code))
	}

	if part == PartFirst {
		p.applyProtectionPatch()
	}

	for off := 0; off < len(p.Code); {
		in, err := DecodeInstruction(p.Code, off)
		if errors.Is(err, ErrTruncatedInstruction) {
			vmLog.Warningf("part 0x%04X: %d trailing bytes at 0x%04X do not form an instruction", part, len(p.Code)-off, off)
			in = Instruction{Offset: uint16(off), Size: uint16(len(p.Code) - off), Op: OpUnknown, Code: p.Code[off]}
		} else if err != nil {
			return nil, err
		}
		p.index[in.Offset] = len(p.Instructions)
		p.Instructions = append(p.Instructions, in)
		off += int(in.Size)
	}
	return p, nil
}

func (p *Program) applyProtectionPatch() {
	last := protectionPatch[len(protectionPatch)-1].offset
	if len(p.Code) <= last {
		vmLog.Warningf("first part bytecode is %d bytes, protection patch skipped", len(p.Code))
		return
	}
	for _, b := range protectionPatch {
		p.Code[b.offset] = b.value
	}
}

// IndexOf maps a code address to its instruction index.
func (p *Program) IndexOf(addr uint16) (int, error) {
	i, ok := p.index[addr]
	if !ok {
		return 0, fmt.Errorf("address 0x%04X: %w", addr, ErrUnresolvedJump)
	}
	return i, nil
}

// At returns the instruction at code address addr.
func (p *Program) At(addr uint16) (*Instruction, error) {
	i, err := p.IndexOf(addr)
	if err != nil {
		return nil, err
	}
	return &p.Instructions[i], nil
}

// Bytes returns the raw encoding of in.
func (p *Program) Bytes(in *Instruction) []byte {
	return p.Code[in.Offset : int(in.Offset)+int(in.Size)]
}
