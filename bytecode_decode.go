// bytecode_decode.go - Single instruction decoder

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

var ErrTruncatedInstruction = errors.New("instruction runs past end of code")

const (
	colorPolygonDefault = 0xFF
	zoomDefault         = 0x40
	screenMaxY          = 199
)

// OperandKind says how a coordinate, zoom or comparison operand is obtained.
type OperandKind uint8

const (
	OperandConst OperandKind = iota // Value is the operand
	OperandVar                      // Value is a variable index
)

// Operand is a value resolved against the variable store at run time.
type Operand struct {
	Kind  OperandKind
	Value int16
}

func constOperand(v int16) Operand { return Operand{Kind: OperandConst, Value: v} }
func varOperand(i uint8) Operand   { return Operand{Kind: OperandVar, Value: int16(i)} }

func (o Operand) Resolve(vars *[numVariables]int16) int16 {
	if o.Kind == OperandVar {
		return vars[uint8(o.Value)]
	}
	return o.Value
}

func (o Operand) String() string {
	if o.Kind == OperandVar {
		return fmt.Sprintf("v%02X", uint8(o.Value))
	}
	return fmt.Sprintf("%d", o.Value)
}

// CondOperand is the comparison part of a CondJmp.
type CondOperand struct {
	Cond     uint8 // raw condition byte; relation in the low 3 bits
	Var      uint8 // variable tested
	Operand  Operand
	Wide     bool // 16-bit immediate form
	Relation uint8
}

// PolygonOperand is the decoded form of both polygon draw encodings.
type PolygonOperand struct {
	Offset  uint16 // byte offset into the polygon segment
	Segment Segment
	Color   uint8
	X, Y    Operand
	Zoom    Operand
}

// Instruction is one decoded script instruction. Field use depends on Op:
//
//	movc/addc/and/or/shl/shr  Var, Imm
//	mov/add/sub               Var (dst), Src
//	call/jmp                  Target
//	setvec/jnz                Var (channel or counter), Target
//	cjmp                      Cond, Target
//	setpal/updres             Imm
//	rsthr                     Args = first, last, mode
//	selpage/blit              Args[0]
//	fillpage/copypage         Args[0], Args[1]
//	text                      Imm = string id, Args = x, y, color
//	sound                     Imm = resource, Args = freq, volume, channel
//	music                     Imm = resource, Imm2 = delay, Args[0] = position
//	poly/polyx                Poly
type Instruction struct {
	Offset uint16
	Size   uint16
	Op     Opcode
	Code   uint8

	Var    uint8
	Src    uint8
	Imm    uint16
	Imm2   uint16
	Target uint16
	Args   [3]uint8

	Cond CondOperand
	Poly PolygonOperand
}

// IsJump reports whether Target holds a code address.
func (in *Instruction) IsJump() bool {
	switch in.Op {
	case OpCall, OpJmp, OpJnz, OpCondJmp:
		return true
	}
	return false
}

// decoder walks a code buffer; reads past the end set err.
type decoder struct {
	code []byte
	pos  int
	err  error
}

func (d *decoder) u8() uint8 {
	if d.pos >= len(d.code) {
		d.err = ErrTruncatedInstruction
		return 0
	}
	v := d.code[d.pos]
	d.pos++
	return v
}

func (d *decoder) u16() uint16 {
	if d.pos+2 > len(d.code) {
		d.err = ErrTruncatedInstruction
		d.pos = len(d.code)
		return 0
	}
	v := binary.BigEndian.Uint16(d.code[d.pos:])
	d.pos += 2
	return v
}

// DecodeInstruction decodes the instruction starting at off.
func DecodeInstruction(code []byte, off int) (Instruction, error) {
	if off < 0 || off >= len(code) {
		return Instruction{}, fmt.Errorf("offset 0x%04X: %w", off, ErrTruncatedInstruction)
	}
	d := &decoder{code: code, pos: off}
	op := d.u8()
	in := Instruction{Offset: uint16(off), Code: op}

	switch {
	case op&0x80 != 0:
		decodePolygonShort(d, op, &in)
	case op&0x40 != 0:
		decodePolygonLong(d, op, &in)
	case op > uint8(lastTableOpcode):
		in.Op = OpUnknown
	default:
		in.Op = Opcode(op)
		decodeTable(d, &in)
	}

	if d.err != nil {
		return Instruction{}, fmt.Errorf("offset 0x%04X opcode 0x%02X: %w", off, op, d.err)
	}
	in.Size = uint16(d.pos - off)
	return in, nil
}

func decodeTable(d *decoder, in *Instruction) {
	switch in.Op {
	case OpMovConst, OpAddConst, OpAnd, OpOr, OpShl, OpShr:
		in.Var = d.u8()
		in.Imm = d.u16()
	case OpMov, OpAdd, OpSub:
		in.Var = d.u8()
		in.Src = d.u8()
	case OpCall, OpJmp:
		in.Target = d.u16()
	case OpRet, OpPause, OpKill:
	case OpSetVect, OpJnz:
		in.Var = d.u8()
		in.Target = d.u16()
	case OpCondJmp:
		decodeCondJmp(d, in)
	case OpSetPalette, OpUpdateMemList:
		in.Imm = d.u16()
	case OpResetThread:
		in.Args[0] = d.u8()
		in.Args[1] = d.u8()
		in.Args[2] = d.u8()
	case OpSelectPage, OpBlit:
		in.Args[0] = d.u8()
	case OpFillPage, OpCopyPage:
		in.Args[0] = d.u8()
		in.Args[1] = d.u8()
	case OpDrawString, OpPlaySound:
		in.Imm = d.u16()
		in.Args[0] = d.u8()
		in.Args[1] = d.u8()
		in.Args[2] = d.u8()
	case OpPlayMusic:
		in.Imm = d.u16()
		in.Imm2 = d.u16()
		in.Args[0] = d.u8()
	}
}

// decodeCondJmp reads cond, var, operand and target. Bit 7 of cond makes
// the operand a variable, bit 6 a 16-bit immediate, otherwise an 8-bit one.
func decodeCondJmp(d *decoder, in *Instruction) {
	cond := d.u8()
	c := &in.Cond
	c.Cond = cond
	c.Relation = cond & 7
	c.Var = d.u8()
	b := d.u8()
	switch {
	case cond&0x80 != 0:
		c.Operand = varOperand(b)
	case cond&0x40 != 0:
		c.Wide = true
		c.Operand = constOperand(int16(uint16(b)<<8 | uint16(d.u8())))
	default:
		c.Operand = constOperand(int16(b))
	}
	in.Target = d.u16()
}

func decodePolygonShort(d *decoder, op uint8, in *Instruction) {
	in.Op = OpPolygonShort
	off := (uint16(op)<<8 | uint16(d.u8())) * 2
	x := int16(d.u8())
	y := int16(d.u8())
	if h := y - screenMaxY; h > 0 {
		y = screenMaxY
		x += h
	}
	in.Poly = PolygonOperand{
		Offset:  off,
		Segment: SegCinematic,
		Color:   colorPolygonDefault,
		X:       constOperand(x),
		Y:       constOperand(y),
		Zoom:    constOperand(zoomDefault),
	}
}

// decodePolygonLong follows the field-presence cascade of the opcode byte:
// bits 5/4 select x, bits 3/2 select y, bits 1/0 select zoom and segment.
func decodePolygonLong(d *decoder, op uint8, in *Instruction) {
	in.Op = OpPolygonLong
	p := &in.Poly
	p.Offset = d.u16() * 2
	p.Segment = SegCinematic
	p.Color = colorPolygonDefault

	x := d.u8()
	switch {
	case op&0x20 == 0 && op&0x10 == 0:
		p.X = constOperand(int16(uint16(x)<<8 | uint16(d.u8())))
	case op&0x20 == 0:
		p.X = varOperand(x)
	case op&0x10 != 0:
		p.X = constOperand(int16(x) + 0x100)
	default:
		p.X = constOperand(int16(x))
	}

	y := d.u8()
	switch {
	case op&8 == 0 && op&4 == 0:
		p.Y = constOperand(int16(uint16(y)<<8 | uint16(d.u8())))
	case op&8 == 0:
		p.Y = varOperand(y)
	default:
		p.Y = constOperand(int16(y))
	}

	switch {
	case op&2 == 0 && op&1 == 0:
		p.Zoom = constOperand(zoomDefault)
	case op&2 == 0:
		p.Zoom = varOperand(d.u8())
	case op&1 == 0:
		p.Zoom = constOperand(int16(d.u8()))
	default:
		p.Zoom = constOperand(zoomDefault)
		p.Segment = SegVideo2
	}
}
