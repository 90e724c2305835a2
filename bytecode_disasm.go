// bytecode_disasm.go - Program listing

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Disassemble writes one line per instruction:
//
//	OFFSET: BYTES  MNEMONIC operands
func Disassemble(w io.Writer, prog *Program) error {
	bw := bufio.NewWriter(w)
	for i := range prog.Instructions {
		in := &prog.Instructions[i]
		raw := prog.Bytes(in)
		var hex strings.Builder
		for j, b := range raw {
			if j == 8 {
				hex.WriteString("..")
				break
			}
			fmt.Fprintf(&hex, "%02X", b)
		}
		fmt.Fprintf(bw, "%04X: %-18s %-8s %s\n", in.Offset, hex.String(), in.Op, FormatOperands(in))
	}
	return bw.Flush()
}

// FormatOperands renders the operands of in as assembler text.
func FormatOperands(in *Instruction) string {
	switch in.Op {
	case OpMovConst, OpAddConst, OpAnd, OpOr, OpShl, OpShr:
		return fmt.Sprintf("v%02X, %d", in.Var, int16(in.Imm))
	case OpMov, OpAdd, OpSub:
		return fmt.Sprintf("v%02X, v%02X", in.Var, in.Src)
	case OpCall, OpJmp:
		return fmt.Sprintf("0x%04X", in.Target)
	case OpSetVect:
		return fmt.Sprintf("ch%d, 0x%04X", in.Var, in.Target)
	case OpJnz:
		return fmt.Sprintf("v%02X, 0x%04X", in.Var, in.Target)
	case OpCondJmp:
		c := in.Cond
		return fmt.Sprintf("v%02X %s %s, 0x%04X", c.Var, relationSymbols[c.Relation], c.Operand, in.Target)
	case OpSetPalette:
		return fmt.Sprintf("%d", in.Imm>>8)
	case OpUpdateMemList:
		return fmt.Sprintf("0x%04X", in.Imm)
	case OpResetThread:
		modes := [...]string{"unfreeze", "freeze", "delete"}
		mode := fmt.Sprintf("mode%d", in.Args[2])
		if int(in.Args[2]) < len(modes) {
			mode = modes[in.Args[2]]
		}
		return fmt.Sprintf("ch%d..ch%d, %s", in.Args[0], in.Args[1]&0x3F, mode)
	case OpSelectPage, OpBlit:
		return fmt.Sprintf("page 0x%02X", in.Args[0])
	case OpFillPage:
		return fmt.Sprintf("page 0x%02X, color %d", in.Args[0], in.Args[1])
	case OpCopyPage:
		return fmt.Sprintf("0x%02X -> 0x%02X", in.Args[0], in.Args[1])
	case OpDrawString:
		return fmt.Sprintf("str 0x%03X, %d, %d, color %d", in.Imm, in.Args[0], in.Args[1], in.Args[2])
	case OpPlaySound:
		return fmt.Sprintf("res 0x%02X, freq %d, vol %d, ch %d", in.Imm, in.Args[0], in.Args[1], in.Args[2])
	case OpPlayMusic:
		return fmt.Sprintf("res 0x%02X, delay %d, pos %d", in.Imm, in.Imm2, in.Args[0])
	case OpPolygonShort, OpPolygonLong:
		p := in.Poly
		return fmt.Sprintf("%s+0x%04X at (%s, %s) zoom %s", p.Segment, p.Offset, p.X, p.Y, p.Zoom)
	case OpUnknown:
		return fmt.Sprintf("0x%02X", in.Code)
	}
	return ""
}
