// bytecode_opcodes.go - Script opcode set

package main

import "fmt"

// Opcode identifies a decoded instruction. Values 0x00-0x1A match the
// leading byte; the polygon forms and unknown bytes get synthetic values.
type Opcode uint8

const (
	OpMovConst      Opcode = 0x00
	OpMov           Opcode = 0x01
	OpAdd           Opcode = 0x02
	OpAddConst      Opcode = 0x03
	OpCall          Opcode = 0x04
	OpRet           Opcode = 0x05
	OpPause         Opcode = 0x06
	OpJmp           Opcode = 0x07
	OpSetVect       Opcode = 0x08
	OpJnz           Opcode = 0x09
	OpCondJmp       Opcode = 0x0A
	OpSetPalette    Opcode = 0x0B
	OpResetThread   Opcode = 0x0C
	OpSelectPage    Opcode = 0x0D
	OpFillPage      Opcode = 0x0E
	OpCopyPage      Opcode = 0x0F
	OpBlit          Opcode = 0x10
	OpKill          Opcode = 0x11
	OpDrawString    Opcode = 0x12
	OpSub           Opcode = 0x13
	OpAnd           Opcode = 0x14
	OpOr            Opcode = 0x15
	OpShl           Opcode = 0x16
	OpShr           Opcode = 0x17
	OpPlaySound     Opcode = 0x18
	OpUpdateMemList Opcode = 0x19
	OpPlayMusic     Opcode = 0x1A

	OpPolygonShort Opcode = 0xF0 // leading byte has bit 7 set
	OpPolygonLong  Opcode = 0xF1 // leading byte has bit 6 set
	OpUnknown      Opcode = 0xFF

	lastTableOpcode = OpPlayMusic
)

var opcodeMnemonics = map[Opcode]string{
	OpMovConst:      "movc",
	OpMov:           "mov",
	OpAdd:           "add",
	OpAddConst:      "addc",
	OpCall:          "call",
	OpRet:           "ret",
	OpPause:         "pause",
	OpJmp:           "jmp",
	OpSetVect:       "setvec",
	OpJnz:           "jnz",
	OpCondJmp:       "cjmp",
	OpSetPalette:    "setpal",
	OpResetThread:   "rsthr",
	OpSelectPage:    "selpage",
	OpFillPage:      "fillpage",
	OpCopyPage:      "copypage",
	OpBlit:          "blit",
	OpKill:          "kill",
	OpDrawString:    "text",
	OpSub:           "sub",
	OpAnd:           "and",
	OpOr:            "or",
	OpShl:           "shl",
	OpShr:           "shr",
	OpPlaySound:     "sound",
	OpUpdateMemList: "updres",
	OpPlayMusic:     "music",
	OpPolygonShort:  "poly",
	OpPolygonLong:   "polyx",
	OpUnknown:       "db",
}

func (op Opcode) String() string {
	if s, ok := opcodeMnemonics[op]; ok {
		return s
	}
	return fmt.Sprintf("op(0x%02X)", uint8(op))
}

// Yields reports whether the opcode ends the channel's slice.
func (op Opcode) Yields() bool { return op == OpPause || op == OpKill }

// Relations used by CondJmp, indexed by cond&7. 6 and 7 never branch.
const (
	RelEq = iota
	RelNe
	RelGt
	RelGe
	RelLt
	RelLe
)

var relationSymbols = [8]string{"==", "!=", ">", ">=", "<", "<=", "?6", "?7"}
