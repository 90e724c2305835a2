// vm_ops.go - Instruction semantics

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

import "time"

const (
	soundFixPart   uint16 = 0x3E86
	soundFixOffset uint16 = 0x6D47
	frameSlice            = 20 * time.Millisecond
	pausePoll             = 200 * time.Millisecond
)

// execute runs one instruction and returns the next address. yield ends
// the channel's slice.
func (vm *VM) execute(in *Instruction) (next uint16, yield bool, err error) {
	next = in.Offset + in.Size
	v := &vm.Vars

	switch in.Op {
	case OpMovConst:
		v[in.Var] = int16(in.Imm)
	case OpMov:
		v[in.Var] = v[in.Src]
	case OpAdd:
		v[in.Var] += v[in.Src]
	case OpAddConst:
		if vm.res.CurrentPart() == soundFixPart && in.Offset == soundFixOffset {
			// The gun loop in this part never plays its stop sound.
			vm.playSound(0x5B, 1, 64, 1)
		}
		v[in.Var] += int16(in.Imm)
	case OpCall:
		if err := vm.push(next); err != nil {
			return in.Offset, false, err
		}
		next = in.Target
	case OpRet:
		if next, err = vm.pop(); err != nil {
			return in.Offset, false, err
		}
	case OpPause:
		yield = true
	case OpJmp:
		next = in.Target
	case OpSetVect:
		if in.Var >= numChannels {
			vmLog.Warningf("setvec on channel %d at 0x%04X ignored", in.Var, in.Offset)
			break
		}
		vm.Channels[in.Var].RequestedPC = in.Target
	case OpJnz:
		v[in.Var]--
		if v[in.Var] != 0 {
			next = in.Target
		}
	case OpCondJmp:
		if vm.condition(in) {
			next = in.Target
		}
	case OpSetPalette:
		vm.video.RequestPalette(uint8(in.Imm >> 8))
	case OpResetThread:
		vm.resetThreads(in)
	case OpSelectPage:
		vm.video.SelectPage(in.Args[0])
	case OpFillPage:
		vm.video.FillPage(in.Args[0], in.Args[1])
	case OpCopyPage:
		vm.video.CopyPage(in.Args[0], in.Args[1], v[varScrollY])
	case OpBlit:
		if err := vm.blit(in.Args[0]); err != nil {
			return in.Offset, false, err
		}
	case OpKill:
		next, yield = pcInactive, true
	case OpDrawString:
		vm.video.DrawString(in.Args[2], uint16(in.Args[0]), uint16(in.Args[1]), in.Imm)
	case OpSub:
		v[in.Var] -= v[in.Src]
	case OpAnd:
		v[in.Var] &= int16(in.Imm)
	case OpOr:
		v[in.Var] |= int16(in.Imm)
	case OpShl:
		v[in.Var] <<= in.Imm
	case OpShr:
		v[in.Var] >>= in.Imm
	case OpPlaySound:
		vm.playSound(in.Imm, in.Args[0], in.Args[1], in.Args[2])
	case OpUpdateMemList:
		if in.Imm == 0 {
			vm.audio.StopAll()
			vm.res.InvalidateRoutine()
		} else if err := vm.res.RequestResource(in.Imm); err != nil {
			return in.Offset, false, err
		}
	case OpPlayMusic:
		vm.audio.PlayMusic(in.Imm, in.Imm2, in.Args[0])
	case OpPolygonShort, OpPolygonLong:
		p := &in.Poly
		vm.video.SetDataPage(p.Segment, p.Offset)
		vm.video.DrawPolygon(p.Color, uint16(p.Zoom.Resolve(v)), p.X.Resolve(v), p.Y.Resolve(v))
	default:
		return in.Offset, false, &OpcodeError{Offset: in.Offset, Opcode: in.Code}
	}
	return next, yield, nil
}

func (vm *VM) condition(in *Instruction) bool {
	b := vm.Vars[in.Cond.Var]
	a := in.Cond.Operand.Resolve(&vm.Vars)
	switch in.Cond.Relation {
	case RelEq:
		return b == a
	case RelNe:
		return b != a
	case RelGt:
		return b > a
	case RelGe:
		return b >= a
	case RelLt:
		return b < a
	case RelLe:
		return b <= a
	}
	vmLog.Warningf("cjmp at 0x%04X has invalid relation %d", in.Offset, in.Cond.Relation)
	return false
}

// resetThreads applies mode to channels first..last: 0 unfreezes, 1
// freezes, 2 deletes. The update lands at the next barrier.
func (vm *VM) resetThreads(in *Instruction) {
	first, last, mode := in.Args[0], in.Args[1]&(numChannels-1), in.Args[2]
	if last < first {
		vmLog.Warningf("rsthr at 0x%04X with empty range %d..%d", in.Offset, first, last)
		return
	}
	for i := int(first); i <= int(last); i++ {
		ch := &vm.Channels[i]
		switch mode {
		case 0:
			ch.RequestedActive = true
		case 1:
			ch.RequestedActive = false
		case 2:
			ch.RequestedPC = pcDelete
		}
	}
}

func (vm *VM) playSound(res uint16, freq, volume, channel uint8) {
	if _, ok := vm.res.Loaded(int(res)); !ok {
		return
	}
	vm.audio.PlaySound(res, freq, volume, channel)
}

// blit handles the pause and code keys, paces the frame to
// vars[0xFF]*20ms and presents page.
func (vm *VM) blit(page uint8) error {
	vm.handleSpecialKeys()

	if vm.res.CurrentPart() == PartFirst && vm.Vars[varFirstPartFlag] == 1 {
		vm.Vars[varFirstPartFixup] = 0x21
	}

	if !vm.FastMode {
		if !vm.lastFrame.IsZero() {
			wait := time.Duration(vm.Vars[varPauseSlices])*frameSlice - vm.platform.Now().Sub(vm.lastFrame)
			if wait > 0 {
				vm.platform.Sleep(wait)
			}
		}
		vm.lastFrame = vm.platform.Now()
	}

	vm.Vars[varBlitCounter] = 0
	return vm.video.Present(page)
}

func (vm *VM) handleSpecialKeys() {
	input := vm.platform.Input()
	part := vm.res.CurrentPart()

	if input.Pause {
		if part != PartFirst && part != PartIntro {
			input.Pause = false
			for !input.Pause && !input.Quit {
				vm.platform.ProcessEvents()
				vm.platform.Sleep(pausePoll)
			}
		}
		input.Pause = false
	}

	if input.Code {
		input.Code = false
		if part != PartLast && part != PartFirst {
			vm.res.RequestedPart = PartLast
		}
	}
}
