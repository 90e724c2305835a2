// vm_engine.go - Cooperative 64-channel script scheduler

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
	"errors"
	"fmt"
	"time"
)

const (
	numChannels    = 64
	numVariables   = 256
	callStackDepth = 64

	pcInactive  uint16 = 0xFFFF
	pcNoRequest uint16 = 0xFFFF
	pcDelete    uint16 = 0xFFFE
)

// Variables with a fixed meaning.
const (
	varRandomSeed       = 0x3C
	varInitMarker       = 0x54
	varFirstPartFlag    = 0x67
	varLastKeyChar      = 0xDA
	varFirstPartFixup   = 0xDC
	varPartSwitchMarker = 0xE4
	varHeroUpDown       = 0xE5
	varMusicMark        = 0xF4
	varBlitCounter      = 0xF7
	varScrollY          = 0xF9
	varHeroAction       = 0xFA
	varHeroJumpDown     = 0xFB
	varHeroLeftRight    = 0xFC
	varHeroPosMask      = 0xFD
	varHeroActionMask   = 0xFE
	varPauseSlices      = 0xFF
)

var (
	ErrStackOverflow  = errors.New("script call stack overflow")
	ErrStackUnderflow = errors.New("script call stack underflow")
	ErrProgramOverrun = errors.New("script ran past end of program")
)

// OpcodeError reports an instruction the interpreter cannot execute.
type OpcodeError struct {
	Offset uint16
	Opcode uint8
}

func (e *OpcodeError) Error() string {
	return fmt.Sprintf("invalid opcode 0x%02X at 0x%04X", e.Opcode, e.Offset)
}

// Channel is the saved state of one script thread. Requested fields are
// written by scripts and applied at the next barrier.
type Channel struct {
	PC              uint16
	RequestedPC     uint16
	Active          bool
	RequestedActive bool
}

// markSource is implemented by audio sinks whose music carries sync marks.
type markSource interface {
	TakeMark() (int16, bool)
}

// VM runs the bytecode of the current part.
type VM struct {
	Vars     [numVariables]int16
	Channels [numChannels]Channel

	// FastMode disables frame pacing.
	FastMode bool

	res      *Resources
	video    Renderer
	audio    AudioSink
	platform Platform

	prog      *Program
	stack     [callStackDepth]uint16
	sp        int
	lastFrame time.Time

	// OnPartChange is called after a part switch has been applied.
	OnPartChange func(part uint16)
}

func NewVM(res *Resources, video Renderer, audio AudioSink, platform Platform) *VM {
	return &VM{res: res, video: video, audio: audio, platform: platform}
}

// Init clears the variable store and seeds the fixed variables.
func (vm *VM) Init() {
	vm.Vars = [numVariables]int16{}
	vm.Vars[varInitMarker] = 0x81
	vm.Vars[varRandomSeed] = int16(vm.platform.Now().Unix())
	vm.FastMode = false
	vm.lastFrame = time.Time{}
}

// InitForPart stops audio, loads part and restarts every channel with
// channel 0 at address 0.
func (vm *VM) InitForPart(part uint16) error {
	vm.audio.StopAll()
	vm.Vars[varPartSwitchMarker] = 0x14

	if err := vm.res.SelectPart(part); err != nil {
		return err
	}
	prog, err := vm.res.Program()
	if err != nil {
		return err
	}
	vm.prog = prog

	for i := range vm.Channels {
		vm.Channels[i] = Channel{PC: pcInactive, RequestedPC: pcNoRequest, Active: true, RequestedActive: true}
	}
	vm.Channels[0].PC = 0

	vmLog.Infof("entered part 0x%04X (%d instructions)", part, len(prog.Instructions))
	if vm.OnPartChange != nil {
		vm.OnPartChange(part)
	}
	return nil
}

// Program returns the program being executed.
func (vm *VM) Program() *Program { return vm.prog }

// CheckRequests is the frame barrier: a pending part switch is applied
// first, then each channel's requested state and vector.
func (vm *VM) CheckRequests() error {
	if part := vm.res.RequestedPart; part != noPartRequested {
		vm.res.RequestedPart = noPartRequested
		if err := vm.InitForPart(part); err != nil {
			return err
		}
	}

	for i := range vm.Channels {
		ch := &vm.Channels[i]
		ch.Active = ch.RequestedActive
		if ch.RequestedPC != pcNoRequest {
			if ch.RequestedPC == pcDelete {
				ch.PC = pcInactive
			} else {
				ch.PC = ch.RequestedPC
			}
			ch.RequestedPC = pcNoRequest
		}
	}

	if ms, ok := vm.audio.(markSource); ok {
		if mark, ok := ms.TakeMark(); ok {
			vm.Vars[varMusicMark] = mark
		}
	}
	return nil
}

// HostFrame runs every active channel once, in ascending order, until it
// yields.
func (vm *VM) HostFrame() error {
	if vm.prog == nil {
		return errors.New("no program loaded")
	}
	for i := range vm.Channels {
		ch := &vm.Channels[i]
		if !ch.Active || ch.PC == pcInactive {
			continue
		}
		pc, err := vm.runChannel(ch.PC)
		if err != nil {
			return fmt.Errorf("channel %d: %w", i, err)
		}
		ch.PC = pc
		if vm.platform.Input().Quit {
			break
		}
	}
	return nil
}

// runChannel executes from pc until a yield and returns the address to
// resume at.
func (vm *VM) runChannel(pc uint16) (uint16, error) {
	vm.sp = 0
	idx, err := vm.prog.IndexOf(pc)
	if err != nil {
		return pc, err
	}
	for {
		in := &vm.prog.Instructions[idx]
		next, yield, err := vm.execute(in)
		if err != nil {
			return in.Offset, err
		}
		if yield {
			return next, nil
		}
		if fall := in.Offset + in.Size; next == fall {
			idx++
			if idx >= len(vm.prog.Instructions) {
				return next, fmt.Errorf("after 0x%04X: %w", in.Offset, ErrProgramOverrun)
			}
			continue
		}
		if idx, err = vm.prog.IndexOf(next); err != nil {
			return in.Offset, fmt.Errorf("from 0x%04X: %w", in.Offset, err)
		}
	}
}

func (vm *VM) push(addr uint16) error {
	if vm.sp >= callStackDepth {
		return ErrStackOverflow
	}
	vm.stack[vm.sp] = addr
	vm.sp++
	return nil
}

func (vm *VM) pop() (uint16, error) {
	if vm.sp == 0 {
		return 0, ErrStackUnderflow
	}
	vm.sp--
	return vm.stack[vm.sp], nil
}
