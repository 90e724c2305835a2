// engine.go - Game engine: resources, script VM, video and sound together

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
	"context"
	"errors"
	"fmt"
	"sync"
)

// Engine owns every subsystem of a running game.
type Engine struct {
	cfg   *Config
	banks *BankSet
	out   VideoOutput
	latch *InputLatch

	res      *Resources
	vm       *VM
	video    *Video
	sound    *Sound
	platform Platform
	audio    *OtoPlayer
	script   *ScriptHook

	slot   int
	frames uint64

	// status is read by the display goroutine.
	statusMu sync.Mutex
	status   string
}

func NewEngine(cfg *Config, out VideoOutput, latch *InputLatch) *Engine {
	return &Engine{
		cfg:      cfg,
		banks:    NewBankSet(cfg.Data.Dir),
		out:      out,
		latch:    latch,
		platform: NewHostPlatform(latch),
		slot:     cfg.Save.Slot,
	}
}

// Init reads the resource directory and enters the configured part.
func (e *Engine) Init() error {
	descs, err := e.banks.OpenDirectory()
	if err != nil {
		return err
	}
	engineLog.Infof("%d resources in %s", len(descs), e.banks.Dir())

	e.res = NewResources(e.banks, descs)
	e.video = NewVideo(e.res, e.out)
	e.res.OnBitmap = e.video.CopyBitmap
	e.sound = NewSound(e.res, e.cfg.Audio.SampleRate)
	e.vm = NewVM(e.res, e.video, e.sound, e.platform)
	e.vm.OnPartChange = func(part uint16) {
		engineLog.Noticef("part 0x%04X", part)
	}

	e.vm.Init()
	e.vm.FastMode = e.cfg.Engine.FastMode
	if err := e.vm.InitForPart(e.cfg.Engine.Part); err != nil {
		return err
	}
	e.updateStatus()
	return nil
}

// StartAudio opens the output device and starts pulling from the mixer.
func (e *Engine) StartAudio() error {
	m := e.sound.Mixer()
	p, err := NewOtoPlayer(m, m.SampleRate())
	if err != nil {
		return fmt.Errorf("audio output: %w", err)
	}
	p.Start()
	e.audio = p
	return nil
}

// AttachScript runs hook once per frame before the channels execute.
func (e *Engine) AttachScript(hook *ScriptHook) { e.script = hook }

// Run executes frames until the player quits or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	for !e.platform.Input().Quit {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Frame(); err != nil {
			return err
		}
	}
	engineLog.Infof("quit after %d frames", e.frames)
	return nil
}

// Frame runs one pass of the main loop: the barrier, input, engine keys
// and one slice of every channel.
func (e *Engine) Frame() error {
	if err := e.vm.CheckRequests(); err != nil {
		return err
	}
	e.vm.UpdateInput()
	e.processEngineKeys()
	if e.script != nil {
		if err := e.script.OnFrame(); err != nil {
			scriptLog.Errorf("%v", err)
		}
	}
	if err := e.vm.HostFrame(); err != nil {
		return err
	}
	e.frames++
	e.updateStatus()
	return nil
}

func (e *Engine) processEngineKeys() {
	in := e.platform.Input()
	if in.Load {
		in.Load = false
		if err := e.LoadState(e.slot); err != nil {
			engineLog.Warningf("load slot %d: %v", e.slot, err)
		}
	}
	if in.Save {
		in.Save = false
		if err := e.SaveState(e.slot, "quicksave"); err != nil {
			engineLog.Warningf("save slot %d: %v", e.slot, err)
		}
	}
	if in.FastMode {
		in.FastMode = false
		e.vm.FastMode = !e.vm.FastMode
		engineLog.Infof("fast mode %v", e.vm.FastMode)
	}
	if in.StateSlot != 0 {
		if slot := e.slot + in.StateSlot; slot >= 0 && slot < maxSaveSlots {
			e.slot = slot
			engineLog.Infof("state slot %d", e.slot)
		}
		in.StateSlot = 0
	}
}

// Var returns script variable i.
func (e *Engine) Var(i uint8) int16 { return e.vm.Vars[i] }

func (e *Engine) SetVar(i uint8, v int16) { e.vm.Vars[i] = v }

// Part returns the part being played.
func (e *Engine) Part() uint16 { return e.res.CurrentPart() }

// RequestPart switches to part at the next barrier.
func (e *Engine) RequestPart(part uint16) error {
	if !ValidPart(part) {
		return fmt.Errorf("part 0x%04X: %w", part, ErrInvalidPart)
	}
	e.res.RequestedPart = part
	return nil
}

func (e *Engine) Slot() int { return e.slot }

func (e *Engine) Frames() uint64 { return e.frames }

func (e *Engine) updateStatus() {
	fast := ""
	if e.vm.FastMode {
		fast = " fast"
	}
	s := fmt.Sprintf("part %04X  slot %02d%s  %s", e.res.CurrentPart(), e.slot, fast, e.sound.StatusLine())
	e.statusMu.Lock()
	e.status = s
	e.statusMu.Unlock()
}

func (e *Engine) StatusLine() string {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	return e.status
}

// Close stops sound and the automation script.
func (e *Engine) Close() error {
	var errs []error
	if e.sound != nil {
		e.sound.StopAll()
	}
	if e.audio != nil {
		e.audio.Close()
	}
	if e.script != nil {
		errs = append(errs, e.script.Close())
	}
	return errors.Join(errs...)
}
