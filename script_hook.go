// script_hook.go - Lua automation scripts run once per frame

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
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/syncthing/notify"
	lua "github.com/yuin/gopher-lua"
)

const reloadSettle = 100 * time.Millisecond

// ScriptTarget is the game state automation scripts may read and drive.
type ScriptTarget interface {
	Var(i uint8) int16
	SetVar(i uint8, v int16)
	Part() uint16
	RequestPart(part uint16) error
	Frames() uint64
	Slot() int
}

// ScriptHook owns a Lua state whose global on_frame(frame) is called
// before the script channels run. The aw table gives the script access to
// variables, parts and input.
type ScriptHook struct {
	path    string
	target  ScriptTarget
	latch   *InputLatch
	L       *lua.LState
	onFrame *lua.LFunction

	reload atomic.Bool
	events chan notify.EventInfo
	stop   chan struct{}
	done   chan struct{}
}

func NewScriptHook(path string, target ScriptTarget, latch *InputLatch) (*ScriptHook, error) {
	h := &ScriptHook{path: path, target: target, latch: latch}
	if err := h.load(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *ScriptHook) load() error {
	L := lua.NewState()
	L.SetGlobal("aw", h.module(L))
	if err := L.DoFile(h.path); err != nil {
		L.Close()
		return fmt.Errorf("script %s: %w", h.path, err)
	}

	var fn *lua.LFunction
	switch v := L.GetGlobal("on_frame").(type) {
	case *lua.LFunction:
		fn = v
	case *lua.LNilType:
		scriptLog.Warningf("%s defines no on_frame function", h.path)
	default:
		L.Close()
		return fmt.Errorf("script %s: on_frame is a %s", h.path, v.Type())
	}

	if h.L != nil {
		h.L.Close()
	}
	h.L, h.onFrame = L, fn
	scriptLog.Infof("loaded %s", h.path)
	return nil
}

var scriptDirections = map[string]uint8{
	"left":  DirLeft,
	"right": DirRight,
	"up":    DirUp,
	"down":  DirDown,
}

var scriptEvents = map[string]HostEvent{
	"pause": EventPause,
	"code":  EventCode,
	"save":  EventSave,
	"load":  EventLoad,
	"fast":  EventFastMode,
	"quit":  EventQuit,
}

func (h *ScriptHook) module(L *lua.LState) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"get": func(L *lua.LState) int {
			L.Push(lua.LNumber(h.target.Var(checkVar(L, 1))))
			return 1
		},
		"set": func(L *lua.LState) int {
			h.target.SetVar(checkVar(L, 1), int16(L.CheckInt(2)))
			return 0
		},
		"part": func(L *lua.LState) int {
			L.Push(lua.LNumber(h.target.Part()))
			return 1
		},
		"request_part": func(L *lua.LState) int {
			if err := h.target.RequestPart(uint16(L.CheckInt(1))); err != nil {
				L.RaiseError("%v", err)
			}
			return 0
		},
		"frame": func(L *lua.LState) int {
			L.Push(lua.LNumber(h.target.Frames()))
			return 1
		},
		"slot": func(L *lua.LState) int {
			L.Push(lua.LNumber(h.target.Slot()))
			return 1
		},
		"key": func(L *lua.LState) int {
			name, down := L.CheckString(1), L.OptBool(2, true)
			if name == "button" {
				h.latch.SetButton(down)
				return 0
			}
			bit, ok := scriptDirections[name]
			if !ok {
				L.ArgError(1, "unknown key "+name)
			}
			h.latch.SetDirection(bit, down)
			return 0
		},
		"event": func(L *lua.LState) int {
			ev, ok := scriptEvents[L.CheckString(1)]
			if !ok {
				L.ArgError(1, "unknown event")
			}
			h.latch.Trigger(ev)
			return 0
		},
		"type": func(L *lua.LState) int {
			h.latch.TypeText(L.CheckString(1))
			return 0
		},
		"log": func(L *lua.LState) int {
			scriptLog.Notice(L.CheckString(1))
			return 0
		},
	})
}

func checkVar(L *lua.LState, n int) uint8 {
	i := L.CheckInt(n)
	if i < 0 || i >= numVariables {
		L.ArgError(n, "variable index out of range")
	}
	return uint8(i)
}

// OnFrame reloads the script if it changed and calls on_frame.
func (h *ScriptHook) OnFrame() error {
	if h.reload.Swap(false) {
		if err := h.load(); err != nil {
			scriptLog.Errorf("reload failed, keeping previous script: %v", err)
		}
	}
	if h.onFrame == nil {
		return nil
	}
	err := h.L.CallByParam(lua.P{Fn: h.onFrame, NRet: 0, Protect: true}, lua.LNumber(h.target.Frames()))
	if err != nil {
		return fmt.Errorf("on_frame: %w", err)
	}
	return nil
}

// Watch reloads the script at the next frame whenever the file changes.
// Editors often replace the file, so the directory is watched.
func (h *ScriptHook) Watch() error {
	abs, err := filepath.Abs(h.path)
	if err != nil {
		return err
	}
	h.events = make(chan notify.EventInfo, 1)
	if err := notify.Watch(filepath.Dir(abs), h.events, notify.Write, notify.Create, notify.Rename); err != nil {
		return fmt.Errorf("watching %s: %w", h.path, err)
	}
	h.stop = make(chan struct{})
	h.done = make(chan struct{})
	go h.watch(filepath.Base(abs))
	return nil
}

func (h *ScriptHook) watch(name string) {
	defer close(h.done)
	var timer *time.Timer
	timeout := func() <-chan time.Time {
		if timer != nil {
			return timer.C
		}
		return nil
	}
	for {
		select {
		case <-h.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev := <-h.events:
			if filepath.Base(ev.Path()) != name {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(reloadSettle)
		case <-timeout():
			timer = nil
			if _, err := os.Stat(h.path); err == nil {
				h.reload.Store(true)
			}
		}
	}
}

func (h *ScriptHook) Close() error {
	if h.events != nil {
		notify.Stop(h.events)
		close(h.stop)
		<-h.done
		h.events = nil
	}
	if h.L == nil {
		return errors.New("script already closed")
	}
	h.L.Close()
	h.L = nil
	return nil
}
