// engine_platform.go - Host input latch and wall-clock platform

package main

import (
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"
)

// HostEvent is a one-shot request raised by a host.
type HostEvent int

const (
	EventPause HostEvent = iota
	EventCode
	EventSave
	EventLoad
	EventFastMode
	EventSlotUp
	EventSlotDown
	EventQuit
)

const maxTypeAhead = 64

// InputLatch collects key state from a host goroutine. The engine takes a
// copy once per frame through HostPlatform.ProcessEvents.
type InputLatch struct {
	mu      sync.Mutex
	dir     uint8
	button  bool
	pending PlayerInput
	chars   []byte
}

func NewInputLatch() *InputLatch {
	return &InputLatch{}
}

// SetDirection records a direction key going down or up.
func (l *InputLatch) SetDirection(bit uint8, down bool) {
	l.mu.Lock()
	if down {
		l.dir |= bit
	} else {
		l.dir &^= bit
	}
	l.mu.Unlock()
}

func (l *InputLatch) SetButton(down bool) {
	l.mu.Lock()
	l.button = down
	l.mu.Unlock()
}

// Trigger latches ev until the engine picks it up.
func (l *InputLatch) Trigger(ev HostEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch ev {
	case EventPause:
		l.pending.Pause = true
	case EventCode:
		l.pending.Code = true
	case EventSave:
		l.pending.Save = true
	case EventLoad:
		l.pending.Load = true
	case EventFastMode:
		l.pending.FastMode = true
	case EventSlotUp:
		l.pending.StateSlot++
	case EventSlotDown:
		l.pending.StateSlot--
	case EventQuit:
		l.pending.Quit = true
	}
}

// TypeChar queues one typed character for the password screen.
func (l *InputLatch) TypeChar(c byte) {
	l.mu.Lock()
	if len(l.chars) < maxTypeAhead {
		l.chars = append(l.chars, c)
	}
	l.mu.Unlock()
}

// TypeText queues pasted or scripted text. Accented letters are reduced to
// their base letter; anything that is not a letter or digit is dropped.
func (l *InputLatch) TypeText(s string) {
	for _, c := range passwordChars(s) {
		l.TypeChar(c)
	}
}

func passwordChars(s string) []byte {
	var out []byte
	for _, r := range norm.NFKD.String(s) {
		if c, ok := runeToInputByte(r); ok {
			out = append(out, c)
		}
	}
	return out
}

// runeToInputByte maps a typed rune to the lower-case letter or digit the
// password screen accepts.
func runeToInputByte(r rune) (byte, bool) {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return byte(r), true
	case r >= 'A' && r <= 'Z':
		return byte(r) + ('a' - 'A'), true
	}
	return 0, false
}

// Quitting reports whether a quit has been requested.
func (l *InputLatch) Quitting() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending.Quit
}

// HostPlatform implements Platform on top of an InputLatch and the system
// clock.
type HostPlatform struct {
	latch *InputLatch
	input PlayerInput
}

func NewHostPlatform(latch *InputLatch) *HostPlatform {
	return &HostPlatform{latch: latch}
}

func (p *HostPlatform) ProcessEvents() {
	l := p.latch
	l.mu.Lock()
	defer l.mu.Unlock()

	in := &p.input
	in.DirMask = l.dir
	in.Button = l.button
	in.Pause = in.Pause || l.pending.Pause
	in.Code = in.Code || l.pending.Code
	in.Save = in.Save || l.pending.Save
	in.Load = in.Load || l.pending.Load
	in.FastMode = in.FastMode || l.pending.FastMode
	in.Quit = in.Quit || l.pending.Quit
	in.StateSlot += l.pending.StateSlot
	quit := l.pending.Quit
	l.pending = PlayerInput{Quit: quit}

	if in.LastChar == 0 && len(l.chars) > 0 {
		in.LastChar = l.chars[0]
		l.chars = l.chars[1:]
	}
}

func (p *HostPlatform) Input() *PlayerInput { return &p.input }

func (p *HostPlatform) Now() time.Time { return time.Now() }

func (p *HostPlatform) Sleep(d time.Duration) { time.Sleep(d) }
