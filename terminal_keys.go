// terminal_keys.go - Raw terminal bytes to game input

package main

import "time"

// Terminals report key presses only, so directions and the action button
// are held for keyHold after each press.
const keyHold = 150 * time.Millisecond

const (
	keyCtrlC     = 0x03
	keyCtrlF     = 0x06
	keyBackspace = 0x08
	keyCtrlK     = 0x0B
	keyCtrlL     = 0x0C
	keyCtrlP     = 0x10
	keyCtrlS     = 0x13
	keyCtrlX     = 0x18
	keyEscape    = 0x1B
	keyDelete    = 0x7F
)

// terminalKeys decodes a raw byte stream, including ANSI arrow sequences,
// into InputLatch updates.
type terminalKeys struct {
	latch *InputLatch
	esc   int // bytes of an escape sequence seen so far

	// after schedules a key release.
	after func(d time.Duration, f func())
}

func newTerminalKeys(latch *InputLatch) *terminalKeys {
	return &terminalKeys{
		latch: latch,
		after: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

func (k *terminalKeys) Feed(b byte) {
	switch k.esc {
	case 1:
		if b == '[' || b == 'O' {
			k.esc = 2
			return
		}
		k.esc = 0
	case 2:
		k.esc = 0
		switch b {
		case 'A':
			k.pulseDirection(DirUp)
		case 'B':
			k.pulseDirection(DirDown)
		case 'C':
			k.pulseDirection(DirRight)
		case 'D':
			k.pulseDirection(DirLeft)
		}
		return
	}

	switch {
	case b == keyEscape:
		k.esc = 1
	case b == keyCtrlC, b == keyCtrlX:
		k.latch.Trigger(EventQuit)
	case b == keyCtrlP:
		k.latch.Trigger(EventPause)
	case b == keyCtrlK:
		k.latch.Trigger(EventCode)
	case b == keyCtrlS:
		k.latch.Trigger(EventSave)
	case b == keyCtrlL:
		k.latch.Trigger(EventLoad)
	case b == keyCtrlF:
		k.latch.Trigger(EventFastMode)
	case b == '+':
		k.latch.Trigger(EventSlotUp)
	case b == '-':
		k.latch.Trigger(EventSlotDown)
	case b == ' ', b == '\r', b == '\n':
		k.latch.SetButton(true)
		k.after(keyHold, func() { k.latch.SetButton(false) })
	case b == keyDelete, b == keyBackspace:
		k.latch.TypeChar(keyBackspace)
	default:
		if c, ok := runeToInputByte(rune(b)); ok {
			k.latch.TypeChar(c)
		}
	}
}

func (k *terminalKeys) pulseDirection(bit uint8) {
	k.latch.SetDirection(bit, true)
	k.after(keyHold, func() { k.latch.SetDirection(bit, false) })
}
