// vm_interfaces.go - Collaborators driven by the script engine

package main

import "time"

// Renderer receives the video requests issued by scripts.
type Renderer interface {
	SelectPage(page uint8)
	FillPage(page, color uint8)
	CopyPage(src, dst uint8, vscroll int16)
	SetDataPage(seg Segment, offset uint16)
	DrawPolygon(color uint8, zoom uint16, x, y int16)
	DrawString(color uint8, x, y uint16, stringID uint16)
	RequestPalette(id uint8)
	Present(page uint8) error
}

// AudioSink receives sound effect and music requests.
type AudioSink interface {
	PlaySound(res uint16, freq, volume, channel uint8)
	PlayMusic(res, delay uint16, pos uint8)
	StopAll()
}

// Direction bits of PlayerInput.DirMask.
const (
	DirLeft  uint8 = 1 << 0
	DirRight uint8 = 1 << 1
	DirUp    uint8 = 1 << 2
	DirDown  uint8 = 1 << 3
)

// PlayerInput is the latched input state. Edge-triggered requests (Pause,
// Code, Save, Load, FastMode, StateSlot) are cleared by whoever consumes
// them.
type PlayerInput struct {
	DirMask   uint8
	Button    bool
	Pause     bool
	Code      bool
	Quit      bool
	LastChar  byte
	Save      bool
	Load      bool
	FastMode  bool
	StateSlot int
}

// Platform supplies input and time.
type Platform interface {
	ProcessEvents()
	Input() *PlayerInput
	Now() time.Time
	Sleep(d time.Duration)
}
