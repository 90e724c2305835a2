//go:build !headless

// video_backend_ebiten.go - Ebiten window host: frames out, keys in

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
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

const maxPasteBytes = 64

type EbitenOutput struct {
	running     atomic.Bool
	window      *ebiten.Image
	width       int
	height      int
	fullscreen  bool
	scale       int
	frameBuffer []byte
	bufferMutex sync.RWMutex
	frameCount  atomic.Uint64
	vsyncChan   chan struct{}
	done        chan struct{}

	input  *InputLatch
	status StatusSource

	clipboardOnce sync.Once
	clipboardOK   bool
	showStatusBar bool
}

func NewEbitenOutput(input *InputLatch) (VideoOutput, error) {
	if input == nil {
		input = NewInputLatch()
	}
	return &EbitenOutput{
		width:       screenWidth,
		height:      screenHeight,
		scale:       3,
		frameBuffer: make([]byte, screenWidth*screenHeight*4),
		vsyncChan:   make(chan struct{}, 1),
		done:        make(chan struct{}),
		input:       input,
	}, nil
}

func (eo *EbitenOutput) Start() error {
	if eo.running.Load() {
		return nil
	}
	eo.bufferMutex.Lock()
	eo.done = make(chan struct{})
	eo.bufferMutex.Unlock()
	eo.running.Store(true)
	ebiten.SetWindowSize(eo.width*eo.scale, eo.height*eo.scale)
	ebiten.SetWindowTitle("Another World")
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	ebiten.SetWindowClosingHandled(true)
	if eo.fullscreen {
		ebiten.SetFullscreen(true)
	}

	go func() {
		defer func() {
			eo.running.Store(false)
			eo.input.Trigger(EventQuit)
			eo.bufferMutex.RLock()
			done := eo.done
			eo.bufferMutex.RUnlock()
			select {
			case <-done:
			default:
				close(done)
			}
		}()
		if err := ebiten.RunGame(eo); err != nil {
			fmt.Printf("Ebiten error: %v\n", err)
		}
	}()

	// Wait for first Draw call to ensure Ebiten is ready
	<-eo.vsyncChan
	return nil
}

func (eo *EbitenOutput) Stop() error {
	eo.running.Store(false)
	return nil
}

func (eo *EbitenOutput) Close() error {
	return eo.Stop()
}

// Done is closed once the window has gone away.
func (eo *EbitenOutput) Done() <-chan struct{} {
	eo.bufferMutex.RLock()
	done := eo.done
	eo.bufferMutex.RUnlock()
	return done
}

func (eo *EbitenOutput) UpdateFrame(data []byte) error {
	eo.bufferMutex.Lock()
	copy(eo.frameBuffer, data)
	eo.bufferMutex.Unlock()
	return nil
}

func (eo *EbitenOutput) SetDisplayConfig(config DisplayConfig) error {
	eo.bufferMutex.Lock()
	defer eo.bufferMutex.Unlock()

	if config.Width > 0 && config.Height > 0 && (config.Width != eo.width || config.Height != eo.height) {
		eo.width = config.Width
		eo.height = config.Height
		eo.frameBuffer = make([]byte, eo.width*eo.height*4)
		if eo.window != nil {
			eo.window.Dispose()
			eo.window = nil
		}
	}
	eo.scale = ClampScale(config.Scale)
	eo.fullscreen = config.Fullscreen
	if eo.running.Load() {
		ebiten.SetFullscreen(eo.fullscreen)
		if !eo.fullscreen {
			ebiten.SetWindowSize(eo.width*eo.scale, eo.height*eo.scale)
		}
	}
	return nil
}

func (eo *EbitenOutput) GetDisplayConfig() DisplayConfig {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	return DisplayConfig{
		Width:      eo.width,
		Height:     eo.height,
		Scale:      eo.scale,
		Fullscreen: eo.fullscreen,
	}
}

func (eo *EbitenOutput) GetFrameCount() uint64 {
	return eo.frameCount.Load()
}

func (eo *EbitenOutput) IsStarted() bool {
	return eo.running.Load()
}

// SetStatusSource installs the text shown in the F12 status bar.
func (eo *EbitenOutput) SetStatusSource(s StatusSource) {
	eo.bufferMutex.Lock()
	eo.status = s
	eo.bufferMutex.Unlock()
}

func (eo *EbitenOutput) SetStatusBarVisible(show bool) {
	eo.bufferMutex.Lock()
	eo.showStatusBar = show
	eo.bufferMutex.Unlock()
}

func (eo *EbitenOutput) Update() error {
	if ebiten.IsWindowBeingClosed() || !eo.running.Load() {
		eo.input.Trigger(EventQuit)
		return ebiten.Termination
	}
	if eo.input.Quitting() {
		return ebiten.Termination
	}
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	alt := ebiten.IsKeyPressed(ebiten.KeyAltLeft) || ebiten.IsKeyPressed(ebiten.KeyAltRight)

	if inpututil.IsKeyJustPressed(ebiten.KeyF11) || (alt && inpututil.IsKeyJustPressed(ebiten.KeyEnter)) {
		eo.bufferMutex.Lock()
		eo.fullscreen = !eo.fullscreen
		ebiten.SetFullscreen(eo.fullscreen)
		if !eo.fullscreen {
			ebiten.SetWindowSize(eo.width*eo.scale, eo.height*eo.scale)
		}
		eo.bufferMutex.Unlock()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		eo.bufferMutex.Lock()
		eo.showStatusBar = !eo.showStatusBar
		eo.bufferMutex.Unlock()
	}
	if ctrl {
		eo.handleControlKeys()
		return nil
	}
	if !alt {
		eo.handleGameKeys()
	}
	return nil
}

// ctrlBindings are the engine keys, all taken with Ctrl held.
var ctrlBindings = []struct {
	key   ebiten.Key
	event HostEvent
}{
	{ebiten.KeyS, EventSave},
	{ebiten.KeyL, EventLoad},
	{ebiten.KeyF, EventFastMode},
	{ebiten.KeyNumpadAdd, EventSlotUp},
	{ebiten.KeyEqual, EventSlotUp},
	{ebiten.KeyNumpadSubtract, EventSlotDown},
	{ebiten.KeyMinus, EventSlotDown},
	{ebiten.KeyX, EventQuit},
}

func (eo *EbitenOutput) handleControlKeys() {
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	if shift && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		eo.handleClipboardPaste()
		return
	}
	for _, b := range ctrlBindings {
		if inpututil.IsKeyJustPressed(b.key) {
			eo.input.Trigger(b.event)
		}
	}
}

var directionKeys = []struct {
	key ebiten.Key
	dir uint8
}{
	{ebiten.KeyArrowLeft, DirLeft},
	{ebiten.KeyArrowRight, DirRight},
	{ebiten.KeyArrowUp, DirUp},
	{ebiten.KeyArrowDown, DirDown},
}

func (eo *EbitenOutput) handleGameKeys() {
	for _, d := range directionKeys {
		eo.input.SetDirection(d.dir, ebiten.IsKeyPressed(d.key))
	}
	eo.input.SetButton(ebiten.IsKeyPressed(ebiten.KeySpace) || ebiten.IsKeyPressed(ebiten.KeyEnter))

	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		eo.input.Trigger(EventCode)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		eo.input.Trigger(EventPause)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		eo.input.TypeChar('\b')
	}
	for _, r := range ebiten.AppendInputChars(nil) {
		if b, ok := runeToInputByte(r); ok {
			eo.input.TypeChar(b)
		}
	}
}

func (eo *EbitenOutput) handleClipboardPaste() {
	eo.clipboardOnce.Do(func() {
		eo.clipboardOK = clipboard.Init() == nil
	})
	if !eo.clipboardOK {
		return
	}
	data := clipboard.Read(clipboard.FmtText)
	if len(data) == 0 {
		return
	}
	if len(data) > maxPasteBytes {
		data = data[:maxPasteBytes]
	}
	eo.input.TypeText(string(data))
}

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	if eo.window == nil {
		eo.window = ebiten.NewImage(eo.width, eo.height)
	}

	eo.bufferMutex.RLock()
	eo.window.WritePixels(eo.frameBuffer)
	showStatusBar := eo.showStatusBar
	status := eo.status
	eo.bufferMutex.RUnlock()
	screen.DrawImage(eo.window, nil)
	if showStatusBar && status != nil {
		eo.drawStatusBar(screen, status.StatusLine())
	}

	eo.frameCount.Add(1)
	select {
	case eo.vsyncChan <- struct{}{}:
	default:
	}
}

func (eo *EbitenOutput) Layout(_, _ int) (int, int) {
	return eo.width, eo.height
}

func (eo *EbitenOutput) drawStatusBar(screen *ebiten.Image, line string) {
	face := basicfont.Face7x13
	barHeight := 16
	if barHeight >= eo.height {
		return
	}
	y := eo.height - barHeight
	ebitenutil.DrawRect(screen, 0, float64(y), float64(eo.width), float64(barHeight), color.RGBA{0, 0, 0, 180})
	text.Draw(screen, line, face, 4, y+12, color.RGBA{0, 220, 90, 255})
}
