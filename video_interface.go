// video_interface.go - Display output interface for the game host

package main

import "fmt"

// VideoError provides detailed error context for video operations
type VideoError struct {
	Operation string // What operation was being attempted
	Details   string // Additional error context
	Err       error  // Underlying error if any
}

func (e *VideoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("video %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("video %s failed: %s", e.Operation, e.Details)
}

func (e *VideoError) Unwrap() error { return e.Err }

// DisplayConfig contains hardware-independent configuration
type DisplayConfig struct {
	Width      int
	Height     int
	Scale      int // Integer scaling factor for the window
	Fullscreen bool
}

// VideoOutput is the surface presented frames end up on. Frames are
// Width*Height RGBA pixels.
type VideoOutput interface {
	Start() error
	Stop() error
	Close() error
	IsStarted() bool

	SetDisplayConfig(config DisplayConfig) error
	GetDisplayConfig() DisplayConfig
	UpdateFrame(buffer []byte) error

	GetFrameCount() uint64
}

// StatusSource feeds the host status bar.
type StatusSource interface {
	StatusLine() string
}

const (
	minScale = 1
	maxScale = 6
)

// ClampScale keeps a window scale factor within the supported range.
func ClampScale(scale int) int {
	return min(max(scale, minScale), maxScale)
}

// Predefined video backend types
const (
	VIDEO_BACKEND_EBITEN = iota // Windowed Ebiten host
	VIDEO_BACKEND_HEADLESS      // No window, frames are counted and kept
)

// NewVideoOutput creates a new video output instance using the specified backend
func NewVideoOutput(backend int, input *InputLatch) (VideoOutput, error) {
	switch backend {
	case VIDEO_BACKEND_EBITEN:
		return NewEbitenOutput(input)
	case VIDEO_BACKEND_HEADLESS:
		return NewHeadlessOutput(), nil
	}
	return nil, &VideoError{
		Operation: "backend creation",
		Details:   fmt.Sprintf("unknown backend type: %d", backend),
	}
}
