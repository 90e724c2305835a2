//go:build windows

// terminal_host_windows.go - Raw console keyboard for headless play

package main

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"
)

// TerminalHost reads the raw console and feeds key presses into an
// InputLatch.
type TerminalHost struct {
	keys  *terminalKeys
	fd    int
	saved *term.State

	quit     chan struct{}
	stopOnce sync.Once
}

func NewTerminalHost(latch *InputLatch) *TerminalHost {
	return &TerminalHost{
		keys: newTerminalKeys(latch),
		fd:   int(os.Stdin.Fd()),
		quit: make(chan struct{}),
	}
}

func (h *TerminalHost) Start() error {
	saved, err := term.MakeRaw(h.fd)
	if err != nil {
		return fmt.Errorf("raw console: %w", err)
	}
	h.saved = saved
	go h.readLoop()
	return nil
}

func (h *TerminalHost) readLoop() {
	var buf [16]byte
	for {
		n, err := os.Stdin.Read(buf[:])
		select {
		case <-h.quit:
			return
		default:
		}
		for _, b := range buf[:n] {
			h.keys.Feed(b)
		}
		if err != nil {
			engineLog.Warningf("stdin: %v", err)
			return
		}
	}
}

// Stop restores the console. A read blocked on stdin returns at the next
// key press and is discarded.
func (h *TerminalHost) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
	if h.saved != nil {
		term.Restore(h.fd, h.saved)
		h.saved = nil
	}
}
