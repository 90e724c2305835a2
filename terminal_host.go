//go:build !windows

// terminal_host.go - Raw stdin keyboard for headless play

package main

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

const terminalPoll = 5 * time.Millisecond

// TerminalHost reads raw stdin and feeds key presses into an InputLatch.
type TerminalHost struct {
	keys  *terminalKeys
	fd    int
	saved *term.State

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewTerminalHost(latch *InputLatch) *TerminalHost {
	return &TerminalHost{
		keys: newTerminalKeys(latch),
		fd:   int(os.Stdin.Fd()),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start puts stdin into raw non-blocking mode and starts the reader.
// Stop restores the terminal.
func (h *TerminalHost) Start() error {
	saved, err := term.MakeRaw(h.fd)
	if err != nil {
		close(h.done)
		return fmt.Errorf("raw terminal: %w", err)
	}
	if err := syscall.SetNonblock(h.fd, true); err != nil {
		term.Restore(h.fd, saved)
		close(h.done)
		return fmt.Errorf("non-blocking stdin: %w", err)
	}
	h.saved = saved
	go h.readLoop()
	return nil
}

func (h *TerminalHost) readLoop() {
	defer close(h.done)
	var buf [16]byte
	for {
		select {
		case <-h.quit:
			return
		default:
		}
		n, err := syscall.Read(h.fd, buf[:])
		for _, b := range buf[:max(n, 0)] {
			h.keys.Feed(b)
		}
		switch {
		case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EWOULDBLOCK), err == nil && n == 0:
			time.Sleep(terminalPoll)
		case err != nil:
			engineLog.Warningf("stdin: %v", err)
			return
		}
	}
}

func (h *TerminalHost) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
	<-h.done
	if h.saved != nil {
		syscall.SetNonblock(h.fd, false)
		term.Restore(h.fd, h.saved)
		h.saved = nil
	}
}
