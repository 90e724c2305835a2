package main

import (
	"sync"
	"sync/atomic"
)

// HeadlessVideoOutput keeps the last frame in memory instead of showing it.
type HeadlessVideoOutput struct {
	mu         sync.Mutex
	started    bool
	config     DisplayConfig
	frameCount uint64
	last       []byte
}

func NewHeadlessOutput() *HeadlessVideoOutput {
	return &HeadlessVideoOutput{config: DisplayConfig{Width: screenWidth, Height: screenHeight, Scale: 1}}
}

func (h *HeadlessVideoOutput) Start() error {
	h.mu.Lock()
	h.started = true
	h.mu.Unlock()
	return nil
}

func (h *HeadlessVideoOutput) Stop() error {
	h.mu.Lock()
	h.started = false
	h.mu.Unlock()
	return nil
}

func (h *HeadlessVideoOutput) Close() error {
	return h.Stop()
}

func (h *HeadlessVideoOutput) IsStarted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

func (h *HeadlessVideoOutput) SetDisplayConfig(config DisplayConfig) error {
	h.mu.Lock()
	config.Scale = ClampScale(config.Scale)
	h.config = config
	h.mu.Unlock()
	return nil
}

func (h *HeadlessVideoOutput) GetDisplayConfig() DisplayConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config
}

func (h *HeadlessVideoOutput) UpdateFrame(buffer []byte) error {
	h.mu.Lock()
	h.last = append(h.last[:0], buffer...)
	h.mu.Unlock()
	atomic.AddUint64(&h.frameCount, 1)
	return nil
}

func (h *HeadlessVideoOutput) GetFrameCount() uint64 {
	return atomic.LoadUint64(&h.frameCount)
}

// LastFrame returns a copy of the most recent frame.
func (h *HeadlessVideoOutput) LastFrame() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]byte(nil), h.last...)
}
