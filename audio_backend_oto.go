//go:build !headless

// audio_backend_oto.go - OTO v3 audio output implementation

package main

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const otoBufferFrames = 1024

// OtoPlayer streams the mixer to the default audio device as mono float32.
// The device goroutine pulls samples through Read.
type OtoPlayer struct {
	ctx    *oto.Context
	player *oto.Player
	src    SampleSource
	buf    []float32 // device goroutine only

	mu      sync.Mutex
	playing bool
}

func NewOtoPlayer(src SampleSource, sampleRate int) (*OtoPlayer, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   otoBufferFrames * time.Second / time.Duration(sampleRate),
	})
	if err != nil {
		return nil, err
	}
	<-ready

	op := &OtoPlayer{ctx: ctx, src: src, buf: make([]float32, otoBufferFrames)}
	op.player = ctx.NewPlayer(op)
	return op, nil
}

// Read fills p with little-endian float32 samples.
func (op *OtoPlayer) Read(p []byte) (int, error) {
	n := len(p) / 4
	if cap(op.buf) < n {
		op.buf = make([]float32, n)
	}
	samples := op.buf[:n]
	op.src.MixFloat32(samples)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	clear(p[n*4:])
	return len(p), nil
}

func (op *OtoPlayer) Start() {
	op.mu.Lock()
	defer op.mu.Unlock()
	if !op.playing && op.player != nil {
		op.player.Play()
		op.playing = true
	}
}

// Stop pauses output; Start resumes it.
func (op *OtoPlayer) Stop() {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.playing {
		op.player.Pause()
		op.playing = false
	}
}

func (op *OtoPlayer) Close() {
	op.Stop()
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.player != nil {
		if err := op.player.Close(); err != nil {
			soundLog.Warningf("closing audio player: %v", err)
		}
		op.player = nil
	}
}
