//go:build headless

package main

// OtoPlayer without an audio device. Read still pulls from the mixer so
// channels advance and finish as they would with sound enabled.
type OtoPlayer struct {
	src     SampleSource
	buf     []float32
	playing bool
}

func NewOtoPlayer(src SampleSource, sampleRate int) (*OtoPlayer, error) {
	return &OtoPlayer{src: src}, nil
}

func (op *OtoPlayer) Read(p []byte) (int, error) {
	clear(p)
	n := len(p) / 4
	if cap(op.buf) < n {
		op.buf = make([]float32, n)
	}
	op.src.MixFloat32(op.buf[:n])
	return len(p), nil
}

func (op *OtoPlayer) Start() { op.playing = true }
func (op *OtoPlayer) Stop()  { op.playing = false }
func (op *OtoPlayer) Close() { op.playing = false }
