// sound_mixer.go - Four channel 8-bit sample mixer

package main

import "sync"

const numMixerChannels = 4

// MixerChunk is a signed 8-bit sample. When LoopLen is non-zero playback
// wraps back to LoopPos after reaching LoopPos+LoopLen.
type MixerChunk struct {
	Data    []byte
	Len     uint16
	LoopPos uint16
	LoopLen uint16
}

func (c *MixerChunk) at(i int) int32 {
	if i < 0 || i >= len(c.Data) {
		return 0
	}
	return int32(int8(c.Data[i]))
}

type mixerChannel struct {
	active bool
	volume uint8
	pos    uint32 // 24.8 fixed point
	inc    uint32
	chunk  MixerChunk
}

// Mixer sums the four channels into one mono stream. Channel updates come
// from the engine and the music timer while the output callback mixes.
type Mixer struct {
	mu         sync.Mutex
	channels   [numMixerChannels]mixerChannel
	sampleRate uint32
	scratch    []int8
}

func NewMixer(sampleRate int) *Mixer {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	return &Mixer{sampleRate: uint32(sampleRate)}
}

func (m *Mixer) SampleRate() int { return int(m.sampleRate) }

// PlayChannel starts chunk on channel at freq Hz.
func (m *Mixer) PlayChannel(channel uint8, chunk MixerChunk, freq uint16, volume uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[channel&(numMixerChannels-1)] = mixerChannel{
		active: true,
		volume: volume,
		inc:    uint32(freq) << 8 / m.sampleRate,
		chunk:  chunk,
	}
}

func (m *Mixer) StopChannel(channel uint8) {
	m.mu.Lock()
	m.channels[channel&(numMixerChannels-1)].active = false
	m.mu.Unlock()
}

func (m *Mixer) SetChannelVolume(channel uint8, volume uint8) {
	m.mu.Lock()
	m.channels[channel&(numMixerChannels-1)].volume = volume
	m.mu.Unlock()
}

func (m *Mixer) StopAll() {
	m.mu.Lock()
	for i := range m.channels {
		m.channels[i].active = false
	}
	m.mu.Unlock()
}

// ActiveChannels returns a bitmask of the playing channels.
func (m *Mixer) ActiveChannels() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var mask uint8
	for i, ch := range m.channels {
		if ch.active {
			mask |= 1 << i
		}
	}
	return mask
}

// Mix fills buf with the next len(buf) output samples.
func (m *Mixer) Mix(buf []int8) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range buf {
		buf[i] = 0
	}
	for c := range m.channels {
		ch := &m.channels[c]
		if !ch.active {
			continue
		}
		for i := range buf {
			p1 := int(ch.pos >> 8)
			ch.pos += ch.inc

			var p2 int
			if ch.chunk.LoopLen != 0 {
				if p1 >= int(ch.chunk.LoopPos)+int(ch.chunk.LoopLen)-1 {
					p2 = int(ch.chunk.LoopPos)
					ch.pos = uint32(ch.chunk.LoopPos) << 8
				} else {
					p2 = p1 + 1
				}
			} else {
				if p1 >= int(ch.chunk.Len)-1 {
					ch.active = false
					break
				}
				p2 = p1 + 1
			}

			ilc := int32(ch.pos & 0xFF)
			b := (ch.chunk.at(p1)*(0xFF-ilc) + ch.chunk.at(p2)*ilc) >> 8
			buf[i] = addClamp(buf[i], b*int32(ch.volume)/0x40)
		}
	}
}

// MixFloat32 mixes into out as samples in [-1, 1).
func (m *Mixer) MixFloat32(out []float32) {
	if cap(m.scratch) < len(out) {
		m.scratch = make([]int8, len(out))
	}
	s := m.scratch[:len(out)]
	m.Mix(s)
	for i, v := range s {
		out[i] = float32(v) / 128
	}
}

func addClamp(a int8, b int32) int8 {
	return int8(min(max(int32(a)+b, -128), 127))
}

// SampleSource produces mono float32 output for an audio device.
type SampleSource interface {
	MixFloat32(out []float32)
}
