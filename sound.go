// sound.go - Sound effects and music requests from scripts

package main

import (
	"encoding/binary"
	"fmt"
)

const (
	defaultSampleRate = 44100
	numSoundFreqs     = 40
)

// Paula playback rates in Hz, indexed by the frequency byte of a play
// sound request.
var soundFreqs = [numSoundFreqs]uint16{
	0x0CFF, 0x0DC3, 0x0E91, 0x0F6F, 0x1056, 0x114E, 0x1259, 0x136C,
	0x149F, 0x15D9, 0x1726, 0x1888, 0x19FD, 0x1B86, 0x1D21, 0x1EDE,
	0x20AB, 0x229C, 0x24B3, 0x26D7, 0x293F, 0x2BB2, 0x2E4C, 0x3110,
	0x33FB, 0x370D, 0x3A43, 0x3DDF, 0x4157, 0x4538, 0x4998, 0x4DAE,
	0x5240, 0x5764, 0x5C9A, 0x61C8, 0x6793, 0x6E19, 0x7485, 0x7BBD,
}

// Sound implements AudioSink on top of a Mixer and a MusicPlayer.
type Sound struct {
	res   *Resources
	mixer *Mixer
	music *MusicPlayer
}

func NewSound(res *Resources, sampleRate int) *Sound {
	m := NewMixer(sampleRate)
	return &Sound{res: res, mixer: m, music: NewMusicPlayer(m, res)}
}

func (s *Sound) Mixer() *Mixer { return s.mixer }

func (s *Sound) PlaySound(res uint16, freq, volume, channel uint8) {
	buf, ok := s.res.Loaded(int(res))
	if !ok {
		return
	}
	if volume == 0 {
		s.mixer.StopChannel(channel)
		return
	}
	if len(buf) < sampleHeaderSize {
		soundLog.Warningf("sound resource 0x%02X has no sample header", res)
		return
	}
	if int(freq) >= numSoundFreqs {
		soundLog.Warningf("sound 0x%02X: frequency index %d out of range", res, freq)
		return
	}
	chunk := MixerChunk{
		Data: buf[sampleHeaderSize:],
		Len:  binary.BigEndian.Uint16(buf) * 2,
	}
	if loopLen := binary.BigEndian.Uint16(buf[2:]) * 2; loopLen != 0 {
		chunk.LoopPos = chunk.Len
		chunk.LoopLen = loopLen
	}
	soundLog.Debugf("sound 0x%02X freq %d vol %d channel %d", res, freq, volume, channel)
	s.mixer.PlayChannel(channel&(numMixerChannels-1), chunk, soundFreqs[freq], min(volume, maxChannelVolume))
}

func (s *Sound) PlayMusic(res, delay uint16, pos uint8) {
	switch {
	case res != 0:
		s.music.Load(res, delay, pos)
		s.music.Start()
	case delay != 0:
		s.music.SetDelay(delay)
	default:
		s.music.Stop()
	}
}

func (s *Sound) StopAll() {
	s.music.Stop()
	s.mixer.StopAll()
}

// TakeMark forwards the last music sync mark to the VM.
func (s *Sound) TakeMark() (int16, bool) { return s.music.TakeMark() }

func (s *Sound) StatusLine() string {
	mask := s.mixer.ActiveChannels()
	ch := []byte("----")
	for i := range ch {
		if mask&(1<<i) != 0 {
			ch[i] = byte('0' + i)
		}
	}
	if id := s.music.Playing(); id != 0 {
		return fmt.Sprintf("snd %s mus %02X", ch, id)
	}
	return fmt.Sprintf("snd %s", ch)
}
