// sound_test.go - Tests for the mixer, sound effects and the music sequencer

package main

import (
	"encoding/binary"
	"testing"
)

func TestMixer_OneShot(t *testing.T) {
	m := NewMixer(8000)
	m.PlayChannel(0, MixerChunk{Data: []byte{10, 20, 30, 40}, Len: 4}, 8000, 0x40)

	buf := make([]int8, 6)
	m.Mix(buf)
	want := []int8{9, 19, 29, 0, 0, 0}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("mix = %v, want %v", buf, want)
		}
	}
	if m.ActiveChannels() != 0 {
		t.Fatalf("channel still active after the sample ended")
	}
}

func TestMixer_LoopWrapsToLoopStart(t *testing.T) {
	m := NewMixer(8000)
	chunk := MixerChunk{Data: []byte{10, 20, 30, 40}, Len: 2, LoopPos: 2, LoopLen: 2}
	m.PlayChannel(2, chunk, 8000, 0x40)

	buf := make([]int8, 6)
	m.Mix(buf)
	want := []int8{9, 19, 29, 39, 29, 39}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("mix = %v, want %v", buf, want)
		}
	}
	if m.ActiveChannels() != 1<<2 {
		t.Fatalf("active mask = %04b", m.ActiveChannels())
	}
}

func TestMixer_VolumeAndClamp(t *testing.T) {
	m := NewMixer(8000)
	m.PlayChannel(0, MixerChunk{Data: []byte{30, 30}, Len: 2}, 8000, 0x20)
	buf := make([]int8, 1)
	m.Mix(buf)
	if buf[0] != 14 {
		t.Fatalf("half volume sample = %d, want 14", buf[0])
	}

	loud := MixerChunk{Data: []byte{0x7F, 0x7F, 0x7F}, Len: 3}
	for ch := range uint8(numMixerChannels) {
		m.PlayChannel(ch, loud, 8000, 0x40)
	}
	m.Mix(buf)
	if buf[0] != 127 {
		t.Fatalf("four loud channels = %d, want clamp at 127", buf[0])
	}
	if got := addClamp(-100, -100); got != -128 {
		t.Fatalf("addClamp(-100, -100) = %d", got)
	}

	m.StopAll()
	out := make([]float32, 2)
	m.MixFloat32(out)
	if out[0] != 0 || m.ActiveChannels() != 0 {
		t.Fatalf("output after StopAll = %v", out)
	}
}

// soundResources returns a Resources whose descriptors listed in bufs are
// loaded with the given kind and contents.
func soundResources(bufs map[int][]byte, kinds map[int]ResourceKind) *Resources {
	descs := make([]*ResourceDescriptor, 8)
	for i := range descs {
		descs[i] = &ResourceDescriptor{Kind: KindPolygon}
	}
	for id, b := range bufs {
		descs[id].State = StateLoaded
		descs[id].Kind = kinds[id]
		descs[id].Buffer = b
	}
	return NewResources(nil, descs)
}

func testSample(words, loopWords uint16) []byte {
	b := make([]byte, sampleHeaderSize+int(words+loopWords)*2)
	binary.BigEndian.PutUint16(b, words)
	binary.BigEndian.PutUint16(b[2:], loopWords)
	for i := sampleHeaderSize; i < len(b); i++ {
		b[i] = byte(i)
	}
	return b
}

func TestSound_PlaySound(t *testing.T) {
	res := soundResources(
		map[int][]byte{1: testSample(4, 0), 2: testSample(2, 3)},
		map[int]ResourceKind{1: KindSound, 2: KindSound},
	)
	s := NewSound(res, defaultSampleRate)

	s.PlaySound(1, 0, 0x50, 5)
	ch := s.mixer.channels[1]
	if !ch.active {
		t.Fatalf("channel 5&3 not playing")
	}
	if ch.volume != 0x3F {
		t.Errorf("volume = 0x%X, want 0x3F", ch.volume)
	}
	if ch.chunk.Len != 8 || ch.chunk.LoopLen != 0 || ch.chunk.Data[0] != sampleHeaderSize {
		t.Errorf("chunk = len %d loop %d first 0x%X", ch.chunk.Len, ch.chunk.LoopLen, ch.chunk.Data[0])
	}
	if want := uint32(soundFreqs[0]) << 8 / defaultSampleRate; ch.inc != want {
		t.Errorf("step = %d, want %d", ch.inc, want)
	}

	s.PlaySound(2, 39, 0x10, 2)
	if c := s.mixer.channels[2].chunk; c.Len != 4 || c.LoopPos != 4 || c.LoopLen != 6 {
		t.Errorf("looping chunk = %+v", c)
	}

	s.PlaySound(1, 0, 0, 1)
	if s.mixer.channels[1].active {
		t.Errorf("volume 0 did not stop the channel")
	}

	s.PlaySound(1, 40, 0x10, 0)
	s.PlaySound(3, 0, 0x10, 3)
	if s.mixer.ActiveChannels() != 1<<2 {
		t.Errorf("active mask = %04b after rejected requests", s.mixer.ActiveChannels())
	}
}

// testModule builds a two pattern module using instrument 1 = resource 2.
func testModule() []byte {
	b := make([]byte, modulePatterns+2*patternSize)
	binary.BigEndian.PutUint16(b, moduleDelayDivisor)
	binary.BigEndian.PutUint16(b[moduleInstruments:], 2)
	binary.BigEndian.PutUint16(b[moduleInstruments+2:], 0x20)
	binary.BigEndian.PutUint16(b[moduleOrderCount:], 2)
	b[moduleOrderTable] = 0
	b[moduleOrderTable+1] = 1

	cell := func(row, ch int, note1, note2 uint16) {
		off := modulePatterns + row*patternRowSize + ch*4
		binary.BigEndian.PutUint16(b[off:], note1)
		binary.BigEndian.PutUint16(b[off+2:], note2)
	}
	cell(0, 0, 0x0100, 0x1000)
	cell(0, 1, noteMark, 0x0042)
	cell(0, 2, 0, 0x1510)
	cell(0, 3, noteStop, 0)
	cell(1, 0, 0, 0x1640)
	cell(1, 1, 0x0010, 0x1000)
	return b
}

func TestMusic_Rows(t *testing.T) {
	sample := testSample(4, 0)
	res := soundResources(
		map[int][]byte{2: sample, 3: testModule()},
		map[int]ResourceKind{2: KindSound, 3: KindMusic},
	)
	mixer := NewMixer(defaultSampleRate)
	p := NewMusicPlayer(mixer, res)
	mixer.PlayChannel(3, MixerChunk{Data: []byte{1, 2}, Len: 2}, 8000, 0x10)

	p.Load(3, 0, 0)
	if p.delay != 60 {
		t.Fatalf("delay = %d ms, want 60", p.delay)
	}
	if sample[sampleHeaderSize] != 0 || sample[sampleHeaderSize+3] != 0 {
		t.Fatalf("instrument start not silenced")
	}

	if !p.Step() {
		t.Fatalf("first row ended the module")
	}
	ch := mixer.channels[0]
	if !ch.active || ch.volume != 0x20 {
		t.Fatalf("channel 0 = %+v", ch)
	}
	if want := uint32(paulaClock/(0x0100*2)) << 8 / defaultSampleRate; ch.inc != want {
		t.Errorf("channel 0 step = %d, want %d", ch.inc, want)
	}
	if c := mixer.channels[2]; c.active || c.volume != 0x30 {
		t.Errorf("volume slide channel = active %v vol 0x%X", c.active, c.volume)
	}
	if mixer.channels[3].active {
		t.Errorf("stop note did not stop channel 3")
	}
	if mark, ok := p.TakeMark(); !ok || mark != 0x42 {
		t.Errorf("mark = 0x%X %v", mark, ok)
	}
	if _, ok := p.TakeMark(); ok {
		t.Errorf("mark reported twice")
	}

	p.Step()
	if v := mixer.channels[0].volume; v != 0 {
		t.Errorf("volume after slide down = 0x%X, want 0", v)
	}
	if mixer.channels[1].active {
		t.Errorf("period below range started a sample")
	}
	if st := p.state(); st.CurPos != 2*patternRowSize || st.CurOrder != 0 {
		t.Errorf("state = %+v", st)
	}

	rows := 3
	for p.Step() {
		rows++
	}
	if want := 2 * patternSize / patternRowSize; rows != want {
		t.Errorf("module ran %d rows, want %d", rows, want)
	}
	if p.Playing() != 0 || mixer.ActiveChannels() != 0 {
		t.Errorf("module end left resource 0x%X and channels %04b", p.Playing(), mixer.ActiveChannels())
	}
}

func TestMusic_RestoreState(t *testing.T) {
	res := soundResources(
		map[int][]byte{2: testSample(4, 0), 3: testModule()},
		map[int]ResourceKind{2: KindSound, 3: KindMusic},
	)
	p := NewMusicPlayer(NewMixer(0), res)
	want := musicState{Delay: 10000, ResID: 3, CurPos: 0x40, CurOrder: 1}
	p.restore(want)
	defer p.Stop()
	if got := p.state(); got != want {
		t.Fatalf("restored state = %+v, want %+v", got, want)
	}

	p.restore(musicState{ResID: 4})
	if p.Playing() != 0 {
		t.Fatalf("restoring an unloaded module left it playing")
	}
}

func TestSound_PlayMusicRequests(t *testing.T) {
	res := soundResources(
		map[int][]byte{2: testSample(4, 0), 3: testModule()},
		map[int]ResourceKind{2: KindSound, 3: KindMusic},
	)
	s := NewSound(res, 0)

	s.PlayMusic(3, 0xFFFF, 0)
	if s.music.Playing() != 3 {
		t.Fatalf("module not started")
	}
	s.PlayMusic(0, 7050*2, 0)
	if st := s.music.state(); st.Delay != 120 || st.ResID != 3 {
		t.Fatalf("tempo change = %+v", st)
	}
	if got := s.StatusLine(); got != "snd ---- mus 03" {
		t.Errorf("status = %q", got)
	}
	s.PlayMusic(0, 0, 0)
	if s.music.Playing() != 0 {
		t.Fatalf("PlayMusic(0, 0) did not stop the module")
	}

	s.PlayMusic(3, 0, 0)
	s.StopAll()
	if s.music.Playing() != 0 || s.StatusLine() != "snd ----" {
		t.Fatalf("StopAll left %q", s.StatusLine())
	}
}
