// sound_music.go - Module sequencer driving the mixer from a timer

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
	"encoding/binary"
	"sync"
	"time"
)

const (
	moduleOrderCount   = 0x3E
	moduleOrderTable   = 0x40
	moduleOrderLen     = 0x80
	modulePatterns     = 0xC0
	moduleInstruments  = 2
	numInstruments     = 15
	patternSize        = 1024
	patternRowSize     = 4 * numMixerChannels
	sampleHeaderSize   = 8
	paulaClock         = 7159092
	noteMark           = 0xFFFD
	noteStop           = 0xFFFE
	effectVolumeUp     = 5
	effectVolumeDown   = 6
	maxChannelVolume   = 0x3F
	minNotePeriod      = 0x37
	maxNotePeriod      = 0x1000
	moduleDelayDivisor = 7050
)

type instrument struct {
	sample []byte
	volume uint16
}

type musicModule struct {
	data        []byte // pattern data, starting at the first pattern
	curPos      uint16
	curOrder    uint8
	numOrder    uint8
	orderTable  [moduleOrderLen]byte
	instruments [numInstruments]instrument
}

// MusicPlayer steps through a music module every delay milliseconds,
// starting samples on the mixer and publishing sync marks.
type MusicPlayer struct {
	mu    sync.Mutex
	mixer *Mixer
	res   *Resources

	resID uint16
	delay uint16 // milliseconds per row
	mod   musicModule

	mark    int16
	markSet bool

	stop chan struct{}
}

func NewMusicPlayer(mixer *Mixer, res *Resources) *MusicPlayer {
	return &MusicPlayer{mixer: mixer, res: res}
}

func moduleDelay(d uint16) uint16 {
	return uint16(uint32(d) * 60 / moduleDelayDivisor)
}

// Load prepares module resource id to play from order position pos. A zero
// delay takes the module's own tempo.
func (p *MusicPlayer) Load(id, delay uint16, pos uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadLocked(id, delay, pos)
}

func (p *MusicPlayer) loadLocked(id, delay uint16, pos uint8) bool {
	buf, ok := p.res.Loaded(int(id))
	if !ok || p.res.Descs[id].Kind != KindMusic {
		soundLog.Warningf("music resource 0x%02X is not a loaded module", id)
		return false
	}
	if len(buf) < modulePatterns {
		soundLog.Warningf("music resource 0x%02X is only %d bytes", id, len(buf))
		return false
	}

	p.resID = id
	p.mod = musicModule{curOrder: pos}
	p.mod.numOrder = uint8(binary.BigEndian.Uint16(buf[moduleOrderCount:]))
	copy(p.mod.orderTable[:], buf[moduleOrderTable:moduleOrderTable+moduleOrderLen])
	if delay == 0 {
		delay = binary.BigEndian.Uint16(buf)
	}
	p.delay = moduleDelay(delay)
	p.mod.data = buf[modulePatterns:]
	p.prepareInstruments(buf[moduleInstruments:])
	soundLog.Debugf("music 0x%02X: %d orders from %d, %d ms per row", id, p.mod.numOrder, pos, p.delay)
	return true
}

func (p *MusicPlayer) prepareInstruments(table []byte) {
	for i := range p.mod.instruments {
		e := table[i*4:]
		id := binary.BigEndian.Uint16(e)
		if id == 0 {
			continue
		}
		ins := &p.mod.instruments[i]
		ins.volume = binary.BigEndian.Uint16(e[2:])
		sample, ok := p.res.Loaded(int(id))
		if !ok || p.res.Descs[id].Kind != KindSound || len(sample) < sampleHeaderSize+4 {
			soundLog.Warningf("instrument %d: sound resource 0x%02X not loaded", i+1, id)
			continue
		}
		// The first sample bytes are silenced to avoid a click on start.
		clear(sample[sampleHeaderSize : sampleHeaderSize+4])
		ins.sample = sample
	}
}

// Start plays the loaded module from the beginning of its current order.
func (p *MusicPlayer) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resID == 0 {
		return
	}
	p.mod.curPos = 0
	p.startTimerLocked()
}

// SetDelay changes the tempo of the playing module.
func (p *MusicPlayer) SetDelay(delay uint16) {
	p.mu.Lock()
	p.delay = moduleDelay(delay)
	p.mu.Unlock()
}

func (p *MusicPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resID = 0
	p.stopTimerLocked()
}

// Playing returns the module resource being played, or 0.
func (p *MusicPlayer) Playing() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resID
}

// TakeMark returns the last sync mark and clears it.
func (p *MusicPlayer) TakeMark() (int16, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.mark, p.markSet
	p.markSet = false
	return m, ok
}

func (p *MusicPlayer) startTimerLocked() {
	p.stopTimerLocked()
	stop := make(chan struct{})
	p.stop = stop
	go p.run(stop)
}

func (p *MusicPlayer) stopTimerLocked() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}

func (p *MusicPlayer) run(stop chan struct{}) {
	for {
		p.mu.Lock()
		d := time.Duration(max(p.delay, 1)) * time.Millisecond
		p.mu.Unlock()

		t := time.NewTimer(d)
		select {
		case <-stop:
			t.Stop()
			return
		case <-t.C:
		}

		p.mu.Lock()
		if p.stop != stop {
			p.mu.Unlock()
			return
		}
		more := p.stepLocked()
		if !more {
			p.stop = nil
		}
		p.mu.Unlock()
		if !more {
			return
		}
	}
}

// Step advances the module by one row. It reports false once the module
// has finished or nothing is loaded.
func (p *MusicPlayer) Step() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stepLocked()
}

func (p *MusicPlayer) stepLocked() bool {
	if p.resID == 0 {
		return false
	}
	m := &p.mod
	order := int(m.orderTable[m.curOrder&(moduleOrderLen-1)])
	off := int(m.curPos) + order*patternSize
	if off+patternRowSize > len(m.data) {
		soundLog.Warningf("music 0x%02X: pattern %d row at 0x%X outside module", p.resID, order, off)
		p.finishLocked()
		return false
	}
	row := m.data[off : off+patternRowSize]
	for ch := range uint8(numMixerChannels) {
		p.handleNote(ch, row[ch*4:ch*4+4])
	}

	m.curPos += patternRowSize
	if m.curPos >= patternSize {
		m.curPos = 0
		m.curOrder++
		if m.curOrder == m.numOrder {
			p.finishLocked()
			return false
		}
	}
	return true
}

func (p *MusicPlayer) finishLocked() {
	p.resID = 0
	p.mixer.StopAll()
}

func (p *MusicPlayer) handleNote(channel uint8, cell []byte) {
	note1 := binary.BigEndian.Uint16(cell)
	note2 := binary.BigEndian.Uint16(cell[2:])

	if note1 == noteMark {
		p.mark = int16(note2)
		p.markSet = true
		return
	}

	var chunk MixerChunk
	var volume uint8
	haveSample := false
	if n := note2 >> 12; n != 0 {
		ins := &p.mod.instruments[n-1]
		if ins.sample != nil {
			s := ins.sample
			chunk.Data = s[sampleHeaderSize:]
			chunk.Len = binary.BigEndian.Uint16(s) * 2
			if loopLen := binary.BigEndian.Uint16(s[2:]) * 2; loopLen != 0 {
				chunk.LoopPos = chunk.Len
				chunk.LoopLen = loopLen
			}

			v := int(ins.volume)
			amount := int(note2 & 0xFF)
			switch (note2 >> 8) & 0x0F {
			case effectVolumeUp:
				v = min(v+amount, maxChannelVolume)
			case effectVolumeDown:
				v = max(v-amount, 0)
			}
			volume = uint8(v)
			p.mixer.SetChannelVolume(channel, volume)
			haveSample = true
		}
	}

	switch {
	case note1 == 0:
	case note1 == noteStop:
		p.mixer.StopChannel(channel)
	case haveSample:
		if note1 < minNotePeriod || note1 >= maxNotePeriod {
			soundLog.Debugf("period 0x%04X out of range on channel %d", note1, channel)
			return
		}
		p.mixer.PlayChannel(channel, chunk, uint16(paulaClock/(uint32(note1)*2)), volume)
	}
}

// musicState is the part of the player kept in save states.
type musicState struct {
	Delay    uint16
	ResID    uint16
	CurPos   uint16
	CurOrder uint8
}

func (p *MusicPlayer) state() musicState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return musicState{Delay: p.delay, ResID: p.resID, CurPos: p.mod.curPos, CurOrder: p.mod.curOrder}
}

// restore reloads the saved module and resumes it at the saved row.
func (p *MusicPlayer) restore(s musicState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimerLocked()
	p.resID = 0
	if s.ResID == 0 {
		return
	}
	if !p.loadLocked(s.ResID, 0, s.CurOrder) {
		return
	}
	p.delay = s.Delay
	p.mod.curPos = s.CurPos
	p.startTimerLocked()
}
