// engine_snapshot.go - Game state save files

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
	"bytes"
	"cmp"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"
)

const (
	saveStateMagic   uint32 = 0x41575356 // 'AWSV'
	saveStateVersion uint16 = 2
	saveDescLen             = 32
	maxSaveSlots            = 100

	// First version carrying the video pages.
	saveVideoVersion uint16 = 2
)

var ErrBadSaveState = errors.New("bad save state")

// SaveStateFileName is the file holding slot, e.g. raw.s07.
func SaveStateFileName(slot int) string { return fmt.Sprintf("raw.s%02d", slot) }

type saveHeader struct {
	Magic    uint32
	Version  uint16
	Reserved uint16
	Desc     [saveDescLen]byte
}

type vmState struct {
	Vars     [numVariables]int16
	Stack    [callStackDepth]uint16
	Channels [numChannels]Channel
}

type videoState struct {
	PaletteRequested uint8
	PaletteCurrent   uint8
	PageMask         uint8
	Pages            [numPages][pageSize]byte
}

type resourceState struct {
	Part      uint16
	ScriptBak uint32
	ScriptCur uint32
	Segments  [4]int16
	Loaded    []uint8 // descriptor ids in load order
}

// GameState is everything needed to resume a game.
type GameState struct {
	Version     uint16
	Description string
	VM          vmState
	Video       videoState
	Res         resourceState
	Music       musicState
}

// WriteGameState encodes st. The body after the header is gzip compressed.
func WriteGameState(w io.Writer, st *GameState) error {
	h := saveHeader{Magic: saveStateMagic, Version: st.Version}
	copy(h.Desc[:], st.Description)
	if err := binary.Write(w, binary.BigEndian, &h); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	gz := gzip.NewWriter(w)
	be := binary.BigEndian
	sections := []any{&st.VM}
	if st.Version >= saveVideoVersion {
		sections = append(sections, &st.Video)
	}
	sections = append(sections,
		st.Res.Part, st.Res.ScriptBak, st.Res.ScriptCur, st.Res.Segments,
		uint16(len(st.Res.Loaded)), st.Res.Loaded,
		&st.Music,
	)
	for _, s := range sections {
		if err := binary.Write(gz, be, s); err != nil {
			return fmt.Errorf("writing state: %w", err)
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("closing gzip: %w", err)
	}
	return nil
}

// ReadGameState decodes a state written by WriteGameState or an older
// version of it.
func ReadGameState(r io.Reader) (*GameState, error) {
	var h saveHeader
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrBadSaveState, err)
	}
	if h.Magic != saveStateMagic {
		return nil, fmt.Errorf("%w: signature 0x%08X", ErrBadSaveState, h.Magic)
	}
	if h.Version == 0 || h.Version > saveStateVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadSaveState, h.Version)
	}

	st := &GameState{Version: h.Version, Description: string(bytes.TrimRight(h.Desc[:], "\x00"))}
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSaveState, err)
	}
	defer gz.Close()

	be := binary.BigEndian
	var n uint16
	sections := []any{&st.VM}
	if h.Version >= saveVideoVersion {
		sections = append(sections, &st.Video)
	}
	sections = append(sections, &st.Res.Part, &st.Res.ScriptBak, &st.Res.ScriptCur, &st.Res.Segments, &n)
	for _, s := range sections {
		if err := binary.Read(gz, be, s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadSaveState, err)
		}
	}
	st.Res.Loaded = make([]uint8, n)
	if err := binary.Read(gz, be, st.Res.Loaded); err != nil {
		return nil, fmt.Errorf("%w: loaded list: %v", ErrBadSaveState, err)
	}
	if err := binary.Read(gz, be, &st.Music); err != nil {
		return nil, fmt.Errorf("%w: music: %v", ErrBadSaveState, err)
	}
	// Reading to EOF verifies the gzip trailer.
	if n, err := io.Copy(io.Discard, gz); err != nil || n != 0 {
		return nil, fmt.Errorf("%w: body: %d trailing bytes, %v", ErrBadSaveState, n, err)
	}
	return st, nil
}

func (vm *VM) state() vmState {
	return vmState{Vars: vm.Vars, Stack: vm.stack, Channels: vm.Channels}
}

func (vm *VM) restore(s vmState) error {
	vm.Vars = s.Vars
	vm.stack = s.Stack
	vm.sp = 0
	vm.Channels = s.Channels
	vm.lastFrame = time.Time{}
	prog, err := vm.res.Program()
	if err != nil {
		return err
	}
	vm.prog = prog
	return nil
}

func (v *Video) state() videoState {
	return videoState{
		PaletteRequested: v.paletteRequested,
		PaletteCurrent:   v.paletteCurrent,
		PageMask:         v.pageMask(),
		Pages:            v.pages,
	}
}

func (v *Video) restore(s videoState) {
	v.pages = s.Pages
	v.setPageMask(s.PageMask)
	v.loadPalette(s.PaletteCurrent)
	v.paletteRequested = s.PaletteRequested
}

func (r *Resources) state() resourceState {
	s := resourceState{
		Part:      r.currentPart,
		ScriptBak: uint32(r.scriptBak),
		ScriptCur: uint32(r.scriptCur),
	}
	for i, idx := range r.segments {
		s.Segments[i] = int16(idx)
	}
	var loaded []int
	for i, d := range r.Descs {
		if d.State == StateLoaded {
			loaded = append(loaded, i)
		}
	}
	slices.SortStableFunc(loaded, func(a, b int) int {
		return cmp.Compare(r.Descs[a].BufferOffset, r.Descs[b].BufferOffset)
	})
	for _, i := range loaded {
		s.Loaded = append(s.Loaded, uint8(i))
	}
	return s
}

// restore reloads every saved resource from the banks. Nothing changes
// unless every entry loads.
func (r *Resources) restore(s resourceState) error {
	if !ValidPart(s.Part) {
		return fmt.Errorf("%w: part 0x%04X", ErrBadSaveState, s.Part)
	}
	bufs := make([][]byte, len(s.Loaded))
	for i, id := range s.Loaded {
		if int(id) >= len(r.Descs) {
			return fmt.Errorf("%w: resource 0x%02X past directory end", ErrBadSaveState, id)
		}
		data, err := r.loader.LoadBankEntry(r.Descs[id])
		if err != nil {
			return fmt.Errorf("resource 0x%02X: %w", id, err)
		}
		bufs[i] = data
	}

	r.InvalidateAll()
	clear(r.programs)
	off := 0
	for i, id := range s.Loaded {
		d := r.Descs[id]
		d.Buffer = bufs[i]
		d.BufferOffset = uint16(off)
		d.State = StateLoaded
		off += len(bufs[i])
	}
	r.currentPart = s.Part
	r.RequestedPart = noPartRequested
	r.scriptBak = int(s.ScriptBak)
	r.scriptCur = int(s.ScriptCur)
	for i, idx := range s.Segments {
		r.segments[i] = int(idx)
	}
	return nil
}

// captureState snapshots the running game.
func (e *Engine) captureState(desc string) *GameState {
	return &GameState{
		Version:     saveStateVersion,
		Description: desc,
		VM:          e.vm.state(),
		Video:       e.video.state(),
		Res:         e.res.state(),
		Music:       e.sound.music.state(),
	}
}

func (e *Engine) applyState(st *GameState) error {
	e.sound.StopAll()
	if err := e.res.restore(st.Res); err != nil {
		return err
	}
	if err := e.vm.restore(st.VM); err != nil {
		return err
	}
	if st.Version >= saveVideoVersion {
		e.video.restore(st.Video)
	}
	e.sound.music.restore(st.Music)
	return nil
}

// SaveState writes the running game to slot in the save directory.
func (e *Engine) SaveState(slot int, desc string) error {
	if err := os.MkdirAll(e.cfg.Save.Dir, 0755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := WriteGameState(&buf, e.captureState(desc)); err != nil {
		return err
	}
	path := filepath.Join(e.cfg.Save.Dir, SaveStateFileName(slot))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return err
	}
	engineLog.Noticef("saved state to slot %d (%s)", slot, path)
	return nil
}

// LoadState resumes the game saved in slot.
func (e *Engine) LoadState(slot int) error {
	path := filepath.Join(e.cfg.Save.Dir, SaveStateFileName(slot))
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := ReadGameState(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := e.applyState(st); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	engineLog.Noticef("loaded state from slot %d (%q)", slot, st.Description)
	return nil
}
