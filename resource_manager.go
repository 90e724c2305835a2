// resource_manager.go - Resource paging for the running part

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
	"errors"
	"fmt"
)

const (
	memBlockSize    = 600 * 1024
	videoReserve    = 0x800 * 16
	resourceBudget  = memBlockSize - videoReserve
	noPartRequested = 0
)

// ErrInvalidPart is returned for part ids outside 0x3E80..0x3E89.
var ErrInvalidPart = errors.New("invalid game part")

// EntryLoader produces the unpacked bytes of a descriptor.
type EntryLoader interface {
	LoadBankEntry(desc *ResourceDescriptor) ([]byte, error)
}

// Resources tracks the directory, the load state of every descriptor and
// the slots bound by the current part.
type Resources struct {
	loader EntryLoader
	Descs  []*ResourceDescriptor

	// RequestedPart is applied by the VM at the next barrier.
	RequestedPart uint16

	currentPart uint16
	scriptBak   int
	scriptCur   int

	segments [4]int

	// OnBitmap receives fullscreen image resources as they are loaded.
	OnBitmap func(data []byte)

	programs map[int]*Program
}

func NewResources(loader EntryLoader, descs []*ResourceDescriptor) *Resources {
	return &Resources{
		loader:   loader,
		Descs:    descs,
		programs: make(map[int]*Program),
	}
}

func (r *Resources) CurrentPart() uint16 { return r.currentPart }

// ScriptWatermark is the number of bytes charged against the budget.
func (r *Resources) ScriptWatermark() int { return r.scriptCur }

// SegmentIndex returns the descriptor index bound to seg.
func (r *Resources) SegmentIndex(seg Segment) int { return r.segments[seg] }

// Segment returns the loaded bytes of seg, or nil when the slot is not
// resident.
func (r *Resources) Segment(seg Segment) []byte {
	idx := r.segments[seg]
	if idx < 0 || idx >= len(r.Descs) {
		return nil
	}
	d := r.Descs[idx]
	if d.State != StateLoaded {
		return nil
	}
	return d.Buffer
}

// Loaded returns the buffer of descriptor id when it is resident.
func (r *Resources) Loaded(id int) ([]byte, bool) {
	if id < 0 || id >= len(r.Descs) || r.Descs[id].State != StateLoaded {
		return nil, false
	}
	return r.Descs[id].Buffer, true
}

// Program returns the parsed bytecode of the current part, parsing it on
// first use.
func (r *Resources) Program() (*Program, error) {
	idx := r.segments[SegCode]
	if p, ok := r.programs[idx]; ok && p.Part == r.currentPart {
		return p, nil
	}
	code := r.Segment(SegCode)
	if code == nil {
		return nil, fmt.Errorf("bytecode resource 0x%02X is not loaded", idx)
	}
	p, err := ParseProgram(code, r.currentPart)
	if err != nil {
		return nil, err
	}
	r.programs[idx] = p
	return p, nil
}

// LoadMarked loads every PendingLoad descriptor, highest rank first. A
// descriptor without a bank or one that would exceed the budget is demoted
// to Unloaded and loading continues.
func (r *Resources) LoadMarked() error {
	for {
		var me *ResourceDescriptor
		idx := -1
		var maxRank uint8
		for i, d := range r.Descs {
			if d.State == StatePendingLoad && maxRank <= d.Rank {
				maxRank = d.Rank
				me, idx = d, i
			}
		}
		if me == nil {
			return nil
		}

		if me.BankID == 0 {
			resLog.Warningf("resource 0x%02X has no bank, skipped", idx)
			me.State = StateUnloaded
			continue
		}
		// Bitmaps go straight to video memory and are not charged.
		if me.Kind != KindFullscreenImage && r.scriptCur+int(me.UnpackedSize) > resourceBudget {
			resLog.Warningf("out of budget: resource 0x%02X (%d bytes) with %d/%d in use", idx, me.UnpackedSize, r.scriptCur, resourceBudget)
			me.State = StateUnloaded
			continue
		}

		resLog.Debugf("loading resource 0x%02X (%s) rank %d from %s", idx, me.Kind, me.Rank, BankFileName(me.BankID))
		data, err := r.loader.LoadBankEntry(me)
		if err != nil {
			me.State = StateUnloaded
			return fmt.Errorf("resource 0x%02X: %w", idx, err)
		}

		if me.Kind == KindFullscreenImage {
			if r.OnBitmap != nil {
				r.OnBitmap(data)
			}
			me.State = StateUnloaded
			continue
		}
		me.Buffer = data
		me.BufferOffset = uint16(r.scriptCur)
		me.State = StateLoaded
		r.scriptCur += int(me.UnpackedSize)
		delete(r.programs, idx)
	}
}

// RequestResource loads descriptor id on demand. Ids past the end of the
// directory are part ids, switched to at the next barrier.
func (r *Resources) RequestResource(id uint16) error {
	if int(id) >= len(r.Descs) {
		r.RequestedPart = id
		return nil
	}
	d := r.Descs[id]
	if d.State == StateUnloaded {
		d.State = StatePendingLoad
		return r.LoadMarked()
	}
	return nil
}

// InvalidateRoutine drops everything except palettes and bytecode and
// rewinds the budget to the part's base.
func (r *Resources) InvalidateRoutine() {
	for _, d := range r.Descs {
		if d.Kind != KindPalette && d.Kind != KindBytecode {
			r.unload(d)
		}
	}
	r.scriptCur = r.scriptBak
}

// InvalidateAll drops every resource.
func (r *Resources) InvalidateAll() {
	for _, d := range r.Descs {
		r.unload(d)
	}
	r.scriptCur = 0
}

func (r *Resources) unload(d *ResourceDescriptor) {
	d.State = StateUnloaded
	d.Buffer = nil
}

// SelectPart makes part current, loading its palette, bytecode and polygon
// slots. Selecting the current part again does nothing.
func (r *Resources) SelectPart(part uint16) error {
	if part == r.currentPart {
		return nil
	}
	slots, ok := PartSlots(part)
	if !ok {
		return fmt.Errorf("part 0x%04X: %w", part, ErrInvalidPart)
	}
	for _, s := range slots {
		if int(s) >= len(r.Descs) {
			return fmt.Errorf("part 0x%04X references resource 0x%02X past directory end (%d entries)", part, s, len(r.Descs))
		}
	}

	r.InvalidateAll()
	r.Descs[slots[SegPalette]].State = StatePendingLoad
	r.Descs[slots[SegCode]].State = StatePendingLoad
	r.Descs[slots[SegCinematic]].State = StatePendingLoad
	if slots[SegVideo2] != 0 {
		r.Descs[slots[SegVideo2]].State = StatePendingLoad
	}
	if err := r.LoadMarked(); err != nil {
		return err
	}

	r.segments[SegPalette] = int(slots[SegPalette])
	r.segments[SegCode] = int(slots[SegCode])
	r.segments[SegCinematic] = int(slots[SegCinematic])
	if slots[SegVideo2] != 0 {
		r.segments[SegVideo2] = int(slots[SegVideo2])
	}
	r.currentPart = part
	r.scriptBak = r.scriptCur

	resLog.Infof("part 0x%04X: palette 0x%02X code 0x%02X cinematic 0x%02X video2 0x%02X, %d bytes resident",
		part, slots[0], slots[1], slots[2], r.segments[SegVideo2], r.scriptCur)
	return nil
}
