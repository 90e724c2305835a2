// vm_engine_test.go - Tests for the scheduler and instruction semantics

package main

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeRenderer struct {
	calls   []string
	present []uint8
}

func (r *fakeRenderer) log(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *fakeRenderer) SelectPage(page uint8)           { r.log("select %d", page) }
func (r *fakeRenderer) FillPage(page, color uint8)      { r.log("fill %d %d", page, color) }
func (r *fakeRenderer) CopyPage(s, d uint8, vs int16)   { r.log("copy %d %d %d", s, d, vs) }
func (r *fakeRenderer) SetDataPage(s Segment, o uint16) { r.log("data %s 0x%X", s, o) }
func (r *fakeRenderer) RequestPalette(id uint8)         { r.log("palette %d", id) }

func (r *fakeRenderer) DrawPolygon(c uint8, z uint16, x, y int16) {
	r.log("poly %d %d %d %d", c, z, x, y)
}

func (r *fakeRenderer) DrawString(c uint8, x, y, id uint16) {
	r.log("text %d %d %d 0x%X", c, x, y, id)
}

func (r *fakeRenderer) Present(page uint8) error {
	r.present = append(r.present, page)
	return nil
}

type fakeAudio struct {
	sounds [][4]int
	music  [][3]int
	stops  int
	mark   int16
	marked bool
}

func (a *fakeAudio) PlaySound(res uint16, freq, vol, ch uint8) {
	a.sounds = append(a.sounds, [4]int{int(res), int(freq), int(vol), int(ch)})
}
func (a *fakeAudio) PlayMusic(res, delay uint16, pos uint8) {
	a.music = append(a.music, [3]int{int(res), int(delay), int(pos)})
}
func (a *fakeAudio) StopAll() { a.stops++ }
func (a *fakeAudio) TakeMark() (int16, bool) {
	m, ok := a.mark, a.marked
	a.marked = false
	return m, ok
}

type fakePlatform struct {
	input    PlayerInput
	now      time.Time
	slept    []time.Duration
	onEvents func(in *PlayerInput)
}

func (p *fakePlatform) ProcessEvents() {
	if p.onEvents != nil {
		p.onEvents(&p.input)
	}
}
func (p *fakePlatform) Input() *PlayerInput { return &p.input }
func (p *fakePlatform) Now() time.Time      { return p.now }
func (p *fakePlatform) Sleep(d time.Duration) {
	p.slept = append(p.slept, d)
	p.now = p.now.Add(d)
}

// newScriptVM builds a VM whose parts run the given bytecode and enters
// start.
func newScriptVM(t *testing.T, start uint16, parts map[uint16][]byte) (*VM, *fakeRenderer, *fakeAudio, *fakePlatform) {
	t.Helper()
	descs := newTestDescs(0x80)
	loader := &fakeLoader{data: map[*ResourceDescriptor][]byte{}}
	for part, code := range parts {
		slots, ok := PartSlots(part)
		if !ok {
			t.Fatalf("bad part 0x%X", part)
		}
		d := descs[slots[SegCode]]
		d.Kind = KindBytecode
		d.UnpackedSize = uint16(len(code))
		loader.data[d] = code
	}
	res := NewResources(loader, descs)
	r, a := &fakeRenderer{}, &fakeAudio{}
	p := &fakePlatform{now: time.Unix(1000, 0)}
	vm := NewVM(res, r, a, p)
	vm.Init()
	if err := vm.InitForPart(start); err != nil {
		t.Fatalf("InitForPart: %v", err)
	}
	return vm, r, a, p
}

func runFrame(t *testing.T, vm *VM) {
	t.Helper()
	if err := vm.CheckRequests(); err != nil {
		t.Fatalf("CheckRequests: %v", err)
	}
	if err := vm.HostFrame(); err != nil {
		t.Fatalf("HostFrame: %v", err)
	}
}

func TestVM_Init(t *testing.T) {
	vm, _, a, _ := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: {0x06}})
	if vm.Vars[varInitMarker] != 0x81 || vm.Vars[varPartSwitchMarker] != 0x14 {
		t.Fatalf("v54=%X vE4=%X", vm.Vars[varInitMarker], vm.Vars[varPartSwitchMarker])
	}
	if a.stops != 1 {
		t.Fatalf("audio stopped %d times on part entry", a.stops)
	}
	if vm.Channels[0].PC != 0 || !vm.Channels[0].Active {
		t.Fatalf("channel 0 = %+v", vm.Channels[0])
	}
	for i := 1; i < numChannels; i++ {
		if c := vm.Channels[i]; c.PC != pcInactive || c.RequestedPC != pcNoRequest || !c.Active || !c.RequestedActive {
			t.Fatalf("channel %d = %+v", i, c)
		}
	}
}

func TestVM_SetVectAppliesAtBarrier(t *testing.T) {
	code := make([]byte, 0x28)
	for i := range code {
		code[i] = 0x06
	}
	copy(code[0x00:], []byte{0x08, 0x01, 0x00, 0x10}) // setvec ch1, 0x10
	copy(code[0x05:], []byte{0x08, 0x01, 0x00, 0x20}) // setvec ch1, 0x20
	copy(code[0x0B:], []byte{0x07, 0x00, 0x0A})       // jmp 0x0A
	copy(code[0x10:], []byte{0x03, 0x05, 0x00, 0x01}) // v5 += 1
	copy(code[0x15:], []byte{0x07, 0x00, 0x10})
	copy(code[0x20:], []byte{0x03, 0x06, 0x00, 0x01}) // v6 += 1
	copy(code[0x25:], []byte{0x07, 0x00, 0x20})

	vm, _, _, _ := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: code})

	runFrame(t, vm)
	if vm.Channels[1].PC != pcInactive || vm.Channels[1].RequestedPC != 0x10 {
		t.Fatalf("frame 1: channel 1 = %+v", vm.Channels[1])
	}

	if err := vm.CheckRequests(); err != nil {
		t.Fatal(err)
	}
	if vm.Channels[1].PC != 0x10 {
		t.Fatalf("barrier: channel 1 pc = 0x%X, want 0x10", vm.Channels[1].PC)
	}
	if err := vm.HostFrame(); err != nil {
		t.Fatal(err)
	}
	// Channel 0 re-vectored channel 1 this frame, but it still ran from 0x10.
	if vm.Vars[5] != 1 || vm.Vars[6] != 0 {
		t.Fatalf("frame 2: v5=%d v6=%d", vm.Vars[5], vm.Vars[6])
	}

	runFrame(t, vm)
	if vm.Vars[6] != 1 || vm.Vars[5] != 1 {
		t.Fatalf("frame 3: v5=%d v6=%d", vm.Vars[5], vm.Vars[6])
	}
}

func TestVM_ResetThreadRange(t *testing.T) {
	code := []byte{
		0x0C, 0x05, 0x05, 0x01, // freeze 5..5
		0x0C, 0x0A, 0x03, 0x02, // 10..3, no-op
		0x0C, 0x08, 0x49, 0x02, // delete 8..9 (0x49 & 0x3F)
		0x06,
	}
	vm, _, _, _ := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: code})
	runFrame(t, vm)

	for i, c := range vm.Channels {
		wantActive := i != 5
		wantPC := pcNoRequest
		if i == 8 || i == 9 {
			wantPC = pcDelete
		}
		if c.RequestedActive != wantActive || c.RequestedPC != wantPC {
			t.Errorf("channel %d = %+v", i, c)
		}
	}
	if !vm.Channels[5].Active {
		t.Fatalf("freeze applied before the barrier")
	}
	if err := vm.CheckRequests(); err != nil {
		t.Fatal(err)
	}
	if vm.Channels[5].Active {
		t.Fatalf("channel 5 still active after barrier")
	}
	if vm.Channels[8].PC != pcInactive || vm.Channels[8].RequestedPC != pcNoRequest {
		t.Fatalf("channel 8 = %+v", vm.Channels[8])
	}
}

func TestVM_FrozenChannelSkipped(t *testing.T) {
	code := []byte{
		0x0C, 0x00, 0x00, 0x01, // freeze self
		0x03, 0x01, 0x00, 0x01, // v1 += 1
		0x06,
		0x07, 0x00, 0x04,
	}
	vm, _, _, _ := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: code})
	runFrame(t, vm)
	runFrame(t, vm)
	runFrame(t, vm)
	if vm.Vars[1] != 1 {
		t.Fatalf("frozen channel ran: v1=%d", vm.Vars[1])
	}
}

func TestVM_ArithmeticWraps(t *testing.T) {
	code := []byte{
		0x00, 0x00, 0x7F, 0xFF, // v0 = 32767
		0x03, 0x00, 0x00, 0x01, // v0 += 1
		0x00, 0x01, 0x80, 0x00, // v1 = -32768
		0x00, 0x02, 0x00, 0x01, // v2 = 1
		0x13, 0x01, 0x02, // v1 -= v2
		0x00, 0x03, 0x00, 0x03, // v3 = 3
		0x16, 0x03, 0x00, 0x0E, // v3 <<= 14
		0x00, 0x04, 0xFF, 0x00, // v4 = -256
		0x17, 0x04, 0x00, 0x04, // v4 >>= 4
		0x00, 0x05, 0x0F, 0x0F,
		0x14, 0x05, 0x00, 0xFF, // v5 &= 0xFF
		0x15, 0x05, 0x10, 0x00, // v5 |= 0x1000
		0x06,
	}
	vm, _, _, _ := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: code})
	runFrame(t, vm)

	want := map[int]int16{0: -32768, 1: 32767, 3: -16384, 4: -16, 5: 0x100F}
	for i, w := range want {
		if vm.Vars[i] != w {
			t.Errorf("v%d = %d, want %d", i, vm.Vars[i], w)
		}
	}
}

func TestVM_RetUnderflowFromBank(t *testing.T) {
	descs := newTestDescs(0x80)
	code := descs[0x18]
	code.Kind = KindBytecode
	code.BankID = 1
	code.BankOffset = 0
	code.PackedSize = 4
	code.UnpackedSize = 4
	for _, idx := range []int{0x17, 0x19} {
		descs[idx].BankID = 1
		descs[idx].PackedSize = 4
		descs[idx].UnpackedSize = 4
	}
	dir := writeTestData(t, descs, map[uint8][]byte{1: {0x05, 0xFF, 0xFF, 0xFF}})

	bank := NewBankSet(dir)
	parsed, err := bank.OpenDirectory()
	if err != nil {
		t.Fatal(err)
	}
	p := &fakePlatform{now: time.Unix(0, 0)}
	vm := NewVM(NewResources(bank, parsed), &fakeRenderer{}, &fakeAudio{}, p)
	vm.Init()
	if err := vm.InitForPart(PartIntro); err != nil {
		t.Fatalf("InitForPart: %v", err)
	}
	if err := vm.HostFrame(); !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("err = %v, want ErrStackUnderflow", err)
	}
}

func TestVM_CallReturnAndOverflow(t *testing.T) {
	code := []byte{
		0x04, 0x00, 0x05, // call 5
		0x06,       // pause
		0x06,       // (unreached)
		0x03, 0x07, 0x00, 0x02, // 5: v7 += 2
		0x05, // ret
	}
	vm, _, _, _ := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: code})
	runFrame(t, vm)
	if vm.Vars[7] != 2 || vm.Channels[0].PC != 4 {
		t.Fatalf("v7=%d pc=0x%X", vm.Vars[7], vm.Channels[0].PC)
	}

	loop := []byte{0x04, 0x00, 0x00}
	vm, _, _, _ = newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: loop})
	if err := vm.HostFrame(); !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("err = %v, want ErrStackOverflow", err)
	}
}

func TestVM_ExecutionErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want error
	}{
		{"overrun", []byte{0x00, 0x00, 0x00, 0x01}, ErrProgramOverrun},
		{"unresolved", []byte{0x07, 0x00, 0x02, 0x06}, ErrUnresolvedJump},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vm, _, _, _ := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: tc.code})
			if err := vm.HostFrame(); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	vm, _, _, _ := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: {0x00, 0x01, 0x00, 0x01, 0x2A}})
	err := vm.HostFrame()
	var oe *OpcodeError
	if !errors.As(err, &oe) || oe.Opcode != 0x2A || oe.Offset != 4 {
		t.Fatalf("err = %v, want OpcodeError for 0x2A at 4", err)
	}
}

func TestVM_CondJmpRelations(t *testing.T) {
	tests := []struct {
		cond  uint8
		b, a  int16
		taken bool
	}{
		{0x00, 5, 5, true},
		{0x00, 5, 6, false},
		{0x01, 5, 6, true},
		{0x02, 7, 6, true},
		{0x02, 6, 6, false},
		{0x03, 6, 6, true},
		{0x04, -1, 0, true},
		{0x05, 0, 0, true},
		{0x05, 1, 0, false},
		{0x06, 1, 1, false},
		{0x07, 1, 1, false},
	}
	vm, _, _, _ := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: {0x06}})
	for _, tc := range tests {
		vm.Vars[1] = tc.b
		vm.Vars[2] = tc.a
		in, err := DecodeInstruction([]byte{0x0A, 0x80 | tc.cond, 0x01, 0x02, 0x12, 0x34}, 0)
		if err != nil {
			t.Fatal(err)
		}
		next, _, err := vm.execute(&in)
		if err != nil {
			t.Fatal(err)
		}
		if taken := next == 0x1234; taken != tc.taken {
			t.Errorf("cond %d: %d vs %d taken=%v, want %v", tc.cond, tc.b, tc.a, taken, tc.taken)
		}
	}
}

func TestVM_JnzCountsDown(t *testing.T) {
	code := []byte{
		0x00, 0x01, 0x00, 0x03, // v1 = 3
		0x03, 0x02, 0x00, 0x01, // 4: v2 += 1
		0x09, 0x01, 0x00, 0x04, // jnz v1, 4
		0x06,
	}
	vm, _, _, _ := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: code})
	runFrame(t, vm)
	if vm.Vars[1] != 0 || vm.Vars[2] != 3 {
		t.Fatalf("v1=%d v2=%d", vm.Vars[1], vm.Vars[2])
	}
}

func TestVM_KillDeactivates(t *testing.T) {
	code := []byte{0x03, 0x01, 0x00, 0x01, 0x11}
	vm, _, _, _ := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: code})
	runFrame(t, vm)
	runFrame(t, vm)
	if vm.Channels[0].PC != pcInactive || vm.Vars[1] != 1 {
		t.Fatalf("pc=0x%X v1=%d", vm.Channels[0].PC, vm.Vars[1])
	}
}

func TestVM_PartSwitchAtBarrier(t *testing.T) {
	intro := []byte{
		0x00, 0x10, 0x00, 0x2A, // v10 = 42
		0x19, 0x3E, 0x82, // updres 0x3E82
		0x08, 0x03, 0x00, 0x00, // setvec ch3, 0
		0x06,
	}
	next := []byte{0x06}
	vm, _, a, _ := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: intro, 0x3E82: next})
	var switched []uint16
	vm.OnPartChange = func(p uint16) { switched = append(switched, p) }

	runFrame(t, vm)
	if vm.res.CurrentPart() != PartIntro || vm.res.RequestedPart != 0x3E82 {
		t.Fatalf("part switched mid-frame")
	}

	vm.Vars[varPartSwitchMarker] = 0
	if err := vm.CheckRequests(); err != nil {
		t.Fatal(err)
	}
	if vm.res.CurrentPart() != 0x3E82 || vm.res.RequestedPart != 0 {
		t.Fatalf("current=0x%X requested=0x%X", vm.res.CurrentPart(), vm.res.RequestedPart)
	}
	if vm.Vars[varPartSwitchMarker] != 0x14 || vm.Vars[0x10] != 42 {
		t.Fatalf("vE4=%X v10=%d", vm.Vars[varPartSwitchMarker], vm.Vars[0x10])
	}
	// The setvec on channel 3 belonged to the old part and is discarded.
	if vm.Channels[3].PC != pcInactive || vm.Channels[0].PC != 0 {
		t.Fatalf("channels not reinitialized: ch0=%+v ch3=%+v", vm.Channels[0], vm.Channels[3])
	}
	if a.stops != 2 || len(switched) != 1 || switched[0] != 0x3E82 {
		t.Fatalf("stops=%d switched=%v", a.stops, switched)
	}
	if len(vm.Program().Code) != 1 {
		t.Fatalf("program not replaced")
	}
}

func TestVM_VideoForwarding(t *testing.T) {
	code := []byte{
		0x00, 0xF9, 0x00, 0x05, // scroll = 5
		0x00, 0x20, 0x00, 0x40, // v20 = 64
		0x0B, 0x03, 0x00, // palette 3
		0x0D, 0xFE, // select 0xFE
		0x0E, 0x01, 0x0C, // fill 1, 12
		0x0F, 0x81, 0x02, // copy 0x81 -> 2
		0x12, 0x00, 0x01, 0x03, 0x04, 0x05, // text
		0x81, 0x10, 0x20, 0x30, // short polygon
		0x50, 0x00, 0x08, 0x20, 0x01, 0x02, // long polygon, x=v20, y=0x0102, zoom default
		0x06,
	}
	vm, r, _, _ := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: code})
	runFrame(t, vm)

	want := []string{
		"palette 3",
		"select 254",
		"fill 1 12",
		"copy 129 2 5",
		"text 5 3 4 0x1",
		"data cinematic 0x220",
		"poly 255 64 32 48",
		"data cinematic 0x10",
		"poly 255 64 64 258",
	}
	if len(r.calls) != len(want) {
		t.Fatalf("calls = %q", r.calls)
	}
	for i := range want {
		if r.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, r.calls[i], want[i])
		}
	}
}

func TestVM_BlitPacing(t *testing.T) {
	code := []byte{
		0x00, 0xFF, 0x00, 0x03, // 3 slices
		0x00, 0xF7, 0x00, 0x09,
		0x10, 0xFF, // blit back buffer
		0x06,
		0x10, 0x02,
		0x06,
		0x07, 0x00, 0x0B,
	}
	vm, r, _, p := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: code})

	runFrame(t, vm)
	if len(p.slept) != 0 {
		t.Fatalf("first blit slept %v", p.slept)
	}
	if vm.Vars[varBlitCounter] != 0 || len(r.present) != 1 || r.present[0] != 0xFF {
		t.Fatalf("vF7=%d present=%v", vm.Vars[varBlitCounter], r.present)
	}

	p.now = p.now.Add(10 * time.Millisecond)
	runFrame(t, vm)
	if len(p.slept) != 1 || p.slept[0] != 50*time.Millisecond {
		t.Fatalf("slept %v, want [50ms]", p.slept)
	}

	vm.FastMode = true
	runFrame(t, vm)
	if len(p.slept) != 1 || len(r.present) != 3 {
		t.Fatalf("fast mode slept %v, presented %d", p.slept, len(r.present))
	}
}

func TestVM_SpecialKeys(t *testing.T) {
	code := []byte{0x10, 0xFE, 0x06, 0x07, 0x00, 0x00}
	vm, _, _, p := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: code, 0x3E82: code})
	vm.FastMode = true

	// Pause is ignored on the intro, the code key is not.
	p.input.Pause = true
	p.input.Code = true
	runFrame(t, vm)
	if p.input.Pause || p.input.Code || vm.res.RequestedPart != PartLast || len(p.slept) != 0 {
		t.Fatalf("intro: pause=%v code=%v requested=0x%X", p.input.Pause, p.input.Code, vm.res.RequestedPart)
	}

	vm.res.RequestedPart = 0x3E82
	runFrame(t, vm)

	polls := 0
	p.onEvents = func(in *PlayerInput) {
		polls++
		if polls == 3 {
			in.Pause = true
		}
	}
	p.input.Pause = true
	p.input.Code = true
	runFrame(t, vm)
	if polls != 3 || p.input.Pause {
		t.Fatalf("pause polled %d times, still paused=%v", polls, p.input.Pause)
	}
	if vm.res.RequestedPart != PartLast {
		t.Fatalf("code key requested 0x%X", vm.res.RequestedPart)
	}
}

func TestVM_FirstPartFixup(t *testing.T) {
	code := []byte{0x00, 0x67, 0x00, 0x01, 0x10, 0xFE, 0x06}
	vm, _, _, _ := newScriptVM(t, PartFirst, map[uint16][]byte{PartFirst: code})
	vm.FastMode = true
	runFrame(t, vm)
	if vm.Vars[varFirstPartFixup] != 0x21 {
		t.Fatalf("vDC = 0x%X, want 0x21", vm.Vars[varFirstPartFixup])
	}
}

func TestVM_Audio(t *testing.T) {
	code := []byte{
		0x18, 0x00, 0x30, 0x05, 0x3F, 0x02, // sound res 0x30
		0x18, 0x00, 0x31, 0x05, 0x3F, 0x02, // sound res 0x31, not loaded
		0x1A, 0x00, 0x32, 0x00, 0x10, 0x02, // music
		0x19, 0x00, 0x31, // load 0x31
		0x18, 0x00, 0x31, 0x01, 0x00, 0x00, // sound res 0x31
		0x19, 0x00, 0x00, // stop and invalidate
		0x06,
	}
	vm, _, a, _ := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: code})
	vm.res.Descs[0x30].State = StateLoaded
	vm.res.Descs[0x30].Kind = KindSound
	vm.res.Descs[0x31].Kind = KindSound
	runFrame(t, vm)

	if len(a.sounds) != 2 || a.sounds[0] != [4]int{0x30, 5, 0x3F, 2} || a.sounds[1] != [4]int{0x31, 1, 0, 0} {
		t.Fatalf("sounds = %v", a.sounds)
	}
	if len(a.music) != 1 || a.music[0] != [3]int{0x32, 0x10, 2} {
		t.Fatalf("music = %v", a.music)
	}
	if a.stops != 2 {
		t.Fatalf("stops = %d", a.stops)
	}
	if vm.res.Descs[0x31].State != StateUnloaded || vm.res.Descs[0x18].State != StateLoaded {
		t.Fatalf("routine invalidation: 0x31=%s code=%s", vm.res.Descs[0x31].State, vm.res.Descs[0x18].State)
	}
}

func TestVM_GunSoundFix(t *testing.T) {
	code := make([]byte, 0x6D50)
	for i := range code {
		code[i] = 0x06
	}
	copy(code[0x6D47:], []byte{0x03, 0x06, 0xFF, 0xCE})

	vm, _, a, _ := newScriptVM(t, 0x3E86, map[uint16][]byte{0x3E86: code})
	vm.res.Descs[0x5B].State = StateLoaded

	pc, err := vm.runChannel(0x6D47)
	if err != nil {
		t.Fatal(err)
	}
	if pc != 0x6D4C || vm.Vars[6] != -50 {
		t.Fatalf("pc=0x%X v6=%d", pc, vm.Vars[6])
	}
	if len(a.sounds) != 1 || a.sounds[0] != [4]int{0x5B, 1, 64, 1} {
		t.Fatalf("sounds = %v", a.sounds)
	}
}

func TestVM_MusicMarkAtBarrier(t *testing.T) {
	vm, _, a, _ := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: {0x06}})
	a.mark, a.marked = 7, true
	if vm.Vars[varMusicMark] != 0 {
		t.Fatal("mark set early")
	}
	if err := vm.CheckRequests(); err != nil {
		t.Fatal(err)
	}
	if vm.Vars[varMusicMark] != 7 {
		t.Fatalf("vF4 = %d, want 7", vm.Vars[varMusicMark])
	}
}

func TestVM_UpdateInput(t *testing.T) {
	vm, _, _, p := newScriptVM(t, PartIntro, map[uint16][]byte{PartIntro: {0x06}})

	tests := []struct {
		name   string
		dir    uint8
		button bool
		want   map[int]int16
	}{
		{"idle", 0, false, map[int]int16{0xE5: 0, 0xFB: 0, 0xFC: 0, 0xFD: 0, 0xFA: 0, 0xFE: 0}},
		{"right up fire", DirRight | DirUp, true, map[int]int16{0xE5: -1, 0xFB: -1, 0xFC: 1, 0xFD: 9, 0xFA: 1, 0xFE: 0x89}},
		{"left down", DirLeft | DirDown, false, map[int]int16{0xE5: 1, 0xFB: 1, 0xFC: -1, 0xFD: 6, 0xFA: 0, 0xFE: 6}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p.input.DirMask = tc.dir
			p.input.Button = tc.button
			vm.UpdateInput()
			for idx, w := range tc.want {
				if vm.Vars[idx] != w {
					t.Errorf("v%02X = %d, want %d", idx, vm.Vars[idx], w)
				}
			}
		})
	}

	p.input.LastChar = 'k'
	vm.UpdateInput()
	if vm.Vars[varLastKeyChar] != 0 || p.input.LastChar != 'k' {
		t.Fatalf("key consumed outside the password screen")
	}

	vm.res.currentPart = PartLast
	vm.UpdateInput()
	if vm.Vars[varLastKeyChar] != 'K' || p.input.LastChar != 0 {
		t.Fatalf("vDA = %d, last char = %d", vm.Vars[varLastKeyChar], p.input.LastChar)
	}
	p.input.LastChar = '1'
	vm.UpdateInput()
	if vm.Vars[varLastKeyChar] != 'K' || p.input.LastChar != '1' {
		t.Fatalf("digit handed to the script")
	}
	p.input.LastChar = 8
	vm.UpdateInput()
	if vm.Vars[varLastKeyChar] != 8 {
		t.Fatalf("backspace not forwarded")
	}
}
