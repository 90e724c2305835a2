// video_pages_test.go - Tests for pages, palettes, shapes and text

package main

import "testing"

func newTestVideo(t *testing.T, segs map[Segment][]byte) (*Video, *HeadlessVideoOutput) {
	t.Helper()
	descs := newTestDescs(4)
	res := NewResources(&fakeLoader{}, descs)
	for seg, data := range segs {
		d := descs[seg]
		d.State = StateLoaded
		d.Buffer = data
		res.segments[seg] = int(seg)
	}
	out := NewHeadlessOutput()
	return NewVideo(res, out), out
}

func pixel(v *Video, page, x, y int) uint8 {
	b := v.pages[page][y*pageStride+x/2]
	if x&1 == 0 {
		return b >> 4
	}
	return b & 0x0F
}

func TestVideo_PageIndex(t *testing.T) {
	v, _ := newTestVideo(t, nil)
	tests := []struct {
		id   uint8
		want int
	}{
		{0, 0}, {3, 3}, {pageFront, 2}, {pageBack, 1}, {4, 0}, {0x40, 0},
	}
	for _, tc := range tests {
		if got := v.pageIndex(tc.id); got != tc.want {
			t.Errorf("pageIndex(0x%02X) = %d, want %d", tc.id, got, tc.want)
		}
	}
	if v.cur1 != 2 {
		t.Fatalf("draw page = %d, want 2", v.cur1)
	}
}

func TestVideo_FillAndCopy(t *testing.T) {
	v, _ := newTestVideo(t, nil)

	v.FillPage(pageBack, 5)
	for i, b := range v.pages[1] {
		if b != 0x55 {
			t.Fatalf("page 1 byte %d = 0x%02X", i, b)
		}
	}

	v.FillPage(0, 3)
	v.CopyPage(0, 3, 0)
	v.CopyPage(0x40, 2, 0)
	if v.pages[3][100] != 0x33 || v.pages[2][31999] != 0x33 {
		t.Fatalf("whole copy: 0x%02X 0x%02X", v.pages[3][100], v.pages[2][31999])
	}

	v.FillPage(1, 1)
	v.CopyPage(1, 1, 0)
	if v.pages[1][0] != 0x11 {
		t.Fatal("self copy changed the page")
	}
}

func TestVideo_ScrolledCopy(t *testing.T) {
	v, _ := newTestVideo(t, nil)
	for y := range screenHeight {
		for x := range pageStride {
			v.pages[0][y*pageStride+x] = uint8(y)
		}
	}
	row := func(page, y int) uint8 { return v.pages[page][y*pageStride+7] }

	v.FillPage(1, 0xF)
	v.CopyPage(0x80, 1, 10)
	if row(1, 9) != 0xFF || row(1, 10) != 0 || row(1, 199) != 189 {
		t.Fatalf("scroll down: rows 9,10,199 = %d %d %d", row(1, 9), row(1, 10), row(1, 199))
	}

	v.FillPage(2, 0xF)
	v.CopyPage(0x80, 2, -10)
	if row(2, 0) != 10 || row(2, 189) != 199 || row(2, 190) != 0xFF {
		t.Fatalf("scroll up: rows 0,189,190 = %d %d %d", row(2, 0), row(2, 189), row(2, 190))
	}

	v.FillPage(3, 0xF)
	v.CopyPage(0x80, 3, 200)
	v.CopyPage(0xC0, 3, -200)
	if row(3, 100) != 0xFF {
		t.Fatal("out of range scroll copied")
	}
}

func TestVideo_PresentAndPalette(t *testing.T) {
	pal := make([]byte, numPalettes*numColors*2)
	pal[32+3*2] = 0x0F
	pal[32+3*2+1] = 0x84
	v, out := newTestVideo(t, map[Segment][]byte{SegPalette: pal})

	v.FillPage(2, 3)
	v.RequestPalette(1)
	if err := v.Present(pageFront); err != nil {
		t.Fatal(err)
	}
	f := out.LastFrame()
	if len(f) != screenWidth*screenHeight*4 {
		t.Fatalf("frame length %d", len(f))
	}
	if f[0] != 0xFF || f[1] != 0x8A || f[2] != 0x45 || f[3] != 0xFF {
		t.Fatalf("pixel 0 = %v", f[:4])
	}
	if v.paletteRequested != noPaletteRequest || v.paletteCurrent != 1 {
		t.Fatalf("palette request not consumed")
	}

	if err := v.Present(pageBack); err != nil {
		t.Fatal(err)
	}
	if v.cur2 != 1 || v.cur3 != 2 {
		t.Fatalf("swap: front %d back %d", v.cur2, v.cur3)
	}
	if err := v.Present(0); err != nil {
		t.Fatal(err)
	}
	if v.FrontPage() != 0 || out.GetFrameCount() != 3 {
		t.Fatalf("front %d, frames %d", v.FrontPage(), out.GetFrameCount())
	}
}

func TestVideo_PageMask(t *testing.T) {
	v, _ := newTestVideo(t, nil)
	v.SelectPage(3)
	m := v.pageMask()
	v.Init()
	v.SelectPage(0)
	v.setPageMask(m)
	if v.cur1 != 3 || v.cur2 != 2 || v.cur3 != 1 {
		t.Fatalf("restored %d %d %d", v.cur1, v.cur2, v.cur3)
	}
}

// square is a 10x10 leaf shape.
func square(kind byte) []byte {
	return []byte{kind, 10, 10, 4, 10, 0, 10, 10, 0, 10, 0, 0}
}

func TestVideo_PolygonFillsRectangle(t *testing.T) {
	v, _ := newTestVideo(t, map[Segment][]byte{SegCinematic: square(0xC5)})
	v.SetDataPage(SegCinematic, 0)
	v.DrawPolygon(0xFF, 64, 160, 100)

	for y := 90; y < 110; y++ {
		for x := 150; x < 170; x++ {
			want := uint8(0)
			if x >= 155 && x <= 165 && y >= 95 && y <= 104 {
				want = 5
			}
			if got := pixel(v, 2, x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestVideo_PolygonClipped(t *testing.T) {
	v, _ := newTestVideo(t, map[Segment][]byte{SegCinematic: square(0xC7)})
	v.SetDataPage(SegCinematic, 0)
	v.DrawPolygon(0xFF, 64, 2, 2)
	if pixel(v, 2, 0, 0) != 7 || pixel(v, 2, 7, 6) != 7 || pixel(v, 2, 8, 0) != 0 {
		t.Fatalf("corner: %d %d %d", pixel(v, 2, 0, 0), pixel(v, 2, 7, 6), pixel(v, 2, 8, 0))
	}

	v.SetDataPage(SegCinematic, 0)
	v.DrawPolygon(0xFF, 64, 400, 100)
	v.SetDataPage(SegCinematic, 0)
	v.DrawPolygon(0xFF, 64, 100, -20)
}

func TestVideo_PolygonLineModes(t *testing.T) {
	v, _ := newTestVideo(t, map[Segment][]byte{SegCinematic: square(0xC0)})

	v.FillPage(2, 1)
	v.SetDataPage(SegCinematic, 0)
	v.DrawPolygon(colorBlend, 64, 160, 100)
	if pixel(v, 2, 160, 100) != 9 || pixel(v, 2, 155, 95) != 9 || pixel(v, 2, 154, 100) != 1 {
		t.Fatalf("blend: %d %d %d", pixel(v, 2, 160, 100), pixel(v, 2, 155, 95), pixel(v, 2, 154, 100))
	}

	v.FillPage(0, 0xC)
	v.FillPage(2, 1)
	v.SetDataPage(SegCinematic, 0)
	v.DrawPolygon(colorCopyPage0, 64, 160, 100)
	if pixel(v, 2, 165, 104) != 0xC || pixel(v, 2, 166, 104) != 1 {
		t.Fatalf("copy: %d %d", pixel(v, 2, 165, 104), pixel(v, 2, 166, 104))
	}
}

func TestVideo_Point(t *testing.T) {
	data := []byte{0xC0, 0, 1, 4, 0, 0, 0, 0, 0, 0, 0, 0}
	v, _ := newTestVideo(t, map[Segment][]byte{SegCinematic: data})
	v.SetDataPage(SegCinematic, 0)
	v.DrawPolygon(7, 64, 11, 3)
	if pixel(v, 2, 11, 3) != 7 || pixel(v, 2, 10, 3) != 0 {
		t.Fatalf("point: %d %d", pixel(v, 2, 11, 3), pixel(v, 2, 10, 3))
	}

	v.FillPage(2, 3)
	v.SetDataPage(SegCinematic, 0)
	v.DrawPolygon(colorBlend, 64, 20, 3)
	if pixel(v, 2, 20, 3) != 0xB || pixel(v, 2, 21, 3) != 3 {
		t.Fatalf("blend point: %d %d", pixel(v, 2, 20, 3), pixel(v, 2, 21, 3))
	}
}

func TestVideo_Hierarchy(t *testing.T) {
	data := make([]byte, 16)
	copy(data, []byte{
		0x02, 0x00, 0x00, 0x00, // group, origin (0,0), one child
		0x80, 0x08, 0x05, 0x00, // child at 0x10, offset (5,0), colored
		0x03, 0x00,
	})
	data = append(data, square(0xC9)...)
	v, _ := newTestVideo(t, map[Segment][]byte{SegCinematic: data})

	v.SetDataPage(SegCinematic, 0)
	v.DrawPolygon(0xFF, 64, 100, 100)
	if pixel(v, 2, 105, 100) != 3 || pixel(v, 2, 110, 100) != 3 || pixel(v, 2, 111, 100) != 0 {
		t.Fatalf("child: %d %d %d", pixel(v, 2, 105, 100), pixel(v, 2, 110, 100), pixel(v, 2, 111, 100))
	}
	if v.dataOff != 10 {
		t.Fatalf("data offset after group = %d, want 10", v.dataOff)
	}
}

func TestVideo_ShapeOutsideSegment(t *testing.T) {
	v, _ := newTestVideo(t, map[Segment][]byte{SegCinematic: {0xC0, 10}})
	v.SetDataPage(SegCinematic, 0)
	v.DrawPolygon(0xFF, 64, 100, 100)
	if !v.dataErr {
		t.Fatal("short shape not reported")
	}
	for _, b := range v.pages[2] {
		if b != 0 {
			t.Fatal("short shape drew")
		}
	}
}

func TestVideo_DrawString(t *testing.T) {
	v, _ := newTestVideo(t, nil)
	v.DrawString(0xF, 1, 8, 0x001)

	s, _ := LookupString(0x001)
	glyph := font[int(s[0]-' ')*glyphHeight:]
	for row := range glyphHeight {
		for col := range 8 {
			want := uint8(0)
			if glyph[row]&(0x80>>col) != 0 {
				want = 0xF
			}
			if got := pixel(v, 2, 8+col, 8+row); got != want {
				t.Fatalf("glyph pixel (%d,%d) = %d, want %d", col, row, got, want)
			}
		}
	}

	v.FillPage(2, 0)
	v.DrawString(0xF, 40, 0, 0x001)
	v.DrawString(0xF, 0, 193, 0x001)
	v.DrawString(0xF, 0, 0, 0x7FFF)
	for _, b := range v.pages[2] {
		if b != 0 {
			t.Fatal("clipped or unknown string drew")
		}
	}
}

func TestVideo_DrawStringNewline(t *testing.T) {
	v, _ := newTestVideo(t, nil)
	// 0x002 wraps onto a second line starting back at column 0.
	v.DrawString(0xF, 0, 0, 0x002)
	lit := func(y0 int) bool {
		for y := y0; y < y0+8; y++ {
			for x := range 8 {
				if pixel(v, 2, x, y) != 0 {
					return true
				}
			}
		}
		return false
	}
	if !lit(0) || !lit(8) {
		t.Fatal("second line not drawn at column 0")
	}
}

func TestVideo_CopyBitmap(t *testing.T) {
	v, _ := newTestVideo(t, nil)
	src := make([]byte, bitmapSize)
	src[3*bitplaneLen] = 0x80
	src[bitplaneLen] = 0x80
	src[0] = 0x40
	src[bitplaneLen-1] = 0x01
	v.CopyBitmap(src)

	if v.pages[0][0] != 0xA1 {
		t.Fatalf("byte 0 = 0x%02X, want 0xA1", v.pages[0][0])
	}
	if pixel(v, 0, 319, 199) != 1 || pixel(v, 0, 318, 199) != 0 {
		t.Fatalf("last pixels %d %d", pixel(v, 0, 318, 199), pixel(v, 0, 319, 199))
	}
	if src[0] != 0x40 {
		t.Fatal("source modified")
	}

	v.CopyBitmap(src[:100])
	if v.pages[0][0] != 0xA1 {
		t.Fatal("short bitmap was applied")
	}
}
