// video_pages.go - Four 4bpp pages, palette and presentation

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
	"fmt"
	"image/color"
)

const (
	screenWidth  = 320
	screenHeight = 200
	pageStride   = screenWidth / 2
	pageSize     = pageStride * screenHeight
	numPages     = 4
	numColors    = 16
	numPalettes  = 32

	pageFront        = 0xFE
	pageBack         = 0xFF
	noPaletteRequest = 0xFF

	bitmapSize  = 4 * 8000
	bitplaneLen = 8000
)

// Video is the 320x200 16-colour display unit. Each page packs two pixels
// per byte, high nibble first.
type Video struct {
	res *Resources
	out VideoOutput

	pages [numPages][pageSize]byte

	// cur1 is drawn into, cur2 is displayed, cur3 is the back buffer.
	cur1, cur2, cur3 int

	paletteRequested uint8
	paletteCurrent   uint8
	palette          [numColors]color.RGBA
	frame            []byte

	data    []byte
	dataOff int
	dataErr bool
	poly    polygon
	hliney  int16
}

func NewVideo(res *Resources, out VideoOutput) *Video {
	v := &Video{res: res, out: out, frame: make([]byte, screenWidth*screenHeight*4)}
	v.Init()
	return v
}

// Init restores the power-on page assignment.
func (v *Video) Init() {
	v.paletteRequested = noPaletteRequest
	v.cur3 = v.pageIndex(1)
	v.cur2 = v.pageIndex(2)
	v.cur1 = v.pageIndex(pageFront)
}

func (v *Video) pageIndex(page uint8) int {
	switch {
	case page < numPages:
		return int(page)
	case page == pageBack:
		return v.cur3
	case page == pageFront:
		return v.cur2
	}
	videoLog.Debugf("page id 0x%02X maps to page 0", page)
	return 0
}

func (v *Video) SelectPage(page uint8) {
	v.cur1 = v.pageIndex(page)
}

func (v *Video) FillPage(page, c uint8) {
	b := c<<4 | c&0x0F
	p := &v.pages[v.pageIndex(page)]
	for i := range p {
		p[i] = b
	}
}

// CopyPage copies src onto dst. Sources 0x80..0x83 (after masking 0x40)
// are copied shifted down by vscroll lines.
func (v *Video) CopyPage(src, dst uint8, vscroll int16) {
	if src == dst {
		return
	}
	q := v.pageIndex(dst)

	switch {
	case src >= pageFront:
		v.pages[q] = v.pages[v.pageIndex(src)]
		return
	case src&0xBF&0x80 == 0:
		v.pages[q] = v.pages[v.pageIndex(src&0xBF)]
		return
	}

	p := v.pageIndex(src & 3)
	if vscroll < -199 || vscroll > 199 {
		return
	}
	h := screenHeight
	srcOff, dstOff := 0, 0
	if vscroll < 0 {
		h += int(vscroll)
		srcOff = -int(vscroll) * pageStride
	} else {
		h -= int(vscroll)
		dstOff = int(vscroll) * pageStride
	}
	if p == q {
		return
	}
	copy(v.pages[q][dstOff:dstOff+h*pageStride], v.pages[p][srcOff:])
}

// RequestPalette schedules palette id for the next Present.
func (v *Video) RequestPalette(id uint8) {
	v.paletteRequested = id
}

// Present makes page visible: 0xFE keeps the current front page, 0xFF
// swaps front and back, anything else becomes the front page.
func (v *Video) Present(page uint8) error {
	switch page {
	case pageFront:
	case pageBack:
		v.cur2, v.cur3 = v.cur3, v.cur2
	default:
		v.cur2 = v.pageIndex(page)
	}

	if v.paletteRequested != noPaletteRequest {
		v.loadPalette(v.paletteRequested)
		v.paletteRequested = noPaletteRequest
	}

	v.renderFrame(v.cur2)
	if v.out == nil {
		return nil
	}
	if err := v.out.UpdateFrame(v.frame); err != nil {
		return &VideoError{Operation: "present", Details: fmt.Sprintf("page %d", v.cur2), Err: err}
	}
	return nil
}

// Frame returns the last presented image as RGBA bytes.
func (v *Video) Frame() []byte { return v.frame }

// FrontPage returns the index of the displayed page.
func (v *Video) FrontPage() int { return v.cur2 }

// loadPalette reads 16 entries of 0x0RGB from the palette segment.
func (v *Video) loadPalette(id uint8) {
	if id >= numPalettes {
		return
	}
	seg := v.res.Segment(SegPalette)
	off := int(id) * numColors * 2
	if off+numColors*2 > len(seg) {
		videoLog.Warningf("palette %d outside palette segment (%d bytes)", id, len(seg))
		return
	}
	for i := range v.palette {
		c0, c1 := seg[off+i*2], seg[off+i*2+1]
		r := c0 & 0x0F
		g := c1 >> 4
		b := c1 & 0x0F
		v.palette[i] = color.RGBA{R: expandComponent(r), G: expandComponent(g), B: expandComponent(b), A: 0xFF}
	}
	v.paletteCurrent = id
}

// expandComponent widens a 4-bit component to the 6-bit DAC value the
// hardware used and then to 8 bits.
func expandComponent(n uint8) uint8 {
	six := n<<2 | n>>2
	return six<<2 | six>>4
}

func (v *Video) renderFrame(page int) {
	src := &v.pages[page]
	dst := v.frame
	for i, b := range src {
		hi, lo := v.palette[b>>4], v.palette[b&0x0F]
		o := i * 8
		dst[o], dst[o+1], dst[o+2], dst[o+3] = hi.R, hi.G, hi.B, hi.A
		dst[o+4], dst[o+5], dst[o+6], dst[o+7] = lo.R, lo.G, lo.B, lo.A
	}
}

// CopyBitmap converts a 4-bitplane 320x200 image into page 0. Plane 3 is
// the most significant bit of each pixel.
func (v *Video) CopyBitmap(src []byte) {
	if len(src) < bitmapSize {
		videoLog.Warningf("bitmap of %d bytes, want %d", len(src), bitmapSize)
		return
	}
	planes := make([]byte, bitmapSize)
	copy(planes, src)

	dst := 0
	for s := range bitplaneLen {
		p := [4]int{s + 3*bitplaneLen, s + 2*bitplaneLen, s + bitplaneLen, s}
		for range 4 {
			var acc byte
			for i := range 8 {
				acc <<= 1
				acc |= planes[p[i&3]] >> 7
				planes[p[i&3]] <<= 1
			}
			v.pages[0][dst] = acc
			dst++
		}
	}
}

// pageMask packs the three page selectors into one byte.
func (v *Video) pageMask() uint8 {
	return uint8(v.cur1<<4 | v.cur2<<2 | v.cur3)
}

func (v *Video) setPageMask(m uint8) {
	v.cur1 = int(m>>4) & 3
	v.cur2 = int(m>>2) & 3
	v.cur3 = int(m) & 3
}
