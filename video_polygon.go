// video_polygon.go - Polygon shapes and the scanline filler

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

const (
	maxPolygonPoints = 50
	maxShapeDepth    = 16

	colorBlend     = 0x10
	colorCopyPage0 = 0x11
)

type point struct {
	x, y int16
}

type polygon struct {
	bbw, bbh int16
	n        int
	pts      [maxPolygonPoints]point
}

// interpTable[dy] is 0x4000/dy, with dy 0 treated as 1.
var interpTable [0x400]int32

func init() {
	interpTable[0] = 0x4000
	for i := 1; i < len(interpTable); i++ {
		interpTable[i] = int32(0x4000 / i)
	}
}

// SetDataPage points the shape reader at offset within a polygon segment.
func (v *Video) SetDataPage(seg Segment, offset uint16) {
	v.data = v.res.Segment(seg)
	v.dataOff = int(offset)
}

// DrawPolygon draws the shape at the current data offset centred on (x, y).
// zoom is in 1/64 units. A color with bit 7 set takes each leaf's own
// color.
func (v *Video) DrawPolygon(color uint8, zoom uint16, x, y int16) {
	start := v.dataOff
	v.dataErr = false
	v.drawShape(color, zoom, point{x, y}, 0)
	if v.dataErr {
		videoLog.Warningf("shape at 0x%04X reads past its segment (%d bytes)", start, len(v.data))
	}
}

func (v *Video) fetch8() uint8 {
	if v.dataOff < 0 || v.dataOff >= len(v.data) {
		v.dataErr = true
		v.dataOff++
		return 0
	}
	b := v.data[v.dataOff]
	v.dataOff++
	return b
}

func (v *Video) fetch16() uint16 {
	hi := v.fetch8()
	return uint16(hi)<<8 | uint16(v.fetch8())
}

func scaled(b uint8, zoom uint16) int16 {
	return int16(int(b) * int(zoom) / 64)
}

func (v *Video) drawShape(color uint8, zoom uint16, pt point, depth int) {
	if depth > maxShapeDepth {
		videoLog.Warningf("shape nesting deeper than %d at 0x%04X", maxShapeDepth, v.dataOff)
		return
	}
	i := v.fetch8()
	if v.dataErr {
		return
	}
	if i >= 0xC0 {
		if color&0x80 != 0 {
			color = i & 0x3F
		}
		if v.readVertices(zoom) {
			v.fillPolygon(color, pt)
		}
		return
	}
	if i&0x3F == 2 {
		v.drawHierarchy(zoom, pt, depth)
		return
	}
	videoLog.Warningf("unknown shape type 0x%02X at 0x%04X", i, v.dataOff-1)
}

func (v *Video) readVertices(zoom uint16) bool {
	p := &v.poly
	p.bbw = scaled(v.fetch8(), zoom)
	p.bbh = scaled(v.fetch8(), zoom)
	p.n = int(v.fetch8())
	if p.n < 2 || p.n&1 != 0 || p.n > maxPolygonPoints {
		videoLog.Warningf("polygon with %d vertices at 0x%04X", p.n, v.dataOff-3)
		return false
	}
	for k := range p.n {
		p.pts[k].x = scaled(v.fetch8(), zoom)
		p.pts[k].y = scaled(v.fetch8(), zoom)
	}
	return !v.dataErr
}

// drawHierarchy draws a group: an origin adjustment followed by
// children+1 sub-shapes, each with an offset and an optional color.
func (v *Video) drawHierarchy(zoom uint16, origin point, depth int) {
	pt := origin
	pt.x -= scaled(v.fetch8(), zoom)
	pt.y -= scaled(v.fetch8(), zoom)
	children := int(v.fetch8())

	for ; children >= 0 && !v.dataErr; children-- {
		off := v.fetch16()
		po := pt
		po.x += scaled(v.fetch8(), zoom)
		po.y += scaled(v.fetch8(), zoom)

		color := uint8(colorPolygonDefault)
		if off&0x8000 != 0 {
			color = v.fetch8() & 0x7F
			v.dataOff++
		}

		bak := v.dataOff
		v.dataOff = int(off&0x7FFF) * 2
		v.drawShape(color, zoom, po, depth+1)
		v.dataOff = bak
	}
}

// calcStep returns the 16.16 x increment per line along p1->p2 and the
// number of lines it spans.
func calcStep(p1, p2 point) (int32, int) {
	dy := int(p2.y) - int(p1.y)
	if dy < 0 || dy >= len(interpTable) {
		return 0, 0
	}
	return int32(p2.x-p1.x) * interpTable[dy] * 4, dy
}

// fillPolygon walks the left edge down from the last vertex and the right
// edge down from the first, filling one span per line.
func (v *Video) fillPolygon(color uint8, pt point) {
	p := &v.poly
	if p.bbw == 0 && p.bbh == 1 && p.n == 4 {
		v.drawPoint(color, pt.x, pt.y)
		return
	}

	x1 := pt.x - p.bbw/2
	x2 := pt.x + p.bbw/2
	y1 := pt.y - p.bbh/2
	y2 := pt.y + p.bbh/2
	if x1 > screenWidth-1 || x2 < 0 || y1 > screenHeight-1 || y2 < 0 {
		return
	}

	v.hliney = y1
	i, j := 0, p.n-1
	x2 = p.pts[i].x + x1
	x1 = p.pts[j].x + x1
	i++
	j--

	cpt1 := uint32(int32(x1)) << 16
	cpt2 := uint32(int32(x2)) << 16

	for n := p.n - 2; n > 0; n -= 2 {
		step1, _ := calcStep(p.pts[j+1], p.pts[j])
		step2, h := calcStep(p.pts[i-1], p.pts[i])
		i++
		j--

		cpt1 = cpt1&0xFFFF0000 | 0x7FFF
		cpt2 = cpt2&0xFFFF0000 | 0x8000

		if h == 0 {
			cpt1 += uint32(step1)
			cpt2 += uint32(step2)
			continue
		}
		for ; h > 0; h-- {
			if v.hliney >= 0 {
				l, r := int16(cpt1>>16), int16(cpt2>>16)
				if l <= screenWidth-1 && r >= 0 {
					v.drawSpan(color, max(l, 0), min(r, screenWidth-1))
				}
			}
			cpt1 += uint32(step1)
			cpt2 += uint32(step2)
			v.hliney++
			if v.hliney > screenHeight-1 {
				return
			}
		}
	}
}

// drawSpan fills x1..x2 on line hliney of the draw page. Colors below 0x10
// are solid, 0x10 sets the high bit of each pixel and anything above copies
// the span from page 0.
func (v *Video) drawSpan(color uint8, x1, x2 int16) {
	xmin, xmax := min(x1, x2), max(x1, x2)
	off := int(v.hliney)*pageStride + int(xmin/2)
	w := int(xmax/2-xmin/2) + 1
	partialStart := xmin&1 != 0
	partialEnd := xmax&1 == 0
	if partialStart {
		w--
	}
	if partialEnd {
		w--
	}

	dst := &v.pages[v.cur1]
	switch {
	case color < colorBlend:
		c := (color&0x0F)<<4 | color&0x0F
		if partialStart {
			dst[off] = dst[off]&0xF0 | c&0x0F
			off++
		}
		for range w {
			dst[off] = c
			off++
		}
		if partialEnd {
			dst[off] = dst[off]&0x0F | c&0xF0
		}
	case color == colorBlend:
		if partialStart {
			dst[off] = dst[off]&0xF7 | 0x08
			off++
		}
		for range w {
			dst[off] = dst[off]&0x77 | 0x88
			off++
		}
		if partialEnd {
			dst[off] = dst[off]&0x7F | 0x80
		}
	default:
		src := &v.pages[0]
		if partialStart {
			dst[off] = dst[off]&0xF0 | src[off]&0x0F
			off++
		}
		for range w {
			dst[off] = src[off]
			off++
		}
		if partialEnd {
			dst[off] = dst[off]&0x0F | src[off]&0xF0
		}
	}
}

func (v *Video) drawPoint(color uint8, x, y int16) {
	if x < 0 || x > screenWidth-1 || y < 0 || y > screenHeight-1 {
		return
	}
	off := int(y)*pageStride + int(x/2)

	var keep, set byte = 0x0F, 0xF0
	if x&1 != 0 {
		keep, set = 0xF0, 0x0F
	}

	var c byte
	switch color {
	case colorBlend:
		set &= 0x88
		keep = ^set
		c = 0x88
	case colorCopyPage0:
		c = v.pages[0][off]
	default:
		c = color<<4 | color
	}
	dst := &v.pages[v.cur1]
	dst[off] = dst[off]&keep | c&set
}
