// video_text.go - String table rendering

package main

const (
	maxTextColumn = 39
	maxTextRow    = 192
	glyphHeight   = 8
)

// DrawString renders string id at column x (8 pixel units) and line y.
// A newline returns to column x eight lines lower.
func (v *Video) DrawString(color uint8, x, y uint16, stringID uint16) {
	s, ok := stringsEnglish[stringID]
	if !ok {
		videoLog.Warningf("string 0x%03X not found", stringID)
		return
	}
	x0 := x
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			y += glyphHeight
			x = x0
			continue
		}
		v.drawChar(s[i], x, y, color)
		x++
	}
}

// LookupString returns the text of string id.
func LookupString(id uint16) (string, bool) {
	s, ok := stringsEnglish[id]
	return s, ok
}

func (v *Video) drawChar(ch byte, x, y uint16, color uint8) {
	if x > maxTextColumn || y > maxTextRow {
		return
	}
	if ch < ' ' || int(ch-' ')*glyphHeight >= len(font) {
		return
	}
	glyph := font[int(ch-' ')*glyphHeight:]
	off := int(x)*4 + int(y)*pageStride
	dst := &v.pages[v.cur1]

	for row := range glyphHeight {
		bits := glyph[row]
		for i := range 4 {
			var mask byte = 0xFF
			var c byte
			if bits&0x80 != 0 {
				c |= color << 4
				mask &= 0x0F
			}
			bits <<= 1
			if bits&0x80 != 0 {
				c |= color & 0x0F
				mask &= 0xF0
			}
			bits <<= 1
			dst[off+i] = dst[off+i]&mask | c
		}
		off += pageStride
	}
}
