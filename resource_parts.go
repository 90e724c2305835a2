// resource_parts.go - Game parts and their resource slots

package main

const (
	PartFirst uint16 = 0x3E80 // protection screens
	PartIntro uint16 = 0x3E81
	PartLast  uint16 = 0x3E89 // password screen

	PartCount = 10
)

// Segment names one of the resource slots a part binds.
type Segment uint8

const (
	SegPalette Segment = iota
	SegCode
	SegCinematic
	SegVideo2
)

func (s Segment) String() string {
	switch s {
	case SegPalette:
		return "palette"
	case SegCode:
		return "code"
	case SegCinematic:
		return "cinematic"
	case SegVideo2:
		return "video2"
	}
	return "segment?"
}

// partSlots lists palette, bytecode, cinematic polygons and the optional
// character polygons (0 = none) for each part.
var partSlots = [PartCount][4]uint8{
	{0x14, 0x15, 0x16, 0x00},
	{0x17, 0x18, 0x19, 0x00},
	{0x1A, 0x1B, 0x1C, 0x11},
	{0x1D, 0x1E, 0x1F, 0x11},
	{0x20, 0x21, 0x22, 0x11},
	{0x23, 0x24, 0x25, 0x00},
	{0x26, 0x27, 0x28, 0x11},
	{0x29, 0x2A, 0x2B, 0x11},
	{0x7D, 0x7E, 0x7F, 0x00},
	{0x7D, 0x7E, 0x7F, 0x00},
}

func ValidPart(part uint16) bool {
	return part >= PartFirst && part <= PartLast
}

// PartSlots returns the descriptor indices bound by part.
func PartSlots(part uint16) ([4]uint8, bool) {
	if !ValidPart(part) {
		return [4]uint8{}, false
	}
	return partSlots[part-PartFirst], true
}
