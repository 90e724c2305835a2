// resource_directory.go - memlist.bin descriptor table

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	DirectoryFileName   = "memlist.bin"
	directoryRecordSize = 20
	directoryEndMarker  = 0xFF
)

// ResourceState is the paging state of one descriptor.
type ResourceState uint8

const (
	StateUnloaded    ResourceState = 0
	StateLoaded      ResourceState = 1
	StatePendingLoad ResourceState = 2
)

func (s ResourceState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StatePendingLoad:
		return "pending"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// ResourceKind is the kind byte of a descriptor. Values outside the known
// range are kept as-is and reported as unknown.
type ResourceKind uint8

const (
	KindSound           ResourceKind = 0
	KindMusic           ResourceKind = 1
	KindFullscreenImage ResourceKind = 2
	KindPalette         ResourceKind = 3
	KindBytecode        ResourceKind = 4
	KindPolygon         ResourceKind = 5
)

func (k ResourceKind) Known() bool { return k <= KindPolygon }

func (k ResourceKind) String() string {
	switch k {
	case KindSound:
		return "sound"
	case KindMusic:
		return "music"
	case KindFullscreenImage:
		return "bitmap"
	case KindPalette:
		return "palette"
	case KindBytecode:
		return "bytecode"
	case KindPolygon:
		return "polygon"
	}
	return fmt.Sprintf("unknown(0x%02X)", uint8(k))
}

// ResourceDescriptor is one entry of the directory. Buffer stays nil until
// the entry is Loaded.
type ResourceDescriptor struct {
	State        ResourceState
	Kind         ResourceKind
	BufferOffset uint16
	Rank         uint8
	BankID       uint8
	BankOffset   uint32
	PackedSize   uint16
	UnpackedSize uint16
	Buffer       []byte

	reserved [3]uint16 // preserved for WriteDirectory
}

// Stored reports whether the bank holds the entry verbatim.
func (d *ResourceDescriptor) Stored() bool { return d.PackedSize == d.UnpackedSize }

// DirectoryError reports a malformed or truncated descriptor table.
type DirectoryError struct {
	Index   int
	Offset  int64
	Details string
	Err     error
}

func (e *DirectoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("directory entry %d at 0x%X: %s: %v", e.Index, e.Offset, e.Details, e.Err)
	}
	return fmt.Sprintf("directory entry %d at 0x%X: %s", e.Index, e.Offset, e.Details)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// ParseDirectory reads 20-byte big-endian records until the end marker.
func ParseDirectory(r io.Reader) ([]*ResourceDescriptor, error) {
	var descs []*ResourceDescriptor
	var rec [directoryRecordSize]byte

	for index := 0; ; index++ {
		offset := int64(index) * directoryRecordSize
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, &DirectoryError{Index: index, Offset: offset, Details: "table ends without marker", Err: io.ErrUnexpectedEOF}
			}
			return nil, &DirectoryError{Index: index, Offset: offset, Details: "read failed", Err: err}
		}

		state := rec[0]
		if state == directoryEndMarker {
			return descs, nil
		}
		if state > uint8(StatePendingLoad) {
			return nil, &DirectoryError{Index: index, Offset: offset, Details: fmt.Sprintf("invalid state byte 0x%02X", state)}
		}

		d := &ResourceDescriptor{
			State:        ResourceState(state),
			Kind:         ResourceKind(rec[1]),
			BufferOffset: binary.BigEndian.Uint16(rec[2:]),
			Rank:         rec[6],
			BankID:       rec[7],
			BankOffset:   binary.BigEndian.Uint32(rec[8:]),
			PackedSize:   binary.BigEndian.Uint16(rec[14:]),
			UnpackedSize: binary.BigEndian.Uint16(rec[18:]),
		}
		d.reserved[0] = binary.BigEndian.Uint16(rec[4:])
		d.reserved[1] = binary.BigEndian.Uint16(rec[12:])
		d.reserved[2] = binary.BigEndian.Uint16(rec[16:])
		descs = append(descs, d)
	}
}

// WriteDirectory emits descs in the memlist.bin layout followed by the end
// marker record.
func WriteDirectory(w io.Writer, descs []*ResourceDescriptor) error {
	var rec [directoryRecordSize]byte
	for _, d := range descs {
		rec[0] = uint8(d.State)
		rec[1] = uint8(d.Kind)
		binary.BigEndian.PutUint16(rec[2:], d.BufferOffset)
		binary.BigEndian.PutUint16(rec[4:], d.reserved[0])
		rec[6] = d.Rank
		rec[7] = d.BankID
		binary.BigEndian.PutUint32(rec[8:], d.BankOffset)
		binary.BigEndian.PutUint16(rec[12:], d.reserved[1])
		binary.BigEndian.PutUint16(rec[14:], d.PackedSize)
		binary.BigEndian.PutUint16(rec[16:], d.reserved[2])
		binary.BigEndian.PutUint16(rec[18:], d.UnpackedSize)
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
	}
	clear(rec[:])
	rec[0] = directoryEndMarker
	_, err := w.Write(rec[:])
	return err
}
