// resource_bank.go - Bank file access

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var ErrSizeMismatch = errors.New("bank entry length does not match descriptor")

// BankFileName is the on-disk name of bank id, e.g. bank0d.
func BankFileName(id uint8) string { return fmt.Sprintf("bank%02x", id) }

// BankSet reads descriptor byte ranges out of the bank files of one data
// directory.
type BankSet struct {
	dir string
}

func NewBankSet(dir string) *BankSet {
	return &BankSet{dir: dir}
}

func (b *BankSet) Dir() string { return b.dir }

// OpenDirectory opens memlist.bin in the data directory and parses it.
func (b *BankSet) OpenDirectory() ([]*ResourceDescriptor, error) {
	f, err := os.Open(filepath.Join(b.dir, DirectoryFileName))
	if err != nil {
		return nil, fmt.Errorf("cannot open directory: %w", err)
	}
	defer f.Close()
	return ParseDirectory(f)
}

// ReadPacked returns the PackedSize raw bytes of desc from its bank.
func (b *BankSet) ReadPacked(desc *ResourceDescriptor) ([]byte, error) {
	name := filepath.Join(b.dir, BankFileName(desc.BankID))
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("cannot open bank: %w", err)
	}
	defer f.Close()

	buf := make([]byte, desc.PackedSize)
	if _, err := f.ReadAt(buf, int64(desc.BankOffset)); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%s: reading %d bytes at 0x%X: %w", BankFileName(desc.BankID), desc.PackedSize, desc.BankOffset, err)
	}
	return buf, nil
}

// LoadBankEntry reads desc from its bank, unpacking it unless it is stored
// verbatim. The result is always exactly UnpackedSize bytes long.
func (b *BankSet) LoadBankEntry(desc *ResourceDescriptor) ([]byte, error) {
	raw, err := b.ReadPacked(desc)
	if err != nil {
		return nil, err
	}

	data := raw
	if !desc.Stored() {
		bankLog.Debugf("unpacking %d bytes from %s at 0x%X", desc.PackedSize, BankFileName(desc.BankID), desc.BankOffset)
		if data, err = Unpack(raw); err != nil {
			return nil, fmt.Errorf("%s at 0x%X: %w", BankFileName(desc.BankID), desc.BankOffset, err)
		}
	}

	if len(data) != int(desc.UnpackedSize) {
		return nil, fmt.Errorf("got %d bytes, expected %d: %w", len(data), desc.UnpackedSize, ErrSizeMismatch)
	}
	return data, nil
}
