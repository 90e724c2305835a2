// engine_tools.go - Data file inspection for the command line tool modes

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

// ListResources prints the directory as a table.
func ListResources(w io.Writer, descs []*ResourceDescriptor) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "id\tkind\trank\tbank\toffset\tpacked\tsize\t")
	var packed, unpacked int
	for i, d := range descs {
		fmt.Fprintf(tw, "0x%02X\t%s\t%d\t%s\t0x%06X\t%d\t%d\t\n",
			i, d.Kind, d.Rank, BankFileName(d.BankID), d.BankOffset, d.PackedSize, d.UnpackedSize)
		packed += int(d.PackedSize)
		unpacked += int(d.UnpackedSize)
	}
	fmt.Fprintf(tw, "%d\tresources\t\t\t\t%d\t%d\t\n", len(descs), packed, unpacked)
	return tw.Flush()
}

// ExtractResource returns the unpacked bytes of resource id.
func ExtractResource(banks *BankSet, descs []*ResourceDescriptor, id int) ([]byte, error) {
	if id < 0 || id >= len(descs) {
		return nil, fmt.Errorf("resource 0x%02X: directory has %d entries", id, len(descs))
	}
	d := descs[id]
	if d.BankID == 0 {
		return nil, fmt.Errorf("resource 0x%02X has no bank", id)
	}
	data, err := banks.LoadBankEntry(d)
	if err != nil {
		return nil, fmt.Errorf("resource 0x%02X: %w", id, err)
	}
	return data, nil
}

// DisassembleResource lists bytecode resource id.
func DisassembleResource(w io.Writer, banks *BankSet, descs []*ResourceDescriptor, id int) error {
	data, err := ExtractResource(banks, descs, id)
	if err != nil {
		return err
	}
	if k := descs[id].Kind; k != KindBytecode {
		return fmt.Errorf("resource 0x%02X is %s, not bytecode", id, k)
	}
	prog, err := ParseProgram(data, 0)
	if err != nil {
		return err
	}
	return Disassemble(w, prog)
}

// PackFile encodes the contents of in with the bank codec into out.
func PackFile(in, out string) (int, int, error) {
	raw, err := os.ReadFile(in)
	if err != nil {
		return 0, 0, err
	}
	packed := Pack(raw)
	if err := os.WriteFile(out, packed, 0644); err != nil {
		return 0, 0, err
	}
	return len(raw), len(packed), nil
}
