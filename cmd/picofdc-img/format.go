package main

import (
	"fmt"
	"os"

	"github.com/noxer/bytewriter"
	"github.com/urfave/cli/v2"

	"github.com/jdoe/picofdc/fat12"
)

const imageSize = fat12.TotalSectors * fat12.BytesPerSector

// buildImage renders a complete blank FAT12 image into buf in a single
// forward pass with bytewriter: boot sector, both FAT copies, empty
// root directory, then zero-filled data area, matching the on-disk
// layout's own sequential order so no region is ever seeked backward
// to.
func buildImage(buf []byte, label string, volumeID uint32) error {
	w := bytewriter.New(buf)

	bpb := fat12.DefaultBPB(volumeID, label)
	boot, err := bootSectorBytes(bpb)
	if err != nil {
		return err
	}
	if _, err := w.Write(boot); err != nil {
		return fmt.Errorf("write boot sector: %w", err)
	}

	for copyIdx := 0; copyIdx < int(bpb.NumFATs); copyIdx++ {
		var first [512]byte
		first[0] = fat12.MediaDescriptor
		first[1] = 0xFF
		first[2] = 0xFF
		if _, err := w.Write(first[:]); err != nil {
			return fmt.Errorf("write FAT copy %d: %w", copyIdx, err)
		}
		var blank [512]byte
		for i := 1; i < int(bpb.SectorsPerFAT); i++ {
			if _, err := w.Write(blank[:]); err != nil {
				return fmt.Errorf("write FAT copy %d: %w", copyIdx, err)
			}
		}
	}

	layout := fat12.ComputeLayout(bpb)
	for i := 0; i < layout.RootDirSecs; i++ {
		var sec [512]byte
		if i == 0 && label != "" {
			entry, err := fat12.PackVolumeLabelEntry(label)
			if err != nil {
				return fmt.Errorf("volume label %q: %w", label, err)
			}
			copy(sec[:len(entry)], entry)
		}
		if _, err := w.Write(sec[:]); err != nil {
			return fmt.Errorf("write root directory: %w", err)
		}
	}

	var blankData [512]byte
	for lba := layout.DataStart; lba < fat12.TotalSectors; lba++ {
		if _, err := w.Write(blankData[:]); err != nil {
			return fmt.Errorf("write data area: %w", err)
		}
	}
	return nil
}

// bootSectorBytes renders the jump instruction, OEM name, packed BPB
// field block, and the 0x55AA signature into a 512-byte boot sector.
func bootSectorBytes(bpb fat12.BPB) ([]byte, error) {
	sec := make([]byte, 512)
	sec[0], sec[1], sec[2] = 0xEB, 0x3C, 0x90
	copy(sec[3:11], "MSDOS5.0")

	raw, err := fat12.PackBPB(bpb)
	if err != nil {
		return nil, err
	}
	copy(sec[11:62], raw)
	sec[510], sec[511] = 0x55, 0xAA
	return sec, nil
}

func formatImage(c *cli.Context) error {
	path, err := requireOneArg(c)
	if err != nil {
		return err
	}

	buf := make([]byte, imageSize)
	if err := buildImage(buf, c.String("label"), uint32(c.Uint64("volume-id"))); err != nil {
		return fmt.Errorf("format %s: %w", path, err)
	}

	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("wrote %d bytes to %s\n", len(buf), path)
	return nil
}
