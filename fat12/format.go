package fat12

import "fmt"

// FormatMode selects how thoroughly Format initializes a disk.
type FormatMode int

const (
	// QuickFormat rewrites only the boot sector, FAT copies, and root
	// directory, matching fat12_quick_format.
	QuickFormat FormatMode = iota
	// FullFormat additionally zero-fills every data cluster, matching
	// fat12_full_format.
	FullFormat
)

// Format lays down a fresh FAT12 filesystem: boot sector, both FAT
// copies (reserved entries 0 and 1 plus the media descriptor byte), and
// an empty root directory, matching fat12_format's build-boot-sector /
// build-volume-label / fill-format-sector sequence.
func Format(io SectorIO, mode FormatMode, volumeID uint32, label string) error {
	bpb := DefaultBPB(volumeID, label)
	layout := ComputeLayout(bpb)

	boot, err := buildBootSector(bpb)
	if err != nil {
		return err
	}
	if err := io.WriteSector(0, boot); err != nil {
		return fmt.Errorf("fat12: write boot sector: %w", err)
	}

	for copyIdx := 0; copyIdx < int(bpb.NumFATs); copyIdx++ {
		start := layout.FAT1Start + copyIdx*int(bpb.SectorsPerFAT)
		for i := 0; i < int(bpb.SectorsPerFAT); i++ {
			var sec [512]byte
			if i == 0 {
				sec[0] = MediaDescriptor
				sec[1] = 0xFF
				sec[2] = 0xFF
			}
			if err := io.WriteSector(start+i, sec); err != nil {
				return fmt.Errorf("fat12: write FAT copy %d sector %d: %w", copyIdx, i, err)
			}
		}
	}

	var blank [512]byte
	for i := 0; i < layout.RootDirSecs; i++ {
		sec := blank
		if i == 0 && label != "" {
			raw, err := PackVolumeLabelEntry(label)
			if err != nil {
				return err
			}
			copy(sec[:dirEntrySize], raw)
		}
		if err := io.WriteSector(layout.RootDirStart+i, sec); err != nil {
			return fmt.Errorf("fat12: write root directory sector %d: %w", i, err)
		}
	}

	if mode == FullFormat {
		for lba := layout.DataStart; lba < TotalSectors; lba++ {
			if err := io.WriteSector(lba, blank); err != nil {
				return fmt.Errorf("fat12: zero-fill data sector %d: %w", lba, err)
			}
		}
	}
	return nil
}

// PackVolumeLabelEntry packs label as the root directory's index-0
// volume-label entry, matching fat12_build_volume_label.
func PackVolumeLabelEntry(label string) ([]byte, error) {
	nameBytes, extBytes, err := FormatName8_3(label)
	if err != nil {
		return nil, fmt.Errorf("fat12: volume label %q: %w", label, err)
	}
	return packDirEntry(DirEntry{Name: nameBytes, Ext: extBytes, Attr: AttrVolume})
}

// buildBootSector renders a BPB into a complete 512-byte boot sector
// (jump instruction, OEM name, the BPB field block, and the trailing
// 0x55AA signature), matching fat12_build_boot_sector.
func buildBootSector(bpb BPB) ([512]byte, error) {
	var sec [512]byte
	sec[0] = 0xEB
	sec[1] = 0x3C
	sec[2] = 0x90
	copy(sec[3:11], "MSDOS5.0")

	raw, err := PackBPB(bpb)
	if err != nil {
		return sec, err
	}
	copy(sec[11:62], raw)

	sec[510] = 0x55
	sec[511] = 0xAA
	return sec, nil
}
