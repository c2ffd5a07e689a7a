// Package fat12 implements the on-disk FAT12 filesystem layer: BIOS
// Parameter Block parsing, 12-bit FAT chain traversal and allocation,
// directory entries, and write batching to whole-track I/O.
package fat12

import (
	"encoding/binary"
	"fmt"

	"github.com/go-restruct/restruct"
)

// Canonical geometry for a 3.5" 1.44 MB disk; fat12_init_hd_layout's
// hardcoded values.
const (
	BytesPerSector    = 512
	SectorsPerCluster = 1
	ReservedSectors   = 1
	NumFATs           = 2
	RootDirEntries    = 224
	TotalSectors      = 2880
	MediaDescriptor   = 0xF0
	SectorsPerFAT     = 9
	SectorsPerTrack   = 18
	NumHeads          = 2

	rootDirBytes  = RootDirEntries * 32
	rootDirSecs   = rootDirBytes / BytesPerSector
	dataStartLBA  = ReservedSectors + NumFATs*SectorsPerFAT + rootDirSecs
	totalClusters = (TotalSectors - dataStartLBA) / SectorsPerCluster
)

// BPB is the BIOS Parameter Block, laid out exactly as it appears in the
// boot sector (bytes 11 through 61), parsed with restruct instead of
// manual offset math.
type BPB struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntries       uint16
	TotalSectors16    uint16
	MediaDescriptor   uint8
	SectorsPerFAT     uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	TotalSectors32    uint32
	DriveNumber       uint8
	Reserved1         uint8
	BootSignature     uint8
	VolumeID          uint32
	VolumeLabel       [11]byte
	FileSystemType    [8]byte
}

// ParseBPB unpacks the BPB from a raw boot sector's bytes [11:62).
func ParseBPB(bootSector []byte) (BPB, error) {
	if len(bootSector) < BytesPerSector {
		return BPB{}, fmt.Errorf("fat12: boot sector too short (%d bytes)", len(bootSector))
	}
	if bootSector[510] != 0x55 || bootSector[511] != 0xAA {
		return BPB{}, fmt.Errorf("fat12: missing boot signature 0x55AA")
	}
	var bpb BPB
	if err := restruct.Unpack(bootSector[11:62], binary.LittleEndian, &bpb); err != nil {
		return BPB{}, fmt.Errorf("fat12: unpack BPB: %w", err)
	}
	return bpb, bpb.Validate()
}

// PackBPB serializes a BPB back into its 51-byte on-disk field block
// (boot sector bytes [11:62)), the restruct inverse of ParseBPB.
func PackBPB(bpb BPB) ([]byte, error) {
	raw, err := restruct.Pack(binary.LittleEndian, &bpb)
	if err != nil {
		return nil, fmt.Errorf("fat12: pack BPB: %w", err)
	}
	return raw, nil
}

// Validate checks the BPB against the one geometry this codec supports,
// matching fat12_init's sanity checks.
func (b BPB) Validate() error {
	if b.BytesPerSector != BytesPerSector {
		return fmt.Errorf("fat12: unsupported bytes/sector %d", b.BytesPerSector)
	}
	if b.SectorsPerCluster != SectorsPerCluster {
		return fmt.Errorf("fat12: unsupported sectors/cluster %d", b.SectorsPerCluster)
	}
	if b.NumFATs == 0 {
		return fmt.Errorf("fat12: zero FAT copies")
	}
	if b.RootEntries == 0 {
		return fmt.Errorf("fat12: zero root directory entries")
	}
	if b.SectorsPerFAT == 0 {
		return fmt.Errorf("fat12: zero sectors per FAT")
	}
	return nil
}

// Layout is the geometry derived from a validated BPB: sector offsets
// for each region, matching fat12_compute_layout.
type Layout struct {
	FAT1Start    int
	FAT2Start    int
	RootDirStart int
	RootDirSecs  int
	DataStart    int
	TotalClusters int
}

// ComputeLayout derives region offsets from bpb.
func ComputeLayout(bpb BPB) Layout {
	fat1 := int(bpb.ReservedSectors)
	fat2 := fat1 + int(bpb.SectorsPerFAT)
	rootStart := fat2 + int(bpb.NumFATs-1)*int(bpb.SectorsPerFAT)
	rootSecs := (int(bpb.RootEntries)*32 + int(bpb.BytesPerSector) - 1) / int(bpb.BytesPerSector)
	dataStart := rootStart + rootSecs
	total := int(bpb.TotalSectors16)
	if total == 0 {
		total = int(bpb.TotalSectors32)
	}
	clusters := (total - dataStart) / int(bpb.SectorsPerCluster)
	return Layout{
		FAT1Start:     fat1,
		FAT2Start:     fat2,
		RootDirStart:  rootStart,
		RootDirSecs:   rootSecs,
		DataStart:     dataStart,
		TotalClusters: clusters,
	}
}

// LBAToCHS converts a logical block address to cylinder/head/sector,
// matching fat12_lba_to_chs (sector numbers are 1-based).
func LBAToCHS(lba int) (cylinder, head int, sector byte) {
	trackSize := SectorsPerTrack
	sectorsPerCyl := trackSize * NumHeads
	cylinder = lba / sectorsPerCyl
	rem := lba % sectorsPerCyl
	head = rem / trackSize
	sector = byte(rem%trackSize) + 1
	return
}

// ClusterToLBA converts a cluster number (>=2) to its first LBA.
func ClusterToLBA(layout Layout, cluster int) int {
	return layout.DataStart + (cluster-2)*SectorsPerCluster
}

// DefaultBPB returns the canonical 1.44 MB BPB used by Format.
func DefaultBPB(volumeID uint32, label string) BPB {
	var b BPB
	b.BytesPerSector = BytesPerSector
	b.SectorsPerCluster = SectorsPerCluster
	b.ReservedSectors = ReservedSectors
	b.NumFATs = NumFATs
	b.RootEntries = RootDirEntries
	b.TotalSectors16 = TotalSectors
	b.MediaDescriptor = MediaDescriptor
	b.SectorsPerFAT = SectorsPerFAT
	b.SectorsPerTrack = SectorsPerTrack
	b.NumHeads = NumHeads
	b.DriveNumber = 0
	b.BootSignature = 0x29
	b.VolumeID = volumeID
	formatLabel(label, &b.VolumeLabel)
	copy(b.FileSystemType[:], "FAT12   ")
	return b
}

func formatLabel(label string, out *[11]byte) {
	for i := range out {
		out[i] = ' '
	}
	for i := 0; i < 11 && i < len(label); i++ {
		out[i] = toUpper(label[i])
	}
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
