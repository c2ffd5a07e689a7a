package fat12

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/go-restruct/restruct"
)

const dirEntrySize = 32

// Directory entry first-byte sentinels.
const (
	direntFree    = 0x00
	direntDeleted = 0xE5
)

// Attribute bits.
const (
	AttrReadOnly = 0x01
	AttrHidden   = 0x02
	AttrSystem   = 0x04
	AttrVolume   = 0x08
	AttrDir      = 0x10
	AttrArchive  = 0x20
)

// DirEntry is one 32-byte FAT12 root directory entry.
type DirEntry struct {
	Name         [8]byte
	Ext          [3]byte
	Attr         uint8
	Reserved     [10]byte
	Time         uint16
	Date         uint16
	FirstCluster uint16
	Size         uint32
}

// IsFree reports whether the slot is unused or deleted.
func (d DirEntry) IsFree() bool {
	return d.Name[0] == direntFree || d.Name[0] == direntDeleted
}

// IsEnd reports whether this slot is the end-of-directory sentinel: a
// never-used slot past the highest ever allocated.
func (d DirEntry) IsEnd() bool { return d.Name[0] == direntFree }

// IsVolumeLabel reports whether the entry is the volume label, not a
// real file.
func (d DirEntry) IsVolumeLabel() bool { return d.Attr&AttrVolume != 0 }

// FormatName8_3 splits a filename into the padded 8.3 FAT form,
// matching fat12_format_name.
func FormatName8_3(name string) ([8]byte, [3]byte, error) {
	var nameOut [8]byte
	var extOut [3]byte
	for i := range nameOut {
		nameOut[i] = ' '
	}
	for i := range extOut {
		extOut[i] = ' '
	}

	base := name
	ext := ""
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		base = name[:dot]
		ext = name[dot+1:]
	}
	if len(base) == 0 || len(base) > 8 || len(ext) > 3 {
		return nameOut, extOut, fmt.Errorf("fat12: %q is not a valid 8.3 name", name)
	}
	for i := 0; i < len(base); i++ {
		nameOut[i] = toUpper(base[i])
	}
	for i := 0; i < len(ext); i++ {
		extOut[i] = toUpper(ext[i])
	}
	return nameOut, extOut, nil
}

// Name83ToString renders a raw 8.3 name/ext pair back to "NAME.EXT".
func Name83ToString(name [8]byte, ext [3]byte) string {
	n := strings.TrimRight(string(name[:]), " ")
	e := strings.TrimRight(string(ext[:]), " ")
	if e == "" {
		return n
	}
	return n + "." + e
}

func unpackDirEntry(raw []byte) (DirEntry, error) {
	var d DirEntry
	if err := restruct.Unpack(raw, binary.LittleEndian, &d); err != nil {
		return DirEntry{}, fmt.Errorf("fat12: unpack directory entry: %w", err)
	}
	return d, nil
}

func packDirEntry(d DirEntry) ([]byte, error) {
	raw, err := restruct.Pack(binary.LittleEndian, &d)
	if err != nil {
		return nil, fmt.Errorf("fat12: pack directory entry: %w", err)
	}
	return raw, nil
}

// readRootEntry returns the directory entry at root-relative index idx,
// matching fat12_read_root_entry.
func (e *Engine) readRootEntry(idx int) (DirEntry, error) {
	perSector := BytesPerSector / dirEntrySize
	lba := e.layout.RootDirStart + idx/perSector
	sec, err := e.readSector(lba)
	if err != nil {
		return DirEntry{}, err
	}
	off := (idx % perSector) * dirEntrySize
	return unpackDirEntry(sec[off : off+dirEntrySize])
}

// writeRootEntry writes the directory entry at root-relative index idx.
func (e *Engine) writeRootEntry(idx int, d DirEntry) error {
	perSector := BytesPerSector / dirEntrySize
	lba := e.layout.RootDirStart + idx/perSector
	sec, err := e.readSector(lba)
	if err != nil {
		return err
	}
	raw, err := packDirEntry(d)
	if err != nil {
		return err
	}
	off := (idx % perSector) * dirEntrySize
	copy(sec[off:off+dirEntrySize], raw)
	return e.writeSector(lba, sec)
}

// Find performs a linear scan of the root directory for name, stopping
// at the end-of-directory sentinel, matching fat12_find.
func (e *Engine) Find(name string) (DirEntry, int, error) {
	wantName, wantExt, err := FormatName8_3(name)
	if err != nil {
		return DirEntry{}, 0, err
	}
	for idx := 0; idx < int(e.bpb.RootEntries); idx++ {
		d, err := e.readRootEntry(idx)
		if err != nil {
			return DirEntry{}, 0, err
		}
		if d.IsEnd() {
			break
		}
		if d.IsFree() || d.IsVolumeLabel() {
			continue
		}
		if d.Name == wantName && d.Ext == wantExt {
			return d, idx, nil
		}
	}
	return DirEntry{}, 0, errNotFound
}

// findFreeDirentSlot returns the index of the first free or deleted
// slot, matching fat12_find_free_dirent.
func (e *Engine) findFreeDirentSlot() (int, error) {
	for idx := 0; idx < int(e.bpb.RootEntries); idx++ {
		d, err := e.readRootEntry(idx)
		if err != nil {
			return 0, err
		}
		if d.IsFree() {
			return idx, nil
		}
	}
	return 0, errDirectoryFull
}

// ListRoot returns every live (non-deleted, non-volume-label) directory
// entry, matching f12_readdir's filtering.
func (e *Engine) ListRoot() ([]DirEntry, error) {
	var out []DirEntry
	for idx := 0; idx < int(e.bpb.RootEntries); idx++ {
		d, err := e.readRootEntry(idx)
		if err != nil {
			return nil, err
		}
		if d.IsEnd() {
			break
		}
		if d.IsFree() || d.IsVolumeLabel() {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
