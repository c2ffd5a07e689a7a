package fat12

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	log "github.com/dsoprea/go-logging"
)

// Cluster chain sentinels, 12-bit values.
const (
	clusterFree    = 0x000
	clusterBadLo   = 0xFF7
	clusterEOFLo   = 0xFF8
	clusterEOFHi   = 0xFFF
	clusterReserved = 1 // clusters 0 and 1 are reserved, never allocated
)

// Engine is the mounted FAT12 state: BPB, derived layout, the raw
// sector I/O vtable, and the write-batch + freemap layers above it.
type Engine struct {
	bpb    BPB
	layout Layout
	io     SectorIO

	batch   *writeBatch
	freemap bitmap.Bitmap
}

// Open parses and validates the boot sector through io, builds the free
// cluster bitmap from the FAT, and returns a ready Engine. Matches
// fat12_init.
func Open(io SectorIO) (*Engine, error) {
	boot, err := io.ReadSector(0)
	if err != nil {
		return nil, fmt.Errorf("fat12: read boot sector: %w", err)
	}
	bpb, err := ParseBPB(boot[:])
	if err != nil {
		return nil, err
	}
	layout := ComputeLayout(bpb)

	e := &Engine{bpb: bpb, layout: layout, io: io}
	e.batch = newWriteBatch(io)
	if err := e.rebuildFreemap(); err != nil {
		return nil, err
	}
	return e, nil
}

// BPB returns the mounted BPB.
func (e *Engine) BPB() BPB { return e.bpb }

// Layout returns the derived region layout.
func (e *Engine) Layout() Layout { return e.layout }

func (e *Engine) readSector(lba int) ([512]byte, error) {
	return e.batch.read(lba)
}

func (e *Engine) writeSector(lba int, data [512]byte) error {
	return e.batch.write(lba, data)
}

// Flush writes any batched sectors out as whole tracks, matching
// fat12_write_batch_flush.
func (e *Engine) Flush() error {
	return e.batch.flush()
}

// rebuildFreemap scans the FAT once and populates the bitmap accelerator
// used by FindFreeClusterFrom. The FAT itself remains authoritative;
// this index is rebuilt from scratch at mount and kept in lockstep by
// SetEntry, never trusted on its own.
func (e *Engine) rebuildFreemap() error {
	e.freemap = bitmap.New(e.layout.TotalClusters)
	for c := 2; c < e.layout.TotalClusters+2; c++ {
		entry, err := e.GetEntry(c)
		if err != nil {
			return fmt.Errorf("fat12: rebuilding free map: %w", err)
		}
		if entry != clusterFree {
			e.freemap.Set(c-2, true)
		}
	}
	return nil
}

func fatEntryLBA(layout Layout, fatStart int, cluster int) (lba int, byteOffset int) {
	fatByteOffset := cluster + cluster/2
	lba = fatStart + fatByteOffset/BytesPerSector
	byteOffset = fatByteOffset % BytesPerSector
	return
}

// resolveEntry reads a 12-bit FAT entry via read, handling the
// odd/even nibble packing and sector-boundary straddling, matching
// fat12_resolve_entry.
func (e *Engine) resolveEntry(fatStart, cluster int, read func(lba int) ([512]byte, error)) (uint16, error) {
	lba, off := fatEntryLBA(e.layout, fatStart, cluster)
	sec, err := read(lba)
	if err != nil {
		return 0, err
	}
	var lo, hi byte
	lo = sec[off]
	if off == BytesPerSector-1 {
		next, err := read(lba + 1)
		if err != nil {
			return 0, err
		}
		hi = next[0]
	} else {
		hi = sec[off+1]
	}
	val := uint16(lo) | uint16(hi)<<8
	if cluster%2 == 0 {
		return val & 0x0FFF, nil
	}
	return val >> 4, nil
}

// GetEntry returns the 12-bit FAT entry for cluster, from FAT copy 1.
func (e *Engine) GetEntry(cluster int) (uint16, error) {
	return e.resolveEntry(e.layout.FAT1Start, cluster, e.readSector)
}

func (e *Engine) IsEOF(entry uint16) bool  { return entry >= clusterEOFLo && entry <= clusterEOFHi }
func (e *Engine) IsFree(entry uint16) bool { return entry == clusterFree }
func (e *Engine) IsBad(entry uint16) bool  { return entry >= clusterBadLo && entry < clusterEOFLo }

// SetEntry writes a 12-bit FAT entry to every FAT copy and keeps the
// free-cluster bitmap in lockstep, matching fat12_set_entry's
// read-modify-write across both copies.
func (e *Engine) SetEntry(cluster int, value uint16) error {
	value &= 0x0FFF
	for copyIdx := 0; copyIdx < int(e.bpb.NumFATs); copyIdx++ {
		fatStart := e.layout.FAT1Start + copyIdx*int(e.bpb.SectorsPerFAT)
		if err := e.setEntryInCopy(fatStart, cluster, value); err != nil {
			return fmt.Errorf("fat12: set entry %d in FAT copy %d: %w", cluster, copyIdx, err)
		}
	}
	if cluster-2 >= 0 && cluster-2 < e.layout.TotalClusters {
		e.freemap.Set(cluster-2, value != clusterFree)
	}
	return nil
}

func (e *Engine) setEntryInCopy(fatStart, cluster int, value uint16) error {
	lba, off := fatEntryLBA(e.layout, fatStart, cluster)
	sec, err := e.readSector(lba)
	if err != nil {
		return err
	}
	var next [512]byte
	haveNext := false
	if off == BytesPerSector-1 {
		next, err = e.readSector(lba + 1)
		if err != nil {
			return err
		}
		haveNext = true
	}

	lo := sec[off]
	var hi byte
	if haveNext {
		hi = next[0]
	} else {
		hi = sec[off+1]
	}
	cur := uint16(lo) | uint16(hi)<<8

	if cluster%2 == 0 {
		cur = (cur & 0xF000) | value
	} else {
		cur = (cur & 0x000F) | (value << 4)
	}

	sec[off] = byte(cur)
	if haveNext {
		next[0] = byte(cur >> 8)
		if err := e.writeSector(lba, sec); err != nil {
			return err
		}
		return e.writeSector(lba+1, next)
	}
	sec[off+1] = byte(cur >> 8)
	return e.writeSector(lba, sec)
}

// FindFreeClusterFrom scans the bitmap (not the FAT) for the first free
// cluster at or after start up to the end of the volume, matching
// fat12_find_free_cluster_from's single forward pass with an O(1)-per-
// probe accelerator instead of a linear FAT re-scan. It never wraps
// back to cluster 2: a free cluster below start is not considered.
func (e *Engine) FindFreeClusterFrom(start int) (int, error) {
	if start < 2 {
		start = 2
	}
	for i := start - 2; i < e.layout.TotalClusters; i++ {
		if !e.freemap.Get(i) {
			return i + 2, nil
		}
	}
	log.Warningf(nil, "fat12: no free clusters (total=%d)", e.layout.TotalClusters)
	return 0, errDiskFull
}
