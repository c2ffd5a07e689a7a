package fat12

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// writeBatchCapacity is one track plus one track (18 sectors/track * 2)
// of pending (LBA, data) pairs, matching FAT12_WRITE_BATCH_MAX.
const writeBatchCapacity = SectorsPerTrack * 2

type pendingWrite struct {
	lba  int
	data [512]byte
}

// writeBatch defers sector writes until Flush, so a run of small FAT/
// directory/data updates against the same track collapses to one
// whole-track write at the layer below instead of one per sector.
// Reads prefer the newest batched value over a stale disk read,
// matching fat12_read_sector_batched's newest-first scan.
type writeBatch struct {
	io      SectorIO
	pending []pendingWrite
	inUse   bool
}

func newWriteBatch(io SectorIO) *writeBatch {
	return &writeBatch{io: io}
}

func (w *writeBatch) read(lba int) ([512]byte, error) {
	for i := len(w.pending) - 1; i >= 0; i-- {
		if w.pending[i].lba == lba {
			return w.pending[i].data, nil
		}
	}
	return w.io.ReadSector(lba)
}

// add inserts or overwrites lba's pending entry, matching
// fat12_write_batch_add; it reports fullness rather than growing past
// writeBatchCapacity.
func (w *writeBatch) add(lba int, data [512]byte) (full bool) {
	for i := range w.pending {
		if w.pending[i].lba == lba {
			w.pending[i].data = data
			return false
		}
	}
	if len(w.pending) >= writeBatchCapacity {
		return true
	}
	w.pending = append(w.pending, pendingWrite{lba: lba, data: data})
	return false
}

// write adds lba to the batch, flushing first to make room if the
// batch is already at capacity, matching fat12_write_sector_batched.
func (w *writeBatch) write(lba int, data [512]byte) error {
	w.inUse = true
	if full := w.add(lba, data); full {
		if err := w.flush(); err != nil {
			return err
		}
		w.add(lba, data)
	}
	return nil
}

// flush groups pending entries by (cylinder, head) and issues one
// whole-track write per track, matching fat12_write_batch_flush:
// repeatedly take the first pending entry's track, peel every entry
// belonging to that track into one write, and requeue the rest.
func (w *writeBatch) flush() error {
	if !w.inUse || len(w.pending) == 0 {
		w.inUse = false
		return nil
	}

	var result *multierror.Error
	for len(w.pending) > 0 {
		cylinder, head, _ := LBAToCHS(w.pending[0].lba)

		track := make(map[byte][512]byte)
		rest := w.pending[:0]
		for _, p := range w.pending {
			c, h, s := LBAToCHS(p.lba)
			if c == cylinder && h == head {
				track[s] = p.data
			} else {
				rest = append(rest, p)
			}
		}
		w.pending = rest

		if err := w.writeTrack(cylinder, head, track); err != nil {
			result = multierror.Append(result, fmt.Errorf("fat12: flush track c%d h%d: %w", cylinder, head, err))
		}
	}

	w.inUse = false
	return result.ErrorOrNil()
}

// writeTrack commits one track's worth of pending sectors as a single
// write when w.io supports it, falling back to one WriteSector call
// per entry for an io that doesn't.
func (w *writeBatch) writeTrack(cylinder, head int, sectors map[byte][512]byte) error {
	if tw, ok := w.io.(TrackWriter); ok {
		return tw.WriteTrack(cylinder, head, sectors)
	}
	var result *multierror.Error
	for sector, data := range sectors {
		lba := trackLBA(cylinder, head, sector)
		if err := w.io.WriteSector(lba, data); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func trackLBA(cylinder, head int, sector byte) int {
	return cylinder*NumHeads*SectorsPerTrack + head*SectorsPerTrack + int(sector) - 1
}
