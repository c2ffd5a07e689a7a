package flux

import (
	"context"
	"fmt"

	"github.com/jdoe/picofdc/mfm"
)

// ReadSectorBytes reads one 512-byte sector, synchronously, for
// consumption by the FAT12 engine's I/O vtable. It is the sync-shaped
// counterpart of ReadSector, matching the original firmware's
// synchronous read_sector entry point.
func (d *Drive) ReadSectorBytes(cylinder, head int, sectorNo byte) ([mfm.SectorSize]byte, error) {
	s, err := d.ReadSector(context.Background(), cylinder, head, sectorNo)
	if err != nil {
		return [mfm.SectorSize]byte{}, err
	}
	return s.Data, nil
}

// WriteSectorBytes writes one 512-byte sector by completing the rest of
// the track from whatever is already on media and writing the whole
// track as a single revolution, matching write_track's whole-track
// granularity.
func (d *Drive) WriteSectorBytes(cylinder, head int, sectorNo byte, data [mfm.SectorSize]byte) error {
	s := mfm.Sector{Cylinder: byte(cylinder), Head: byte(head), SectorNo: sectorNo, SizeCode: 2, Valid: true, Data: data}
	return d.WriteTrack(context.Background(), cylinder, head, map[byte]mfm.Sector{sectorNo: s})
}

// WriteTrackBytes writes every sector in sectors (keyed by 1-based
// sector number) as a single revolution, completing any sectors left
// out of the map from whatever is already on media. This is the
// multi-sector counterpart of WriteSectorBytes, letting callers that
// batch up several same-track writes pay for one revolution instead
// of one per sector.
func (d *Drive) WriteTrackBytes(cylinder, head int, sectors map[byte][mfm.SectorSize]byte) error {
	full := make(map[byte]mfm.Sector, len(sectors))
	for sectorNo, data := range sectors {
		full[sectorNo] = mfm.Sector{Cylinder: byte(cylinder), Head: byte(head), SectorNo: sectorNo, SizeCode: 2, Valid: true, Data: data}
	}
	return d.WriteTrack(context.Background(), cylinder, head, full)
}

// IsWriteProtected reports the write-protect sensor line.
func (d *Drive) IsWriteProtected() (bool, error) {
	return d.link.WriteProtected(context.Background())
}

// HasDiskChanged reports (and clears) the disk-change line.
func (d *Drive) HasDiskChanged() (bool, error) {
	changed, err := d.link.DiskChanged(context.Background())
	if err != nil {
		return false, fmt.Errorf("flux: disk-changed sense: %w", err)
	}
	if changed {
		d.mu.Lock()
		d.trackZeroConfirm = false
		d.mu.Unlock()
	}
	return changed, nil
}
