package fsapi

import (
	"fmt"

	"github.com/jdoe/picofdc/cache"
	"github.com/jdoe/picofdc/fat12"
	"github.com/jdoe/picofdc/flux"
)

// driveIO implements fat12.SectorIO over a cache.Cache in front of a
// flux.Drive, matching f12_cached_read/f12_cached_write: reads are
// served from cache on a hit and populate it on a miss; writes go
// straight through to the drive and then update the cache entry,
// keeping it consistent with what's now on media.
type driveIO struct {
	drive *flux.Drive
	cache *cache.Cache
}

func newDriveIO(drive *flux.Drive, capacity int) *driveIO {
	return &driveIO{drive: drive, cache: cache.New(capacity)}
}

func (d *driveIO) ReadSector(lba int) ([512]byte, error) {
	cylinder, head, sector := fat12.LBAToCHS(lba)
	key := cache.Key(cylinder, head, sector)
	data, err := d.cache.GetOrCreate(key, func(uint32) ([512]byte, error) {
		return d.drive.ReadSectorBytes(cylinder, head, sector)
	})
	if err != nil {
		return [512]byte{}, fmt.Errorf("fsapi: read lba %d: %w", lba, err)
	}
	return data, nil
}

func (d *driveIO) WriteSector(lba int, data [512]byte) error {
	cylinder, head, sector := fat12.LBAToCHS(lba)
	if err := d.drive.WriteSectorBytes(cylinder, head, sector, data); err != nil {
		return fmt.Errorf("fsapi: write lba %d: %w", lba, err)
	}
	d.cache.Set(cache.Key(cylinder, head, sector), data)
	return nil
}

// WriteTrack commits every sector in sectors as one whole-track write,
// giving writeBatch's flush a single-revolution path for a group of
// same-track pending writes, matching fat12_write_batch_flush.
func (d *driveIO) WriteTrack(cylinder, head int, sectors map[byte][512]byte) error {
	if err := d.drive.WriteTrackBytes(cylinder, head, sectors); err != nil {
		return fmt.Errorf("fsapi: write track c%d h%d: %w", cylinder, head, err)
	}
	for sector, data := range sectors {
		d.cache.Set(cache.Key(cylinder, head, sector), data)
	}
	return nil
}

func (d *driveIO) invalidate() {
	d.cache.Clear()
}
