package flux

import (
	"context"
	"fmt"

	"github.com/jdoe/picofdc/mfm"
)

// ReadTrack decodes every sector it can find in one or more revolutions
// of flux at the given cylinder/head, bounded by maxIndexEdges index
// edges (a safety timeout substitute for a media with no sync at all).
func (d *Drive) ReadTrack(ctx context.Context, cylinder, head int) ([]mfm.Sector, error) {
	if err := d.Seek(ctx, cylinder); err != nil {
		return nil, err
	}
	dec := mfm.NewDecoder()
	seen := make(map[byte]mfm.Sector)
	edges := 0
	for delta, isIndex := range d.link.ReadFlux(ctx, head) {
		if isIndex {
			edges++
			if edges >= maxIndexEdges {
				break
			}
		}
		if s, ok := dec.Feed(delta); ok {
			seen[s.SectorNo] = s
		}
		if len(seen) >= SectorsPerTrk {
			break
		}
	}
	out := make([]mfm.Sector, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	return out, nil
}

// ReadSector reads one sector, retrying with progressively wider head
// jogs (10 then 20 cylinders) on a failing or missing read, matching
// floppy_read_sector's 3-tier retry.
func (d *Drive) ReadSector(ctx context.Context, cylinder, head int, sectorNo byte) (mfm.Sector, error) {
	jogs := []int{0, jogFirst, jogSecond}
	var lastErr error
	for attempt, jogDist := range jogs {
		if attempt > 0 {
			if err := d.jog(ctx, jogDist); err != nil {
				lastErr = err
				continue
			}
		}
		sectors, err := d.ReadTrack(ctx, cylinder, head)
		if err != nil {
			lastErr = err
			continue
		}
		for _, s := range sectors {
			if s.SectorNo == sectorNo && s.Valid {
				return s, nil
			}
		}
		lastErr = fmt.Errorf("flux: sector %d not found or invalid at cyl %d head %d", sectorNo, cylinder, head)
	}
	return mfm.Sector{}, lastErr
}
