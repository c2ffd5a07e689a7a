package flux

import (
	"context"

	"github.com/jdoe/picofdc/mfm"
)

// completeTrack fills in any sector missing from want by reading the
// current track contents and keeping whatever is already on media,
// matching floppy_complete_track's role ahead of a write.
func (d *Drive) completeTrack(ctx context.Context, cylinder, head int, want map[byte]mfm.Sector) map[byte]mfm.Sector {
	existing, err := d.ReadTrack(ctx, cylinder, head)
	if err != nil {
		return want
	}
	merged := make(map[byte]mfm.Sector, len(want))
	for _, s := range existing {
		merged[s.SectorNo] = s
	}
	for n, s := range want {
		merged[n] = s
	}
	return merged
}

// WriteTrack writes a full track, filling any sector the caller didn't
// ask to change from whatever is already on media, then verifies by
// reading it back. Up to 3 attempts; the last attempt re-recalibrates
// to cylinder 0 first, matching floppy_write_track.
func (d *Drive) WriteTrack(ctx context.Context, cylinder, head int, sectors map[byte]mfm.Sector) error {
	protected, err := d.link.WriteProtected(ctx)
	if err != nil {
		return err
	}
	if protected {
		return errWriteProtected
	}

	full := d.completeTrack(ctx, cylinder, head, sectors)
	ordered := make([]mfm.Sector, SectorsPerTrk)
	for n := 1; n <= SectorsPerTrk; n++ {
		if s, ok := full[byte(n)]; ok {
			ordered[n-1] = s
		} else {
			ordered[n-1] = mfm.Sector{Cylinder: byte(cylinder), Head: byte(head), SectorNo: byte(n), SizeCode: 2}
		}
	}

	enc := mfm.NewEncoder(d.tickCell)
	ticks := enc.EncodeTrack(cylinder, ordered)

	var lastErr error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		if attempt == writeAttempts-1 {
			d.mu.Lock()
			d.trackZeroConfirm = false
			d.mu.Unlock()
		}
		if err := d.Seek(ctx, cylinder); err != nil {
			lastErr = err
			continue
		}
		if err := d.link.WriteFlux(ctx, head, ticks); err != nil {
			lastErr = err
			continue
		}
		if ok, verr := d.verifyTrack(ctx, cylinder, head, full); ok {
			return nil
		} else {
			lastErr = verr
		}
	}
	if lastErr == nil {
		lastErr = &ErrVerify{Cylinder: cylinder, Head: head}
	}
	return lastErr
}

// verifyTrack re-reads the track up to 3 times, jogging 10 cylinders
// before each attempt, and compares every written sector's data.
func (d *Drive) verifyTrack(ctx context.Context, cylinder, head int, want map[byte]mfm.Sector) (bool, error) {
	for attempt := 0; attempt < writeAttempts; attempt++ {
		if err := d.jog(ctx, jogFirst); err != nil {
			continue
		}
		got, err := d.ReadTrack(ctx, cylinder, head)
		if err != nil {
			continue
		}
		byNo := make(map[byte]mfm.Sector, len(got))
		for _, s := range got {
			byNo[s.SectorNo] = s
		}
		ok := true
		for n, w := range want {
			r, found := byNo[n]
			if !found || !r.Valid || r.Data != w.Data {
				ok = false
				break
			}
		}
		if ok {
			return true, nil
		}
	}
	return false, &ErrVerify{Cylinder: cylinder, Head: head}
}
