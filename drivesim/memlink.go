// Package drivesim provides flux.CoprocessorLink implementations that
// don't need real hardware: a pure in-memory simulator for unit tests,
// and a raw-image-file backend for offline conversion and the image
// tool. Both encode and decode through the real mfm package, so
// round-tripping through either one exercises the whole codec.
package drivesim

import (
	"context"
	"fmt"
	"iter"

	"github.com/jdoe/picofdc/mfm"
)

const (
	cylinders = 80
	heads     = 2
	sectors   = 18
	tickCell  = 22
)

// MemLink is a deterministic, in-memory flux.CoprocessorLink. It stores
// decoded sectors directly and synthesizes a flux stream on ReadFlux by
// running them through a real mfm.Encoder, and decodes a WriteFlux
// stream through a real mfm.Decoder, so tests exercise the codec instead
// of bypassing it.
type MemLink struct {
	cyl       int
	track0    bool
	protected bool
	changed   bool
	data      [cylinders][heads][sectors + 1]mfm.Sector // 1-indexed by sector number
	present   [cylinders][heads][sectors + 1]bool
}

// NewMemLink returns a MemLink with every sector present and
// zero-filled.
func NewMemLink() *MemLink {
	m := &MemLink{track0: true}
	for c := 0; c < cylinders; c++ {
		for h := 0; h < heads; h++ {
			for s := 1; s <= sectors; s++ {
				m.data[c][h][s] = mfm.Sector{Cylinder: byte(c), Head: byte(h), SectorNo: byte(s), SizeCode: 2, Valid: true}
				m.present[c][h][s] = true
			}
		}
	}
	return m
}

func (m *MemLink) Step(ctx context.Context, outward bool) error {
	if outward {
		if m.cyl < cylinders-1 {
			m.cyl++
		}
	} else {
		if m.cyl > 0 {
			m.cyl--
		}
	}
	m.track0 = m.cyl == 0
	return nil
}

func (m *MemLink) AtTrackZero(ctx context.Context) (bool, error)     { return m.track0, nil }
func (m *MemLink) Select(ctx context.Context, on bool) error         { return nil }
func (m *MemLink) Motor(ctx context.Context, on bool) error          { return nil }
func (m *MemLink) WaitIndex(ctx context.Context) error               { return nil }
func (m *MemLink) WriteProtected(ctx context.Context) (bool, error)  { return m.protected, nil }
func (m *MemLink) DiskChanged(ctx context.Context) (bool, error)     { return m.changed, nil }

// SetWriteProtected lets tests toggle the write-protect sensor.
func (m *MemLink) SetWriteProtected(v bool) { m.protected = v }

// SetChanged lets tests simulate a disk swap.
func (m *MemLink) SetChanged(v bool) { m.changed = v }

func (m *MemLink) ReadFlux(ctx context.Context, head int) iter.Seq2[uint16, bool] {
	return func(yield func(uint16, bool) bool) {
		if head < 0 || head >= heads {
			return
		}
		var want []mfm.Sector
		for s := 1; s <= sectors; s++ {
			if m.present[m.cyl][head][s] {
				want = append(want, m.data[m.cyl][head][s])
			}
		}
		enc := mfm.NewEncoder(tickCell)
		ticks := enc.EncodeTrack(m.cyl, want)
		for i, t := range ticks {
			if !yield(t, i == 0) {
				return
			}
		}
	}
}

func (m *MemLink) WriteFlux(ctx context.Context, head int, ticks []uint16) error {
	if head < 0 || head >= heads {
		return fmt.Errorf("drivesim: invalid head %d", head)
	}
	dec := mfm.NewDecoder()
	for _, t := range ticks {
		if s, ok := dec.Feed(t); ok && s.Valid {
			m.data[m.cyl][head][s.SectorNo] = s
			m.present[m.cyl][head][s.SectorNo] = true
		}
	}
	return nil
}
