package drivesim

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/jdoe/picofdc/mfm"
	"github.com/xaionaro-go/bytesextra"
)

const imageSize = cylinders * heads * sectors * mfm.SectorSize

// ImageLink is a flux.CoprocessorLink backed by a raw 1,474,560-byte
// `.img` file: the classic flat CHS dump a real floppy's 80x2x18x512
// geometry produces. The whole image is held in memory as a byte slice
// addressed through bytesextra's ReadWriteSeeker, and Close writes the
// whole slice back to the file in one call.
type ImageLink struct {
	file   *os.File
	buf    []byte
	stream io.ReadWriteSeeker
	cyl    int
	track0 bool
}

// OpenImage opens (or, if create is true, creates and zero-fills) a raw
// image file at path.
func OpenImage(path string, create bool) (*ImageLink, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("drivesim: open image %s: %w", path, err)
	}
	buf := make([]byte, imageSize)
	n, err := f.ReadAt(buf, 0)
	if err != nil && err != io.EOF && n != imageSize {
		f.Close()
		return nil, fmt.Errorf("drivesim: read image %s: %w", path, err)
	}
	return &ImageLink{file: f, buf: buf, stream: bytesextra.NewReadWriteSeeker(buf), track0: true}, nil
}

// Close flushes and closes the backing file.
func (m *ImageLink) Close() error {
	if _, err := m.file.WriteAt(m.buf, 0); err != nil {
		m.file.Close()
		return fmt.Errorf("drivesim: flush image: %w", err)
	}
	return m.file.Close()
}

func trackOffset(cyl, head int) int {
	return (cyl*heads + head) * sectors * mfm.SectorSize
}

func (m *ImageLink) Step(ctx context.Context, outward bool) error {
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

func (m *ImageLink) AtTrackZero(ctx context.Context) (bool, error)    { return m.track0, nil }
func (m *ImageLink) Select(ctx context.Context, on bool) error       { return nil }
func (m *ImageLink) Motor(ctx context.Context, on bool) error        { return nil }
func (m *ImageLink) WaitIndex(ctx context.Context) error             { return nil }
func (m *ImageLink) WriteProtected(ctx context.Context) (bool, error) { return false, nil }
func (m *ImageLink) DiskChanged(ctx context.Context) (bool, error)    { return false, nil }

func (m *ImageLink) ReadFlux(ctx context.Context, head int) iter.Seq2[uint16, bool] {
	return func(yield func(uint16, bool) bool) {
		off := trackOffset(m.cyl, head)
		var want []mfm.Sector
		for s := 1; s <= sectors; s++ {
			var sec mfm.Sector
			sec.Cylinder = byte(m.cyl)
			sec.Head = byte(head)
			sec.SectorNo = byte(s)
			sec.SizeCode = 2
			sec.Valid = true
			copy(sec.Data[:], m.buf[off+(s-1)*mfm.SectorSize:off+s*mfm.SectorSize])
			want = append(want, sec)
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

func (m *ImageLink) WriteFlux(ctx context.Context, head int, ticks []uint16) error {
	off := trackOffset(m.cyl, head)
	dec := mfm.NewDecoder()
	for _, t := range ticks {
		s, ok := dec.Feed(t)
		if !ok || !s.Valid || s.SectorNo < 1 || int(s.SectorNo) > sectors {
			continue
		}
		start := (int(s.SectorNo) - 1) * mfm.SectorSize
		copy(m.buf[off+start:off+start+mfm.SectorSize], s.Data[:])
	}
	return nil
}

// Stream exposes the whole image as a single io.ReadWriteSeeker, for
// callers (like the image tool) that want sequential or random access
// to raw bytes instead of per-track flux.
func (m *ImageLink) Stream() io.ReadWriteSeeker { return m.stream }
