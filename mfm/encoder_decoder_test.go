package mfm

import (
	"math/rand"
	"testing"
)

// jitter perturbs each tick by up to +/-pct percent, deterministically,
// the way decoder_test.go exercises tolerance to flux jitter.
func jitter(r *rand.Rand, ticks []uint16, pct int) []uint16 {
	out := make([]uint16, len(ticks))
	for i, t := range ticks {
		delta := int(t) * (r.Intn(2*pct+1) - pct) / 100
		out[i] = uint16(int(t) + delta)
	}
	return out
}

func feedAll(t *testing.T, d *Decoder, ticks []uint16) []Sector {
	t.Helper()
	var got []Sector
	for _, tick := range ticks {
		if s, ok := d.Feed(tick); ok {
			got = append(got, s)
		}
	}
	return got
}

func makeSector(cyl, head, sec byte, fill byte) Sector {
	var s Sector
	s.Cylinder = cyl
	s.Head = head
	s.SectorNo = sec
	s.SizeCode = 2
	s.Valid = true
	for i := range s.Data {
		s.Data[i] = fill
	}
	return s
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	enc := NewEncoder(22)
	want := []Sector{
		makeSector(0, 0, 1, 0xAA),
		makeSector(0, 0, 2, 0x55),
	}
	ticks := enc.EncodeTrack(0, want)

	dec := NewDecoder()
	got := feedAll(t, dec, ticks)
	if len(got) != len(want) {
		t.Fatalf("got %d sectors, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Cylinder != want[i].Cylinder || got[i].SectorNo != want[i].SectorNo {
			t.Errorf("sector %d: got cyl=%d sec=%d, want cyl=%d sec=%d",
				i, got[i].Cylinder, got[i].SectorNo, want[i].Cylinder, want[i].SectorNo)
		}
		if !got[i].Valid {
			t.Errorf("sector %d: CRC invalid", i)
		}
		if got[i].Data != want[i].Data {
			t.Errorf("sector %d: data mismatch", i)
		}
	}
}

func TestDecodeToleratesJitter(t *testing.T) {
	enc := NewEncoder(22)
	want := makeSector(10, 1, 5, 0x42)
	ticks := enc.EncodeTrack(10, []Sector{want})

	r := rand.New(rand.NewSource(1))
	jittered := jitter(r, ticks, 5)

	dec := NewDecoder()
	got := feedAll(t, dec, jittered)
	if len(got) != 1 {
		t.Fatalf("got %d sectors, want 1", len(got))
	}
	if !got[0].Valid {
		t.Errorf("sector invalid after jitter")
	}
}

func TestPrecompShiftsOnlyInnerCylinders(t *testing.T) {
	if precompShift(39) != 0 {
		t.Errorf("cylinder 39 should have no precomp")
	}
	if precompShift(40) != 3 {
		t.Errorf("cylinder 40 precomp = %d, want 3", precompShift(40))
	}
	if precompShift(53) != 4 {
		t.Errorf("cylinder 53 precomp = %d, want 4", precompShift(53))
	}
}

func TestDecoderRejectsNoise(t *testing.T) {
	d := NewDecoder()
	if _, ok := d.Feed(5); ok {
		t.Errorf("sub-floor delta should never yield a sector")
	}
	if _, ok := d.Feed(200); ok {
		t.Errorf("over-ceiling delta should never yield a sector")
	}
}
