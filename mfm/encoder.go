package mfm

import "github.com/jdoe/picofdc/crc"

// Encoder lays out a full track's worth of flux pulses: gap bytes, sync
// marks, address records and data records, with write precompensation
// applied on inner cylinders.
type Encoder struct {
	// TickCell is the nominal bit-cell time in coprocessor ticks (the
	// encoder-side counterpart of the decoder's locked t_cell).
	TickCell int

	lastBit int // last emitted data bit, for clock-bit derivation
}

// NewEncoder returns an Encoder using tickCell as the nominal bit-cell
// duration (ticks per encoded bit).
func NewEncoder(tickCell int) *Encoder {
	return &Encoder{TickCell: tickCell}
}

// pulse is one output unit: a pulse class plus (after precomp) its actual
// tick duration.
type pulse struct {
	class PulseClass
	ticks uint16
}

// pulseBuilder turns a stream of clock and data half-cells into pulses.
// MFM rule: a flux transition marks a 1; a 0 gets a transition only if
// both neighbouring bits are 0 (clock bit). Transitions are Short (one
// cell), Medium (one and a half cells) or Long (two cells) apart,
// accumulated over consecutive zero data-bits exactly as
// mfm_encode_bytes/mfm_encode_emit do.
type pulseBuilder struct {
	enc       *Encoder
	halfCells int // half bit-cells since the last transition
	out       []pulse
}

func (b *pulseBuilder) feedBit(bit int) {
	b.halfCells++
	if bit == 0 {
		return
	}
	b.flush()
}

func (b *pulseBuilder) append(c PulseClass) {
	b.out = append(b.out, pulse{class: c, ticks: b.enc.nominalTicks(c)})
}

func (b *pulseBuilder) flush() {
	switch b.halfCells {
	case 2:
		b.append(Short)
	case 3:
		b.append(Medium)
	case 4:
		b.append(Long)
	default:
		// Accumulated more than 2 full cells of zeros without a
		// transition: split into Long pulses, matching the firmware's
		// fallback for pathological all-zero runs.
		for b.halfCells >= 4 {
			b.append(Long)
			b.halfCells -= 4
		}
		if b.halfCells == 2 {
			b.append(Short)
		} else if b.halfCells == 3 {
			b.append(Medium)
		}
	}
	b.halfCells = 0
}

// encodeBytes MFM-encodes data, tracking the clock/data bit alternation
// across the whole run (including across byte boundaries), matching
// mfm_encode_bytes.
func (e *Encoder) encodeBytes(b *pulseBuilder, data []byte) {
	for _, by := range data {
		for bit := 7; bit >= 0; bit-- {
			dataBit := int((by >> uint(bit)) & 1)
			clockBit := 0
			if e.lastBit == 0 && dataBit == 0 {
				clockBit = 1
			}
			b.feedBit(clockBit)
			b.feedBit(dataBit)
			e.lastBit = dataBit
		}
	}
}

// encodeSync appends the literal 15-pulse sync shape (the flux image of
// three 0xA1 bytes with the clock bit between data bits 4 and 5 forced
// to 0) directly, bypassing the normal bit encoder, then resets the
// clock/data bit tracking the way three real 0xA1 bytes would leave it.
func (e *Encoder) encodeSync(b *pulseBuilder) {
	for _, c := range syncPattern {
		b.append(c)
	}
	b.halfCells = 0 // the pattern's last pulse is the transition of 0xA1's final 1 bit
	e.lastBit = 1   // 0xA1's last bit is 1
}

// encodeGap appends n gap bytes (0x4E).
func (e *Encoder) encodeGap(b *pulseBuilder, n int) {
	gap := make([]byte, n)
	for i := range gap {
		gap[i] = 0x4E
	}
	e.encodeBytes(b, gap)
}

// encodeZeros appends n literal 0x00 bytes, the preamble that gives the
// decoder's HUNT state its run of clean Short pulses to lock t_cell on
// before the sync mark.
func (e *Encoder) encodeZeros(b *pulseBuilder, n int) {
	e.encodeBytes(b, make([]byte, n))
}

// encodeSector appends one full address+data record pair for the given
// sector, each preceded by 12 zero bytes and a sync mark, separated by
// gap2.
func (e *Encoder) encodeSector(b *pulseBuilder, s Sector) {
	e.encodeZeros(b, 12)
	e.encodeSync(b)
	addr := []byte{AddressMark, s.Cylinder, s.Head, s.SectorNo, s.SizeCode}
	addrCRC := crc.Sum(crc.MFMSeed(), addr)
	addr = append(addr, byte(addrCRC>>8), byte(addrCRC))
	e.encodeBytes(b, addr)

	e.encodeGap(b, 22)

	e.encodeZeros(b, 12)
	e.encodeSync(b)
	mark := DataMark
	if !s.Valid {
		mark = DeletedMark
	}
	data := make([]byte, 0, 1+SectorSize+2)
	data = append(data, mark)
	data = append(data, s.Data[:]...)
	dataCRC := crc.Sum(crc.MFMSeed(), data)
	data = append(data, byte(dataCRC>>8), byte(dataCRC))
	e.encodeBytes(b, data)
}

// precompShift returns the tick shift applied to qualifying Short pulses
// on the given cylinder. Zero below cylinder 40.
func precompShift(cylinder int) int {
	if cylinder < 40 {
		return 0
	}
	return 3 + (cylinder-40)/13
}

// applyPrecomp shifts every Short pulse that has exactly one Long
// neighbour toward (or away from) that neighbour by precompShift(cyl)
// ticks, matching mfm_encode_precomp.
func applyPrecomp(pulses []pulse, cylinder int) {
	shift := precompShift(cylinder)
	if shift == 0 {
		return
	}
	for i := range pulses {
		if pulses[i].class != Short {
			continue
		}
		prevLong := i > 0 && pulses[i-1].class == Long
		nextLong := i < len(pulses)-1 && pulses[i+1].class == Long
		if prevLong == nextLong {
			continue // zero or two Long neighbours: no unambiguous direction
		}
		if nextLong {
			pulses[i].ticks += uint16(shift)
		} else {
			pulses[i].ticks -= uint16(shift)
		}
	}
}

// nominalTicks expands a PulseClass into its tick duration at the
// encoder's configured bit-cell time (2T/3T/4T).
func (e *Encoder) nominalTicks(c PulseClass) uint16 {
	switch c {
	case Short:
		return uint16(2 * e.TickCell)
	case Medium:
		return uint16(3 * e.TickCell)
	case Long:
		return uint16(4 * e.TickCell)
	}
	return 0
}

// EncodeTrack lays out one full revolution: an 80-byte pre-index gap,
// then 18 sectors each followed by a 54-byte inter-sector gap, applying
// write precompensation across the whole track when cylinder >= 40.
// Every entry of sectors is encoded in slice order; a sector absent from
// the slice is simply not written, so callers that need a complete track
// fill it in first via a read-before-write completion pass, as the drive
// layer's WriteTrack does.
func (e *Encoder) EncodeTrack(cylinder int, sectors []Sector) []uint16 {
	b := pulseBuilder{enc: e}
	e.lastBit = 0

	e.encodeGap(&b, 80)
	for _, s := range sectors {
		e.encodeSector(&b, s)
		e.encodeGap(&b, 54)
	}

	applyPrecomp(b.out, cylinder)

	ticks := make([]uint16, len(b.out))
	for i, p := range b.out {
		ticks[i] = p.ticks
	}
	return ticks
}
