package mfm

import "github.com/jdoe/picofdc/crc"

type decodeState int8

const (
	stateHunt decodeState = iota
	stateSyncing
	stateData
	stateClock
)

// Decoder is a streaming MFM bitstream decoder. Feed it one flux delta at
// a time (in coprocessor ticks); it returns a decoded Sector whenever a
// complete data record has been assembled after a CRC-valid address
// record. Address records only latch the pending address.
//
// This is not a general-purpose MFM decoder: it is the exact state
// machine the PIO-attached flux front end drives, one transition at a
// time, with no lookahead and no buffering beyond the current record.
type Decoder struct {
	state decodeState

	t_cell  int
	T2_max  int
	T3_max  int

	shortCount   int
	preambleSum  int
	syncStage    int

	byteAcc   byte
	bitCount  int
	buf       [600]byte
	bufPos    int
	overflow  bool

	bytesExpected int
	crcVal        uint16

	havePendingAddr   bool
	pendingCylinder   byte
	pendingHead       byte
	pendingSector     byte
	pendingSizeCode   byte

	stats Stats
}

// NewDecoder returns a Decoder ready to hunt for the next preamble.
func NewDecoder() *Decoder {
	d := &Decoder{}
	d.reset(true)
	return d
}

// reset restores HUNT state. full also clears the adaptive timing
// estimate, as mfm_init does (as opposed to mfm_reset, which a mismatch
// mid-sync uses and which preserves t_cell/T2_max/T3_max).
func (d *Decoder) reset(full bool) {
	d.state = stateHunt
	d.shortCount = 0
	d.preambleSum = 0
	d.syncStage = 0
	if full {
		d.T2_max = initialT2Max
		d.T3_max = initialT3Max
		d.t_cell = 0
	}
}

// Stats returns the running decode counters.
func (d *Decoder) Stats() Stats { return d.stats }

func (d *Decoder) classify(delta uint16) PulseClass {
	if delta < pulseFloor {
		return Noise
	}
	if int(delta) <= d.T2_max {
		if d.state >= stateData && d.t_cell > 0 &&
			int(delta) <= d.t_cell+(d.t_cell>>3) {
			d.t_cell += (int(delta) - d.t_cell + 8) >> 4
			d.T2_max = d.t_cell * 5 / 4
			d.T3_max = d.t_cell * 7 / 4
		}
		return Short
	}
	if int(delta) <= d.T3_max {
		return Medium
	}
	if delta < pulseCeiling {
		return Long
	}
	return Noise
}

func (d *Decoder) pushBit(bit int) {
	d.byteAcc = (d.byteAcc << 1) | byte(bit&1)
	d.bitCount++
	if d.bitCount >= 8 {
		if d.bufPos < len(d.buf) {
			d.buf[d.bufPos] = d.byteAcc
			d.bufPos++
		} else {
			d.overflow = true
		}
		d.crcVal = crc.Update(d.crcVal, d.byteAcc)
		d.bitCount = 0
		d.byteAcc = 0
	}
}

// Feed advances the decoder by one flux delta. It returns (sector, true)
// when a complete, address-matched data record has just been assembled.
func (d *Decoder) Feed(delta uint16) (Sector, bool) {
	p := d.classify(delta)
	if p == Noise {
		return Sector{}, false
	}

	switch d.state {
	case stateHunt:
		d.feedHunt(p, delta)
		return Sector{}, false

	case stateSyncing:
		d.feedSyncing(p)
		return Sector{}, false

	case stateData:
		switch p {
		case Short:
			d.pushBit(1)
		case Medium:
			d.pushBit(0)
			d.pushBit(0)
			d.state = stateClock
		case Long:
			d.pushBit(0)
			d.pushBit(1)
		}
		return d.checkRecord()

	case stateClock:
		switch p {
		case Short:
			d.pushBit(0)
		case Medium:
			d.pushBit(1)
			d.state = stateData
		case Long:
			d.reset(false)
			return Sector{}, false
		}
		return d.checkRecord()
	}
	return Sector{}, false
}

func (d *Decoder) feedHunt(p PulseClass, delta uint16) {
	if p == Short {
		d.shortCount++
		d.preambleSum += int(delta)
		return
	}
	if d.shortCount >= minPreambleShorts {
		d.t_cell = d.preambleSum / d.shortCount
		d.T2_max = d.t_cell * 5 / 4
		d.T3_max = d.t_cell * 7 / 4
		d.state = stateSyncing
		d.syncStage = 0
		if p == Medium {
			d.syncStage = 1
		} else {
			d.state = stateHunt
		}
	}
	d.shortCount = 0
	d.preambleSum = 0
}

func (d *Decoder) feedSyncing(p PulseClass) {
	if p == syncPattern[d.syncStage] {
		d.syncStage++
		if d.syncStage >= len(syncPattern) {
			d.stats.SyncsFound++
			d.state = stateData
			d.byteAcc = 0
			d.bitCount = 0
			d.bufPos = 0
			d.bytesExpected = 0
			d.overflow = false
			d.crcVal = crc.MFMSeed()
		}
		return
	}
	if p == Short {
		d.shortCount = 1
	}
	d.state = stateHunt
}

func (d *Decoder) checkRecord() (Sector, bool) {
	if d.bufPos == 1 && d.bytesExpected == 0 {
		mark := d.buf[0]
		switch {
		case mark == AddressMark:
			d.bytesExpected = 7
		case mark == DataMark || mark == DeletedMark:
			if d.havePendingAddr {
				d.bytesExpected = 1 + (128 << d.pendingSizeCode) + 2
			} else {
				d.bytesExpected = 515
			}
		default:
			d.reset(false)
			return Sector{}, false
		}
	}

	if d.bytesExpected == 0 || d.bufPos < d.bytesExpected {
		return Sector{}, false
	}

	mark := d.buf[0]
	crcOK := d.crcVal == 0

	switch {
	case mark == AddressMark:
		if crcOK {
			d.pendingCylinder = d.buf[1]
			d.pendingHead = d.buf[2]
			d.pendingSector = d.buf[3]
			sizeCode := d.buf[4] & 0x03
			if sizeCode > 2 {
				sizeCode = 2
			}
			d.pendingSizeCode = sizeCode
			d.havePendingAddr = true
		} else {
			d.stats.CRCErrors++
			d.havePendingAddr = false
		}
		d.reset(false)
		return Sector{}, false

	case (mark == DataMark || mark == DeletedMark) && d.havePendingAddr:
		size := 128 << d.pendingSizeCode
		var out Sector
		out.Cylinder = d.pendingCylinder
		out.Head = d.pendingHead
		out.SectorNo = d.pendingSector
		out.SizeCode = d.pendingSizeCode
		out.Valid = crcOK && !d.overflow

		copySize := size
		if copySize > SectorSize {
			copySize = SectorSize
		}
		if avail := d.bufPos - 1; copySize > avail {
			copySize = avail
		}
		if copySize > 0 {
			copy(out.Data[:copySize], d.buf[1:1+copySize])
		}

		d.stats.SectorsRead++
		if !crcOK {
			d.stats.CRCErrors++
		}
		d.havePendingAddr = false
		d.reset(false)
		return out, true

	default:
		d.reset(false)
		return Sector{}, false
	}
}
