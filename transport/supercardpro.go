package transport

import (
	"context"
	"encoding/binary"
	"iter"
)

// SuperCard Pro command IDs: a third numbering over the same framing,
// modeling a third real device family behind the same CoprocessorLink
// contract.
const (
	scpCmdSeek     = 0x21
	scpCmdSelect   = 0x22
	scpCmdMotor    = 0x23
	scpCmdReadFlux = 0x24
	scpCmdWrite    = 0x25
	scpCmdGetPin   = 0x26
)

// SuperCardPro is a flux.CoprocessorLink talking to a SuperCard Pro
// style USB-serial flux tool.
type SuperCardPro struct {
	frame
}

// OpenSuperCardPro opens the serial device at path.
func OpenSuperCardPro(path string) (*SuperCardPro, error) {
	port, err := openPort(path, 9600)
	if err != nil {
		return nil, err
	}
	return &SuperCardPro{frame{port: port}}, nil
}

func (s *SuperCardPro) Close() error { return s.port.Close() }

func (s *SuperCardPro) Step(ctx context.Context, outward bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	dir := byte(0)
	if outward {
		dir = 1
	}
	return s.send(scpCmdSeek, []byte{dir})
}

func (s *SuperCardPro) getPin(ctx context.Context, pin byte) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}
	if err := s.send(scpCmdGetPin, []byte{pin}); err != nil {
		return false, err
	}
	val := make([]byte, 1)
	if _, err := s.port.Read(val); err != nil {
		return false, err
	}
	return val[0] != 0, nil
}

func (s *SuperCardPro) AtTrackZero(ctx context.Context) (bool, error) {
	return s.getPin(ctx, pinTrack0)
}
func (s *SuperCardPro) WriteProtected(ctx context.Context) (bool, error) {
	return s.getPin(ctx, pinWProt)
}
func (s *SuperCardPro) DiskChanged(ctx context.Context) (bool, error) {
	return s.getPin(ctx, pinChanged)
}

func (s *SuperCardPro) Select(ctx context.Context, on bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	v := byte(0)
	if on {
		v = 1
	}
	return s.send(scpCmdSelect, []byte{v})
}

func (s *SuperCardPro) Motor(ctx context.Context, on bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	v := byte(0)
	if on {
		v = 1
	}
	return s.send(scpCmdMotor, []byte{v})
}

func (s *SuperCardPro) WaitIndex(ctx context.Context) error { return checkContext(ctx) }

func (s *SuperCardPro) ReadFlux(ctx context.Context, head int) iter.Seq2[uint16, bool] {
	return func(yield func(uint16, bool) bool) {
		if err := s.send(scpCmdReadFlux, []byte{byte(head)}); err != nil {
			return
		}
		buf := make([]byte, 2)
		for {
			if checkContext(ctx) != nil {
				return
			}
			n, err := s.port.Read(buf)
			if err != nil || n < 2 {
				return
			}
			word := binary.LittleEndian.Uint16(buf)
			delta := word &^ (1 << 15)
			index := word&(1<<15) != 0
			if delta == 0 && !index {
				return
			}
			if !yield(delta, index) {
				return
			}
		}
	}
}

func (s *SuperCardPro) WriteFlux(ctx context.Context, head int, ticks []uint16) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	buf := make([]byte, 1+len(ticks)*2)
	buf[0] = byte(head)
	for i, t := range ticks {
		binary.LittleEndian.PutUint16(buf[1+i*2:], t)
	}
	return s.send(scpCmdWrite, buf)
}
