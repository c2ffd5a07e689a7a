package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"iter"
)

// Greaseweazle opcodes, matching the command IDs a real Greaseweazle
// firmware image exposes for the operations this project needs.
const (
	gwCmdSeek     = 0x01
	gwCmdSelect   = 0x02
	gwCmdMotor    = 0x03
	gwCmdReadFlux = 0x04
	gwCmdWrite    = 0x05
	gwCmdGetPin   = 0x06
)

// pinTrack0  = 0
// pinWProt   = 1
// pinChanged = 2
const (
	pinTrack0 = iota
	pinWProt
	pinChanged
)

// Greaseweazle is a flux.CoprocessorLink talking to a Greaseweazle-style
// USB-serial flux tool.
type Greaseweazle struct {
	frame
}

// OpenGreaseweazle opens the serial device at path.
func OpenGreaseweazle(path string) (*Greaseweazle, error) {
	port, err := openPort(path, 9600)
	if err != nil {
		return nil, err
	}
	return &Greaseweazle{frame{port: port}}, nil
}

func (g *Greaseweazle) Close() error { return g.port.Close() }

func (g *Greaseweazle) Step(ctx context.Context, outward bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	dir := byte(0)
	if outward {
		dir = 1
	}
	return g.send(gwCmdSeek, []byte{dir})
}

func (g *Greaseweazle) getPin(ctx context.Context, pin byte) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}
	if err := g.send(gwCmdGetPin, []byte{pin}); err != nil {
		return false, err
	}
	val := make([]byte, 1)
	if _, err := g.port.Read(val); err != nil {
		return false, fmt.Errorf("transport: read pin %d: %w", pin, err)
	}
	return val[0] != 0, nil
}

func (g *Greaseweazle) AtTrackZero(ctx context.Context) (bool, error) { return g.getPin(ctx, pinTrack0) }
func (g *Greaseweazle) WriteProtected(ctx context.Context) (bool, error) {
	return g.getPin(ctx, pinWProt)
}
func (g *Greaseweazle) DiskChanged(ctx context.Context) (bool, error) {
	return g.getPin(ctx, pinChanged)
}

func (g *Greaseweazle) Select(ctx context.Context, on bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	v := byte(0)
	if on {
		v = 1
	}
	return g.send(gwCmdSelect, []byte{v})
}

func (g *Greaseweazle) Motor(ctx context.Context, on bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	v := byte(0)
	if on {
		v = 1
	}
	return g.send(gwCmdMotor, []byte{v})
}

func (g *Greaseweazle) WaitIndex(ctx context.Context) error {
	return checkContext(ctx)
}

// ReadFlux streams one revolution of 16-bit flux words: bits[14:0] are
// the delta in ticks, bit 15 is the index-edge flag, matching the
// half-word FIFO layout the PIO side produces.
func (g *Greaseweazle) ReadFlux(ctx context.Context, head int) iter.Seq2[uint16, bool] {
	return func(yield func(uint16, bool) bool) {
		if err := g.send(gwCmdReadFlux, []byte{byte(head)}); err != nil {
			return
		}
		buf := make([]byte, 2)
		for {
			if checkContext(ctx) != nil {
				return
			}
			n, err := g.port.Read(buf)
			if err != nil || n < 2 {
				return
			}
			word := binary.LittleEndian.Uint16(buf)
			delta := word &^ (1 << 15)
			index := word&(1<<15) != 0
			if delta == 0 && !index {
				return // end of revolution sentinel
			}
			if !yield(delta, index) {
				return
			}
		}
	}
}

func (g *Greaseweazle) WriteFlux(ctx context.Context, head int, ticks []uint16) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	buf := make([]byte, 1+len(ticks)*2)
	buf[0] = byte(head)
	for i, t := range ticks {
		binary.LittleEndian.PutUint16(buf[1+i*2:], t)
	}
	return g.send(gwCmdWrite, buf)
}
