package transport

import (
	"context"
	"encoding/binary"
	"iter"
)

// KryoFlux command IDs, laid out the same way as Greaseweazle's but with
// a distinct numbering, modeling a second real device family behind the
// same CoprocessorLink contract.
const (
	kfCmdSeek     = 0x11
	kfCmdSelect   = 0x12
	kfCmdMotor    = 0x13
	kfCmdReadFlux = 0x14
	kfCmdWrite    = 0x15
	kfCmdGetPin   = 0x16
)

// KryoFlux is a flux.CoprocessorLink talking to a KryoFlux-style
// USB-serial flux tool.
type KryoFlux struct {
	frame
}

// OpenKryoFlux opens the serial device at path.
func OpenKryoFlux(path string) (*KryoFlux, error) {
	port, err := openPort(path, 9600)
	if err != nil {
		return nil, err
	}
	return &KryoFlux{frame{port: port}}, nil
}

func (k *KryoFlux) Close() error { return k.port.Close() }

func (k *KryoFlux) Step(ctx context.Context, outward bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	dir := byte(0)
	if outward {
		dir = 1
	}
	return k.send(kfCmdSeek, []byte{dir})
}

func (k *KryoFlux) getPin(ctx context.Context, pin byte) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}
	if err := k.send(kfCmdGetPin, []byte{pin}); err != nil {
		return false, err
	}
	val := make([]byte, 1)
	if _, err := k.port.Read(val); err != nil {
		return false, err
	}
	return val[0] != 0, nil
}

func (k *KryoFlux) AtTrackZero(ctx context.Context) (bool, error)     { return k.getPin(ctx, pinTrack0) }
func (k *KryoFlux) WriteProtected(ctx context.Context) (bool, error) { return k.getPin(ctx, pinWProt) }
func (k *KryoFlux) DiskChanged(ctx context.Context) (bool, error)    { return k.getPin(ctx, pinChanged) }

func (k *KryoFlux) Select(ctx context.Context, on bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	v := byte(0)
	if on {
		v = 1
	}
	return k.send(kfCmdSelect, []byte{v})
}

func (k *KryoFlux) Motor(ctx context.Context, on bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	v := byte(0)
	if on {
		v = 1
	}
	return k.send(kfCmdMotor, []byte{v})
}

func (k *KryoFlux) WaitIndex(ctx context.Context) error { return checkContext(ctx) }

func (k *KryoFlux) ReadFlux(ctx context.Context, head int) iter.Seq2[uint16, bool] {
	return func(yield func(uint16, bool) bool) {
		if err := k.send(kfCmdReadFlux, []byte{byte(head)}); err != nil {
			return
		}
		buf := make([]byte, 2)
		for {
			if checkContext(ctx) != nil {
				return
			}
			n, err := k.port.Read(buf)
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

func (k *KryoFlux) WriteFlux(ctx context.Context, head int, ticks []uint16) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	buf := make([]byte, 1+len(ticks)*2)
	buf[0] = byte(head)
	for i, t := range ticks {
		binary.LittleEndian.PutUint16(buf[1+i*2:], t)
	}
	return k.send(kfCmdWrite, buf)
}
