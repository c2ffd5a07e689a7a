// Package transport carries the flux package's CoprocessorLink contract
// over a real serial connection to the PIO coprocessor, with three
// interchangeable command framings grounded on the wire protocols of
// real open-source flux tools (Greaseweazle, KryoFlux, SuperCard Pro).
package transport

import (
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// frame is the shared request/ACK exchange every backend in this
// package uses: write opcode+length+payload, read a 2-byte ACK back
// (opcode echo, then status).
type frame struct {
	port serial.Port
}

func openPort(path string, baud int) (serial.Port, error) {
	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(2 * time.Second); err != nil {
		return nil, fmt.Errorf("transport: set timeout: %w", err)
	}
	return port, nil
}

func (f *frame) send(cmd byte, payload []byte) error {
	buf := make([]byte, 0, len(payload)+2)
	buf = append(buf, cmd, byte(len(payload)))
	buf = append(buf, payload...)
	if _, err := f.port.Write(buf); err != nil {
		return fmt.Errorf("transport: write command 0x%02x: %w", cmd, err)
	}
	return f.readAck(cmd)
}

func (f *frame) readAck(cmd byte) error {
	ack := make([]byte, 2)
	n, err := f.port.Read(ack)
	if err != nil {
		return fmt.Errorf("transport: read ack for 0x%02x: %w", cmd, err)
	}
	if n < 2 {
		return fmt.Errorf("transport: short ack for 0x%02x", cmd)
	}
	if ack[0] != cmd {
		return fmt.Errorf("transport: ack echo mismatch: sent 0x%02x, got 0x%02x", cmd, ack[0])
	}
	if ack[1] != 0 {
		return fmt.Errorf("transport: command 0x%02x failed, status %d", cmd, ack[1])
	}
	return nil
}

// checkContext is a cheap cancellation check around otherwise-blocking
// serial I/O calls; the coprocessor link's only real suspension points
// are waiting for the next flux word and waiting for the serial TX
// queue to drain, both of which happen inside port.Read/port.Write.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
