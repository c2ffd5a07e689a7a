// Package flux implements seek/recalibration, flux capture and flux
// emission for a 3.5" 1.44 MB drive, plus the idle-timer driven auto
// power management that spins the motor and drive-select lines down
// after a period of inactivity.
package flux

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	log "github.com/dsoprea/go-logging"
)

const (
	Cylinders     = 80
	Heads         = 2
	SectorsPerTrk = 18

	// maxIndexEdges bounds a track read: FLOPPY_READ_TRACK_ATTEMPTS (15)
	// revolutions, two index edges each.
	maxIndexEdges = 30

	readRetries     = 3
	writeAttempts   = 3
	jogFirst        = 10
	jogSecond       = 20
	headSettle      = 20 * time.Millisecond
	defaultIdleWait = 20 * time.Second
)

// ErrVerify is returned when a written track never reads back correctly
// after every write attempt.
type ErrVerify struct {
	Cylinder int
	Head     int
}

func (e *ErrVerify) Error() string {
	return fmt.Sprintf("flux: write verify failed at cylinder %d head %d", e.Cylinder, e.Head)
}

var errWriteProtected = fmt.Errorf("flux: media is write protected")

// CoprocessorLink is the contract a flux front end (PIO coprocessor,
// simulator, or recorded-image backend) must satisfy. It is the external
// collaborator boundary: mechanical step/seek primitives, motor lines and
// the flux FIFO live entirely behind this interface.
type CoprocessorLink interface {
	// Step pulses the step line once in the given direction (true = toward
	// higher cylinder numbers).
	Step(ctx context.Context, outward bool) error
	// AtTrackZero reports the track-0 sensor line.
	AtTrackZero(ctx context.Context) (bool, error)
	// Select asserts or deasserts the drive-select line.
	Select(ctx context.Context, on bool) error
	// Motor turns the spindle motor on or off.
	Motor(ctx context.Context, on bool) error
	// WaitIndex blocks for the next index-pulse falling edge.
	WaitIndex(ctx context.Context) error
	// WriteProtected reports the write-protect sensor line.
	WriteProtected(ctx context.Context) (bool, error)
	// DiskChanged reports (and, per convention, latches-clears) the
	// disk-change line.
	DiskChanged(ctx context.Context) (bool, error)
	// ReadFlux streams one revolution of flux deltas (ticks, index-edge
	// bit) starting at the next index edge, for the currently seeked
	// cylinder/head.
	ReadFlux(ctx context.Context, head int) iter.Seq2[uint16, bool]
	// WriteFlux emits one revolution of flux deltas, starting at the next
	// index edge, for the currently seeked cylinder/head.
	WriteFlux(ctx context.Context, head int, ticks []uint16) error
}

// Drive drives a CoprocessorLink through seek/read/write with the
// retry, jog and idle-power policy of the original firmware.
type Drive struct {
	link CoprocessorLink

	mu               sync.Mutex
	cylinder         int
	trackZeroConfirm bool
	motorOn          bool
	selected         bool
	idleTimeout      time.Duration
	stopIdle         chan struct{}

	// tickCell is the nominal bit-cell time, in coprocessor ticks, used
	// when encoding a track for write.
	tickCell int
}

// NewDrive returns a Drive with the default idle timeout. tickCell is the
// nominal MFM bit-cell duration in coprocessor ticks at this drive's
// data rate (500 kbit/s).
func NewDrive(link CoprocessorLink, tickCell int) *Drive {
	d := &Drive{link: link, idleTimeout: defaultIdleWait, stopIdle: make(chan struct{}), tickCell: tickCell}
	d.cylinder = -1
	go d.idleLoop()
	return d
}

// SetIdleTimeout overrides the default 20s auto power-down delay.
func (d *Drive) SetIdleTimeout(t time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.idleTimeout = t
}

// Close stops the idle-power goroutine.
func (d *Drive) Close() {
	close(d.stopIdle)
}

func (d *Drive) idleLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	var idleSince time.Time
	for {
		select {
		case <-d.stopIdle:
			return
		case <-ticker.C:
			d.mu.Lock()
			if d.motorOn && idleSince.IsZero() {
				idleSince = time.Now()
			}
			if d.motorOn && !idleSince.IsZero() && time.Since(idleSince) >= d.idleTimeout {
				ctx := context.Background()
				_ = d.link.Motor(ctx, false)
				_ = d.link.Select(ctx, false)
				d.motorOn = false
				d.selected = false
				idleSince = time.Time{}
				log.Infof(context.Background(), "flux: idle timeout, motor and select off")
			}
			d.mu.Unlock()
		}
	}
}

// prepare asserts select and motor before any I/O, matching
// floppy_prepare's auto-motor/auto-select behaviour.
func (d *Drive) prepare(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.selected {
		if err := d.link.Select(ctx, true); err != nil {
			return fmt.Errorf("flux: select: %w", err)
		}
		d.selected = true
	}
	if !d.motorOn {
		if err := d.link.Motor(ctx, true); err != nil {
			return fmt.Errorf("flux: motor on: %w", err)
		}
		d.motorOn = true
		time.Sleep(headSettle)
	}
	return nil
}

// recalibrate seeks outward to cylinder 0, up to 90 steps, matching
// floppy_seek_track0.
func (d *Drive) recalibrate(ctx context.Context) error {
	ok, err := d.link.AtTrackZero(ctx)
	if err != nil {
		return fmt.Errorf("flux: track0 sense: %w", err)
	}
	if ok {
		d.cylinder = 0
		d.trackZeroConfirm = true
		return nil
	}
	for i := 0; i < 90; i++ {
		if err := d.link.Step(ctx, false); err != nil {
			return fmt.Errorf("flux: step: %w", err)
		}
		ok, err := d.link.AtTrackZero(ctx)
		if err != nil {
			return fmt.Errorf("flux: track0 sense: %w", err)
		}
		if ok {
			d.cylinder = 0
			d.trackZeroConfirm = true
			return nil
		}
	}
	return fmt.Errorf("flux: recalibration failed after 90 steps")
}

// Seek moves to the given cylinder, recalibrating to track 0 first if it
// has not yet been confirmed this session.
func (d *Drive) Seek(ctx context.Context, cylinder int) error {
	if err := d.prepare(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.trackZeroConfirm {
		if err := d.recalibrate(ctx); err != nil {
			return err
		}
	}
	for d.cylinder < cylinder {
		if err := d.link.Step(ctx, true); err != nil {
			return fmt.Errorf("flux: step: %w", err)
		}
		d.cylinder++
	}
	for d.cylinder > cylinder {
		if err := d.link.Step(ctx, false); err != nil {
			return fmt.Errorf("flux: step: %w", err)
		}
		d.cylinder--
	}
	time.Sleep(headSettle)
	return nil
}

// jog seeks away from the current cylinder and back, to shake the heads
// loose for a marginal-media retry, matching floppy_jog.
func (d *Drive) jog(ctx context.Context, distance int) error {
	cyl := d.cylinder
	target := cyl + distance
	if target >= Cylinders {
		target = cyl - distance
	}
	if target < 0 {
		target = 0
	}
	if err := d.Seek(ctx, target); err != nil {
		return err
	}
	return d.Seek(ctx, cyl)
}
