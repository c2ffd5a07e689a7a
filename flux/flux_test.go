package flux

import (
	"context"
	"iter"
	"testing"

	"github.com/jdoe/picofdc/mfm"
)

// fakeLink is a minimal in-memory CoprocessorLink for exercising seek and
// idle-power bookkeeping without any real hardware or transport.
type fakeLink struct {
	cyl       int
	steps     int
	selects   int
	motors    int
	protected bool
	changed   bool
}

func (f *fakeLink) Step(ctx context.Context, outward bool) error {
	f.steps++
	if outward {
		f.cyl++
	} else {
		f.cyl--
		if f.cyl < 0 {
			f.cyl = 0
		}
	}
	return nil
}
func (f *fakeLink) AtTrackZero(ctx context.Context) (bool, error) { return f.cyl == 0, nil }
func (f *fakeLink) Select(ctx context.Context, on bool) error     { f.selects++; return nil }
func (f *fakeLink) Motor(ctx context.Context, on bool) error      { f.motors++; return nil }
func (f *fakeLink) WaitIndex(ctx context.Context) error           { return nil }
func (f *fakeLink) WriteProtected(ctx context.Context) (bool, error) {
	return f.protected, nil
}
func (f *fakeLink) DiskChanged(ctx context.Context) (bool, error) { return f.changed, nil }
func (f *fakeLink) ReadFlux(ctx context.Context, head int) iter.Seq2[uint16, bool] {
	return func(yield func(uint16, bool) bool) {}
}
func (f *fakeLink) WriteFlux(ctx context.Context, head int, ticks []uint16) error { return nil }

func TestSeekRecalibratesOnce(t *testing.T) {
	link := &fakeLink{cyl: 5}
	d := NewDrive(link, 22)
	defer d.Close()

	if err := d.Seek(context.Background(), 10); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if d.cylinder != 10 {
		t.Errorf("cylinder = %d, want 10", d.cylinder)
	}
	if !d.trackZeroConfirm {
		t.Errorf("expected track zero confirmed after first seek")
	}

	stepsAfterFirst := link.steps
	if err := d.Seek(context.Background(), 0); err != nil {
		t.Fatalf("seek: %v", err)
	}
	// Second seek should not re-recalibrate: exactly 10 steps inward.
	if link.steps-stepsAfterFirst != 10 {
		t.Errorf("second seek took %d steps, want 10", link.steps-stepsAfterFirst)
	}
}

func TestWriteRejectsProtectedMedia(t *testing.T) {
	link := &fakeLink{cyl: 0, protected: true}
	d := NewDrive(link, 22)
	defer d.Close()

	err := d.WriteTrack(context.Background(), 0, 0, map[byte]mfm.Sector{})
	if err == nil {
		t.Fatalf("expected write-protected error")
	}
}
