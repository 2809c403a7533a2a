package capture

import (
	"errors"
	"math"
	"testing"

	"github.com/guidoenr/tonescope/internal/analyzer"
)

type fakeDevice struct {
	rate     float64
	written  uint64
	value    float32
	reads    int
	closes   int
	closeErr error
}

func (d *fakeDevice) SampleRate() float64 { return d.rate }

func (d *fakeDevice) Latest(dst []float32) uint64 {
	d.reads++
	for i := range dst {
		dst[i] = d.value * float32(math.Sin(2*math.Pi*32*float64(i)/float64(len(dst))))
	}
	return d.written
}

func (d *fakeDevice) Close() error {
	d.closes++
	return d.closeErr
}

func openWith(dev *fakeDevice) OpenFunc {
	return func() (Device, error) { return dev, nil }
}

func TestStartFailureStaysIdle(t *testing.T) {
	s := New(Config{Open: func() (Device, error) {
		return nil, ErrDeviceUnavailable
	}})
	err := s.Start()
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("err=%v want ErrDeviceUnavailable", err)
	}
	if s.Active() {
		t.Fatalf("session should not be active after failed start")
	}
	if _, _, err := s.Pull(); !errors.Is(err, ErrNotCapturing) {
		t.Fatalf("pull while idle: err=%v want ErrNotCapturing", err)
	}
}

func TestStartUnclassifiedErrorBecomesDeviceUnavailable(t *testing.T) {
	s := New(Config{Open: func() (Device, error) {
		return nil, errors.New("boom")
	}})
	if err := s.Start(); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("err=%v want ErrDeviceUnavailable", err)
	}
}

func TestStartPermissionDeniedSurfaces(t *testing.T) {
	s := New(Config{Open: func() (Device, error) {
		return nil, ErrPermissionDenied
	}})
	if err := s.Start(); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err=%v want ErrPermissionDenied", err)
	}
}

func TestStartWithoutOpener(t *testing.T) {
	if err := New(Config{}).Start(); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("err=%v want ErrDeviceUnavailable", err)
	}
}

func TestPullSnapshotsHaveFixedLength(t *testing.T) {
	dev := &fakeDevice{rate: 48_000, written: 4096, value: 0.5}
	s := New(Config{Open: openWith(dev)})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.SampleRate() != 48_000 || s.TransformSize() != analyzer.TransformSize {
		t.Fatalf("rate=%v size=%d", s.SampleRate(), s.TransformSize())
	}

	freq, amp, err := s.Pull()
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(freq) != analyzer.BinCount || len(amp) != analyzer.BinCount {
		t.Fatalf("len(freq)=%d len(amp)=%d want %d", len(freq), len(amp), analyzer.BinCount)
	}
	if freq[32] == 0 {
		t.Fatalf("expected energy at the tone bin")
	}
	if got := analyzer.Extract(freq, s.SampleRate(), s.TransformSize()); got.PeakFrequencyHz != 750 {
		t.Fatalf("peak=%d want 750", got.PeakFrequencyHz)
	}
}

func TestStaleReadReturnsPreviousSnapshot(t *testing.T) {
	dev := &fakeDevice{rate: 44_100, written: 2048, value: 0.001}
	s := New(Config{Open: openWith(dev)})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	freq, _, _ := s.Pull()
	first := append(analyzer.FrequencySnapshot(nil), freq...)

	freq, _, err := s.Pull()
	if err != nil {
		t.Fatalf("stale pull: %v", err)
	}
	for i := range first {
		if freq[i] != first[i] {
			t.Fatalf("stale read changed bin %d: %d -> %d", i, first[i], freq[i])
		}
	}

	dev.written += 512
	freq, _, _ = s.Pull()
	if freq[32] <= first[32] {
		t.Fatalf("fresh samples should advance smoothing: %d -> %d", first[32], freq[32])
	}
}

func TestStopReleasesAndIsIdempotent(t *testing.T) {
	dev := &fakeDevice{rate: 44_100}
	s := New(Config{Open: openWith(dev)})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if dev.closes != 1 {
		t.Fatalf("closes=%d want 1", dev.closes)
	}
	if s.Active() || s.SampleRate() != 0 {
		t.Fatalf("session still active after stop")
	}
	if _, _, err := s.Pull(); !errors.Is(err, ErrNotCapturing) {
		t.Fatalf("pull after stop: err=%v", err)
	}
}

func TestStopReleasesEvenWhenCloseFails(t *testing.T) {
	dev := &fakeDevice{rate: 44_100, closeErr: errors.New("device gone")}
	s := New(Config{Open: openWith(dev)})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(); err == nil {
		t.Fatalf("expected close error to surface")
	}
	if s.Active() {
		t.Fatalf("resources must be released even when close fails")
	}
}

func TestStartRejectsZeroSampleRate(t *testing.T) {
	dev := &fakeDevice{}
	s := New(Config{Open: openWith(dev)})
	if err := s.Start(); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("err=%v want ErrDeviceUnavailable", err)
	}
	if dev.closes != 1 {
		t.Fatalf("rejected device should be closed, closes=%d", dev.closes)
	}
}

func TestPullDoesNotAllocate(t *testing.T) {
	dev := &fakeDevice{rate: 44_100, value: 0.2}
	s := New(Config{Open: openWith(dev)})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, _, _ = s.Pull()
	allocs := testing.AllocsPerRun(50, func() {
		_, _, _ = s.Pull()
	})
	if allocs > 0 {
		t.Errorf("expected stale pulls to be allocation free, got %.1f", allocs)
	}
}
