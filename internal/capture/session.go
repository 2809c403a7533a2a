// Package capture owns the live input stream and the transform engine for
// one analysis session.
package capture

import (
	"errors"
	"fmt"

	"github.com/guidoenr/tonescope/internal/analyzer"
	"go.uber.org/zap"
)

var (
	// ErrNotCapturing is returned by Pull while the session is stopped.
	ErrNotCapturing = errors.New("capture session is not running")

	// Acquisition failures. Both are terminal for a start attempt.
	ErrPermissionDenied  = errors.New("audio input permission denied")
	ErrDeviceUnavailable = errors.New("audio input device unavailable")
)

// Device is a running mono input stream.
type Device interface {
	SampleRate() float64
	// Latest copies the newest samples into dst and returns the running
	// count of samples delivered so far.
	Latest(dst []float32) uint64
	Close() error
}

// OpenFunc acquires a device. Failures should wrap ErrPermissionDenied or
// ErrDeviceUnavailable.
type OpenFunc func() (Device, error)

// Config configures a Session.
type Config struct {
	Open OpenFunc
	Log  *zap.Logger
}

// Session holds the device, engine and snapshot buffers, all of which exist
// only between a successful Start and the next Stop.
type Session struct {
	open OpenFunc
	log  *zap.Logger

	device  Device
	engine  *analyzer.Engine
	samples []float32
	freq    analyzer.FrequencySnapshot
	amp     analyzer.AmplitudeSnapshot
	seen    uint64
	primed  bool
}

// New creates an idle session.
func New(cfg Config) *Session {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return &Session{open: cfg.Open, log: cfg.Log}
}

// Start acquires the device and allocates the engine and fixed-length
// snapshot buffers. Starting a running session is a no-op.
func (s *Session) Start() error {
	if s.device != nil {
		return nil
	}
	if s.open == nil {
		return fmt.Errorf("start capture: %w: no device opener configured", ErrDeviceUnavailable)
	}

	device, err := s.open()
	if err != nil {
		if !errors.Is(err, ErrPermissionDenied) && !errors.Is(err, ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		return fmt.Errorf("start capture: %w", err)
	}
	if device == nil || device.SampleRate() <= 0 {
		if device != nil {
			_ = device.Close()
		}
		return fmt.Errorf("start capture: %w: device reported no sample rate", ErrDeviceUnavailable)
	}

	engine := analyzer.NewEngine()
	s.device = device
	s.engine = engine
	s.samples = make([]float32, engine.Size())
	s.freq = make(analyzer.FrequencySnapshot, engine.Bins())
	s.amp = make(analyzer.AmplitudeSnapshot, engine.Bins())
	s.seen = 0
	s.primed = false

	s.log.Info("capture started",
		zap.Float64("sampleRateHz", device.SampleRate()),
		zap.Int("transformSize", engine.Size()))
	return nil
}

// Stop releases the device and engine. It always drops the resources, even
// when closing the device fails, and is a no-op on a stopped session.
func (s *Session) Stop() error {
	if s.device == nil {
		return nil
	}
	err := s.device.Close()
	s.device = nil
	s.engine = nil
	s.samples = nil
	s.freq = nil
	s.amp = nil
	s.log.Info("capture stopped")
	if err != nil {
		return fmt.Errorf("stop capture: %w", err)
	}
	return nil
}

// Active reports whether the session holds a device.
func (s *Session) Active() bool {
	return s.device != nil
}

// SampleRate returns the device rate, or 0 while stopped.
func (s *Session) SampleRate() float64 {
	if s.device == nil {
		return 0
	}
	return s.device.SampleRate()
}

// TransformSize returns the fixed transform size.
func (s *Session) TransformSize() int {
	return analyzer.TransformSize
}

// Pull returns the newest frequency and amplitude snapshots. It never blocks.
// When the device delivered nothing since the previous pull, the previous
// snapshots are returned unchanged. The slices are reused by the next Pull.
func (s *Session) Pull() (analyzer.FrequencySnapshot, analyzer.AmplitudeSnapshot, error) {
	if s.device == nil {
		return nil, nil, ErrNotCapturing
	}

	written := s.device.Latest(s.samples)
	if s.primed && written == s.seen {
		return s.freq, s.amp, nil
	}
	s.seen = written
	s.primed = true

	s.engine.Frequency(s.samples, s.freq)
	s.engine.TimeDomain(s.samples, s.amp)
	return s.freq, s.amp, nil
}
