package audio

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/guidoenr/tonescope/internal/capture"
)

// Stream wraps a PortAudio input stream feeding a mono Ring.
type Stream struct {
	stream     *portaudio.Stream
	sampleRate float64
	channels   int
	device     *portaudio.DeviceInfo
	ring       *Ring

	closeOnce sync.Once
	closeErr  error
}

// Config controls how a Stream is opened.
type Config struct {
	DeviceName      string
	RingSize        int
	Channels        int
	FramesPerBuffer int
}

const defaultRingSize = 2048

// Open acquires an input device and starts streaming into the ring. Errors
// wrap capture.ErrDeviceUnavailable or capture.ErrPermissionDenied.
func Open(cfg Config) (*Stream, error) {
	if cfg.RingSize <= 0 {
		cfg.RingSize = defaultRingSize
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}

	device, err := findDevice(cfg.DeviceName)
	if err != nil {
		return nil, err
	}

	channels := cfg.Channels
	if channels > device.MaxInputChannels {
		channels = device.MaxInputChannels
	}

	s := &Stream{
		sampleRate: device.DefaultSampleRate,
		channels:   channels,
		device:     device,
		ring:       NewRing(cfg.RingSize),
	}

	framesPerBuffer := cfg.FramesPerBuffer
	if framesPerBuffer < 64 {
		framesPerBuffer = portaudio.FramesPerBufferUnspecified
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		Output:          portaudio.StreamDeviceParameters{},
		SampleRate:      s.sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}, s.process)
	if err != nil {
		return nil, classify("open stream", err)
	}
	s.stream = stream

	if err := s.stream.Start(); err != nil {
		_ = s.stream.Close()
		return nil, classify("start stream", err)
	}

	return s, nil
}

// Close stops and closes the stream. Later calls return the first result.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		if s.stream == nil {
			return
		}
		if err := s.stream.Stop(); err != nil && !errors.Is(err, portaudio.StreamIsStopped) {
			s.closeErr = fmt.Errorf("stop stream: %w", err)
		}
		if err := s.stream.Close(); err != nil && s.closeErr == nil {
			s.closeErr = fmt.Errorf("close stream: %w", err)
		}
	})
	return s.closeErr
}

// SampleRate returns the stream sample rate.
func (s *Stream) SampleRate() float64 {
	return s.sampleRate
}

// Name returns the device name.
func (s *Stream) Name() string {
	if s.device == nil {
		return ""
	}
	return s.device.Name
}

// Latest copies the newest samples into dst. See Ring.Latest.
func (s *Stream) Latest(dst []float32) uint64 {
	return s.ring.Latest(dst)
}

func (s *Stream) process(in []float32) {
	s.ring.Write(in, s.channels)
}

func findDevice(name string) (*portaudio.DeviceInfo, error) {
	if name != "" {
		return findDeviceByName(name)
	}

	if dev, err := portaudio.DefaultInputDevice(); err == nil && dev != nil && dev.MaxInputChannels > 0 {
		return dev, nil
	}

	if host, err := portaudio.DefaultHostApi(); err == nil {
		if host != nil && host.DefaultInputDevice != nil && host.DefaultInputDevice.MaxInputChannels > 0 {
			return host.DefaultInputDevice, nil
		}
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, classify("list audio devices", err)
	}

	if candidate := pickBestDevice(devices); candidate != nil {
		return candidate, nil
	}

	return nil, fmt.Errorf("%w: no audio input device found", capture.ErrDeviceUnavailable)
}

func findDeviceByName(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, classify("list audio devices", err)
	}

	name = strings.ToLower(name)
	for _, device := range devices {
		if device.MaxInputChannels == 0 {
			continue
		}
		if strings.Contains(strings.ToLower(device.Name), name) {
			return device, nil
		}
	}

	return nil, fmt.Errorf("%w: audio device %q not found", capture.ErrDeviceUnavailable, name)
}

// pickBestDevice prefers defaults, then microphones, then the widest input.
func pickBestDevice(devices []*portaudio.DeviceInfo) *portaudio.DeviceInfo {
	type scored struct {
		dev   *portaudio.DeviceInfo
		score int
	}

	var (
		results  []scored
		keywords = []string{"mic", "microphone", "input", "capture"}
	)

	defaultInputIndex := -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultInputIndex = def.Index
	}

	for _, d := range devices {
		if d == nil || d.MaxInputChannels <= 0 {
			continue
		}

		score := d.MaxInputChannels
		if d.Index == defaultInputIndex {
			score += 50
		}

		lower := strings.ToLower(d.Name)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score += 20
				break
			}
		}
		if strings.Contains(lower, "default") {
			score += 10
		}

		results = append(results, scored{dev: d, score: score})
	}

	if len(results) == 0 {
		return nil
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score == results[j].score {
			return strings.ToLower(results[i].dev.Name) < strings.ToLower(results[j].dev.Name)
		}
		return results[i].score > results[j].score
	})

	return results[0].dev
}

// AutoDetectDevice returns the input device Open would pick with no name.
func AutoDetectDevice() (*portaudio.DeviceInfo, error) {
	return findDevice("")
}
