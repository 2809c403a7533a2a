package audio

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// SynthConfig shapes the synthetic input.
type SynthConfig struct {
	SampleRate float64
	RingSize   int
	Block      time.Duration // callback cadence, like a host buffer period
	Seed       int64
}

// Synth is a stand-in input device producing a gliding tone with harmonics,
// a slow amplitude swell and a little noise. It feeds its Ring from a
// background goroutine at the nominal sample rate, like a host callback.
type Synth struct {
	ring       *Ring
	sampleRate float64
	rng        *rand.Rand

	phase      float64
	sweepPhase float64
	swellPhase float64

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewSynth creates a synthetic source without starting it.
func NewSynth(cfg SynthConfig) *Synth {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44_100
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Synth{
		ring:       NewRing(cfg.RingSize),
		sampleRate: cfg.SampleRate,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
	}
}

// OpenSynth creates a synthetic source and starts its feeder goroutine.
func OpenSynth(cfg SynthConfig) *Synth {
	if cfg.Block <= 0 {
		cfg.Block = 10 * time.Millisecond
	}
	s := NewSynth(cfg)
	s.stop = make(chan struct{})

	frames := int(math.Round(s.sampleRate * cfg.Block.Seconds()))
	if frames < 1 {
		frames = 1
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(cfg.Block)
		defer ticker.Stop()
		block := make([]float32, frames)
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.fill(block)
				s.ring.Write(block, 1)
			}
		}
	}()
	return s
}

// SampleRate returns the nominal sample rate.
func (s *Synth) SampleRate() float64 { return s.sampleRate }

// Name identifies the source in logs and status lines.
func (s *Synth) Name() string { return "synthetic" }

// Latest copies the newest samples into dst. See Ring.Latest.
func (s *Synth) Latest(dst []float32) uint64 {
	return s.ring.Latest(dst)
}

// Close stops the feeder goroutine.
func (s *Synth) Close() error {
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
		}
		s.wg.Wait()
	})
	return nil
}

func (s *Synth) fill(block []float32) {
	dt := 1.0 / s.sampleRate
	for i := range block {
		s.sweepPhase += dt * 0.15
		s.swellPhase += dt * 0.7

		freq := 220.0 * math.Pow(2, 2.0+2.0*math.Sin(s.sweepPhase))
		s.phase += 2 * math.Pi * freq * dt
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi
		}

		swell := 0.35 + 0.25*math.Sin(s.swellPhase)
		v := math.Sin(s.phase) + 0.4*math.Sin(2*s.phase) + 0.2*math.Sin(3*s.phase)
		v = v*swell/1.6 + (s.rng.Float64()*2-1)*0.02
		block[i] = float32(clamp(v, -1, 1))
	}
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
