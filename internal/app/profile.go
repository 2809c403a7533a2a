package app

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// profiler appends per-section frame timings to a CSV file. Without a path it
// only reports frames that overrun their budget.
type profiler struct {
	mu      sync.Mutex
	file    *os.File
	logger  *zap.Logger
	start   time.Time
	last    time.Time
	enabled bool
}

func newProfiler(path string, logger *zap.Logger) *profiler {
	p := &profiler{logger: logger}
	if path == "" {
		return p
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Warn("profiler disabled", zap.String("path", path), zap.Error(err))
		return p
	}
	p.file = f
	p.enabled = true
	p.writeHeader()
	logger.Info("profiling frames", zap.String("path", path))
	return p
}

func (p *profiler) writeHeader() {
	if info, err := p.file.Stat(); err == nil && info.Size() > 0 {
		return
	}
	fmt.Fprintln(p.file, "timestamp,section,delta_ms")
}

func (p *profiler) beginFrame() {
	now := time.Now()
	p.start = now
	p.last = now
	if p.enabled {
		p.log("frame_start", 0)
	}
}

func (p *profiler) markSection(name string) {
	if !p.enabled {
		return
	}
	now := time.Now()
	delta := now.Sub(p.last).Seconds() * 1000
	p.last = now
	p.log(name, delta)
}

// endFrame records the frame total and logs frames slower than budget.
func (p *profiler) endFrame(budget time.Duration) {
	elapsed := time.Since(p.start)
	if p.enabled {
		p.log("frame_total", elapsed.Seconds()*1000)
	}
	if budget > 0 && elapsed > budget {
		p.logger.Debug("frame over budget",
			zap.Duration("elapsed", elapsed),
			zap.Duration("budget", budget))
	}
}

func (p *profiler) Close() error {
	if !p.enabled {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = false
	err := p.file.Close()
	p.file = nil
	return err
}

func (p *profiler) log(section string, deltaMs float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return
	}
	timestamp := time.Now().Format(time.RFC3339Nano)
	fmt.Fprintf(p.file, "%s,%s,%.3f\n", timestamp, section, deltaMs)
}
