// Package app runs the capture → analyse → render loop and the session state
// machine that drives it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guidoenr/tonescope/internal/analyzer"
	"github.com/guidoenr/tonescope/internal/capture"
	"github.com/guidoenr/tonescope/internal/render"
	"go.uber.org/zap"
)

// State is the capture state of a Controller.
type State int

const (
	Idle State = iota
	Capturing
)

func (s State) String() string {
	if s == Capturing {
		return "capturing"
	}
	return "idle"
}

// Label is the short indicator shown to users.
func (s State) Label() string {
	if s == Capturing {
		return "LIVE"
	}
	return "OFFLINE"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Command is a request executed on the controller's loop goroutine.
type Command int

const (
	CommandToggle Command = iota + 1
	CommandViewFrequency
	CommandViewTime
	CommandCycleView
	CommandQuit
)

func (c Command) String() string {
	switch c {
	case CommandToggle:
		return "toggle"
	case CommandViewFrequency:
		return "view-frequency"
	case CommandViewTime:
		return "view-time"
	case CommandCycleView:
		return "cycle-view"
	case CommandQuit:
		return "quit"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// Session is the capture source driven by the controller.
type Session interface {
	Start() error
	Stop() error
	SampleRate() float64
	TransformSize() int
	Pull() (analyzer.FrequencySnapshot, analyzer.AmplitudeSnapshot, error)
}

// Painter draws frames; *render.Renderer implements it.
type Painter interface {
	Frame(mode render.ViewMode, freq analyzer.FrequencySnapshot, amp analyzer.AmplitudeSnapshot) error
	Clear() error
}

// Status is the published view of the controller.
type Status struct {
	State        State                  `json:"state"`
	Capturing    bool                   `json:"capturing"`
	View         render.ViewMode        `json:"view"`
	ViewLabel    string                 `json:"viewLabel"`
	SampleRateHz float64                `json:"sampleRateHz"`
	Features     analyzer.FrameFeatures `json:"features"`
}

// Config configures a Controller.
type Config struct {
	Session   Session
	Painter   Painter
	Publisher Publisher
	Scheduler Scheduler

	View      render.ViewMode
	AutoStart bool
	// FrameInterval paces the refresh scheduler when Scheduler is nil and
	// is the budget reported by the profiler.
	FrameInterval time.Duration
	// IdleInterval is how often the surface is cleared while idle.
	IdleInterval time.Duration
	ProfilePath  string
	Log          *zap.Logger
}

const (
	defaultFrameInterval = time.Second / 60
	defaultIdleInterval  = 250 * time.Millisecond
	commandQueue         = 16
)

// Controller owns the session state. Toggle, SetViewMode and the frame
// pipeline run on a single goroutine; other goroutines go through Dispatch.
type Controller struct {
	session   Session
	painter   Painter
	pub       Publisher
	sched     Scheduler
	log       *zap.Logger
	prof      *profiler
	budget    time.Duration
	idleEvery time.Duration
	autoStart bool

	state    State
	view     render.ViewMode
	features analyzer.FrameFeatures
	commands chan Command
}

// New builds a controller in the Idle state.
func New(cfg Config) (*Controller, error) {
	if cfg.Session == nil {
		return nil, errors.New("controller: session is required")
	}
	if cfg.Painter == nil {
		return nil, errors.New("controller: painter is required")
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = defaultFrameInterval
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = defaultIdleInterval
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewRefreshScheduler(cfg.FrameInterval)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = Publishers(nil)
	}

	return &Controller{
		session:   cfg.Session,
		painter:   cfg.Painter,
		pub:       cfg.Publisher,
		sched:     cfg.Scheduler,
		log:       cfg.Log,
		prof:      newProfiler(cfg.ProfilePath, cfg.Log),
		budget:    cfg.FrameInterval,
		idleEvery: cfg.IdleInterval,
		autoStart: cfg.AutoStart,
		view:      cfg.View,
		commands:  make(chan Command, commandQueue),
	}, nil
}

// State returns the current session state.
func (c *Controller) State() State { return c.state }

// ViewMode returns the view drawn by the next frame.
func (c *Controller) ViewMode() render.ViewMode { return c.view }

// Status snapshots the controller for publication.
func (c *Controller) Status() Status {
	return Status{
		State:        c.state,
		Capturing:    c.state == Capturing,
		View:         c.view,
		ViewLabel:    c.view.Label(),
		SampleRateHz: c.session.SampleRate(),
		Features:     c.features,
	}
}

// Toggle starts capture from Idle or stops it from Capturing. A failed start
// leaves the controller Idle, reports the error to the publisher and returns
// it; no frame is scheduled.
func (c *Controller) Toggle() error {
	if c.state == Capturing {
		c.stop()
		return nil
	}

	if err := c.session.Start(); err != nil {
		c.log.Warn("capture start failed", zap.Error(err))
		c.pub.ReportError(err)
		return err
	}
	c.state = Capturing
	c.log.Info("capturing",
		zap.Float64("sampleRateHz", c.session.SampleRate()),
		zap.Stringer("view", c.view))
	c.pub.PublishState(c.Status())
	c.sched.Request()
	return nil
}

// SetViewMode switches the projection used from the next frame on.
func (c *Controller) SetViewMode(mode render.ViewMode) {
	if mode == c.view {
		return
	}
	c.view = mode
	c.log.Debug("view changed", zap.Stringer("view", mode))
	c.pub.PublishState(c.Status())
}

// Dispatch queues a command for the loop goroutine. It never blocks and
// reports whether the command was queued.
func (c *Controller) Dispatch(cmd Command) bool {
	select {
	case c.commands <- cmd:
		return true
	default:
		c.log.Warn("command dropped", zap.Stringer("command", cmd))
		return false
	}
}

// Run executes commands, scheduled frames and idle clears until ctx is done,
// a Quit command arrives or the surface is closed. Capture is released on
// every exit path.
func (c *Controller) Run(ctx context.Context) error {
	idle := time.NewTicker(c.idleEvery)
	defer idle.Stop()
	defer c.shutdown()

	c.pub.PublishState(c.Status())
	if c.autoStart {
		_ = c.Toggle()
	}
	if c.state == Idle {
		if err := c.painter.Clear(); errors.Is(err, render.ErrSurfaceClosed) {
			return nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-c.commands:
			if c.handle(cmd) {
				return nil
			}
		case <-c.sched.C():
			if err := c.frame(); err != nil {
				if errors.Is(err, render.ErrSurfaceClosed) {
					return nil
				}
				return err
			}
		case <-idle.C:
			if c.state != Idle {
				continue
			}
			if err := c.painter.Clear(); err != nil {
				if errors.Is(err, render.ErrSurfaceClosed) {
					return nil
				}
				return fmt.Errorf("clear surface: %w", err)
			}
		}
	}
}

func (c *Controller) handle(cmd Command) (quit bool) {
	switch cmd {
	case CommandToggle:
		_ = c.Toggle()
	case CommandViewFrequency:
		c.SetViewMode(render.Frequency)
	case CommandViewTime:
		c.SetViewMode(render.Time)
	case CommandCycleView:
		c.SetViewMode(c.view.Next())
	case CommandQuit:
		return true
	}
	return false
}

// frame runs one pull → extract → render → publish pass and requests the
// next one.
func (c *Controller) frame() error {
	if c.state != Capturing {
		return nil
	}
	c.prof.beginFrame()

	freq, amp, err := c.session.Pull()
	if err != nil {
		c.log.Error("capture pull failed", zap.Error(err))
		c.stop()
		c.pub.ReportError(err)
		return nil
	}
	c.prof.markSection("pull")

	features := analyzer.Extract(freq, c.session.SampleRate(), c.session.TransformSize())
	c.prof.markSection("extract")

	if err := c.painter.Frame(c.view, freq, amp); err != nil {
		return fmt.Errorf("render frame: %w", err)
	}
	c.prof.markSection("render")

	c.features = features
	c.pub.PublishFeatures(features)
	c.prof.markSection("publish")
	c.prof.endFrame(c.budget)

	c.sched.Request()
	return nil
}

// stop cancels the pending frame before releasing the session, then
// publishes the zero baseline and clears the surface.
func (c *Controller) stop() {
	c.sched.Cancel()
	if err := c.session.Stop(); err != nil {
		c.log.Warn("capture release failed", zap.Error(err))
	}
	c.state = Idle
	c.features = analyzer.FrameFeatures{}
	c.log.Info("capture idle")

	c.pub.PublishState(c.Status())
	c.pub.PublishFeatures(c.features)
	if err := c.painter.Clear(); err != nil {
		c.log.Debug("clear after stop failed", zap.Error(err))
	}
}

func (c *Controller) shutdown() {
	if c.state == Capturing {
		c.stop()
	}
	c.sched.Cancel()
	if err := c.prof.Close(); err != nil {
		c.log.Warn("profiler close failed", zap.Error(err))
	}
}

// AlertMessage is the user-facing text for a capture failure.
func AlertMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, capture.ErrPermissionDenied):
		return "Please allow microphone access to use the analyzer."
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return "No microphone available: " + err.Error()
	default:
		return "Audio capture failed: " + err.Error()
	}
}
