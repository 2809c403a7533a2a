package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/guidoenr/tonescope/internal/render"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "tonescope.yaml"

// Surface names accepted by Display.Surface.
const (
	SurfaceTerminal = "terminal"
	SurfaceSDL      = "sdl"
	SurfaceNone     = "none"
)

// Config is the runtime configuration, loaded from YAML.
type Config struct {
	LogLevel  string        `yaml:"log_level"`
	LogFile   string        `yaml:"log_file"`
	Debug     bool          `yaml:"debug"`
	Synthetic bool          `yaml:"synthetic"`
	AutoStart bool          `yaml:"autostart"`
	Audio     AudioConfig   `yaml:"audio"`
	Display   DisplayConfig `yaml:"display"`
	Web       WebConfig     `yaml:"web"`
	Profile   ProfileConfig `yaml:"profile"`
}

// AudioConfig selects and shapes the input stream.
type AudioConfig struct {
	Device          string `yaml:"device"`            // substring match on the device name, empty for auto-detect
	Channels        int    `yaml:"channels"`          // channels requested from the device, down-mixed to mono
	FramesPerBuffer int    `yaml:"frames_per_buffer"` // 0 lets PortAudio choose
}

// DisplayConfig controls the drawing surface and frame cadence.
type DisplayConfig struct {
	Surface    string  `yaml:"surface"`
	FPS        float64 `yaml:"fps"`
	PixelRatio float64 `yaml:"pixel_ratio"` // 0 means ask the surface
	Width      int     `yaml:"width"`       // 0 means follow the terminal/window
	Height     int     `yaml:"height"`
	View       string  `yaml:"view"`
	Status     bool    `yaml:"status"`
	Color      bool    `yaml:"color"`
	Palette    string  `yaml:"palette"`
}

// WebConfig controls the optional HTTP/websocket collaborator.
type WebConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Addr            string        `yaml:"addr"`
	PublishInterval time.Duration `yaml:"publish_interval"`
}

// ProfileConfig enables the per-frame CSV profiler.
type ProfileConfig struct {
	Path string `yaml:"path"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Channels:        1,
			FramesPerBuffer: 512,
		},
		Display: DisplayConfig{
			Surface: SurfaceTerminal,
			FPS:     60,
			View:    "frequency",
			Status:  true,
			Color:   true,
			Palette: "default",
		},
		Web: WebConfig{
			Addr: ":8080",
		},
	}
}

// Load reads the configuration at path. An empty path falls back to
// DefaultFile when it exists and to Defaults otherwise. Environment overrides
// are applied after the file and before validation.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level %q not one of debug|info|warn|error", c.LogLevel)
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("audio.channels must be positive (got %d)", c.Audio.Channels)
	}
	if c.Audio.FramesPerBuffer < 0 {
		return fmt.Errorf("audio.frames_per_buffer must not be negative (got %d)", c.Audio.FramesPerBuffer)
	}
	switch c.Display.Surface {
	case SurfaceTerminal, SurfaceSDL, SurfaceNone:
	default:
		return fmt.Errorf("display.surface %q not one of terminal|sdl|none", c.Display.Surface)
	}
	if c.Display.FPS <= 0 {
		return fmt.Errorf("display.fps must be positive (got %.2f)", c.Display.FPS)
	}
	if c.Display.PixelRatio < 0 {
		return fmt.Errorf("display.pixel_ratio must not be negative (got %.2f)", c.Display.PixelRatio)
	}
	if c.Display.Width < 0 || c.Display.Height < 0 {
		return fmt.Errorf("invalid dimensions: width=%d height=%d", c.Display.Width, c.Display.Height)
	}
	switch strings.ToLower(c.Display.View) {
	case "frequency", "freq", "time":
	default:
		return fmt.Errorf("display.view %q not one of frequency|time", c.Display.View)
	}
	if c.Display.Palette != "" && !slices.Contains(render.PaletteNames(), c.Display.Palette) {
		return fmt.Errorf("display.palette %q not one of %s", c.Display.Palette, strings.Join(render.PaletteNames(), "|"))
	}
	if c.Web.Enabled && c.Web.Addr == "" {
		return errors.New("web.addr must be set when web is enabled")
	}
	if c.Web.PublishInterval < 0 {
		return fmt.Errorf("web.publish_interval must not be negative (got %s)", c.Web.PublishInterval)
	}
	return nil
}

// FrameInterval is the scheduling period derived from Display.FPS.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Display.FPS)
}

// applyEnv overrides settings from TONESCOPE_* variables.
func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if val, ok := os.LookupEnv(key); ok {
			*dst = val
		}
	}
	boolean := func(key string, dst *bool) error {
		val, ok := os.LookupEnv(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("TONESCOPE_LOG_LEVEL", &c.LogLevel)
	str("TONESCOPE_LOG_FILE", &c.LogFile)
	str("TONESCOPE_DEVICE", &c.Audio.Device)
	str("TONESCOPE_SURFACE", &c.Display.Surface)
	str("TONESCOPE_VIEW", &c.Display.View)
	str("TONESCOPE_WEB_ADDR", &c.Web.Addr)

	if err := boolean("TONESCOPE_DEBUG", &c.Debug); err != nil {
		return err
	}
	if err := boolean("TONESCOPE_SYNTHETIC", &c.Synthetic); err != nil {
		return err
	}
	if err := boolean("TONESCOPE_WEB", &c.Web.Enabled); err != nil {
		return err
	}

	if val, ok := os.LookupEnv("TONESCOPE_FPS"); ok {
		fps, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("TONESCOPE_FPS: %w", err)
		}
		c.Display.FPS = fps
	}
	return nil
}
