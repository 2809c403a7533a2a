package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/guidoenr/tonescope/internal/config"
	"github.com/guidoenr/tonescope/internal/render"
	"go.uber.org/zap/zapcore"
)

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tonescope.yaml")
	if err := os.WriteFile(path, []byte("display:\n  fps: 30\n  view: time\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := newRootCmd()
	if err := root.ParseFlags([]string{"--config", path, "--surface", "none", "--start"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	opts := &options{}
	opts.configPath, _ = root.Flags().GetString("config")
	opts.surface, _ = root.Flags().GetString("surface")
	opts.start, _ = root.Flags().GetBool("start")
	opts.fps, _ = root.Flags().GetFloat64("fps")

	cfg, err := opts.load(root.Flags().Changed)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Display.FPS != 30 {
		t.Fatalf("unset --fps must keep the file value, got %v", cfg.Display.FPS)
	}
	if cfg.Display.View != "time" {
		t.Fatalf("view=%q want time", cfg.Display.View)
	}
	if cfg.Display.Surface != config.SurfaceNone || !cfg.AutoStart {
		t.Fatalf("flags not applied: surface=%q autostart=%v", cfg.Display.Surface, cfg.AutoStart)
	}
}

func TestFlagOverrideIsValidated(t *testing.T) {
	t.Chdir(t.TempDir())
	opts := &options{surface: "hologram"}
	changed := func(name string) bool { return name == "surface" }
	if _, err := opts.load(changed); err == nil {
		t.Fatalf("expected an invalid surface to be rejected")
	}
}

func TestNewLoggerLevels(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogLevel = "warning"
	cfg.LogFile = filepath.Join(t.TempDir(), "tonescope.log")

	log, closeLog, err := newLogger(&cfg)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	if log.Core().Enabled(zapcore.InfoLevel) || !log.Core().Enabled(zapcore.WarnLevel) {
		t.Fatalf("warning level not applied")
	}
	closeLog()

	cfg.Debug = true
	log, closeLog, err = newLogger(&cfg)
	if err != nil {
		t.Fatalf("newLogger debug: %v", err)
	}
	defer closeLog()
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug flag must force debug level")
	}
}

func TestSurfaceNamesFollowBuild(t *testing.T) {
	names := surfaceNames()
	hasSDL := false
	for _, name := range names {
		if name == config.SurfaceSDL {
			hasSDL = true
		}
	}
	if hasSDL != render.SupportsSDL() {
		t.Fatalf("surfaces=%v but SupportsSDL=%v", names, render.SupportsSDL())
	}
	if names[0] != config.SurfaceTerminal {
		t.Fatalf("terminal should be listed first, got %v", names)
	}
}
