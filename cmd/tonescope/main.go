package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/guidoenr/tonescope/internal/app"
	"github.com/guidoenr/tonescope/internal/audio"
	"github.com/guidoenr/tonescope/internal/capture"
	"github.com/guidoenr/tonescope/internal/config"
	"github.com/guidoenr/tonescope/internal/render"
	"github.com/guidoenr/tonescope/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type options struct {
	configPath string
	device     string
	fps        float64
	view       string
	surface    string
	web        bool
	webAddr    string
	synthetic  bool
	profile    string
	debug      bool
	noColor    bool
	start      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tonescope: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "tonescope",
		Short:         "Live audio spectrum analyzer and oscilloscope",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd.Flags().Changed)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file (default ./"+config.DefaultFile+" when present)")
	flags.StringVarP(&opts.device, "device", "d", "", "Input device name (substring match); empty auto-detects")
	flags.Float64Var(&opts.fps, "fps", 60, "Frame refresh rate")
	flags.StringVar(&opts.view, "view", "frequency", "Initial view ("+strings.Join(render.ViewModeNames(), "|")+")")
	flags.StringVar(&opts.surface, "surface", config.SurfaceTerminal, "Drawing surface ("+strings.Join(surfaceNames(), "|")+")")
	flags.BoolVar(&opts.web, "web", false, "Serve the HTTP/websocket API")
	flags.StringVar(&opts.webAddr, "web-addr", ":8080", "Listen address for the web API")
	flags.BoolVar(&opts.synthetic, "synthetic", false, "Use a synthetic input instead of a microphone")
	flags.StringVar(&opts.profile, "profile", "", "Append per-frame timings as CSV to this file")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable ANSI colour output")
	flags.BoolVar(&opts.start, "start", false, "Start capturing at launch")

	root.AddCommand(newDevicesCmd())
	return root
}

// surfaceNames lists the surfaces this binary can open.
func surfaceNames() []string {
	if render.SupportsSDL() {
		return []string{config.SurfaceTerminal, config.SurfaceSDL, config.SurfaceNone}
	}
	return []string{config.SurfaceTerminal, config.SurfaceNone}
}

// load reads the config file and environment, then applies the flags the
// user actually set.
func (o *options) load(changed func(name string) bool) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	if changed("device") {
		cfg.Audio.Device = o.device
	}
	if changed("fps") {
		cfg.Display.FPS = o.fps
	}
	if changed("view") {
		cfg.Display.View = o.view
	}
	if changed("surface") {
		cfg.Display.Surface = o.surface
	}
	if changed("web") {
		cfg.Web.Enabled = o.web
	}
	if changed("web-addr") {
		cfg.Web.Addr = o.webAddr
	}
	if changed("synthetic") {
		cfg.Synthetic = o.synthetic
	}
	if changed("profile") {
		cfg.Profile.Path = o.profile
	}
	if changed("debug") {
		cfg.Debug = o.debug
	}
	if changed("no-color") {
		cfg.Display.Color = !o.noColor
	}
	if changed("start") {
		cfg.AutoStart = o.start
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			devices, err := audio.ListDevices()
			if err != nil {
				return fmt.Errorf("list devices: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n=== Audio Input Devices ===\n\n")
			for _, dev := range devices {
				fmt.Fprintf(out, "- %s\n", dev)
			}
			if dev, err := audio.AutoDetectDevice(); err == nil && dev != nil {
				fmt.Fprintf(out, "\nAuto-detected input: %s (%.0f Hz, %d channels)\n", dev.Name, dev.DefaultSampleRate, dev.MaxInputChannels)
			}
			return nil
		},
	}
}

func run(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	view, err := render.ParseViewMode(cfg.Display.View)
	if err != nil {
		return err
	}

	var ctrl *app.Controller
	dispatch := func(cmd app.Command) bool {
		if ctrl == nil {
			return false
		}
		return ctrl.Dispatch(cmd)
	}

	surface, sink, closeSurface, err := openSurface(cfg, dispatch, log)
	if err != nil {
		return err
	}
	defer closeSurface()

	var publishers app.Publishers
	if sink != nil {
		publishers = append(publishers, app.NewStatusLine(sink, cfg.Audio.Device))
	}
	var srv *web.Server
	if cfg.Web.Enabled {
		srv = web.NewServer(web.DispatchFunc(dispatch), web.Config{
			Addr:            cfg.Web.Addr,
			PublishInterval: cfg.Web.PublishInterval,
			Log:             log.Named("web"),
		})
		publishers = append(publishers, srv)
	}

	defer audio.Terminate()
	session := capture.New(capture.Config{
		Open: deviceOpener(cfg, log),
		Log:  log.Named("capture"),
	})

	ctrl, err = app.New(app.Config{
		Session:       session,
		Painter:       render.NewRenderer(surface),
		Publisher:     publishers,
		View:          view,
		AutoStart:     cfg.AutoStart,
		FrameInterval: cfg.FrameInterval(),
		ProfilePath:   cfg.Profile.Path,
		Log:           log.Named("app"),
	})
	if err != nil {
		return err
	}

	if cfg.Display.Surface != config.SurfaceSDL && term.IsTerminal(int(os.Stdin.Fd())) {
		if err := app.ListenKeyboard(ctx, ctrl, log); err != nil {
			log.Warn("keyboard input disabled", zap.Error(err))
		}
	}

	if srv != nil {
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error("web server failed", zap.Error(err))
			}
		}()
	}

	err = ctrl.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// deviceOpener returns the capture opener for the configured source.
func deviceOpener(cfg *config.Config, log *zap.Logger) capture.OpenFunc {
	if cfg.Synthetic {
		return func() (capture.Device, error) {
			log.Info("using synthetic input")
			return audio.OpenSynth(audio.SynthConfig{}), nil
		}
	}
	return func() (capture.Device, error) {
		if err := audio.Initialize(); err != nil {
			return nil, err
		}
		stream, err := audio.Open(audio.Config{
			DeviceName:      cfg.Audio.Device,
			Channels:        cfg.Audio.Channels,
			FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		})
		if err != nil {
			return nil, err
		}
		log.Info("audio input opened",
			zap.String("device", stream.Name()),
			zap.Float64("sampleRateHz", stream.SampleRate()))
		return stream, nil
	}
}

// openSurface builds the configured surface. sink is nil for surfaces
// without a status area.
func openSurface(cfg *config.Config, dispatch func(app.Command) bool, log *zap.Logger) (render.Surface, app.StatusSink, func(), error) {
	switch cfg.Display.Surface {
	case config.SurfaceSDL:
		win, err := render.NewWindow(render.WindowConfig{
			Title:  "tonescope",
			Width:  cfg.Display.Width,
			Height: cfg.Display.Height,
			OnKey: func(key rune) {
				if cmd, ok := app.KeyCommand(key); ok {
					dispatch(cmd)
				}
			},
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return win, win, func() {
			if err := win.Close(); err != nil {
				log.Warn("close window", zap.Error(err))
			}
		}, nil

	case config.SurfaceNone:
		width, height := cfg.Display.Width, cfg.Display.Height
		if width <= 0 || height <= 0 {
			width, height = 800, 600
		}
		ratio := cfg.Display.PixelRatio
		if ratio <= 0 {
			ratio = 1
		}
		return render.NewRecorder(float64(width), float64(height), ratio), nil, func() {}, nil

	default:
		t := render.NewTerminal(render.TerminalConfig{
			Out:        os.Stdout,
			Width:      cfg.Display.Width,
			Height:     cfg.Display.Height,
			PixelRatio: cfg.Display.PixelRatio,
			Palette:    cfg.Display.Palette,
			UseANSI:    cfg.Display.Color,
			ShowStatus: cfg.Display.Status,
		})
		if err := t.Open(); err != nil {
			return nil, nil, nil, fmt.Errorf("open terminal: %w", err)
		}
		return t, t, func() {
			if err := t.Close(); err != nil {
				log.Warn("restore terminal", zap.Error(err))
			}
		}, nil
	}
}
