package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/rneureuther1/motion/cmd"
	"github.com/rneureuther1/motion/internal/capture"
	"github.com/rneureuther1/motion/internal/config"
	"github.com/rneureuther1/motion/internal/events"
	"github.com/rneureuther1/motion/internal/logging"
	"github.com/rneureuther1/motion/internal/metrics"
	"github.com/rneureuther1/motion/pkg/linuxav/hotplug"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	MetricsPort string `help:"Metrics endpoint listen address" default:":9099" toml:"server.metrics_port" env:"SERVER_METRICS_PORT"`

	// Capture settings
	CaptureDevice       string   `help:"Video device node" short:"d" default:"/dev/video0" toml:"capture.device" env:"CAPTURE_DEVICE"`
	CaptureWidth        int      `help:"Requested frame width" default:"640" toml:"capture.width" env:"CAPTURE_WIDTH"`
	CaptureHeight       int      `help:"Requested frame height" default:"480" toml:"capture.height" env:"CAPTURE_HEIGHT"`
	CaptureFps          int      `help:"Requested frame rate" default:"15" toml:"capture.fps" env:"CAPTURE_FPS"`
	CapturePalette      int      `help:"Preferred palette id" default:"17" toml:"capture.palette" env:"CAPTURE_PALETTE"`
	CaptureInput        int      `help:"Video input index, -1 keeps the current one" default:"-1" toml:"capture.input" env:"CAPTURE_INPUT"`
	CaptureNorm         string   `help:"Analog video norm (pal, ntsc, secam)" default:"pal" toml:"capture.norm" env:"CAPTURE_NORM"`
	CaptureFrequencyKhz int      `help:"Tuner frequency in kHz, 0 disables tuning" default:"0" toml:"capture.frequency_khz" env:"CAPTURE_FREQUENCY_KHZ"`
	CaptureControls     string   `help:"Comma-separated control overrides, name=value pairs" toml:"capture.controls" env:"CAPTURE_CONTROLS"`

	// Autobrightness settings
	AutobrightMethod int `help:"Brightness feedback method (0 off, 1 brightness, 2 exposure, 3 absolute exposure)" default:"0" toml:"autobright.method" env:"AUTOBRIGHT_METHOD"`
	AutobrightTarget int `help:"Target average luminance, -1 for the control midpoint" default:"-1" toml:"autobright.target" env:"AUTOBRIGHT_TARGET"`

	// Round-robin settings for shared devices
	RoundrobinFrames int `help:"Frames captured per ownership turn" default:"1" toml:"roundrobin.frames" env:"ROUNDROBIN_FRAMES"`
	RoundrobinSkip   int `help:"Frames discarded after an input switch" default:"1" toml:"roundrobin.skip" env:"ROUNDROBIN_SKIP"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCapture  string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingRegistry string `help:"Registry logging level" default:"info" toml:"logging.registry" env:"LOGGING_REGISTRY"`
	LoggingHotplug  string `help:"Hotplug logging level" default:"info" toml:"logging.hotplug" env:"LOGGING_HOTPLUG"`
	LoggingV4L2     string `help:"Device layer logging level" default:"info" toml:"logging.v4l2" env:"LOGGING_V4L2"`
}

func loggingConfig(opts *Options) logging.Config {
	return logging.Config{
		Level:  opts.LoggingLevel,
		Format: opts.LoggingFormat,
		Modules: map[string]string{
			"capture":  opts.LoggingCapture,
			"registry": opts.LoggingRegistry,
			"hotplug":  opts.LoggingHotplug,
			"v4l2":     opts.LoggingV4L2,
		},
	}
}

// captureConfig builds the consumer configuration from the CLI options.
func captureConfig(opts *Options) capture.Config {
	cfg := capture.DefaultConfig(opts.CaptureDevice)
	cfg.Width = opts.CaptureWidth
	cfg.Height = opts.CaptureHeight
	cfg.FrameRate = opts.CaptureFps
	cfg.Palette = opts.CapturePalette
	cfg.Input = opts.CaptureInput
	cfg.FrequencyKHz = opts.CaptureFrequencyKhz
	cfg.AutoBrightness = opts.AutobrightMethod
	cfg.BrightnessTarget = opts.AutobrightTarget
	cfg.RoundRobinFrames = opts.RoundrobinFrames
	cfg.RoundRobinSkip = opts.RoundrobinSkip

	switch strings.ToLower(opts.CaptureNorm) {
	case "ntsc":
		cfg.Norm = capture.NormNTSC
	case "secam":
		cfg.Norm = capture.NormSECAM
	default:
		cfg.Norm = capture.NormPAL
	}

	if opts.CaptureControls != "" {
		pairs := strings.Split(opts.CaptureControls, ",")
		cfg.Controls = make(map[string]string, len(pairs))
		for _, pair := range pairs {
			name, value, ok := strings.Cut(pair, "=")
			if ok {
				cfg.Controls[strings.TrimSpace(name)] = strings.TrimSpace(value)
			}
		}
	}
	return cfg
}

// watchHotplug forwards video device removal events from the kernel to the
// registry so captures on unplugged devices fail fast instead of blocking.
func watchHotplug(ctx context.Context, registry *capture.Registry, bus *events.Bus) {
	logger := logging.GetLogger("hotplug")

	monitor, err := hotplug.NewMonitor()
	if err != nil {
		logger.Warn("Hotplug monitoring unavailable", "error", err)
		return
	}
	defer monitor.Close()
	monitor.AddSubsystemFilter(hotplug.SubsystemVideo4Linux)

	eventCh := make(chan hotplug.Event, 16)
	go func() {
		if runErr := monitor.Run(ctx, eventCh); runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.Warn("Hotplug monitor stopped", "error", runErr)
		}
	}()

	for ev := range eventCh {
		node := ev.DeviceNode()
		if node == "" {
			continue
		}
		switch ev.Action {
		case hotplug.ActionAdd:
			logger.Info("Video device appeared", "device", node)
		case hotplug.ActionRemove:
			logger.Warn("Video device removed", "device", node)
			registry.CloseDevice(node)
			bus.Publish(events.DeviceRemovedEvent{
				DevicePath: node,
				Timestamp:  time.Now().Format(time.RFC3339),
			})
		}
	}
}

// captureLoop keeps a handle open on the configured device and pulls frames
// until the context is cancelled, reopening with backoff after failures.
// A value on updates replaces the configuration and reopens the device.
func captureLoop(ctx context.Context, registry *capture.Registry, cfg capture.Config, updates <-chan capture.Config) {
	logger := logging.GetLogger("capture")

	for ctx.Err() == nil {
		// Adopt the newest pending configuration before (re)opening.
		select {
		case cfg = <-updates:
		default:
		}

		handle, err := registry.Open(cfg)
		if err != nil {
			logger.Warn("Device open failed, retrying", "device", cfg.Device, "error", err)
			select {
			case <-time.After(5 * time.Second):
			case cfg = <-updates:
			case <-ctx.Done():
				return
			}
			continue
		}

		logger.Info("Capture started", "device", cfg.Device,
			"width", handle.Width(), "height", handle.Height(),
			"palette", capture.PaletteFourcc(handle.Palette()))

		frame := make([]byte, handle.FrameSize())
	stream:
		for ctx.Err() == nil {
			select {
			case cfg = <-updates:
				logger.Info("Configuration changed, reopening device")
				break stream
			default:
			}
			if err := handle.NextFrame(frame); err != nil {
				if errors.Is(err, capture.ErrCorruptFrame) {
					continue
				}
				logger.Warn("Capture stream ended", "device", cfg.Device, "error", err)
				break stream
			}
		}
		handle.Close()
	}
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			logging.GetLogger("main").Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		logging.Initialize(loggingConfig(opts))
		logger := logging.GetLogger("main")

		eventBus := events.New()
		captureMetrics := metrics.NewCapture()
		registry := capture.NewRegistry(logging.GetLogger("registry"), eventBus, captureMetrics)

		mux := http.NewServeMux()
		mux.Handle("/metrics", captureMetrics.Handler())
		server := &http.Server{Addr: opts.MetricsPort, Handler: mux}

		ctx, cancel := context.WithCancel(context.Background())
		configUpdates := make(chan capture.Config, 1)

		// Reload logging levels and capture settings when the config file
		// changes. CLI-set flags keep their precedence on reload.
		var watcher *config.Watcher[*Options]
		if _, statErr := os.Stat(opts.Config); statErr == nil {
			watcher = config.NewConfigWatcher(
				opts.Config,
				func(string) (*Options, error) {
					reloaded := *opts
					err := config.LoadConfig(&reloaded, cli.Root())
					return &reloaded, err
				},
				logger,
			)
			watcher.OnReload(func(reloaded *Options) {
				logger.Info("Reloading configuration")
				logging.Initialize(loggingConfig(reloaded))
				select {
				case <-configUpdates:
				default:
				}
				configUpdates <- captureConfig(reloaded)
			})
		}

		hooks.OnStart(func() {
			if watcher != nil {
				if startErr := watcher.Start(); startErr != nil {
					logger.Warn("Config watcher failed to start", "error", startErr)
				}
			}

			go watchHotplug(ctx, registry, eventBus)
			go captureLoop(ctx, registry, captureConfig(opts), configUpdates)

			logger.Info("Serving metrics", "addr", opts.MetricsPort)
			if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "error", serveErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			cancel()
			if watcher != nil {
				if stopErr := watcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping config watcher", "error", stopErr)
				}
			}
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if stopErr := server.Shutdown(shutdownCtx); stopErr != nil {
				logger.Error("Error stopping metrics server", "error", stopErr)
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateProbeCmd())
	cli.Root().AddCommand(cmd.CreateGrabCmd())

	cli.Run()
}
