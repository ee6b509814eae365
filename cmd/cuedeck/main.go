package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/satindergrewal/cuedeck/internal/audio"
	"github.com/satindergrewal/cuedeck/internal/config"
	"github.com/satindergrewal/cuedeck/internal/control"
	"github.com/satindergrewal/cuedeck/internal/cue"
	"github.com/satindergrewal/cuedeck/internal/mixer"
	"github.com/satindergrewal/cuedeck/internal/monitor"
	"github.com/satindergrewal/cuedeck/internal/show"
	"github.com/satindergrewal/cuedeck/internal/stream"
)

var flags struct {
	config  string
	device  string
	monitor bool
	logFile string
}

var rootCmd = &cobra.Command{
	Use:   "cuedeck",
	Short: "Theatrical sound-cue playback engine",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load a show and run the engine",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

var probeCmd = &cobra.Command{
	Use:   "probe <file>...",
	Short: "Print the format of audio files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  probe,
}

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the cue kinds a show can use",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, k := range cue.Builtins(audio.OpenFile).Kinds() {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
	},
}

func init() {
	runCmd.Flags().StringVarP(&flags.config, "config", "c", "",
		"show file (YAML); without it only CUEDECK_* environment variables apply")
	runCmd.Flags().StringVarP(&flags.device, "device", "d", "",
		"output device: null, oto or stream (overrides the config)")
	runCmd.Flags().BoolVarP(&flags.monitor, "monitor", "m", false,
		"show the terminal monitor")
	runCmd.Flags().StringVar(&flags.logFile, "log-file", "",
		"write logs to this file instead of stderr")

	rootCmd.AddCommand(runCmd, probeCmd, kindsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	if flags.config == "" {
		cfg := config.Load()
		return cfg, cfg.Validate()
	}
	return config.LoadFile(flags.config)
}

func setupLogging(cfg config.Config) (io.Closer, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	log.SetReportTimestamp(true)

	switch {
	case flags.logFile != "":
		f, err := os.OpenFile(flags.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		log.SetOutput(f)
		return f, nil
	case flags.monitor:
		// The monitor owns the terminal.
		log.SetOutput(io.Discard)
	}
	return nil, nil
}

// openDevice returns the output device and a func that releases it once the
// engine has stopped.
func openDevice(ctx context.Context, cfg config.Config, b *stream.Broadcaster) (audio.Device, func(), error) {
	switch cfg.Device {
	case "null":
		return audio.NewNullDevice(cfg.SampleRate, cfg.Channels), func() {}, nil
	case "oto":
		d, err := audio.NewOtoDevice(cfg.SampleRate, cfg.Channels, cfg.DeviceBufferFrames)
		if err != nil {
			return nil, nil, err
		}
		return d, func() {
			if n := d.Starved(); n > 0 {
				log.Warn("device starved", "reads", n)
			}
			d.Close()
		}, nil
	case "stream":
		if cfg.SampleRate != audio.SampleRate {
			return nil, nil, fmt.Errorf("stream device needs sample_rate %d, got %d", audio.SampleRate, cfg.SampleRate)
		}
		d := stream.NewDevice(cfg.Channels)
		go b.Run(ctx, d.Frames())
		return d, func() {
			if n := d.Dropped(); n > 0 {
				log.Warn("stream frames dropped", "frames", n)
			}
			d.Close()
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown device %q", cfg.Device)
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flags.device != "" {
		cfg.Device = flags.device
	}
	logFile, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("cuedeck starting up", "rate", cfg.SampleRate, "channels", cfg.Channels, "device", cfg.Device)

	list := mixer.NewCueList(mixer.Options{
		SampleRate:   cfg.SampleRate,
		Channels:     cfg.Channels,
		BlockFrames:  cfg.BlockFrames,
		BufferFrames: cfg.BufferFrames(),
		LeadBlocks:   cfg.LeadBlocks,
	})
	go logEvents(ctx, list.Events())

	if _, err := show.Load(list, cue.Builtins(audio.OpenFile), cfg.Cues); err != nil {
		return fmt.Errorf("load show: %w", err)
	}

	broadcaster := stream.NewBroadcaster()
	dev, release, err := openDevice(ctx, cfg, broadcaster)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	if err := list.AttachDevice(dev); err != nil {
		release()
		return err
	}

	engine := mixer.NewEngine(list, cfg.TickInterval)
	if err := engine.Start(ctx); err != nil {
		release()
		return err
	}
	defer func() {
		engine.Stop()
		release()
		st := engine.Stats()
		log.Info("mix stats", "blocks", st.Blocks, "underflows", st.Underflows, "max_tick", st.MaxTick)
	}()

	if cfg.OSCAddr != "" {
		osc := control.NewOSCServer(cfg.OSCAddr, engine)
		go func() {
			if err := osc.Run(ctx); err != nil {
				log.Error("osc server", "err", err)
			}
		}()
	}

	mux := http.NewServeMux()
	control.NewAPI(engine).Register(mux)
	mux.Handle("/stream", stream.NewHTTPHandler(broadcaster, cfg.StreamName))
	mux.Handle("/offer", stream.NewWebRTCHandler(broadcaster, "cuedeck"))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}
	go func() {
		log.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "err", err)
			cancel()
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	if flags.monitor {
		err := monitor.Run(ctx, engine, cfg.RefreshInterval)
		cancel()
		return err
	}

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func logEvents(ctx context.Context, events <-chan mixer.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ev.Kind == mixer.EventState {
				log.Debug("cue state", "cue", ev.ID, "from", ev.From, "to", ev.To)
			}
		}
	}
}

func probe(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var failed error
	for _, path := range args {
		src, err := audio.OpenFile(path)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed = err
			continue
		}
		fmt.Fprintf(out, "%s: %d ch, %d Hz, %s\n", path, src.Channels(), src.SampleRate(), src.Length().Round(time.Millisecond))
		src.Close()
	}
	return failed
}
