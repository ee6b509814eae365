package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration. Environment variables provide the
// defaults; a YAML file can override them and carries the show.
type Config struct {
	// Mix engine
	SampleRate   int           `yaml:"sample_rate"`
	Channels     int           `yaml:"channels"`
	BlockFrames  int           `yaml:"block_frames"`  // frames per device write
	BufferBlocks int           `yaml:"buffer_blocks"` // mix ring length in blocks
	LeadBlocks   int           `yaml:"lead_blocks"`   // blocks queued ahead of the clock
	TickInterval time.Duration `yaml:"tick_interval"`

	// Output
	Device             string `yaml:"device"` // null, oto or stream
	DeviceBufferFrames int    `yaml:"device_buffer_frames"`

	// Control and monitoring
	Port            int           `yaml:"port"`
	OSCAddr         string        `yaml:"osc_addr"`
	StreamName      string        `yaml:"stream_name"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	LogLevel        string        `yaml:"log_level"`

	// Show
	Cues []CueConfig `yaml:"cues"`
}

// CueConfig describes one cue of the show. Which fields matter depends on
// Kind.
type CueConfig struct {
	Kind    string        `yaml:"kind"`
	ID      string        `yaml:"id"`
	Name    string        `yaml:"name"`
	Target  string        `yaml:"target"`
	Pre     time.Duration `yaml:"pre"`
	Action  time.Duration `yaml:"action"`
	Post    time.Duration `yaml:"post"`
	Trigger string        `yaml:"trigger"` // none, immediate, after-pre, after-action
	Output  int           `yaml:"output"`

	Start time.Duration `yaml:"start"`
	Gain  *float64      `yaml:"gain"`

	Level      float64 `yaml:"level"`
	Curve      string  `yaml:"curve"`
	StopTarget bool    `yaml:"stop_target"`

	Op string `yaml:"op"`
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		SampleRate:   envInt("CUEDECK_SAMPLE_RATE", 48000),
		Channels:     envInt("CUEDECK_CHANNELS", 2),
		BlockFrames:  envInt("CUEDECK_BLOCK_FRAMES", 1024),
		BufferBlocks: envInt("CUEDECK_BUFFER_BLOCKS", 8),
		LeadBlocks:   envInt("CUEDECK_LEAD_BLOCKS", 3),
		TickInterval: envDuration("CUEDECK_TICK_INTERVAL", time.Millisecond),

		Device:             envStr("CUEDECK_DEVICE", "null"),
		DeviceBufferFrames: envInt("CUEDECK_DEVICE_BUFFER_FRAMES", 8192),

		Port:            envInt("CUEDECK_PORT", 8080),
		OSCAddr:         envStr("CUEDECK_OSC_ADDR", "127.0.0.1:53000"),
		StreamName:      envStr("CUEDECK_STREAM_NAME", "cuedeck monitor"),
		RefreshInterval: envDuration("CUEDECK_REFRESH_INTERVAL", 40*time.Millisecond),
		LogLevel:        envStr("CUEDECK_LOG_LEVEL", "info"),
	}
}

// LoadFile reads path as YAML over the environment defaults. Keys missing
// from the file keep their defaults.
func LoadFile(path string) (Config, error) {
	cfg := Load()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the engine settings. Cue definitions are checked when the
// show is built.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	case c.Channels < 1 || c.Channels > 64:
		return fmt.Errorf("channels must be 1-64, got %d", c.Channels)
	case c.BlockFrames <= 0:
		return fmt.Errorf("block_frames must be positive, got %d", c.BlockFrames)
	case c.LeadBlocks <= 0:
		return fmt.Errorf("lead_blocks must be positive, got %d", c.LeadBlocks)
	case c.BufferBlocks <= c.LeadBlocks:
		return fmt.Errorf("buffer_blocks (%d) must exceed lead_blocks (%d)", c.BufferBlocks, c.LeadBlocks)
	case c.TickInterval <= 0:
		return fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval)
	}
	switch c.Device {
	case "null", "oto", "stream":
	default:
		return fmt.Errorf("device must be null, oto or stream, got %q", c.Device)
	}
	return nil
}

// BufferFrames is the mix ring length in frames.
func (c Config) BufferFrames() int {
	return c.BufferBlocks * c.BlockFrames
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
