// Package config loads the settings of the otw tools: a YAML file, then
// .env files, then environment variables, each overriding the one before.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/netsync"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/persist"
)

// Config is the complete tool configuration.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Engine   netsync.Config `yaml:"engine"`
	Server   ServerConfig   `yaml:"server"`
	Library  LibraryConfig  `yaml:"library"`
	Storage  StorageConfig  `yaml:"storage"`
}

// ServerConfig configures the websocket bridge.
type ServerConfig struct {
	Addr    string   `yaml:"addr"`
	FrameMS int      `yaml:"frame_ms"` // continuous-mode tick period
	Origins []string `yaml:"origins,omitempty"`
}

// LibraryConfig says where KiCad symbol libraries live.
type LibraryConfig struct {
	Dir        string   `yaml:"dir"`
	Categories []string `yaml:"categories,omitempty"` // empty means the stock allow-list
	AllLibs    bool     `yaml:"all_libs"`
	Scale      float64  `yaml:"scale"` // canvas pixels per millimetre
	CacheSize  int      `yaml:"cache_size"`
}

// StorageConfig says where sessions are saved.
type StorageConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"` // json or msgpack
}

// Default returns a Config with defaults suitable for local use.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Engine:   netsync.DefaultConfig(),
		Server: ServerConfig{
			Addr:    ":8090",
			FrameMS: 16,
		},
		Library: LibraryConfig{
			Dir:       "/usr/share/kicad/symbols",
			Scale:     10,
			CacheSize: 256,
		},
		Storage: StorageConfig{
			Dir:    "sessions",
			Format: "json",
		},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	if p := os.Getenv("OTW_CONFIG"); p != "" {
		return p, nil
	}
	var dir string
	if appData := os.Getenv("APPDATA"); appData != "" {
		dir = filepath.Join(appData, "OpenTraceWire")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config", "opentracewire")
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads path (the default location when empty), then the given .env
// files (".env" when none), then the environment. A missing config file
// is not an error.
func Load(path string, dotenv ...string) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, fmt.Errorf("failed to locate config: %w", err)
		}
		path = p
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	_ = godotenv.Load(dotenv...)
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("OTW_ADDR")); v != "" {
		c.Server.Addr = v
	} else if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if strings.HasPrefix(port, ":") {
			c.Server.Addr = port
		} else {
			c.Server.Addr = ":" + port
		}
	}
	if v := strings.TrimSpace(os.Getenv("OTW_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("OTW_LIBRARY_DIR")); v != "" {
		c.Library.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("OTW_STORAGE_DIR")); v != "" {
		c.Storage.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("OTW_FORMAT")); v != "" {
		c.Storage.Format = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"OTW_FRAME_MS", &c.Server.FrameMS},
		{"OTW_OFFSET_SLOTS", &c.Engine.OffsetSlots},
	}
	for _, e := range ints {
		if v := strings.TrimSpace(os.Getenv(e.key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = n
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"OTW_OFFSET_RADIUS", &c.Engine.OffsetRadius},
		{"OTW_ROUTE_THRESHOLD", &c.Engine.RouteThreshold},
		{"OTW_DOT_RADIUS", &c.Engine.DotRadius},
		{"OTW_SCALE", &c.Library.Scale},
	}
	for _, e := range floats {
		if v := strings.TrimSpace(os.Getenv(e.key)); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = f
		}
	}
	return nil
}

// Validate checks the configuration and fills in unset values.
func (c *Config) Validate() error {
	if c.Server.FrameMS < 1 {
		c.Server.FrameMS = 16
	}
	if c.Library.Scale <= 0 {
		c.Library.Scale = 10
	}
	if c.Library.CacheSize < 1 {
		c.Library.CacheSize = 256
	}
	if c.Engine.OffsetSlots < 0 {
		return fmt.Errorf("engine.offset_slots must not be negative")
	}
	if _, err := persist.CodecFor(c.Storage.Format); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// FrameInterval is the continuous-mode tick period.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Server.FrameMS) * time.Millisecond
}

// Categories returns the library allow-list; nil means no filtering.
func (c *Config) Categories() map[string]bool {
	if c.Library.AllLibs {
		return nil
	}
	if len(c.Library.Categories) == 0 {
		return symlibDefaults()
	}
	out := make(map[string]bool, len(c.Library.Categories))
	for _, name := range c.Library.Categories {
		out[name] = true
	}
	return out
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
