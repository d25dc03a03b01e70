// Package config loads dicomctl settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jpfielding/dicomview.go/pkg/logging"
	"github.com/jpfielding/dicomview.go/pkg/palette"
	"github.com/jpfielding/dicomview.go/pkg/realtime"
	"github.com/jpfielding/dicomview.go/pkg/source"
	"github.com/jpfielding/dicomview.go/pkg/wl"
	"gopkg.in/yaml.v3"
)

// Config is the full settings file
type Config struct {
	Viewer Viewer               `yaml:"viewer"`
	Window source.WindowOptions `yaml:"window"`
	Log    Log                  `yaml:"log"`
}

// Viewer holds the rendering defaults
type Viewer struct {
	// Palette applied to windowed monochrome images
	Palette palette.Kind `yaml:"palette"`
	// Sensitivity scales pointer drags into window changes
	Sensitivity wl.Sensitivity `yaml:"sensitivity"`
	// View bounds keyboard and wheel zoom
	View realtime.ViewLimits `yaml:"view"`
	// Accelerated enables the shader backend; false renders with the CPU converter only
	Accelerated bool `yaml:"accelerated"`
	// MaxTextureSize is the largest texture edge the backend accepts
	MaxTextureSize int `yaml:"max_texture_size"`
}

// Log controls where and how much dicomctl logs
type Log struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Viewer: Viewer{
			Palette:        palette.Grayscale,
			Sensitivity:    wl.DefaultSensitivity,
			View:           realtime.DefaultViewLimits,
			Accelerated:    true,
			MaxTextureSize: realtime.DefaultMaxTextureSize,
		},
		Window: source.DefaultWindowOptions,
		Log: Log{
			Level:      "INFO",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from a YAML file over the defaults.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, creating its directory
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Validate rejects values the viewer cannot run with
func (c *Config) Validate() error {
	v := c.Viewer
	if !v.Palette.Valid() {
		return fmt.Errorf("unknown palette %d", int(v.Palette))
	}
	if v.Sensitivity.Width <= 0 || v.Sensitivity.Center <= 0 {
		return fmt.Errorf("sensitivity must be positive: %+v", v.Sensitivity)
	}
	l := v.View
	if l.MinZoom <= 0 || l.MaxZoom < l.MinZoom || l.ZoomStep <= 1 {
		return fmt.Errorf("invalid zoom limits: %+v", l)
	}
	if l.WheelMinZoom <= 0 || l.WheelMaxZoom < l.WheelMinZoom || l.WheelFactor <= 1 {
		return fmt.Errorf("invalid wheel limits: %+v", l)
	}
	if v.MaxTextureSize <= 0 {
		return fmt.Errorf("max texture size must be positive: %d", v.MaxTextureSize)
	}
	if err := c.Window.Validate(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level %q: %w", c.Log.Level, err)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("log rotation values must not be negative")
	}
	return nil
}

// RendererOptions turns the viewer section into realtime.Renderer options
func (c *Config) RendererOptions(log *slog.Logger) []realtime.Option {
	opts := []realtime.Option{
		realtime.WithSensitivity(c.Viewer.Sensitivity),
		realtime.WithViewLimits(c.Viewer.View),
		realtime.WithMaxTextureSize(c.Viewer.MaxTextureSize),
	}
	if log != nil {
		opts = append(opts, realtime.WithLogger(log))
	}
	if !c.Viewer.Accelerated {
		opts = append(opts, realtime.WithBackend(nil))
	}
	return opts
}

// Loader returns a source loader using the window section
func (c *Config) Loader() source.Loader {
	return source.Loader{Window: c.Window}
}
