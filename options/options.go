// Package options loads the goshadertexture configuration: embedded
// defaults overlaid with an optional YAML file and command line flags.
package options

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Backends lists the accepted values of Config.Backend.
var Backends = []string{"glfw", "egl", "soft"}

// Config holds every setting of a render run.
type Config struct {
	Surface  SurfaceConfig  `yaml:"surface"`
	Pattern  PatternConfig  `yaml:"pattern"`
	Shader   ShaderConfig   `yaml:"shader"`
	Options  map[string]any `yaml:"options"`
	Media    string         `yaml:"media"`
	Frames   int            `yaml:"frames"`
	Backend  string         `yaml:"backend"`
	Export   ExportConfig   `yaml:"export"`
	FFmpeg   string         `yaml:"ffmpeg"`
	LogLevel string         `yaml:"log_level"`
}

// SurfaceConfig is the render surface size and frame rate.
type SurfaceConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

// PatternConfig selects a built-in noise pattern.
type PatternConfig struct {
	Kind     string  `yaml:"kind"`
	Shape    string  `yaml:"shape"` // random pattern only
	Seed     float64 `yaml:"seed"`
	AAPasses int     `yaml:"aa_passes"`
}

// ShaderConfig names custom shader files. Fragments run as passes in order.
type ShaderConfig struct {
	Vertex    string   `yaml:"vertex"`
	Fragments []string `yaml:"fragments"`
}

// ExportConfig controls what is written after rendering.
type ExportConfig struct {
	NoiseScale     float64 `yaml:"noise_scale"`
	Tile           string  `yaml:"tile"`
	Thumbnail      string  `yaml:"thumbnail"`
	ThumbnailWidth int     `yaml:"thumbnail_width"`
	Video          string  `yaml:"video"`
	VideoSeconds   float64 `yaml:"video_seconds"`
	Codec          string  `yaml:"codec"`
}

// Load reads the embedded defaults, then the YAML file at path when path
// is not empty. Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if cfg.Options == nil {
		cfg.Options = map[string]any{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot produce a render.
func (c *Config) Validate() error {
	switch {
	case c.Surface.Width <= 0 || c.Surface.Height <= 0:
		return fmt.Errorf("invalid surface size %dx%d", c.Surface.Width, c.Surface.Height)
	case c.Surface.FPS <= 0:
		return fmt.Errorf("invalid fps %d", c.Surface.FPS)
	case c.Frames < 0:
		return fmt.Errorf("invalid frame count %d", c.Frames)
	case !c.Custom() && c.Pattern.Kind == "":
		return fmt.Errorf("no pattern kind or shader files configured")
	case !slices.Contains(Backends, c.Backend):
		return fmt.Errorf("unknown backend %q, want one of %s", c.Backend, strings.Join(Backends, ", "))
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Custom reports whether custom shader files replace the built-in pattern.
func (c *Config) Custom() bool {
	return len(c.Shader.Fragments) > 0
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return l, nil
}

// Marshal encodes the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}
