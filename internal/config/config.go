// Package config loads the depthlens TOML configuration.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/ayusman/depthlens/internal/detector"
	"github.com/ayusman/depthlens/internal/frame"
	"github.com/ayusman/depthlens/internal/logging"
	"github.com/ayusman/depthlens/internal/spatial"
)

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

type Config struct {
	Detector DetectorConfig     `toml:"detector"`
	Camera   spatial.Intrinsics `toml:"camera"`
	Mapping  MappingConfig      `toml:"mapping"`
	Depth    DepthConfig        `toml:"depth"`
	Source   SourceConfig       `toml:"source"`
	Server   ServerConfig       `toml:"server"`
	Store    StoreConfig        `toml:"store"`
	Hooks    HooksConfig        `toml:"hooks"`
	Log      LogConfig          `toml:"log"`
}

type DetectorConfig struct {
	Endpoint      string   `toml:"endpoint"`
	Timeout       Duration `toml:"timeout"`
	DialTimeout   Duration `toml:"dial_timeout"`
	MinConfidence float64  `toml:"min_confidence"`
	Labels        []string `toml:"labels"`
	JPEGQuality   int      `toml:"jpeg_quality"`
	Launch        []string `toml:"launch"`
}

type MappingConfig struct {
	Strategy string `toml:"strategy"`
	OffsetX  int    `toml:"offset_x"`
	OffsetY  int    `toml:"offset_y"`
	Profile  string `toml:"profile"`
}

type DepthConfig struct {
	ShiftBits  uint   `toml:"shift_bits"`
	MaxDepthMm uint16 `toml:"max_depth_mm"`
	NearBright bool   `toml:"near_bright"`
	Colorize   bool   `toml:"colorize"`
}

type SourceConfig struct {
	Kind        string `toml:"kind"`
	Dir         string `toml:"dir"`
	FPS         int    `toml:"fps"`
	Loop        bool   `toml:"loop"`
	ColorWidth  int    `toml:"color_width"`
	ColorHeight int    `toml:"color_height"`
	DepthWidth  int    `toml:"depth_width"`
	DepthHeight int    `toml:"depth_height"`
}

type ServerConfig struct {
	Enabled   bool   `toml:"enabled"`
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

// HooksConfig enables external hooks when Dir is set.
type HooksConfig struct {
	Dir      string   `toml:"dir"`
	Timeout  Duration `toml:"timeout"`
	Cooldown Duration `toml:"cooldown"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Detector: DetectorConfig{
			Endpoint:      detector.DefaultEndpoint,
			Timeout:       Duration(detector.DefaultTimeout),
			DialTimeout:   Duration(detector.DefaultDialTimeout),
			MinConfidence: 0.5,
			JPEGQuality:   frame.DefaultJPEGQuality,
		},
		Camera: spatial.Intrinsics{Fx: 594.21, Fy: 591.04, Cx: 339.5, Cy: 242.7},
		Mapping: MappingConfig{
			Strategy: string(spatial.StrategyAuto),
			OffsetX:  -13,
			OffsetY:  -10,
		},
		Depth: DepthConfig{
			ShiftBits:  spatial.DefaultShiftBits,
			MaxDepthMm: 4000,
			NearBright: true,
		},
		Source: SourceConfig{
			Kind:        "replay",
			FPS:         30,
			ColorWidth:  640,
			ColorHeight: 480,
			DepthWidth:  320,
			DepthHeight: 240,
		},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
		Store:  StoreConfig{Path: "depthlens.db"},
		Hooks: HooksConfig{
			Timeout:  Duration(5 * time.Second),
			Cooldown: Duration(2 * time.Second),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadToml(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "config load failed (%s)", path)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "config parse failed (%s)", path)
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Detector.Endpoint) == "" {
		return errors.New("detector endpoint is required")
	}
	if c.Detector.Timeout <= 0 {
		return errors.New("detector timeout must be positive")
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return errors.Errorf("detector min_confidence %v outside [0,1]", c.Detector.MinConfidence)
	}
	if c.Detector.JPEGQuality < 1 || c.Detector.JPEGQuality > 100 {
		return errors.Errorf("detector jpeg_quality %d outside [1,100]", c.Detector.JPEGQuality)
	}
	if err := c.Camera.Validate(); err != nil {
		return errors.Wrap(err, "camera")
	}
	if _, err := spatial.ParseStrategy(c.Mapping.Strategy); err != nil {
		return errors.Wrap(err, "mapping")
	}
	if c.Depth.ShiftBits > 15 {
		return errors.Errorf("depth shift_bits %d too large", c.Depth.ShiftBits)
	}
	if c.Depth.MaxDepthMm == 0 {
		return errors.New("depth max_depth_mm must be positive")
	}
	if c.Source.Kind != "replay" {
		return errors.Errorf("unknown source kind %q", c.Source.Kind)
	}
	if c.Source.FPS <= 0 {
		return errors.New("source fps must be positive")
	}
	if err := c.Geometry().Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	// The intrinsics describe the color stream, so the principal point must fall inside it.
	if c.Camera.Cx >= float64(c.Source.ColorWidth) || c.Camera.Cy >= float64(c.Source.ColorHeight) {
		return errors.Errorf("camera principal point (%v, %v) outside the %dx%d color frame",
			c.Camera.Cx, c.Camera.Cy, c.Source.ColorWidth, c.Source.ColorHeight)
	}
	if c.Server.Enabled && strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server addr is required when enabled")
	}
	if c.Hooks.Dir != "" && c.Hooks.Timeout <= 0 {
		return errors.New("hooks timeout must be positive")
	}
	if c.Hooks.Cooldown < 0 {
		return errors.New("hooks cooldown must not be negative")
	}
	if _, _, ok := logging.ParseLevel(c.Log.Level); !ok && c.Log.Level != "" {
		return errors.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// Geometry is the stream geometry described by the source section.
func (c Config) Geometry() frame.Geometry {
	return frame.Geometry{
		ColorWidth:  c.Source.ColorWidth,
		ColorHeight: c.Source.ColorHeight,
		DepthWidth:  c.Source.DepthWidth,
		DepthHeight: c.Source.DepthHeight,
	}
}

// ClientConfig is the detection client configuration.
func (c Config) ClientConfig() detector.ClientConfig {
	return detector.ClientConfig{
		Endpoint:    c.Detector.Endpoint,
		Timeout:     time.Duration(c.Detector.Timeout),
		DialTimeout: time.Duration(c.Detector.DialTimeout),
	}
}

// Postprocessor chains the configured detection filters.
func (c Config) Postprocessor() detector.Postprocessor {
	return detector.Chain(
		detector.NewConfidenceFilter(c.Detector.MinConfidence),
		detector.NewLabelFilter(c.Detector.Labels),
	)
}
