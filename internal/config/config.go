package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	InputDir   string `yaml:"input"`
	OutputDir  string `yaml:"output"`
	RegionSpec string `yaml:"region"`      // "x,y,w,h" in source pixels
	RegionFile string `yaml:"region_file"` // Persisted localization result
	Preview    bool   `yaml:"preview"`

	// Watermark localization
	NumSamples   int `yaml:"num_samples"`
	MinVotes     int `yaml:"min_votes"`
	DilationSize int `yaml:"dilation_size"`
	Margin       int `yaml:"margin"`

	// Frame cache
	CacheSize           int `yaml:"cache_size"`
	SimilarityThreshold int `yaml:"similarity_threshold"`

	// Temporal skip detection
	KeyframeInterval     int     `yaml:"keyframe_interval"`
	SceneChangeThreshold float64 `yaml:"scene_change_threshold"`

	// Regeneration service
	InpaintURL         string `yaml:"inpaint_url"`
	InpaintSteps       int    `yaml:"inpaint_steps"`
	InpaintStrategy    string `yaml:"inpaint_strategy"` // as-is, resize, crop
	InpaintCropMargin  int    `yaml:"inpaint_crop_margin"`
	InpaintResizeLimit int    `yaml:"inpaint_resize_limit"`

	// Encoding
	VideoEncoder string `yaml:"video_encoder"`
	Quality      int    `yaml:"quality"`

	// Logging
	Debug bool `yaml:"debug"`
	Info  bool `yaml:"info"`
	Human bool `yaml:"human"`
}

// Default returns the tunables the pipeline is normally run with.
func Default() Config {
	return Config{
		InputDir:  ".",
		OutputDir: "output",

		NumSamples:   10,
		MinVotes:     7,
		DilationSize: 7,
		Margin:       50,

		CacheSize:           100,
		SimilarityThreshold: 3,

		KeyframeInterval:     5,
		SceneChangeThreshold: 50.0,

		InpaintURL:         "http://127.0.0.1:8080",
		InpaintSteps:       25,
		InpaintStrategy:    "as-is",
		InpaintCropMargin:  32,
		InpaintResizeLimit: 2048,
	}
}

// LoadFile overlays a YAML config file on top of cfg. Fields absent from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg.Validate()
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.NumSamples <= 0 {
		return fmt.Errorf("num_samples must be positive")
	}
	if c.MinVotes <= 0 || c.MinVotes > c.NumSamples {
		return fmt.Errorf("min_votes must be in [1, num_samples]")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive")
	}
	if c.SimilarityThreshold < 0 {
		return fmt.Errorf("similarity_threshold must not be negative")
	}
	if c.KeyframeInterval <= 0 {
		return fmt.Errorf("keyframe_interval must be positive")
	}
	switch c.InpaintStrategy {
	case "as-is", "resize", "crop":
	default:
		return fmt.Errorf("inpaint_strategy %q: want as-is, resize or crop", c.InpaintStrategy)
	}
	return nil
}
