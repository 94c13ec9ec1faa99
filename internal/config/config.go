package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	TrainDir     string  `yaml:"train_dir"`
	TestDir      string  `yaml:"test_dir"`
	LearningRate float64 `yaml:"learning_rate"`
	ImageWidth   int     `yaml:"image_width"`
	ImageHeight  int     `yaml:"image_height"`
	HiddenSize   int     `yaml:"hidden_size"`
	Classes      int     `yaml:"classes"`
	WeightsIn    string  `yaml:"weights_in"`
	WeightsOut   string  `yaml:"weights_out"`
	Seed         int64   `yaml:"seed"`
	MaxEpochs    int     `yaml:"max_epochs"`
	TargetError  float64 `yaml:"target_error"`
	Decay        float64 `yaml:"decay"`
	LogEvery     int     `yaml:"log_every"`
	NumWorkers   int     `yaml:"num_workers"`
	ListenAddr   string  `yaml:"listen_addr"`
}

// Default returns the configuration used when no file sets a value.
func Default() *Config {
	return &Config{
		LearningRate: 0.5,
		ImageWidth:   25,
		ImageHeight:  50,
		HiddenSize:   20,
		Classes:      3,
		MaxEpochs:    200,
		TargetError:  0.01,
		Decay:        0.99,
		LogEvery:     1,
		NumWorkers:   4,
		ListenAddr:   ":8080",
	}
}

// Overrides captures CLI supplied values.
type Overrides struct {
	TrainDir     string
	TestDir      string
	LearningRate float64
	HiddenSize   int
	WeightsIn    string
	WeightsOut   string
	Seed         int64
	MaxEpochs    int
	LogEvery     int
	ListenAddr   string
}

// Load reads and validates a Config from YAML. Keys missing from the file
// keep their Default value.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML on top of Default. Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.TrainDir != "" {
		c.TrainDir = o.TrainDir
	}
	if o.TestDir != "" {
		c.TestDir = o.TestDir
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.HiddenSize > 0 {
		c.HiddenSize = o.HiddenSize
	}
	if o.WeightsIn != "" {
		c.WeightsIn = o.WeightsIn
	}
	if o.WeightsOut != "" {
		c.WeightsOut = o.WeightsOut
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.MaxEpochs > 0 {
		c.MaxEpochs = o.MaxEpochs
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.ListenAddr != "" {
		c.ListenAddr = o.ListenAddr
	}
}

// Validate verifies the config describes a buildable network.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return fmt.Errorf("image size must be > 0 (got %dx%d)", c.ImageWidth, c.ImageHeight)
	}
	if c.HiddenSize <= 0 {
		return fmt.Errorf("hidden_size must be > 0 (got %d)", c.HiddenSize)
	}
	if c.Classes <= 0 {
		return fmt.Errorf("classes must be > 0 (got %d)", c.Classes)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.MaxEpochs <= 0 {
		return fmt.Errorf("max_epochs must be > 0 (got %d)", c.MaxEpochs)
	}
	if c.TargetError < 0 {
		return fmt.Errorf("target_error must be >= 0 (got %g)", c.TargetError)
	}
	if c.Decay <= 0 || c.Decay > 1 {
		return fmt.Errorf("decay must be in (0, 1] (got %g)", c.Decay)
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = 1
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 1
	}
	return nil
}
