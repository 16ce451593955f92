// Package config loads application configuration from a YAML file with
// defaults suitable for running against a local depth service.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Inference InferenceConfig `mapstructure:"inference"`
	Mesh      MeshConfig      `mapstructure:"mesh"`
	Export    ExportConfig    `mapstructure:"export"`
	Log       LogConfig       `mapstructure:"log"`
}

// InferenceConfig configures the depth-estimation collaborator.
type InferenceConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	ModelURL     string        `mapstructure:"model_url"`
	GridSize     int           `mapstructure:"grid_size"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// MeshConfig holds the settings-panel defaults for new conversions.
type MeshConfig struct {
	DepthScale   float64 `mapstructure:"depth_scale"`
	BaseHeight   float64 `mapstructure:"base_height"`
	UseNormalMap bool    `mapstructure:"use_normal_map"`
	AutoCenter   bool    `mapstructure:"auto_center"`
}

// ExportConfig configures the export paths.
type ExportConfig struct {
	Dir            string  `mapstructure:"dir"`
	MaxTextureSize int     `mapstructure:"max_texture_size"`
	SolidCells     int     `mapstructure:"solid_cells"`
	BaseThickness  float64 `mapstructure:"base_thickness"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads a YAML config file. A missing file is not an error; defaults
// apply, overridden by whatever the file sets.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration without touching the disk.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("inference.endpoint", "http://127.0.0.1:8501/depth")
	v.SetDefault("inference.model_url", "http://127.0.0.1:8501/model")
	v.SetDefault("inference.grid_size", 256)
	v.SetDefault("inference.timeout", "60s")
	v.SetDefault("inference.max_attempts", 3)
	v.SetDefault("inference.initial_delay", "1s")
	v.SetDefault("inference.max_delay", "30s")

	v.SetDefault("mesh.depth_scale", 1.0)
	v.SetDefault("mesh.base_height", 0.0)
	v.SetDefault("mesh.use_normal_map", false)
	v.SetDefault("mesh.auto_center", true)

	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.max_texture_size", 4096)
	v.SetDefault("export.solid_cells", 200)
	v.SetDefault("export.base_thickness", 2.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Inference.GridSize < 2 {
		return fmt.Errorf("inference.grid_size %d must be at least 2", c.Inference.GridSize)
	}
	if c.Inference.MaxAttempts < 1 {
		return fmt.Errorf("inference.max_attempts %d must be at least 1", c.Inference.MaxAttempts)
	}
	if c.Mesh.DepthScale <= 0 {
		return fmt.Errorf("mesh.depth_scale %v must be positive", c.Mesh.DepthScale)
	}
	if c.Mesh.BaseHeight < 0 {
		return fmt.Errorf("mesh.base_height %v must be non-negative", c.Mesh.BaseHeight)
	}
	if c.Export.MaxTextureSize < 1 {
		return fmt.Errorf("export.max_texture_size %d must be positive", c.Export.MaxTextureSize)
	}
	return nil
}
