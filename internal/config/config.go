// Package config handles tool configuration and camera set loading.
package config

// DefaultEpsilon is the coordinate band half-width applied to cameras
// whose selection parameters leave epsilon unset.
const DefaultEpsilon = 1.5

// Config holds all tool settings.
type Config struct {
	Projection ProjectionConfig `yaml:"projection"`
	Selection  SelectionConfig  `yaml:"selection"`
	Batch      BatchConfig      `yaml:"batch"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ProjectionConfig holds UV projection settings.
type ProjectionConfig struct {
	Mode       string  `yaml:"mode"`        // "orthographic" or "perspective"
	Extent     float64 `yaml:"extent"`      // orthographic view width in scene units
	FOVDegrees float64 `yaml:"fov_degrees"` // perspective horizontal field of view
}

// SelectionConfig holds face selection settings.
type SelectionConfig struct {
	DefaultEpsilon float64 `yaml:"default_epsilon"`
}

// BatchConfig holds batch processing settings.
type BatchConfig struct {
	Workers   int    `yaml:"workers"`
	Extension string `yaml:"extension"` // mesh files matched in batch input directories
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Projection: ProjectionConfig{
			Mode:       "orthographic",
			Extent:     10.0,
			FOVDegrees: 39.6,
		},
		Selection: SelectionConfig{
			DefaultEpsilon: DefaultEpsilon,
		},
		Batch: BatchConfig{
			Workers:   4,
			Extension: ".ply",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
