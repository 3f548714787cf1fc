package config

import (
	"errors"
	"fmt"
	"image/color"
	"slices"
	"strings"

	"github.com/MeKo-Tech/snake/internal/batch"
	"github.com/MeKo-Tech/snake/internal/energy"
	"github.com/MeKo-Tech/snake/internal/pipeline"
	"github.com/MeKo-Tech/snake/internal/snake"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	opts := snake.DefaultOptions()
	run := pipeline.DefaultRunConfig()
	prep := energy.DefaultPrepareOptions()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Snake: SnakeConfig{
			Alpha:              opts.Alpha,
			Beta:               opts.Beta,
			Gamma:              opts.Gamma,
			CurvatureThreshold: opts.CurvatureThreshold,
			NeighborhoodSize:   opts.NeighborhoodSize,
			EllipsePoints:      pipeline.DefaultConfig().EllipsePoints,
		},
		Run: RunConfig{
			MaxIterations:        run.MaxIterations,
			ConvergenceThreshold: run.ConvergenceThreshold,
		},
		Preprocess: PreprocessConfig{
			Invert:    prep.Invert,
			BlurSigma: prep.BlurSigma,
			Threshold: prep.Threshold,
		},
		Output: OutputConfig{
			Format:      "text",
			PointColor:  "#00FF00",
			LineColor:   "#FF0000",
			CornerColor: "#FFFF00",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			MaxIterations:   1000,

			MaxNeighborhoodSize: 15,

			RateLimitEnabled:  false,
			RequestsPerMinute: 60,
			RequestsPerHour:   1000,
			MaxRequestsPerDay: 5000,
			MaxDataPerDay:     100 * 1024 * 1024,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if err := c.ToSnakeOptions().Validate(); err != nil {
		return err
	}
	if err := validateThreshold(c.Snake.CurvatureThreshold, "snake.curvature_threshold"); err != nil {
		return err
	}
	if c.Snake.EllipsePoints < 0 {
		return fmt.Errorf("invalid snake.ellipse_points: %d (must be >= 0)", c.Snake.EllipsePoints)
	}
	if err := c.ToRunConfig().Validate(); err != nil {
		return err
	}
	if c.Preprocess.BlurSigma < 0 {
		return fmt.Errorf("invalid preprocess.blur_sigma: %.2f (must be >= 0)", c.Preprocess.BlurSigma)
	}

	if _, err := c.ToOverlayStyle(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.MaxIterations <= 0 {
		return fmt.Errorf("invalid server max iterations: %d (must be positive)", c.Server.MaxIterations)
	}
	if c.Server.MaxNeighborhoodSize < c.Snake.NeighborhoodSize {
		return fmt.Errorf("invalid server max neighborhood size: %d (must be >= snake.neighborhood_size %d)",
			c.Server.MaxNeighborhoodSize, c.Snake.NeighborhoodSize)
	}
	if c.Server.RequestsPerMinute < 0 || c.Server.RequestsPerHour < 0 ||
		c.Server.MaxRequestsPerDay < 0 || c.Server.MaxDataPerDay < 0 {
		return errors.New("invalid rate limit: limits must be >= 0 (0 disables a limit)")
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	return nil
}

// ToSnakeOptions converts the snake section to snake.Options.
func (c *Config) ToSnakeOptions() snake.Options {
	return snake.Options{
		Alpha:              c.Snake.Alpha,
		Beta:               c.Snake.Beta,
		Gamma:              c.Snake.Gamma,
		CurvatureThreshold: c.Snake.CurvatureThreshold,
		NeighborhoodSize:   c.Snake.NeighborhoodSize,
	}
}

// ToRunConfig converts the run section to pipeline.RunConfig.
func (c *Config) ToRunConfig() pipeline.RunConfig {
	return pipeline.RunConfig{
		MaxIterations:        c.Run.MaxIterations,
		ConvergenceThreshold: c.Run.ConvergenceThreshold,
	}
}

// ToPrepareOptions converts the preprocess section to energy.PrepareOptions.
func (c *Config) ToPrepareOptions() energy.PrepareOptions {
	return energy.PrepareOptions{
		Invert:    c.Preprocess.Invert,
		BlurSigma: c.Preprocess.BlurSigma,
		Threshold: c.Preprocess.Threshold,
	}
}

// ToPipelineConfig converts the config to the internal pipeline configuration format.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Snake = c.ToSnakeOptions()
	cfg.Run = c.ToRunConfig()
	cfg.Prepare = c.ToPrepareOptions()
	cfg.EllipsePoints = c.Snake.EllipsePoints
	return cfg
}

// ToParallelConfig converts the batch section to pipeline.ParallelConfig.
func (c *Config) ToParallelConfig() pipeline.ParallelConfig {
	return pipeline.ParallelConfig{MaxWorkers: c.Batch.Workers}
}

// ToDiscoverOptions converts the batch section to batch.DiscoverOptions.
func (c *Config) ToDiscoverOptions() batch.DiscoverOptions {
	return batch.DiscoverOptions{
		Recursive: c.Batch.Recursive,
		Include:   c.Batch.Include,
		Exclude:   c.Batch.Exclude,
	}
}

// ToOverlayStyle builds the overlay style from the output colors. Empty
// colors keep the defaults.
func (c *Config) ToOverlayStyle() (pipeline.Style, error) {
	style := pipeline.DefaultStyle()
	for _, f := range []struct {
		name  string
		value string
		dst   *color.Color
	}{
		{"output.point_color", c.Output.PointColor, &style.PointColor},
		{"output.line_color", c.Output.LineColor, &style.LineColor},
		{"output.corner_color", c.Output.CornerColor, &style.CornerColor},
	} {
		if f.value == "" {
			continue
		}
		col, err := pipeline.ParseColor(f.value)
		if err != nil {
			return style, fmt.Errorf("invalid %s: %w", f.name, err)
		}
		*f.dst = col
	}
	return style, nil
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
