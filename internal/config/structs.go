//nolint:lll
package config

// Config represents the complete configuration for the snake application.
// It includes settings for all commands (run, field, serve) and supports
// loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Relaxation weights and search window
	Snake SnakeConfig `mapstructure:"snake" yaml:"snake" json:"snake"`

	// Pass count and early stopping
	Run RunConfig `mapstructure:"run" yaml:"run" json:"run"`

	// Image to energy field conversion
	Preprocess PreprocessConfig `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Multi-image processing
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// SnakeConfig contains the per-point weights and neighborhood settings.
type SnakeConfig struct {
	Alpha              float64 `mapstructure:"alpha" yaml:"alpha" json:"alpha"`
	Beta               float64 `mapstructure:"beta" yaml:"beta" json:"beta"`
	Gamma              float64 `mapstructure:"gamma" yaml:"gamma" json:"gamma"`
	CurvatureThreshold float64 `mapstructure:"curvature_threshold" yaml:"curvature_threshold" json:"curvature_threshold"`
	NeighborhoodSize   int     `mapstructure:"neighborhood_size" yaml:"neighborhood_size" json:"neighborhood_size"`
	EllipsePoints      int     `mapstructure:"ellipse_points" yaml:"ellipse_points" json:"ellipse_points"`
}

// RunConfig contains the driver loop settings.
type RunConfig struct {
	MaxIterations        int `mapstructure:"max_iterations" yaml:"max_iterations" json:"max_iterations"`
	ConvergenceThreshold int `mapstructure:"convergence_threshold" yaml:"convergence_threshold" json:"convergence_threshold"`
}

// PreprocessConfig contains energy field preparation settings.
type PreprocessConfig struct {
	Invert    bool    `mapstructure:"invert" yaml:"invert" json:"invert"`
	BlurSigma float64 `mapstructure:"blur_sigma" yaml:"blur_sigma" json:"blur_sigma"`
	Threshold bool    `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format      string `mapstructure:"format" yaml:"format" json:"format"`
	File        string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayPath string `mapstructure:"overlay_path" yaml:"overlay_path" json:"overlay_path"`
	PointColor  string `mapstructure:"point_color" yaml:"point_color" json:"point_color"`
	LineColor   string `mapstructure:"line_color" yaml:"line_color" json:"line_color"`
	CornerColor string `mapstructure:"corner_color" yaml:"corner_color" json:"corner_color"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	// MaxIterations caps the pass count a client may request.
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations" json:"max_iterations"`
	// MaxNeighborhoodSize caps the search window a client may request.
	MaxNeighborhoodSize int `mapstructure:"max_neighborhood_size" yaml:"max_neighborhood_size" json:"max_neighborhood_size"`

	// Rate limiting configuration
	RateLimitEnabled  bool  `mapstructure:"rate_limit_enabled" yaml:"rate_limit_enabled" json:"rate_limit_enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// BatchConfig contains multi-image processing settings.
type BatchConfig struct {
	Workers   int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include   []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude   []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}
