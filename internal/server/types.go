package server

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"

	"github.com/MeKo-Tech/snake/internal/contour"
	"github.com/MeKo-Tech/snake/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// snakeProcessor defines the methods needed by the server from a pipeline.
type snakeProcessor interface {
	ProcessImageContext(ctx context.Context, img image.Image, pts []contour.Point, obs pipeline.Observer) (*pipeline.Result, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	baseConfig    pipeline.Config
	style         pipeline.Style
	logger        *slog.Logger
	corsOrigin    string
	maxUploadMB   int64
	timeoutSec    int
	maxIterations int
	maxNeighbors  int
	rateLimiter   *RateLimiter
	profiler      *pipeline.Profiler

	// newPipeline builds the per-request pipeline. Tests replace it.
	newPipeline func(cfg pipeline.Config) (snakeProcessor, error)
}

// DefaultMaxNeighborhoodSize is the widest search window a request may use
// when the server is not configured otherwise.
const DefaultMaxNeighborhoodSize = 15

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	// MaxIterations caps the pass count a request may ask for.
	MaxIterations int
	// MaxNeighborhoodSize caps the search window a request may ask for.
	// Zero selects DefaultMaxNeighborhoodSize.
	MaxNeighborhoodSize int
	PipelineConfig      pipeline.Config
	Style               pipeline.Style
	RateLimit           RateLimitConfig
	Logger              *slog.Logger
}

// RateLimitConfig holds per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`

	Memory      pipeline.MemStats `json:"memory"`
	Relaxations map[string]any    `json:"relaxations,omitempty"`
}

// SnakeResponse wraps a relaxation result or an error message.
type SnakeResponse struct {
	Success bool             `json:"success"`
	Result  *pipeline.Result `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// NewServer creates a new snake server instance.
func NewServer(config Config) (*Server, error) {
	// Fail early on a bad base configuration
	if err := pipeline.NewBuilder().WithConfig(config.PipelineConfig).Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		baseConfig:    config.PipelineConfig,
		style:         config.Style,
		logger:        logger,
		corsOrigin:    config.CORSOrigin,
		maxUploadMB:   config.MaxUploadMB,
		timeoutSec:    config.TimeoutSec,
		maxIterations: config.MaxIterations,
		maxNeighbors:  config.MaxNeighborhoodSize,
		profiler:      &pipeline.Profiler{},
	}
	if s.style.LineColor == nil {
		s.style = pipeline.DefaultStyle()
	}
	if s.maxNeighbors <= 0 {
		s.maxNeighbors = DefaultMaxNeighborhoodSize
	}
	if n := s.baseConfig.Snake.NeighborhoodSize; n > s.maxNeighbors {
		return nil, fmt.Errorf("neighborhood size %d exceeds server limit %d", n, s.maxNeighbors)
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}
	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(
			config.RateLimit.RequestsPerMinute,
			config.RateLimit.RequestsPerHour,
			config.RateLimit.MaxRequestsPerDay,
			config.RateLimit.MaxDataPerDay,
		)
	}
	s.newPipeline = func(cfg pipeline.Config) (snakeProcessor, error) {
		return pipeline.NewBuilder().WithConfig(cfg).WithLogger(logger).Build()
	}
	return s, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/snake", s.corsMiddleware(s.rateLimitMiddleware(s.snakeHandler)))
	mux.HandleFunc("/ws", s.rateLimitMiddleware(s.snakeWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}
