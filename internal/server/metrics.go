package server

import (
	"time"

	"github.com/MeKo-Tech/snake/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snake_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snake_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Relaxation metrics
	snakeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snake_requests_total",
			Help: "Total number of relaxation requests",
		},
		[]string{"type", "status"}, // type: image, websocket
	)

	snakeProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snake_processing_duration_seconds",
			Help:    "Relaxation duration in seconds, including field preparation",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"type"},
	)

	snakePassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snake_passes_total",
			Help: "Total number of relaxation passes",
		},
		[]string{"type"},
	)

	snakePointsMovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snake_points_moved_total",
			Help: "Total number of point moves across all passes",
		},
		[]string{"type"},
	)

	snakeContourPoints = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snake_contour_points",
			Help:    "Number of points per relaxed contour",
			Buckets: []float64{3, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"type"},
	)

	snakeCornersDetected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snake_corners_detected",
			Help:    "Number of corners marked per relaxed contour",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"type"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snake_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, data
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snake_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024, 100 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snake_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snake_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// passMetricsObserver counts passes and moves as they happen.
func passMetricsObserver(kind string) pipeline.Observer {
	passes := snakePassesTotal.WithLabelValues(kind)
	moved := snakePointsMovedTotal.WithLabelValues(kind)
	return pipeline.ObserverFunc(func(ev pipeline.PassEvent) {
		passes.Inc()
		moved.Add(float64(ev.Changed))
	})
}

// recordResultMetrics records a successful relaxation.
func recordResultMetrics(kind string, res *pipeline.Result, duration time.Duration) {
	snakeRequestsTotal.WithLabelValues(kind, "success").Inc()
	snakeProcessingDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if res != nil {
		snakeContourPoints.WithLabelValues(kind).Observe(float64(len(res.Points)))
		snakeCornersDetected.WithLabelValues(kind).Observe(float64(len(res.Corners)))
	}
}
