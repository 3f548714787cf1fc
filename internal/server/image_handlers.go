package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/snake/internal/contour"
	"github.com/MeKo-Tech/snake/internal/pipeline"
	"github.com/MeKo-Tech/snake/internal/utils"
)

// RequestConfig holds per-request configuration overrides. Nil fields keep
// the server defaults.
type RequestConfig struct {
	Alpha                *float64
	Beta                 *float64
	Gamma                *float64
	CurvatureThreshold   *float64
	NeighborhoodSize     *int
	MaxIterations        *int
	ConvergenceThreshold *int
	Invert               *bool
}

// snakeHandler relaxes a contour over an uploaded image.
func (s *Server) snakeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, pts, reqConfig, err := s.parseSnakeRequest(w, r)
	if err != nil {
		snakeRequestsTotal.WithLabelValues("image", "error").Inc()
		return // error already written
	}

	p, err := s.getPipelineForRequest(reqConfig)
	if err != nil {
		snakeRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Invalid options: %v", err), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	start := time.Now()
	res, err := p.ProcessImageContext(ctx, img, pts, passMetricsObserver("image"))
	duration := time.Since(start)

	if err != nil {
		snakeRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Relaxation failed: %v", err), statusForError(err))
		return
	}

	recordResultMetrics("image", res, duration)
	s.profiler.Record(res)
	s.writeSnakeResponse(w, r, img, res)
}

func (s *Server) parseSnakeRequest(
	w http.ResponseWriter,
	r *http.Request,
) (image.Image, []contour.Point, *RequestConfig, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "request body too large") {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return nil, nil, nil, err
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return nil, nil, nil, err
	}
	defer func() { _ = file.Close() }()

	uploadSizeBytes.Observe(float64(header.Size))

	img, _, err := utils.DecodeImage(file)
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return nil, nil, nil, err
	}

	pts, err := pipeline.ParsePoints(r.FormValue("points"))
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return nil, nil, nil, err
	}

	reqConfig, err := parseRequestConfig(r.FormValue)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return nil, nil, nil, err
	}

	return img, pts, reqConfig, nil
}

// parseRequestConfig reads the optional overrides through get, which
// returns "" for absent keys.
func parseRequestConfig(get func(string) string) (*RequestConfig, error) {
	rc := &RequestConfig{}

	floats := []struct {
		key string
		dst **float64
	}{
		{"alpha", &rc.Alpha},
		{"beta", &rc.Beta},
		{"gamma", &rc.Gamma},
		{"curvature_threshold", &rc.CurvatureThreshold},
	}
	for _, f := range floats {
		v := strings.TrimSpace(get(f.key))
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q", f.key, v)
		}
		*f.dst = &parsed
	}

	ints := []struct {
		key string
		dst **int
	}{
		{"neighborhood_size", &rc.NeighborhoodSize},
		{"max_iterations", &rc.MaxIterations},
		{"convergence_threshold", &rc.ConvergenceThreshold},
	}
	for _, f := range ints {
		v := strings.TrimSpace(get(f.key))
		if v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q", f.key, v)
		}
		*f.dst = &parsed
	}

	if v := strings.TrimSpace(get("invert")); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid invert: %q", v)
		}
		rc.Invert = &parsed
	}

	return rc, nil
}

// configForRequest applies reqConfig on top of the server's base configuration.
func (s *Server) configForRequest(reqConfig *RequestConfig) (pipeline.Config, error) {
	cfg := s.baseConfig
	if reqConfig == nil {
		return cfg, nil
	}

	if reqConfig.Alpha != nil {
		cfg.Snake.Alpha = *reqConfig.Alpha
	}
	if reqConfig.Beta != nil {
		cfg.Snake.Beta = *reqConfig.Beta
	}
	if reqConfig.Gamma != nil {
		cfg.Snake.Gamma = *reqConfig.Gamma
	}
	if reqConfig.CurvatureThreshold != nil {
		cfg.Snake.CurvatureThreshold = *reqConfig.CurvatureThreshold
	}
	if reqConfig.NeighborhoodSize != nil {
		cfg.Snake.NeighborhoodSize = *reqConfig.NeighborhoodSize
	}
	if reqConfig.MaxIterations != nil {
		cfg.Run.MaxIterations = *reqConfig.MaxIterations
	}
	if reqConfig.ConvergenceThreshold != nil {
		cfg.Run.ConvergenceThreshold = *reqConfig.ConvergenceThreshold
	}
	if reqConfig.Invert != nil {
		cfg.Prepare.Invert = *reqConfig.Invert
	}

	if s.maxIterations > 0 && cfg.Run.MaxIterations > s.maxIterations {
		return cfg, fmt.Errorf("max_iterations %d exceeds server limit %d", cfg.Run.MaxIterations, s.maxIterations)
	}
	if s.maxNeighbors > 0 && cfg.Snake.NeighborhoodSize > s.maxNeighbors {
		return cfg, fmt.Errorf("neighborhood_size %d exceeds server limit %d", cfg.Snake.NeighborhoodSize, s.maxNeighbors)
	}
	return cfg, nil
}

// getPipelineForRequest returns a pipeline configured for the specific request.
func (s *Server) getPipelineForRequest(reqConfig *RequestConfig) (snakeProcessor, error) {
	cfg, err := s.configForRequest(reqConfig)
	if err != nil {
		return nil, err
	}
	return s.newPipeline(cfg)
}

func (s *Server) writeSnakeResponse(
	w http.ResponseWriter,
	r *http.Request,
	img image.Image,
	res *pipeline.Result,
) {
	// Determine output format: default json; allow 'format' in query or form
	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}

	switch format {
	case formatCSV:
		s.writeFormatted(w, "text/csv", pipeline.ToCSV, res)
	case formatText:
		s.writeFormatted(w, "text/plain; charset=utf-8", pipeline.ToPlainText, res)
	case formatOverlay:
		s.handleOverlayOutput(w, r, img, res)
	default:
		s.writeJSONResponse(w, res)
	}
}

func (s *Server) writeFormatted(
	w http.ResponseWriter,
	contentType string,
	format func(*pipeline.Result) (string, error),
	res *pipeline.Result,
) {
	out, err := format(res)
	if err != nil {
		http.Error(w, fmt.Sprintf("formatting failed: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write([]byte(out))
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, res *pipeline.Result) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(SnakeResponse{Success: true, Result: res}); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding snake response: %v\n", err)
	}
}

// handleOverlayOutput renders the final contour over the uploaded image as PNG.
// The point, line and corner form values override the configured colors.
func (s *Server) handleOverlayOutput(
	w http.ResponseWriter,
	r *http.Request,
	img image.Image,
	res *pipeline.Result,
) {
	style := s.style
	for _, c := range []struct {
		key string
		dst *color.Color
	}{
		{"point", &style.PointColor},
		{"line", &style.LineColor},
		{"corner", &style.CornerColor},
	} {
		v := r.FormValue(c.key)
		if v == "" {
			continue
		}
		col, err := pipeline.ParseColor(v)
		if err != nil {
			s.writeErrorResponse(w, fmt.Sprintf("invalid %s color: %v", c.key, err), http.StatusBadRequest)
			return
		}
		*c.dst = col
	}

	ov := pipeline.RenderResult(img, res, style)
	if ov == nil {
		http.Error(w, "overlay failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_ = png.Encode(w, ov)
}
