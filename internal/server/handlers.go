package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/MeKo-Tech/snake/internal/contour"
	"github.com/MeKo-Tech/snake/internal/energy"
	"github.com/MeKo-Tech/snake/internal/pipeline"
	"github.com/MeKo-Tech/snake/internal/snake"
	"github.com/MeKo-Tech/snake/internal/utils"
	"github.com/MeKo-Tech/snake/internal/version"
)

const (
	formatText    = "text"
	formatCSV     = "csv"
	formatOverlay = "overlay"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Memory:  pipeline.GetMemStats(),
	}
	if s.profiler != nil {
		response.Relaxations = s.profiler.Snapshot()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding health response: %v\n", err)
	}
}

// statusForError maps a processing error to an HTTP status code.
func statusForError(err error) int {
	var ipe *utils.ImageProcessingError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.As(err, &ipe),
		errors.Is(err, contour.ErrEmptyContour),
		errors.Is(err, snake.ErrInvalidOptions),
		errors.Is(err, snake.ErrNonFiniteEnergy),
		errors.Is(err, energy.ErrNonFinite),
		errors.Is(err, energy.ErrEmptyField),
		errors.Is(err, pipeline.ErrInvalidPoints):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := SnakeResponse{
		Success: false,
		Error:   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		// Log error, but can't send another response
		fmt.Fprintf(os.Stderr, "Error writing error response: %v\n", err)
	}
}
