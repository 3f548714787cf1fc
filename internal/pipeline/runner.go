package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/snake/internal/common"
	"github.com/MeKo-Tech/snake/internal/contour"
	"github.com/MeKo-Tech/snake/internal/snake"
	"github.com/MeKo-Tech/snake/internal/utils"
)

// RunConfig controls how many passes a Runner performs.
type RunConfig struct {
	// MaxIterations is the number of passes to run, or the upper bound when
	// a convergence threshold is set.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
	// ConvergenceThreshold stops the run early once a pass moves at most
	// this many points. Negative disables early stopping.
	ConvergenceThreshold int `json:"convergence_threshold" yaml:"convergence_threshold"`
}

// DefaultRunConfig runs a fixed 100 passes.
func DefaultRunConfig() RunConfig {
	return RunConfig{MaxIterations: 100, ConvergenceThreshold: -1}
}

// Validate checks the iteration bound.
func (c RunConfig) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be >= 1, got %d", c.MaxIterations)
	}
	return nil
}

// Observer receives an event after every pass. Implementations run on the
// relaxation goroutine and should return quickly.
type Observer interface {
	OnPass(ev PassEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev PassEvent)

// OnPass calls f(ev).
func (f ObserverFunc) OnPass(ev PassEvent) { f(ev) }

// Runner drives a snake through repeated passes.
type Runner struct {
	cfg    RunConfig
	logger *slog.Logger
}

// NewRunner creates a runner. A nil logger falls back to slog.Default().
func NewRunner(cfg RunConfig, logger *slog.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger}, nil
}

// Config returns the runner configuration.
func (r *Runner) Config() RunConfig { return r.cfg }

// Run performs passes on s until the iteration bound or the convergence
// threshold is reached. The context is checked between passes. On error the
// returned Result still describes the contour as it was left.
func (r *Runner) Run(ctx context.Context, s *snake.Snake, obs Observer) (*Result, error) {
	if s == nil {
		return nil, errors.New("snake is nil")
	}

	res := &Result{
		Width:   s.Field().Width(),
		Height:  s.Field().Height(),
		Initial: s.Points(),
	}
	timer := common.NewNamedTimer("relax")

	var runErr error
	for range r.cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("relaxation interrupted after %d passes: %w", res.Passes, err)
			break
		}
		changed, err := s.Step()
		lap := timer.Lap()
		if err != nil {
			runErr = err
			break
		}
		res.Passes++
		res.Changed = append(res.Changed, changed)
		res.Processing.PassNs = append(res.Processing.PassNs, lap.Nanoseconds())

		if obs != nil {
			obs.OnPass(PassEvent{
				Pass:     res.Passes,
				Changed:  changed,
				Points:   s.Points(),
				Corners:  s.Corners(),
				Duration: lap,
			})
		}

		if r.cfg.ConvergenceThreshold >= 0 && changed <= r.cfg.ConvergenceThreshold {
			res.Converged = true
			break
		}
	}
	res.Processing.RelaxNs = timer.Stop().Nanoseconds()
	finish(res, s)

	if runErr != nil {
		r.logger.Warn("relaxation stopped", "passes", res.Passes, "error", runErr)
		return res, runErr
	}
	r.logger.Debug("relaxation finished",
		"passes", res.Passes,
		"converged", res.Converged,
		"points", len(res.Points),
		"corners", len(res.Corners),
		"duration", timer.Duration(),
	)
	return res, nil
}

// finish copies the final contour state and its shape measures into res.
func finish(res *Result, s *snake.Snake) {
	res.Points = s.Points()
	res.Corners = s.Corners()
	res.Betas = s.Betas()
	if avg, err := s.AverageDistance(); err == nil {
		res.AverageDistance = avg
	}
	pts := toImagePoints(res.Points)
	res.Area = utils.PolygonArea(pts)
	res.Perimeter = utils.PolygonPerimeter(pts)
	r := utils.BoundingRect(pts)
	res.Bounds = Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

func toImagePoints(pts []contour.Point) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = image.Pt(p.X, p.Y)
	}
	return out
}
