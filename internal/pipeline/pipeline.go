// Package pipeline turns images and initial points into relaxed contours.
//
// It owns the control loop around snake.Snake: preparing the energy field,
// seeding a default contour, running passes under a context, reporting
// each pass to an Observer and rendering or formatting the outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/snake/internal/common"
	"github.com/MeKo-Tech/snake/internal/contour"
	"github.com/MeKo-Tech/snake/internal/energy"
	"github.com/MeKo-Tech/snake/internal/snake"
	"github.com/MeKo-Tech/snake/internal/utils"
)

// Config holds configuration for the full image-to-contour pipeline.
type Config struct {
	Snake   snake.Options
	Prepare energy.PrepareOptions
	Run     RunConfig
	// EllipsePoints is the size of the default contour seeded when no
	// initial points are given. Zero disables the default.
	EllipsePoints int
	Constraints   utils.ImageConstraints
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		Snake:         snake.DefaultOptions(),
		Prepare:       energy.DefaultPrepareOptions(),
		Run:           DefaultRunConfig(),
		EllipsePoints: 40,
		Constraints:   utils.DefaultImageConstraints(),
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg    Config
	logger *slog.Logger
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithWeights sets the alpha, beta and gamma weights.
func (b *Builder) WithWeights(alpha, beta, gamma float64) *Builder {
	b.cfg.Snake.Alpha = alpha
	b.cfg.Snake.Beta = beta
	b.cfg.Snake.Gamma = gamma
	return b
}

// WithCurvatureThreshold sets the corner detection threshold.
func (b *Builder) WithCurvatureThreshold(th float64) *Builder {
	b.cfg.Snake.CurvatureThreshold = th
	return b
}

// WithNeighborhoodSize sets the side of the candidate window.
func (b *Builder) WithNeighborhoodSize(size int) *Builder {
	b.cfg.Snake.NeighborhoodSize = size
	return b
}

// WithMaxIterations sets the pass count (or bound).
func (b *Builder) WithMaxIterations(n int) *Builder {
	b.cfg.Run.MaxIterations = n
	return b
}

// WithConvergenceThreshold enables early stopping; negative disables it.
func (b *Builder) WithConvergenceThreshold(n int) *Builder {
	b.cfg.Run.ConvergenceThreshold = n
	return b
}

// WithPrepareOptions sets the image preprocessing options.
func (b *Builder) WithPrepareOptions(opts energy.PrepareOptions) *Builder {
	b.cfg.Prepare = opts
	return b
}

// WithEllipsePoints sets the size of the default contour.
func (b *Builder) WithEllipsePoints(n int) *Builder {
	b.cfg.EllipsePoints = n
	return b
}

// WithLogger sets the logger passed to the runner and every snake.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks that the configuration looks sane.
func (b *Builder) Validate() error {
	if err := b.cfg.Snake.Validate(); err != nil {
		return err
	}
	if err := b.cfg.Run.Validate(); err != nil {
		return err
	}
	if b.cfg.Prepare.BlurSigma < 0 {
		return fmt.Errorf("blur sigma must be >= 0, got %v", b.cfg.Prepare.BlurSigma)
	}
	if b.cfg.EllipsePoints < 0 {
		return fmt.Errorf("ellipse points must be >= 0, got %d", b.cfg.EllipsePoints)
	}
	return nil
}

// Build validates the configuration and returns a ready pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	runner, err := NewRunner(b.cfg.Run, logger)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: b.cfg, runner: runner, logger: logger}, nil
}

// Pipeline prepares fields from images and relaxes contours over them.
// It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	cfg    Config
	runner *Runner
	logger *slog.Logger
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// PrepareField validates img against the pipeline constraints and turns it
// into an energy field.
func (p *Pipeline) PrepareField(img image.Image) (*energy.Field, error) {
	if err := utils.ValidateImageConstraints(img, p.cfg.Constraints); err != nil {
		return nil, err
	}
	return energy.Prepare(img, p.cfg.Prepare)
}

// InitialPoints returns pts, or the default ellipse for a height×width
// field when pts is empty.
func (p *Pipeline) InitialPoints(pts []contour.Point, height, width int) []contour.Point {
	if len(pts) > 0 || p.cfg.EllipsePoints == 0 {
		return pts
	}
	return DefaultEllipse(height, width, p.cfg.EllipsePoints)
}

// ProcessImage relaxes pts over img without cancellation or observer.
func (p *Pipeline) ProcessImage(img image.Image, pts []contour.Point) (*Result, error) {
	return p.ProcessImageContext(context.Background(), img, pts, nil)
}

// ProcessImageContext prepares img, seeds the contour and runs the
// configured number of passes, reporting each one to obs.
func (p *Pipeline) ProcessImageContext(ctx context.Context, img image.Image, pts []contour.Point, obs Observer) (*Result, error) {
	if p == nil || p.runner == nil {
		return nil, errors.New("pipeline not initialized")
	}
	total := common.NewNamedTimer("total")

	prep := common.NewNamedTimer("prepare")
	field, err := p.PrepareField(img)
	if err != nil {
		return nil, err
	}
	prepareNs := prep.Stop().Nanoseconds()

	res, err := p.ProcessField(ctx, field, pts, obs)
	if res != nil {
		res.Processing.PrepareNs = prepareNs
		res.Processing.TotalNs = total.Stop().Nanoseconds()
	}
	return res, err
}

// ProcessField relaxes pts over an already prepared field.
func (p *Pipeline) ProcessField(ctx context.Context, field *energy.Field, pts []contour.Point, obs Observer) (*Result, error) {
	if field == nil {
		return nil, snake.ErrNilField
	}
	pts = p.InitialPoints(pts, field.Height(), field.Width())
	p.logger.Debug("starting relaxation",
		"width", field.Width(),
		"height", field.Height(),
		"points", len(pts),
		"max_iterations", p.cfg.Run.MaxIterations,
	)

	s, err := snake.New(pts, field, p.cfg.Snake, snake.WithLogger(p.logger))
	if err != nil {
		return nil, fmt.Errorf("build snake: %w", err)
	}
	res, err := p.runner.Run(ctx, s, obs)
	if res != nil {
		res.Processing.TotalNs = res.Processing.RelaxNs
	}
	return res, err
}
