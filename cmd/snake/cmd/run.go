package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/snake/internal/batch"
	"github.com/MeKo-Tech/snake/internal/config"
	"github.com/MeKo-Tech/snake/internal/contour"
	"github.com/MeKo-Tech/snake/internal/pipeline"
	"github.com/MeKo-Tech/snake/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	outputFormatJSON = "json"
	outputFormatCSV  = "csv"
	outputFormatText = "text"
)

// runCmd relaxes a contour over one or more images.
var runCmd = &cobra.Command{
	Use:   "run <image|dir> [image|dir...]",
	Short: "Relax a contour onto the edges of an image",
	Long: `Relax a closed contour onto the edges of one or more images.

The initial contour comes from --points, --points-file, or an ellipse inscribed
in the image when neither is given. Directories expand to the images they
contain (--recursive descends into subdirectories). Several images are
processed in parallel with the same initial contour.

Supported formats: JPEG, PNG, BMP

Examples:
  snake run shape.png
  snake run shape.png --points "10,10;50,10;50,50;10,50" --max-iterations 50
  snake run shape.png --points-file contour.yaml --overlay out.png
  snake run a.png b.png --format json --workers 2
  snake run shapes/ -r --exclude "*_overlay.png" --overlay overlays/`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input images provided")
		}

		cfg := GetConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}
		if !slices.Contains([]string{outputFormatText, outputFormatJSON, outputFormatCSV}, cfg.Output.Format) {
			return fmt.Errorf("invalid output format: %s (must be one of: text, json, csv)", cfg.Output.Format)
		}

		paths, err := batch.DiscoverImages(args, cfg.ToDiscoverOptions())
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return errors.New("no images found")
		}

		pts, err := initialPoints(cmd)
		if err != nil {
			return err
		}
		style, err := cfg.ToOverlayStyle()
		if err != nil {
			return err
		}

		p, err := pipeline.NewBuilder().
			WithConfig(cfg.ToPipelineConfig()).
			WithLogger(slog.Default()).
			Build()
		if err != nil {
			return fmt.Errorf("failed to build pipeline: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		showPasses, _ := cmd.Flags().GetBool("progress")

		var out string
		if len(paths) == 1 {
			out, err = runSingle(ctx, cmd, p, cfg, style, paths[0], pts, showPasses)
		} else {
			out, err = runBatch(ctx, cmd, p, cfg, style, paths, pts, showPasses)
		}
		if err != nil {
			return err
		}

		if cfg.Output.File != "" {
			if err := os.WriteFile(cfg.Output.File, []byte(out), 0o600); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Results written to %s\n", cfg.Output.File)
			return err
		}
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), out); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	},
}

// initialPoints reads the starting contour from --points or --points-file.
// Nil means the pipeline seeds its default ellipse.
func initialPoints(cmd *cobra.Command) ([]contour.Point, error) {
	inline, _ := cmd.Flags().GetString("points")
	file, _ := cmd.Flags().GetString("points-file")
	switch {
	case inline != "" && file != "":
		return nil, errors.New("--points and --points-file are mutually exclusive")
	case file != "":
		return pipeline.LoadPoints(file)
	default:
		return pipeline.ParsePoints(inline)
	}
}

func runSingle(
	ctx context.Context,
	cmd *cobra.Command,
	p *pipeline.Pipeline,
	cfg *config.Config,
	style pipeline.Style,
	path string,
	pts []contour.Point,
	showPasses bool,
) (string, error) {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", path, err)
	}

	obs := pipeline.MultiObserver{pipeline.LogObserver{Level: slog.LevelDebug}}
	if showPasses {
		obs = append(obs, pipeline.PassPrinter{W: cmd.ErrOrStderr()})
	}

	res, err := p.ProcessImageContext(ctx, img, pts, obs)
	if err != nil {
		return "", fmt.Errorf("relaxation failed for %s: %w", path, err)
	}

	if cfg.Output.OverlayPath != "" {
		if err := saveOverlay(cfg.Output.OverlayPath, img, res, style); err != nil {
			return "", err
		}
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Saved overlay: %s\n", cfg.Output.OverlayPath)
	}

	return formatResult(cfg.Output.Format, path, res, false)
}

func runBatch(
	ctx context.Context,
	cmd *cobra.Command,
	p *pipeline.Pipeline,
	cfg *config.Config,
	style pipeline.Style,
	paths []string,
	pts []contour.Point,
	showProgress bool,
) (string, error) {
	jobs := make([]pipeline.BatchJob, 0, len(paths))
	images := make(map[string]image.Image, len(paths))
	for _, pth := range paths {
		img, _, err := utils.LoadImage(pth)
		if err != nil {
			return "", fmt.Errorf("failed to load %s: %w", pth, err)
		}
		images[pth] = img
		jobs = append(jobs, pipeline.BatchJob{Name: pth, Image: img, Points: pts})
	}

	pcfg := cfg.ToParallelConfig()
	pcfg.Profiler = &pipeline.Profiler{}
	if showProgress {
		pcfg.Progress = pipeline.NewConsoleProgressCallback(cmd.ErrOrStderr(), "Relaxing")
	}

	results, err := p.ProcessBatch(ctx, jobs, pcfg)
	if results == nil {
		return "", err
	}
	if err != nil {
		slog.Warn("Some images failed", "error", err)
	}
	slog.Debug("Batch finished", "profile", pcfg.Profiler.Snapshot(), "memory", pipeline.GetMemStats())

	if cfg.Output.OverlayPath != "" {
		dsts := overlayPaths(cfg.Output.OverlayPath, paths)
		for _, r := range results {
			if r.Result == nil {
				continue
			}
			dst := dsts[r.Name]
			if err := saveOverlay(dst, images[r.Name], r.Result, style); err != nil {
				return "", err
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Saved overlay: %s\n", dst)
		}
	}

	if cfg.Output.Format == outputFormatJSON {
		return pipeline.ToJSONBatch(results)
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Result == nil {
			parts = append(parts, fmt.Sprintf("%s: error: %s\n", r.Name, r.Error))
			continue
		}
		s, err := formatResult(cfg.Output.Format, r.Name, r.Result, true)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n"), nil
}

// formatResult renders one result. named prefixes the file name for batch output.
func formatResult(format, path string, res *pipeline.Result, named bool) (string, error) {
	switch format {
	case outputFormatJSON:
		return pipeline.ToJSON(res)
	case outputFormatCSV:
		s, err := pipeline.ToCSV(res)
		if err != nil {
			return "", fmt.Errorf("format csv failed: %w", err)
		}
		if named {
			s = "# " + path + "\n" + s
		}
		return s, nil
	default:
		s, err := pipeline.ToPlainText(res)
		if err != nil {
			return "", fmt.Errorf("format text failed: %w", err)
		}
		return path + ": " + s, nil
	}
}

func saveOverlay(path string, img image.Image, res *pipeline.Result, style pipeline.Style) error {
	if err := utils.SaveImage(path, pipeline.RenderResult(img, res, style)); err != nil {
		return fmt.Errorf("failed to save overlay %s: %w", path, err)
	}
	return nil
}

// overlayPaths names each batch overlay inside dir after its source image.
// Sources that share a base name get a numeric suffix in input order.
func overlayPaths(dir string, srcs []string) map[string]string {
	out := make(map[string]string, len(srcs))
	taken := make(map[string]bool, len(srcs))
	for _, src := range srcs {
		if _, ok := out[src]; ok {
			continue
		}
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		name := base
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		taken[name] = true
		out[src] = filepath.Join(dir, name+"_overlay.png")
	}
	return out
}

func addRunFlags(cmd *cobra.Command) {
	defaults := config.DefaultConfig()

	// Energy weights and search
	cmd.Flags().Float64("alpha", defaults.Snake.Alpha, "continuity weight")
	cmd.Flags().Float64("beta", defaults.Snake.Beta, "curvature weight")
	cmd.Flags().Float64("gamma", defaults.Snake.Gamma, "image energy weight")
	cmd.Flags().Float64("curvature-threshold", defaults.Snake.CurvatureThreshold,
		"curvature above which a local maximum is a corner (0..1)")
	cmd.Flags().Int("neighborhood-size", defaults.Snake.NeighborhoodSize, "odd side length of the search window")
	cmd.Flags().Int("ellipse-points", defaults.Snake.EllipsePoints, "points in the default ellipse (0 disables it)")

	// Driver loop
	cmd.Flags().Int("max-iterations", defaults.Run.MaxIterations, "number of passes (upper bound with a threshold)")
	cmd.Flags().Int("convergence-threshold", defaults.Run.ConvergenceThreshold,
		"stop once a pass moves at most this many points (-1 runs every pass)")

	// Preprocessing
	cmd.Flags().Bool("invert", defaults.Preprocess.Invert, "invert the edge field")
	cmd.Flags().Float64("blur-sigma", defaults.Preprocess.BlurSigma, "Gaussian blur sigma for the edge field (0 disables)")
	cmd.Flags().Bool("threshold", defaults.Preprocess.Threshold, "binarise the edge field with Otsu's method")

	// Input and output
	cmd.Flags().String("points", "", `initial contour as "x,y;x,y;..."`)
	cmd.Flags().String("points-file", "", "initial contour file (YAML or JSON)")
	cmd.Flags().StringP("format", "f", "text", "output format (text, json, csv)")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().String("overlay", "", "overlay image path (a directory when several images are given)")
	cmd.Flags().String("point-color", defaults.Output.PointColor, "overlay point color")
	cmd.Flags().String("line-color", defaults.Output.LineColor, "overlay line color")
	cmd.Flags().String("corner-color", defaults.Output.CornerColor, "overlay corner color")
	cmd.Flags().Int("workers", defaults.Batch.Workers, "parallel workers for several images")
	cmd.Flags().BoolP("recursive", "r", defaults.Batch.Recursive, "descend into subdirectories")
	cmd.Flags().StringSlice("include", defaults.Batch.Include, "file name patterns to include (default: common image types)")
	cmd.Flags().StringSlice("exclude", defaults.Batch.Exclude, "file name patterns to exclude")
	cmd.Flags().Bool("progress", false, "print every pass (or batch progress) to stderr")
}

// bindRunFlags binds the run flags to viper configuration keys.
func bindRunFlags(cmd *cobra.Command) {
	flagBindings := []struct {
		key  string
		flag string
	}{
		{"snake.alpha", "alpha"},
		{"snake.beta", "beta"},
		{"snake.gamma", "gamma"},
		{"snake.curvature_threshold", "curvature-threshold"},
		{"snake.neighborhood_size", "neighborhood-size"},
		{"snake.ellipse_points", "ellipse-points"},
		{"run.max_iterations", "max-iterations"},
		{"run.convergence_threshold", "convergence-threshold"},
		{"preprocess.invert", "invert"},
		{"preprocess.blur_sigma", "blur-sigma"},
		{"preprocess.threshold", "threshold"},
		{"output.format", "format"},
		{"output.file", "output"},
		{"output.overlay_path", "overlay"},
		{"output.point_color", "point-color"},
		{"output.line_color", "line-color"},
		{"output.corner_color", "corner-color"},
		{"batch.workers", "workers"},
		{"batch.recursive", "recursive"},
		{"batch.include", "include"},
		{"batch.exclude", "exclude"},
	}

	for _, binding := range flagBindings {
		if err := viper.BindPFlag(binding.key, cmd.Flags().Lookup(binding.flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", binding.flag, err))
		}
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
	bindRunFlags(runCmd)
}
