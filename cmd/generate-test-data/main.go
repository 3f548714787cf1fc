package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/snake/internal/contour"
	"github.com/MeKo-Tech/snake/internal/pipeline"
	"github.com/MeKo-Tech/snake/internal/testutil"
	"github.com/MeKo-Tech/snake/internal/utils"
	"gopkg.in/yaml.v3"
)

// shape is one synthetic test image together with its starting contour.
type shape struct {
	Name  string
	Image image.Image
	Init  []contour.Point
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir  = flag.String("out", "testdata/shapes", "Output directory, relative to the project root")
		size    = flag.Int("size", 128, "Side length of the generated images")
		points  = flag.Int("points", 40, "Points in each initial contour")
		verbose = flag.Bool("v", false, "Verbose output")
		help    = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate synthetic shapes and initial contours for snake testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                  # 128x128 shapes in testdata/shapes\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -size 256 -v     # larger shapes\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	root, err := testutil.GetProjectRoot()
	if err != nil {
		slog.Error("Failed to find project root", "error", err)
		os.Exit(1)
	}
	dir := filepath.Join(root, *outDir)

	shapes, err := generateShapes(*size, *points)
	if err != nil {
		slog.Error("Failed to generate shapes", "error", err)
		os.Exit(1)
	}
	if err := writeShapes(dir, shapes, *verbose); err != nil {
		slog.Error("Failed to write shapes", "error", err)
		os.Exit(1)
	}

	slog.Info("Test data generation completed", "dir", dir, "shapes", len(shapes))
}

// generateShapes draws a square, a disc and a triangle, each seeded with the
// ellipse inscribed in the image.
func generateShapes(size, n int) ([]shape, error) {
	if size < 16 {
		return nil, fmt.Errorf("size must be at least 16, got %d", size)
	}
	if n < 3 {
		return nil, fmt.Errorf("need at least 3 contour points, got %d", n)
	}
	q := size / 4
	init := pipeline.DefaultEllipse(size, size, n)
	return []shape{
		{
			Name:  "square",
			Image: testutil.SquareImage(size, size, image.Rect(q, q, size-q, size-q), color.Black, color.White),
			Init:  init,
		},
		{Name: "disc", Image: discImage(size, float64(size)/4), Init: init},
		{Name: "triangle", Image: triangleImage(size), Init: init},
	}, nil
}

// discImage is a white disc of radius r centred on a black size×size image.
func discImage(size int, r float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	c := float64(size-1) / 2
	for y := range size {
		for x := range size {
			dx, dy := float64(x)-c, float64(y)-c
			if dx*dx+dy*dy <= r*r {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// triangleImage is a white isosceles triangle with its apex at the top.
func triangleImage(size int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	top, bottom := size/4, size-size/4
	mid := size / 2
	for y := top; y < bottom; y++ {
		half := (y - top) * (size / 4) / (bottom - top)
		for x := mid - half; x <= mid+half; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

// writeShapes saves <name>.png and <name>.yaml for every shape.
func writeShapes(dir string, shapes []shape, verbose bool) error {
	if err := testutil.EnsureDir(dir); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	for _, s := range shapes {
		imgPath := filepath.Join(dir, s.Name+".png")
		if err := utils.SaveImage(imgPath, s.Image); err != nil {
			return err
		}

		pf := testutil.PointsFile{Points: make([][2]int, len(s.Init))}
		for i, p := range s.Init {
			pf.Points[i] = [2]int{p.X, p.Y}
		}
		data, err := yaml.Marshal(pf)
		if err != nil {
			return fmt.Errorf("failed to encode %s contour: %w", s.Name, err)
		}
		ptsPath := filepath.Join(dir, s.Name+".yaml")
		if err := os.WriteFile(ptsPath, data, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", ptsPath, err)
		}

		if verbose {
			slog.Info("Wrote shape", "name", s.Name, "image", imgPath, "points", ptsPath)
		}
	}
	return nil
}
