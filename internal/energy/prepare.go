package energy

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/MeKo-Tech/snake/internal/utils"
	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/mat"
)

var (
	sobelX = [9]float64{
		-1, 0, 1,
		-2, 0, 2,
		-1, 0, 1,
	}
	sobelY = [9]float64{
		-1, -2, -1,
		0, 0, 0,
		1, 2, 1,
	}
)

// PrepareOptions controls how an image is turned into an attraction field.
type PrepareOptions struct {
	// Invert flips the gradient magnitude so edges become dark.
	Invert bool `json:"invert" yaml:"invert"`
	// BlurSigma is the Gaussian blur sigma applied after the gradient; 0 disables it.
	BlurSigma float64 `json:"blur_sigma" yaml:"blur_sigma"`
	// Threshold binarises the result with Otsu's method.
	Threshold bool `json:"threshold" yaml:"threshold"`
}

// DefaultPrepareOptions returns the options used by the CLI and server.
// Edges stay bright so that the negated image energy pulls points onto them.
// Set Invert (the --invert flag) for an always-inverted gradient, which
// makes edges dark and pushes points off them.
func DefaultPrepareOptions() PrepareOptions {
	return PrepareOptions{
		Invert:    false,
		BlurSigma: 1.0,
		Threshold: true,
	}
}

// Prepare converts img into a field in [0, 255]:
// grayscale, Sobel |Gx| and |Gy| averaged, optional inversion, Gaussian blur
// and optional Otsu binarisation.
func Prepare(img image.Image, opts PrepareOptions) (*Field, error) {
	if img == nil {
		return nil, &utils.ImageProcessingError{Operation: "prepare", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, &utils.ImageProcessingError{Operation: "prepare", Err: ErrEmptyField}
	}

	gray := imaging.Grayscale(img)
	gx := imaging.Convolve3x3(gray, sobelX, &imaging.ConvolveOptions{Abs: true})
	gy := imaging.Convolve3x3(gray, sobelY, &imaging.ConvolveOptions{Abs: true})

	var out image.Image = gradientMagnitude(gx, gy)
	if opts.Invert {
		out = imaging.Invert(out)
	}
	if opts.BlurSigma > 0 {
		out = imaging.Blur(out, opts.BlurSigma)
	}

	nrgba := imaging.Clone(out)
	if opts.Threshold {
		binarize(nrgba, Otsu(histogram(nrgba)))
	}

	w, h := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()
	data := make([]float64, w*h)
	for y := range h {
		for x := range w {
			data[y*w+x] = float64(nrgba.Pix[y*nrgba.Stride+x*4])
		}
	}
	return NewField(mat.NewDense(h, w, data))
}

// gradientMagnitude blends |Gx| and |Gy| with equal weights, saturating at 255.
func gradientMagnitude(gx, gy *image.NRGBA) *image.Gray {
	b := gx.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		for x := range b.Dx() {
			vx := float64(gx.Pix[y*gx.Stride+x*4])
			vy := float64(gy.Pix[y*gy.Stride+x*4])
			v := math.Round(0.5*vx + 0.5*vy)
			if v > 255 {
				v = 255
			}
			out.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return out
}

func histogram(img *image.NRGBA) [256]int {
	var hist [256]int
	b := img.Bounds()
	for y := range b.Dy() {
		row := img.Pix[y*img.Stride:]
		for x := range b.Dx() {
			hist[row[x*4]]++
		}
	}
	return hist
}

// binarize sets every pixel above t to white and the rest to black.
func binarize(img *image.NRGBA, t uint8) {
	b := img.Bounds()
	for y := range b.Dy() {
		row := img.Pix[y*img.Stride:]
		for x := range b.Dx() {
			v := uint8(0)
			if row[x*4] > t {
				v = 255
			}
			row[x*4], row[x*4+1], row[x*4+2] = v, v, v
		}
	}
}

// Otsu returns the threshold that maximises the between-class variance of hist.
func Otsu(hist [256]int) uint8 {
	var total, sum float64
	for i, n := range hist {
		total += float64(n)
		sum += float64(i) * float64(n)
	}
	if total == 0 {
		return 0
	}

	var (
		sumB, wB float64
		best     float64
		t        uint8
	)
	for i, n := range hist {
		wB += float64(n)
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(n)
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			t = uint8(i)
		}
	}
	return t
}
