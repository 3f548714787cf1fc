package snake

import (
	"math"
	"testing"

	"github.com/MeKo-Tech/snake/internal/contour"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestContinuityEnergy(t *testing.T) {
	assert.InDelta(t, 0.0, ContinuityEnergy(5, contour.Pt(0, 0), contour.Pt(3, 4)), 0)
	assert.InDelta(t, 4.0, ContinuityEnergy(7, contour.Pt(0, 0), contour.Pt(3, 4)), 1e-12)
	assert.InDelta(t, 25.0, ContinuityEnergy(0, contour.Pt(0, 0), contour.Pt(3, 4)), 1e-12)
}

func TestCurvatureEnergy(t *testing.T) {
	// Collinear and evenly spaced: no bending.
	assert.InDelta(t, 0.0, CurvatureEnergy(contour.Pt(0, 0), contour.Pt(5, 5), contour.Pt(10, 10)), 0)
	// prev - 2p + next = (0, 10).
	assert.InDelta(t, 100.0, CurvatureEnergy(contour.Pt(0, 0), contour.Pt(5, -5), contour.Pt(10, 0)), 0)
	// Coincident neighbors pulling back.
	assert.InDelta(t, 8.0, CurvatureEnergy(contour.Pt(0, 0), contour.Pt(1, 1), contour.Pt(0, 0)), 0)
}

func TestImageEnergy(t *testing.T) {
	s, err := New(nil, pinField(t, 4, 4, []contour.Point{{2, 1}}), DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, -255.0, s.ImageEnergy(contour.Pt(2, 1)), 0)
	assert.InDelta(t, 0.0, s.ImageEnergy(contour.Pt(1, 2)), 0)
}

func TestNormalize(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{2, 4, 6, 10})
	got := Normalize(m)
	assert.True(t, mat.EqualApprox(mat.NewDense(2, 2, []float64{0, 0.25, 0.5, 1}), got, 1e-12))
	// The input is untouched.
	assert.InDelta(t, 10.0, m.At(1, 1), 0)
}

func TestNormalize_Flat(t *testing.T) {
	got := Normalize(mat.NewDense(3, 3, []float64{7, 7, 7, 7, 7, 7, 7, 7, 7}))
	assert.InDelta(t, 0.0, mat.Max(got), 0)
	assert.InDelta(t, 0.0, mat.Min(got), 0)
}

func TestNormalizeVector(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, NormalizeVector([]float64{-1, 0, 1}))
	assert.Equal(t, []float64{0, 0, 0}, NormalizeVector([]float64{3, 3, 3}))
	assert.Empty(t, NormalizeVector(nil))
}

func TestNormalizeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	genValues := gen.SliceOfN(9, gen.Float64Range(-1e6, 1e6))

	properties.Property("normalised values stay in [0, 1]", prop.ForAll(
		func(v []float64) bool {
			got := Normalize(mat.NewDense(3, 3, v))
			return mat.Min(got) >= 0 && mat.Max(got) <= 1
		},
		genValues,
	))

	properties.Property("a non-flat input spans exactly 0 to 1", prop.ForAll(
		func(v []float64) bool {
			out := NormalizeVector(v)
			flat := true
			for _, x := range v[1:] {
				if x != v[0] {
					flat = false
				}
			}
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, x := range out {
				lo, hi = math.Min(lo, x), math.Max(hi, x)
			}
			if flat {
				return lo == 0 && hi == 0
			}
			return lo == 0 && hi == 1
		},
		genValues,
	))

	properties.TestingRun(t)
}

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"negative alpha", func(o *Options) { o.Alpha = -1 }},
		{"NaN beta", func(o *Options) { o.Beta = math.NaN() }},
		{"infinite gamma", func(o *Options) { o.Gamma = math.Inf(1) }},
		{"NaN threshold", func(o *Options) { o.CurvatureThreshold = math.NaN() }},
		{"even neighborhood", func(o *Options) { o.NeighborhoodSize = 4 }},
		{"zero neighborhood", func(o *Options) { o.NeighborhoodSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.mutate(&o)
			require.ErrorIs(t, o.Validate(), ErrInvalidOptions)
		})
	}
}

func TestOptionsValidate_ZeroWeightsAllowed(t *testing.T) {
	o := Options{NeighborhoodSize: 1}
	require.NoError(t, o.Validate())
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.InDelta(t, 1.0, o.Alpha, 0)
	assert.InDelta(t, 1.0, o.Beta, 0)
	assert.InDelta(t, 1.2, o.Gamma, 0)
	assert.InDelta(t, 0.01, o.CurvatureThreshold, 0)
	assert.Equal(t, 5, o.NeighborhoodSize)
}
