package pipeline

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/MeKo-Tech/snake/internal/contour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	res := &Result{
		Width:     40,
		Height:    30,
		Passes:    2,
		Converged: true,
		Initial:   []contour.Point{{1, 1}, {10, 1}, {10, 10}},
		Points:    []contour.Point{{2, 2}, {10, 2}, {10, 10}},
		Corners:   []int{1},
		Betas:     []float64{1, 0, 1},
		Changed:   []int{2, 0},
		Area:      32,
		Perimeter: 27.31,
		Bounds:    Box{X: 2, Y: 2, Width: 9, Height: 9},
	}
	return res
}

func TestToJSON(t *testing.T) {
	out, err := ToJSON(sampleResult())
	require.NoError(t, err)

	var back Result
	require.NoError(t, json.Unmarshal([]byte(out), &back))
	assert.Equal(t, sampleResult().Points, back.Points)
	assert.Contains(t, out, `"changed_per_pass"`)

	_, err = ToJSON(nil)
	require.Error(t, err)
}

func TestToJSONBatch(t *testing.T) {
	out, err := ToJSONBatch([]BatchResult{{Name: "a.png", Result: sampleResult()}, {Name: "b.png", Error: "boom"}})
	require.NoError(t, err)
	assert.Contains(t, out, `"a.png"`)
	assert.Contains(t, out, `"error": "boom"`)
}

func TestToCSV(t *testing.T) {
	out, err := ToCSV(sampleResult())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "index,x,y,beta,corner", lines[0])
	assert.Equal(t, "0,2,2,1,false", lines[1])
	assert.Equal(t, "1,10,2,0,true", lines[2])

	_, err = ToCSV(nil)
	require.Error(t, err)
}

func TestToPlainText(t *testing.T) {
	out, err := ToPlainText(sampleResult())
	require.NoError(t, err)
	assert.Contains(t, out, "Image: 40x30")
	assert.Contains(t, out, "Passes: 2 (converged)")
	assert.Contains(t, out, "Moved in last pass: 0")
	assert.Contains(t, out, "Corners: 1")
	assert.Contains(t, out, "Bounds: 9x9 at 2,2")
	assert.Contains(t, out, "Contour: 2,2;10,2;10,10")

	empty := &Result{Width: 1, Height: 1}
	out, err = ToPlainText(empty)
	require.NoError(t, err)
	assert.Contains(t, out, "Corners: none")
}

func TestValidateResult(t *testing.T) {
	require.NoError(t, ValidateResult(sampleResult()))
	require.Error(t, ValidateResult(nil))

	tests := []struct {
		name   string
		mutate func(*Result)
	}{
		{"bad size", func(r *Result) { r.Width = 0 }},
		{"outside point", func(r *Result) { r.Points[0] = contour.Pt(40, 0) }},
		{"pass mismatch", func(r *Result) { r.Passes = 3 }},
		{"bad corner", func(r *Result) { r.Corners = []int{7} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleResult()
			tt.mutate(r)
			require.Error(t, ValidateResult(r))
		})
	}
}
