package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ToJSON serializes a single Result to pretty JSON.
func ToJSON(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSONBatch serializes batch results to pretty JSON.
func ToJSONBatch(results []BatchResult) (string, error) {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToCSV exports the final contour as one row per point with header.
func ToCSV(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"index", "x", "y", "beta", "corner"})
	for i, p := range res.Points {
		beta := ""
		if i < len(res.Betas) {
			beta = strconv.FormatFloat(res.Betas[i], 'g', -1, 64)
		}
		_ = w.Write([]string{
			strconv.Itoa(i),
			strconv.Itoa(p.X),
			strconv.Itoa(p.Y),
			beta,
			strconv.FormatBool(res.IsCorner(i)),
		})
	}
	w.Flush()
	return buf.String(), w.Error()
}

// ToPlainText renders a short human-readable summary.
func ToPlainText(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Image: %dx%d\n", res.Width, res.Height)
	fmt.Fprintf(&sb, "Passes: %d", res.Passes)
	if res.Converged {
		sb.WriteString(" (converged)")
	}
	sb.WriteString("\n")
	if n := len(res.Changed); n > 0 {
		fmt.Fprintf(&sb, "Moved in last pass: %d\n", res.Changed[n-1])
	}
	fmt.Fprintf(&sb, "Points: %d\n", len(res.Points))
	fmt.Fprintf(&sb, "Corners: %s\n", formatInts(res.Corners))
	fmt.Fprintf(&sb, "Perimeter: %.2f\n", res.Perimeter)
	fmt.Fprintf(&sb, "Area: %.1f\n", res.Area)
	fmt.Fprintf(&sb, "Bounds: %dx%d at %d,%d\n", res.Bounds.Width, res.Bounds.Height, res.Bounds.X, res.Bounds.Y)
	fmt.Fprintf(&sb, "Contour: %s", FormatPoints(res.Points))
	return sb.String(), nil
}

func formatInts(v []int) string {
	if len(v) == 0 {
		return "none"
	}
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}

// ValidateResult performs simple consistency checks.
func ValidateResult(res *Result) error {
	if res == nil {
		return errors.New("nil result")
	}
	if res.Width <= 0 || res.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", res.Width, res.Height)
	}
	for i, p := range res.Points {
		if p.X < 0 || p.Y < 0 || p.X >= res.Width || p.Y >= res.Height {
			return fmt.Errorf("point %d %v outside %dx%d", i, p, res.Width, res.Height)
		}
	}
	if len(res.Changed) != res.Passes {
		return fmt.Errorf("%d change counts for %d passes", len(res.Changed), res.Passes)
	}
	for _, c := range res.Corners {
		if c < 0 || c >= len(res.Points) {
			return fmt.Errorf("corner index %d out of range", c)
		}
	}
	return nil
}
