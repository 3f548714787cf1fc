package support

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/snake/internal/pipeline"
	"github.com/MeKo-Tech/snake/internal/testutil"
	"github.com/cucumber/godog"
	"gopkg.in/yaml.v3"
)

// aSquareTestImage writes the 64x64 square fixture into the temp directory.
func (testCtx *TestContext) aSquareTestImage(name string) error {
	path := testCtx.TempPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // G304: paths come from feature files
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return png.Encode(f, testutil.DefaultSquareImage())
}

// theSquareContourIn writes the square's initial contour as a points file.
func (testCtx *TestContext) theSquareContourIn(name string) error {
	pts := testutil.SquareContour()
	pf := testutil.PointsFile{Points: make([][2]int, len(pts))}
	for i, p := range pts {
		pf.Points[i] = [2]int{p.X, p.Y}
	}
	data, err := yaml.Marshal(pf)
	if err != nil {
		return err
	}
	return os.WriteFile(testCtx.TempPath(name), data, 0o600)
}

// theEnvironmentVariableIsSet adds an environment variable for later commands.
func (testCtx *TestContext) theEnvironmentVariableIsSet(name, value string) error {
	testCtx.AddEnvVar(name, testCtx.substitute(value))
	return nil
}

// iRunCommand executes a command and stores the result.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substitute(command)
	command = strings.ReplaceAll(command, "{square_points}", pipeline.FormatPoints(testutil.SquareContour()))
	testCtx.LastCommand = command

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...) //nolint:gosec // G204: commands come from feature files
	cmd.Dir = testCtx.WorkingDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	output, err := cmd.CombinedOutput()
	testCtx.LastOutput = string(output)
	testCtx.LastError = err
	testCtx.LastDuration = time.Since(start)

	testCtx.LastExitCode = 0
	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			testCtx.LastExitCode = exitError.ExitCode()
		} else {
			testCtx.LastExitCode = -1
		}
	}
	return nil
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldContain verifies the output contains specific text.
func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	expectedText = testCtx.substitute(expectedText)
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

// outputJSON decodes the output from its first '{' or '['.
func (testCtx *TestContext) outputJSON() (interface{}, error) {
	output := strings.TrimSpace(testCtx.LastOutput)
	start := strings.IndexAny(output, "{[")
	if start == -1 {
		return nil, fmt.Errorf("no JSON found in output: %s", testCtx.LastOutput)
	}
	var v interface{}
	if err := json.Unmarshal([]byte(output[start:]), &v); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w\nJSON part: %s", err, output[start:])
	}
	return v, nil
}

// theOutputShouldBeValidJSON verifies the output is valid JSON.
func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	_, err := testCtx.outputJSON()
	return err
}

// theJSONFieldShouldEqual compares a dotted JSON path of the output.
func (testCtx *TestContext) theJSONFieldShouldEqual(field, expected string) error {
	v, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	return checkJSONField(v, field, testCtx.substitute(expected))
}

// theJSONFieldShouldHaveItems checks the length of an array in the output.
func (testCtx *TestContext) theJSONFieldShouldHaveItems(field string, n int) error {
	v, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	return checkJSONLen(v, field, n)
}

// theFileShouldBeAPNGOfSize decodes a PNG and checks its dimensions.
func (testCtx *TestContext) theFileShouldBeAPNGOfSize(path string, w, h int) error {
	path = testCtx.substitute(path)
	f, err := os.Open(path) //nolint:gosec // G304: paths come from feature files
	if err != nil {
		return fmt.Errorf("expected file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	img, err := png.Decode(f)
	if err != nil {
		return fmt.Errorf("%s is not a PNG: %w", path, err)
	}
	if got := img.Bounds(); got != image.Rect(0, 0, w, h) {
		return fmt.Errorf("expected %dx%d image, got %dx%d", w, h, got.Dx(), got.Dy())
	}
	return nil
}

// theFileShouldContain checks a written file for text.
func (testCtx *TestContext) theFileShouldContain(path, text string) error {
	path = testCtx.substitute(path)
	data, err := os.ReadFile(path) //nolint:gosec // G304: paths come from feature files
	if err != nil {
		return fmt.Errorf("expected file %s: %w", path, err)
	}
	if !strings.Contains(string(data), text) {
		return fmt.Errorf("file %s does not contain '%s'\nContent: %s", path, text, data)
	}
	return nil
}

// lookupJSON walks a dotted path; numeric segments index arrays.
func lookupJSON(v interface{}, path string) (interface{}, error) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			next, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field '%s' not found in JSON", path)
			}
			cur = next
		case []interface{}:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("invalid index '%s' in '%s'", part, path)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("cannot navigate into '%s' of '%s'", part, path)
		}
	}
	return cur, nil
}

func checkJSONField(v interface{}, field, expected string) error {
	got, err := lookupJSON(v, field)
	if err != nil {
		return err
	}
	if s := fmt.Sprint(got); s != expected {
		return fmt.Errorf("expected %s to be %s, got %s", field, expected, s)
	}
	return nil
}

func checkJSONLen(v interface{}, field string, n int) error {
	got, err := lookupJSON(v, field)
	if err != nil {
		return err
	}
	arr, ok := got.([]interface{})
	if !ok {
		return fmt.Errorf("field '%s' is not an array", field)
	}
	if len(arr) != n {
		return fmt.Errorf("expected %d items in %s, got %d", n, field, len(arr))
	}
	return nil
}

// RegisterCommandSteps registers the CLI steps.
func (testCtx *TestContext) RegisterCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a square test image "([^"]*)"$`, testCtx.aSquareTestImage)
	sc.Step(`^the square contour in "([^"]*)"$`, testCtx.theSquareContourIn)
	sc.Step(`^the environment variable "([^"]*)" is "([^"]*)"$`, testCtx.theEnvironmentVariableIsSet)
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldEqual)
	sc.Step(`^the JSON field "([^"]*)" should have (\d+) items$`, testCtx.theJSONFieldShouldHaveItems)
	sc.Step(`^the file "([^"]*)" should be a (\d+)x(\d+) PNG$`, testCtx.theFileShouldBeAPNGOfSize)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}
