package server

import (
	"bytes"
	"context"
	"image"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/snake/internal/contour"
	"github.com/MeKo-Tech/snake/internal/pipeline"
	"github.com/stretchr/testify/require"
)

// mockProcessor replays a fixed number of passes and returns a canned result.
type mockProcessor struct {
	res    *pipeline.Result
	err    error
	passes int
	gotPts []contour.Point
}

func (m *mockProcessor) ProcessImageContext(
	_ context.Context,
	_ image.Image,
	pts []contour.Point,
	obs pipeline.Observer,
) (*pipeline.Result, error) {
	m.gotPts = pts
	for i := 1; i <= m.passes; i++ {
		if obs != nil {
			obs.OnPass(pipeline.PassEvent{Pass: i, Changed: m.passes - i})
		}
	}
	return m.res, m.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		CORSOrigin:     "*",
		MaxUploadMB:    1,
		TimeoutSec:     5,
		MaxIterations:  50,
		PipelineConfig: pipeline.DefaultConfig(),
		Logger:         quietLogger(),
	}
}

// newTestServer builds a server. A non-nil proc replaces the real pipeline.
func newTestServer(t *testing.T, proc snakeProcessor) *Server {
	t.Helper()
	s, err := NewServer(testConfig())
	require.NoError(t, err)
	if proc != nil {
		s.newPipeline = func(pipeline.Config) (snakeProcessor, error) { return proc, nil }
	}
	return s
}

// createMultipartFormRequest creates a POST /snake request with an image and form fields.
func createMultipartFormRequest(t *testing.T, imageData []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if imageData != nil {
		part, err := writer.CreateFormFile("image", "input.png")
		require.NoError(t, err)
		_, err = part.Write(imageData)
		require.NoError(t, err)
	}

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/snake", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
