package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/MeKo-Tech/snake/internal/pipeline"
	"github.com/MeKo-Tech/snake/internal/server"
	"github.com/MeKo-Tech/snake/internal/testutil"
	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"
)

// HTTPTestServerWrapper wraps an in-process snake server.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

// Close shuts the server down.
func (w *HTTPTestServerWrapper) Close() {
	if w.Server != nil {
		w.Server.Close()
	}
}

// URL returns the base URL of the server.
func (w *HTTPTestServerWrapper) URL() string {
	return w.Server.URL
}

func (testCtx *TestContext) startServer(rl server.RateLimitConfig) error {
	if testCtx.HTTPTestServer != nil {
		testCtx.HTTPTestServer.Close()
	}

	s, err := server.NewServer(server.Config{
		CORSOrigin:     "*",
		MaxUploadMB:    5,
		TimeoutSec:     30,
		MaxIterations:  100,
		PipelineConfig: pipeline.DefaultConfig(),
		RateLimit:      rl,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(mux),
		TestServer: s,
	}
	return nil
}

// theSnakeServerIsRunning starts a server without rate limits.
func (testCtx *TestContext) theSnakeServerIsRunning() error {
	return testCtx.startServer(server.RateLimitConfig{})
}

// theSnakeServerIsRunningWithALimitOf starts a server allowing n requests per minute.
func (testCtx *TestContext) theSnakeServerIsRunningWithALimitOf(n int) error {
	return testCtx.startServer(server.RateLimitConfig{Enabled: true, RequestsPerMinute: n})
}

func (testCtx *TestContext) recordResponse(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

// iSendAGETRequestTo performs a GET against the running server.
func (testCtx *TestContext) iSendAGETRequestTo(path string) error {
	if testCtx.HTTPTestServer == nil {
		return fmt.Errorf("server is not running")
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(testCtx.HTTPTestServer.URL() + path)
	if err != nil {
		return err
	}
	return testCtx.recordResponse(resp)
}

// iPostTheSquareImageWith uploads the square fixture with the table's form fields.
func (testCtx *TestContext) iPostTheSquareImageWith(table *godog.Table) error {
	if testCtx.HTTPTestServer == nil {
		return fmt.Errorf("server is not running")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "square.png")
	if err != nil {
		return err
	}
	if err := encodeSquare(part); err != nil {
		return err
	}
	for _, row := range table.Rows {
		if len(row.Cells) != 2 || row.Cells[0].Value == "field" {
			continue
		}
		value := strings.ReplaceAll(row.Cells[1].Value, "{square_points}", pipeline.FormatPoints(testutil.SquareContour()))
		if err := w.WriteField(row.Cells[0].Value, value); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(testCtx.HTTPTestServer.URL()+"/snake", w.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	return testCtx.recordResponse(resp)
}

// theResponseStatusShouldBe checks the last HTTP status code.
func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

// theResponseShouldContain checks the last HTTP body for text.
func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

// theResponseHeaderShouldBe checks one header of the last response.
func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != value {
		return fmt.Errorf("expected header %s to be %q, got %q", name, value, got)
	}
	return nil
}

// theResponseJSONFieldShouldBe compares a dotted JSON path of the last body.
func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	var v interface{}
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &v); err != nil {
		return fmt.Errorf("response is not JSON: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	return checkJSONField(v, field, expected)
}

// iStreamTheSquareImageOverTheWebSocket sends one request and collects
// messages until the run completes or fails.
func (testCtx *TestContext) iStreamTheSquareImageOverTheWebSocket(passes int) error {
	if testCtx.HTTPTestServer == nil {
		return fmt.Errorf("server is not running")
	}

	url := "ws" + strings.TrimPrefix(testCtx.HTTPTestServer.URL(), "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", url, err)
	}
	testCtx.wsConn = conn

	var img bytes.Buffer
	if err := encodeSquare(&img); err != nil {
		return err
	}
	req, err := json.Marshal(server.WebSocketSnakeRequest{
		Type:    "snake",
		Image:   img.Bytes(),
		Points:  pipeline.FormatPoints(testutil.SquareContour()),
		Options: map[string]interface{}{"max_iterations": passes},
	})
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		return err
	}

	testCtx.LastWSMessages = nil
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("websocket read failed: %w", err)
		}
		var msg map[string]interface{}
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		testCtx.LastWSMessages = append(testCtx.LastWSMessages, msg)
		if status := msg["status"]; status == "completed" || status == "error" {
			return nil
		}
	}
}

// iShouldReceivePassMessagesThenCompleted checks the streamed message sequence.
func (testCtx *TestContext) iShouldReceivePassMessagesThenCompleted(passes int) error {
	msgs := testCtx.LastWSMessages
	if len(msgs) != passes+2 {
		return fmt.Errorf("expected %d messages, got %d: %v", passes+2, len(msgs), msgs)
	}
	if msgs[0]["status"] != "processing" {
		return fmt.Errorf("first message should be processing, got %v", msgs[0]["status"])
	}
	for i, m := range msgs[1 : passes+1] {
		if m["type"] != "pass" {
			return fmt.Errorf("message %d should be a pass, got %v", i+1, m["type"])
		}
		if err := checkJSONField(m, "pass.pass", fmt.Sprint(i+1)); err != nil {
			return err
		}
	}
	last := msgs[len(msgs)-1]
	if last["status"] != "completed" {
		return fmt.Errorf("last message should be completed, got %v", last)
	}
	return checkJSONField(last, "result.passes", fmt.Sprint(passes))
}

func encodeSquare(w io.Writer) error {
	return png.Encode(w, testutil.DefaultSquareImage())
}

// RegisterServerSteps registers the HTTP and WebSocket steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the snake server is running$`, testCtx.theSnakeServerIsRunning)
	sc.Step(`^the snake server is running with a limit of (\d+) requests? per minute$`,
		testCtx.theSnakeServerIsRunningWithALimitOf)
	sc.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendAGETRequestTo)
	sc.Step(`^I post the square image with:$`, testCtx.iPostTheSquareImageWith)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^I stream the square image over the websocket for (\d+) passes$`,
		testCtx.iStreamTheSquareImageOverTheWebSocket)
	sc.Step(`^I should receive (\d+) pass messages and a completed message$`,
		testCtx.iShouldReceivePassMessagesThenCompleted)
}
