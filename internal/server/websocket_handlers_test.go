package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/snake/internal/contour"
	"github.com/MeKo-Tech/snake/internal/pipeline"
	"github.com/MeKo-Tech/snake/internal/testutil"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWebSocketConn is a mock implementation of websocket.Conn for testing.
type mockWebSocketConn struct {
	sentMessages []sentMessage
}

type sentMessage struct {
	messageType int
	data        []byte
}

func (m *mockWebSocketConn) WriteMessage(messageType int, data []byte) error {
	m.sentMessages = append(m.sentMessages, sentMessage{
		messageType: messageType,
		data:        data,
	})
	return nil
}

func (m *mockWebSocketConn) responses(t *testing.T) []WebSocketSnakeResponse {
	t.Helper()
	out := make([]WebSocketSnakeResponse, 0, len(m.sentMessages))
	for _, msg := range m.sentMessages {
		assert.Equal(t, websocket.TextMessage, msg.messageType)
		var resp WebSocketSnakeResponse
		require.NoError(t, json.Unmarshal(msg.data, &resp))
		out = append(out, resp)
	}
	return out
}

func marshalRequest(t *testing.T, req WebSocketSnakeRequest) []byte {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return data
}

func TestServer_ExtractWebSocketConfig(t *testing.T) {
	server := &Server{}

	t.Run("nil options", func(t *testing.T) {
		rc, err := server.extractWebSocketConfig(nil)
		require.NoError(t, err)
		assert.Nil(t, rc.Alpha)
		assert.Nil(t, rc.MaxIterations)
	})

	t.Run("json numbers and bools", func(t *testing.T) {
		var options map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(`{"beta":0.5,"max_iterations":5,"invert":true,"gamma":null}`), &options))

		rc, err := server.extractWebSocketConfig(options)
		require.NoError(t, err)
		require.NotNil(t, rc.Beta)
		assert.InDelta(t, 0.5, *rc.Beta, 1e-12)
		require.NotNil(t, rc.MaxIterations)
		assert.Equal(t, 5, *rc.MaxIterations)
		require.NotNil(t, rc.Invert)
		assert.True(t, *rc.Invert)
		assert.Nil(t, rc.Gamma)
	})

	t.Run("bad value", func(t *testing.T) {
		_, err := server.extractWebSocketConfig(map[string]interface{}{"alpha": "strong"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid alpha")
	})
}

func TestHandleWebSocketMessage_Errors(t *testing.T) {
	pngData := testutil.EncodePNG(t, testutil.DefaultSquareImage())

	tests := []struct {
		name string
		data []byte
		msg  string
	}{
		{"invalid json", []byte("{"), "Failed to parse request"},
		{"unsupported type", marshalRequest(t, WebSocketSnakeRequest{Type: "detect"}), "Unsupported request type: detect"},
		{"no image", marshalRequest(t, WebSocketSnakeRequest{Type: "snake"}), "No image data provided"},
		{"bad image", marshalRequest(t, WebSocketSnakeRequest{Image: []byte("nope")}), "Failed to decode image"},
		{"bad points", marshalRequest(t, WebSocketSnakeRequest{Image: pngData, Points: "1;2"}), "invalid points"},
		{"bad option", marshalRequest(t, WebSocketSnakeRequest{
			Image:   pngData,
			Options: map[string]interface{}{"neighborhood_size": "x"},
		}), "invalid neighborhood_size"},
		{"over limit", marshalRequest(t, WebSocketSnakeRequest{
			Image:   pngData,
			Options: map[string]interface{}{"max_iterations": 1000},
		}), "exceeds server limit"},
		{"neighborhood over limit", marshalRequest(t, WebSocketSnakeRequest{
			Image:   pngData,
			Options: map[string]interface{}{"neighborhood_size": 200001},
		}), "neighborhood_size 200001 exceeds server limit"},
	}

	s := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &mockWebSocketConn{}
			s.handleWebSocketMessage(context.Background(), conn, tt.data)

			resps := conn.responses(t)
			require.Len(t, resps, 1)
			assert.Equal(t, "error", resps[0].Type)
			assert.Equal(t, "invalid_request", resps[0].ErrorType)
			assert.Contains(t, resps[0].Error, tt.msg)
		})
	}
}

func TestProcessWebSocketSnake_Streams(t *testing.T) {
	proc := &mockProcessor{
		passes: 2,
		res: &pipeline.Result{
			Width: 64, Height: 64, Passes: 2,
			Points: []contour.Point{{1, 1}, {5, 1}, {5, 5}},
		},
	}
	s := newTestServer(t, proc)
	conn := &mockWebSocketConn{}

	s.handleWebSocketMessage(context.Background(), conn, marshalRequest(t, WebSocketSnakeRequest{
		Type:    "snake",
		Image:   testutil.EncodePNG(t, testutil.DefaultSquareImage()),
		Points:  "1,1;5,1;5,5",
		Options: map[string]interface{}{"max_iterations": 4},
	}))

	resps := conn.responses(t)
	require.Len(t, resps, 4)

	assert.Equal(t, "processing", resps[0].Status)
	assert.NotEmpty(t, resps[0].RequestID)

	for i, r := range resps[1:3] {
		assert.Equal(t, "pass", r.Type)
		assert.Equal(t, "running", r.Status)
		require.NotNil(t, r.Pass)
		assert.Equal(t, i+1, r.Pass.Pass)
		assert.InDelta(t, float64(i+1)/4, r.Progress, 1e-12)
		assert.Equal(t, resps[0].RequestID, r.RequestID)
	}

	last := resps[3]
	assert.Equal(t, "snake_response", last.Type)
	assert.Equal(t, "completed", last.Status)
	require.NotNil(t, last.Result)
	assert.Equal(t, proc.res.Points, last.Result.Points)
	assert.Equal(t, []contour.Point{{1, 1}, {5, 1}, {5, 5}}, proc.gotPts)
}

func TestProcessWebSocketSnake_ProcessingError(t *testing.T) {
	proc := &mockProcessor{err: context.DeadlineExceeded}
	s := newTestServer(t, proc)
	conn := &mockWebSocketConn{}

	s.handleWebSocketMessage(context.Background(), conn, marshalRequest(t, WebSocketSnakeRequest{
		Image: testutil.EncodePNG(t, testutil.DefaultSquareImage()),
	}))

	resps := conn.responses(t)
	require.Len(t, resps, 2)
	assert.Equal(t, "processing", resps[0].Status)
	assert.Equal(t, "processing_error", resps[1].ErrorType)
	assert.Contains(t, resps[1].Error, "Relaxation failed")
}

func TestSnakeWebSocketHandler_Integration(t *testing.T) {
	s := newTestServer(t, nil)
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() {
		_ = conn.Close()
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, marshalRequest(t, WebSocketSnakeRequest{
		Type:    "snake",
		Image:   testutil.EncodePNG(t, testutil.DefaultSquareImage()),
		Points:  pipeline.FormatPoints(testutil.SquareContour()),
		Options: map[string]interface{}{"max_iterations": 2},
	})))

	var statuses []string
	var final WebSocketSnakeResponse
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg WebSocketSnakeResponse
		require.NoError(t, json.Unmarshal(data, &msg))
		statuses = append(statuses, msg.Status)
		if msg.Status == "completed" || msg.Status == "error" {
			final = msg
			break
		}
	}

	assert.Equal(t, []string{"processing", "running", "running", "completed"}, statuses)
	require.NotNil(t, final.Result)
	assert.Equal(t, 2, final.Result.Passes)
	assert.Equal(t, testutil.SquareContour(), final.Result.Initial)
}
