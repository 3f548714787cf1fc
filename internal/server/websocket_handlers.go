package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/snake/internal/pipeline"
	"github.com/MeKo-Tech/snake/internal/utils"
	"github.com/gorilla/websocket"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketSnakeRequest asks for a relaxation whose passes are streamed back.
type WebSocketSnakeRequest struct {
	Type    string                 `json:"type"` // "snake"
	Image   []byte                 `json:"image,omitempty"`
	Points  string                 `json:"points,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketSnakeResponse is one message of a streamed relaxation.
type WebSocketSnakeResponse struct {
	Type      string              `json:"type"`   // "snake_response", "pass" or "error"
	Status    string              `json:"status"` // "processing", "running", "completed", "error"
	Progress  float64             `json:"progress,omitempty"`
	Pass      *pipeline.PassEvent `json:"pass,omitempty"`
	Result    *pipeline.Result    `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
	ErrorType string              `json:"error_type,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

// snakeWebSocketHandler handles WebSocket connections for streamed relaxation.
func (s *Server) snakeWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection processes messages until the client goes away.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// handleWebSocketMessage processes a single request message.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketSnakeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)

	switch req.Type {
	case "snake", "":
		s.processWebSocketSnake(ctx, conn, req, requestID)
	default:
		s.sendWebSocketError(conn, "invalid_request", "Unsupported request type: "+req.Type)
	}
}

// processWebSocketSnake relaxes the contour and sends one message per pass.
func (s *Server) processWebSocketSnake(ctx context.Context, conn WebSocketConnWriter, req WebSocketSnakeRequest, requestID string) {
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, "invalid_request", "No image data provided")
		return
	}

	img, _, err := utils.DecodeImage(bytes.NewReader(req.Image))
	if err != nil {
		s.sendWebSocketError(conn, "invalid_request", fmt.Sprintf("Failed to decode image: %v", err))
		return
	}

	pts, err := pipeline.ParsePoints(req.Points)
	if err != nil {
		s.sendWebSocketError(conn, "invalid_request", err.Error())
		return
	}

	reqConfig, err := s.extractWebSocketConfig(req.Options)
	if err != nil {
		s.sendWebSocketError(conn, "invalid_request", err.Error())
		return
	}
	cfg, err := s.configForRequest(reqConfig)
	if err != nil {
		s.sendWebSocketError(conn, "invalid_request", err.Error())
		return
	}
	p, err := s.newPipeline(cfg)
	if err != nil {
		s.sendWebSocketError(conn, "invalid_request", fmt.Sprintf("Invalid options: %v", err))
		return
	}

	s.sendWebSocketResponse(conn, WebSocketSnakeResponse{
		Type:      "snake_response",
		Status:    "processing",
		RequestID: requestID,
	})

	maxPasses := float64(cfg.Run.MaxIterations)
	stream := pipeline.ObserverFunc(func(ev pipeline.PassEvent) {
		s.sendWebSocketResponse(conn, WebSocketSnakeResponse{
			Type:      "pass",
			Status:    "running",
			Progress:  float64(ev.Pass) / maxPasses,
			Pass:      &ev,
			RequestID: requestID,
		})
	})

	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	start := time.Now()
	res, err := p.ProcessImageContext(ctx, img, pts, pipeline.MultiObserver{passMetricsObserver("websocket"), stream})
	duration := time.Since(start)

	if err != nil {
		snakeRequestsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendWebSocketError(conn, "processing_error", fmt.Sprintf("Relaxation failed: %v", err))
		return
	}

	recordResultMetrics("websocket", res, duration)
	s.profiler.Record(res)

	s.sendWebSocketResponse(conn, WebSocketSnakeResponse{
		Type:      "snake_response",
		Status:    "completed",
		Progress:  1.0,
		Result:    res,
		RequestID: requestID,
	})
}

// extractWebSocketConfig converts loosely typed JSON options into a RequestConfig.
func (s *Server) extractWebSocketConfig(options map[string]interface{}) (*RequestConfig, error) {
	return parseRequestConfig(func(key string) string {
		v, ok := options[key]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketSnakeResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketSnakeResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
	})
}
