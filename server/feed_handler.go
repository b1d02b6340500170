package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kristianakila/restbek2/pkg/feed"
)

const (
	EventTypeConnected = "connected"
	EventTypeWin       = "win"
	EventTypeHeartbeat = "heartbeat"
)

// FeedHandler bridges the winner feed service to HTTP routes (SSE + WebSocket).
type FeedHandler struct {
	svc             *feed.Service
	app             *App
	logger          zerolog.Logger
	heartbeatPeriod time.Duration
	upgrader        websocket.Upgrader
}

// NewFeedHandler creates a feed handler.
func NewFeedHandler(app *App, svc *feed.Service) *FeedHandler {
	return &FeedHandler{
		svc:             svc,
		app:             app,
		logger:          app.logger.With().Str("handler", "feed").Logger(),
		heartbeatPeriod: 30 * time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// FeedResponse is a single feed frame sent over SSE or WebSocket.
type FeedResponse struct {
	Type      string           `json:"type"`
	Timestamp int64            `json:"timestamp"`
	Wins      []feed.WinUpdate `json:"wins,omitempty"`
}

// StreamUpdates opens an SSE connection streaming winner updates.
// Route: GET /api/wheel/:tenant_id/feed?limit=20
func (h *FeedHandler) StreamUpdates(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.WriteHeader(http.StatusOK)

	sender := &sseSender{writer: c.Writer}
	h.streamUpdates(c, tenantID, sender, nil)
}

// StreamUpdatesWebSocket opens a WebSocket connection streaming winner updates.
// Route: GET /api/wheel/:tenant_id/feed/ws
func (h *FeedHandler) StreamUpdatesWebSocket(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close() //nolint:errcheck

	writeDeadline := 10 * time.Second
	conn.SetWriteDeadline(time.Now().Add(writeDeadline)) //nolint:errcheck

	done := make(chan struct{})

	// Detect connection close
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(10 * time.Minute)) //nolint:errcheck
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket connection closed unexpectedly")
			} else {
				h.logger.Debug().Err(err).Msg("WebSocket closed normally")
			}
		}
	}()

	// Ping to keep the connection alive
	pingTicker := time.NewTicker(30 * time.Second)
	go func() {
		defer pingTicker.Stop()
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				deadline := time.Now().Add(5 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
					h.logger.Debug().Err(err).Msg("Failed to send ping")
					return
				}
			}
		}
	}()

	sender := &wsSender{
		conn:          conn,
		done:          done,
		logger:        h.logger,
		writeDeadline: writeDeadline,
	}
	h.streamUpdates(c, tenantID, sender, done)
}

// streamUpdates handles the common streaming logic for both SSE and WebSocket.
func (h *FeedHandler) streamUpdates(c *gin.Context, tenantID string, sender messageSender, doneChan <-chan struct{}) {
	ctx := c.Request.Context()
	updates, cancel := h.svc.Listen(ctx)
	defer cancel()

	if err := sender.Send(&FeedResponse{
		Type:      EventTypeConnected,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send connected event, stopping stream")
		return
	}

	// Initial snapshot of recent wins.
	limit := feed.DefaultHistorySize
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if recent := h.svc.Recent(tenantID, limit); len(recent) > 0 {
		if err := sender.Send(&FeedResponse{
			Type:      EventTypeWin,
			Timestamp: time.Now().Unix(),
			Wins:      recent,
		}); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to send initial wins, stopping stream")
			return
		}
	}

	heartbeat := time.NewTicker(h.heartbeatPeriod)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-doneChan:
			h.logger.Debug().Msg("WebSocket connection closed, stopping stream")
			return
		case <-heartbeat.C:
			if err := sender.Send(&FeedResponse{
				Type:      EventTypeHeartbeat,
				Timestamp: time.Now().Unix(),
			}); err != nil {
				h.logger.Warn().Err(err).Msg("Failed to send heartbeat, stopping stream")
				return
			}
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.TenantID != tenantID {
				continue
			}
			if err := sender.Send(&FeedResponse{
				Type:      EventTypeWin,
				Timestamp: time.Now().Unix(),
				Wins:      []feed.WinUpdate{update},
			}); err != nil {
				h.logger.Warn().Err(err).Msg("Failed to send win update, stopping stream")
				return
			}
		}
	}
}

// messageSender interface for sending messages (SSE or WebSocket).
type messageSender interface {
	Send(*FeedResponse) error
}

// sseSender sends messages via SSE.
type sseSender struct {
	writer http.ResponseWriter
}

func (s *sseSender) Send(resp *FeedResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = s.writer.Write([]byte("data: " + string(payload) + "\n\n"))
	if err != nil {
		return err
	}
	s.writer.(http.Flusher).Flush()
	return nil
}

// wsSender sends messages via WebSocket.
type wsSender struct {
	conn          *websocket.Conn
	done          <-chan struct{}
	logger        zerolog.Logger
	writeDeadline time.Duration
}

func (s *wsSender) Send(resp *FeedResponse) error {
	select {
	case <-s.done:
		s.logger.Debug().Str("event_type", resp.Type).Msg("Connection already closed, skipping send")
		return io.EOF
	default:
	}

	deadline := time.Now().Add(s.writeDeadline)
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to set write deadline")
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", resp.Type).Msg("Failed to marshal response")
		return err
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			s.logger.Warn().
				Err(err).
				Str("event_type", resp.Type).
				Msg("WebSocket WriteMessage failed: connection closed (EOF)")
		} else {
			s.logger.Warn().
				Err(err).
				Str("event_type", resp.Type).
				Msg("WebSocket WriteMessage failed")
		}
		return err
	}

	return nil
}
