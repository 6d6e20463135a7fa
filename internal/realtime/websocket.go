package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/amajai/contentloop-ai/internal/domain"
	"github.com/amajai/contentloop-ai/internal/session"
	"github.com/amajai/contentloop-ai/internal/workflow"
)

// Message types.
const (
	TypeSession   = "session"
	TypeFeedback  = "feedback"
	TypeDraft     = "draft"
	TypeCompleted = "completed"
	TypePing      = "ping"
	TypePong      = "pong"
	TypeClose     = "close"
	TypeClosed    = "closed"
	TypeError     = "error"
)

const writeTimeout = 5 * time.Second

// ClientMessage is sent by the browser.
type ClientMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// ServerMessage is sent to the browser.
type ServerMessage struct {
	Type            string        `json:"type"`
	SessionID       string        `json:"session_id,omitempty"`
	GeneratedPost   string        `json:"generated_post,omitempty"`
	Status          domain.Status `json:"status,omitempty"`
	FeedbackHistory []string      `json:"feedback_history,omitempty"`
	Prompt          string        `json:"prompt,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// Handler upgrades /ws/ai-agent/session/{id} and drives SubmitFeedback from
// socket messages.
type Handler struct {
	svc            *session.Service
	hub            *Hub
	originPatterns []string
}

// NewHandler creates a WebSocket handler. allowedOrigins are full origins
// such as "http://localhost:5173" or "*".
func NewHandler(svc *session.Service, hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{
		svc:            svc,
		hub:            hub,
		originPatterns: originPatterns(allowedOrigins),
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/ai-agent/session/{id}", h.ServeHTTP)
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	current, err := h.svc.Get(r.Context(), sessionID)
	if errors.Is(err, session.ErrNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to load session for socket", "session_id", sessionID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Warn("Failed to accept WebSocket", "session_id", sessionID, "error", err)
		return
	}
	defer func() {
		_ = ws.Close(websocket.StatusNormalClosure, "session ended")
	}()

	h.hub.Register(sessionID, ws)
	defer h.hub.Unregister(sessionID, ws)

	ctx := r.Context()
	if err := h.write(ctx, ws, stateMessage(TypeSession, current)); err != nil {
		return
	}

	h.readLoop(ctx, ws, sessionID)
	slog.Debug("Feedback socket ended", "session_id", sessionID)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, sessionID string) {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				slog.Debug("WebSocket read error", "session_id", sessionID, "error", err)
			}
			return
		}

		switch msg.Type {
		case TypeFeedback:
			if !h.handleFeedback(ctx, ws, sessionID, msg.Content) {
				return
			}
		case TypePing:
			if err := h.write(ctx, ws, ServerMessage{Type: TypePong}); err != nil {
				return
			}
		case TypeClose:
			_ = h.write(ctx, ws, ServerMessage{Type: TypeClosed, SessionID: sessionID})
			return
		default:
			if err := h.write(ctx, ws, ServerMessage{
				Type:  TypeError,
				Error: fmt.Sprintf("unknown message type %q", msg.Type),
			}); err != nil {
				return
			}
		}
	}
}

// handleFeedback returns false when the socket should close.
func (h *Handler) handleFeedback(ctx context.Context, ws *websocket.Conn, sessionID, feedback string) bool {
	s, err := h.svc.SubmitFeedback(ctx, sessionID, feedback)
	if err != nil {
		var genErr *workflow.GenerationError
		switch {
		case errors.Is(err, session.ErrNotFound):
			_ = h.write(ctx, ws, ServerMessage{Type: TypeError, SessionID: sessionID, Error: "Session not found"})
			return false
		case errors.As(err, &genErr):
			return h.write(ctx, ws, ServerMessage{
				Type:      TypeError,
				SessionID: sessionID,
				Error:     fmt.Sprintf("Error processing feedback: %v", genErr.Err),
			}) == nil
		default:
			return h.write(ctx, ws, ServerMessage{Type: TypeError, SessionID: sessionID, Error: err.Error()}) == nil
		}
	}

	typ := TypeDraft
	if s.Status == domain.StatusCompleted {
		typ = TypeCompleted
	}
	return h.write(ctx, ws, stateMessage(typ, s)) == nil
}

func (h *Handler) write(ctx context.Context, ws *websocket.Conn, msg ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, ws, msg); err != nil {
		slog.Debug("WebSocket write error", "type", msg.Type, "error", err)
		return err
	}
	return nil
}

func stateMessage(typ string, s *domain.Session) ServerMessage {
	msg := ServerMessage{
		Type:            typ,
		SessionID:       s.ID,
		GeneratedPost:   s.Draft,
		Status:          s.Status,
		FeedbackHistory: s.Feedback,
	}
	if s.Status == domain.StatusWaitingFeedback {
		msg.Prompt = workflow.FeedbackPrompt
	}
	return msg
}

// originPatterns converts configured origins to the host patterns that
// websocket.Accept matches against.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			patterns = append(patterns, o)
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}
