package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/yengalvez/a-movies/internal/agent"
)

// wsReadTimeout bounds how long the server waits for the opening message.
const wsReadTimeout = 30 * time.Second

// wsEvent is the wire shape of one streamed agent event.
type wsEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Content   string `json:"content,omitempty"`
	Tool      string `json:"tool,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleChatWS serves GET /agent/chat/ws: the client sends one chat request
// and receives streamed agent events until the done event, then the
// connection closes.
func (g *Gateway) handleChatWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			g.logger.Warn("websocket accept failed", "error", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "closed")

		ctx := r.Context()

		readCtx, cancel := context.WithTimeout(ctx, wsReadTimeout)
		var req chatRequest
		err = wsjson.Read(readCtx, conn, &req)
		cancel()
		if err != nil {
			conn.Close(websocket.StatusPolicyViolation, "expected a chat request")
			return
		}
		if req.Message == "" {
			_ = wsjson.Write(ctx, conn, wsEvent{Type: "error", Error: "message is required"})
			conn.Close(websocket.StatusPolicyViolation, "message is required")
			return
		}

		sessionID, events, err := g.deps.Chat.ChatStream(ctx, req.SessionID, req.Message)
		if err != nil {
			_ = wsjson.Write(ctx, conn, wsEvent{Type: "error", Error: err.Error()})
			conn.Close(websocket.StatusInternalError, "chat failed")
			return
		}

		_ = wsjson.Write(ctx, conn, wsEvent{Type: "session", SessionID: sessionID})

		for ev := range events {
			out := wsEvent{Type: string(ev.Type)}
			switch ev.Type {
			case agent.StreamEventText:
				out.Content = ev.Content
			case agent.StreamEventToolStart, agent.StreamEventToolEnd:
				if ev.ToolCall != nil {
					out.Tool = ev.ToolCall.Name
				}
			case agent.StreamEventError:
				if ev.Err != nil {
					out.Error = ev.Err.Error()
				}
			case agent.StreamEventDone:
				if ev.Final != nil {
					out.Content = ev.Final.Content
				}
			}
			if err := wsjson.Write(ctx, conn, out); err != nil {
				return
			}
		}
		g.metrics.ChatTurns.Inc()

		conn.Close(websocket.StatusNormalClosure, "done")
	}
}
