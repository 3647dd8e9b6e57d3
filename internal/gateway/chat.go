package gateway

import (
	"errors"
	"net/http"

	"github.com/yengalvez/a-movies/internal/assistant"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// handleChat serves POST /agent/chat: one synchronous conversation turn.
func (g *Gateway) handleChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := decodeBody(r, &req); err != nil {
			g.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		if req.Message == "" {
			g.writeError(w, http.StatusBadRequest, "message is required", "")
			return
		}

		reply, err := g.deps.Chat.Chat(r.Context(), req.SessionID, req.Message)
		if err != nil {
			if errors.Is(err, assistant.ErrEmptyMessage) {
				g.writeError(w, http.StatusBadRequest, "message is required", "")
				return
			}
			g.writeError(w, http.StatusInternalServerError, "chat failed", err.Error())
			return
		}
		g.metrics.ChatTurns.Inc()

		g.writeJSON(w, http.StatusOK, map[string]any{
			"ok":        true,
			"sessionId": reply.SessionID,
			"reply":     reply.Content,
			"usage":     reply.Usage,
		})
	}
}
