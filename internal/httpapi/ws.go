package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

type wsInbound struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type wsOutbound struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Source   string `json:"source,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// handleChatWS runs a text chat session over a websocket. Each user_text
// message goes through the same answer pipeline as POST /query.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var msg wsInbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		if msg.Type != "user_text" {
			if err := conn.WriteJSON(wsOutbound{Type: "error", Error: "unsupported message type"}); err != nil {
				return
			}
			continue
		}
		if strings.TrimSpace(msg.Text) == "" {
			if err := conn.WriteJSON(wsOutbound{Type: "error", Error: "Empty prompt provided."}); err != nil {
				return
			}
			continue
		}

		res := s.engine.Answer(r.Context(), msg.Text, msg.SessionID, "")
		out := wsOutbound{
			Type:     "assistant_text",
			Text:     res.Text,
			Source:   string(res.Source),
			Outcome:  string(res.Outcome),
			AudioURL: s.audioURL(r.Context(), res),
		}
		if err := conn.WriteJSON(out); err != nil {
			return
		}
	}
}
