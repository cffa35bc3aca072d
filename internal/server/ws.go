package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/session"
)

// wsInbound is a client chat turn.
type wsInbound struct {
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query"`
	Model     string `json:"model,omitempty"`
}

// wsOutbound is one server frame. Type is "fragment", "done", or "error".
type wsOutbound struct {
	Type    string      `json:"type"`
	Content string      `json:"content,omitempty"`
	Done    *streamDone `json:"done,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// handleWebSocket runs a chat loop over one websocket connection: each
// inbound message is answered with fragment frames and a terminal done frame.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.logger.Info("websocket connected: %s", c.Request.RemoteAddr)
	ctx := c.Request.Context()

	for {
		var req wsInbound
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed: %v", err)
			}
			return
		}

		if strings.TrimSpace(req.Query) == "" {
			if err := conn.WriteJSON(wsOutbound{Type: "error", Error: "query is required"}); err != nil {
				return
			}
			continue
		}

		sess, _, err := s.resolveSession(req.SessionID)
		if err != nil {
			if err := conn.WriteJSON(wsOutbound{Type: "error", Error: err.Error()}); err != nil {
				return
			}
			continue
		}
		if req.Model != "" {
			sess.SelectModel(req.Model)
		}

		sess.AppendMessage(session.RoleUser, req.Query)

		var answer strings.Builder
		var streamErr error
		for fragment := range s.orchestrator.StreamAnswer(ctx, sess, req.Query) {
			if fragment.Err != nil {
				streamErr = fragment.Err
				break
			}
			if fragment.Content == "" {
				continue
			}
			answer.WriteString(fragment.Content)
			if err := conn.WriteJSON(wsOutbound{Type: "fragment", Content: fragment.Content}); err != nil {
				return
			}
		}

		done := streamDone{SessionID: sess.ID(), Answer: answer.String()}
		if streamErr != nil {
			done.Error = streamErr.Error()
		} else {
			stored := answer.String()
			if sourcesMD := sess.LastSourcesMarkdown(); sourcesMD != "" {
				stored += sourcesMD
			}
			sess.AppendMessage(session.RoleAssistant, stored)

			done.Followups = s.orchestrator.GenerateFollowups(ctx, sess, req.Query, answer.String(),
				resultsContextText(sess.LastResults()))
			if !s.config.HideSources {
				done.SourcesMarkdown = sess.LastSourcesMarkdown()
			}
			if !s.config.HideIntent {
				done.Intent = sess.LastIntent()
			}
		}

		if err := conn.WriteJSON(wsOutbound{Type: "done", Done: &done}); err != nil {
			return
		}
	}
}
