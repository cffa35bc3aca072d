package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/session"
)

// streamDone is the payload of the terminal SSE event.
type streamDone struct {
	SessionID       string              `json:"session_id"`
	Answer          string              `json:"answer"`
	SourcesMarkdown string              `json:"sources_markdown,omitempty"`
	Intent          *session.IntentInfo `json:"intent,omitempty"`
	Followups       []string            `json:"followups,omitempty"`
	Error           string              `json:"error,omitempty"`
}

// handleChatStream answers over SSE: `fragment` events carry answer chunks,
// a single `done` event carries the artifacts.
func (s *Server) handleChatStream(c *gin.Context) {
	sess, req, ok := s.bindChatRequest(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, APIResponse{Success: false, Error: "streaming unsupported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	sess.AppendMessage(session.RoleUser, req.Query)

	ctx := c.Request.Context()
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
		writeSSE(c.Writer, "fragment", fragment.Content)
		flusher.Flush()
	}

	done := streamDone{
		SessionID: sess.ID(),
		Answer:    answer.String(),
	}
	if streamErr != nil {
		done.Error = streamErr.Error()
	}

	if streamErr == nil && ctx.Err() == nil {
		stored := answer.String()
		sourcesMD := sess.LastSourcesMarkdown()
		if sourcesMD != "" {
			stored += sourcesMD
		}
		sess.AppendMessage(session.RoleAssistant, stored)

		done.Followups = s.orchestrator.GenerateFollowups(ctx, sess, req.Query, answer.String(),
			resultsContextText(sess.LastResults()))
		if !s.config.HideSources {
			done.SourcesMarkdown = sourcesMD
		}
		if !s.config.HideIntent {
			done.Intent = sess.LastIntent()
		}
	}

	writeSSE(c.Writer, "done", done)
	flusher.Flush()
}

// writeSSE emits one event; payloads are JSON-encoded so newlines survive.
func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
