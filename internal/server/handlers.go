package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/export"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/session"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/sources"
)

// APIResponse is the uniform JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ChatRequest is the body of /api/chat and /api/chat/stream.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query"`
	Model     string `json:"model,omitempty"`
}

// ChatResponse is the blocking chat answer.
type ChatResponse struct {
	SessionID       string              `json:"session_id"`
	Answer          string              `json:"answer"`
	SourcesMarkdown string              `json:"sources_markdown,omitempty"`
	Intent          *session.IntentInfo `json:"intent,omitempty"`
	Followups       []string            `json:"followups,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data: gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		},
	})
}

// bindChatRequest validates the shared chat request shape and resolves the
// session, answering the error responses itself.
func (s *Server) bindChatRequest(c *gin.Context) (*session.SessionContext, ChatRequest, bool) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: fmt.Sprintf("invalid request: %v", err)})
		return nil, req, false
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "query is required"})
		return nil, req, false
	}

	sess, _, err := s.resolveSession(req.SessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, APIResponse{Success: false, Error: err.Error()})
		return nil, req, false
	}
	if req.Model != "" {
		sess.SelectModel(req.Model)
	}
	return sess, req, true
}

func (s *Server) handleChat(c *gin.Context) {
	sess, req, ok := s.bindChatRequest(c)
	if !ok {
		return
	}

	sess.AppendMessage(session.RoleUser, req.Query)

	answer, sourcesMD, err := s.orchestrator.AnswerQuery(c.Request.Context(), sess, req.Query)
	if err != nil {
		c.JSON(http.StatusBadGateway, APIResponse{Success: false, Error: fmt.Sprintf("completion failed: %v", err)})
		return
	}

	stored := answer
	if sourcesMD != "" {
		stored += sourcesMD
	}
	sess.AppendMessage(session.RoleAssistant, stored)

	followups := s.orchestrator.GenerateFollowups(c.Request.Context(), sess, req.Query, answer,
		resultsContextText(sess.LastResults()))

	resp := ChatResponse{
		SessionID: sess.ID(),
		Answer:    answer,
		Followups: followups,
	}
	if !s.config.HideSources {
		resp.SourcesMarkdown = sourcesMD
	}
	if !s.config.HideIntent {
		resp.Intent = sess.LastIntent()
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleModels(c *gin.Context) {
	listing := s.catalog.Models(c.Request.Context())
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data: gin.H{
			"models":     listing.Models,
			"tiers":      listing.Tiered(),
			"fetched_at": listing.FetchedAt,
			"fallback":   listing.Fallback,
		},
	})
}

func (s *Server) handleExport(c *gin.Context) {
	sess, ok := s.lookupSession(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, APIResponse{Success: false, Error: "unknown session"})
		return
	}

	transcript := export.FromSession(sess)
	switch c.DefaultQuery("format", "json") {
	case "markdown", "md":
		c.Header("Content-Disposition", `attachment; filename="transcript.md"`)
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(transcript.Markdown()))
	case "json":
		raw, err := transcript.JSON()
		if err != nil {
			c.JSON(http.StatusInternalServerError, APIResponse{Success: false, Error: err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json", raw)
	default:
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "format must be json or markdown"})
	}
}

// resultsContextText renders retrieved results as the compact context handed
// to follow-up generation.
func resultsContextText(results []sources.Result) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, r.Title+": "+r.URL)
	}
	return strings.Join(lines, "\n")
}
