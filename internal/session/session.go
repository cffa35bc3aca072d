// Package session holds per-conversation state: the transcript, the selected
// model, and the artifacts of the most recent answer.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/sources"
)

// Roles used in the transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	// historyWindow is how many trailing messages feed the conversation
	// summary (three exchanges).
	historyWindow = 6
	// historyEntryLimit truncates each summarized message.
	historyEntryLimit = 200
)

// Message is one transcript entry.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// Welcome marks the canned greeting so exports and follow-up generation
	// can skip it.
	Welcome bool `json:"is_welcome,omitempty"`
}

// IntentInfo is the per-request intent explanation shown to the user.
type IntentInfo struct {
	Method      string  `json:"method"`
	Confidence  float64 `json:"confidence"`
	Source      string  `json:"source"`
	Reasoning   string  `json:"reasoning"`
	MultiSource bool    `json:"multi_source"`
}

// SessionContext is owned by the caller (CLI command or HTTP handler) and
// written once per request by the orchestrator. All methods are safe for
// concurrent use.
type SessionContext struct {
	mu sync.RWMutex

	id            string
	selectedModel string
	createdAt     time.Time
	messages      []Message

	lastIntent    *IntentInfo
	lastResults   []sources.Result
	lastSourcesMD string
	lastFollowups []string
}

func New(selectedModel string) *SessionContext {
	return &SessionContext{
		id:            uuid.NewString(),
		selectedModel: selectedModel,
		createdAt:     time.Now(),
	}
}

func (s *SessionContext) ID() string {
	return s.id
}

func (s *SessionContext) CreatedAt() time.Time {
	return s.createdAt
}

// SelectedModel returns the model this session completes with.
func (s *SessionContext) SelectedModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedModel
}

// SelectModel switches the session to another model.
func (s *SessionContext) SelectModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedModel = model
}

// AppendMessage records one transcript entry.
func (s *SessionContext) AppendMessage(role, content string) {
	s.appendMessage(Message{Role: role, Content: content, Timestamp: time.Now()})
}

// AppendWelcome records the canned greeting.
func (s *SessionContext) AppendWelcome(content string) {
	s.appendMessage(Message{Role: RoleAssistant, Content: content, Timestamp: time.Now(), Welcome: true})
}

func (s *SessionContext) appendMessage(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// Messages returns a copy of the transcript.
func (s *SessionContext) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// FormatHistory renders the trailing window of the transcript for the
// completion context: last six messages, each truncated to 200 chars, with
// Human:/Assistant: prefixes.
func (s *SessionContext) FormatHistory() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.messages) == 0 {
		return ""
	}

	start := len(s.messages) - historyWindow
	if start < 0 {
		start = 0
	}

	parts := make([]string, 0, historyWindow)
	for _, msg := range s.messages[start:] {
		role := "Assistant"
		if msg.Role == RoleUser {
			role = "Human"
		}
		parts = append(parts, role+": "+truncateEntry(msg.Content)+"...")
	}
	return strings.Join(parts, "\n")
}

func truncateEntry(content string) string {
	runes := []rune(content)
	if len(runes) <= historyEntryLimit {
		return content
	}
	return string(runes[:historyEntryLimit])
}

// SetLastRequest stores the artifacts of the most recent answer.
func (s *SessionContext) SetLastRequest(info IntentInfo, results []sources.Result, sourcesMarkdown string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	infoCopy := info
	s.lastIntent = &infoCopy
	s.lastResults = append([]sources.Result(nil), results...)
	s.lastSourcesMD = sourcesMarkdown
}

// SetFollowups stores the follow-up suggestions for the last answer.
func (s *SessionContext) SetFollowups(followups []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFollowups = append([]string(nil), followups...)
}

// LastIntent returns the last intent explanation, or nil before the first
// answer.
func (s *SessionContext) LastIntent() *IntentInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastIntent == nil {
		return nil
	}
	infoCopy := *s.lastIntent
	return &infoCopy
}

// LastResults returns the ordered results of the last answer.
func (s *SessionContext) LastResults() []sources.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]sources.Result(nil), s.lastResults...)
}

// LastSourcesMarkdown returns the rendered sources block of the last answer.
func (s *SessionContext) LastSourcesMarkdown() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSourcesMD
}

// LastFollowups returns the follow-up suggestions for the last answer.
func (s *SessionContext) LastFollowups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.lastFollowups...)
}
