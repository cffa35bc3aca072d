// Package export renders a chat transcript for download, as Markdown or
// JSON.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/session"
)

// Transcript is the JSON export schema.
type Transcript struct {
	ExportedAt time.Time         `json:"exported_at"`
	SessionID  string            `json:"session_id"`
	Model      string            `json:"model"`
	Messages   []session.Message `json:"messages"`
}

// FromSession snapshots a session into an exportable transcript. The canned
// welcome message is skipped.
func FromSession(sess *session.SessionContext) Transcript {
	var messages []session.Message
	for _, msg := range sess.Messages() {
		if msg.Welcome {
			continue
		}
		messages = append(messages, msg)
	}
	return Transcript{
		ExportedAt: time.Now().UTC(),
		SessionID:  sess.ID(),
		Model:      sess.SelectedModel(),
		Messages:   messages,
	}
}

// JSON renders the transcript as indented JSON.
func (t Transcript) JSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// Markdown renders the transcript as a readable document: title, export
// metadata, then one section per message.
func (t Transcript) Markdown() string {
	var b strings.Builder

	b.WriteString("# IT Guru Chat Transcript\n\n")
	fmt.Fprintf(&b, "- Exported: %s\n", t.ExportedAt.Format(time.RFC3339))
	if t.Model != "" {
		fmt.Fprintf(&b, "- Model: %s\n", t.Model)
	}
	if t.SessionID != "" {
		fmt.Fprintf(&b, "- Session: %s\n", t.SessionID)
	}
	b.WriteString("\n---\n")

	for _, msg := range t.Messages {
		label := "Assistant"
		if msg.Role == session.RoleUser {
			label = "You"
		}
		fmt.Fprintf(&b, "\n## %s", label)
		if !msg.Timestamp.IsZero() {
			fmt.Fprintf(&b, " — %s", msg.Timestamp.Format("2006-01-02 15:04"))
		}
		b.WriteString("\n\n")
		b.WriteString(strings.TrimRight(msg.Content, "\n"))
		b.WriteString("\n")
	}

	return b.String()
}
