package export

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/session"
)

func newExportSession() *session.SessionContext {
	sess := session.New("google/gemini-2.5-flash-lite")
	sess.AppendWelcome("👋 Welcome!")
	sess.AppendMessage(session.RoleUser, "how do I rotate IAM access keys")
	sess.AppendMessage(session.RoleAssistant, "Create a second key, switch, then delete the old one.\n\n**📚 Sources:**\n1. [IAM keys](https://docs.aws.amazon.com/iam) (AWS Documentation) — https://docs.aws.amazon.com/iam")
	return sess
}

func TestFromSessionSkipsWelcome(t *testing.T) {
	t.Parallel()

	transcript := FromSession(newExportSession())

	require.Len(t, transcript.Messages, 2)
	assert.Equal(t, session.RoleUser, transcript.Messages[0].Role)
	assert.Equal(t, "google/gemini-2.5-flash-lite", transcript.Model)
	assert.NotEmpty(t, transcript.SessionID)
	assert.False(t, transcript.ExportedAt.IsZero())
}

func TestTranscriptJSON(t *testing.T) {
	t.Parallel()

	raw, err := FromSession(newExportSession()).JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Contains(t, decoded, "exported_at")
	assert.Contains(t, decoded, "model")
	assert.Contains(t, decoded, "messages")

	messages, ok := decoded["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	first, ok := messages[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user", first["role"])
	assert.NotContains(t, first, "is_welcome", "welcome flag is omitempty")
}

func TestTranscriptMarkdown(t *testing.T) {
	t.Parallel()

	md := FromSession(newExportSession()).Markdown()

	assert.Contains(t, md, "# IT Guru Chat Transcript")
	assert.Contains(t, md, "- Model: google/gemini-2.5-flash-lite")
	assert.Contains(t, md, "## You")
	assert.Contains(t, md, "how do I rotate IAM access keys")
	assert.Contains(t, md, "## Assistant")
	assert.Contains(t, md, "**📚 Sources:**")
	assert.NotContains(t, md, "👋 Welcome!")
}

func TestTranscriptMarkdownEmptySession(t *testing.T) {
	t.Parallel()

	md := FromSession(session.New("m")).Markdown()

	assert.Contains(t, md, "# IT Guru Chat Transcript")
	assert.NotContains(t, md, "## ")
}
