package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/sources"
)

func TestFormatHistoryWindowAndTruncation(t *testing.T) {
	t.Parallel()

	s := New("model-a")
	assert.Equal(t, "", s.FormatHistory())

	for i := 0; i < 4; i++ {
		s.AppendMessage(RoleUser, "old question")
		s.AppendMessage(RoleAssistant, "old answer")
	}
	s.AppendMessage(RoleUser, strings.Repeat("q", 300))
	s.AppendMessage(RoleAssistant, "short answer")

	history := s.FormatHistory()
	lines := strings.Split(history, "\n")
	require.Len(t, lines, 6)

	// Long entries are cut to 200 chars before the ellipsis.
	assert.Equal(t, "Human: "+strings.Repeat("q", 200)+"...", lines[4])
	assert.Equal(t, "Assistant: short answer...", lines[5])
	assert.True(t, strings.HasPrefix(lines[0], "Human: "))
}

func TestSessionIdentityAndModel(t *testing.T) {
	t.Parallel()

	a := New("model-a")
	b := New("model-a")
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "model-a", a.SelectedModel())

	a.SelectModel("model-b")
	assert.Equal(t, "model-b", a.SelectedModel())
}

func TestLastRequestArtifacts(t *testing.T) {
	t.Parallel()

	s := New("m")
	assert.Nil(t, s.LastIntent())
	assert.Empty(t, s.LastResults())

	results := []sources.Result{{Title: "t", URL: "u", SourceLabel: "Exa Search"}}
	s.SetLastRequest(IntentInfo{Method: "llm_classification", Confidence: 0.9, Source: "exa_search"}, results, "**📚 Sources:**")
	s.SetFollowups([]string{"follow one", "follow two"})

	info := s.LastIntent()
	require.NotNil(t, info)
	assert.Equal(t, "exa_search", info.Source)
	assert.False(t, info.MultiSource)
	assert.Equal(t, results, s.LastResults())
	assert.Equal(t, "**📚 Sources:**", s.LastSourcesMarkdown())
	assert.Equal(t, []string{"follow one", "follow two"}, s.LastFollowups())

	// Mutating returned slices must not affect stored state.
	got := s.LastResults()
	got[0].Title = "changed"
	assert.Equal(t, "t", s.LastResults()[0].Title)
}

func TestWelcomeMessagesMarked(t *testing.T) {
	t.Parallel()

	s := New("m")
	s.AppendWelcome("welcome text")
	s.AppendMessage(RoleUser, "real question")

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Welcome)
	assert.False(t, msgs[1].Welcome)
}
