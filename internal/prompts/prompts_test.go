package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyQueryType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  string
	}{
		{"How to fix a broken DNS resolver", QueryTypeTroubleshooting},
		{"troubleshoot my VPN connection", QueryTypeTroubleshooting},
		{"Docker vs Kubernetes", QueryTypeComparison},
		{"difference between IAM roles and policies", QueryTypeComparison},
		{"What is a reverse proxy?", QueryTypeDefinition},
		{"explain zero trust", QueryTypeDefinition},
		{"latest CVE advisories for OpenSSL", QueryTypeGeneral},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ClassifyQueryType(tc.query), "query: %s", tc.query)
	}
}

func TestSystemPromptVariants(t *testing.T) {
	t.Parallel()

	general := SystemPrompt(QueryTypeGeneral)
	assert.Contains(t, general, "IT-Guru")

	for _, queryType := range []string{QueryTypeTroubleshooting, QueryTypeComparison, QueryTypeDefinition, QueryTypeStepByStep} {
		prompt := SystemPrompt(queryType)
		assert.True(t, strings.HasPrefix(prompt, general), "each variant extends the base prompt")
		assert.Greater(t, len(prompt), len(general))
	}

	assert.Equal(t, general, SystemPrompt("unknown-type"))
}

func TestClassifyIntentEmbedsQuery(t *testing.T) {
	t.Parallel()

	prompt := ClassifyIntent("reset Azure AD password")
	assert.Contains(t, prompt, `"reset Azure AD password"`)
	assert.Contains(t, prompt, "microsoft_learn")
	assert.Contains(t, prompt, "aws_mcp")
	assert.Contains(t, prompt, "exa_search")
	assert.Contains(t, prompt, "ai_general")
}

func TestGenerateFollowupsTruncatesLongAnswer(t *testing.T) {
	t.Parallel()

	answer := strings.Repeat("x", 5000)
	prompt := GenerateFollowups("q", answer, "")
	assert.Less(t, len(prompt), 2500)
	assert.Contains(t, prompt, "JSON array")
}

func TestReformatStyles(t *testing.T) {
	t.Parallel()

	assert.Contains(t, Reformat("a", "step_by_step", ""), "numbered sequence")
	assert.Contains(t, Reformat("a", "troubleshoot", ""), "troubleshooting")
	assert.Contains(t, Reformat("a", "comparison", ""), "pros and cons")
	assert.Contains(t, Reformat("a", "definition", ""), "definition")
	assert.Contains(t, Reformat("a", "unknown", ""), "more clearly")
}
