package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/sources"
)

func TestIsURLAllowed(t *testing.T) {
	t.Parallel()

	allowlist := []string{"learn.microsoft.com", "docs.aws.amazon.com", "owasp.org"}

	tests := []struct {
		name      string
		url       string
		allowlist []string
		want      bool
	}{
		{"empty allowlist permits everything", "https://anything.example.com/x", nil, true},
		{"exact host", "https://learn.microsoft.com/entra", allowlist, true},
		{"subdomain of allowed domain", "https://cheatsheetseries.owasp.org/csrf", allowlist, true},
		{"unrelated host", "https://evil.example.com/learn.microsoft.com", allowlist, false},
		{"suffix without dot boundary", "https://notlearn.microsoft.com.evil.io/x", allowlist, false},
		{"host case is ignored", "https://Learn.Microsoft.COM/x", allowlist, true},
		{"relative url rejected", "/just/a/path", allowlist, false},
		{"garbage rejected", "://nope", allowlist, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsURLAllowed(tc.url, tc.allowlist))
		})
	}
}

func TestBuildSourcesMarkdown(t *testing.T) {
	t.Parallel()

	results := []sources.Result{
		{Title: "Configure Entra ID", URL: "https://learn.microsoft.com/entra", SourceLabel: sources.LabelMicrosoftLearn},
		{Title: "VPC Peering", URL: "https://docs.aws.amazon.com/vpc/peering", SourceLabel: sources.LabelAWSDocs},
	}

	got := BuildSourcesMarkdown(results, nil)

	want := "\n\n**📚 Sources:**\n" +
		"1. [Configure Entra ID](https://learn.microsoft.com/entra) (Microsoft Learn) — https://learn.microsoft.com/entra\n" +
		"2. [VPC Peering](https://docs.aws.amazon.com/vpc/peering) (AWS Documentation) — https://docs.aws.amazon.com/vpc/peering"
	assert.Equal(t, want, got)
}

func TestBuildSourcesMarkdownEscapesTitles(t *testing.T) {
	t.Parallel()

	results := []sources.Result{
		{Title: `<script>alert("x")</script>`, URL: "https://example.com/a", SourceLabel: "Exa Search"},
	}

	got := BuildSourcesMarkdown(results, nil)

	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "&lt;script&gt;")
}

func TestBuildSourcesMarkdownFiltersAndRenumbers(t *testing.T) {
	t.Parallel()

	results := []sources.Result{
		{Title: "Blocked", URL: "https://sketchy.example.net/a", SourceLabel: "Exa Search"},
		{Title: "Kept", URL: "https://learn.microsoft.com/b", SourceLabel: sources.LabelMicrosoftLearn},
	}

	got := BuildSourcesMarkdown(results, []string{"learn.microsoft.com"})

	assert.NotContains(t, got, "Blocked")
	assert.Contains(t, got, "1. [Kept]")
	assert.NotContains(t, got, "2. ")
}

func TestBuildSourcesMarkdownEdgeCases(t *testing.T) {
	t.Parallel()

	assert.Empty(t, BuildSourcesMarkdown(nil, nil))

	allFiltered := []sources.Result{{Title: "X", URL: "https://nope.example.com/x"}}
	assert.Empty(t, BuildSourcesMarkdown(allFiltered, []string{"learn.microsoft.com"}))

	untitled := BuildSourcesMarkdown([]sources.Result{{URL: "https://example.com/u"}}, nil)
	assert.Contains(t, untitled, "[Untitled](https://example.com/u)")
	assert.Contains(t, untitled, " — https://example.com/u")
	assert.NotContains(t, untitled, "()")
}
