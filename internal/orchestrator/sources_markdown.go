package orchestrator

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/sources"
)

// IsURLAllowed applies the configured domain allow-list. An empty list
// permits everything; otherwise the URL's host must equal or be a subdomain
// of an allowed domain.
func IsURLAllowed(rawURL string, allowlist []string) bool {
	if len(allowlist) == 0 {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, domain := range allowlist {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// BuildSourcesMarkdown renders the sources footer: a leading blank line, a
// header, then one numbered entry per result with escaped title and label.
// Results with disallowed URLs are dropped.
func BuildSourcesMarkdown(results []sources.Result, allowlist []string) string {
	if len(results) == 0 {
		return ""
	}

	lines := []string{"\n", "**📚 Sources:**"}
	n := 0
	for _, result := range results {
		if !IsURLAllowed(result.URL, allowlist) {
			continue
		}
		n++
		title := result.Title
		if title == "" {
			title = "Untitled"
		}
		title = html.EscapeString(title)
		suffix := ""
		if result.SourceLabel != "" {
			suffix = fmt.Sprintf(" (%s)", html.EscapeString(result.SourceLabel))
		}
		lines = append(lines, fmt.Sprintf("%d. [%s](%s)%s — %s", n, title, result.URL, suffix, result.URL))
	}
	if n == 0 {
		return ""
	}
	return strings.Join(lines, "\n")
}
