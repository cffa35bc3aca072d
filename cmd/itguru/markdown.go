package main

import (
	"fmt"
	"os"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// isTTY checks if the current environment has a TTY available
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// terminalWidth returns the usable rendering width.
func terminalWidth() int {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w - 4
		if width > 120 {
			width = 120
		}
	}
	return width
}

// MarkdownRenderer renders markdown answers in the terminal via glamour,
// degrading to plain text when rendering is unavailable.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
}

func NewMarkdownRenderer(plainText bool) (*MarkdownRenderer, error) {
	style := glamour.WithStandardStyle("dark")
	if plainText {
		style = glamour.WithStandardStyle("notty")
	}

	renderer, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(terminalWidth()),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &MarkdownRenderer{renderer: renderer}, nil
}

// Render returns styled terminal output for markdown content; on failure the
// raw content comes back so nothing is ever swallowed.
func (mr *MarkdownRenderer) Render(content string) string {
	if content == "" {
		return ""
	}
	rendered, err := mr.renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// renderTranscriptMarkdown renders REPL transcript blocks. go-term-markdown
// handles partial documents better than glamour, which suits incremental
// chat output.
func renderTranscriptMarkdown(content string) string {
	if content == "" {
		return ""
	}
	return string(markdown.Render(content, terminalWidth(), 0))
}
