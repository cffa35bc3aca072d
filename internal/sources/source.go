// Package sources provides the documentation and web search clients the
// router dispatches queries to. Every client degrades failures to an empty
// result list so a broken upstream never breaks answer generation.
package sources

import "context"

// Source labels rendered in context blocks and the sources footer.
const (
	LabelMicrosoftLearn = "Microsoft Learn"
	LabelAWSDocs        = "AWS Documentation"
	LabelExaSearch      = "Exa Search"
	LabelNVD            = "NIST NVD"
)

// Result is one retrieved reference. Excerpt is already truncated for
// display.
type Result struct {
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt"`
	URL         string `json:"url"`
	SourceLabel string `json:"source"`
}

// Source searches one upstream for context material. Implementations never
// return errors: any failure yields an empty slice and the pipeline carries
// on without that context.
type Source interface {
	SearchContent(ctx context.Context, query string, maxResults int) []Result
}
