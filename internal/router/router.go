// Package router runs the per-query context pipeline: scope check,
// classification, single-source dispatch, and context assembly.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/intent"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/observability"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/sources"
)

// generalKnowledgeContext marks a conversational query that needs no sources.
const generalKnowledgeContext = "Using AI general knowledge for conversational response."

// EnhancedContext is the single immutable product of one routing pass.
type EnhancedContext struct {
	Intent      intent.Intent
	Results     []sources.Result
	ContextText string
	// MultiSource is retained for the intent explanation but stays false:
	// dispatch is single-route.
	MultiSource bool
}

// Router orchestrates classifier and source dispatch.
type Router struct {
	classifier    *intent.Classifier
	dispatch      map[intent.Route]sources.Source
	maxResults    int
	outOfScopeMsg string
	logger        logging.Logger
	metrics       *observability.MetricsCollector
}

// Options configure a Router.
type Options struct {
	Classifier *intent.Classifier
	// Dispatch maps a route to the source that serves it. Routes without an
	// entry resolve to no context.
	Dispatch   map[intent.Route]sources.Source
	MaxResults int
	// OutOfScopeMessage is the refusal text placed in ContextText.
	OutOfScopeMessage string
	Logger            logging.Logger
	Metrics           *observability.MetricsCollector
}

func New(opts Options) *Router {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 3
	}
	return &Router{
		classifier:    opts.Classifier,
		dispatch:      opts.Dispatch,
		maxResults:    maxResults,
		outOfScopeMsg: opts.OutOfScopeMessage,
		logger:        logging.OrNop(opts.Logger),
		metrics:       opts.Metrics,
	}
}

// GetEnhancedContext classifies the query and gathers context from at most
// one source. It never returns an error: every failure mode degrades to an
// EnhancedContext with fewer results.
func (r *Router) GetEnhancedContext(ctx context.Context, query string) EnhancedContext {
	classified := r.classifier.Classify(ctx, query)
	r.metrics.RecordChatRequest(ctx, string(classified.Route), classified.Method)

	enhanced := EnhancedContext{Intent: classified}

	switch classified.Route {
	case intent.RouteOutOfScope:
		r.metrics.RecordScopeRefusal(ctx)
		enhanced.ContextText = r.outOfScopeMsg
		return enhanced

	case intent.RouteGeneralKnowledge:
		enhanced.ContextText = generalKnowledgeContext
		return enhanced
	}

	source, ok := r.dispatch[classified.Route]
	if !ok || source == nil {
		r.logger.Warn("no source registered for route %s", classified.Route)
		return enhanced
	}

	enhanced.Results = r.searchSafely(ctx, source, query)
	enhanced.ContextText = FormatContextBlocks(enhanced.Results)
	return enhanced
}

// searchSafely absorbs panics at the dispatch boundary; a misbehaving client
// degrades to no results.
func (r *Router) searchSafely(ctx context.Context, source sources.Source, query string) (results []sources.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("source dispatch panicked: %v", rec)
			results = nil
		}
	}()
	return source.SearchContent(ctx, query, r.maxResults)
}

// FormatContextBlocks renders results as the context text handed to the
// completion backend.
func FormatContextBlocks(results []sources.Result) string {
	if len(results) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(results))
	for _, result := range results {
		blocks = append(blocks, fmt.Sprintf("**%s** (%s)\n%s\nURL: %s\n",
			result.Title, result.SourceLabel, result.Excerpt, result.URL))
	}
	return strings.Join(blocks, "\n")
}

// IsGeneralKnowledgeContext reports whether the context text is the
// conversational placeholder rather than retrieved material.
func IsGeneralKnowledgeContext(text string) bool {
	return text == generalKnowledgeContext
}
