// Package orchestrator turns a routed query into a streamed or blocking
// answer: prompt assembly, completion, follow-up generation, and the
// per-request session artifacts.
package orchestrator

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	iterrors "github.com/leroylim/it-guru-assistant-chatbot/internal/errors"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/intent"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/llm"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/observability"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/prompts"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/router"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/security"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/session"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/token"
)

// defaultContextTimeout bounds the routing stage; on expiry the answer
// proceeds with no retrieved context.
const defaultContextTimeout = 8 * time.Second

// contextTokenBudget caps the retrieved-context block so long excerpts and
// history never crowd out the answer budget.
const contextTokenBudget = 2000

const missingKeyMessage = "⚠️ OpenRouter API key not configured. Please add your API key to continue."

// Fragment is one unit of a streamed answer. The first fragment of every
// stream is an empty heartbeat. A non-nil Err is always the final fragment;
// any content streamed before it stands.
type Fragment struct {
	Content string
	Err     error
}

// ClientProvider resolves the completion client for a model. Implemented by
// llm.Factory.
type ClientProvider interface {
	GetClient(model string, config llm.Config) (llm.Client, error)
}

// Options configure an Orchestrator.
type Options struct {
	Router         *router.Router
	Clients        ClientProvider
	ClientConfig   llm.Config
	DefaultModel   string
	MaxTokens      int
	Temperature    float64
	URLAllowlist   []string
	ContextTimeout time.Duration
	Logger         logging.Logger
	Metrics        *observability.MetricsCollector
}

// Orchestrator owns answer generation for one configured backend.
type Orchestrator struct {
	router         *router.Router
	clients        ClientProvider
	clientConfig   llm.Config
	defaultModel   string
	maxTokens      int
	temperature    float64
	urlAllowlist   []string
	contextTimeout time.Duration
	logger         logging.Logger
	metrics        *observability.MetricsCollector
}

func New(opts Options) *Orchestrator {
	timeout := opts.ContextTimeout
	if timeout <= 0 {
		timeout = defaultContextTimeout
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	return &Orchestrator{
		router:         opts.Router,
		clients:        opts.Clients,
		clientConfig:   opts.ClientConfig,
		defaultModel:   opts.DefaultModel,
		maxTokens:      maxTokens,
		temperature:    opts.Temperature,
		urlAllowlist:   opts.URLAllowlist,
		contextTimeout: timeout,
		logger:         logging.OrNop(opts.Logger),
		metrics:        opts.Metrics,
	}
}

// StreamAnswer produces the answer as a fragment channel. The channel is
// closed by the producing goroutine; abandoning it cancels nothing by
// itself, so callers should cancel ctx when walking away. Transcript
// bookkeeping is the caller's job; the orchestrator only writes the
// per-request artifacts into sess.
func (o *Orchestrator) StreamAnswer(ctx context.Context, sess *session.SessionContext, query string) <-chan Fragment {
	fragments := make(chan Fragment, 16)

	go func() {
		defer close(fragments)

		ctx, span := observability.StartSpan(ctx, observability.SpanChatAnswer)
		defer span.End()

		o.metrics.IncrementActiveStreams(ctx)
		defer o.metrics.DecrementActiveStreams(ctx)

		emit := func(f Fragment) bool {
			select {
			case fragments <- f:
				return true
			case <-ctx.Done():
				return false
			}
		}

		// Heartbeat: lets the UI show activity before routing finishes.
		if !emit(Fragment{}) {
			return
		}

		client, err := o.clientFor(sess)
		if err != nil {
			o.logger.Warn("no completion client available: %v", err)
			span.SetAttributes(observability.ErrorAttrs(err)...)
			emit(Fragment{Content: missingKeyMessage})
			o.writeArtifacts(sess, router.EnhancedContext{}, "")
			return
		}

		enhanced := o.gatherContext(ctx, query)

		if enhanced.Intent.Route == intent.RouteOutOfScope {
			span.SetAttributes(observability.StatusAttrs("out_of_scope")...)
			o.writeArtifacts(sess, enhanced, "")
			emit(Fragment{Content: enhanced.ContextText})
			return
		}

		sourcesMD := BuildSourcesMarkdown(enhanced.Results, o.urlAllowlist)
		o.writeArtifacts(sess, enhanced, sourcesMD)

		messages := o.buildMessages(ctx, query, enhanced, sess.FormatHistory())

		started := time.Now()
		llmCtx, llmSpan := observability.StartSpan(ctx, observability.SpanLLMGenerate)
		resp, err := client.StreamComplete(llmCtx, llm.CompletionRequest{
			Messages:    messages,
			MaxTokens:   o.maxTokens,
			Temperature: o.temperature,
		}, llm.StreamCallbacks{
			OnContentDelta: func(delta llm.ContentDelta) {
				if delta.Final || delta.Delta == "" {
					return
				}
				emit(Fragment{Content: delta.Delta})
			},
		})
		if err != nil {
			llmSpan.SetAttributes(observability.ErrorAttrs(err)...)
			llmSpan.End()
			o.metrics.RecordLLMRequest(ctx, client.Model(), "error", time.Since(started), 0, 0)
			emit(Fragment{Err: err})
			return
		}
		llmSpan.SetAttributes(observability.LLMAttrs(client.Model(),
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens)...)
		llmSpan.End()
		o.metrics.RecordLLMRequest(ctx, client.Model(), "ok", time.Since(started),
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}()

	return fragments
}

// AnswerQuery is the blocking variant: it drains the stream and returns the
// final answer plus the rendered sources block.
func (o *Orchestrator) AnswerQuery(ctx context.Context, sess *session.SessionContext, query string) (string, string, error) {
	var answer strings.Builder
	for fragment := range o.StreamAnswer(ctx, sess, query) {
		if fragment.Err != nil {
			return answer.String(), sess.LastSourcesMarkdown(), fragment.Err
		}
		answer.WriteString(fragment.Content)
	}
	if err := ctx.Err(); err != nil {
		return answer.String(), sess.LastSourcesMarkdown(), err
	}
	return answer.String(), sess.LastSourcesMarkdown(), nil
}

// gatherContext runs the router under the context timeout. On expiry the
// answer proceeds with an empty context.
func (o *Orchestrator) gatherContext(ctx context.Context, query string) router.EnhancedContext {
	ctx, span := observability.StartSpan(ctx, observability.SpanSourceSearch)
	defer span.End()

	routeCtx, cancel := context.WithTimeout(ctx, o.contextTimeout)
	defer cancel()

	done := make(chan router.EnhancedContext, 1)
	go func() {
		done <- o.router.GetEnhancedContext(routeCtx, query)
	}()

	select {
	case enhanced := <-done:
		span.SetAttributes(observability.RouteAttrs(string(enhanced.Intent.Route), enhanced.Intent.Method)...)
		return enhanced
	case <-routeCtx.Done():
		span.SetAttributes(observability.StatusAttrs("timeout")...)
		o.logger.Warn("context gathering timed out after %v, answering without sources", o.contextTimeout)
		return router.EnhancedContext{Intent: intent.Intent{
			Route:      intent.RouteGeneralKnowledge,
			Confidence: 0,
			Method:     intent.MethodTimeoutMinimal,
			Reasoning:  "Context gathering timed out",
		}}
	}
}

// buildMessages assembles the completion message set: query-type system
// prompt, guardrail, context block, then the (possibly wrapped) user query.
func (o *Orchestrator) buildMessages(ctx context.Context, query string, enhanced router.EnhancedContext, history string) []llm.Message {
	queryType := prompts.ClassifyQueryType(query)

	var contextParts []string
	if enhanced.ContextText != "" {
		contextParts = append(contextParts, "Real-time Information:\n"+enhanced.ContextText)
	}
	if history != "" {
		contextParts = append(contextParts, "Previous conversation:\n"+history)
	}
	allContext := token.Truncate(strings.Join(contextParts, "\n\n"), contextTokenBudget)

	userContent := query
	if detected, patterns := security.DetectInjection(query); detected {
		for _, patternID := range patterns {
			o.metrics.RecordInjectionDetected(ctx, patternID)
		}
		o.logger.Info("prompt injection heuristics fired: %s", strings.Join(patterns, ", "))
		userContent = security.VerbatimWrap(query)
	}

	return []llm.Message{
		{Role: "system", Content: prompts.SystemPrompt(queryType)},
		{Role: "system", Content: prompts.GuardrailInstruction},
		{Role: "system", Content: "Context: " + allContext},
		{Role: "user", Content: userContent},
	}
}

func (o *Orchestrator) clientFor(sess *session.SessionContext) (llm.Client, error) {
	model := sess.SelectedModel()
	if model == "" {
		model = o.defaultModel
	}
	if o.clientConfig.APIKey == "" {
		return nil, iterrors.NewPermanentError(nil, "OpenRouter API key not configured")
	}
	return o.clients.GetClient(model, o.clientConfig)
}

func (o *Orchestrator) writeArtifacts(sess *session.SessionContext, enhanced router.EnhancedContext, sourcesMD string) {
	sess.SetLastRequest(session.IntentInfo{
		Method:      enhanced.Intent.Method,
		Confidence:  enhanced.Intent.Confidence,
		Source:      string(enhanced.Intent.Route),
		Reasoning:   enhanced.Intent.Reasoning,
		MultiSource: enhanced.MultiSource,
	}, enhanced.Results, sourcesMD)
}

// GenerateFollowups asks for at most three short follow-up questions. It
// never blocks an answer: any failure returns an empty list.
func (o *Orchestrator) GenerateFollowups(ctx context.Context, sess *session.SessionContext, query, answer, contextText string) []string {
	client, err := o.clientFor(sess)
	if err != nil {
		return nil
	}

	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompts.GenerateFollowups(query, answer, contextText)}},
		MaxTokens:   150,
		Temperature: 0.4,
	})
	if err != nil {
		o.logger.Debug("follow-up generation failed: %v", err)
		return nil
	}

	followups := parseFollowups(resp.Content)
	sess.SetFollowups(followups)
	return followups
}

func parseFollowups(content string) []string {
	cleaned := strings.TrimSpace(content)
	if idx := strings.Index(cleaned, "["); idx >= 0 {
		if end := strings.LastIndex(cleaned, "]"); end > idx {
			cleaned = cleaned[idx : end+1]
		}
	}

	var raw []string
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(cleaned)
		if repairErr != nil {
			return nil
		}
		if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
			return nil
		}
	}

	followups := make([]string, 0, 3)
	for _, suggestion := range raw {
		suggestion = strings.TrimSpace(suggestion)
		if suggestion == "" {
			continue
		}
		followups = append(followups, suggestion)
		if len(followups) == 3 {
			break
		}
	}
	return followups
}

// Reformat re-renders an existing answer in another style.
func (o *Orchestrator) Reformat(ctx context.Context, sess *session.SessionContext, answer, style, contextText string) (string, error) {
	client, err := o.clientFor(sess)
	if err != nil {
		return "", err
	}

	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: prompts.SystemPrompt(style)},
			{Role: "user", Content: prompts.Reformat(answer, style, contextText)},
		},
		MaxTokens:   o.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}
