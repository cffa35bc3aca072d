// Package intent classifies a user query into the source route that should
// supply its context.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/llm"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/prompts"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/security"
)

// Route names match the wire values the classifier model answers with.
type Route string

const (
	RouteMicrosoftDocs    Route = "microsoft_learn"
	RouteAWSDocs          Route = "aws_mcp"
	RouteWebSearch        Route = "exa_search"
	RouteGeneralKnowledge Route = "ai_general"
	RouteOutOfScope       Route = "out_of_scope"
)

// Classification methods reported in the intent explanation.
const (
	MethodLLMClassification = "llm_classification"
	MethodFallbackGreeting  = "fallback_greeting"
	MethodFallbackPattern   = "fallback_pattern"
	MethodFallbackDefault   = "fallback_default"
	MethodScopeGuard        = "scope_guard"
	MethodTimeoutMinimal    = "timeout_minimal"
)

// Intent is the single classification produced for one query.
type Intent struct {
	Route      Route
	Confidence float64
	Method     string
	Reasoning  string
}

var greetingPatterns = []string{
	"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
	"how are you", "what can you do", "help", "thanks", "thank you",
}

var microsoftKeywords = []string{"microsoft", "azure", "office", "windows", "powershell"}
var awsKeywords = []string{"aws", "amazon", "ec2", "s3", "lambda"}

// Classifier decides the route for a query. The scope guard runs first; LLM
// classification (when a client is configured) runs next, and keyword
// fallbacks cover every failure mode.
type Classifier struct {
	guard  *security.Guard
	client llm.Client
	logger logging.Logger
}

func NewClassifier(guard *security.Guard, client llm.Client, logger logging.Logger) *Classifier {
	return &Classifier{
		guard:  guard,
		client: client,
		logger: logging.OrNop(logger),
	}
}

// Classify produces exactly one Intent. It never returns an error: any
// upstream failure degrades to the deterministic fallback classification.
func (c *Classifier) Classify(ctx context.Context, query string) Intent {
	if c.guard != nil {
		verdict := c.guard.EvaluateScope(ctx, query)
		if !verdict.InScope {
			return Intent{
				Route:      RouteOutOfScope,
				Confidence: verdict.Confidence,
				Method:     MethodScopeGuard,
				Reasoning:  verdict.Reasoning,
			}
		}
	}

	if c.client == nil {
		return fallbackClassification(query)
	}

	resp, err := c.client.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompts.ClassifyIntent(query)}},
		MaxTokens:   200,
		Temperature: 0.1,
	})
	if err != nil {
		c.logger.Warn("intent classification call failed, using fallback: %v", err)
		return fallbackClassification(query)
	}

	intent, ok := parseClassification(resp.Content)
	if !ok {
		c.logger.Debug("intent classification returned unparseable content, using fallback")
		return fallbackClassification(query)
	}
	return intent
}

// parseClassification decodes the model's JSON verdict, tolerating markdown
// fences and mildly broken JSON.
func parseClassification(content string) (Intent, bool) {
	cleaned := stripCodeFence(strings.TrimSpace(content))

	var verdict struct {
		Source     string  `json:"source"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}

	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(cleaned)
		if repairErr != nil {
			return Intent{}, false
		}
		if err := json.Unmarshal([]byte(repaired), &verdict); err != nil {
			return Intent{}, false
		}
	}

	route := Route(strings.TrimSpace(verdict.Source))
	switch route {
	case RouteMicrosoftDocs, RouteAWSDocs, RouteWebSearch, RouteGeneralKnowledge:
	default:
		return Intent{}, false
	}

	confidence := verdict.Confidence
	if confidence < 0 || confidence > 1 {
		confidence = 0.5
	}
	reasoning := verdict.Reasoning
	if reasoning == "" {
		reasoning = fmt.Sprintf("Model selected %s", route)
	}

	return Intent{
		Route:      route,
		Confidence: confidence,
		Method:     MethodLLMClassification,
		Reasoning:  reasoning,
	}, true
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// fallbackClassification is the deterministic keyword classifier. Priority:
// greeting > Microsoft keywords > AWS keywords > web search default.
func fallbackClassification(query string) Intent {
	lower := strings.ToLower(strings.TrimSpace(query))

	if len(lower) < 50 && containsAny(lower, greetingPatterns) {
		return Intent{
			Route:      RouteGeneralKnowledge,
			Confidence: 0.9,
			Method:     MethodFallbackGreeting,
			Reasoning:  "Simple greeting or conversational query, no external sources needed",
		}
	}
	if containsAny(lower, microsoftKeywords) {
		return Intent{
			Route:      RouteMicrosoftDocs,
			Confidence: 0.7,
			Method:     MethodFallbackPattern,
			Reasoning:  "Microsoft-related query detected",
		}
	}
	if containsAny(lower, awsKeywords) {
		return Intent{
			Route:      RouteAWSDocs,
			Confidence: 0.7,
			Method:     MethodFallbackPattern,
			Reasoning:  "AWS-related query detected",
		}
	}
	return Intent{
		Route:      RouteWebSearch,
		Confidence: 0.6,
		Method:     MethodFallbackDefault,
		Reasoning:  "General IT query, using real-time search",
	}
}

// ConfidenceExplanation renders the intent for user-facing display.
func (i Intent) ConfidenceExplanation() string {
	switch i.Method {
	case MethodLLMClassification:
		return fmt.Sprintf("AI classified with %.1f%% confidence: %s", i.Confidence*100, i.Reasoning)
	case MethodFallbackGreeting, MethodFallbackPattern, MethodFallbackDefault:
		return fmt.Sprintf("Pattern matching with %.1f%% confidence: %s", i.Confidence*100, i.Reasoning)
	default:
		return fmt.Sprintf("Method: %s, confidence: %.1f%%", i.Method, i.Confidence*100)
	}
}

func containsAny(lower string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
