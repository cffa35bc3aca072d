package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/llm"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/prompts"
)

// LLMScopeChecker resolves ambiguous scope matches with a one-word LLM
// verdict. It implements security.AmbiguityChecker.
type LLMScopeChecker struct {
	client llm.Client
}

func NewLLMScopeChecker(client llm.Client) *LLMScopeChecker {
	return &LLMScopeChecker{client: client}
}

// CheckScope asks whether the query is an IT question. Anything other than a
// leading "yes" counts as out of scope; transport errors propagate so the
// guard can fail open.
func (c *LLMScopeChecker) CheckScope(ctx context.Context, query string) (bool, error) {
	if c.client == nil {
		return false, fmt.Errorf("scope checker has no client")
	}
	resp, err := c.client.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompts.CheckScope(query)}},
		MaxTokens:   5,
		Temperature: 0,
	})
	if err != nil {
		return false, err
	}
	verdict := strings.ToLower(strings.TrimSpace(resp.Content))
	return strings.HasPrefix(verdict, "yes"), nil
}
