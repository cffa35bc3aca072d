package security

import (
	"context"
	"regexp"
	"strings"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/config"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
)

// Verdict methods.
const (
	MethodDefaultAllow = "default_allow"
	MethodKeyword      = "keyword"
	MethodLLM          = "llm"
)

// Verdict is the scope guard's decision for one query. Produced once,
// never mutated.
type Verdict struct {
	InScope    bool
	Method     string
	Confidence float64
	Reasoning  string
}

// AmbiguityChecker resolves queries that match both a non-IT pattern and an
// IT anchor. Implemented by a lightweight LLM call; failures must fail open.
type AmbiguityChecker interface {
	CheckScope(ctx context.Context, query string) (bool, error)
}

// GuardOptions configure a Guard.
type GuardOptions struct {
	Policy            config.ScopePolicy
	Enforce           bool
	AllowCareerTopics bool
	LLMCheck          bool
	Checker           AmbiguityChecker
	Logger            logging.Logger
}

// Guard evaluates topic-scope policy over raw query text. It performs no I/O
// except through the optional injected AmbiguityChecker.
type Guard struct {
	policy      config.ScopePolicy
	enforce     bool
	allowCareer bool
	llmCheck    bool
	checker     AmbiguityChecker
	logger      logging.Logger

	singleWordPatterns map[string]*regexp.Regexp
}

// NewGuard builds a Guard, precompiling word-boundary matchers for
// single-word non-IT patterns.
func NewGuard(opts GuardOptions) *Guard {
	g := &Guard{
		policy:             opts.Policy,
		enforce:            opts.Enforce,
		allowCareer:        opts.AllowCareerTopics,
		llmCheck:           opts.LLMCheck,
		checker:            opts.Checker,
		logger:             logging.OrNop(opts.Logger),
		singleWordPatterns: make(map[string]*regexp.Regexp),
	}
	for _, term := range g.policy.NonITPatterns {
		if !strings.Contains(term, " ") {
			g.singleWordPatterns[term] = regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
		}
	}
	return g
}

// EvaluateScope decides whether a query is within the assistant's topic
// domain. It is a three-tier decision: default-allow when no non-IT pattern
// matches, keyword refusal when one matches without an IT anchor, and an
// optional LLM check for ambiguous queries that fails open.
func (g *Guard) EvaluateScope(ctx context.Context, query string) Verdict {
	if !g.enforce {
		return Verdict{
			InScope:    true,
			Method:     MethodDefaultAllow,
			Confidence: 1.0,
			Reasoning:  "Scope enforcement disabled",
		}
	}

	lower := strings.ToLower(strings.TrimSpace(query))

	matchesNonIT := g.matchesNonIT(lower)
	if !matchesNonIT {
		return Verdict{
			InScope:    true,
			Method:     MethodDefaultAllow,
			Confidence: 1.0,
			Reasoning:  "No non-IT topic detected",
		}
	}

	matchesAnchor := containsAny(lower, g.policy.ITAnchors)
	matchesCareer := containsAny(lower, g.policy.ITCareerWhitelist)

	if matchesAnchor {
		if g.llmCheck && g.checker != nil {
			inScope, err := g.checker.CheckScope(ctx, query)
			if err != nil {
				// Fail open: a broken checker must not cause false refusals.
				g.logger.Warn("Ambiguous-scope LLM check failed, allowing query: %v", err)
				return Verdict{
					InScope:    true,
					Method:     MethodDefaultAllow,
					Confidence: 0.5,
					Reasoning:  "Ambiguous topic, scope check unavailable, defaulting to in-scope",
				}
			}
			if !inScope {
				return Verdict{
					Method:     MethodLLM,
					Confidence: 0.9,
					Reasoning:  "LLM scope check classified query as non-IT",
				}
			}
			return Verdict{
				InScope:    true,
				Method:     MethodLLM,
				Confidence: 0.9,
				Reasoning:  "LLM scope check confirmed IT relevance",
			}
		}
		return Verdict{
			InScope:    true,
			Method:     MethodKeyword,
			Confidence: 0.8,
			Reasoning:  "Non-IT topic mentioned alongside an IT term",
		}
	}

	if g.allowCareer && matchesCareer {
		return Verdict{
			InScope:    true,
			Method:     MethodKeyword,
			Confidence: 0.9,
			Reasoning:  "IT career topic allowed by policy",
		}
	}

	return Verdict{
		Method:     MethodKeyword,
		Confidence: 0.95,
		Reasoning:  "Detected non-IT topic per scope policy",
	}
}

// matchesNonIT applies substring matching for multi-word patterns and
// word-boundary matching for single words, so "tax" does not fire on
// "syntax".
func (g *Guard) matchesNonIT(lower string) bool {
	for _, term := range g.policy.NonITPatterns {
		if strings.Contains(term, " ") {
			if strings.Contains(lower, term) {
				return true
			}
			continue
		}
		if re, ok := g.singleWordPatterns[term]; ok && re.MatchString(lower) {
			return true
		}
	}
	return false
}

func containsAny(lower string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
