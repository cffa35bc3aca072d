package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/config"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/llm"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/security"
)

func testGuard() *security.Guard {
	return security.NewGuard(security.GuardOptions{
		Policy:            config.DefaultScopePolicy(),
		Enforce:           true,
		AllowCareerTopics: true,
	})
}

func TestClassifyOutOfScopeBeforeLLM(t *testing.T) {
	t.Parallel()

	client := llm.NewMockClient("m", llm.MockResponse{Content: `{"source":"exa_search","confidence":0.9,"reasoning":"x"}`})
	classifier := NewClassifier(testGuard(), client, logging.Nop())

	intent := classifier.Classify(context.Background(), "best pizza topping recipe for a party")
	assert.Equal(t, RouteOutOfScope, intent.Route)
	assert.Equal(t, MethodScopeGuard, intent.Method)
	assert.InDelta(t, 0.95, intent.Confidence, 0.001)
	// The guard must short-circuit: no classification call.
	assert.Empty(t, client.Calls())
}

func TestClassifyUsesLLMVerdict(t *testing.T) {
	t.Parallel()

	client := llm.NewMockClient("m", llm.MockResponse{
		Content: `{"source":"microsoft_learn","confidence":0.92,"reasoning":"Azure AD is a Microsoft product"}`,
	})
	classifier := NewClassifier(testGuard(), client, logging.Nop())

	intent := classifier.Classify(context.Background(), "how do I configure Azure AD conditional access")
	assert.Equal(t, RouteMicrosoftDocs, intent.Route)
	assert.Equal(t, MethodLLMClassification, intent.Method)
	assert.InDelta(t, 0.92, intent.Confidence, 0.001)
	assert.Equal(t, "Azure AD is a Microsoft product", intent.Reasoning)
}

func TestClassifyRepairsSloppyJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    Route
	}{
		{"markdown fence", "```json\n{\"source\":\"aws_mcp\",\"confidence\":0.8,\"reasoning\":\"r\"}\n```", RouteAWSDocs},
		{"trailing comma", `{"source":"exa_search","confidence":0.8,"reasoning":"r",}`, RouteWebSearch},
		{"single quotes", `{'source': 'ai_general', 'confidence': 0.8, 'reasoning': 'r'}`, RouteGeneralKnowledge},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client := llm.NewMockClient("m", llm.MockResponse{Content: tc.content})
			classifier := NewClassifier(testGuard(), client, logging.Nop())

			intent := classifier.Classify(context.Background(), "some firewall question")
			assert.Equal(t, tc.want, intent.Route)
			assert.Equal(t, MethodLLMClassification, intent.Method)
		})
	}
}

func TestClassifyFallsBackOnErrorOrGarbage(t *testing.T) {
	t.Parallel()

	t.Run("llm error", func(t *testing.T) {
		t.Parallel()
		client := llm.NewMockClient("m", llm.MockResponse{Err: errors.New("boom")})
		classifier := NewClassifier(testGuard(), client, logging.Nop())

		intent := classifier.Classify(context.Background(), "configure azure monitor alerts")
		assert.Equal(t, RouteMicrosoftDocs, intent.Route)
		assert.Equal(t, MethodFallbackPattern, intent.Method)
	})

	t.Run("unknown route name", func(t *testing.T) {
		t.Parallel()
		client := llm.NewMockClient("m", llm.MockResponse{Content: `{"source":"google_search","confidence":0.9,"reasoning":"r"}`})
		classifier := NewClassifier(testGuard(), client, logging.Nop())

		intent := classifier.Classify(context.Background(), "vpn keeps dropping")
		assert.Equal(t, RouteWebSearch, intent.Route)
		assert.Equal(t, MethodFallbackDefault, intent.Method)
	})

	t.Run("prose instead of json", func(t *testing.T) {
		t.Parallel()
		client := llm.NewMockClient("m", llm.MockResponse{Content: "I think this is about AWS."})
		classifier := NewClassifier(testGuard(), client, logging.Nop())

		intent := classifier.Classify(context.Background(), "resize an ec2 instance")
		assert.Equal(t, RouteAWSDocs, intent.Route)
		assert.Equal(t, MethodFallbackPattern, intent.Method)
	})
}

func TestFallbackClassificationPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query      string
		route      Route
		method     string
		confidence float64
	}{
		{"hello there", RouteGeneralKnowledge, MethodFallbackGreeting, 0.9},
		{"thanks!", RouteGeneralKnowledge, MethodFallbackGreeting, 0.9},
		{"powershell list services", RouteMicrosoftDocs, MethodFallbackPattern, 0.7},
		{"restore s3 object versions", RouteAWSDocs, MethodFallbackPattern, 0.7},
		{"nginx reverse proxy 502", RouteWebSearch, MethodFallbackDefault, 0.6},
	}

	for _, tc := range tests {
		intent := fallbackClassification(tc.query)
		assert.Equal(t, tc.route, intent.Route, "query: %s", tc.query)
		assert.Equal(t, tc.method, intent.Method, "query: %s", tc.query)
		assert.InDelta(t, tc.confidence, intent.Confidence, 0.001, "query: %s", tc.query)
		assert.NotEmpty(t, intent.Reasoning)
	}

	// A long message mentioning a greeting word is not treated as a greeting.
	long := fallbackClassification("hello, my windows server keeps rebooting every night and event viewer shows kernel power errors")
	assert.Equal(t, RouteMicrosoftDocs, long.Route)
}

func TestClassifyWithoutClientUsesFallback(t *testing.T) {
	t.Parallel()

	classifier := NewClassifier(testGuard(), nil, logging.Nop())
	intent := classifier.Classify(context.Background(), "kubernetes pod crashloop")
	assert.Equal(t, RouteWebSearch, intent.Route)
	assert.Equal(t, MethodFallbackDefault, intent.Method)
}

func TestConfidenceExplanation(t *testing.T) {
	t.Parallel()

	llmIntent := Intent{Route: RouteWebSearch, Confidence: 0.85, Method: MethodLLMClassification, Reasoning: "needs current info"}
	assert.Contains(t, llmIntent.ConfidenceExplanation(), "AI classified with 85.0% confidence")

	patternIntent := Intent{Route: RouteAWSDocs, Confidence: 0.7, Method: MethodFallbackPattern, Reasoning: "AWS keywords"}
	assert.Contains(t, patternIntent.ConfidenceExplanation(), "Pattern matching with 70.0% confidence")

	guardIntent := Intent{Route: RouteOutOfScope, Confidence: 0.95, Method: MethodScopeGuard}
	require.Contains(t, guardIntent.ConfidenceExplanation(), "scope_guard")
}
