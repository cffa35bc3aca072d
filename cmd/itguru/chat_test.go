package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/prompts"
)

func TestReformatStylesHaveDedicatedInstructions(t *testing.T) {
	t.Parallel()

	generic := prompts.Reformat("the answer", "no-such-style", "")
	for _, style := range reformatStyles {
		require.NotEqual(t, generic, prompts.Reformat("the answer", style, ""),
			"style %q falls through to the generic rewrite", style)
		assert.Contains(t, chatHelp, style)
	}
}
