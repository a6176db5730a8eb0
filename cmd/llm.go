package cmd

import (
	"os"

	"github.com/spf13/viper"

	"github.com/sparklepop/Code-Project-Review/internal/llm"
	"github.com/sparklepop/Code-Project-Review/internal/review"
)

// newLLMClient creates an LLM client from config/env, or returns nil if no API key is configured.
func newLLMClient() *llm.Client {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil
	}
	return llm.NewClient(apiKey, viper.GetString("anthropic.model"))
}

// newNarrator returns the comment narrator when narration is enabled and a
// key is available. Missing keys only warn so reviews still complete.
func newNarrator() review.Narrator {
	if !viper.GetBool("anthropic.narrate") {
		return nil
	}
	c := newLLMClient()
	if c == nil {
		ui.Warning("Narration requested but no Anthropic API key is configured; using generated comments")
		return nil
	}
	return c
}
