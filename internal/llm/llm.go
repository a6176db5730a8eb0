package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sparklepop/Code-Project-Review/internal/scoring"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

// Client wraps the Anthropic API for writing review narratives.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if model == "" {
		model = DefaultModel
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// Narrative is the LLM's rewrite of a review's overall comments.
type Narrative struct {
	OverallComments string `json:"overall_comments"`
}

// buildNarratePrompt constructs the system and user prompts for the overall
// comments of a scored review.
func buildNarratePrompt(candidate string, res *scoring.ReviewResult) (system string, user string) {
	system = `You write the overall comments of a take-home code review for a hiring panel. You are given the scored rubric of one submission. Return ONLY a JSON object with one field:

- "overall_comments": 3-6 sentences addressed to the reviewer summarizing the submission's strengths, its weaknesses and the hiring level suggested by the assessment tier.

Rules:
- Do not change or question any score; the numbers are final
- Mention concrete items by their label, not by key
- If the solution was marked non-working, say so plainly
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	if candidate != "" {
		fmt.Fprintf(&sb, "Candidate: %s\n", candidate)
	}
	fmt.Fprintf(&sb, "Rubric: %s\n", res.Rubric)
	fmt.Fprintf(&sb, "Total: %s/%s (%s)\n", res.GrandTotal, res.MaxTotal, res.AssessmentTier)
	if res.NonWorking {
		fmt.Fprintf(&sb, "Non-working solution: %s point penalty applied\n", res.Penalty)
	}
	for _, c := range res.Categories {
		fmt.Fprintf(&sb, "\n## %s %s/%s\n", c.Label, c.Total, c.Max)
		for _, it := range c.Items {
			fmt.Fprintf(&sb, "- %s %s/%s: %s\n", it.Label, it.Score, it.Max, firstLine(it.Feedback))
		}
	}
	if res.OverallComments != "" {
		sb.WriteString("\nDraft comments: ")
		sb.WriteString(res.OverallComments)
		sb.WriteString("\n")
	}
	user = sb.String()
	return
}

// Narrate asks the LLM to rewrite the overall comments of res.
func (c *Client) Narrate(ctx context.Context, candidate string, res *scoring.ReviewResult) (string, error) {
	systemPrompt, userPrompt := buildNarratePrompt(candidate, res)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}

	return parseNarrative(text)
}

// parseNarrative decodes the model's JSON reply, tolerating markdown fencing.
func parseNarrative(text string) (string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var n Narrative
	if err := json.Unmarshal([]byte(text), &n); err != nil {
		return "", fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	n.OverallComments = strings.TrimSpace(n.OverallComments)
	if n.OverallComments == "" {
		return "", fmt.Errorf("LLM response has no overall comments")
	}
	return n.OverallComments, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
