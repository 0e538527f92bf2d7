// Package ai suggests a category for a transaction description using a
// generative model. Suggestions are advisory: model failures degrade to a
// fixed fallback instead of failing the caller.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"grana/internal/core"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	requestTimeout = 10 * time.Second

	fallbackTag        = "Geral"
	fallbackConfidence = 0.5
)

// Suggestion sources.
const (
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// Suggestion is a category proposal for a transaction description.
type Suggestion struct {
	Category   string  `json:"category"`
	Tag        string  `json:"tag"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// Suggester asks a Gemini model to classify transaction descriptions into
// one of the known categories.
type Suggester struct {
	client *genai.Client
	model  string
}

// NewSuggester builds a suggester. An empty API key returns a nil suggester;
// callers treat nil as "not configured" and every suggestion degrades to the
// fallback.
func NewSuggester(ctx context.Context, apiKey, model string) (*Suggester, error) {
	if apiKey == "" {
		return nil, nil
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Suggester{client: client, model: model}, nil
}

// Fallback is the suggestion used whenever the model is unavailable or
// returns something unusable.
func Fallback() Suggestion {
	return Suggestion{
		Category:   core.FallbackCategory,
		Tag:        fallbackTag,
		Confidence: fallbackConfidence,
		Source:     SourceFallback,
	}
}

// Suggest classifies a description, optionally hinted by the transaction
// amount. It never returns an error for model problems: anything short of a
// cancelled context degrades to Fallback().
func (s *Suggester) Suggest(ctx context.Context, description, amount string, categories []core.Category) Suggestion {
	if s == nil || s.client == nil {
		return Fallback()
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	prompt := buildPrompt(description, amount, categories)
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		slog.ErrorContext(ctx, "Category suggestion failed, using fallback",
			"description", description,
			"error", err)
		return Fallback()
	}

	raw := resp.Text()
	if raw == "" {
		slog.WarnContext(ctx, "Empty model response, using fallback", "description", description)
		return Fallback()
	}

	suggestion, err := parseSuggestion(raw, categories)
	if err != nil {
		slog.WarnContext(ctx, "Unusable model response, using fallback",
			"description", description,
			"error", err)
		return Fallback()
	}

	return suggestion
}

func buildPrompt(description, amount string, categories []core.Category) string {
	var b strings.Builder
	b.WriteString("You classify personal finance transactions written in Brazilian Portuguese.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Pick the single best category for the transaction description below.\n")
	b.WriteString("- Also propose a short tag (one or two words) describing the purchase.\n")
	b.WriteString("- Output STRICT JSON only, one object, no extra text.\n\n")
	b.WriteString("The object must have these fields:\n")
	b.WriteString("- \"category\": string, EXACTLY one of the allowed categories\n")
	b.WriteString("- \"tag\": string\n")
	b.WriteString("- \"confidence\": number between 0 and 1\n\n")
	b.WriteString("Allowed categories:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s\n", c.Name)
	}
	b.WriteString("\nReturn ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Do NOT use ```json or any Markdown.\n\n")
	fmt.Fprintf(&b, "Description: %s\n", description)
	if amount != "" {
		fmt.Fprintf(&b, "Amount: R$ %s\n", amount)
	}
	return b.String()
}

// parseSuggestion decodes the model output, tolerating Markdown fences, and
// rejects categories outside the allowed set.
func parseSuggestion(raw string, categories []core.Category) (Suggestion, error) {
	clean := cleanModelJSON(raw)

	var out struct {
		Category   string  `json:"category"`
		Tag        string  `json:"tag"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return Suggestion{}, fmt.Errorf("unmarshal model JSON: %w", err)
	}

	if out.Category == "" {
		return Suggestion{}, fmt.Errorf("model returned no category")
	}
	if !knownCategory(out.Category, categories) {
		return Suggestion{}, fmt.Errorf("model returned unknown category %q", out.Category)
	}
	if out.Tag == "" {
		out.Tag = fallbackTag
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		out.Confidence = fallbackConfidence
	}

	return Suggestion{
		Category:   out.Category,
		Tag:        out.Tag,
		Confidence: out.Confidence,
		Source:     SourceModel,
	}, nil
}

func knownCategory(name string, categories []core.Category) bool {
	for _, c := range categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// cleanModelJSON strips Markdown fences and surrounding junk the model may
// emit despite instructions, keeping only the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
