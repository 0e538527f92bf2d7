package ai

import (
	"context"
	"strings"
	"testing"

	"grana/internal/core"
)

func testCategories() []core.Category {
	return []core.Category{
		{Name: "Alimentação", Type: core.Expense},
		{Name: "Transporte", Type: core.Expense},
		{Name: "Outros", Type: core.Expense},
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "raw JSON passes through",
			raw:      `{"category": "Alimentação"}`,
			expected: `{"category": "Alimentação"}`,
		},
		{
			name:     "json fence stripped",
			raw:      "```json\n{\"category\": \"Alimentação\"}\n```",
			expected: `{"category": "Alimentação"}`,
		},
		{
			name:     "bare fence stripped",
			raw:      "```\n{\"category\": \"Outros\"}\n```",
			expected: `{"category": "Outros"}`,
		},
		{
			name:     "surrounding prose trimmed",
			raw:      "Here is the answer:\n{\"category\": \"Outros\"}\nHope that helps!",
			expected: `{"category": "Outros"}`,
		},
		{
			name:     "whitespace trimmed",
			raw:      "  \n {\"tag\": \"mercado\"} \n",
			expected: `{"tag": "mercado"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.raw); got != tt.expected {
				t.Errorf("cleanModelJSON() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseSuggestion(t *testing.T) {
	cats := testCategories()

	t.Run("valid response", func(t *testing.T) {
		got, err := parseSuggestion(`{"category": "Alimentação", "tag": "mercado", "confidence": 0.92}`, cats)
		if err != nil {
			t.Fatalf("parseSuggestion() error = %v", err)
		}
		if got.Category != "Alimentação" || got.Tag != "mercado" || got.Confidence != 0.92 {
			t.Errorf("parseSuggestion() = %+v", got)
		}
		if got.Source != SourceModel {
			t.Errorf("Source = %q, want %q", got.Source, SourceModel)
		}
	})

	t.Run("fenced response", func(t *testing.T) {
		raw := "```json\n{\"category\": \"Transporte\", \"tag\": \"uber\", \"confidence\": 0.8}\n```"
		got, err := parseSuggestion(raw, cats)
		if err != nil {
			t.Fatalf("parseSuggestion() error = %v", err)
		}
		if got.Category != "Transporte" {
			t.Errorf("Category = %q, want Transporte", got.Category)
		}
	})

	t.Run("unknown category rejected", func(t *testing.T) {
		_, err := parseSuggestion(`{"category": "Criptomoedas", "tag": "btc", "confidence": 0.9}`, cats)
		if err == nil || !strings.Contains(err.Error(), "unknown category") {
			t.Errorf("parseSuggestion() error = %v, want unknown category", err)
		}
	})

	t.Run("missing category rejected", func(t *testing.T) {
		if _, err := parseSuggestion(`{"tag": "x", "confidence": 0.9}`, cats); err == nil {
			t.Error("parseSuggestion() should fail without a category")
		}
	})

	t.Run("not JSON rejected", func(t *testing.T) {
		if _, err := parseSuggestion("I think it's food related", cats); err == nil {
			t.Error("parseSuggestion() should fail on prose")
		}
	})

	t.Run("out of range confidence normalized", func(t *testing.T) {
		got, err := parseSuggestion(`{"category": "Outros", "tag": "x", "confidence": 7}`, cats)
		if err != nil {
			t.Fatalf("parseSuggestion() error = %v", err)
		}
		if got.Confidence != fallbackConfidence {
			t.Errorf("Confidence = %v, want %v", got.Confidence, fallbackConfidence)
		}
	})

	t.Run("empty tag defaults", func(t *testing.T) {
		got, err := parseSuggestion(`{"category": "Outros", "confidence": 0.6}`, cats)
		if err != nil {
			t.Fatalf("parseSuggestion() error = %v", err)
		}
		if got.Tag != fallbackTag {
			t.Errorf("Tag = %q, want %q", got.Tag, fallbackTag)
		}
	})
}

func TestFallback(t *testing.T) {
	got := Fallback()
	if got.Category != core.FallbackCategory {
		t.Errorf("Category = %q, want %q", got.Category, core.FallbackCategory)
	}
	if got.Tag != fallbackTag || got.Confidence != fallbackConfidence {
		t.Errorf("Fallback() = %+v", got)
	}
	if got.Source != SourceFallback {
		t.Errorf("Source = %q, want %q", got.Source, SourceFallback)
	}
}

func TestNilSuggesterDegrades(t *testing.T) {
	var s *Suggester
	got := s.Suggest(context.Background(), "Mercado Livre", "85.50", testCategories())
	if got.Source != SourceFallback {
		t.Errorf("nil suggester should degrade to fallback, got %+v", got)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("Uber para o aeroporto", "42.90", testCategories())
	for _, want := range []string{"Uber para o aeroporto", "R$ 42.90", "Transporte"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// The amount line is optional.
	prompt = buildPrompt("Mercado", "", testCategories())
	if strings.Contains(prompt, "Amount:") {
		t.Error("prompt should omit the amount line when no amount is given")
	}
}
