package gemini

import (
	"context"
	"testing"

	"google.golang.org/genai"
)

func TestResponseTextJoinsParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			nil,
			{Content: &genai.Content{Parts: []*genai.Part{{Text: " first "}, nil, {Text: ""}}}},
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "second"}}}},
		},
	}

	got, err := responseText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "first\nsecond" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestResponseTextEmpty(t *testing.T) {
	if _, err := responseText(&genai.GenerateContentResponse{}); err == nil {
		t.Fatalf("expected error for empty response")
	}
	if _, err := responseText(nil); err == nil {
		t.Fatalf("expected error for nil response")
	}
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	if _, err := NewGenerator(context.Background(), Config{APIKey: "  "}); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestUninitializedGenerator(t *testing.T) {
	var g *Generator
	if _, err := g.GenerateContent(context.Background(), "hi"); err == nil {
		t.Fatalf("expected error from nil generator")
	}
	if g.Model() != "" {
		t.Fatalf("expected empty model from nil generator")
	}
	if _, err := g.EnsureProfileCache(context.Background(), "p", "x"); err == nil {
		t.Fatalf("expected error from nil generator")
	}
}

func TestBaseConfigTemperature(t *testing.T) {
	if (&Generator{}).baseConfig() != nil {
		t.Fatalf("expected nil config without temperature")
	}

	temp := float32(0.2)
	cfg := (&Generator{temperature: &temp}).baseConfig()
	if cfg == nil || cfg.Temperature == nil || *cfg.Temperature != temp {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
