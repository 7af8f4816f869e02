package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeGenerator) generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func TestAnalyze_Unconfigured(t *testing.T) {
	c, err := NewClient(context.Background(), "", "gemini-2.5-flash", 10)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.Configured() {
		t.Error("client without API key should not be configured")
	}
	got := c.Analyze(context.Background(), "Fone", 99.9, "Amazon")
	if !got.Fallback || got.Description != fallbackUnconfigured || got.Category != "Outros" || got.Score != 50 || !got.IsDealGood {
		t.Errorf("Analyze() = %+v, want static fallback", got)
	}
}

func TestAnalyze_Generated(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n{\"description\":\"Preço histórico!\",\"category\":\"games\",\"isDealGood\":true,\"score\":87}\n```"}
	c := &Client{gen: gen, limiter: newLimiter(0)}

	got := c.Analyze(context.Background(), "Controle Xbox", 299, "Kabum")
	want := Analysis{Description: "Preço histórico!", Category: "Games", IsDealGood: true, Score: 87}
	if got != want {
		t.Errorf("Analyze() = %+v, want %+v", got, want)
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], `"Controle Xbox"`) || !strings.Contains(gen.prompts[0], "R$ 299.00") {
		t.Errorf("prompt should carry title and price, got %q", gen.prompts)
	}
}

func TestAnalyze_FailuresFallBack(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"generation error", &fakeGenerator{err: errors.New("quota exceeded")}},
		{"empty text", &fakeGenerator{text: ""}},
		{"not json", &fakeGenerator{text: "desculpe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{gen: tt.gen, limiter: newLimiter(0)}
			got := c.Analyze(context.Background(), "x", 1, "y")
			if !got.Fallback || got.Description != fallbackGenerationFail {
				t.Errorf("Analyze() = %+v, want generation fallback", got)
			}
		})
	}
}

func TestAnalyze_RateLimited(t *testing.T) {
	gen := &fakeGenerator{text: `{"description":"ok","category":"Moda","isDealGood":false,"score":10}`}
	c := &Client{gen: gen, limiter: rate.NewLimiter(rate.Every(time.Hour), 1)}

	if got := c.Analyze(context.Background(), "a", 1, "b"); got.Fallback {
		t.Fatal("first call should be generated")
	}
	if got := c.Analyze(context.Background(), "a", 1, "b"); !got.Fallback {
		t.Error("second call should hit the rate limit and fall back")
	}
	if len(gen.prompts) != 1 {
		t.Errorf("generator called %d times, want 1", len(gen.prompts))
	}
}

func TestParseAnalysis_Normalizes(t *testing.T) {
	tests := []struct {
		in        string
		wantCat   string
		wantScore int
	}{
		{`{"description":"d","category":"Geral","isDealGood":true,"score":50}`, "Outros", 50},
		{`{"description":"d","category":"ELETRÔNICOS","isDealGood":true,"score":140}`, "Eletrônicos", 100},
		{`{"description":"d","category":"Livros","isDealGood":false,"score":-3}`, "Livros", 0},
	}
	for _, tt := range tests {
		got, err := parseAnalysis(tt.in)
		if err != nil {
			t.Fatalf("parseAnalysis(%s) error = %v", tt.in, err)
		}
		if got.Category != tt.wantCat || got.Score != tt.wantScore {
			t.Errorf("parseAnalysis(%s) = %+v, want category %q score %d", tt.in, got, tt.wantCat, tt.wantScore)
		}
	}
}
