package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/pauljones0/maodevaca/internal/metrics"
	"github.com/pauljones0/maodevaca/internal/models"
)

const (
	fallbackScore          = 50
	fallbackUnconfigured   = "Oferta postada pela comunidade Mão de Vaca!"
	fallbackGenerationFail = "Oferta encontrada pela comunidade Mão de Vaca!"
	maxDescriptionRunes    = 150
	requestTimeout         = 20 * time.Second
)

// Analysis is the assistant's draft for a deal submission.
type Analysis struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	IsDealGood  bool   `json:"isDealGood"`
	Score       int    `json:"score"`
	// Fallback is set when the static draft was returned instead of a generated one.
	Fallback bool `json:"fallback"`
}

// generator produces the raw JSON text for a prompt.
type generator interface {
	generate(ctx context.Context, prompt string) (string, error)
}

type Client struct {
	gen     generator
	limiter *rate.Limiter
}

// NewClient returns an assistant. Without an API key it still works and
// always answers with the static fallback.
func NewClient(ctx context.Context, apiKey, modelID string, requestsPerMinute int) (*Client, error) {
	c := &Client{limiter: newLimiter(requestsPerMinute)}
	if apiKey == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c.gen = &geminiGenerator{client: client, model: modelID}
	return c, nil
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// Configured reports whether a generative model is wired in.
func (c *Client) Configured() bool {
	return c != nil && c.gen != nil
}

// Analyze drafts a description, category and score for a deal. It never fails:
// any problem yields the static fallback so submission is never blocked.
// Callers validate that title, price and store are present.
func (c *Client) Analyze(ctx context.Context, title string, price float64, store string) Analysis {
	if !c.Configured() {
		metrics.AssistantRequests.WithLabelValues("fallback_unconfigured").Inc()
		return fallback(fallbackUnconfigured)
	}
	if !c.limiter.Allow() {
		slog.Warn("Assistant rate limit reached, returning fallback")
		metrics.AssistantRequests.WithLabelValues("fallback_rate_limited").Inc()
		return fallback(fallbackGenerationFail)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	text, err := c.gen.generate(ctx, buildPrompt(title, price, store))
	if err != nil {
		slog.Error("Gemini generation failed", "error", err)
		metrics.AssistantRequests.WithLabelValues("fallback_error").Inc()
		return fallback(fallbackGenerationFail)
	}

	result, err := parseAnalysis(text)
	if err != nil {
		slog.Error("Failed to parse gemini response", "error", err)
		metrics.AssistantRequests.WithLabelValues("fallback_error").Inc()
		return fallback(fallbackGenerationFail)
	}
	metrics.AssistantRequests.WithLabelValues("generated").Inc()
	return result
}

func fallback(description string) Analysis {
	return Analysis{
		Description: description,
		Category:    models.DefaultCategory,
		IsDealGood:  true,
		Score:       fallbackScore,
		Fallback:    true,
	}
}

func buildPrompt(title string, price float64, store string) string {
	return fmt.Sprintf(`Você é o assistente virtual do "Mão de Vaca", uma comunidade focada em economia extrema.
Analise a oferta: "%s" na loja "%s" por R$ %.2f.

1. Crie uma descrição curta (máximo %d caracteres) com tom de oportunidade imperdível (ex: "Preço histórico", "Corre que acaba").
2. Categorize o produto usando uma destas categorias: %s.
3. Diga se é uma boa oferta (true/false) baseado no mercado brasileiro.
4. Dê uma nota de 0 a 100 "Nível Mão de Vaca" (quanto maior, mais barato está).

Responda em JSON seguindo o schema.`,
		title, store, price, maxDescriptionRunes, strings.Join(models.Categories, ", "))
}

// parseAnalysis decodes the model output and normalizes it: the category is
// mapped onto the fixed set and the score is clamped to 0..100.
func parseAnalysis(text string) (Analysis, error) {
	jsonStr := strings.TrimSpace(text)
	jsonStr = strings.TrimPrefix(jsonStr, "```json")
	jsonStr = strings.TrimPrefix(jsonStr, "```")
	jsonStr = strings.TrimSuffix(jsonStr, "```")
	jsonStr = strings.TrimSpace(jsonStr)
	if jsonStr == "" {
		return Analysis{}, fmt.Errorf("empty response")
	}

	var raw struct {
		Description string `json:"description"`
		Category    string `json:"category"`
		IsDealGood  bool   `json:"isDealGood"`
		Score       int    `json:"score"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return Analysis{}, err
	}

	score := raw.Score
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	return Analysis{
		Description: strings.TrimSpace(raw.Description),
		Category:    models.MatchCategory(raw.Category),
		IsDealGood:  raw.IsDealGood,
		Score:       score,
	}, nil
}

type geminiGenerator struct {
	client *genai.Client
	model  string
}

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"description": {
			Type:        genai.TypeString,
			Description: "Descrição curta e chamativa da oferta.",
		},
		"category": {
			Type:        genai.TypeString,
			Description: "Categoria do produto.",
			Enum:        models.Categories,
		},
		"isDealGood": {
			Type: genai.TypeBoolean,
		},
		"score": {
			Type:        genai.TypeInteger,
			Description: "Nível Mão de Vaca, de 0 a 100.",
		},
	},
	Required: []string{"description", "category", "isDealGood", "score"},
}

func (g *geminiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.4),
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
