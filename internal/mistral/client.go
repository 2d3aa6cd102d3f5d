package mistral

// #region imports
import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/mairylabs/triadic-controller/internal/triad"
)

// #endregion

// #region config

// Config points the client at an OpenAI-compatible chat/embedding API.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	EmbedModel string
}

// DefaultConfig returns the production Mistral settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "https://api.mistral.ai/v1",
		Model:      "mistral-large-latest",
		EmbedModel: "mistral-embed",
	}
}

// #endregion config

// #region client

// Client wraps the chat and embedding endpoints behind the generator,
// scorer and embedder contracts used by the pipeline.
type Client struct {
	llm      *openai.LLM
	embedder embeddings.Embedder
	config   Config
}

// New builds a Client from the given config.
func New(config Config) (*Client, error) {
	llm, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
		openai.WithEmbeddingModel(config.EmbedModel),
	)
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	return &Client{llm: llm, embedder: embedder, config: config}, nil
}

// #endregion client

// #region generate

// Generate produces one candidate response at the given temperature.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// #endregion generate

// #region score

const scorePromptTemplate = `Analyze this message and score it on three relational dimensions.

Message (from %s): %s

Score each dimension from 0.0 to 2.0, where 1.0 is balanced:
- kindness: warmth and care toward the other person
- freedom: openness, lack of control or coercion
- truth: honesty and directness

Respond with ONLY a JSON object, no other text:
{"kindness": <float>, "freedom": <float>, "truth": <float>, "reasoning": "<one sentence>"}`

// ScoreTriad asks the model to rate a message's relational posture. Low
// temperature keeps the scoring stable across calls.
func (c *Client) ScoreTriad(ctx context.Context, text, role string) (triad.Score, error) {
	prompt := fmt.Sprintf(scorePromptTemplate, role, text)
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt,
		llms.WithTemperature(0.1),
		llms.WithMaxTokens(300),
	)
	if err != nil {
		return triad.Score{}, fmt.Errorf("score triad: %w", err)
	}
	score, err := parseTriadJSON(out)
	if err != nil {
		return triad.Score{}, fmt.Errorf("score triad: %w", err)
	}
	return score, nil
}

// parseTriadJSON pulls the first JSON object out of a model reply. Models
// sometimes wrap the object in prose or code fences.
func parseTriadJSON(raw string) (triad.Score, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return triad.Score{}, fmt.Errorf("no JSON object in reply %q", truncate(raw, 80))
	}
	var payload struct {
		Kindness  float64 `json:"kindness"`
		Freedom   float64 `json:"freedom"`
		Truth     float64 `json:"truth"`
		Reasoning string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return triad.Score{}, fmt.Errorf("decode triad JSON: %w", err)
	}
	score := triad.Score{
		Kindness:  payload.Kindness,
		Freedom:   payload.Freedom,
		Truth:     payload.Truth,
		Reasoning: payload.Reasoning,
	}
	if !score.Finite() {
		return triad.Score{}, fmt.Errorf("non-finite triad in reply %q", truncate(raw, 80))
	}
	return score, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// #endregion score

// #region embed

// Embed returns the embedding vector for a text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return vec, nil
}

// #endregion embed
