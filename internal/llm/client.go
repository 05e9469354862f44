// Package llm provides the draft generator client. It speaks to any
// OpenAI-compatible chat completion endpoint.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/predictedpress/backend/internal/models"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Client wraps the OpenAI SDK for draft generation.
type Client struct {
	client *openai.Client
	model  string
}

// Config holds the client configuration. Endpoint may point at any
// OpenAI-compatible provider; empty uses the OpenAI default.
type Config struct {
	APIKey   string
	Endpoint string
	Model    string
}

// NewClient creates a draft generator client.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		config.BaseURL = cfg.Endpoint
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}
}

// ChatRequest represents a chat completion request.
type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
	JSONMode     bool
}

// Chat sends a chat completion request.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	messages := []openai.ChatCompletionMessage{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	log.Debug().
		Str("model", c.model).
		Bool("json_mode", req.JSONMode).
		Msg("Sending chat request")

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatJSON sends a chat request and parses the response as JSON.
func (c *Client) ChatJSON(ctx context.Context, req ChatRequest, result interface{}) error {
	req.JSONMode = true

	content, err := c.Chat(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(content), result); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// DraftInput is the market data a draft is written from.
type DraftInput struct {
	Title       string
	Probability int
	Volume      float64
	Category    string
	EndDate     string
	History     []models.PricePoint
}

const draftSystemPrompt = `You are a journalist for Predicted Press, a publication that transforms prediction market data into insightful news analysis. Your style is authoritative yet accessible, similar to The Economist or Bloomberg.

Lead with data, not speculation. Explain WHY the market prices it this way. Acknowledge uncertainty - these are probabilities, not predictions. Keep the tone professional and analytical.

Respond ONLY with valid JSON.`

// GenerateDraft writes an article draft for a bounty from market data.
func (c *Client) GenerateDraft(ctx context.Context, in DraftInput) (*models.ArticleDraft, error) {
	endDate := in.EndDate
	if endDate == "" {
		endDate = "TBD"
	}

	userPrompt := fmt.Sprintf(`Write an analysis article about this prediction market:

MARKET DATA:
- Question: %s
- Current Probability: %d%%
- Trading Volume: $%s
- Resolution Date: %s
- Category: %s
- Source: Polymarket
%s
Respond with JSON:
{
  "headline": "The headline starting with the probability, e.g., '34%% Chance: [Event]'",
  "subheadline": "A compelling one-line summary of what's driving the probability",
  "excerpt": "2-3 sentence summary for article previews",
  "content": "Full article in Markdown (800-1200 words): opening paragraph contextualizing the probability, factors driving it up, counterarguments driving it down, recent market movement, forward-looking conclusion. Use ## for section headers.",
  "key_factors": ["3-5 factors pushing probability up"],
  "counterarguments": ["3-5 factors that could push probability down"]
}`,
		in.Title,
		in.Probability,
		formatVolume(in.Volume),
		endDate,
		in.Category,
		historySection(in.History),
	)

	var draft models.ArticleDraft
	err := c.ChatJSON(ctx, ChatRequest{
		SystemPrompt: draftSystemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.4,
		MaxTokens:    4000,
	}, &draft)
	if err != nil {
		return nil, err
	}

	draft.SchemaVersion = models.DraftSchemaVersion
	draft.ReadingTime = readingTime(draft.Content)
	return &draft, nil
}

func historySection(points []models.PricePoint) string {
	if len(points) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nRECENT PRICE HISTORY:\n")
	for _, p := range points {
		fmt.Fprintf(&b, "- %s: %d%%\n", p.CapturedAt.Format("Jan 2"), p.Probability)
	}
	return b.String()
}

// readingTime estimates minutes at ~200 words per minute.
func readingTime(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + 199) / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

func formatVolume(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.0fK", v/1_000)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
