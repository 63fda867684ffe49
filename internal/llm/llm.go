package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/reportwriter/internal/llm/prompts"
	"github.com/pavelanni/reportwriter/internal/model"
)

// MaxSuggestions caps how many comments one request may ask for.
const MaxSuggestions = 10

// ErrNoPool is returned when a section type has no comment pools to extend.
var ErrNoPool = errors.New("section has no comment pool")

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// SuggestRequest asks for new comments for one pool of a template section.
type SuggestRequest struct {
	Section *model.Section
	Key     string // rating, performance level, heading or focus area
	Tone    prompts.Tone
	Count   int
	Notes   string // optional free text from the author
}

type suggestResponse struct {
	Comments []string `json:"comments"`
}

// SuggestComments returns candidate comments for the author to review.
// Suggestions already in the pool and duplicates are dropped.
func (c *Client) SuggestComments(ctx context.Context, req SuggestRequest) ([]string, error) {
	if req.Section == nil {
		return nil, errors.New("section is required")
	}
	if _, ok := req.Section.Data.(model.CommentPool); !ok && req.Section.Type != model.SectionStandardComment {
		return nil, fmt.Errorf("%w: %s", ErrNoPool, req.Section.Type)
	}
	count := req.Count
	if count <= 0 {
		count = 3
	}
	count = min(count, MaxSuggestions)

	prompt, err := prompts.BuildSuggestPrompt(req.Tone, req.Section, req.Key, count, req.Notes)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.8,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	var parsed suggestResponse
	if err := json.Unmarshal([]byte(stripFence(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	out := filterSuggestions(parsed.Comments, req.Section.Pool(req.Key), count)
	slog.Info("suggested comments",
		"section_id", req.Section.ID,
		"key", req.Key,
		"tone", req.Tone,
		"returned", len(parsed.Comments),
		"kept", len(out))
	return out, nil
}

// Ping checks that the endpoint answers and knows the configured model.
func (c *Client) Ping(ctx context.Context) error {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for _, m := range list.Models {
		if m.ID == c.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not offered by endpoint", c.model)
}

// filterSuggestions trims, drops blanks, duplicates and comments already in
// the pool, and keeps at most limit entries.
func filterSuggestions(got, pool []string, limit int) []string {
	seen := make(map[string]bool, len(pool)+len(got))
	for _, p := range pool {
		seen[strings.ToLower(strings.TrimSpace(p))] = true
	}
	var out []string
	for _, s := range got {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
