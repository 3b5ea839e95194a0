// Package gemini implements flow/provider's LLMClient and EmbeddingClient
// contracts against Google's Gemini API via google.golang.org/genai.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/flowforge/flowrun/flow/provider"
)

// Client implements provider.LLMClient and provider.EmbeddingClient against
// the Gemini API.
type Client struct {
	client *genai.Client
}

// Options configures a Client.
type Options struct {
	APIKey string
}

// New builds a Client against the given API key.
func New(ctx context.Context, opts Options) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{client: client}, nil
}

// Complete implements provider.LLMClient.
func (c *Client) Complete(ctx context.Context, req provider.LLMRequest) (provider.LLMResponse, error) {
	contents := convertMessages(req.Messages)

	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}
	if len(req.OutputSchema) > 0 {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return provider.LLMResponse{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return provider.LLMResponse{}, fmt.Errorf("gemini: empty candidate response")
	}

	text := textOf(resp.Candidates[0].Content)
	output, err := decodeOutput(text, req.OutputSchema)
	if err != nil {
		return provider.LLMResponse{}, fmt.Errorf("gemini: decode response text: %w", err)
	}
	return provider.LLMResponse{Output: output}, nil
}

// Embed implements provider.EmbeddingClient.
func (c *Client) Embed(ctx context.Context, req provider.EmbeddingRequest) (provider.EmbeddingResponse, error) {
	if len(req.Texts) == 0 {
		return provider.EmbeddingResponse{}, fmt.Errorf("gemini: at least one text is required")
	}

	contents := make([]*genai.Content, len(req.Texts))
	for i, text := range req.Texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := c.client.Models.EmbedContent(ctx, req.Model, contents, nil)
	if err != nil {
		return provider.EmbeddingResponse{}, fmt.Errorf("gemini: embed content: %w", err)
	}
	if len(resp.Embeddings) != len(req.Texts) {
		return provider.EmbeddingResponse{}, fmt.Errorf("gemini: expected %d embeddings, got %d", len(req.Texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}
	return provider.EmbeddingResponse{Vectors: vectors}, nil
}

func convertMessages(messages []provider.Message) []*genai.Content {
	contents := make([]*genai.Content, len(messages))
	for i, m := range messages {
		text := fmt.Sprintf("%v", m.Content)
		role := genai.RoleUser
		if m.Role == "assistant" || m.Role == "model" {
			role = genai.RoleModel
		}
		contents[i] = genai.NewContentFromText(text, role)
	}
	return contents
}

func textOf(content *genai.Content) string {
	out := ""
	for _, part := range content.Parts {
		out += part.Text
	}
	return out
}

func decodeOutput(text string, schema map[string]any) (map[string]any, error) {
	if len(schema) == 0 {
		return map[string]any{"text": text}, nil
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(text), &output); err != nil {
		return nil, err
	}
	return output, nil
}
