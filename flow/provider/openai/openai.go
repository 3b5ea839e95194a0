// Package openai implements flow/provider's LLMClient and EmbeddingClient
// contracts against the OpenAI chat completion and embeddings APIs.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/flowforge/flowrun/flow/provider"
)

// DefaultEmbeddingDimensions is the output size of OpenAI's 1536-dimension
// embedding models. Embed sends no dimensions parameter, so the vectors it
// returns have the model's own size.
const DefaultEmbeddingDimensions = 1536

// Client implements provider.LLMClient and provider.EmbeddingClient against
// the OpenAI API.
type Client struct {
	client openai.Client
}

// Options configures a Client.
type Options struct {
	APIKey  string
	BaseURL string // set for OpenAI-compatible gateways
}

// New builds a Client. An empty APIKey falls back to the OPENAI_API_KEY
// environment variable, same as the underlying SDK.
func New(opts Options) *Client {
	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &Client{client: openai.NewClient(clientOpts...)}
}

// Complete implements provider.LLMClient. The structured output schema, if
// any, is passed through as a JSON schema response format so the model
// replies with exactly the declared fields.
func (c *Client) Complete(ctx context.Context, req provider.LLMRequest) (provider.LLMResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: convertMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if len(req.OutputSchema) > 0 {
		schema, err := jsonSchemaParam(req.OutputSchema)
		if err != nil {
			return provider.LLMResponse{}, fmt.Errorf("openai: build output schema: %w", err)
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: schema,
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return provider.LLMResponse{}, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return provider.LLMResponse{}, fmt.Errorf("openai: empty completion response")
	}

	content := completion.Choices[0].Message.Content
	output, err := decodeOutput(content, req.OutputSchema)
	if err != nil {
		return provider.LLMResponse{}, fmt.Errorf("openai: decode completion content: %w", err)
	}
	return provider.LLMResponse{Output: output}, nil
}

// Embed implements provider.EmbeddingClient.
func (c *Client) Embed(ctx context.Context, req provider.EmbeddingRequest) (provider.EmbeddingResponse, error) {
	if len(req.Texts) == 0 {
		return provider.EmbeddingResponse{}, fmt.Errorf("openai: at least one text is required")
	}

	inputs := make([]string, len(req.Texts))
	copy(inputs, req.Texts)

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: req.Model,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
	})
	if err != nil {
		return provider.EmbeddingResponse{}, fmt.Errorf("openai: embeddings: %w", err)
	}
	if len(resp.Data) != len(req.Texts) {
		return provider.EmbeddingResponse{}, fmt.Errorf("openai: expected %d embeddings, got %d", len(req.Texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = toFloat32Slice(d.Embedding)
	}
	return provider.EmbeddingResponse{Vectors: vectors}, nil
}

func convertMessages(messages []provider.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, m := range messages {
		text := fmt.Sprintf("%v", m.Content)
		switch m.Role {
		case "system":
			result[i] = openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{OfString: openai.String(text)},
				},
			}
		case "assistant":
			result[i] = openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content: openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(text)},
				},
			}
		default:
			result[i] = openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{OfString: openai.String(text)},
				},
			}
		}
	}
	return result
}

func jsonSchemaParam(fields map[string]any) (openai.ChatCompletionNewParamsResponseFormatJSONSchema, error) {
	properties := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for name := range fields {
		properties[name] = map[string]any{"type": "string"}
		required = append(required, name)
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return openai.ChatCompletionNewParamsResponseFormatJSONSchema{}, err
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return openai.ChatCompletionNewParamsResponseFormatJSONSchema{}, err
	}

	return openai.ChatCompletionNewParamsResponseFormatJSONSchema{
		JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   "flow_node_output",
			Schema: decoded,
			Strict: openai.Bool(true),
		},
	}, nil
}

func decodeOutput(content string, schema map[string]any) (map[string]any, error) {
	if len(schema) == 0 {
		return map[string]any{"text": content}, nil
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(content), &output); err != nil {
		return nil, err
	}
	return output, nil
}

func toFloat32Slice(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
