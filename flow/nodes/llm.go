package nodes

import (
	"fmt"

	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/provider"
	"github.com/flowforge/flowrun/flow/registry"
	"github.com/flowforge/flowrun/flow/resolve"
)

// LLMHandler implements the LLM node: it resolves each message's content
// against the state registry, calls the configured provider/model, and
// records the structured reply under the node's declared output fields.
type LLMHandler struct{}

// Execute resolves node.Messages and calls the configured LLM provider.
func (LLMHandler) Execute(ec registry.ExecContext, node *flow.Node) (any, error) {
	providerName := configString(node, "provider")
	model := configString(node, "model")
	if providerName == "" || model == "" {
		return nil, fmt.Errorf("llm: node %s requires config.provider and config.model", node.ID)
	}

	client, err := ec.Providers.LLM(providerName)
	if err != nil {
		return nil, fmt.Errorf("llm: node %s: %w", node.ID, err)
	}

	resolver := resolve.New(ec.State)
	messages := make([]provider.Message, len(node.Messages))
	for i, m := range node.Messages {
		messages[i] = provider.Message{
			Role:    m.Role,
			Content: resolver.ResolveValue(m.Content),
		}
	}

	req := provider.LLMRequest{
		Provider:     providerName,
		Model:        model,
		Messages:     messages,
		MaxTokens:    configInt(node, "max_tokens", 0),
		Temperature:  configFloat(node, "temperature", 0),
		OutputSchema: outputSchemaOf(node),
	}

	resp, err := client.Complete(ec.Ctx, req)
	if err != nil {
		return nil, fmt.Errorf("llm: node %s: %w", node.ID, err)
	}

	for field := range node.Output {
		if _, ok := resp.Output[field]; !ok {
			return nil, fmt.Errorf("llm: node %s response is missing declared output field %q", node.ID, field)
		}
	}

	return resp.Output, nil
}

func outputSchemaOf(node *flow.Node) map[string]any {
	if len(node.Output) == 0 {
		return nil
	}
	schema := make(map[string]any, len(node.Output))
	for field, spec := range node.Output {
		schema[field] = spec
	}
	return schema
}
