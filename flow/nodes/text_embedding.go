package nodes

import (
	"fmt"

	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/provider"
	"github.com/flowforge/flowrun/flow/registry"
	"github.com/flowforge/flowrun/flow/resolve"
)

// TextEmbeddingHandler implements the TEXT_EMBEDDING node: it accepts a
// single text, a list of texts, or a list of {text, ...} items under
// input.text/input.texts/input.items and embeds them against the configured
// provider/model.
type TextEmbeddingHandler struct{}

// Execute embeds the resolved input text(s).
func (TextEmbeddingHandler) Execute(ec registry.ExecContext, node *flow.Node) (any, error) {
	providerName := configString(node, "provider")
	model := configString(node, "model")
	if providerName == "" || model == "" {
		return nil, fmt.Errorf("text_embedding: node %s requires config.provider and config.model", node.ID)
	}

	client, err := ec.Providers.Embedding(providerName)
	if err != nil {
		return nil, fmt.Errorf("text_embedding: node %s: %w", node.ID, err)
	}

	resolver := resolve.New(ec.State)
	texts, itemsMode, err := resolveTexts(node, resolver)
	if err != nil {
		return nil, fmt.Errorf("text_embedding: node %s: %w", node.ID, err)
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("text_embedding: node %s: no input.text, input.texts, or input.items provided", node.ID)
	}

	resp, err := client.Embed(ec.Ctx, provider.EmbeddingRequest{
		Provider: providerName,
		Model:    model,
		Texts:    texts,
	})
	if err != nil {
		return nil, fmt.Errorf("text_embedding: node %s: %w", node.ID, err)
	}
	if len(resp.Vectors) != len(texts) {
		return nil, fmt.Errorf("text_embedding: node %s: provider returned %d vectors for %d inputs", node.ID, len(resp.Vectors), len(texts))
	}

	if !itemsMode {
		if len(resp.Vectors) == 1 {
			return map[string]any{"embedding": resp.Vectors[0]}, nil
		}
		return map[string]any{"embeddings": resp.Vectors}, nil
	}

	rawItems, _ := node.Input["items"].([]any)
	out := make([]map[string]any, len(texts))
	for i, v := range resp.Vectors {
		entry := map[string]any{"text": texts[i], "embedding": v}
		if i < len(rawItems) {
			if obj, ok := resolver.ResolveValue(rawItems[i]).(map[string]any); ok {
				for k, val := range obj {
					if k == "text" {
						continue
					}
					entry[k] = val
				}
			}
		}
		out[i] = entry
	}
	return map[string]any{"items": out}, nil
}

// resolveTexts extracts the text list from input.text, input.texts, or
// input.items (each item must carry a "text" field), in that priority order.
func resolveTexts(node *flow.Node, resolver *resolve.Resolver) ([]string, bool, error) {
	if raw, ok := node.Input["text"]; ok {
		resolved := resolver.ResolveValue(raw)
		s, ok := resolved.(string)
		if !ok {
			return nil, false, fmt.Errorf("input.text did not resolve to a string")
		}
		return []string{s}, false, nil
	}
	if raw, ok := node.Input["texts"]; ok {
		resolved := resolver.ResolveValue(raw)
		list, ok := resolved.([]any)
		if !ok {
			return nil, false, fmt.Errorf("input.texts did not resolve to an array")
		}
		out := make([]string, 0, len(list))
		for _, v := range list {
			s, ok := v.(string)
			if !ok {
				return nil, false, fmt.Errorf("input.texts contains a non-string element")
			}
			out = append(out, s)
		}
		return out, false, nil
	}
	if raw, ok := node.Input["items"]; ok {
		resolved := resolver.ResolveValue(raw)
		list, ok := resolved.([]any)
		if !ok {
			return nil, false, fmt.Errorf("input.items did not resolve to an array")
		}
		out := make([]string, 0, len(list))
		for _, v := range list {
			obj, ok := v.(map[string]any)
			if !ok {
				return nil, false, fmt.Errorf("input.items contains a non-object element")
			}
			s, ok := obj["text"].(string)
			if !ok {
				return nil, false, fmt.Errorf("input.items element is missing a string \"text\" field")
			}
			out = append(out, s)
		}
		return out, true, nil
	}
	return nil, false, nil
}
