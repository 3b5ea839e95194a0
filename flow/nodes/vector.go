package nodes

import (
	"fmt"

	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/provider"
	"github.com/flowforge/flowrun/flow/registry"
	"github.com/flowforge/flowrun/flow/resolve"
)

// vectorConfig holds the fields common to all four VECTOR_* node kinds.
type vectorConfig struct {
	provider  string
	indexName string
	namespace string
}

func extractVectorConfig(node *flow.Node) (vectorConfig, error) {
	cfg := vectorConfig{
		provider:  configString(node, "provider"),
		indexName: configString(node, "index_name"),
		namespace: configString(node, "namespace"),
	}
	if cfg.provider == "" || cfg.indexName == "" {
		return cfg, fmt.Errorf("requires config.provider and config.index_name")
	}
	return cfg, nil
}

func resolveVector(resolver *resolve.Resolver, raw any) ([]float32, error) {
	resolved := resolver.ResolveValue(raw)
	list, ok := resolved.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a numeric array for vector")
	}
	out := make([]float32, len(list))
	for i, v := range list {
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("vector element %d is not numeric", i)
		}
		out[i] = f
	}
	return out, nil
}

func toFloat(v any) (float32, bool) {
	switch val := v.(type) {
	case float64:
		return float32(val), true
	case float32:
		return val, true
	case int:
		return float32(val), true
	default:
		return 0, false
	}
}

func resolveRecords(resolver *resolve.Resolver, raw any) ([]provider.VectorRecord, error) {
	resolved := resolver.ResolveValue(raw)
	list, ok := resolved.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array of records")
	}
	out := make([]provider.VectorRecord, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d is not an object", i)
		}
		rec := provider.VectorRecord{}
		if id, ok := obj["id"].(string); ok {
			rec.ID = id
		}
		if vecRaw, ok := obj["vector"]; ok {
			vec, err := resolveVector(resolver, vecRaw)
			if err != nil {
				return nil, fmt.Errorf("record %d vector: %w", i, err)
			}
			rec.Vector = vec
		}
		if meta, ok := obj["metadata"].(map[string]any); ok {
			rec.Metadata = meta
		}
		out = append(out, rec)
	}
	return out, nil
}

func resolveStringSliceInput(resolver *resolve.Resolver, raw any) ([]string, error) {
	resolved := resolver.ResolveValue(raw)
	list, ok := resolved.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array of strings")
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("element is not a string")
		}
		out = append(out, s)
	}
	return out, nil
}

// VectorInsertHandler implements VECTOR_INSERT: upserts input.records into
// the configured provider/index.
type VectorInsertHandler struct{}

// Execute resolves input.records and inserts them into the vector store.
func (VectorInsertHandler) Execute(ec registry.ExecContext, node *flow.Node) (any, error) {
	cfg, err := extractVectorConfig(node)
	if err != nil {
		return nil, fmt.Errorf("vector_insert: node %s %w", node.ID, err)
	}
	client, err := ec.Providers.Vector(cfg.provider)
	if err != nil {
		return nil, fmt.Errorf("vector_insert: node %s: %w", node.ID, err)
	}

	resolver := resolve.New(ec.State)
	records, err := resolveRecords(resolver, node.Input["records"])
	if err != nil {
		return nil, fmt.Errorf("vector_insert: node %s: %w", node.ID, err)
	}

	resp, err := client.Insert(ec.Ctx, provider.VectorInsertRequest{
		Provider:  cfg.provider,
		IndexName: cfg.indexName,
		Namespace: cfg.namespace,
		Records:   records,
	})
	if err != nil {
		return nil, fmt.Errorf("vector_insert: node %s: %w", node.ID, err)
	}
	return map[string]any{"inserted_ids": resp.InsertedIDs}, nil
}

// VectorSearchHandler implements VECTOR_SEARCH: finds the nearest records to
// input.vector, honoring config.top_k and config.similarity_threshold.
type VectorSearchHandler struct{}

// Execute resolves input.vector and queries the vector store.
func (VectorSearchHandler) Execute(ec registry.ExecContext, node *flow.Node) (any, error) {
	cfg, err := extractVectorConfig(node)
	if err != nil {
		return nil, fmt.Errorf("vector_search: node %s %w", node.ID, err)
	}
	client, err := ec.Providers.Vector(cfg.provider)
	if err != nil {
		return nil, fmt.Errorf("vector_search: node %s: %w", node.ID, err)
	}

	resolver := resolve.New(ec.State)
	vec, err := resolveVector(resolver, node.Input["vector"])
	if err != nil {
		return nil, fmt.Errorf("vector_search: node %s: %w", node.ID, err)
	}
	var filter map[string]any
	if raw, ok := node.Input["filter"]; ok {
		if f, ok := resolver.ResolveValue(raw).(map[string]any); ok {
			filter = f
		}
	}

	resp, err := client.Search(ec.Ctx, provider.VectorSearchRequest{
		Provider:            cfg.provider,
		IndexName:           cfg.indexName,
		Namespace:           cfg.namespace,
		Vector:              vec,
		TopK:                configInt(node, "top_k", 10),
		SimilarityThreshold: configFloat(node, "similarity_threshold", 0),
		Filter:              filter,
	})
	if err != nil {
		return nil, fmt.Errorf("vector_search: node %s: %w", node.ID, err)
	}

	matches := make([]map[string]any, len(resp.Matches))
	for i, m := range resp.Matches {
		matches[i] = map[string]any{"id": m.ID, "score": m.Score, "metadata": m.Metadata}
	}
	return map[string]any{"matches": matches}, nil
}

// VectorUpdateHandler implements VECTOR_UPDATE: modifies input.records'
// vectors and/or metadata in place.
type VectorUpdateHandler struct{}

// Execute resolves input.records and updates them in the vector store.
func (VectorUpdateHandler) Execute(ec registry.ExecContext, node *flow.Node) (any, error) {
	cfg, err := extractVectorConfig(node)
	if err != nil {
		return nil, fmt.Errorf("vector_update: node %s %w", node.ID, err)
	}
	client, err := ec.Providers.Vector(cfg.provider)
	if err != nil {
		return nil, fmt.Errorf("vector_update: node %s: %w", node.ID, err)
	}

	resolver := resolve.New(ec.State)
	records, err := resolveRecords(resolver, node.Input["records"])
	if err != nil {
		return nil, fmt.Errorf("vector_update: node %s: %w", node.ID, err)
	}

	resp, err := client.Update(ec.Ctx, provider.VectorUpdateRequest{
		Provider:  cfg.provider,
		IndexName: cfg.indexName,
		Namespace: cfg.namespace,
		Records:   records,
	})
	if err != nil {
		return nil, fmt.Errorf("vector_update: node %s: %w", node.ID, err)
	}
	return map[string]any{"updated_ids": resp.UpdatedIDs}, nil
}

// VectorDeleteHandler implements VECTOR_DELETE: removes input.ids from the
// configured provider/index.
type VectorDeleteHandler struct{}

// Execute resolves input.ids and deletes them from the vector store.
func (VectorDeleteHandler) Execute(ec registry.ExecContext, node *flow.Node) (any, error) {
	cfg, err := extractVectorConfig(node)
	if err != nil {
		return nil, fmt.Errorf("vector_delete: node %s %w", node.ID, err)
	}
	client, err := ec.Providers.Vector(cfg.provider)
	if err != nil {
		return nil, fmt.Errorf("vector_delete: node %s: %w", node.ID, err)
	}

	resolver := resolve.New(ec.State)
	ids, err := resolveStringSliceInput(resolver, node.Input["ids"])
	if err != nil {
		return nil, fmt.Errorf("vector_delete: node %s: %w", node.ID, err)
	}

	resp, err := client.Delete(ec.Ctx, provider.VectorDeleteRequest{
		Provider:  cfg.provider,
		IndexName: cfg.indexName,
		Namespace: cfg.namespace,
		IDs:       ids,
	})
	if err != nil {
		return nil, fmt.Errorf("vector_delete: node %s: %w", node.ID, err)
	}
	return map[string]any{"deleted_ids": resp.DeletedIDs}, nil
}
