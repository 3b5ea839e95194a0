package provider

import (
	"fmt"
	"sync"
)

// Registry maps (category, provider name) to a configured client. Node
// executors look up their configured provider here rather than holding a
// concrete client reference, so the same executor works against any wired
// backend.
type Registry struct {
	mu      sync.RWMutex
	llm     map[string]LLMClient
	embed   map[string]EmbeddingClient
	vector  map[string]VectorClient
	files   FileStore
	raster  PDFRasterizer
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llm:    make(map[string]LLMClient),
		embed:  make(map[string]EmbeddingClient),
		vector: make(map[string]VectorClient),
	}
}

// RegisterLLM wires an LLM client under the given provider name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = client
}

// RegisterEmbedding wires an embedding client under the given provider name.
func (r *Registry) RegisterEmbedding(name string, client EmbeddingClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embed[name] = client
}

// RegisterVector wires a vector client under the given provider name.
func (r *Registry) RegisterVector(name string, client VectorClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vector[name] = client
}

// SetFileStore wires the single process-wide file store.
func (r *Registry) SetFileStore(store FileStore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = store
}

// SetRasterizer wires the single process-wide PDF rasterizer.
func (r *Registry) SetRasterizer(rasterizer PDFRasterizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raster = rasterizer
}

// LLM returns the configured LLM client for name.
func (r *Registry) LLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.llm[name]
	if !ok {
		return nil, fmt.Errorf("provider: llm provider %q is not configured", name)
	}
	return c, nil
}

// Embedding returns the configured embedding client for name.
func (r *Registry) Embedding(name string) (EmbeddingClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.embed[name]
	if !ok {
		return nil, fmt.Errorf("provider: embedding provider %q is not configured", name)
	}
	return c, nil
}

// Vector returns the configured vector client for name.
func (r *Registry) Vector(name string) (VectorClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.vector[name]
	if !ok {
		return nil, fmt.Errorf("provider: vector provider %q is not configured", name)
	}
	return c, nil
}

// Files returns the process-wide file store, if one was wired.
func (r *Registry) Files() (FileStore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.files, r.files != nil
}

// Rasterizer returns the process-wide PDF rasterizer, if one was wired.
func (r *Registry) Rasterizer() (PDFRasterizer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.raster, r.raster != nil
}

// Available returns, for each category ("llm", "embedding", "vector"), the
// set of registered provider names, used to translate Registry contents into
// a flow.ProviderSet for the validator.
func (r *Registry) Available() map[string]map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]map[string]bool{
		"llm":       make(map[string]bool, len(r.llm)),
		"embedding": make(map[string]bool, len(r.embed)),
		"vector":    make(map[string]bool, len(r.vector)),
	}
	for name := range r.llm {
		out["llm"][name] = true
	}
	for name := range r.embed {
		out["embedding"][name] = true
	}
	for name := range r.vector {
		out["vector"][name] = true
	}
	return out
}
