package config

import (
	"context"
	"fmt"

	"github.com/flowforge/flowrun/fileref"
	"github.com/flowforge/flowrun/flow/executor"
	"github.com/flowforge/flowrun/flow/provider"
	"github.com/flowforge/flowrun/flow/provider/gemini"
	"github.com/flowforge/flowrun/flow/provider/milvus"
	"github.com/flowforge/flowrun/flow/provider/openai"
	"github.com/flowforge/flowrun/flow/provider/pgvector"
	"github.com/flowforge/flowrun/flow/provider/rasterizer"
	"github.com/flowforge/flowrun/log"
)

// BuildProviderRegistry wires one flow/provider client per entry in
// c.Providers, plus a fileref.Store and rasterizer.Stub that are always
// available regardless of the providers block (spec §6 "file"-typed
// variables and DOCUMENT_SPLITTER have no separate config surface). A
// provider whose config is present but whose client fails to construct is
// skipped with a warning rather than aborting the whole registry build:
// spec §6 says apiKey absence is fatal only when a node needing it runs, and
// that same leniency extends to any other provider construction failure.
func (c *Config) BuildProviderRegistry(ctx context.Context) *provider.Registry {
	reg := provider.NewRegistry()
	reg.SetFileStore(fileref.NewStore())
	reg.SetRasterizer(rasterizer.Stub{OutputDir: c.TempDir})

	for name, pc := range c.Providers["llm"] {
		client, err := buildLLMClient(ctx, name, pc)
		if err != nil {
			log.Warnf("config: skipping llm provider %q: %v", name, err)
			continue
		}
		reg.RegisterLLM(name, client)
	}

	for name, pc := range c.Providers["embedding"] {
		client, err := buildEmbeddingClient(ctx, name, pc)
		if err != nil {
			log.Warnf("config: skipping embedding provider %q: %v", name, err)
			continue
		}
		reg.RegisterEmbedding(name, client)
	}

	for name, pc := range c.Providers["vector"] {
		client, err := buildVectorClient(ctx, name, pc)
		if err != nil {
			log.Warnf("config: skipping vector provider %q: %v", name, err)
			continue
		}
		reg.RegisterVector(name, client)
	}

	return reg
}

// BuildExecutor wires a provider registry and returns an executor bound to
// c.Concurrency.GlobalLimit, ready to run flows.
func (c *Config) BuildExecutor(ctx context.Context) (*executor.Executor, error) {
	reg := c.BuildProviderRegistry(ctx)
	return executor.New(reg, c.Concurrency.GlobalLimit, log.Default)
}

func buildLLMClient(ctx context.Context, name string, pc ProviderConfig) (provider.LLMClient, error) {
	switch name {
	case "openai":
		return openai.New(openai.Options{APIKey: pc.APIKey, BaseURL: extraString(pc, "baseURL")}), nil
	case "gemini":
		return gemini.New(ctx, gemini.Options{APIKey: pc.APIKey})
	default:
		return nil, fmt.Errorf("unrecognized llm provider %q", name)
	}
}

func buildEmbeddingClient(ctx context.Context, name string, pc ProviderConfig) (provider.EmbeddingClient, error) {
	switch name {
	case "openai":
		return openai.New(openai.Options{APIKey: pc.APIKey, BaseURL: extraString(pc, "baseURL")}), nil
	case "gemini":
		return gemini.New(ctx, gemini.Options{APIKey: pc.APIKey})
	default:
		return nil, fmt.Errorf("unrecognized embedding provider %q", name)
	}
}

func buildVectorClient(ctx context.Context, name string, pc ProviderConfig) (provider.VectorClient, error) {
	dimension := extraInt(pc, "dimension", 1536)
	switch name {
	case "pgvector":
		connString := extraString(pc, "connString")
		if connString == "" {
			return nil, fmt.Errorf("pgvector provider requires extra.connString")
		}
		return pgvector.Connect(ctx, connString, dimension)
	case "milvus":
		address := extraString(pc, "address")
		if address == "" {
			return nil, fmt.Errorf("milvus provider requires extra.address")
		}
		return milvus.New(ctx, milvus.Options{
			Address:  address,
			Username: extraString(pc, "username"),
			Password: extraString(pc, "password"),
			DBName:   extraString(pc, "dbName"),
			APIKey:   pc.APIKey,
		}, dimension)
	default:
		return nil, fmt.Errorf("unrecognized vector provider %q", name)
	}
}

func extraString(pc ProviderConfig, key string) string {
	v, _ := pc.Extra[key].(string)
	return v
}

func extraInt(pc ProviderConfig, key string, fallback int) int {
	switch v := pc.Extra[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}
