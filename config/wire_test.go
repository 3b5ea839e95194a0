package config

import (
	"context"
	"testing"
)

func TestBuildProviderRegistryAlwaysWiresFilesAndRasterizer(t *testing.T) {
	c := &Config{Concurrency: Concurrency{GlobalLimit: 1}}
	reg := c.BuildProviderRegistry(context.Background())

	if _, ok := reg.Files(); !ok {
		t.Fatal("expected a file store to always be wired")
	}
	if _, ok := reg.Rasterizer(); !ok {
		t.Fatal("expected a rasterizer to always be wired")
	}
}

func TestBuildProviderRegistrySkipsUnrecognizedProviderName(t *testing.T) {
	c := &Config{
		Concurrency: Concurrency{GlobalLimit: 1},
		Providers: map[string]map[string]ProviderConfig{
			"llm": {"not-a-real-provider": {APIKey: "x"}},
		},
	}
	reg := c.BuildProviderRegistry(context.Background())

	if _, err := reg.LLM("not-a-real-provider"); err == nil {
		t.Fatal("expected unrecognized provider name to be skipped, not registered")
	}
}

func TestBuildProviderRegistryWiresOpenAIWithoutNetworkCall(t *testing.T) {
	c := &Config{
		Concurrency: Concurrency{GlobalLimit: 1},
		Providers: map[string]map[string]ProviderConfig{
			"llm": {"openai": {APIKey: "sk-test"}},
		},
	}
	reg := c.BuildProviderRegistry(context.Background())

	if _, err := reg.LLM("openai"); err != nil {
		t.Fatalf("expected openai client to be registered: %v", err)
	}
}

func TestBuildProviderRegistrySkipsVectorProviderMissingConnectionInfo(t *testing.T) {
	c := &Config{
		Concurrency: Concurrency{GlobalLimit: 1},
		Providers: map[string]map[string]ProviderConfig{
			"vector": {"pgvector": {}},
		},
	}
	reg := c.BuildProviderRegistry(context.Background())

	if _, err := reg.Vector("pgvector"); err == nil {
		t.Fatal("expected pgvector without connString to be skipped")
	}
}
