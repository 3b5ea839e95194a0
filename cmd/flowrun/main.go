// Command flowrun loads a flow definition and a host config from disk,
// validates and runs the flow to completion, and prints the run result,
// including its declared outputs, as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/flowforge/flowrun/config"
	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/executor"
	"github.com/flowforge/flowrun/flow/registry"
	"github.com/flowforge/flowrun/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flowPath := flag.String("flow", "flow.json", "path to a flow definition")
	configPath := flag.String("config", "config.json", "path to a host config file")
	inputPath := flag.String("input", "", "path to a JSON object of input variables (optional)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.LogLevel != "" {
		log.SetLevel(cfg.LogLevel)
	}

	parser := flow.NewParser()
	f, err := parser.ParseFile(*flowPath)
	if err != nil {
		return fmt.Errorf("failed to parse flow: %w", err)
	}
	log.Infof("flow %q loaded (%d nodes)", f.Name, len(f.Nodes))

	inputs, err := loadInputs(*inputPath)
	if err != nil {
		return err
	}

	exec, err := cfg.BuildExecutor(ctx)
	if err != nil {
		return fmt.Errorf("failed to build executor: %w", err)
	}

	hooks := executor.Hooks{
		BeforeNode: func(_ registry.ExecContext, node *flow.Node) {
			log.Infof("-> node %s (%s)", node.Name, node.Type)
		},
		OnError: func(_ registry.ExecContext, node *flow.Node, cause error) executor.Signal {
			log.Errorf("node %s failed: %v", node.Name, cause)
			return executor.SignalStop
		},
	}

	result, err := exec.Run(ctx, f, inputs, hooks)
	if err != nil {
		return fmt.Errorf("flow execution failed: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(out))

	if !result.Success {
		os.Exit(1)
	}
	return nil
}

func loadInputs(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inputs: %w", err)
	}
	var inputs map[string]any
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("failed to parse inputs: %w", err)
	}
	return inputs, nil
}
