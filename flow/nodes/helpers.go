// Package nodes implements the polymorphic node executors (spec §2 C5):
// one Handler per node kind, registered against flow/registry.Registry.
package nodes

import (
	"strings"

	"github.com/flowforge/flowrun/flow"
)

func configString(n *flow.Node, key string) string {
	if n.Config == nil {
		return ""
	}
	s, _ := n.Config[key].(string)
	return s
}

func configValue(n *flow.Node, key string) any {
	if n.Config == nil {
		return nil
	}
	return n.Config[key]
}

func configBool(n *flow.Node, key string) (bool, bool) {
	if n.Config == nil {
		return false, false
	}
	v, ok := n.Config[key].(bool)
	return v, ok
}

func configNumber(n *flow.Node, key string) (float64, bool) {
	if n.Config == nil {
		return 0, false
	}
	switch v := n.Config[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func configInt(n *flow.Node, key string, def int) int {
	v, ok := configNumber(n, key)
	if !ok {
		return def
	}
	return int(v)
}

func configFloat(n *flow.Node, key string, def float64) float64 {
	v, ok := configNumber(n, key)
	if !ok {
		return def
	}
	return v
}

func configStringSlice(n *flow.Node, key string) []string {
	raw, ok := configValue(n, key).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func splitPath(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}
