// Package resolve implements the Variable Resolver (spec §4.4): given a
// string or structured value and a state registry view, it produces either
// a raw resolved value (single-reference mode) or a string with every
// {{…}} occurrence substituted in place (template mode).
package resolve

import (
	"fmt"

	"github.com/flowforge/flowrun/flow/reference"
	"github.com/flowforge/flowrun/flow/state"
)

// Resolver resolves {{…}} references against a State view.
type Resolver struct {
	State state.State
}

// New builds a Resolver against the given state view (a Registry or a
// ScopedRegistry — the resolver does not care which).
func New(s state.State) *Resolver {
	return &Resolver{State: s}
}

// ResolveValue resolves value, which may be a string, []any, map[string]any,
// or a scalar. Strings are resolved per String's single-reference/template
// rules; other shapes are walked recursively so references nested inside
// arrays and objects resolve too; scalars pass through unchanged.
func (r *Resolver) ResolveValue(value any) any {
	switch v := value.(type) {
	case string:
		return r.String(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.ResolveValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = r.ResolveValue(item)
		}
		return out
	default:
		return value
	}
}

// String resolves a single string value per spec §4.4's two modes.
func (r *Resolver) String(s string) any {
	if ref, ok := reference.IsSingleReference(s); ok {
		if v, found := r.State.Resolve(ref.Head, ref.Tail); found {
			return v
		}
		// Unresolved single reference: leave the literal token, matching
		// template mode's "unresolved reference stays literal" rule.
		return s
	}
	return r.substituteTemplate(s)
}

// substituteTemplate replaces every embedded {{…}} occurrence with the
// string form of its resolved value, leaving unresolved references as the
// original literal token (spec §4.4 template mode).
func (r *Resolver) substituteTemplate(s string) string {
	refs := reference.ScanString(s)
	if len(refs) == 0 {
		return s
	}
	out := s
	for _, ref := range refs {
		v, found := r.State.Resolve(ref.Head, ref.Tail)
		if !found {
			continue
		}
		out = replaceFirst(out, ref.Token, stringify(v))
	}
	return out
}

// replaceFirst replaces the first occurrence of old in s with new, leaving
// later occurrences of the same token to be replaced on their own turn
// through the loop in substituteTemplate (each ref in the scan list
// corresponds 1:1 with an occurrence, in order).
func replaceFirst(s, old, new string) string {
	idx := indexOf(s, old)
	if idx < 0 {
		return s
	}
	return s[:idx] + new + s[idx+len(old):]
}

func indexOf(s, substr string) int {
	n, m := len(s), len(substr)
	if m == 0 || m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}

// stringify renders a resolved value for template-mode substitution.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
