// Package reference implements the Reference Scanner: extraction of
// {{head(.tail)*}} tokens from arbitrary JSON-shaped values.
//
// The scanner itself is scope-agnostic — it only recognizes the `{{…}}`
// grammar and splits the expression into a head identifier and a dotted
// tail. Scope-aware resolution (which head names an iteration key, a node
// id, or a flow variable) is the caller's job, since that requires knowledge
// of the surrounding flow that this package intentionally does not have.
package reference

import (
	"regexp"
	"strings"
)

// Reference is a single {{…}} occurrence: a head identifier, an optional
// dotted tail, and the original token text (including braces) as it
// appeared in the source value.
type Reference struct {
	Head  string
	Tail  []string
	Token string
}

// TailString joins Tail back into a dotted path, or "" if there is no tail.
func (r Reference) TailString() string {
	return strings.Join(r.Tail, ".")
}

// HasTail reports whether the reference carries any dotted tail segments.
func (r Reference) HasTail() bool {
	return len(r.Tail) > 0
}

// referencePattern matches {{ identifier(.segment)* }} with optional
// surrounding whitespace inside the braces. A tail segment may be all digits,
// so slice indices such as {{node.output.records.0}} are recognized.
var referencePattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*)\s*\}\}`)

// singleReferencePattern is the "whole string is one reference" test from
// spec §9: `^\s*{{[^}]+}}\s*$`.
var singleReferencePattern = regexp.MustCompile(`^\s*\{\{\s*([^{}]+?)\s*\}\}\s*$`)

// parseExpr splits a dotted expression ("node.output.field") into head and
// tail segments.
func parseExpr(expr string) Reference {
	parts := strings.Split(expr, ".")
	ref := Reference{Head: parts[0]}
	if len(parts) > 1 {
		ref.Tail = parts[1:]
	}
	return ref
}

// ScanString extracts every {{…}} occurrence from a single string.
func ScanString(s string) []Reference {
	matches := referencePattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		ref := parseExpr(m[1])
		ref.Token = m[0]
		refs = append(refs, ref)
	}
	return refs
}

// Scan recursively extracts every {{…}} reference appearing anywhere within
// value, which may be a string, []any, map[string]any, or any nesting of
// those (the shapes that arise from decoding JSON into `any`).
func Scan(value any) []Reference {
	var out []Reference
	walk(value, &out)
	return out
}

func walk(value any, out *[]Reference) {
	switch v := value.(type) {
	case string:
		*out = append(*out, ScanString(v)...)
	case []any:
		for _, item := range v {
			walk(item, out)
		}
	case map[string]any:
		for _, item := range v {
			walk(item, out)
		}
	default:
		// Scalars (number, bool, nil) carry no references.
	}
}

// IsSingleReference reports whether s, trimmed of surrounding whitespace, is
// exactly one {{…}} token (spec §4.4 / §9's "single-reference mode" test).
// When true, the returned Reference's head/tail describe the whole
// expression.
func IsSingleReference(s string) (Reference, bool) {
	m := singleReferencePattern.FindStringSubmatch(s)
	if m == nil {
		return Reference{}, false
	}
	expr := strings.TrimSpace(m[1])
	if expr == "" {
		return Reference{}, false
	}
	ref := parseExpr(expr)
	ref.Token = strings.TrimSpace(s)
	return ref, true
}
