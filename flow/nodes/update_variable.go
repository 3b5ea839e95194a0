package nodes

import (
	"encoding/json"
	"fmt"

	"github.com/flowforge/flowrun/flow"
	"github.com/flowforge/flowrun/flow/condition"
	"github.com/flowforge/flowrun/flow/registry"
	"github.com/flowforge/flowrun/flow/resolve"
	"github.com/flowforge/flowrun/flow/state"
)

// Update-Variable operation tags (spec §4.5).
const (
	OpUpdate  = "update"
	OpJoin    = "join"
	OpAppend  = "append"
	OpExtract = "extract"
	OpPick    = "pick"
	OpOmit    = "omit"
	OpMap     = "map"
	OpFilter  = "filter"
	OpSlice   = "slice"
	OpFlatten = "flatten"
	OpConcat  = "concat"
)

// defaultStringify gives the per-operation stringify_output default; any
// operation absent from this map defaults to false.
var defaultStringify = map[string]bool{
	OpJoin:   true,
	OpAppend: true,
}

// UpdateVariableHandler implements the UPDATE_VARIABLE node, consuming a
// target variable id, an operation tag, and the resolved payload (spec
// §4.5). It is grounded in the teacher's builtin.set_state
// assignment-by-expression model for the update/join/append cases; the
// extended operation family is this spec's own addition, written in the
// same defensive "skip rather than fail on a malformed element" style.
type UpdateVariableHandler struct{}

// Execute runs the configured operation and records a structured output.
func (UpdateVariableHandler) Execute(ec registry.ExecContext, node *flow.Node) (any, error) {
	variableID := configString(node, "variable_id")
	op := configString(node, "type")
	if variableID == "" || op == "" {
		return nil, fmt.Errorf("update_variable: node %s requires config.variable_id and config.type", node.ID)
	}

	resolver := resolve.New(ec.State)
	payload := resolver.ResolveValue(node.Value)
	previous, _ := ec.State.GetVariable(variableID)

	stringify := defaultStringify[op]
	if v, ok := configBool(node, "stringify_output"); ok {
		stringify = v
	}

	newValue, err := applyOperation(op, node, previous, payload, stringify)
	if err != nil {
		return nil, fmt.Errorf("update_variable: node %s: %w", node.ID, err)
	}

	if !ec.State.HasVariable(variableID) && ec.Logger != nil {
		ec.Logger.Warnf("update_variable: node %s creates previously undeclared variable %q", node.ID, variableID)
	}
	if err := ec.State.SetVariable(variableID, newValue); err != nil {
		return nil, fmt.Errorf("update_variable: node %s: %w", node.ID, err)
	}

	return map[string]any{
		"variable_id":    variableID,
		"previous_value": previous,
		"new_value":      newValue,
		"operation":      op,
		"resolved_input": payload,
	}, nil
}

func applyOperation(op string, node *flow.Node, previous, payload any, stringify bool) (any, error) {
	switch op {
	case OpUpdate:
		return payload, nil
	case OpJoin:
		sep := configString(node, "join_str")
		return stringifyForJoin(previous, stringify) + sep + stringifyForJoin(payload, stringify), nil
	case OpAppend:
		seq, _ := asSequence(previous)
		item := payload
		if stringify {
			item = jsonStringify(item)
		}
		return append(append([]any{}, seq...), item), nil
	case OpExtract:
		return applyExtract(node, payload)
	case OpPick:
		return applyPickOrOmit(node, payload, pickFields)
	case OpOmit:
		return applyPickOrOmit(node, payload, omitFields)
	case OpMap:
		return applyMap(node, payload)
	case OpFilter:
		return applyFilter(node, payload)
	case OpSlice:
		return applySlice(node, payload)
	case OpFlatten:
		return applyFlatten(payload)
	case OpConcat:
		return applyConcat(previous, payload)
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}

func applyExtract(node *flow.Node, payload any) (any, error) {
	seq, ok := asSequence(payload)
	if !ok {
		return nil, fmt.Errorf("extract requires a sequence payload")
	}
	fieldPath := splitPath(configString(node, "field_path"))
	out := make([]any, 0, len(seq))
	for _, el := range seq {
		v := state.Navigate(el, fieldPath)
		if v == nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func applyPickOrOmit(node *flow.Node, payload any, fn func(any, []string) any) (any, error) {
	fields := configStringSlice(node, "fields")
	if seq, ok := asSequence(payload); ok {
		out := make([]any, len(seq))
		for i, el := range seq {
			out[i] = fn(el, fields)
		}
		return out, nil
	}
	return fn(payload, fields), nil
}

func applyMap(node *flow.Node, payload any) (any, error) {
	seq, ok := asSequence(payload)
	if !ok {
		return nil, fmt.Errorf("map requires a sequence payload")
	}
	mapping, _ := configValue(node, "mapping").(map[string]any)
	out := make([]any, len(seq))
	for i, el := range seq {
		out[i] = applyMapping(el, mapping)
	}
	return out, nil
}

func applyFilter(node *flow.Node, payload any) (any, error) {
	seq, ok := asSequence(payload)
	if !ok {
		return nil, fmt.Errorf("filter requires a sequence payload")
	}
	cond, _ := configValue(node, "condition").(map[string]any)
	field, _ := cond["field"].(string)
	operator, _ := cond["operator"].(string)
	expected := cond["value"]

	var out []any
	for _, el := range seq {
		actual := state.Navigate(el, splitPath(field))
		matched, err := condition.Evaluate(operator, actual, expected)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, el)
		}
	}
	return out, nil
}

func applySlice(node *flow.Node, payload any) (any, error) {
	seq, ok := asSequence(payload)
	if !ok {
		return nil, fmt.Errorf("slice requires a sequence payload")
	}
	start := configInt(node, "slice_start", 0)
	end := len(seq)
	if v, ok := configNumber(node, "slice_end"); ok {
		end = int(v)
	}
	start, end = clampSlice(start, end, len(seq))
	return append([]any{}, seq[start:end]...), nil
}

func applyFlatten(payload any) (any, error) {
	seq, ok := asSequence(payload)
	if !ok {
		return nil, fmt.Errorf("flatten requires a sequence payload")
	}
	out := make([]any, 0, len(seq))
	for _, el := range seq {
		if inner, ok := asSequence(el); ok {
			out = append(out, inner...)
		} else {
			out = append(out, el)
		}
	}
	return out, nil
}

func applyConcat(previous, payload any) (any, error) {
	a, aok := asSequence(previous)
	b, bok := asSequence(payload)
	if !aok || !bok {
		return nil, fmt.Errorf("concat requires target and payload to both be sequences")
	}
	out := make([]any, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out, nil
}

func clampSlice(start, end, length int) (int, int) {
	if start < 0 {
		start = 0
	}
	if start > length {
		start = length
	}
	if end < 0 {
		end = 0
	}
	if end > length {
		end = length
	}
	if end < start {
		end = start
	}
	return start, end
}

func asSequence(v any) ([]any, bool) {
	seq, ok := v.([]any)
	return seq, ok
}

func pickFields(value any, fields []string) any {
	obj, ok := value.(map[string]any)
	if !ok {
		return value
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		path := splitPath(f)
		if len(path) == 0 {
			continue
		}
		v := state.Navigate(obj, path)
		if v == nil {
			continue
		}
		out[path[len(path)-1]] = v
	}
	return out
}

func omitFields(value any, fields []string) any {
	obj, ok := value.(map[string]any)
	if !ok {
		return value
	}
	out := deepCopyMap(obj)
	for _, f := range fields {
		deletePath(out, splitPath(f))
	}
	return out
}

func deletePath(obj map[string]any, path []string) {
	if len(path) == 0 {
		return
	}
	if len(path) == 1 {
		delete(obj, path[0])
		return
	}
	next, ok := obj[path[0]].(map[string]any)
	if !ok {
		return
	}
	deletePath(next, path[1:])
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(nested)
		} else {
			out[k] = v
		}
	}
	return out
}

func applyMapping(element any, mapping map[string]any) map[string]any {
	out := make(map[string]any, len(mapping))
	for targetKey, spec := range mapping {
		if path, ok := spec.(string); ok {
			out[targetKey] = state.Navigate(element, splitPath(path))
			continue
		}
		out[targetKey] = spec
	}
	return out
}

func stringifyForJoin(v any, stringify bool) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		if stringify {
			return jsonStringify(val)
		}
		return fmt.Sprintf("%v", val)
	}
}

func jsonStringify(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
