package playbook

import (
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"
)

// table is an ordered key-value node of the generic document tree.
// Both front ends normalize into it so decoding is format-independent.
type table struct {
	keys []string
	vals map[string]any
}

func newTable() *table {
	return &table{vals: make(map[string]any)}
}

func (t *table) set(k string, v any) {
	if _, ok := t.vals[k]; !ok {
		t.keys = append(t.keys, k)
	}
	t.vals[k] = v
}

func (t *table) get(k string) (any, bool) {
	v, ok := t.vals[k]
	return v, ok
}

// fromMap converts a decoded map into a table with keys in sorted order.
func fromMap(m map[string]any) *table {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := newTable()
	for _, k := range keys {
		t.set(k, normalize(m[k]))
	}
	return t
}

func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return fromMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = fromMap(e)
		}
		return out
	default:
		return v
	}
}

// fromYAML converts a yaml.Node, keeping mapping order.
func fromYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return newTable(), nil
		}
		return fromYAML(n.Content[0])
	case yaml.MappingNode:
		t := newTable()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping key must be a scalar", k.Line)
			}
			v, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			t.set(k.Value, v)
		}
		return t, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node", n.Line)
}

// --- typed accessors ---

func typeName(v any) string {
	switch v.(type) {
	case *table:
		return "table"
	case []any:
		return "array"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func (t *table) str(key string) (string, bool, error) {
	v, ok := t.get(key)
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, fmt.Errorf("expected string, got %s", typeName(v))
	}
	return s, true, nil
}

func (t *table) sub(key string) (*table, bool, error) {
	v, ok := t.get(key)
	if !ok || v == nil {
		return nil, false, nil
	}
	st, ok := v.(*table)
	if !ok {
		return nil, true, fmt.Errorf("expected table, got %s", typeName(v))
	}
	return st, true, nil
}

func (t *table) strList(key string) ([]string, error) {
	v, ok := t.get(key)
	if !ok || v == nil {
		return nil, nil
	}
	return asStrings(v)
}

func asStrings(v any) ([]string, error) {
	switch x := v.(type) {
	case string:
		return []string{x}, nil
	case []any:
		out := make([]string, 0, len(x))
		for i, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: expected string, got %s", i, typeName(e))
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string or array of strings, got %s", typeName(v))
	}
}

func asInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("integer overflow")
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %s", typeName(v))
	}
}

func asScalarString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(x), nil
	default:
		return "", fmt.Errorf("expected scalar, got %s", typeName(v))
	}
}
