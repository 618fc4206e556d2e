package playbook

import (
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2/unstable"
)

// keyOrder maps a table path to its keys in document order. Path segments
// are joined by pathSep; array elements appear as "[i]" segments.
type keyOrder map[string][]string

const pathSep = "\x00"

func (o keyOrder) add(path []string, key string) {
	p := strings.Join(path, pathSep)
	for _, k := range o[p] {
		if k == key {
			return
		}
	}
	o[p] = append(o[p], key)
}

// addPath records every segment of keys below base.
func (o keyOrder) addPath(base, keys []string) []string {
	path := append([]string(nil), base...)
	for _, k := range keys {
		o.add(path, k)
		path = append(path, k)
	}
	return path
}

// tomlKeyOrder walks the TOML AST and records the order in which keys
// first appear. toml.Unmarshal into a map loses that order.
func tomlKeyOrder(data []byte) (keyOrder, error) {
	order := make(keyOrder)
	arrays := make(map[string]int)
	var current []string

	p := unstable.Parser{}
	p.Reset(data)
	for p.NextExpression() {
		e := p.Expression()
		switch e.Kind {
		case unstable.Table:
			current = order.addPath(nil, keyParts(e.Key()))
		case unstable.ArrayTable:
			path := order.addPath(nil, keyParts(e.Key()))
			joined := strings.Join(path, pathSep)
			current = append(path, elem(arrays[joined]))
			arrays[joined]++
		case unstable.KeyValue:
			order.keyValue(current, e)
		}
	}
	if err := p.Error(); err != nil {
		return nil, err
	}
	return order, nil
}

func (o keyOrder) keyValue(base []string, kv *unstable.Node) {
	path := o.addPath(base, keyParts(kv.Key()))
	o.value(path, kv.Value())
}

func (o keyOrder) value(path []string, v *unstable.Node) {
	switch v.Kind {
	case unstable.InlineTable:
		it := v.Children()
		for it.Next() {
			if n := it.Node(); n.Kind == unstable.KeyValue {
				o.keyValue(path, n)
			}
		}
	case unstable.Array:
		it := v.Children()
		for i := 0; it.Next(); i++ {
			o.value(append(append([]string(nil), path...), elem(i)), it.Node())
		}
	}
}

func keyParts(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

func elem(i int) string { return "[" + strconv.Itoa(i) + "]" }

// reorder puts the keys of t and its descendants in recorded order. Keys
// the order does not know keep their relative position at the end.
func (t *table) reorder(path []string, order keyOrder) {
	if known, ok := order[strings.Join(path, pathSep)]; ok {
		keys := make([]string, 0, len(t.keys))
		seen := make(map[string]bool, len(known))
		for _, k := range known {
			if _, ok := t.vals[k]; ok && !seen[k] {
				keys = append(keys, k)
				seen[k] = true
			}
		}
		for _, k := range t.keys {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
		t.keys = keys
	}
	for _, k := range t.keys {
		reorderValue(append(append([]string(nil), path...), k), t.vals[k], order)
	}
}

func reorderValue(path []string, v any, order keyOrder) {
	switch x := v.(type) {
	case *table:
		x.reorder(path, order)
	case []any:
		for i, e := range x {
			reorderValue(append(append([]string(nil), path...), elem(i)), e, order)
		}
	}
}
