package playbook

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/glyphgate/internal/model"
	"github.com/ppiankov/glyphgate/internal/symbol"
)

// Compile parses a TOML playbook document and validates it. Steps keep
// document order whether they are declared as an array of tables
// ([[playbook.steps]]) or as named sub-tables ([playbook.steps.<key>]).
func Compile(text string) (*Playbook, error) {
	var doc map[string]any
	if err := toml.Unmarshal([]byte(text), &doc); err != nil {
		msg := ""
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			msg = fmt.Sprintf("line %d column %d", row, col)
		}
		return nil, &CompileError{Stage: stageParse, Message: msg, Err: withCause(ErrMalformed, err)}
	}
	order, err := tomlKeyOrder([]byte(text))
	if err != nil {
		return nil, &CompileError{Stage: stageParse, Err: withCause(ErrMalformed, err)}
	}
	tree := fromMap(doc)
	tree.reorder(nil, order)
	return compileTree(tree, []byte(text))
}

// CompileYAML parses a YAML playbook document with the same shape as the
// TOML form. Mapping order is preserved, so named step tables keep document
// order.
func CompileYAML(data []byte) (*Playbook, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, &CompileError{Stage: stageParse, Err: withCause(ErrMalformed, err)}
	}
	root, err := fromYAML(&node)
	if err != nil {
		return nil, &CompileError{Stage: stageParse, Err: withCause(ErrMalformed, err)}
	}
	t, ok := root.(*table)
	if !ok {
		return nil, &CompileError{Stage: stageParse, Message: "document root must be a mapping", Err: ErrMalformed}
	}
	return compileTree(t, data)
}

// CompileFile reads path and compiles it by extension: .toml, .yaml or .yml.
func CompileFile(path string) (*Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("playbook: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return CompileYAML(data)
	case ".toml", "":
		return Compile(string(data))
	default:
		return nil, fmt.Errorf("playbook: unsupported file extension %q", filepath.Ext(path))
	}
}

// SourceHash returns "sha256:<hex>" of raw document bytes.
func SourceHash(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}

func compileTree(root *table, source []byte) (*Playbook, error) {
	pbTable, ok, err := root.sub("playbook")
	if err != nil {
		return nil, decodeErr("", "playbook", err.Error(), ErrMalformed)
	}
	if !ok {
		return nil, decodeErr("", "playbook", "missing top-level playbook table", ErrMalformed)
	}

	pb := &Playbook{SourceHash: SourceHash(bytes.TrimSpace(source))}

	name, _, err := pbTable.str("name")
	if err != nil {
		return nil, decodeErr("", "name", err.Error(), ErrMalformed)
	}
	if name == "" {
		return nil, decodeErr("", "name", "", ErrMissingName)
	}
	pb.Name = name

	pb.Version = DefaultVersion
	if v, ok, err := pbTable.str("version"); err != nil {
		return nil, decodeErr("", "version", err.Error(), ErrMalformed)
	} else if ok && v != "" {
		pb.Version = v
	}

	if pb.Description, _, err = pbTable.str("description"); err != nil {
		return nil, decodeErr("", "description", err.Error(), ErrMalformed)
	}

	if pb.Hash, err = decodeHash(pbTable); err != nil {
		return nil, err
	}
	if pb.Escalation, err = decodeEscalation(pbTable); err != nil {
		return nil, err
	}
	if pb.Assembly, err = decodeAssembly(pbTable); err != nil {
		return nil, err
	}
	if pb.Steps, err = decodeSteps(pbTable); err != nil {
		return nil, err
	}

	if err := pb.Validate(); err != nil {
		return nil, err
	}
	return pb, nil
}

func decodeHash(pb *table) (TrivariateHash, error) {
	var h TrivariateHash
	t, ok, err := pb.sub("trivariate_hash")
	if err != nil {
		return h, decodeErr("", "trivariate_hash", err.Error(), ErrMalformed)
	}
	if !ok {
		return h, nil
	}
	fields := []struct {
		key string
		dst *string
	}{
		{"sch", &h.SCH},
		{"cuid", &h.CUID},
		{"uuid", &h.UUID},
	}
	for _, f := range fields {
		v, _, err := t.str(f.key)
		if err != nil {
			return h, decodeErr("", "trivariate_hash."+f.key, err.Error(), ErrMalformed)
		}
		*f.dst = v
	}
	return h, nil
}

func decodeEscalation(pb *table) (EscalationHints, error) {
	t, ok, err := pb.sub("escalation")
	if err != nil {
		return nil, decodeErr("", "escalation", err.Error(), ErrMalformed)
	}
	if !ok {
		return nil, nil
	}
	hints := make(EscalationHints)
	for _, key := range t.keys {
		v, _ := t.get(key)
		vals, err := asStrings(v)
		if err != nil {
			return nil, decodeErr("", "escalation."+key, err.Error(), ErrMalformed)
		}
		hints[key] = vals
	}
	return hints, nil
}

func decodeAssembly(pb *table) (UnicodeAssembly, error) {
	ua := UnicodeAssembly{PrimaryTrigger: DefaultPrimaryTrigger}
	t, ok, err := pb.sub("unicode_assembly")
	if err != nil {
		return ua, decodeErr("", "unicode_assembly", err.Error(), ErrMalformed)
	}
	if !ok {
		return ua, nil
	}
	if v, ok, err := t.str("primary_trigger"); err != nil {
		return ua, decodeErr("", "unicode_assembly.primary_trigger", err.Error(), ErrMalformed)
	} else if ok && v != "" {
		ua.PrimaryTrigger = v
	}
	if ua.EscalationTriggers, err = t.strList("escalation_triggers"); err != nil {
		return ua, decodeErr("", "unicode_assembly.escalation_triggers", err.Error(), ErrMalformed)
	}
	return ua, nil
}

func decodeSteps(pb *table) ([]Step, error) {
	raw, ok := pb.get("steps")
	if !ok || raw == nil {
		return nil, nil
	}

	var steps []Step
	switch x := raw.(type) {
	case *table:
		for _, key := range x.keys {
			v, _ := x.get(key)
			st, ok := v.(*table)
			if !ok {
				return nil, decodeErr(key, "", "expected step table, got "+typeName(v), ErrMalformed)
			}
			step, err := decodeStep(st, key)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		}
	case []any:
		for i, v := range x {
			st, ok := v.(*table)
			if !ok {
				return nil, decodeErr("", fmt.Sprintf("steps[%d]", i), "expected step table, got "+typeName(v), ErrMalformed)
			}
			step, err := decodeStep(st, "")
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		}
	default:
		return nil, decodeErr("", "steps", "expected table or array of tables, got "+typeName(raw), ErrMalformed)
	}
	return steps, nil
}

// decodeStep parses one step table. key is the table key for the named-table
// form and names the step when the table has no name field.
func decodeStep(t *table, key string) (Step, error) {
	var s Step

	name, _, err := t.str("name")
	if err != nil {
		return s, decodeErr(key, "name", err.Error(), ErrMalformed)
	}
	if name == "" {
		name = key
	}
	if name == "" {
		return s, decodeErr("", "name", "", ErrMissingName)
	}
	s.Name = name

	rawTier, ok := t.get("tier")
	if !ok || rawTier == nil {
		return s, decodeErr(name, "tier", "tier is required", ErrMalformed)
	}
	n, err := asInt(rawTier)
	if err != nil {
		return s, decodeErr(name, "tier", err.Error(), ErrMalformed)
	}
	tier, err := model.TierFromOrdinal(n)
	if err != nil {
		return s, decodeErr(name, "tier", "", withCause(ErrTierOutOfRange, err))
	}
	s.Tier = tier

	s.Symbol = DefaultStepSymbol
	if lit, ok, err := t.str("unicode_op"); err != nil {
		return s, decodeErr(name, "unicode_op", err.Error(), ErrMalformed)
	} else if ok {
		sym, err := symbol.Parse(lit)
		if err != nil {
			return s, decodeErr(name, "unicode_op", "", withCause(ErrBadSymbol, err))
		}
		s.Symbol = sym
	}

	if s.Tool, _, err = t.str("tool"); err != nil {
		return s, decodeErr(name, "tool", err.Error(), ErrMalformed)
	}
	if s.Target, _, err = t.str("target"); err != nil {
		return s, decodeErr(name, "target", err.Error(), ErrMalformed)
	}
	if s.DependsOn, err = t.strList("depends_on"); err != nil {
		return s, decodeErr(name, "depends_on", err.Error(), ErrMalformed)
	}

	meta, ok, err := t.sub("metadata")
	if err != nil {
		return s, decodeErr(name, "metadata", err.Error(), ErrMalformed)
	}
	if ok {
		s.Metadata = make(map[string]string, len(meta.keys))
		for _, k := range meta.keys {
			v, _ := meta.get(k)
			str, err := asScalarString(v)
			if err != nil {
				return s, decodeErr(name, "metadata."+k, err.Error(), ErrMalformed)
			}
			s.Metadata[k] = str
		}
	}

	return s, nil
}
