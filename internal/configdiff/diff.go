// Package configdiff compares two glyphgate configurations.
package configdiff

import (
	"fmt"
	"strings"

	"github.com/ppiankov/glyphgate/internal/config"
	"github.com/ppiankov/glyphgate/internal/router"
	"github.com/ppiankov/glyphgate/internal/symbol"
)

// Change represents a scalar field change.
type Change struct {
	Field   string `json:"field"`
	Old     string `json:"old"`
	New     string `json:"new"`
	Comment string `json:"comment,omitempty"`
}

// ItemChange represents a router entry or binding that was added, removed
// or changed.
type ItemChange struct {
	Type string `json:"type"` // "added", "removed", "changed"
	Item string `json:"item"`
}

// DiffResult holds the comparison of two configs.
type DiffResult struct {
	OldPath        string       `json:"old_path"`
	NewPath        string       `json:"new_path"`
	Changes        []Change     `json:"changes"`
	EntryChanges   []ItemChange `json:"entry_changes"`
	BindingChanges []ItemChange `json:"binding_changes"`
	HasChanges     bool         `json:"has_changes"`
}

// Diff compares two configs and returns the differences.
func Diff(old, new *config.Config) *DiffResult {
	r := &DiffResult{}

	// a higher threshold denies more transitions
	diffFloat(r, "gate.threshold", old.Gate.Threshold, new.Gate.Threshold, true)
	if !strings.EqualFold(old.Gate.Combiner, new.Gate.Combiner) {
		r.Changes = append(r.Changes, Change{Field: "gate.combiner", Old: old.Gate.Combiner, New: new.Gate.Combiner})
	}
	// a heavier axis weight lets that axis pull the score down further
	diffFloat(r, "gate.weights.structural", old.Gate.Weights.Structural, new.Gate.Weights.Structural, true)
	diffFloat(r, "gate.weights.environmental", old.Gate.Weights.Environmental, new.Gate.Weights.Environmental, true)
	diffFloat(r, "gate.weights.semantic", old.Gate.Weights.Semantic, new.Gate.Weights.Semantic, true)
	if old.Gate.MaxTierStep != new.Gate.MaxTierStep {
		r.Changes = append(r.Changes, Change{
			Field:   "gate.max_tier_step",
			Old:     fmt.Sprintf("%d", old.Gate.MaxTierStep),
			New:     fmt.Sprintf("%d", new.Gate.MaxTierStep),
			Comment: stepComment(old.Gate.MaxTierStep, new.Gate.MaxTierStep),
		})
	}

	diffInt(r, "router.history_capacity", old.Router.HistoryCapacity, new.Router.HistoryCapacity)
	diffInt(r, "router.optimize_threshold", old.Router.OptimizeThreshold, new.Router.OptimizeThreshold)
	if old.Audit.Path != new.Audit.Path {
		r.Changes = append(r.Changes, Change{Field: "audit.path", Old: old.Audit.Path, New: new.Audit.Path})
	}
	diffInt(r, "audit.buffer", old.Audit.Buffer, new.Audit.Buffer)

	r.EntryChanges = diffEntries(old.Router.Entries, new.Router.Entries)
	r.BindingChanges = diffBindings(old.Bindings, new.Bindings)

	r.HasChanges = len(r.Changes) > 0 || len(r.EntryChanges) > 0 || len(r.BindingChanges) > 0
	return r
}

func diffFloat(r *DiffResult, field string, old, new float64, higherIsStricter bool) {
	if old == new {
		return
	}
	comment := "looser"
	if (new > old) == higherIsStricter {
		comment = "stricter"
	}
	r.Changes = append(r.Changes, Change{
		Field:   field,
		Old:     fmt.Sprintf("%g", old),
		New:     fmt.Sprintf("%g", new),
		Comment: comment,
	})
}

func diffInt(r *DiffResult, field string, old, new int) {
	if old != new {
		r.Changes = append(r.Changes, Change{
			Field: field,
			Old:   fmt.Sprintf("%d", old),
			New:   fmt.Sprintf("%d", new),
		})
	}
}

// stepComment treats 0 as "no limit".
func stepComment(old, new int) string {
	switch {
	case new == 0:
		return "looser"
	case old == 0:
		return "stricter"
	case new < old:
		return "stricter"
	default:
		return "looser"
	}
}

func entryLabel(e router.Entry) string {
	ctx := ""
	if e.ContextAware {
		ctx = " context-aware"
	}
	return fmt.Sprintf("%s %s (%s%s)", e.Range(), e.Target, e.Priority, ctx)
}

func diffEntries(oldEntries, newEntries []router.Entry) []ItemChange {
	oldMap := make(map[string]router.Entry, len(oldEntries))
	for _, e := range oldEntries {
		oldMap[e.Range()] = e
	}
	newMap := make(map[string]router.Entry, len(newEntries))
	for _, e := range newEntries {
		newMap[e.Range()] = e
	}

	var out []ItemChange
	for _, e := range newEntries {
		if prev, exists := oldMap[e.Range()]; exists {
			if prev != e {
				out = append(out, ItemChange{
					Type: "changed",
					Item: fmt.Sprintf("%s (was: %s)", entryLabel(e), entryLabel(prev)),
				})
			}
		} else {
			out = append(out, ItemChange{Type: "added", Item: entryLabel(e)})
		}
	}
	for _, e := range oldEntries {
		if _, exists := newMap[e.Range()]; !exists {
			out = append(out, ItemChange{Type: "removed", Item: entryLabel(e)})
		}
	}
	return out
}

func bindingLabel(b symbol.Binding) string {
	parts := make([]string, len(b.Symbols))
	for i, s := range b.Symbols {
		parts[i] = s.String()
	}
	return fmt.Sprintf("%s [%s] primary %s", b.Name, strings.Join(parts, " "), b.Primary)
}

func diffBindings(oldBindings, newBindings []symbol.Binding) []ItemChange {
	oldMap := make(map[string]symbol.Binding, len(oldBindings))
	for _, b := range oldBindings {
		oldMap[b.Name] = b
	}
	newMap := make(map[string]symbol.Binding, len(newBindings))
	for _, b := range newBindings {
		newMap[b.Name] = b
	}

	var out []ItemChange
	for _, b := range newBindings {
		if prev, exists := oldMap[b.Name]; exists {
			if bindingLabel(prev) != bindingLabel(b) {
				out = append(out, ItemChange{
					Type: "changed",
					Item: fmt.Sprintf("%s (was: %s)", bindingLabel(b), bindingLabel(prev)),
				})
			}
		} else {
			out = append(out, ItemChange{Type: "added", Item: bindingLabel(b)})
		}
	}
	for _, b := range oldBindings {
		if _, exists := newMap[b.Name]; !exists {
			out = append(out, ItemChange{Type: "removed", Item: bindingLabel(b)})
		}
	}
	return out
}
