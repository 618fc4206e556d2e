// Package router dispatches symbols to execution targets by contiguous
// symbol range, records a bounded history of execution contexts, and
// promotes busy entries with a threshold rule.
package router

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ppiankov/glyphgate/internal/model"
	"github.com/ppiankov/glyphgate/internal/symbol"
)

// ErrNoRoute matches every *NoRouteError.
var ErrNoRoute = errors.New("no route")

// NoRouteError is returned when no entry covers a symbol.
type NoRouteError struct {
	Symbol symbol.Symbol
}

func (e *NoRouteError) Error() string {
	return fmt.Sprintf("router: no route for %s", e.Symbol)
}

func (e *NoRouteError) Is(target error) bool {
	return target == ErrNoRoute
}

// Entry is the dispatch rule for one inclusive symbol range.
type Entry struct {
	Low          symbol.Symbol  `yaml:"low" json:"low"`
	High         symbol.Symbol  `yaml:"high" json:"high"`
	Target       string         `yaml:"target" json:"target"`
	Priority     model.Priority `yaml:"priority" json:"priority"`
	ContextAware bool           `yaml:"context_aware" json:"context_aware"`
}

// Contains reports whether s falls inside [Low, High].
func (e Entry) Contains(s symbol.Symbol) bool {
	return s >= e.Low && s <= e.High
}

// Range renders the bound as "U+E100-U+E1FF".
func (e Entry) Range() string {
	return fmt.Sprintf("%s-%s", e.Low, e.High)
}

// ValidateEntries rejects empty targets, inverted bounds and overlapping
// ranges. The input order is not changed.
func ValidateEntries(entries []Entry) error {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Low < sorted[j].Low })

	for i, e := range sorted {
		if e.Target == "" {
			return fmt.Errorf("router: entry %s: empty target", e.Range())
		}
		if e.Low > e.High {
			return fmt.Errorf("router: entry %s: low bound above high bound", e.Range())
		}
		if i > 0 && e.Low <= sorted[i-1].High {
			return fmt.Errorf("router: entry %s overlaps %s", e.Range(), sorted[i-1].Range())
		}
	}
	return nil
}

// DefaultEntries covers every band except reserved, one entry per band.
func DefaultEntries() []Entry {
	band := func(id symbol.BandID, target string, p model.Priority, ctx bool) Entry {
		b := symbol.BandByID(id)
		return Entry{Low: b.First, High: b.Last, Target: target, Priority: p, ContextAware: ctx}
	}
	return []Entry{
		band(symbol.BandCore, "core-dispatcher", model.PriorityHigh, false),
		band(symbol.BandHash, "hash-engine", model.PriorityHigh, false),
		band(symbol.BandContext, "context-graph", model.PriorityMedium, true),
		band(symbol.BandIntelligence, "intel-collector", model.PriorityCritical, true),
		band(symbol.BandEnvironmental, "environment-monitor", model.PriorityLow, true),
		band(symbol.BandTool, "tool-executor", model.PriorityMedium, false),
		band(symbol.BandSensor, "sensor-bridge", model.PriorityLow, false),
	}
}
