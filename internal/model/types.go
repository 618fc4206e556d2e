package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/glyphgate/internal/symbol"
)

// Priority is the dispatch urgency of an operation. Higher value = more urgent.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// PriorityLevels lists every priority from lowest to highest.
var PriorityLevels = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// String returns the lowercase label for the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ParsePriority maps a label to a Priority. Matching is case-insensitive.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	default:
		return 0, fmt.Errorf("unknown priority %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ExecutionContext is the audit record of one routed operation.
// It is appended once to the router history and never mutated.
type ExecutionContext struct {
	OperationID     string            `json:"operation_id"`
	Seq             uint64            `json:"seq"`
	Symbol          symbol.Symbol     `json:"symbol"`
	Priority        Priority          `json:"priority"`
	Timestamp       time.Time         `json:"timestamp"`
	CorrelationHash string            `json:"correlation_hash,omitempty"`
	Environment     map[string]string `json:"environment,omitempty"`
}

// EnvironmentPairs returns the environment tags as sorted "key=value" strings.
func (c ExecutionContext) EnvironmentPairs() []string {
	pairs := make([]string, 0, len(c.Environment))
	for k, v := range c.Environment {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return pairs
}
