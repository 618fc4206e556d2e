// Package gate decides whether work may move between escalation tiers.
// Each decision measures drift from the prior frame, combines it into a
// weight, compares the weight against a threshold, and is handed to a
// diagnostics sink for offline calibration. Denial is a normal outcome;
// the gate never returns an error.
package gate

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ppiankov/glyphgate/internal/audit"
	"github.com/ppiankov/glyphgate/internal/model"
	"github.com/ppiankov/glyphgate/internal/symbol"
)

// DefaultThreshold is the minimum weight for a transition to pass.
const DefaultThreshold = 0.5

// Config controls gate decisions.
type Config struct {
	Threshold float64
	Combiner  Combiner

	// MaxTierStep denies upward transitions that skip more than this many
	// tiers. Zero disables the check.
	MaxTierStep int

	// Hash identifies the configuration source in audit records.
	Hash string
}

// DefaultConfig returns threshold 0.5 with the default weighted combiner.
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold, Combiner: DefaultWeights}
}

// Verdict is the outcome of one gate evaluation.
type Verdict struct {
	From       model.Tier `json:"from"`
	To         model.Tier `json:"to"`
	Path       string     `json:"path"`
	Delta      Delta      `json:"delta"`
	Unmeasured bool       `json:"unmeasured"`
	Weight     float64    `json:"weight"`
	Threshold  float64    `json:"threshold"`
	Combiner   string     `json:"combiner"`
	Passed     bool       `json:"passed"`
	Reason     string     `json:"reason,omitempty"`
}

// Decision is what the gate hands to its sink.
type Decision struct {
	Verdict
	OperationID string        `json:"operation_id"`
	Symbol      symbol.Symbol `json:"symbol"`
	Timestamp   time.Time     `json:"timestamp"`
	ConfigHash  string        `json:"config_hash,omitempty"`
}

// AuditEntry converts the decision into an audit log record.
func (d Decision) AuditEntry() audit.AuditEntry {
	decision := audit.DecisionDeny
	if d.Passed {
		decision = audit.DecisionPass
	}
	ts := ""
	if !d.Timestamp.IsZero() {
		ts = d.Timestamp.UTC().Format(audit.TimestampFormat)
	}
	return audit.AuditEntry{
		Timestamp:   ts,
		OperationID: d.OperationID,
		Symbol:      d.Symbol.String(),
		Path:        d.Path,
		FromTier:    int(d.From),
		ToTier:      int(d.To),
		Delta: audit.AuditDelta{
			Structural:    d.Delta.Structural,
			Environmental: d.Delta.Environmental,
			Semantic:      d.Delta.Semantic,
		},
		Unmeasured: d.Unmeasured,
		Weight:     d.Weight,
		Threshold:  d.Threshold,
		Combiner:   d.Combiner,
		Decision:   decision,
		Reason:     d.Reason,
		ConfigHash: d.ConfigHash,
	}
}

// Gate evaluates tier transitions. Safe for concurrent use.
type Gate struct {
	cfg  atomic.Pointer[Config]
	sink Sink
	now  func() time.Time
}

// New creates a gate. A nil combiner selects DefaultWeights; a nil sink
// discards decisions.
func New(cfg Config, sink Sink) *Gate {
	if sink == nil {
		sink = NopSink{}
	}
	g := &Gate{sink: sink, now: time.Now}
	g.SetConfig(cfg)
	return g
}

// SetConfig swaps the configuration. In-flight evaluations finish under
// the config they started with.
func (g *Gate) SetConfig(cfg Config) {
	if cfg.Combiner == nil {
		cfg.Combiner = DefaultWeights
	}
	g.cfg.Store(&cfg)
}

// Config returns the active configuration.
func (g *Gate) Config() Config {
	return *g.cfg.Load()
}

// Evaluate decides whether current may move from one tier to another.
// With a nil prior the delta is the zero vector and the verdict is
// marked Unmeasured.
func (g *Gate) Evaluate(from, to model.Tier, current model.ExecutionContext, prior *Prior) Verdict {
	cfg := g.cfg.Load()

	var d Delta
	if prior != nil {
		d = Measure(*prior, current, from, to)
	}
	v := Score(*cfg, from, to, d, prior == nil)

	g.sink.Record(Decision{
		Verdict:     v,
		OperationID: current.OperationID,
		Symbol:      current.Symbol,
		Timestamp:   g.now().UTC(),
		ConfigHash:  cfg.Hash,
	})
	return v
}

// Score applies cfg to an already measured delta. It is the pure part of
// Evaluate and is used to re-score recorded decisions.
func Score(cfg Config, from, to model.Tier, d Delta, unmeasured bool) Verdict {
	if cfg.Combiner == nil {
		cfg.Combiner = DefaultWeights
	}
	v := Verdict{
		From:       from,
		To:         to,
		Path:       model.EscalationPath(from, to),
		Delta:      d,
		Unmeasured: unmeasured,
		Threshold:  cfg.Threshold,
		Combiner:   cfg.Combiner.Name(),
	}
	v.Weight = clamp01(cfg.Combiner.Combine(d))
	v.Passed = v.Weight >= cfg.Threshold

	switch {
	case !from.Valid() || !to.Valid():
		v.Passed = false
		v.Reason = fmt.Sprintf("tier outside ladder: %d->%d", from, to)
	case cfg.MaxTierStep > 0 && model.TierDistance(from, to) > cfg.MaxTierStep:
		v.Passed = false
		v.Reason = fmt.Sprintf("tier step %d exceeds max %d", model.TierDistance(from, to), cfg.MaxTierStep)
	case !v.Passed:
		v.Reason = fmt.Sprintf("weight %.3f below threshold %.3f", v.Weight, cfg.Threshold)
	}
	return v
}

// GatedPayload wraps a payload with its gate outcome.
type GatedPayload[T any] struct {
	Payload T       `json:"payload"`
	Passed  bool    `json:"passed"`
	Weight  float64 `json:"gated_weight"`
	Verdict Verdict `json:"verdict"`
}

// Escalate runs payload through g and wraps the result.
func Escalate[T any](g *Gate, payload T, from, to model.Tier, current model.ExecutionContext, prior *Prior) GatedPayload[T] {
	v := g.Evaluate(from, to, current, prior)
	return GatedPayload[T]{
		Payload: payload,
		Passed:  v.Passed,
		Weight:  v.Weight,
		Verdict: v,
	}
}
