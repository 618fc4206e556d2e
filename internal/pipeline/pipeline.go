// Package pipeline routes and gates compiled playbooks step by step.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ppiankov/glyphgate/internal/config"
	"github.com/ppiankov/glyphgate/internal/gate"
	"github.com/ppiankov/glyphgate/internal/model"
	"github.com/ppiankov/glyphgate/internal/playbook"
	"github.com/ppiankov/glyphgate/internal/router"
	"github.com/ppiankov/glyphgate/internal/symbol"
)

// Pipeline holds the registry, router and gate used to plan playbooks.
// Safe for concurrent use; the registry can be swapped on reload.
type Pipeline struct {
	reg    atomic.Pointer[symbol.Registry]
	router *router.Router
	gate   *gate.Gate
	logger *zap.Logger
}

// New assembles a pipeline from its parts. A nil logger discards output.
func New(reg *symbol.Registry, r *router.Router, g *gate.Gate, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{router: r, gate: g, logger: logger}
	p.reg.Store(reg)
	return p
}

// FromConfig builds the registry, router and gate described by cfg.
// hash is stamped on every gate decision.
func FromConfig(cfg *config.Config, hash string, sink gate.Sink, logger *zap.Logger) (*Pipeline, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	r, err := cfg.NewRouter()
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	gc, err := cfg.GateConfig(hash)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return New(reg, r, gate.New(gc, sink), logger), nil
}

// Registry returns the active symbol registry.
func (p *Pipeline) Registry() *symbol.Registry { return p.reg.Load() }

// Router returns the pipeline's router.
func (p *Pipeline) Router() *router.Router { return p.router }

// Gate returns the pipeline's gate.
func (p *Pipeline) Gate() *gate.Gate { return p.gate }

// Apply swaps in a new configuration. The router table, history bound,
// optimize threshold and gate config change in place; router history is
// kept, trimmed to the new bound. Nothing changes if cfg is invalid.
func (p *Pipeline) Apply(cfg *config.Config, hash string) error {
	reg, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	gc, err := cfg.GateConfig(hash)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := p.router.Replace(cfg.Router.Entries); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	capacity, threshold := cfg.Router.HistoryCapacity, cfg.Router.OptimizeThreshold
	if capacity <= 0 {
		capacity = router.DefaultHistoryCapacity
	}
	if threshold <= 0 {
		threshold = router.DefaultOptimizeThreshold
	}
	p.router.SetHistoryCapacity(capacity)
	p.router.SetOptimizeThreshold(threshold)
	p.gate.SetConfig(gc)
	p.reg.Store(reg)
	return nil
}

// StepPlan is the routing and gate outcome for one playbook step.
type StepPlan struct {
	Step      string                 `json:"step"`
	Operation string                 `json:"operation,omitempty"`
	Symbol    symbol.Symbol          `json:"symbol"`
	Target    string                 `json:"target,omitempty"`
	Priority  model.Priority         `json:"priority"`
	Context   model.ExecutionContext `json:"context"`
	Prior     string                 `json:"prior,omitempty"`
	Verdict   *gate.Verdict          `json:"verdict,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Routed reports whether the step reached a target.
func (s StepPlan) Routed() bool { return s.Error == "" }

// Passed reports whether the step was routed and its escalation passed.
func (s StepPlan) Passed() bool { return s.Verdict != nil && s.Verdict.Passed }

// Plan is the outcome of planning a whole playbook.
type Plan struct {
	Playbook   string     `json:"playbook"`
	Version    string     `json:"version"`
	SourceHash string     `json:"source_hash"`
	Steps      []StepPlan `json:"steps"`
	Passed     int        `json:"passed"`
	Denied     int        `json:"denied"`
	Unrouted   int        `json:"unrouted"`
}

type frame struct {
	step string
	ctx  model.ExecutionContext
	from model.Tier
	to   model.Tier
}

// Plan routes every step of pb in dependency order and gates its tier
// transition. A step's prior frame is the routed dependency with the
// highest tier; the first listed wins a tie. Steps without one enter
// from the sandboxed tier with no prior and are gated unmeasured.
// A symbol with no route is recorded on the step and does not stop the
// plan. Returns ctx.Err() if ctx is cancelled between steps.
func (p *Pipeline) Plan(ctx context.Context, pb *playbook.Playbook) (*Plan, error) {
	if pb == nil {
		return nil, errors.New("pipeline: nil playbook")
	}
	reg := p.reg.Load()
	corr := pb.CorrelationHash()
	frames := make(map[string]frame, len(pb.Steps))

	out := &Plan{Playbook: pb.Name, Version: pb.Version, SourceHash: pb.SourceHash}
	for _, step := range pb.Order() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sp := StepPlan{Step: step.Name, Symbol: step.Symbol}
		if reg != nil {
			if name, ok := reg.Reverse(step.Symbol); ok {
				sp.Operation = name
			}
		}

		entry, ec, err := p.router.RouteWith(step.Symbol, router.RouteOptions{
			CorrelationHash: corr,
			Environment:     stepEnvironment(step),
		})
		if err != nil {
			sp.Error = err.Error()
			out.Unrouted++
			out.Steps = append(out.Steps, sp)
			p.logger.Debug("step not routed", zap.String("step", step.Name), zap.Stringer("symbol", step.Symbol))
			continue
		}
		sp.Target = entry.Target
		sp.Priority = ec.Priority
		sp.Context = ec

		from := model.MinTier
		var prior *gate.Prior
		if f, ok := priorFrame(step, frames); ok {
			from = f.to
			prior = &gate.Prior{Context: f.ctx, From: f.from, To: f.to}
			sp.Prior = f.step
		}
		v := p.gate.Evaluate(from, step.Tier, ec, prior)
		sp.Verdict = &v
		if v.Passed {
			out.Passed++
		} else {
			out.Denied++
		}
		frames[step.Name] = frame{step: step.Name, ctx: ec, from: from, to: step.Tier}
		out.Steps = append(out.Steps, sp)

		p.logger.Debug("step planned",
			zap.String("step", step.Name),
			zap.String("target", entry.Target),
			zap.String("path", v.Path),
			zap.Float64("weight", v.Weight),
			zap.Bool("passed", v.Passed))
	}
	return out, nil
}

func priorFrame(step playbook.Step, frames map[string]frame) (frame, bool) {
	var best frame
	found := false
	for _, dep := range step.DependsOn {
		f, ok := frames[dep]
		if !ok {
			continue
		}
		if !found || f.to > best.to {
			best, found = f, true
		}
	}
	return best, found
}

func stepEnvironment(step playbook.Step) map[string]string {
	env := make(map[string]string, len(step.Metadata)+2)
	for k, v := range step.Metadata {
		env[k] = v
	}
	if step.Tool != "" {
		env["tool"] = step.Tool
	}
	if step.Target != "" {
		env["target"] = step.Target
	}
	return env
}
