package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/glyphgate/internal/pipeline"
	"github.com/ppiankov/glyphgate/internal/playbook"
	"github.com/ppiankov/glyphgate/internal/router"
	"github.com/ppiankov/glyphgate/internal/symbol"
)

// --- Input/Output types ---

// CompileInput defines parameters for the glyphgate_compile tool.
type CompileInput struct {
	Source string `json:"source" jsonschema:"playbook document text"`
	Format string `json:"format,omitempty" jsonschema:"toml (default) or yaml"`
}

// CompileOutput summarizes a compiled playbook or the compile error.
type CompileOutput struct {
	Name            string     `json:"name,omitempty"`
	Version         string     `json:"version,omitempty"`
	SourceHash      string     `json:"source_hash,omitempty"`
	CorrelationHash string     `json:"correlation_hash,omitempty"`
	Order           []string   `json:"order,omitempty"`
	Steps           []StepInfo `json:"steps,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// StepInfo describes one compiled step.
type StepInfo struct {
	Name      string   `json:"name"`
	Tier      int      `json:"tier"`
	Symbol    string   `json:"symbol"`
	Tool      string   `json:"tool,omitempty"`
	Target    string   `json:"target,omitempty"`
	DependsOn []string `json:"depends_on,omitempty"`
}

// RouteInput defines parameters for the glyphgate_route tool.
type RouteInput struct {
	Symbol          string            `json:"symbol" jsonschema:"symbol literal, U+E100 or \\u{E100}"`
	CorrelationHash string            `json:"correlation_hash,omitempty" jsonschema:"correlation hash to stamp on the context"`
	Environment     map[string]string `json:"environment,omitempty" jsonschema:"environment tags"`
}

// RouteOutput contains the routing result.
type RouteOutput struct {
	Target       string `json:"target,omitempty"`
	Priority     string `json:"priority,omitempty"`
	ContextAware bool   `json:"context_aware,omitempty"`
	OperationID  string `json:"operation_id,omitempty"`
	Seq          uint64 `json:"seq,omitempty"`
	Error        string `json:"error,omitempty"`
}

// SymbolsInput defines parameters for the glyphgate_symbols tool.
type SymbolsInput struct {
	Name   string `json:"name,omitempty" jsonschema:"operation name to look up"`
	Symbol string `json:"symbol,omitempty" jsonschema:"symbol literal to resolve"`
}

// BandInfo describes one band of the symbol space.
type BandInfo struct {
	Name  string `json:"name"`
	First string `json:"first"`
	Last  string `json:"last"`
}

// BindingInfo is one operation binding with symbols in U+ form.
type BindingInfo struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
	Primary string   `json:"primary"`
}

func bindingInfo(b symbol.Binding) BindingInfo {
	out := BindingInfo{Name: b.Name, Primary: b.Primary.String()}
	for _, s := range b.Symbols {
		out.Symbols = append(out.Symbols, s.String())
	}
	return out
}

// SymbolsOutput lists bindings and, for a symbol lookup, its owner and band.
type SymbolsOutput struct {
	Bindings []BindingInfo `json:"bindings,omitempty"`
	Bands    []BandInfo    `json:"bands,omitempty"`
	Owner    string        `json:"owner,omitempty"`
	Band     string        `json:"band,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// PlanInput defines parameters for the glyphgate_plan tool.
type PlanInput struct {
	Source string `json:"source" jsonschema:"playbook document text"`
	Format string `json:"format,omitempty" jsonschema:"toml (default) or yaml"`
}

// PlanStep is the outcome for one planned step.
type PlanStep struct {
	Step        string  `json:"step"`
	Operation   string  `json:"operation,omitempty"`
	Symbol      string  `json:"symbol"`
	Target      string  `json:"target,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	OperationID string  `json:"operation_id,omitempty"`
	Prior       string  `json:"prior,omitempty"`
	Path        string  `json:"path,omitempty"`
	Weight      float64 `json:"weight"`
	Passed      bool    `json:"passed"`
	Unmeasured  bool    `json:"unmeasured,omitempty"`
	Reason      string  `json:"reason,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// PlanOutput summarizes the plan or the compile error.
type PlanOutput struct {
	Playbook   string     `json:"playbook,omitempty"`
	SourceHash string     `json:"source_hash,omitempty"`
	Steps      []PlanStep `json:"steps,omitempty"`
	Passed     int        `json:"passed"`
	Denied     int        `json:"denied"`
	Unrouted   int        `json:"unrouted"`
	Error      string     `json:"error,omitempty"`
}

func planOutput(p *pipeline.Plan) PlanOutput {
	out := PlanOutput{
		Playbook:   p.Playbook,
		SourceHash: p.SourceHash,
		Passed:     p.Passed,
		Denied:     p.Denied,
		Unrouted:   p.Unrouted,
	}
	for _, sp := range p.Steps {
		ps := PlanStep{
			Step:      sp.Step,
			Operation: sp.Operation,
			Symbol:    sp.Symbol.String(),
			Prior:     sp.Prior,
			Error:     sp.Error,
		}
		if sp.Routed() {
			ps.Target = sp.Target
			ps.Priority = sp.Priority.String()
			ps.OperationID = sp.Context.OperationID
		}
		if v := sp.Verdict; v != nil {
			ps.Path = v.Path
			ps.Weight = v.Weight
			ps.Passed = v.Passed
			ps.Unmeasured = v.Unmeasured
			ps.Reason = v.Reason
		}
		out.Steps = append(out.Steps, ps)
	}
	return out
}

// StatsInput defines parameters for the glyphgate_stats tool.
type StatsInput struct {
	Optimize bool `json:"optimize,omitempty" jsonschema:"run an optimization pass before reading statistics"`
}

// RangeInfo is the usage of one router entry.
type RangeInfo struct {
	Target   string `json:"target"`
	Range    string `json:"range"`
	Priority string `json:"priority"`
	Count    int    `json:"count"`
}

// PromotionInfo is one priority change made by the optimizer.
type PromotionInfo struct {
	Target string `json:"target"`
	Range  string `json:"range"`
	From   string `json:"from"`
	To     string `json:"to"`
	Count  int    `json:"count"`
}

// StatsOutput contains router statistics and any promotions made.
type StatsOutput struct {
	Total      int             `json:"total"`
	ByPriority map[string]int  `json:"by_priority"`
	Ranges     []RangeInfo     `json:"ranges"`
	Promotions []PromotionInfo `json:"promotions,omitempty"`
	ConfigHash string          `json:"config_hash"`
}

// --- Handlers ---

func compileSource(source, format string) (*playbook.Playbook, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "toml":
		return playbook.Compile(source)
	case "yaml", "yml":
		return playbook.CompileYAML([]byte(source))
	default:
		return nil, fmt.Errorf("unknown playbook format %q (want toml or yaml)", format)
	}
}

func (s *Server) handleCompile(ctx context.Context, req *mcpsdk.CallToolRequest, input CompileInput) (*mcpsdk.CallToolResult, CompileOutput, error) {
	pb, err := compileSource(input.Source, input.Format)
	if err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, CompileOutput{Error: err.Error()}, nil
	}

	out := CompileOutput{
		Name:            pb.Name,
		Version:         pb.Version,
		SourceHash:      pb.SourceHash,
		CorrelationHash: pb.CorrelationHash(),
	}
	for _, st := range pb.Steps {
		out.Steps = append(out.Steps, StepInfo{
			Name:      st.Name,
			Tier:      int(st.Tier),
			Symbol:    st.Symbol.String(),
			Tool:      st.Tool,
			Target:    st.Target,
			DependsOn: st.DependsOn,
		})
	}
	for _, st := range pb.Order() {
		out.Order = append(out.Order, st.Name)
	}
	return nil, out, nil
}

func (s *Server) handleRoute(ctx context.Context, req *mcpsdk.CallToolRequest, input RouteInput) (*mcpsdk.CallToolResult, RouteOutput, error) {
	sym, err := symbol.Parse(input.Symbol)
	if err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, RouteOutput{Error: err.Error()}, nil
	}

	entry, ec, err := s.pipeline.Router().RouteWith(sym, router.RouteOptions{
		CorrelationHash: input.CorrelationHash,
		Environment:     input.Environment,
	})
	if err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, RouteOutput{Error: err.Error()}, nil
	}

	return nil, RouteOutput{
		Target:       entry.Target,
		Priority:     ec.Priority.String(),
		ContextAware: entry.ContextAware,
		OperationID:  ec.OperationID,
		Seq:          ec.Seq,
	}, nil
}

func (s *Server) handleSymbols(ctx context.Context, req *mcpsdk.CallToolRequest, input SymbolsInput) (*mcpsdk.CallToolResult, SymbolsOutput, error) {
	reg := s.pipeline.Registry()

	switch {
	case input.Name != "":
		syms, ok := reg.Forward(input.Name)
		if !ok {
			return &mcpsdk.CallToolResult{IsError: true}, SymbolsOutput{Error: fmt.Sprintf("no binding for %q", input.Name)}, nil
		}
		primary, _ := reg.Primary(input.Name)
		b := symbol.Binding{Name: input.Name, Symbols: syms, Primary: primary}
		return nil, SymbolsOutput{Bindings: []BindingInfo{bindingInfo(b)}}, nil

	case input.Symbol != "":
		sym, err := symbol.Parse(input.Symbol)
		if err != nil {
			return &mcpsdk.CallToolResult{IsError: true}, SymbolsOutput{Error: err.Error()}, nil
		}
		out := SymbolsOutput{}
		if owner, ok := reg.Reverse(sym); ok {
			out.Owner = owner
		}
		if b, ok := symbol.BandOf(sym); ok {
			out.Band = b.Name
		}
		return nil, out, nil
	}

	out := SymbolsOutput{}
	for _, b := range reg.Bindings() {
		out.Bindings = append(out.Bindings, bindingInfo(b))
	}
	for _, b := range symbol.Bands {
		out.Bands = append(out.Bands, BandInfo{Name: b.Name, First: b.First.String(), Last: b.Last.String()})
	}
	return nil, out, nil
}

func (s *Server) handlePlan(ctx context.Context, req *mcpsdk.CallToolRequest, input PlanInput) (*mcpsdk.CallToolResult, PlanOutput, error) {
	pb, err := compileSource(input.Source, input.Format)
	if err != nil {
		return &mcpsdk.CallToolResult{IsError: true}, PlanOutput{Error: err.Error()}, nil
	}
	plan, err := s.pipeline.Plan(ctx, pb)
	if err != nil {
		return nil, PlanOutput{}, err
	}
	return nil, planOutput(plan), nil
}

func (s *Server) handleStats(ctx context.Context, req *mcpsdk.CallToolRequest, input StatsInput) (*mcpsdk.CallToolResult, StatsOutput, error) {
	r := s.pipeline.Router()
	out := StatsOutput{ConfigHash: s.pipeline.Gate().Config().Hash}
	if input.Optimize {
		for _, p := range r.Optimize() {
			out.Promotions = append(out.Promotions, PromotionInfo{
				Target: p.Target,
				Range:  p.Range,
				From:   p.From.String(),
				To:     p.To.String(),
				Count:  p.Count,
			})
		}
	}

	stats := r.Statistics()
	out.Total = stats.Total
	out.ByPriority = make(map[string]int, len(stats.ByPriority))
	for p, n := range stats.ByPriority {
		out.ByPriority[p.String()] = n
	}
	for _, u := range stats.ByRange {
		out.Ranges = append(out.Ranges, RangeInfo{
			Target:   u.Target,
			Range:    u.Range,
			Priority: u.Priority.String(),
			Count:    u.Count,
		})
	}
	return nil, out, nil
}
