package gate

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ppiankov/glyphgate/internal/audit"
	"github.com/ppiankov/glyphgate/internal/model"
	"github.com/ppiankov/glyphgate/internal/symbol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func ctx(sym uint32, p model.Priority, hash string, env map[string]string) model.ExecutionContext {
	return model.ExecutionContext{
		OperationID:     "op-1",
		Symbol:          symbol.Symbol(sym),
		Priority:        p,
		CorrelationHash: hash,
		Environment:     env,
	}
}

func TestMeasureIdenticalFramesIsZero(t *testing.T) {
	c := ctx(0xE900, model.PriorityLow, "abc", map[string]string{"region": "eu"})
	d := Measure(Prior{Context: c, From: 1, To: 2}, c, 1, 2)
	if !d.IsZero() {
		t.Fatalf("expected zero delta, got %+v", d)
	}
}

func TestMeasureComponents(t *testing.T) {
	prior := Prior{
		Context: ctx(0xE900, model.PriorityLow, "abcd", map[string]string{"a": "1", "b": "2"}),
		From:    model.TierSandboxed,
		To:      model.TierMicrokernel,
	}
	cur := ctx(0xE100, model.PriorityHigh, "abce", map[string]string{"a": "1", "b": "3"})

	d := Measure(prior, cur, model.TierSandboxed, model.TierMicrokernel)
	if want := (1.0 + 2.0/3.0 + 0) / 3; !approx(d.Structural, want) {
		t.Errorf("structural = %v, want %v", d.Structural, want)
	}
	if want := 2.0 / 3.0; !approx(d.Environmental, want) {
		t.Errorf("environmental = %v, want %v", d.Environmental, want)
	}
	if !approx(d.Semantic, 0.25) {
		t.Errorf("semantic = %v, want 0.25", d.Semantic)
	}
}

func TestMeasureTierPairDistance(t *testing.T) {
	c := ctx(0xE800, model.PriorityMedium, "", nil)
	d := Measure(Prior{Context: c, From: model.TierSandboxed, To: model.TierMicrokernel}, c,
		model.TierContainer, model.TierFullyOrchestrated)
	// max(|1-5|, |2-7|) = 5 of 6
	if want := (5.0 / 6.0) / 3; !approx(d.Structural, want) {
		t.Errorf("structural = %v, want %v", d.Structural, want)
	}
}

func TestSemanticDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 0},
		{"abc", "", 1},
		{"", "abc", 1},
		{"abc", "abc", 0},
		{"abc", "abcdef", 0.5},
		{"aaaa", "bbbb", 1},
	}
	for _, tt := range tests {
		if got := semantic(tt.a, tt.b); !approx(got, tt.want) {
			t.Errorf("semantic(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEnvironmentalDistance(t *testing.T) {
	a := ctx(0xE100, 0, "", nil)
	b := ctx(0xE100, 0, "", map[string]string{"k": "v"})
	if got := environmental(a, a); got != 0 {
		t.Errorf("empty/empty = %v", got)
	}
	if got := environmental(a, b); got != 1 {
		t.Errorf("empty/one = %v", got)
	}
}

func TestDeltaComponentsClamped(t *testing.T) {
	prior := Prior{Context: ctx(0x41, model.PriorityCritical, "x", map[string]string{"a": "b"}), From: 1, To: 7}
	cur := ctx(0xE9FF, model.PriorityLow, "yyyyyyyy", map[string]string{"c": "d"})
	d := Measure(prior, cur, 7, 1)
	for name, v := range map[string]float64{"structural": d.Structural, "environmental": d.Environmental, "semantic": d.Semantic} {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v outside [0,1]", name, v)
		}
	}
	if d.Structural != 1 {
		t.Errorf("maximal structural drift = %v, want 1", d.Structural)
	}
}

func TestCombiners(t *testing.T) {
	half := Delta{0.5, 0.5, 0.5}
	if got := DefaultWeights.Combine(half); !approx(got, 0.5) {
		t.Errorf("weighted(half) = %v", got)
	}
	if got := (Product{}).Combine(half); !approx(got, 0.125) {
		t.Errorf("product(half) = %v", got)
	}
	if got := DefaultWeights.Combine(Delta{}); got != 1 {
		t.Errorf("weighted(zero) = %v", got)
	}
	if got := (Product{}).Combine(Delta{Semantic: 1}); got != 0 {
		t.Errorf("product with full semantic drift = %v", got)
	}
	if got := (Weighted{Structural: 1}).Combine(Delta{Structural: 0.2, Semantic: 1}); !approx(got, 0.8) {
		t.Errorf("structural-only weights = %v", got)
	}
	if got := (Weighted{}).Combine(Delta{Structural: 1}); got != 1 {
		t.Errorf("zero weights = %v", got)
	}
}

func TestParseCombiner(t *testing.T) {
	c, err := ParseCombiner("", Weighted{})
	if err != nil || c != Combiner(DefaultWeights) {
		t.Fatalf("default = %v, %v", c, err)
	}
	c, err = ParseCombiner("Product", Weighted{})
	if err != nil || c.Name() != "product" {
		t.Fatalf("product = %v, %v", c, err)
	}
	custom := Weighted{Structural: 1, Environmental: 1, Semantic: 2}
	c, err = ParseCombiner("weighted", custom)
	if err != nil || c != Combiner(custom) {
		t.Fatalf("custom = %v, %v", c, err)
	}
	if _, err := ParseCombiner("neural", Weighted{}); err == nil {
		t.Fatal("expected error for unknown combiner")
	}
}

func TestWeightedValidate(t *testing.T) {
	if err := DefaultWeights.Validate(); err != nil {
		t.Fatalf("default weights: %v", err)
	}
	if err := (Weighted{Semantic: 1}).Validate(); err != nil {
		t.Fatalf("single axis: %v", err)
	}
	tests := []struct {
		name string
		w    Weighted
	}{
		{"nan", Weighted{Structural: math.NaN(), Semantic: 1}},
		{"inf", Weighted{Environmental: math.Inf(1)}},
		{"negative", Weighted{Structural: 1, Semantic: -0.5}},
		{"all zero", Weighted{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.w.Validate(); err == nil {
				t.Errorf("Validate(%+v) accepted", tt.w)
			}
		})
	}
}

func TestEvaluateNoPriorIsUnmeasuredZero(t *testing.T) {
	sink := &MemorySink{}
	g := New(DefaultConfig(), sink)

	v := g.Evaluate(model.TierSandboxed, model.TierContainer, ctx(0xE900, model.PriorityLow, "", nil), nil)
	if !v.Unmeasured || !v.Delta.IsZero() {
		t.Fatalf("verdict = %+v", v)
	}
	if v.Weight != 1 || !v.Passed {
		t.Fatalf("zero delta should pass with weight 1, got %+v", v)
	}
	if v.Path != "Sandboxed->Container" {
		t.Errorf("path = %q", v.Path)
	}

	got := sink.Decisions()
	if len(got) != 1 || got[0].OperationID != "op-1" || !got[0].Unmeasured {
		t.Fatalf("sink decisions = %+v", got)
	}
}

func TestEvaluatePassesWhenThresholdNonPositive(t *testing.T) {
	for _, threshold := range []float64{0, -1} {
		for _, comb := range []Combiner{DefaultWeights, Product{}, CombinerFunc{Label: "floor", Fn: func(Delta) float64 { return 0 }}} {
			g := New(Config{Threshold: threshold, Combiner: comb}, nil)
			v := g.Evaluate(1, 2, ctx(0xE100, 0, "", nil), nil)
			if !v.Passed {
				t.Errorf("threshold %v combiner %s: expected pass, got %+v", threshold, comb.Name(), v)
			}
		}
	}
}

func TestEvaluateDeniesOnDrift(t *testing.T) {
	g := New(Config{Threshold: 0.9}, nil)
	prior := &Prior{Context: ctx(0xE900, model.PriorityLow, "aaaa", map[string]string{"env": "dev"}), From: 1, To: 2}
	v := g.Evaluate(2, 3, ctx(0xE100, model.PriorityHigh, "bbbb", map[string]string{"env": "prod"}), prior)
	if v.Passed {
		t.Fatalf("expected deny, got %+v", v)
	}
	if v.Unmeasured {
		t.Error("measured verdict flagged unmeasured")
	}
	if !strings.Contains(v.Reason, "below threshold") {
		t.Errorf("reason = %q", v.Reason)
	}
	if v.Combiner != "weighted" {
		t.Errorf("nil combiner should default to weighted, got %q", v.Combiner)
	}
}

func TestEvaluateMaxTierStep(t *testing.T) {
	g := New(Config{Threshold: 0, MaxTierStep: 2}, nil)
	c := ctx(0xE800, model.PriorityMedium, "", nil)

	if v := g.Evaluate(1, 3, c, nil); !v.Passed {
		t.Errorf("step of 2 should pass: %+v", v)
	}
	v := g.Evaluate(1, 4, c, nil)
	if v.Passed || !strings.Contains(v.Reason, "exceeds max 2") {
		t.Errorf("step of 3 should be denied: %+v", v)
	}
	if v := g.Evaluate(7, 1, c, nil); !v.Passed {
		t.Errorf("downward transitions are not step-limited: %+v", v)
	}
}

func TestEvaluateInvalidTier(t *testing.T) {
	g := New(Config{Threshold: 0}, nil)
	v := g.Evaluate(0, 8, ctx(0xE800, 0, "", nil), nil)
	if v.Passed || v.Reason == "" {
		t.Fatalf("expected deny for off-ladder tiers, got %+v", v)
	}
}

func TestSetConfigSwapsThreshold(t *testing.T) {
	g := New(DefaultConfig(), nil)
	prior := &Prior{Context: ctx(0xE800, model.PriorityMedium, "abcd", nil), From: 1, To: 2}
	cur := ctx(0xE800, model.PriorityMedium, "abzz", nil)

	if v := g.Evaluate(1, 2, cur, prior); !v.Passed {
		t.Fatalf("expected pass under default config: %+v", v)
	}
	g.SetConfig(Config{Threshold: 0.99, Combiner: Product{}, Hash: "sha256:new"})
	v := g.Evaluate(1, 2, cur, prior)
	if v.Passed || v.Combiner != "product" || v.Threshold != 0.99 {
		t.Fatalf("expected deny under new config: %+v", v)
	}
	if g.Config().Hash != "sha256:new" {
		t.Errorf("config hash = %q", g.Config().Hash)
	}
}

func TestEscalateWrapsPayload(t *testing.T) {
	g := New(DefaultConfig(), nil)
	type job struct{ Name string }
	out := Escalate(g, job{Name: "scan"}, model.TierSandboxed, model.TierMicrokernel, ctx(0xE900, 0, "", nil), nil)
	if out.Payload.Name != "scan" || !out.Passed || out.Weight != out.Verdict.Weight {
		t.Fatalf("gated payload = %+v", out)
	}
}

func TestDecisionAuditEntry(t *testing.T) {
	sink := &MemorySink{}
	g := New(Config{Threshold: 0.5, Hash: "sha256:cfg"}, sink)
	g.Evaluate(1, 5, ctx(0xE900, 0, "", nil), nil)

	e := sink.Decisions()[0].AuditEntry()
	if e.Decision != audit.DecisionPass || e.Path != "Sandboxed->Container" || e.FromTier != 1 || e.ToTier != 5 {
		t.Errorf("entry = %+v", e)
	}
	if e.Symbol != "U+E900" || e.ConfigHash != "sha256:cfg" || !e.Unmeasured {
		t.Errorf("entry = %+v", e)
	}
}

func TestAsyncSinkWritesAuditLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.jsonl")
	l, err := audit.Open(path)
	if err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zap.DebugLevel)
	sink := NewAsyncSink(16, MultiHandler(AuditHandler(l), ZapHandler(zap.New(core))), nil)
	g := New(Config{Threshold: 0.9}, sink)

	prior := &Prior{Context: ctx(0xE900, model.PriorityLow, "aaaa", nil), From: 1, To: 2}
	g.Evaluate(1, 2, ctx(0xE900, model.PriorityLow, "", nil), nil)
	g.Evaluate(2, 3, ctx(0xE100, model.PriorityHigh, "bbbb", nil), prior)
	sink.Close()
	l.Close()

	res := audit.Verify(path)
	if !res.Valid || res.Lines != 2 {
		t.Fatalf("verify = %+v", res)
	}
	if got := logs.FilterMessage("escalation denied").Len(); got != 1 {
		t.Errorf("denied log lines = %d", got)
	}
	if got := logs.FilterMessage("escalation passed").Len(); got != 1 {
		t.Errorf("passed log lines = %d", got)
	}
}

func TestAsyncSinkDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	sink := NewAsyncSink(1, func(Decision) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}, nil)

	sink.Record(Decision{})
	<-started // worker holds the first decision
	sink.Record(Decision{})
	sink.Record(Decision{})
	sink.Record(Decision{})

	if got := sink.Dropped(); got != 2 {
		t.Errorf("dropped = %d, want 2", got)
	}
	close(release)
	sink.Close()
	sink.Close()

	sink.Record(Decision{})
	if got := sink.Dropped(); got != 3 {
		t.Errorf("record after close should count as dropped, got %d", got)
	}
}

func TestAsyncSinkCountsHandlerFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := NewAsyncSink(4, func(Decision) error { return errors.New("disk full") }, zap.New(core))
	sink.Record(Decision{})
	sink.Record(Decision{})
	sink.Close()
	if sink.Failed() != 2 {
		t.Errorf("failed = %d", sink.Failed())
	}
	if logs.Len() != 2 {
		t.Errorf("warn lines = %d", logs.Len())
	}
}

func TestEvaluateConcurrentWithSetConfig(t *testing.T) {
	sink := NewAsyncSink(4096, nil, nil)
	defer sink.Close()
	g := New(DefaultConfig(), sink)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if w == 0 && i%50 == 0 {
					g.SetConfig(Config{Threshold: float64(i%100) / 100})
				}
				g.Evaluate(1, 2, ctx(0xE800, 0, "", nil), nil)
			}
		}(w)
	}
	wg.Wait()
}

func TestSyncSinkLogsDenials(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	g := New(Config{Threshold: 1.1}, SyncSink{Handler: ZapHandler(zap.New(core))})

	g.Evaluate(model.TierSandboxed, model.TierMicrokernel, ctx(0xE100, model.PriorityHigh, "", nil), nil)

	denied := logs.FilterMessage("escalation denied").All()
	if len(denied) != 1 {
		t.Fatalf("expected 1 denial log, got %d", len(denied))
	}
	if got := denied[0].ContextMap()["path"]; got != "Sandboxed->Microkernel" {
		t.Errorf("path field = %v", got)
	}
	SyncSink{}.Record(Decision{})
}
