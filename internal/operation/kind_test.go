package operation

import (
	"testing"

	"github.com/ppiankov/glyphgate/internal/model"
	"github.com/ppiankov/glyphgate/internal/symbol"
)

func TestStaticPriorities(t *testing.T) {
	tests := []struct {
		kind Kind
		want model.Priority
	}{
		{IntelCollection{}, model.PriorityCritical},
		{NodeInterview{}, model.PriorityCritical},
		{HashTrigger{}, model.PriorityHigh},
		{PentestSpawn{}, model.PriorityHigh},
		{ToolInvocation{}, model.PriorityHigh},
		{ParallelGroup{}, model.PriorityHigh},
		{EphemeralAsset{}, model.PriorityMedium},
		{Workflow{}, model.PriorityMedium},
		{Conditional{}, model.PriorityMedium},
	}
	for _, tt := range tests {
		if got := tt.kind.Priority(); got != tt.want {
			t.Errorf("%s.Priority() = %s, want %s", tt.kind.Name(), got, tt.want)
		}
	}
}

func TestIntelCollectionIgnoresPayload(t *testing.T) {
	reg := DefaultRegistry()
	intelBand := symbol.BandByID(symbol.BandIntelligence)

	payloads := []IntelCollection{
		{},
		{Sources: []string{"osint", "sigint"}, Query: "asn:64512"},
		{Query: "anything at all"},
	}
	for _, p := range payloads {
		if p.Priority() != model.PriorityCritical {
			t.Fatalf("priority changed with payload %+v", p)
		}
		s := p.PrimarySymbol(reg)
		if !intelBand.Contains(s) {
			t.Fatalf("primary %s outside intelligence band", s)
		}
		if p.PrimarySymbol(nil) != intelBand.First {
			t.Fatalf("nil-registry fallback should be band start")
		}
	}
}

func TestPrimarySymbolDelegatesToRegistry(t *testing.T) {
	reg := DefaultRegistry()
	for _, k := range All() {
		want, ok := reg.Primary(k.Name())
		if !ok {
			t.Fatalf("default registry missing %q", k.Name())
		}
		if got := k.PrimarySymbol(reg); got != want {
			t.Errorf("%s.PrimarySymbol = %s, want %s", k.Name(), got, want)
		}
	}
}

func TestPrimarySymbolFallbackOnMiss(t *testing.T) {
	empty, _ := symbol.NewRegistry()
	tests := []struct {
		kind Kind
		band symbol.BandID
	}{
		{HashTrigger{}, symbol.BandHash},
		{IntelCollection{}, symbol.BandIntelligence},
		{NodeInterview{}, symbol.BandContext},
		{ToolInvocation{}, symbol.BandTool},
		{Workflow{}, symbol.BandCore},
		{Conditional{Then: ToolInvocation{}}, symbol.BandCore},
	}
	for _, tt := range tests {
		want := symbol.BandByID(tt.band).First
		if got := tt.kind.PrimarySymbol(empty); got != want {
			t.Errorf("%s fallback = %s, want %s", tt.kind.Name(), got, want)
		}
	}
}

func TestDefaultBindingsUseExpectedBands(t *testing.T) {
	allowed := map[symbol.BandID]bool{
		symbol.BandCore:          true,
		symbol.BandHash:          true,
		symbol.BandContext:       true,
		symbol.BandIntelligence:  true,
		symbol.BandEnvironmental: true,
		symbol.BandTool:          true,
	}
	multi := 0
	for _, b := range DefaultBindings() {
		if len(b.Symbols) > 1 {
			multi++
		}
		for _, s := range b.Symbols {
			band, ok := symbol.BandOf(s)
			if !ok || !allowed[band.ID] {
				t.Errorf("%s: symbol %s in unexpected band", b.Name, s)
			}
		}
	}
	if multi < 2 {
		t.Errorf("expected several multi-symbol kinds, got %d", multi)
	}
	hash, _ := DefaultRegistry().Forward(NameHashTrigger)
	if len(hash) != 3 {
		t.Errorf("hash_trigger should touch 3 hash sub-kinds, got %d", len(hash))
	}
}

func TestLookupRoundTrip(t *testing.T) {
	for _, k := range All() {
		got, ok := Lookup(k.Name())
		if !ok || got.Name() != k.Name() {
			t.Errorf("Lookup(%q) = %v, %v", k.Name(), got, ok)
		}
	}
	if _, ok := Lookup("port_scan"); ok {
		t.Error("unknown kind should not resolve")
	}
}
