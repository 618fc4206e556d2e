package model

import (
	"testing"
	"time"
)

func TestPriorityOrdering(t *testing.T) {
	if !(PriorityCritical > PriorityHigh && PriorityHigh > PriorityMedium && PriorityMedium > PriorityLow) {
		t.Fatal("priorities must be ordered Critical > High > Medium > Low")
	}
}

func TestParsePriority(t *testing.T) {
	for _, p := range PriorityLevels {
		got, err := ParsePriority(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePriority(%q) = %v, %v", p.String(), got, err)
		}
	}
	if got, err := ParsePriority(" HIGH "); err != nil || got != PriorityHigh {
		t.Errorf("case-insensitive parse failed: %v, %v", got, err)
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Error("expected error for unknown priority")
	}
}

func TestPriorityText(t *testing.T) {
	var p Priority
	if err := p.UnmarshalText([]byte("critical")); err != nil {
		t.Fatal(err)
	}
	b, _ := p.MarshalText()
	if string(b) != "critical" {
		t.Fatalf("MarshalText = %q", b)
	}
}

func TestTierFromOrdinal(t *testing.T) {
	for n := int64(1); n <= 7; n++ {
		tier, err := TierFromOrdinal(n)
		if err != nil {
			t.Fatalf("TierFromOrdinal(%d): %v", n, err)
		}
		if int64(tier) != n {
			t.Errorf("TierFromOrdinal(%d) = %d", n, tier)
		}
	}
	for _, n := range []int64{0, 8, -1, 100} {
		if _, err := TierFromOrdinal(n); err == nil {
			t.Errorf("TierFromOrdinal(%d) should fail", n)
		}
	}
}

func TestTierSlugRoundTrip(t *testing.T) {
	for _, tier := range Tiers {
		got, ok := TierFromSlug(tier.Slug())
		if !ok || got != tier {
			t.Errorf("TierFromSlug(%q) = %v, %v", tier.Slug(), got, ok)
		}
	}
	if _, ok := TierFromSlug("hypervisor"); ok {
		t.Error("unknown slug should not resolve")
	}
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{"1", TierSandboxed},
		{" 7 ", TierFullyOrchestrated},
		{"kernel_extension", TierKernelExtension},
		{"Container", TierContainer},
	}
	for _, tt := range tests {
		got, err := ParseTier(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseTier(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	for _, bad := range []string{"0", "8", "", "hypervisor"} {
		if _, err := ParseTier(bad); err == nil {
			t.Errorf("ParseTier(%q) should fail", bad)
		}
	}
}

func TestEscalationPath(t *testing.T) {
	got := EscalationPath(TierSandboxed, TierContainer)
	if got != "Sandboxed->Container" {
		t.Fatalf("EscalationPath = %q", got)
	}
	if TierDistance(TierContainer, TierSandboxed) != -4 {
		t.Fatal("TierDistance should be signed")
	}
}

func TestEnvironmentPairsSorted(t *testing.T) {
	c := ExecutionContext{
		Timestamp:   time.Now(),
		Environment: map[string]string{"zone": "dmz", "host": "a"},
	}
	pairs := c.EnvironmentPairs()
	if len(pairs) != 2 || pairs[0] != "host=a" || pairs[1] != "zone=dmz" {
		t.Fatalf("EnvironmentPairs = %v", pairs)
	}
}
