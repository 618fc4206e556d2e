package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Tier is one of the seven ordered execution-privilege levels.
// Higher tier = more privilege.
type Tier int

const (
	TierSandboxed         Tier = 1
	TierMicrokernel       Tier = 2
	TierKernelExtension   Tier = 3
	TierMultiModule       Tier = 4
	TierContainer         Tier = 5
	TierManagedRuntime    Tier = 6
	TierFullyOrchestrated Tier = 7
)

// MinTier and MaxTier bound the ladder.
const (
	MinTier = TierSandboxed
	MaxTier = TierFullyOrchestrated
)

// Tiers lists the ladder from lowest to highest.
var Tiers = []Tier{
	TierSandboxed,
	TierMicrokernel,
	TierKernelExtension,
	TierMultiModule,
	TierContainer,
	TierManagedRuntime,
	TierFullyOrchestrated,
}

var tierSlugs = map[Tier]string{
	TierSandboxed:         "sandboxed",
	TierMicrokernel:       "microkernel",
	TierKernelExtension:   "kernel_extension",
	TierMultiModule:       "multi_module",
	TierContainer:         "container",
	TierManagedRuntime:    "managed_runtime",
	TierFullyOrchestrated: "orchestrated",
}

// Valid reports whether t is on the ladder.
func (t Tier) Valid() bool {
	return t >= MinTier && t <= MaxTier
}

// String returns the display name used in escalation path strings.
func (t Tier) String() string {
	switch t {
	case TierSandboxed:
		return "Sandboxed"
	case TierMicrokernel:
		return "Microkernel"
	case TierKernelExtension:
		return "KernelExtension"
	case TierMultiModule:
		return "MultiModule"
	case TierContainer:
		return "Container"
	case TierManagedRuntime:
		return "ManagedRuntime"
	case TierFullyOrchestrated:
		return "FullyOrchestrated"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Slug returns the snake_case key used in playbook escalation hints.
func (t Tier) Slug() string {
	if s, ok := tierSlugs[t]; ok {
		return s
	}
	return fmt.Sprintf("tier_%d", int(t))
}

// TierFromOrdinal maps 1..7 to a Tier.
func TierFromOrdinal(n int64) (Tier, error) {
	t := Tier(n)
	if !t.Valid() {
		return 0, fmt.Errorf("tier %d out of range [%d, %d]", n, MinTier, MaxTier)
	}
	return t, nil
}

// ParseTier accepts an ordinal ("3") or a slug ("kernel_extension").
func ParseTier(s string) (Tier, error) {
	if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		return TierFromOrdinal(n)
	}
	if t, ok := TierFromSlug(s); ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

// TierFromSlug maps a slug such as "kernel_extension" to a Tier.
func TierFromSlug(s string) (Tier, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, slug := range tierSlugs {
		if slug == s {
			return t, true
		}
	}
	return 0, false
}

// EscalationPath renders the "{from}->{to}" string recorded for every gate decision.
func EscalationPath(from, to Tier) string {
	return from.String() + "->" + to.String()
}

// TierDistance returns to-from; positive values are promotions.
func TierDistance(from, to Tier) int {
	return int(to) - int(from)
}
