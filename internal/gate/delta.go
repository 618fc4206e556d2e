package gate

import (
	"math"

	"github.com/ppiankov/glyphgate/internal/model"
	"github.com/ppiankov/glyphgate/internal/symbol"
)

// Delta is the three-axis drift between two context frames. Each component
// is in [0,1].
type Delta struct {
	Structural    float64 `json:"structural"`
	Environmental float64 `json:"environmental"`
	Semantic      float64 `json:"semantic"`
}

// IsZero reports whether every component is zero.
func (d Delta) IsZero() bool {
	return d.Structural == 0 && d.Environmental == 0 && d.Semantic == 0
}

// Prior is the previous frame: the context it ran under and the
// transition it was admitted on.
type Prior struct {
	Context model.ExecutionContext
	From    model.Tier
	To      model.Tier
}

// Measure computes the drift between prior and the current frame.
func Measure(prior Prior, current model.ExecutionContext, from, to model.Tier) Delta {
	return Delta{
		Structural:    structural(prior, current, from, to),
		Environmental: environmental(prior.Context, current),
		Semantic:      semantic(prior.Context.CorrelationHash, current.CorrelationHash),
	}
}

// structural is the mean of band distance, priority distance and tier-pair
// distance, each normalized by its maximum.
func structural(prior Prior, current model.ExecutionContext, from, to model.Tier) float64 {
	band := float64(bandIndexDistance(prior.Context.Symbol, current.Symbol)) / float64(len(symbol.Bands)-1)
	prio := math.Abs(float64(prior.Context.Priority-current.Priority)) / float64(model.PriorityCritical-model.PriorityLow)

	maxTier := float64(model.MaxTier - model.MinTier)
	fromD := math.Abs(float64(prior.From - from))
	toD := math.Abs(float64(prior.To - to))
	tier := math.Max(fromD, toD) / maxTier

	return clamp01((band + prio + tier) / 3)
}

// bandIndexDistance is the number of bands between the two symbols. A
// symbol outside every band is maximally distant from any other symbol.
func bandIndexDistance(a, b symbol.Symbol) int {
	ba, okA := symbol.BandOf(a)
	bb, okB := symbol.BandOf(b)
	switch {
	case !okA && !okB:
		if a == b {
			return 0
		}
		return len(symbol.Bands) - 1
	case !okA || !okB:
		return len(symbol.Bands) - 1
	}
	d := int(ba.ID) - int(bb.ID)
	if d < 0 {
		d = -d
	}
	return d
}

// environmental is the Jaccard distance between the key=value tag sets.
func environmental(prior, current model.ExecutionContext) float64 {
	a := prior.EnvironmentPairs()
	b := current.EnvironmentPairs()
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]uint8, len(a)+len(b))
	for _, p := range a {
		set[p] |= 1
	}
	for _, p := range b {
		set[p] |= 2
	}
	inter := 0
	for _, v := range set {
		if v == 3 {
			inter++
		}
	}
	return clamp01(1 - float64(inter)/float64(len(set)))
}

// semantic is the normalized character distance between two correlation
// hashes: differing positions plus the length difference, over the longer
// length.
func semantic(a, b string) float64 {
	switch {
	case a == "" && b == "":
		return 0
	case a == "" || b == "":
		return 1
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	diff := len(long) - len(short)
	for i := 0; i < len(short); i++ {
		if short[i] != long[i] {
			diff++
		}
	}
	return clamp01(float64(diff) / float64(len(long)))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
