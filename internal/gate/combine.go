package gate

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Combiner turns a delta into a gated weight in [0,1]. Higher weight means
// less drift.
type Combiner interface {
	Combine(Delta) float64
	Name() string
}

// Weighted is 1 minus the weighted mean of the components. Negative
// weights are treated as zero.
type Weighted struct {
	Structural    float64 `yaml:"structural" json:"structural"`
	Environmental float64 `yaml:"environmental" json:"environmental"`
	Semantic      float64 `yaml:"semantic" json:"semantic"`
}

// DefaultWeights is the default Weighted combiner.
var DefaultWeights = Weighted{Structural: 0.4, Environmental: 0.3, Semantic: 0.3}

func (w Weighted) Combine(d Delta) float64 {
	ws, we, wm := nonNeg(w.Structural), nonNeg(w.Environmental), nonNeg(w.Semantic)
	total := ws + we + wm
	if total == 0 {
		return 1
	}
	sum := ws*d.Structural + we*d.Environmental + wm*d.Semantic
	return clamp01(1 - sum/total)
}

func (w Weighted) Name() string { return "weighted" }

// Validate rejects non-finite or negative weights and an all-zero set.
func (w Weighted) Validate() error {
	axes := []struct {
		name string
		v    float64
	}{
		{"structural", w.Structural},
		{"environmental", w.Environmental},
		{"semantic", w.Semantic},
	}
	for _, a := range axes {
		if math.IsNaN(a.v) || math.IsInf(a.v, 0) || a.v < 0 {
			return fmt.Errorf("gate: weight %s %v must be finite and non-negative", a.name, a.v)
		}
	}
	if w == (Weighted{}) {
		return errors.New("gate: weights are all zero")
	}
	return nil
}

// Product is the product of (1 - component). Any single axis at full
// drift forces the weight to zero.
type Product struct{}

func (Product) Combine(d Delta) float64 {
	return clamp01((1 - d.Structural) * (1 - d.Environmental) * (1 - d.Semantic))
}

func (Product) Name() string { return "product" }

// CombinerFunc adapts a function into a Combiner.
type CombinerFunc struct {
	Label string
	Fn    func(Delta) float64
}

func (c CombinerFunc) Combine(d Delta) float64 { return clamp01(c.Fn(d)) }
func (c CombinerFunc) Name() string            { return c.Label }

// ParseCombiner resolves a combiner by name. weights applies to "weighted";
// a zero value selects DefaultWeights.
func ParseCombiner(name string, weights Weighted) (Combiner, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "weighted":
		if weights == (Weighted{}) {
			return DefaultWeights, nil
		}
		return weights, nil
	case "product":
		return Product{}, nil
	default:
		return nil, fmt.Errorf("gate: unknown combiner %q (want weighted or product)", name)
	}
}

func nonNeg(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
