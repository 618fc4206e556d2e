// Package sim replays recorded gate decisions under a candidate gate
// configuration and reports which transitions would change outcome.
package sim

import (
	"fmt"

	"github.com/ppiankov/glyphgate/internal/audit"
	"github.com/ppiankov/glyphgate/internal/gate"
	"github.com/ppiankov/glyphgate/internal/model"
)

// Simulate re-scores every recorded decision in logPath under cfg. The
// recorded delta is reused as-is; only the combiner, threshold and step
// policy change.
func Simulate(logPath string, cfg gate.Config) (*SimResult, error) {
	entries, err := audit.ReadAll(logPath)
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	result := &SimResult{
		ConfigHash: cfg.Hash,
		Threshold:  cfg.Threshold,
		ByPath:     make(map[string]*PathDiff),
	}
	if cfg.Combiner != nil {
		result.Combiner = cfg.Combiner.Name()
	}

	for _, entry := range entries {
		result.TotalDecisions++

		d := gate.Delta{
			Structural:    entry.Delta.Structural,
			Environmental: entry.Delta.Environmental,
			Semantic:      entry.Delta.Semantic,
		}
		v := gate.Score(cfg, model.Tier(entry.FromTier), model.Tier(entry.ToTier), d, entry.Unmeasured)

		newDecision := audit.DecisionDeny
		if v.Passed {
			newDecision = audit.DecisionPass
		}

		pd := result.ByPath[entry.Path]
		if pd == nil {
			pd = &PathDiff{}
			result.ByPath[entry.Path] = pd
		}
		pd.Total++
		if v.Passed {
			pd.NewPass++
		}

		if newDecision == entry.Decision {
			continue
		}
		pd.Changed++
		result.ChangedDecisions++
		result.Changes = append(result.Changes, DiffEntry{
			Timestamp:   entry.Timestamp,
			OperationID: entry.OperationID,
			Path:        entry.Path,
			OldDecision: entry.Decision,
			NewDecision: newDecision,
			OldWeight:   entry.Weight,
			NewWeight:   v.Weight,
			OldReason:   entry.Reason,
			NewReason:   v.Reason,
		})
		switch newDecision {
		case audit.DecisionDeny:
			result.NewlyDenied++
		case audit.DecisionPass:
			result.NewlyPassed++
		}
	}

	return result, nil
}
