package sim

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DiffEntry is one recorded decision whose outcome changed.
type DiffEntry struct {
	Timestamp   string  `json:"ts"`
	OperationID string  `json:"operation_id"`
	Path        string  `json:"path"`
	OldDecision string  `json:"old_decision"`
	NewDecision string  `json:"new_decision"`
	OldWeight   float64 `json:"old_weight"`
	NewWeight   float64 `json:"new_weight"`
	OldReason   string  `json:"old_reason,omitempty"`
	NewReason   string  `json:"new_reason,omitempty"`
}

// PathDiff counts decisions for one escalation path.
type PathDiff struct {
	Total   int `json:"total"`
	Changed int `json:"changed"`
	NewPass int `json:"new_pass"`
}

// SimResult holds the complete simulation output.
type SimResult struct {
	ConfigHash       string               `json:"config_hash,omitempty"`
	Combiner         string               `json:"combiner"`
	Threshold        float64              `json:"threshold"`
	TotalDecisions   int                  `json:"total_decisions"`
	ChangedDecisions int                  `json:"changed_decisions"`
	NewlyDenied      int                  `json:"newly_denied"`
	NewlyPassed      int                  `json:"newly_passed"`
	ByPath           map[string]*PathDiff `json:"by_path"`
	Changes          []DiffEntry          `json:"changes"`
}

// PassRate returns the fraction of decisions that pass under the candidate config.
func (r *SimResult) PassRate() float64 {
	if r.TotalDecisions == 0 {
		return 0
	}
	pass := 0
	for _, p := range r.ByPath {
		pass += p.NewPass
	}
	return float64(pass) / float64(r.TotalDecisions)
}

// FormatText renders the simulation result as human-readable text.
func FormatText(r *SimResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Simulating threshold %.3f (%s) against %d recorded decisions...\n",
		r.Threshold, r.Combiner, r.TotalDecisions)

	if len(r.Changes) == 0 {
		b.WriteString("\nNo changes detected.\n")
		return b.String()
	}

	b.WriteString("\n")
	for _, d := range r.Changes {
		ts := d.Timestamp
		if len(ts) >= 19 {
			ts = ts[11:19]
		}
		path := d.Path
		if len(path) > 36 {
			path = path[:33] + "..."
		}
		fmt.Fprintf(&b, "  CHANGED  %s  %-36s %.3f → %.3f  %s → %s\n",
			ts, path, d.OldWeight, d.NewWeight, d.OldDecision, d.NewDecision)
	}

	fmt.Fprintf(&b, "\n%d of %d decisions changed.", r.ChangedDecisions, r.TotalDecisions)
	if r.NewlyDenied > 0 || r.NewlyPassed > 0 {
		fmt.Fprintf(&b, " %d newly denied, %d newly passed.", r.NewlyDenied, r.NewlyPassed)
	}
	b.WriteString("\n")

	paths := make([]string, 0, len(r.ByPath))
	for p := range r.ByPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		pd := r.ByPath[p]
		if pd.Changed == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %-36s %d/%d changed\n", p, pd.Changed, pd.Total)
	}

	return b.String()
}

// FormatJSON renders the simulation result as JSON.
func FormatJSON(r *SimResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("sim: marshal result: %w", err)
	}
	return string(data), nil
}
