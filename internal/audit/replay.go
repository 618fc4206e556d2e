package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ReplayFilter selects entries for replay. Empty fields match everything.
type ReplayFilter struct {
	Path        string // escalation path, e.g. "Sandboxed->Container"
	OperationID string
	Decision    string
	From        time.Time // zero value = no lower bound
	To          time.Time // zero value = no upper bound
}

func (f ReplayFilter) match(e AuditEntry) bool {
	if f.Path != "" && e.Path != f.Path {
		return false
	}
	if f.OperationID != "" && e.OperationID != f.OperationID {
		return false
	}
	if f.Decision != "" && e.Decision != f.Decision {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts, err := time.Parse(TimestampFormat, e.Timestamp)
	if err != nil {
		return false
	}
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ts.After(f.To) {
		return false
	}
	return true
}

// ReplaySummary holds decision counts for the replayed entries.
type ReplaySummary struct {
	Total           int     `json:"total"`
	PassCount       int     `json:"pass_count"`
	DenyCount       int     `json:"deny_count"`
	UnmeasuredCount int     `json:"unmeasured_count"`
	MeanWeight      float64 `json:"mean_weight"`
	MinWeight       float64 `json:"min_weight"`
	FirstTimestamp  string  `json:"first_timestamp"`
	LastTimestamp   string  `json:"last_timestamp"`
	MaxTier         int     `json:"max_tier"`
}

// ReplayResult holds filtered entries and their summary.
type ReplayResult struct {
	Filter  ReplayFilter  `json:"-"`
	Entries []AuditEntry  `json:"entries"`
	Summary ReplaySummary `json:"summary"`
}

// Replay reads the audit log and returns entries matching the filter.
// Malformed lines are skipped.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{Filter: filter}
	var weightSum float64
	err = eachLine(f, func(_ int, line []byte) error {
		var entry AuditEntry
		if json.Unmarshal(line, &entry) != nil {
			return nil
		}
		if !filter.match(entry) {
			return nil
		}
		result.Entries = append(result.Entries, entry)
		weightSum += entry.Weight
		updateSummary(&result.Summary, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("audit: read log: %w", err)
	}
	if result.Summary.Total > 0 {
		result.Summary.MeanWeight = weightSum / float64(result.Summary.Total)
	}
	return result, nil
}

func updateSummary(s *ReplaySummary, entry AuditEntry) {
	s.Total++
	switch entry.Decision {
	case DecisionPass:
		s.PassCount++
	case DecisionDeny:
		s.DenyCount++
	}
	if entry.Unmeasured {
		s.UnmeasuredCount++
	}
	if s.Total == 1 || entry.Weight < s.MinWeight {
		s.MinWeight = entry.Weight
	}
	if entry.ToTier > s.MaxTier {
		s.MaxTier = entry.ToTier
	}
	if entry.FromTier > s.MaxTier {
		s.MaxTier = entry.FromTier
	}
	if s.FirstTimestamp == "" {
		s.FirstTimestamp = entry.Timestamp
	}
	s.LastTimestamp = entry.Timestamp
}
