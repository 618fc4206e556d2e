package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/glyphgate/internal/model"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	title := describeFilter(result.Filter)
	if len(result.Entries) == 0 {
		return fmt.Sprintf("%s | No entries found.\n", title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s–%s UTC\n", title,
		formatDateRange(result.Summary.FirstTimestamp),
		formatTimeOnly(result.Summary.LastTimestamp))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		tag := ""
		if e.Unmeasured {
			tag = "  [unmeasured]"
		}
		if e.Reason != "" {
			tag += "  " + truncate(e.Reason, 40)
		}
		fmt.Fprintf(&b, "%-10s %-6s %-36s %-5s w=%.3f/%.3f  d=(%.2f %.2f %.2f)%s\n",
			formatTimeOnly(e.Timestamp),
			e.Symbol,
			truncate(e.Path, 36),
			strings.ToUpper(e.Decision),
			e.Weight, e.Threshold,
			e.Delta.Structural, e.Delta.Environmental, e.Delta.Semantic,
			tag)
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))
	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("audit: marshal replay result: %w", err)
	}
	return string(data), nil
}

func describeFilter(f ReplayFilter) string {
	var parts []string
	if f.Path != "" {
		parts = append(parts, "Path: "+f.Path)
	}
	if f.OperationID != "" {
		parts = append(parts, "Operation: "+f.OperationID)
	}
	if f.Decision != "" {
		parts = append(parts, "Decision: "+f.Decision)
	}
	if len(parts) == 0 {
		return "All decisions"
	}
	return strings.Join(parts, " | ")
}

func formatDateRange(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s ReplaySummary) string {
	parts := []string{}
	if s.PassCount > 0 {
		parts = append(parts, fmt.Sprintf("%d pass", s.PassCount))
	}
	if s.DenyCount > 0 {
		parts = append(parts, fmt.Sprintf("%d deny", s.DenyCount))
	}
	if s.UnmeasuredCount > 0 {
		parts = append(parts, fmt.Sprintf("%d unmeasured", s.UnmeasuredCount))
	}
	return fmt.Sprintf("Summary: %s | Weight mean %.3f min %.3f | Max tier: %d (%s)\n",
		strings.Join(parts, ", "), s.MeanWeight, s.MinWeight, s.MaxTier, tierLabelFor(s.MaxTier))
}

func tierLabelFor(tier int) string {
	t := model.Tier(tier)
	if !t.Valid() {
		return "unknown"
	}
	return t.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
