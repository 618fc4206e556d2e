package audit

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatTimelineHeaderAndSummary(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{Path: "Sandboxed->Microkernel"})
	if err != nil {
		t.Fatal(err)
	}

	out := FormatTimeline(result)

	if !strings.Contains(out, "Path: Sandboxed->Microkernel") {
		t.Error("expected header to contain the path filter")
	}
	if !strings.Contains(out, "2 pass") {
		t.Errorf("expected '2 pass' in summary, got:\n%s", out)
	}
	if !strings.Contains(out, "1 deny") {
		t.Errorf("expected '1 deny' in summary, got:\n%s", out)
	}
	if !strings.Contains(out, "Max tier: 2 (Microkernel)") {
		t.Errorf("expected max tier in summary, got:\n%s", out)
	}
}

func TestFormatTimelineEntryColumns(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{})
	if err != nil {
		t.Fatal(err)
	}

	out := FormatTimeline(result)

	for _, want := range []string{"All decisions", "U+E900", "DENY", "PASS", "[unmeasured]", "tier step 2 exceeds max 1", "w=0.880/0.500"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in timeline, got:\n%s", want, out)
		}
	}
}

func TestFormatJSONValid(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{Decision: DecisionPass})
	if err != nil {
		t.Fatal(err)
	}

	jsonStr, err := FormatJSON(result)
	if err != nil {
		t.Fatal(err)
	}

	var parsed ReplayResult
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		t.Fatalf("JSON output not valid: %v", err)
	}
	if len(parsed.Entries) != 3 {
		t.Errorf("expected 3 entries in JSON, got %d", len(parsed.Entries))
	}
	if parsed.Summary.PassCount != 3 {
		t.Errorf("expected pass count 3 in JSON summary, got %d", parsed.Summary.PassCount)
	}
}

func TestFormatTimelineEmptyEntries(t *testing.T) {
	result := &ReplayResult{Filter: ReplayFilter{OperationID: "op-empty"}}

	out := FormatTimeline(result)
	if !strings.Contains(out, "No entries found") || !strings.Contains(out, "op-empty") {
		t.Errorf("expected 'No entries found' message, got:\n%s", out)
	}
}
