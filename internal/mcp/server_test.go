package mcp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/glyphgate/internal/audit"
)

const testPlaybook = `
[playbook]
name = "sweep"

[[playbook.steps]]
name = "scan"
tier = 1
unicode_op = "U+E800"

[[playbook.steps]]
name = "enrich"
tier = 2
unicode_op = "U+E500"
depends_on = ["scan"]
`

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "gate.jsonl")
	s, err := New(Config{
		ConfigPath:   filepath.Join(dir, "config.yaml"),
		AuditLogPath: logPath,
	})
	if err != nil {
		t.Fatalf("failed to create MCP server: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, logPath
}

func TestCompileTool(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	result, out, err := s.handleCompile(ctx, &mcpsdk.CallToolRequest{}, CompileInput{Source: testPlaybook})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatalf("expected success, got %q", out.Error)
	}
	if out.Name != "sweep" || len(out.Steps) != 2 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if strings.Join(out.Order, ",") != "scan,enrich" {
		t.Errorf("order = %v", out.Order)
	}
	if out.Steps[1].Symbol != "U+E500" {
		t.Errorf("symbol = %q", out.Steps[1].Symbol)
	}
}

func TestCompileToolRejects(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	for _, in := range []CompileInput{
		{Source: "[playbook]\nname = \"x\"\n"},
		{Source: "playbook: [", Format: "yaml"},
		{Source: testPlaybook, Format: "json"},
	} {
		result, out, err := s.handleCompile(ctx, &mcpsdk.CallToolRequest{}, in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result == nil || !result.IsError || out.Error == "" {
			t.Errorf("expected error result for %q (%s)", in.Source, in.Format)
		}
	}
}

func TestRouteTool(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	result, out, err := s.handleRoute(ctx, &mcpsdk.CallToolRequest{}, RouteInput{Symbol: `\u{E900}`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatalf("expected success, got %q", out.Error)
	}
	if out.Target != "sensor-bridge" || out.Priority != "low" || out.OperationID == "" {
		t.Errorf("unexpected route: %+v", out)
	}

	for _, sym := range []string{"U+E700", "U+F000", "nope"} {
		result, out, err := s.handleRoute(ctx, &mcpsdk.CallToolRequest{}, RouteInput{Symbol: sym})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result == nil || !result.IsError || out.Error == "" {
			t.Errorf("expected error result for %s", sym)
		}
	}
}

func TestSymbolsTool(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, all, err := s.handleSymbols(ctx, &mcpsdk.CallToolRequest{}, SymbolsInput{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Bindings) != 9 || len(all.Bands) != 8 {
		t.Errorf("listing = %d bindings, %d bands", len(all.Bindings), len(all.Bands))
	}

	_, byName, err := s.handleSymbols(ctx, &mcpsdk.CallToolRequest{}, SymbolsInput{Name: "hash_trigger"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byName.Bindings) != 1 || byName.Bindings[0].Primary != "U+E200" || len(byName.Bindings[0].Symbols) != 3 {
		t.Errorf("hash_trigger = %+v", byName.Bindings)
	}

	_, bySym, err := s.handleSymbols(ctx, &mcpsdk.CallToolRequest{}, SymbolsInput{Symbol: "U+E380"})
	if err != nil {
		t.Fatal(err)
	}
	if bySym.Owner != "hash_trigger" || bySym.Band != "hash components" {
		t.Errorf("U+E380 = %+v", bySym)
	}

	result, _, err := s.handleSymbols(ctx, &mcpsdk.CallToolRequest{}, SymbolsInput{Name: "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if result == nil || !result.IsError {
		t.Error("expected error result for unknown name")
	}
}

func TestPlanToolRecordsDecisions(t *testing.T) {
	s, logPath := newTestServer(t)
	ctx := context.Background()

	result, out, err := s.handlePlan(ctx, &mcpsdk.CallToolRequest{}, PlanInput{Source: testPlaybook})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatalf("expected success, got %q", out.Error)
	}
	if len(out.Steps) != 2 || out.Unrouted != 0 {
		t.Fatalf("unexpected plan: %+v", out)
	}
	if !out.Steps[0].Unmeasured || out.Steps[1].Prior != "scan" {
		t.Errorf("steps = %+v", out.Steps)
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	entries, err := audit.ReadAll(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("audit entries = %d, want 2", len(entries))
	}
}

func TestStatsTool(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, _, err := s.handleRoute(ctx, &mcpsdk.CallToolRequest{}, RouteInput{Symbol: "U+E801"}); err != nil {
			t.Fatal(err)
		}
	}
	_, out, err := s.handleStats(ctx, &mcpsdk.CallToolRequest{}, StatsInput{Optimize: true})
	if err != nil {
		t.Fatal(err)
	}
	if out.Total != 3 || out.ByPriority["medium"] != 3 {
		t.Errorf("stats = %+v", out)
	}
	if len(out.Promotions) != 0 {
		t.Errorf("3 routes should not promote: %+v", out.Promotions)
	}
	if !strings.HasPrefix(out.ConfigHash, "sha256:") {
		t.Errorf("config hash = %q", out.ConfigHash)
	}
}
