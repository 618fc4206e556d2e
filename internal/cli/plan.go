package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/glyphgate/internal/pipeline"
	"github.com/ppiankov/glyphgate/internal/playbook"
)

var (
	planAuditLog string
	planStrict   bool
)

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVar(&planAuditLog, "audit-log", "", "Append gate decisions to this log (overrides audit.path)")
	planCmd.Flags().BoolVar(&planStrict, "strict", false, "Exit non-zero if any step is denied or unrouted")
}

var planCmd = &cobra.Command{
	Use:   "plan <playbook>",
	Short: "Route and gate every step of a playbook",
	Long: "Compiles the playbook, then routes each step's symbol and gates its tier\n" +
		"transition in dependency order. A step's prior frame is its routed\n" +
		"dependency with the highest tier; root steps are gated unmeasured.",
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	pb, err := playbook.CompileFile(args[0])
	if err != nil {
		return err
	}
	cfg, hash, err := loadConfig()
	if err != nil {
		return err
	}
	if planAuditLog != "" {
		cfg.Audit.Path = planAuditLog
	}

	sink, err := pipeline.OpenSink(cfg.Audit, log())
	if err != nil {
		return err
	}
	p, err := pipeline.FromConfig(cfg, hash, sink, log())
	if err != nil {
		sink.Close()
		return err
	}
	plan, err := p.Plan(cmd.Context(), pb)
	if cerr := sink.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if jsonOutput() {
		if err := printJSON(w, plan); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "Playbook: %s (version %s)\n\n", plan.Playbook, plan.Version)
		tw := newTable(w, "Step", "Operation", "Symbol", "Target", "Priority", "Path", "Weight", "Result")
		for _, s := range plan.Steps {
			if !s.Routed() {
				tw.AppendRow([]any{s.Step, orDash(s.Operation), s.Symbol, "-", "-", "-", "-", s.Error})
				continue
			}
			v := s.Verdict
			result := "pass"
			if !v.Passed {
				result = "deny: " + v.Reason
			}
			if v.Unmeasured {
				result += " (unmeasured)"
			}
			tw.AppendRow([]any{s.Step, orDash(s.Operation), s.Symbol, s.Target, s.Priority, v.Path, fmt.Sprintf("%.3f", v.Weight), result})
		}
		tw.Render()
		fmt.Fprintf(w, "\n%d passed, %d denied, %d unrouted\n", plan.Passed, plan.Denied, plan.Unrouted)
	}

	if planStrict && (plan.Denied > 0 || plan.Unrouted > 0) {
		return fmt.Errorf("plan not clear: %d denied, %d unrouted", plan.Denied, plan.Unrouted)
	}
	return nil
}
