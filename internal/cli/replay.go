package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/glyphgate/internal/audit"
)

var (
	replayPath      string
	replayOperation string
	replayDecision  string
	replayFrom      string
	replayTo        string
)

func init() {
	auditCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayPath, "path", "", "Escalation path filter, e.g. Sandboxed->Container")
	replayCmd.Flags().StringVar(&replayOperation, "operation", "", "Operation ID filter")
	replayCmd.Flags().StringVar(&replayDecision, "decision", "", "Decision filter (pass|deny)")
	replayCmd.Flags().StringVar(&replayFrom, "from", "", "Start time filter (RFC3339)")
	replayCmd.Flags().StringVar(&replayTo, "to", "", "End time filter (RFC3339)")
}

var replayCmd = &cobra.Command{
	Use:   "replay <log>",
	Short: "Replay gate decisions from the decision log",
	Long:  "Reads the decision log, filters by path, operation, decision and time\nrange, and renders a decision timeline with summary.",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	filter := audit.ReplayFilter{
		Path:        replayPath,
		OperationID: replayOperation,
		Decision:    replayDecision,
	}

	if replayFrom != "" {
		from, err := time.Parse(time.RFC3339, replayFrom)
		if err != nil {
			return fmt.Errorf("invalid --from time %q: %w", replayFrom, err)
		}
		filter.From = from
	}

	if replayTo != "" {
		to, err := time.Parse(time.RFC3339, replayTo)
		if err != nil {
			return fmt.Errorf("invalid --to time %q: %w", replayTo, err)
		}
		filter.To = to
	}

	result, err := audit.Replay(args[0], filter)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if jsonOutput() {
		out, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
		return nil
	}
	fmt.Fprint(w, audit.FormatTimeline(result))
	return nil
}
