package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/glyphgate/internal/audit"
)

var tailLines int

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent entries to show")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Gate decision log operations",
	Long:  "Commands for verifying and inspecting the hash-chained gate decision log.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Verify hash chain integrity of a decision log",
	Long:  "Walks the JSONL decision log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous entry. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail <path>",
	Short: "Show recent gate decisions",
	Long:  "Reads the last N entries from the JSONL decision log.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditTail,
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	result := audit.Verify(args[0])
	w := cmd.OutOrStdout()
	if jsonOutput() {
		if err := printJSON(w, result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintf(w, "OK: %d entries verified\n", result.Lines)
	}
	if !result.Valid {
		return fmt.Errorf("FAILED at line %d: %s", result.ErrorLine, result.Error)
	}
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	entries, err := audit.ReadAll(args[0])
	if err != nil {
		return err
	}
	start := len(entries) - tailLines
	if start < 0 {
		start = 0
	}
	entries = entries[start:]

	w := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(w, entries)
	}
	tw := newTable(w, "Time", "Operation", "Symbol", "Path", "Weight", "Decision", "Reason")
	for _, e := range entries {
		tw.AppendRow([]any{e.Timestamp, orDash(e.OperationID), orDash(e.Symbol), e.Path, fmt.Sprintf("%.3f", e.Weight), e.Decision, orDash(e.Reason)})
	}
	tw.Render()
	return nil
}
