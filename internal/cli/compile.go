package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/glyphgate/internal/playbook"
)

func init() {
	rootCmd.AddCommand(compileCmd)
}

var compileCmd = &cobra.Command{
	Use:   "compile <playbook>",
	Short: "Compile and validate a playbook",
	Long: "Parses a TOML or YAML playbook, validates steps, tiers, symbols and\n" +
		"dependencies, and prints the steps in dependency order.",
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func runCompile(cmd *cobra.Command, args []string) error {
	pb, err := playbook.CompileFile(args[0])
	if err != nil {
		return err
	}
	log().Debug("playbook compiled",
		zap.String("name", pb.Name),
		zap.Int("steps", len(pb.Steps)),
		zap.String("source_hash", pb.SourceHash))

	w := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(w, pb)
	}

	fmt.Fprintf(w, "Playbook: %s (version %s)\n", pb.Name, pb.Version)
	if pb.Description != "" {
		fmt.Fprintf(w, "  %s\n", pb.Description)
	}
	fmt.Fprintf(w, "Source:   %s\n", pb.SourceHash)
	if c := pb.CorrelationHash(); c != "" {
		fmt.Fprintf(w, "Hash:     %s\n", c)
	}
	fmt.Fprintf(w, "Trigger:  %s\n", pb.Assembly.PrimaryTrigger)
	fmt.Fprintln(w)

	tw := newTable(w, "#", "Step", "Tier", "Symbol", "Tool", "Target", "Depends on")
	for i, s := range pb.Order() {
		tw.AppendRow([]any{i + 1, s.Name, s.Tier, s.Symbol, orDash(s.Tool), orDash(s.Target), orDash(strings.Join(s.DependsOn, ", "))})
	}
	tw.Render()
	return nil
}
