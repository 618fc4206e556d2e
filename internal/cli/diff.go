package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/glyphgate/internal/config"
	"github.com/ppiankov/glyphgate/internal/configdiff"
)

func init() {
	rootCmd.AddCommand(diffCmd)
}

var diffCmd = &cobra.Command{
	Use:   "diff <old.yaml> <new.yaml>",
	Short: "Compare two config files and show changes",
	Long:  "Loads two config YAML files and shows what changed: gate threshold,\ncombiner and weights, router entries and symbol bindings.",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	oldCfg, err := config.LoadConfig(args[0])
	if err != nil {
		return fmt.Errorf("load old config: %w", err)
	}

	newCfg, err := config.LoadConfig(args[1])
	if err != nil {
		return fmt.Errorf("load new config: %w", err)
	}

	result := configdiff.Diff(oldCfg, newCfg)
	result.OldPath = args[0]
	result.NewPath = args[1]

	w := cmd.OutOrStdout()
	if jsonOutput() {
		out, err := configdiff.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
		return nil
	}
	fmt.Fprint(w, configdiff.FormatText(result))
	return nil
}
