package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/glyphgate/internal/config"
	"github.com/ppiankov/glyphgate/internal/sim"
)

var (
	simLog         string
	simCandidate   string
	simThreshold   float64
	simCombiner    string
	simMaxTierStep int
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simLog, "log", "", "Path to decision log (required)")
	simulateCmd.Flags().StringVar(&simCandidate, "candidate", "", "Candidate config YAML (default: active config)")
	simulateCmd.Flags().Float64Var(&simThreshold, "threshold", -1, "Override the candidate threshold")
	simulateCmd.Flags().StringVar(&simCombiner, "combiner", "", "Override the candidate combiner (weighted|product)")
	simulateCmd.Flags().IntVar(&simMaxTierStep, "max-tier-step", -1, "Override the candidate max tier step")
	simulateCmd.MarkFlagRequired("log")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Re-score recorded gate decisions under a candidate config",
	Long: "Reads a recorded decision log, re-scores each recorded delta with a\n" +
		"candidate gate configuration, and shows which decisions changed.\n\n" +
		"Use this to preview threshold or combiner changes before deploying them.",
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	path := simCandidate
	if path == "" {
		path = configPath()
	}
	cfg, hash, err := config.LoadConfigWithHash(path)
	if err != nil {
		return err
	}
	if simThreshold >= 0 {
		cfg.Gate.Threshold = simThreshold
	}
	if simCombiner != "" {
		cfg.Gate.Combiner = simCombiner
	}
	if simMaxTierStep >= 0 {
		cfg.Gate.MaxTierStep = simMaxTierStep
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	gc, err := cfg.GateConfig(hash)
	if err != nil {
		return err
	}

	result, err := sim.Simulate(simLog, gc)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if jsonOutput() {
		out, err := sim.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
		return nil
	}
	fmt.Fprint(w, sim.FormatText(result))
	return nil
}
