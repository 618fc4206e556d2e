package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/glyphgate/internal/calibrate"
)

var (
	calibrateDB     string
	calibrateTarget float64
	calibratePath   string
)

func init() {
	rootCmd.AddCommand(calibrateCmd)
	calibrateCmd.Flags().StringVar(&calibrateDB, "db", "", "Calibration database (default ~/.glyphgate/calibration.db)")
	calibrateCmd.Flags().Float64Var(&calibrateTarget, "target", 0.9, "Target pass rate in (0, 1]")
	calibrateCmd.Flags().StringVar(&calibratePath, "path", "", "Restrict the recommendation to one escalation path")
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate [log]...",
	Short: "Import decision logs and recommend a gate threshold",
	Long: "Imports decision logs into a SQLite calibration database (re-importing\n" +
		"is a no-op), prints per-path statistics, and recommends the highest\n" +
		"threshold that keeps the target share of measured decisions passing.",
	RunE: runCalibrate,
}

type calibrateReport struct {
	Imported       int                       `json:"imported"`
	Paths          []calibrate.PathStat      `json:"paths"`
	Recommendation *calibrate.Recommendation `json:"recommendation,omitempty"`
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	dbPath := calibrateDB
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".glyphgate", "calibration.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	store, err := calibrate.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	var report calibrateReport
	for _, logPath := range args {
		n, err := store.Import(ctx, logPath)
		if err != nil {
			return err
		}
		log().Debug("imported decision log", zap.String("log", logPath), zap.Int("new", n))
		report.Imported += n
	}

	if report.Paths, err = store.PathStats(ctx); err != nil {
		return err
	}
	rec, err := store.Recommend(ctx, calibrateTarget, calibratePath)
	switch {
	case errors.Is(err, calibrate.ErrNoSamples):
	case err != nil:
		return err
	default:
		report.Recommendation = &rec
	}

	w := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(w, report)
	}
	fmt.Fprintf(w, "Imported %d new decisions into %s\n\n", report.Imported, dbPath)
	tw := newTable(w, "Path", "Total", "Pass rate", "Unmeasured", "Mean", "Min", "Max")
	for _, p := range report.Paths {
		tw.AppendRow([]any{p.Path, p.Total, fmt.Sprintf("%.1f%%", p.PassRate()*100), p.Unmeasured,
			fmt.Sprintf("%.3f", p.MeanWeight), fmt.Sprintf("%.3f", p.MinWeight), fmt.Sprintf("%.3f", p.MaxWeight)})
	}
	tw.Render()
	fmt.Fprintln(w)
	if report.Recommendation == nil {
		fmt.Fprintln(w, "No measured decisions to calibrate against.")
		return nil
	}
	r := report.Recommendation
	fmt.Fprintf(w, "Recommended threshold: %.3f (pass rate %.1f%% over %d measured decisions, target %.1f%%)\n",
		r.Threshold, r.PassRate*100, r.Samples, r.TargetPassRate*100)
	return nil
}
