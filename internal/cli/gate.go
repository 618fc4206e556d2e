package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/glyphgate/internal/gate"
	"github.com/ppiankov/glyphgate/internal/model"
	"github.com/ppiankov/glyphgate/internal/router"
	"github.com/ppiankov/glyphgate/internal/symbol"
)

var (
	gateFrom        string
	gateTo          string
	gateSymbol      string
	gateEnv         []string
	gateHash        string
	gatePriorSymbol string
	gatePriorEnv    []string
	gatePriorHash   string
	gatePriorFrom   string
	gatePriorTo     string
)

func init() {
	rootCmd.AddCommand(gateCmd)
	f := gateCmd.Flags()
	f.StringVar(&gateFrom, "from", "1", "Source tier, ordinal (1-7) or slug")
	f.StringVar(&gateTo, "to", "2", "Destination tier, ordinal (1-7) or slug")
	f.StringVar(&gateSymbol, "symbol", "U+E100", "Symbol of the current frame")
	f.StringArrayVar(&gateEnv, "env", nil, "Current environment tag key=value (repeatable)")
	f.StringVar(&gateHash, "hash", "", "Current correlation hash")
	f.StringVar(&gatePriorSymbol, "prior-symbol", "", "Symbol of the prior frame (omit for no prior)")
	f.StringArrayVar(&gatePriorEnv, "prior-env", nil, "Prior environment tag key=value (repeatable)")
	f.StringVar(&gatePriorHash, "prior-hash", "", "Prior correlation hash")
	f.StringVar(&gatePriorFrom, "prior-from", "1", "Prior frame source tier")
	f.StringVar(&gatePriorTo, "prior-to", "1", "Prior frame destination tier")
}

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Evaluate one tier transition",
	Long: "Routes the current (and optional prior) symbol to build execution\n" +
		"contexts, measures drift between them, and prints the gate verdict.\n" +
		"Without --prior-symbol the verdict is unmeasured.",
	Args: cobra.NoArgs,
	RunE: runGate,
}

func runGate(cmd *cobra.Command, args []string) error {
	cfg, hash, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := cfg.NewRouter()
	if err != nil {
		return err
	}
	gc, err := cfg.GateConfig(hash)
	if err != nil {
		return err
	}
	from, to, err := parseTiers(gateFrom, gateTo)
	if err != nil {
		return err
	}

	current, err := gateFrame(r, gateSymbol, gateEnv, gateHash)
	if err != nil {
		return err
	}
	var prior *gate.Prior
	if gatePriorSymbol != "" {
		ec, err := gateFrame(r, gatePriorSymbol, gatePriorEnv, gatePriorHash)
		if err != nil {
			return fmt.Errorf("prior: %w", err)
		}
		pf, pt, err := parseTiers(gatePriorFrom, gatePriorTo)
		if err != nil {
			return fmt.Errorf("prior: %w", err)
		}
		prior = &gate.Prior{Context: ec, From: pf, To: pt}
	}

	v := gate.New(gc, gate.SyncSink{Handler: gate.ZapHandler(log())}).Evaluate(from, to, current, prior)

	w := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(w, v)
	}
	result := "PASS"
	if !v.Passed {
		result = "DENY"
	}
	fmt.Fprintf(w, "%s  %s\n", result, v.Path)
	fmt.Fprintf(w, "  delta:     structural=%.3f environmental=%.3f semantic=%.3f\n", v.Delta.Structural, v.Delta.Environmental, v.Delta.Semantic)
	fmt.Fprintf(w, "  weight:    %.3f (%s, threshold %.3f)\n", v.Weight, v.Combiner, v.Threshold)
	if v.Unmeasured {
		fmt.Fprintln(w, "  prior:     none (unmeasured)")
	}
	if v.Reason != "" {
		fmt.Fprintf(w, "  reason:    %s\n", v.Reason)
	}
	return nil
}

func gateFrame(r *router.Router, lit string, tags []string, hash string) (model.ExecutionContext, error) {
	sym, err := symbol.Parse(lit)
	if err != nil {
		return model.ExecutionContext{}, err
	}
	env, err := parsePairs(tags)
	if err != nil {
		return model.ExecutionContext{}, err
	}
	_, ec, err := r.RouteWith(sym, router.RouteOptions{CorrelationHash: hash, Environment: env})
	return ec, err
}

func parseTiers(from, to string) (model.Tier, model.Tier, error) {
	f, err := model.ParseTier(from)
	if err != nil {
		return 0, 0, fmt.Errorf("--from: %w", err)
	}
	t, err := model.ParseTier(to)
	if err != nil {
		return 0, 0, fmt.Errorf("--to: %w", err)
	}
	return f, t, nil
}
