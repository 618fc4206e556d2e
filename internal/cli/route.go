package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/glyphgate/internal/model"
	"github.com/ppiankov/glyphgate/internal/router"
	"github.com/ppiankov/glyphgate/internal/symbol"
)

var (
	routeEnv         []string
	routeCorrelation string
	routeStats       bool
	routeOptimize    bool
)

func init() {
	rootCmd.AddCommand(routeCmd)
	routeCmd.Flags().StringArrayVarP(&routeEnv, "env", "e", nil, "Environment tag key=value (repeatable)")
	routeCmd.Flags().StringVar(&routeCorrelation, "correlation", "", "Correlation hash stamped on each context")
	routeCmd.Flags().BoolVar(&routeStats, "stats", false, "Print router statistics after routing")
	routeCmd.Flags().BoolVar(&routeOptimize, "optimize", false, "Run a priority optimization pass after routing")
}

var routeCmd = &cobra.Command{
	Use:   "route <symbol>...",
	Short: "Route symbols to their handlers",
	Long: "Looks up the handler for each symbol in the configured dispatch table\n" +
		"and prints the execution context recorded for it. Exits non-zero if any\n" +
		"symbol has no route.",
	Args: cobra.MinimumNArgs(1),
	RunE: runRoute,
}

type routeResult struct {
	Symbol  string                  `json:"symbol"`
	Target  string                  `json:"target,omitempty"`
	Context *model.ExecutionContext `json:"context,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

type routeReport struct {
	Routes     []routeResult      `json:"routes"`
	Promotions []router.Promotion `json:"promotions,omitempty"`
	Stats      *router.Stats      `json:"stats,omitempty"`
}

func runRoute(cmd *cobra.Command, args []string) error {
	env, err := parsePairs(routeEnv)
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := cfg.NewRouter()
	if err != nil {
		return err
	}

	var report routeReport
	misses := 0
	for _, arg := range args {
		res := routeResult{Symbol: arg}
		sym, err := symbol.Parse(arg)
		if err != nil {
			res.Error = err.Error()
			misses++
			report.Routes = append(report.Routes, res)
			continue
		}
		res.Symbol = sym.String()
		entry, ec, err := r.RouteWith(sym, router.RouteOptions{CorrelationHash: routeCorrelation, Environment: env})
		if err != nil {
			res.Error = err.Error()
			misses++
		} else {
			res.Target = entry.Target
			res.Context = &ec
		}
		report.Routes = append(report.Routes, res)
	}
	if routeOptimize {
		report.Promotions = r.Optimize()
	}
	if routeStats || routeOptimize {
		st := r.Statistics()
		report.Stats = &st
	}

	w := cmd.OutOrStdout()
	if jsonOutput() {
		if err := printJSON(w, report); err != nil {
			return err
		}
	} else {
		tw := newTable(w, "Symbol", "Target", "Priority", "Seq", "Operation ID")
		for _, res := range report.Routes {
			if res.Context == nil {
				tw.AppendRow([]any{res.Symbol, "-", "-", "-", res.Error})
				continue
			}
			tw.AppendRow([]any{res.Symbol, res.Target, res.Context.Priority, res.Context.Seq, res.Context.OperationID})
		}
		tw.Render()
		for _, p := range report.Promotions {
			fmt.Fprintf(w, "promoted %s %s: %s -> %s (%d routes)\n", p.Target, p.Range, p.From, p.To, p.Count)
		}
		if report.Stats != nil {
			fmt.Fprintln(w)
			renderStats(cmd, *report.Stats)
		}
	}

	if misses > 0 {
		return fmt.Errorf("%d of %d symbols not routed", misses, len(args))
	}
	return nil
}

func renderStats(cmd *cobra.Command, st router.Stats) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Total routed: %d\n", st.Total)
	for _, p := range model.PriorityLevels {
		fmt.Fprintf(w, "  %-8s %d\n", p, st.ByPriority[p])
	}
	tw := newTable(w, "Target", "Range", "Priority", "Count")
	for _, u := range st.ByRange {
		tw.AppendRow([]any{u.Target, u.Range, u.Priority, u.Count})
	}
	tw.Render()
}
