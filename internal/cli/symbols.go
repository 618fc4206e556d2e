package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/glyphgate/internal/symbol"
)

func init() {
	rootCmd.AddCommand(symbolsCmd)
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols [name|symbol]",
	Short: "Show symbol bands and operation bindings",
	Long: "With no argument, lists the symbol bands and every configured binding.\n" +
		"With an operation name, shows its symbols. With a symbol literal\n" +
		"(U+E200 or \\u{E200}), shows its band and owning operation.",
	Args: cobra.MaximumNArgs(1),
	RunE: runSymbols,
}

type symbolInfo struct {
	Symbol string `json:"symbol"`
	Band   string `json:"band,omitempty"`
	Owner  string `json:"owner,omitempty"`
}

func runSymbols(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	if len(args) == 0 {
		if jsonOutput() {
			return printJSON(w, reg.Bindings())
		}
		bands := newTable(w, "Band", "First", "Last", "Width")
		for _, b := range symbol.Bands {
			bands.AppendRow([]any{b.Name, b.First, b.Last, b.Width()})
		}
		bands.Render()
		fmt.Fprintln(w)
		renderBindings(w, reg.Bindings())
		return nil
	}

	arg := args[0]
	if sym, err := symbol.Parse(arg); err == nil {
		info := symbolInfo{Symbol: sym.String()}
		if b, ok := symbol.BandOf(sym); ok {
			info.Band = b.Name
		}
		if owner, ok := reg.Reverse(sym); ok {
			info.Owner = owner
		}
		if jsonOutput() {
			return printJSON(w, info)
		}
		fmt.Fprintf(w, "%s  %s  band=%s  owner=%s\n", sym, symbol.FormatEscaped(sym), orDash(info.Band), orDash(info.Owner))
		return nil
	}

	syms, ok := reg.Forward(arg)
	if !ok {
		return fmt.Errorf("no binding or symbol matches %q", arg)
	}
	primary, _ := reg.Primary(arg)
	b := symbol.Binding{Name: arg, Symbols: syms, Primary: primary}
	if jsonOutput() {
		return printJSON(w, b)
	}
	renderBindings(w, []symbol.Binding{b})
	return nil
}

func renderBindings(w io.Writer, bindings []symbol.Binding) {
	tw := newTable(w, "Operation", "Primary", "Symbols")
	for _, b := range bindings {
		parts := make([]string, len(b.Symbols))
		for i, s := range b.Symbols {
			parts[i] = s.String()
		}
		tw.AppendRow([]any{b.Name, b.Primary, strings.Join(parts, " ")})
	}
	tw.Render()
}
