package operation

import "github.com/ppiankov/glyphgate/internal/symbol"

// DefaultBindings is the authoritative triple list binding every kind to its
// symbols. Multi-symbol kinds touch several subsystems.
func DefaultBindings() []symbol.Binding {
	return []symbol.Binding{
		{Name: NameHashTrigger, Symbols: []symbol.Symbol{0xE200, 0xE300, 0xE380}, Primary: 0xE200},
		{Name: NameIntelCollection, Symbols: []symbol.Symbol{0xE500, 0xE400, 0xE600}, Primary: 0xE500},
		{Name: NamePentestSpawn, Symbols: []symbol.Symbol{0xE101, 0xE800}, Primary: 0xE101},
		{Name: NameEphemeralAsset, Symbols: []symbol.Symbol{0xE102, 0xE601}, Primary: 0xE102},
		{Name: NameNodeInterview, Symbols: []symbol.Symbol{0xE401, 0xE501}, Primary: 0xE401},
		{Name: NameToolInvocation, Symbols: []symbol.Symbol{0xE801}, Primary: 0xE801},
		{Name: NameWorkflow, Symbols: []symbol.Symbol{0xE103}, Primary: 0xE103},
		{Name: NameParallelGroup, Symbols: []symbol.Symbol{0xE104}, Primary: 0xE104},
		{Name: NameConditional, Symbols: []symbol.Symbol{0xE105}, Primary: 0xE105},
	}
}

// DefaultRegistry builds a registry populated with DefaultBindings.
func DefaultRegistry() *symbol.Registry {
	r, err := symbol.NewRegistry(DefaultBindings()...)
	if err != nil {
		// the default table is static; a failure here is a programming error
		panic(err)
	}
	return r
}
