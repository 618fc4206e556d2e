// Package playbook compiles declarative playbook documents into validated,
// ordered step lists. Compilation is pure: no I/O beyond CompileFile, no
// shared state, safe for concurrent use.
package playbook

import (
	"strings"

	"github.com/ppiankov/glyphgate/internal/model"
	"github.com/ppiankov/glyphgate/internal/symbol"
)

// DefaultVersion is used when a playbook omits version.
const DefaultVersion = "1.0"

// DefaultStepSymbol is the tool-bindings fallback used when a step omits unicode_op.
var DefaultStepSymbol = symbol.BandByID(symbol.BandTool).Fallback()

// DefaultPrimaryTrigger is used when unicode_assembly omits primary_trigger.
var DefaultPrimaryTrigger = symbol.FormatEscaped(symbol.BandByID(symbol.BandCore).Fallback())

// Playbook is a compiled, validated unit of work. Immutable after Compile returns.
type Playbook struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description,omitempty"`
	Hash        TrivariateHash  `json:"trivariate_hash"`
	Escalation  EscalationHints `json:"escalation,omitempty"`
	Assembly    UnicodeAssembly `json:"unicode_assembly"`
	Steps       []Step          `json:"steps"`

	// SourceHash is "sha256:<hex>" of the raw document.
	SourceHash string `json:"source_hash"`
}

// TrivariateHash is the three-part content hash. All parts are optional.
type TrivariateHash struct {
	SCH  string `json:"sch"`
	CUID string `json:"cuid"`
	UUID string `json:"uuid"`
}

// IsZero reports whether no part is set.
func (h TrivariateHash) IsZero() bool {
	return h.SCH == "" && h.CUID == "" && h.UUID == ""
}

// String joins the non-empty parts with "_".
func (h TrivariateHash) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{h.SCH, h.CUID, h.UUID} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "_")
}

// EscalationHints are descriptive routing hints keyed as authored. Keys are
// usually tier slugs but are never checked against the gate's tiers.
type EscalationHints map[string][]string

// UnicodeAssembly holds the playbook-level trigger symbols as authored.
type UnicodeAssembly struct {
	PrimaryTrigger     string   `json:"primary_trigger"`
	EscalationTriggers []string `json:"escalation_triggers,omitempty"`
}

// Step is one unit of work within a playbook.
type Step struct {
	Name      string            `json:"name"`
	Tier      model.Tier        `json:"tier"`
	Symbol    symbol.Symbol     `json:"symbol"`
	Tool      string            `json:"tool,omitempty"`
	Target    string            `json:"target,omitempty"`
	DependsOn []string          `json:"depends_on,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// CorrelationHash returns the trivariate hash joined into one string.
func (p *Playbook) CorrelationHash() string {
	return p.Hash.String()
}

// Step returns the step with the given name.
func (p *Playbook) Step(name string) (Step, bool) {
	for _, s := range p.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}
