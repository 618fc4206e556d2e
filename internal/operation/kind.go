// Package operation defines the closed set of operation kinds the fabric routes.
// Priority and primary symbol are pure functions of the kind; payload fields
// never influence them.
package operation

import (
	"fmt"
	"time"

	"github.com/ppiankov/glyphgate/internal/model"
	"github.com/ppiankov/glyphgate/internal/symbol"
)

// Stable kind names. These are the registry keys.
const (
	NameHashTrigger     = "hash_trigger"
	NameIntelCollection = "intel_collection"
	NamePentestSpawn    = "pentest_spawn"
	NameEphemeralAsset  = "ephemeral_asset"
	NameNodeInterview   = "node_interview"
	NameToolInvocation  = "tool_invocation"
	NameWorkflow        = "workflow"
	NameParallelGroup   = "parallel_group"
	NameConditional     = "conditional"
)

// Kind is one variant of the operation union. The unexported marker method
// seals the set to the nine types in this package.
type Kind interface {
	Name() string
	Priority() model.Priority
	PrimarySymbol(reg *symbol.Registry) symbol.Symbol
	isKind()
}

// HashTrigger fires on a trivariate hash.
type HashTrigger struct {
	SCH  string `json:"sch,omitempty"`
	CUID string `json:"cuid,omitempty"`
	UUID string `json:"uuid,omitempty"`
}

// IntelCollection gathers intelligence from the listed sources.
type IntelCollection struct {
	Sources []string `json:"sources,omitempty"`
	Query   string   `json:"query,omitempty"`
}

// PentestSpawn starts a scoped assessment against a target.
type PentestSpawn struct {
	Target string   `json:"target"`
	Tools  []string `json:"tools,omitempty"`
}

// EphemeralAsset provisions a short-lived asset.
type EphemeralAsset struct {
	Image string        `json:"image"`
	TTL   time.Duration `json:"ttl"`
}

// NodeInterview queries a context node.
type NodeInterview struct {
	NodeID    string   `json:"node_id"`
	Questions []string `json:"questions,omitempty"`
}

// ToolInvocation runs a single bound tool.
type ToolInvocation struct {
	Tool string   `json:"tool"`
	Args []string `json:"args,omitempty"`
}

// Workflow runs a compiled playbook.
type Workflow struct {
	Playbook string   `json:"playbook"`
	Steps    []string `json:"steps,omitempty"`
}

// ParallelGroup fans out to several operations.
type ParallelGroup struct {
	Ops []Kind `json:"-"`
}

// Conditional selects Then or Else on Predicate.
type Conditional struct {
	Predicate string `json:"predicate"`
	Then      Kind   `json:"-"`
	Else      Kind   `json:"-"`
}

func (HashTrigger) isKind()     {}
func (IntelCollection) isKind() {}
func (PentestSpawn) isKind()    {}
func (EphemeralAsset) isKind()  {}
func (NodeInterview) isKind()   {}
func (ToolInvocation) isKind()  {}
func (Workflow) isKind()        {}
func (ParallelGroup) isKind()   {}
func (Conditional) isKind()     {}

func (HashTrigger) Name() string     { return kindName(HashTrigger{}) }
func (IntelCollection) Name() string { return kindName(IntelCollection{}) }
func (PentestSpawn) Name() string    { return kindName(PentestSpawn{}) }
func (EphemeralAsset) Name() string  { return kindName(EphemeralAsset{}) }
func (NodeInterview) Name() string   { return kindName(NodeInterview{}) }
func (ToolInvocation) Name() string  { return kindName(ToolInvocation{}) }
func (Workflow) Name() string        { return kindName(Workflow{}) }
func (ParallelGroup) Name() string   { return kindName(ParallelGroup{}) }
func (Conditional) Name() string     { return kindName(Conditional{}) }

func (k HashTrigger) Priority() model.Priority     { return kindPriority(k) }
func (k IntelCollection) Priority() model.Priority { return kindPriority(k) }
func (k PentestSpawn) Priority() model.Priority    { return kindPriority(k) }
func (k EphemeralAsset) Priority() model.Priority  { return kindPriority(k) }
func (k NodeInterview) Priority() model.Priority   { return kindPriority(k) }
func (k ToolInvocation) Priority() model.Priority  { return kindPriority(k) }
func (k Workflow) Priority() model.Priority        { return kindPriority(k) }
func (k ParallelGroup) Priority() model.Priority   { return kindPriority(k) }
func (k Conditional) Priority() model.Priority     { return kindPriority(k) }

func (k HashTrigger) PrimarySymbol(r *symbol.Registry) symbol.Symbol     { return primary(k, r) }
func (k IntelCollection) PrimarySymbol(r *symbol.Registry) symbol.Symbol { return primary(k, r) }
func (k PentestSpawn) PrimarySymbol(r *symbol.Registry) symbol.Symbol    { return primary(k, r) }
func (k EphemeralAsset) PrimarySymbol(r *symbol.Registry) symbol.Symbol  { return primary(k, r) }
func (k NodeInterview) PrimarySymbol(r *symbol.Registry) symbol.Symbol   { return primary(k, r) }
func (k ToolInvocation) PrimarySymbol(r *symbol.Registry) symbol.Symbol  { return primary(k, r) }
func (k Workflow) PrimarySymbol(r *symbol.Registry) symbol.Symbol        { return primary(k, r) }
func (k ParallelGroup) PrimarySymbol(r *symbol.Registry) symbol.Symbol   { return primary(k, r) }
func (k Conditional) PrimarySymbol(r *symbol.Registry) symbol.Symbol     { return primary(k, r) }

func kindName(k Kind) string {
	switch k.(type) {
	case HashTrigger:
		return NameHashTrigger
	case IntelCollection:
		return NameIntelCollection
	case PentestSpawn:
		return NamePentestSpawn
	case EphemeralAsset:
		return NameEphemeralAsset
	case NodeInterview:
		return NameNodeInterview
	case ToolInvocation:
		return NameToolInvocation
	case Workflow:
		return NameWorkflow
	case ParallelGroup:
		return NameParallelGroup
	case Conditional:
		return NameConditional
	}
	panic(fmt.Sprintf("operation: unhandled kind %T", k))
}

func kindPriority(k Kind) model.Priority {
	switch k.(type) {
	case IntelCollection, NodeInterview:
		return model.PriorityCritical
	case HashTrigger, PentestSpawn, ToolInvocation, ParallelGroup:
		return model.PriorityHigh
	case EphemeralAsset, Workflow, Conditional:
		return model.PriorityMedium
	}
	panic(fmt.Sprintf("operation: unhandled kind %T", k))
}

// homeBand is the band whose first code point serves as the literal fallback.
func homeBand(k Kind) symbol.BandID {
	switch k.(type) {
	case HashTrigger:
		return symbol.BandHash
	case IntelCollection:
		return symbol.BandIntelligence
	case NodeInterview:
		return symbol.BandContext
	case ToolInvocation:
		return symbol.BandTool
	case PentestSpawn, EphemeralAsset, Workflow, ParallelGroup, Conditional:
		return symbol.BandCore
	}
	panic(fmt.Sprintf("operation: unhandled kind %T", k))
}

// Fallback returns the literal symbol used when the registry has no entry for k.
func Fallback(k Kind) symbol.Symbol {
	return symbol.BandByID(homeBand(k)).Fallback()
}

func primary(k Kind, r *symbol.Registry) symbol.Symbol {
	if r != nil {
		if s, ok := r.Primary(k.Name()); ok {
			return s
		}
	}
	return Fallback(k)
}

// Lookup resolves a stable kind name to a zero-payload Kind.
func Lookup(name string) (Kind, bool) {
	switch name {
	case NameHashTrigger:
		return HashTrigger{}, true
	case NameIntelCollection:
		return IntelCollection{}, true
	case NamePentestSpawn:
		return PentestSpawn{}, true
	case NameEphemeralAsset:
		return EphemeralAsset{}, true
	case NameNodeInterview:
		return NodeInterview{}, true
	case NameToolInvocation:
		return ToolInvocation{}, true
	case NameWorkflow:
		return Workflow{}, true
	case NameParallelGroup:
		return ParallelGroup{}, true
	case NameConditional:
		return Conditional{}, true
	}
	return nil, false
}

// All returns one zero-payload value of every kind.
func All() []Kind {
	return []Kind{
		HashTrigger{},
		IntelCollection{},
		PentestSpawn{},
		EphemeralAsset{},
		NodeInterview{},
		ToolInvocation{},
		Workflow{},
		ParallelGroup{},
		Conditional{},
	}
}
