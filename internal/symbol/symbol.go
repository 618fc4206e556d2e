// Package symbol defines the reserved code-point space used to encode
// operation identity, its named bands, the two accepted literal forms, and
// the bidirectional name↔symbol registry.
package symbol

import "fmt"

// Symbol is one code point in the reserved private-use space.
type Symbol uint32

// String renders the symbol in U+ form.
func (s Symbol) String() string {
	return FormatUPlus(s)
}

// Band is a contiguous, named sub-range of the symbol space.
type Band struct {
	ID    BandID
	Name  string
	First Symbol
	Last  Symbol
}

// BandID identifies one of the eight bands. Values follow band order.
type BandID int

const (
	BandCore BandID = iota
	BandHash
	BandContext
	BandIntelligence
	BandEnvironmental
	BandReserved
	BandTool
	BandSensor
)

// Contains reports whether s falls inside the band.
func (b Band) Contains(s Symbol) bool {
	return s >= b.First && s <= b.Last
}

// Width returns the number of code points in the band.
func (b Band) Width() int {
	return int(b.Last-b.First) + 1
}

// Fallback is the band's first code point, used when a lookup misses.
func (b Band) Fallback() Symbol {
	return b.First
}

// Bands lists the symbol space in ascending order. Bands are pairwise
// disjoint and contiguous from U+E100.
var Bands = [...]Band{
	{ID: BandCore, Name: "core system", First: 0xE100, Last: 0xE1FF},
	{ID: BandHash, Name: "hash components", First: 0xE200, Last: 0xE3FF},
	{ID: BandContext, Name: "context nodes", First: 0xE400, Last: 0xE4FF},
	{ID: BandIntelligence, Name: "intelligence", First: 0xE500, Last: 0xE5FF},
	{ID: BandEnvironmental, Name: "environmental mask", First: 0xE600, Last: 0xE6FF},
	{ID: BandReserved, Name: "reserved", First: 0xE700, Last: 0xE7FF},
	{ID: BandTool, Name: "tool bindings", First: 0xE800, Last: 0xE8FF},
	{ID: BandSensor, Name: "sensor bindings", First: 0xE900, Last: 0xE9FF},
}

// HashKind is one of the three hash-component sub-kinds.
type HashKind int

const (
	HashSCH HashKind = iota
	HashCUID
	HashUUID
)

// Sub-ranges of the hash components band.
var hashKinds = [...]struct {
	name        string
	first, last Symbol
}{
	HashSCH:  {"sch", 0xE200, 0xE2FF},
	HashCUID: {"cuid", 0xE300, 0xE37F},
	HashUUID: {"uuid", 0xE380, 0xE3FF},
}

// HashKindOf returns the hash sub-kind owning s.
func HashKindOf(s Symbol) (HashKind, bool) {
	for i, hk := range hashKinds {
		if s >= hk.first && s <= hk.last {
			return HashKind(i), true
		}
	}
	return 0, false
}

// String returns the sub-kind label.
func (k HashKind) String() string {
	if k < 0 || int(k) >= len(hashKinds) {
		return fmt.Sprintf("unknown(%d)", int(k))
	}
	return hashKinds[k].name
}

// BandByID returns the band with the given ID.
func BandByID(id BandID) Band {
	if id < 0 || int(id) >= len(Bands) {
		panic(fmt.Sprintf("symbol: unknown band id %d", int(id)))
	}
	return Bands[id]
}

// BandOf returns the band owning s, or false when s lies outside the space.
func BandOf(s Symbol) (Band, bool) {
	if s < Bands[0].First || s > Bands[len(Bands)-1].Last {
		return Band{}, false
	}
	for _, b := range Bands {
		if b.Contains(s) {
			return b, true
		}
	}
	return Band{}, false
}

// String returns the band name.
func (id BandID) String() string {
	if id < 0 || int(id) >= len(Bands) {
		return fmt.Sprintf("unknown(%d)", int(id))
	}
	return Bands[id].Name
}
