package compare

import (
	"fmt"

	"github.com/ralt/branchdiff/internal/version"
)

// Mode selects the identity key packages are matched on
type Mode int

const (
	// ModeDefault matches packages by name
	ModeDefault Mode = iota
	// ModeNeededSymbol matches packages by name and needed symbol
	ModeNeededSymbol
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "name"
	case ModeNeededSymbol:
		return "symbol"
	default:
		return "unknown"
	}
}

// ParseMode maps a flag value to a Mode
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "name", "default":
		return ModeDefault, nil
	case "symbol", "needed-symbol":
		return ModeNeededSymbol, nil
	default:
		return ModeDefault, fmt.Errorf("unknown comparison key %q (want name or symbol)", s)
	}
}

// Relation is the version relation a package pair must satisfy to be
// reported in NewerInFirst
type Relation int

const (
	GT Relation = iota
	LT
	EQ
	GE
	LE
	NE
)

var relationNames = map[Relation]string{
	GT: "gt",
	LT: "lt",
	EQ: "eq",
	GE: "ge",
	LE: "le",
	NE: "ne",
}

// String returns the string representation of Relation
func (r Relation) String() string {
	if s, ok := relationNames[r]; ok {
		return s
	}
	return "unknown"
}

// ParseRelation maps a flag value to a Relation
func ParseRelation(s string) (Relation, error) {
	if s == "" {
		return GT, nil
	}
	for r, name := range relationNames {
		if name == s {
			return r, nil
		}
	}
	return GT, fmt.Errorf("unknown comparison %q (want gt, lt, eq, ge, le or ne)", s)
}

// Holds reports whether the ordering of the first version against the
// second satisfies the relation
func (r Relation) Holds(o version.Ordering) bool {
	switch r {
	case GT:
		return o == version.Greater
	case LT:
		return o == version.Less
	case EQ:
		return o == version.Equal
	case GE:
		return o != version.Less
	case LE:
		return o != version.Greater
	case NE:
		return o != version.Equal
	default:
		return false
	}
}

// DefaultSymbolField is the package field read in ModeNeededSymbol
const DefaultSymbolField = "source"

// Options controls a Diff
type Options struct {
	Mode     Mode
	Relation Relation
	// SymbolField names the package field holding the needed symbol,
	// DefaultSymbolField when empty
	SymbolField string
}
