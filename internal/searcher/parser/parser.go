// Package parser turns a compact, symbol-first command string into one of the
// six typed query commands.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/errors"
)

type Symbol string

const (
	SymbolTopTerms      Symbol = "@"
	SymbolTopCategories Symbol = "#"
	SymbolPairScore     Symbol = "$"
	SymbolMatrix        Symbol = "*"
	SymbolMembers       Symbol = "P"
	SymbolMemberCount   Symbol = "C"
)

// Mode selects which index a membership query scans.
type Mode int

const (
	ModeCategory Mode = iota
	ModeTerm
)

func (m Mode) Flag() string {
	if m == ModeTerm {
		return "-t"
	}
	return "-c"
}

func (m Mode) String() string {
	if m == ModeTerm {
		return "term"
	}
	return "category"
}

func parseMode(raw, flag string) (Mode, error) {
	switch flag {
	case "-c":
		return ModeCategory, nil
	case "-t":
		return ModeTerm, nil
	default:
		return 0, apperrors.Invalid(raw, "mode must be -c or -t, got %q", flag)
	}
}

// Command is one parsed query. String returns the canonical command text.
type Command interface {
	Symbol() Symbol
	String() string
}

// TopTerms ranks every term against a category: "@ category k".
type TopTerms struct {
	Category string
	K        int
}

// TopCategories ranks every category against a stem: "# stem k".
type TopCategories struct {
	Stem string
	K    int
}

// PairScore scores one stem against one category: "$ stem category".
type PairScore struct {
	Stem     string
	Category string
}

// Matrix exports every (category, term) score: "* destination".
type Matrix struct {
	Destination string
}

// Members lists the categories or stems containing a document: "P doc -c|-t".
type Members struct {
	DocID string
	Mode  Mode
}

// MemberCount counts them instead: "C doc -c|-t".
type MemberCount struct {
	DocID string
	Mode  Mode
}

func (TopTerms) Symbol() Symbol      { return SymbolTopTerms }
func (TopCategories) Symbol() Symbol { return SymbolTopCategories }
func (PairScore) Symbol() Symbol     { return SymbolPairScore }
func (Matrix) Symbol() Symbol        { return SymbolMatrix }
func (Members) Symbol() Symbol       { return SymbolMembers }
func (MemberCount) Symbol() Symbol   { return SymbolMemberCount }

func (c TopTerms) String() string      { return fmt.Sprintf("@ %s %d", c.Category, c.K) }
func (c TopCategories) String() string { return fmt.Sprintf("# %s %d", c.Stem, c.K) }
func (c PairScore) String() string     { return fmt.Sprintf("$ %s %s", c.Stem, c.Category) }
func (c Matrix) String() string        { return fmt.Sprintf("* %s", c.Destination) }
func (c Members) String() string       { return fmt.Sprintf("P %s %s", c.DocID, c.Mode.Flag()) }
func (c MemberCount) String() string   { return fmt.Sprintf("C %s %s", c.DocID, c.Mode.Flag()) }

var arity = map[Symbol]int{
	SymbolTopTerms:      2,
	SymbolTopCategories: 2,
	SymbolPairScore:     2,
	SymbolMatrix:        1,
	SymbolMembers:       2,
	SymbolMemberCount:   2,
}

// Parse checks shape only: symbol, argument count, integer k and mode flag.
// Whether identifiers exist is for the executor to decide.
func Parse(raw string) (Command, error) {
	words := strings.Fields(raw)
	if len(words) == 0 {
		return nil, apperrors.Invalid(raw, "empty command")
	}
	sym := Symbol(words[0])
	want, ok := arity[sym]
	if !ok {
		return nil, apperrors.Invalid(raw, "unknown command symbol %q", words[0])
	}
	args := words[1:]
	if len(args) != want {
		return nil, apperrors.Invalid(raw, "%s takes %d argument(s), got %d", sym, want, len(args))
	}

	switch sym {
	case SymbolTopTerms:
		k, err := parseK(raw, args[1])
		if err != nil {
			return nil, err
		}
		return TopTerms{Category: args[0], K: k}, nil
	case SymbolTopCategories:
		k, err := parseK(raw, args[1])
		if err != nil {
			return nil, err
		}
		return TopCategories{Stem: args[0], K: k}, nil
	case SymbolPairScore:
		return PairScore{Stem: args[0], Category: args[1]}, nil
	case SymbolMatrix:
		return Matrix{Destination: args[0]}, nil
	case SymbolMembers:
		mode, err := parseMode(raw, args[1])
		if err != nil {
			return nil, err
		}
		return Members{DocID: args[0], Mode: mode}, nil
	default:
		mode, err := parseMode(raw, args[1])
		if err != nil {
			return nil, err
		}
		return MemberCount{DocID: args[0], Mode: mode}, nil
	}
}

func parseK(raw, s string) (int, error) {
	k, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperrors.Invalid(raw, "k must be an integer, got %q", s)
	}
	if k < 1 {
		return 0, apperrors.Invalid(raw, "k must be at least 1, got %d", k)
	}
	return k, nil
}
