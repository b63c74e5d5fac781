// Package enzyme generates candidate peptides from protein sequences by
// applying enzymatic cleavage rules.
package enzyme

import (
	"fmt"
	"sort"
	"strings"
)

// Exclusion blocks a cut between two specific residues, such as the classic
// "no cut before Proline" rule of trypsin.
type Exclusion struct {
	After  byte // residue left of the blocked cut
	Before byte // residue right of the blocked cut
}

// Rule describes an enzyme's cleavage behaviour as data, so that adding an
// enzyme is configuration rather than a new code path.
type Rule struct {
	Name         string
	CleaveAfter  string // residues that trigger a cut after them
	CleaveBefore string // residues that trigger a cut before them
	Exclusions   []Exclusion
}

// None reports whether the rule has no cleavage sites at all (digest-none).
func (r Rule) None() bool {
	return r.CleaveAfter == "" && r.CleaveBefore == ""
}

// CutsAt reports whether the rule cuts seq between offsets pos-1 and pos.
func (r Rule) CutsAt(seq string, pos int) bool {
	if pos <= 0 || pos >= len(seq) {
		return false
	}
	left, right := seq[pos-1], seq[pos]
	cut := strings.IndexByte(r.CleaveAfter, left) >= 0 ||
		strings.IndexByte(r.CleaveBefore, right) >= 0
	if !cut {
		return false
	}
	for _, ex := range r.Exclusions {
		if ex.After == left && ex.Before == right {
			return false
		}
	}
	return true
}

var rules = map[string]Rule{
	"trypsin": {
		Name:        "trypsin",
		CleaveAfter: "KR",
		Exclusions:  []Exclusion{{'K', 'P'}, {'R', 'P'}},
	},
	"lys-c": {
		Name:        "lys-c",
		CleaveAfter: "K",
	},
	"arg-c": {
		Name:        "arg-c",
		CleaveAfter: "R",
	},
	// none performs no digestion and emits the whole sequence as a single
	// candidate, used for pre-digested or peptide-level input.
	"none": {
		Name: "none",
	},
}

// ByName returns the cleavage rule for an enzyme name.
func ByName(name string) (Rule, error) {
	r, ok := rules[strings.ToLower(name)]
	if !ok {
		return Rule{}, fmt.Errorf("unknown enzyme %q (known: %s)",
			name, strings.Join(Known(), ", "))
	}
	return r, nil
}

// Known returns the sorted list of known enzyme names.
func Known() []string {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
