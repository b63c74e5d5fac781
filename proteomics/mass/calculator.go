package mass

import "fmt"

// ModPosition restricts where a static modification applies.
type ModPosition int

const (
	// PositionAnywhere applies the delta to every occurrence of the residue.
	PositionAnywhere ModPosition = iota
	// PositionNTerm applies the delta once to the N-terminal residue.
	PositionNTerm
	// PositionCTerm applies the delta once to the C-terminal residue.
	PositionCTerm
)

// Modification is a static mass delta applied unconditionally to a residue
// or to a peptide terminus. Variable modifications are a search-time concern
// and deliberately not part of the stored mass.
type Modification struct {
	Residue  byte // 0 means any residue (terminus mods only)
	Position ModPosition
	Mono     Mass
	Average  Mass
}

// ErrUnknownResidue is returned wrapped by SequenceMass for sequences that
// contain a symbol without a mass table entry.
type ErrUnknownResidue struct {
	Residue byte
	Offset  int
}

func (e *ErrUnknownResidue) Error() string {
	return fmt.Sprintf("no mass table entry for residue %q at offset %d", e.Residue, e.Offset)
}

// Calculator computes peptide masses from the residue table plus a fixed set
// of static modifications. A Calculator is immutable after construction and
// safe for concurrent use.
type Calculator struct {
	anywhere [256]struct{ mono, average Mass }
	nterm    []Modification
	cterm    []Modification
}

// NewCalculator returns a Calculator with the given static modifications.
func NewCalculator(mods []Modification) *Calculator {
	c := &Calculator{}
	for _, m := range mods {
		switch m.Position {
		case PositionAnywhere:
			c.anywhere[m.Residue].mono += m.Mono
			c.anywhere[m.Residue].average += m.Average
		case PositionNTerm:
			c.nterm = append(c.nterm, m)
		case PositionCTerm:
			c.cterm = append(c.cterm, m)
		}
	}
	return c
}

// SequenceMass returns the monoisotopic and average mass of an amino acid
// sequence. Residue masses are accumulated strictly left to right in integer
// units, so repeated computation on the same input is bit-for-bit identical.
// It fails without a partial result if the sequence contains a symbol without
// a mass table entry.
func (c *Calculator) SequenceMass(seq string) (mono, average Mass, err error) {
	mono = WaterMono
	average = WaterAverage
	for i := 0; i < len(seq); i++ {
		aa := Lookup(seq[i])
		if aa == nil {
			return 0, 0, &ErrUnknownResidue{Residue: seq[i], Offset: i}
		}
		mono += aa.Mono + c.anywhere[seq[i]].mono
		average += aa.Average + c.anywhere[seq[i]].average
	}
	if len(seq) > 0 {
		for _, m := range c.nterm {
			if m.Residue == 0 || m.Residue == seq[0] {
				mono += m.Mono
				average += m.Average
			}
		}
		for _, m := range c.cterm {
			if m.Residue == 0 || m.Residue == seq[len(seq)-1] {
				mono += m.Mono
				average += m.Average
			}
		}
	}
	return mono, average, nil
}
