package enzyme

import (
	"fmt"
	"strings"

	"github.com/openproteomics/pepdb/proteomics/mass"
)

// Candidate is one peptide emitted by digestion, with its position in the
// protein sequence and the number of cleavage sites it spans uncut.
type Candidate struct {
	Sequence        string
	Start           int // offset of the first residue in the protein
	End             int // offset past the last residue
	MissedCleavages int
}

// UnprocessableError marks a protein whose sequence cannot be digested
// because it contains a symbol without a mass table entry. Such proteins are
// excluded from the run and surfaced for manual follow-up, never silently
// dropped.
type UnprocessableError struct {
	Residue byte
	Offset  int
}

func (e *UnprocessableError) Error() string {
	return fmt.Sprintf("unprocessable sequence: residue %q at offset %d", e.Residue, e.Offset)
}

// Digester applies a cleavage rule to protein sequences.
type Digester struct {
	Rule               Rule
	MaxMissedCleavages int
	MinLength          int
	MaxLength          int

	// EqualizeLeucine replaces Isoleucine and Leucine with their shared
	// isobaric code J, so peptides that differ only in I/L merge into one
	// row. Changing this requires a full re-ingestion.
	EqualizeLeucine bool
}

// Digest enumerates all candidate peptides of seq under the digester's rule,
// including missed cleavages. Candidates shorter than MinLength or longer
// than MaxLength are dropped at emission. A sequence shorter than MinLength
// yields no candidates and no error.
//
// Ambiguous residues B (Asp/Asn) and Z (Glu/Gln) are expanded into every
// concrete combination; only the differentiated sequences are emitted.
// Any other symbol without a mass table entry makes the whole protein
// unprocessable.
func (d *Digester) Digest(seq string) ([]Candidate, error) {
	seq = strings.ToUpper(seq)
	for i := 0; i < len(seq); i++ {
		if !mass.KnownResidue(seq[i]) {
			if _, ambiguous := mass.Ambiguous[seq[i]]; ambiguous {
				continue
			}
			return nil, &UnprocessableError{Residue: seq[i], Offset: i}
		}
	}

	// Single scan for cleavage sites. sites brackets the fragment offsets:
	// fragment f spans [sites[f], sites[f+1]).
	sites := []int{0}
	for pos := 1; pos < len(seq); pos++ {
		if d.Rule.CutsAt(seq, pos) {
			sites = append(sites, pos)
		}
	}
	if len(seq) > 0 {
		sites = append(sites, len(seq))
	}

	var out []Candidate
	for i := 0; i+1 < len(sites); i++ {
		for k := 0; k <= d.MaxMissedCleavages; k++ {
			j := i + k + 1
			if j >= len(sites) {
				break
			}
			start, end := sites[i], sites[j]
			length := end - start
			if length < d.MinLength {
				continue
			}
			if length > d.MaxLength {
				break // longer windows only grow further
			}
			out = append(out, d.emit(seq[start:end], start, end, k)...)
		}
	}
	return out, nil
}

func (d *Digester) emit(frag string, start, end, missed int) []Candidate {
	var sequences []string
	if containsAmbiguous(frag) {
		sequences = expandAmbiguous(frag)
	} else {
		sequences = []string{frag}
	}
	out := make([]Candidate, 0, len(sequences))
	for _, s := range sequences {
		if d.EqualizeLeucine {
			s = strings.Map(func(r rune) rune {
				if r == 'I' || r == 'L' {
					return 'J'
				}
				return r
			}, s)
		}
		out = append(out, Candidate{
			Sequence:        s,
			Start:           start,
			End:             end,
			MissedCleavages: missed,
		})
	}
	return out
}

func containsAmbiguous(seq string) bool {
	return strings.ContainsAny(seq, "BZ")
}

// expandAmbiguous returns every concrete sequence an ambiguous sequence can
// stand for (B -> D/N, Z -> E/Q).
func expandAmbiguous(seq string) []string {
	idx := strings.IndexAny(seq, "BZ")
	if idx < 0 {
		return []string{seq}
	}
	var out []string
	for _, concrete := range mass.Ambiguous[seq[idx]] {
		replaced := seq[:idx] + string(concrete) + seq[idx+1:]
		out = append(out, expandAmbiguous(replaced)...)
	}
	return out
}
