package mass

// AminoAcid is one residue of the mass table.
type AminoAcid struct {
	Code        byte
	Name        string
	ThreeLetter string
	Mono        Mass
	Average     Mass
}

// residues lists every residue with a defined mass. This includes the 20
// standard amino acids plus Selenocysteine (U), Pyrrolysine (O) and the
// Isoleucine/Leucine wildcard (J), which is isobaric with both.
//
// The ambiguous codes B (Asp/Asn) and Z (Glu/Gln) have no entry: sequences
// containing them are expanded into their concrete residue combinations
// before mass computation. X never has a mass and marks a sequence
// unprocessable.
var residues = []AminoAcid{
	{'A', "Alanine", "Ala", ToMass(71.037113805), ToMass(71.0788)},
	{'C', "Cysteine", "Cys", ToMass(103.009184505), ToMass(103.1388)},
	{'D', "Aspartic acid", "Asp", ToMass(115.026943065), ToMass(115.0886)},
	{'E', "Glutamic acid", "Glu", ToMass(129.042593135), ToMass(129.1155)},
	{'F', "Phenylalanine", "Phe", ToMass(147.068413945), ToMass(147.1766)},
	{'G', "Glycine", "Gly", ToMass(57.021463735), ToMass(57.0519)},
	{'H', "Histidine", "His", ToMass(137.058911875), ToMass(137.1411)},
	{'I', "Isoleucine", "Ile", ToMass(113.084064015), ToMass(113.1594)},
	{'J', "Isoleucine or Leucine", "Xle", ToMass(113.084064015), ToMass(113.1594)},
	{'K', "Lysine", "Lys", ToMass(128.094963050), ToMass(128.1741)},
	{'L', "Leucine", "Leu", ToMass(113.084064015), ToMass(113.1594)},
	{'M', "Methionine", "Met", ToMass(131.040484645), ToMass(131.1926)},
	{'N', "Asparagine", "Asn", ToMass(114.042927470), ToMass(114.1038)},
	{'O', "Pyrrolysine", "Pyl", ToMass(237.147726925), ToMass(237.29816)},
	{'P', "Proline", "Pro", ToMass(97.052763875), ToMass(97.1167)},
	{'Q', "Glutamine", "Gln", ToMass(128.058577540), ToMass(128.1307)},
	{'R', "Arginine", "Arg", ToMass(156.101111050), ToMass(156.1875)},
	{'S', "Serine", "Ser", ToMass(87.032028435), ToMass(87.0782)},
	{'T', "Threonine", "Thr", ToMass(101.047678505), ToMass(101.1051)},
	{'U', "Selenocysteine", "Sec", ToMass(150.953633405), ToMass(150.0379)},
	{'V', "Valine", "Val", ToMass(99.068413945), ToMass(99.1326)},
	{'W', "Tryptophan", "Trp", ToMass(186.079312980), ToMass(186.2132)},
	{'Y', "Tyrosine", "Tyr", ToMass(163.063328575), ToMass(163.1760)},
}

var residueByCode [256]*AminoAcid

func init() {
	for i := range residues {
		residueByCode[residues[i].Code] = &residues[i]
	}
}

// Lookup returns the residue for a one letter code, or nil if the code has no
// mass table entry.
func Lookup(code byte) *AminoAcid {
	return residueByCode[code]
}

// KnownResidue reports whether code has a mass table entry.
func KnownResidue(code byte) bool {
	return residueByCode[code] != nil
}

// Heaviest returns the heaviest residue in the table. It bounds the maximum
// possible peptide mass for a configured peptide length.
func Heaviest() *AminoAcid {
	h := &residues[0]
	for i := range residues {
		if residues[i].Mono > h.Mono {
			h = &residues[i]
		}
	}
	return h
}

// Lightest returns the lightest residue in the table (Glycine).
func Lightest() *AminoAcid {
	l := &residues[0]
	for i := range residues {
		if residues[i].Mono < l.Mono {
			l = &residues[i]
		}
	}
	return l
}

// Ambiguous maps the replaceable ambiguous one letter codes to the concrete
// residues they may stand for. Some SwissProt and TrEMBL sequences denote
// Asp/Asn as B and Glu/Gln as Z; storing only the differentiated sequences
// keeps exact-mass queries precise.
var Ambiguous = map[byte][]byte{
	'B': {'D', 'N'},
	'Z': {'E', 'Q'},
}
