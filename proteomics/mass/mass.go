// Package mass computes exact peptide masses.
//
// Masses are handled as integers scaled by ConvertFactor (1 Da = 1e9 units),
// so that sums are deterministic and partition boundary comparisons are free
// of floating-point ambiguity. Only the outer presentation layers convert
// back to Dalton floats.
package mass

import "fmt"

// ConvertFactor scales Dalton to the internal integer representation.
const ConvertFactor = 1_000_000_000

// Mass is a monoisotopic or average mass in scaled integer units.
type Mass int64

// ToMass converts a Dalton float into the internal integer representation.
func ToMass(dalton float64) Mass {
	return Mass(dalton * ConvertFactor)
}

// Dalton converts the internal integer representation back to a float.
func (m Mass) Dalton() float64 {
	return float64(m) / ConvertFactor
}

func (m Mass) String() string {
	return fmt.Sprintf("%.9f", m.Dalton())
}

// Water is the mass of one water molecule, added once per peptide to account
// for the terminal hydroxyl and hydrogen gained upon hydrolysis.
var (
	WaterMono    = ToMass(18.010564700)
	WaterAverage = ToMass(18.015)
)
