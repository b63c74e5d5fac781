package partition

import (
	"math"

	"github.com/openproteomics/pepdb/proteomics/mass"
)

// Bootstrap builds a boundary table with count partitions covering every
// peptide the configured length range can produce, from minLen glycines up
// to maxLen tryptophans (plus water).
//
// Boundaries are spaced geometrically rather than linearly: real peptide
// masses cluster at the low end, so equal-width partitions would leave the
// high partitions nearly empty.
func Bootstrap(count, minLen, maxLen int) Table {
	lowest := Lowest(minLen)
	highest := Highest(maxLen)

	table := make(Table, 0, count)
	lo, hi := float64(lowest), float64(highest)
	ratio := math.Pow(hi/lo, 1/float64(count))
	lower := lowest
	for i := 0; i < count; i++ {
		upper := mass.Mass(lo * math.Pow(ratio, float64(i+1)))
		if i == count-1 || upper > highest {
			upper = highest + 1 // upper bound is exclusive
		}
		if upper <= lower {
			upper = lower + 1
		}
		table = append(table, Range{Lower: lower, Upper: upper})
		lower = upper
	}
	return table
}

// Lowest returns the smallest possible mass of a peptide with minLen
// residues.
func Lowest(minLen int) mass.Mass {
	return mass.Mass(minLen)*mass.Lightest().Mono + mass.WaterMono
}

// Highest returns the largest possible mass of a peptide with maxLen
// residues.
func Highest(maxLen int) mass.Mass {
	return mass.Mass(maxLen)*mass.Heaviest().Mono + mass.WaterMono
}
