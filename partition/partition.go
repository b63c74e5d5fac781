// Package partition routes peptides to mass-range storage partitions.
package partition

import (
	"fmt"
	"sort"

	"github.com/openproteomics/pepdb/proteomics/mass"
)

// Range is one partition's mass range, half-open on the upper edge: a mass
// exactly equal to Lower belongs to this partition, a mass equal to Upper to
// the next one.
type Range struct {
	Lower mass.Mass `yaml:"lower"`
	Upper mass.Mass `yaml:"upper"`
}

func (r Range) Contains(m mass.Mass) bool {
	return m >= r.Lower && m < r.Upper
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Lower, r.Upper)
}

// Table is the ordered, immutable set of partition ranges. It is fixed when
// the database is initialised; changing the partition count afterwards
// requires a full re-ingestion.
type Table []Range

// ErrNoPartition signals a mass outside every configured range. This is a
// configuration defect (the boundary table does not cover the configured
// peptide length range) and must abort ingestion rather than drop peptides.
type ErrNoPartition struct {
	Mass mass.Mass
}

func (e *ErrNoPartition) Error() string {
	return fmt.Sprintf("no partition covers mass %s", e.Mass)
}

// Route returns the index of the partition whose range contains m.
// Routing is a pure function of the mass: the same mass maps to the same
// partition on every run and every process.
func (t Table) Route(m mass.Mass) (int, error) {
	idx := sort.Search(len(t), func(i int) bool { return t[i].Upper > m })
	if idx >= len(t) || !t[idx].Contains(m) {
		return 0, &ErrNoPartition{Mass: m}
	}
	return idx, nil
}

// Validate checks that the table is non-empty, ordered, gap-free and covers
// at least [lowest, highest].
func (t Table) Validate(lowest, highest mass.Mass) error {
	if len(t) == 0 {
		return fmt.Errorf("partition table is empty")
	}
	for i, r := range t {
		if r.Upper <= r.Lower {
			return fmt.Errorf("partition %d: empty range %s", i, r)
		}
		if i > 0 && t[i-1].Upper != r.Lower {
			return fmt.Errorf("partition %d: gap between %s and %s", i, t[i-1], r)
		}
	}
	if t[0].Lower > lowest {
		return fmt.Errorf("partition table starts at %s, above lowest possible mass %s",
			t[0].Lower, lowest)
	}
	if t[len(t)-1].Upper <= highest {
		return fmt.Errorf("partition table ends at %s, below highest possible mass %s",
			t[len(t)-1].Upper, highest)
	}
	return nil
}
