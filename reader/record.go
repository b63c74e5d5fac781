// Package reader streams protein records from FASTA and UniProt flat text
// sources into a canonical in-memory representation.
package reader

import (
	"errors"
)

// Record is the canonical protein entry produced by all readers.
type Record struct {
	Accession           string
	SecondaryAccessions []string
	EntryName           string
	Name                string
	Sequence            string
	TaxonomyID          int
	ProteomeID          string
	Reviewed            bool
	SequenceVersion     int
	UpdatedAt           int64 // unix seconds of the source entry date
}

// Accessions returns the primary accession followed by all secondary ones.
func (r *Record) Accessions() []string {
	return append([]string{r.Accession}, r.SecondaryAccessions...)
}

// ErrMalformedRecord wraps structural errors in a single source entry. The
// entry is skipped and the stream continues; callers must not abort the whole
// stream on it.
var ErrMalformedRecord = errors.New("malformed record")

// Source streams records. Next returns io.EOF when the stream is exhausted
// and an error wrapping ErrMalformedRecord for a bad entry, after which it
// can be called again for the following entries.
type Source interface {
	Next() (*Record, error)
}
