package ingest

import (
	"fmt"

	"github.com/openproteomics/pepdb/reader"
	"github.com/openproteomics/pepdb/store"
)

// ErrAccessionConflict is returned when a stored protein already claims the
// record's primary accession as one of its secondary accessions. The two
// entries cannot be reconciled automatically.
type ErrAccessionConflict struct {
	Accession string
	ClaimedBy string
}

func (e *ErrAccessionConflict) Error() string {
	return fmt.Sprintf("accession %s is already a secondary accession of stored protein %s",
		e.Accession, e.ClaimedBy)
}

// digestRecord digests a protein and converts the candidates to store
// peptides and associations. Peptides are deduplicated by sequence within
// the protein, keeping the lowest missed cleavage count.
func (ing *Ingestor) digestRecord(rec *reader.Record) ([]store.Peptide, []store.Association, error) {
	cands, err := ing.digester.Digest(rec.Sequence)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]int) // sequence -> index into peptides
	peptides := make([]store.Peptide, 0, len(cands))
	assocs := make([]store.Association, 0, len(cands))
	for _, c := range cands {
		if i, ok := seen[c.Sequence]; ok {
			if c.MissedCleavages < peptides[i].MissedCleavages {
				peptides[i].MissedCleavages = c.MissedCleavages
			}
		} else {
			mono, avg, err := ing.calc.SequenceMass(c.Sequence)
			if err != nil {
				return nil, nil, err
			}
			part, err := ing.table.Route(mono)
			if err != nil {
				return nil, nil, err
			}
			seen[c.Sequence] = len(peptides)
			peptides = append(peptides, store.Peptide{
				Sequence:        c.Sequence,
				Length:          len(c.Sequence),
				MonoMass:        mono,
				AverageMass:     avg,
				Partition:       part,
				MissedCleavages: c.MissedCleavages,
			})
		}
		assocs = append(assocs, store.Association{
			ProteinAccession: rec.Accession,
			PeptideSequence:  c.Sequence,
			StartOffset:      c.Start,
			MissedCleavages:  c.MissedCleavages,
		})
	}
	return peptides, assocs, nil
}

// resolveStored classifies the stored proteins matching a record's
// accessions. current is the stored protein with the same primary
// accession, if any. absorbed are stored proteins that upstream has since
// merged into this record; they match through the record's secondary
// accessions and must be deleted.
func resolveStored(rec *reader.Record, matches []*store.Protein) (current *store.Protein, absorbed []*store.Protein, err error) {
	for _, m := range matches {
		if m.Accession == rec.Accession {
			current = m
			continue
		}
		for _, sec := range m.SecondaryAccessions {
			if sec == rec.Accession {
				return nil, nil, &ErrAccessionConflict{
					Accession: rec.Accession,
					ClaimedBy: m.Accession,
				}
			}
		}
		absorbed = append(absorbed, m)
	}
	return current, absorbed, nil
}

// planProteinUpdate builds the transactional update for a record that
// matched stored proteins. storedAssocs are the current associations of the
// stored protein with the record's primary accession, nil if there is none.
func planProteinUpdate(rec *reader.Record, absorbed []*store.Protein,
	storedAssocs []store.Association,
	peptides []store.Peptide, assocs []store.Association) store.ProteinUpdate {

	u := store.ProteinUpdate{
		Protein:         recordProtein(rec),
		AddPeptides:     peptides,
		AddAssociations: assocs,
	}
	for _, a := range absorbed {
		u.DeleteAccessions = append(u.DeleteAccessions, a.Accession)
	}

	newSet := make(map[assocKey]struct{}, len(assocs))
	for _, a := range assocs {
		newSet[assocKey{a.ProteinAccession, a.PeptideSequence, a.StartOffset}] = struct{}{}
	}
	for _, a := range storedAssocs {
		if _, keep := newSet[assocKey{a.ProteinAccession, a.PeptideSequence, a.StartOffset}]; !keep {
			u.RemoveAssociations = append(u.RemoveAssociations, a)
		}
	}
	return u
}

func recordProtein(rec *reader.Record) store.Protein {
	return store.Protein{
		Accession:           rec.Accession,
		SecondaryAccessions: rec.SecondaryAccessions,
		EntryName:           rec.EntryName,
		Name:                rec.Name,
		Sequence:            rec.Sequence,
		TaxonomyID:          rec.TaxonomyID,
		ProteomeID:          rec.ProteomeID,
		Reviewed:            rec.Reviewed,
		SequenceVersion:     rec.SequenceVersion,
		UpdatedAt:           rec.UpdatedAt,
	}
}
