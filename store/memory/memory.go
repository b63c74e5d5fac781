// Package memory implements an in-memory store backend. It is the reference
// implementation of the store semantics and the backend used in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/openproteomics/pepdb/config"
	"github.com/openproteomics/pepdb/partition"
	"github.com/openproteomics/pepdb/store"
)

type assocKey struct {
	protein string
	peptide string
	offset  int
}

// Store is an in-memory store.Store implementation. One mutex guards all
// state, which also gives ApplyProteinUpdate its per-protein atomicity.
type Store struct {
	mu        sync.Mutex
	table     partition.Table
	proteins  map[string]*store.Protein // by primary accession
	secondary map[string]string         // secondary accession -> primary
	peptides  map[string]store.Peptide  // by sequence
	assocs    map[assocKey]store.Association
	byProtein map[string]map[assocKey]struct{}
	byPeptide map[string]map[assocKey]struct{}
}

// New creates an empty in-memory store
func New(table partition.Table) *Store {
	return &Store{
		table:     table,
		proteins:  make(map[string]*store.Protein),
		secondary: make(map[string]string),
		peptides:  make(map[string]store.Peptide),
		assocs:    make(map[assocKey]store.Association),
		byProtein: make(map[string]map[assocKey]struct{}),
		byPeptide: make(map[string]map[assocKey]struct{}),
	}
}

func init() {
	store.RegisterBackend("memory", func(conf config.Store, table partition.Table) (store.Store, error) {
		return New(table), nil
	})
}

func (s *Store) Partitions() partition.Table {
	return s.table
}

func (s *Store) GetProtein(ctx context.Context, accession string) (*store.Protein, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.lookup(accession)
	if p == nil {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ProteinsByAccessions(ctx context.Context, accessions []string) ([]*store.Protein, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	var out []*store.Protein
	for _, acc := range accessions {
		p := s.lookup(acc)
		if p == nil {
			continue
		}
		if _, dup := seen[p.Accession]; dup {
			continue
		}
		seen[p.Accession] = struct{}{}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) AssociationsForProtein(ctx context.Context, accession string) ([]store.Association, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.lookup(accession)
	if p == nil {
		return nil, store.ErrNotFound
	}
	var out []store.Association
	for key := range s.byProtein[p.Accession] {
		out = append(out, s.assocs[key])
	}
	return out, nil
}

func (s *Store) PutProtein(ctx context.Context, p store.Protein) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putProteinLocked(p)
	return nil
}

func (s *Store) WriteBatch(ctx context.Context, b store.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range b.Peptides {
		if p.Partition != b.Partition {
			return fmt.Errorf("peptide %q routed to partition %d in batch for partition %d",
				p.Sequence, p.Partition, b.Partition)
		}
		s.upsertPeptideLocked(p)
	}
	for _, a := range b.Associations {
		s.upsertAssociationLocked(a)
	}
	return nil
}

func (s *Store) ApplyProteinUpdate(ctx context.Context, u store.ProteinUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range u.DeleteAccessions {
		s.deleteProteinLocked(acc)
	}
	s.putProteinLocked(u.Protein)
	for _, p := range u.AddPeptides {
		s.upsertPeptideLocked(p)
	}
	for _, a := range u.AddAssociations {
		s.upsertAssociationLocked(a)
	}
	for _, a := range u.RemoveAssociations {
		s.removeAssociationLocked(a)
	}
	return nil
}

// lookup resolves a primary or secondary accession. Caller holds the lock.
func (s *Store) lookup(accession string) *store.Protein {
	if p, ok := s.proteins[accession]; ok {
		return p
	}
	if primary, ok := s.secondary[accession]; ok {
		return s.proteins[primary]
	}
	return nil
}

func (s *Store) putProteinLocked(p store.Protein) {
	if old, ok := s.proteins[p.Accession]; ok {
		for _, sec := range old.SecondaryAccessions {
			delete(s.secondary, sec)
		}
	}
	cp := p
	s.proteins[p.Accession] = &cp
	for _, sec := range p.SecondaryAccessions {
		s.secondary[sec] = p.Accession
	}
}

func (s *Store) deleteProteinLocked(accession string) {
	p, ok := s.proteins[accession]
	if !ok {
		return
	}
	for key := range s.byProtein[accession] {
		s.removeAssociationLocked(s.assocs[key])
	}
	for _, sec := range p.SecondaryAccessions {
		delete(s.secondary, sec)
	}
	delete(s.proteins, accession)
}

func (s *Store) upsertPeptideLocked(p store.Peptide) {
	if old, ok := s.peptides[p.Sequence]; ok {
		// The same sequence can arise from windows with different missed
		// cleavage counts. Keep the lowest.
		if old.MissedCleavages <= p.MissedCleavages {
			return
		}
	}
	s.peptides[p.Sequence] = p
}

func (s *Store) upsertAssociationLocked(a store.Association) {
	key := assocKey{protein: a.ProteinAccession, peptide: a.PeptideSequence, offset: a.StartOffset}
	s.assocs[key] = a
	if s.byProtein[a.ProteinAccession] == nil {
		s.byProtein[a.ProteinAccession] = make(map[assocKey]struct{})
	}
	s.byProtein[a.ProteinAccession][key] = struct{}{}
	if s.byPeptide[a.PeptideSequence] == nil {
		s.byPeptide[a.PeptideSequence] = make(map[assocKey]struct{})
	}
	s.byPeptide[a.PeptideSequence][key] = struct{}{}
}

func (s *Store) removeAssociationLocked(a store.Association) {
	key := assocKey{protein: a.ProteinAccession, peptide: a.PeptideSequence, offset: a.StartOffset}
	if _, ok := s.assocs[key]; !ok {
		return
	}
	delete(s.assocs, key)
	delete(s.byProtein[a.ProteinAccession], key)
	delete(s.byPeptide[a.PeptideSequence], key)
	if len(s.byPeptide[a.PeptideSequence]) == 0 {
		// Orphaned peptides do not survive the update that orphaned them
		delete(s.byPeptide, a.PeptideSequence)
		delete(s.peptides, a.PeptideSequence)
	}
}

// GetPeptide fetches a peptide by sequence. Used by tests and the status page.
func (s *Store) GetPeptide(sequence string) (store.Peptide, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peptides[sequence]
	return p, ok
}

// Counts returns the number of stored proteins, peptides and associations
func (s *Store) Counts() (proteins, peptides, associations int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.proteins), len(s.peptides), len(s.assocs)
}
