package ingest

import (
	"sync"

	"github.com/samber/lo"

	"github.com/openproteomics/pepdb/store"
)

type assocKey struct {
	protein string
	peptide string
	offset  int
}

// shard buffers the pending writes of one partition. It remembers which
// proteins contributed since the last flush, so that a permanently failed
// batch can name the affected accessions.
type shard struct {
	mu         sync.Mutex
	peptides   map[string]store.Peptide
	assocs     map[assocKey]store.Association
	accessions map[string]struct{}
}

// Pending is a drained shard ready to be written
type Pending struct {
	Batch      store.Batch
	Accessions []string
}

// Buffer accumulates digestion output per partition and deduplicates
// peptides across proteins. A shard signals readiness once it holds at
// least limit distinct peptides.
type Buffer struct {
	shards []shard
	limit  int
}

func NewBuffer(partitions, limit int) *Buffer {
	b := &Buffer{
		shards: make([]shard, partitions),
		limit:  limit,
	}
	for i := range b.shards {
		b.shards[i].reset()
	}
	return b
}

func (s *shard) reset() {
	s.peptides = make(map[string]store.Peptide)
	s.assocs = make(map[assocKey]store.Association)
	s.accessions = make(map[string]struct{})
}

// Add merges the digestion output of one protein for one partition into the
// buffer. All peptides and associations must belong to the given partition.
// If the shard reached its limit, it is drained and returned for writing.
func (b *Buffer) Add(part int, accession string, peptides []store.Peptide, assocs []store.Association) *Pending {
	s := &b.shards[part]
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range peptides {
		if old, ok := s.peptides[p.Sequence]; ok && old.MissedCleavages <= p.MissedCleavages {
			continue
		}
		s.peptides[p.Sequence] = p
	}
	for _, a := range assocs {
		s.assocs[assocKey{a.ProteinAccession, a.PeptideSequence, a.StartOffset}] = a
	}
	s.accessions[accession] = struct{}{}

	if len(s.peptides) < b.limit {
		return nil
	}
	return s.drainLocked(part)
}

// Drain empties one shard regardless of its fill level. Returns nil when
// the shard holds nothing.
func (b *Buffer) Drain(part int) *Pending {
	s := &b.shards[part]
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.peptides) == 0 && len(s.assocs) == 0 {
		return nil
	}
	return s.drainLocked(part)
}

// DrainAll empties all shards for the final flush
func (b *Buffer) DrainAll() []*Pending {
	var out []*Pending
	for part := range b.shards {
		if p := b.Drain(part); p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (s *shard) drainLocked(part int) *Pending {
	p := &Pending{
		Batch: store.Batch{
			Partition:    part,
			Peptides:     lo.Values(s.peptides),
			Associations: lo.Values(s.assocs),
		},
		Accessions: lo.Keys(s.accessions),
	}
	s.reset()
	return p
}
