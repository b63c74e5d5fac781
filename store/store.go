// Package store defines the peptide store interface that all backends
// implement, plus the backend registry.
package store

import (
	"context"
	"fmt"

	"github.com/openproteomics/pepdb/config"
	"github.com/openproteomics/pepdb/partition"
	"github.com/openproteomics/pepdb/proteomics/mass"
)

// Protein is a stored protein record
type Protein struct {
	Accession           string
	SecondaryAccessions []string
	EntryName           string
	Name                string
	Sequence            string
	TaxonomyID          int
	ProteomeID          string
	Reviewed            bool
	SequenceVersion     int
	UpdatedAt           int64 // Unix seconds of the upstream entry date
}

// Peptide is a digestion product keyed by its (equalized) sequence
type Peptide struct {
	Sequence        string
	Length          int
	MonoMass        mass.Mass
	AverageMass     mass.Mass
	Partition       int
	MissedCleavages int
}

// Association links a protein to one occurrence of a peptide in it
type Association struct {
	ProteinAccession string
	PeptideSequence  string
	StartOffset      int
	MissedCleavages  int
}

// Batch is one idempotent partition-scoped write. All peptides and the
// peptide side of all associations belong to Batch.Partition.
type Batch struct {
	Partition    int
	Peptides     []Peptide
	Associations []Association
}

// ProteinUpdate describes an all-or-nothing change to one protein and its
// peptide associations. The store removes peptides left without any
// association after the update.
type ProteinUpdate struct {
	Protein            Protein
	DeleteAccessions   []string // stale primary accessions merged into this protein
	AddPeptides        []Peptide
	AddAssociations    []Association
	RemoveAssociations []Association
}

// Store is the interface implemented by peptide store backends.
//
// WriteBatch and PutProtein are idempotent upserts: replaying a batch after
// a partial failure must converge to the same state. ApplyProteinUpdate is
// transactional per protein.
type Store interface {
	// Partitions returns the mass boundary table the store was opened with
	Partitions() partition.Table

	// GetProtein fetches one protein by primary or secondary accession.
	// Returns ErrNotFound if no protein matches.
	GetProtein(ctx context.Context, accession string) (*Protein, error)

	// ProteinsByAccessions fetches all distinct proteins matching any of the
	// given primary or secondary accessions.
	ProteinsByAccessions(ctx context.Context, accessions []string) ([]*Protein, error)

	// AssociationsForProtein lists the stored peptide associations of a protein
	AssociationsForProtein(ctx context.Context, accession string) ([]Association, error)

	// PutProtein upserts a protein record without touching peptides
	PutProtein(ctx context.Context, p Protein) error

	// WriteBatch upserts a partition batch of peptides and associations
	WriteBatch(ctx context.Context, b Batch) error

	// ApplyProteinUpdate applies a protein update atomically
	ApplyProteinUpdate(ctx context.Context, u ProteinUpdate) error
}

// ErrNotFound is returned when a protein does not exist
var ErrNotFound = fmt.Errorf("protein not found")

// Constructor is the constructor signature of a store backend
type Constructor func(conf config.Store, table partition.Table) (Store, error)

var backends = make(map[string]Constructor)

// RegisterBackend registers a storage backend plugin constructor by type name
func RegisterBackend(typeName string, constructor Constructor) {
	backends[typeName] = constructor
}

// GetBackend returns a Store implementation based on the config
func GetBackend(conf config.Store, table partition.Table) (Store, error) {
	constructor, exists := backends[conf.Type]
	if !exists {
		return nil, fmt.Errorf("store backend of type %q not found", conf.Type)
	}
	return constructor(conf, table)
}
