// Package tester implements a conformance test suite that all store backends
// must pass.
package tester

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openproteomics/pepdb/store"
)

// DoStoreTests runs the conformance suite against an empty store
func DoStoreTests(t *testing.T, s store.Store) {
	ctx := context.Background()
	table := s.Partitions()
	require.NotEmpty(t, table)

	// Unknown accession
	_, err := s.GetProtein(ctx, "NOPE")
	assert.ErrorIs(t, err, store.ErrNotFound)

	prot := store.Protein{
		Accession:           "P12345",
		SecondaryAccessions: []string{"Q99999"},
		EntryName:           "TEST_HUMAN",
		Name:                "Test protein",
		Sequence:            "PEPTIDEK",
		TaxonomyID:          9606,
		Reviewed:            true,
		UpdatedAt:           1000,
	}
	require.NoError(t, s.PutProtein(ctx, prot))

	// Lookup by primary and by secondary accession
	got, err := s.GetProtein(ctx, "P12345")
	require.NoError(t, err)
	assert.Equal(t, prot, *got)
	got, err = s.GetProtein(ctx, "Q99999")
	require.NoError(t, err)
	assert.Equal(t, "P12345", got.Accession)

	batch := store.Batch{
		Partition: 0,
		Peptides: []store.Peptide{
			{Sequence: "PEPTJDEK", Length: 8, MonoMass: 1, AverageMass: 2, Partition: 0, MissedCleavages: 0},
		},
		Associations: []store.Association{
			{ProteinAccession: "P12345", PeptideSequence: "PEPTJDEK", StartOffset: 0, MissedCleavages: 0},
		},
	}
	require.NoError(t, s.WriteBatch(ctx, batch))
	// Replaying the same batch must be a no-op
	require.NoError(t, s.WriteBatch(ctx, batch))

	assocs, err := s.AssociationsForProtein(ctx, "P12345")
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	assert.Equal(t, "PEPTJDEK", assocs[0].PeptideSequence)

	// ProteinsByAccessions deduplicates primary/secondary hits
	prots, err := s.ProteinsByAccessions(ctx, []string{"P12345", "Q99999", "NOPE"})
	require.NoError(t, err)
	require.Len(t, prots, 1)

	// Update: new sequence replaces the associations and drops the orphan
	update := store.ProteinUpdate{
		Protein: store.Protein{
			Accession: "P12345",
			EntryName: "TEST_HUMAN",
			Sequence:  "ELVISK",
			UpdatedAt: 2000,
		},
		AddPeptides: []store.Peptide{
			{Sequence: "ELVJSK", Length: 6, Partition: 0},
		},
		AddAssociations: []store.Association{
			{ProteinAccession: "P12345", PeptideSequence: "ELVJSK", StartOffset: 0},
		},
		RemoveAssociations: assocs,
	}
	require.NoError(t, s.ApplyProteinUpdate(ctx, update))

	got, err = s.GetProtein(ctx, "P12345")
	require.NoError(t, err)
	assert.Equal(t, "ELVISK", got.Sequence)
	assert.EqualValues(t, 2000, got.UpdatedAt)
	assocs, err = s.AssociationsForProtein(ctx, "P12345")
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	assert.Equal(t, "ELVJSK", assocs[0].PeptideSequence)

	// Merge: a second protein gets absorbed, its accession deleted
	other := store.Protein{Accession: "P67890", Sequence: "ELVISK", UpdatedAt: 1500}
	require.NoError(t, s.PutProtein(ctx, other))
	merge := store.ProteinUpdate{
		Protein: store.Protein{
			Accession:           "P12345",
			SecondaryAccessions: []string{"P67890", "Q99999"},
			Sequence:            "ELVISK",
			UpdatedAt:           3000,
		},
		DeleteAccessions: []string{"P67890"},
	}
	require.NoError(t, s.ApplyProteinUpdate(ctx, merge))
	_, err = s.GetProtein(ctx, "P67890")
	require.NoError(t, err) // now a secondary accession of P12345
	prots, err = s.ProteinsByAccessions(ctx, []string{"P12345", "P67890"})
	require.NoError(t, err)
	require.Len(t, prots, 1)
	assert.Equal(t, "P12345", prots[0].Accession)
}
