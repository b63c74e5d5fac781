package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openproteomics/pepdb/store"
)

func pep(seq string, part, missed int) store.Peptide {
	return store.Peptide{Sequence: seq, Length: len(seq), Partition: part, MissedCleavages: missed}
}

func TestBuffer_FlushAtLimit(t *testing.T) {
	b := NewBuffer(2, 2)

	p := b.Add(0, "P00001", []store.Peptide{pep("AAAAA", 0, 0)}, nil)
	assert.Nil(t, p)
	p = b.Add(0, "P00002", []store.Peptide{pep("CCCCC", 0, 0)}, nil)
	require.NotNil(t, p)
	assert.Equal(t, 0, p.Batch.Partition)
	assert.Len(t, p.Batch.Peptides, 2)
	assert.ElementsMatch(t, []string{"P00001", "P00002"}, p.Accessions)

	// The shard is empty again
	assert.Nil(t, b.Drain(0))
}

func TestBuffer_DedupAcrossProteins(t *testing.T) {
	b := NewBuffer(1, 100)

	b.Add(0, "P00001", []store.Peptide{pep("SHARED", 0, 2)}, nil)
	b.Add(0, "P00002", []store.Peptide{pep("SHARED", 0, 0)}, nil)
	b.Add(0, "P00003", []store.Peptide{pep("SHARED", 0, 1)}, nil)

	p := b.Drain(0)
	require.NotNil(t, p)
	require.Len(t, p.Batch.Peptides, 1)
	assert.Equal(t, 0, p.Batch.Peptides[0].MissedCleavages)
	assert.Len(t, p.Accessions, 3)
}

func TestBuffer_AssociationsKept(t *testing.T) {
	b := NewBuffer(1, 100)
	assocs := []store.Association{
		{ProteinAccession: "P00001", PeptideSequence: "SHARED", StartOffset: 0},
		{ProteinAccession: "P00001", PeptideSequence: "SHARED", StartOffset: 10},
	}
	b.Add(0, "P00001", []store.Peptide{pep("SHARED", 0, 0)}, assocs)
	// Same protein seen again, identical associations merge away
	b.Add(0, "P00001", []store.Peptide{pep("SHARED", 0, 0)}, assocs)

	p := b.Drain(0)
	require.NotNil(t, p)
	assert.Len(t, p.Batch.Associations, 2)
}

func TestBuffer_DrainAll(t *testing.T) {
	b := NewBuffer(3, 100)
	b.Add(0, "P00001", []store.Peptide{pep("AAAAA", 0, 0)}, nil)
	b.Add(2, "P00001", []store.Peptide{pep("WWWWW", 2, 0)}, nil)

	all := b.DrainAll()
	require.Len(t, all, 2)
	assert.Equal(t, 0, all[0].Batch.Partition)
	assert.Equal(t, 2, all[1].Batch.Partition)
	assert.Empty(t, b.DrainAll())
}
