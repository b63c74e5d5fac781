package reader

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenPlainFASTA(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proteins.fasta")
	require.NoError(t, os.WriteFile(path, []byte(fastaSample), 0o644))

	src, closer, err := Open(path)
	require.NoError(t, err)
	defer closer.Close()

	rec, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "P12345", rec.Accession)
}

func TestOpenGzippedUniProt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "uniprot_sprot.dat.gz")

	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(uniprotSample))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	src, closer, err := Open(path)
	require.NoError(t, err)
	defer closer.Close()

	rec, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "P12345", rec.Accession)

	rec, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, "A00001", rec.Accession)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proteins.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))

	_, _, err := Open(path)
	assert.Error(t, err)
}
