package reader

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Open opens a protein source file and returns the Source matching its
// format. Gzip compression is detected from the magic bytes, not the
// extension. The caller must Close the returned closer when done.
//
// Formats by extension (after stripping .gz):
//
//	.fasta .fa .faa        FASTA
//	.txt .dat .embl        UniProt flat text
func Open(path string) (Source, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open protein source")
	}

	br := bufio.NewReaderSize(f, 1<<20)
	var r io.Reader = br
	closer := io.Closer(f)
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			_ = f.Close()
			return nil, nil, errors.Wrap(err, "gzip protein source")
		}
		r = gz
		closer = multiCloser{gz, f}
	}

	name := strings.TrimSuffix(path, ".gz")
	switch filepath.Ext(name) {
	case ".fasta", ".fa", ".faa":
		return NewFASTA(r), closer, nil
	case ".txt", ".dat", ".embl":
		return NewUniProt(r), closer, nil
	default:
		_ = closer.Close()
		return nil, nil, errors.Errorf("cannot determine format of %q", path)
	}
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
