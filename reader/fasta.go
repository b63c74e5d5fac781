package reader

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// UniProt style FASTA header:
//
//	>sp|P12345|AATM_RABIT Aspartate aminotransferase OS=... OX=9986 SV=2
//
// The name runs from the entry name to the first KEY= attribute.
var fastaHeaderRegex = regexp.MustCompile(
	`^>(sp|tr)\|([^|\s]+)\|(\S+)(?:\s+(.*))?$`)

var fastaAttrRegex = regexp.MustCompile(`\b([A-Z]{2,})=`)

// FASTAReader reads FASTA entries. A malformed header makes only that entry
// fail; its sequence lines are discarded and the stream continues.
type FASTAReader struct {
	sc     *bufio.Scanner
	header string // pending header line
	seq    strings.Builder
	err    error
	eof    bool
}

func NewFASTA(r io.Reader) *FASTAReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &FASTAReader{sc: sc}
}

// Next implements Source.
func (f *FASTAReader) Next() (*Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	for {
		if f.eof {
			return f.finish()
		}
		if !f.sc.Scan() {
			f.eof = true
			if err := f.sc.Err(); err != nil {
				f.err = err
				return nil, err
			}
			continue
		}
		line := strings.TrimRight(f.sc.Text(), " \t\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			rec, err := f.flush()
			f.header = line
			if rec != nil || err != nil {
				return rec, err
			}
			continue
		}
		if f.header == "" {
			return nil, fmt.Errorf("%w: sequence data before first header", ErrMalformedRecord)
		}
		f.seq.WriteString(strings.ToUpper(line))
	}
}

func (f *FASTAReader) finish() (*Record, error) {
	rec, err := f.flush()
	if rec != nil || err != nil {
		return rec, err
	}
	return nil, io.EOF
}

// flush emits the pending entry, if any.
func (f *FASTAReader) flush() (*Record, error) {
	if f.header == "" {
		return nil, nil
	}
	header := f.header
	seq := f.seq.String()
	f.header = ""
	f.seq.Reset()

	rec, err := parseFASTAHeader(header)
	if err != nil {
		return nil, err
	}
	if seq == "" {
		return nil, fmt.Errorf("%w: entry %q has no sequence", ErrMalformedRecord, rec.Accession)
	}
	rec.Sequence = seq
	return rec, nil
}

func parseFASTAHeader(header string) (*Record, error) {
	m := fastaHeaderRegex.FindStringSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("%w: unparseable FASTA header %q", ErrMalformedRecord, header)
	}
	rec := &Record{
		Reviewed:  m[1] == "sp",
		Accession: m[2],
		EntryName: m[3],
	}
	rest := m[4]
	if rest == "" {
		return rec, nil
	}

	// The free-form name ends where the first KEY= attribute starts.
	if loc := fastaAttrRegex.FindStringIndex(rest); loc != nil {
		rec.Name = strings.TrimSpace(rest[:loc[0]])
	} else {
		rec.Name = strings.TrimSpace(rest)
	}
	for _, kv := range fastaAttrRegex.FindAllStringSubmatchIndex(rest, -1) {
		key := rest[kv[2]:kv[3]]
		value := rest[kv[1]:]
		if next := fastaAttrRegex.FindStringIndex(value); next != nil {
			value = value[:next[0]]
		}
		value = strings.TrimSpace(value)
		switch key {
		case "OX":
			id, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("%w: bad OX attribute %q", ErrMalformedRecord, value)
			}
			rec.TaxonomyID = id
		}
	}
	return rec, nil
}
