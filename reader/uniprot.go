package reader

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// lineKind enumerates the UniProt flat text line types the reader handles.
// Unknown tags map to lineIgnored; open-ended string dispatch is avoided on
// purpose.
type lineKind int

const (
	lineID lineKind = iota
	lineAC
	lineDT
	lineDE
	lineOX
	lineDR
	lineSQ
	lineSeq // sequence block continuation, starts with two spaces
	lineEnd // entry terminator "//"
	lineIgnored
)

func classifyLine(line string) lineKind {
	if strings.HasPrefix(line, "//") {
		return lineEnd
	}
	if strings.HasPrefix(line, "  ") {
		return lineSeq
	}
	if len(line) < 2 {
		return lineIgnored
	}
	switch line[:2] {
	case "ID":
		return lineID
	case "AC":
		return lineAC
	case "DT":
		return lineDT
	case "DE":
		return lineDE
	case "OX":
		return lineOX
	case "DR":
		return lineDR
	case "SQ":
		return lineSQ
	default:
		return lineIgnored
	}
}

var (
	taxonomyIDRegex  = regexp.MustCompile(`=(\d+)`)
	seqVersionRegex  = regexp.MustCompile(`sequence version (\d+)`)
	recNameRegex     = regexp.MustCompile(`Full=(.*?)(\{|;|$)`)
	multiSpacesRegex = regexp.MustCompile(`\s{2,}`)
	whitespaceRegex  = regexp.MustCompile(`\s`)
)

// uniprotEntry accumulates one entry while its lines are read.
type uniprotEntry struct {
	entryName  string
	name       string
	reviewed   bool
	accessions []string
	taxonomyID int
	proteomeID string
	seqVersion int
	sequence   strings.Builder
	updated    string // DT date like 01-JAN-1970
	seen       bool   // any line consumed since last terminator
}

// lineHandlers has one handler per line kind.
var lineHandlers = map[lineKind]func(e *uniprotEntry, content string){
	lineID: func(e *uniprotEntry, content string) {
		parts := multiSpacesRegex.Split(content, -1)
		e.entryName = parts[0]
		if len(parts) > 1 {
			e.reviewed = parts[1] == "Reviewed;"
		}
	},
	lineAC: func(e *uniprotEntry, content string) {
		for _, acc := range strings.Fields(content) {
			e.accessions = append(e.accessions, strings.TrimSuffix(acc, ";"))
		}
	},
	lineDT: func(e *uniprotEntry, content string) {
		if len(content) >= 11 {
			e.updated = content[:11]
		}
		if m := seqVersionRegex.FindStringSubmatch(content); m != nil {
			e.seqVersion, _ = strconv.Atoi(m[1])
		}
	},
	lineDE: func(e *uniprotEntry, content string) {
		if e.name != "" {
			return
		}
		if strings.HasPrefix(content, "RecName") || strings.HasPrefix(content, "AltName") ||
			strings.HasPrefix(content, "Sub") {
			if m := recNameRegex.FindStringSubmatch(content); m != nil {
				e.name = strings.TrimSpace(m[1])
			}
		}
	},
	lineOX: func(e *uniprotEntry, content string) {
		if m := taxonomyIDRegex.FindStringSubmatch(content); m != nil {
			e.taxonomyID, _ = strconv.Atoi(m[1])
		}
	},
	lineDR: func(e *uniprotEntry, content string) {
		if !strings.HasPrefix(content, "Proteomes;") {
			return
		}
		fields := strings.Split(content, ";")
		if len(fields) > 1 {
			e.proteomeID = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(fields[1]), ";"))
		}
	},
	lineSQ: func(e *uniprotEntry, content string) {
		// SQ header carries only totals, nothing we need
	},
}

// UniProtReader reads UniProt/EMBL flat text entries. A structurally bad
// entry is reported as malformed at its terminator and the stream continues.
type UniProtReader struct {
	sc    *bufio.Scanner
	entry uniprotEntry
	err   error
}

func NewUniProt(r io.Reader) *UniProtReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &UniProtReader{sc: sc}
}

// Next implements Source.
func (u *UniProtReader) Next() (*Record, error) {
	if u.err != nil {
		return nil, u.err
	}
	for u.sc.Scan() {
		line := strings.TrimRight(u.sc.Text(), " \t\r")
		kind := classifyLine(line)
		switch kind {
		case lineEnd:
			rec, err := u.entry.finish()
			u.entry = uniprotEntry{}
			if rec != nil || err != nil {
				return rec, err
			}
		case lineSeq:
			u.entry.seen = true
			u.entry.sequence.WriteString(
				strings.ToUpper(whitespaceRegex.ReplaceAllString(line, "")))
		case lineIgnored:
			// tolerated, the grammar has many line types we do not need
		default:
			u.entry.seen = true
			content := ""
			if len(line) > 5 {
				content = line[5:]
			}
			lineHandlers[kind](&u.entry, content)
		}
	}
	if err := u.sc.Err(); err != nil {
		u.err = err
		return nil, err
	}
	u.err = io.EOF
	if u.entry.seen {
		// Entry without terminator at EOF
		return nil, fmt.Errorf("%w: truncated entry %q at end of stream",
			ErrMalformedRecord, strings.Join(u.entry.accessions, ","))
	}
	return nil, io.EOF
}

func (e *uniprotEntry) finish() (*Record, error) {
	if !e.seen {
		return nil, nil // stray terminator
	}
	if len(e.accessions) == 0 {
		return nil, fmt.Errorf("%w: entry %q has no accessions", ErrMalformedRecord, e.entryName)
	}
	if e.sequence.Len() == 0 {
		return nil, fmt.Errorf("%w: entry %q has no sequence", ErrMalformedRecord, e.accessions[0])
	}
	return &Record{
		Accession:           e.accessions[0],
		SecondaryAccessions: e.accessions[1:],
		EntryName:           e.entryName,
		Name:                e.name,
		Sequence:            e.sequence.String(),
		TaxonomyID:          e.taxonomyID,
		ProteomeID:          e.proteomeID,
		Reviewed:            e.reviewed,
		SequenceVersion:     e.seqVersion,
		UpdatedAt:           parseEntryDate(e.updated),
	}, nil
}

var monthByName = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// parseEntryDate parses a DT date like "28-JUN-2011" without being locale
// dependent. An unparseable or absent date maps to the epoch.
func parseEntryDate(s string) int64 {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return 0
	}
	day, err1 := strconv.Atoi(parts[0])
	month, ok := monthByName[parts[1]]
	year, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || !ok {
		return 0
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix()
}

// formatEntryDate is the inverse of parseEntryDate.
func formatEntryDate(unix int64) string {
	t := time.Unix(unix, 0).UTC()
	names := [...]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
		"JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}
	return fmt.Sprintf("%02d-%s-%d", t.Day(), names[t.Month()-1], t.Year())
}

const (
	flatTextAccessionsPerLine = 8
	flatTextResiduesPerGroup  = 10
	flatTextGroupsPerLine     = 6
)

// WriteFlatText writes rec as a UniProt flat text entry. The unprocessable
// protein log uses this format so its entries can be fed straight back into
// a follow-up ingestion run.
func WriteFlatText(w io.Writer, rec *Record) error {
	var b strings.Builder
	status := "Unreviewed"
	if rec.Reviewed {
		status = "Reviewed"
	}
	fmt.Fprintf(&b, "ID   %s    %s;    %d\n", rec.EntryName, status, len(rec.Sequence))

	accessions := rec.Accessions()
	for start := 0; start < len(accessions); start += flatTextAccessionsPerLine {
		end := start + flatTextAccessionsPerLine
		if end > len(accessions) {
			end = len(accessions)
		}
		b.WriteString("AC  ")
		for _, acc := range accessions[start:end] {
			fmt.Fprintf(&b, " %s;", acc)
		}
		b.WriteString("\n")
	}

	if rec.SequenceVersion > 0 {
		fmt.Fprintf(&b, "DT   %s, sequence version %d.\n",
			formatEntryDate(rec.UpdatedAt), rec.SequenceVersion)
	} else {
		fmt.Fprintf(&b, "DT   %s\n", formatEntryDate(rec.UpdatedAt))
	}
	if rec.Name != "" {
		fmt.Fprintf(&b, "DE   RecName: Full=%s;\n", rec.Name)
	}
	if rec.TaxonomyID != 0 {
		fmt.Fprintf(&b, "OX   NCBI_TaxID=%d;\n", rec.TaxonomyID)
	}
	if rec.ProteomeID != "" {
		fmt.Fprintf(&b, "DR   Proteomes; %s;\n", rec.ProteomeID)
	}
	b.WriteString("SQ   SEQUENCE\n")

	chunk := flatTextResiduesPerGroup * flatTextGroupsPerLine
	for start := 0; start < len(rec.Sequence); start += chunk {
		end := start + chunk
		if end > len(rec.Sequence) {
			end = len(rec.Sequence)
		}
		b.WriteString("     ")
		for i, r := range rec.Sequence[start:end] {
			b.WriteRune(r)
			if (i+1)%flatTextResiduesPerGroup == 0 {
				b.WriteByte(' ')
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("//\n")

	_, err := io.WriteString(w, b.String())
	return err
}
