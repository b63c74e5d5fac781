package ingest

import (
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"gopkg.in/yaml.v2"
)

// Stats counts what happened during a run. All fields are safe for
// concurrent use by the digestion workers.
type Stats struct {
	ProteinsRead  atomic.Int64
	New           atomic.Int64
	Updated       atomic.Int64
	Skipped       atomic.Int64 // stored entry as new or newer
	Metadata      atomic.Int64 // sequence unchanged, metadata refreshed
	Merged        atomic.Int64 // absorbed upstream-merged entries
	Unprocessable atomic.Int64
	Failed        atomic.Int64 // lost to exhausted retries or conflicts

	// PeptidesBuffered counts candidates entering the partition buffers,
	// before the store-level dedup. It is an upper bound on the number of
	// peptides created, not a creation count.
	PeptidesBuffered atomic.Int64
	BatchesWritten   atomic.Int64
	BatchRetries     atomic.Int64
}

// Snapshot is a point-in-time copy of Stats, and the YAML shape of the
// run summary report.
type Snapshot struct {
	ProteinsRead  int64 `yaml:"proteins_read"`
	New           int64 `yaml:"new"`
	Updated       int64 `yaml:"updated"`
	Skipped       int64 `yaml:"skipped"`
	Metadata      int64 `yaml:"metadata_only"`
	Merged        int64 `yaml:"merged"`
	Unprocessable int64 `yaml:"unprocessable"`
	Failed        int64 `yaml:"failed"`

	PeptidesBuffered int64 `yaml:"peptides_buffered"`
	BatchesWritten   int64 `yaml:"batches_written"`
	BatchRetries     int64 `yaml:"batch_retries"`

	FailedAccessions []string `yaml:"failed_accessions,omitempty"`
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		ProteinsRead:     s.ProteinsRead.Load(),
		New:              s.New.Load(),
		Updated:          s.Updated.Load(),
		Skipped:          s.Skipped.Load(),
		Metadata:         s.Metadata.Load(),
		Merged:           s.Merged.Load(),
		Unprocessable:    s.Unprocessable.Load(),
		Failed:           s.Failed.Load(),
		PeptidesBuffered: s.PeptidesBuffered.Load(),
		BatchesWritten:   s.BatchesWritten.Load(),
		BatchRetries:     s.BatchRetries.Load(),
	}
}

// LogProgress writes one progress line
func (s *Stats) LogProgress(l logrus.FieldLogger) {
	snap := s.Snapshot()
	l.WithFields(logrus.Fields{
		"proteins":      humanize.Comma(snap.ProteinsRead),
		"new":           humanize.Comma(snap.New),
		"updated":       humanize.Comma(snap.Updated),
		"skipped":       humanize.Comma(snap.Skipped),
		"unprocessable": snap.Unprocessable,
		"failed":        snap.Failed,
		"buffered":      humanize.Comma(snap.PeptidesBuffered),
		"batches":       humanize.Comma(snap.BatchesWritten),
	}).Info("Ingestion progress")
}

// Summary renders the run summary as YAML
func (s *Stats) Summary(failedAccessions []string) ([]byte, error) {
	snap := s.Snapshot()
	snap.FailedAccessions = failedAccessions
	return yaml.Marshal(snap)
}
