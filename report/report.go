// Package report writes run reports to a blob storage backend. The main
// artifact is the unprocessable protein log, written in UniProt flat text so
// that the entries can be fixed up and fed back into a later run.
package report

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PowerDNS/simpleblob"
	"github.com/sirupsen/logrus"

	"github.com/openproteomics/pepdb/config"
	"github.com/openproteomics/pepdb/reader"

	// Register storage backends
	_ "github.com/PowerDNS/simpleblob/backends/fs"
	_ "github.com/PowerDNS/simpleblob/backends/memory"
	_ "github.com/PowerDNS/simpleblob/backends/s3"
)

// Sink collects report artifacts for one run and stores them as blobs
// under a per-run prefix.
type Sink struct {
	st    simpleblob.Interface
	runID string
	log   logrus.FieldLogger

	mu             sync.Mutex
	unprocessable  bytes.Buffer
	nUnprocessable int
}

// New creates a Sink from config. An empty backend type disables reporting
// and returns a nil Sink, which all methods accept.
func New(ctx context.Context, conf config.Report) (*Sink, error) {
	if conf.Type == "" {
		return nil, nil
	}
	st, err := simpleblob.GetBackend(ctx, conf.Type, conf.Options)
	if err != nil {
		return nil, err
	}
	return &Sink{
		st:    st,
		runID: time.Now().UTC().Format("20060102-150405"),
		log:   logrus.WithField("component", "report"),
	}, nil
}

// RunID returns the per-run blob prefix
func (s *Sink) RunID() string {
	if s == nil {
		return ""
	}
	return s.runID
}

// LogUnprocessable records a protein that could not be digested
func (s *Sink) LogUnprocessable(rec *reader.Record, cause error) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := reader.WriteFlatText(&s.unprocessable, rec); err != nil {
		// bytes.Buffer writes cannot fail, but WriteFlatText can reject
		// a record without accession or sequence
		s.log.WithError(err).WithField("accession", rec.Accession).
			Warn("Could not serialize unprocessable protein")
		return
	}
	s.nUnprocessable++
	s.log.WithField("accession", rec.Accession).WithError(cause).
		Warn("Protein logged as unprocessable")
}

// StoreSummary stores the final run summary
func (s *Sink) StoreSummary(ctx context.Context, data []byte) error {
	if s == nil {
		return nil
	}
	return s.st.Store(ctx, s.runID+"/summary.yaml", data)
}

// Flush stores the unprocessable protein log, if any entries were collected
func (s *Sink) Flush(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	data := s.unprocessable.Bytes()
	n := s.nUnprocessable
	s.mu.Unlock()
	if n == 0 {
		return nil
	}
	name := fmt.Sprintf("%s/unprocessable.txt", s.runID)
	if err := s.st.Store(ctx, name, data); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"blob": name, "proteins": n}).
		Info("Stored unprocessable protein log")
	return nil
}
