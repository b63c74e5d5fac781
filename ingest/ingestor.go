// Package ingest implements the concurrent ingestion pipeline: proteins are
// read from a source, digested in parallel, deduplicated per mass partition
// and written to the store in idempotent batches.
package ingest

import (
	"context"
	"io"
	"time"

	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/openproteomics/pepdb/config"
	"github.com/openproteomics/pepdb/partition"
	"github.com/openproteomics/pepdb/proteomics/enzyme"
	"github.com/openproteomics/pepdb/proteomics/mass"
	"github.com/openproteomics/pepdb/reader"
	"github.com/openproteomics/pepdb/report"
	"github.com/openproteomics/pepdb/status/healthtracker"
	"github.com/openproteomics/pepdb/store"
	"github.com/openproteomics/pepdb/utils"
)

// Ingestor coordinates one ingestion run
type Ingestor struct {
	c        config.Config
	st       store.Store
	sink     *report.Sink
	digester *enzyme.Digester
	calc     *mass.Calculator
	table    partition.Table

	buffer   *Buffer
	stats    Stats
	failures *failureSet
	health   *healthtracker.Tracker
	log      logrus.FieldLogger
}

// New creates an Ingestor. The store decides the partition table; it must
// have been opened with the same boundaries across runs.
func New(c config.Config, st store.Store, sink *report.Sink) (*Ingestor, error) {
	digester, err := c.Digester()
	if err != nil {
		return nil, err
	}
	calc, err := c.MassCalculator()
	if err != nil {
		return nil, err
	}
	table := st.Partitions()
	if err := table.Validate(
		partition.Lowest(c.Enzyme.MinPeptideLength),
		partition.Highest(c.Enzyme.MaxPeptideLength)); err != nil {
		return nil, errors.Wrap(err, "store partition table")
	}
	return &Ingestor{
		c:        c,
		st:       st,
		sink:     sink,
		digester: digester,
		calc:     calc,
		table:    table,
		buffer:   NewBuffer(len(table), c.BatchSize),
		failures: newFailureSet(),
		health:   healthtracker.New(healthtracker.DefaultConfig, "ingest", "write to the peptide store"),
		log:      logrus.WithField("component", "ingest"),
	}, nil
}

// Stats exposes the run counters, for the status page and tests
func (ing *Ingestor) Stats() *Stats {
	return &ing.stats
}

// FailedAccessions lists proteins lost to permanent write failures
func (ing *Ingestor) FailedAccessions() []string {
	return ing.failures.list()
}

// Run ingests all records from src. It returns once the source is
// exhausted and all buffers are flushed, or when the context is canceled.
// Permanent write failures do not abort the run, they are collected and
// reported at the end.
func (ing *Ingestor) Run(ctx context.Context, src reader.Source) error {
	start := time.Now()
	records := make(chan *reader.Record, 3*ing.c.Workers)

	statsCtx, stopStats := context.WithCancel(ctx)
	defer stopStats()
	go ing.logStatsPeriodically(statsCtx)

	// The group context is canceled the moment Wait returns, also on a
	// clean run. The final flush still needs a live context, so keep the
	// caller's.
	runCtx := ctx
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(records)
		return ing.produce(ctx, src, records)
	})
	for i := 0; i < ing.c.Workers; i++ {
		eg.Go(func() error {
			return ing.work(ctx, records)
		})
	}
	err := eg.Wait()

	// Final flush of everything below the batch threshold. On cancellation
	// the buffers are dropped, the batches are replayable in the next run.
	if err == nil {
		for _, p := range ing.buffer.DrainAll() {
			ing.writeBatch(runCtx, p)
		}
	}

	if ferr := ing.finishReport(); ferr != nil {
		ing.log.WithError(ferr).Warn("Could not store run report")
	}

	snap := ing.stats.Snapshot()
	ing.log.WithFields(logrus.Fields{
		"proteins": snap.ProteinsRead,
		"failed":   snap.Failed,
		"time":     utils.TimeDiff(time.Now(), start),
	}).Info("Ingestion run finished")
	return err
}

func (ing *Ingestor) produce(ctx context.Context, src reader.Source, records chan<- *reader.Record) error {
	for {
		rec, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, reader.ErrMalformedRecord) {
				ing.log.WithError(err).Warn("Skipping malformed record")
				continue
			}
			return errors.Wrap(err, "read source")
		}
		select {
		case records <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (ing *Ingestor) work(ctx context.Context, records <-chan *reader.Record) error {
	for rec := range records {
		if utils.IsCanceled(ctx) {
			return ctx.Err()
		}
		if err := ing.processRecord(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// processRecord handles one protein. Almost all errors are terminal for the
// protein only; a routing failure is returned and aborts the run, because it
// means the partition table does not cover the configured mass range.
func (ing *Ingestor) processRecord(ctx context.Context, rec *reader.Record) error {
	ing.stats.ProteinsRead.Inc()
	log := ing.log.WithField("accession", rec.Accession)

	matches, err := ing.st.ProteinsByAccessions(ctx, rec.Accessions())
	if err != nil {
		log.WithError(err).Error("Store lookup failed, protein lost")
		ing.markFailed(rec.Accession)
		return nil
	}
	current, absorbed, err := resolveStored(rec, matches)
	if err != nil {
		log.WithError(err).Error("Cannot reconcile accessions, protein lost")
		ing.markFailed(rec.Accession)
		return nil
	}

	if current != nil && len(absorbed) == 0 {
		// A record without an entry date (FASTA input) is never considered stale
		stale := rec.UpdatedAt > 0 && current.UpdatedAt >= rec.UpdatedAt
		if stale || current.Sequence == rec.Sequence {
			stored, err := ing.st.AssociationsForProtein(ctx, current.Accession)
			if err != nil {
				log.WithError(err).Error("Association lookup failed, protein lost")
				ing.markFailed(rec.Accession)
				return nil
			}
			switch {
			case len(stored) == 0:
				// The protein row exists but its peptide batches never made
				// it to the store, the run that wrote it failed or was
				// canceled. Digest again and restore them below.
			case stale:
				ing.stats.Skipped.Inc()
				metricProteins.WithLabelValues("skipped").Inc()
				return nil
			default:
				// Only metadata changed, the peptides are still valid
				if err := ing.st.PutProtein(ctx, recordProtein(rec)); err != nil {
					log.WithError(err).Error("Metadata update failed, protein lost")
					ing.markFailed(rec.Accession)
					return nil
				}
				ing.stats.Metadata.Inc()
				metricProteins.WithLabelValues("metadata").Inc()
				return nil
			}
		}
	}

	peptides, assocs, err := ing.digestRecord(rec)
	if err != nil {
		var unp *enzyme.UnprocessableError
		if errors.As(err, &unp) {
			ing.stats.Unprocessable.Inc()
			metricProteins.WithLabelValues("unprocessable").Inc()
			ing.sink.LogUnprocessable(rec, err)
			return nil
		}
		var noPart *partition.ErrNoPartition
		if errors.As(err, &noPart) {
			// The boundary table does not cover the configured mass range
			return errors.Wrapf(err, "route peptides of protein %s", rec.Accession)
		}
		log.WithError(err).Error("Digestion failed, protein lost")
		ing.markFailed(rec.Accession)
		return nil
	}

	if current == nil && len(absorbed) == 0 {
		ing.ingestNew(ctx, rec, peptides, assocs, log)
		return nil
	}
	ing.updateExisting(ctx, rec, current, absorbed, peptides, assocs, log)
	return nil
}

// ingestNew routes a previously unseen protein through the partition
// buffers. The protein record is written first so that a crashed run leaves
// a resumable state, the peptide batches are idempotent.
func (ing *Ingestor) ingestNew(ctx context.Context, rec *reader.Record,
	peptides []store.Peptide, assocs []store.Association, log logrus.FieldLogger) {

	if err := ing.st.PutProtein(ctx, recordProtein(rec)); err != nil {
		log.WithError(err).Error("Protein write failed, protein lost")
		ing.markFailed(rec.Accession)
		return
	}

	byPart := make(map[int][]store.Peptide)
	for _, p := range peptides {
		byPart[p.Partition] = append(byPart[p.Partition], p)
	}
	partOf := make(map[string]int, len(peptides))
	for _, p := range peptides {
		partOf[p.Sequence] = p.Partition
	}
	assocByPart := make(map[int][]store.Association)
	for _, a := range assocs {
		part := partOf[a.PeptideSequence]
		assocByPart[part] = append(assocByPart[part], a)
	}

	for part, peps := range byPart {
		ing.stats.PeptidesBuffered.Add(int64(len(peps)))
		metricPeptidesBuffered.Add(float64(len(peps)))
		if pending := ing.buffer.Add(part, rec.Accession, peps, assocByPart[part]); pending != nil {
			ing.writeBatch(ctx, pending)
		}
	}
	ing.stats.New.Inc()
	metricProteins.WithLabelValues("new").Inc()
}

// updateExisting applies a transactional per-protein update, bypassing the
// batch buffers.
func (ing *Ingestor) updateExisting(ctx context.Context, rec *reader.Record,
	current *store.Protein, absorbed []*store.Protein,
	peptides []store.Peptide, assocs []store.Association, log logrus.FieldLogger) {

	var storedAssocs []store.Association
	if current != nil {
		var err error
		storedAssocs, err = ing.st.AssociationsForProtein(ctx, current.Accession)
		if err != nil {
			log.WithError(err).Error("Association lookup failed, protein lost")
			ing.markFailed(rec.Accession)
			return
		}
	}
	u := planProteinUpdate(rec, absorbed, storedAssocs, peptides, assocs)

	err := ing.withRetry(ctx, func(ctx context.Context) error {
		return ing.st.ApplyProteinUpdate(ctx, u)
	})
	if err != nil {
		log.WithError(err).Error("Protein update failed permanently, protein lost")
		ing.markFailed(rec.Accession)
		return
	}
	ing.stats.Updated.Inc()
	metricProteins.WithLabelValues("updated").Inc()
	if n := len(absorbed); n > 0 {
		ing.stats.Merged.Add(int64(n))
		metricProteins.WithLabelValues("merged").Add(float64(n))
		log.WithField("absorbed", n).Info("Absorbed upstream-merged proteins")
	}
}

// writeBatch writes one pending batch with retries. On permanent failure
// the contributing proteins are recorded as lost and the run continues.
func (ing *Ingestor) writeBatch(ctx context.Context, p *Pending) {
	start := time.Now()
	err := ing.withRetry(ctx, func(ctx context.Context) error {
		return ing.st.WriteBatch(ctx, p.Batch)
	})
	if err != nil {
		metricBatchesFailedPermanently.Inc()
		lost := ing.failures.add(p.Accessions...)
		ing.stats.Failed.Add(int64(lost))
		metricProteins.WithLabelValues("failed").Add(float64(lost))
		ing.log.WithError(err).WithFields(logrus.Fields{
			"partition": p.Batch.Partition,
			"proteins":  len(p.Accessions),
		}).Error("Batch dropped after exhausted retries")
		return
	}
	ing.stats.BatchesWritten.Inc()
	metricBatchesWritten.WithLabelValues(partitionLabel(p.Batch.Partition)).Inc()
	metricBatchWriteDuration.Observe(time.Since(start).Seconds())
	ing.log.WithFields(logrus.Fields{
		"partition": p.Batch.Partition,
		"peptides":  len(p.Batch.Peptides),
		"time":      utils.TimeDiff(time.Now(), start),
	}).Debug("Batch written")
}

// withRetry runs op with a per-attempt timeout and exponential backoff.
// Context cancellation stops the retries immediately.
func (ing *Ingestor) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	b := &backoff.Backoff{
		Min:    ing.c.Retry.MinInterval,
		Max:    ing.c.Retry.MaxInterval,
		Factor: 2,
		Jitter: true,
	}
	var lastErr error
	for attempt := 1; attempt <= ing.c.Retry.Attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, ing.c.BatchTimeout)
		lastErr = op(attemptCtx)
		cancel()
		if lastErr == nil {
			ing.health.AddSuccess()
			return nil
		}
		if utils.IsCanceled(ctx) {
			return lastErr
		}
		ing.health.AddFailure()
		metricBatchRetries.Inc()
		ing.stats.BatchRetries.Inc()
		if attempt < ing.c.Retry.Attempts {
			d := b.Duration()
			ing.log.WithError(lastErr).WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": d,
			}).Warn("Store write failed, will retry")
			if err := utils.SleepContext(ctx, d); err != nil {
				return lastErr
			}
		}
	}
	return lastErr
}

func (ing *Ingestor) markFailed(accession string) {
	lost := ing.failures.add(accession)
	ing.stats.Failed.Add(int64(lost))
	metricProteins.WithLabelValues("failed").Add(float64(lost))
}

func (ing *Ingestor) logStatsPeriodically(ctx context.Context) {
	for {
		if err := utils.SleepContextPerturb(ctx, ing.c.StatsInterval); err != nil {
			return
		}
		ing.stats.LogProgress(ing.log)
	}
}

// finishReport stores the unprocessable log and the run summary
func (ing *Ingestor) finishReport() error {
	// Reports are best effort, give them their own deadline even when the
	// run context is gone.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ing.sink.Flush(ctx); err != nil {
		return err
	}
	summary, err := ing.stats.Summary(ing.failures.list())
	if err != nil {
		return err
	}
	return ing.sink.StoreSummary(ctx, summary)
}
