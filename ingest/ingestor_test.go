package ingest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openproteomics/pepdb/config"
	"github.com/openproteomics/pepdb/reader"
	"github.com/openproteomics/pepdb/store"
	"github.com/openproteomics/pepdb/store/memory"
)

func testConfig() config.Config {
	c := config.Default()
	c.Workers = 2
	c.BatchSize = 4
	c.Partitions = 8
	c.BatchTimeout = time.Second
	c.Retry = config.Retry{
		MinInterval: time.Millisecond,
		MaxInterval: 5 * time.Millisecond,
		Attempts:    3,
	}
	c.StatsInterval = time.Hour
	return c
}

// sliceSource feeds records from a slice, like a parsed input file would
type sliceSource struct {
	records []*reader.Record
	pos     int
}

func (s *sliceSource) Next() (*reader.Record, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

func rec(acc, seq string, updatedAt int64) *reader.Record {
	return &reader.Record{
		Accession: acc,
		EntryName: acc + "_TEST",
		Sequence:  seq,
		UpdatedAt: updatedAt,
	}
}

func newTestIngestor(t *testing.T, c config.Config, st store.Store) *Ingestor {
	t.Helper()
	ing, err := New(c, st, nil)
	require.NoError(t, err)
	return ing
}

func runRecords(t *testing.T, ing *Ingestor, records ...*reader.Record) {
	t.Helper()
	require.NoError(t, ing.Run(context.Background(), &sliceSource{records: records}))
}

func TestIngest_NewProteins(t *testing.T) {
	c := testConfig()
	st := memory.New(c.PartitionTable())
	ing := newTestIngestor(t, c, st)

	runRecords(t, ing,
		rec("P00001", "PEPTIDEKGELVISK", 100),
		rec("P00002", "MTESTSEQKGANOTHERK", 100),
	)

	snap := ing.Stats().Snapshot()
	assert.EqualValues(t, 2, snap.ProteinsRead)
	assert.EqualValues(t, 2, snap.New)
	assert.EqualValues(t, 0, snap.Failed)

	got, err := st.GetProtein(context.Background(), "P00001")
	require.NoError(t, err)
	assert.Equal(t, "PEPTIDEKGELVISK", got.Sequence)

	// Cleavage after K(7), so with up to 2 missed cleavages we get both
	// halves and the full sequence
	assocs, err := st.AssociationsForProtein(context.Background(), "P00001")
	require.NoError(t, err)
	var seqs []string
	for _, a := range assocs {
		seqs = append(seqs, a.PeptideSequence)
	}
	assert.ElementsMatch(t, []string{"PEPTIDEK", "GELVISK", "PEPTIDEKGELVISK"}, seqs)

	// Every stored peptide sits in the partition its mass routes to
	for _, seq := range seqs {
		p, ok := st.GetPeptide(seq)
		require.True(t, ok, seq)
		part, err := st.Partitions().Route(p.MonoMass)
		require.NoError(t, err)
		assert.Equal(t, part, p.Partition, seq)
	}
}

func TestIngest_Idempotent(t *testing.T) {
	c := testConfig()
	st := memory.New(c.PartitionTable())

	ing := newTestIngestor(t, c, st)
	runRecords(t, ing, rec("P00001", "PEPTIDEKGELVISK", 100))
	proteins, peptides, assocs := st.Counts()

	// Same record again: the stored entry is as new, nothing changes
	ing2 := newTestIngestor(t, c, st)
	runRecords(t, ing2, rec("P00001", "PEPTIDEKGELVISK", 100))
	assert.EqualValues(t, 1, ing2.Stats().Snapshot().Skipped)

	p2, q2, a2 := st.Counts()
	assert.Equal(t, proteins, p2)
	assert.Equal(t, peptides, q2)
	assert.Equal(t, assocs, a2)
}

func TestIngest_MetadataOnlyUpdate(t *testing.T) {
	c := testConfig()
	st := memory.New(c.PartitionTable())

	ing := newTestIngestor(t, c, st)
	runRecords(t, ing, rec("P00001", "PEPTIDEKGELVISK", 100))

	r := rec("P00001", "PEPTIDEKGELVISK", 200)
	r.Name = "Renamed protein"
	ing2 := newTestIngestor(t, c, st)
	runRecords(t, ing2, r)
	assert.EqualValues(t, 1, ing2.Stats().Snapshot().Metadata)

	got, err := st.GetProtein(context.Background(), "P00001")
	require.NoError(t, err)
	assert.Equal(t, "Renamed protein", got.Name)
	assert.EqualValues(t, 200, got.UpdatedAt)
}

func TestIngest_SequenceUpdateRemovesOrphans(t *testing.T) {
	c := testConfig()
	st := memory.New(c.PartitionTable())

	ing := newTestIngestor(t, c, st)
	runRecords(t, ing, rec("P00001", "PEPTIDEKGELVISK", 100))
	_, ok := st.GetPeptide("GELVISK")
	require.True(t, ok)

	ing2 := newTestIngestor(t, c, st)
	runRecords(t, ing2, rec("P00001", "PEPTIDEKGGGGGR", 200))
	assert.EqualValues(t, 1, ing2.Stats().Snapshot().Updated)

	// Peptides unique to the old sequence are gone, shared ones survive
	_, ok = st.GetPeptide("GELVISK")
	assert.False(t, ok)
	_, ok = st.GetPeptide("PEPTIDEK")
	assert.True(t, ok)

	assocs, err := st.AssociationsForProtein(context.Background(), "P00001")
	require.NoError(t, err)
	var seqs []string
	for _, a := range assocs {
		seqs = append(seqs, a.PeptideSequence)
	}
	assert.ElementsMatch(t, []string{"PEPTIDEK", "GGGGGR", "PEPTIDEKGGGGGR"}, seqs)
}

func TestIngest_OlderRecordSkipped(t *testing.T) {
	c := testConfig()
	st := memory.New(c.PartitionTable())

	ing := newTestIngestor(t, c, st)
	runRecords(t, ing, rec("P00001", "PEPTIDEKGELVISK", 200))

	ing2 := newTestIngestor(t, c, st)
	runRecords(t, ing2, rec("P00001", "PEPTIDEKGGGGGR", 100))
	assert.EqualValues(t, 1, ing2.Stats().Snapshot().Skipped)

	got, err := st.GetProtein(context.Background(), "P00001")
	require.NoError(t, err)
	assert.Equal(t, "PEPTIDEKGELVISK", got.Sequence)
}

func TestIngest_AccessionMerge(t *testing.T) {
	c := testConfig()
	st := memory.New(c.PartitionTable())

	ing := newTestIngestor(t, c, st)
	runRecords(t, ing,
		rec("P00001", "PEPTIDEKGELVISK", 100),
		rec("P00002", "MTESTSEQKGANOTHERK", 100),
	)

	// Upstream merged P00002 into P00001
	merged := rec("P00001", "PEPTIDEKGELVISK", 200)
	merged.SecondaryAccessions = []string{"P00002"}
	ing2 := newTestIngestor(t, c, st)
	runRecords(t, ing2, merged)

	snap := ing2.Stats().Snapshot()
	assert.EqualValues(t, 1, snap.Updated)
	assert.EqualValues(t, 1, snap.Merged)

	// P00002 now resolves to P00001, its own entry and peptides are gone
	got, err := st.GetProtein(context.Background(), "P00002")
	require.NoError(t, err)
	assert.Equal(t, "P00001", got.Accession)
	_, ok := st.GetPeptide("MTESTSEQK")
	assert.False(t, ok)
}

func TestIngest_AccessionConflict(t *testing.T) {
	c := testConfig()
	st := memory.New(c.PartitionTable())

	first := rec("P00001", "PEPTIDEKGELVISK", 100)
	first.SecondaryAccessions = []string{"P00009"}
	ing := newTestIngestor(t, c, st)
	runRecords(t, ing, first)

	// A record claiming P00009 as primary cannot be reconciled
	ing2 := newTestIngestor(t, c, st)
	runRecords(t, ing2, rec("P00009", "MTESTSEQKGANOTHERK", 100))
	assert.EqualValues(t, 1, ing2.Stats().Snapshot().Failed)
	assert.Equal(t, []string{"P00009"}, ing2.FailedAccessions())
}

func TestIngest_Unprocessable(t *testing.T) {
	c := testConfig()
	st := memory.New(c.PartitionTable())
	ing := newTestIngestor(t, c, st)

	runRecords(t, ing,
		rec("P00001", "PEPTIDEKGELVISK", 100),
		rec("P00002", "PEPTXIDEKGELVISK", 100), // X cannot be resolved
	)

	snap := ing.Stats().Snapshot()
	assert.EqualValues(t, 1, snap.New)
	assert.EqualValues(t, 1, snap.Unprocessable)
	assert.EqualValues(t, 0, snap.Failed)

	// The unprocessable protein left no trace in the store
	_, err := st.GetProtein(context.Background(), "P00002")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// flakyStore fails the first n WriteBatch calls
type flakyStore struct {
	store.Store
	mu   sync.Mutex
	left int
}

func (f *flakyStore) WriteBatch(ctx context.Context, b store.Batch) error {
	f.mu.Lock()
	fail := f.left > 0
	if fail {
		f.left--
	}
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("transient store error")
	}
	return f.Store.WriteBatch(ctx, b)
}

func TestIngest_RetriedRunMatchesCleanRun(t *testing.T) {
	c := testConfig()
	records := []*reader.Record{
		rec("P00001", "PEPTIDEKGELVISK", 100),
		rec("P00002", "MTESTSEQKGANOTHERK", 100),
		rec("P00003", "PEPTIDEKGANOTHERK", 100), // shares peptides with both
	}

	clean := memory.New(c.PartitionTable())
	ing := newTestIngestor(t, c, clean)
	runRecords(t, ing, records...)

	flaked := memory.New(c.PartitionTable())
	ing2 := newTestIngestor(t, c, &flakyStore{Store: flaked, left: 2})
	runRecords(t, ing2, records...)
	assert.GreaterOrEqual(t, ing2.Stats().Snapshot().BatchRetries, int64(2))
	assert.EqualValues(t, 0, ing2.Stats().Snapshot().Failed)

	p1, q1, a1 := clean.Counts()
	p2, q2, a2 := flaked.Counts()
	assert.Equal(t, p1, p2)
	assert.Equal(t, q1, q2)
	assert.Equal(t, a1, a2)
}

// ctxStore refuses writes once the given context is done, like a real
// database driver would
type ctxStore struct {
	store.Store
}

func (s *ctxStore) WriteBatch(ctx context.Context, b store.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.WriteBatch(ctx, b)
}

func TestIngest_FinalFlushStoresBufferedPeptides(t *testing.T) {
	c := testConfig()
	st := memory.New(c.PartitionTable())
	ing := newTestIngestor(t, c, &ctxStore{Store: st})

	// Three peptides, below the batch threshold of 4: everything stays
	// buffered until the final flush after the workers are done
	runRecords(t, ing, rec("P00001", "PEPTIDEKGELVISK", 100))

	snap := ing.Stats().Snapshot()
	assert.EqualValues(t, 0, snap.Failed)
	assert.GreaterOrEqual(t, snap.BatchesWritten, int64(1))

	_, peptides, assocs := st.Counts()
	assert.EqualValues(t, 3, peptides, "final flush must store the buffered peptides")
	assert.EqualValues(t, 3, assocs)
}

// brokenStore permanently fails all batch writes
type brokenStore struct {
	store.Store
}

func (b *brokenStore) WriteBatch(ctx context.Context, _ store.Batch) error {
	return fmt.Errorf("store unavailable")
}

func TestIngest_PermanentFailureDoesNotAbortRun(t *testing.T) {
	c := testConfig()
	c.BatchSize = 1 // every protein flushes its own batches
	st := memory.New(c.PartitionTable())
	ing := newTestIngestor(t, c, &brokenStore{Store: st})

	runRecords(t, ing,
		rec("P00001", "PEPTIDEKGELVISK", 100),
		rec("P00002", "MTESTSEQKGANOTHERK", 100),
	)

	snap := ing.Stats().Snapshot()
	assert.EqualValues(t, 2, snap.Failed)
	assert.ElementsMatch(t, []string{"P00001", "P00002"}, ing.FailedAccessions())
}

func TestIngest_RerunAfterFailureRestoresPeptides(t *testing.T) {
	c := testConfig()
	c.BatchSize = 1
	st := memory.New(c.PartitionTable())

	// The protein row is written but every peptide batch is lost
	ing := newTestIngestor(t, c, &brokenStore{Store: st})
	runRecords(t, ing, rec("P00001", "PEPTIDEKGELVISK", 100))
	require.Equal(t, []string{"P00001"}, ing.FailedAccessions())
	_, peptides, _ := st.Counts()
	require.EqualValues(t, 0, peptides)

	// The failure report promises the accession can simply be re-ingested.
	// The stored row must not shadow the missing peptides on the re-run.
	ing2 := newTestIngestor(t, c, st)
	runRecords(t, ing2, rec("P00001", "PEPTIDEKGELVISK", 100))

	snap := ing2.Stats().Snapshot()
	assert.EqualValues(t, 0, snap.Failed)
	assert.EqualValues(t, 0, snap.Skipped)
	assert.EqualValues(t, 1, snap.Updated)

	assocs, err := st.AssociationsForProtein(context.Background(), "P00001")
	require.NoError(t, err)
	var seqs []string
	for _, a := range assocs {
		seqs = append(seqs, a.PeptideSequence)
	}
	assert.ElementsMatch(t, []string{"PEPTIDEK", "GELVISK", "PEPTIDEKGELVISK"}, seqs)
}

func TestIngest_Cancellation(t *testing.T) {
	c := testConfig()
	st := memory.New(c.PartitionTable())
	ing := newTestIngestor(t, c, st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ing.Run(ctx, &sliceSource{records: []*reader.Record{
		rec("P00001", "PEPTIDEKGELVISK", 100),
	}})
	assert.ErrorIs(t, err, context.Canceled)
}
