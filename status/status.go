// Package status implements the HTTP status page, with the Prometheus
// metrics and healthz endpoints.
package status

import (
	"sync"

	"github.com/openproteomics/pepdb/ingest"
	"github.com/openproteomics/pepdb/partition"
)

type info struct {
	mu        sync.Mutex
	stats     *ingest.Stats
	table     partition.Table
	storeType string
}

var gi info

// SetStats registers the running ingestor's counters with the status page
func SetStats(s *ingest.Stats) {
	gi.mu.Lock()
	defer gi.mu.Unlock()
	gi.stats = s
}

// SetPartitions registers the active partition table with the status page
func SetPartitions(t partition.Table, storeType string) {
	gi.mu.Lock()
	defer gi.mu.Unlock()
	gi.table = t
	gi.storeType = storeType
}

func (i *info) snapshot() (snap ingest.Snapshot, ok bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stats == nil {
		return snap, false
	}
	return i.stats.Snapshot(), true
}

func (i *info) partitions() (partition.Table, string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.table, i.storeType
}
