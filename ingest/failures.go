package ingest

import (
	"sort"
	"sync"
)

// failureSet collects the accessions of proteins whose data could not be
// written. A failed batch taints every protein that contributed to it since
// the last successful flush.
type failureSet struct {
	mu         sync.Mutex
	accessions map[string]struct{}
}

func newFailureSet() *failureSet {
	return &failureSet{accessions: make(map[string]struct{})}
}

// add returns how many of the accessions were not yet recorded
func (f *failureSet) add(accs ...string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	added := 0
	for _, acc := range accs {
		if _, ok := f.accessions[acc]; !ok {
			f.accessions[acc] = struct{}{}
			added++
		}
	}
	return added
}

func (f *failureSet) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.accessions)
}

func (f *failureSet) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.accessions))
	for acc := range f.accessions {
		out = append(out, acc)
	}
	sort.Strings(out)
	return out
}
