package transfer

import "sync"

// BatchProgress aggregates per-file percentages into one number for the
// whole set of active transfers. Finished transfers must leave the set
// before the aggregate is recomputed, so completing one file raises the
// aggregate instead of freezing it.
type BatchProgress struct {
	mu      sync.Mutex
	perFile map[string]int
}

func NewBatchProgress() *BatchProgress {
	return &BatchProgress{perFile: make(map[string]int)}
}

// Set records the integer percentage of one transfer, adding it to the
// active set if needed.
func (b *BatchProgress) Set(id string, percent int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.perFile[id] = percent
}

// Remove drops a transfer from the active set. Called when a transfer
// reaches a terminal state, before the next aggregate read.
func (b *BatchProgress) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.perFile, id)
}

// Aggregate returns the combined percentage across active transfers:
// sum(perFile) / (active * 100) * 100. Zero when nothing is active.
func (b *BatchProgress) Aggregate() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.perFile) == 0 {
		return 0
	}
	sum := 0
	for _, p := range b.perFile {
		sum += p
	}
	return sum * 100 / (len(b.perFile) * 100)
}

// Active returns the number of transfers currently in the set.
func (b *BatchProgress) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.perFile)
}
