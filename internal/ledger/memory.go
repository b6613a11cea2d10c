package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLedger is an in-memory, thread-safe Ledger implementation. It is
// primarily useful for testing and for single-process development runs that
// do not require durable persistence across restarts.
type MemoryLedger struct {
	clock    func() time.Time
	onAppend func(actionTag string)

	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryLedger creates an empty MemoryLedger. The chain starts with no
// entries; the first append chains from GenesisDigest.
func NewMemoryLedger(opts ...Option) *MemoryLedger {
	o := applyOptions(opts)
	return &MemoryLedger{clock: o.clock, onAppend: o.onAppend}
}

// Append implements Ledger. The mutex spans the whole read-tail/insert pair,
// which is the invariant that prevents two concurrent appends from chaining
// to the same predecessor.
func (l *MemoryLedger) Append(_ context.Context, in AppendInput) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevDigest := GenesisDigest
	sequence := int64(1)
	if n := len(l.entries); n > 0 {
		prevDigest = l.entries[n-1].Digest
		sequence = l.entries[n-1].Sequence + 1
	}

	entry, err := buildEntry(l.clock(), sequence, prevDigest, in)
	if err != nil {
		return nil, err
	}
	l.entries = append(l.entries, *entry)
	if l.onAppend != nil {
		l.onAppend(entry.ActionTag)
	}
	return entry, nil
}

// Get implements Ledger.
func (l *MemoryLedger) Get(_ context.Context, sequence int64) (*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if sequence < 1 || sequence > int64(len(l.entries)) {
		return nil, fmt.Errorf("get entry %d: %w", sequence, ErrNotFound)
	}
	e := l.entries[sequence-1]
	return &e, nil
}

// Entries implements Ledger.
func (l *MemoryLedger) Entries(_ context.Context, f Filter) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, 0, f.limit())
	skipped := 0
	for i := len(l.entries) - 1; i >= 0 && len(out) < f.limit(); i-- {
		e := l.entries[i]
		if !f.matches(e) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Len implements Ledger.
func (l *MemoryLedger) Len(_ context.Context) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(len(l.entries)), nil
}

// Head implements Ledger.
func (l *MemoryLedger) Head(_ context.Context) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return GenesisDigest, nil
	}
	return l.entries[len(l.entries)-1].Digest, nil
}

// Verify implements Ledger. An empty chain is intact by definition.
func (l *MemoryLedger) Verify(_ context.Context) ([]Discrepancy, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	w := newChainWalker()
	for _, e := range l.entries {
		w.check(e)
	}
	return w.discrepancies(), nil
}

// Stats implements Ledger.
func (l *MemoryLedger) Stats(_ context.Context) (*Stats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := &Stats{
		TotalEntries: int64(len(l.entries)),
		ActionCounts: make(map[string]int64),
		LastDigest:   GenesisDigest,
	}
	for _, e := range l.entries {
		s.ActionCounts[e.ActionTag]++
	}
	if len(l.entries) > 0 {
		s.FirstEntryTime = l.entries[0].Timestamp
		s.LastEntryTime = l.entries[len(l.entries)-1].Timestamp
		s.LastDigest = l.entries[len(l.entries)-1].Digest
	}
	return s, nil
}

// ExportProof implements Ledger.
func (l *MemoryLedger) ExportProof(_ context.Context, start, end string) (*Proof, error) {
	l.mu.RLock()
	var selected []Entry
	for _, e := range l.entries {
		if inRange(e.Timestamp, start, end) {
			selected = append(selected, e)
		}
	}
	l.mu.RUnlock()

	return buildProof(selected, start, end, l.clock())
}
