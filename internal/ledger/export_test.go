package ledger

// Tamper overwrites a stored entry in place, bypassing the append-only rule.
// Tests use it to simulate after-the-fact modification of the backing store.
func (l *MemoryLedger) Tamper(sequence int64, mutate func(*Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	mutate(&l.entries[sequence-1])
}
