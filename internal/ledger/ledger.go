// Package ledger implements the append-only, hash-chained audit log that
// records every mutating business event in the back office.
//
// Each entry binds a timestamp, the previous entry's digest, an optional
// actor reference and a canonically encoded event envelope into a SHA-256
// digest; the first entry chains from GenesisDigest (64 hex zeros). Appends
// are serialized per chain so concurrent writers can never fork it, and
// Verify recomputes every digest to detect tampering after the fact.
//
// Two implementations of the Ledger interface are provided:
//   - MemoryLedger: in-process, for testing and development.
//   - PostgresLedger: durable, for production use.
package ledger

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entry does not exist.
var ErrNotFound = errors.New("ledger entry not found")

// Ledger is the interface for the append-only audit chain. All reads return
// value snapshots and may run concurrently with appends; they observe either
// the old or the new chain state, never a half-written entry.
type Ledger interface {
	// Append records one event as the next entry and returns it, digest
	// included. The read-tail/insert pair is atomic per chain: at most one
	// in-flight append commits at a time. A failed append leaves no row.
	Append(ctx context.Context, in AppendInput) (*Entry, error)

	// Get returns the entry with the given sequence number.
	Get(ctx context.Context, sequence int64) (*Entry, error)

	// Entries returns entries in descending sequence order, filtered and
	// paginated per f.
	Entries(ctx context.Context, f Filter) ([]Entry, error)

	// Len returns the total number of entries.
	Len(ctx context.Context) (int64, error)

	// Head returns the digest of the most recent entry, or GenesisDigest
	// for an empty chain.
	Head(ctx context.Context) (string, error)

	// Verify walks the whole chain in sequence order and recomputes every
	// digest. It reports all discrepancies found rather than stopping at
	// the first; an empty slice means the chain is intact. The error return
	// covers storage faults only, never integrity findings.
	Verify(ctx context.Context) ([]Discrepancy, error)

	// Stats summarizes entry counts and chain boundaries.
	Stats(ctx context.Context) (*Stats, error)

	// ExportProof bundles the entries whose timestamps fall within the
	// inclusive [start, end] bounds (empty string = unbounded) together
	// with a self-describing integrity envelope and a proof hash that a
	// third party can recheck offline.
	ExportProof(ctx context.Context, start, end string) (*Proof, error)
}

type options struct {
	clock    func() time.Time
	onAppend func(actionTag string)
}

// Option configures a ledger backend.
type Option func(*options)

// WithClock overrides the append timestamp source. Tests use it to make
// chains reproducible.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithAppendHook registers a callback invoked after every committed append,
// with the entry's action tag. Used to feed metrics counters.
func WithAppendHook(fn func(actionTag string)) Option {
	return func(o *options) { o.onAppend = fn }
}

func applyOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
