package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey is a stable PostgreSQL advisory lock key that serializes
// concurrent appends to the chain. The value is arbitrary but must be
// consistent across all processes writing to the same database.
const advisoryLockKey = int64(7_734_821_960)

// PostgresLedger persists the audit chain to PostgreSQL. It implements the
// Ledger interface.
type PostgresLedger struct {
	pool     *pgxpool.Pool
	clock    func() time.Time
	onAppend func(actionTag string)
	logger   *zap.Logger
}

// NewPostgresLedger creates a PostgresLedger backed by the given connection
// pool.
func NewPostgresLedger(pool *pgxpool.Pool, logger *zap.Logger, opts ...Option) *PostgresLedger {
	o := applyOptions(opts)
	return &PostgresLedger{pool: pool, clock: o.clock, onAppend: o.onAppend, logger: logger}
}

// Append implements Ledger. It opens its own transaction around AppendTx, so
// a failed append leaves no partial row.
func (l *PostgresLedger) Append(ctx context.Context, in AppendInput) (*Entry, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	entry, err := l.AppendTx(ctx, tx, in)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit append tx: %w", err)
	}
	return entry, nil
}

// AppendTx records one event inside a caller-owned transaction. Business
// writers use it so the row they insert and the audit entry documenting it
// commit together or not at all.
//
// The transaction-scoped advisory lock serializes the read-tail/insert pair
// against every other append; it is released automatically on commit or
// rollback, so an aborted business transaction never blocks the chain.
func (l *PostgresLedger) AppendTx(ctx context.Context, tx pgx.Tx, in AppendInput) (*Entry, error) {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return nil, fmt.Errorf("acquire append lock: %w", err)
	}

	prevDigest := GenesisDigest
	sequence := int64(1)
	var tailSeq int64
	var tailDigest string
	err := tx.QueryRow(ctx,
		"SELECT sequence, digest FROM ledger_entries ORDER BY sequence DESC LIMIT 1",
	).Scan(&tailSeq, &tailDigest)
	switch {
	case err == nil:
		prevDigest = tailDigest
		sequence = tailSeq + 1
	case errors.Is(err, pgx.ErrNoRows):
		// Empty chain: first entry chains from the genesis constant.
	default:
		return nil, fmt.Errorf("read chain tail: %w", err)
	}

	entry, err := buildEntry(l.clock(), sequence, prevDigest, in)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO ledger_entries (sequence, timestamp, prev_digest, digest, actor_ref, action_tag, payload_envelope)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.Sequence, entry.Timestamp, entry.PrevDigest, entry.Digest,
		entry.ActorRef, entry.ActionTag, entry.PayloadEnvelope,
	); err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	l.logger.Debug("ledger entry appended",
		zap.Int64("sequence", entry.Sequence),
		zap.String("action_tag", entry.ActionTag),
	)
	// Counted at insert time; a caller rollback after this point overcounts
	// by one, which is acceptable for a rate counter.
	if l.onAppend != nil {
		l.onAppend(entry.ActionTag)
	}
	return entry, nil
}

// Get implements Ledger.
func (l *PostgresLedger) Get(ctx context.Context, sequence int64) (*Entry, error) {
	var e Entry
	err := l.pool.QueryRow(ctx,
		`SELECT sequence, timestamp, prev_digest, digest, actor_ref, action_tag, payload_envelope
		 FROM ledger_entries WHERE sequence = $1`, sequence,
	).Scan(&e.Sequence, &e.Timestamp, &e.PrevDigest, &e.Digest, &e.ActorRef, &e.ActionTag, &e.PayloadEnvelope)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get entry %d: %w", sequence, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", sequence, err)
	}
	return &e, nil
}

// Entries implements Ledger.
func (l *PostgresLedger) Entries(ctx context.Context, f Filter) ([]Entry, error) {
	query := `
		SELECT sequence, timestamp, prev_digest, digest, actor_ref, action_tag, payload_envelope
		FROM ledger_entries
		WHERE ($1 = '' OR action_tag = $1)
		  AND ($2::bigint IS NULL OR actor_ref = $2)
		  AND ($3 = '' OR timestamp >= $3)
		  AND ($4 = '' OR timestamp <= $4)
		ORDER BY sequence DESC
		LIMIT $5 OFFSET $6`

	rows, err := l.pool.Query(ctx, query, f.ActionTag, f.ActorRef, f.Start, f.End, f.limit(), f.Offset)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Len implements Ledger.
func (l *PostgresLedger) Len(ctx context.Context) (int64, error) {
	var n int64
	if err := l.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return n, nil
}

// Head implements Ledger.
func (l *PostgresLedger) Head(ctx context.Context) (string, error) {
	var digest string
	err := l.pool.QueryRow(ctx,
		"SELECT digest FROM ledger_entries ORDER BY sequence DESC LIMIT 1",
	).Scan(&digest)
	if errors.Is(err, pgx.ErrNoRows) {
		return GenesisDigest, nil
	}
	if err != nil {
		return "", fmt.Errorf("read chain head: %w", err)
	}
	return digest, nil
}

// Verify implements Ledger. It streams all rows in sequence order and checks
// every digest; O(n) in chain length, so large chains may take a while.
func (l *PostgresLedger) Verify(ctx context.Context) ([]Discrepancy, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT sequence, timestamp, prev_digest, digest, actor_ref, action_tag, payload_envelope
		 FROM ledger_entries ORDER BY sequence ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	w := newChainWalker()
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Sequence, &e.Timestamp, &e.PrevDigest, &e.Digest,
			&e.ActorRef, &e.ActionTag, &e.PayloadEnvelope); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		w.check(e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("walk ledger entries: %w", err)
	}
	return w.discrepancies(), nil
}

// Stats implements Ledger.
func (l *PostgresLedger) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{ActionCounts: make(map[string]int64), LastDigest: GenesisDigest}

	rows, err := l.pool.Query(ctx,
		"SELECT action_tag, COUNT(*) FROM ledger_entries GROUP BY action_tag",
	)
	if err != nil {
		return nil, fmt.Errorf("count actions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tag string
		var n int64
		if err := rows.Scan(&tag, &n); err != nil {
			return nil, fmt.Errorf("scan action count: %w", err)
		}
		s.ActionCounts[tag] = n
		s.TotalEntries += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("walk action counts: %w", err)
	}

	if s.TotalEntries == 0 {
		return s, nil
	}
	err = l.pool.QueryRow(ctx, `
		SELECT first.timestamp, last.timestamp, last.digest
		FROM (SELECT timestamp FROM ledger_entries ORDER BY sequence ASC LIMIT 1) AS first,
		     (SELECT timestamp, digest FROM ledger_entries ORDER BY sequence DESC LIMIT 1) AS last`,
	).Scan(&s.FirstEntryTime, &s.LastEntryTime, &s.LastDigest)
	if err != nil {
		return nil, fmt.Errorf("read chain bounds: %w", err)
	}
	return s, nil
}

// ExportProof implements Ledger.
func (l *PostgresLedger) ExportProof(ctx context.Context, start, end string) (*Proof, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT sequence, timestamp, prev_digest, digest, actor_ref, action_tag, payload_envelope
		FROM ledger_entries
		WHERE ($1 = '' OR timestamp >= $1)
		  AND ($2 = '' OR timestamp <= $2)
		ORDER BY sequence ASC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query proof range: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	return buildProof(entries, start, end, l.clock())
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Sequence, &e.Timestamp, &e.PrevDigest, &e.Digest,
			&e.ActorRef, &e.ActionTag, &e.PayloadEnvelope); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("walk ledger rows: %w", err)
	}
	return entries, nil
}
