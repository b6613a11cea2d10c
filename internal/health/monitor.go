// Package health runs periodic self-checks over the station's critical
// state: database connectivity, audit chain integrity, and low-stock
// levels. The latest result backs the /healthz endpoint and feeds the
// Prometheus gauges.
package health

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/ledger"
)

// Config holds monitor configuration.
type Config struct {
	CheckInterval time.Duration
	CheckTimeout  time.Duration
}

// Pinger reports database connectivity. Satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ChainReader is the slice of the audit ledger the monitor inspects.
type ChainReader interface {
	Len(ctx context.Context) (int64, error)
	Verify(ctx context.Context) ([]ledger.Discrepancy, error)
}

// StockCountFunc is an optional callback returning the number of items at
// or below the low-stock threshold.
type StockCountFunc func(ctx context.Context) (int, error)

// MetricsRecordFunc is an optional callback for publishing check results
// to gauges.
type MetricsRecordFunc func(chainEntries int64, chainIntact bool, lowStock int)

// Status is the result of the most recent check.
type Status struct {
	Database      bool      `json:"database"`
	ChainEntries  int64     `json:"chain_entries"`
	ChainIntact   bool      `json:"chain_intact"`
	Discrepancies int       `json:"discrepancies,omitempty"`
	LowStockItems int       `json:"low_stock_items"`
	CheckedAt     time.Time `json:"checked_at"`
}

// OK reports whether the station is fully healthy.
func (s Status) OK() bool {
	return s.Database && s.ChainIntact
}

// Monitor runs the periodic self-check loop.
type Monitor struct {
	db         Pinger
	chain      ChainReader
	stockCount StockCountFunc
	onMetrics  MetricsRecordFunc
	mu         sync.Mutex
	last       Status
	cfg        Config
	logger     *zap.Logger
}

// New creates a new Monitor.
func New(db Pinger, chain ChainReader, cfg Config, logger *zap.Logger) *Monitor {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 5 * time.Minute
	}
	if cfg.CheckTimeout == 0 {
		cfg.CheckTimeout = 30 * time.Second
	}

	return &Monitor{
		db:     db,
		chain:  chain,
		cfg:    cfg,
		logger: logger,
	}
}

// SetStockCount configures the low-stock counting callback.
func (m *Monitor) SetStockCount(fn StockCountFunc) {
	m.stockCount = fn
}

// SetMetricsRecord configures the metrics publishing callback.
func (m *Monitor) SetMetricsRecord(fn MetricsRecordFunc) {
	m.onMetrics = fn
}

// Start runs the check loop until quit is signalled.
func (m *Monitor) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CheckTimeout)
			m.CheckNow(ctx)
			cancel()
		case <-quit:
			return
		}
	}
}

// CheckNow runs a single check pass and records the result.
func (m *Monitor) CheckNow(ctx context.Context) Status {
	st := Status{ChainIntact: true, CheckedAt: time.Now().UTC()}

	if err := m.db.Ping(ctx); err != nil {
		m.logger.Warn("health: database ping", zap.Error(err))
	} else {
		st.Database = true
	}

	if n, err := m.chain.Len(ctx); err != nil {
		m.logger.Warn("health: chain length", zap.Error(err))
	} else {
		st.ChainEntries = n
	}

	discrepancies, err := m.chain.Verify(ctx)
	if err != nil {
		m.logger.Warn("health: chain verify", zap.Error(err))
	} else if len(discrepancies) > 0 {
		st.ChainIntact = false
		st.Discrepancies = len(discrepancies)
		m.logger.Error("health: audit chain broken",
			zap.Int("discrepancies", len(discrepancies)),
			zap.Int64("first_sequence", discrepancies[0].Sequence),
		)
	}

	if m.stockCount != nil {
		if n, err := m.stockCount(ctx); err != nil {
			m.logger.Warn("health: low stock scan", zap.Error(err))
		} else {
			st.LowStockItems = n
		}
	}

	if m.onMetrics != nil {
		m.onMetrics(st.ChainEntries, st.ChainIntact, st.LowStockItems)
	}

	m.mu.Lock()
	m.last = st
	m.mu.Unlock()
	return st
}

// Last returns the most recent check result. Before the first check it
// returns the zero Status, whose CheckedAt is the zero time.
func (m *Monitor) Last() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
