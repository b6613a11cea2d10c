package health

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/ledger"
)

// ── Stubs ────────────────────────────────────────────────────────────────

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(_ context.Context) error { return s.err }

type stubChain struct {
	length        int64
	discrepancies []ledger.Discrepancy
	verifyErr     error
}

func (s *stubChain) Len(_ context.Context) (int64, error) { return s.length, nil }

func (s *stubChain) Verify(_ context.Context) ([]ledger.Discrepancy, error) {
	return s.discrepancies, s.verifyErr
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestCheckNow_allHealthy(t *testing.T) {
	mon := New(&stubPinger{}, &stubChain{length: 42}, Config{}, zap.NewNop())

	st := mon.CheckNow(context.Background())
	if !st.OK() {
		t.Errorf("expected healthy status, got %+v", st)
	}
	if st.ChainEntries != 42 {
		t.Errorf("chain entries = %d, want 42", st.ChainEntries)
	}
	if last := mon.Last(); last.CheckedAt != st.CheckedAt {
		t.Error("Last should return the recorded status")
	}
}

func TestCheckNow_databaseDown(t *testing.T) {
	mon := New(&stubPinger{err: errors.New("conn refused")}, &stubChain{}, Config{}, zap.NewNop())

	st := mon.CheckNow(context.Background())
	if st.Database {
		t.Error("expected database false")
	}
	if st.OK() {
		t.Error("expected not OK when database is down")
	}
}

func TestCheckNow_brokenChain(t *testing.T) {
	chain := &stubChain{
		length: 10,
		discrepancies: []ledger.Discrepancy{
			{Sequence: 4, Kind: "hash_mismatch"},
			{Sequence: 5, Kind: "broken_link"},
		},
	}
	mon := New(&stubPinger{}, chain, Config{}, zap.NewNop())

	st := mon.CheckNow(context.Background())
	if st.ChainIntact {
		t.Error("expected chain_intact false")
	}
	if st.Discrepancies != 2 {
		t.Errorf("discrepancies = %d, want 2", st.Discrepancies)
	}
}

func TestCheckNow_verifyStorageErrorKeepsIntact(t *testing.T) {
	// A storage failure during verification is not evidence of tampering.
	chain := &stubChain{verifyErr: errors.New("timeout")}
	mon := New(&stubPinger{}, chain, Config{}, zap.NewNop())

	st := mon.CheckNow(context.Background())
	if !st.ChainIntact {
		t.Error("storage error should not mark the chain broken")
	}
}

func TestCheckNow_callbacks(t *testing.T) {
	mon := New(&stubPinger{}, &stubChain{length: 7}, Config{}, zap.NewNop())
	mon.SetStockCount(func(_ context.Context) (int, error) { return 3, nil })

	var gotEntries int64
	var gotIntact bool
	var gotLow int
	mon.SetMetricsRecord(func(entries int64, intact bool, low int) {
		gotEntries, gotIntact, gotLow = entries, intact, low
	})

	st := mon.CheckNow(context.Background())
	if st.LowStockItems != 3 {
		t.Errorf("low stock = %d, want 3", st.LowStockItems)
	}
	if gotEntries != 7 || !gotIntact || gotLow != 3 {
		t.Errorf("metrics callback got (%d, %v, %d)", gotEntries, gotIntact, gotLow)
	}
}
