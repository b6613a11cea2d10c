package ledger_test

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/hydrohub/hydrohub/internal/ledger"
)

func TestExportProof_emptyChain(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))

	p, err := l.ExportProof(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if p.TotalEntries != 0 {
		t.Errorf("total: got %d, want 0", p.TotalEntries)
	}
	if p.Entries == nil || len(p.Entries) != 0 {
		t.Errorf("entries: got %v, want empty non-nil slice", p.Entries)
	}
	if p.FilterStart != nil || p.FilterEnd != nil {
		t.Errorf("unbounded filters must be nil, got %v / %v", p.FilterStart, p.FilterEnd)
	}
	if !hexDigest.MatchString(p.ProofHash) {
		t.Errorf("proof hash is not 64 lowercase hex chars: %q", p.ProofHash)
	}
}

func TestExportProof_fullChain(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	appendThree(t, l)

	p, err := l.ExportProof(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if p.TotalEntries != 3 || len(p.Entries) != 3 {
		t.Fatalf("expected 3 entries, got total=%d len=%d", p.TotalEntries, len(p.Entries))
	}
	for i, e := range p.Entries {
		if e.Sequence != int64(i+1) {
			t.Errorf("proof entries must ascend: entries[%d].Sequence=%d", i, e.Sequence)
		}
	}
	if p.VerificationInfo.HashAlgorithm != "SHA-256" {
		t.Errorf("hash algorithm: got %q", p.VerificationInfo.HashAlgorithm)
	}
	if p.VerificationInfo.PayloadFormat != "timestamp|prev_hash|actor_id|data_text" {
		t.Errorf("payload format: got %q", p.VerificationInfo.PayloadFormat)
	}
}

func TestExportProof_rangeInclusive(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	for i := 0; i < 5; i++ {
		if _, err := l.Append(ctx, ledger.AppendInput{ActionTag: "expense", Payload: map[string]any{"i": i}}); err != nil {
			t.Fatal(err)
		}
	}

	start, end := "2024-06-01T08:00:02.000000Z", "2024-06-01T08:00:04.000000Z"
	p, err := l.ExportProof(ctx, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if p.TotalEntries != 3 {
		t.Fatalf("expected entries 2..4, got %d entries", p.TotalEntries)
	}
	if p.Entries[0].Sequence != 2 || p.Entries[2].Sequence != 4 {
		t.Errorf("range: got sequences %v, want [2 3 4]", sequences(p.Entries))
	}
	if p.FilterStart == nil || *p.FilterStart != start {
		t.Errorf("filter start: got %v, want %q", p.FilterStart, start)
	}
	if p.FilterEnd == nil || *p.FilterEnd != end {
		t.Errorf("filter end: got %v, want %q", p.FilterEnd, end)
	}
}

func TestExportProof_hashIgnoresExportTime(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	appendThree(t, l)

	first, err := l.ExportProof(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.ExportProof(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}

	if first.ExportTimestamp == second.ExportTimestamp {
		t.Fatal("clock did not advance between exports; test setup broken")
	}
	if first.ProofHash != second.ProofHash {
		t.Errorf("same content must seal to the same proof hash: %q vs %q", first.ProofHash, second.ProofHash)
	}
}

func TestExportProof_hashTracksContent(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	appendThree(t, l)

	full, err := l.ExportProof(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	partial, err := l.ExportProof(ctx, "2024-06-01T08:00:02.000000Z", "")
	if err != nil {
		t.Fatal(err)
	}
	if full.ProofHash == partial.ProofHash {
		t.Error("different entry sets must not share a proof hash")
	}

	if _, err := l.Append(ctx, ledger.AppendInput{ActionTag: "expense"}); err != nil {
		t.Fatal(err)
	}
	grown, err := l.ExportProof(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if grown.ProofHash == full.ProofHash {
		t.Error("proof hash must change when the chain grows")
	}
}

func TestExportProof_hashRecomputableOffline(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	appendThree(t, l)

	p, err := l.ExportProof(ctx, "2024-06-01T08:00:01.000000Z", "")
	if err != nil {
		t.Fatal(err)
	}

	// A third party rebuilds the attested content from the document fields
	// and hashes its canonical form; export_timestamp and proof_hash itself
	// stay out of the input.
	content := map[string]any{
		"filter_start":      p.FilterStart,
		"filter_end":        p.FilterEnd,
		"total_entries":     p.TotalEntries,
		"entries":           p.Entries,
		"verification_info": p.VerificationInfo,
	}
	canonical, err := ledger.MarshalCanonical(content)
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(canonical)
	if want := hex.EncodeToString(sum[:]); p.ProofHash != want {
		t.Errorf("proof hash: got %q, want recomputed %q", p.ProofHash, want)
	}
}

func TestExportProof_entriesVerifyStandalone(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	for i := 0; i < 4; i++ {
		in := ledger.AppendInput{ActionTag: "refill_transaction", Payload: map[string]any{"i": i}}
		if i%2 == 0 {
			in.ActorRef = actor(int64(i))
		}
		if _, err := l.Append(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	p, err := l.ExportProof(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}

	// Every exported entry must recompute from its own stored fields, and
	// consecutive entries must link, with no access to the live store.
	for i, e := range p.Entries {
		input := e.Timestamp + "|" + e.PrevDigest + "|" + actorString(e.ActorRef) + "|" + e.PayloadEnvelope
		sum := sha256.Sum256([]byte(input))
		if got := hex.EncodeToString(sum[:]); got != e.Digest {
			t.Errorf("entry %d digest does not recompute: got %q, want %q", e.Sequence, got, e.Digest)
		}
		if i > 0 && e.PrevDigest != p.Entries[i-1].Digest {
			t.Errorf("entry %d does not link to entry %d", e.Sequence, p.Entries[i-1].Sequence)
		}
	}
	if p.Entries[0].PrevDigest != ledger.GenesisDigest {
		t.Errorf("first exported entry links to %q, want GenesisDigest", p.Entries[0].PrevDigest)
	}
}

func TestExportProof_jsonShape(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	appendThree(t, l)

	p, err := l.ExportProof(ctx, "", "2024-06-01T08:00:02.000000Z")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{
		"export_timestamp", "filter_start", "filter_end",
		"total_entries", "entries", "verification_info", "proof_hash",
	} {
		if _, ok := doc[key]; !ok {
			t.Errorf("proof document missing %q", key)
		}
	}
	if string(doc["filter_start"]) != "null" {
		t.Errorf("unbounded filter_start: got %s, want null", doc["filter_start"])
	}
	if string(doc["filter_end"]) == "null" {
		t.Error("bounded filter_end serialized as null")
	}
}

func actorString(ref *int64) string {
	if ref == nil {
		return ""
	}
	return strconv.FormatInt(*ref, 10)
}
