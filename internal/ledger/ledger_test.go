package ledger_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hydrohub/hydrohub/internal/ledger"
)

var ctx = context.Background()

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

// stepClock returns a deterministic clock that advances one second per call,
// starting at 2024-06-01T08:00:01Z.
func stepClock() func() time.Time {
	var mu sync.Mutex
	var n int
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func actor(id int64) *int64 { return &id }

func TestAppend_firstEntryChainsFromGenesis(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))

	e, err := l.Append(ctx, ledger.AppendInput{
		ActionTag:    "system_event",
		Payload:      map[string]any{"event": "startup"},
		HumanMessage: "System event: startup",
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.Sequence != 1 {
		t.Errorf("first sequence: got %d, want 1", e.Sequence)
	}
	if e.PrevDigest != ledger.GenesisDigest {
		t.Errorf("first prev digest: got %q, want GenesisDigest", e.PrevDigest)
	}
	if !hexDigest.MatchString(e.Digest) {
		t.Errorf("digest is not 64 lowercase hex chars: %q", e.Digest)
	}
	if e.Timestamp != "2024-06-01T08:00:01.000000Z" {
		t.Errorf("timestamp: got %q, want fixed-width UTC instant", e.Timestamp)
	}
	if e.ActorRef != nil {
		t.Errorf("actor ref: got %v, want nil for system event", *e.ActorRef)
	}
}

func TestAppend_linksToPredecessor(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))

	e1, err := l.Append(ctx, ledger.AppendInput{ActionTag: "refill_transaction", Payload: map[string]any{"id": 1}})
	if err != nil {
		t.Fatal(err)
	}
	e2, err := l.Append(ctx, ledger.AppendInput{ActionTag: "expense", Payload: map[string]any{"id": 2}})
	if err != nil {
		t.Fatal(err)
	}

	if e2.PrevDigest != e1.Digest {
		t.Errorf("chain broken: e2.PrevDigest=%q, want e1.Digest=%q", e2.PrevDigest, e1.Digest)
	}
	if e2.Sequence != e1.Sequence+1 {
		t.Errorf("sequence: got %d after %d, want contiguous", e2.Sequence, e1.Sequence)
	}
}

func TestAppend_digestRecomputableFromStoredFields(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))

	e, err := l.Append(ctx, ledger.AppendInput{
		ActorRef:     actor(7),
		ActionTag:    "expense",
		Payload:      map[string]any{"amount": 150, "category": "Filters"},
		HumanMessage: "Expense: Filters - ₱150.00",
	})
	if err != nil {
		t.Fatal(err)
	}

	sum := sha256.Sum256([]byte(e.Timestamp + "|" + e.PrevDigest + "|7|" + e.PayloadEnvelope))
	if want := hex.EncodeToString(sum[:]); e.Digest != want {
		t.Errorf("digest: got %q, want recomputed %q", e.Digest, want)
	}
}

func TestAppend_nilActorHashesAsEmptyString(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))

	e, err := l.Append(ctx, ledger.AppendInput{ActionTag: "system_event", Payload: nil})
	if err != nil {
		t.Fatal(err)
	}

	sum := sha256.Sum256([]byte(e.Timestamp + "|" + e.PrevDigest + "||" + e.PayloadEnvelope))
	if want := hex.EncodeToString(sum[:]); e.Digest != want {
		t.Errorf("digest with nil actor: got %q, want %q", e.Digest, want)
	}
}

func TestAppend_envelopeIsCanonical(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))

	e, err := l.Append(ctx, ledger.AppendInput{
		ActorRef:  actor(3),
		ActionTag: "refill_transaction",
		// Keys deliberately out of order; literal 350.00 must survive.
		Payload:      map[string]any{"total": jsonNumber("350.00"), "gallons": 14},
		HumanMessage: "Refill transaction #1: 14 gallons, ₱350.00",
	})
	if err != nil {
		t.Fatal(err)
	}

	want := fmt.Sprintf(`{"action_tag":"refill_transaction","human_message":"Refill transaction #1: 14 gallons, ₱350.00","payload":{"gallons":14,"total":350.00},"timestamp":%q}`, e.Timestamp)
	if e.PayloadEnvelope != want {
		t.Errorf("envelope:\n got %s\nwant %s", e.PayloadEnvelope, want)
	}

	env, err := e.Envelope()
	if err != nil {
		t.Fatal(err)
	}
	if env.ActionTag != "refill_transaction" {
		t.Errorf("envelope action tag: got %q", env.ActionTag)
	}
	if env.Timestamp != e.Timestamp {
		t.Errorf("envelope timestamp %q != entry timestamp %q", env.Timestamp, e.Timestamp)
	}
}

func TestAppend_deterministicWithFixedClock(t *testing.T) {
	in := ledger.AppendInput{
		ActorRef:     actor(5),
		ActionTag:    "inventory_change",
		Payload:      map[string]any{"delta": -2, "reason": "damaged"},
		HumanMessage: "Inventory change: -2 containers",
	}

	a := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	b := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))

	ea, err := a.Append(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	eb, err := b.Append(ctx, in)
	if err != nil {
		t.Fatal(err)
	}

	if ea.Digest != eb.Digest {
		t.Errorf("same input and clock produced different digests: %q vs %q", ea.Digest, eb.Digest)
	}
	if ea.PayloadEnvelope != eb.PayloadEnvelope {
		t.Errorf("same input produced different envelopes:\n %s\n %s", ea.PayloadEnvelope, eb.PayloadEnvelope)
	}
}

func TestAppend_duplicateTimestampsAllowed(t *testing.T) {
	frozen := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := ledger.NewMemoryLedger(ledger.WithClock(func() time.Time { return frozen }))

	e1, err := l.Append(ctx, ledger.AppendInput{ActionTag: "user_action", Payload: map[string]any{"n": 1}})
	if err != nil {
		t.Fatal(err)
	}
	e2, err := l.Append(ctx, ledger.AppendInput{ActionTag: "user_action", Payload: map[string]any{"n": 2}})
	if err != nil {
		t.Fatal(err)
	}

	if e1.Timestamp != e2.Timestamp {
		t.Fatalf("expected identical timestamps, got %q and %q", e1.Timestamp, e2.Timestamp)
	}
	if e1.Digest == e2.Digest {
		t.Error("entries with identical timestamps must still have distinct digests")
	}
	found, err := l.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Errorf("verify reported %d discrepancies on a valid chain: %+v", len(found), found)
	}
}

func TestAppend_rejectsEmptyActionTag(t *testing.T) {
	l := ledger.NewMemoryLedger()

	if _, err := l.Append(ctx, ledger.AppendInput{Payload: map[string]any{"x": 1}}); err == nil {
		t.Fatal("expected error for empty action tag")
	}
	n, err := l.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("failed append must leave no entry, got %d", n)
	}
}

func TestAppend_rejectsNonCanonicalPayload(t *testing.T) {
	l := ledger.NewMemoryLedger()

	_, err := l.Append(ctx, ledger.AppendInput{ActionTag: "expense", Payload: math.NaN()})
	if !errors.Is(err, ledger.ErrNotCanonical) {
		t.Fatalf("expected ErrNotCanonical, got %v", err)
	}
	n, err := l.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("failed append must leave no entry, got %d", n)
	}
}

func TestAppend_concurrentWritersKeepChainIntact(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))

	const writers = 50
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Append(ctx, ledger.AppendInput{
				ActionTag: "refill_transaction",
				Payload:   map[string]any{"worker": i},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	n, err := l.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != writers {
		t.Fatalf("expected %d entries, got %d", writers, n)
	}

	// Sequences must be gapless and every entry must link to its predecessor.
	prev := ledger.GenesisDigest
	seen := make(map[string]bool, writers)
	for seq := int64(1); seq <= writers; seq++ {
		e, err := l.Get(ctx, seq)
		if err != nil {
			t.Fatalf("entry %d: %v", seq, err)
		}
		if e.PrevDigest != prev {
			t.Errorf("entry %d: prev digest %q, want %q", seq, e.PrevDigest, prev)
		}
		if seen[e.Digest] {
			t.Errorf("entry %d: duplicate digest %q", seq, e.Digest)
		}
		seen[e.Digest] = true
		prev = e.Digest
	}

	found, err := l.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Errorf("verify after concurrent appends: %+v", found)
	}
}

func TestGet_notFound(t *testing.T) {
	l := ledger.NewMemoryLedger()
	if _, err := l.Append(ctx, ledger.AppendInput{ActionTag: "system_event"}); err != nil {
		t.Fatal(err)
	}

	for _, seq := range []int64{0, -1, 2, 99} {
		if _, err := l.Get(ctx, seq); !errors.Is(err, ledger.ErrNotFound) {
			t.Errorf("Get(%d): expected ErrNotFound, got %v", seq, err)
		}
	}
}

func TestHead_trailsLatestEntry(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))

	head, err := l.Head(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if head != ledger.GenesisDigest {
		t.Errorf("empty chain head: got %q, want GenesisDigest", head)
	}

	var last *ledger.Entry
	for i := 0; i < 3; i++ {
		last, err = l.Append(ctx, ledger.AppendInput{ActionTag: "user_action", Payload: map[string]any{"i": i}})
		if err != nil {
			t.Fatal(err)
		}
	}
	head, err = l.Head(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if head != last.Digest {
		t.Errorf("head: got %q, want %q", head, last.Digest)
	}
}

func TestEntries_newestFirst(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	for i := 0; i < 3; i++ {
		if _, err := l.Append(ctx, ledger.AppendInput{ActionTag: "expense", Payload: map[string]any{"i": i}}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := l.Entries(ctx, ledger.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []int64{3, 2, 1} {
		if entries[i].Sequence != want {
			t.Errorf("entries[%d].Sequence: got %d, want %d", i, entries[i].Sequence, want)
		}
	}
}

func TestEntries_filterByActionTag(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	tags := []string{"refill_transaction", "expense", "refill_transaction", "expense", "inventory_change"}
	for i, tag := range tags {
		if _, err := l.Append(ctx, ledger.AppendInput{ActionTag: tag, Payload: map[string]any{"i": i}}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := l.Entries(ctx, ledger.Filter{ActionTag: "expense"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 expense entries, got %d", len(entries))
	}
	if entries[0].Sequence != 4 || entries[1].Sequence != 2 {
		t.Errorf("expense sequences: got [%d %d], want [4 2]", entries[0].Sequence, entries[1].Sequence)
	}
	for _, e := range entries {
		if e.ActionTag != "expense" {
			t.Errorf("unexpected tag %q in filtered result", e.ActionTag)
		}
	}
}

func TestEntries_filterByActor(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	for _, ref := range []*int64{actor(1), actor(2), nil, actor(1)} {
		if _, err := l.Append(ctx, ledger.AppendInput{ActorRef: ref, ActionTag: "user_action"}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := l.Entries(ctx, ledger.Filter{ActorRef: actor(1)})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for actor 1, got %d", len(entries))
	}
	if entries[0].Sequence != 4 || entries[1].Sequence != 1 {
		t.Errorf("actor 1 sequences: got [%d %d], want [4 1]", entries[0].Sequence, entries[1].Sequence)
	}
}

func TestEntries_limitAndOffset(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	for i := 0; i < 5; i++ {
		if _, err := l.Append(ctx, ledger.AppendInput{ActionTag: "expense", Payload: map[string]any{"i": i}}); err != nil {
			t.Fatal(err)
		}
	}

	page1, err := l.Entries(ctx, ledger.Filter{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page1) != 2 || page1[0].Sequence != 5 || page1[1].Sequence != 4 {
		t.Errorf("page 1: got %+v, want sequences [5 4]", sequences(page1))
	}

	page2, err := l.Entries(ctx, ledger.Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page2) != 2 || page2[0].Sequence != 3 || page2[1].Sequence != 2 {
		t.Errorf("page 2: got %+v, want sequences [3 2]", sequences(page2))
	}
}

func TestEntries_timeRangeInclusive(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	for i := 0; i < 5; i++ {
		if _, err := l.Append(ctx, ledger.AppendInput{ActionTag: "expense", Payload: map[string]any{"i": i}}); err != nil {
			t.Fatal(err)
		}
	}

	// stepClock stamps entry n at 08:00:0n; bounds land exactly on entries
	// 2 and 4, which must both be included.
	entries, err := l.Entries(ctx, ledger.Filter{
		Start: "2024-06-01T08:00:02.000000Z",
		End:   "2024-06-01T08:00:04.000000Z",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := sequences(entries); len(got) != 3 || got[0] != 4 || got[1] != 3 || got[2] != 2 {
		t.Errorf("range query sequences: got %v, want [4 3 2]", got)
	}
}

func sequences(entries []ledger.Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.Sequence
	}
	return out
}

func TestVerify_intactChain(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	for i := 0; i < 10; i++ {
		if _, err := l.Append(ctx, ledger.AppendInput{
			ActorRef:  actor(int64(i % 3)),
			ActionTag: "refill_transaction",
			Payload:   map[string]any{"i": i},
		}); err != nil {
			t.Fatal(err)
		}
	}

	found, err := l.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if found == nil {
		t.Fatal("discrepancy slice must not be nil")
	}
	if len(found) != 0 {
		t.Errorf("intact chain reported discrepancies: %+v", found)
	}
}

func TestVerify_emptyChain(t *testing.T) {
	l := ledger.NewMemoryLedger()
	found, err := l.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Errorf("empty chain reported discrepancies: %+v", found)
	}
}

func appendThree(t *testing.T, l *ledger.MemoryLedger) {
	t.Helper()
	for i := 0; i < 3; i++ {
		if _, err := l.Append(ctx, ledger.AppendInput{
			ActorRef:  actor(1),
			ActionTag: "expense",
			Payload:   map[string]any{"i": i},
		}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestVerify_detectsEnvelopeTamper(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	appendThree(t, l)

	// Well-formed replacement, so only the digest recomputation should trip.
	l.Tamper(2, func(e *ledger.Entry) {
		e.PayloadEnvelope = `{"action_tag":"expense","payload":{"amount":9999}}`
	})

	found, err := l.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 {
		t.Fatalf("expected exactly 1 discrepancy, got %d: %+v", len(found), found)
	}
	d := found[0]
	if d.Sequence != 2 || d.Kind != ledger.KindDigestMismatch {
		t.Errorf("got {seq=%d kind=%q}, want {seq=2 kind=%q}", d.Sequence, d.Kind, ledger.KindDigestMismatch)
	}
}

func TestVerify_detectsDigestTamper(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	appendThree(t, l)

	var original string
	forged := strings.Repeat("ab", 32)
	l.Tamper(2, func(e *ledger.Entry) {
		original = e.Digest
		e.Digest = forged
	})

	found, err := l.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Entry 2 no longer matches its own content, and entry 3 still points at
	// the original digest, which no longer matches the stored one.
	if len(found) != 2 {
		t.Fatalf("expected 2 discrepancies, got %d: %+v", len(found), found)
	}
	if found[0].Sequence != 2 || found[0].Kind != ledger.KindDigestMismatch {
		t.Errorf("first: got {seq=%d kind=%q}, want {seq=2 kind=%q}", found[0].Sequence, found[0].Kind, ledger.KindDigestMismatch)
	}
	if found[1].Sequence != 3 || found[1].Kind != ledger.KindPrevDigestMismatch {
		t.Errorf("second: got {seq=%d kind=%q}, want {seq=3 kind=%q}", found[1].Sequence, found[1].Kind, ledger.KindPrevDigestMismatch)
	}
	if found[1].Expected != forged || found[1].Actual != original {
		t.Errorf("link report: expected=%q actual=%q, want forged/original digests", found[1].Expected, found[1].Actual)
	}
}

func TestVerify_detectsPrevDigestTamper(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	appendThree(t, l)

	l.Tamper(2, func(e *ledger.Entry) {
		e.PrevDigest = strings.Repeat("cd", 32)
	})

	found, err := l.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// The stored link is wrong and the digest no longer recomputes, but the
	// damage must not cascade to entry 3.
	kinds := kindsAt(found, 2)
	if len(found) != 2 || !kinds[ledger.KindPrevDigestMismatch] || !kinds[ledger.KindDigestMismatch] {
		t.Errorf("got %+v, want prev and digest mismatches at sequence 2 only", found)
	}
}

func TestVerify_detectsTimestampTamper(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	appendThree(t, l)

	l.Tamper(2, func(e *ledger.Entry) {
		e.Timestamp = "2024-06-01T09:59:59.000000Z"
	})

	found, err := l.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].Sequence != 2 || found[0].Kind != ledger.KindDigestMismatch {
		t.Errorf("got %+v, want single digest mismatch at sequence 2", found)
	}
}

func TestVerify_detectsActorTamper(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	appendThree(t, l)

	l.Tamper(2, func(e *ledger.Entry) {
		e.ActorRef = actor(99)
	})

	found, err := l.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].Sequence != 2 || found[0].Kind != ledger.KindDigestMismatch {
		t.Errorf("got %+v, want single digest mismatch at sequence 2", found)
	}
}

func TestVerify_reportsInvalidJSON(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	appendThree(t, l)

	l.Tamper(2, func(e *ledger.Entry) {
		e.PayloadEnvelope = "{corrupted"
	})

	found, err := l.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	kinds := kindsAt(found, 2)
	if !kinds[ledger.KindInvalidJSON] {
		t.Errorf("missing invalid_json finding: %+v", found)
	}
	if !kinds[ledger.KindDigestMismatch] {
		t.Errorf("missing digest mismatch finding: %+v", found)
	}
	for _, d := range found {
		if d.Kind == ledger.KindInvalidJSON && d.Data != "{corrupted" {
			t.Errorf("invalid_json data: got %q, want raw envelope text", d.Data)
		}
	}
}

func TestVerify_reportsMissingEnvelopeKeys(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	appendThree(t, l)

	// Parseable JSON, but the action_tag key is gone.
	l.Tamper(2, func(e *ledger.Entry) {
		e.PayloadEnvelope = `{"human_message":"x","payload":{}}`
	})

	found, err := l.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if kinds := kindsAt(found, 2); !kinds[ledger.KindInvalidStructure] {
		t.Errorf("missing invalid_json_structure finding: %+v", found)
	}
}

func TestVerify_truncatesLongEnvelopeInReport(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	appendThree(t, l)

	long := strings.Repeat("x", 150)
	l.Tamper(2, func(e *ledger.Entry) {
		e.PayloadEnvelope = long
	})

	found, err := l.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range found {
		if d.Kind != ledger.KindInvalidJSON {
			continue
		}
		if want := long[:100] + "..."; d.Data != want {
			t.Errorf("truncated data: got %d chars %q, want first 100 plus ellipsis", len(d.Data), d.Data)
		}
		return
	}
	t.Errorf("no invalid_json finding in %+v", found)
}

func kindsAt(found []ledger.Discrepancy, sequence int64) map[string]bool {
	kinds := make(map[string]bool)
	for _, d := range found {
		if d.Sequence == sequence {
			kinds[d.Kind] = true
		}
	}
	return kinds
}

func TestStats_summarizesChain(t *testing.T) {
	l := ledger.NewMemoryLedger(ledger.WithClock(stepClock()))
	tags := []string{"refill_transaction", "expense", "refill_transaction"}
	var last *ledger.Entry
	for _, tag := range tags {
		var err error
		last, err = l.Append(ctx, ledger.AppendInput{ActionTag: tag})
		if err != nil {
			t.Fatal(err)
		}
	}

	s, err := l.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalEntries != 3 {
		t.Errorf("total: got %d, want 3", s.TotalEntries)
	}
	if s.ActionCounts["refill_transaction"] != 2 || s.ActionCounts["expense"] != 1 {
		t.Errorf("action counts: got %v", s.ActionCounts)
	}
	if s.FirstEntryTime != "2024-06-01T08:00:01.000000Z" {
		t.Errorf("first entry time: got %q", s.FirstEntryTime)
	}
	if s.LastEntryTime != last.Timestamp {
		t.Errorf("last entry time: got %q, want %q", s.LastEntryTime, last.Timestamp)
	}
	if s.LastDigest != last.Digest {
		t.Errorf("last digest: got %q, want %q", s.LastDigest, last.Digest)
	}
}

func TestStats_emptyChain(t *testing.T) {
	l := ledger.NewMemoryLedger()
	s, err := l.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalEntries != 0 {
		t.Errorf("total: got %d, want 0", s.TotalEntries)
	}
	if len(s.ActionCounts) != 0 {
		t.Errorf("action counts: got %v, want empty", s.ActionCounts)
	}
	if s.LastDigest != ledger.GenesisDigest {
		t.Errorf("last digest: got %q, want GenesisDigest", s.LastDigest)
	}
	if s.FirstEntryTime != "" || s.LastEntryTime != "" {
		t.Errorf("entry times on empty chain: got %q / %q, want empty", s.FirstEntryTime, s.LastEntryTime)
	}
}
