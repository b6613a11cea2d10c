package ledger

import "encoding/json"

// Discrepancy kinds reported by Verify.
const (
	KindPrevDigestMismatch = "prev_hash_mismatch"
	KindDigestMismatch     = "hash_mismatch"
	KindInvalidJSON        = "invalid_json"
	KindInvalidStructure   = "invalid_json_structure"
)

// Discrepancy describes one integrity violation found during verification.
// A single entry can produce more than one discrepancy (for example a broken
// link and a recomputation mismatch).
type Discrepancy struct {
	Sequence int64  `json:"sequence"`
	Kind     string `json:"kind"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Data     string `json:"data,omitempty"`
}

// chainWalker accumulates discrepancies across a full ascending walk of the
// chain. It never stops early: every entry is checked and every fault is
// reported, so one tampered row cannot mask problems elsewhere.
type chainWalker struct {
	expectedPrev string
	found        []Discrepancy
}

func newChainWalker() *chainWalker {
	return &chainWalker{expectedPrev: GenesisDigest}
}

// check validates one entry against the running chain state. After the entry
// is checked, its *stored* digest becomes the expected predecessor for the
// next entry, so a single corrupted row does not cascade into false positives
// on every row after it.
func (w *chainWalker) check(e Entry) {
	if e.PrevDigest != w.expectedPrev {
		w.found = append(w.found, Discrepancy{
			Sequence: e.Sequence,
			Kind:     KindPrevDigestMismatch,
			Expected: w.expectedPrev,
			Actual:   e.PrevDigest,
		})
	}

	computed := computeDigest(e.Timestamp, e.PrevDigest, e.ActorRef, e.PayloadEnvelope)
	if e.Digest != computed {
		w.found = append(w.found, Discrepancy{
			Sequence: e.Sequence,
			Kind:     KindDigestMismatch,
			Expected: computed,
			Actual:   e.Digest,
		})
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal([]byte(e.PayloadEnvelope), &env); err != nil {
		w.found = append(w.found, Discrepancy{
			Sequence: e.Sequence,
			Kind:     KindInvalidJSON,
			Data:     truncateEnvelope(e.PayloadEnvelope),
		})
	} else if _, ok := env["action_tag"]; !ok {
		w.found = append(w.found, Discrepancy{
			Sequence: e.Sequence,
			Kind:     KindInvalidStructure,
			Data:     truncateEnvelope(e.PayloadEnvelope),
		})
	} else if _, ok := env["payload"]; !ok {
		w.found = append(w.found, Discrepancy{
			Sequence: e.Sequence,
			Kind:     KindInvalidStructure,
			Data:     truncateEnvelope(e.PayloadEnvelope),
		})
	}

	w.expectedPrev = e.Digest
}

// discrepancies returns the collected findings; never nil, so an intact
// chain serializes as an empty JSON array rather than null.
func (w *chainWalker) discrepancies() []Discrepancy {
	if w.found == nil {
		return []Discrepancy{}
	}
	return w.found
}

func truncateEnvelope(s string) string {
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
