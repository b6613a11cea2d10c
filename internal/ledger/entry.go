package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// GenesisDigest is the well-known predecessor digest of the first entry
// (64 hex zeros). It is a constant value, not a stored row; an empty chain
// has no entries and its head is this constant.
const GenesisDigest = "0000000000000000000000000000000000000000000000000000000000000000"

// timestampFormat renders append timestamps as fixed-width UTC instants with
// microsecond precision. Fixed width keeps lexicographic order equal to
// chronological order for the stored strings, which the time-range filters
// rely on.
const timestampFormat = "2006-01-02T15:04:05.000000Z"

// Entry is a single immutable record in the audit chain. All fields are
// value snapshots; an Entry never carries a reference to the store it was
// read from, and ActorRef is a weak reference that may point at a user who
// has since been deleted.
type Entry struct {
	Sequence        int64  `json:"sequence"`
	Timestamp       string `json:"timestamp"`
	PrevDigest      string `json:"prev_digest"`
	Digest          string `json:"digest"`
	ActorRef        *int64 `json:"actor_ref"`
	ActionTag       string `json:"action_tag"`
	PayloadEnvelope string `json:"payload_envelope"`
}

// Envelope is the parsed form of Entry.PayloadEnvelope.
type Envelope struct {
	ActionTag    string          `json:"action_tag"`
	Payload      json.RawMessage `json:"payload"`
	HumanMessage string          `json:"human_message"`
	Timestamp    string          `json:"timestamp"`
}

// Envelope parses the stored canonical envelope text.
func (e *Entry) Envelope() (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(e.PayloadEnvelope), &env); err != nil {
		return nil, fmt.Errorf("parse payload envelope: %w", err)
	}
	return &env, nil
}

// AppendInput describes one event to be recorded. ActorRef is nil for
// system-initiated events. Payload may be any JSON-representable value;
// the chain treats it opaquely beyond requiring canonical encodability.
type AppendInput struct {
	ActorRef     *int64
	ActionTag    string
	Payload      any
	HumanMessage string
}

// computeDigest binds an entry to its content and predecessor:
// SHA-256 over "timestamp|prev_digest|actor_or_empty|envelope", lowercase
// hex. Pure function; the verifier and third-party proof checkers recompute
// it from stored fields alone.
func computeDigest(timestamp, prevDigest string, actorRef *int64, envelope string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", timestamp, prevDigest, actorRefString(actorRef), envelope)
	return hex.EncodeToString(h.Sum(nil))
}

func actorRefString(ref *int64) string {
	if ref == nil {
		return ""
	}
	return strconv.FormatInt(*ref, 10)
}

// sha256Hex returns the hex-encoded SHA-256 digest of data.
func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// FormatTimestamp renders t in the chain's timestamp encoding. Callers
// building range bounds for Entries or ExportProof use this so their
// bounds compare correctly against stored values.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

// buildEntry constructs the next entry from the chain tail. It captures the
// timestamp, canonicalizes the envelope and computes the digest, but does not
// persist anything; callers insert the result inside their own critical
// section.
func buildEntry(now time.Time, sequence int64, prevDigest string, in AppendInput) (*Entry, error) {
	if in.ActionTag == "" {
		return nil, errors.New("action tag is required")
	}

	ts := FormatTimestamp(now)
	envelope := map[string]any{
		"action_tag":    in.ActionTag,
		"payload":       in.Payload,
		"human_message": in.HumanMessage,
		"timestamp":     ts,
	}
	envJSON, err := MarshalCanonical(envelope)
	if err != nil {
		return nil, fmt.Errorf("canonicalize envelope: %w", err)
	}

	e := &Entry{
		Sequence:        sequence,
		Timestamp:       ts,
		PrevDigest:      prevDigest,
		ActorRef:        in.ActorRef,
		ActionTag:       in.ActionTag,
		PayloadEnvelope: string(envJSON),
	}
	e.Digest = computeDigest(e.Timestamp, e.PrevDigest, e.ActorRef, e.PayloadEnvelope)
	return e, nil
}
