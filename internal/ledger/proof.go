package ledger

import (
	"fmt"
	"time"
)

// VerificationInfo names the hash algorithm and the exact field-concatenation
// format of entry digests, so a proof is self-describing: a verifier needs
// nothing beyond the proof document to recheck it.
type VerificationInfo struct {
	HashAlgorithm string `json:"hash_algorithm"`
	PayloadFormat string `json:"payload_format"`
}

// Proof is an exportable, independently verifiable slice of the chain.
//
// ProofHash is the SHA-256 of the canonical encoding of the proof object
// with proof_hash and export_timestamp removed. Excluding the export
// timestamp makes proofs content-addressed: exporting the same unchanged
// range twice yields byte-identical proof hashes no matter when the exports
// ran.
type Proof struct {
	ExportTimestamp  string           `json:"export_timestamp"`
	FilterStart      *string          `json:"filter_start"`
	FilterEnd        *string          `json:"filter_end"`
	TotalEntries     int              `json:"total_entries"`
	Entries          []Entry          `json:"entries"`
	VerificationInfo VerificationInfo `json:"verification_info"`
	ProofHash        string           `json:"proof_hash"`
}

func defaultVerificationInfo() VerificationInfo {
	return VerificationInfo{
		HashAlgorithm: "SHA-256",
		PayloadFormat: "timestamp|prev_hash|actor_id|data_text",
	}
}

// buildProof assembles and seals a proof over entries already selected and
// ordered by ascending sequence.
func buildProof(entries []Entry, start, end string, exportedAt time.Time) (*Proof, error) {
	if entries == nil {
		entries = []Entry{}
	}
	p := &Proof{
		ExportTimestamp:  FormatTimestamp(exportedAt),
		FilterStart:      optionalBound(start),
		FilterEnd:        optionalBound(end),
		TotalEntries:     len(entries),
		Entries:          entries,
		VerificationInfo: defaultVerificationInfo(),
	}
	hash, err := hashProof(p)
	if err != nil {
		return nil, err
	}
	p.ProofHash = hash
	return p, nil
}

// hashProof computes the proof seal over the attested content fields.
func hashProof(p *Proof) (string, error) {
	content := map[string]any{
		"filter_start":      p.FilterStart,
		"filter_end":        p.FilterEnd,
		"total_entries":     p.TotalEntries,
		"entries":           p.Entries,
		"verification_info": p.VerificationInfo,
	}
	canonical, err := MarshalCanonical(content)
	if err != nil {
		return "", fmt.Errorf("canonicalize proof: %w", err)
	}
	return sha256Hex(canonical), nil
}

func optionalBound(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
