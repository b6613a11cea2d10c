package receipts_test

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hydrohub/hydrohub/internal/receipts"
)

func newTestStore(t *testing.T, opts ...receipts.Option) *receipts.Store {
	t.Helper()
	s, err := receipts.NewStore(t.TempDir(), zap.NewNop(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func fixedClock() func() time.Time {
	at := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestSave_namesFileByTimestampAndHash(t *testing.T) {
	s := newTestStore(t, receipts.WithClock(fixedClock()))

	content := []byte("receipt body")
	path, hash, err := s.Save("IMG_4231.JPG", content)
	if err != nil {
		t.Fatal(err)
	}

	sum := sha256.Sum256(content)
	wantHash := hex.EncodeToString(sum[:])
	if hash != wantHash {
		t.Errorf("hash: got %q, want %q", hash, wantHash)
	}

	wantName := "20240601_083000_" + wantHash[:16] + ".jpg"
	if filepath.Base(path) != wantName {
		t.Errorf("stored name: got %q, want %q", filepath.Base(path), wantName)
	}

	stored, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(stored) != "receipt body" {
		t.Errorf("stored content mismatch: %q", stored)
	}
}

func TestSave_reusesExistingContent(t *testing.T) {
	s := newTestStore(t)

	content := []byte("same receipt")
	first, hash1, err := s.Save("a.png", content)
	if err != nil {
		t.Fatal(err)
	}
	second, hash2, err := s.Save("b.png", content)
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Errorf("expected reuse of %q, got new file %q", first, second)
	}
	if hash1 != hash2 {
		t.Errorf("hashes differ: %q vs %q", hash1, hash2)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Files != 1 {
		t.Errorf("expected 1 stored file, got %d", stats.Files)
	}
}

func TestSave_rejectsUnknownExtension(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"receipt.exe", "receipt", "receipt."} {
		if _, _, err := s.Save(name, []byte("x")); !errors.Is(err, receipts.ErrExtension) {
			t.Errorf("%q: expected ErrExtension, got %v", name, err)
		}
	}
}

func TestSave_rejectsOversizedFile(t *testing.T) {
	s := newTestStore(t, receipts.WithMaxSizeMB(1))

	big := strings.Repeat("a", 1024*1024+1)
	_, _, err := s.Save("big.pdf", []byte(big))
	if !errors.Is(err, receipts.ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestVerify_detectsTamper(t *testing.T) {
	s := newTestStore(t)

	path, hash, err := s.Save("r.pdf", []byte("original"))
	if err != nil {
		t.Fatal(err)
	}
	if !s.Verify(path, hash) {
		t.Fatal("verify failed for untouched file")
	}

	if err := os.WriteFile(path, []byte("edited"), 0o644); err != nil {
		t.Fatal(err)
	}
	if s.Verify(path, hash) {
		t.Error("verify passed for modified file")
	}
	if s.Verify(filepath.Join(filepath.Dir(path), "missing.pdf"), hash) {
		t.Error("verify passed for missing file")
	}
}

func TestStats_countsFilesAndBytes(t *testing.T) {
	s := newTestStore(t)

	if _, _, err := s.Save("a.jpg", []byte("12345")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Save("b.jpg", []byte("6789")); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Files != 2 || stats.TotalBytes != 9 {
		t.Errorf("stats: got %+v", stats)
	}
}
