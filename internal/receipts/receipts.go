// Package receipts stores uploaded receipt files on disk, named by content
// hash so the same document is never stored twice and any stored file can be
// checked against the hash recorded in the audit chain.
package receipts

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxSizeMB caps uploads when no explicit limit is configured.
const DefaultMaxSizeMB = 5

// allowedExtensions lists the accepted receipt file types.
var allowedExtensions = []string{"pdf", "jpg", "jpeg", "png"}

var (
	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrExtension is returned for file types outside the whitelist.
	ErrExtension = fmt.Errorf("file type must be one of: %s", strings.Join(allowedExtensions, ", "))
)

// Store is a filesystem-backed receipt store. Stored names follow
// "20060102_150405_<first 16 hex of sha256>.<ext>", so a file's identity is
// visible in its name and renames are detectable.
type Store struct {
	dir     string
	maxSize int64
	clock   func() time.Time
	logger  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxSizeMB overrides the upload size limit.
func WithMaxSizeMB(mb int) Option {
	return func(s *Store) { s.maxSize = int64(mb) * 1024 * 1024 }
}

// WithClock overrides the timestamp source used in stored names.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// NewStore creates the receipt directory if needed and returns a Store.
func NewStore(dir string, logger *zap.Logger, opts ...Option) (*Store, error) {
	s := &Store{
		dir:     dir,
		maxSize: DefaultMaxSizeMB * 1024 * 1024,
		clock:   time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create receipts directory: %w", err)
	}
	return s, nil
}

// Save validates and stores one uploaded file, returning the stored path and
// the full content hash. Content already present under the same hash is
// reused rather than written again.
func (s *Store) Save(originalName string, content []byte) (path, hash string, err error) {
	if int64(len(content)) > s.maxSize {
		return "", "", fmt.Errorf("%w: limit is %d MB", ErrFileTooLarge, s.maxSize/(1024*1024))
	}
	ext, err := extensionOf(originalName)
	if err != nil {
		return "", "", err
	}

	sum := sha256.Sum256(content)
	hash = hex.EncodeToString(sum[:])

	// Same content, same extension: reuse the existing file regardless of
	// when it was first stored.
	if existing := s.findByHash(hash, ext); existing != "" {
		return existing, hash, nil
	}

	name := fmt.Sprintf("%s_%s.%s", s.clock().UTC().Format("20060102_150405"), hash[:16], ext)
	path = filepath.Join(s.dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", "", fmt.Errorf("write receipt file: %w", err)
	}

	s.logger.Debug("receipt stored",
		zap.String("path", path),
		zap.Int("bytes", len(content)),
	)
	return path, hash, nil
}

// Verify re-hashes the stored file and compares against expectedHash. A
// missing or unreadable file counts as a failed verification.
func (s *Store) Verify(path, expectedHash string) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]) == expectedHash
}

// Stats summarizes the stored files.
type Stats struct {
	Files      int    `json:"total_files"`
	TotalBytes int64  `json:"total_size_bytes"`
	Directory  string `json:"receipts_directory"`
}

// Stats walks the receipt directory and totals file counts and sizes.
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{Directory: s.dir}
	err := filepath.WalkDir(s.dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		st.Files++
		st.TotalBytes += info.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk receipts directory: %w", err)
	}
	return st, nil
}

// findByHash looks for an already-stored file carrying the given content
// hash. Returns "" when none exists.
func (s *Store) findByHash(hash, ext string) string {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*_"+hash[:16]+"."+ext))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// extensionOf extracts and validates the lowercased file extension.
func extensionOf(name string) (string, error) {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return "", ErrExtension
	}
	ext := strings.ToLower(name[i+1:])
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return ext, nil
		}
	}
	return "", ErrExtension
}
