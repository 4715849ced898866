package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/theopenlane/detectify/internal/types"
)

// recordExt is the file extension for stored records
const recordExt = ".json"

// FileStore keeps one JSON file per URL in a directory. Writes go through a temporary file and a
// rename, so a reader never sees a partial record
type FileStore struct {
	dir string
	// mu serializes writers; readers rely on atomic renames
	mu sync.Mutex
}

// NewFileStore creates the directory if needed and returns a store rooted there
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(url string) string {
	sum := sha256.Sum256([]byte(url))

	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+recordExt)
}

// Get returns the record for url or ErrNotFound
func (s *FileStore) Get(_ context.Context, url string) (types.Record, error) {
	return readRecord(s.path(url))
}

// Put writes rec, replacing any previous record for the same URL
func (s *FileStore) Put(_ context.Context, rec types.Record) error {
	if strings.TrimSpace(rec.URL) == "" {
		return ErrEmptyKey
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "record-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp record: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("writing temp record: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("closing temp record: %w", err)
	}

	if err := os.Rename(tmpName, s.path(rec.URL)); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("committing record: %w", err)
	}

	return nil
}

// Delete removes the record for url
func (s *FileStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(url)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}

		return fmt.Errorf("deleting record: %w", err)
	}

	return nil
}

// List returns every readable record ordered by URL. Corrupt files are skipped and logged
func (s *FileStore) List(_ context.Context) ([]types.Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing store directory: %w", err)
	}

	out := make([]types.Record, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != recordExt {
			continue
		}

		rec, err := readRecord(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("skipping unreadable record")
			continue
		}

		out = append(out, rec)
	}

	sortRecords(out)

	return out, nil
}

func readRecord(path string) (types.Record, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from a hash inside the store directory
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.Record{}, ErrNotFound
		}

		return types.Record{}, fmt.Errorf("reading record: %w", err)
	}

	var rec types.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return types.Record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	return rec, nil
}
