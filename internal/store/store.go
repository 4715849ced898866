// Package store persists classification records and serves them as a time-bounded cache
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/theopenlane/detectify/internal/types"
)

// Store persists one record per URL. Put overwrites any previous record for the URL
type Store interface {
	Get(ctx context.Context, url string) (types.Record, error)
	Put(ctx context.Context, rec types.Record) error
	Delete(ctx context.Context, url string) error
	List(ctx context.Context) ([]types.Record, error)
}

// MemoryStore is a concurrency-safe in-process store
type MemoryStore struct {
	// mu guards records
	mu sync.RWMutex
	// records maps URLs to their latest record
	records map[string]types.Record
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]types.Record)}
}

// Get returns the record for url or ErrNotFound
func (s *MemoryStore) Get(_ context.Context, url string) (types.Record, error) {
	s.mu.RLock()
	rec, ok := s.records[url]
	s.mu.RUnlock()

	if !ok {
		return types.Record{}, ErrNotFound
	}

	return cloneRecord(rec), nil
}

// Put stores rec, replacing any previous record for the same URL
func (s *MemoryStore) Put(_ context.Context, rec types.Record) error {
	if strings.TrimSpace(rec.URL) == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	s.records[rec.URL] = cloneRecord(rec)
	s.mu.Unlock()

	return nil
}

// Delete removes the record for url
func (s *MemoryStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[url]; !ok {
		return ErrNotFound
	}

	delete(s.records, url)

	return nil
}

// List returns every record ordered by URL
func (s *MemoryStore) List(_ context.Context) ([]types.Record, error) {
	s.mu.RLock()
	out := make([]types.Record, 0, len(s.records))

	for _, rec := range s.records {
		out = append(out, cloneRecord(rec))
	}
	s.mu.RUnlock()

	sortRecords(out)

	return out, nil
}

func sortRecords(recs []types.Record) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].URL < recs[j].URL })
}

// cloneRecord copies the slice and pointer fields so callers cannot mutate stored state
func cloneRecord(rec types.Record) types.Record {
	out := rec
	out.ChatbotSolutions = append([]string{}, rec.ChatbotSolutions...)

	if rec.Confidence != nil {
		v := *rec.Confidence
		out.Confidence = &v
	}

	if rec.VerificationStatus != nil {
		v := *rec.VerificationStatus
		out.VerificationStatus = &v
	}

	if rec.Error != nil {
		v := *rec.Error
		out.Error = &v
	}

	return out
}
