package patterns

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// defaultRefreshTTL is how long a loaded library is considered fresh
const defaultRefreshTTL = time.Hour

// Loader produces a compiled library
type Loader interface {
	Load(ctx context.Context) (*Library, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(ctx context.Context) (*Library, error)

// Load calls f
func (f LoaderFunc) Load(ctx context.Context) (*Library, error) {
	return f(ctx)
}

// BuiltinLoader serves the compiled-in library
func BuiltinLoader() Loader {
	return LoaderFunc(func(context.Context) (*Library, error) {
		return Builtin(), nil
	})
}

// Store owns the active pattern library and refreshes it once its TTL has elapsed
type Store struct {
	mu       sync.RWMutex
	loader   Loader
	ttl      time.Duration
	library  *Library
	loadedAt time.Time
	now      func() time.Time
}

// StoreOption configures the Store
type StoreOption func(*Store)

// WithLoader sets the loader used on refresh
func WithLoader(loader Loader) StoreOption {
	return func(s *Store) {
		if loader != nil {
			s.loader = loader
		}
	}
}

// WithTTL sets the refresh interval
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLibrary seeds the store with an already compiled library
func WithLibrary(lib *Library) StoreOption {
	return func(s *Store) {
		if lib != nil {
			s.library = lib
		}
	}
}

// NewStore creates a store seeded with the built-in library. The seed counts as stale so the
// first EnsureFresh call runs the configured loader
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		loader:  BuiltinLoader(),
		ttl:     defaultRefreshTTL,
		library: Builtin(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Library returns the active library snapshot
func (s *Store) Library() *Library {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.library
}

// LoadedAt returns when the active library was loaded; zero until the first load
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadedAt
}

// EnsureFresh reloads the library when it has never been loaded or its TTL has elapsed. A
// failed reload keeps the previous library
func (s *Store) EnsureFresh(ctx context.Context) error {
	s.mu.RLock()
	fresh := !s.loadedAt.IsZero() && s.now().Sub(s.loadedAt) < s.ttl
	s.mu.RUnlock()

	if fresh {
		return nil
	}

	return s.Reload(ctx)
}

// Reload runs the loader unconditionally
func (s *Store) Reload(ctx context.Context) error {
	lib, err := s.loader.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	// stamp failures too so a broken source is retried once per TTL rather than on every call
	s.loadedAt = s.now()

	if err != nil {
		log.Warn().Err(err).Str("version", s.library.Version).Msg("pattern library reload failed, keeping previous library")
		return err
	}

	s.library = lib

	log.Debug().Str("version", lib.Version).Int("vendors", len(lib.Vendors)).Int("signatures", lib.SignatureCount()).Msg("pattern library loaded")

	return nil
}
