package patterns

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extraDefinition = `
version: custom-1
vendors:
  - name: Acme Chat
    aliases: [AcmeChat]
    scripts: ['cdn\.acmechat\.example']
false_positive_domains:
  - example-directory.com
`

func TestBuiltinCompiles(t *testing.T) {
	lib := Builtin()

	require.NotNil(t, lib)
	assert.Equal(t, builtinVersion, lib.Version)
	assert.GreaterOrEqual(t, len(lib.Vendors), 25)
	assert.Equal(t, 2, lib.GenericRequiredHits)
	assert.Equal(t, 3, lib.GenericRaisedHits)

	for _, cat := range GenericCategories {
		assert.NotEmpty(t, lib.Generic[cat], "generic category %s", cat)
	}

	name, ok := lib.ResolveVendor("zendesk chat")
	assert.True(t, ok)
	assert.Equal(t, "Zendesk", name)
}

func TestIsGenericLabel(t *testing.T) {
	assert.True(t, IsGenericLabel("Website Chatbot"))
	assert.True(t, IsGenericLabel("custom chat"))
	assert.False(t, IsGenericLabel("Intercom"))
}

func TestDenyListed(t *testing.T) {
	lib := Builtin()

	assert.True(t, lib.DenyListed("kentdentists.com"))
	assert.True(t, lib.DenyListed("www.kentdentists.com"))
	assert.False(t, lib.DenyListed("notkentdentists.com"))
	assert.False(t, lib.DenyListed("example.com"))
	assert.False(t, lib.DenyListed(""))
}

func TestCompileRejectsBadPattern(t *testing.T) {
	_, err := Compile(Definition{
		Vendors: []VendorDefinition{{Name: "Broken", Scripts: []string{`(`}}},
	})
	assert.ErrorIs(t, err, ErrInvalidPattern)

	_, err = Compile(Definition{Vendors: []VendorDefinition{{Name: "Empty"}}})
	assert.ErrorIs(t, err, ErrEmptyVendor)

	_, err = Compile(Definition{Vendors: []VendorDefinition{{Scripts: []string{"x"}}}})
	assert.ErrorIs(t, err, ErrMissingVendorName)
}

func TestMerge(t *testing.T) {
	def, err := DecodeDefinition(strings.NewReader(extraDefinition))
	require.NoError(t, err)

	merged := BuiltinDefinition().Merge(def)
	lib, err := Compile(merged)
	require.NoError(t, err)

	assert.Equal(t, "custom-1", lib.Version)
	assert.Contains(t, lib.VendorNames(), "Acme Chat")
	assert.Contains(t, lib.VendorNames(), "Intercom")
	assert.True(t, lib.DenyListed("example-directory.com"))

	name, ok := lib.ResolveVendor("acmechat")
	assert.True(t, ok)
	assert.Equal(t, "Acme Chat", name)
}

func TestDecodeDefinitionUnknownField(t *testing.T) {
	_, err := DecodeDefinition(strings.NewReader("unknown_field: true\n"))
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestStoreEnsureFresh(t *testing.T) {
	var loads atomic.Int32

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	loader := LoaderFunc(func(context.Context) (*Library, error) {
		loads.Add(1)
		return Builtin(), nil
	})

	s := NewStore(WithLoader(loader), WithTTL(time.Minute), WithClock(clock))
	require.NotNil(t, s.Library())
	assert.True(t, s.LoadedAt().IsZero())

	require.NoError(t, s.EnsureFresh(context.Background()))
	require.NoError(t, s.EnsureFresh(context.Background()))
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, now, s.LoadedAt())

	now = now.Add(2 * time.Minute)

	require.NoError(t, s.EnsureFresh(context.Background()))
	assert.Equal(t, int32(2), loads.Load())
}

func TestStoreKeepsLibraryOnFailure(t *testing.T) {
	errBoom := errors.New("boom")

	s := NewStore(WithLoader(LoaderFunc(func(context.Context) (*Library, error) {
		return nil, errBoom
	})))

	before := s.Library()

	err := s.EnsureFresh(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.Same(t, before, s.Library())

	// failures are stamped, so the next call inside the TTL does not retry
	assert.NoError(t, s.EnsureFresh(context.Background()))
}

func TestFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(extraDefinition), 0o600))

	lib, err := FileLoader(path).Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, lib.VendorNames(), "Acme Chat")

	_, err = FileLoader(filepath.Join(t.TempDir(), "missing.yaml")).Load(context.Background())
	assert.Error(t, err)
}

func TestFeedLoader(t *testing.T) {
	var fail atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		_, _ = w.Write([]byte(extraDefinition))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	loader := NewFeedLoader(server.URL, WithFeedHTTPClient(server.Client()), WithFeedCacheDir(cacheDir))

	lib, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, lib.VendorNames(), "Acme Chat")
	assert.FileExists(t, filepath.Join(cacheDir, feedCacheFile))

	fail.Store(true)

	lib, err = loader.Load(context.Background())
	require.NoError(t, err, "cached copy should be used when the feed fails")
	assert.Contains(t, lib.VendorNames(), "Acme Chat")
}

func TestFeedLoaderNoCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	loader := NewFeedLoader(server.URL, WithFeedHTTPClient(server.Client()), WithFeedCacheDir(t.TempDir()))

	_, err := loader.Load(context.Background())
	assert.Error(t, err)
}
