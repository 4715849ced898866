package patterns

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/theopenlane/httpsling"
)

const (
	// feedCacheFile is the name of the cached feed copy inside the cache directory
	feedCacheFile = "patterns.yaml"
	// defaultFeedTimeout bounds a feed download
	defaultFeedTimeout = 30 * time.Second
)

// FileLoader merges a YAML definition file over the built-in definition
func FileLoader(path string) Loader {
	return LoaderFunc(func(context.Context) (*Library, error) {
		return loadMergedFile(path)
	})
}

// loadMergedFile decodes path and compiles it on top of the built-in definition
func loadMergedFile(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pattern file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	def, err := DecodeDefinition(f)
	if err != nil {
		return nil, err
	}

	if def.Version == "" {
		def.Version = filepath.Base(path)
	}

	return Compile(BuiltinDefinition().Merge(def))
}

// FeedLoader downloads a YAML definition from a remote feed and merges it over the built-in
// definition. The last good download is kept in cacheDir and used when the feed is unreachable
type FeedLoader struct {
	url        string
	cacheDir   string
	httpClient *http.Client
}

// FeedOption configures the FeedLoader
type FeedOption func(*FeedLoader)

// WithFeedHTTPClient sets the HTTP client used for downloads
func WithFeedHTTPClient(client *http.Client) FeedOption {
	return func(l *FeedLoader) {
		if client != nil {
			l.httpClient = client
		}
	}
}

// WithFeedCacheDir sets the directory holding the cached feed copy
func WithFeedCacheDir(dir string) FeedOption {
	return func(l *FeedLoader) {
		if dir != "" {
			l.cacheDir = dir
		}
	}
}

// NewFeedLoader creates a loader for the given feed URL
func NewFeedLoader(url string, opts ...FeedOption) *FeedLoader {
	l := &FeedLoader{
		url:        url,
		cacheDir:   filepath.Join(os.TempDir(), "detectify-patterns"),
		httpClient: &http.Client{Timeout: defaultFeedTimeout},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load downloads the feed, falling back to the cached copy when the download fails
func (l *FeedLoader) Load(ctx context.Context) (*Library, error) {
	if err := os.MkdirAll(l.cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pattern cache dir: %w", err)
	}

	dest := filepath.Join(l.cacheDir, feedCacheFile)

	if err := l.download(ctx, dest); err != nil {
		if _, statErr := os.Stat(dest); statErr != nil {
			return nil, err
		}

		log.Warn().Err(err).Str("feed", l.url).Msg("pattern feed download failed, using cached copy")
	}

	return loadMergedFile(dest)
}

// download writes the feed into a temp file and renames it over dest once it validates
func (l *FeedLoader) download(ctx context.Context, dest string) error {
	tmp, err := os.CreateTemp(l.cacheDir, "patterns-*.tmp")
	if err != nil {
		return err
	}

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	requester := httpsling.MustNew(
		httpsling.URL(l.url),
		httpsling.Method(http.MethodGet),
		httpsling.WithHTTPClient(l.httpClient),
	)

	resp, _, err := requester.ReceiveTo(ctx, tmp)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFeedDownload, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := tmp.Sync(); err != nil {
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	// reject a corrupt download before it replaces the last good copy
	if _, err := loadMergedFile(tmp.Name()); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), dest)
}
