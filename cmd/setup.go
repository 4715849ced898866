package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/theopenlane/detectify/config"
	"github.com/theopenlane/detectify/internal/analyzer"
	"github.com/theopenlane/detectify/internal/cloudflare"
	"github.com/theopenlane/detectify/internal/fetcher"
	"github.com/theopenlane/detectify/internal/heuristic"
	"github.com/theopenlane/detectify/internal/matcher"
	"github.com/theopenlane/detectify/internal/notify"
	"github.com/theopenlane/detectify/internal/patterns"
	"github.com/theopenlane/detectify/internal/pipeline"
	"github.com/theopenlane/detectify/internal/slack"
	"github.com/theopenlane/detectify/internal/store"
)

// service bundles the components shared by every command
type service struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	analyzer *analyzer.Analyzer
	broker   *notify.Broker
}

// Close stops background work and flushes pending notifications
func (s *service) Close() {
	s.analyzer.Close()
	s.broker.Flush()
	s.broker.Close()
}

// loadConfig reads the config file named by the --config flag and applies the logging flags
func loadConfig() (*config.Config, error) {
	cfgPath := k.String("config")

	cfg, err := config.Load(&cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cfg.Server.Debug = cfg.Server.Debug || k.Bool("debug")
	cfg.Server.Pretty = cfg.Server.Pretty || k.Bool("pretty")

	return cfg, nil
}

// newService wires the fetcher, pipeline, store, notifier, and analyzer from cfg
func newService(ctx context.Context, cfg *config.Config) (*service, error) {
	source := setupPatterns(cfg)

	if err := source.Reload(ctx); err != nil {
		log.Warn().Err(err).Msg("pattern library load failed, using built-in library")
	}

	f := setupFetcher(cfg)

	p, err := setupPipeline(cfg, f, source)
	if err != nil {
		return nil, fmt.Errorf("setting up pipeline: %w", err)
	}

	results, err := setupStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("setting up store: %w", err)
	}

	broker := notify.NewBroker(notify.WithSinks(setupSinks(cfg)...))

	opts := []analyzer.Option{
		analyzer.WithCache(store.NewCache(results, store.WithTTL(cfg.Cache.TTL))),
		analyzer.WithPublisher(broker),
		analyzer.WithAttempts(cfg.Batch.Attempts),
		analyzer.WithRetryDelay(cfg.Batch.RetryDelay),
		analyzer.WithGroupSize(cfg.Batch.GroupSize),
		analyzer.WithGroupDelay(cfg.Batch.GroupDelay),
		analyzer.WithMaxBatch(cfg.Batch.MaxURLs),
		analyzer.WithSingleFlight(cfg.Batch.SingleFlight),
		analyzer.WithPolling(cfg.Batch.PollInterval, cfg.Batch.PollAttempts),
		analyzer.WithRunRetention(cfg.Batch.RunRetention),
		analyzer.WithFetchBudget(p.MaxFetches(f.MaxAttempts())),
	}

	if cfg.Fallback.Enabled {
		hopts := []heuristic.Option{heuristic.WithKeywords(cfg.Fallback.Keywords)}
		if len(cfg.Fallback.SpecialtyTerms) > 0 {
			hopts = append(hopts, heuristic.WithSpecialtyTerms(cfg.Fallback.SpecialtyTerms))
		}

		fallback, err := heuristic.New(source, hopts...)
		if err != nil {
			return nil, fmt.Errorf("setting up keyword fallback: %w", err)
		}

		opts = append(opts, analyzer.WithFallback(fallback))
	}

	a, err := analyzer.New(p, opts...)
	if err != nil {
		return nil, fmt.Errorf("setting up analyzer: %w", err)
	}

	log.Info().Int("max_fetches_per_analysis", a.MaxFetchesPerAnalysis()).Str("cache", cfg.Cache.Backend).
		Bool("single_flight", cfg.Batch.SingleFlight).Msg("detection service configured")

	return &service{cfg: cfg, pipeline: p, analyzer: a, broker: broker}, nil
}

// setupPatterns picks the remote feed, a local file, or the built-in library
func setupPatterns(cfg *config.Config) *patterns.Store {
	opts := []patterns.StoreOption{patterns.WithTTL(cfg.Patterns.RefreshInterval)}

	switch {
	case cfg.Patterns.FeedURL != "":
		opts = append(opts, patterns.WithLoader(patterns.NewFeedLoader(cfg.Patterns.FeedURL,
			patterns.WithFeedCacheDir(cfg.Patterns.CacheDir),
		)))
	case cfg.Patterns.File != "":
		opts = append(opts, patterns.WithLoader(patterns.FileLoader(cfg.Patterns.File)))
	}

	return patterns.NewStore(opts...)
}

func setupFetcher(cfg *config.Config) *fetcher.Fetcher {
	opts := []fetcher.Option{
		fetcher.WithTimeout(cfg.Fetcher.Timeout),
		fetcher.WithMaxAttempts(cfg.Fetcher.MaxAttempts),
		fetcher.WithBackoff(cfg.Fetcher.BackoffBase, cfg.Fetcher.BackoffMax),
		fetcher.WithRateLimitBackoff(cfg.Fetcher.RateLimitDelay, cfg.Fetcher.MaxRetryAfter),
		fetcher.WithMaxRedirects(cfg.Fetcher.MaxRedirects),
		fetcher.WithMaxContentSize(cfg.Fetcher.MaxContentSize),
		fetcher.WithRateLimit(cfg.Fetcher.RequestsPerSecond, cfg.Fetcher.Burst),
	}

	if len(cfg.Fetcher.UserAgents) > 0 {
		opts = append(opts, fetcher.WithUserAgents(cfg.Fetcher.UserAgents))
	}

	if cfg.Fetcher.AttributeBlocks {
		opts = append(opts, fetcher.WithInspector(fetcher.NewCDNInspector()))
	}

	return fetcher.New(opts...)
}

func setupPipeline(cfg *config.Config, f *fetcher.Fetcher, source *patterns.Store) (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{
		pipeline.WithStages(pipeline.StagesWithThresholds(cfg.Pipeline.Thresholds, cfg.Pipeline.StageTimeouts)),
		pipeline.WithFinalizeThreshold(cfg.Pipeline.FinalizeThreshold),
	}

	if cfg.Pipeline.Fingerprint {
		fp, err := matcher.NewWappalyzerFingerprinter()
		if err != nil {
			log.Warn().Err(err).Msg("technology fingerprinting unavailable")
		} else {
			opts = append(opts, pipeline.WithFingerprinter(fp))
		}
	}

	if r := setupCloudflare(cfg); r != nil {
		opts = append(opts, pipeline.WithRenderer(r))
	}

	return pipeline.New(f, source, opts...)
}

func setupStore(cfg *config.Config) (store.Store, error) {
	if cfg.Cache.Backend == "file" {
		return store.NewFileStore(cfg.Cache.Dir)
	}

	return store.NewMemoryStore(), nil
}

// setupCloudflare initializes the renderer from config, returning nil when unconfigured
func setupCloudflare(cfg *config.Config) *cloudflare.Client {
	if cfg.Cloudflare.AccountID == "" || cfg.Cloudflare.APIToken == "" {
		log.Info().Msg("cloudflare rendering not configured, skipping")
		return nil
	}

	client, err := cloudflare.New(
		cfg.Cloudflare.AccountID,
		cfg.Cloudflare.APIToken,
		cloudflare.WithHTTPClient(&http.Client{Timeout: cfg.Cloudflare.RequestTimeout}),
		cloudflare.WithNavigationTimeout(cfg.Cloudflare.NavigationTimeout),
		cloudflare.WithWaitUntil(cfg.Cloudflare.WaitUntil),
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize cloudflare client")
		return nil
	}

	log.Info().Msg("cloudflare rendering configured")

	return client
}

// setupSinks builds the configured notification sinks
func setupSinks(cfg *config.Config) []notify.Sink {
	var sinks []notify.Sink

	if cfg.Slack.WebhookURL != "" {
		client, err := slack.New(
			cfg.Slack.WebhookURL,
			slack.WithHTTPClient(&http.Client{Timeout: cfg.Slack.RequestTimeout}),
			slack.WithPositivesOnly(cfg.Slack.PositivesOnly),
			slack.WithUsername(cfg.Slack.Username),
		)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize slack client")
		} else {
			sinks = append(sinks, client)
			log.Info().Msg("slack notifications configured")
		}
	}

	if cfg.Mixpanel.Token != "" {
		sink, err := notify.NewMixpanelSink(
			cfg.Mixpanel.Token,
			notify.WithMixpanelHTTPClient(&http.Client{Timeout: cfg.Mixpanel.RequestTimeout}),
			notify.WithEventName(cfg.Mixpanel.EventName),
			notify.WithEUResidency(cfg.Mixpanel.EU),
			notify.WithPositivesOnly(cfg.Mixpanel.PositivesOnly),
		)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize mixpanel sink")
		} else {
			sinks = append(sinks, sink)
			log.Info().Msg("mixpanel analytics configured")
		}
	}

	return sinks
}
