// Package config holds the detectify service configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mcuadros/go-defaults"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultConfigFilePath is used when no config file is given
	DefaultConfigFilePath = "./config/.config.yaml"
	// envPrefix is stripped from environment variables before they are mapped to keys
	envPrefix = "DETECTIFY_"
)

// Config holds all service configuration
type Config struct {
	// Server configures the HTTP listener
	Server Server `json:"server" koanf:"server"`
	// Fetcher configures page retrieval
	Fetcher Fetcher `json:"fetcher" koanf:"fetcher"`
	// Pipeline configures the detection stages
	Pipeline Pipeline `json:"pipeline" koanf:"pipeline"`
	// Batch configures the background analyzer
	Batch Batch `json:"batch" koanf:"batch"`
	// Cache configures result storage
	Cache Cache `json:"cache" koanf:"cache"`
	// Patterns configures where the pattern library comes from
	Patterns Patterns `json:"patterns" koanf:"patterns"`
	// Fallback configures the keyword pass for all-negative batches
	Fallback Fallback `json:"fallback" koanf:"fallback"`
	// Cloudflare configures browser rendering for the functional stage
	Cloudflare Cloudflare `json:"cloudflare" koanf:"cloudflare"`
	// Slack configures detection notifications
	Slack Slack `json:"slack" koanf:"slack"`
	// Mixpanel configures classification analytics
	Mixpanel Mixpanel `json:"mixpanel" koanf:"mixpanel"`
}

// Server holds the HTTP server settings
type Server struct {
	// Debug enables debug logging
	Debug bool `json:"debug" koanf:"debug" default:"false"`
	// Pretty enables human readable logging
	Pretty bool `json:"pretty" koanf:"pretty" default:"false"`
	// Listen is the address the server binds to
	Listen string `json:"listen" koanf:"listen" default:":8080"`
	// ReadTimeout bounds reading a request
	ReadTimeout time.Duration `json:"readtimeout" koanf:"readtimeout" default:"30s"`
	// WriteTimeout bounds writing a response; keep it above RequestTimeout
	WriteTimeout time.Duration `json:"writetimeout" koanf:"writetimeout" default:"180s"`
	// RequestTimeout bounds synchronous detect and batch requests
	RequestTimeout time.Duration `json:"requesttimeout" koanf:"requesttimeout" default:"150s"`
	// ShutdownGracePeriod is how long in-flight requests get on shutdown
	ShutdownGracePeriod time.Duration `json:"shutdowngraceperiod" koanf:"shutdowngraceperiod" default:"10s"`
	// MaxBodySize caps request bodies in bytes
	MaxBodySize int64 `json:"maxbodysize" koanf:"maxbodysize" default:"102400"`
}

// Fetcher holds page retrieval settings
type Fetcher struct {
	// Timeout is the default per-attempt timeout
	Timeout time.Duration `json:"timeout" koanf:"timeout" default:"15s"`
	// MaxAttempts is the attempt budget for retrying stages
	MaxAttempts int `json:"maxattempts" koanf:"maxattempts" default:"3"`
	// BackoffBase is the first retry delay, doubled per attempt
	BackoffBase time.Duration `json:"backoffbase" koanf:"backoffbase" default:"500ms"`
	// BackoffMax caps the retry delay
	BackoffMax time.Duration `json:"backoffmax" koanf:"backoffmax" default:"5s"`
	// RateLimitDelay is the wait after a 429 without Retry-After
	RateLimitDelay time.Duration `json:"ratelimitdelay" koanf:"ratelimitdelay" default:"2s"`
	// MaxRetryAfter caps server suggested waits
	MaxRetryAfter time.Duration `json:"maxretryafter" koanf:"maxretryafter" default:"30s"`
	// MaxRedirects caps redirect hops
	MaxRedirects int `json:"maxredirects" koanf:"maxredirects" default:"5"`
	// MaxContentSize caps bodies in bytes; larger bodies are truncated
	MaxContentSize int64 `json:"maxcontentsize" koanf:"maxcontentsize" default:"10485760"`
	// UserAgents overrides the rotated browser user agents
	UserAgents []string `json:"useragents" koanf:"useragents"`
	// RequestsPerSecond paces outgoing requests across all targets
	RequestsPerSecond float64 `json:"requestspersecond" koanf:"requestspersecond" default:"10"`
	// Burst is the pacing burst size
	Burst int `json:"burst" koanf:"burst" default:"10"`
	// AttributeBlocks resolves blocked hosts to name the fronting WAF or CDN
	AttributeBlocks bool `json:"attributeblocks" koanf:"attributeblocks" default:"true"`
}

// Pipeline holds stage settings
type Pipeline struct {
	// Thresholds overrides the per-stage continue thresholds in stage order
	Thresholds []float64 `json:"thresholds" koanf:"thresholds"`
	// StageTimeouts overrides the per-stage fetch timeouts in stage order
	StageTimeouts []time.Duration `json:"stagetimeouts" koanf:"stagetimeouts"`
	// FinalizeThreshold is the confidence at which any stage finalizes
	FinalizeThreshold float64 `json:"finalizethreshold" koanf:"finalizethreshold" default:"0.6"`
	// Fingerprint enables technology fingerprinting in the provider stage
	Fingerprint bool `json:"fingerprint" koanf:"fingerprint" default:"true"`
}

// Batch holds analyzer settings
type Batch struct {
	// Attempts is the outer retry budget per URL
	Attempts int `json:"attempts" koanf:"attempts" default:"3"`
	// RetryDelay is the fixed delay between outer attempts
	RetryDelay time.Duration `json:"retrydelay" koanf:"retrydelay" default:"1s"`
	// GroupSize is the number of URLs analyzed concurrently
	GroupSize int `json:"groupsize" koanf:"groupsize" default:"3"`
	// GroupDelay is the pause between groups
	GroupDelay time.Duration `json:"groupdelay" koanf:"groupdelay" default:"1s"`
	// MaxURLs caps one batch
	MaxURLs int `json:"maxurls" koanf:"maxurls" default:"100"`
	// SingleFlight coalesces concurrent analyses of the same URL
	SingleFlight bool `json:"singleflight" koanf:"singleflight" default:"false"`
	// PollInterval is the delay between run status lookups
	PollInterval time.Duration `json:"pollinterval" koanf:"pollinterval" default:"2s"`
	// PollAttempts bounds run status lookups
	PollAttempts int `json:"pollattempts" koanf:"pollattempts" default:"150"`
	// RunRetention is how long finished runs stay queryable
	RunRetention time.Duration `json:"runretention" koanf:"runretention" default:"1h"`
}

// Cache holds result storage settings
type Cache struct {
	// Backend is memory or file
	Backend string `json:"backend" koanf:"backend" default:"memory" jsonschema:"enum=memory,enum=file"`
	// Dir is the directory used by the file backend
	Dir string `json:"dir" koanf:"dir" default:"./data/results"`
	// TTL is the validity window of a stored classification
	TTL time.Duration `json:"ttl" koanf:"ttl" default:"24h"`
}

// Patterns holds pattern library settings
type Patterns struct {
	// File is a YAML definition merged over the built-in library
	File string `json:"file" koanf:"file"`
	// FeedURL is a remote YAML definition, used instead of File when set
	FeedURL string `json:"feedurl" koanf:"feedurl"`
	// CacheDir keeps the last downloaded feed
	CacheDir string `json:"cachedir" koanf:"cachedir" default:"./data/patterns"`
	// RefreshInterval is how often the library is reloaded
	RefreshInterval time.Duration `json:"refreshinterval" koanf:"refreshinterval" default:"1h"`
}

// Fallback holds keyword pass settings
type Fallback struct {
	// Enabled turns on the keyword pass for all-negative batches
	Enabled bool `json:"enabled" koanf:"enabled" default:"true"`
	// Keywords overrides the default keyword list
	Keywords []string `json:"keywords" koanf:"keywords"`
	// SpecialtyTerms overrides the specialty domain terms
	SpecialtyTerms []string `json:"specialtyterms" koanf:"specialtyterms"`
}

// Cloudflare holds browser rendering settings
type Cloudflare struct {
	// AccountID is the Cloudflare account
	AccountID string `json:"accountid" koanf:"accountid"`
	// APIToken authenticates rendering requests
	APIToken string `json:"apitoken" koanf:"apitoken" sensitive:"true"`
	// RequestTimeout bounds each rendering call
	RequestTimeout time.Duration `json:"requesttimeout" koanf:"requesttimeout" default:"45s"`
	// NavigationTimeout is the browser-side wait for the page
	NavigationTimeout time.Duration `json:"navigationtimeout" koanf:"navigationtimeout" default:"30s"`
	// WaitUntil is the load condition passed to the browser
	WaitUntil string `json:"waituntil" koanf:"waituntil" default:"networkidle2"`
}

// Slack holds webhook notification settings
type Slack struct {
	// WebhookURL is the incoming webhook
	WebhookURL string `json:"webhookurl" koanf:"webhookurl" sensitive:"true"`
	// RequestTimeout bounds each post
	RequestTimeout time.Duration `json:"requesttimeout" koanf:"requesttimeout" default:"10s"`
	// PositivesOnly skips URLs without a chatbot
	PositivesOnly bool `json:"positivesonly" koanf:"positivesonly" default:"true"`
	// Username overrides the posting bot name
	Username string `json:"username" koanf:"username"`
}

// Mixpanel holds analytics settings
type Mixpanel struct {
	// Token is the project token
	Token string `json:"token" koanf:"token" sensitive:"true"`
	// EventName is the tracked event name
	EventName string `json:"eventname" koanf:"eventname" default:"chatbot_classification"`
	// EU sends events to the EU data center
	EU bool `json:"eu" koanf:"eu" default:"false"`
	// PositivesOnly skips URLs without a chatbot
	PositivesOnly bool `json:"positivesonly" koanf:"positivesonly" default:"false"`
	// RequestTimeout bounds each ingestion call
	RequestTimeout time.Duration `json:"requesttimeout" koanf:"requesttimeout" default:"10s"`
}

// Load builds the configuration from struct defaults, then the config file when present, then
// DETECTIFY_ environment variables
func Load(cfgFile *string) (*Config, error) {
	k := koanf.New(".")

	path := DefaultConfigFilePath
	if cfgFile != nil && *cfgFile != "" {
		path = *cfgFile
	}

	conf := &Config{}
	defaults.SetDefaults(conf)

	_, err := os.Stat(path)

	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Debug().Str("path", path).Msg("config file not found, using defaults and environment")
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrConfigFile, err)
	default:
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigFile, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigEnv, err)
	}

	if err := k.UnmarshalWithConf("", conf, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigUnmarshal, err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// envKey maps DETECTIFY_SERVER_LISTEN to server.listen; comma separated values become lists
func envKey(key, value string) (string, any) {
	key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, envPrefix)), "_", ".")

	if strings.Contains(value, ",") {
		return key, strings.Split(value, ",")
	}

	return key, value
}

// Validate checks settings that would otherwise fail later at runtime
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "file":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCacheBackend, c.Cache.Backend)
	}

	if c.Cache.Backend == "file" && c.Cache.Dir == "" {
		return ErrCacheDirRequired
	}

	if (c.Cloudflare.AccountID == "") != (c.Cloudflare.APIToken == "") {
		return ErrIncompleteCloudflare
	}

	for _, t := range c.Pipeline.Thresholds {
		if t < 0 || t > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, t)
		}
	}

	return nil
}
