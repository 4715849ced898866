package config

import "errors"

var (
	// ErrConfigUnmarshal is returned when config unmarshalling fails
	ErrConfigUnmarshal = errors.New("failed to unmarshal configuration")
	// ErrConfigFile is returned when the config file cannot be read or parsed
	ErrConfigFile = errors.New("failed to load config file")
	// ErrConfigEnv is returned when environment overrides cannot be loaded
	ErrConfigEnv = errors.New("failed to load environment configuration")
	// ErrUnknownCacheBackend is returned for cache backends other than memory and file
	ErrUnknownCacheBackend = errors.New("unknown cache backend")
	// ErrCacheDirRequired is returned when the file backend has no directory
	ErrCacheDirRequired = errors.New("cache dir is required for the file backend")
	// ErrIncompleteCloudflare is returned when only one of account id and api token is set
	ErrIncompleteCloudflare = errors.New("cloudflare account id and api token must be set together")
	// ErrInvalidThreshold is returned for stage thresholds outside [0, 1]
	ErrInvalidThreshold = errors.New("stage threshold must be between 0 and 1")
)
