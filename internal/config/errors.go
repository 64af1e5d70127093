package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoAPIKey is returned when no API key is configured. The API
	// drives deauth attacks, so it never runs unauthenticated.
	ErrNoAPIKey = errors.New("no API key configured: set apiKey in .pistorm or --api-key")

	// ErrNoListenAddr is returned when the listen address is empty.
	ErrNoListenAddr = errors.New("no listen address configured")

	// ErrInvalidTimeout is returned when the attack timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid attack timeout: must be positive")

	// ErrInvalidRateLimit is returned when the rate limit is not positive.
	// A zero limit would reject every request, including status polls.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be positive")

	// ErrInvalidDeauth is returned when deauth parameters are out of range.
	// Zero rounds is valid (passive capture only); zero packets is not.
	ErrInvalidDeauth = errors.New("invalid deauth settings: rounds must be >= 0 and count > 0")

	// ErrGPUNotConfigured is returned when offload is enabled without a host.
	ErrGPUNotConfigured = errors.New("gpu offload enabled but no host configured")

	// ErrNoIncomingDir is returned in listener mode when the incoming
	// directory is not set.
	ErrNoIncomingDir = errors.New("no incoming directory configured for listener")

	// ErrInvalidHashMode is returned when the hashcat hash mode is not positive.
	ErrInvalidHashMode = errors.New("invalid hashcat hash mode: must be positive")

	// ErrInvalidPollInterval is returned when the listener poll interval
	// is not positive.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be positive")
)
