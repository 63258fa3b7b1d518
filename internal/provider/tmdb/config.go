package tmdb

import (
	"time"
)

// Config holds the settings for talking to TMDB.
type Config struct {
	// BaseURL is the v3 API root. Tests point it at an httptest server.
	BaseURL string
	// APIKey is sent as the api_key query parameter (v3 auth).
	APIKey string
	// ReadAccessToken, when set, is sent as an OAuth2 bearer token (v4 auth)
	// and APIKey is not used.
	ReadAccessToken string
	// Timeout bounds every request, including reading the body.
	Timeout time.Duration
	// BreakerFailures is the number of consecutive failures that opens the
	// circuit.
	BreakerFailures uint32
	// BreakerCooldown is how long the circuit stays open before a probe.
	BreakerCooldown time.Duration
}

// DefaultConfig provides the public endpoint and conservative limits.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.themoviedb.org/3",
		// 10 second request timeout
		Timeout:         10 * time.Second,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}
