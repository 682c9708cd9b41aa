package apiclient

import (
	"strings"
	"sync"
	"time"
)

// EndpointConfig represents throttle configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// DefaultEndpointConfigs mirrors the limits the backend enforces per client.
// Calls the backend would reject with 429 are refused locally instead.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Matching
		{Path: "/api/search", Method: "POST", Limit: 10, Window: time.Minute},

		// Experience writes
		{Path: "/api/experiences", Method: "POST", Limit: 15, Window: time.Minute},
		{Path: "/api/experiences/", Method: "PUT", Limit: 15, Window: time.Minute},
		{Path: "/api/experiences/", Method: "DELETE", Limit: 15, Window: time.Minute},

		// Bulk and LLM-backed operations
		{Path: "/api/experiences/batch", Method: "POST", Limit: 5, Window: time.Minute},
		{Path: "/api/parse-linkedin", Method: "POST", Limit: 5, Window: time.Minute},
	}
}

// MatchEndpoint matches a request path and method to an endpoint configuration.
// Returns nil when the endpoint is not throttled.
// Path matching supports prefix matching (e.g., "/api/experiences/" matches "/api/experiences/{id}").
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	// Try exact match first
	for i := range configs {
		config := &configs[i]
		if config.Path == path && config.Method == method {
			return config
		}
	}

	// Try prefix match (for paths ending with "/")
	for i := range configs {
		config := &configs[i]
		if config.Method == method && strings.HasSuffix(config.Path, "/") {
			if strings.HasPrefix(path, config.Path) {
				return config
			}
		}
	}

	return nil
}

// tokenBucket allows Burst requests at once, refilling at Limit per Window.
type tokenBucket struct {
	capacity   int
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

func newTokenBucket(capacity int, refillRate float64, now time.Time) *tokenBucket {
	return &tokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity), // Start with full bucket
		lastRefill: now,
	}
}

// allow consumes a token if one is available. When none is, it returns how
// long until the next token.
func (tb *tokenBucket) allow(now time.Time) (bool, int, time.Duration) {
	elapsed := now.Sub(tb.lastRefill)
	tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed.Seconds()*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true, int(tb.tokens), 0
	}

	missing := 1.0 - tb.tokens
	return false, 0, time.Duration(missing / tb.refillRate * float64(time.Second))
}

// Info contains information about throttle status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter throttles outgoing calls per endpoint and method.
type Limiter struct {
	mu      sync.Mutex
	enabled bool
	configs []EndpointConfig
	buckets map[string]*tokenBucket
	now     func() time.Time
}

// NewLimiter creates a limiter. A nil configs slice uses DefaultEndpointConfigs.
func NewLimiter(enabled bool, configs []EndpointConfig) *Limiter {
	if configs == nil {
		configs = DefaultEndpointConfigs()
	}
	return &Limiter{
		enabled: enabled,
		configs: configs,
		buckets: make(map[string]*tokenBucket),
		now:     time.Now,
	}
}

// Allow reports whether a call to path with method may go out now, consuming
// a token when it may.
func (l *Limiter) Allow(path string, method string) (bool, Info) {
	if !l.enabled {
		return true, Info{Allowed: true}
	}

	config := MatchEndpoint(path, method, l.configs)
	if config == nil || config.Limit <= 0 || config.Window <= 0 {
		return true, Info{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	// Prefix rules share one bucket across ids, as the backend counts them.
	key := config.Method + " " + config.Path
	bucket, ok := l.buckets[key]
	if !ok {
		burst := config.Burst
		if burst <= 0 {
			burst = config.Limit
		}
		rate := float64(config.Limit) / config.Window.Seconds()
		bucket = newTokenBucket(burst, rate, now)
		l.buckets[key] = bucket
	}

	allowed, remaining, retryAfter := bucket.allow(now)
	return allowed, Info{
		Allowed:    allowed,
		Limit:      config.Limit,
		Remaining:  remaining,
		RetryAfter: retryAfter,
	}
}
