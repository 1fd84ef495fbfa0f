package config

import "fmt"

// DistanceConfig selects the travel-time provider chain.
type DistanceConfig struct {
	// Mode selects the base provider: "kakao" or "estimator".
	Mode      string          `json:"mode"`
	Kakao     KakaoConfig     `json:"kakao"`
	Estimator EstimatorConfig `json:"estimator"`
	Cache     CacheConfig     `json:"cache"`
	Retry     RetryConfig     `json:"retry"`
}

// KakaoConfig holds Kakao Mobility / Local API access settings.
type KakaoConfig struct {
	APIKey string `json:"api_key"`
	// BaseURL is the directions API host.
	BaseURL string `json:"base_url"`
	// GeocodeBaseURL is the local (address search) API host.
	GeocodeBaseURL string `json:"geocode_base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	// RequestsPerSecond caps the outbound request rate.
	RequestsPerSecond float64 `json:"requests_per_second"`
}

// EstimatorConfig tunes the offline haversine fallback.
type EstimatorConfig struct {
	SpeedKMH float64 `json:"speed_kmh"`
}

// CacheConfig selects the travel-time cache backend.
type CacheConfig struct {
	// Backend is "memory", "redis" or "none".
	Backend    string `json:"backend"`
	TTLSeconds int    `json:"ttl_seconds"`
	// MaxEntries bounds the in-memory cache.
	MaxEntries int `json:"max_entries"`
	// RedisURL is a go-redis URL, e.g. redis://localhost:6379/0.
	RedisURL string `json:"redis_url"`
}

// RetryConfig bounds provider retries before the sentinel kicks in.
type RetryConfig struct {
	Attempts       int `json:"attempts"`
	BackoffMS      int `json:"backoff_ms"`
	TimeoutSeconds int `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *DistanceConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = "estimator"
	}
	if c.Kakao.BaseURL == "" {
		c.Kakao.BaseURL = "https://apis-navi.kakaomobility.com"
	}
	if c.Kakao.GeocodeBaseURL == "" {
		c.Kakao.GeocodeBaseURL = "https://dapi.kakao.com"
	}
	if c.Kakao.TimeoutSeconds == 0 {
		c.Kakao.TimeoutSeconds = 10
	}
	if c.Kakao.RequestsPerSecond == 0 {
		c.Kakao.RequestsPerSecond = 5
	}
	if c.Estimator.SpeedKMH == 0 {
		c.Estimator.SpeedKMH = 40
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 600
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 10000
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = 3
	}
	if c.Retry.BackoffMS == 0 {
		c.Retry.BackoffMS = 200
	}
	if c.Retry.TimeoutSeconds == 0 {
		c.Retry.TimeoutSeconds = 5
	}
}

// Validate checks mandatory fields.
func (c DistanceConfig) Validate() error {
	switch c.Mode {
	case "estimator":
	case "kakao":
		if c.Kakao.APIKey == "" {
			return fmt.Errorf("kakao.api_key is required")
		}
	default:
		return fmt.Errorf("unknown mode %s", c.Mode)
	}
	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required")
		}
	default:
		return fmt.Errorf("unknown cache backend %s", c.Cache.Backend)
	}
	if c.Estimator.SpeedKMH <= 0 {
		return fmt.Errorf("estimator.speed_kmh must be positive")
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1")
	}
	return nil
}
