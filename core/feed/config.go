package feed

import (
	"feed-processor/core/retry"
)

// Config holds configuration shared by every feed download.
type Config struct {
	// CacheDir stores downloaded bodies and their ETags between runs.
	CacheDir string `mapstructure:"cache_dir" default:"/tmp"`
	// UserAgent is sent with every request.
	UserAgent string `mapstructure:"user_agent" default:"Trivial Security"`
	// TimeoutSeconds bounds a single HTTP request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// MaxBodyMB caps the size of a feed body in megabytes.
	MaxBodyMB int `mapstructure:"max_body_mb" default:"64"`
	// MaxInvalidFraction is the share of rejected lines above which a feed is
	// considered malformed. Zero disables the check.
	MaxInvalidFraction float64 `mapstructure:"max_invalid_fraction" default:"0.5"`
	// Retry is the download retry policy.
	Retry retry.Config `mapstructure:"retry"`
}

// Definition describes one configured feed.
type Definition struct {
	// Name identifies the feed within its source (e.g. ipreputation).
	Name string `mapstructure:"name" json:"name"`
	// Source is the publisher of the feed (e.g. talosintelligence.com).
	Source string `mapstructure:"source" json:"source"`
	// URL is the document to download.
	URL string `mapstructure:"url" json:"url"`
	// Disabled feeds are skipped.
	Disabled bool `mapstructure:"disabled" json:"disabled"`
}
