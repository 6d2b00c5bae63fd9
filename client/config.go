package client

import (
	"time"
)

// Config declares client settings in a form suitable for decoding from
// serialized configuration. Zero values mean "use the default"; see
// the corresponding With* options.
type Config struct {
	BaseURL           string            `json:"base_url" validate:"required,url"`
	UserAgent         string            `json:"user_agent"`
	Timeout           time.Duration     `json:"timeout" validate:"min=0"`
	MaxConcurrent     int               `json:"max_concurrent" validate:"min=0"`
	ThrottleRPS       int               `json:"throttle_rps" validate:"min=0"`
	ThrottleBurst     int               `json:"throttle_burst" validate:"min=0"`
	NoFollowRedirects bool              `json:"no_follow_redirects"`
	Headers           map[string]string `json:"headers"`
}

// NewFromConfig validates cfg against its declared tags and builds a
// Client from it. Violations surface as [FieldErrors]. Options given
// here are applied after those derived from the config, so they win on
// conflict.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	if err := validateModel(cfg); err != nil {
		return nil, err
	}

	var derived []Option
	if cfg.UserAgent != "" {
		derived = append(derived, WithUserAgent(cfg.UserAgent))
	}
	if cfg.Timeout > 0 {
		derived = append(derived, WithTimeout(cfg.Timeout))
	}
	if cfg.MaxConcurrent > 0 {
		derived = append(derived, WithConcurrency(cfg.MaxConcurrent))
	}
	if cfg.ThrottleRPS > 0 {
		derived = append(derived, WithThrottle(cfg.ThrottleRPS, cfg.ThrottleBurst))
	}
	if cfg.NoFollowRedirects {
		derived = append(derived, WithNoFollowRedirects())
	}

	c, err := New(cfg.BaseURL, append(derived, opts...)...)
	if err != nil {
		return nil, err
	}

	for name, value := range cfg.Headers {
		c.SetDefaultHeader(name, value)
	}

	return c, nil
}
