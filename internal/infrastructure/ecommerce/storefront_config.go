package ecommerce

import (
	"errors"
	"time"
)

const (
	// DefaultPageSize is the per_page value sent to every listing endpoint
	DefaultPageSize = 100
	// MaxPageSize is the largest page the storefront API serves
	MaxPageSize = 100
	// DefaultRequestTimeout bounds a single HTTP request, not a whole fetch
	DefaultRequestTimeout = 30 * time.Second
)

// Errors for storefront client configuration
var (
	ErrInvalidPageSize       = errors.New("ecommerce: page size must be between 1 and 100")
	ErrInvalidRequestTimeout = errors.New("ecommerce: request timeout must be positive")
)

// ClientConfig holds settings shared by every storefront the client talks to.
// Credentials are per storefront and travel with integration.Storefront.
type ClientConfig struct {
	// PageSize is sent as per_page; a shorter page ends the listing
	PageSize int
	// RequestTimeout is the HTTP client timeout per request
	RequestTimeout time.Duration
	// UserAgent is sent on every request when set
	UserAgent string
}

// DefaultClientConfig returns the storefront client defaults
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PageSize:       DefaultPageSize,
		RequestTimeout: DefaultRequestTimeout,
		UserAgent:      "erp-websync/1.0",
	}
}

// Validate validates the client configuration
func (c ClientConfig) Validate() error {
	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		return ErrInvalidPageSize
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidRequestTimeout
	}
	return nil
}
