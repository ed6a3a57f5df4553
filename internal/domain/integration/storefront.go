package integration

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// Feed errors
	ErrStorefrontIncomplete  = errors.New("integration: storefront configuration incomplete")
	ErrFeedUnavailable       = errors.New("integration: storefront feed unavailable")
	ErrFeedRequestFailed     = errors.New("integration: storefront feed request failed")
	ErrFeedInvalidResponse   = errors.New("integration: invalid storefront feed response")
	ErrInvalidResourceType   = errors.New("integration: invalid resource type")
	ErrInvalidRemoteRecord   = errors.New("integration: invalid remote record")
	ErrWebProductNotFound    = errors.New("integration: web product not found")
	ErrCheckpointNotFound    = errors.New("integration: sync checkpoint not found")
	ErrSyncInProgress        = errors.New("integration: sync already in progress")
	ErrSyncCancelled         = errors.New("integration: sync cancelled")
	ErrProgressNotRegistered = errors.New("integration: progress tracker has no slot for resource type")
)

// ---------------------------------------------------------------------------
// ResourceType
// ---------------------------------------------------------------------------

// ResourceType is the kind of remote record a sync run reconciles
type ResourceType string

const (
	ResourceTypeProducts ResourceType = "products"
	ResourceTypeOrders   ResourceType = "orders"
)

// AllResourceTypes returns every supported resource type
func AllResourceTypes() []ResourceType {
	return []ResourceType{ResourceTypeProducts, ResourceTypeOrders}
}

// IsValid returns true if the resource type is supported
func (r ResourceType) IsValid() bool {
	switch r {
	case ResourceTypeProducts, ResourceTypeOrders:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (r ResourceType) String() string {
	return string(r)
}

// ParseResourceType parses a path segment into a ResourceType
func ParseResourceType(s string) (ResourceType, error) {
	rt := ResourceType(strings.ToLower(strings.TrimSpace(s)))
	if !rt.IsValid() {
		return "", ErrInvalidResourceType
	}
	return rt, nil
}

// SyncMode distinguishes checkpoint-driven runs from forced full runs
type SyncMode string

const (
	SyncModeIncremental SyncMode = "incremental"
	SyncModeFull        SyncMode = "full"
)

// ModeOf returns the sync mode for the full flag
func ModeOf(full bool) SyncMode {
	if full {
		return SyncModeFull
	}
	return SyncModeIncremental
}

// ---------------------------------------------------------------------------
// Storefront
// ---------------------------------------------------------------------------

// Storefront is one configured remote shop.
// Name doubles as the storefront identifier inside every identity key.
type Storefront struct {
	Name    string
	BaseURL string
	Key     string
	Secret  string
}

// IsComplete reports whether every credential field is present
func (s Storefront) IsComplete() bool {
	return strings.TrimSpace(s.Name) != "" &&
		strings.TrimSpace(s.BaseURL) != "" &&
		strings.TrimSpace(s.Key) != "" &&
		strings.TrimSpace(s.Secret) != ""
}

// MissingFields lists the names of empty credential fields, used for the skip notice
func (s Storefront) MissingFields() []string {
	missing := make([]string, 0, 4)
	if strings.TrimSpace(s.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(s.BaseURL) == "" {
		missing = append(missing, "base_url")
	}
	if strings.TrimSpace(s.Key) == "" {
		missing = append(missing, "key")
	}
	if strings.TrimSpace(s.Secret) == "" {
		missing = append(missing, "secret")
	}
	return missing
}

// ---------------------------------------------------------------------------
// StorefrontFeed port
// ---------------------------------------------------------------------------

// FetchObserver receives fetching-phase progress while pages arrive
type FetchObserver interface {
	// OnPage is called after each page with the running total of records found
	OnPage(storefront string, page int, found int)
}

// FetchObserverFunc adapts a function to FetchObserver
type FetchObserverFunc func(storefront string, page int, found int)

// OnPage implements FetchObserver
func (f FetchObserverFunc) OnPage(storefront string, page int, found int) {
	f(storefront, page, found)
}

// StorefrontFeed fetches complete, paginated remote record lists from a storefront.
// modifiedAfter nil means every record.
type StorefrontFeed interface {
	// FetchProducts returns all matching products; variable products carry their variations
	FetchProducts(ctx context.Context, sf Storefront, modifiedAfter *time.Time, obs FetchObserver) ([]RemoteProduct, error)

	// FetchOrders returns all matching orders
	FetchOrders(ctx context.Context, sf Storefront, modifiedAfter *time.Time, obs FetchObserver) ([]RemoteOrder, error)
}
