package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/erp/websync/internal/domain/integration"
	"github.com/erp/websync/internal/infrastructure/telemetry"
)

// maxResponseSize is the maximum allowed response size for one feed page (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxErrorBodyInMessage caps how much of a failed response body Error() prints
const maxErrorBodyInMessage = 512

// FeedError is a non-2xx answer from a storefront listing endpoint
type FeedError struct {
	Status int
	Body   string
	URL    string
}

// Error implements error
func (e *FeedError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > maxErrorBodyInMessage {
		body = body[:maxErrorBodyInMessage] + "..."
	}
	return fmt.Sprintf("%s: HTTP %d from %s: %s", integration.ErrFeedRequestFailed, e.Status, e.URL, body)
}

// Unwrap lets errors.Is match integration.ErrFeedRequestFailed
func (e *FeedError) Unwrap() error {
	return integration.ErrFeedRequestFailed
}

// StorefrontClient implements integration.StorefrontFeed over the storefront REST API.
// It is safe for concurrent use; all per-storefront state travels in the arguments.
type StorefrontClient struct {
	cfg        ClientConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption configures a StorefrontClient
type ClientOption func(*StorefrontClient)

// WithHTTPClient replaces the default HTTP client. The client's own timeout is kept.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *StorefrontClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewStorefrontClient creates a new storefront client
func NewStorefrontClient(cfg ClientConfig, logger *zap.Logger, opts ...ClientOption) (*StorefrontClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &StorefrontClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// StorefrontFeed
// ---------------------------------------------------------------------------

// FetchProducts lists every product modified after the cursor. Variable products
// get their variations from the nested endpoint; a failing nested call leaves
// that product with no variations instead of failing the listing.
func (c *StorefrontClient) FetchProducts(ctx context.Context, sf integration.Storefront, modifiedAfter *time.Time, obs integration.FetchObserver) ([]integration.RemoteProduct, error) {
	ctx, span := telemetry.StartSpan(ctx, "storefront.fetch_products",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("storefront", sf.Name),
	)
	defer span.End()

	products, err := fetchAll[integration.RemoteProduct](ctx, c, sf, "/products", listQuery(modifiedAfter), observe(obs, sf.Name))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	for i := range products {
		p := &products[i]
		if !p.IsVariable() {
			continue
		}
		p.Variations = c.fetchVariations(ctx, sf, p.ID)
	}

	telemetry.SetAttributes(span, "products_count", len(products))
	telemetry.SetOK(span)
	return products, nil
}

// FetchOrders lists every order modified after the cursor
func (c *StorefrontClient) FetchOrders(ctx context.Context, sf integration.Storefront, modifiedAfter *time.Time, obs integration.FetchObserver) ([]integration.RemoteOrder, error) {
	ctx, span := telemetry.StartSpan(ctx, "storefront.fetch_orders",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("storefront", sf.Name),
	)
	defer span.End()

	orders, err := fetchAll[integration.RemoteOrder](ctx, c, sf, "/orders", listQuery(modifiedAfter), observe(obs, sf.Name))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, "orders_count", len(orders))
	telemetry.SetOK(span)
	return orders, nil
}

// fetchVariations never fails; errors are logged and yield an empty list
func (c *StorefrontClient) fetchVariations(ctx context.Context, sf integration.Storefront, productID int64) []integration.RemoteVariation {
	path := "/products/" + strconv.FormatInt(productID, 10) + "/variations"
	variations, err := fetchAll[integration.RemoteVariation](ctx, c, sf, path, url.Values{}, nil)
	if err != nil {
		c.logger.Debug("Variation fetch failed, continuing without variations",
			zap.String("storefront", sf.Name),
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
		return []integration.RemoteVariation{}
	}
	return variations
}

// ---------------------------------------------------------------------------
// Paging
// ---------------------------------------------------------------------------

func listQuery(modifiedAfter *time.Time) url.Values {
	q := url.Values{}
	if modifiedAfter != nil && !modifiedAfter.IsZero() {
		q.Set("modified_after", modifiedAfter.UTC().Format(time.RFC3339))
	}
	return q
}

func observe(obs integration.FetchObserver, storefront string) func(page, found int) {
	if obs == nil {
		return nil
	}
	return func(page, found int) {
		obs.OnPage(storefront, page, found)
	}
}

// fetchAll requests page 1, 2, ... until a page is shorter than the page size,
// empty, or not a JSON array.
func fetchAll[T any](ctx context.Context, c *StorefrontClient, sf integration.Storefront, path string, query url.Values, onPage func(page, found int)) ([]T, error) {
	out := make([]T, 0)
	for page := 1; ; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("per_page", strconv.Itoa(c.cfg.PageSize))
		q.Set("page", strconv.Itoa(page))

		body, err := c.doRequest(ctx, sf, path, q)
		if err != nil {
			return nil, err
		}

		items, ok, err := decodePage[T](body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s page %d: %v", integration.ErrFeedInvalidResponse, path, page, err)
		}
		if !ok {
			break
		}
		out = append(out, items...)
		if onPage != nil {
			onPage(page, len(out))
		}
		if len(items) < c.cfg.PageSize {
			break
		}
	}
	return out, nil
}

// decodePage returns ok=false for an empty or non-array body
func decodePage[T any](body []byte) ([]T, bool, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false, nil
	}
	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false, err
	}
	return items, true, nil
}

// doRequest performs one authenticated GET and returns the body of a 2xx response
func (c *StorefrontClient) doRequest(ctx context.Context, sf integration.Storefront, path string, query url.Values) ([]byte, error) {
	endpoint := strings.TrimRight(sf.BaseURL, "/") + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", integration.ErrFeedUnavailable, err)
	}
	req.SetBasicAuth(sf.Key, sf.Secret)
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", integration.ErrFeedUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FeedError{Status: resp.StatusCode, Body: string(body), URL: req.URL.String()}
	}
	return body, nil
}

// IsFeedError reports whether err carries a storefront HTTP status
func IsFeedError(err error) (*FeedError, bool) {
	var fe *FeedError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
