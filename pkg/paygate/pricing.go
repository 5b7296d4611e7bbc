package paygate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultQuoteTTL is how long a resolved price stays fresh.
	DefaultQuoteTTL = 60 * time.Second

	// DefaultUpstreamTimeout bounds each call to the pricing gateway and
	// the facilitator.
	DefaultUpstreamTimeout = 15 * time.Second
)

// PriceQuote is the price the gateway resolved for a single route.
type PriceQuote struct {
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	PayTo       string `json:"payTo"`
	Description string `json:"description"`
}

// QuoteCache stores price quotes keyed by merchant, method and path.
// Implementations must be safe for concurrent use; consistency is
// best-effort, a stale read racing a refresh is acceptable.
type QuoteCache interface {
	Get(ctx context.Context, key string) (PriceQuote, bool)
	Set(ctx context.Context, key string, quote PriceQuote, ttl time.Duration)
}

// MemoryQuoteCache is the default in-process QuoteCache. Entries expire
// by TTL checked on read; there is no size-based eviction.
type MemoryQuoteCache struct {
	mu      sync.RWMutex
	entries map[string]quoteEntry
	now     func() time.Time
}

type quoteEntry struct {
	quote     PriceQuote
	expiresAt time.Time
}

// NewMemoryQuoteCache creates an empty in-process quote cache.
func NewMemoryQuoteCache() *MemoryQuoteCache {
	return &MemoryQuoteCache{
		entries: make(map[string]quoteEntry),
		now:     time.Now,
	}
}

// Get returns the cached quote if it has not expired.
func (c *MemoryQuoteCache) Get(_ context.Context, key string) (PriceQuote, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(entry.expiresAt) {
		return PriceQuote{}, false
	}
	return entry.quote, true
}

// Set stores a quote with a fresh TTL.
func (c *MemoryQuoteCache) Set(_ context.Context, key string, quote PriceQuote, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = quoteEntry{quote: quote, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// CanonicalPath strips a single trailing slash; the root path and an
// empty path both map to "/".
func CanonicalPath(path string) string {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return "/"
	}
	return path
}

// quoteKey builds the cache key for a (merchant, method, path) triple.
// Method is assumed upper-cased and path canonical.
func quoteKey(merchantID, method, path string) string {
	return "price:" + merchantID + ":" + method + ":" + path
}

// PriceResolver resolves per-route prices, consulting the cache before
// calling the pricing gateway.
type PriceResolver struct {
	merchantID string
	gatewayURL string
	cache      QuoteCache
	client     *http.Client
	ttl        time.Duration
	log        *zap.Logger
}

// NewPriceResolver creates a resolver for the given merchant. A nil
// cache gets an in-process one, a nil client gets a timeout-bound
// default, a nil logger is replaced with a no-op logger.
func NewPriceResolver(merchantID, gatewayURL string, cache QuoteCache, client *http.Client, log *zap.Logger) *PriceResolver {
	if cache == nil {
		cache = NewMemoryQuoteCache()
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultUpstreamTimeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PriceResolver{
		merchantID: merchantID,
		gatewayURL: strings.TrimSuffix(gatewayURL, "/"),
		cache:      cache,
		client:     client,
		ttl:        DefaultQuoteTTL,
		log:        log,
	}
}

// priceCheckRequest is the pricing gateway request body.
type priceCheckRequest struct {
	MerchantID string `json:"merchantId"`
	Method     string `json:"method"`
	Path       string `json:"path"`
}

// Resolve returns the price for a route, from cache when fresh. Method
// is normalized upper-case and path canonicalized before keying. Any
// gateway failure maps to ErrUpstreamUnavailable: the caller must fail
// the request closed, never default-allow.
func (r *PriceResolver) Resolve(ctx context.Context, method, path string) (PriceQuote, error) {
	method = strings.ToUpper(method)
	path = CanonicalPath(path)
	key := quoteKey(r.merchantID, method, path)

	if quote, ok := r.cache.Get(ctx, key); ok {
		return quote, nil
	}

	quote, err := r.fetch(ctx, method, path)
	if err != nil {
		return PriceQuote{}, err
	}

	r.cache.Set(ctx, key, quote, r.ttl)
	return quote, nil
}

func (r *PriceResolver) fetch(ctx context.Context, method, path string) (PriceQuote, error) {
	body, err := json.Marshal(priceCheckRequest{
		MerchantID: r.merchantID,
		Method:     method,
		Path:       path,
	})
	if err != nil {
		return PriceQuote{}, fmt.Errorf("%w: encode price-check request: %v", ErrInternal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.gatewayURL+"/price-check", bytes.NewReader(body))
	if err != nil {
		return PriceQuote{}, fmt.Errorf("%w: build price-check request: %v", ErrInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return PriceQuote{}, fmt.Errorf("%w: price-check: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return PriceQuote{}, fmt.Errorf("%w: price-check returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var quote PriceQuote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return PriceQuote{}, fmt.Errorf("%w: decode price-check response: %v", ErrUpstreamUnavailable, err)
	}

	if _, err := decimal.NewFromString(quote.Price); err != nil {
		return PriceQuote{}, fmt.Errorf("%w: gateway returned non-decimal price %q", ErrUpstreamUnavailable, quote.Price)
	}

	r.log.Debug("price resolved",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("price", quote.Price),
		zap.String("currency", quote.Currency),
	)
	return quote, nil
}
