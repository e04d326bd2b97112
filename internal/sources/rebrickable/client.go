// Package rebrickable resolves LEGO part ids to Rebrickable part numbers and
// their cross-reference ids in other catalogs.
package rebrickable

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lepinkainen/brickmass/internal/cache"
	"github.com/lepinkainen/brickmass/internal/config"
	brickerrors "github.com/lepinkainen/brickmass/internal/errors"
	"github.com/lepinkainen/brickmass/internal/parts"
	"github.com/lepinkainen/brickmass/internal/ratelimit"
)

const (
	defaultTimeout       = 15 * time.Second
	defaultRatePerSecond = 1

	brickLinkCatalog = "BrickLink"
)

// Client is a Rebrickable parts API client.
type Client struct {
	apiKey      string
	baseURL     string
	http        *resty.Client
	rateLimiter *ratelimit.Limiter

	cache       *cache.CacheDB
	positiveTTL time.Duration
	negativeTTL time.Duration
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithRestyClient replaces the underlying HTTP client.
func WithRestyClient(c *resty.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.http = c
		}
	}
}

// WithBaseURL sets the parts endpoint, e.g. "https://rebrickable.com/api/v3/lego/parts/".
func WithBaseURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.baseURL = base
		}
	}
}

// WithRateLimiter sets the limiter used before every request. A nil limiter
// disables pacing.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(client *Client) {
		client.rateLimiter = l
	}
}

// WithCache stores answers in db. Found parts are kept for positive, parts
// the API does not know for negative. Transport failures are never stored.
func WithCache(db *cache.CacheDB, positive, negative time.Duration) Option {
	return func(client *Client) {
		client.cache = db
		if positive > 0 {
			client.positiveTTL = positive
		}
		if negative > 0 {
			client.negativeTTL = negative
		}
	}
}

// NewClient creates a new Rebrickable client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:      apiKey,
		baseURL:     config.DefaultLookupURL,
		http:        resty.New().SetTimeout(defaultTimeout),
		rateLimiter: ratelimit.New("Rebrickable", defaultRatePerSecond),
		positiveTTL: cache.DefaultCacheTTL,
		negativeTTL: cache.NegativeCacheTTL,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

type partsResponse struct {
	Count   int          `json:"count"`
	Results []partResult `json:"results"`
}

type partResult struct {
	PartNum     string            `json:"part_num"`
	Name        string            `json:"name"`
	ExternalIDs parts.ExternalIDs `json:"external_ids"`
}

// cachedLookup is what goes into the response cache.
type cachedLookup struct {
	NotFound    bool              `json:"not_found"`
	PartNum     string            `json:"part_num,omitempty"`
	ExternalIDs parts.ExternalIDs `json:"external_ids"`
}

// Lookup resolves legoID. It makes at most one request and never fails:
// every problem is reported as an Unavailable result with a reason.
func (c *Client) Lookup(ctx context.Context, legoID string) parts.Lookup {
	entry, fromCache, err := cache.GetOrFetchWithTTL(c.cache, cache.RebrickableTable, legoID,
		func() (cachedLookup, error) {
			// only requests that reach the API are paced
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return cachedLookup{}, err
			}
			slog.Debug("Querying Rebrickable", "lego_id", legoID)
			return c.fetch(ctx, legoID)
		},
		cache.SelectNegativeCacheTTL(c.positiveTTL, c.negativeTTL, func(e cachedLookup) bool { return e.NotFound }),
	)
	if err != nil {
		if brickerrors.IsRateLimitError(err) {
			slog.Warn("Rebrickable rate limit hit", "lego_id", legoID, "error", err)
		} else {
			slog.Warn("Rebrickable lookup failed", "lego_id", legoID, "error", err)
		}
		return parts.LookupUnavailable(err.Error())
	}

	if entry.NotFound {
		slog.Info("No Rebrickable results", "lego_id", legoID, "cached", fromCache)
		return parts.LookupUnavailable("no results for lego_id " + legoID)
	}

	result := parts.Lookup{
		Status:      parts.Found,
		PartNum:     entry.PartNum,
		ExternalIDs: entry.ExternalIDs,
	}
	if ids := entry.ExternalIDs[brickLinkCatalog]; len(ids) > 0 {
		result.BrickLinkID = ids[0]
		slog.Info("Found BrickLink ID", "lego_id", legoID, "bricklink_id", result.BrickLinkID, "cached", fromCache)
	} else {
		slog.Info("No BrickLink ID in Rebrickable data", "lego_id", legoID, "cached", fromCache)
	}

	return result
}

func (c *Client) fetch(ctx context.Context, legoID string) (cachedLookup, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("lego_id", legoID).
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", "key "+c.apiKey).
		Get(c.baseURL)
	if err != nil {
		return cachedLookup{}, fmt.Errorf("rebrickable request: %w", err)
	}

	if res.StatusCode() == http.StatusTooManyRequests {
		return cachedLookup{}, brickerrors.NewRateLimitErrorWithRetry(
			"rebrickable rate limit exceeded", retryAfter(res.Header().Get("Retry-After")))
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return cachedLookup{}, fmt.Errorf("rebrickable: unexpected status %d: %s",
			res.StatusCode(), truncate(strings.TrimSpace(res.String()), 200))
	}

	var body partsResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return cachedLookup{}, fmt.Errorf("rebrickable: failed to decode response: %w", err)
	}

	if body.Count <= 0 || len(body.Results) == 0 {
		return cachedLookup{NotFound: true}, nil
	}

	first := body.Results[0]
	return cachedLookup{
		PartNum:     first.PartNum,
		ExternalIDs: first.ExternalIDs,
	}, nil
}

func retryAfter(header string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
