// Package bricklink reads physical measurements from BrickLink catalog item pages.
package bricklink

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lepinkainen/brickmass/internal/config"
	"github.com/lepinkainen/brickmass/internal/parts"
	"github.com/lepinkainen/brickmass/internal/ratelimit"
)

const (
	defaultTimeout = 30 * time.Second
	defaultDelay   = 2 * time.Second
)

// PageFetcher returns the HTML of a page.
type PageFetcher interface {
	FetchHTML(ctx context.Context, pageURL string) ([]byte, error)
}

// HTTPFetcher fetches pages with a plain HTTP GET.
type HTTPFetcher struct {
	http *resty.Client
}

// NewHTTPFetcher creates a fetcher that sends userAgent with every request.
func NewHTTPFetcher(userAgent string) *HTTPFetcher {
	client := resty.New().SetTimeout(defaultTimeout)
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	return &HTTPFetcher{http: client}
}

// FetchHTML implements PageFetcher.
func (f *HTTPFetcher) FetchHTML(ctx context.Context, pageURL string) ([]byte, error) {
	res, err := f.http.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("bricklink request: %w", err)
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return nil, fmt.Errorf("bricklink: unexpected status %d", res.StatusCode())
	}
	return res.Body(), nil
}

// Client fetches catalog item pages and parses their measurements.
type Client struct {
	baseURL string
	fetcher PageFetcher
	delay   time.Duration
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithBaseURL sets the item page endpoint; items are requested as base?P=ID.
func WithBaseURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.baseURL = base
		}
	}
}

// WithFetcher replaces the page transport (plain HTTP by default).
func WithFetcher(f PageFetcher) Option {
	return func(client *Client) {
		if f != nil {
			client.fetcher = f
		}
	}
}

// WithDelay sets the pause taken after every item request. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(client *Client) {
		client.delay = d
	}
}

// NewClient creates a detail page client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL: config.DefaultDetailURL,
		fetcher: NewHTTPFetcher(config.DefaultUserAgent),
		delay:   defaultDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ItemURL returns the catalog page address for a BrickLink part id.
func (c *Client) ItemURL(brickLinkID string) string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + "?P=" + url.QueryEscape(brickLinkID)
	}
	q := u.Query()
	q.Set("P", brickLinkID)
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch reads weight and dimensions for brickLinkID. It never fails: any
// transport or parse problem gives an Unavailable result with every value nil.
// The configured delay is always observed after the request.
func (c *Client) Fetch(ctx context.Context, brickLinkID string) parts.Measurements {
	m := c.fetch(ctx, brickLinkID)

	if err := ratelimit.Pause(ctx, c.delay); err != nil {
		slog.Debug("Detail delay interrupted", "error", err)
	}

	return m
}

func (c *Client) fetch(ctx context.Context, brickLinkID string) parts.Measurements {
	body, err := c.fetcher.FetchHTML(ctx, c.ItemURL(brickLinkID))
	if err != nil {
		slog.Warn("BrickLink fetch failed", "bricklink_id", brickLinkID, "error", err)
		return parts.MeasurementsUnavailable(err.Error())
	}

	m, err := ParseMeasurements(bytes.NewReader(body))
	if err != nil {
		slog.Warn("BrickLink parse failed", "bricklink_id", brickLinkID, "error", err)
		return parts.MeasurementsUnavailable(err.Error())
	}

	slog.Info("BrickLink measurements",
		"bricklink_id", brickLinkID,
		"weight", deref(m.Weight),
		"dim_x", deref(m.PackDimX),
		"dim_y", deref(m.PackDimY),
		"dim_z", deref(m.PackDimZ),
	)
	return m
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
