// Package brickarchitect reads the ranked "most common parts" listing.
package brickarchitect

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lepinkainen/brickmass/internal/parts"
)

const defaultTimeout = 30 * time.Second

// Client fetches catalog listing pages.
type Client struct {
	baseURL string
	http    *resty.Client
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

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(client *Client) {
		if ua != "" {
			client.http.SetHeader("User-Agent", ua)
		}
	}
}

// NewClient creates a listing client for baseURL. Pages are requested as
// baseURL?page=N.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL: baseURL,
		http:    resty.New().SetTimeout(defaultTimeout),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// FetchPage returns the rows of listing page n. Transport failures and
// non-2xx responses are errors; an empty slice means the listing ran out.
func (c *Client) FetchPage(ctx context.Context, page int) ([]parts.RawRow, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("page", strconv.Itoa(page)).
		Get(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog page: %w", err)
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return nil, fmt.Errorf("unexpected status %d from %s", res.StatusCode(), res.Request.URL)
	}

	rows, err := ParseRows(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, err
	}

	slog.Debug("Fetched catalog page", "page", page, "rows", len(rows))
	return rows, nil
}
