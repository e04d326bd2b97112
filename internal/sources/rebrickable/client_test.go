package rebrickable

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/brickmass/internal/cache"
	"github.com/lepinkainen/brickmass/internal/parts"
	"github.com/lepinkainen/brickmass/internal/ratelimit"
	"github.com/lepinkainen/brickmass/internal/testutil"
)

const partsPath = "/api/v3/lego/parts/"

func newTestClient(srv *testutil.FixtureServer, opts ...Option) *Client {
	opts = append([]Option{WithBaseURL(srv.URL + partsPath), WithRateLimiter(nil)}, opts...)
	return NewClient("test-key", opts...)
}

func TestLookup_Found(t *testing.T) {
	srv := testutil.NewFixtureServer(t)
	srv.Handle(partsPath+"?lego_id=3001", testutil.JSON(testutil.LookupJSON(
		testutil.LookupResult{
			PartNum: "3001",
			ExternalIDs: map[string][]string{
				"BrickLink": {"3001", "3001old"},
				"LDraw":     {"3001"},
			},
		},
		testutil.LookupResult{PartNum: "3001b"},
	)))

	got := newTestClient(srv).Lookup(context.Background(), "3001")

	assert.Equal(t, parts.Found, got.Status)
	assert.Equal(t, "3001", got.PartNum)
	assert.Equal(t, "3001", got.BrickLinkID)
	assert.Equal(t, parts.ExternalIDs{"BrickLink": {"3001", "3001old"}, "LDraw": {"3001"}}, got.ExternalIDs)

	req := srv.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, "key test-key", req.Header.Get("Authorization"))
}

func TestLookup_FoundWithoutBrickLink(t *testing.T) {
	srv := testutil.NewFixtureServer(t)
	srv.Handle(partsPath+"?lego_id=99999", testutil.JSON(testutil.LookupJSON(
		testutil.LookupResult{PartNum: "99999", ExternalIDs: map[string][]string{"BrickOwl": {"1"}, "BrickLink": {}}},
	)))

	got := newTestClient(srv).Lookup(context.Background(), "99999")

	assert.Equal(t, parts.Found, got.Status)
	assert.Equal(t, "99999", got.PartNum)
	assert.Empty(t, got.BrickLinkID)
}

func TestLookup_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		fixture *testutil.Fixture
		reason  string
	}{
		{
			name:    "zero count",
			fixture: &testutil.Fixture{Status: http.StatusOK, Body: `{"count":0,"results":[]}`},
			reason:  "no results",
		},
		{
			name:    "count without results",
			fixture: &testutil.Fixture{Status: http.StatusOK, Body: `{"count":3,"results":[]}`},
			reason:  "no results",
		},
		{
			name:    "server error",
			fixture: &testutil.Fixture{Status: http.StatusInternalServerError, Body: "oops"},
			reason:  "500",
		},
		{
			name:    "unauthorized",
			fixture: &testutil.Fixture{Status: http.StatusUnauthorized, Body: `{"detail":"Invalid key"}`},
			reason:  "401",
		},
		{
			name:    "malformed body",
			fixture: &testutil.Fixture{Status: http.StatusOK, Body: "<html>"},
			reason:  "decode",
		},
		{
			name:    "rate limited",
			fixture: &testutil.Fixture{Status: http.StatusTooManyRequests, Body: "slow down"},
			reason:  "rate limit",
		},
		{
			name:   "not routed",
			reason: "404",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewFixtureServer(t)
			if tt.fixture != nil {
				srv.Handle(partsPath+"?lego_id=3001", *tt.fixture)
			}

			got := newTestClient(srv).Lookup(context.Background(), "3001")

			assert.Equal(t, parts.Unavailable, got.Status)
			assert.Contains(t, got.Reason, tt.reason)
			assert.Empty(t, got.BrickLinkID)
			assert.Equal(t, 1, srv.TotalHits())
		})
	}
}

func TestLookup_TransportFailure(t *testing.T) {
	srv := testutil.NewFixtureServer(t)
	client := newTestClient(srv)
	srv.Close()

	got := client.Lookup(context.Background(), "3001")
	assert.Equal(t, parts.Unavailable, got.Status)
	assert.NotEmpty(t, got.Reason)
}

func TestLookup_CancelledContext(t *testing.T) {
	srv := testutil.NewFixtureServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := newTestClient(srv).Lookup(ctx, "3001")
	assert.Equal(t, parts.Unavailable, got.Status)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 30*time.Second, retryAfter("30"))
	assert.Equal(t, time.Duration(0), retryAfter(""))
	assert.Equal(t, time.Duration(0), retryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}

func TestLookup_Cache(t *testing.T) {
	env := testutil.NewTestEnv(t)
	db, err := cache.Open(env.Path("cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	srv := testutil.NewFixtureServer(t)
	srv.Handle(partsPath+"?lego_id=3001", testutil.JSON(testutil.LookupJSON(
		testutil.LookupResult{PartNum: "3001", ExternalIDs: map[string][]string{"BrickLink": {"3001"}}},
	)))
	srv.Handle(partsPath+"?lego_id=0000", testutil.JSON(testutil.LookupJSON()))
	srv.Handle(partsPath+"?lego_id=5555", testutil.Fixture{Status: http.StatusBadGateway})

	client := newTestClient(srv, WithCache(db, time.Hour, time.Minute))

	for range 2 {
		assert.Equal(t, "3001", client.Lookup(context.Background(), "3001").BrickLinkID)
		assert.Equal(t, parts.Unavailable, client.Lookup(context.Background(), "0000").Status)
		assert.Equal(t, parts.Unavailable, client.Lookup(context.Background(), "5555").Status)
	}

	assert.Equal(t, 1, srv.Hits(partsPath+"?lego_id=3001"))
	assert.Equal(t, 1, srv.Hits(partsPath+"?lego_id=0000"), "not-found answers are cached")
	assert.Equal(t, 2, srv.Hits(partsPath+"?lego_id=5555"), "failures are never cached")
}

func openCache(t *testing.T) *cache.CacheDB {
	t.Helper()
	env := testutil.NewTestEnv(t)
	db, err := cache.Open(env.Path("cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLookup_EmptyExternalIDsSurviveCache(t *testing.T) {
	srv := testutil.NewFixtureServer(t)
	srv.Handle(partsPath+"?lego_id=3070b", testutil.JSON(testutil.LookupJSON(
		testutil.LookupResult{PartNum: "3070b", ExternalIDs: map[string][]string{}},
	)))

	client := newTestClient(srv, WithCache(openCache(t), time.Hour, time.Minute))

	fresh := client.Lookup(context.Background(), "3070b")
	cached := client.Lookup(context.Background(), "3070b")

	assert.Equal(t, 1, srv.Hits(partsPath+"?lego_id=3070b"))
	require.NotNil(t, fresh.ExternalIDs)
	require.NotNil(t, cached.ExternalIDs)
	assert.Equal(t, fresh, cached)
}

func TestLookup_CachedAnswersSkipPacing(t *testing.T) {
	srv := testutil.NewFixtureServer(t)
	srv.Handle(partsPath+"?lego_id=3001", testutil.JSON(testutil.LookupJSON(
		testutil.LookupResult{PartNum: "3001", ExternalIDs: map[string][]string{"BrickLink": {"3001"}}},
	)))

	client := newTestClient(srv,
		WithRateLimiter(ratelimit.NewEvery("test", time.Hour)),
		WithCache(openCache(t), time.Hour, time.Minute),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.Equal(t, parts.Found, client.Lookup(ctx, "3001").Status)
	assert.Equal(t, parts.Found, client.Lookup(ctx, "3001").Status, "cache hit does not wait for the limiter")

	// a request that has to reach the API is still paced
	got := client.Lookup(ctx, "3023")
	assert.Equal(t, parts.Unavailable, got.Status)
	assert.Contains(t, got.Reason, "rate limit wait")
	assert.Equal(t, 0, srv.Hits(partsPath+"?lego_id=3023"))
}

func TestLookup_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient("test-key",
		WithBaseURL(srv.URL+partsPath),
		WithRateLimiter(nil),
		WithRestyClient(resty.New().SetTimeout(50*time.Millisecond)),
	)

	got := client.Lookup(context.Background(), "3001")
	assert.Equal(t, parts.Unavailable, got.Status)
	assert.NotEmpty(t, got.Reason)
}
