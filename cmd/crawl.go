package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/spf13/viper"

	"github.com/lepinkainen/brickmass/internal/cache"
	"github.com/lepinkainen/brickmass/internal/config"
	"github.com/lepinkainen/brickmass/internal/crawl"
	"github.com/lepinkainen/brickmass/internal/datastore"
	"github.com/lepinkainen/brickmass/internal/parts"
	"github.com/lepinkainen/brickmass/internal/ratelimit"
	"github.com/lepinkainen/brickmass/internal/sources/brickarchitect"
	"github.com/lepinkainen/brickmass/internal/sources/bricklink"
	"github.com/lepinkainen/brickmass/internal/sources/rebrickable"
)

// CrawlCmd represents the crawl command. Unset flags fall back to config.
type CrawlCmd struct {
	Output      string        `short:"o" help:"Path to the parts JSON document (defaults to crawl.output, parts.json)"`
	Pages       int           `help:"Maximum number of listing pages to crawl (defaults to 100)"`
	PageDelay   time.Duration `help:"Delay between listing pages (defaults to 100ms)"`
	DetailDelay time.Duration `help:"Delay after every BrickLink request (defaults to 2s)"`
	APIKey      string        `help:"Rebrickable API key (defaults to REBRICKABLE_API_KEY)"`
	LookupCache bool          `help:"Cache Rebrickable answers in the cache database"`
	SQLite      string        `name:"sqlite" help:"Export the finished parts to this SQLite database"`
	Browser     bool          `help:"Load BrickLink pages in Chrome instead of plain HTTP"`
	Headless    bool          `help:"Run Chrome without a window (defaults to bricklink.headless, true)" negatable:""`
}

// Run executes the crawl command
func (c *CrawlCmd) Run(ctx context.Context, kctx *kong.Context) error {
	c.apply(explicitFlags(kctx))

	cfg := config.Load()
	if cfg.RebrickableAPIKey == "" {
		return fmt.Errorf("rebrickable API key is required (provide via --api-key flag, REBRICKABLE_API_KEY or rebrickable.api_key in config)")
	}

	summary, err := runCrawl(ctx, cfg)
	slog.Info("Crawl summary",
		"pages", summary.Pages,
		"parts", summary.Parts,
		"cache_hits", summary.CacheHits,
		"enriched", summary.Enriched,
		"carried", summary.Carried,
	)
	return err
}

// apply copies set flags over the config values. Boolean flags that can be
// switched off only count when they appear in explicit.
func (c *CrawlCmd) apply(explicit map[string]bool) {
	if c.Output != "" {
		viper.Set("crawl.output", c.Output)
	}
	if c.Pages > 0 {
		viper.Set("crawl.max_pages", c.Pages)
	}
	if c.PageDelay > 0 {
		viper.Set("crawl.page_delay", c.PageDelay)
	}
	if c.DetailDelay > 0 {
		viper.Set("crawl.detail_delay", c.DetailDelay)
	}
	if c.APIKey != "" {
		viper.Set("rebrickable.api_key", c.APIKey)
	}
	if c.LookupCache {
		viper.Set("cache.enabled", true)
	}
	if c.SQLite != "" {
		viper.Set("crawl.sqlite", c.SQLite)
	}
	if c.Browser {
		viper.Set("bricklink.browser", true)
	}
	if explicit["headless"] {
		viper.Set("bricklink.headless", c.Headless)
	}
}

// explicitFlags returns the names of the flags given on the command line.
func explicitFlags(kctx *kong.Context) map[string]bool {
	set := make(map[string]bool)
	if kctx == nil {
		return set
	}
	for _, p := range kctx.Path {
		if p.Flag != nil {
			set[p.Flag.Name] = true
		}
	}
	return set
}

func runCrawl(ctx context.Context, cfg config.Config) (summary crawl.Summary, err error) {
	if dir := filepath.Dir(cfg.OutputFile); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return summary, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	store := parts.NewFileStore(cfg.OutputFile)
	if err := store.Lock(); err != nil {
		return summary, fmt.Errorf("%s: %w", cfg.OutputFile, err)
	}
	defer func() {
		err = errors.Join(err, store.Unlock())
	}()

	lookupOpts := []rebrickable.Option{
		rebrickable.WithBaseURL(cfg.LookupURL),
		rebrickable.WithRateLimiter(lookupLimiter(cfg.LookupRPS)),
	}
	if cfg.LookupCache {
		db, openErr := cache.Open(cfg.CacheDBFile)
		if openErr != nil {
			return summary, fmt.Errorf("failed to open cache database: %w", openErr)
		}
		defer func() {
			err = errors.Join(err, db.Close())
		}()
		slog.Info("Using lookup cache", "database", cfg.CacheDBFile, "ttl", cfg.CacheTTL)
		lookupOpts = append(lookupOpts, rebrickable.WithCache(db, cfg.CacheTTL, cfg.CacheNegativeTTL))
	}

	var fetcher bricklink.PageFetcher = bricklink.NewHTTPFetcher(cfg.UserAgent)
	if cfg.Browser {
		browser := bricklink.NewBrowserFetcher(bricklink.BrowserOptions{
			Headless:  cfg.Headless,
			UserAgent: cfg.UserAgent,
		})
		defer func() {
			err = errors.Join(err, browser.Close())
		}()
		fetcher = browser
	}

	crawler := crawl.New(cfg,
		brickarchitect.NewClient(cfg.CatalogURL, brickarchitect.WithUserAgent(cfg.UserAgent)),
		rebrickable.NewClient(cfg.RebrickableAPIKey, lookupOpts...),
		bricklink.NewClient(
			bricklink.WithBaseURL(cfg.DetailURL),
			bricklink.WithFetcher(fetcher),
			bricklink.WithDelay(cfg.DetailDelay),
		),
		store,
	)

	summary, err = crawler.Run(ctx)
	if err != nil {
		return summary, err
	}

	if cfg.SQLiteFile != "" {
		if err := exportSQLite(datastore.NewSQLiteStore(cfg.SQLiteFile), cfg.SQLiteFile, store); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// lookupLimiter paces lookups at rps requests per second. Zero or less
// disables pacing.
func lookupLimiter(rps float64) *ratelimit.Limiter {
	if rps <= 0 {
		return nil
	}
	return ratelimit.NewEvery("Rebrickable", time.Duration(float64(time.Second)/rps))
}

func exportSQLite(db datastore.Store, path string, store *parts.FileStore) error {
	pieces, err := store.Load()
	if err != nil {
		return err
	}

	if err := db.Connect(); err != nil {
		return err
	}
	if err := db.ReplaceParts(pieces); err != nil {
		return errors.Join(fmt.Errorf("failed to export parts to %s: %w", path, err), db.Close())
	}
	if err := db.Close(); err != nil {
		return err
	}

	slog.Info("Exported parts to SQLite", "database", path, "table", datastore.PartsTable, "count", len(pieces))
	return nil
}
