// Package crawl walks the ranked parts listing and enriches every new part
// with lookup and detail data, saving the result set after each part.
package crawl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/brickmass/internal/config"
	brickerrors "github.com/lepinkainen/brickmass/internal/errors"
	"github.com/lepinkainen/brickmass/internal/parts"
	"github.com/lepinkainen/brickmass/internal/ratelimit"
)

// CatalogSource lists the ranked parts page by page.
type CatalogSource interface {
	FetchPage(ctx context.Context, page int) ([]parts.RawRow, error)
}

// LookupSource resolves a LEGO part id to its cross-reference ids.
type LookupSource interface {
	Lookup(ctx context.Context, legoID string) parts.Lookup
}

// DetailSource reads physical measurements for a BrickLink id.
type DetailSource interface {
	Fetch(ctx context.Context, brickLinkID string) parts.Measurements
}

// Store loads and saves the whole result set.
type Store interface {
	Load() ([]parts.Part, error)
	Save([]parts.Part) error
	Path() string
}

// Summary describes what a run did.
type Summary struct {
	// Pages is the number of listing pages fully processed.
	Pages int
	// Parts is the number of records processed in this run.
	Parts int
	// CacheHits is how many of them reused stored enrichment data.
	CacheHits int
	// Enriched is how many were looked up for the first time.
	Enriched int
	// Carried is how many earlier records were kept without being seen again.
	Carried int
}

// Crawler runs the enrichment pipeline. It is not safe for concurrent use.
type Crawler struct {
	cfg     config.Config
	catalog CatalogSource
	lookup  LookupSource
	detail  DetailSource
	store   Store
}

// New creates a Crawler.
func New(cfg config.Config, catalog CatalogSource, lookup LookupSource, detail DetailSource, store Store) *Crawler {
	return &Crawler{
		cfg:     cfg,
		catalog: catalog,
		lookup:  lookup,
		detail:  detail,
		store:   store,
	}
}

// Run crawls pages 1..MaxPages until a page comes back empty. The returned
// Summary is valid even when an error aborts the run.
func (c *Crawler) Run(ctx context.Context) (summary Summary, err error) {
	existing, err := c.store.Load()
	if err != nil {
		return summary, fmt.Errorf("failed to load existing parts: %w", err)
	}
	index := parts.Index(existing)
	slog.Info("Loaded existing parts from cache", "count", len(index), "path", c.store.Path())

	acc := newRecords(existing)
	defer func() {
		summary.Carried = acc.carried()
	}()

	for page := 1; page <= c.cfg.MaxPages; page++ {
		if page > 1 {
			if err := ratelimit.Pause(ctx, c.cfg.PageDelay); err != nil {
				return summary, stopped(ctx, acc)
			}
		}
		if ctx.Err() != nil {
			return summary, stopped(ctx, acc)
		}

		slog.Info("Scraping page", "page", page)
		rows, err := c.catalog.FetchPage(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return summary, stopped(ctx, acc)
			}
			slog.Error("Error on page", "page", page, "error", err, "total", acc.len())
			return summary, brickerrors.NewPageError(page, err)
		}

		count := 0
		for _, row := range rows {
			if row.ID == "" {
				continue
			}
			part, hit := c.process(ctx, row, index)
			if ctx.Err() != nil {
				// The in-flight part may be half enriched; it is not saved.
				return summary, stopped(ctx, acc)
			}

			acc.put(part)
			index[part.ID] = part
			if err := c.store.Save(acc.snapshot()); err != nil {
				slog.Error("Failed to save parts", "path", c.store.Path(), "error", err, "total", acc.len())
				return summary, brickerrors.NewPersistError(c.store.Path(), err)
			}

			count++
			summary.Parts++
			if hit {
				summary.CacheHits++
			} else {
				summary.Enriched++
			}
		}

		if count == 0 {
			slog.Info("No more data found, stopping", "page", page)
			break
		}

		summary.Pages++
		slog.Info("Found pieces on page", "page", page, "count", count, "total", acc.len())
	}

	slog.Info("Scraping complete", "total", acc.len(), "path", c.store.Path())
	return summary, nil
}

func stopped(ctx context.Context, acc *records) error {
	slog.Warn("Crawl interrupted", "total", acc.len(), "reason", ctx.Err())
	return brickerrors.NewStopProcessingError(fmt.Sprintf("crawl interrupted after %d parts: %v", acc.len(), ctx.Err()))
}

// process builds the record for row. Known ids keep their stored enrichment
// fields and never touch the slow sources.
func (c *Crawler) process(ctx context.Context, row parts.RawRow, index map[string]parts.Part) (parts.Part, bool) {
	part := row.Part()

	if prev, ok := index[row.ID]; ok {
		slog.Info("Part already scraped, skipping Rebrickable/BrickLink", "id", row.ID)
		return part.WithEnrichmentFrom(prev), true
	}

	slog.Info("Processing part", "id", row.ID, "name", row.Name)
	return c.enrich(ctx, part), false
}

func (c *Crawler) enrich(ctx context.Context, part parts.Part) parts.Part {
	lookup := c.lookup.Lookup(ctx, part.ID)
	if lookup.Status != parts.Found {
		slog.Warn("No Rebrickable data", "id", part.ID, "reason", lookup.Reason)
		part.EnrichmentStatus = parts.StatusLookupUnavailable
		return part
	}

	if lookup.PartNum != "" {
		partNum := lookup.PartNum
		part.RebrickablePartNum = &partNum
	}
	part.ExternalIDs = lookup.ExternalIDs

	if lookup.BrickLinkID == "" {
		slog.Info("Skipping BrickLink scrape, no BrickLink ID found", "id", part.ID)
		part.EnrichmentStatus = parts.StatusNoBrickLinkID
		return part
	}
	if ctx.Err() != nil {
		return part
	}

	slog.Info("Scraping BrickLink data", "id", part.ID, "bricklink_id", lookup.BrickLinkID)
	m := c.detail.Fetch(ctx, lookup.BrickLinkID)
	part.Weight = m.Weight
	part.PackDimX = m.PackDimX
	part.PackDimY = m.PackDimY
	part.PackDimZ = m.PackDimZ

	switch {
	case m.Status != parts.Found:
		slog.Warn("No BrickLink data", "id", part.ID, "bricklink_id", lookup.BrickLinkID, "reason", m.Reason)
		part.EnrichmentStatus = parts.StatusDetailUnavailable
	case m.Complete():
		part.EnrichmentStatus = parts.StatusComplete
	default:
		part.EnrichmentStatus = parts.StatusPartial
	}

	return part
}
