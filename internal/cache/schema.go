package cache

// SQL schemas for cache tables.
// Every cache table keys on "cache_key" and stores unix timestamps so that
// each entry can carry its own expiry.

// RebrickableTable caches lookup API answers keyed by LEGO part id.
const RebrickableTable = "rebrickable_cache"

// RebrickableCacheSchema defines the schema for the Rebrickable lookup cache.
const RebrickableCacheSchema = `
CREATE TABLE IF NOT EXISTS rebrickable_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rebrickable_expires_at ON rebrickable_cache(expires_at);
`

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas = []string{
	RebrickableCacheSchema,
}

// ValidCacheTableNames is the whitelist of allowed cache table names.
// Table names are interpolated into SQL, so nothing else may be used.
var ValidCacheTableNames = map[string]bool{
	RebrickableTable: true,
}
