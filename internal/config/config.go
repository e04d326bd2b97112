package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default source endpoints.
const (
	DefaultCatalogURL = "https://brickarchitect.com/parts/most-common-allyears"
	DefaultLookupURL  = "https://rebrickable.com/api/v3/lego/parts/"
	DefaultDetailURL  = "https://www.bricklink.com/v2/catalog/catalogitem.page"
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Config holds everything a crawl run needs. It is built once at startup and
// passed down explicitly.
type Config struct {
	OutputFile string
	MaxPages   int

	PageDelay   time.Duration
	DetailDelay time.Duration

	RebrickableAPIKey string
	// LookupRPS paces calls to the lookup API. Zero disables pacing.
	LookupRPS float64

	CatalogURL string
	LookupURL  string
	DetailURL  string
	UserAgent  string

	// Browser fetches detail pages through a headless Chrome instead of plain HTTP.
	Browser  bool
	Headless bool

	// LookupCache enables the SQLite response cache for the lookup API.
	LookupCache      bool
	CacheDBFile      string
	CacheTTL         time.Duration
	CacheNegativeTTL time.Duration

	// SQLiteFile, when set, receives a copy of the finished result set.
	SQLiteFile string
}

// SetDefaults registers default values for every configuration key.
func SetDefaults() {
	viper.SetDefault("crawl.output", "parts.json")
	viper.SetDefault("crawl.max_pages", 100)
	viper.SetDefault("crawl.page_delay", "100ms")
	viper.SetDefault("crawl.detail_delay", "2s")
	viper.SetDefault("crawl.sqlite", "")

	viper.SetDefault("catalog.url", DefaultCatalogURL)

	viper.SetDefault("rebrickable.url", DefaultLookupURL)
	viper.SetDefault("rebrickable.api_key", "")
	viper.SetDefault("rebrickable.rps", 1.0)

	viper.SetDefault("bricklink.url", DefaultDetailURL)
	viper.SetDefault("bricklink.browser", false)
	viper.SetDefault("bricklink.headless", true)

	viper.SetDefault("http.user_agent", DefaultUserAgent)

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "720h")
	viper.SetDefault("cache.negative_ttl", "24h")
}

// Load reads the current viper state into a Config.
func Load() Config {
	return Config{
		OutputFile:        viper.GetString("crawl.output"),
		MaxPages:          viper.GetInt("crawl.max_pages"),
		PageDelay:         viper.GetDuration("crawl.page_delay"),
		DetailDelay:       viper.GetDuration("crawl.detail_delay"),
		RebrickableAPIKey: viper.GetString("rebrickable.api_key"),
		LookupRPS:         viper.GetFloat64("rebrickable.rps"),
		CatalogURL:        viper.GetString("catalog.url"),
		LookupURL:         viper.GetString("rebrickable.url"),
		DetailURL:         viper.GetString("bricklink.url"),
		UserAgent:         viper.GetString("http.user_agent"),
		Browser:           viper.GetBool("bricklink.browser"),
		Headless:          viper.GetBool("bricklink.headless"),
		LookupCache:       viper.GetBool("cache.enabled"),
		CacheDBFile:       viper.GetString("cache.dbfile"),
		CacheTTL:          viper.GetDuration("cache.ttl"),
		CacheNegativeTTL:  viper.GetDuration("cache.negative_ttl"),
		SQLiteFile:        viper.GetString("crawl.sqlite"),
	}
}
