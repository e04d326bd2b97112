package cmd

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/brickmass/internal/config"
	"github.com/lepinkainen/brickmass/internal/parts"
	"github.com/lepinkainen/brickmass/internal/testutil"
)

func newPartsServer(t *testing.T) *testutil.FixtureServer {
	t.Helper()

	srv := testutil.NewFixtureServer(t)
	srv.Handle("/parts?page=1", testutil.HTML(testutil.CatalogHTML(
		testutil.CatalogRow{
			Name: "Brick 2 x 4", ID: "3001", Rank: "1", Pieces: "1,234", Sets: "567",
			Colors: "42", Years: "1958-2024", TotalYears: "67 years",
		},
		testutil.CatalogRow{Name: "Plate 1 x 2", ID: "3023", Rank: "2", Years: "1963"},
	)))
	srv.Handle("/parts?page=2", testutil.HTML(testutil.CatalogHTML()))
	srv.Handle("/lookup/?lego_id=3001", testutil.JSON(testutil.LookupJSON(
		testutil.LookupResult{PartNum: "3001", ExternalIDs: map[string][]string{"BrickLink": {"3001"}}},
	)))
	srv.Handle("/lookup/?lego_id=3023", testutil.JSON(testutil.LookupJSON()))
	srv.Handle("/detail?P=3001", testutil.HTML(testutil.DetailHTML("2.32g", "3.2 x 1.6 x 1.1 cm")))
	return srv
}

func testCrawlConfig(srv *testutil.FixtureServer, env *testutil.TestEnv) config.Config {
	return config.Config{
		OutputFile:        env.Path("out", "parts.json"),
		MaxPages:          10,
		RebrickableAPIKey: "test-key",
		CatalogURL:        srv.URL + "/parts",
		LookupURL:         srv.URL + "/lookup/",
		DetailURL:         srv.URL + "/detail",
		UserAgent:         "brickmass-test",
		Headless:          true,
		CacheDBFile:       env.Path("cache.db"),
		CacheTTL:          time.Hour,
		CacheNegativeTTL:  time.Minute,
	}
}

func TestRunCrawl_EndToEnd(t *testing.T) {
	env := testutil.NewTestEnv(t)
	srv := newPartsServer(t)

	cfg := testCrawlConfig(srv, env)
	cfg.SQLiteFile = env.Path("parts.db")

	summary, err := runCrawl(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, 2, summary.Parts)
	assert.Equal(t, 2, summary.Enriched)
	assert.Equal(t, 0, summary.CacheHits)

	pieces, err := parts.NewFileStore(cfg.OutputFile).Load()
	require.NoError(t, err)
	require.Len(t, pieces, 2)

	brick := pieces[0]
	assert.Equal(t, "3001", brick.ID)
	assert.Equal(t, 1234, brick.NumPieces)
	assert.Equal(t, 1958, brick.BeginYear)
	assert.Equal(t, 2024, brick.EndYear)
	require.NotNil(t, brick.Weight)
	assert.Equal(t, 2.32, *brick.Weight)
	require.True(t, brick.HasDimensions())
	assert.Equal(t, 1.1, *brick.PackDimZ)
	assert.Equal(t, parts.StatusComplete, brick.EnrichmentStatus)

	plate := pieces[1]
	assert.Equal(t, "3023", plate.ID)
	assert.Nil(t, plate.Weight)
	assert.Equal(t, parts.StatusLookupUnavailable, plate.EnrichmentStatus)
	assert.Equal(t, 0, srv.Hits("/detail?P=3023"))

	db, err := sql.Open("sqlite", cfg.SQLiteFile)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM parts").Scan(&count))
	assert.Equal(t, 2, count)

	// the lock is released once the run is over
	env.RequireFileExists("out/parts.json.lock")
	next := parts.NewFileStore(cfg.OutputFile)
	require.NoError(t, next.Lock())
	require.NoError(t, next.Unlock())
}

func TestRunCrawl_SecondRunUsesStoredData(t *testing.T) {
	env := testutil.NewTestEnv(t)
	srv := newPartsServer(t)
	cfg := testCrawlConfig(srv, env)

	_, err := runCrawl(context.Background(), cfg)
	require.NoError(t, err)
	first := env.ReadFileString("out/parts.json")
	lookups := srv.Hits("/lookup/?lego_id=3001")

	summary, err := runCrawl(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.CacheHits)
	assert.Equal(t, 0, summary.Enriched)
	assert.Equal(t, lookups, srv.Hits("/lookup/?lego_id=3001"))
	assert.Equal(t, 1, srv.Hits("/detail?P=3001"))
	assert.Equal(t, first, env.ReadFileString("out/parts.json"))
}

func TestRunCrawl_LookupCache(t *testing.T) {
	env := testutil.NewTestEnv(t)
	srv := newPartsServer(t)
	cfg := testCrawlConfig(srv, env)
	cfg.LookupCache = true

	_, err := runCrawl(context.Background(), cfg)
	require.NoError(t, err)
	env.RequireFileExists("cache.db")

	// a fresh document forces enrichment again, lookups come from the cache
	cfg.OutputFile = env.Path("out", "again.json")
	_, err = runCrawl(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, srv.Hits("/lookup/?lego_id=3001"))
	assert.Equal(t, 1, srv.Hits("/lookup/?lego_id=3023"))
	assert.Equal(t, 2, srv.Hits("/detail?P=3001"))
}

func TestRunCrawl_Locked(t *testing.T) {
	env := testutil.NewTestEnv(t)
	srv := newPartsServer(t)
	cfg := testCrawlConfig(srv, env)
	env.MkdirAll("out")

	holder := parts.NewFileStore(cfg.OutputFile)
	require.NoError(t, holder.Lock())
	t.Cleanup(func() { _ = holder.Unlock() })

	_, err := runCrawl(context.Background(), cfg)
	require.ErrorIs(t, err, parts.ErrLocked)
	assert.Equal(t, 0, srv.TotalHits())
}

func TestCrawlApply(t *testing.T) {
	resetCmdState(t)

	viper.Set("crawl.output", "from-config.json")
	cmd := &CrawlCmd{Pages: 4, DetailDelay: 3 * time.Second}
	cmd.apply(nil)

	cfg := config.Load()
	assert.Equal(t, "from-config.json", cfg.OutputFile, "unset flags keep config values")
	assert.Equal(t, 4, cfg.MaxPages)
	assert.Equal(t, 3*time.Second, cfg.DetailDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.PageDelay)
	assert.True(t, cfg.Headless)
	assert.False(t, cfg.Browser)
	assert.False(t, cfg.LookupCache)
}

func TestCrawlApply_Headless(t *testing.T) {
	tests := []struct {
		name   string
		config bool
		args   []string
		want   bool
	}{
		{name: "config false, no flag", config: false, args: []string{"crawl"}, want: false},
		{name: "config true, no flag", config: true, args: []string{"crawl"}, want: true},
		{name: "flag turns it off", config: true, args: []string{"crawl", "--no-headless"}, want: false},
		{name: "flag turns it on", config: false, args: []string{"crawl", "--headless"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetCmdState(t)
			viper.Set("bricklink.headless", tt.config)

			cli, kctx := parseCLI(t, tt.args...)
			cli.Crawl.apply(explicitFlags(kctx))

			assert.Equal(t, tt.want, config.Load().Headless)
		})
	}
}

func TestLookupLimiter(t *testing.T) {
	assert.Nil(t, lookupLimiter(0))
	assert.Nil(t, lookupLimiter(-1))

	l := lookupLimiter(2)
	require.NotNil(t, l)
	require.NoError(t, l.Wait(context.Background()))
}

type fakeExport struct {
	replaceErr error
	got        []parts.Part
	connected  bool
	closed     bool
}

func (f *fakeExport) Connect() error { f.connected = true; return nil }
func (f *fakeExport) Close() error   { f.closed = true; return nil }

func (f *fakeExport) ReplaceParts(pieces []parts.Part) error {
	f.got = pieces
	return f.replaceErr
}

func TestExportSQLite(t *testing.T) {
	env := testutil.NewTestEnv(t)
	store := parts.NewFileStore(env.Path("parts.json"))
	require.NoError(t, store.Save([]parts.Part{{Name: "Brick 2 x 4", ID: "3001"}, {Name: "Plate 1 x 2", ID: "3023"}}))

	t.Run("writes every part", func(t *testing.T) {
		db := &fakeExport{}
		require.NoError(t, exportSQLite(db, "parts.db", store))

		assert.True(t, db.connected)
		assert.True(t, db.closed)
		require.Len(t, db.got, 2)
		assert.Equal(t, "3023", db.got[1].ID)
	})

	t.Run("replace failure still closes", func(t *testing.T) {
		db := &fakeExport{replaceErr: errors.New("disk full")}
		err := exportSQLite(db, "parts.db", store)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to export parts to parts.db")
		assert.True(t, db.closed)
	})
}
