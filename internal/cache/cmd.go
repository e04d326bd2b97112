package cache

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

// ClearCmd represents the cache clear subcommand
type ClearCmd struct {
	ExpiredOnly bool `help:"Only remove entries whose TTL has passed"`
}

func (c *ClearCmd) Run() error {
	dbPath := viper.GetString("cache.dbfile")

	slog.Info("Clearing lookup cache", "database", dbPath, "expired_only", c.ExpiredOnly)

	db, err := Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	defer func() { _ = db.Close() }()

	var rows int64
	if c.ExpiredOnly {
		rows, err = db.ClearExpired(RebrickableTable)
	} else {
		rows, err = db.ClearAll(RebrickableTable)
	}
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	slog.Info("Cache cleared", "table", RebrickableTable, "rows_deleted", rows)
	return nil
}
