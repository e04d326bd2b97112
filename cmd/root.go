package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/brickmass/internal/cache"
	"github.com/lepinkainen/brickmass/internal/config"
	brickerrors "github.com/lepinkainen/brickmass/internal/errors"
)

// CLI represents the complete command structure for the brickmass application
type CLI struct {
	// Global flags
	Verbose bool `short:"v" help:"Enable debug logging"`

	// Cache flags
	CacheDBFile string `help:"Path to cache SQLite database file" default:"./cache.db"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 720h for 30 days)" default:"720h"`

	Crawl CrawlCmd `cmd:"" help:"Crawl the most common parts listing and enrich every part with weight and dimensions"`
	Stats StatsCmd `cmd:"" help:"Summarize the bounding sphere sizes of crawled parts"`
	Cache CacheCmd `cmd:"" help:"Manage the lookup response cache"`
}

// CacheCmd groups the cache maintenance subcommands
type CacheCmd struct {
	Clear cache.ClearCmd `cmd:"" help:"Remove cached Rebrickable responses"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging(false)
	if err := initConfig(); err != nil {
		slog.Error("Fatal error config file", "error", err)
		os.Exit(1)
	}

	var cli CLI

	kctx := kong.Parse(&cli,
		kong.Name("brickmass"),
		kong.Description("Collect weight and packaging dimensions for the most common LEGO parts."),
		kong.UsageOnError(),
	)

	if cli.Verbose {
		initLogging(true)
	}
	updateGlobalConfig(&cli)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	kctx.BindTo(ctx, (*context.Context)(nil))

	err := kctx.Run()
	stop()
	if err != nil {
		if brickerrors.IsStopProcessingError(err) {
			slog.Warn("Stopped", "reason", err)
			os.Exit(130)
		}
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() error {
	config.SetDefaults()

	// Enable environment variable support
	viper.AutomaticEnv()
	if err := viper.BindEnv("rebrickable.api_key", "REBRICKABLE_API_KEY"); err != nil {
		return fmt.Errorf("failed to bind environment variable: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			slog.Debug("No config file found, using defaults and flags")
			return nil
		}
		return err
	}
	slog.Debug("Loaded config file", "path", viper.ConfigFileUsed())
	return nil
}

func updateGlobalConfig(cli *CLI) {
	viper.Set("cache.dbfile", cli.CacheDBFile)
	viper.Set("cache.ttl", cli.CacheTTL)
}

func initLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))
}
