// Package cmd assembles the progscrape CLI: one root command carrying
// global flags (config path, log level) plus one subcommand per admin
// operation. Grounded on the teacher's cmd/cmd.go command/flag-source
// shape, with the OpenTelemetry and multi-backend storage machinery
// dropped (no RPC surface in scope; see SPEC_FULL.md's DOMAIN STACK table).
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/progscrape/progscrape-sub000/pkg/config"
	"github.com/progscrape/progscrape-sub000/pkg/scorer"
	"github.com/progscrape/progscrape-sub000/pkg/scrapestore"
	"github.com/progscrape/progscrape-sub000/pkg/shardedindex"
	"github.com/progscrape/progscrape-sub000/pkg/tagger"
)

// Version is set with ldflags at build time.
//
//nolint:gochecknoglobals
var Version = "dev"

// app bundles the facade objects every subcommand needs: the raw scrape
// store, the sharded search index, and the loaded tuning tables. It's built
// once in Before and torn down in After, the way the teacher's serve
// command builds one cache.Cache for the lifetime of the process.
type app struct {
	cfg   config.AppConfig
	store *scrapestore.Store
	index *shardedindex.Index
}

type appKey struct{}

func appFromContext(ctx context.Context) *app {
	a, _ := ctx.Value(appKey{}).(*app)

	return a
}

// New builds the root progscrape command.
func New() *cli.Command {
	var closeApp func() error

	return &cli.Command{
		Name:    "progscrape",
		Usage:   "Aggregate, dedup, score, and index programming story submissions",
		Version: Version,
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			ctx, logger := setupLogger(ctx, cmd.String("log-level"))

			cfg, err := loadConfig(cmd.String("config"))
			if err != nil {
				return ctx, err
			}

			a, err := newApp(cfg, logger)
			if err != nil {
				return ctx, err
			}

			closeApp = a.Close

			logger.Info().
				Str("scrape_store_dir", cfg.Storage.ScrapeStoreDir).
				Str("index_dir", cfg.Storage.IndexDir).
				Msg("progscrape initialized")

			return context.WithValue(ctx, appKey{}, a), nil
		},
		After: func(_ context.Context, _ *cli.Command) error {
			if closeApp != nil {
				return closeApp()
			}

			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the YAML configuration file (storage roots, tagger/scorer tuning tables)",
				Sources: cli.EnvVars("PROGSCRAPE_CONFIG_FILE"),
				Value:   "progscrape.yaml",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Set the log level",
				Sources: cli.EnvVars("PROGSCRAPE_LOG_LEVEL"),
				Value:   "info",
				Validator: func(lvl string) error {
					_, err := zerolog.ParseLevel(lvl)

					return err
				},
			},
		},
		Commands: []*cli.Command{
			ingestCommand(),
			reinsertCommand(),
			backupCommand(),
			restoreCommand(),
			searchCommand(),
			statsCommand(),
		},
	}
}

// setupLogger mirrors the teacher's cmd.go Before hook: console writer on a
// terminal, JSON otherwise, level parsed from the flag.
func setupLogger(ctx context.Context, logLvl string) (context.Context, zerolog.Logger) {
	lvl, err := zerolog.ParseLevel(logLvl)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var output io.Writer = os.Stdout
	if term.IsTerminal(int(os.Stdout.Fd())) {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(output).Level(lvl).With().Timestamp().Logger()

	return logger.WithContext(ctx), logger
}

func loadConfig(path string) (config.AppConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return config.DefaultAppConfig("./data"), nil
	}

	cfg, err := config.LoadAppConfig(path)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("cmd: load config: %w", err)
	}

	return cfg, nil
}

func newApp(cfg config.AppConfig, logger zerolog.Logger) (*app, error) {
	store := scrapestore.New(cfg.Storage.ScrapeStoreDir, logger)

	tg := tagger.New(cfg.Tagger)
	sc := scorer.New(cfg.Scorer)

	index := shardedindex.New(cfg.Storage.IndexDir, store, tg, sc, cfg.Extract)

	return &app{cfg: cfg, store: store, index: index}, nil
}

func (a *app) Close() error {
	idxErr := a.index.Close()
	storeErr := a.store.Close()

	if idxErr != nil {
		return idxErr
	}

	return storeErr
}
