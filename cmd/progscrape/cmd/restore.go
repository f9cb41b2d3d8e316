package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/progscrape/progscrape-sub000/pkg/backup"
)

// restoreCommand reloads shard dumps from the backup directory back into
// the raw scrape store; it does not rebuild the search index, matching
// spec.md §1's division between C3 (durable store) and C8 (derived index).
func restoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "restore",
		Usage: "restore raw scrapes from a backup directory into the scrape store",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "shard",
				Usage: "restrict the restore to these shards (YYYY-MM); defaults to every shard present on disk",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a := appFromContext(ctx)
			logger := zerolog.Ctx(ctx).With().Str("cmd", "restore").Logger()

			shards, err := resolveBackupShards(a, cmd.StringSlice("shard"))
			if err != nil {
				return err
			}

			if err := backup.Restore(ctx, a.store, shards, a.cfg.Storage.BackupDir); err != nil {
				return fmt.Errorf("cmd restore: %w", err)
			}

			logger.Info().Int("shards", len(shards)).Msg("restore complete")

			return nil
		},
	}
}
