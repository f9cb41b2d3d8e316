package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/progscrape/progscrape-sub000/pkg/backup"
	"github.com/progscrape/progscrape-sub000/pkg/shard"
)

// backupCommand dumps every known shard (or the ones named with --shard)
// to the configured backup directory, skipping any shard whose stats
// haven't changed since the last run (spec.md §6, Testable Property 7).
func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "write a gzip NDJSON backup of every shard, skipping unchanged ones",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "shard",
				Usage: "restrict the backup to these shards (YYYY-MM); defaults to every shard with data",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a := appFromContext(ctx)
			logger := zerolog.Ctx(ctx).With().Str("cmd", "backup").Logger()

			shards, err := resolveShards(a, cmd.StringSlice("shard"))
			if err != nil {
				return err
			}

			results, err := backup.Run(ctx, a.store, shards, a.cfg.Storage.BackupDir, logger)
			if err != nil {
				return fmt.Errorf("cmd backup: %w", err)
			}

			written, unchanged := 0, 0

			for _, r := range results {
				if r.Outcome == backup.Written {
					written++
				} else {
					unchanged++
				}
			}

			logger.Info().Int("written", written).Int("unchanged", unchanged).Msg("backup complete")

			return nil
		},
	}
}

func resolveShards(a *app, raw []string) ([]shard.Shard, error) {
	if len(raw) == 0 {
		return a.store.Shards()
	}

	return parseShards(raw)
}

func resolveBackupShards(a *app, raw []string) ([]shard.Shard, error) {
	if len(raw) == 0 {
		return backup.ListShards(a.cfg.Storage.BackupDir)
	}

	return parseShards(raw)
}

func parseShards(raw []string) ([]shard.Shard, error) {
	shards := make([]shard.Shard, 0, len(raw))

	for _, s := range raw {
		sh, err := shard.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("cmd: parse shard %q: %w", s, err)
		}

		shards = append(shards, sh)
	}

	return shards, nil
}
