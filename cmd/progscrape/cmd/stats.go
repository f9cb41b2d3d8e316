package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// statsCommand reports C3's per-shard stats, the same numbers the backup
// freshness check compares against (spec.md §4.3).
func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print per-shard raw scrape counts and date ranges",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a := appFromContext(ctx)

			shards, err := a.store.Shards()
			if err != nil {
				return fmt.Errorf("cmd stats: %w", err)
			}

			for _, sh := range shards {
				stats, err := a.store.Stats(ctx, sh)
				if err != nil {
					return fmt.Errorf("cmd stats: %s: %w", sh, err)
				}

				fmt.Printf("%s\tcount=%d\tearliest=%s\tlatest=%s\n",
					sh, stats.Count, stats.Earliest.Format("2006-01-02"), stats.Latest.Format("2006-01-02"))
			}

			mostRecent, err := a.index.MostRecentStory(ctx)
			if err != nil {
				return fmt.Errorf("cmd stats: %w", err)
			}

			if !mostRecent.IsZero() {
				fmt.Printf("most recent indexed story: %s\n", mostRecent.Format("2006-01-02T15:04:05Z07:00"))
			}

			return nil
		},
	}
}
