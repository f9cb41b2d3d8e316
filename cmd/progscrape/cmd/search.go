package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/progscrape/progscrape-sub000/pkg/shardedindex"
)

// searchCommand is a one-shot admin query over the index, exercising the
// query planner directly (spec.md §6: "Cron/admin invocations call the
// facade methods directly; there is no RPC boundary within the core").
func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "run a one-shot query against the sharded index and print matching stories as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag", Usage: "search by tag"},
			&cli.StringFlag{Name: "domain", Usage: "search by domain"},
			&cli.StringFlag{Name: "text", Usage: "full-text search over title/tags"},
			&cli.BoolFlag{Name: "front-page", Usage: "return the current front page"},
			&cli.IntFlag{Name: "limit", Usage: "maximum number of results", Value: 30},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a := appFromContext(ctx)

			q, err := queryFromFlags(cmd)
			if err != nil {
				return err
			}

			planner := shardedindex.NewPlanner(a.index, cmd.Int("limit"))

			stories, err := planner.Fetch(ctx, q)
			if err != nil {
				return fmt.Errorf("cmd search: %w", err)
			}

			return json.NewEncoder(os.Stdout).Encode(stories)
		},
	}
}

func queryFromFlags(cmd *cli.Command) (shardedindex.StoryQuery, error) {
	switch {
	case cmd.Bool("front-page"):
		return shardedindex.FrontPage(), nil
	case cmd.String("tag") != "":
		return shardedindex.TagSearch(cmd.String("tag")), nil
	case cmd.String("domain") != "":
		return shardedindex.DomainSearch(cmd.String("domain")), nil
	case cmd.String("text") != "":
		return shardedindex.TextSearch(cmd.String("text")), nil
	default:
		return shardedindex.StoryQuery{}, fmt.Errorf("cmd search: one of --front-page, --tag, --domain, --text is required")
	}
}
