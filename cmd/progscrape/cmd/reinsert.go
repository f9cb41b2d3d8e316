package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/progscrape/progscrape-sub000/pkg/storyid"
)

// reinsertCommand re-extracts and re-scores a set of existing stories,
// used after tagger or scorer configuration changes (spec.md §4.8.3).
func reinsertCommand() *cli.Command {
	return &cli.Command{
		Name:      "reinsert",
		Usage:     "re-extract and re-score already-indexed stories by identifier",
		ArgsUsage: "<story-identifier-base64>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a := appFromContext(ctx)
			logger := zerolog.Ctx(ctx).With().Str("cmd", "reinsert").Logger()

			args := cmd.Args().Slice()
			if len(args) == 0 {
				return fmt.Errorf("cmd reinsert: at least one story identifier is required")
			}

			ids := make([]storyid.StoryIdentifier, 0, len(args))

			for _, raw := range args {
				id, err := storyid.ParseBase64(raw)
				if err != nil {
					return fmt.Errorf("cmd reinsert: parse %q: %w", raw, err)
				}

				ids = append(ids, id)
			}

			if err := a.index.Reinsert(ctx, ids); err != nil {
				return fmt.Errorf("cmd reinsert: %w", err)
			}

			logger.Info().Int("count", len(ids)).Msg("reinserted stories")

			return nil
		},
	}
}
