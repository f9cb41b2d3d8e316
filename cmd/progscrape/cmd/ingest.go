package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/progscrape/progscrape-sub000/pkg/scrape"
)

// ingestCommand reads newline-delimited tagged-envelope scrape records
// (pkg/scrape.Marshal's wire form) from a file or stdin and inserts them
// through the full dedup/extract/score pipeline (spec.md §4.8.1).
func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "insert newline-delimited scrape records, deduping against the existing index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "path to a newline-delimited JSON scrape file, or \"-\" for stdin",
				Value: "-",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a := appFromContext(ctx)
			logger := zerolog.Ctx(ctx).With().Str("cmd", "ingest").Logger()

			records, err := readRecords(cmd.String("file"))
			if err != nil {
				return err
			}

			if err := a.index.InsertScrapes(ctx, records); err != nil {
				return fmt.Errorf("cmd ingest: %w", err)
			}

			logger.Info().Int("count", len(records)).Msg("ingested scrapes")

			return nil
		},
	}
}

func readRecords(path string) ([]scrape.Record, error) {
	var r io.Reader

	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("cmd: open %s: %w", path, err)
		}
		defer f.Close()

		r = f
	}

	var records []scrape.Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		rec, err := scrape.Unmarshal(line)
		if err != nil {
			return nil, fmt.Errorf("cmd: parse record: %w", err)
		}

		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cmd: read %s: %w", path, err)
	}

	return records, nil
}
