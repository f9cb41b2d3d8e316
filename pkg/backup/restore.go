package backup

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/progscrape/progscrape-sub000/pkg/scrape"
	"github.com/progscrape/progscrape-sub000/pkg/scrapestore"
	"github.com/progscrape/progscrape-sub000/pkg/shard"
	"github.com/progscrape/progscrape-sub000/pkg/storyerr"
)

// restoreChunk bounds how many records Restore buffers before flushing an
// InsertBatch call, mirroring scrapestore's own chunking.
const restoreChunk = 10000

// Restore reloads the dump in inDir of each shard listed in shards back
// into store. A listed shard whose dump file is absent is skipped. Restore is the inverse of Run: it
// decompresses each shard's NDJSON, re-parses each record with
// scrape.Unmarshal, and re-inserts it via Store.InsertBatch.
func Restore(ctx context.Context, store *scrapestore.Store, shards []shard.Shard, inDir string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelShards)

	for _, sh := range shards {
		sh := sh

		g.Go(func() error {
			return restoreShard(ctx, store, sh, inDir)
		})
	}

	return g.Wait()
}

func restoreShard(ctx context.Context, store *scrapestore.Store, sh shard.Shard, inDir string) error {
	path := inDir + "/" + sh.String() + dataSuffix

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return storyerr.New(storyerr.IOError, fmt.Errorf("backup: open %s: %w", path, err))
	}
	defer f.Close()

	gz, err := gzipReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	batch := make([]scrape.Record, 0, restoreChunk)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		if err := store.InsertBatch(ctx, batch); err != nil {
			return err
		}

		batch = batch[:0]

		return nil
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		rec, err := scrape.Unmarshal(line)
		if err != nil {
			return storyerr.New(storyerr.SerializationError, fmt.Errorf("backup: restore %s: %w", path, err))
		}

		batch = append(batch, rec)

		if len(batch) >= restoreChunk {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return storyerr.New(storyerr.IOError, fmt.Errorf("backup: scan %s: %w", path, err))
	}

	return flush()
}
