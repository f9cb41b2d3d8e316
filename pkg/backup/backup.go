// Package backup implements the ambient backup/restore writer described in
// spec.md §1 and §6: a streaming NDJSON dump of a shard's raw scrapes,
// atomically renamed into place, paired with a small stats file used to
// skip shards that haven't changed since the last run (spec.md §4.3,
// Testable Property 7).
package backup

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/progscrape/progscrape-sub000/pkg/scrape"
	"github.com/progscrape/progscrape-sub000/pkg/scrapestore"
	"github.com/progscrape/progscrape-sub000/pkg/shard"
	"github.com/progscrape/progscrape-sub000/pkg/storyerr"
)

// dataSuffix and metaSuffix name a shard's two on-disk backup artifacts
// (spec.md §6). The dump is gzip-compressed NDJSON; the teacher's content-
// addressed stores compress payloads before a final atomic rename the same
// way (see DESIGN.md).
const (
	dataSuffix = ".json.gz"
	metaSuffix = ".meta.json"
)

// maxParallelShards bounds the backup fan-out, mirroring the teacher's
// errgroup-bounded concurrency pattern.
const maxParallelShards = 4

// Outcome reports whether a shard's backup was (re)written or skipped.
type Outcome int

const (
	Written Outcome = iota
	NoChange
)

// Meta is the on-disk `{count, earliest, latest}` stats object
// (spec.md §6).
type Meta struct {
	Count    int    `json:"count"`
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

func metaFromStats(s scrapestore.Stats) Meta {
	return Meta{Count: s.Count, Earliest: s.Earliest.UTC().Format(rfc3339), Latest: s.Latest.UTC().Format(rfc3339)}
}

const rfc3339 = "2006-01-02T15:04:05Z07:00"

func (m Meta) equal(other Meta) bool {
	return m.Count == other.Count && m.Earliest == other.Earliest && m.Latest == other.Latest
}

// Result is one shard's backup outcome.
type Result struct {
	Shard   shard.Shard
	Outcome Outcome
	Meta    Meta
}

// ListShards reports every shard with a data dump present in dir, used to
// discover what's restorable without consulting the (possibly empty)
// destination store.
func ListShards(dir string) ([]shard.Shard, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, storyerr.New(storyerr.IOError, fmt.Errorf("backup: read dir %s: %w", dir, err))
	}

	var shards []shard.Shard

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), dataSuffix) {
			continue
		}

		sh, err := shard.Parse(strings.TrimSuffix(e.Name(), dataSuffix))
		if err != nil {
			continue
		}

		shards = append(shards, sh)
	}

	sort.Slice(shards, func(i, j int) bool { return shards[i] < shards[j] })

	return shards, nil
}

// Run backs up every shard in shards from store into outDir, skipping
// shards whose stats are unchanged since the last run (spec.md §6,
// Testable Property 7). Shards are processed with bounded concurrency via
// errgroup, matching the teacher's cmd/serve.go fan-out style.
func Run(ctx context.Context, store *scrapestore.Store, shards []shard.Shard, outDir string, logger zerolog.Logger) ([]Result, error) {
	results := make([]Result, len(shards))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelShards)

	for i, sh := range shards {
		i, sh := i, sh

		g.Go(func() error {
			r, err := backupShard(ctx, store, sh, outDir, logger)
			if err != nil {
				return err
			}

			results[i] = r

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func backupShard(ctx context.Context, store *scrapestore.Store, sh shard.Shard, outDir string, logger zerolog.Logger) (Result, error) {
	stats, err := store.Stats(ctx, sh)
	if err != nil {
		return Result{}, err
	}

	current := metaFromStats(stats)
	metaPath := filepath.Join(outDir, sh.String()+metaSuffix)

	if previous, ok := readMeta(metaPath, logger); ok && previous.equal(current) {
		return Result{Shard: sh, Outcome: NoChange, Meta: current}, nil
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, storyerr.New(storyerr.IOError, fmt.Errorf("backup: mkdir %s: %w", outDir, err))
	}

	dataPath := filepath.Join(outDir, sh.String()+dataSuffix)
	if err := writeShardDump(ctx, store, sh, dataPath); err != nil {
		return Result{}, err
	}

	if err := writeMeta(metaPath, current); err != nil {
		return Result{}, err
	}

	return Result{Shard: sh, Outcome: Written, Meta: current}, nil
}

// readMeta intentionally swallows (logs) read/parse errors: a missing or
// corrupt meta file just means the shard re-backs-up, which is always safe
// (spec.md §5, "Backup metadata read errors are intentionally swallowed").
func readMeta(path string, logger zerolog.Logger) (Meta, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", path).Err(err).Msg("could not read backup meta file, re-backing up")
		}

		return Meta{}, false
	}

	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		logger.Warn().Str("path", path).Err(err).Msg("could not parse backup meta file, re-backing up")

		return Meta{}, false
	}

	return m, true
}

func writeMeta(path string, m Meta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return storyerr.New(storyerr.SerializationError, fmt.Errorf("backup: marshal meta: %w", err))
	}

	return atomicWrite(path, data)
}

// writeShardDump streams every record in sh to a gzip-compressed NDJSON
// temp file, then atomically renames it into place.
func writeShardDump(ctx context.Context, store *scrapestore.Store, sh shard.Shard, finalPath string) error {
	tmpPath := finalPath + "." + uuid.NewString() + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return storyerr.New(storyerr.IOError, fmt.Errorf("backup: create temp file: %w", err))
	}

	gz := gzip.NewWriter(f)
	w := bufio.NewWriter(gz)

	iterErr := store.Iterate(ctx, sh, func(r scrape.Record) error {
		payload, err := scrape.Marshal(r)
		if err != nil {
			return err
		}

		if _, err := w.Write(payload); err != nil {
			return storyerr.New(storyerr.IOError, fmt.Errorf("backup: write record: %w", err))
		}

		return w.WriteByte('\n')
	}, func(id string, err error) {
		// Per-record decode errors are reported by Iterate's caller
		// (Stats), not here; a record that fails to re-marshal during
		// backup is surfaced as a fatal error instead, since it indicates
		// in-memory corruption rather than an on-disk legacy format.
	})

	closeErr := w.Flush()
	gzErr := gz.Close()
	fErr := f.Close()

	if iterErr != nil {
		os.Remove(tmpPath) //nolint:errcheck

		return iterErr
	}

	for _, err := range []error{closeErr, gzErr, fErr} {
		if err != nil {
			os.Remove(tmpPath) //nolint:errcheck

			return storyerr.New(storyerr.IOError, fmt.Errorf("backup: finalize temp file: %w", err))
		}
	}

	return atomicRename(tmpPath, finalPath)
}

func atomicWrite(path string, data []byte) error {
	tmpPath := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return storyerr.New(storyerr.IOError, fmt.Errorf("backup: write temp file: %w", err))
	}

	return atomicRename(tmpPath, path)
}

func atomicRename(tmpPath, finalPath string) error {
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath) //nolint:errcheck

		return storyerr.New(storyerr.IOError, fmt.Errorf("backup: rename %s to %s: %w", tmpPath, finalPath, err))
	}

	return nil
}

// gzipReader wraps r in a gzip reader, used by Restore to decompress a
// shard dump written by writeShardDump.
func gzipReader(r *os.File) (*gzip.Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, storyerr.New(storyerr.IOError, fmt.Errorf("backup: open gzip reader: %w", err))
	}

	return gz, nil
}
