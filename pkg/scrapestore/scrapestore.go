// Package scrapestore implements C3: a durable key-value store of raw
// scrapes, sharded by year-month, one embedded SQLite database per shard
// (spec.md §4.3).
package scrapestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" //nolint:revive // registers the sqlite3 driver
	"github.com/rs/zerolog"

	"github.com/progscrape/progscrape-sub000/pkg/lock"
	"github.com/progscrape/progscrape-sub000/pkg/lock/local"
	"github.com/progscrape/progscrape-sub000/pkg/scrape"
	"github.com/progscrape/progscrape-sub000/pkg/shard"
	"github.com/progscrape/progscrape-sub000/pkg/storyerr"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
)

// chunkSize bounds how many records go into one insert transaction during
// bulk insert, per spec.md §5 ("broken into chunks of ~10,000
// documents to bound peak memory").
const chunkSize = 10000

const scrapesTable = `
CREATE TABLE IF NOT EXISTS scrapes (
	id      TEXT PRIMARY KEY,
	payload BLOB NOT NULL
);
`

// Stats is C3's stats() result, used by the backup freshness check
// (spec.md §4.3, Testable Property 7).
type Stats struct {
	Count    int
	Earliest time.Time
	Latest   time.Time
}

// Store is the raw scrape store: a mapping ScrapeId -> ScrapeRecord,
// partitioned by shard.
type Store struct {
	dir    string
	locker lock.RWLocker
	logger zerolog.Logger

	mu     sync.RWMutex
	shards map[shard.Shard]*sql.DB
}

// New opens (but does not populate) a raw scrape store rooted at dir. Shard
// databases are opened lazily, matching C3's "opening a shard lazily
// initializes its file" contract.
func New(dir string, logger zerolog.Logger) *Store {
	return &Store{
		dir:    dir,
		locker: local.NewRWLocker(),
		logger: logger.With().Str("component", "scrapestore").Logger(),
		shards: map[shard.Shard]*sql.DB{},
	}
}

func (s *Store) shardPath(sh shard.Shard) string {
	return filepath.Join(s.dir, sh.String(), "scrapes.sqlite")
}

func (s *Store) openShard(sh shard.Shard) (*sql.DB, error) {
	s.mu.RLock()
	db, ok := s.shards[sh]
	s.mu.RUnlock()

	if ok {
		return db, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.shards[sh]; ok {
		return db, nil
	}

	path := s.shardPath(sh)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storyerr.New(storyerr.IOError, fmt.Errorf("scrapestore: mkdir for shard %s: %w", sh, err))
	}

	sdb, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: open shard %s: %w", sh, err))
	}

	sdb.SetMaxOpenConns(1)

	if _, err := sdb.Exec(scrapesTable); err != nil {
		sdb.Close()

		return nil, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: create table for shard %s: %w", sh, err))
	}

	s.logger.Debug().Stringer("shard", sh).Str("path", path).Msg("opened shard")

	s.shards[sh] = sdb

	return sdb, nil
}

// InsertBatch groups records by shard (derived from each record's date)
// and upserts them in chunks of up to chunkSize records, one SQL
// transaction per chunk. Each chunk is all-or-nothing; a shard with more
// than chunkSize records is not: chunks committed before a failing chunk
// stay written.
func (s *Store) InsertBatch(ctx context.Context, records []scrape.Record) error {
	byShard := map[shard.Shard][]scrape.Record{}
	for _, r := range records {
		sh := shard.FromDate(r.Date())
		byShard[sh] = append(byShard[sh], r)
	}

	for sh, recs := range byShard {
		if err := s.lockAndInsertShard(ctx, sh, recs); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) lockAndInsertShard(ctx context.Context, sh shard.Shard, recs []scrape.Record) error {
	if err := s.locker.Lock(ctx, sh.String(), 0); err != nil {
		return storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: lock shard %s: %w", sh, err))
	}
	defer s.locker.Unlock(ctx, sh.String()) //nolint:errcheck

	db, err := s.openShard(sh)
	if err != nil {
		return err
	}

	for start := 0; start < len(recs); start += chunkSize {
		end := min(start+chunkSize, len(recs))
		if err := insertChunk(db, recs[start:end]); err != nil {
			return err
		}
	}

	return nil
}

func insertChunk(db *sql.DB, recs []scrape.Record) error {
	tx, err := db.Begin()
	if err != nil {
		return storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: begin tx: %w", err))
	}

	stmt, err := tx.Prepare(`INSERT INTO scrapes(id, payload) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`)
	if err != nil {
		tx.Rollback() //nolint:errcheck

		return storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: prepare insert: %w", err))
	}

	defer stmt.Close()

	for _, r := range recs {
		payload, err := scrape.Marshal(r)
		if err != nil {
			tx.Rollback() //nolint:errcheck

			return err
		}

		if _, err := stmt.Exec(r.ID().String(), payload); err != nil {
			tx.Rollback() //nolint:errcheck

			return storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: insert %s: %w", r.ID(), err))
		}
	}

	if err := tx.Commit(); err != nil {
		return storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: commit: %w", err))
	}

	return nil
}

// Fetch locates id's shard by date and loads the one record.
func (s *Store) Fetch(ctx context.Context, id storyid.ScrapeID, date time.Time) (scrape.Record, error) {
	sh := shard.FromDate(date)

	if err := s.locker.RLock(ctx, sh.String(), 0); err != nil {
		return nil, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: rlock shard %s: %w", sh, err))
	}
	defer s.locker.RUnlock(ctx, sh.String()) //nolint:errcheck

	db, err := s.openShard(sh)
	if err != nil {
		return nil, err
	}

	var payload []byte

	row := db.QueryRow(`SELECT payload FROM scrapes WHERE id = ?`, id.String())
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storyerr.New(storyerr.NotFound, fmt.Errorf("scrapestore: %s: %w", id, err))
		}

		return nil, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: fetch %s: %w", id, err))
	}

	return scrape.Unmarshal(payload)
}

// ShardedID pairs a ScrapeId with the shard it is known to live in, for
// FetchBatch's "ids with known shard" contract (spec.md §4.3).
type ShardedID struct {
	Shard shard.Shard
	ID    storyid.ScrapeID
}

// FetchBatch loads many records, grouped by shard, one query each.
func (s *Store) FetchBatch(ctx context.Context, ids []ShardedID) ([]scrape.Record, error) {
	byShard := map[shard.Shard][]storyid.ScrapeID{}
	for _, sid := range ids {
		byShard[sid.Shard] = append(byShard[sid.Shard], sid.ID)
	}

	var out []scrape.Record

	for sh, shardIDs := range byShard {
		recs, err := s.fetchShardIDs(ctx, sh, shardIDs)
		if err != nil {
			return nil, err
		}

		out = append(out, recs...)
	}

	return out, nil
}

func (s *Store) fetchShardIDs(ctx context.Context, sh shard.Shard, ids []storyid.ScrapeID) ([]scrape.Record, error) {
	if err := s.locker.RLock(ctx, sh.String(), 0); err != nil {
		return nil, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: rlock shard %s: %w", sh, err))
	}
	defer s.locker.RUnlock(ctx, sh.String()) //nolint:errcheck

	db, err := s.openShard(sh)
	if err != nil {
		return nil, err
	}

	recs := make([]scrape.Record, 0, len(ids))

	for _, id := range ids {
		var payload []byte

		row := db.QueryRow(`SELECT payload FROM scrapes WHERE id = ?`, id.String())
		if err := row.Scan(&payload); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}

			return nil, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: fetch %s: %w", id, err))
		}

		rec, err := scrape.Unmarshal(payload)
		if err != nil {
			return nil, err
		}

		recs = append(recs, rec)
	}

	return recs, nil
}

// ErrorVisitor receives individual deserialization errors during Iterate;
// they are reported, not fatal (spec.md §4.3).
type ErrorVisitor func(id string, err error)

// FetchNear looks up id in center and the window shards on either side of
// it (center-window..center+window, nearest first), for reconstituting a
// scrape whose exact storage shard isn't known — used when rebuilding a
// ScrapeCollection from a matched index document's scrape_ids (spec.md
// §4.8.1 step 4, mirroring the ±2-month neighbor window the ingestion
// pre-aggregation itself consults).
func (s *Store) FetchNear(ctx context.Context, id storyid.ScrapeID, center shard.Shard, window int) (scrape.Record, error) {
	for offset := 0; offset <= window; offset++ {
		for _, sh := range uniqueShards(center, offset) {
			rec, err := s.fetchOne(ctx, sh, id)
			if err == nil {
				return rec, nil
			}

			if !storyerr.Is(err, storyerr.NotFound) {
				return nil, err
			}
		}
	}

	return nil, storyerr.New(storyerr.NotFound, fmt.Errorf("scrapestore: %s not found within %d shards of %s", id, window, center))
}

func uniqueShards(center shard.Shard, offset int) []shard.Shard {
	if offset == 0 {
		return []shard.Shard{center}
	}

	return []shard.Shard{center.PlusMonths(offset), center.SubMonths(offset)}
}

func (s *Store) fetchOne(ctx context.Context, sh shard.Shard, id storyid.ScrapeID) (scrape.Record, error) {
	if err := s.locker.RLock(ctx, sh.String(), 0); err != nil {
		return nil, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: rlock shard %s: %w", sh, err))
	}
	defer s.locker.RUnlock(ctx, sh.String()) //nolint:errcheck

	db, err := s.openShard(sh)
	if err != nil {
		return nil, err
	}

	var payload []byte

	row := db.QueryRow(`SELECT payload FROM scrapes WHERE id = ?`, id.String())
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storyerr.New(storyerr.NotFound, fmt.Errorf("scrapestore: %s: %w", id, err))
		}

		return nil, storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: fetch %s: %w", id, err))
	}

	return scrape.Unmarshal(payload)
}

// Iterate streams all records in sh to visitor from a single query.
func (s *Store) Iterate(ctx context.Context, sh shard.Shard, visitor func(scrape.Record) error, onError ErrorVisitor) error {
	if err := s.locker.RLock(ctx, sh.String(), 0); err != nil {
		return storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: rlock shard %s: %w", sh, err))
	}
	defer s.locker.RUnlock(ctx, sh.String()) //nolint:errcheck

	db, err := s.openShard(sh)
	if err != nil {
		return err
	}

	rows, err := db.Query(`SELECT id, payload FROM scrapes ORDER BY id`)
	if err != nil {
		return storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: iterate shard %s: %w", sh, err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id      string
			payload []byte
		)

		if err := rows.Scan(&id, &payload); err != nil {
			return storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: scan shard %s: %w", sh, err))
		}

		rec, err := scrape.Unmarshal(payload)
		if err != nil {
			if onError != nil {
				onError(id, err)
			}

			continue
		}

		if err := visitor(rec); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return storyerr.New(storyerr.StorageBackendError, fmt.Errorf("scrapestore: rows err shard %s: %w", sh, err))
	}

	return nil
}

// Stats returns {count, earliest, latest} for sh, used by the backup
// freshness check to skip unchanged shards (spec.md §4.3, Testable
// Property 7).
func (s *Store) Stats(ctx context.Context, sh shard.Shard) (Stats, error) {
	var stats Stats

	err := s.Iterate(ctx, sh, func(r scrape.Record) error {
		if stats.Count == 0 {
			stats.Earliest = r.Date()
			stats.Latest = r.Date()
		} else {
			if r.Date().Before(stats.Earliest) {
				stats.Earliest = r.Date()
			}

			if r.Date().After(stats.Latest) {
				stats.Latest = r.Date()
			}
		}

		stats.Count++

		return nil
	}, func(id string, err error) {
		s.logger.Warn().Str("id", id).Err(err).Msg("skipping undecodable scrape while computing stats")
	})

	return stats, err
}

// Shards lists every shard with an on-disk database under the store's
// root, ascending, by scanning the shard-named subdirectories (used by
// cmd/progscrape's backup/restore "all shards" mode rather than requiring
// an operator to enumerate months by hand).
func (s *Store) Shards() ([]shard.Shard, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, storyerr.New(storyerr.IOError, fmt.Errorf("scrapestore: read dir %s: %w", s.dir, err))
	}

	var shards []shard.Shard

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		sh, err := shard.Parse(e.Name())
		if err != nil {
			continue
		}

		if _, err := os.Stat(filepath.Join(s.dir, e.Name(), "scrapes.sqlite")); err != nil {
			continue
		}

		shards = append(shards, sh)
	}

	sort.Slice(shards, func(i, j int) bool { return shards[i] < shards[j] })

	return shards, nil
}

// Close closes every opened shard database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error

	for sh, db := range s.shards {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("scrapestore: close shard %s: %w", sh, err)
		}
	}

	return firstErr
}
