// Package local provides in-process lock implementations built on
// sync.Mutex and sync.RWMutex, keyed per shard. They are the only lockers
// this module ships, since the story index and raw scrape store are both
// single-process, embedded stores (spec.md §5).
package local
