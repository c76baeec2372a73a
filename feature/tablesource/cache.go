package tablesource

import (
	"context"
	gosync "sync"
	"time"

	"golang.org/x/sync/singleflight"

	syncengine "docsync/core/sync"
)

// snapshotEntry is one cached table snapshot.
type snapshotEntry struct {
	records []syncengine.SourceRecord
	built   time.Time
}

func (e *snapshotEntry) expired(ttl time.Duration) bool {
	if ttl == 0 {
		return true // No caching
	}
	return time.Since(e.built) > ttl
}

// CachedReader wraps a Reader with a TTL snapshot cache so a preview followed
// by a run does not fetch the same table twice. Uses singleflight to prevent
// cache stampedes. It implements sync.Reader.
type CachedReader struct {
	inner syncengine.Reader
	ttl   time.Duration

	mu        gosync.RWMutex
	snapshots map[string]*snapshotEntry
	sf        singleflight.Group
}

// NewCachedReader creates a caching wrapper. A zero TTL disables caching and
// every Fetch goes through.
func NewCachedReader(inner syncengine.Reader, ttl time.Duration) *CachedReader {
	return &CachedReader{
		inner:     inner,
		ttl:       ttl,
		snapshots: make(map[string]*snapshotEntry),
	}
}

// Fetch returns the cached snapshot when fresh, fetching otherwise.
func (r *CachedReader) Fetch(ctx context.Context, table string) ([]syncengine.SourceRecord, error) {
	// Fast path: check if the snapshot exists and is fresh
	r.mu.RLock()
	entry, exists := r.snapshots[table]
	r.mu.RUnlock()

	if exists && !entry.expired(r.ttl) {
		return entry.records, nil
	}

	// Slow path: fetch using singleflight to prevent stampedes
	result, err, _ := r.sf.Do(table, func() (interface{}, error) {
		// Double-check after acquiring singleflight lock
		r.mu.RLock()
		entry, exists := r.snapshots[table]
		r.mu.RUnlock()

		if exists && !entry.expired(r.ttl) {
			return entry.records, nil
		}

		records, err := r.inner.Fetch(ctx, table)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.snapshots[table] = &snapshotEntry{records: records, built: time.Now()}
		r.mu.Unlock()

		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]syncengine.SourceRecord), nil
}

// Invalidate drops the cached snapshot of a table.
func (r *CachedReader) Invalidate(table string) {
	r.mu.Lock()
	delete(r.snapshots, table)
	r.mu.Unlock()
}
