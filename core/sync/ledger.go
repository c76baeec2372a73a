package sync

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// Ledger mints version identifiers for a single run. Version state itself is
// never stored separately: it persists only as the version_id and is_latest
// fields of destination documents, and LatestFor derives it back from a
// snapshot. A Ledger is created per run, so concurrent or repeated runs never
// share counters.
type Ledger struct {
	stamp   int64
	counter int
}

// NewLedger creates a ledger anchored at the run start time.
func NewLedger(start time.Time) *Ledger {
	return &Ledger{stamp: start.UTC().Unix()}
}

// NextVersionID returns the next version identifier: the run timestamp plus a
// zero-padded counter. IDs are monotonic and collision-free within a run, and
// ordered across runs by the timestamp prefix.
func (l *Ledger) NextVersionID() string {
	l.counter++
	return fmt.Sprintf("%d-%06d", l.stamp, l.counter)
}

// LatestFor returns the destination document currently flagged latest for a
// primary key. If a prior interrupted run left more than one latest flag, the
// highest version ID wins so the next versioned run converges back to one.
func LatestFor(primaryKey string, snapshot []Document) (Document, bool) {
	var best Document
	found := false
	for _, doc := range snapshot {
		if doc.PrimaryKey != primaryKey || !doc.IsLatest {
			continue
		}
		if !found || doc.VersionID > best.VersionID {
			best = doc
			found = true
		}
	}
	return best, found
}

// VersionedDocID derives the document ID for a versioned write. Hashing key
// and version together keeps every appended version addressable without ever
// reusing an ID.
func VersionedDocID(primaryKey, versionID string) string {
	sum := md5.Sum([]byte(primaryKey + "\x00" + versionID))
	return hex.EncodeToString(sum[:])
}
