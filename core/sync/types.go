package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docsync/core/value"
)

// Strategy selects how a run's ChangeSet is computed from the source and
// destination snapshots.
type Strategy string

const (
	// FullRefresh deletes everything in the destination and recreates it from
	// the source snapshot. Destructive on an empty source; callers guard.
	FullRefresh Strategy = "full_refresh"

	// Replace rewrites every source record in place and removes accumulated
	// duplicate documents sharing its primary key. Destination documents with
	// no matching source key are left untouched.
	Replace Strategy = "replace"

	// SoftDelete updates records present in both sides, creates source-only
	// records and deletes destination-only records.
	SoftDelete Strategy = "soft_delete"

	// UpsertChecksum creates source-only records and updates records whose
	// content checksum changed. Unchanged records produce no writes at all,
	// which is the idempotence guarantee.
	UpsertChecksum Strategy = "upsert_checksum"

	// UpsertChecksumWithDelete is UpsertChecksum plus deletion of
	// destination-only records.
	UpsertChecksumWithDelete Strategy = "upsert_checksum_with_delete"

	// Versioned unconditionally appends a new version for every source record
	// on every run and unlatches the previous latest. The always-append
	// behavior is intentional; use VersionedChecksum to append only on change.
	Versioned Strategy = "versioned"

	// VersionedChecksum appends a new version only when a record's checksum
	// differs from its current latest version (or no version exists yet).
	VersionedChecksum Strategy = "versioned_checksum"

	// VersionedSet versions the snapshot as a whole: if the aggregate checksum
	// changed, every current latest document is unlatched and the full source
	// snapshot is written as one new version sharing a single version ID.
	VersionedSet Strategy = "versioned_set"
)

// Strategies returns the closed strategy set in a stable order.
func Strategies() []Strategy {
	return []Strategy{
		FullRefresh,
		Replace,
		SoftDelete,
		UpsertChecksum,
		UpsertChecksumWithDelete,
		Versioned,
		VersionedChecksum,
		VersionedSet,
	}
}

// ParseStrategy maps a configured name onto the closed strategy set.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Strategies() {
		if s == known {
			return s, nil
		}
	}
	return "", &ConfigurationError{Reason: fmt.Sprintf("unknown strategy %q", name)}
}

// IsVersioned reports whether the strategy maintains version lineage
// (version IDs and the latest flag).
func (s Strategy) IsVersioned() bool {
	switch s {
	case Versioned, VersionedChecksum, VersionedSet:
		return true
	default:
		return false
	}
}

// SourceRecord is one record of the source snapshot: a primary key and its
// canonicalized field map.
type SourceRecord struct {
	PrimaryKey string
	Fields     value.Object
}

// Document is one destination document. DocID equals the primary key for
// non-versioned strategies and a key/version hash for versioned ones, so the
// same logical record is overwritten in place or appended respectively.
type Document struct {
	DocID      string       `json:"doc_id"`
	PrimaryKey string       `json:"primary_key"`
	Fields     value.Object `json:"fields"`
	Checksum   string       `json:"checksum"`
	VersionID  string       `json:"version_id,omitempty"`
	IsLatest   bool         `json:"is_latest"`
	SyncedAt   time.Time    `json:"synced_at"`
}

// ChangeSet is the planned writes and deletes for one run. Creates, Updates
// and Deletes are disjoint in DocID. It is produced fresh per run and consumed
// once by the executor.
type ChangeSet struct {
	Creates []Document `json:"creates"`
	Updates []Document `json:"updates"`
	Deletes []string   `json:"deletes"`
}

// Empty reports whether the change set contains no work.
func (c *ChangeSet) Empty() bool {
	return len(c.Creates) == 0 && len(c.Updates) == 0 && len(c.Deletes) == 0
}

// Size returns the total number of planned operations.
func (c *ChangeSet) Size() int {
	return len(c.Creates) + len(c.Updates) + len(c.Deletes)
}

// Reader fetches the full source snapshot for a named table. Implementations
// own pagination, authentication and rate limiting; the snapshot is consumed
// to completion before planning begins.
type Reader interface {
	Fetch(ctx context.Context, table string) ([]SourceRecord, error)
}

// Outcome is the per-document result of one batched store operation.
type Outcome struct {
	DocID string
	Err   error
}

// Store is the destination document store, scoped to named collections.
// Implementations own connections, credentials and quota handling.
type Store interface {
	// Query returns all documents of a collection.
	Query(ctx context.Context, collection string) ([]Document, error)
	// BatchWrite creates or overwrites documents and reports a per-document
	// outcome. Writing an existing DocID replaces it in place.
	BatchWrite(ctx context.Context, collection string, docs []Document) ([]Outcome, error)
	// BatchDelete removes documents by ID and reports a per-ID outcome.
	// Deleting a missing ID is not an error.
	BatchDelete(ctx context.Context, collection string, docIDs []string) ([]Outcome, error)
}

// Config holds the recognized run options.
type Config struct {
	// Strategy is the name of the update strategy to apply.
	Strategy string `mapstructure:"strategy" default:"upsert_checksum"`
	// Table is the source table to fetch.
	Table string `mapstructure:"table" default:""`
	// Collection is the destination collection to reconcile against.
	Collection string `mapstructure:"collection" default:""`
	// PrimaryKeyField names the source field carrying the logical key.
	PrimaryKeyField string `mapstructure:"primary_key_field" default:"id"`
	// ChecksumExcludeFields is a comma-separated list of source fields left
	// out of checksum computation.
	ChecksumExcludeFields string `mapstructure:"checksum_exclude_fields" default:""`
	// BatchSize bounds the number of operations per destination batch.
	BatchSize int `mapstructure:"batch_size" default:"500"`
	// MaxConcurrentBatches bounds concurrent batch dispatch.
	MaxConcurrentBatches int `mapstructure:"max_concurrent_batches" default:"4"`
	// RetryAttempts is the total attempt count per batch for transient errors.
	RetryAttempts int `mapstructure:"retry_attempts" default:"3"`
	// ChecksumWorkers bounds the checksum worker pool during planning.
	ChecksumWorkers int `mapstructure:"checksum_workers" default:"8"`
}

// Validate checks the run options, returning a ConfigurationError on the
// first problem found.
func (c Config) Validate() error {
	if c.Table == "" {
		return &ConfigurationError{Reason: "table must be set"}
	}
	if c.Collection == "" {
		return &ConfigurationError{Reason: "collection must be set"}
	}
	if c.PrimaryKeyField == "" {
		return &ConfigurationError{Reason: "primary_key_field must be set"}
	}
	if c.BatchSize <= 0 {
		return &ConfigurationError{Reason: "batch_size must be positive"}
	}
	if _, err := ParseStrategy(c.Strategy); err != nil {
		return err
	}
	return nil
}

// ExcludeSet parses ChecksumExcludeFields into a lookup set.
func (c Config) ExcludeSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range strings.Split(c.ChecksumExcludeFields, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}
