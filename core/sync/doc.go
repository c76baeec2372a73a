// Package sync reconciles a paginated source table into a collection of a
// versioned document store under a caller-selected update strategy.
//
// A run has three phases:
//
// 1. Snapshot: the Reader fetches the full source table and the Store queries
// the full destination collection, concurrently.
//
// 2. Plan: the Planner diffs the two snapshots into a ChangeSet of creates,
// updates and deletes, disjoint in document ID. Planning is a pure function
// of the snapshots; nothing is written.
//
// 3. Execute: the Executor applies the ChangeSet in size-bounded batches with
// bounded concurrency, retrying transient failures with exponential backoff.
// Batches are independent, so a run can complete with partial failures; the
// successful batches stay applied.
//
// # Strategies
//
// Eight strategies cover the spectrum from destructive mirroring to
// append-only version history:
//
//   - full_refresh: delete everything, recreate from source
//   - replace: rewrite source records in place, clear duplicates per key
//   - soft_delete: update matched, create source-only, delete dest-only
//   - upsert_checksum: create new, update changed, skip unchanged
//   - upsert_checksum_with_delete: upsert plus delete dest-only
//   - versioned: append a new version per record on every run
//   - versioned_checksum: append a new version only on content change
//   - versioned_set: version the whole snapshot under one shared version ID
//
// Versioned strategies maintain a version lineage per primary key with
// exactly one document flagged latest; the lineage lives entirely in the
// version_id and is_latest fields of the documents themselves.
//
// # Usage Example
//
//	engine, err := sync.NewEngine(reader, store, cfg, log)
//	if err != nil {
//	    return err
//	}
//
//	// Dry run
//	plan, err := engine.Plan(ctx)
//
//	// Full run
//	report, err := engine.Run(ctx)
package sync
