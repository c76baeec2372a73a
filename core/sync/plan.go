package sync

import (
	"encoding/json"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	"go.uber.org/zap"
)

// Planner diffs a source snapshot against a destination snapshot and produces
// the ChangeSet for the selected strategy. Each strategy is a pure function of
// the two snapshots; the only run-scoped state is the version ledger.
type Planner struct {
	cfg      Config
	strategy Strategy
	ledger   *Ledger
	now      time.Time
	exclude  map[string]struct{}
	log      *zap.Logger
}

// Warning records a source record that was excluded from the plan.
type Warning struct {
	PrimaryKey string
	Err        error
}

// MarshalJSON renders the warning with the error flattened to its message.
func (w Warning) MarshalJSON() ([]byte, error) {
	msg := ""
	if w.Err != nil {
		msg = w.Err.Error()
	}
	return json.Marshal(struct {
		PrimaryKey string `json:"primary_key"`
		Error      string `json:"error"`
	}{PrimaryKey: w.PrimaryKey, Error: msg})
}

// NewPlanner creates a planner for one run.
func NewPlanner(cfg Config, strategy Strategy, ledger *Ledger, now time.Time, log *zap.Logger) *Planner {
	return &Planner{
		cfg:      cfg,
		strategy: strategy,
		ledger:   ledger,
		now:      now,
		exclude:  cfg.ExcludeSet(),
		log:      log,
	}
}

// Plan computes the change set. A duplicate or empty primary key in the source
// snapshot aborts with a ConfigurationError before anything is planned.
// Records whose checksum cannot be computed are excluded with a warning and
// the rest of the snapshot proceeds.
func (p *Planner) Plan(source []SourceRecord, dest []Document) (*ChangeSet, []Warning, error) {
	entries, warnings, err := p.checksumSource(source)
	if err != nil {
		return nil, nil, err
	}

	idx := indexDestination(dest, p.exclude)

	var cs *ChangeSet
	switch p.strategy {
	case FullRefresh:
		cs = p.planFullRefresh(entries, dest)
	case Replace:
		cs = p.planReplace(entries, idx)
	case SoftDelete:
		cs = p.planSoftDelete(entries, idx)
	case UpsertChecksum:
		cs = p.planUpsert(entries, idx, false)
	case UpsertChecksumWithDelete:
		cs = p.planUpsert(entries, idx, true)
	case Versioned:
		cs = p.planVersioned(entries, dest, idx, false)
	case VersionedChecksum:
		cs = p.planVersioned(entries, dest, idx, true)
	case VersionedSet:
		cs = p.planVersionedSet(entries, dest, idx)
	default:
		return nil, nil, &ConfigurationError{Reason: fmt.Sprintf("unknown strategy %q", p.strategy)}
	}

	return cs, warnings, nil
}

// sourceEntry pairs a source record with its content checksum.
type sourceEntry struct {
	rec SourceRecord
	sum string
}

// checksumSource validates primary keys and computes per-record checksums with
// a bounded worker pool.
func (p *Planner) checksumSource(source []SourceRecord) ([]sourceEntry, []Warning, error) {
	seen := make(map[string]struct{}, len(source))
	for _, rec := range source {
		if rec.PrimaryKey == "" {
			return nil, nil, &ConfigurationError{Reason: fmt.Sprintf("record missing value for primary key field %q", p.cfg.PrimaryKeyField)}
		}
		if _, dup := seen[rec.PrimaryKey]; dup {
			return nil, nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate primary key %q in source snapshot", rec.PrimaryKey)}
		}
		seen[rec.PrimaryKey] = struct{}{}
	}

	sums := make([]string, len(source))
	errs := make([]error, len(source))

	workers := p.cfg.ChecksumWorkers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(source) {
		workers = len(source)
	}

	jobs := make(chan int, len(source))
	var wg gosync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				sum, err := Checksum(source[i].Fields, p.exclude)
				if err != nil {
					errs[i] = &ChecksumError{PrimaryKey: source[i].PrimaryKey, Err: err}
					continue
				}
				sums[i] = sum
			}
		}()
	}
	for i := range source {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	entries := make([]sourceEntry, 0, len(source))
	var warnings []Warning
	for i, rec := range source {
		if errs[i] != nil {
			p.log.Warn("excluding record from plan",
				zap.String("primary_key", rec.PrimaryKey),
				zap.Error(errs[i]),
			)
			warnings = append(warnings, Warning{PrimaryKey: rec.PrimaryKey, Err: errs[i]})
			continue
		}
		entries = append(entries, sourceEntry{rec: rec, sum: sums[i]})
	}
	return entries, warnings, nil
}

// destIndex holds per-key views over the destination snapshot.
type destIndex struct {
	byKey   map[string][]Document
	exclude map[string]struct{}
}

func indexDestination(dest []Document, exclude map[string]struct{}) *destIndex {
	idx := &destIndex{
		byKey:   make(map[string][]Document, len(dest)),
		exclude: exclude,
	}
	for _, doc := range dest {
		idx.byKey[doc.PrimaryKey] = append(idx.byKey[doc.PrimaryKey], doc)
	}
	return idx
}

// checksum returns the stored checksum of a destination document, recomputing
// it from the fields when the column is empty (documents written by other
// tools). A document that cannot be checksummed compares as always-changed.
func (idx *destIndex) checksum(doc Document) string {
	if doc.Checksum != "" {
		return doc.Checksum
	}
	sum, err := Checksum(doc.Fields, idx.exclude)
	if err != nil {
		return ""
	}
	return sum
}

// primaryDoc picks the document a non-versioned strategy overwrites in place:
// the one whose ID equals the primary key if present, otherwise the latest,
// otherwise the lowest ID for determinism.
func (idx *destIndex) primaryDoc(primaryKey string) (Document, bool) {
	docs := idx.byKey[primaryKey]
	if len(docs) == 0 {
		return Document{}, false
	}
	for _, d := range docs {
		if d.DocID == primaryKey {
			return d, true
		}
	}
	if latest, ok := LatestFor(primaryKey, docs); ok {
		return latest, true
	}
	best := docs[0]
	for _, d := range docs[1:] {
		if d.DocID < best.DocID {
			best = d
		}
	}
	return best, true
}

// newDocument builds a destination document for a planned create.
func (p *Planner) newDocument(e sourceEntry, docID, versionID string, isLatest bool) Document {
	return Document{
		DocID:      docID,
		PrimaryKey: e.rec.PrimaryKey,
		Fields:     e.rec.Fields,
		Checksum:   e.sum,
		VersionID:  versionID,
		IsLatest:   isLatest,
		SyncedAt:   p.now,
	}
}

// overwrite builds the in-place update of an existing document with new
// content, keeping its ID and version metadata.
func (p *Planner) overwrite(target Document, e sourceEntry) Document {
	target.Fields = e.rec.Fields
	target.Checksum = e.sum
	target.SyncedAt = p.now
	return target
}

// planFullRefresh mirrors the source exactly: every source record becomes a
// create and every destination document not re-created is deleted. IDs that
// are re-created are overwritten in place by the write, which keeps creates
// and deletes disjoint.
func (p *Planner) planFullRefresh(entries []sourceEntry, dest []Document) *ChangeSet {
	cs := &ChangeSet{}
	created := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		doc := p.newDocument(e, e.rec.PrimaryKey, "", true)
		cs.Creates = append(cs.Creates, doc)
		created[doc.DocID] = struct{}{}
	}
	for _, doc := range dest {
		if _, ok := created[doc.DocID]; ok {
			continue
		}
		cs.Deletes = append(cs.Deletes, doc.DocID)
	}
	return cs
}

// planReplace rewrites each source record and clears accumulated duplicates
// for its key. The document whose ID already equals the fresh ID becomes an
// update; destination keys absent from the source are left untouched.
func (p *Planner) planReplace(entries []sourceEntry, idx *destIndex) *ChangeSet {
	cs := &ChangeSet{}
	for _, e := range entries {
		fresh := p.newDocument(e, e.rec.PrimaryKey, "", true)
		replaced := false
		for _, doc := range idx.byKey[e.rec.PrimaryKey] {
			if doc.DocID == fresh.DocID {
				replaced = true
				continue
			}
			cs.Deletes = append(cs.Deletes, doc.DocID)
		}
		if replaced {
			cs.Updates = append(cs.Updates, fresh)
		} else {
			cs.Creates = append(cs.Creates, fresh)
		}
	}
	return cs
}

// planSoftDelete partitions by key presence: both sides update, source-only
// creates, destination-only deletes.
func (p *Planner) planSoftDelete(entries []sourceEntry, idx *destIndex) *ChangeSet {
	cs := &ChangeSet{}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.rec.PrimaryKey] = struct{}{}
		if target, ok := idx.primaryDoc(e.rec.PrimaryKey); ok {
			cs.Updates = append(cs.Updates, p.overwrite(target, e))
			continue
		}
		cs.Creates = append(cs.Creates, p.newDocument(e, e.rec.PrimaryKey, "", true))
	}
	cs.Deletes = append(cs.Deletes, idx.unmatchedDocIDs(seen)...)
	return cs
}

// planUpsert creates source-only records and updates changed ones; unchanged
// records are excluded from the change set entirely. With withDelete set,
// destination-only records are removed as well.
func (p *Planner) planUpsert(entries []sourceEntry, idx *destIndex, withDelete bool) *ChangeSet {
	cs := &ChangeSet{}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.rec.PrimaryKey] = struct{}{}
		target, ok := idx.primaryDoc(e.rec.PrimaryKey)
		if !ok {
			cs.Creates = append(cs.Creates, p.newDocument(e, e.rec.PrimaryKey, "", true))
			continue
		}
		if idx.checksum(target) == e.sum {
			continue
		}
		cs.Updates = append(cs.Updates, p.overwrite(target, e))
	}
	if withDelete {
		cs.Deletes = append(cs.Deletes, idx.unmatchedDocIDs(seen)...)
	}
	return cs
}

// planVersioned appends a new version per source record. Without the checksum
// gate it appends on every run by design; with the gate, unchanged records are
// skipped. The previous latest document, if any, is unlatched.
func (p *Planner) planVersioned(entries []sourceEntry, dest []Document, idx *destIndex, onChangeOnly bool) *ChangeSet {
	cs := &ChangeSet{}
	for _, e := range entries {
		latest, ok := LatestFor(e.rec.PrimaryKey, dest)
		if onChangeOnly && ok && idx.checksum(latest) == e.sum {
			continue
		}
		if ok {
			latest.IsLatest = false
			latest.SyncedAt = p.now
			cs.Updates = append(cs.Updates, latest)
		}
		versionID := p.ledger.NextVersionID()
		cs.Creates = append(cs.Creates, p.newDocument(e, VersionedDocID(e.rec.PrimaryKey, versionID), versionID, true))
	}
	return cs
}

// planVersionedSet versions the snapshot as a whole. When the aggregate
// checksum of the source matches that of the current latest set, the change
// set is empty; otherwise every latest document is unlatched and the full
// snapshot is appended under one shared version ID.
func (p *Planner) planVersionedSet(entries []sourceEntry, dest []Document, idx *destIndex) *ChangeSet {
	cs := &ChangeSet{}

	sourcePairs := make(map[string]string, len(entries))
	for _, e := range entries {
		sourcePairs[e.rec.PrimaryKey] = e.sum
	}

	latestDocs := make([]Document, 0, len(idx.byKey))
	destPairs := make(map[string]string, len(idx.byKey))
	for pk := range idx.byKey {
		if latest, ok := LatestFor(pk, dest); ok {
			latestDocs = append(latestDocs, latest)
			destPairs[pk] = idx.checksum(latest)
		}
	}

	if AggregateChecksum(sourcePairs) == AggregateChecksum(destPairs) {
		return cs
	}

	sort.Slice(latestDocs, func(i, j int) bool { return latestDocs[i].DocID < latestDocs[j].DocID })
	for _, latest := range latestDocs {
		latest.IsLatest = false
		latest.SyncedAt = p.now
		cs.Updates = append(cs.Updates, latest)
	}

	versionID := p.ledger.NextVersionID()
	for _, e := range entries {
		cs.Creates = append(cs.Creates, p.newDocument(e, VersionedDocID(e.rec.PrimaryKey, versionID), versionID, true))
	}
	return cs
}

// unmatchedDocIDs returns the IDs of every document whose primary key is not
// in the seen set, in deterministic order.
func (idx *destIndex) unmatchedDocIDs(seen map[string]struct{}) []string {
	var ids []string
	for pk, docs := range idx.byKey {
		if _, ok := seen[pk]; ok {
			continue
		}
		for _, doc := range docs {
			ids = append(ids, doc.DocID)
		}
	}
	sort.Strings(ids)
	return ids
}
