package verify

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"docsync/core/database"
	syncengine "docsync/core/sync"
)

// expectedColumns is the column set a healthy documents table carries.
var expectedColumns = []string{
	"collection",
	"doc_id",
	"primary_key",
	"fields",
	"checksum",
	"version_id",
	"is_latest",
	"synced_at",
}

// Service handles destination consistency checks.
type Service struct {
	db      *gorm.DB
	store   syncengine.Store
	exclude map[string]struct{}
	logger  *zap.Logger
}

// NewService creates a new verify service. The exclude set must match the one
// used when checksums were written.
func NewService(db *gorm.DB, store syncengine.Store, exclude map[string]struct{}, logger *zap.Logger) *Service {
	return &Service{
		db:      db,
		store:   store,
		exclude: exclude,
		logger:  logger,
	}
}

// CheckSchema returns the columns missing from the documents table.
func (s *Service) CheckSchema() ([]string, error) {
	columns, err := database.GetTableColumns(s.db, "documents")
	if err != nil {
		return nil, fmt.Errorf("failed to inspect documents table: %w", err)
	}

	present := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		present[col.Field] = struct{}{}
	}

	var missing []string
	for _, want := range expectedColumns {
		if _, ok := present[want]; !ok {
			missing = append(missing, want)
		}
	}
	return missing, nil
}

// LineageIssue reports a primary key violating the single-latest rule.
type LineageIssue struct {
	PrimaryKey  string `json:"primary_key"`
	LatestCount int    `json:"latest_count"`
	Versions    int    `json:"versions"`
}

// CheckLineage returns the primary keys of a collection whose version lineage
// does not have exactly one document flagged latest.
func (s *Service) CheckLineage(ctx context.Context, collection string) ([]LineageIssue, error) {
	docs, err := s.store.Query(ctx, collection)
	if err != nil {
		return nil, err
	}

	type lineage struct {
		latest   int
		versions int
	}
	byKey := make(map[string]*lineage)
	for _, doc := range docs {
		l := byKey[doc.PrimaryKey]
		if l == nil {
			l = &lineage{}
			byKey[doc.PrimaryKey] = l
		}
		l.versions++
		if doc.IsLatest {
			l.latest++
		}
	}

	var issues []LineageIssue
	for pk, l := range byKey {
		if l.latest != 1 {
			issues = append(issues, LineageIssue{PrimaryKey: pk, LatestCount: l.latest, Versions: l.versions})
		}
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].PrimaryKey < issues[j].PrimaryKey })
	return issues, nil
}

// ChecksumIssue reports a document whose stored checksum does not match its
// fields.
type ChecksumIssue struct {
	DocID    string `json:"doc_id"`
	Stored   string `json:"stored"`
	Computed string `json:"computed"`
}

// CheckChecksums recomputes the content checksum of every document of a
// collection and returns the mismatches. Documents with no stored checksum
// are skipped.
func (s *Service) CheckChecksums(ctx context.Context, collection string) ([]ChecksumIssue, error) {
	docs, err := s.store.Query(ctx, collection)
	if err != nil {
		return nil, err
	}

	var issues []ChecksumIssue
	for _, doc := range docs {
		if doc.Checksum == "" {
			continue
		}
		computed, err := syncengine.Checksum(doc.Fields, s.exclude)
		if err != nil {
			s.logger.Warn("failed to recompute checksum",
				zap.String("doc_id", doc.DocID),
				zap.Error(err),
			)
			continue
		}
		if computed != doc.Checksum {
			issues = append(issues, ChecksumIssue{DocID: doc.DocID, Stored: doc.Checksum, Computed: computed})
		}
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].DocID < issues[j].DocID })
	return issues, nil
}
