package docstore

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	syncengine "docsync/core/sync"
)

// Store is the MySQL-backed document store. It implements sync.Store.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewStore creates a store over an established database connection.
func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

// Migrate creates or updates the documents table.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&documentRow{})
}

// Query returns all documents of a collection.
func (s *Store) Query(ctx context.Context, collection string) ([]syncengine.Document, error) {
	var rows []documentRow
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Find(&rows).Error; err != nil {
		return nil, classify(err)
	}

	docs := make([]syncengine.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.toDocument()
		if err != nil {
			return nil, syncengine.Permanent(err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// BatchWrite upserts the documents in one statement. An existing
// (collection, doc_id) row is replaced in place.
func (s *Store) BatchWrite(ctx context.Context, collection string, docs []syncengine.Document) ([]syncengine.Outcome, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	rows := make([]documentRow, 0, len(docs))
	outcomes := make([]syncengine.Outcome, 0, len(docs))
	for _, doc := range docs {
		row, err := rowFromDocument(collection, doc)
		if err != nil {
			// A document that cannot serialize fails alone; the rest of the
			// batch still writes.
			outcomes = append(outcomes, syncengine.Outcome{DocID: doc.DocID, Err: syncengine.Permanent(err)})
			continue
		}
		rows = append(rows, row)
		outcomes = append(outcomes, syncengine.Outcome{DocID: doc.DocID})
	}
	if len(rows) == 0 {
		return outcomes, nil
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
			UpdateAll: true,
		}).
		Create(&rows).Error
	if err != nil {
		return nil, classify(err)
	}
	return outcomes, nil
}

// BatchDelete removes documents by ID. Missing IDs are not an error.
func (s *Store) BatchDelete(ctx context.Context, collection string, docIDs []string) ([]syncengine.Outcome, error) {
	if len(docIDs) == 0 {
		return nil, nil
	}

	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id IN ?", collection, docIDs).
		Delete(&documentRow{}).Error
	if err != nil {
		return nil, classify(err)
	}

	outcomes := make([]syncengine.Outcome, len(docIDs))
	for i, id := range docIDs {
		outcomes[i] = syncengine.Outcome{DocID: id}
	}
	return outcomes, nil
}

// transientFragments are MySQL error texts worth retrying: lock contention,
// lost connections and server-side timeouts.
var transientFragments = []string{
	"deadlock",
	"lock wait timeout",
	"try restarting transaction",
	"connection refused",
	"connection reset",
	"invalid connection",
	"bad connection",
	"broken pipe",
	"i/o timeout",
	"too many connections",
}

// classify wraps a database error for the retry policy. Context cancellation
// passes through untouched so callers can tell it apart from store failures.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range transientFragments {
		if strings.Contains(msg, fragment) {
			return syncengine.Transient(err)
		}
	}
	return syncengine.Permanent(err)
}
