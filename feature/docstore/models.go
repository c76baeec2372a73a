package docstore

import (
	"encoding/json"
	"fmt"
	"time"

	syncengine "docsync/core/sync"
	"docsync/core/value"
)

// documentRow is the 'documents' table. The composite primary key makes a
// write of an existing (collection, doc_id) an in-place replace.
type documentRow struct {
	Collection string    `gorm:"column:collection;primaryKey"`
	DocID      string    `gorm:"column:doc_id;primaryKey"`
	PrimaryKey string    `gorm:"column:primary_key;index:idx_documents_pk"`
	Fields     []byte    `gorm:"column:fields"`
	Checksum   string    `gorm:"column:checksum"`
	VersionID  string    `gorm:"column:version_id"`
	IsLatest   bool      `gorm:"column:is_latest"`
	SyncedAt   time.Time `gorm:"column:synced_at"`
}

// TableName overrides the table name.
func (documentRow) TableName() string {
	return "documents"
}

func rowFromDocument(collection string, doc syncengine.Document) (documentRow, error) {
	data, err := value.MarshalCanonical(doc.Fields)
	if err != nil {
		return documentRow{}, fmt.Errorf("failed to serialize fields of %q: %w", doc.DocID, err)
	}
	return documentRow{
		Collection: collection,
		DocID:      doc.DocID,
		PrimaryKey: doc.PrimaryKey,
		Fields:     data,
		Checksum:   doc.Checksum,
		VersionID:  doc.VersionID,
		IsLatest:   doc.IsLatest,
		SyncedAt:   doc.SyncedAt.UTC(),
	}, nil
}

func (r documentRow) toDocument() (syncengine.Document, error) {
	var fields value.Object
	if len(r.Fields) > 0 {
		if err := json.Unmarshal(r.Fields, &fields); err != nil {
			return syncengine.Document{}, fmt.Errorf("failed to decode fields of %q: %w", r.DocID, err)
		}
	} else {
		fields = value.Object{}
	}
	return syncengine.Document{
		DocID:      r.DocID,
		PrimaryKey: r.PrimaryKey,
		Fields:     fields,
		Checksum:   r.Checksum,
		VersionID:  r.VersionID,
		IsLatest:   r.IsLatest,
		SyncedAt:   r.SyncedAt,
	}, nil
}
