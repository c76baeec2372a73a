package docstore

import (
	"context"
	"errors"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	syncengine "docsync/core/sync"
	"docsync/core/value"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func TestStore_Query(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db, zap.NewNop())

	syncedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"collection", "doc_id", "primary_key", "fields", "checksum", "version_id", "is_latest", "synced_at"}).
		AddRow("products", "p1", "p1", []byte(`{"name":"chair"}`), "abc", "", true, syncedAt).
		AddRow("products", "p2", "p2", []byte(`{"name":"table"}`), "def", "100-000001", false, syncedAt)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `documents` WHERE collection = ?")).
		WithArgs("products").
		WillReturnRows(rows)

	docs, err := store.Query(context.Background(), "products")
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "p1", docs[0].DocID)
	assert.Equal(t, value.Object{"name": value.String("chair")}, docs[0].Fields)
	assert.True(t, docs[0].IsLatest)
	assert.Equal(t, "100-000001", docs[1].VersionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Query_EmptyCollection(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `documents` WHERE collection = ?")).
		WithArgs("products").
		WillReturnRows(sqlmock.NewRows([]string{"collection", "doc_id"}))

	docs, err := store.Query(context.Background(), "products")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStore_BatchWrite_Upserts(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `documents`").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	docs := []syncengine.Document{
		{DocID: "p1", PrimaryKey: "p1", Fields: value.Object{"name": value.String("chair")}, Checksum: "abc", IsLatest: true},
		{DocID: "p2", PrimaryKey: "p2", Fields: value.Object{"name": value.String("table")}, Checksum: "def", IsLatest: true},
	}

	outcomes, err := store.BatchWrite(context.Background(), "products", docs)
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.NoError(t, o.Err)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_BatchWrite_SerializationFailureIsPerDocument(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `documents`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	docs := []syncengine.Document{
		{DocID: "good", PrimaryKey: "good", Fields: value.Object{"v": value.Number(1)}},
		{DocID: "bad", PrimaryKey: "bad", Fields: value.Object{"v": value.Number(math.NaN())}},
	}

	outcomes, err := store.BatchWrite(context.Background(), "products", docs)
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	byID := map[string]error{}
	for _, o := range outcomes {
		byID[o.DocID] = o.Err
	}
	assert.NoError(t, byID["good"])
	assert.Error(t, byID["bad"])
}

func TestStore_BatchWrite_Empty(t *testing.T) {
	db, _ := setupMockDB(t)
	store := NewStore(db, zap.NewNop())

	outcomes, err := store.BatchWrite(context.Background(), "products", nil)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestStore_BatchDelete(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `documents` WHERE collection = ? AND doc_id IN (?,?)")).
		WithArgs("products", "p1", "p2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	outcomes, err := store.BatchDelete(context.Background(), "products", []string{"p1", "p2"})
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_BatchDelete_MissingIDsNotAnError(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `documents`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	outcomes, err := store.BatchDelete(context.Background(), "products", []string{"gone"})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"Deadlock", errors.New("Error 1213: Deadlock found when trying to get lock"), true},
		{"LockWaitTimeout", errors.New("Error 1205: Lock wait timeout exceeded"), true},
		{"ConnectionRefused", errors.New("dial tcp: connection refused"), true},
		{"TooManyConnections", errors.New("Error 1040: Too many connections"), true},
		{"SyntaxError", errors.New("Error 1064: You have an error in your SQL syntax"), false},
		{"DataTooLong", errors.New("Error 1406: Data too long for column"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classify(tt.err)
			assert.Equal(t, tt.transient, syncengine.IsTransient(classified))
		})
	}
}

func TestClassify_ContextErrorsPassThrough(t *testing.T) {
	assert.ErrorIs(t, classify(context.Canceled), context.Canceled)
	assert.ErrorIs(t, classify(context.DeadlineExceeded), context.DeadlineExceeded)
}
