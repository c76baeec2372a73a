package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docsync/core/sync"
)

// Reader is a mock implementation of sync.Reader
type Reader struct {
	mock.Mock
}

func (m *Reader) Fetch(ctx context.Context, table string) ([]sync.SourceRecord, error) {
	args := m.Called(ctx, table)
	if recs, ok := args.Get(0).([]sync.SourceRecord); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

// Store is a mock implementation of sync.Store
type Store struct {
	mock.Mock
}

func (m *Store) Query(ctx context.Context, collection string) ([]sync.Document, error) {
	args := m.Called(ctx, collection)
	if docs, ok := args.Get(0).([]sync.Document); ok {
		return docs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) BatchWrite(ctx context.Context, collection string, docs []sync.Document) ([]sync.Outcome, error) {
	args := m.Called(ctx, collection, docs)
	if outcomes, ok := args.Get(0).([]sync.Outcome); ok {
		return outcomes, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) BatchDelete(ctx context.Context, collection string, docIDs []string) ([]sync.Outcome, error) {
	args := m.Called(ctx, collection, docIDs)
	if outcomes, ok := args.Get(0).([]sync.Outcome); ok {
		return outcomes, args.Error(1)
	}
	return nil, args.Error(1)
}
