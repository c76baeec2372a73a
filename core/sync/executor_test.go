package sync_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	syncengine "docsync/core/sync"
	"docsync/core/sync/mocks"
)

func executorConfig() syncengine.Config {
	return syncengine.Config{
		Strategy:             "upsert_checksum",
		Table:                "products",
		Collection:           "products",
		PrimaryKeyField:      "id",
		BatchSize:            2,
		MaxConcurrentBatches: 2,
		RetryAttempts:        3,
		ChecksumWorkers:      2,
	}
}

func docs(ids ...string) []syncengine.Document {
	out := make([]syncengine.Document, len(ids))
	for i, id := range ids {
		out[i] = syncengine.Document{DocID: id, PrimaryKey: id}
	}
	return out
}

func TestExecutor_SplitsIntoBatches(t *testing.T) {
	store := new(mocks.Store)
	store.On("BatchWrite", mock.Anything, "products", mock.Anything).Return(nil, nil)
	store.On("BatchDelete", mock.Anything, "products", mock.Anything).Return(nil, nil)

	executor := syncengine.NewExecutor(store, executorConfig(), zap.NewNop())
	cs := &syncengine.ChangeSet{
		Creates: docs("c1", "c2", "c3"), // batch size 2: two write batches
		Updates: docs("u1"),
		Deletes: []string{"d1", "d2", "d3"}, // two delete batches
	}

	report, err := executor.Execute(context.Background(), "products", cs)
	require.NoError(t, err)

	assert.Len(t, report.Groups, 5)
	assert.Equal(t, 4, report.Written)
	assert.Equal(t, 3, report.Deleted)
	failedDocs, failedGroups := report.Failed()
	assert.Zero(t, failedDocs)
	assert.Zero(t, failedGroups)

	store.AssertNumberOfCalls(t, "BatchWrite", 3)
	store.AssertNumberOfCalls(t, "BatchDelete", 2)
}

func TestExecutor_RetriesTransientErrors(t *testing.T) {
	store := new(mocks.Store)
	// First attempt fails transiently, second succeeds.
	store.On("BatchWrite", mock.Anything, "products", mock.Anything).
		Return(nil, syncengine.Transient(errors.New("deadlock"))).Once()
	store.On("BatchWrite", mock.Anything, "products", mock.Anything).
		Return([]syncengine.Outcome{{DocID: "c1"}}, nil).Once()

	cfg := executorConfig()
	executor := syncengine.NewExecutor(store, cfg, zap.NewNop())
	cs := &syncengine.ChangeSet{Creates: docs("c1")}

	report, err := executor.Execute(context.Background(), "products", cs)
	require.NoError(t, err)

	require.Len(t, report.Groups, 1)
	assert.Equal(t, 2, report.Groups[0].Attempts)
	assert.Equal(t, 1, report.Written)
	store.AssertNumberOfCalls(t, "BatchWrite", 2)
}

func TestExecutor_PermanentErrorNotRetried(t *testing.T) {
	store := new(mocks.Store)
	store.On("BatchWrite", mock.Anything, "products", mock.Anything).
		Return(nil, syncengine.Permanent(errors.New("schema mismatch")))

	executor := syncengine.NewExecutor(store, executorConfig(), zap.NewNop())
	cs := &syncengine.ChangeSet{Creates: docs("c1", "c2")}

	report, err := executor.Execute(context.Background(), "products", cs)
	require.NoError(t, err)

	require.Len(t, report.Groups, 1)
	assert.Equal(t, 1, report.Groups[0].Attempts)
	assert.ElementsMatch(t, []string{"c1", "c2"}, report.Groups[0].FailedDocIDs)
	store.AssertNumberOfCalls(t, "BatchWrite", 1)
}

func TestExecutor_TransientFailureExhaustsRetries(t *testing.T) {
	store := new(mocks.Store)
	store.On("BatchWrite", mock.Anything, "products", mock.Anything).
		Return(nil, syncengine.Transient(errors.New("timeout")))

	cfg := executorConfig()
	cfg.RetryAttempts = 2
	executor := syncengine.NewExecutor(store, cfg, zap.NewNop())
	cs := &syncengine.ChangeSet{Creates: docs("c1")}

	report, err := executor.Execute(context.Background(), "products", cs)
	require.NoError(t, err)

	require.Len(t, report.Groups, 1)
	assert.Equal(t, 2, report.Groups[0].Attempts)
	assert.Equal(t, []string{"c1"}, report.Groups[0].FailedDocIDs)
	failedDocs, failedGroups := report.Failed()
	assert.Equal(t, 1, failedDocs)
	assert.Equal(t, 1, failedGroups)
}

func TestExecutor_FailedBatchDoesNotStopOthers(t *testing.T) {
	store := new(mocks.Store)
	store.On("BatchWrite", mock.Anything, "products", docs("u1", "u2")).
		Return(nil, syncengine.Permanent(errors.New("boom")))
	store.On("BatchWrite", mock.Anything, "products", docs("c1", "c2")).
		Return([]syncengine.Outcome{{DocID: "c1"}, {DocID: "c2"}}, nil)

	executor := syncengine.NewExecutor(store, executorConfig(), zap.NewNop())
	cs := &syncengine.ChangeSet{
		Updates: docs("u1", "u2"),
		Creates: docs("c1", "c2"),
	}

	report, err := executor.Execute(context.Background(), "products", cs)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Written)
	failedDocs, failedGroups := report.Failed()
	assert.Equal(t, 2, failedDocs)
	assert.Equal(t, 1, failedGroups)
}

func TestExecutor_PerDocumentFailuresReported(t *testing.T) {
	store := new(mocks.Store)
	store.On("BatchWrite", mock.Anything, "products", mock.Anything).
		Return([]syncengine.Outcome{
			{DocID: "c1"},
			{DocID: "c2", Err: errors.New("value too long")},
		}, nil)

	executor := syncengine.NewExecutor(store, executorConfig(), zap.NewNop())
	cs := &syncengine.ChangeSet{Creates: docs("c1", "c2")}

	report, err := executor.Execute(context.Background(), "products", cs)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Written)
	require.Len(t, report.Groups, 1)
	assert.Equal(t, []string{"c2"}, report.Groups[0].FailedDocIDs)
}

func TestExecutor_CancelledContextStopsNewBatches(t *testing.T) {
	store := new(mocks.Store)
	store.On("BatchWrite", mock.Anything, "products", mock.Anything).
		Return([]syncengine.Outcome{}, nil)
	store.On("BatchDelete", mock.Anything, "products", mock.Anything).
		Return([]syncengine.Outcome{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executor := syncengine.NewExecutor(store, executorConfig(), zap.NewNop())
	cs := &syncengine.ChangeSet{Creates: docs("c1", "c2", "c3", "c4")}

	report, err := executor.Execute(ctx, "products", cs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Groups)
	store.AssertNotCalled(t, "BatchWrite", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecutor_CancelMidFlightLetsBatchesFinish(t *testing.T) {
	started := make(chan struct{}, 4)
	release := make(chan struct{})

	store := new(mocks.Store)
	store.On("BatchWrite", mock.Anything, "products", mock.Anything).
		Run(func(args mock.Arguments) {
			started <- struct{}{}
			<-release
		}).
		Return(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := executorConfig()
	cfg.BatchSize = 1
	executor := syncengine.NewExecutor(store, cfg, zap.NewNop())
	cs := &syncengine.ChangeSet{Creates: docs("c1", "c2", "c3", "c4")}

	type outcome struct {
		report *syncengine.ExecutionReport
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		report, err := executor.Execute(ctx, "products", cs)
		done <- outcome{report, err}
	}()

	// Two batches in flight (concurrency limit), then cancel and unblock.
	<-started
	<-started
	cancel()
	close(release)

	res := <-done
	assert.ErrorIs(t, res.err, context.Canceled)
	require.NotEmpty(t, res.report.Groups)
	assert.Less(t, len(res.report.Groups), 4)
	// Every submitted batch ran to completion and was tallied.
	for _, g := range res.report.Groups {
		assert.Equal(t, 1, g.Size)
		assert.Empty(t, g.FailedDocIDs)
	}
	assert.Equal(t, len(res.report.Groups), res.report.Written)
	store.AssertNumberOfCalls(t, "BatchWrite", len(res.report.Groups))
}
