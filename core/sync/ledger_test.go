package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_NextVersionID_MonotonicWithinRun(t *testing.T) {
	ledger := NewLedger(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	prev := ""
	for i := 0; i < 10; i++ {
		id := ledger.NextVersionID()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestLedger_NextVersionID_OrderedAcrossRuns(t *testing.T) {
	early := NewLedger(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	late := NewLedger(time.Date(2025, 3, 1, 12, 0, 1, 0, time.UTC))

	assert.Less(t, early.NextVersionID(), late.NextVersionID())
}

func TestLatestFor_SingleLatest(t *testing.T) {
	snapshot := []Document{
		{DocID: "a", PrimaryKey: "p1", VersionID: "100-000001", IsLatest: false},
		{DocID: "b", PrimaryKey: "p1", VersionID: "100-000002", IsLatest: true},
		{DocID: "c", PrimaryKey: "p2", VersionID: "100-000003", IsLatest: true},
	}

	latest, ok := LatestFor("p1", snapshot)
	require.True(t, ok)
	assert.Equal(t, "b", latest.DocID)
}

func TestLatestFor_NoLatest(t *testing.T) {
	snapshot := []Document{
		{DocID: "a", PrimaryKey: "p1", VersionID: "100-000001", IsLatest: false},
	}

	_, ok := LatestFor("p1", snapshot)
	assert.False(t, ok)
}

func TestLatestFor_ConvergesOnHighestVersion(t *testing.T) {
	// An interrupted run can leave two latest flags; the highest version wins.
	snapshot := []Document{
		{DocID: "a", PrimaryKey: "p1", VersionID: "100-000001", IsLatest: true},
		{DocID: "b", PrimaryKey: "p1", VersionID: "200-000001", IsLatest: true},
	}

	latest, ok := LatestFor("p1", snapshot)
	require.True(t, ok)
	assert.Equal(t, "b", latest.DocID)
}

func TestVersionedDocID_DistinctPerVersion(t *testing.T) {
	a := VersionedDocID("p1", "100-000001")
	b := VersionedDocID("p1", "100-000002")
	c := VersionedDocID("p2", "100-000001")

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)

	// Deterministic for the same inputs.
	assert.Equal(t, a, VersionedDocID("p1", "100-000001"))
}
