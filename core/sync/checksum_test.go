package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsync/core/value"
)

func TestChecksum_StableAcrossFieldOrder(t *testing.T) {
	a := value.Object{"name": value.String("chair"), "price": value.Number(10)}
	b := value.Object{"price": value.Number(10), "name": value.String("chair")}

	sa, err := Checksum(a, nil)
	require.NoError(t, err)
	sb, err := Checksum(b, nil)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
}

func TestChecksum_SensitiveToAnyFieldChange(t *testing.T) {
	base := value.Object{"name": value.String("chair"), "price": value.Number(10)}
	baseSum, err := Checksum(base, nil)
	require.NoError(t, err)

	changed := value.Object{"name": value.String("chair"), "price": value.Number(11)}
	changedSum, err := Checksum(changed, nil)
	require.NoError(t, err)
	assert.NotEqual(t, baseSum, changedSum)

	added := value.Object{"name": value.String("chair"), "price": value.Number(10), "color": value.String("red")}
	addedSum, err := Checksum(added, nil)
	require.NoError(t, err)
	assert.NotEqual(t, baseSum, addedSum)

	removed := value.Object{"name": value.String("chair")}
	removedSum, err := Checksum(removed, nil)
	require.NoError(t, err)
	assert.NotEqual(t, baseSum, removedSum)
}

func TestChecksum_TypeDistinction(t *testing.T) {
	asNumber, err := Checksum(value.Object{"v": value.Number(1)}, nil)
	require.NoError(t, err)
	asString, err := Checksum(value.Object{"v": value.String("1")}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, asNumber, asString)
}

func TestChecksum_ExcludedFieldsIgnored(t *testing.T) {
	exclude := map[string]struct{}{"updated_at": {}}

	a := value.Object{"name": value.String("chair"), "updated_at": value.String("2024-01-01T00:00:00Z")}
	b := value.Object{"name": value.String("chair"), "updated_at": value.String("2025-06-15T12:00:00Z")}

	sa, err := Checksum(a, exclude)
	require.NoError(t, err)
	sb, err := Checksum(b, exclude)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)

	// The input object itself is left untouched.
	assert.Contains(t, a, "updated_at")
}

func TestAggregateChecksum_OrderIndependent(t *testing.T) {
	a := map[string]string{"p1": "aaa", "p2": "bbb"}
	b := map[string]string{"p2": "bbb", "p1": "aaa"}
	assert.Equal(t, AggregateChecksum(a), AggregateChecksum(b))
}

func TestAggregateChecksum_DetectsMembershipAndContentChanges(t *testing.T) {
	base := AggregateChecksum(map[string]string{"p1": "aaa", "p2": "bbb"})

	assert.NotEqual(t, base, AggregateChecksum(map[string]string{"p1": "aaa"}))
	assert.NotEqual(t, base, AggregateChecksum(map[string]string{"p1": "aaa", "p2": "ccc"}))
	assert.NotEqual(t, base, AggregateChecksum(map[string]string{"p1": "aaa", "p3": "bbb"}))
}

func TestAggregateChecksum_DuplicateContentDoesNotCancel(t *testing.T) {
	// Two records sharing identical content must still contribute separately.
	twoSame := AggregateChecksum(map[string]string{"p1": "aaa", "p2": "aaa"})
	empty := AggregateChecksum(map[string]string{})
	oneOnly := AggregateChecksum(map[string]string{"p1": "aaa"})

	assert.NotEqual(t, empty, twoSame)
	assert.NotEqual(t, oneOnly, twoSame)
}
