package tablesource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	syncengine "docsync/core/sync"
	"docsync/core/sync/mocks"
)

func TestCachedReader_ServesFromCacheWithinTTL(t *testing.T) {
	inner := new(mocks.Reader)
	inner.On("Fetch", mock.Anything, "products").
		Return([]syncengine.SourceRecord{{PrimaryKey: "p1"}}, nil)

	cached := NewCachedReader(inner, time.Minute)

	first, err := cached.Fetch(context.Background(), "products")
	require.NoError(t, err)
	second, err := cached.Fetch(context.Background(), "products")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	inner.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestCachedReader_ZeroTTLDisablesCaching(t *testing.T) {
	inner := new(mocks.Reader)
	inner.On("Fetch", mock.Anything, "products").
		Return([]syncengine.SourceRecord{{PrimaryKey: "p1"}}, nil)

	cached := NewCachedReader(inner, 0)

	_, err := cached.Fetch(context.Background(), "products")
	require.NoError(t, err)
	_, err = cached.Fetch(context.Background(), "products")
	require.NoError(t, err)

	inner.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestCachedReader_InvalidateForcesRefetch(t *testing.T) {
	inner := new(mocks.Reader)
	inner.On("Fetch", mock.Anything, "products").
		Return([]syncengine.SourceRecord{{PrimaryKey: "p1"}}, nil)

	cached := NewCachedReader(inner, time.Minute)

	_, err := cached.Fetch(context.Background(), "products")
	require.NoError(t, err)
	cached.Invalidate("products")
	_, err = cached.Fetch(context.Background(), "products")
	require.NoError(t, err)

	inner.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestCachedReader_TablesCachedIndependently(t *testing.T) {
	inner := new(mocks.Reader)
	inner.On("Fetch", mock.Anything, "products").
		Return([]syncengine.SourceRecord{{PrimaryKey: "p1"}}, nil)
	inner.On("Fetch", mock.Anything, "orders").
		Return([]syncengine.SourceRecord{{PrimaryKey: "o1"}}, nil)

	cached := NewCachedReader(inner, time.Minute)

	products, err := cached.Fetch(context.Background(), "products")
	require.NoError(t, err)
	orders, err := cached.Fetch(context.Background(), "orders")
	require.NoError(t, err)

	assert.Equal(t, "p1", products[0].PrimaryKey)
	assert.Equal(t, "o1", orders[0].PrimaryKey)
	inner.AssertNumberOfCalls(t, "Fetch", 2)
}
