package bus

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "cmseditor/pkg/errors"
)

type lookupQuery struct {
	Key string
}

func (q lookupQuery) Validate() error {
	if q.Key == "" {
		return errors.New("key is required")
	}
	return nil
}

func (q lookupQuery) CacheKey() string { return q.Key }

// sessionQuery is user specific and never cached
type sessionQuery struct {
	UserID string
}

func (q sessionQuery) Validate() error { return nil }

type mapCache map[string]interface{}

func (c mapCache) Get(ctx context.Context, key string) (interface{}, bool) {
	v, ok := c[key]
	return v, ok
}

func (c mapCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	c[key] = value
	return nil
}

func (c mapCache) DeletePrefix(ctx context.Context, prefix string) error {
	for k := range c {
		if strings.HasPrefix(k, prefix) {
			delete(c, k)
		}
	}
	return nil
}

type countingMetrics struct {
	counts map[string]int
	timers int
}

type nopTimer struct{ m *countingMetrics }

func (t nopTimer) Stop() { t.m.timers++ }

func (m *countingMetrics) StartTimer(metric, label string) Timer { return nopTimer{m} }
func (m *countingMetrics) Increment(metric, label string)      { m.counts[metric+"/"+label]++ }

func TestQueryBus_CachingAndMetrics(t *testing.T) {
	// Arrange
	calls := 0
	handler := QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		calls++
		return "value of " + q.(lookupQuery).Key, nil
	})
	cache := mapCache{}
	metrics := &countingMetrics{counts: map[string]int{}}
	b := NewQueryBus()
	require.NoError(t, b.Register(lookupQuery{}, handler, NewCachingMiddleware(cache, 60, "editors:"), NewMetricsMiddleware(metrics)))

	// Act
	first, err1 := b.Ask(context.Background(), lookupQuery{Key: "a"})
	second, err2 := b.Ask(context.Background(), lookupQuery{Key: "a"})

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, "value of a", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, metrics.counts["query_count/lookup"])
	assert.Equal(t, 2, metrics.counts["query_success/lookup"])
	assert.Equal(t, 2, metrics.timers)
	assert.Contains(t, cache, "editors:lookup:a")
}

func TestCachingMiddleware_Invalidate(t *testing.T) {
	calls := 0
	cache := mapCache{"other:x": 1}
	caching := NewCachingMiddleware(cache, 60, "editors:")
	b := NewQueryBus()
	require.NoError(t, b.Register(lookupQuery{}, QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		calls++
		return calls, nil
	}), caching))
	ctx := context.Background()

	_, err := b.Ask(ctx, lookupQuery{Key: "a"})
	require.NoError(t, err)
	require.NoError(t, caching.Invalidate(ctx))
	again, err := b.Ask(ctx, lookupQuery{Key: "a"})

	require.NoError(t, err)
	assert.Equal(t, 2, again)
	assert.Contains(t, cache, "other:x")
}

func TestCachingMiddleware_SkipsSessionQueries(t *testing.T) {
	calls := 0
	cache := mapCache{}
	b := NewQueryBus()
	require.NoError(t, b.Register(sessionQuery{}, QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		calls++
		return calls, nil
	}), NewCachingMiddleware(cache, 60, "editors:")))

	_, err := b.Ask(context.Background(), sessionQuery{UserID: "alice"})
	require.NoError(t, err)
	_, err = b.Ask(context.Background(), sessionQuery{UserID: "alice"})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Empty(t, cache)
}

func TestMetricsMiddleware_CountsNotFoundApart(t *testing.T) {
	metrics := &countingMetrics{counts: map[string]int{}}
	b := NewQueryBus()
	require.NoError(t, b.Register(sessionQuery{}, QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		return nil, pkgerrors.NewNotFoundError("edit session")
	}), NewMetricsMiddleware(metrics)))

	_, err := b.Ask(context.Background(), sessionQuery{})

	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Equal(t, 1, metrics.counts["query_not_found/session"])
	assert.Zero(t, metrics.counts["query_errors/session"])
}

func TestQueryBus_Errors(t *testing.T) {
	b := NewQueryBus()
	tableMissing := errors.New("table missing")
	require.NoError(t, b.Register(lookupQuery{}, QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		return nil, tableMissing
	})))

	tests := []struct {
		name  string
		query Query
		want  error
	}{
		{name: "invalid", query: lookupQuery{}, want: ErrQueryInvalid},
		{name: "unregistered", query: &lookupQuery{Key: "x"}, want: ErrQueryHandlerNotFound},
		{name: "handler failure is returned as is", query: lookupQuery{Key: "x"}, want: tableMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Ask(context.Background(), tt.query)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := b.Ask(context.Background(), lookupQuery{})
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Contains(t, err.Error(), "lookup: key is required")

	assert.Error(t, b.Register(lookupQuery{}, QueryHandlerFunc(nil)))
	assert.Error(t, b.Register(sessionQuery{}, nil))
}

func TestQueryName(t *testing.T) {
	assert.Equal(t, "lookup", QueryName(lookupQuery{}))
	assert.Equal(t, "lookup", QueryName(&lookupQuery{}))
	assert.Equal(t, "session", QueryName(sessionQuery{}))
}
