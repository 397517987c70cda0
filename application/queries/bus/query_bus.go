package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	pkgerrors "cmseditor/pkg/errors"
)

var (
	ErrQueryHandlerNotFound = errors.New("query handler not found")
	ErrQueryInvalid         = errors.New("query validation failed")
)

// Query reads editor state. Handlers never change resources, sessions or
// locks while answering one.
type Query interface {
	Validate() error
}

// Cacheable is a query whose result depends only on its key and on the
// editor configuration, never on a user's session or lock
type Cacheable interface {
	Query
	CacheKey() string
}

// QueryHandler handles a specific query type
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// QueryHandlerFunc is an adapter to allow functions to be used as handlers
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

// Handle implements QueryHandler
func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// Middleware wraps query handlers
type Middleware interface {
	Wrap(next QueryHandler) QueryHandler
}

// QueryBus dispatches queries to their handlers
type QueryBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type]QueryHandler
}

// NewQueryBus creates a new query bus
func NewQueryBus() *QueryBus {
	return &QueryBus{handlers: make(map[reflect.Type]QueryHandler)}
}

// Register registers a handler for a query type. Middlewares are applied in
// order, the last one outermost.
func (b *QueryBus) Register(queryType Query, handler QueryHandler, middlewares ...Middleware) error {
	if handler == nil {
		return fmt.Errorf("nil handler for query %s", QueryName(queryType))
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(queryType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for query %s", QueryName(queryType))
	}
	for _, m := range middlewares {
		handler = m.Wrap(handler)
	}
	b.handlers[t] = handler
	return nil
}

// Ask answers query. A query failing validation returns a validation error
// that still matches ErrQueryInvalid; handler errors are returned as they are
// so their type decides the response status.
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("%s: %v", QueryName(query), err)).WithCause(ErrQueryInvalid)
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrQueryHandlerNotFound, QueryName(query))
	}
	return handler.Handle(ctx, query)
}

// QueryName is the label of a query in metrics and errors: the type name
// without its Query suffix, e.g. SelectEditor
func QueryName(query Query) string {
	t := reflect.TypeOf(query)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return "nil"
	}
	return strings.TrimSuffix(t.Name(), "Query")
}

// Cache stores query results. DeletePrefix drops every result cached under a
// middleware's prefix.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl int) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// CachingMiddleware caches the results of Cacheable queries. Other queries
// pass through untouched.
type CachingMiddleware struct {
	cache  Cache
	ttl    int // seconds
	prefix string
}

// NewCachingMiddleware creates a caching middleware storing results under
// prefix for ttl seconds
func NewCachingMiddleware(cache Cache, ttl int, prefix string) *CachingMiddleware {
	return &CachingMiddleware{cache: cache, ttl: ttl, prefix: prefix}
}

// Wrap wraps a query handler with caching
func (m *CachingMiddleware) Wrap(next QueryHandler) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		cacheable, ok := query.(Cacheable)
		if !ok {
			return next.Handle(ctx, query)
		}
		key := m.prefix + QueryName(query) + ":" + cacheable.CacheKey()
		if cached, found := m.cache.Get(ctx, key); found {
			return cached, nil
		}

		result, err := next.Handle(ctx, query)
		if err != nil {
			return nil, err
		}
		// a failed write only costs the next lookup
		_ = m.cache.Set(ctx, key, result, m.ttl)
		return result, nil
	})
}

// Invalidate drops every cached result, e.g. after the editor configuration
// was reloaded
func (m *CachingMiddleware) Invalidate(ctx context.Context) error {
	return m.cache.DeletePrefix(ctx, m.prefix)
}

// Metrics records query counts and durations
type Metrics interface {
	StartTimer(metric, label string) Timer
	Increment(metric, label string)
}

// Timer is a running duration measurement
type Timer interface {
	Stop()
}

// MetricsMiddleware counts queries per name and outcome. Not-found answers
// are counted apart from failures, since asking for a resource nobody edits
// is routine.
type MetricsMiddleware struct {
	metrics Metrics
}

// NewMetricsMiddleware creates a new metrics middleware
func NewMetricsMiddleware(metrics Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: metrics}
}

// Wrap wraps a query handler with metrics
func (m *MetricsMiddleware) Wrap(next QueryHandler) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		name := QueryName(query)
		timer := m.metrics.StartTimer("query_duration", name)
		defer timer.Stop()

		m.metrics.Increment("query_count", name)
		result, err := next.Handle(ctx, query)
		switch {
		case err == nil:
			m.metrics.Increment("query_success", name)
		case pkgerrors.IsNotFound(err):
			m.metrics.Increment("query_not_found", name)
		default:
			m.metrics.Increment("query_errors", name)
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	})
}
