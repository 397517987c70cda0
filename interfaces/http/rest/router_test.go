package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cmseditor/application/commands"
	"cmseditor/application/commands/bus"
	cmdhandlers "cmseditor/application/commands/handlers"
	"cmseditor/application/queries"
	querybus "cmseditor/application/queries/bus"
	"cmseditor/interfaces/http/rest/handlers"
	"cmseditor/interfaces/http/rest/middleware"
	"cmseditor/pkg/auth"
	pkgerrors "cmseditor/pkg/errors"
	"cmseditor/pkg/observability"
)

func lambdaRouter(t *testing.T) http.Handler {
	t.Helper()
	commandBus := bus.NewCommandBus()
	require.NoError(t, commandBus.Register(commands.SubmitApplicationFormCommand{}, bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			return &cmdhandlers.ApplicationFormResult{}, nil
		})))
	queryBus := querybus.NewQueryBus()
	require.NoError(t, queryBus.Register(queries.ListWorkflowTasksQuery{}, querybus.QueryHandlerFunc(
		func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return []queries.WorkflowTaskResult{}, nil
		})))

	logger := zap.NewNop()
	rt := NewRouter(
		commandBus,
		queryBus,
		pkgerrors.NewErrorHandler(logger, false),
		nil,
		auth.NewSlidingWindowLimiter(2, time.Minute),
		observability.NewTracer("cms-editor", false),
		map[string]handlers.ReadinessCheck{},
		RouterOptions{InLambda: true, FormRateLimit: 2, SessionMaxIdle: time.Hour},
		logger,
	)
	return rt.Setup()
}

func gatewayRequest(method, target, user, roles string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set(middleware.HeaderGatewayAuthorized, "true")
	req.Header.Set(middleware.HeaderUserID, user)
	if roles != "" {
		req.Header.Set(middleware.HeaderUserRoles, roles)
	}
	return req
}

func TestRouter_Health(t *testing.T) {
	router := lambdaRouter(t)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-API-Version"))
}

func TestRouter_AdminRequiresRole(t *testing.T) {
	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
	}{
		{"not authorized by gateway", httptest.NewRequest(http.MethodGet, "/api/v2/admin/tasks", nil), http.StatusUnauthorized},
		{"editor", gatewayRequest(http.MethodGet, "/api/v2/admin/tasks", "u1", ""), http.StatusForbidden},
		{"admin", gatewayRequest(http.MethodGet, "/api/v2/admin/tasks", "u1", "admin"), http.StatusOK},
		{"admin spelled loosely", gatewayRequest(http.MethodGet, "/api/v2/admin/tasks", "u1", "editor, Admin"), http.StatusOK},
		{"unknown role", gatewayRequest(http.MethodGet, "/api/v2/admin/tasks", "u1", "superuser"), http.StatusForbidden},
	}

	router := lambdaRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, tt.req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRouter_FormIsRateLimited(t *testing.T) {
	router := lambdaRouter(t)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/forms/application", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.9")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := lambdaRouter(t)

	notFound := httptest.NewRecorder()
	router.ServeHTTP(notFound, httptest.NewRequest(http.MethodGet, "/nope", nil))
	wrongMethod := httptest.NewRecorder()
	router.ServeHTTP(wrongMethod, httptest.NewRequest(http.MethodDelete, "/health", nil))

	assert.Equal(t, http.StatusNotFound, notFound.Code)
	assert.Contains(t, notFound.Body.String(), "route not found")
	assert.Equal(t, http.StatusMethodNotAllowed, wrongMethod.Code)
}
