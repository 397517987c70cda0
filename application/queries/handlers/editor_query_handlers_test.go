package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cmseditor/application/ports/mocks"
	"cmseditor/application/queries"
	"cmseditor/domain/config"
	"cmseditor/domain/core/aggregates"
	"cmseditor/domain/core/editor"
	"cmseditor/domain/core/entities"
	"cmseditor/domain/core/valueobjects"
	"cmseditor/infrastructure/persistence/memory"
	pkgerrors "cmseditor/pkg/errors"
)

type defaultEditors struct{}

func (defaultEditors) Select(t entities.ResourceType, userAgent, preferred string) (editor.Descriptor, error) {
	d, ok := editor.SelectEditor(editor.DefaultDescriptors(), t, userAgent, preferred)
	if !ok {
		return editor.Descriptor{}, pkgerrors.NewNotFoundError("editor for " + string(t))
	}
	return d, nil
}

func (defaultEditors) Editors() []editor.Descriptor { return editor.DefaultDescriptors() }

func savePage(t *testing.T, repo *memory.ResourceRepository, path string, locales ...string) *entities.Resource {
	t.Helper()
	doc := aggregates.NewDocument()
	for _, l := range locales {
		require.NoError(t, doc.AddLocale(valueobjects.MustLocale(l)))
	}
	content, err := doc.Bytes()
	require.NoError(t, err)
	resource, err := entities.NewResource(path, entities.TypeXMLPage, content, "admin")
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), resource))
	return resource
}

func TestGetEditSession(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := memory.NewResourceRepository()
	sessions := memory.NewSessionStore()
	locks := memory.NewLockService()
	page := savePage(t, repo, "/site/index.html", "en")

	_, err := locks.Acquire(ctx, page.Path(), "alice", time.Hour)
	require.NoError(t, err)
	session, err := entities.NewEditSession(entities.SessionKey{ResourceID: page.ID(), UserID: "alice"}, page.Path(), time.Now())
	require.NoError(t, err)
	session.TempFilePath = "/site/~index.html"
	session.ActiveLocale = valueobjects.MustLocale("en")
	session.LockAcquired = true
	require.NoError(t, sessions.Save(ctx, session))

	handler := NewGetEditSessionHandler(repo, sessions, locks, zap.NewNop())

	tests := []struct {
		name     string
		user     string
		wantOpen bool
	}{
		{name: "own session", user: "alice", wantOpen: true},
		{name: "other user sees the lock only", user: "bob", wantOpen: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			result, err := handler.Handle(ctx, queries.GetEditSessionQuery{UserID: tt.user, Resource: "/site/index.html"})

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.wantOpen, result.Open)
			assert.Equal(t, "alice", result.LockedBy)
			assert.NotEmpty(t, result.LockExpiresAt)
			if tt.wantOpen {
				assert.Equal(t, "/site/~index.html", result.TempFile)
				assert.Equal(t, "en", result.ActiveLocale)
				assert.True(t, result.LockAcquired)
			}
		})
	}
}

func TestGetEditSession_MissingResource(t *testing.T) {
	handler := NewGetEditSessionHandler(memory.NewResourceRepository(), memory.NewSessionStore(), memory.NewLockService(), zap.NewNop())

	_, err := handler.Handle(context.Background(), queries.GetEditSessionQuery{UserID: "alice", Resource: "/nope.html"})

	assert.True(t, errors.Is(err, pkgerrors.ErrResourceNotFound))
}

func TestSelectEditor(t *testing.T) {
	handler := NewSelectEditorHandler(defaultEditors{})

	tests := []struct {
		name      string
		query     queries.SelectEditorQuery
		wantName  string
		wantKind  string
		wantError bool
	}{
		{name: "highest ranking page editor", query: queries.SelectEditorQuery{ResourceType: entities.TypeXMLPage}, wantName: "defaultpage", wantKind: "defaultpage"},
		{name: "preferred editor", query: queries.SelectEditorQuery{ResourceType: entities.TypeXMLPage, Preferred: "simplepage"}, wantName: "simplepage", wantKind: "simplepage"},
		{name: "preferred editor not applicable", query: queries.SelectEditorQuery{ResourceType: entities.TypePlain, Preferred: "xmlcontent"}, wantName: "plaintext", wantKind: "plaintext"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handler.Handle(context.Background(), tt.query)

			require.NoError(t, err)
			assert.Equal(t, tt.wantName, result.Name)
			assert.Equal(t, tt.wantKind, result.Kind)
		})
	}
}

func TestListLocales(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := memory.NewResourceRepository()
	sessions := memory.NewSessionStore()
	cfg := config.DefaultDomainConfig()
	cfg.DefaultLocales = []string{"en", "de"}
	page := savePage(t, repo, "/site/index.html", "en", "de")
	savePage(t, repo, "/site/~index.html", "en")

	session, err := entities.NewEditSession(entities.SessionKey{ResourceID: page.ID(), UserID: "alice"}, page.Path(), time.Now())
	require.NoError(t, err)
	session.TempFilePath = "/site/~index.html"
	session.ActiveLocale = valueobjects.MustLocale("en")
	require.NoError(t, sessions.Save(ctx, session))

	handler := NewListLocalesHandler(repo, sessions, cfg, zap.NewNop())

	// Act
	editing, err1 := handler.Handle(ctx, queries.ListLocalesQuery{UserID: "alice", Resource: page.Path()})
	viewing, err2 := handler.Handle(ctx, queries.ListLocalesQuery{UserID: "bob", Resource: page.Path()})

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, []string{"en"}, editing.Locales)
	assert.Equal(t, "/site/~index.html", editing.Source)
	assert.Equal(t, "en", editing.Active)
	assert.Equal(t, []string{"en", "de"}, viewing.Locales)
	assert.Equal(t, []string{"en", "de"}, viewing.Defaults)
	assert.True(t, viewing.Localized)
}

func TestListLocales_PlainText(t *testing.T) {
	repo := memory.NewResourceRepository()
	resource, err := entities.NewResource("/notes.txt", entities.TypePlain, []byte("hello"), "admin")
	require.NoError(t, err)
	resource.SetProperty(entities.PropertyLocales, "fr")
	require.NoError(t, repo.Save(context.Background(), resource))

	result, err := NewListLocalesHandler(repo, memory.NewSessionStore(), nil, zap.NewNop()).
		Handle(context.Background(), queries.ListLocalesQuery{UserID: "alice", Resource: "/notes.txt"})

	require.NoError(t, err)
	assert.False(t, result.Localized)
	assert.Empty(t, result.Locales)
	assert.Equal(t, []string{"fr"}, result.Defaults)
}

func TestListWorkflowTasks(t *testing.T) {
	// Arrange
	workflow := new(mocks.MockWorkflowRepository)
	created := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	task := entities.NewWorkflowTask(entities.TaskKindPublish, "Publish /site/index.html", "res-1", "alice", created)
	workflow.On("ListTasks", mock.Anything, entities.TaskStateNew, 50).Return([]*entities.WorkflowTask{task}, nil)

	// Act
	results, err := NewListWorkflowTasksHandler(workflow).Handle(context.Background(), queries.ListWorkflowTasksQuery{State: entities.TaskStateNew})

	// Assert
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "publish", results[0].Kind)
	assert.Equal(t, "2026-04-01T08:00:00Z", results[0].CreatedAt)
	workflow.AssertExpectations(t)
}
