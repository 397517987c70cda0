package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cmseditor/application/ports/mocks"
	"cmseditor/domain/core/entities"
	"cmseditor/infrastructure/persistence/memory"
	pkgerrors "cmseditor/pkg/errors"
)

func newTempFileFixture(t *testing.T) (*TempFileManager, *memory.ResourceRepository, *memory.EventBus, *entities.Resource) {
	t.Helper()
	logger := zap.NewNop()
	repo := memory.NewResourceRepository()
	bus := memory.NewEventBus(logger)
	clock := mocks.FixedClock{T: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	original, err := entities.NewResource("/sites/notes.txt", entities.TypePlain, []byte("published"), "admin")
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), original))

	return NewTempFileManager(repo, bus, nil, clock, logger), repo, bus, original
}

func TestTempFileManager_CreateIsIdempotent(t *testing.T) {
	// Arrange
	manager, _, _, original := newTempFileFixture(t)
	ctx := context.Background()

	first, err := manager.Create(ctx, original, "alice")
	require.NoError(t, err)
	_, err = manager.Write(ctx, original, []byte("draft"), "alice")
	require.NoError(t, err)

	// Act
	second, err := manager.Create(ctx, original, "alice")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, "/sites/~notes.txt", second.Path())
	assert.True(t, second.IsTemporary())
	assert.Equal(t, "draft", string(second.Content()))
}

func TestTempFileManager_DeleteMissingCopy(t *testing.T) {
	manager, _, _, original := newTempFileFixture(t)

	err := manager.Delete(context.Background(), original)

	assert.NoError(t, err)
}

func TestTempFileManager_WriteRecreatesVanishedCopy(t *testing.T) {
	// Arrange
	manager, repo, bus, original := newTempFileFixture(t)
	ctx := context.Background()
	temp, err := manager.Create(ctx, original, "alice")
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, temp.Path()))

	// Act
	written, err := manager.Write(ctx, original, []byte("after vanish"), "alice")

	// Assert
	require.NoError(t, err)
	assert.True(t, written.IsTemporary())
	stored, err := repo.GetByPath(ctx, "/sites/~notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "after vanish", string(stored.Content()))
	assert.Contains(t, bus.PublishedTypes(), "editor.tempfile_recreated")
}

func TestTempFileManager_RefusesNonTemporaryResources(t *testing.T) {
	manager, repo, _, original := newTempFileFixture(t)
	ctx := context.Background()
	squatter, err := entities.NewResource("/sites/~notes.txt", entities.TypePlain, []byte("live"), "carol")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, squatter))

	tests := []struct {
		name string
		call func() error
	}{
		{name: "create", call: func() error { _, err := manager.Create(ctx, original, "alice"); return err }},
		{name: "read", call: func() error { _, err := manager.Read(ctx, original, "alice"); return err }},
		{name: "write", call: func() error { _, err := manager.Write(ctx, original, []byte("x"), "alice"); return err }},
		{name: "delete", call: func() error { return manager.DeleteAt(ctx, "/sites/~notes.txt") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()

			assert.True(t, pkgerrors.IsConflict(err))
			kept, err := repo.GetByPath(ctx, "/sites/~notes.txt")
			require.NoError(t, err)
			assert.Equal(t, "live", string(kept.Content()))
		})
	}
}
