package services

import (
	"context"

	"go.uber.org/zap"

	"cmseditor/application/ports"
	"cmseditor/domain/config"
	"cmseditor/domain/core/entities"
	"cmseditor/domain/events"
	pkgerrors "cmseditor/pkg/errors"
)

// TempFileManager maintains the temporary working copy of a resource so
// intermediate edits never touch the original
type TempFileManager struct {
	repo      ports.ResourceRepository
	publisher ports.EventPublisher
	config    *config.DomainConfig
	clock     ports.Clock
	logger    *zap.Logger
}

// NewTempFileManager creates a new temp file manager
func NewTempFileManager(
	repo ports.ResourceRepository,
	publisher ports.EventPublisher,
	cfg *config.DomainConfig,
	clock ports.Clock,
	logger *zap.Logger,
) *TempFileManager {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &TempFileManager{
		repo:      repo,
		publisher: publisher,
		config:    cfg,
		clock:     clock,
		logger:    logger,
	}
}

// TempPath returns where the working copy of original lives
func (m *TempFileManager) TempPath(original *entities.Resource) string {
	return original.TempPath(m.config.TempFilePrefix)
}

// Create returns the working copy of original, copying it when it does not
// exist yet. Calling Create again returns the existing copy unchanged.
func (m *TempFileManager) Create(ctx context.Context, original *entities.Resource, userID string) (*entities.Resource, error) {
	tempPath := m.TempPath(original)
	existing, err := m.repo.GetByPath(ctx, tempPath)
	if err == nil {
		if !existing.IsTemporary() {
			return nil, pkgerrors.NewTempFileConflictError(tempPath)
		}
		return existing, nil
	}
	if !isNotFound(err) {
		return nil, pkgerrors.NewFileAccessError(tempPath, err)
	}

	temp := original.NewTempCopy(m.config.TempFilePrefix, userID)
	if err := m.repo.Save(ctx, temp); err != nil {
		return nil, pkgerrors.NewFileAccessError(tempPath, err)
	}

	m.logger.Debug("Created temporary file",
		zap.String("resource", original.Path()),
		zap.String("tempFile", tempPath),
	)
	return temp, nil
}

// Read returns the working copy. A copy that vanished is recreated from the
// original once.
func (m *TempFileManager) Read(ctx context.Context, original *entities.Resource, userID string) (*entities.Resource, error) {
	tempPath := m.TempPath(original)
	temp, err := m.repo.GetByPath(ctx, tempPath)
	if err == nil {
		if !temp.IsTemporary() {
			return nil, pkgerrors.NewTempFileConflictError(tempPath)
		}
		return temp, nil
	}
	if !isNotFound(err) {
		return nil, pkgerrors.NewFileAccessError(tempPath, err)
	}
	return m.recreate(ctx, original, userID)
}

// Write stores content in the working copy, recreating the copy once when
// it is missing
func (m *TempFileManager) Write(ctx context.Context, original *entities.Resource, content []byte, userID string) (*entities.Resource, error) {
	temp, err := m.Read(ctx, original, userID)
	if err != nil {
		return nil, err
	}
	temp.UpdateContent(content, userID)

	err = m.repo.Save(ctx, temp)
	if err != nil && isNotFound(err) {
		// removed between read and write
		if temp, err = m.recreate(ctx, original, userID); err != nil {
			return nil, err
		}
		temp.UpdateContent(content, userID)
		err = m.repo.Save(ctx, temp)
	}
	if err != nil {
		return nil, pkgerrors.NewFileAccessError(temp.Path(), err)
	}
	return temp, nil
}

// Delete removes the working copy. A missing copy is not an error.
func (m *TempFileManager) Delete(ctx context.Context, original *entities.Resource) error {
	return m.DeleteAt(ctx, m.TempPath(original))
}

// DeleteAt removes a working copy by its path, for sessions whose original
// may be gone. Only temporary resources are ever deleted.
func (m *TempFileManager) DeleteAt(ctx context.Context, tempPath string) error {
	temp, err := m.repo.GetByPath(ctx, tempPath)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return pkgerrors.NewFileAccessError(tempPath, err)
	}
	if !temp.IsTemporary() {
		return pkgerrors.NewTempFileConflictError(tempPath)
	}
	if err := m.repo.Delete(ctx, tempPath); err != nil && !isNotFound(err) {
		return pkgerrors.NewFileAccessError(tempPath, err)
	}
	return nil
}

func (m *TempFileManager) recreate(ctx context.Context, original *entities.Resource, userID string) (*entities.Resource, error) {
	m.logger.Warn("Temporary file missing, recreating from original",
		zap.String("resource", original.Path()),
		zap.String("tempFile", m.TempPath(original)),
	)
	temp, err := m.Create(ctx, original, userID)
	if err != nil {
		return nil, err
	}
	event := events.NewTempFileRecreated(original.ID(), original.Path(), temp.Path(), m.clock.Now())
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.Warn("Failed to publish temp file event", zap.Error(err))
	}
	return temp, nil
}

func isNotFound(err error) bool {
	return pkgerrors.IsNotFound(err)
}
