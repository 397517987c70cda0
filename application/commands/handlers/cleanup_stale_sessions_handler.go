package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cmseditor/application/commands"
	"cmseditor/application/ports"
	"cmseditor/application/services"
	"cmseditor/domain/core/entities"
	"cmseditor/domain/events"
	pkgerrors "cmseditor/pkg/errors"
)

// CleanupReasonTimeout is the close reason of sessions removed by cleanup
const CleanupReasonTimeout = "timeout"

// CleanupResult reports what a cleanup run removed
type CleanupResult struct {
	Examined      int      `json:"examined"`
	Closed        int      `json:"closed"`
	LocksReleased int      `json:"locksReleased"`
	Failed        []string `json:"failed,omitempty"`
}

// CleanupStaleSessionsHandler closes sessions abandoned without an exit
// action. The session record is always removed; the temporary file and an
// acquired lock only while the session's user still holds the resource.
type CleanupStaleSessionsHandler struct {
	sessions  ports.SessionStore
	locks     ports.LockService
	tempFiles *services.TempFileManager
	publisher ports.EventPublisher
	clock     ports.Clock
	logger    *zap.Logger
}

// NewCleanupStaleSessionsHandler creates a new cleanup handler
func NewCleanupStaleSessionsHandler(
	sessions ports.SessionStore,
	locks ports.LockService,
	tempFiles *services.TempFileManager,
	publisher ports.EventPublisher,
	clock ports.Clock,
	logger *zap.Logger,
) *CleanupStaleSessionsHandler {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &CleanupStaleSessionsHandler{
		sessions:  sessions,
		locks:     locks,
		tempFiles: tempFiles,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// Handle executes the cleanup command. A session that fails to close is
// reported and the run continues with the next one.
func (h *CleanupStaleSessionsHandler) Handle(ctx context.Context, cmd commands.CleanupStaleSessionsCommand) (*CleanupResult, error) {
	now := h.clock.Now()
	stale, err := h.sessions.ListExpired(ctx, now.Add(-cmd.MaxIdle))
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list expired sessions", err)
	}
	if cmd.Limit > 0 && len(stale) > cmd.Limit {
		stale = stale[:cmd.Limit]
	}

	result := &CleanupResult{Examined: len(stale)}
	for _, session := range stale {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		released, err := h.close(ctx, session, now)
		if err != nil {
			h.logger.Error("Failed to close stale session",
				zap.String("session", session.Key.String()),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, session.Key.String())
			continue
		}
		result.Closed++
		if released {
			result.LocksReleased++
		}
	}

	h.logger.Info("Stale sessions cleaned up",
		zap.String("requestedBy", cmd.RequestBy),
		zap.Int("examined", result.Examined),
		zap.Int("closed", result.Closed),
		zap.Int("locksReleased", result.LocksReleased),
	)
	return result, nil
}

func (h *CleanupStaleSessionsHandler) close(ctx context.Context, session *entities.EditSession, now time.Time) (bool, error) {
	lock, err := h.locks.GetLock(ctx, session.ResourcePath)
	if err != nil {
		return false, pkgerrors.NewDatabaseError("get lock", err)
	}
	// a lock taken over by someone else also covers the temporary file
	owner := lock == nil || lock.Owner == session.Key.UserID
	if !owner {
		h.logger.Info("Stale session lost its lock, leaving the temporary file in place",
			zap.String("session", session.Key.String()),
			zap.String("lockOwner", lock.Owner),
		)
	}

	if owner && session.TempFilePath != "" {
		if err := h.tempFiles.DeleteAt(ctx, session.TempFilePath); err != nil {
			return false, err
		}
	}

	released := false
	if owner && session.LockAcquired {
		if err := h.locks.Release(ctx, session.ResourcePath, session.Key.UserID); err != nil {
			return false, err
		}
		released = true
	}

	if err := h.sessions.Delete(ctx, session.Key); err != nil {
		return released, pkgerrors.NewDatabaseError("delete session", err)
	}

	event := events.NewEditSessionClosed(session.Key.ResourceID, session.Key.UserID, released, CleanupReasonTimeout, now)
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish session closed event", zap.Error(err))
	}
	return released, nil
}
