package sagas

import (
	"context"

	"go.uber.org/zap"

	"cmseditor/application/ports"
	"cmseditor/domain/core/entities"
	"cmseditor/domain/events"
	pkgerrors "cmseditor/pkg/errors"
)

// Tracer wraps a unit of work in a trace subsegment
type Tracer interface {
	TraceFunction(ctx context.Context, name string, fn func(context.Context) error) error
}

// CommitRequest copies a temporary file onto its original
type CommitRequest struct {
	Original *entities.Resource
	Temp     *entities.Resource
	UserID   string
	Locales  []string
}

// CommitSaga commits a temporary file. Either the original carries the
// new content and the commit event is out, or the original is restored.
type CommitSaga struct {
	repo      ports.ResourceRepository
	publisher ports.EventPublisher
	tracer    Tracer
	clock     ports.Clock
	logger    *zap.Logger
}

// NewCommitSaga creates the commit saga. tracer may be nil.
func NewCommitSaga(repo ports.ResourceRepository, publisher ports.EventPublisher, tracer Tracer, clock ports.Clock, logger *zap.Logger) *CommitSaga {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &CommitSaga{repo: repo, publisher: publisher, tracer: tracer, clock: clock, logger: logger}
}

// Commit runs the saga and returns the committed original
func (c *CommitSaga) Commit(ctx context.Context, req CommitRequest) (*entities.Resource, error) {
	var committed *entities.Resource
	run := func(ctx context.Context) error {
		var err error
		committed, err = c.commit(ctx, req)
		return err
	}
	var err error
	if c.tracer == nil {
		err = run(ctx)
	} else {
		err = c.tracer.TraceFunction(ctx, "commit", run)
	}
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (c *CommitSaga) commit(ctx context.Context, req CommitRequest) (*entities.Resource, error) {
	var snapshot, committed *entities.Resource

	saga := NewSaga("commit", c.logger).
		AddStep(SagaStep{
			Name: "snapshot original",
			Execute: func(ctx context.Context) error {
				current, err := c.repo.GetByPath(ctx, req.Original.Path())
				if err != nil {
					return err
				}
				if current.Version() != req.Original.Version() {
					return pkgerrors.ErrConcurrentModification.Clone().
						WithDetail("path", current.Path()).
						WithDetail("expected_version", req.Original.Version()).
						WithDetail("actual_version", current.Version())
				}
				snapshot = current.Snapshot()
				return nil
			},
		}).
		AddStep(SagaStep{
			Name: "copy onto original",
			Execute: func(ctx context.Context) error {
				committed = snapshot.Snapshot()
				if err := committed.CommitFrom(req.Temp, req.UserID); err != nil {
					return err
				}
				return c.repo.Save(ctx, committed)
			},
			Compensate: func(ctx context.Context) error {
				c.logger.Warn("Restoring original after failed commit",
					zap.String("resource", snapshot.Path()),
				)
				return c.repo.Save(ctx, snapshot)
			},
		}).
		AddStep(SagaStep{
			Name: "publish committed",
			Execute: func(ctx context.Context) error {
				event := events.NewResourceCommitted(committed.ID(), committed.Path(), req.UserID,
					req.Locales, committed.Version(), c.clock.Now())
				if err := c.publisher.Publish(ctx, event); err != nil {
					return pkgerrors.ErrEventPublishFailed.Clone().WithCause(err)
				}
				return nil
			},
		})

	if err := saga.Execute(ctx); err != nil {
		return nil, err
	}
	return committed, nil
}
