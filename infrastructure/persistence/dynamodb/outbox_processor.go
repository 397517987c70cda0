package dynamodb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OutboxForwarder delivers a stored event to the message bus
type OutboxForwarder interface {
	Forward(ctx context.Context, eventType, aggregateID string, at time.Time, detail string) error
}

// OutboxProcessor handles the background processing of unpublished events
// using the Outbox pattern to ensure eventual consistency
type OutboxProcessor struct {
	outbox    *EventOutbox
	forwarder OutboxForwarder
	logger    *zap.Logger

	// Configuration
	batchSize          int32
	processingInterval time.Duration
	maxRetries         int

	// Control channels
	stopOnce    sync.Once
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(outbox *EventOutbox, forwarder OutboxForwarder, logger *zap.Logger) *OutboxProcessor {
	return &OutboxProcessor{
		outbox:             outbox,
		forwarder:          forwarder,
		logger:             logger,
		batchSize:          50,
		processingInterval: 5 * time.Second,
		maxRetries:         3,
		stopChan:           make(chan struct{}),
		stoppedChan:        make(chan struct{}),
	}
}

// Start begins the background processing of outbox events
func (op *OutboxProcessor) Start(ctx context.Context) {
	op.logger.Info("Starting outbox processor",
		zap.Int32("batchSize", op.batchSize),
		zap.Duration("interval", op.processingInterval),
	)

	go op.processLoop(ctx)
}

// Stop stops the processor and waits for the running batch. It must only
// be called after Start.
func (op *OutboxProcessor) Stop() {
	op.stopOnce.Do(func() {
		op.logger.Info("Stopping outbox processor")
		close(op.stopChan)
	})
	<-op.stoppedChan
}

func (op *OutboxProcessor) processLoop(ctx context.Context) {
	defer close(op.stoppedChan)

	ticker := time.NewTicker(op.processingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			op.logger.Info("Context cancelled, stopping outbox processor")
			return
		case <-op.stopChan:
			return
		case <-ticker.C:
			if _, err := op.ProcessOnce(ctx); err != nil {
				op.logger.Error("Error processing outbox batch", zap.Error(err))
			}
		}
	}
}

// ProcessOnce forwards one batch of pending events and reports how many
// were delivered
func (op *OutboxProcessor) ProcessOnce(ctx context.Context) (int, error) {
	pending, err := op.outbox.GetPendingEvents(ctx, op.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending events: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	delivered, failed := 0, 0
	for _, record := range pending {
		if err := op.processEvent(ctx, record); err != nil {
			op.logger.Error("Failed to process event",
				zap.String("eventID", record.EventID),
				zap.String("eventType", record.EventType),
				zap.Error(err),
			)
			failed++
			continue
		}
		delivered++
	}

	op.logger.Debug("Completed outbox batch processing",
		zap.Int("successCount", delivered),
		zap.Int("failureCount", failed),
	)
	return delivered, nil
}

func (op *OutboxProcessor) processEvent(ctx context.Context, record *EventRecord) error {
	at, err := time.Parse(time.RFC3339Nano, record.Timestamp)
	if err != nil {
		// malformed records can never be delivered
		return op.markEventFailed(ctx, record, fmt.Sprintf("bad timestamp: %v", err), op.maxRetries)
	}

	if err := op.forwarder.Forward(ctx, record.EventType, record.AggregateID, at, record.Detail); err != nil {
		return op.markEventFailed(ctx, record, fmt.Sprintf("forward failed: %v", err), record.PublishAttempts+1)
	}

	if err := op.outbox.MarkEventAsPublished(ctx, record.PK, record.SK); err != nil {
		return err
	}
	return nil
}

func (op *OutboxProcessor) markEventFailed(ctx context.Context, record *EventRecord, errorMsg string, attempts int) error {
	if err := op.outbox.MarkEventAsFailed(ctx, record.PK, record.SK, errorMsg, attempts, op.maxRetries); err != nil {
		return err
	}

	if attempts >= op.maxRetries {
		op.logger.Warn("Event permanently failed after max retries",
			zap.String("eventID", record.EventID),
			zap.String("eventType", record.EventType),
			zap.Int("attempts", attempts),
			zap.String("error", errorMsg),
		)
	}
	return fmt.Errorf("event processing failed: %s", errorMsg)
}
