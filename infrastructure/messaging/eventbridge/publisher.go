package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"cmseditor/application/ports"
	"cmseditor/domain/events"
	pkgerrors "cmseditor/pkg/errors"
)

// Source is the EventBridge source of every editor event
const Source = "cms.editor"

// EventBridge limits PutEvents to 10 entries
const batchSize = 10

// Client is the EventBridge API the publisher needs. *eventbridge.Client
// satisfies it.
type Client interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Publisher implements ports.EventBus on top of AWS EventBridge. It also
// forwards events stored in the DynamoDB outbox.
type Publisher struct {
	client       Client
	eventBusName string
	logger       *zap.Logger
}

// NewPublisher creates a new EventBridge publisher
func NewPublisher(client Client, eventBusName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
	}
}

var _ ports.EventBus = (*Publisher)(nil)

// Publish sends a single event to EventBridge
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends events in chunks of ten
func (p *Publisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for start := 0; start < len(domainEvents); start += batchSize {
		end := min(start+batchSize, len(domainEvents))

		entries := make([]types.PutEventsRequestEntry, 0, end-start)
		for _, event := range domainEvents[start:end] {
			detail, err := json.Marshal(event)
			if err != nil {
				p.logger.Error("Failed to marshal event",
					zap.String("eventType", event.GetEventType()),
					zap.Error(err),
				)
				continue
			}
			entries = append(entries, p.entry(event.GetEventType(), event.GetAggregateID(), event.GetTimestamp(), string(detail)))
		}

		if err := p.put(ctx, entries); err != nil {
			return err
		}
	}
	return nil
}

// Forward sends one event whose detail is already serialized
func (p *Publisher) Forward(ctx context.Context, eventType, aggregateID string, at time.Time, detail string) error {
	return p.put(ctx, []types.PutEventsRequestEntry{p.entry(eventType, aggregateID, at, detail)})
}

// Subscribe is not supported: EventBridge routes through rules configured
// outside the service
func (p *Publisher) Subscribe(eventType string, handler ports.EventHandler) error {
	p.logger.Warn("Subscribe called but EventBridge subscriptions are managed externally",
		zap.String("eventType", eventType),
	)
	return nil
}

// Unsubscribe is not supported, see Subscribe
func (p *Publisher) Unsubscribe(eventType string, handler ports.EventHandler) error {
	p.logger.Warn("Unsubscribe called but EventBridge subscriptions are managed externally",
		zap.String("eventType", eventType),
	)
	return nil
}

func (p *Publisher) entry(eventType, aggregateID string, at time.Time, detail string) types.PutEventsRequestEntry {
	return types.PutEventsRequestEntry{
		EventBusName: aws.String(p.eventBusName),
		Source:       aws.String(Source),
		DetailType:   aws.String(eventType),
		Detail:       aws.String(detail),
		Time:         aws.Time(at),
		Resources:    []string{fmt.Sprintf("cms:resource:%s", aggregateID)},
	}
}

func (p *Publisher) put(ctx context.Context, entries []types.PutEventsRequestEntry) error {
	if len(entries) == 0 {
		return nil
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return pkgerrors.ErrEventPublishFailed.Clone().WithCause(err).WithDetail("count", len(entries))
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil && i < len(entries) {
				p.logger.Error("Failed to publish event",
					zap.String("eventType", aws.ToString(entries[i].DetailType)),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return pkgerrors.ErrEventPublishFailed.Clone().WithDetail("failed", result.FailedEntryCount)
	}

	p.logger.Debug("Events published to EventBridge",
		zap.Int("count", len(entries)),
		zap.String("eventBus", p.eventBusName),
	)
	return nil
}
