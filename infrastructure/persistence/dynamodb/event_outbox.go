package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"cmseditor/domain/events"
	pkgerrors "cmseditor/pkg/errors"
)

// PublishStatus represents the publishing status of an event
type PublishStatus string

const (
	PublishStatusPending   PublishStatus = "pending"   // Event is saved but not yet published
	PublishStatusPublished PublishStatus = "published" // Event successfully published
	PublishStatusFailed    PublishStatus = "failed"    // Event publishing failed
)

// eventRetention is how long delivered events stay in the table
const eventRetention = 30 * 24 * time.Hour

// EventRecord represents how events are stored in DynamoDB with Outbox pattern
type EventRecord struct {
	PK          string `dynamodbav:"PK"` // EVENTS#<aggregate_id>
	SK          string `dynamodbav:"SK"` // EVENT#<unix nanos>#<event_id>
	EventID     string `dynamodbav:"EventID"`
	EventType   string `dynamodbav:"EventType"`
	AggregateID string `dynamodbav:"AggregateID"`
	Detail      string `dynamodbav:"Detail"` // the event as JSON
	Timestamp   string `dynamodbav:"Timestamp"`
	Version     int    `dynamodbav:"Version"`

	// Outbox pattern fields
	PublishStatus   string `dynamodbav:"PublishStatus"`
	PublishAttempts int    `dynamodbav:"PublishAttempts"`
	LastPublishTry  string `dynamodbav:"LastPublishTry,omitempty"`
	PublishedAt     string `dynamodbav:"PublishedAt,omitempty"`
	ErrorMessage    string `dynamodbav:"ErrorMessage,omitempty"`

	TTL int64 `dynamodbav:"TTL,omitempty"`
}

// EventOutbox stores domain events as pending records. It satisfies
// ports.EventPublisher so services publish into it unchanged; the
// OutboxProcessor forwards the records later.
type EventOutbox struct {
	client    Client
	tableName string
	now       func() time.Time
}

// NewEventOutbox creates a new DynamoDB event outbox
func NewEventOutbox(client Client, tableName string) *EventOutbox {
	return &EventOutbox{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

// Publish stores a single event
func (o *EventOutbox) Publish(ctx context.Context, event events.DomainEvent) error {
	return o.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch stores events, 25 per batch write
func (o *EventOutbox) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(domainEvents))
	for _, event := range domainEvents {
		record, err := o.eventToRecord(event)
		if err != nil {
			return pkgerrors.ErrEventPublishFailed.Clone().WithCause(err)
		}
		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}
		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	for i := 0; i < len(writeRequests); i += 25 {
		end := i + 25
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		result, err := o.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				o.tableName: writeRequests[i:end],
			},
		})
		if err != nil {
			return pkgerrors.ErrEventPublishFailed.Clone().WithCause(err)
		}
		if n := len(result.UnprocessedItems[o.tableName]); n > 0 {
			return pkgerrors.ErrEventPublishFailed.Clone().WithDetail("unprocessed", n)
		}
	}
	return nil
}

func (o *EventOutbox) eventToRecord(event events.DomainEvent) (*EventRecord, error) {
	detail, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", event.GetEventType(), err)
	}
	eventID := uuid.New().String()
	ts := event.GetTimestamp()
	if ts.IsZero() {
		ts = o.now()
	}
	return &EventRecord{
		PK:            prefixEvents + event.GetAggregateID(),
		SK:            fmt.Sprintf("EVENT#%020d#%s", ts.UnixNano(), eventID),
		EventID:       eventID,
		EventType:     event.GetEventType(),
		AggregateID:   event.GetAggregateID(),
		Detail:        string(detail),
		Timestamp:     ts.UTC().Format(time.RFC3339Nano),
		Version:       event.GetVersion(),
		PublishStatus: string(PublishStatusPending),
		TTL:           ts.Add(eventRetention).Unix(),
	}, nil
}

// GetPendingEvents retrieves events that haven't been published yet
func (o *EventOutbox) GetPendingEvents(ctx context.Context, limit int32) ([]*EventRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	// A scan with filter; pending events are few because the processor
	// drains them continuously
	result, err := o.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(o.tableName),
		FilterExpression: aws.String("PublishStatus = :status AND begins_with(PK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(PublishStatusPending)},
			":prefix": &types.AttributeValueMemberS{Value: prefixEvents},
		},
		Limit: aws.Int32(limit),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("scan pending events", err)
	}

	records := make([]*EventRecord, 0, len(result.Items))
	for _, item := range result.Items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			continue // Skip malformed records
		}
		records = append(records, &record)
	}
	return records, nil
}

// MarkEventAsPublished marks an event as successfully published
func (o *EventOutbox) MarkEventAsPublished(ctx context.Context, eventPK, eventSK string) error {
	_, err := o.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(o.tableName),
		Key:              key(eventPK, eventSK),
		UpdateExpression: aws.String("SET PublishStatus = :published, PublishedAt = :publishedAt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":published":   &types.AttributeValueMemberS{Value: string(PublishStatusPublished)},
			":publishedAt": &types.AttributeValueMemberS{Value: o.now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("mark event published", err)
	}
	return nil
}

// MarkEventAsFailed records a failed attempt. The event stays pending until
// maxAttempts is reached.
func (o *EventOutbox) MarkEventAsFailed(ctx context.Context, eventPK, eventSK, errorMsg string, attempts, maxAttempts int) error {
	status := PublishStatusFailed
	if attempts < maxAttempts {
		status = PublishStatusPending
	}

	_, err := o.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(o.tableName),
		Key:              key(eventPK, eventSK),
		UpdateExpression: aws.String("SET PublishStatus = :status, PublishAttempts = :attempts, LastPublishTry = :lastTry, ErrorMessage = :error"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":   &types.AttributeValueMemberS{Value: string(status)},
			":attempts": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", attempts)},
			":lastTry":  &types.AttributeValueMemberS{Value: o.now().UTC().Format(time.RFC3339)},
			":error":    &types.AttributeValueMemberS{Value: errorMsg},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("mark event failed", err)
	}
	return nil
}
