package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"cmseditor/application/ports"
	pkgerrors "cmseditor/pkg/errors"
)

// LockService provides resource edit locks using DynamoDB conditional writes
type LockService struct {
	client    Client
	tableName string
	now       func() time.Time
	logger    *zap.Logger
}

// LockRecord represents a lock record in DynamoDB
type LockRecord struct {
	PK         string `dynamodbav:"PK"`         // LOCK#<resource path>
	SK         string `dynamodbav:"SK"`         // LOCK
	Owner      string `dynamodbav:"Owner"`      // user holding the lock
	AcquiredAt int64  `dynamodbav:"AcquiredAt"` // unix seconds
	ExpiresAt  int64  `dynamodbav:"ExpiresAt"`  // unix seconds
	TTL        int64  `dynamodbav:"TTL"`        // Unix timestamp for DynamoDB TTL
}

// NewLockService creates a new lock service
func NewLockService(client Client, tableName string, logger *zap.Logger) *LockService {
	return &LockService{
		client:    client,
		tableName: tableName,
		now:       time.Now,
		logger:    logger,
	}
}

// Acquire locks path for owner. The write succeeds when there is no lock,
// the lock expired or owner already holds it.
func (s *LockService) Acquire(ctx context.Context, path, owner string, ttl time.Duration) (*ports.Lock, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	record := LockRecord{
		PK:         prefixLock + path,
		SK:         skLock,
		Owner:      owner,
		AcquiredAt: now.Unix(),
		ExpiresAt:  expiresAt.Unix(),
		TTL:        expiresAt.Unix(),
	}
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now OR #owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "Owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Unix())},
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			holder := "another user"
			if current, getErr := s.GetLock(ctx, path); getErr == nil && current != nil {
				holder = current.Owner
			}
			s.logger.Debug("Failed to acquire lock - already held",
				zap.String("resource", path),
				zap.String("owner", owner),
				zap.String("holder", holder),
			)
			return nil, pkgerrors.ErrResourceLocked.Clone().
				WithDetail("path", path).
				WithDetail("owner", holder)
		}
		return nil, pkgerrors.NewDatabaseError("acquire lock", err)
	}

	s.logger.Debug("Lock acquired",
		zap.String("resource", path),
		zap.String("owner", owner),
		zap.Duration("duration", ttl),
	)
	return &ports.Lock{Path: path, Owner: owner, AcquiredAt: now, ExpiresAt: expiresAt}, nil
}

// Release removes the lock if owner holds it
func (s *LockService) Release(ctx context.Context, path, owner string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 key(prefixLock+path, skLock),
		ConditionExpression: aws.String("#owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "Owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			s.logger.Warn("Lock already released or owned by someone else",
				zap.String("resource", path),
				zap.String("owner", owner),
			)
			return nil // the lock is gone or not ours, nothing to release
		}
		return pkgerrors.NewDatabaseError("release lock", err)
	}

	s.logger.Debug("Lock released",
		zap.String("resource", path),
		zap.String("owner", owner),
	)
	return nil
}

// GetLock returns the current lock or (nil, nil) when path is unlocked.
// Expired records that the table TTL has not removed yet count as unlocked.
func (s *LockService) GetLock(ctx context.Context, path string) (*ports.Lock, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            key(prefixLock+path, skLock),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get lock", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var record LockRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lock: %w", err)
	}
	expiresAt := time.Unix(record.ExpiresAt, 0)
	if !expiresAt.After(s.now()) {
		return nil, nil
	}
	return &ports.Lock{
		Path:       path,
		Owner:      record.Owner,
		AcquiredAt: time.Unix(record.AcquiredAt, 0),
		ExpiresAt:  expiresAt,
	}, nil
}
