package dynamodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"cmseditor/domain/core/entities"
	"cmseditor/domain/core/valueobjects"
	pkgerrors "cmseditor/pkg/errors"
)

// SessionStore implements ports.SessionStore on DynamoDB. Sessions expire
// through the table TTL some time after SessionTTL of inactivity.
type SessionStore struct {
	client     Client
	tableName  string
	sessionTTL time.Duration
	logger     *zap.Logger
}

// NewSessionStore creates a new SessionStore
func NewSessionStore(client Client, tableName string, sessionTTL time.Duration, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		client:     client,
		tableName:  tableName,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

type sessionItem struct {
	PK            string `dynamodbav:"PK"` // SESSION#<resource id>
	SK            string `dynamodbav:"SK"` // USER#<user id>
	EntityType    string `dynamodbav:"EntityType"`
	ResourceID    string `dynamodbav:"ResourceID"`
	UserID        string `dynamodbav:"UserID"`
	ResourcePath  string `dynamodbav:"ResourcePath"`
	TempFilePath  string `dynamodbav:"TempFilePath"`
	BackLink      string `dynamodbav:"BackLink,omitempty"`
	DirectEdit    bool   `dynamodbav:"DirectEdit"`
	ActiveLocale  string `dynamodbav:"ActiveLocale,omitempty"`
	ActiveElement string `dynamodbav:"ActiveElement,omitempty"`
	EditorName    string `dynamodbav:"EditorName,omitempty"`
	Kind          string `dynamodbav:"Kind,omitempty"`
	LockAcquired  bool   `dynamodbav:"LockAcquired"`
	Modified      bool   `dynamodbav:"Modified"`
	CreatedAt     int64  `dynamodbav:"CreatedAt"`
	UpdatedAt     int64  `dynamodbav:"UpdatedAt"` // unix nanos, filtered on by ListExpired
	TTL           int64  `dynamodbav:"TTL,omitempty"`
}

func sessionKey(k entities.SessionKey) (string, string) {
	return prefixSession + k.ResourceID.String(), prefixUser + k.UserID
}

func (s *SessionStore) toItem(session *entities.EditSession) sessionItem {
	pk, sk := sessionKey(session.Key)
	item := sessionItem{
		PK:            pk,
		SK:            sk,
		EntityType:    entitySession,
		ResourceID:    session.Key.ResourceID.String(),
		UserID:        session.Key.UserID,
		ResourcePath:  session.ResourcePath,
		TempFilePath:  session.TempFilePath,
		BackLink:      session.BackLink,
		DirectEdit:    session.DirectEdit,
		ActiveElement: session.ActiveElement,
		EditorName:    session.EditorName,
		Kind:          session.Kind,
		LockAcquired:  session.LockAcquired,
		Modified:      session.Modified,
		CreatedAt:     session.CreatedAt.UnixNano(),
		UpdatedAt:     session.UpdatedAt.UnixNano(),
	}
	if !session.ActiveLocale.IsZero() {
		item.ActiveLocale = session.ActiveLocale.String()
	}
	if s.sessionTTL > 0 {
		item.TTL = session.UpdatedAt.Add(2 * s.sessionTTL).Unix()
	}
	return item
}

func (i sessionItem) toEntity() (*entities.EditSession, error) {
	id, err := valueobjects.ParseResourceID(i.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("session %s/%s: %w", i.PK, i.SK, err)
	}
	return &entities.EditSession{
		Key:           entities.SessionKey{ResourceID: id, UserID: i.UserID},
		ResourcePath:  i.ResourcePath,
		TempFilePath:  i.TempFilePath,
		BackLink:      i.BackLink,
		DirectEdit:    i.DirectEdit,
		ActiveLocale:  valueobjects.OptionalLocale(i.ActiveLocale),
		ActiveElement: i.ActiveElement,
		EditorName:    i.EditorName,
		Kind:          i.Kind,
		LockAcquired:  i.LockAcquired,
		Modified:      i.Modified,
		CreatedAt:     time.Unix(0, i.CreatedAt),
		UpdatedAt:     time.Unix(0, i.UpdatedAt),
	}, nil
}

// Get returns the stored session or (nil, nil) when there is none
func (s *SessionStore) Get(ctx context.Context, k entities.SessionKey) (*entities.EditSession, error) {
	pk, sk := sessionKey(k)
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            key(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get session", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return item.toEntity()
}

// Save creates or replaces the session
func (s *SessionStore) Save(ctx context.Context, session *entities.EditSession) error {
	av, err := attributevalue.MarshalMap(s.toItem(session))
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		return pkgerrors.NewDatabaseError("save session", err)
	}
	return nil
}

// Delete removes the session, a missing session is not an error
func (s *SessionStore) Delete(ctx context.Context, k entities.SessionKey) error {
	pk, sk := sessionKey(k)
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       key(pk, sk),
	}); err != nil {
		return pkgerrors.NewDatabaseError("delete session", err)
	}
	return nil
}

// ListExpired returns sessions not updated since before. It scans the
// table, which is acceptable for a periodic sweep.
func (s *SessionStore) ListExpired(ctx context.Context, before time.Time) ([]*entities.EditSession, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(entitySession)).
		And(expression.Name("UpdatedAt").LessThan(expression.Value(before.UnixNano())))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter: %w", err)
	}

	var sessions []*entities.EditSession
	input := &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	for {
		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("scan sessions", err)
		}
		for _, raw := range result.Items {
			var item sessionItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil || !strings.HasPrefix(item.PK, prefixSession) {
				s.logger.Warn("Skipping malformed session item", zap.Error(err))
				continue
			}
			session, err := item.toEntity()
			if err != nil {
				s.logger.Warn("Skipping malformed session item", zap.Error(err))
				continue
			}
			sessions = append(sessions, session)
		}
		if len(result.LastEvaluatedKey) == 0 {
			return sessions, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}
