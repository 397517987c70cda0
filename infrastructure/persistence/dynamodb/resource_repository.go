package dynamodb

import (
	"context"
	"fmt"
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

// ResourceRepository implements ports.ResourceRepository on DynamoDB
type ResourceRepository struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

// NewResourceRepository creates a new ResourceRepository
func NewResourceRepository(client Client, tableName string, logger *zap.Logger) *ResourceRepository {
	return &ResourceRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// resourceItem represents the DynamoDB item structure for a resource
type resourceItem struct {
	PK             string            `dynamodbav:"PK"`
	SK             string            `dynamodbav:"SK"`
	GSI1PK         string            `dynamodbav:"GSI1PK"`
	GSI1SK         string            `dynamodbav:"GSI1SK"`
	EntityType     string            `dynamodbav:"EntityType"`
	ResourceID     string            `dynamodbav:"ResourceID"`
	Path           string            `dynamodbav:"Path"`
	Type           string            `dynamodbav:"Type"`
	Content        []byte            `dynamodbav:"Content"`
	Properties     map[string]string `dynamodbav:"Properties"`
	Temporary      bool              `dynamodbav:"Temporary"`
	Version        int               `dynamodbav:"Version"`
	LastModified   string            `dynamodbav:"LastModified"`
	LastModifiedBy string            `dynamodbav:"LastModifiedBy"`
}

func toResourceItem(r *entities.Resource) resourceItem {
	return resourceItem{
		PK:             prefixResource + r.Path(),
		SK:             skMeta,
		GSI1PK:         prefixResourceID + r.ID().String(),
		GSI1SK:         skMeta,
		EntityType:     entityResource,
		ResourceID:     r.ID().String(),
		Path:           r.Path(),
		Type:           string(r.Type()),
		Content:        r.Content(),
		Properties:     r.Properties(),
		Temporary:      r.IsTemporary(),
		Version:        r.Version(),
		LastModified:   r.LastModified().UTC().Format(time.RFC3339Nano),
		LastModifiedBy: r.LastModifiedBy(),
	}
}

func (i resourceItem) toEntity() (*entities.Resource, error) {
	id, err := valueobjects.ParseResourceID(i.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", i.Path, err)
	}
	modified, err := time.Parse(time.RFC3339Nano, i.LastModified)
	if err != nil {
		return nil, fmt.Errorf("resource %s: bad timestamp: %w", i.Path, err)
	}
	return entities.ReconstructResource(id, i.Path, entities.ResourceType(i.Type), i.Content,
		i.Properties, i.Temporary, i.Version, modified, i.LastModifiedBy)
}

// GetByPath retrieves a resource by its VFS path
func (r *ResourceRepository) GetByPath(ctx context.Context, path string) (*entities.Resource, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            key(prefixResource+path, skMeta),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get resource", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.ErrResourceNotFound.Clone().WithDetail("path", path)
	}

	var item resourceItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resource: %w", err)
	}
	return item.toEntity()
}

// GetByID retrieves a resource through the id index
func (r *ResourceRepository) GetByID(ctx context.Context, id valueobjects.ResourceID) (*entities.Resource, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(prefixResourceID + id.String())).
		And(expression.Key("GSI1SK").Equal(expression.Value(skMeta)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(gsi1Name),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query resource by id", err)
	}
	if len(result.Items) == 0 {
		return nil, pkgerrors.ErrResourceNotFound.Clone().WithDetail("id", id.String())
	}

	var item resourceItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resource: %w", err)
	}
	return item.toEntity()
}

// Save persists a resource (create or update)
func (r *ResourceRepository) Save(ctx context.Context, resource *entities.Resource) error {
	av, err := attributevalue.MarshalMap(toResourceItem(resource))
	if err != nil {
		return fmt.Errorf("failed to marshal resource: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return pkgerrors.NewDatabaseError("save resource", err)
	}

	r.logger.Debug("Resource saved",
		zap.String("path", resource.Path()),
		zap.Int("version", resource.Version()),
		zap.Bool("temporary", resource.IsTemporary()),
	)
	return nil
}

// Delete removes the resource stored under path
func (r *ResourceRepository) Delete(ctx context.Context, path string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 key(prefixResource+path, skMeta),
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return pkgerrors.ErrResourceNotFound.Clone().WithDetail("path", path)
		}
		return pkgerrors.NewDatabaseError("delete resource", err)
	}
	return nil
}

// Exists checks whether a resource is stored under path
func (r *ResourceRepository) Exists(ctx context.Context, path string) (bool, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(r.tableName),
		Key:                  key(prefixResource+path, skMeta),
		ProjectionExpression: aws.String("PK"),
	})
	if err != nil {
		return false, pkgerrors.NewDatabaseError("check resource", err)
	}
	return result.Item != nil, nil
}
