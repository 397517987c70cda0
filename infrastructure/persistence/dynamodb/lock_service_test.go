package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgerrors "cmseditor/pkg/errors"
)

func newTestLockService(client Client, now time.Time) *LockService {
	s := NewLockService(client, "cms", zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func lockItem(t *testing.T, owner string, expires time.Time) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(LockRecord{
		PK:        prefixLock + "/sites/a.xml",
		SK:        skLock,
		Owner:     owner,
		ExpiresAt: expires.Unix(),
	})
	require.NoError(t, err)
	return item
}

func TestLockService_Acquire(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	client := new(mockClient)
	client.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		var record LockRecord
		_ = attributevalue.UnmarshalMap(in.Item, &record)
		return *in.TableName == "cms" &&
			record.PK == "LOCK#/sites/a.xml" &&
			record.Owner == "alice" &&
			record.ExpiresAt == now.Add(time.Hour).Unix()
	})).Return(&dynamodb.PutItemOutput{}, nil)

	lock, err := newTestLockService(client, now).Acquire(context.Background(), "/sites/a.xml", "alice", time.Hour)

	require.NoError(t, err)
	assert.Equal(t, "alice", lock.Owner)
	assert.Equal(t, now.Add(time.Hour), lock.ExpiresAt)
	client.AssertExpectations(t)
}

func TestLockService_Acquire_HeldByOther(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	client := new(mockClient)
	client.On("PutItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{})
	client.On("GetItem", mock.Anything, mock.Anything).
		Return(&dynamodb.GetItemOutput{Item: lockItem(t, "bob", now.Add(time.Minute))}, nil)

	_, err := newTestLockService(client, now).Acquire(context.Background(), "/sites/a.xml", "alice", time.Hour)

	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrResourceLocked))
	var domainErr *pkgerrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "bob", domainErr.Details["owner"])
}

func TestLockService_Release_NotOwnerIsNoop(t *testing.T) {
	client := new(mockClient)
	client.On("DeleteItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{})

	err := newTestLockService(client, time.Now()).Release(context.Background(), "/sites/a.xml", "alice")

	assert.NoError(t, err)
}

func TestLockService_GetLock(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name      string
		item      map[string]types.AttributeValue
		wantOwner string
	}{
		{name: "unlocked", item: nil},
		{name: "expired record", item: lockItem(t, "bob", now.Add(-time.Second))},
		{name: "active", item: lockItem(t, "bob", now.Add(time.Minute)), wantOwner: "bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mockClient)
			client.On("GetItem", mock.Anything, mock.Anything).
				Return(&dynamodb.GetItemOutput{Item: tt.item}, nil)

			lock, err := newTestLockService(client, now).GetLock(context.Background(), "/sites/a.xml")

			require.NoError(t, err)
			if tt.wantOwner == "" {
				assert.Nil(t, lock)
				return
			}
			require.NotNil(t, lock)
			assert.Equal(t, tt.wantOwner, lock.Owner)
		})
	}
}
