package auth

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowLimiter(t *testing.T) {
	// Arrange
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewSlidingWindowLimiter(2, time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	// Act & Assert
	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := limiter.Allow(ctx, "10.0.0.1")
	assert.False(t, ok, "third request within the window")

	ok, _ = limiter.Allow(ctx, "10.0.0.2")
	assert.True(t, ok, "other keys have their own window")

	now = now.Add(61 * time.Second)
	ok, _ = limiter.Allow(ctx, "10.0.0.1")
	assert.True(t, ok, "window slid past the old requests")

	require.NoError(t, limiter.Reset(ctx, "10.0.0.1"))
	ok, _ = limiter.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)
}

// counterStore keeps one counter per key and honours the limit condition
type counterStore struct {
	counts    map[string]int
	failWith  error
	lastInput *dynamodb.UpdateItemInput
}

func (s *counterStore) pk(key map[string]types.AttributeValue) string {
	return key["PK"].(*types.AttributeValueMemberS).Value
}

func (s *counterStore) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	s.lastInput = in
	if s.failWith != nil {
		return nil, s.failWith
	}
	pk := s.pk(in.Key)
	limit := in.ExpressionAttributeValues[":limit"].(*types.AttributeValueMemberN).Value
	if limit == "2" && s.counts[pk] >= 2 {
		return nil, &types.ConditionalCheckFailedException{}
	}
	s.counts[pk]++
	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
		"PK":    &types.AttributeValueMemberS{Value: pk},
		"Count": &types.AttributeValueMemberN{Value: strconv.Itoa(s.counts[pk])},
	}}, nil
}

func (s *counterStore) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	n, ok := s.counts[s.pk(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"Count": &types.AttributeValueMemberN{Value: strconv.Itoa(n)},
	}}, nil
}

func (s *counterStore) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	delete(s.counts, s.pk(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDistributedRateLimiter(t *testing.T) {
	// Arrange
	now := time.Date(2024, 5, 1, 12, 0, 30, 0, time.UTC)
	store := &counterStore{counts: map[string]int{}}
	limiter := NewDistributedRateLimiter(store, "cms", 2, time.Minute, "FORM").
		WithClock(func() time.Time { return now })
	ctx := context.Background()

	// Act
	first, err1 := limiter.Allow(ctx, "10.0.0.1")
	second, err2 := limiter.Allow(ctx, "10.0.0.1")
	third, err3 := limiter.Allow(ctx, "10.0.0.1")

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.NoError(t, err3)
	assert.True(t, first)
	assert.True(t, second)
	assert.False(t, third)
	assert.Equal(t, "RATE#FORM#10.0.0.1#1714564800", store.pk(store.lastInput.Key))

	remaining, resetIn, err := limiter.Remaining(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, 30*time.Second, resetIn)

	require.NoError(t, limiter.Reset(ctx, "10.0.0.1"))
	remaining, _, _ = limiter.Remaining(ctx, "10.0.0.1")
	assert.Equal(t, 2, remaining)
}

func TestDistributedRateLimiter_FailsOpen(t *testing.T) {
	store := &counterStore{counts: map[string]int{}, failWith: errors.New("throttled")}
	limiter := NewDistributedRateLimiter(store, "cms", 2, time.Minute, "FORM")

	ok, err := limiter.Allow(context.Background(), "10.0.0.1")

	assert.True(t, ok)
	assert.Error(t, err)
}
