package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestMetrics_RecordAndFlush(t *testing.T) {
	// Arrange
	client := &fakeCloudWatch{}
	metrics := NewMetrics("CMSEditor", client, zap.NewNop())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	metrics.now = func() time.Time { return now }

	// Act
	metrics.RecordCommandExecution(context.Background(), "EditorActionCommand", 40*time.Millisecond, errors.New("locked"))
	timer := metrics.StartTimer("query_duration", "ListLocales")
	now = now.Add(15 * time.Millisecond)
	timer.Stop()
	metrics.Increment("query_count", "ListLocales")
	require.NoError(t, metrics.Flush(context.Background()))

	// Assert
	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "CMSEditor", aws.ToString(in.Namespace))
	require.Len(t, in.MetricData, 4)
	assert.Equal(t, "CommandExecution", aws.ToString(in.MetricData[0].MetricName))
	assert.Equal(t, "failure", aws.ToString(in.MetricData[0].Dimensions[1].Value))
	assert.Equal(t, 40.0, aws.ToFloat64(in.MetricData[0].Value))
	assert.Equal(t, 15.0, aws.ToFloat64(in.MetricData[2].Value))

	// nothing left to send
	require.NoError(t, metrics.Flush(context.Background()))
	assert.Len(t, client.inputs, 1)
}

func TestMetrics_FlushesWhenBufferFills(t *testing.T) {
	client := &fakeCloudWatch{}
	metrics := NewMetrics("CMSEditor", client, zap.NewNop())

	for i := 0; i < flushThreshold; i++ {
		metrics.Increment("query_count", "SelectEditor")
	}

	require.Len(t, client.inputs, 1)
	assert.Len(t, client.inputs[0].MetricData, flushThreshold)
}

func TestMetrics_NilClient(t *testing.T) {
	metrics := NewMetrics("CMSEditor", nil, zap.NewNop())

	metrics.Increment("query_count", "x")
	metrics.StartTimer("query_duration", "x").Stop()

	assert.NoError(t, metrics.Flush(context.Background()))
}

func TestMetrics_FlushError(t *testing.T) {
	client := &fakeCloudWatch{err: errors.New("throttled")}
	metrics := NewMetrics("CMSEditor", client, zap.NewNop())
	metrics.Increment("query_count", "x")

	assert.Error(t, metrics.Flush(context.Background()))
}
