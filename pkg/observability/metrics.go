package observability

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// flushThreshold is the number of buffered datums that triggers a put
const flushThreshold = 20

// MetricsClient is the CloudWatch API used for metrics. *cloudwatch.Client
// satisfies it.
type MetricsClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metrics buffers datums and sends them to CloudWatch in batches. A nil
// client turns every call into a no-op.
type Metrics struct {
	namespace string
	client    MetricsClient
	logger    *zap.Logger
	now       func() time.Time

	mu     sync.Mutex
	buffer []types.MetricDatum
}

// NewMetrics creates a new metrics instance
func NewMetrics(namespace string, client MetricsClient, logger *zap.Logger) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordCommandExecution records duration and count of a command
func (m *Metrics) RecordCommandExecution(ctx context.Context, commandName string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	dims := []types.Dimension{
		{Name: aws.String("CommandName"), Value: aws.String(commandName)},
		{Name: aws.String("Status"), Value: aws.String(status)},
	}

	m.add(ctx,
		m.datum("CommandExecution", dims, float64(duration.Milliseconds()), types.StandardUnitMilliseconds),
		m.datum("CommandCount", dims, 1, types.StandardUnitCount),
	)
}

// Increment counts one occurrence of metric for label
func (m *Metrics) Increment(metric, label string) {
	m.add(context.Background(), m.datum(metric, labelDimension(label), 1, types.StandardUnitCount))
}

// StartTimer starts measuring metric for label; the datum is recorded on Stop
func (m *Metrics) StartTimer(metric, label string) *Timer {
	return &Timer{metrics: m, metric: metric, label: label, start: m.now()}
}

// Timer measures one duration
type Timer struct {
	metrics *Metrics
	metric  string
	label   string
	start   time.Time
}

// Stop records the elapsed time
func (t *Timer) Stop() {
	m := t.metrics
	elapsed := m.now().Sub(t.start)
	m.add(context.Background(), m.datum(t.metric, labelDimension(t.label), float64(elapsed.Milliseconds()), types.StandardUnitMilliseconds))
}

// Flush sends every buffered datum
func (m *Metrics) Flush(ctx context.Context) error {
	if m.client == nil {
		return nil
	}

	m.mu.Lock()
	pending := m.buffer
	m.buffer = nil
	m.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: pending,
	})
	if err != nil {
		m.logger.Warn("Failed to send metrics",
			zap.String("namespace", m.namespace),
			zap.Int("datums", len(pending)),
			zap.Error(err),
		)
	}
	return err
}

func (m *Metrics) add(ctx context.Context, datums ...types.MetricDatum) {
	if m.client == nil {
		return
	}

	m.mu.Lock()
	m.buffer = append(m.buffer, datums...)
	full := len(m.buffer) >= flushThreshold
	m.mu.Unlock()

	if full {
		_ = m.Flush(context.WithoutCancel(ctx))
	}
}

func (m *Metrics) datum(name string, dims []types.Dimension, value float64, unit types.StandardUnit) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Dimensions: dims,
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(m.now()),
	}
}

func labelDimension(label string) []types.Dimension {
	return []types.Dimension{{Name: aws.String("Name"), Value: aws.String(label)}}
}
