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

// Metrics buffers metric datapoints and flushes them to CloudWatch in
// batches. Recording never blocks on the network; a full buffer drops the
// oldest datapoint.
type Metrics struct {
	client    *cloudwatch.Client
	namespace string
	logger    *zap.Logger

	mu     sync.Mutex
	buffer []types.MetricDatum
}

const maxBufferedDatapoints = 500

// NewMetrics creates a CloudWatch metrics recorder
func NewMetrics(client *cloudwatch.Client, namespace string, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Metrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// Count records an occurrence counter
func (m *Metrics) Count(name string, value float64, dimensions map[string]string) {
	m.record(types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       types.StandardUnitCount,
		Timestamp:  aws.Time(time.Now()),
		Dimensions: toDimensions(dimensions),
	})
}

// Duration records a latency measurement
func (m *Metrics) Duration(name string, d time.Duration, dimensions map[string]string) {
	m.record(types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(float64(d.Milliseconds())),
		Unit:       types.StandardUnitMilliseconds,
		Timestamp:  aws.Time(time.Now()),
		Dimensions: toDimensions(dimensions),
	})
}

// Flush pushes buffered datapoints to CloudWatch. PutMetricData accepts at
// most 1000 datapoints per call; the buffer stays well under that.
func (m *Metrics) Flush(ctx context.Context) error {
	m.mu.Lock()
	batch := m.buffer
	m.buffer = nil
	m.mu.Unlock()

	if len(batch) == 0 || m.client == nil {
		return nil
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: batch,
	})
	if err != nil {
		m.logger.Warn("failed to flush metrics", zap.Int("datapoints", len(batch)), zap.Error(err))
		return err
	}
	return nil
}

func (m *Metrics) record(datum types.MetricDatum) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.buffer) >= maxBufferedDatapoints {
		m.buffer = m.buffer[1:]
	}
	m.buffer = append(m.buffer, datum)
}

func toDimensions(dims map[string]string) []types.Dimension {
	if len(dims) == 0 {
		return nil
	}
	out := make([]types.Dimension, 0, len(dims))
	for name, value := range dims {
		out = append(out, types.Dimension{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}
	return out
}
