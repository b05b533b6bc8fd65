package relaycli

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/tj/assert"
)

type fakeCloudWatch struct {
	cloudwatchiface.CloudWatchAPI

	inputs []*cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) PutMetricDataWithContext(_ aws.Context, input *cloudwatch.PutMetricDataInput, _ ...request.Option) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, input)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func dimensionValue(datum *cloudwatch.MetricDatum, name DimensionName) string {
	for _, d := range datum.Dimensions {
		if aws.StringValue(d.Name) == string(name) {
			return aws.StringValue(d.Value)
		}
	}
	return ""
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	service := Service{Name: "test-service", Version: "abc123"}

	t.Run("event", func(t *testing.T) {
		api := &fakeCloudWatch{}
		m := NewMetrics(service, api)

		m.Event(ctx, DeliveryFailureMetric)
		assert.Len(t, api.inputs, 1)

		datum := api.inputs[0].MetricData[0]
		assert.Equal(t, "DeliveryFailure", aws.StringValue(datum.MetricName))
		assert.Equal(t, "Count", aws.StringValue(datum.Unit))
		assert.Equal(t, 1.0, aws.Float64Value(datum.Value))
		assert.Equal(t, "test-service", dimensionValue(datum, ServiceNameDimension))
		assert.Equal(t, "abc123", dimensionValue(datum, ServiceVersionDimension))
	})

	t.Run("timing", func(t *testing.T) {
		api := &fakeCloudWatch{}
		m := NewMetrics(service, api)

		m.Timing(ctx, BroadcastTimeMetric, time.Now().Add(-50*time.Millisecond))
		assert.Len(t, api.inputs, 1)

		datum := api.inputs[0].MetricData[0]
		assert.Equal(t, "BroadcastTime", aws.StringValue(datum.MetricName))
		assert.Equal(t, "Milliseconds", aws.StringValue(datum.Unit))
		assert.True(t, aws.Float64Value(datum.Value) >= 50)
	})

	t.Run("gauge", func(t *testing.T) {
		api := &fakeCloudWatch{}
		m := NewMetrics(service, api)

		m.Gauge(ctx, LiveConnectionsMetric, 42)
		assert.Len(t, api.inputs, 1)

		datum := api.inputs[0].MetricData[0]
		assert.Equal(t, "LiveConnections", aws.StringValue(datum.MetricName))
		assert.Equal(t, "None", aws.StringValue(datum.Unit))
		assert.Equal(t, 42.0, aws.Float64Value(datum.Value))
	})

	t.Run("empty dimensions are skipped", func(t *testing.T) {
		api := &fakeCloudWatch{}
		m := NewMetrics(service, api)

		m.Event(ctx, DeliveryFailureMetric, map[DimensionName]string{OperationNameDimension: ""})
		datum := api.inputs[0].MetricData[0]
		assert.Equal(t, "", dimensionValue(datum, OperationNameDimension))
		assert.Len(t, datum.Dimensions, 2)
	})
}
