package monitoring

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/middleware/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otlpmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var (
	MetricRequests otlpmetric.Int64Counter
	MetricSeconds  otlpmetric.Float64Histogram
	Meter          otlpmetric.Meter

	// MetricDeliveryJobs 投递任务结束状态计数
	MetricDeliveryJobs otlpmetric.Int64Counter
	// MetricFanout 广播与通知结果计数
	MetricFanout otlpmetric.Int64Counter
)

func InitPrometheus(serviceName string) error {
	exporter, err := prometheus.New()
	if err != nil {
		return err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	Meter = provider.Meter(serviceName)
	MetricRequests, err = metrics.DefaultRequestsCounter(Meter, metrics.DefaultServerRequestsCounterName)
	if err != nil {
		return err
	}
	MetricSeconds, err = metrics.DefaultSecondsHistogram(Meter, metrics.DefaultServerSecondsHistogramName)
	if err != nil {
		return err
	}
	MetricDeliveryJobs, err = Meter.Int64Counter("chat_delivery_jobs_total",
		otlpmetric.WithDescription("chat delivery jobs by final state"))
	if err != nil {
		return err
	}
	MetricFanout, err = Meter.Int64Counter("chat_fanout_total",
		otlpmetric.WithDescription("chat fan-out side effects by kind and result"))
	if err != nil {
		return err
	}
	fmt.Printf("init metric success\n")
	return nil
}

// RecordDeliveryJob 记录投递任务状态，未初始化时忽略
func RecordDeliveryJob(ctx context.Context, state string, attempts int) {
	if MetricDeliveryJobs == nil {
		return
	}
	MetricDeliveryJobs.Add(ctx, 1, otlpmetric.WithAttributes(
		attribute.String("state", state),
		attribute.Int("attempts", attempts),
	))
}

// RecordFanout kind: broadcast, notification, push
func RecordFanout(ctx context.Context, kind string, ok bool) {
	if MetricFanout == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	MetricFanout.Add(ctx, 1, otlpmetric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("result", result),
	))
}
