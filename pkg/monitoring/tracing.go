package monitoring

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

func newExporter(ctx context.Context, endpoint string) (tracesdk.SpanExporter, error) {
	return otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
}

// InitTraceProvider 初始化链路追踪
// endpoint: OTLP HTTP 上报地址，为空时只设置传播器不上报
// service: 服务名称
// exporter: exporter 名称，记录在资源属性中
// ratio: 采样率
func InitTraceProvider(endpoint, service, exporter string, ratio float64) error {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	if endpoint == "" {
		return nil
	}
	exp, err := newExporter(context.Background(), endpoint)
	if err != nil {
		return fmt.Errorf("create otlp exporter: %w", err)
	}
	tp := tracesdk.NewTracerProvider(
		// 跟随父span采样，根span按比例采样
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(ratio))),
		// 始终确保在生产中批量处理
		tracesdk.WithBatcher(exp),
		// 在资源中记录有关此应用程序的信息
		tracesdk.WithResource(resource.NewSchemaless(
			semconv.ServiceNameKey.String(service),
			attribute.String("exporter", exporter),
		)),
	)
	otel.SetTracerProvider(tp)
	fmt.Printf("init otel success\n")
	return nil
}
