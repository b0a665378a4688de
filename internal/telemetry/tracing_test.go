package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

func TestInitTracer_Disabled(t *testing.T) {
	tp, err := InitTracer(context.Background(), TracerConfig{Enabled: false}, zerolog.Nop())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNewResource_IncludesDeploymentAttributes(t *testing.T) {
	res, err := newResource(context.Background(), TracerConfig{
		ServiceName:    "spaceship-rental",
		ServiceVersion: "1.2.3",
		Environment:    "staging",
		InstanceID:     "node-a",
	})
	if err != nil {
		t.Fatalf("resource: %v", err)
	}

	want := map[attribute.Key]string{
		semconv.ServiceNameKey:           "spaceship-rental",
		semconv.ServiceVersionKey:        "1.2.3",
		semconv.DeploymentEnvironmentKey: "staging",
		semconv.ServiceInstanceIDKey:     "node-a",
	}
	got := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		got[kv.Key] = kv.Value.AsString()
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s: expected %q, got %q", k, v, got[k])
		}
	}
}

func TestNewSampler_FollowsParentDecision(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(newSampler(0)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	tracer := tp.Tracer("test")

	_, root := tracer.Start(context.Background(), "root")
	if root.SpanContext().IsSampled() {
		t.Fatal("expected root span to be dropped at rate 0")
	}

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{1},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	_, child := tracer.Start(trace.ContextWithRemoteSpanContext(context.Background(), parent), "child")
	if !child.SpanContext().IsSampled() {
		t.Fatal("expected child of sampled parent to be sampled")
	}

	if newSampler(1).ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       trace.TraceID{2},
	}).Decision != sdktrace.RecordAndSample {
		t.Fatal("expected rate 1 to sample root spans")
	}
}

func TestSolveSpan_Attributes(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	_, span := StartSolveSpan(context.Background(), "fast", 4)
	FinishSolveSpan(span, 18, true)
	span.End()

	_, failed := StartSolveSpan(context.Background(), "naive", 2)
	RecordError(failed, errors.New("duplicate contract name"))
	failed.End()

	ended := rec.Ended()
	if len(ended) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(ended))
	}

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if ended[0].Name() != "optimizer.solve" {
		t.Fatalf("unexpected span name %q", ended[0].Name())
	}
	if attrs[AttrAlgorithm].AsString() != "fast" || attrs[AttrContracts].AsInt64() != 4 ||
		attrs[AttrIncome].AsInt64() != 18 || !attrs[AttrCacheHit].AsBool() {
		t.Fatalf("unexpected attributes %v", ended[0].Attributes())
	}

	if ended[1].Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", ended[1].Status())
	}
}
