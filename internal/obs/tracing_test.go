package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracer(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := InitTracer(context.Background(), TracingConfig{Exporter: "none", SamplingRatio: 0.5})
	require.NoError(t, err)
	_, span := otel.Tracer("test").Start(context.Background(), "order.recompute")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	_, err = InitTracer(context.Background(), TracingConfig{Exporter: "zipkin"})
	require.ErrorContains(t, err, "unsupported tracing exporter")
}

func TestSamplingRatio(t *testing.T) {
	require.Equal(t, 1.0, samplingRatio(0))
	require.Equal(t, 1.0, samplingRatio(-0.3))
	require.Equal(t, 1.0, samplingRatio(4))
	require.Equal(t, 0.25, samplingRatio(0.25))
}
