package obs

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDescribeQuery(t *testing.T) {
	cases := []struct {
		sql       string
		name      string
		kind      string
		aggregate string
		locking   bool
	}{
		{"-- name: GetOrderForUpdate :one\nSELECT * FROM orders WHERE id = $1 FOR UPDATE", "GetOrderForUpdate", "one", "order", true},
		{"-- name: UpdateOrderPayment :exec\nUPDATE orders SET paid_amount = $2", "UpdateOrderPayment", "exec", "order", false},
		{"-- name: ListPaymentsByOrder :many\nSELECT 1", "ListPaymentsByOrder", "many", "payment", false},
		{"-- name: HasReversal :one\nSELECT 1", "HasReversal", "one", "payment", false},
		{"-- name: ShiftMethodTotals :many\nSELECT 1", "ShiftMethodTotals", "many", "shift", false},
		{"-- name: GetOpenShiftForUpdate :one\nSELECT 1 FOR UPDATE", "GetOpenShiftForUpdate", "one", "shift", true},
		{"-- name: ListPriceTiers :many\nSELECT 1", "ListPriceTiers", "many", "catalog", false},
		{"-- name: InsertDomainEvent :exec\nINSERT 1", "InsertDomainEvent", "exec", "event", false},
		{"select 1", "", "", "unknown", false},
	}
	for _, tc := range cases {
		q := describeQuery(tc.sql)
		require.Equal(t, tc.name, q.name, tc.sql)
		require.Equal(t, tc.kind, q.kind, tc.sql)
		require.Equal(t, tc.aggregate, q.aggregate, tc.sql)
		require.Equal(t, tc.locking, q.locking, tc.sql)
	}
}

func TestPGXTracerSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var tracer PGXTracer
	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "-- name: InsertPayment :one\nINSERT INTO payments"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("INSERT 0 1")})

	ctx = tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "-- name: InsertShift :one\nINSERT INTO cash_shifts"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: &pgconn.PgError{Code: "23505"}})

	ctx = tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "-- name: GetOrder :one\nSELECT"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: pgx.ErrNoRows})

	ended := rec.Ended()
	require.Len(t, ended, 3)

	require.Equal(t, "db.InsertPayment", ended[0].Name())
	require.Contains(t, ended[0].Attributes(), attribute.String("printshop.aggregate", "payment"))
	require.Contains(t, ended[0].Attributes(), attribute.Int64("db.rows_affected", 1))
	require.Equal(t, codes.Unset, ended[0].Status().Code)

	require.Equal(t, "db.InsertShift", ended[1].Name())
	require.Contains(t, ended[1].Attributes(), attribute.String("db.sqlstate", "23505"))
	require.Equal(t, codes.Error, ended[1].Status().Code)

	require.Equal(t, "db.GetOrder", ended[2].Name())
	require.Contains(t, ended[2].Attributes(), attribute.Bool("db.no_rows", true))
	require.Equal(t, codes.Unset, ended[2].Status().Code)
}
