package obs

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type querySpanKey struct{}

// PGXTracer implements pgx.QueryTracer. Spans are named after the query's
// "-- name: X :kind" header so order, payment and shift statements are
// distinguishable without reading the SQL.
type PGXTracer struct{}

// TraceQueryStart opens a db.<QueryName> span.
func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	q := describeQuery(data.SQL)
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "postgresql"),
		attribute.String("db.query.name", q.name),
		attribute.String("db.query.kind", q.kind),
		attribute.String("printshop.aggregate", q.aggregate),
	}
	if q.locking {
		attrs = append(attrs, attribute.Bool("db.lock.for_update", true))
	}
	if q.name == "" {
		attrs = append(attrs, attribute.String("db.statement", firstLine(data.SQL)))
	}
	ctx, span := otel.Tracer("db.pgx").Start(ctx, q.spanName(), trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
	return context.WithValue(ctx, querySpanKey{}, span)
}

// TraceQueryEnd records rows affected and the SQLSTATE of a failed statement.
func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(querySpanKey{}).(trace.Span)
	if !ok {
		return
	}
	defer span.End()
	if data.Err != nil {
		if errors.Is(data.Err, pgx.ErrNoRows) {
			span.SetAttributes(attribute.Bool("db.no_rows", true))
			return
		}
		var pgErr *pgconn.PgError
		if errors.As(data.Err, &pgErr) {
			span.SetAttributes(attribute.String("db.sqlstate", pgErr.Code))
		}
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, "query failed")
		return
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
}

type queryInfo struct {
	name      string
	kind      string
	aggregate string
	locking   bool
}

func (q queryInfo) spanName() string {
	if q.name == "" {
		return "db.query"
	}
	return "db." + q.name
}

// describeQuery reads the sqlc-style header of a statement.
func describeQuery(sql string) queryInfo {
	var q queryInfo
	header := firstLine(sql)
	if rest, ok := strings.CutPrefix(header, "-- name:"); ok {
		fields := strings.Fields(rest)
		if len(fields) > 0 {
			q.name = fields[0]
		}
		if len(fields) > 1 {
			q.kind = strings.TrimPrefix(fields[1], ":")
		}
	}
	q.aggregate = aggregateOf(q.name)
	q.locking = strings.Contains(strings.ToUpper(sql), "FOR UPDATE")
	return q
}

var queryVerbs = []string{"Get", "List", "Insert", "Update", "Delete", "Create", "Count", "Add", "Close", "Has"}

// aggregateOf maps a query name to the table family it touches, e.g.
// UpdateOrderPayment writes orders while ListPaymentsByOrder reads payments.
func aggregateOf(name string) string {
	if name == "" {
		return "unknown"
	}
	subject := name
	for _, verb := range queryVerbs {
		if rest, ok := strings.CutPrefix(name, verb); ok {
			subject = rest
			break
		}
	}
	switch {
	case strings.HasPrefix(subject, "Order"):
		return "order"
	case strings.HasPrefix(subject, "Payment"), strings.HasPrefix(subject, "Reversal"):
		return "payment"
	case strings.Contains(subject, "Shift"):
		return "shift"
	case strings.HasPrefix(subject, "Product"), strings.HasPrefix(subject, "PriceTier"):
		return "catalog"
	case strings.HasPrefix(subject, "DomainEvent"):
		return "event"
	default:
		return "other"
	}
}

func firstLine(sql string) string {
	sql = strings.TrimSpace(sql)
	if i := strings.IndexByte(sql, '\n'); i >= 0 {
		sql = sql[:i]
	}
	if len(sql) > 120 {
		sql = sql[:120]
	}
	return sql
}
