package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const paymentColumns = `id, order_id, amount, method, paid_at, created_by, shift_id, reverses_payment_id, note, created_at`

func scanPayment(row rowScanner) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.PaidAt, &p.CreatedBy, &p.ShiftID, &p.ReversesPaymentID, &p.Note, &p.CreatedAt)
	return p, err
}

const insertPayment = `-- name: InsertPayment :one
INSERT INTO payments (order_id, amount, method, paid_at, created_by, shift_id, reverses_payment_id, note)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + paymentColumns

type InsertPaymentParams struct {
	OrderID           int64
	Amount            decimal.Decimal
	Method            string
	PaidAt            time.Time
	CreatedBy         int64
	ShiftID           *int64
	ReversesPaymentID *int64
	Note              string
}

func (q *Queries) InsertPayment(ctx context.Context, arg InsertPaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, insertPayment,
		arg.OrderID, arg.Amount, arg.Method, arg.PaidAt, arg.CreatedBy, arg.ShiftID, arg.ReversesPaymentID, arg.Note,
	))
}

const getPayment = `-- name: GetPayment :one
SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

func (q *Queries) GetPayment(ctx context.Context, id int64) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPayment, id))
}

const listPaymentsByOrder = `-- name: ListPaymentsByOrder :many
SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY paid_at, id`

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const hasReversal = `-- name: HasReversal :one
SELECT EXISTS (SELECT 1 FROM payments WHERE reverses_payment_id = $1)`

func (q *Queries) HasReversal(ctx context.Context, paymentID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, hasReversal, paymentID).Scan(&exists)
	return exists, err
}
