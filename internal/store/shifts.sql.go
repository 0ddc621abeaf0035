package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const shiftColumns = `id, opened_at, closed_at, opened_by, closed_by, total_amount, created_at, updated_at`

func scanShift(row rowScanner) (CashShift, error) {
	var s CashShift
	err := row.Scan(&s.ID, &s.OpenedAt, &s.ClosedAt, &s.OpenedBy, &s.ClosedBy, &s.TotalAmount, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

const getOpenShiftForUpdate = `-- name: GetOpenShiftForUpdate :one
SELECT ` + shiftColumns + ` FROM cash_shifts WHERE closed_at IS NULL ORDER BY id DESC LIMIT 1 FOR UPDATE`

// GetOpenShiftForUpdate locks the open shift, if any. It returns
// pgx.ErrNoRows when no shift is open.
func (q *Queries) GetOpenShiftForUpdate(ctx context.Context) (CashShift, error) {
	return scanShift(q.db.QueryRow(ctx, getOpenShiftForUpdate))
}

const getOpenShift = `-- name: GetOpenShift :one
SELECT ` + shiftColumns + ` FROM cash_shifts WHERE closed_at IS NULL ORDER BY id DESC LIMIT 1`

func (q *Queries) GetOpenShift(ctx context.Context) (CashShift, error) {
	return scanShift(q.db.QueryRow(ctx, getOpenShift))
}

const getShift = `-- name: GetShift :one
SELECT ` + shiftColumns + ` FROM cash_shifts WHERE id = $1`

func (q *Queries) GetShift(ctx context.Context, id int64) (CashShift, error) {
	return scanShift(q.db.QueryRow(ctx, getShift, id))
}

const insertShift = `-- name: InsertShift :one
INSERT INTO cash_shifts (opened_at, opened_by, total_amount)
VALUES ($1, $2, 0)
RETURNING ` + shiftColumns

func (q *Queries) InsertShift(ctx context.Context, openedAt time.Time, openedBy int64) (CashShift, error) {
	return scanShift(q.db.QueryRow(ctx, insertShift, openedAt, openedBy))
}

const closeShift = `-- name: CloseShift :one
UPDATE cash_shifts SET closed_at = $2, closed_by = $3, updated_at = now()
WHERE id = $1 AND closed_at IS NULL
RETURNING ` + shiftColumns

func (q *Queries) CloseShift(ctx context.Context, id int64, closedAt time.Time, closedBy int64) (CashShift, error) {
	return scanShift(q.db.QueryRow(ctx, closeShift, id, closedAt, closedBy))
}

const addShiftTotal = `-- name: AddShiftTotal :exec
UPDATE cash_shifts SET total_amount = total_amount + $2, updated_at = now() WHERE id = $1`

func (q *Queries) AddShiftTotal(ctx context.Context, id int64, amount decimal.Decimal) error {
	_, err := q.db.Exec(ctx, addShiftTotal, id, amount)
	return err
}

const shiftMethodTotals = `-- name: ShiftMethodTotals :many
SELECT method, COALESCE(SUM(amount), 0), COUNT(*)
FROM payments
WHERE shift_id = $1
GROUP BY method
ORDER BY method`

func (q *Queries) ShiftMethodTotals(ctx context.Context, shiftID int64) ([]ShiftMethodTotal, error) {
	rows, err := q.db.Query(ctx, shiftMethodTotals, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ShiftMethodTotal
	for rows.Next() {
		var t ShiftMethodTotal
		if err := rows.Scan(&t.Method, &t.Total, &t.Count); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
