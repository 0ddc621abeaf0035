package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const orderColumns = `id, order_number, title, client_name, client_phone, manager_id, status, deadline_at,
subtotal, discount_kind, discount_amount, discount_value, payable_total, paid_amount, payment_status,
created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.Title, &o.ClientName, &o.ClientPhone, &o.ManagerID, &o.Status, &o.DeadlineAt,
		&o.Subtotal, &o.DiscountKind, &o.DiscountAmount, &o.DiscountValue, &o.PayableTotal, &o.PaidAmount, &o.PaymentStatus,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (order_number, title, client_name, client_phone, manager_id, deadline_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderNumber string
	Title       string
	ClientName  string
	ClientPhone string
	ManagerID   int64
	DeadlineAt  *time.Time
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber, arg.Title, arg.ClientName, arg.ClientPhone, arg.ManagerID, arg.DeadlineAt,
	))
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

// GetOrderForUpdate locks the order row until the surrounding transaction ends.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE ($1::text = '' OR status = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

type ListOrdersParams struct {
	Status string
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const countOrders = `-- name: CountOrders :one
SELECT count(*) FROM orders
WHERE ($1::text = '' OR status = $1)`

func (q *Queries) CountOrders(ctx context.Context, status string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrders, status).Scan(&n)
	return n, err
}

const updateOrderTotals = `-- name: UpdateOrderTotals :exec
UPDATE orders
SET subtotal = $2, discount_value = $3, payable_total = $4, payment_status = $5, updated_at = now()
WHERE id = $1`

type UpdateOrderTotalsParams struct {
	ID            int64
	Subtotal      decimal.Decimal
	DiscountValue decimal.Decimal
	PayableTotal  decimal.Decimal
	PaymentStatus PaymentStatus
}

func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) error {
	_, err := q.db.Exec(ctx, updateOrderTotals, arg.ID, arg.Subtotal, arg.DiscountValue, arg.PayableTotal, arg.PaymentStatus)
	return err
}

const updateOrderDiscount = `-- name: UpdateOrderDiscount :exec
UPDATE orders SET discount_kind = $2, discount_amount = $3, updated_at = now() WHERE id = $1`

type UpdateOrderDiscountParams struct {
	ID             int64
	DiscountKind   string
	DiscountAmount decimal.Decimal
}

func (q *Queries) UpdateOrderDiscount(ctx context.Context, arg UpdateOrderDiscountParams) error {
	_, err := q.db.Exec(ctx, updateOrderDiscount, arg.ID, arg.DiscountKind, arg.DiscountAmount)
	return err
}

const updateOrderStatus = `-- name: UpdateOrderStatus :exec
UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

func (q *Queries) UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) error {
	_, err := q.db.Exec(ctx, updateOrderStatus, id, status)
	return err
}

const updateOrderPayment = `-- name: UpdateOrderPayment :exec
UPDATE orders SET paid_amount = $2, payment_status = $3, updated_at = now() WHERE id = $1`

type UpdateOrderPaymentParams struct {
	ID            int64
	PaidAmount    decimal.Decimal
	PaymentStatus PaymentStatus
}

func (q *Queries) UpdateOrderPayment(ctx context.Context, arg UpdateOrderPaymentParams) error {
	_, err := q.db.Exec(ctx, updateOrderPayment, arg.ID, arg.PaidAmount, arg.PaymentStatus)
	return err
}

const itemColumns = `id, order_id, product_id, product_name, unit, quantity, base_price, unit_price,
discount_percent, manual_discount, discount_value, total_price, comment, created_at, updated_at`

func scanItem(row rowScanner) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID, &i.OrderID, &i.ProductID, &i.ProductName, &i.Unit, &i.Quantity, &i.BasePrice, &i.UnitPrice,
		&i.DiscountPercent, &i.ManualDiscount, &i.DiscountValue, &i.TotalPrice, &i.Comment, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

const listOrderItems = `-- name: ListOrderItems :many
SELECT ` + itemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY id`

func (q *Queries) ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const getOrderItem = `-- name: GetOrderItem :one
SELECT ` + itemColumns + ` FROM order_items WHERE order_id = $1 AND id = $2`

func (q *Queries) GetOrderItem(ctx context.Context, orderID, itemID int64) (OrderItem, error) {
	return scanItem(q.db.QueryRow(ctx, getOrderItem, orderID, itemID))
}

const insertOrderItem = `-- name: InsertOrderItem :one
INSERT INTO order_items (order_id, product_id, product_name, unit, quantity, base_price, unit_price,
    discount_percent, manual_discount, discount_value, total_price, comment)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + itemColumns

type OrderItemParams struct {
	OrderID         int64
	ProductID       *int64
	ProductName     string
	Unit            string
	Quantity        int
	BasePrice       decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	ManualDiscount  decimal.NullDecimal
	DiscountValue   decimal.Decimal
	TotalPrice      decimal.Decimal
	Comment         string
}

func (q *Queries) InsertOrderItem(ctx context.Context, arg OrderItemParams) (OrderItem, error) {
	return scanItem(q.db.QueryRow(ctx, insertOrderItem,
		arg.OrderID, arg.ProductID, arg.ProductName, arg.Unit, arg.Quantity, arg.BasePrice, arg.UnitPrice,
		arg.DiscountPercent, arg.ManualDiscount, arg.DiscountValue, arg.TotalPrice, arg.Comment,
	))
}

const updateOrderItem = `-- name: UpdateOrderItem :one
UPDATE order_items
SET product_id = $3, product_name = $4, unit = $5, quantity = $6, base_price = $7, unit_price = $8,
    discount_percent = $9, manual_discount = $10, discount_value = $11, total_price = $12, comment = $13,
    updated_at = now()
WHERE order_id = $1 AND id = $2
RETURNING ` + itemColumns

func (q *Queries) UpdateOrderItem(ctx context.Context, itemID int64, arg OrderItemParams) (OrderItem, error) {
	return scanItem(q.db.QueryRow(ctx, updateOrderItem,
		arg.OrderID, itemID, arg.ProductID, arg.ProductName, arg.Unit, arg.Quantity, arg.BasePrice, arg.UnitPrice,
		arg.DiscountPercent, arg.ManualDiscount, arg.DiscountValue, arg.TotalPrice, arg.Comment,
	))
}

const deleteOrderItem = `-- name: DeleteOrderItem :execrows
DELETE FROM order_items WHERE order_id = $1 AND id = $2`

func (q *Queries) DeleteOrderItem(ctx context.Context, orderID, itemID int64) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteOrderItem, orderID, itemID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteOrderItems = `-- name: DeleteOrderItems :exec
DELETE FROM order_items WHERE order_id = $1`

func (q *Queries) DeleteOrderItems(ctx context.Context, orderID int64) error {
	_, err := q.db.Exec(ctx, deleteOrderItems, orderID)
	return err
}
