package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a row of the products table.
type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	BasePrice decimal.Decimal `json:"basePrice"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ProductPriceTier is a row of the product_price_tiers table.
type ProductPriceTier struct {
	ID              int64
	ProductID       int64
	MinQty          int
	MaxQty          *int
	PricePerUnit    decimal.NullDecimal
	DiscountPercent decimal.NullDecimal
}

const getProduct = `-- name: GetProduct :one
SELECT id, name, unit, base_price, is_active, created_at, updated_at
FROM products
WHERE id = $1`

func (q *Queries) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, getProduct, id).Scan(
		&p.ID, &p.Name, &p.Unit, &p.BasePrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const listProducts = `-- name: ListProducts :many
SELECT id, name, unit, base_price, is_active, created_at, updated_at
FROM products
WHERE is_active
ORDER BY name, id
LIMIT $1 OFFSET $2`

type ListProductsParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Unit, &p.BasePrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const countProducts = `-- name: CountProducts :one
SELECT count(*) FROM products WHERE is_active`

func (q *Queries) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countProducts).Scan(&n)
	return n, err
}

const listPriceTiers = `-- name: ListPriceTiers :many
SELECT id, product_id, min_qty, max_qty, price_per_unit, discount_percent
FROM product_price_tiers
WHERE product_id = $1
ORDER BY min_qty, id`

func (q *Queries) ListPriceTiers(ctx context.Context, productID int64) ([]ProductPriceTier, error) {
	rows, err := q.db.Query(ctx, listPriceTiers, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProductPriceTier
	for rows.Next() {
		var t ProductPriceTier
		if err := rows.Scan(&t.ID, &t.ProductID, &t.MinQty, &t.MaxQty, &t.PricePerUnit, &t.DiscountPercent); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
