package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

type tier struct {
	MinQty   int
	MaxQty   *int
	Price    *string
	Discount *string
}

type product struct {
	Name      string
	Unit      string
	BasePrice string
	Tiers     []tier
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	fmt.Println("Seeding catalog...")
	for _, p := range catalog() {
		id, err := upsertProduct(db, p)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
			continue
		}
		fmt.Printf("  %s (id=%d, %d tiers)\n", p.Name, id, len(p.Tiers))
	}
	log.Println("Seeding completed successfully!")
}

func catalog() []product {
	return []product{
		{
			Name: "Business cards", Unit: "pcs", BasePrice: "12",
			Tiers: []tier{
				{MinQty: 1, MaxQty: intp(99), Price: strp("12")},
				{MinQty: 100, MaxQty: intp(499), Price: strp("7")},
				{MinQty: 500, MaxQty: intp(999), Price: strp("4.5")},
				{MinQty: 1000, Price: strp("3.5")},
			},
		},
		{
			Name: "Vinyl banner", Unit: "m2", BasePrice: "1200",
			Tiers: []tier{
				{MinQty: 10, MaxQty: intp(29), Discount: strp("5")},
				{MinQty: 30, Discount: strp("10")},
			},
		},
		{
			Name: "A5 flyers", Unit: "pcs", BasePrice: "3",
			Tiers: []tier{
				{MinQty: 500, MaxQty: intp(1999), Price: strp("2.2")},
				{MinQty: 2000, Price: strp("1.6")},
			},
		},
		{Name: "Design work", Unit: "hour", BasePrice: "900"},
	}
}

// upsertProduct replaces the tier table of the product named p.Name, creating
// the product when it does not exist yet.
func upsertProduct(db *sql.DB, p product) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRow(`SELECT id FROM products WHERE name = $1 ORDER BY id LIMIT 1`, p.Name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = tx.QueryRow(`
			INSERT INTO products (name, unit, base_price)
			VALUES ($1, $2, $3)
			RETURNING id`, p.Name, p.Unit, p.BasePrice).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert product: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("lookup product: %w", err)
	default:
		if _, err := tx.Exec(`UPDATE products SET unit = $2, base_price = $3, is_active = TRUE, updated_at = now() WHERE id = $1`,
			id, p.Unit, p.BasePrice); err != nil {
			return 0, fmt.Errorf("update product: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM product_price_tiers WHERE product_id = $1`, id); err != nil {
		return 0, fmt.Errorf("clear tiers: %w", err)
	}
	for _, t := range p.Tiers {
		if _, err := tx.Exec(`
			INSERT INTO product_price_tiers (product_id, min_qty, max_qty, price_per_unit, discount_percent)
			VALUES ($1, $2, $3, $4, $5)`, id, t.MinQty, t.MaxQty, t.Price, t.Discount); err != nil {
			return 0, fmt.Errorf("insert tier %d: %w", t.MinQty, err)
		}
	}
	return id, tx.Commit()
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }
