package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-printshop/internal/common"
	"github.com/noah-isme/backend-printshop/internal/obs"
	"github.com/noah-isme/backend-printshop/internal/pricing"
	"github.com/noah-isme/backend-printshop/internal/store"
)

// Queries is the subset of store.Queries used by the catalog.
type Queries interface {
	GetProduct(ctx context.Context, id int64) (store.Product, error)
	ListProducts(ctx context.Context, arg store.ListProductsParams) ([]store.Product, error)
	CountProducts(ctx context.Context) (int64, error)
	ListPriceTiers(ctx context.Context, productID int64) ([]store.ProductPriceTier, error)
}

// Service resolves tier tables and quotes for products.
type Service struct {
	queries      Queries
	cache        *Cache
	log          zerolog.Logger
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      Queries
	Cache        *Cache
	Logger       *zerolog.Logger
	DefaultLimit int
	MaxLimit     int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		queries:      cfg.Queries,
		cache:        cfg.Cache,
		log:          log,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// TierTable returns the product and its tiers ordered by ascending MinQty.
// Results are cached; a cache failure falls back to the database.
func (s *Service) TierTable(ctx context.Context, productID int64) (pricing.TierTable, error) {
	ctx, span := otel.Tracer("catalog").Start(ctx, "catalog.TierTable")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", productID))

	key := tierTableKey(productID)
	var cached pricing.TierTable
	ok, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.log.Warn().Err(err).Int64("product_id", productID).Msg("tier cache read failed")
	}
	if ok {
		obs.ObserveCatalogCache("hit")
		return cached, nil
	}
	obs.ObserveCatalogCache("miss")

	product, err := s.queries.GetProduct(ctx, productID)
	if err != nil {
		if store.IsNoRows(err) {
			return pricing.TierTable{}, fmt.Errorf("%w: id %d", pricing.ErrProductNotFound, productID)
		}
		return pricing.TierTable{}, fmt.Errorf("get product: %w", err)
	}
	rows, err := s.queries.ListPriceTiers(ctx, productID)
	if err != nil {
		return pricing.TierTable{}, fmt.Errorf("list price tiers: %w", err)
	}
	tiers := make([]pricing.Tier, 0, len(rows))
	for _, row := range rows {
		tiers = append(tiers, toTier(row))
	}
	table := pricing.NewTierTable(toProduct(product), tiers)

	if err := s.cache.SetJSON(ctx, key, table); err != nil {
		s.log.Warn().Err(err).Int64("product_id", productID).Msg("tier cache write failed")
	}
	return table, nil
}

// Quote resolves the unit price of productID at qty.
func (s *Service) Quote(ctx context.Context, productID int64, qty int) (pricing.Quote, error) {
	if qty <= 0 {
		return pricing.Quote{}, pricing.ErrInvalidQuantity
	}
	table, err := s.TierTable(ctx, productID)
	if err != nil {
		return pricing.Quote{}, err
	}
	quote, err := table.Resolve(qty)
	if errors.Is(err, pricing.ErrInvalidTier) {
		s.log.Warn().Err(err).Int64("product_id", productID).Int("qty", qty).Msg("tier table misconfigured")
	}
	return quote, err
}

// CheckTiers runs ValidateTiers against the stored tiers of productID.
func (s *Service) CheckTiers(ctx context.Context, productID int64) (TierReport, error) {
	table, err := s.TierTable(ctx, productID)
	if err != nil {
		return TierReport{}, err
	}
	issues := ValidateTiers(table.Tiers)
	return TierReport{ProductID: productID, Valid: len(issues) == 0, Issues: issues}, nil
}

// Invalidate drops the cached tier table of productID.
func (s *Service) Invalidate(ctx context.Context, productID int64) error {
	return s.cache.Delete(ctx, tierTableKey(productID))
}

// Refresh drops the cached tier table and reloads it from the database. Used
// after tiers are edited outside the service.
func (s *Service) Refresh(ctx context.Context, productID int64) (pricing.TierTable, error) {
	if err := s.Invalidate(ctx, productID); err != nil {
		return pricing.TierTable{}, fmt.Errorf("invalidate tier cache: %w", err)
	}
	s.log.Info().Int64("product_id", productID).Msg("tier_cache_refreshed")
	return s.TierTable(ctx, productID)
}

// ProductPage is one page of active products.
type ProductPage struct {
	Products   []pricing.Product
	Pagination common.Pagination
}

// ListProducts returns active products ordered by name.
func (s *Service) ListProducts(ctx context.Context, page common.Page) (ProductPage, error) {
	page = page.Clamp(s.defaultLimit, s.maxLimit)
	total, err := s.queries.CountProducts(ctx)
	if err != nil {
		return ProductPage{}, fmt.Errorf("count products: %w", err)
	}
	rows, err := s.queries.ListProducts(ctx, store.ListProductsParams{
		Limit:  page.Limit(),
		Offset: page.Offset(),
	})
	if err != nil {
		return ProductPage{}, fmt.Errorf("list products: %w", err)
	}
	out := make([]pricing.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, toProduct(row))
	}
	return ProductPage{Products: out, Pagination: page.Of(total)}, nil
}

func toProduct(p store.Product) pricing.Product {
	return pricing.Product{ID: p.ID, Name: p.Name, Unit: p.Unit, BasePrice: p.BasePrice}
}

func toTier(row store.ProductPriceTier) pricing.Tier {
	t := pricing.Tier{
		ID:        row.ID,
		ProductID: row.ProductID,
		MinQty:    row.MinQty,
		MaxQty:    row.MaxQty,
	}
	if row.PricePerUnit.Valid {
		v := row.PricePerUnit.Decimal
		t.PricePerUnit = &v
	}
	if row.DiscountPercent.Valid {
		v := row.DiscountPercent.Decimal
		t.DiscountPercent = &v
	}
	return t
}
