package pricing

import (
	"fmt"

	"github.com/noah-isme/backend-printshop/internal/common"
)

var (
	// ErrInvalidQuantity is returned when a quantity is not a positive integer.
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be a positive integer", common.ErrInvalidArgument)
	// ErrNegativePrice is returned for negative base or unit prices.
	ErrNegativePrice = fmt.Errorf("%w: price must not be negative", common.ErrInvalidArgument)
	// ErrNegativeDiscount is returned for negative discount values.
	ErrNegativeDiscount = fmt.Errorf("%w: discount must not be negative", common.ErrInvalidArgument)
	// ErrPercentOutOfRange is returned for discount percentages outside [0, 100].
	ErrPercentOutOfRange = fmt.Errorf("%w: discount percent must be between 0 and 100", common.ErrInvalidArgument)
	// ErrProductNotFound is returned when a tier table is requested for an unknown product.
	ErrProductNotFound = fmt.Errorf("%w: product not found", common.ErrNotFound)
)

// ErrInvalidTier is returned when a stored tier that applies to the quantity
// carries a negative price or a percent outside [0, 100].
var ErrInvalidTier = fmt.Errorf("%w: price tier is misconfigured", common.ErrInvalidState)

// ErrUnknownDiscountKind is returned for an order discount kind other than none, percent or value.
var ErrUnknownDiscountKind = fmt.Errorf("%w: unknown discount kind", common.ErrInvalidArgument)
