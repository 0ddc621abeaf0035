package payment

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-printshop/internal/store"
)

// Well-known payment methods. Method is an open tag; other values are accepted.
const (
	MethodCash         = "cash"
	MethodCard         = "card"
	MethodBankTransfer = "bank_transfer"
	MethodPrepayment   = "prepayment"
	MethodPostpayment  = "postpayment"
)

// DefaultEpsilon is the tolerance used when the ledger has none configured.
var DefaultEpsilon = decimal.RequireFromString("0.01")

// DeriveStatus classifies the paid amount against the payable total.
func DeriveStatus(paid, payable, epsilon decimal.Decimal) store.PaymentStatus {
	if paid.LessThanOrEqual(epsilon) {
		return store.PaymentStatusUnpaid
	}
	if payable.IsPositive() && paid.Add(epsilon).GreaterThanOrEqual(payable) {
		return store.PaymentStatusPaid
	}
	return store.PaymentStatusPartial
}

// Exceeds reports whether newPaid would overpay a positive payable total.
// A zero payable total places no upper bound.
func Exceeds(newPaid, payable, epsilon decimal.Decimal) bool {
	return payable.IsPositive() && newPaid.GreaterThan(payable.Add(epsilon))
}
