package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-printshop/internal/cashshift"
	"github.com/noah-isme/backend-printshop/internal/common"
	"github.com/noah-isme/backend-printshop/internal/events"
	"github.com/noah-isme/backend-printshop/internal/obs"
	"github.com/noah-isme/backend-printshop/internal/pricing"
	"github.com/noah-isme/backend-printshop/internal/store"
)

var (
	// ErrExceedsBalance is returned when a payment would overpay the order.
	ErrExceedsBalance = fmt.Errorf("%w: payment exceeds remaining balance", common.ErrInvalidState)
	// ErrOrderCancelled is returned when paying a cancelled order.
	ErrOrderCancelled = fmt.Errorf("%w: order is cancelled", common.ErrInvalidState)
	// ErrAlreadyReversed is returned when a payment already has a reversal entry.
	ErrAlreadyReversed = fmt.Errorf("%w: payment already reversed", common.ErrInvalidState)
	// ErrReverseReversal is returned when reversing a reversal entry.
	ErrReverseReversal = fmt.Errorf("%w: reversal entries cannot be reversed", common.ErrInvalidState)
)

const singleReversalIndex = "payments_single_reversal_idx"

// Tx is the set of queries the ledger runs inside its transaction.
type Tx interface {
	cashshift.Queries
	GetOrderForUpdate(ctx context.Context, id int64) (store.Order, error)
	UpdateOrderPayment(ctx context.Context, arg store.UpdateOrderPaymentParams) error
	InsertPayment(ctx context.Context, arg store.InsertPaymentParams) (store.Payment, error)
	GetPayment(ctx context.Context, id int64) (store.Payment, error)
	HasReversal(ctx context.Context, paymentID int64) (bool, error)
}

// Queries is used for reads outside a transaction.
type Queries interface {
	GetOrder(ctx context.Context, id int64) (store.Order, error)
	ListPaymentsByOrder(ctx context.Context, orderID int64) ([]store.Payment, error)
}

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(Tx) error) error
}

// PostgresRunner adapts store.Store to TxRunner.
type PostgresRunner struct {
	Store *store.Store
}

// RunInTx implements TxRunner.
func (r PostgresRunner) RunInTx(ctx context.Context, fn func(Tx) error) error {
	return r.Store.ExecTx(ctx, func(q *store.Queries) error { return fn(q) })
}

// ApplyInput describes a payment to record against an order.
type ApplyInput struct {
	OrderID int64
	Amount  decimal.Decimal
	Method  string
	ActorID int64
	PaidAt  time.Time
}

// Result is the outcome of Apply or Reverse.
type Result struct {
	Payment    store.Payment       `json:"payment"`
	PaidAmount decimal.Decimal     `json:"paidAmount"`
	Status     store.PaymentStatus `json:"paymentStatus"`
	ShiftID    *int64              `json:"shiftId,omitempty"`
}

// ReverseInput identifies a payment to compensate.
type ReverseInput struct {
	OrderID   int64
	PaymentID int64
	ActorID   int64
	Reason    string
}

// Ledger records payments against orders. Payments are append-only; a
// correction is a new compensating entry.
type Ledger struct {
	Tx      TxRunner
	Queries Queries
	Shifts  *cashshift.Tracker
	Epsilon decimal.Decimal
	Events  events.Emitter
	Log     zerolog.Logger
	Now     func() time.Time
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (l *Ledger) epsilon() decimal.Decimal {
	if l.Epsilon.IsZero() {
		return DefaultEpsilon
	}
	return l.Epsilon
}

func (l *Ledger) recordShift(ctx context.Context, q Tx, amount decimal.Decimal) (*int64, error) {
	if l.Shifts == nil {
		return nil, nil
	}
	return l.Shifts.RecordPayment(ctx, q, amount)
}

// Apply records a payment, updates the order's paid amount and status and
// adds the amount to the open cash shift, all in one transaction.
func (l *Ledger) Apply(ctx context.Context, in ApplyInput) (Result, error) {
	ctx, span := otel.Tracer("payment").Start(ctx, "payment.Apply")
	defer span.End()

	method := strings.TrimSpace(in.Method)
	amount := pricing.RoundMoney(in.Amount)
	span.SetAttributes(attribute.Int64("order.id", in.OrderID), attribute.String("payment.method", method))

	res, prevStatus, err := l.apply(ctx, in, method, amount)
	if err != nil {
		obs.ObservePayment(metricMethod(method), resultLabel(err), decimal.Zero)
		l.Log.Info().Err(err).Int64("order_id", in.OrderID).Str("method", method).Str("amount", amount.StringFixed(2)).Msg("payment_rejected")
		return Result{}, err
	}

	obs.ObservePayment(metricMethod(method), "ok", amount)
	l.Log.Info().
		Int64("order_id", in.OrderID).
		Int64("payment_id", res.Payment.ID).
		Str("method", method).
		Str("amount", amount.StringFixed(2)).
		Str("paid_amount", res.PaidAmount.StringFixed(2)).
		Str("payment_status", string(res.Status)).
		Msg("payment_applied")
	events.EmitLogged(ctx, l.Events, l.Log, events.TopicPaymentApplied, events.AggregateOrder, in.OrderID, map[string]any{
		"paymentId":     res.Payment.ID,
		"amount":        amount.StringFixed(2),
		"method":        method,
		"paidAmount":    res.PaidAmount.StringFixed(2),
		"paymentStatus": res.Status,
		"shiftId":       res.ShiftID,
	})
	if res.Status == store.PaymentStatusPaid && prevStatus != store.PaymentStatusPaid {
		events.EmitLogged(ctx, l.Events, l.Log, events.TopicOrderPaid, events.AggregateOrder, in.OrderID, map[string]any{
			"paidAmount": res.PaidAmount.StringFixed(2),
		})
	}
	return res, nil
}

func (l *Ledger) apply(ctx context.Context, in ApplyInput, method string, amount decimal.Decimal) (Result, store.PaymentStatus, error) {
	if in.OrderID <= 0 {
		return Result{}, "", common.InvalidArgument("order id is required")
	}
	if !amount.IsPositive() {
		return Result{}, "", common.InvalidArgument("amount must be greater than zero")
	}
	if method == "" {
		return Result{}, "", common.InvalidArgument("payment method is required")
	}
	if in.ActorID <= 0 {
		return Result{}, "", common.InvalidArgument("actor id is required")
	}
	paidAt := in.PaidAt.UTC()
	if in.PaidAt.IsZero() {
		paidAt = l.now()
	}

	var (
		res  Result
		prev store.PaymentStatus
	)
	err := l.Tx.RunInTx(ctx, func(q Tx) error {
		order, err := q.GetOrderForUpdate(ctx, in.OrderID)
		if err != nil {
			if store.IsNoRows(err) {
				return common.NotFound("order %d not found", in.OrderID)
			}
			return fmt.Errorf("lock order: %w", err)
		}
		if order.Status == store.OrderStatusCancelled {
			return ErrOrderCancelled
		}
		prev = order.PaymentStatus
		newPaid := order.PaidAmount.Add(amount)
		if Exceeds(newPaid, order.PayableTotal, l.epsilon()) {
			remaining := pricing.ClampZero(order.PayableTotal.Sub(order.PaidAmount))
			return fmt.Errorf("%w (remaining %s)", ErrExceedsBalance, remaining.StringFixed(2))
		}

		shiftID, err := l.recordShift(ctx, q, amount)
		if err != nil {
			return err
		}
		p, err := q.InsertPayment(ctx, store.InsertPaymentParams{
			OrderID:   order.ID,
			Amount:    amount,
			Method:    method,
			PaidAt:    paidAt,
			CreatedBy: in.ActorID,
			ShiftID:   shiftID,
		})
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		status := DeriveStatus(newPaid, order.PayableTotal, l.epsilon())
		if err := q.UpdateOrderPayment(ctx, store.UpdateOrderPaymentParams{ID: order.ID, PaidAmount: newPaid, PaymentStatus: status}); err != nil {
			return fmt.Errorf("update order payment: %w", err)
		}
		res = Result{Payment: p, PaidAmount: newPaid, Status: status, ShiftID: shiftID}
		return nil
	})
	if err != nil {
		return Result{}, "", err
	}
	return res, prev, nil
}

// Reverse appends a compensating entry for a payment. A payment can be
// reversed once. The open shift, if any, is reduced by the same amount.
func (l *Ledger) Reverse(ctx context.Context, in ReverseInput) (Result, error) {
	ctx, span := otel.Tracer("payment").Start(ctx, "payment.Reverse")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", in.OrderID), attribute.Int64("payment.id", in.PaymentID))

	if in.OrderID <= 0 || in.PaymentID <= 0 {
		return Result{}, common.InvalidArgument("order id and payment id are required")
	}
	if in.ActorID <= 0 {
		return Result{}, common.InvalidArgument("actor id is required")
	}
	reason := strings.TrimSpace(in.Reason)

	var res Result
	err := l.Tx.RunInTx(ctx, func(q Tx) error {
		order, err := q.GetOrderForUpdate(ctx, in.OrderID)
		if err != nil {
			if store.IsNoRows(err) {
				return common.NotFound("order %d not found", in.OrderID)
			}
			return fmt.Errorf("lock order: %w", err)
		}
		original, err := q.GetPayment(ctx, in.PaymentID)
		if err != nil {
			if store.IsNoRows(err) {
				return common.NotFound("payment %d not found", in.PaymentID)
			}
			return fmt.Errorf("load payment: %w", err)
		}
		if original.OrderID != order.ID {
			return common.NotFound("payment %d not found", in.PaymentID)
		}
		if original.ReversesPaymentID != nil {
			return ErrReverseReversal
		}
		reversed, err := q.HasReversal(ctx, original.ID)
		if err != nil {
			return fmt.Errorf("check reversal: %w", err)
		}
		if reversed {
			return ErrAlreadyReversed
		}

		amount := original.Amount.Neg()
		shiftID, err := l.recordShift(ctx, q, amount)
		if err != nil {
			return err
		}
		originalID := original.ID
		p, err := q.InsertPayment(ctx, store.InsertPaymentParams{
			OrderID:           order.ID,
			Amount:            amount,
			Method:            original.Method,
			PaidAt:            l.now(),
			CreatedBy:         in.ActorID,
			ShiftID:           shiftID,
			ReversesPaymentID: &originalID,
			Note:              reason,
		})
		if err != nil {
			if store.IsUniqueViolation(err, singleReversalIndex) {
				return ErrAlreadyReversed
			}
			return fmt.Errorf("insert reversal: %w", err)
		}
		newPaid := pricing.ClampZero(order.PaidAmount.Add(amount))
		status := DeriveStatus(newPaid, order.PayableTotal, l.epsilon())
		if err := q.UpdateOrderPayment(ctx, store.UpdateOrderPaymentParams{ID: order.ID, PaidAmount: newPaid, PaymentStatus: status}); err != nil {
			return fmt.Errorf("update order payment: %w", err)
		}
		res = Result{Payment: p, PaidAmount: newPaid, Status: status, ShiftID: shiftID}
		return nil
	})
	if err != nil {
		obs.ObservePayment("reversal", resultLabel(err), decimal.Zero)
		return Result{}, err
	}

	obs.ObservePayment("reversal", "ok", decimal.Zero)
	l.Log.Info().
		Int64("order_id", in.OrderID).
		Int64("payment_id", in.PaymentID).
		Int64("reversal_id", res.Payment.ID).
		Str("paid_amount", res.PaidAmount.StringFixed(2)).
		Msg("payment_reversed")
	events.EmitLogged(ctx, l.Events, l.Log, events.TopicPaymentReversed, events.AggregateOrder, in.OrderID, map[string]any{
		"paymentId":     in.PaymentID,
		"reversalId":    res.Payment.ID,
		"amount":        res.Payment.Amount.StringFixed(2),
		"paidAmount":    res.PaidAmount.StringFixed(2),
		"paymentStatus": res.Status,
		"reason":        reason,
	})
	return res, nil
}

// List returns the order's payment history ordered by payment time.
func (l *Ledger) List(ctx context.Context, orderID int64) ([]store.Payment, error) {
	if _, err := l.Queries.GetOrder(ctx, orderID); err != nil {
		if store.IsNoRows(err) {
			return nil, common.NotFound("order %d not found", orderID)
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	payments, err := l.Queries.ListPaymentsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	if payments == nil {
		payments = []store.Payment{}
	}
	return payments, nil
}

func resultLabel(err error) string {
	switch common.KindOf(err) {
	case common.CodeInvalidArgument:
		return "invalid_argument"
	case common.CodeNotFound:
		return "not_found"
	case common.CodeInvalidState:
		return "invalid_state"
	default:
		return "error"
	}
}

// metricMethod bounds the method label to the well-known methods.
func metricMethod(method string) string {
	switch m := strings.ToLower(method); m {
	case MethodCash, MethodCard, MethodBankTransfer, MethodPrepayment, MethodPostpayment:
		return m
	case "":
		return "unknown"
	default:
		return "other"
	}
}
