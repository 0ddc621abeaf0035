package cashshift

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/noah-isme/backend-printshop/internal/common"
	"github.com/noah-isme/backend-printshop/internal/events"
	"github.com/noah-isme/backend-printshop/internal/obs"
	"github.com/noah-isme/backend-printshop/internal/store"
)

var (
	// ErrShiftAlreadyOpen is returned when opening while another shift is open.
	ErrShiftAlreadyOpen = fmt.Errorf("%w: a cash shift is already open", common.ErrInvalidState)
	// ErrNoOpenShift is returned when closing without an open shift.
	ErrNoOpenShift = fmt.Errorf("%w: no cash shift is open", common.ErrInvalidState)
)

const singleOpenIndex = "cash_shifts_single_open_idx"

// Queries is the subset of store.Queries used by the tracker.
type Queries interface {
	GetOpenShift(ctx context.Context) (store.CashShift, error)
	GetOpenShiftForUpdate(ctx context.Context) (store.CashShift, error)
	GetShift(ctx context.Context, id int64) (store.CashShift, error)
	InsertShift(ctx context.Context, openedAt time.Time, openedBy int64) (store.CashShift, error)
	CloseShift(ctx context.Context, id int64, closedAt time.Time, closedBy int64) (store.CashShift, error)
	AddShiftTotal(ctx context.Context, id int64, amount decimal.Decimal) error
	ShiftMethodTotals(ctx context.Context, shiftID int64) ([]store.ShiftMethodTotal, error)
}

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(Queries) error) error
}

// PostgresRunner adapts store.Store to TxRunner.
type PostgresRunner struct {
	Store *store.Store
}

// RunInTx implements TxRunner.
func (r PostgresRunner) RunInTx(ctx context.Context, fn func(Queries) error) error {
	return r.Store.ExecTx(ctx, func(q *store.Queries) error { return fn(q) })
}

// Summary reports a shift with its per-method breakdown.
type Summary struct {
	Shift        store.CashShift          `json:"shift"`
	Total        decimal.Decimal          `json:"total"`
	PaymentCount int64                    `json:"paymentCount"`
	Methods      []store.ShiftMethodTotal `json:"methods"`
}

// Tracker manages the single open cash shift and its running total.
type Tracker struct {
	Queries Queries
	Tx      TxRunner
	Events  events.Emitter
	Log     zerolog.Logger
	Now     func() time.Time
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}

// Open starts a new shift. At most one shift is open at any time.
func (t *Tracker) Open(ctx context.Context, actorID int64) (store.CashShift, error) {
	ctx, span := otel.Tracer("cashshift").Start(ctx, "cashshift.Open")
	defer span.End()

	if actorID <= 0 {
		return store.CashShift{}, common.InvalidArgument("actor id is required")
	}
	var opened store.CashShift
	err := t.Tx.RunInTx(ctx, func(q Queries) error {
		if _, err := q.GetOpenShiftForUpdate(ctx); err == nil {
			return ErrShiftAlreadyOpen
		} else if !store.IsNoRows(err) {
			return fmt.Errorf("load open shift: %w", err)
		}
		shift, err := q.InsertShift(ctx, t.now(), actorID)
		if err != nil {
			if store.IsUniqueViolation(err, singleOpenIndex) {
				return ErrShiftAlreadyOpen
			}
			return fmt.Errorf("insert shift: %w", err)
		}
		opened = shift
		return nil
	})
	if err != nil {
		return store.CashShift{}, err
	}

	obs.ObserveShiftEvent("opened")
	t.Log.Info().Int64("shift_id", opened.ID).Int64("actor_id", actorID).Msg("shift_opened")
	events.EmitLogged(ctx, t.Events, t.Log, events.TopicCashShiftOpened, events.AggregateCashShift, opened.ID, map[string]any{
		"shiftId":  opened.ID,
		"openedBy": actorID,
		"openedAt": opened.OpenedAt,
	})
	return opened, nil
}

// Close closes the open shift. Its total is frozen afterwards.
func (t *Tracker) Close(ctx context.Context, actorID int64) (store.CashShift, error) {
	ctx, span := otel.Tracer("cashshift").Start(ctx, "cashshift.Close")
	defer span.End()

	if actorID <= 0 {
		return store.CashShift{}, common.InvalidArgument("actor id is required")
	}
	var closed store.CashShift
	err := t.Tx.RunInTx(ctx, func(q Queries) error {
		open, err := q.GetOpenShiftForUpdate(ctx)
		if err != nil {
			if store.IsNoRows(err) {
				return ErrNoOpenShift
			}
			return fmt.Errorf("load open shift: %w", err)
		}
		closed, err = q.CloseShift(ctx, open.ID, t.now(), actorID)
		if err != nil {
			if store.IsNoRows(err) {
				return ErrNoOpenShift
			}
			return fmt.Errorf("close shift: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.CashShift{}, err
	}

	obs.ObserveShiftEvent("closed")
	t.Log.Info().Int64("shift_id", closed.ID).Int64("actor_id", actorID).Str("total", closed.TotalAmount.StringFixed(2)).Msg("shift_closed")
	events.EmitLogged(ctx, t.Events, t.Log, events.TopicCashShiftClosed, events.AggregateCashShift, closed.ID, map[string]any{
		"shiftId":     closed.ID,
		"closedBy":    actorID,
		"totalAmount": closed.TotalAmount.StringFixed(2),
	})
	return closed, nil
}

// RecordPayment adds amount to the open shift using q, which must belong to
// the caller's transaction. It returns the shift id, or nil when no shift is
// open.
func (t *Tracker) RecordPayment(ctx context.Context, q Queries, amount decimal.Decimal) (*int64, error) {
	shift, err := q.GetOpenShiftForUpdate(ctx)
	if err != nil {
		if store.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load open shift: %w", err)
	}
	if err := q.AddShiftTotal(ctx, shift.ID, amount); err != nil {
		return nil, fmt.Errorf("add shift total: %w", err)
	}
	id := shift.ID
	return &id, nil
}

// Current returns the open shift or a NotFound error.
func (t *Tracker) Current(ctx context.Context) (store.CashShift, error) {
	shift, err := t.Queries.GetOpenShift(ctx)
	if err != nil {
		if store.IsNoRows(err) {
			return store.CashShift{}, common.NotFound("no cash shift is open")
		}
		return store.CashShift{}, fmt.Errorf("load open shift: %w", err)
	}
	return shift, nil
}

// Summary returns the shift with totals grouped by payment method.
func (t *Tracker) Summary(ctx context.Context, shiftID int64) (Summary, error) {
	shift, err := t.Queries.GetShift(ctx, shiftID)
	if err != nil {
		if store.IsNoRows(err) {
			return Summary{}, common.NotFound("cash shift %d not found", shiftID)
		}
		return Summary{}, fmt.Errorf("load shift: %w", err)
	}
	methods, err := t.Queries.ShiftMethodTotals(ctx, shiftID)
	if err != nil {
		return Summary{}, fmt.Errorf("shift method totals: %w", err)
	}
	out := Summary{Shift: shift, Total: shift.TotalAmount, Methods: methods}
	if out.Methods == nil {
		out.Methods = []store.ShiftMethodTotal{}
	}
	for _, m := range methods {
		out.PaymentCount += m.Count
	}
	return out, nil
}
