package payment_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-printshop/internal/cashshift"
	"github.com/noah-isme/backend-printshop/internal/common"
	"github.com/noah-isme/backend-printshop/internal/events"
	"github.com/noah-isme/backend-printshop/internal/obs"
	"github.com/noah-isme/backend-printshop/internal/payment"
	"github.com/noah-isme/backend-printshop/internal/store"
	"github.com/noah-isme/backend-printshop/internal/store/memstore"
)

type ledgerRunner struct{ m *memstore.Memory }

func (r ledgerRunner) RunInTx(_ context.Context, fn func(payment.Tx) error) error {
	return r.m.Atomic(func() error { return fn(r.m) })
}

type shiftRunner struct{ m *memstore.Memory }

func (r shiftRunner) RunInTx(_ context.Context, fn func(cashshift.Queries) error) error {
	return r.m.Atomic(func() error { return fn(r.m) })
}

var (
	errInjected = errors.New("connection reset by peer")
	orderSeq    atomic.Int64
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type fixture struct {
	m      *memstore.Memory
	shifts *cashshift.Tracker
	ledger *payment.Ledger
}

func newFixture() fixture {
	m := memstore.New()
	bus := &events.Bus{Store: m}
	shifts := &cashshift.Tracker{Queries: m, Tx: shiftRunner{m: m}, Events: bus}
	return fixture{
		m:      m,
		shifts: shifts,
		ledger: &payment.Ledger{
			Tx:      ledgerRunner{m: m},
			Queries: m,
			Shifts:  shifts,
			Epsilon: dec("0.01"),
			Events:  bus,
			Now:     func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) },
		},
	}
}

func (f fixture) order(t *testing.T, payable string) store.Order {
	t.Helper()
	ctx := context.Background()
	o, err := f.m.CreateOrder(ctx, store.CreateOrderParams{OrderNumber: fmt.Sprintf("PS-%04d", orderSeq.Add(1)), Title: "Cards", ManagerID: 1})
	require.NoError(t, err)
	total := dec(payable)
	require.NoError(t, f.m.UpdateOrderTotals(ctx, store.UpdateOrderTotalsParams{
		ID: o.ID, Subtotal: total, DiscountValue: decimal.Zero, PayableTotal: total, PaymentStatus: store.PaymentStatusUnpaid,
	}))
	o, err = f.m.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	return o
}

func TestDeriveStatus(t *testing.T) {
	eps := dec("0.01")
	cases := []struct {
		paid, payable string
		want          store.PaymentStatus
	}{
		{"0", "1000", store.PaymentStatusUnpaid},
		{"0.01", "1000", store.PaymentStatusUnpaid},
		{"400", "1000", store.PaymentStatusPartial},
		{"999.99", "1000", store.PaymentStatusPaid},
		{"1000", "1000", store.PaymentStatusPaid},
		{"50", "0", store.PaymentStatusPartial},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, payment.DeriveStatus(dec(tc.paid), dec(tc.payable), eps), "%s/%s", tc.paid, tc.payable)
	}
}

func TestApplyStatusTransitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.order(t, "1000")

	res, err := f.ledger.Apply(ctx, payment.ApplyInput{OrderID: o.ID, Amount: dec("400"), Method: payment.MethodCash, ActorID: 3})
	require.NoError(t, err)
	require.Equal(t, store.PaymentStatusPartial, res.Status)
	require.True(t, res.PaidAmount.Equal(dec("400")))
	require.Nil(t, res.ShiftID)

	res, err = f.ledger.Apply(ctx, payment.ApplyInput{OrderID: o.ID, Amount: dec("600"), Method: payment.MethodCard, ActorID: 3})
	require.NoError(t, err)
	require.Equal(t, store.PaymentStatusPaid, res.Status)
	require.True(t, res.PaidAmount.Equal(dec("1000")))

	_, err = f.ledger.Apply(ctx, payment.ApplyInput{OrderID: o.ID, Amount: dec("1"), Method: payment.MethodCash, ActorID: 3})
	require.ErrorIs(t, err, payment.ErrExceedsBalance)
	require.ErrorIs(t, err, common.ErrInvalidState)

	stored, err := f.m.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.True(t, stored.PaidAmount.Equal(dec("1000")))
	require.Equal(t, store.PaymentStatusPaid, stored.PaymentStatus)

	history, err := f.ledger.List(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	require.Equal(t, []string{
		events.TopicPaymentApplied,
		events.TopicPaymentApplied,
		events.TopicOrderPaid,
	}, f.m.Topics())
}

func TestApplyMethodMetricLabelsAreBounded(t *testing.T) {
	obs.MustRegisterDomainMetrics("printshop_payment_test", prometheus.NewRegistry())
	f := newFixture()
	ctx := context.Background()
	o := f.order(t, "1000")

	otherOK := testutil.ToFloat64(obs.PaymentsAppliedTotal.WithLabelValues("other", "ok"))
	otherBad := testutil.ToFloat64(obs.PaymentsAppliedTotal.WithLabelValues("other", "invalid_argument"))
	cashOK := testutil.ToFloat64(obs.PaymentsAppliedTotal.WithLabelValues("cash", "ok"))
	otherAmount := testutil.ToFloat64(obs.PaymentAmountTotal.WithLabelValues("other"))

	for i, method := range []string{"gift card #8812", "gift card #8813", "CASH"} {
		_, err := f.ledger.Apply(ctx, payment.ApplyInput{OrderID: o.ID, Amount: dec("10"), Method: method, ActorID: 3})
		require.NoError(t, err, "payment %d", i)
	}
	_, err := f.ledger.Apply(ctx, payment.ApplyInput{OrderID: o.ID, Amount: dec("-1"), Method: "coupon-xyz", ActorID: 3})
	require.ErrorIs(t, err, common.ErrInvalidArgument)

	require.Equal(t, otherOK+2, testutil.ToFloat64(obs.PaymentsAppliedTotal.WithLabelValues("other", "ok")))
	require.Equal(t, otherBad+1, testutil.ToFloat64(obs.PaymentsAppliedTotal.WithLabelValues("other", "invalid_argument")))
	require.Equal(t, cashOK+1, testutil.ToFloat64(obs.PaymentsAppliedTotal.WithLabelValues("cash", "ok")))
	require.InDelta(t, otherAmount+20, testutil.ToFloat64(obs.PaymentAmountTotal.WithLabelValues("other")), 0.0001)

	history, err := f.ledger.List(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, "gift card #8812", history[0].Method)
}

func TestApplyEpsilonTolerance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.order(t, "100")

	res, err := f.ledger.Apply(ctx, payment.ApplyInput{OrderID: o.ID, Amount: dec("100.01"), Method: payment.MethodCash, ActorID: 1})
	require.NoError(t, err)
	require.Equal(t, store.PaymentStatusPaid, res.Status)

	o2 := f.order(t, "100")
	_, err = f.ledger.Apply(ctx, payment.ApplyInput{OrderID: o2.ID, Amount: dec("100.02"), Method: payment.MethodCash, ActorID: 1})
	require.ErrorIs(t, err, payment.ErrExceedsBalance)
}

func TestApplyZeroPayableAcceptsPayment(t *testing.T) {
	f := newFixture()
	o := f.order(t, "0")
	res, err := f.ledger.Apply(context.Background(), payment.ApplyInput{OrderID: o.ID, Amount: dec("50"), Method: payment.MethodPrepayment, ActorID: 1})
	require.NoError(t, err)
	require.Equal(t, store.PaymentStatusPartial, res.Status)
}

func TestApplyValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.order(t, "100")

	cases := []struct {
		name string
		in   payment.ApplyInput
		err  error
	}{
		{"zero amount", payment.ApplyInput{OrderID: o.ID, Amount: dec("0"), Method: "cash", ActorID: 1}, common.ErrInvalidArgument},
		{"negative amount", payment.ApplyInput{OrderID: o.ID, Amount: dec("-5"), Method: "cash", ActorID: 1}, common.ErrInvalidArgument},
		{"blank method", payment.ApplyInput{OrderID: o.ID, Amount: dec("5"), Method: "   ", ActorID: 1}, common.ErrInvalidArgument},
		{"missing actor", payment.ApplyInput{OrderID: o.ID, Amount: dec("5"), Method: "cash"}, common.ErrInvalidArgument},
		{"unknown order", payment.ApplyInput{OrderID: 999, Amount: dec("5"), Method: "cash", ActorID: 1}, common.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.Apply(ctx, tc.in)
			require.ErrorIs(t, err, tc.err)
		})
	}
	require.Empty(t, f.m.Topics())
}

func TestApplyRejectsCancelledOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.order(t, "100")
	require.NoError(t, f.m.UpdateOrderStatus(ctx, o.ID, store.OrderStatusCancelled))

	_, err := f.ledger.Apply(ctx, payment.ApplyInput{OrderID: o.ID, Amount: dec("10"), Method: "cash", ActorID: 1})
	require.ErrorIs(t, err, payment.ErrOrderCancelled)
}

func TestApplyFeedsOpenShift(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.order(t, "1000")
	b := f.order(t, "500")

	shift, err := f.shifts.Open(ctx, 1)
	require.NoError(t, err)

	res, err := f.ledger.Apply(ctx, payment.ApplyInput{OrderID: a.ID, Amount: dec("400"), Method: "cash", ActorID: 1})
	require.NoError(t, err)
	require.NotNil(t, res.ShiftID)
	require.Equal(t, shift.ID, *res.ShiftID)
	_, err = f.ledger.Apply(ctx, payment.ApplyInput{OrderID: b.ID, Amount: dec("250"), Method: "card", ActorID: 1})
	require.NoError(t, err)

	current, err := f.shifts.Current(ctx)
	require.NoError(t, err)
	require.True(t, current.TotalAmount.Equal(dec("650")))

	_, err = f.shifts.Open(ctx, 2)
	require.ErrorIs(t, err, common.ErrInvalidState)
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.order(t, "1000")
	_, err := f.shifts.Open(ctx, 1)
	require.NoError(t, err)

	f.m.FailNext = errInjected
	_, err = f.ledger.Apply(ctx, payment.ApplyInput{OrderID: o.ID, Amount: dec("100"), Method: "cash", ActorID: 1})
	require.Error(t, err)
	require.Equal(t, common.CodeInternal, common.KindOf(err))

	current, err := f.shifts.Current(ctx)
	require.NoError(t, err)
	require.True(t, current.TotalAmount.IsZero())
	stored, err := f.m.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.True(t, stored.PaidAmount.IsZero())
	history, err := f.ledger.List(ctx, o.ID)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestConcurrentPaymentsNeverOverpay(t *testing.T) {
	f := newFixture()
	o := f.order(t, "1000")

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Apply(context.Background(), payment.ApplyInput{OrderID: o.ID, Amount: dec("300"), Method: "cash", ActorID: 1})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, payment.ErrExceedsBalance)
	}
	require.Equal(t, 3, ok)
	stored, err := f.m.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	require.True(t, stored.PaidAmount.Equal(dec("900")))
}

func TestReverse(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.order(t, "1000")
	_, err := f.shifts.Open(ctx, 1)
	require.NoError(t, err)

	applied, err := f.ledger.Apply(ctx, payment.ApplyInput{OrderID: o.ID, Amount: dec("1000"), Method: "cash", ActorID: 1})
	require.NoError(t, err)
	require.Equal(t, store.PaymentStatusPaid, applied.Status)

	rev, err := f.ledger.Reverse(ctx, payment.ReverseInput{OrderID: o.ID, PaymentID: applied.Payment.ID, ActorID: 2, Reason: "duplicate"})
	require.NoError(t, err)
	require.True(t, rev.Payment.Amount.Equal(dec("-1000")))
	require.Equal(t, applied.Payment.ID, *rev.Payment.ReversesPaymentID)
	require.True(t, rev.PaidAmount.IsZero())
	require.Equal(t, store.PaymentStatusUnpaid, rev.Status)

	current, err := f.shifts.Current(ctx)
	require.NoError(t, err)
	require.True(t, current.TotalAmount.IsZero())

	_, err = f.ledger.Reverse(ctx, payment.ReverseInput{OrderID: o.ID, PaymentID: applied.Payment.ID, ActorID: 2})
	require.ErrorIs(t, err, payment.ErrAlreadyReversed)
	_, err = f.ledger.Reverse(ctx, payment.ReverseInput{OrderID: o.ID, PaymentID: rev.Payment.ID, ActorID: 2})
	require.ErrorIs(t, err, payment.ErrReverseReversal)

	other := f.order(t, "10")
	_, err = f.ledger.Reverse(ctx, payment.ReverseInput{OrderID: other.ID, PaymentID: applied.Payment.ID, ActorID: 2})
	require.ErrorIs(t, err, common.ErrNotFound)

	history, err := f.ledger.List(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Contains(t, f.m.Topics(), events.TopicPaymentReversed)
}

func TestListUnknownOrder(t *testing.T) {
	f := newFixture()
	_, err := f.ledger.List(context.Background(), 42)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestHandlers(t *testing.T) {
	f := newFixture()
	o := f.order(t, "1000")
	h := &payment.Handler{Ledger: f.ledger}

	r := chi.NewRouter()
	r.Use(common.ActorMiddleware)
	r.Get("/orders/{id}/payments", h.List)
	r.Post("/orders/{id}/payments", h.Apply)
	r.Post("/orders/{id}/payments/{paymentId}/reverse", h.Reverse)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
		}
		req.Header.Set(common.ActorHeader, "4")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}
	base := "/orders/" + strconv.FormatInt(o.ID, 10) + "/payments"

	rec := do(http.MethodPost, base, `{"amount":"400","method":"cash"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Data payment.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, store.PaymentStatusPartial, created.Data.Status)

	rec = do(http.MethodPost, base, `{"amount":"400"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var failed struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failed))
	require.Equal(t, common.CodeInvalidArgument, failed.Error.Code)

	require.Equal(t, http.StatusBadRequest, do(http.MethodPost, base, `{"amount":"abc","method":"cash"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(http.MethodPost, base, `{"amount":"1e20000000","method":"cash"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(http.MethodPost, base, `{"amount":"5","method":"cash","extra":1}`).Code)
	require.Equal(t, http.StatusConflict, do(http.MethodPost, base, `{"amount":"700","method":"cash"}`).Code)
	require.Equal(t, http.StatusNotFound, do(http.MethodPost, "/orders/999/payments", `{"amount":"1","method":"cash"}`).Code)

	rec = do(http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Data []store.Payment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)

	reversePath := base + "/" + strconv.FormatInt(created.Data.Payment.ID, 10) + "/reverse"
	require.Equal(t, http.StatusCreated, do(http.MethodPost, reversePath, `{"reason":"typo"}`).Code)
	require.Equal(t, http.StatusConflict, do(http.MethodPost, reversePath, "").Code)
}
