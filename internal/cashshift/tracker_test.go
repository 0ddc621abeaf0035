package cashshift_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-printshop/internal/cashshift"
	"github.com/noah-isme/backend-printshop/internal/common"
	"github.com/noah-isme/backend-printshop/internal/events"
	"github.com/noah-isme/backend-printshop/internal/store"
	"github.com/noah-isme/backend-printshop/internal/store/memstore"
)

type memRunner struct{ m *memstore.Memory }

func (r memRunner) RunInTx(_ context.Context, fn func(cashshift.Queries) error) error {
	return r.m.Atomic(func() error { return fn(r.m) })
}

func newTracker(m *memstore.Memory) *cashshift.Tracker {
	return &cashshift.Tracker{
		Queries: m,
		Tx:      memRunner{m: m},
		Events:  &events.Bus{Store: m},
		Now:     func() time.Time { return time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC) },
	}
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestOpenCloseLifecycle(t *testing.T) {
	m := memstore.New()
	tr := newTracker(m)
	ctx := context.Background()

	shift, err := tr.Open(ctx, 7)
	require.NoError(t, err)
	require.True(t, shift.IsOpen())
	require.True(t, shift.TotalAmount.IsZero())

	_, err = tr.Open(ctx, 8)
	require.ErrorIs(t, err, cashshift.ErrShiftAlreadyOpen)
	require.ErrorIs(t, err, common.ErrInvalidState)

	current, err := tr.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, shift.ID, current.ID)

	closed, err := tr.Close(ctx, 9)
	require.NoError(t, err)
	require.False(t, closed.IsOpen())
	require.Equal(t, int64(9), *closed.ClosedBy)

	_, err = tr.Close(ctx, 9)
	require.ErrorIs(t, err, cashshift.ErrNoOpenShift)

	_, err = tr.Current(ctx)
	require.ErrorIs(t, err, common.ErrNotFound)

	reopened, err := tr.Open(ctx, 7)
	require.NoError(t, err)
	require.NotEqual(t, shift.ID, reopened.ID)

	require.Equal(t, []string{
		events.TopicCashShiftOpened,
		events.TopicCashShiftClosed,
		events.TopicCashShiftOpened,
	}, m.Topics())
}

func TestOpenRequiresActor(t *testing.T) {
	tr := newTracker(memstore.New())
	_, err := tr.Open(context.Background(), 0)
	require.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestConcurrentOpenYieldsSingleShift(t *testing.T) {
	m := memstore.New()
	tr := newTracker(m)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(actor int64) {
			defer wg.Done()
			_, err := tr.Open(context.Background(), actor)
			results <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, cashshift.ErrShiftAlreadyOpen)
	}
	require.Equal(t, 1, ok)
}

func TestRecordPayment(t *testing.T) {
	m := memstore.New()
	tr := newTracker(m)
	ctx := context.Background()

	id, err := tr.RecordPayment(ctx, m, dec("100"))
	require.NoError(t, err)
	require.Nil(t, id)

	shift, err := tr.Open(ctx, 1)
	require.NoError(t, err)

	id, err = tr.RecordPayment(ctx, m, dec("100"))
	require.NoError(t, err)
	require.NotNil(t, id)
	require.Equal(t, shift.ID, *id)
	_, err = tr.RecordPayment(ctx, m, dec("50.25"))
	require.NoError(t, err)

	current, err := tr.Current(ctx)
	require.NoError(t, err)
	require.True(t, current.TotalAmount.Equal(dec("150.25")))

	closed, err := tr.Close(ctx, 1)
	require.NoError(t, err)
	id, err = tr.RecordPayment(ctx, m, dec("999"))
	require.NoError(t, err)
	require.Nil(t, id)

	frozen, err := m.GetShift(ctx, closed.ID)
	require.NoError(t, err)
	require.True(t, frozen.TotalAmount.Equal(dec("150.25")))
}

func TestSummaryBreakdown(t *testing.T) {
	m := memstore.New()
	tr := newTracker(m)
	ctx := context.Background()

	shift, err := tr.Open(ctx, 1)
	require.NoError(t, err)
	sid := shift.ID
	for _, p := range []struct{ method, amount string }{{"cash", "100"}, {"card", "40.5"}, {"cash", "20"}} {
		_, err := m.InsertPayment(ctx, store.InsertPaymentParams{OrderID: 1, Amount: dec(p.amount), Method: p.method, PaidAt: time.Now(), CreatedBy: 1, ShiftID: &sid})
		require.NoError(t, err)
		require.NoError(t, m.AddShiftTotal(ctx, sid, dec(p.amount)))
	}

	summary, err := tr.Summary(ctx, sid)
	require.NoError(t, err)
	require.True(t, summary.Total.Equal(dec("160.5")))
	require.Equal(t, int64(3), summary.PaymentCount)
	require.Len(t, summary.Methods, 2)
	require.Equal(t, "card", summary.Methods[0].Method)
	require.True(t, summary.Methods[1].Total.Equal(dec("120")))

	_, err = tr.Summary(ctx, 999)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestHandlers(t *testing.T) {
	m := memstore.New()
	h := &cashshift.Handler{Tracker: newTracker(m)}
	r := chi.NewRouter()
	r.Use(common.ActorMiddleware)
	r.Post("/cash-shifts/open", h.Open)
	r.Post("/cash-shifts/close", h.Close)
	r.Get("/cash-shifts/current", h.Current)
	r.Get("/cash-shifts/{id}/summary", h.Summary)

	do := func(method, path string, actor string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if actor != "" {
			req.Header.Set(common.ActorHeader, actor)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/cash-shifts/open", "").Code)
	require.Equal(t, http.StatusNotFound, do(http.MethodGet, "/cash-shifts/current", "").Code)

	rec := do(http.MethodPost, "/cash-shifts/open", "5")
	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Data store.CashShift `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(5), body.Data.OpenedBy)

	require.Equal(t, http.StatusConflict, do(http.MethodPost, "/cash-shifts/open", "5").Code)
	require.Equal(t, http.StatusOK, do(http.MethodGet, "/cash-shifts/current", "").Code)
	require.Equal(t, http.StatusOK, do(http.MethodGet, "/cash-shifts/1/summary", "").Code)
	require.Equal(t, http.StatusBadRequest, do(http.MethodGet, "/cash-shifts/abc/summary", "").Code)
	require.Equal(t, http.StatusOK, do(http.MethodPost, "/cash-shifts/close", "5").Code)
	require.Equal(t, http.StatusConflict, do(http.MethodPost, "/cash-shifts/close", "5").Code)
}
