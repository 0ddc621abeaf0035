// Package memstore is an in-memory stand-in for store.Queries used by service
// tests. It mirrors the constraints of the Postgres schema that the services
// rely on: missing rows yield pgx.ErrNoRows, the single-open-shift and
// single-reversal indexes yield unique violations.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-printshop/internal/store"
)

// Memory holds all tables in maps.
type Memory struct {
	txMu sync.Mutex
	mu   sync.Mutex

	Now func() time.Time

	nextID   int64
	products map[int64]store.Product
	tiers    map[int64][]store.ProductPriceTier
	orders   map[int64]store.Order
	items    map[int64]store.OrderItem
	payments map[int64]store.Payment
	shifts   map[int64]store.CashShift
	Events   []store.InsertDomainEventParams

	// FailNext, when set, is returned by the next write and then cleared.
	FailNext error
}

// New returns an empty store.
func New() *Memory {
	return &Memory{
		products: map[int64]store.Product{},
		tiers:    map[int64][]store.ProductPriceTier{},
		orders:   map[int64]store.Order{},
		items:    map[int64]store.OrderItem{},
		payments: map[int64]store.Payment{},
		shifts:   map[int64]store.CashShift{},
	}
}

type snapshot struct {
	nextID   int64
	orders   map[int64]store.Order
	items    map[int64]store.OrderItem
	payments map[int64]store.Payment
	shifts   map[int64]store.CashShift
	events   int
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Atomic runs fn serialised against other Atomic calls and restores the
// previous state when fn fails.
func (m *Memory) Atomic(fn func() error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snap := snapshot{
		nextID:   m.nextID,
		orders:   cloneMap(m.orders),
		items:    cloneMap(m.items),
		payments: cloneMap(m.payments),
		shifts:   cloneMap(m.shifts),
		events:   len(m.Events),
	}
	m.mu.Unlock()

	if err := fn(); err != nil {
		m.mu.Lock()
		m.nextID = snap.nextID
		m.orders = snap.orders
		m.items = snap.items
		m.payments = snap.payments
		m.shifts = snap.shifts
		m.Events = m.Events[:snap.events]
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Memory) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) failure() error {
	err := m.FailNext
	m.FailNext = nil
	return err
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraint}
}

// AddProduct seeds a product with its tiers and returns its id.
func (m *Memory) AddProduct(p store.Product, tiers ...store.ProductPriceTier) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.id()
	}
	p.IsActive = true
	m.products[p.ID] = p
	for i := range tiers {
		if tiers[i].ID == 0 {
			tiers[i].ID = m.id()
		}
		tiers[i].ProductID = p.ID
	}
	m.tiers[p.ID] = tiers
	return p.ID
}

func (m *Memory) GetProduct(_ context.Context, id int64) (store.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return store.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *Memory) ListProducts(_ context.Context, arg store.ListProductsParams) ([]store.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if int(arg.Offset) >= len(out) {
		return nil, nil
	}
	out = out[arg.Offset:]
	if arg.Limit > 0 && len(out) > int(arg.Limit) {
		out = out[:arg.Limit]
	}
	return out, nil
}

func (m *Memory) CountProducts(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.products {
		if p.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *Memory) ListPriceTiers(_ context.Context, productID int64) ([]store.ProductPriceTier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]store.ProductPriceTier(nil), m.tiers[productID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MinQty < out[j].MinQty })
	return out, nil
}

func (m *Memory) CreateOrder(_ context.Context, arg store.CreateOrderParams) (store.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return store.Order{}, err
	}
	for _, o := range m.orders {
		if o.OrderNumber == arg.OrderNumber {
			return store.Order{}, uniqueViolation("orders_order_number_key")
		}
	}
	now := m.now()
	o := store.Order{
		ID:             m.id(),
		OrderNumber:    arg.OrderNumber,
		Title:          arg.Title,
		ClientName:     arg.ClientName,
		ClientPhone:    arg.ClientPhone,
		ManagerID:      arg.ManagerID,
		Status:         store.OrderStatusNew,
		DeadlineAt:     arg.DeadlineAt,
		Subtotal:       decimal.Zero,
		DiscountKind:   "none",
		DiscountAmount: decimal.Zero,
		DiscountValue:  decimal.Zero,
		PayableTotal:   decimal.Zero,
		PaidAmount:     decimal.Zero,
		PaymentStatus:  store.PaymentStatusUnpaid,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *Memory) GetOrder(_ context.Context, id int64) (store.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return store.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

// GetOrderForUpdate behaves like GetOrder; Atomic provides the serialisation.
func (m *Memory) GetOrderForUpdate(ctx context.Context, id int64) (store.Order, error) {
	return m.GetOrder(ctx, id)
}

func (m *Memory) ListOrders(_ context.Context, arg store.ListOrdersParams) ([]store.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Order
	for _, o := range m.orders {
		if arg.Status == "" || string(o.Status) == arg.Status {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if int(arg.Offset) >= len(out) {
		return nil, nil
	}
	out = out[arg.Offset:]
	if arg.Limit > 0 && len(out) > int(arg.Limit) {
		out = out[:arg.Limit]
	}
	return out, nil
}

func (m *Memory) CountOrders(_ context.Context, status string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.orders {
		if status == "" || string(o.Status) == status {
			n++
		}
	}
	return n, nil
}

func (m *Memory) updateOrder(id int64, fn func(*store.Order)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil
	}
	fn(&o)
	o.UpdatedAt = m.now()
	m.orders[id] = o
	return nil
}

func (m *Memory) UpdateOrderTotals(_ context.Context, arg store.UpdateOrderTotalsParams) error {
	return m.updateOrder(arg.ID, func(o *store.Order) {
		o.Subtotal = arg.Subtotal
		o.DiscountValue = arg.DiscountValue
		o.PayableTotal = arg.PayableTotal
		o.PaymentStatus = arg.PaymentStatus
	})
}

func (m *Memory) UpdateOrderDiscount(_ context.Context, arg store.UpdateOrderDiscountParams) error {
	return m.updateOrder(arg.ID, func(o *store.Order) {
		o.DiscountKind = arg.DiscountKind
		o.DiscountAmount = arg.DiscountAmount
	})
}

func (m *Memory) UpdateOrderStatus(_ context.Context, id int64, status store.OrderStatus) error {
	return m.updateOrder(id, func(o *store.Order) { o.Status = status })
}

func (m *Memory) UpdateOrderPayment(_ context.Context, arg store.UpdateOrderPaymentParams) error {
	return m.updateOrder(arg.ID, func(o *store.Order) {
		o.PaidAmount = arg.PaidAmount
		o.PaymentStatus = arg.PaymentStatus
	})
}

func (m *Memory) ListOrderItems(_ context.Context, orderID int64) ([]store.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.OrderItem
	for _, it := range m.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetOrderItem(_ context.Context, orderID, itemID int64) (store.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok || it.OrderID != orderID {
		return store.OrderItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func itemFromParams(id int64, arg store.OrderItemParams, now time.Time) store.OrderItem {
	return store.OrderItem{
		ID:              id,
		OrderID:         arg.OrderID,
		ProductID:       arg.ProductID,
		ProductName:     arg.ProductName,
		Unit:            arg.Unit,
		Quantity:        arg.Quantity,
		BasePrice:       arg.BasePrice,
		UnitPrice:       arg.UnitPrice,
		DiscountPercent: arg.DiscountPercent,
		ManualDiscount:  arg.ManualDiscount,
		DiscountValue:   arg.DiscountValue,
		TotalPrice:      arg.TotalPrice,
		Comment:         arg.Comment,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (m *Memory) InsertOrderItem(_ context.Context, arg store.OrderItemParams) (store.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return store.OrderItem{}, err
	}
	it := itemFromParams(m.id(), arg, m.now())
	m.items[it.ID] = it
	return it, nil
}

func (m *Memory) UpdateOrderItem(_ context.Context, itemID int64, arg store.OrderItemParams) (store.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return store.OrderItem{}, err
	}
	existing, ok := m.items[itemID]
	if !ok || existing.OrderID != arg.OrderID {
		return store.OrderItem{}, pgx.ErrNoRows
	}
	it := itemFromParams(itemID, arg, m.now())
	it.CreatedAt = existing.CreatedAt
	m.items[itemID] = it
	return it, nil
}

func (m *Memory) DeleteOrderItem(_ context.Context, orderID, itemID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return 0, err
	}
	it, ok := m.items[itemID]
	if !ok || it.OrderID != orderID {
		return 0, nil
	}
	delete(m.items, itemID)
	return 1, nil
}

func (m *Memory) DeleteOrderItems(_ context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return err
	}
	for id, it := range m.items {
		if it.OrderID == orderID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *Memory) InsertPayment(_ context.Context, arg store.InsertPaymentParams) (store.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return store.Payment{}, err
	}
	if arg.ReversesPaymentID != nil {
		for _, p := range m.payments {
			if p.ReversesPaymentID != nil && *p.ReversesPaymentID == *arg.ReversesPaymentID {
				return store.Payment{}, uniqueViolation("payments_single_reversal_idx")
			}
		}
	}
	p := store.Payment{
		ID:                m.id(),
		OrderID:           arg.OrderID,
		Amount:            arg.Amount,
		Method:            arg.Method,
		PaidAt:            arg.PaidAt,
		CreatedBy:         arg.CreatedBy,
		ShiftID:           arg.ShiftID,
		ReversesPaymentID: arg.ReversesPaymentID,
		Note:              arg.Note,
		CreatedAt:         m.now(),
	}
	m.payments[p.ID] = p
	return p, nil
}

func (m *Memory) GetPayment(_ context.Context, id int64) (store.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return store.Payment{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *Memory) ListPaymentsByOrder(_ context.Context, orderID int64) ([]store.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Payment
	for _, p := range m.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PaidAt.Equal(out[j].PaidAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].PaidAt.Before(out[j].PaidAt)
	})
	return out, nil
}

func (m *Memory) HasReversal(_ context.Context, paymentID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ReversesPaymentID != nil && *p.ReversesPaymentID == paymentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) openShift() (store.CashShift, bool) {
	var found store.CashShift
	ok := false
	for _, s := range m.shifts {
		if s.ClosedAt == nil && (!ok || s.ID > found.ID) {
			found, ok = s, true
		}
	}
	return found, ok
}

func (m *Memory) GetOpenShift(_ context.Context) (store.CashShift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.openShift()
	if !ok {
		return store.CashShift{}, pgx.ErrNoRows
	}
	return s, nil
}

// GetOpenShiftForUpdate behaves like GetOpenShift; Atomic provides the serialisation.
func (m *Memory) GetOpenShiftForUpdate(ctx context.Context) (store.CashShift, error) {
	return m.GetOpenShift(ctx)
}

func (m *Memory) GetShift(_ context.Context, id int64) (store.CashShift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[id]
	if !ok {
		return store.CashShift{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *Memory) InsertShift(_ context.Context, openedAt time.Time, openedBy int64) (store.CashShift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return store.CashShift{}, err
	}
	if _, open := m.openShift(); open {
		return store.CashShift{}, uniqueViolation("cash_shifts_single_open_idx")
	}
	now := m.now()
	s := store.CashShift{
		ID:          m.id(),
		OpenedAt:    openedAt,
		OpenedBy:    openedBy,
		TotalAmount: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.shifts[s.ID] = s
	return s, nil
}

func (m *Memory) CloseShift(_ context.Context, id int64, closedAt time.Time, closedBy int64) (store.CashShift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return store.CashShift{}, err
	}
	s, ok := m.shifts[id]
	if !ok || s.ClosedAt != nil {
		return store.CashShift{}, pgx.ErrNoRows
	}
	s.ClosedAt = &closedAt
	s.ClosedBy = &closedBy
	s.UpdatedAt = m.now()
	m.shifts[id] = s
	return s, nil
}

func (m *Memory) AddShiftTotal(_ context.Context, id int64, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return err
	}
	s, ok := m.shifts[id]
	if !ok {
		return nil
	}
	s.TotalAmount = s.TotalAmount.Add(amount)
	m.shifts[id] = s
	return nil
}

func (m *Memory) ShiftMethodTotals(_ context.Context, shiftID int64) ([]store.ShiftMethodTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byMethod := map[string]*store.ShiftMethodTotal{}
	for _, p := range m.payments {
		if p.ShiftID == nil || *p.ShiftID != shiftID {
			continue
		}
		t, ok := byMethod[p.Method]
		if !ok {
			t = &store.ShiftMethodTotal{Method: p.Method, Total: decimal.Zero}
			byMethod[p.Method] = t
		}
		t.Total = t.Total.Add(p.Amount)
		t.Count++
	}
	out := make([]store.ShiftMethodTotal, 0, len(byMethod))
	for _, t := range byMethod {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out, nil
}

func (m *Memory) InsertDomainEvent(_ context.Context, arg store.InsertDomainEventParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, arg)
	return nil
}

func (m *Memory) ListDomainEvents(_ context.Context, aggregateType string, aggregateID int64) ([]store.DomainEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.DomainEvent
	for i, e := range m.Events {
		if e.AggregateType != aggregateType || e.AggregateID != aggregateID {
			continue
		}
		out = append(out, store.DomainEvent{
			ID:            int64(i + 1),
			EventID:       e.EventID,
			Topic:         e.Topic,
			AggregateType: e.AggregateType,
			AggregateID:   e.AggregateID,
			Payload:       e.Payload,
			OccurredAt:    e.OccurredAt,
		})
	}
	return out, nil
}

// Topics returns the topics of all recorded events in order.
func (m *Memory) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		out = append(out, e.Topic)
	}
	return out
}
