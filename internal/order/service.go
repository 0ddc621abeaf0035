package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-printshop/internal/common"
	"github.com/noah-isme/backend-printshop/internal/events"
	"github.com/noah-isme/backend-printshop/internal/obs"
	"github.com/noah-isme/backend-printshop/internal/payment"
	"github.com/noah-isme/backend-printshop/internal/pricing"
	"github.com/noah-isme/backend-printshop/internal/store"
)

var (
	// ErrOrderLocked is returned when editing an order in a terminal status.
	ErrOrderLocked = fmt.Errorf("%w: order is completed or cancelled", common.ErrInvalidState)
	// ErrBelowPaid is returned when a change would drop the payable total
	// below the amount already paid.
	ErrBelowPaid = fmt.Errorf("%w: payable total would fall below the paid amount", common.ErrInvalidState)
	// ErrTransition is returned for a status change that is not allowed.
	ErrTransition = fmt.Errorf("%w: status transition not allowed", common.ErrInvalidState)
)

const orderNumberIndex = "orders_order_number_key"

// Pricer resolves a product's tier table.
type Pricer interface {
	TierTable(ctx context.Context, productID int64) (pricing.TierTable, error)
}

// Tx is the set of queries used inside an order transaction.
type Tx interface {
	GetOrderForUpdate(ctx context.Context, id int64) (store.Order, error)
	UpdateOrderTotals(ctx context.Context, arg store.UpdateOrderTotalsParams) error
	UpdateOrderDiscount(ctx context.Context, arg store.UpdateOrderDiscountParams) error
	UpdateOrderStatus(ctx context.Context, id int64, status store.OrderStatus) error
	ListOrderItems(ctx context.Context, orderID int64) ([]store.OrderItem, error)
	GetOrderItem(ctx context.Context, orderID, itemID int64) (store.OrderItem, error)
	InsertOrderItem(ctx context.Context, arg store.OrderItemParams) (store.OrderItem, error)
	UpdateOrderItem(ctx context.Context, itemID int64, arg store.OrderItemParams) (store.OrderItem, error)
	DeleteOrderItem(ctx context.Context, orderID, itemID int64) (int64, error)
	DeleteOrderItems(ctx context.Context, orderID int64) error
}

// Queries is used for reads and order creation outside a transaction.
type Queries interface {
	CreateOrder(ctx context.Context, arg store.CreateOrderParams) (store.Order, error)
	GetOrder(ctx context.Context, id int64) (store.Order, error)
	ListOrders(ctx context.Context, arg store.ListOrdersParams) ([]store.Order, error)
	CountOrders(ctx context.Context, status string) (int64, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]store.OrderItem, error)
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

// View is an order together with its line items.
type View struct {
	Order store.Order       `json:"order"`
	Items []store.OrderItem `json:"items"`
}

// CreateInput describes a new order.
type CreateInput struct {
	Title       string
	ClientName  string
	ClientPhone string
	ManagerID   int64
	Deadline    *time.Time
}

// ItemInput describes a line item. ProductID nil makes a manual item, which
// must carry ProductName and UnitPrice. UnitPrice on a product item overrides
// the resolved tier price.
type ItemInput struct {
	ProductID      *int64
	ProductName    string
	Unit           string
	Quantity       int
	UnitPrice      *decimal.Decimal
	ManualDiscount *decimal.Decimal
	Comment        string
}

// ListInput filters the order list.
type ListInput struct {
	Status string
	Page   common.Page
}

// ListResult is one page of orders.
type ListResult struct {
	Orders     []store.Order
	Pagination common.Pagination
}

// Service owns the order aggregate: items, discount, totals and status.
type Service struct {
	tx        TxRunner
	queries   Queries
	pricer    Pricer
	epsilon   decimal.Decimal
	events    events.Emitter
	log       zerolog.Logger
	newNumber func() string
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Tx      TxRunner
	Queries Queries
	Pricer  Pricer
	Epsilon decimal.Decimal
	Events  events.Emitter
	Logger  *zerolog.Logger
	// NewNumber generates order numbers; defaults to a short random code.
	NewNumber func() string
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Tx == nil || cfg.Queries == nil {
		return nil, errors.New("order: tx runner and queries are required")
	}
	if cfg.Pricer == nil {
		return nil, errors.New("order: pricer is required")
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	eps := cfg.Epsilon
	if eps.IsZero() {
		eps = payment.DefaultEpsilon
	}
	gen := cfg.NewNumber
	if gen == nil {
		gen = defaultOrderNumber
	}
	return &Service{
		tx:        cfg.Tx,
		queries:   cfg.Queries,
		pricer:    cfg.Pricer,
		epsilon:   eps,
		events:    cfg.Events,
		log:       log,
		newNumber: gen,
	}, nil
}

func defaultOrderNumber() string {
	return "PS-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Create opens a new order with no items and zero totals.
func (s *Service) Create(ctx context.Context, in CreateInput) (store.Order, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return store.Order{}, common.InvalidArgument("title is required")
	}
	if in.ManagerID <= 0 {
		return store.Order{}, common.InvalidArgument("manager id is required")
	}
	var (
		created store.Order
		err     error
	)
	for attempt := 0; attempt < 3; attempt++ {
		created, err = s.queries.CreateOrder(ctx, store.CreateOrderParams{
			OrderNumber: s.newNumber(),
			Title:       title,
			ClientName:  strings.TrimSpace(in.ClientName),
			ClientPhone: strings.TrimSpace(in.ClientPhone),
			ManagerID:   in.ManagerID,
			DeadlineAt:  in.Deadline,
		})
		if err == nil || !store.IsUniqueViolation(err, orderNumberIndex) {
			break
		}
	}
	if err != nil {
		return store.Order{}, fmt.Errorf("create order: %w", err)
	}
	s.log.Info().Int64("order_id", created.ID).Str("order_number", created.OrderNumber).Msg("order_created")
	events.EmitLogged(ctx, s.events, s.log, events.TopicOrderCreated, events.AggregateOrder, created.ID, map[string]any{
		"orderNumber": created.OrderNumber,
		"managerId":   created.ManagerID,
	})
	return created, nil
}

// Get returns the order with its items.
func (s *Service) Get(ctx context.Context, orderID int64) (View, error) {
	o, err := s.queries.GetOrder(ctx, orderID)
	if err != nil {
		if store.IsNoRows(err) {
			return View{}, common.NotFound("order %d not found", orderID)
		}
		return View{}, fmt.Errorf("load order: %w", err)
	}
	items, err := s.queries.ListOrderItems(ctx, orderID)
	if err != nil {
		return View{}, fmt.Errorf("list items: %w", err)
	}
	return View{Order: o, Items: nonNil(items)}, nil
}

// List returns orders newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, in ListInput) (ListResult, error) {
	status := ""
	if strings.TrimSpace(in.Status) != "" {
		parsed, ok := ParseStatus(in.Status)
		if !ok {
			return ListResult{}, common.InvalidArgument("unknown status %q", in.Status)
		}
		status = string(parsed)
	}
	page := in.Page.Clamp(20, 100)
	total, err := s.queries.CountOrders(ctx, status)
	if err != nil {
		return ListResult{}, fmt.Errorf("count orders: %w", err)
	}
	rows, err := s.queries.ListOrders(ctx, store.ListOrdersParams{
		Status: status,
		Limit:  page.Limit(),
		Offset: page.Offset(),
	})
	if err != nil {
		return ListResult{}, fmt.Errorf("list orders: %w", err)
	}
	return ListResult{Orders: nonNil(rows), Pagination: page.Of(total)}, nil
}

// AddItem prices and appends a line item, then recomputes totals.
func (s *Service) AddItem(ctx context.Context, orderID int64, in ItemInput) (View, error) {
	params, err := s.priceItem(ctx, in, false)
	if err != nil {
		return View{}, err
	}
	return s.mutate(ctx, orderID, "add_item", true, func(q Tx, o *store.Order) error {
		params.OrderID = o.ID
		if _, err := q.InsertOrderItem(ctx, params); err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
		return nil
	})
}

// UpdateItem reprices an existing line item. The product and the captured
// product name cannot change, so manual items may omit the name.
func (s *Service) UpdateItem(ctx context.Context, orderID, itemID int64, in ItemInput) (View, error) {
	params, err := s.priceItem(ctx, in, true)
	if err != nil {
		return View{}, err
	}
	return s.mutate(ctx, orderID, "update_item", true, func(q Tx, o *store.Order) error {
		existing, err := q.GetOrderItem(ctx, o.ID, itemID)
		if err != nil {
			if store.IsNoRows(err) {
				return common.NotFound("item %d not found", itemID)
			}
			return fmt.Errorf("load item: %w", err)
		}
		if !sameProduct(existing.ProductID, params.ProductID) {
			return common.InvalidArgument("the product of an item cannot be changed")
		}
		params.OrderID = o.ID
		params.ProductName = existing.ProductName
		if params.ProductID == nil && strings.TrimSpace(in.Unit) == "" {
			params.Unit = existing.Unit
		}
		if _, err := q.UpdateOrderItem(ctx, itemID, params); err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		return nil
	})
}

// RemoveItem deletes a line item.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID int64) (View, error) {
	return s.mutate(ctx, orderID, "remove_item", true, func(q Tx, o *store.Order) error {
		n, err := q.DeleteOrderItem(ctx, o.ID, itemID)
		if err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		if n == 0 {
			return common.NotFound("item %d not found", itemID)
		}
		return nil
	})
}

// ReplaceItems swaps the whole item set of the order.
func (s *Service) ReplaceItems(ctx context.Context, orderID int64, inputs []ItemInput) (View, error) {
	params := make([]store.OrderItemParams, 0, len(inputs))
	for i, in := range inputs {
		p, err := s.priceItem(ctx, in, false)
		if err != nil {
			return View{}, fmt.Errorf("item %d: %w", i, err)
		}
		params = append(params, p)
	}
	return s.mutate(ctx, orderID, "replace_items", true, func(q Tx, o *store.Order) error {
		if err := q.DeleteOrderItems(ctx, o.ID); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		for _, p := range params {
			p.OrderID = o.ID
			if _, err := q.InsertOrderItem(ctx, p); err != nil {
				return fmt.Errorf("insert item: %w", err)
			}
		}
		return nil
	})
}

// SetDiscount replaces the order-level discount. A percent discount keeps
// scaling with the subtotal on later recomputes; a value discount does not.
func (s *Service) SetDiscount(ctx context.Context, orderID int64, d pricing.Discount) (View, error) {
	if d.Kind == "" {
		d.Kind = pricing.DiscountNone
	}
	if err := d.Validate(); err != nil {
		return View{}, err
	}
	if d.Kind == pricing.DiscountNone {
		d.Amount = decimal.Zero
	}
	return s.mutate(ctx, orderID, "set_discount", true, func(q Tx, o *store.Order) error {
		if err := q.UpdateOrderDiscount(ctx, store.UpdateOrderDiscountParams{
			ID:             o.ID,
			DiscountKind:   string(d.Kind),
			DiscountAmount: d.Amount,
		}); err != nil {
			return fmt.Errorf("update discount: %w", err)
		}
		o.DiscountKind = string(d.Kind)
		o.DiscountAmount = d.Amount
		return nil
	})
}

// Recompute rebuilds totals from the current item set. Repeated calls with
// unchanged items produce the same totals.
func (s *Service) Recompute(ctx context.Context, orderID int64) (View, error) {
	return s.mutate(ctx, orderID, "recompute", false, func(Tx, *store.Order) error { return nil })
}

// UpdateStatus moves the order through its production lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status string) (store.Order, error) {
	target, ok := ParseStatus(status)
	if !ok {
		return store.Order{}, common.InvalidArgument("unknown status %q", status)
	}
	var (
		updated store.Order
		from    store.OrderStatus
	)
	err := s.tx.RunInTx(ctx, func(q Tx) error {
		o, err := lockOrder(ctx, q, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(o.Status, target) {
			return fmt.Errorf("%w: %s to %s", ErrTransition, o.Status, target)
		}
		if err := q.UpdateOrderStatus(ctx, o.ID, target); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		from = o.Status
		o.Status = target
		updated = o
		return nil
	})
	if err != nil {
		return store.Order{}, err
	}
	s.log.Info().Int64("order_id", orderID).Str("from", string(from)).Str("to", string(target)).Msg("order_status_changed")
	events.EmitLogged(ctx, s.events, s.log, events.TopicOrderStatusChanged, events.AggregateOrder, orderID, map[string]any{
		"from": from,
		"to":   target,
	})
	return updated, nil
}

// mutate locks the order, applies fn and recomputes totals in one
// transaction. fn may update the locked row in place. editable rejects orders
// in a terminal status and changes that lower the payable total below the
// paid amount.
func (s *Service) mutate(ctx context.Context, orderID int64, op string, editable bool, fn func(Tx, *store.Order) error) (View, error) {
	ctx, span := otel.Tracer("order").Start(ctx, "order."+op)
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	var view View
	err := s.tx.RunInTx(ctx, func(q Tx) error {
		o, err := lockOrder(ctx, q, orderID)
		if err != nil {
			return err
		}
		if editable && IsTerminal(o.Status) {
			return ErrOrderLocked
		}
		before := o.PayableTotal
		if err := fn(q, &o); err != nil {
			return err
		}
		view, err = s.recompute(ctx, q, o, func(payable decimal.Decimal) error {
			if !editable || !payable.LessThan(before) {
				return nil
			}
			if payable.LessThan(o.PaidAmount.Sub(s.epsilon)) {
				return fmt.Errorf("%w (payable %s, paid %s)", ErrBelowPaid, payable.StringFixed(2), o.PaidAmount.StringFixed(2))
			}
			return nil
		})
		return err
	})
	if err != nil {
		switch common.KindOf(err) {
		case common.CodeInvalidState:
			obs.ObserveRecompute("rejected")
		case common.CodeInternal:
			obs.ObserveRecompute("error")
		}
		s.log.Info().Err(err).Int64("order_id", orderID).Str("op", op).Msg("order_change_rejected")
		return View{}, err
	}

	obs.ObserveRecompute("ok")
	o := view.Order
	s.log.Info().
		Int64("order_id", o.ID).
		Str("op", op).
		Str("subtotal", o.Subtotal.StringFixed(2)).
		Str("payable_total", o.PayableTotal.StringFixed(2)).
		Msg("order_recomputed")
	events.EmitLogged(ctx, s.events, s.log, events.TopicOrderTotalsRecomputed, events.AggregateOrder, o.ID, map[string]any{
		"op":            op,
		"subtotal":      o.Subtotal.StringFixed(2),
		"discountValue": o.DiscountValue.StringFixed(2),
		"payableTotal":  o.PayableTotal.StringFixed(2),
		"paymentStatus": o.PaymentStatus,
		"itemCount":     len(view.Items),
	})
	return view, nil
}

// recompute sums the stored line totals, applies the order discount and
// persists the totals with a re-derived payment status. check may veto the
// new payable total before anything is written.
func (s *Service) recompute(ctx context.Context, q Tx, o store.Order, check func(decimal.Decimal) error) (View, error) {
	items, err := q.ListOrderItems(ctx, o.ID)
	if err != nil {
		return View{}, fmt.Errorf("list items: %w", err)
	}
	totals := make([]pricing.Money, 0, len(items))
	for _, it := range items {
		totals = append(totals, it.TotalPrice)
	}
	summary := pricing.Compute(totals, discountOf(o))
	if err := check(summary.PayableTotal); err != nil {
		return View{}, err
	}
	status := payment.DeriveStatus(o.PaidAmount, summary.PayableTotal, s.epsilon)
	if err := q.UpdateOrderTotals(ctx, store.UpdateOrderTotalsParams{
		ID:            o.ID,
		Subtotal:      summary.Subtotal,
		DiscountValue: summary.DiscountValue,
		PayableTotal:  summary.PayableTotal,
		PaymentStatus: status,
	}); err != nil {
		return View{}, fmt.Errorf("update totals: %w", err)
	}
	o.Subtotal = summary.Subtotal
	o.DiscountValue = summary.DiscountValue
	o.PayableTotal = summary.PayableTotal
	o.PaymentStatus = status
	return View{Order: o, Items: nonNil(items)}, nil
}

// priceItem resolves prices and computes line totals for an item. snapshot
// marks an update, where the stored name is kept and the input name is optional.
func (s *Service) priceItem(ctx context.Context, in ItemInput, snapshot bool) (store.OrderItemParams, error) {
	if in.Quantity <= 0 {
		return store.OrderItemParams{}, pricing.ErrInvalidQuantity
	}
	p := store.OrderItemParams{
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		Comment:   strings.TrimSpace(in.Comment),
	}
	var unitPrice, percent decimal.Decimal
	if in.ProductID != nil {
		table, err := s.pricer.TierTable(ctx, *in.ProductID)
		if err != nil {
			return store.OrderItemParams{}, err
		}
		quote, err := table.Resolve(in.Quantity)
		if err != nil {
			return store.OrderItemParams{}, err
		}
		p.ProductName = table.Product.Name
		p.Unit = table.Product.Unit
		p.BasePrice = table.Product.BasePrice
		unitPrice, percent = quote.UnitPrice, quote.DiscountPercent
		if in.UnitPrice != nil {
			unitPrice, percent = *in.UnitPrice, decimal.Zero
		}
	} else {
		name := strings.TrimSpace(in.ProductName)
		if name == "" && !snapshot {
			return store.OrderItemParams{}, common.InvalidArgument("product name is required for manual items")
		}
		if in.UnitPrice == nil {
			return store.OrderItemParams{}, common.InvalidArgument("unit price is required for manual items")
		}
		p.ProductName = name
		p.Unit = strings.TrimSpace(in.Unit)
		p.BasePrice = *in.UnitPrice
		unitPrice, percent = *in.UnitPrice, decimal.Zero
	}
	if p.Unit == "" {
		p.Unit = "pcs"
	}

	line, err := pricing.ComputeLine(pricing.LineInput{
		Quantity:        in.Quantity,
		UnitPrice:       unitPrice,
		DiscountPercent: percent,
		ManualDiscount:  in.ManualDiscount,
	})
	if err != nil {
		return store.OrderItemParams{}, err
	}
	p.UnitPrice = pricing.RoundUnit(unitPrice)
	p.DiscountPercent = percent
	if in.ManualDiscount != nil {
		p.ManualDiscount = decimal.NullDecimal{Decimal: *in.ManualDiscount, Valid: true}
	}
	p.DiscountValue = line.DiscountValue
	p.TotalPrice = line.Total
	return p, nil
}

func lockOrder(ctx context.Context, q Tx, orderID int64) (store.Order, error) {
	o, err := q.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if store.IsNoRows(err) {
			return store.Order{}, common.NotFound("order %d not found", orderID)
		}
		return store.Order{}, fmt.Errorf("lock order: %w", err)
	}
	return o, nil
}

func discountOf(o store.Order) pricing.Discount {
	kind, ok := pricing.ParseDiscountKind(o.DiscountKind)
	if !ok || kind == pricing.DiscountNone {
		return pricing.NoDiscount()
	}
	return pricing.Discount{Kind: kind, Amount: o.DiscountAmount}
}

func sameProduct(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
