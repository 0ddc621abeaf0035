package order

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-printshop/internal/common"
	"github.com/noah-isme/backend-printshop/internal/pricing"
)

// Handler exposes order endpoints.
type Handler struct {
	Service *Service
}

type createReq struct {
	Title       string     `json:"title" validate:"required,max=200"`
	ClientName  string     `json:"clientName" validate:"max=200"`
	ClientPhone string     `json:"clientPhone" validate:"max=32"`
	DeadlineAt  *time.Time `json:"deadlineAt"`
}

type itemReq struct {
	ProductID      *int64  `json:"productId" validate:"omitempty,gt=0"`
	ProductName    string  `json:"productName" validate:"max=200"`
	Unit           string  `json:"unit" validate:"max=32"`
	Quantity       int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice      *string `json:"unitPrice" validate:"omitempty,max=20"`
	ManualDiscount *string `json:"manualDiscount" validate:"omitempty,max=20"`
	Comment        string  `json:"comment" validate:"max=1000"`
}

type replaceItemsReq struct {
	Items []itemReq `json:"items" validate:"dive"`
}

type discountReq struct {
	Kind   string `json:"kind" validate:"required,oneof=none percent value"`
	Amount string `json:"amount" validate:"max=20"`
}

type statusReq struct {
	Status string `json:"status" validate:"required,max=32"`
}

func (r itemReq) input() (ItemInput, error) {
	unitPrice, err := optionalDecimal(r.UnitPrice, "unitPrice", common.ParseUnitPrice)
	if err != nil {
		return ItemInput{}, err
	}
	manual, err := optionalDecimal(r.ManualDiscount, "manualDiscount", common.ParseMoney)
	if err != nil {
		return ItemInput{}, err
	}
	return ItemInput{
		ProductID:      r.ProductID,
		ProductName:    r.ProductName,
		Unit:           r.Unit,
		Quantity:       r.Quantity,
		UnitPrice:      unitPrice,
		ManualDiscount: manual,
		Comment:        r.Comment,
	}, nil
}

func optionalDecimal(raw *string, field string, parse func(value, label string) (decimal.Decimal, error)) (*decimal.Decimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	v, err := parse(*raw, field)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create handles POST /api/v1/orders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := common.RequireActor(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req createReq
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	o, err := h.Service.Create(r.Context(), CreateInput{
		Title:       req.Title,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		ManagerID:   actor,
		Deadline:    req.DeadlineAt,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

// List handles GET /api/v1/orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.List(r.Context(), ListInput{Status: r.URL.Query().Get("status"), Page: common.ParsePage(r)})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       res.Orders,
		"pagination": res.Pagination,
	})
}

// Get handles GET /api/v1/orders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := common.URLParamID(r, "id", "order id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Service.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AddItem handles POST /api/v1/orders/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := common.URLParamID(r, "id", "order id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req itemReq
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.respond(w, http.StatusCreated)(h.Service.AddItem(r.Context(), id, in))
}

// ReplaceItems handles PUT /api/v1/orders/{id}/items.
func (h *Handler) ReplaceItems(w http.ResponseWriter, r *http.Request) {
	id, err := common.URLParamID(r, "id", "order id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req replaceItemsReq
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	inputs := make([]ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		in, err := item.input()
		if err != nil {
			common.WriteError(w, err)
			return
		}
		inputs = append(inputs, in)
	}
	h.respond(w, http.StatusOK)(h.Service.ReplaceItems(r.Context(), id, inputs))
}

// UpdateItem handles PATCH /api/v1/orders/{id}/items/{itemId}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := common.URLParamID(r, "id", "order id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	itemID, err := common.URLParamID(r, "itemId", "item id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req itemReq
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.respond(w, http.StatusOK)(h.Service.UpdateItem(r.Context(), id, itemID, in))
}

// RemoveItem handles DELETE /api/v1/orders/{id}/items/{itemId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := common.URLParamID(r, "id", "order id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	itemID, err := common.URLParamID(r, "itemId", "item id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.respond(w, http.StatusOK)(h.Service.RemoveItem(r.Context(), id, itemID))
}

// SetDiscount handles PUT /api/v1/orders/{id}/discount.
func (h *Handler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := common.URLParamID(r, "id", "order id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req discountReq
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	kind, _ := pricing.ParseDiscountKind(req.Kind)
	amount := decimal.Zero
	if kind != pricing.DiscountNone {
		parsed, err := optionalDecimal(&req.Amount, "amount", common.ParseMoney)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		if parsed == nil {
			common.WriteError(w, common.InvalidArgument("amount is required"))
			return
		}
		amount = *parsed
	}
	h.respond(w, http.StatusOK)(h.Service.SetDiscount(r.Context(), id, pricing.Discount{Kind: kind, Amount: amount}))
}

// Recompute handles POST /api/v1/orders/{id}/recompute.
func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	id, err := common.URLParamID(r, "id", "order id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.respond(w, http.StatusOK)(h.Service.Recompute(r.Context(), id))
}

// UpdateStatus handles PATCH /api/v1/orders/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := common.URLParamID(r, "id", "order id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req statusReq
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	o, err := h.Service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

func (h *Handler) respond(w http.ResponseWriter, status int) func(View, error) {
	return func(view View, err error) {
		if err != nil {
			common.WriteError(w, err)
			return
		}
		common.JSON(w, status, map[string]any{"data": view})
	}
}
