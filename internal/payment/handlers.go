package payment

import (
	"net/http"
	"time"

	"github.com/noah-isme/backend-printshop/internal/common"
)

// Handler exposes the payment ledger over HTTP.
type Handler struct {
	Ledger *Ledger
}

type applyReq struct {
	Amount string     `json:"amount" validate:"required,max=20"`
	Method string     `json:"method" validate:"required,max=32"`
	PaidAt *time.Time `json:"paidAt"`
}

type reverseReq struct {
	Reason string `json:"reason" validate:"max=500"`
}

// List handles GET /api/v1/orders/{id}/payments.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orderID, err := common.URLParamID(r, "id", "order id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	payments, err := h.Ledger.List(r.Context(), orderID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": payments})
}

// Apply handles POST /api/v1/orders/{id}/payments.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	actor, err := common.RequireActor(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	orderID, err := common.URLParamID(r, "id", "order id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req applyReq
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	amount, err := common.ParseMoney(req.Amount, "amount")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	in := ApplyInput{OrderID: orderID, Amount: amount, Method: req.Method, ActorID: actor}
	if req.PaidAt != nil {
		in.PaidAt = *req.PaidAt
	}
	res, err := h.Ledger.Apply(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": res})
}

// Reverse handles POST /api/v1/orders/{id}/payments/{paymentId}/reverse.
func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	actor, err := common.RequireActor(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	orderID, err := common.URLParamID(r, "id", "order id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	paymentID, err := common.URLParamID(r, "paymentId", "payment id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req reverseReq
	if r.ContentLength != 0 {
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(w, err)
			return
		}
	}
	res, err := h.Ledger.Reverse(r.Context(), ReverseInput{OrderID: orderID, PaymentID: paymentID, ActorID: actor, Reason: req.Reason})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": res})
}
