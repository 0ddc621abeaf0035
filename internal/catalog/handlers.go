package catalog

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/noah-isme/backend-printshop/internal/common"
)

// Handler exposes catalog pricing endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Products handles GET /api/v1/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog service not configured", nil)
		return
	}
	res, err := h.service.ListProducts(r.Context(), common.ParsePage(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       res.Products,
		"pagination": res.Pagination,
	})
}

// Tiers handles GET /api/v1/products/{id}/tiers.
func (h *Handler) Tiers(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	table, err := h.service.TierTable(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": table})
}

// Quote handles GET /api/v1/products/{id}/quote?qty=N.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("qty"))
	qty, err := strconv.Atoi(raw)
	if err != nil {
		common.WriteError(w, common.InvalidArgument("qty must be an integer"))
		return
	}
	quote, err := h.service.Quote(r.Context(), id, qty)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

// CheckTiers handles GET /api/v1/products/{id}/tiers/check.
func (h *Handler) CheckTiers(w http.ResponseWriter, r *http.Request) {
	id, err := productIDParam(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	report, err := h.service.CheckTiers(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": report})
}

// RefreshTiers handles POST /api/v1/products/{id}/tiers/refresh.
func (h *Handler) RefreshTiers(w http.ResponseWriter, r *http.Request) {
	if _, err := common.RequireActor(r.Context()); err != nil {
		common.WriteError(w, err)
		return
	}
	id, err := productIDParam(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	table, err := h.service.Refresh(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": table})
}

func productIDParam(r *http.Request) (int64, error) {
	return common.URLParamID(r, "id", "product id")
}
