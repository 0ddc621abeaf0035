package cashshift

import (
	"net/http"

	"github.com/noah-isme/backend-printshop/internal/common"
)

// Handler exposes cash shift endpoints.
type Handler struct {
	Tracker *Tracker
}

// Open handles POST /api/v1/cash-shifts/open.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	actor, err := common.RequireActor(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	shift, err := h.Tracker.Open(r.Context(), actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": shift})
}

// Close handles POST /api/v1/cash-shifts/close.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	actor, err := common.RequireActor(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	shift, err := h.Tracker.Close(r.Context(), actor)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": shift})
}

// Current handles GET /api/v1/cash-shifts/current.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	shift, err := h.Tracker.Current(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": shift})
}

// Summary handles GET /api/v1/cash-shifts/{id}/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := common.URLParamID(r, "id", "shift id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	summary, err := h.Tracker.Summary(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}
