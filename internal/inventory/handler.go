package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/printops-erp/printops/internal/platform/httpx"
)

// Handler manages inventory endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/adjustments", h.postAdjustment)
	r.Get("/materials/{id}/ledger", h.listLedger)
	r.Get("/materials/{id}/balance", h.getBalance)
}

type adjustmentRequest struct {
	MaterialID int64   `json:"material_id" validate:"required,gt=0"`
	QtyIn      float64 `json:"qty_in" validate:"gte=0"`
	QtyOut     float64 `json:"qty_out" validate:"gte=0"`
	UnitCost   int64   `json:"unit_cost" validate:"gte=0"`
	Note       string  `json:"note" validate:"max=500"`
	ActorID    int64   `json:"actor_id" validate:"gte=0"`
}

func (h *Handler) postAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	stockAfter, err := h.service.PostTransaction(r.Context(), PostInput{
		MaterialID:    req.MaterialID,
		QtyIn:         req.QtyIn,
		QtyOut:        req.QtyOut,
		UnitCost:      req.UnitCost,
		ReferenceType: ReferenceManualAdjustment,
		Note:          req.Note,
		ActorID:       req.ActorID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientStock):
			httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
		case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidUnitCost):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		default:
			h.logger.Error("post adjustment", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"stock_after": stockAfter})
}

func (h *Handler) listLedger(w http.ResponseWriter, r *http.Request) {
	materialID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || materialID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid material id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.Ledger(r.Context(), LedgerFilter{MaterialID: materialID, Limit: limit})
	if err != nil {
		h.logger.Error("list ledger", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	materialID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || materialID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid material id")
		return
	}
	balance, err := h.service.Balance(r.Context(), materialID)
	if err != nil {
		h.logger.Error("get balance", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"material_id": materialID, "balance": balance})
}
