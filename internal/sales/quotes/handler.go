package quotes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/printops-erp/printops/internal/platform/httpx"
)

// Handler manages quote endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers quote routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/quotes", h.list)
	r.Post("/quotes", h.create)
	r.Get("/quotes/{id}", h.get)
	r.Delete("/quotes/{id}", h.delete)
	r.Post("/quotes/{id}/items", h.addItem)
	r.Put("/quotes/items/{itemID}", h.updateItem)
	r.Delete("/quotes/items/{itemID}", h.deleteItem)
	r.Post("/quotes/{id}/discount", h.setDiscount)
	r.Post("/quotes/{id}/status", h.updateStatus)
}

type itemRequest struct {
	ServiceCategory string          `json:"service_category" validate:"max=120"`
	Description     string          `json:"description" validate:"max=500"`
	Qty             float64         `json:"qty" validate:"required,gt=0"`
	UnitPrice       int64           `json:"unit_price" validate:"gte=0"`
	LineDiscount    int64           `json:"line_discount" validate:"gte=0"`
	LineTax         int64           `json:"line_tax" validate:"gte=0"`
	MaterialEstCost int64           `json:"material_est_cost" validate:"gte=0"`
	HoursEstimated  float64         `json:"hours_estimated" validate:"gte=0"`
	Specs           json.RawMessage `json:"specs"`
}

func (req itemRequest) toInput() ItemInput {
	return ItemInput{
		ServiceCategory: req.ServiceCategory,
		Description:     req.Description,
		Qty:             req.Qty,
		UnitPrice:       req.UnitPrice,
		LineDiscount:    req.LineDiscount,
		LineTax:         req.LineTax,
		MaterialEstCost: req.MaterialEstCost,
		HoursEstimated:  req.HoursEstimated,
		Specs:           req.Specs,
	}
}

type createQuoteRequest struct {
	QuoteNumber string        `json:"quote_number" validate:"max=40"`
	ClientID    int64         `json:"client_id" validate:"required,gt=0"`
	Currency    string        `json:"currency" validate:"omitempty,len=3"`
	Discount    int64         `json:"discount" validate:"gte=0"`
	Note        string        `json:"note" validate:"max=1000"`
	ActorID     int64         `json:"actor_id" validate:"gte=0"`
	Items       []itemRequest `json:"items" validate:"dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateQuoteInput{
		QuoteNumber: req.QuoteNumber,
		ClientID:    req.ClientID,
		Currency:    req.Currency,
		Discount:    req.Discount,
		Note:        req.Note,
		ActorID:     req.ActorID,
	}
	for _, line := range req.Items {
		input.Items = append(input.Items, line.toInput())
	}
	quote, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, "create quote", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	clientID, _ := strconv.ParseInt(r.URL.Query().Get("client_id"), 10, 64)
	out, err := h.service.List(r.Context(), ListFilter{
		Status:   QuoteStatus(r.URL.Query().Get("status")),
		ClientID: clientID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.respondError(w, "list quotes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	quote, items, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"quote": quote, "items": items})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, actorFrom(r)); err != nil {
		h.respondError(w, "delete quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	var req itemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AddItem(r.Context(), id, req.toInput(), actorFrom(r)); err != nil {
		h.respondError(w, "add quote item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"quote_id": id})
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.parseID(w, r, "itemID")
	if !ok {
		return
	}
	var req itemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.UpdateItem(r.Context(), itemID, req.toInput(), actorFrom(r)); err != nil {
		h.respondError(w, "update quote item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item_id": itemID})
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.parseID(w, r, "itemID")
	if !ok {
		return
	}
	if err := h.service.DeleteItem(r.Context(), itemID, actorFrom(r)); err != nil {
		h.respondError(w, "delete quote item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": itemID})
}

type discountRequest struct {
	Discount int64 `json:"discount" validate:"gte=0"`
	ActorID  int64 `json:"actor_id" validate:"gte=0"`
}

func (h *Handler) setDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	var req discountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SetDiscount(r.Context(), id, req.Discount, req.ActorID); err != nil {
		h.respondError(w, "set quote discount", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"quote_id": id})
}

type statusRequest struct {
	Status  string `json:"status" validate:"required"`
	ActorID int64  `json:"actor_id" validate:"gte=0"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.UpdateStatus(r.Context(), id, QuoteStatus(req.Status), req.ActorID); err != nil {
		h.respondError(w, "update quote status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"quote_id": id})
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func actorFrom(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.URL.Query().Get("actor_id"), 10, 64)
	return id
}
