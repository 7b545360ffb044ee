package purchasing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/printops-erp/printops/internal/platform/httpx"
)

// Handler manages purchasing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers purchasing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pos", h.list)
	r.Post("/pos", h.create)
	r.Get("/pos/{id}", h.get)
	r.Delete("/pos/{id}", h.delete)
	r.Post("/pos/{id}/items", h.addItem)
	r.Put("/pos/items/{itemID}", h.updateItem)
	r.Delete("/pos/items/{itemID}", h.deleteItem)
	r.Post("/pos/items/{itemID}/receive", h.receiveItem)
	r.Post("/pos/{id}/status", h.updateStatus)
}

type itemRequest struct {
	MaterialID   int64   `json:"material_id" validate:"required,gt=0"`
	Qty          float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice    int64   `json:"unit_price" validate:"gte=0"`
	LineDiscount int64   `json:"line_discount" validate:"gte=0"`
	LineTax      int64   `json:"line_tax" validate:"gte=0"`
}

type createPORequest struct {
	PONumber   string        `json:"po_number" validate:"max=40"`
	SupplierID int64         `json:"supplier_id" validate:"required,gt=0"`
	Currency   string        `json:"currency" validate:"omitempty,len=3"`
	Discount   int64         `json:"discount" validate:"gte=0"`
	Shipping   int64         `json:"shipping" validate:"gte=0"`
	Note       string        `json:"note" validate:"max=1000"`
	ActorID    int64         `json:"actor_id" validate:"gte=0"`
	Items      []itemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createPORequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreatePOInput{
		PONumber:   req.PONumber,
		SupplierID: req.SupplierID,
		Currency:   req.Currency,
		Discount:   req.Discount,
		Shipping:   req.Shipping,
		Note:       req.Note,
		ActorID:    req.ActorID,
	}
	for _, line := range req.Items {
		input.Items = append(input.Items, ItemInput(line))
	}
	po, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, "create purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	supplierID, _ := strconv.ParseInt(r.URL.Query().Get("supplier_id"), 10, 64)
	orders, err := h.service.List(r.Context(), ListFilter{
		Status:     POStatus(r.URL.Query().Get("status")),
		SupplierID: supplierID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.respondError(w, "list purchase orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	po, items, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order": po, "items": items})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, actorFrom(r)); err != nil {
		h.respondError(w, "delete purchase order", err)
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
	if err := h.service.AddItem(r.Context(), id, ItemInput(req), actorFrom(r)); err != nil {
		h.respondError(w, "add purchase order item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"po_id": id})
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
	if err := h.service.UpdateItem(r.Context(), itemID, ItemInput(req), actorFrom(r)); err != nil {
		h.respondError(w, "update purchase order item", err)
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
		h.respondError(w, "delete purchase order item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": itemID})
}

type receiveRequest struct {
	ReceivedNow float64 `json:"received_now" validate:"required,gt=0"`
	ActorID     int64   `json:"actor_id" validate:"gte=0"`
	ReceiptKey  string  `json:"receipt_key" validate:"max=120"`
}

func (h *Handler) receiveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.parseID(w, r, "itemID")
	if !ok {
		return
	}
	var req receiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	err := h.service.ReceiveItem(r.Context(), ReceiveInput{
		ItemID:      itemID,
		ReceivedNow: req.ReceivedNow,
		ActorID:     req.ActorID,
		ReceiptKey:  req.ReceiptKey,
	})
	if err != nil {
		h.respondError(w, "receive purchase order item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item_id": itemID})
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
	if err := h.service.UpdateStatus(r.Context(), id, POStatus(req.Status), req.ActorID); err != nil {
		h.respondError(w, "update purchase order status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"po_id": id})
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
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func actorFrom(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.URL.Query().Get("actor_id"), 10, 64)
	return id
}
