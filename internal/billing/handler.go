package billing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/printops-erp/printops/internal/platform/httpx"
)

// Handler manages billing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices", h.list)
	r.Post("/invoices", h.create)
	r.Get("/invoices/{id}", h.get)
	r.Delete("/invoices/{id}", h.delete)
	r.Post("/invoices/{id}/payments", h.addPayment)
	r.Delete("/invoices/payments/{paymentID}", h.deletePayment)
	r.Post("/invoices/{id}/status", h.overrideStatus)
}

type createInvoiceRequest struct {
	InvoiceNumber string `json:"invoice_number" validate:"max=40"`
	ClientID      int64  `json:"client_id" validate:"required,gt=0"`
	ProjectID     int64  `json:"project_id" validate:"gte=0"`
	Total         int64  `json:"total" validate:"gte=0"`
	DueDate       string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Note          string `json:"note" validate:"max=1000"`
	ActorID       int64  `json:"actor_id" validate:"gte=0"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateInvoiceInput{
		InvoiceNumber: req.InvoiceNumber,
		ClientID:      req.ClientID,
		ProjectID:     req.ProjectID,
		Total:         req.Total,
		Note:          req.Note,
		ActorID:       req.ActorID,
	}
	if req.DueDate != "" {
		due, _ := time.Parse("2006-01-02", req.DueDate)
		input.DueDate = &due
	}
	inv, err := h.service.CreateInvoice(r.Context(), input)
	if err != nil {
		h.respondError(w, "create invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	clientID, _ := strconv.ParseInt(r.URL.Query().Get("client_id"), 10, 64)
	invoices, err := h.service.List(r.Context(), ListFilter{
		Status:   InvoiceStatus(r.URL.Query().Get("status")),
		ClientID: clientID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.respondError(w, "list invoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	inv, payments, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoice": inv, "payments": payments})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteInvoice(r.Context(), id, 0); err != nil {
		h.respondError(w, "delete invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

type paymentRequest struct {
	Amount  int64  `json:"amount" validate:"required,gt=0"`
	Method  string `json:"method" validate:"max=40"`
	PaidAt  string `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
	Note    string `json:"note" validate:"max=500"`
	ActorID int64  `json:"actor_id" validate:"gte=0"`
}

func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := PaymentInput{
		InvoiceID: id,
		Amount:    req.Amount,
		Method:    req.Method,
		Note:      req.Note,
		ActorID:   req.ActorID,
	}
	if req.PaidAt != "" {
		input.PaidAt, _ = time.Parse("2006-01-02", req.PaidAt)
	}
	if err := h.service.AddPayment(r.Context(), input); err != nil {
		h.respondError(w, "add payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"invoice_id": id})
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := h.parseID(w, r, "paymentID")
	if !ok {
		return
	}
	if err := h.service.DeletePayment(r.Context(), paymentID, 0); err != nil {
		h.respondError(w, "delete payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": paymentID})
}

type overrideRequest struct {
	Status  string `json:"status" validate:"required"`
	ActorID int64  `json:"actor_id" validate:"gte=0"`
}

func (h *Handler) overrideStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	var req overrideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.OverrideStatus(r.Context(), id, InvoiceStatus(req.Status), req.ActorID); err != nil {
		h.respondError(w, "override invoice status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoice_id": id})
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
