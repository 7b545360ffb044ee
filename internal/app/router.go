package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/printops-erp/printops/internal/billing"
	"github.com/printops-erp/printops/internal/dashboard"
	"github.com/printops-erp/printops/internal/inventory"
	"github.com/printops-erp/printops/internal/masterdata/clients"
	"github.com/printops-erp/printops/internal/masterdata/materials"
	"github.com/printops-erp/printops/internal/projects"
	"github.com/printops-erp/printops/internal/purchasing"
	"github.com/printops-erp/printops/internal/sales/quotes"
	"github.com/printops-erp/printops/internal/users"
	"github.com/printops-erp/printops/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	QuotesHandler     *quotes.Handler
	ProjectsHandler   *projects.Handler
	InventoryHandler  *inventory.Handler
	PurchasingHandler *purchasing.Handler
	BillingHandler    *billing.Handler
	UsersHandler      *users.Handler
	MaterialsHandler  *materials.Handler
	ClientsHandler    *clients.Handler
	DashboardHandler  *dashboard.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(params.QuotesHandler.MountRoutes)
		r.Group(params.ProjectsHandler.MountRoutes)
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		r.Route("/purchasing", params.PurchasingHandler.MountRoutes)
		r.Route("/billing", params.BillingHandler.MountRoutes)
		r.Group(params.UsersHandler.MountRoutes)
		r.Group(params.MaterialsHandler.MountRoutes)
		r.Group(params.ClientsHandler.MountRoutes)
		r.Group(params.DashboardHandler.MountRoutes)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
