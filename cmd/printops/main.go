package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/printops-erp/printops/internal/app"
	"github.com/printops-erp/printops/internal/billing"
	"github.com/printops-erp/printops/internal/dashboard"
	"github.com/printops-erp/printops/internal/inventory"
	"github.com/printops-erp/printops/internal/masterdata/clients"
	"github.com/printops-erp/printops/internal/masterdata/materials"
	"github.com/printops-erp/printops/internal/platform/cache"
	"github.com/printops-erp/printops/internal/platform/db"
	"github.com/printops-erp/printops/internal/projects"
	"github.com/printops-erp/printops/internal/purchasing"
	"github.com/printops-erp/printops/internal/sales/quotes"
	"github.com/printops-erp/printops/internal/shared"
	"github.com/printops-erp/printops/internal/users"
	"github.com/printops-erp/printops/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	usersService := users.NewService(users.NewRepository(dbpool))
	usersHandler := users.NewHandler(logger, usersService)

	materialsService := materials.NewService(materials.NewRepository(dbpool))
	materialsHandler := materials.NewHandler(logger, materialsService)

	clientsService := clients.NewService(clients.NewRepository(dbpool))
	clientsHandler := clients.NewHandler(logger, clientsService)

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	purchasingService := purchasing.NewService(purchasing.NewRepository(dbpool), inventoryService, auditLogger, idempotencyStore)
	purchasingHandler := purchasing.NewHandler(logger, purchasingService)

	billingService := billing.NewService(billing.NewRepository(dbpool), auditLogger)
	billingHandler := billing.NewHandler(logger, billingService)

	quotesService := quotes.NewService(quotes.NewRepository(dbpool), auditLogger)
	quotesHandler := quotes.NewHandler(logger, quotesService)

	projectsService := projects.NewService(
		projects.NewRepository(dbpool),
		quotesService,
		usersService,
		auditLogger,
		projects.Config{LaborRatePerHourCLP: cfg.LaborRatePerHourCLP},
	)
	projectsHandler := projects.NewHandler(logger, projectsService)

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	dashboardService := dashboard.NewService(dashboard.NewRepository(dbpool), dashboardCache)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		QuotesHandler:     quotesHandler,
		ProjectsHandler:   projectsHandler,
		InventoryHandler:  inventoryHandler,
		PurchasingHandler: purchasingHandler,
		BillingHandler:    billingHandler,
		UsersHandler:      usersHandler,
		MaterialsHandler:  materialsHandler,
		ClientsHandler:    clientsHandler,
		DashboardHandler:  dashboardHandler,
		JobHandler:        jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
