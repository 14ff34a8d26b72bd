package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gem-backend/internal/archive"
	"gem-backend/internal/auth"
	"gem-backend/internal/cache"
	"gem-backend/internal/config"
	"gem-backend/internal/database"
	"gem-backend/internal/db"
	"gem-backend/internal/events"
	h "gem-backend/internal/http"
	"gem-backend/internal/handlers"
	"gem-backend/internal/health"
	"gem-backend/internal/logger"
	"gem-backend/internal/middleware"
	"gem-backend/internal/models"
	"gem-backend/internal/repositories"
	"gem-backend/internal/services"
	"gem-backend/internal/timeutil"
	"gem-backend/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Initialize(cfg.Log.Env, cfg.Log.Level)
	defer logger.Sync()
	log := logger.Log

	if err := timeutil.SetLocation(cfg.Timezone); err != nil {
		log.Fatal("invalid timezone", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer pool.Close()

	if err := database.NewMigratorWithFS(pool, migrations.FS, ".").RunMigrations(ctx); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}

	// Redis is optional; without it every read goes to Postgres
	if err := cache.Init(cfg); err != nil {
		log.Warn("redis unavailable, continuing without cache", zap.Error(err))
	}
	defer cache.Close()

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	categoryRepo := repositories.NewCategoryRepository(pool)
	shapeRepo := repositories.NewShapeRepository(pool)
	inventoryRepo := repositories.NewInventoryRepository(pool)
	saleRepo := repositories.NewSaleRepository(pool)
	invoiceRepo := repositories.NewInvoiceRepository(pool)
	dashboardRepo := repositories.NewDashboardRepository(pool)
	recycleBinRepo := repositories.NewRecycleBinRepository(pool)
	auditRepo := repositories.NewAuditLogRepository(pool)

	// Services
	jwtManager := auth.NewJWTManager(cfg)
	hub := events.NewHub()
	itemCache := cache.ItemCache{}

	var archiver services.Archiver
	s3Archiver, err := archive.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal("archive storage misconfigured", zap.Error(err))
	}
	if s3Archiver != nil {
		archiver = s3Archiver
	}

	auditService := services.NewAuditService(auditRepo)
	userService := services.NewUserService(userRepo, jwtManager)
	categoryService := services.NewCategoryService(categoryRepo)
	shapeService := services.NewShapeService(shapeRepo)
	inventoryService := services.NewInventoryService(inventoryRepo, categoryService, shapeService,
		itemCache, hub, cfg.Sales.MaxCommitAttempts)
	saleService := services.NewSaleService(inventoryRepo, saleRepo, itemCache, hub, auditService,
		services.SaleServiceConfig{
			InvoicePrefix:     models.InvoicePrefix(cfg.Invoice.CompanyName, cfg.Invoice.DefaultPrefix),
			MaxCommitAttempts: cfg.Sales.MaxCommitAttempts,
		})
	invoiceService := services.NewInvoiceService(invoiceRepo, saleRepo, hub, auditService,
		services.InvoiceServiceConfig{
			InvoicePrefix:  models.InvoicePrefix(cfg.Invoice.CompanyName, cfg.Invoice.DefaultPrefix),
			DefaultTaxRate: decimal.NewFromFloat(cfg.Invoice.TaxRate).Round(3),
		})
	dashboardService := services.NewDashboardService(dashboardRepo, saleRepo, invoiceRepo)
	recycleBinService := services.NewRecycleBinService(recycleBinRepo, inventoryRepo, categoryRepo,
		itemCache, hub, auditService, archiver, services.RecycleBinConfig{
			Retention:         time.Duration(cfg.RecycleBin.RetentionDays) * 24 * time.Hour,
			PurgeBatchSize:    cfg.RecycleBin.PurgeBatchSize,
			MaxCommitAttempts: cfg.Sales.MaxCommitAttempts,
		})

	if err := userService.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Fatal("admin bootstrap failed", zap.Error(err))
	}

	recycleBinService.StartPurger(ctx, time.Duration(cfg.RecycleBin.PurgeIntervalMinutes)*time.Minute)

	// Handlers
	healthChecker := health.NewHealthChecker(pool, cache.Enabled, cache.IsHealthy)
	router := h.NewRouter(
		handlers.NewAuthHandler(userService),
		handlers.NewUserHandler(userService),
		handlers.NewInventoryHandler(inventoryService, recycleBinService),
		handlers.NewCategoryHandler(categoryService, recycleBinService),
		handlers.NewShapeHandler(shapeService),
		handlers.NewSaleHandler(saleService),
		handlers.NewInvoiceHandler(invoiceService),
		handlers.NewDashboardHandler(dashboardService),
		handlers.NewRecycleBinHandler(recycleBinService),
		handlers.NewAuditLogHandler(auditService),
		handlers.NewEventsHandler(hub),
		handlers.NewHealthHandler(healthChecker),
		middleware.NewAuthMiddleware(jwtManager, userRepo),
		middleware.NewRateLimiter(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst),
	)

	corsMiddleware := middleware.NewCORS(cfg)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           middleware.PanicRecovery(corsMiddleware(router)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
