package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gem-backend/internal/handlers"
	"gem-backend/internal/middleware"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	inventoryHandler *handlers.InventoryHandler,
	categoryHandler *handlers.CategoryHandler,
	shapeHandler *handlers.ShapeHandler,
	saleHandler *handlers.SaleHandler,
	invoiceHandler *handlers.InvoiceHandler,
	dashboardHandler *handlers.DashboardHandler,
	recycleBinHandler *handlers.RecycleBinHandler,
	auditLogHandler *handlers.AuditLogHandler,
	eventsHandler *handlers.EventsHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
	loginLimiter *middleware.RateLimiter,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogging, middleware.MetricsMiddleware)

	// Probes and metrics
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Public API routes - Authentication
	authAPI := r.PathPrefix("/api/auth").Subrouter()
	authAPI.Use(loginLimiter.Middleware)
	authAPI.HandleFunc("/login", authHandler.Login).Methods("POST")

	// Protected API routes - Users (admin only)
	usersAPI := r.PathPrefix("/api/users").Subrouter()
	usersAPI.Use(authMiddleware.Authenticate, authMiddleware.RequireAdmin)
	usersAPI.HandleFunc("", userHandler.ListUsers).Methods("GET")
	usersAPI.HandleFunc("", userHandler.CreateUser).Methods("POST")
	usersAPI.HandleFunc("/{id}/active", userHandler.SetActive).Methods("PATCH")

	// Protected API routes - Inventory
	inventoryAPI := r.PathPrefix("/api/inventory").Subrouter()
	inventoryAPI.Use(authMiddleware.Authenticate)
	inventoryAPI.HandleFunc("", inventoryHandler.List).Methods("GET")
	inventoryAPI.HandleFunc("", inventoryHandler.Create).Methods("POST")
	inventoryAPI.HandleFunc("/{id}", inventoryHandler.Get).Methods("GET")
	inventoryAPI.HandleFunc("/{id}/status", inventoryHandler.UpdateStatus).Methods("PATCH")
	inventoryAPI.HandleFunc("/{id}", inventoryHandler.Delete).Methods("DELETE")

	// Protected API routes - Categories and shapes
	categoriesAPI := r.PathPrefix("/api/categories").Subrouter()
	categoriesAPI.Use(authMiddleware.Authenticate)
	categoriesAPI.HandleFunc("", categoryHandler.List).Methods("GET")
	categoriesAPI.HandleFunc("", categoryHandler.Create).Methods("POST")
	categoriesAPI.HandleFunc("/{id}", categoryHandler.Delete).Methods("DELETE")

	shapesAPI := r.PathPrefix("/api/shapes").Subrouter()
	shapesAPI.Use(authMiddleware.Authenticate)
	shapesAPI.HandleFunc("", shapeHandler.List).Methods("GET")

	// Protected API routes - Sales
	salesAPI := r.PathPrefix("/api/sales").Subrouter()
	salesAPI.Use(authMiddleware.Authenticate)
	salesAPI.HandleFunc("", saleHandler.List).Methods("GET")
	salesAPI.HandleFunc("", saleHandler.Create).Methods("POST")
	salesAPI.HandleFunc("/full", saleHandler.CreateFull).Methods("POST")
	salesAPI.HandleFunc("/{id}", saleHandler.Get).Methods("GET")
	salesAPI.Handle("/{id}/undo", authMiddleware.RequireAdmin(
		http.HandlerFunc(saleHandler.Undo))).Methods("POST")

	// Protected API routes - Invoices
	invoicesAPI := r.PathPrefix("/api/invoices").Subrouter()
	invoicesAPI.Use(authMiddleware.Authenticate)
	invoicesAPI.HandleFunc("", invoiceHandler.List).Methods("GET")
	invoicesAPI.HandleFunc("", invoiceHandler.Create).Methods("POST")
	invoicesAPI.HandleFunc("/{id}", invoiceHandler.Get).Methods("GET")
	invoicesAPI.HandleFunc("/{id}", invoiceHandler.Update).Methods("PATCH")
	invoicesAPI.Handle("/{id}/lock", authMiddleware.RequireAdmin(
		http.HandlerFunc(invoiceHandler.Lock))).Methods("POST")
	invoicesAPI.Handle("/{id}/paid", authMiddleware.RequireAdmin(
		http.HandlerFunc(invoiceHandler.MarkPaid))).Methods("POST")

	dashboardAPI := r.PathPrefix("/api/dashboard").Subrouter()
	dashboardAPI.Use(authMiddleware.Authenticate)
	dashboardAPI.HandleFunc("", dashboardHandler.Stats).Methods("GET")

	// Protected API routes - Recycle bin
	binAPI := r.PathPrefix("/api/recycle-bin").Subrouter()
	binAPI.Use(authMiddleware.Authenticate)
	binAPI.HandleFunc("", recycleBinHandler.List).Methods("GET")
	binAPI.HandleFunc("/restore", recycleBinHandler.Restore).Methods("POST")
	binAPI.Handle("/purge", authMiddleware.RequireAdmin(
		http.HandlerFunc(recycleBinHandler.Purge))).Methods("POST")
	binAPI.Handle("", authMiddleware.RequireAdmin(
		http.HandlerFunc(recycleBinHandler.Empty))).Methods("DELETE")

	// Protected API routes - Audit trail (admin only)
	auditAPI := r.PathPrefix("/api/audit-logs").Subrouter()
	auditAPI.Use(authMiddleware.Authenticate, authMiddleware.RequireAdmin)
	auditAPI.HandleFunc("", auditLogHandler.List).Methods("GET")

	// Live events; browsers pass the token as ?token= on the upgrade request
	eventsAPI := r.PathPrefix("/api/events").Subrouter()
	eventsAPI.Use(authMiddleware.Authenticate)
	eventsAPI.HandleFunc("/ws", eventsHandler.Subscribe).Methods("GET")

	return r
}
