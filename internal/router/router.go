package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleanline-pos/api/internal/config"
	"github.com/cleanline-pos/api/internal/database"
	"github.com/cleanline-pos/api/internal/enum"
	"github.com/cleanline-pos/api/internal/handler"
	mw "github.com/cleanline-pos/api/internal/middleware"
	"github.com/cleanline-pos/api/internal/notify"
	"github.com/cleanline-pos/api/internal/service"
	"github.com/cleanline-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, branch scoping, and capability middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, notifier notify.Notifier) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Webhook routes (public; authenticated by device secret / verify token)
	biometricHandler := handler.NewBiometricWebhookHandler(queries)
	r.Post("/webhooks/biometric", biometricHandler.Handle)

	feedbackHandler := handler.NewFeedbackWebhookHandler(queries, cfg.FeedbackVerifyToken)
	r.Get("/webhooks/feedback", feedbackHandler.Verify)
	r.Post("/webhooks/feedback", feedbackHandler.Receive)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/branches/{bid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services shared across route groups
	orderService := service.NewOrderService(
		pool,
		queries,
		func(db database.DBTX) service.OrderStore { return database.New(db) },
		notifier,
	)
	batchService := service.NewBatchService(
		pool,
		queries,
		func(db database.DBTX) service.BatchStore { return database.New(db) },
		orderService,
	)
	loyaltyService := service.NewLoyaltyService(
		pool,
		queries,
		func(db database.DBTX) service.LoyaltyStore { return database.New(db) },
	)
	pricingService := service.NewPricingService(queries)
	quotationService := service.NewQuotationService(queries, orderService)
	redoService := service.NewRedoService(queries, orderService)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Cross-branch reports (director only)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireCapability(enum.CapViewAllBranches))
			reportHandler := handler.NewReportHandler(queries)
			r.Route("/reports", reportHandler.RegisterDirectorRoutes)
		})

		// Branch-scoped routes
		r.Route("/branches/{bid}", func(r chi.Router) {
			r.Use(mw.RequireBranch)

			orderHandler := handler.NewOrderHandler(orderService, queries, hub)
			r.Route("/orders", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(mw.RequireCapability(enum.CapManageOrders))
					orderHandler.RegisterRoutes(r)
				})

				// Stage completion is a workstation action, not a front-desk
				// one, so it carries its own capability.
				r.Group(func(r chi.Router) {
					r.Use(mw.RequireCapability(enum.CapProcessStages))
					orderHandler.RegisterStageRoutes(r)
				})
			})

			batchHandler := handler.NewBatchHandler(batchService, hub)
			r.Route("/batches", func(r chi.Router) {
				r.Use(mw.RequireCapability(enum.CapManageBatches))
				batchHandler.RegisterRoutes(r)
			})

			pricingHandler := handler.NewPricingHandler(pricingService, queries)
			r.Route("/pricing", func(r chi.Router) {
				r.Use(mw.RequireCapability(enum.CapManagePricing))
				pricingHandler.RegisterRoutes(r)
			})

			customerHandler := handler.NewCustomerHandler(queries)
			loyaltyHandler := handler.NewLoyaltyHandler(loyaltyService, queries)
			r.Route("/customers", func(r chi.Router) {
				r.Use(mw.RequireCapability(enum.CapManageCustomers))
				customerHandler.RegisterRoutes(r)

				r.Route("/{cid}/loyalty", func(r chi.Router) {
					r.Use(mw.RequireCapability(enum.CapManageLoyalty))
					loyaltyHandler.RegisterRoutes(r)
				})
			})

			quotationHandler := handler.NewQuotationHandler(quotationService, queries)
			r.Route("/quotations", func(r chi.Router) {
				r.Use(mw.RequireCapability(enum.CapManageOrders))
				quotationHandler.RegisterRoutes(r)
			})

			redoHandler := handler.NewRedoHandler(redoService, hub)
			r.Route("/redo-items", func(r chi.Router) {
				r.Use(mw.RequireCapability(enum.CapApproveRedo))
				redoHandler.RegisterRoutes(r)
			})

			reportHandler := handler.NewReportHandler(queries)
			r.Route("/reports", func(r chi.Router) {
				r.Use(mw.RequireCapability(enum.CapViewReports))
				reportHandler.RegisterRoutes(r)
			})
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
