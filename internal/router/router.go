package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/medisupply/field-app/internal/config"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/handler"
	mw "github.com/medisupply/field-app/internal/middleware"
	"github.com/medisupply/field-app/internal/service"
	"github.com/medisupply/field-app/internal/store"
	"github.com/medisupply/field-app/internal/ws"
	"github.com/sirupsen/logrus"
)

// New creates a Chi router with all gateway routes wired up.
// Applies authentication, identity header checks, and role-based middleware
// as needed.
func New(cfg *config.GatewayConfig, st *store.Store, hub *ws.Hub, deliveries *service.DeliveryService, log logrus.FieldLogger) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(log))
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			"usuario-id", "rol-usuario", "nit-usuario", "cliente-id",
			"X-User-Id", "X-User-Role",
		},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/entregas/{nit}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	visitHandler := handler.NewVisitHandler(st, cfg.JWTSecret, log)
	visitHandler.RegisterFileRoutes(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.SimulateLatency(cfg.MinLatency, cfg.MaxLatency))

		// Auth routes (public)
		authHandler := handler.NewAuthHandler(st, cfg.JWTSecret, log)
		authHandler.RegisterRoutes(r)

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret, st))
			r.Use(mw.MatchIdentityHeaders)

			authHandler.RegisterProtectedRoutes(r)

			productHandler := handler.NewProductHandler(st)
			r.Route("/productos", productHandler.RegisterRoutes)

			customerHandler := handler.NewCustomerHandler(st)
			r.Route("/clientes", customerHandler.RegisterRoutes)

			orderService := service.NewOrderService(service.StoreTx(st), hub)
			orderHandler := handler.NewOrderHandler(orderService, st, log)
			r.Route("/pedidos", orderHandler.RegisterRoutes)

			deliveryHandler := handler.NewDeliveryHandler(st, deliveries)
			r.Route("/entregas", deliveryHandler.RegisterRoutes)

			// Field routes (account managers and admins)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleAccountManager, enum.RoleAdmin))

				routeHandler := handler.NewRouteHandler(st)
				r.Route("/rutas-visitas", routeHandler.RegisterRoutes)

				r.Route("/visits", visitHandler.RegisterRoutes)
			})
		})
	})

	log.Debug("router initialized with all handlers")
	return r
}
