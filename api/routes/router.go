package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sevalabs/gramseva-backend/api/controllers"
	"github.com/sevalabs/gramseva-backend/api/middleware"
	"github.com/sevalabs/gramseva-backend/internal/auth"
	"github.com/sevalabs/gramseva-backend/internal/commission"
	"github.com/sevalabs/gramseva-backend/internal/notifications"
	"github.com/sevalabs/gramseva-backend/internal/policies"
	"github.com/sevalabs/gramseva-backend/internal/requests"
	"github.com/sevalabs/gramseva-backend/internal/wallet"
	"github.com/sevalabs/gramseva-backend/pkg/config"
	"github.com/sevalabs/gramseva-backend/pkg/db"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
	"github.com/sevalabs/gramseva-backend/pkg/logger"
	"github.com/sevalabs/gramseva-backend/pkg/redis"
)

// Params collects everything the HTTP surface needs. The router itself stays
// declarative; all behavior lives in middleware and controllers.
type Params struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            *db.Client
	Redis         *redis.Client
	Registry      *prometheus.Registry
	Auth          auth.Service
	Register      auth.RegisterService
	Requests      requests.Service
	Commission    commission.Service
	Policies      policies.Service
	Wallet        wallet.Service
	Notifications notifications.Service
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(p.DB, p.Redis))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.Register, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Route("/v1/requests", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, string(enums.RoleCustomer))).
				Post("/", controllers.CreateRequest(p.Requests, logg))
			r.Get("/", controllers.ListRequests(p.Requests, logg))
			r.Get("/{requestId}", controllers.GetRequest(p.Requests, logg))
			r.Post("/{requestId}/payment", controllers.CapturePayment(p.Requests, logg))
			r.Post("/{requestId}/transition", controllers.TransitionRequest(p.Requests, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, string(enums.RoleAdmin)))
				r.Post("/{requestId}/assign", controllers.AssignStakeholder(p.Requests, logg))
				r.Post("/{requestId}/distribute", controllers.DistributeCommission(p.Commission, logg))
			})
		})

		r.Route("/v1/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletBalance(p.Wallet, logg))
			r.Get("/transactions", controllers.WalletTransactions(p.Wallet, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
		})

		r.Route("/v1/policies", func(r chi.Router) {
			r.Get("/{serviceType}", controllers.GetPolicy(p.Policies, logg))
		})

		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, string(enums.RoleAdmin)))
			r.Post("/stakeholders", controllers.CreateStakeholder(p.Register, logg))
			r.Route("/policies", func(r chi.Router) {
				r.Get("/{serviceType}", controllers.GetPolicy(p.Policies, logg))
				r.Get("/{serviceType}/versions", controllers.ListPolicyVersions(p.Policies, logg))
				r.Put("/{serviceType}", controllers.UpsertPolicy(p.Policies, logg))
			})
		})
	})

	return r
}
