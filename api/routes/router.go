package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wattly/wattly-backend/api/controllers"
	"github.com/wattly/wattly-backend/api/middleware"
	"github.com/wattly/wattly-backend/internal/allocation"
	"github.com/wattly/wattly-backend/internal/auth"
	"github.com/wattly/wattly-backend/internal/ingest"
	"github.com/wattly/wattly-backend/internal/invoices"
	"github.com/wattly/wattly-backend/internal/orgs"
	"github.com/wattly/wattly-backend/internal/platformbilling"
	"github.com/wattly/wattly-backend/internal/tariffs"
	"github.com/wattly/wattly-backend/pkg/auth/session"
	"github.com/wattly/wattly-backend/pkg/config"
	"github.com/wattly/wattly-backend/pkg/db"
	"github.com/wattly/wattly-backend/pkg/logger"
	"github.com/wattly/wattly-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Services groups the domain services the HTTP surface exposes.
type Services struct {
	Auth            auth.Service
	Orgs            orgs.Service
	Ingest          ingest.Service
	Allocation      allocation.Service
	Tariffs         tariffs.Service
	Invoices        invoices.Service
	PlatformBilling platformbilling.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions sessionManager,
	svcs Services,
) http.Handler {
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
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		if !cfg.App.IsProd() {
			r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		}
		r.Post("/logout", controllers.AuthLogout(sessions, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessions, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Post("/orgs", controllers.OrganizationCreate(svcs.Orgs, logg))
		r.Route("/orgs/{orgID}", func(r chi.Router) {
			r.Get("/", controllers.OrganizationDetail(svcs.Orgs, logg))

			r.Route("/members", func(r chi.Router) {
				r.Get("/", controllers.MemberList(svcs.Orgs, logg))
				r.Post("/", controllers.MemberCreate(svcs.Orgs, logg))
			})
			r.Route("/meter-points", func(r chi.Router) {
				r.Get("/", controllers.MeterPointList(svcs.Orgs, logg))
				r.Post("/", controllers.MeterPointCreate(svcs.Orgs, logg))
			})

			r.Post("/load-curves/import", controllers.LoadCurveImport(svcs.Ingest, logg))

			r.Route("/allocations", func(r chi.Router) {
				r.Get("/", controllers.AllocationList(svcs.Allocation, logg))
				r.Post("/recompute", controllers.AllocationRecompute(svcs.Allocation, logg))
				r.Get("/members/{memberID}", controllers.AllocationMemberDetail(svcs.Allocation, logg))
			})

			r.Route("/tariffs", func(r chi.Router) {
				r.Get("/", controllers.TariffList(svcs.Tariffs, logg))
				r.Post("/", controllers.TariffCreate(svcs.Tariffs, logg))
				r.Patch("/{planID}", controllers.TariffUpdate(svcs.Tariffs, logg))
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", controllers.InvoiceList(svcs.Invoices, logg))
				r.Post("/generate", controllers.InvoiceGenerate(svcs.Invoices, logg))
				r.Route("/{invoiceID}", func(r chi.Router) {
					r.Get("/", controllers.InvoiceDetail(svcs.Invoices, logg))
					r.Post("/send", controllers.InvoiceSend(svcs.Invoices, logg))
					r.Post("/cancel", controllers.InvoiceCancel(svcs.Invoices, logg))
					r.Post("/mark-paid", controllers.InvoiceMarkPaid(svcs.Invoices, logg))
				})
			})
		})

		r.Route("/platform/invoices", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Get("/", controllers.PlatformInvoiceList(svcs.PlatformBilling, logg))
			r.Post("/", controllers.PlatformInvoiceGenerate(svcs.PlatformBilling, logg))
			r.Get("/{invoiceID}", controllers.PlatformInvoiceDetail(svcs.PlatformBilling, logg))
		})
	})

	return r
}
