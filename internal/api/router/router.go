package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/doconsult-api/internal/analytics"
	"github.com/wolfman30/doconsult-api/internal/appointments"
	"github.com/wolfman30/doconsult-api/internal/consultations"
	"github.com/wolfman30/doconsult-api/internal/doctors"
	httpmiddleware "github.com/wolfman30/doconsult-api/internal/http/middleware"
	"github.com/wolfman30/doconsult-api/internal/http/respond"
	"github.com/wolfman30/doconsult-api/internal/identity"
	"github.com/wolfman30/doconsult-api/internal/reviews"
	"github.com/wolfman30/doconsult-api/internal/sweeper"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// Config holds router configuration. Nil handlers leave their routes unmounted.
type Config struct {
	Logger             *logging.Logger
	JWTSecret          string
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
	MetricsHandler     http.Handler
	// Health is polled by /health; nil reports ok unconditionally.
	Health func(ctx context.Context) error

	Doctors       *doctors.Handler
	Patients      *doctors.PatientHandler
	Appointments  *appointments.Handler
	Consultations *consultations.Handler
	Reviews       *reviews.Handler
	Analytics     *analytics.Handler
	Sweeps        *sweeper.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.Health))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.Identity(cfg.JWTSecret))
		api.Use(httpmiddleware.RateLimit(cfg.RateLimiter))

		if cfg.Doctors != nil {
			api.Mount("/doctors", cfg.Doctors.Routes())
		}
		if cfg.Patients != nil {
			api.With(httpmiddleware.RequireRole()).Mount("/patients", cfg.Patients.Routes())
		}
		if cfg.Appointments != nil {
			api.With(httpmiddleware.RequireRole()).Mount("/appointments", cfg.Appointments.Routes())
		}
		if cfg.Consultations != nil {
			api.With(httpmiddleware.RequireRole()).Mount("/consultations", cfg.Consultations.Routes())
		}
		if cfg.Reviews != nil {
			api.Mount("/reviews", cfg.Reviews.Routes())
		}
		if cfg.Analytics != nil {
			api.With(httpmiddleware.RequireRole(identity.RoleAdmin, identity.RoleDoctor)).Mount("/analytics", cfg.Analytics.Routes())
		}
		if cfg.Sweeps != nil {
			api.With(httpmiddleware.RequireRole(identity.RoleAdmin)).Mount("/admin/sweeps", cfg.Sweeps.Routes())
		}
	})

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
