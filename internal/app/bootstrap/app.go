package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/doconsult-api/internal/analytics"
	"github.com/wolfman30/doconsult-api/internal/api/router"
	"github.com/wolfman30/doconsult-api/internal/appointments"
	"github.com/wolfman30/doconsult-api/internal/clock"
	appconfig "github.com/wolfman30/doconsult-api/internal/config"
	"github.com/wolfman30/doconsult-api/internal/consultations"
	"github.com/wolfman30/doconsult-api/internal/doctors"
	httpmiddleware "github.com/wolfman30/doconsult-api/internal/http/middleware"
	"github.com/wolfman30/doconsult-api/internal/notify"
	"github.com/wolfman30/doconsult-api/internal/observability/metrics"
	"github.com/wolfman30/doconsult-api/internal/reviews"
	"github.com/wolfman30/doconsult-api/internal/sweeper"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// Deps are the external resources the API runs on.
type Deps struct {
	Pool     *pgxpool.Pool
	SQL      *sql.DB
	Redis    *redis.Client
	Notifier notify.Notifier
	// Registerer defaults to the global prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Clock      clock.Clock
}

// App is the assembled API.
type App struct {
	Handler http.Handler
	Sweeper *sweeper.Sweeper
	Events  *notify.Async
	limiter *httpmiddleware.RateLimiter
}

// Build wires stores, services and handlers on deps.
func Build(cfg *appconfig.Config, deps Deps, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if deps.Pool == nil {
		return nil, fmt.Errorf("bootstrap: postgres pool is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.Clock == nil {
		c, err := BuildClock(cfg.SweeperTimezone)
		if err != nil {
			return nil, err
		}
		deps.Clock = c
	}

	bookingMetrics := metrics.NewBookingMetrics(deps.Registerer)
	lifecycleMetrics := metrics.NewLifecycleMetrics(deps.Registerer)
	sweeperMetrics := metrics.NewSweeperMetrics(deps.Registerer)
	notifyMetrics := metrics.NewNotifyMetrics(deps.Registerer)

	events := notify.NewAsync(deps.Notifier, cfg.NotifyTimeout, notifyMetrics, logger)

	doctorCache := doctors.NewCache(deps.Redis, cfg.DoctorCacheTTL)
	doctorService := doctors.NewService(doctors.NewStore(deps.Pool), doctorCache, logger)

	apptStore := appointments.NewStore(deps.Pool)
	apptService := appointments.NewService(apptStore, doctorService, events, appointments.Options{
		EnforceAvailability: cfg.BookingEnforceAvailability,
		Clock:               deps.Clock,
		BookingMetrics:      bookingMetrics,
		LifecycleMetrics:    lifecycleMetrics,
	}, logger)

	consultService := consultations.NewService(consultations.NewStore(deps.Pool), apptStore, doctorService, events, lifecycleMetrics, logger)
	reviewService := reviews.NewService(reviews.NewStore(deps.Pool), apptStore, doctorCache, logger)

	sw, err := sweeper.New(apptStore, sweeper.Options{
		Schedule:  cfg.SweeperSchedule,
		Timezone:  cfg.SweeperTimezone,
		ChunkSize: cfg.SweeperChunkSize,
		Clock:     deps.Clock,
		Metrics:   sweeperMetrics,
	}, logger)
	if err != nil {
		return nil, err
	}

	var analyticsHandler *analytics.Handler
	if deps.SQL != nil {
		analyticsHandler = analytics.NewHandler(analytics.NewRepository(deps.SQL), deps.Clock, logger)
	}

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	handler := router.New(&router.Config{
		Logger:             logger,
		JWTSecret:          cfg.JWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		MetricsHandler:     promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}),
		Health:             health(deps),
		Doctors:            doctors.NewHandler(doctorService, apptService, logger),
		Patients:           doctors.NewPatientHandler(doctorService, logger),
		Appointments:       appointments.NewHandler(apptService, logger),
		Consultations:      consultations.NewHandler(consultService, logger),
		Reviews:            reviews.NewHandler(reviewService, logger),
		Analytics:          analyticsHandler,
		Sweeps:             sweeper.NewHandler(sw, logger),
	})

	return &App{Handler: handler, Sweeper: sw, Events: events, limiter: limiter}, nil
}

// BuildClock returns the wall clock in the clinic timezone. Booking, expiry
// and analytics all take "today" from it.
func BuildClock(timezone string) (clock.Clock, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: timezone %q: %w", timezone, err)
	}
	return clock.System{Location: loc}, nil
}

// Close stops background work owned by the app and waits for pending
// notifications. It does not close deps.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.Events != nil {
		a.Events.Wait()
	}
}

func health(deps Deps) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := deps.Pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if deps.Redis != nil {
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
