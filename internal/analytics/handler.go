package analytics

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/doconsult-api/internal/apperr"
	"github.com/wolfman30/doconsult-api/internal/clock"
	"github.com/wolfman30/doconsult-api/internal/http/respond"
	"github.com/wolfman30/doconsult-api/internal/identity"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// Handler serves /api/analytics.
type Handler struct {
	repo   *Repository
	clock  clock.Clock
	logger *logging.Logger
}

// NewHandler creates the dashboard handler. c may be nil for the UTC wall clock.
func NewHandler(repo *Repository, c clock.Clock, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if c == nil {
		c = clock.System{}
	}
	return &Handler{repo: repo, clock: c, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/admin", h.admin)
	r.Get("/doctor", h.doctor)
	return r
}

// AdminDashboard is restricted to admins.
func (h *Handler) AdminDashboard(ctx context.Context, caller identity.Caller) (AdminDashboard, error) {
	const op = "analytics.admin"
	if caller.Role != identity.RoleAdmin {
		return AdminDashboard{}, apperr.Forbidden(op, "admin only")
	}
	d, err := h.repo.Admin(ctx, clock.Today(h.clock))
	if err != nil {
		return AdminDashboard{}, apperr.Transient(op, err)
	}
	return d, nil
}

// DoctorDashboard reports on the calling doctor.
func (h *Handler) DoctorDashboard(ctx context.Context, caller identity.Caller) (DoctorDashboard, error) {
	const op = "analytics.doctor"
	if caller.Role != identity.RoleDoctor {
		return DoctorDashboard{}, apperr.Forbidden(op, "doctors only")
	}
	d, err := h.repo.Doctor(ctx, caller.ID, clock.Today(h.clock))
	if errors.Is(err, sql.ErrNoRows) {
		return DoctorDashboard{}, apperr.NotFound(op, "doctor profile not found")
	}
	if err != nil {
		return DoctorDashboard{}, apperr.Transient(op, err)
	}
	return d, nil
}

func (h *Handler) admin(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	d, err := h.AdminDashboard(r.Context(), caller)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

func (h *Handler) doctor(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	d, err := h.DoctorDashboard(r.Context(), caller)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}
