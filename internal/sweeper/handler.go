package sweeper

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/doconsult-api/internal/apperr"
	"github.com/wolfman30/doconsult-api/internal/http/respond"
	"github.com/wolfman30/doconsult-api/internal/identity"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// Handler exposes a manual sweep trigger for operators.
type Handler struct {
	sweeper *Sweeper
	logger  *logging.Logger
}

func NewHandler(s *Sweeper, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{sweeper: s, logger: logger}
}

// Routes returns the router mounted at /api/admin/sweeps.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.trigger)
	return r
}

func (h *Handler) trigger(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	if caller.Role != identity.RoleAdmin {
		respond.Error(w, h.logger, r, apperr.Forbidden("sweeper.trigger", "admin only"))
		return
	}
	res, err := h.sweeper.Sweep(r.Context())
	if errors.Is(err, ErrBusy) {
		respond.Error(w, h.logger, r, apperr.Conflict("sweeper.trigger", "a sweep is already running"))
		return
	}
	if err != nil {
		respond.Error(w, h.logger, r, apperr.Transient("sweeper.trigger", err))
		return
	}
	h.logger.Info("manual sweep", "admin_id", caller.ID, "cancelled", res.Cancelled)
	respond.JSON(w, http.StatusOK, res)
}
