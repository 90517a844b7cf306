package consultations

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/doconsult-api/internal/http/respond"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// Handler serves /api/consultations.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/appointment/{appointmentID}", h.getByAppointment)
	r.Get("/{consultationID}", h.get)
	r.Put("/{consultationID}", h.update)
	return r
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.BadRequest(w, "invalid JSON body")
		return
	}
	c, err := h.service.Create(r.Context(), caller, req)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, c)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	id, ok := respond.UUIDParam(r, "consultationID")
	if !ok {
		respond.BadRequest(w, "invalid consultation id")
		return
	}
	c, err := h.service.Get(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) getByAppointment(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	id, ok := respond.UUIDParam(r, "appointmentID")
	if !ok {
		respond.BadRequest(w, "invalid appointment id")
		return
	}
	c, err := h.service.GetByAppointment(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	id, ok := respond.UUIDParam(r, "consultationID")
	if !ok {
		respond.BadRequest(w, "invalid consultation id")
		return
	}
	var req UpdateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.BadRequest(w, "invalid JSON body")
		return
	}
	c, err := h.service.Update(r.Context(), caller, id, req)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}
