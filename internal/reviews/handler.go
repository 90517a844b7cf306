package reviews

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/doconsult-api/internal/http/respond"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// Handler serves /api/reviews.
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

// Routes returns the router mounted at /api/reviews. Listing a doctor's
// reviews is public.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Delete("/{reviewID}", h.delete)
	r.Get("/doctor/{doctorID}", h.listForDoctor)
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
	review, agg, err := h.service.Create(r.Context(), caller, req)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{"review": review, "doctor_rating": agg})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	id, ok := respond.UUIDParam(r, "reviewID")
	if !ok {
		respond.BadRequest(w, "invalid review id")
		return
	}
	agg, err := h.service.Delete(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"doctor_rating": agg})
}

func (h *Handler) listForDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.UUIDParam(r, "doctorID")
	if !ok {
		respond.BadRequest(w, "invalid doctor id")
		return
	}
	limit, offset := respond.Page(r)
	out, err := h.service.ListForDoctor(r.Context(), id, limit, offset)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	if out == nil {
		out = []Review{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"reviews": out, "count": len(out)})
}
