package appointments

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/doconsult-api/internal/http/respond"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// Handler serves /api/appointments.
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

// Routes returns the router mounted at /api/appointments. Every route needs an
// authenticated caller.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.book)
	r.Get("/", h.listMine)
	r.Get("/today", h.today)
	r.Get("/{appointmentID}", h.get)
	r.Patch("/{appointmentID}/status", h.setStatus)
	r.Post("/{appointmentID}/pay", h.pay)
	r.Delete("/{appointmentID}", h.cancel)
	return r
}

func (h *Handler) book(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	var req BookRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.BadRequest(w, "invalid JSON body")
		return
	}
	v, err := h.service.Book(r.Context(), caller, req)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, v)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	limit, offset := respond.Page(r)
	f := ListFilter{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := ParseStatus(raw)
		if err != nil {
			respond.BadRequest(w, "unknown status")
			return
		}
		f.Status = &st
	}
	out, err := h.service.ListMine(r.Context(), caller, f)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"appointments": out, "count": len(out)})
}

func (h *Handler) today(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	out, err := h.service.TodayForDoctor(r.Context(), caller)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"appointments": out, "count": len(out)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	id, ok := respond.UUIDParam(r, "appointmentID")
	if !ok {
		respond.BadRequest(w, "invalid appointment id")
		return
	}
	v, err := h.service.Get(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	id, ok := respond.UUIDParam(r, "appointmentID")
	if !ok {
		respond.BadRequest(w, "invalid appointment id")
		return
	}
	var req struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.BadRequest(w, "invalid JSON body")
		return
	}
	st, err := ParseStatus(req.Status)
	if err != nil {
		respond.BadRequest(w, "unknown status")
		return
	}
	v, err := h.service.SetStatus(r.Context(), caller, id, st, req.Reason)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	id, ok := respond.UUIDParam(r, "appointmentID")
	if !ok {
		respond.BadRequest(w, "invalid appointment id")
		return
	}
	var req struct {
		PaymentID string `json:"payment_id"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.BadRequest(w, "invalid JSON body")
		return
	}
	v, err := h.service.ConfirmPayment(r.Context(), caller, id, req.PaymentID)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	id, ok := respond.UUIDParam(r, "appointmentID")
	if !ok {
		respond.BadRequest(w, "invalid appointment id")
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.BadRequest(w, "invalid JSON body")
		return
	}
	if req.Reason == "" {
		req.Reason = r.URL.Query().Get("reason")
	}
	v, err := h.service.Cancel(r.Context(), caller, id, req.Reason)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}
