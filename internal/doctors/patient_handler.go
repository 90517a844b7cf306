package doctors

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/doconsult-api/internal/apperr"
	"github.com/wolfman30/doconsult-api/internal/http/respond"
	"github.com/wolfman30/doconsult-api/internal/identity"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// PatientHandler serves patient profiles and the admin patient directory.
type PatientHandler struct {
	service *Service
	logger  *logging.Logger
}

func NewPatientHandler(service *Service, logger *logging.Logger) *PatientHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PatientHandler{service: service, logger: logger}
}

// Routes returns the router mounted at /api/patients.
func (h *PatientHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/search", h.search)
	r.Get("/profile", h.ownProfile)
	r.Put("/profile", h.saveProfile)
	r.Get("/{patientID}", h.get)
	return r
}

func (h *PatientHandler) list(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, r.URL.Query().Get("search"))
}

func (h *PatientHandler) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		respond.BadRequest(w, "query is required")
		return
	}
	h.serveList(w, r, query)
}

func (h *PatientHandler) serveList(w http.ResponseWriter, r *http.Request, search string) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	q := PatientQuery{Search: search, SortBy: r.URL.Query().Get("sortBy"), Desc: true}
	switch strings.ToLower(r.URL.Query().Get("sortDir")) {
	case "", "desc":
	case "asc":
		q.Desc = false
	default:
		respond.BadRequest(w, "sortDir must be asc or desc")
		return
	}
	q.Limit, q.Offset = respond.Page(r)
	out, err := h.service.ListPatients(r.Context(), caller, q)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	if out == nil {
		out = []Patient{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"patients": out, "count": len(out)})
}

func (h *PatientHandler) ownProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	if caller.Role != identity.RolePatient {
		respond.Error(w, h.logger, r, apperr.Forbidden("doctors.own_patient_profile", "only patients have a patient profile"))
		return
	}
	p, err := h.service.PatientFor(r.Context(), caller, caller.ID)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

func (h *PatientHandler) saveProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	var req PatientProfileRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.BadRequest(w, "invalid JSON body")
		return
	}
	p, err := h.service.SavePatientProfile(r.Context(), caller, req)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

func (h *PatientHandler) get(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	id, ok := respond.UUIDParam(r, "patientID")
	if !ok {
		respond.BadRequest(w, "invalid patient id")
		return
	}
	p, err := h.service.PatientFor(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}
