package doctors

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/doconsult-api/internal/clock"
	"github.com/wolfman30/doconsult-api/internal/http/respond"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// BookedSlotLister reports slot times already held on a date.
type BookedSlotLister interface {
	BookedSlots(ctx context.Context, doctorID uuid.UUID, date clock.Date) ([]clock.TimeOfDay, error)
}

// Handler serves the doctor directory and schedule endpoints.
type Handler struct {
	service *Service
	booked  BookedSlotLister
	logger  *logging.Logger
}

// NewHandler creates a doctor HTTP handler. booked may be nil, in which case
// /slots lists every slot in the schedule.
func NewHandler(service *Service, booked BookedSlotLister, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, booked: booked, logger: logger}
}

// Routes returns the router mounted at /api/doctors.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/top-rated", h.topRated)
	r.Get("/search", h.search)
	r.Get("/specializations", h.specializations)
	r.Put("/profile", h.updateProfile)
	r.Get("/mgmt/all", h.listAll)
	r.Put("/mgmt/{doctorID}/verify", h.verify)
	r.Get("/{doctorID}", h.get)
	r.Get("/{doctorID}/availability", h.availability)
	r.Put("/{doctorID}/availability", h.replaceAvailability)
	r.Get("/{doctorID}/slots", h.slots)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := respond.Page(r)
	out, err := h.service.ListVerified(r.Context(), limit, offset)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"doctors": nonNil(out), "count": len(out)})
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	q := DoctorQuery{}
	q.Limit, q.Offset = respond.Page(r)
	if raw := r.URL.Query().Get("verified"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respond.BadRequest(w, "verified must be true or false")
			return
		}
		q.Verified = &v
	}
	out, err := h.service.ListAll(r.Context(), caller, q)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"doctors": nonNil(out), "count": len(out)})
}

func (h *Handler) topRated(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 6
	}
	out, err := h.service.TopRated(r.Context(), limit)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"doctors": nonNil(out), "count": len(out)})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := respond.Page(r)
	f := SearchFilter{Specialization: q.Get("specialization"), Limit: limit, Offset: offset}
	var err error
	if f.MinFee, err = decimalParam(q.Get("minFee")); err != nil {
		respond.BadRequest(w, "invalid minFee")
		return
	}
	if f.MaxFee, err = decimalParam(q.Get("maxFee")); err != nil {
		respond.BadRequest(w, "invalid maxFee")
		return
	}
	if f.MinRating, err = decimalParam(q.Get("minRating")); err != nil {
		respond.BadRequest(w, "invalid minRating")
		return
	}
	out, err := h.service.Search(r.Context(), f)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"doctors": nonNil(out), "count": len(out)})
}

func (h *Handler) specializations(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Specializations(r.Context())
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	if out == nil {
		out = []string{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"specializations": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.UUIDParam(r, "doctorID")
	if !ok {
		respond.BadRequest(w, "invalid doctor id")
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.UUIDParam(r, "doctorID")
	if !ok {
		respond.BadRequest(w, "invalid doctor id")
		return
	}
	blocks, err := h.service.ActiveBlocksFor(r.Context(), id)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	if blocks == nil {
		blocks = []Availability{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"availabilities": blocks})
}

func (h *Handler) replaceAvailability(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	id, ok := respond.UUIDParam(r, "doctorID")
	if !ok {
		respond.BadRequest(w, "invalid doctor id")
		return
	}
	var req struct {
		Availabilities []AvailabilityInput `json:"availabilities"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.BadRequest(w, "invalid JSON body")
		return
	}
	blocks, err := h.service.ReplaceAvailability(r.Context(), caller, id, req.Availabilities)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"availabilities": blocks})
}

func (h *Handler) slots(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.UUIDParam(r, "doctorID")
	if !ok {
		respond.BadRequest(w, "invalid doctor id")
		return
	}
	date, err := clock.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		respond.BadRequest(w, "date must be YYYY-MM-DD")
		return
	}
	blocks, err := h.service.ActiveBlocksFor(r.Context(), id)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	var booked []clock.TimeOfDay
	if h.booked != nil {
		if booked, err = h.booked.BookedSlots(r.Context(), id, date); err != nil {
			respond.Error(w, h.logger, r, err)
			return
		}
	}
	open := OpenSlots(blocks, date, booked)
	if open == nil {
		open = []clock.TimeOfDay{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"date": date, "slots": open})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	var req ProfileUpdate
	if err := respond.Decode(r, &req); err != nil {
		respond.BadRequest(w, "invalid JSON body")
		return
	}
	d, err := h.service.UpdateProfile(r.Context(), caller, req)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	caller, ok := respond.Caller(w, r)
	if !ok {
		return
	}
	id, ok := respond.UUIDParam(r, "doctorID")
	if !ok {
		respond.BadRequest(w, "invalid doctor id")
		return
	}
	d, err := h.service.Verify(r.Context(), caller, id)
	if err != nil {
		respond.Error(w, h.logger, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

func decimalParam(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nonNil(in []Doctor) []Doctor {
	if in == nil {
		return []Doctor{}
	}
	return in
}
