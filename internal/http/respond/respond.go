// Package respond holds the JSON helpers shared by HTTP handlers.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/doconsult-api/internal/apperr"
	"github.com/wolfman30/doconsult-api/internal/identity"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

// Error writes err as {"error": msg, "kind": kind}. Transient failures hide
// their cause from the client and are logged.
func Error(w http.ResponseWriter, logger *logging.Logger, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	msg := "temporarily unavailable"
	var e *apperr.Error
	if kind != apperr.KindTransient && errors.As(err, &e) {
		msg = e.Message()
	}
	if kind == apperr.KindTransient {
		if logger == nil {
			logger = logging.Default()
		}
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	JSON(w, StatusFor(kind), map[string]string{"error": msg, "kind": string(kind)})
}

// BadRequest writes a validation error.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, map[string]string{"error": msg, "kind": string(apperr.KindValidation)})
}

// Decode reads a JSON body into dst. An empty body leaves dst untouched.
func Decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// UUIDParam parses a chi URL parameter as a uuid.
func UUIDParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// Caller returns the authenticated caller or writes 401.
func Caller(w http.ResponseWriter, r *http.Request) (identity.Caller, bool) {
	c, ok := identity.FromContext(r.Context())
	if !ok {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
	}
	return c, ok
}

// Page reads limit and offset query parameters.
func Page(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset == 0 {
		// page/size as used by the web client
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		if size > 0 {
			limit = size
			if page > 0 {
				offset = page * size
			}
		}
	}
	return limit, offset
}
