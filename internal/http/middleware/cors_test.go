package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(t *testing.T, origins []string, method, origin string, headers map[string]string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	reached := false
	h := CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.Header().Set("X-Request-ID", "req-42")
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, "/api/doctors", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, reached
}

func TestCORSListedOriginExposesRequestID(t *testing.T) {
	rec, reached := corsRequest(t, []string{"https://app.doconsult.in"}, http.MethodGet, "https://app.doconsult.in", nil)

	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.doconsult.in", rec.Header().Get("Access-Control-Allow-Origin"))
	exposed := strings.ToLower(rec.Header().Get("Access-Control-Expose-Headers"))
	assert.Contains(t, exposed, "x-request-id")
	assert.Contains(t, exposed, "retry-after")
	assert.Contains(t, strings.Join(rec.Header().Values("Vary"), ","), "Origin")
}

func TestCORSOrigins(t *testing.T) {
	origins := []string{" https://app.doconsult.in ", "https://*.clinics.doconsult.in", ""}
	cases := []struct {
		origin string
		allow  bool
	}{
		{"https://app.doconsult.in", true},
		{"https://apollo.clinics.doconsult.in", true},
		{"https://clinics.doconsult.in.evil.example", false},
		{"http://app.doconsult.in", false},
		{"https://admin.doconsult.in", false},
	}
	for _, tc := range cases {
		t.Run(tc.origin, func(t *testing.T) {
			rec, reached := corsRequest(t, origins, http.MethodGet, tc.origin, nil)
			assert.True(t, reached)
			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tc.allow {
				assert.Equal(t, tc.origin, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestCORSAnyOrigin(t *testing.T) {
	rec, _ := corsRequest(t, []string{"*"}, http.MethodGet, "https://partner.example", nil)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSDisabledWithoutOrigins(t *testing.T) {
	for _, origins := range [][]string{nil, {" ", ""}} {
		rec, reached := corsRequest(t, origins, http.MethodGet, "https://app.doconsult.in", nil)
		assert.True(t, reached)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORSPreflight(t *testing.T) {
	origins := []string{"https://app.doconsult.in"}

	t.Run("booking request", func(t *testing.T) {
		rec, reached := corsRequest(t, origins, http.MethodOptions, "https://app.doconsult.in", map[string]string{
			"Access-Control-Request-Method":  http.MethodPost,
			"Access-Control-Request-Headers": "authorization,content-type,x-request-id",
		})
		assert.False(t, reached)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://app.doconsult.in", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.MethodPost, rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Contains(t, strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), "authorization")
		assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("unknown origin", func(t *testing.T) {
		rec, reached := corsRequest(t, origins, http.MethodOptions, "https://evil.example", map[string]string{
			"Access-Control-Request-Method": http.MethodDelete,
		})
		assert.False(t, reached)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec, _ := corsRequest(t, origins, http.MethodOptions, "https://app.doconsult.in", map[string]string{
			"Access-Control-Request-Method": "TRACE",
		})
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("header not allowed", func(t *testing.T) {
		rec, _ := corsRequest(t, origins, http.MethodOptions, "https://app.doconsult.in", map[string]string{
			"Access-Control-Request-Method":  http.MethodGet,
			"Access-Control-Request-Headers": "x-debug-user",
		})
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
