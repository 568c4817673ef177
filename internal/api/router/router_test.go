package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dorotheo-dental/sage/internal/http/handlers"
)

func TestRouterHealthIsPublic(t *testing.T) {
	handler := New(&Config{
		HealthHandler:     handlers.NewHealthHandler(nil, nil),
		PatientAuthSecret: "secret",
	})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterMetricsIsPublic(t *testing.T) {
	handler := New(&Config{
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		PatientAuthSecret: "secret",
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterPatientAPIRequiresToken(t *testing.T) {
	handler := New(&Config{
		PatientAuthSecret: "secret",
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/appointments", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// No appointments handler is mounted, but the auth middleware still
	// guards the subtree and fires first.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterUnknownRoute(t *testing.T) {
	handler := New(&Config{PatientAuthSecret: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
