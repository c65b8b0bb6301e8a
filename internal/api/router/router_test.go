package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/muvance-crm/internal/appointments"
	"github.com/wolfman30/muvance-crm/internal/booking"
	httpmiddleware "github.com/wolfman30/muvance-crm/internal/http/middleware"
	"github.com/wolfman30/muvance-crm/internal/observability/metrics"
	"github.com/wolfman30/muvance-crm/internal/slots"
	"github.com/wolfman30/muvance-crm/internal/users"
	"github.com/wolfman30/muvance-crm/pkg/logging"
)

type fixture struct {
	router http.Handler
	auth   *users.Service
}

func newTestRouter(t *testing.T, checks map[string]HealthCheck) fixture {
	t.Helper()
	logger := logging.Default()
	reg := prometheus.NewRegistry()

	svc := appointments.NewService(appointments.NewInMemoryRepository(), appointments.ServiceOptions{
		Metrics: metrics.NewCRMMetrics(reg),
		Logger:  logger,
	})
	auth := users.NewService(users.NewInMemoryRepository(), "router-secret", time.Hour, logger)
	require.NoError(t, auth.EnsureDefaultAdmin(context.Background(), "admin", "admin@example.com", "pw"))

	r := New(&Config{
		Logger:         logger,
		Appointments:   appointments.NewHandler(svc, booking.DefaultPolicy(), slots.WidgetSlots(), logger),
		Users:          users.NewHandler(auth, logger),
		Tokens:         auth,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		BookingLimiter: httpmiddleware.NewRateLimiter(100, 100),
		HealthChecks:   checks,
	})
	return fixture{router: r, auth: auth}
}

func (f fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f fixture) login(t *testing.T, identifier, password string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/login", "", map[string]string{"identifier": identifier, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func TestRouterHealthEndpoint(t *testing.T) {
	f := newTestRouter(t, nil)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	f = newTestRouter(t, map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	rec = f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestRouterProtectsOperatorRoutes(t *testing.T) {
	f := newTestRouter(t, nil)

	rec := f.do(t, http.MethodGet, "/api/appointments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/appointments", "not-a-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	token := f.login(t, "admin", "pw")
	rec = f.do(t, http.MethodGet, "/api/appointments", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterPublicBookingReachesConsole(t *testing.T) {
	f := newTestRouter(t, nil)

	rec := f.do(t, http.MethodPost, "/api/appointments", "", map[string]string{
		"date":        "2030-06-10",
		"time":        "10:00 AM",
		"fullName":    "Router Test",
		"phoneNumber": "01234567890",
		"email":       "router@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/availability?from=2030-06-01&to=2030-07-01", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "10:00 AM")
	assert.NotContains(t, rec.Body.String(), "Router Test")

	token := f.login(t, "admin@example.com", "pw")
	rec = f.do(t, http.MethodGet, "/api/appointments", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Router Test")

	rec = f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "crm_appointments_created_total")
}

func TestRouterAddUserRequiresAdmin(t *testing.T) {
	f := newTestRouter(t, nil)
	adminToken := f.login(t, "admin", "pw")

	newUser := map[string]string{"username": "op", "email": "op@example.com", "password": "pw2"}
	rec := f.do(t, http.MethodPost, "/api/settings/add-user", adminToken, newUser)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	opToken := f.login(t, "op", "pw2")
	rec = f.do(t, http.MethodPost, "/api/settings/add-user", opToken, map[string]string{
		"username": "op2", "email": "op2@example.com", "password": "pw3",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"Admin access required"}`, rec.Body.String())
}
