package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"staffdesk/internal/domain/access"
	"staffdesk/internal/platform/config"
	"staffdesk/internal/platform/metrics"
)

func newTestApp(t *testing.T) http.Handler {
	t.Helper()
	app := &App{
		Config: config.Config{
			Environment:     "development",
			TemplatesDir:    "../../../web/templates",
			SessionKey:      strings.Repeat("k", 32),
			SessionTTL:      time.Hour,
			MaxBodyBytes:    1 << 20,
			MaxUploadBytes:  1 << 20,
			RateLimitPerMin: 1000,
			MetricsEnabled:  true,
			StorageBackend:  "local",
			LocalStorageDir: t.TempDir(),
		},
		Log:      zap.NewNop(),
		Resolver: access.NewResolver(nil, nil, nil),
		Metrics:  metrics.New(),
	}
	handler, err := app.Routes()
	require.NoError(t, err)
	return handler
}

func TestRoutesGuardAnonymousCallers(t *testing.T) {
	handler := newTestApp(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
		wantHeader string
	}{
		{name: "health", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK, wantBody: "ok"},
		{name: "api list", method: http.MethodGet, path: "/api/v1/employees", wantStatus: http.StatusUnauthorized, wantBody: `"redirect":"/login"`},
		{name: "api wizard", method: http.MethodPost, path: "/api/v1/wizards", wantStatus: http.StatusUnauthorized, wantBody: `"unauthenticated"`},
		{name: "console admin", method: http.MethodGet, path: "/admin", wantStatus: http.StatusSeeOther, wantHeader: "/login"},
		{name: "console employee", method: http.MethodGet, path: "/employee", wantStatus: http.StatusSeeOther, wantHeader: "/login"},
		{name: "login page", method: http.MethodGet, path: "/login", wantStatus: http.StatusOK, wantBody: "<form"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tc.wantBody)
			}
			if tc.wantHeader != "" {
				assert.Equal(t, tc.wantHeader, rec.Header().Get("Location"))
			}
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestRoutesExposeMetrics(t *testing.T) {
	handler := newTestApp(t)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `staffdesk_http_requests_total{method="GET",route="/healthz",status="200"}`)
}

func TestImageOrigins(t *testing.T) {
	assert.Equal(t, []string{"https://cdn.example.com"}, imageOrigins("https://cdn.example.com/avatars"))
	assert.Nil(t, imageOrigins("/uploads"))
	assert.Nil(t, imageOrigins(""))
}
