package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-pipeline/internal/services/health"
	"resume-pipeline/internal/shared/metrics"
	"resume-pipeline/internal/shared/server/middleware"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"pong": true}) })
	rg.POST("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"pong": true}) })
}

func newTestRouter(t *testing.T, hs *health.Service) (*gin.Engine, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	return NewRouter(Options{
		CORSOrigins: []string{"http://localhost:5173"},
		Metrics:     m,
		Gatherer:    reg,
		Health:      hs,
		RateLimits:  map[string]middleware.RateLimitRule{"WRITE": {Rate: 1, Burst: 1}},
		Routes:      []RouteRegistrar{pingRoutes{}},
	}), reg
}

func TestRouterHealthIsPublic(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestRouterReadinessReportsFailures(t *testing.T) {
	hs := health.NewService()
	hs.Register("mongo", func(context.Context) error { return errors.New("no reachable servers") })
	r, _ := newTestRouter(t, hs)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var report health.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.False(t, report.OK)
	assert.Equal(t, "no reachable servers", report.Checks["mongo"])
}

func TestRouterAPIRequiresIdentity(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-User-Id", "5")
	req.Header.Set("X-User-Role", "recruiter")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"recruiter"`)
	assert.Contains(t, w.Body.String(), `"canUpload":false`)
}

func TestRouterRateLimitsWrites(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ping", nil)
		req.Header.Set("X-User-Id", "9")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("X-User-Id", "9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterExposesMetrics(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `http_requests_total{method="GET",route="/healthz",status="200"} 1`))
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}

func TestNewHTTPServerWrapsHandler(t *testing.T) {
	srv := NewHTTPServer(":0", http.NotFoundHandler())
	require.NotNil(t, srv.Handler)
	assert.Equal(t, ":0", srv.Addr)
}
