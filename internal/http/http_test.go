package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsorch/orchestrator/internal/clock"
	"github.com/dsorch/orchestrator/internal/config"
	"github.com/dsorch/orchestrator/internal/metrics"
	orchestrationHTTP "github.com/dsorch/orchestrator/internal/orchestration/http"
	"github.com/dsorch/orchestrator/internal/orchestration/repository"
	"github.com/dsorch/orchestrator/internal/orchestration/usecase"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestServer creates a server routed to an in-memory orchestration stack. Only data
// registrations can succeed since no connector is wired.
func createTestServer(t *testing.T, routePrefix string, provider *metrics.Provider) *Server {
	t.Helper()

	logger := discardLogger()
	clk := clock.SystemClock{}
	repo := repository.NewMemoryProcessRepository(clk)

	transferUseCase := usecase.NewTransferUseCase(repo, nil, nil, clk, usecase.TransferConfig{}, logger)
	statusUseCase := usecase.NewStatusUseCase(repo, nil, clk, time.Second, logger)

	cfg := &config.Config{RoutePrefix: routePrefix, APIKey: "secret"}

	server := NewServer("127.0.0.1", 0, logger)
	server.SetupRouter(
		cfg,
		orchestrationHTTP.NewOrchestrationHandler(transferUseCase, logger),
		orchestrationHTTP.NewStatusHandler(statusUseCase, logger),
		provider,
		"test_app",
	)
	return server
}

func serve(server *Server, method, path string, body any, apiKey string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-Api-Key", apiKey)
	}

	w := httptest.NewRecorder()
	server.GetHandler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestRouter_HealthEndpoint(t *testing.T) {
	server := createTestServer(t, "/orchestrator", nil)

	w := serve(server, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestRouter_ReadyEndpoint_NotStarted(t *testing.T) {
	server := createTestServer(t, "", nil)

	w := serve(server, http.MethodGet, "/ready", nil, "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_ready", decode(t, w)["status"])
}

func TestRouter_OrchestrateAndQuery(t *testing.T) {
	server := createTestServer(t, "/orchestrator", nil)

	w := serve(server, http.MethodPost, "/orchestrator/orchestrate", map[string]any{
		"type":       "data",
		"endpoint":   "https://provider.example/data",
		"auth_type":  "bearer",
		"properties": map[string]any{"owner": "lab"},
	}, "secret")
	require.Equal(t, http.StatusOK, w.Code)

	created := decode(t, w)
	id, ok := created["orchestration_id"].(string)
	require.True(t, ok)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	w = serve(server, http.MethodGet, "/orchestrator/status/"+id, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "REGISTERED", data["process_status"])
	assert.Equal(t, "bearer", data["auth_type"])
	assert.Equal(t, map[string]any{"owner": "lab"}, data["properties"])

	w = serve(server, http.MethodGet, "/orchestrator/status", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	processes := decode(t, w)["data"].(map[string]any)["orchestration_processes"].(map[string]any)
	assert.Contains(t, processes, id)
}

func TestRouter_OrchestrateRequiresAPIKey(t *testing.T) {
	server := createTestServer(t, "", nil)
	body := map[string]any{"type": "data", "endpoint": "https://provider.example/data"}

	assert.Equal(t, http.StatusUnauthorized, serve(server, http.MethodPost, "/orchestrate", body, "").Code)
	assert.Equal(t, http.StatusForbidden, serve(server, http.MethodPost, "/orchestrate", body, "wrong").Code)

	w := serve(server, http.MethodGet, "/status", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["data"].(map[string]any)["orchestration_processes"])
}

func TestRouter_UnknownProcess(t *testing.T) {
	server := createTestServer(t, "", nil)

	w := serve(server, http.MethodGet, "/status/does-not-exist", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ERROR", decode(t, w)["status"])
}

func TestRouter_NotFoundEndpoint(t *testing.T) {
	server := createTestServer(t, "/orchestrator", nil)

	assert.Equal(t, http.StatusNotFound, serve(server, http.MethodGet, "/status", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, serve(server, http.MethodGet, "/nonexistent", nil, "").Code)
}

func TestRouter_RequestIDHeader(t *testing.T) {
	server := createTestServer(t, "", nil)

	w := serve(server, http.MethodGet, "/health", nil, "")

	requestID := w.Header().Get("X-Request-Id")
	require.NotEmpty(t, requestID)
	parsed, err := uuid.Parse(requestID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	server := createTestServer(t, "", nil)
	server.router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := serve(server, http.MethodGet, "/panic", nil, "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestServer_NoMetricsEndpoint(t *testing.T) {
	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	server := createTestServer(t, "", provider)

	assert.Equal(t, http.StatusOK, serve(server, http.MethodGet, "/health", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, serve(server, http.MethodGet, "/metrics", nil, "").Code)
}

func TestMetricsServer_Endpoints(t *testing.T) {
	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	server := createTestServer(t, "", provider)
	serve(server, http.MethodGet, "/health", nil, "")

	metricsServer := NewMetricsServer("localhost", 0, discardLogger(), provider)
	require.NotNil(t, metricsServer)

	w := httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), "test_app_http_requests_total")

	w = httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := createTestServer(t, "", nil)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(context.Background())
	}()

	require.Eventually(t, server.ready.Load, time.Second, 10*time.Millisecond)
	assert.Equal(t, http.StatusOK, serve(server, http.MethodGet, "/ready", nil, "").Code)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(shutdownCtx))

	assert.NoError(t, <-errChan)
	assert.Equal(t, http.StatusServiceUnavailable, serve(server, http.MethodGet, "/ready", nil, "").Code)
}

func TestCustomLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"status": "ERROR"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "/missing", entry["path"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
}
