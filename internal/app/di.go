// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dsorch/orchestrator/internal/clock"
	"github.com/dsorch/orchestrator/internal/config"
	"github.com/dsorch/orchestrator/internal/connector"
	"github.com/dsorch/orchestrator/internal/http"
	"github.com/dsorch/orchestrator/internal/httpclient"
	"github.com/dsorch/orchestrator/internal/metrics"
	orchestrationHTTP "github.com/dsorch/orchestrator/internal/orchestration/http"
	"github.com/dsorch/orchestrator/internal/orchestration/repository"
	"github.com/dsorch/orchestrator/internal/orchestration/usecase"
	"github.com/dsorch/orchestrator/internal/storage"
)

// connectorRateBurst is the burst allowed when outbound connector calls are paced.
const connectorRateBurst = 5

// lazy holds a component built on first access. A failed build is remembered and returned
// on every later access.
type lazy[T any] struct {
	once  sync.Once
	value T
	err   error
}

func (l *lazy[T]) get(build func() (T, error)) (T, error) {
	l.once.Do(func() {
		l.value, l.err = build()
	})
	return l.value, l.err
}

// Container holds all application dependencies and provides methods to access them.
// Components are created on first access.
type Container struct {
	config *config.Config

	loggerInit sync.Once
	logger     *slog.Logger

	clock clock.Clock

	metricsProvider      lazy[*metrics.Provider]
	businessMetrics      lazy[metrics.BusinessMetrics]
	httpClient           lazy[*httpclient.Client]
	connector            lazy[*connector.Client]
	fileStore            lazy[*storage.FileStore]
	processRepository    lazy[*repository.MemoryProcessRepository]
	transferUseCase      lazy[usecase.TransferUseCase]
	statusUseCase        lazy[usecase.StatusUseCase]
	retentionUseCase     lazy[usecase.RetentionUseCase]
	retentionWorker      lazy[*usecase.RetentionWorker]
	orchestrationHandler lazy[*orchestrationHTTP.OrchestrationHandler]
	statusHandler        lazy[*orchestrationHTTP.StatusHandler]
	httpServer           lazy[*http.Server]
	metricsServer        lazy[*http.MetricsServer]
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
		clock:  clock.SystemClock{},
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the JSON logger configured from LOG_LEVEL.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	return c.metricsProvider.get(c.initMetricsProvider)
}

// BusinessMetrics returns the use case metrics recorder. It is a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	return c.businessMetrics.get(c.initBusinessMetrics)
}

// HTTPClient returns the outbound HTTP client shared by every connector call.
func (c *Container) HTTPClient() (*httpclient.Client, error) {
	return c.httpClient.get(c.initHTTPClient)
}

// Connector returns the connector management client.
func (c *Container) Connector() (*connector.Client, error) {
	return c.connector.get(c.initConnector)
}

// FileStore returns the store downloaded payloads are written to.
func (c *Container) FileStore() (*storage.FileStore, error) {
	return c.fileStore.get(c.initFileStore)
}

// ProcessRepository returns the in-memory orchestration store.
func (c *Container) ProcessRepository() (*repository.MemoryProcessRepository, error) {
	return c.processRepository.get(c.initProcessRepository)
}

// TransferUseCase returns the orchestration workflow.
func (c *Container) TransferUseCase() (usecase.TransferUseCase, error) {
	return c.transferUseCase.get(c.initTransferUseCase)
}

// StatusUseCase returns the status query service.
func (c *Container) StatusUseCase() (usecase.StatusUseCase, error) {
	return c.statusUseCase.get(c.initStatusUseCase)
}

// RetentionUseCase returns the retention sweep.
func (c *Container) RetentionUseCase() (usecase.RetentionUseCase, error) {
	return c.retentionUseCase.get(c.initRetentionUseCase)
}

// RetentionWorker returns the scheduled retention sweep, or nil when retention is disabled.
func (c *Container) RetentionWorker() (*usecase.RetentionWorker, error) {
	return c.retentionWorker.get(c.initRetentionWorker)
}

// OrchestrationHandler returns the HTTP handler for orchestration requests.
func (c *Container) OrchestrationHandler() (*orchestrationHTTP.OrchestrationHandler, error) {
	return c.orchestrationHandler.get(c.initOrchestrationHandler)
}

// StatusHandler returns the HTTP handler for status queries.
func (c *Container) StatusHandler() (*orchestrationHTTP.StatusHandler, error) {
	return c.statusHandler.get(c.initStatusHandler)
}

// HTTPServer returns the API server with its router configured.
func (c *Container) HTTPServer() (*http.Server, error) {
	return c.httpServer.get(c.initHTTPServer)
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	return c.metricsServer.get(c.initMetricsServer)
}

// Shutdown releases every initialized resource. Servers are stopped by the caller.
func (c *Container) Shutdown(ctx context.Context) error {
	var shutdownErrors []error

	if store, err := c.fileStore.value, c.fileStore.err; store != nil && err == nil {
		if err := store.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("file store close: %w", err))
		}
	}

	if provider := c.metricsProvider.value; provider != nil {
		if err := provider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	return errors.Join(shutdownErrors...)
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}

	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}

	repo, err := c.ProcessRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get process repository for metrics provider: %w", err)
	}

	err = metrics.RegisterProcessGauge(provider.MeterProvider(), c.config.MetricsNamespace, repo.CountByStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to register process gauge: %w", err)
	}

	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

func (c *Container) initHTTPClient() (*httpclient.Client, error) {
	return httpclient.New(
		c.config.RequestTimeout,
		httpclient.WithRateLimit(c.config.ConnectorRateLimitRPS, connectorRateBurst),
	), nil
}

func (c *Container) initConnector() (*connector.Client, error) {
	httpClient, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get http client for connector: %w", err)
	}

	return connector.NewClient(
		httpClient,
		c.config.ConnectorManagementURL(),
		c.config.ConnectorManagementPath,
		c.config.ConnectorAPIKey,
	), nil
}

func (c *Container) initFileStore() (*storage.FileStore, error) {
	store, err := storage.NewFileStore(c.config.StorageDir, c.clock)
	if err != nil {
		return nil, fmt.Errorf("failed to open file store: %w", err)
	}
	return store, nil
}

func (c *Container) initProcessRepository() (*repository.MemoryProcessRepository, error) {
	return repository.NewMemoryProcessRepository(c.clock), nil
}

func (c *Container) initTransferUseCase() (usecase.TransferUseCase, error) {
	repo, err := c.ProcessRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get process repository for transfer use case: %w", err)
	}

	conn, err := c.Connector()
	if err != nil {
		return nil, fmt.Errorf("failed to get connector for transfer use case: %w", err)
	}

	store, err := c.FileStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get file store for transfer use case: %w", err)
	}

	baseUseCase := usecase.NewTransferUseCase(
		repo,
		conn,
		store,
		c.clock,
		usecase.TransferConfig{
			DefaultConnectorID: c.config.ConnectorDefaultID,
			EDRMaxRetries:      c.config.EDRMaxRetries,
			EDRRetryDelay:      c.config.EDRRetryDelay,
		},
		c.Logger(),
	)

	return withMetrics(c, baseUseCase, usecase.NewTransferUseCaseWithMetrics)
}

func (c *Container) initStatusUseCase() (usecase.StatusUseCase, error) {
	repo, err := c.ProcessRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get process repository for status use case: %w", err)
	}

	conn, err := c.Connector()
	if err != nil {
		return nil, fmt.Errorf("failed to get connector for status use case: %w", err)
	}

	baseUseCase := usecase.NewStatusUseCase(repo, conn, c.clock, c.config.CacheTTL, c.Logger())

	return withMetrics(c, baseUseCase, usecase.NewStatusUseCaseWithMetrics)
}

func (c *Container) initRetentionUseCase() (usecase.RetentionUseCase, error) {
	repo, err := c.ProcessRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get process repository for retention use case: %w", err)
	}

	baseUseCase := usecase.NewRetentionUseCase(repo, c.clock, c.config.OrchestrationRetention, c.Logger())

	return withMetrics(c, baseUseCase, usecase.NewRetentionUseCaseWithMetrics)
}

func (c *Container) initRetentionWorker() (*usecase.RetentionWorker, error) {
	if c.config.OrchestrationRetention <= 0 {
		return nil, nil
	}

	schedule, err := usecase.ParseSchedule(c.config.OrchestrationSweepSchedule)
	if err != nil {
		return nil, fmt.Errorf("invalid orchestration sweep schedule %q: %w", c.config.OrchestrationSweepSchedule, err)
	}

	retention, err := c.RetentionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get retention use case for retention worker: %w", err)
	}

	return usecase.NewRetentionWorker(schedule, retention, c.Logger()), nil
}

func (c *Container) initOrchestrationHandler() (*orchestrationHTTP.OrchestrationHandler, error) {
	transferUseCase, err := c.TransferUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer use case for orchestration handler: %w", err)
	}
	return orchestrationHTTP.NewOrchestrationHandler(transferUseCase, c.Logger()), nil
}

func (c *Container) initStatusHandler() (*orchestrationHTTP.StatusHandler, error) {
	statusUseCase, err := c.StatusUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get status use case for status handler: %w", err)
	}
	return orchestrationHTTP.NewStatusHandler(statusUseCase, c.Logger()), nil
}

func (c *Container) initHTTPServer() (*http.Server, error) {
	orchestrationHandler, err := c.OrchestrationHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get orchestration handler for http server: %w", err)
	}

	statusHandler, err := c.StatusHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get status handler for http server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(c.config, orchestrationHandler, statusHandler, provider, c.config.MetricsNamespace)

	return server, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}

	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}

// withMetrics wraps useCase with its metrics decorator when metrics are enabled.
func withMetrics[T any](
	c *Container,
	useCase T,
	decorate func(T, metrics.BusinessMetrics) T,
) (T, error) {
	if !c.config.MetricsEnabled {
		return useCase, nil
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to get business metrics: %w", err)
	}
	return decorate(useCase, businessMetrics), nil
}
