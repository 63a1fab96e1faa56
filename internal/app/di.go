// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/JSONbored/claudepro-directory-sub000/internal/breaker"
	"github.com/JSONbored/claudepro-directory-sub000/internal/config"
	"github.com/JSONbored/claudepro-directory-sub000/internal/database"
	"github.com/JSONbored/claudepro-directory-sub000/internal/http"
	"github.com/JSONbored/claudepro-directory-sub000/internal/metrics"
	queueHTTP "github.com/JSONbored/claudepro-directory-sub000/internal/queue/http"
	queueService "github.com/JSONbored/claudepro-directory-sub000/internal/queue/service"
	queueUseCase "github.com/JSONbored/claudepro-directory-sub000/internal/queue/usecase"
	"github.com/JSONbored/claudepro-directory-sub000/internal/rpc"
	webhookHTTP "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/http"
	webhookService "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/service"
	webhookUseCase "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider
	breakerRegistry *breaker.Registry

	// Managers
	txManager database.TxManager

	// Metrics
	businessMetrics metrics.BusinessMetrics
	pipelineMetrics metrics.PipelineMetrics

	// Outbound clients
	rpcClient *rpc.Client
	outbound  *queueService.Outbound

	// Repositories
	eventRepo   webhookUseCase.EventRepository
	messageRepo queueUseCase.MessageRepository

	// Use Cases
	verifier     webhookService.Verifier
	eventUseCase webhookUseCase.EventUseCase
	consumer     queueUseCase.Consumer
	worker       *queueUseCase.Worker

	// HTTP handlers and servers
	webhookHandler *webhookHTTP.WebhookHandler
	queueHandler   *queueHTTP.QueueHandler
	httpServer     *http.Server
	metricsServer  *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	pipelineMetricsInit sync.Once
	breakerRegistryInit sync.Once
	txManagerInit       sync.Once
	rpcClientInit       sync.Once
	outboundInit        sync.Once
	eventRepoInit       sync.Once
	messageRepoInit     sync.Once
	verifierInit        sync.Once
	eventUseCaseInit    sync.Once
	consumerInit        sync.Once
	workerInit          sync.Once
	webhookHandlerInit  sync.Once
	queueHandlerInit    sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry metrics provider.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business operation metrics recorder.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// PipelineMetrics returns the ingestion pipeline metrics recorder.
func (c *Container) PipelineMetrics() (metrics.PipelineMetrics, error) {
	var err error
	c.pipelineMetricsInit.Do(func() {
		c.pipelineMetrics, err = c.initPipelineMetrics()
		if err != nil {
			c.initErrors["pipelineMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["pipelineMetrics"]; exists {
		return nil, storedErr
	}
	return c.pipelineMetrics, nil
}

// BreakerRegistry returns the shared circuit breaker registry.
func (c *Container) BreakerRegistry() (*breaker.Registry, error) {
	var err error
	c.breakerRegistryInit.Do(func() {
		c.breakerRegistry, err = c.initBreakerRegistry()
		if err != nil {
			c.initErrors["breakerRegistry"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["breakerRegistry"]; exists {
		return nil, storedErr
	}
	return c.breakerRegistry, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown HTTP servers if initialized
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	// Flush metrics if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
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

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initBusinessMetrics creates the business metrics recorder. When metrics
// are disabled the recorder is a no-op so callers never branch.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	if !c.config.MetricsEnabled {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

// initPipelineMetrics creates the pipeline metrics recorder.
func (c *Container) initPipelineMetrics() (metrics.PipelineMetrics, error) {
	if !c.config.MetricsEnabled {
		return metrics.NewNoOpPipelineMetrics(), nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for pipeline metrics: %w", err)
	}
	return metrics.NewPipelineMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

// initBreakerRegistry creates the breaker registry shared by the RPC
// client and the outbound HTTP client. Transition observation is wired
// before any breaker is created.
func (c *Container) initBreakerRegistry() (*breaker.Registry, error) {
	registry := breaker.NewRegistry(c.Logger())

	pipelineMetrics, err := c.PipelineMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline metrics for breaker registry: %w", err)
	}
	registry.OnTransition(func(key string, from, to breaker.State) {
		pipelineMetrics.RecordBreakerTransition(context.Background(), key, string(from), string(to))
	})

	return registry, nil
}
