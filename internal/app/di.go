// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	catalogHTTP "github.com/allisson/filecatalog/internal/catalog/http"
	catalogUsecase "github.com/allisson/filecatalog/internal/catalog/usecase"
	"github.com/allisson/filecatalog/internal/catalog/session"
	"github.com/allisson/filecatalog/internal/config"
	"github.com/allisson/filecatalog/internal/database"
	"github.com/allisson/filecatalog/internal/http"
	"github.com/allisson/filecatalog/internal/importer"
	"github.com/allisson/filecatalog/internal/integrity"
	"github.com/allisson/filecatalog/internal/metrics"
	outboxHTTP "github.com/allisson/filecatalog/internal/outbox/http"
	outboxUsecase "github.com/allisson/filecatalog/internal/outbox/usecase"
	"github.com/allisson/filecatalog/internal/search/index"
	"github.com/allisson/filecatalog/internal/search/projection"
	"github.com/allisson/filecatalog/internal/search/signature"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger    *slog.Logger
	db        *sql.DB
	replicaDB *sql.DB

	// Managers
	txManager database.TxManager

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	pipelineMetrics metrics.PipelineMetrics

	// Search index
	indexStore          *index.Store
	signatureCalculator *signature.Calculator
	indexer             *projection.Indexer

	// Repositories
	fileRepo     fileRepository
	fileReader   catalogUsecase.FileReader
	auditLogRepo session.AuditLogRepository
	eventLogRepo session.EventLogRepository
	outboxRepo   outboxUsecase.OutboxEventRepository

	// Session
	sessionInterceptor *session.Interceptor

	// Use Cases
	fileUseCase      catalogUsecase.UseCase
	outboxUseCase    outboxUsecase.UseCase
	importUseCase    importer.Importer
	integrityService integrity.Checker

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                      sync.Mutex
	loggerInit              sync.Once
	dbInit                  sync.Once
	replicaDBInit           sync.Once
	txManagerInit           sync.Once
	metricsProviderInit     sync.Once
	businessMetricsInit     sync.Once
	pipelineMetricsInit     sync.Once
	indexStoreInit          sync.Once
	signatureCalculatorInit sync.Once
	indexerInit             sync.Once
	fileRepoInit            sync.Once
	fileReaderInit          sync.Once
	auditLogRepoInit        sync.Once
	eventLogRepoInit        sync.Once
	outboxRepoInit          sync.Once
	sessionInterceptorInit  sync.Once
	fileUseCaseInit         sync.Once
	outboxUseCaseInit       sync.Once
	importUseCaseInit       sync.Once
	integrityServiceInit    sync.Once
	httpServerInit          sync.Once
	metricsServerInit       sync.Once
	initErrors              map[string]error
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

// DB returns the primary database connection.
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

// ReplicaDB returns the read-optimized replica connection, or nil when no
// replica is configured.
func (c *Container) ReplicaDB() (*sql.DB, error) {
	var err error
	c.replicaDBInit.Do(func() {
		if c.config.DBReplicaConnectionString == "" {
			return
		}
		c.replicaDB, err = c.initReplicaDB()
		if err != nil {
			c.initErrors["replicaDB"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["replicaDB"]; exists {
		return nil, storedErr
	}
	return c.replicaDB, nil
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

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
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

	// Flush the metrics provider if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Close the search store if initialized
	if c.indexStore != nil {
		c.indexStore.Close()
	}

	// Close database connections if initialized
	if c.replicaDB != nil {
		if err := c.replicaDB.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("replica database close: %w", err))
		}
	}
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

// initDB creates and configures the primary database connection.
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

// initReplicaDB creates and configures the replica database connection.
func (c *Container) initReplicaDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBReplicaConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to replica database: %w", err)
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

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	fileUseCase, err := c.FileUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get file use case for http server: %w", err)
	}

	importUseCase, err := c.ImportUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get import use case for http server: %w", err)
	}

	integrityService, err := c.IntegrityService()
	if err != nil {
		return nil, fmt.Errorf("failed to get integrity service for http server: %w", err)
	}

	outboxUseCase, err := c.OutboxUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox use case for http server: %w", err)
	}

	routerConfig := http.RouterConfig{
		CORSEnabled:      c.config.CORSEnabled,
		CORSAllowOrigins: c.config.CORSAllowOrigins,
		FileHandler:      catalogHTTP.NewFileHandler(fileUseCase, logger),
		ImportHandler:    catalogHTTP.NewImportHandler(importUseCase, logger),
		IntegrityHandler: catalogHTTP.NewIntegrityHandler(integrityService, logger),
		OutboxHandler:    outboxHTTP.NewOutboxHandler(outboxUseCase, logger),
	}

	if c.config.MetricsEnabled {
		metricsProvider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
		}
		routerConfig.MetricsProvider = metricsProvider
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(routerConfig)

	return server, nil
}
