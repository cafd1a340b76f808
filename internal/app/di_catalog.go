package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	auditRepository "github.com/allisson/filecatalog/internal/audit/repository"
	catalogDomain "github.com/allisson/filecatalog/internal/catalog/domain"
	catalogRepository "github.com/allisson/filecatalog/internal/catalog/repository"
	catalogUsecase "github.com/allisson/filecatalog/internal/catalog/usecase"
	"github.com/allisson/filecatalog/internal/catalog/session"
	"github.com/allisson/filecatalog/internal/database"
)

// fileRepository is the union of the file persistence surfaces consumed by
// the write path, the importer, the outbox pipeline, and the integrity
// service. Both driver-specific repositories satisfy it.
type fileRepository interface {
	Create(ctx context.Context, file *catalogDomain.File) error
	Update(ctx context.Context, file *catalogDomain.File, expectedVersion int64) error
	GetByID(ctx context.Context, id uuid.UUID) (*catalogDomain.File, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalogDomain.File, error)
	ConfirmIndexState(ctx context.Context, file *catalogDomain.File) error
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// FileRepository returns the file repository for the primary database.
func (c *Container) FileRepository() (fileRepository, error) {
	var err error
	c.fileRepoInit.Do(func() {
		c.fileRepo, err = c.initFileRepository()
		if err != nil {
			c.initErrors["fileRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fileRepo"]; exists {
		return nil, storedErr
	}
	return c.fileRepo, nil
}

// FileReader returns the read path for single file lookups. Reads go to the
// replica when one is configured, falling back to the primary.
func (c *Container) FileReader() (catalogUsecase.FileReader, error) {
	var err error
	c.fileReaderInit.Do(func() {
		c.fileReader, err = c.initFileReader()
		if err != nil {
			c.initErrors["fileReader"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fileReader"]; exists {
		return nil, storedErr
	}
	return c.fileReader, nil
}

// AuditLogRepository returns the audit log repository based on database driver.
func (c *Container) AuditLogRepository() (session.AuditLogRepository, error) {
	var err error
	c.auditLogRepoInit.Do(func() {
		c.auditLogRepo, err = c.initAuditLogRepository()
		if err != nil {
			c.initErrors["auditLogRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditLogRepo"]; exists {
		return nil, storedErr
	}
	return c.auditLogRepo, nil
}

// EventLogRepository returns the event log repository based on database driver.
func (c *Container) EventLogRepository() (session.EventLogRepository, error) {
	var err error
	c.eventLogRepoInit.Do(func() {
		c.eventLogRepo, err = c.initEventLogRepository()
		if err != nil {
			c.initErrors["eventLogRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventLogRepo"]; exists {
		return nil, storedErr
	}
	return c.eventLogRepo, nil
}

// SessionInterceptor returns the write session interceptor.
func (c *Container) SessionInterceptor() (*session.Interceptor, error) {
	var err error
	c.sessionInterceptorInit.Do(func() {
		c.sessionInterceptor, err = c.initSessionInterceptor()
		if err != nil {
			c.initErrors["sessionInterceptor"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionInterceptor"]; exists {
		return nil, storedErr
	}
	return c.sessionInterceptor, nil
}

// FileUseCase returns the file use case.
func (c *Container) FileUseCase() (catalogUsecase.UseCase, error) {
	var err error
	c.fileUseCaseInit.Do(func() {
		c.fileUseCase, err = c.initFileUseCase()
		if err != nil {
			c.initErrors["fileUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fileUseCase"]; exists {
		return nil, storedErr
	}
	return c.fileUseCase, nil
}

// initFileRepository creates the file repository based on the database driver.
func (c *Container) initFileRepository() (fileRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for file repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return catalogRepository.NewPostgreSQLFileRepository(db), nil
	case "mysql":
		return catalogRepository.NewMySQLFileRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initFileReader creates the read path, preferring the replica connection.
func (c *Container) initFileReader() (catalogUsecase.FileReader, error) {
	primary, err := c.FileRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get file repository for file reader: %w", err)
	}

	replicaDB, err := c.ReplicaDB()
	if err != nil {
		return nil, fmt.Errorf("failed to get replica database for file reader: %w", err)
	}
	if replicaDB == nil {
		return primary, nil
	}

	var replica catalogRepository.FileReader
	switch c.config.DBDriver {
	case "postgres":
		replica = catalogRepository.NewPostgreSQLFileRepository(replicaDB)
	case "mysql":
		replica = catalogRepository.NewMySQLFileRepository(replicaDB)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}

	return catalogRepository.NewReplicaFileReader(replica, primary), nil
}

// initAuditLogRepository creates the audit log repository based on the database driver.
func (c *Container) initAuditLogRepository() (session.AuditLogRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit log repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return auditRepository.NewPostgreSQLAuditLogRepository(db), nil
	case "mysql":
		return auditRepository.NewMySQLAuditLogRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initEventLogRepository creates the event log repository based on the database driver.
func (c *Container) initEventLogRepository() (session.EventLogRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for event log repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return auditRepository.NewPostgreSQLEventLogRepository(db), nil
	case "mysql":
		return auditRepository.NewMySQLEventLogRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSessionInterceptor creates the session interceptor. Write sessions run
// under a busy-retrying transaction manager.
func (c *Container) initSessionInterceptor() (*session.Interceptor, error) {
	logger := c.Logger()

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for session interceptor: %w", err)
	}

	auditLogRepo, err := c.AuditLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log repository for session interceptor: %w", err)
	}

	eventLogRepo, err := c.EventLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event log repository for session interceptor: %w", err)
	}

	onRetry := database.RetryObserver(func(ctx context.Context, attempt int) {
		logger.Warn("write session transaction busy, retrying", slog.Int("attempt", attempt))
	})
	if c.config.MetricsEnabled {
		pipelineMetrics, err := c.PipelineMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get pipeline metrics for session interceptor: %w", err)
		}
		onRetry = func(ctx context.Context, attempt int) {
			logger.Warn("write session transaction busy, retrying", slog.Int("attempt", attempt))
			pipelineMetrics.RecordBusyRetries(ctx, "session", 1)
		}
	}

	retrying := database.NewRetryingTxManager(txManager, c.config.DBBusyRetries, onRetry)

	return session.NewInterceptor(retrying, auditLogRepo, eventLogRepo), nil
}

// initFileUseCase creates the file use case with all its dependencies.
func (c *Container) initFileUseCase() (catalogUsecase.UseCase, error) {
	interceptor, err := c.SessionInterceptor()
	if err != nil {
		return nil, fmt.Errorf("failed to get session interceptor for file use case: %w", err)
	}

	fileRepo, err := c.FileRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get file repository for file use case: %w", err)
	}

	fileReader, err := c.FileReader()
	if err != nil {
		return nil, fmt.Errorf("failed to get file reader for file use case: %w", err)
	}

	outboxUseCase, err := c.OutboxUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox use case for file use case: %w", err)
	}

	baseUseCase := catalogUsecase.NewFileUseCase(interceptor, fileRepo, fileReader, outboxUseCase)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for file use case: %w", err)
		}
		return catalogUsecase.NewFileUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
