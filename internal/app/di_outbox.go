package app

import (
	"fmt"

	outboxRepository "github.com/allisson/filecatalog/internal/outbox/repository"
	outboxUsecase "github.com/allisson/filecatalog/internal/outbox/usecase"
	"github.com/allisson/filecatalog/internal/search/projection"
)

// OutboxRepository returns the outbox event repository based on database driver.
func (c *Container) OutboxRepository() (outboxUsecase.OutboxEventRepository, error) {
	var err error
	c.outboxRepoInit.Do(func() {
		c.outboxRepo, err = c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// OutboxUseCase returns the outbox dispatch use case.
func (c *Container) OutboxUseCase() (outboxUsecase.UseCase, error) {
	var err error
	c.outboxUseCaseInit.Do(func() {
		c.outboxUseCase, err = c.initOutboxUseCase()
		if err != nil {
			c.initErrors["outboxUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxUseCase"]; exists {
		return nil, storedErr
	}
	return c.outboxUseCase, nil
}

// initOutboxRepository creates the outbox event repository based on the database driver.
func (c *Container) initOutboxRepository() (outboxUsecase.OutboxEventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return outboxRepository.NewPostgreSQLOutboxEventRepository(db), nil
	case "mysql":
		return outboxRepository.NewMySQLOutboxEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initOutboxUseCase creates the outbox use case with all its dependencies.
// Dispatch reloads go through the replica-preferring reader; index state
// confirmation writes to the primary.
func (c *Container) initOutboxUseCase() (outboxUsecase.UseCase, error) {
	logger := c.Logger()

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for outbox use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for outbox use case: %w", err)
	}

	fileRepo, err := c.FileRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get file repository for outbox use case: %w", err)
	}

	fileReader, err := c.FileReader()
	if err != nil {
		return nil, fmt.Errorf("failed to get file reader for outbox use case: %w", err)
	}

	indexer, err := c.Indexer()
	if err != nil {
		return nil, fmt.Errorf("failed to get indexer for outbox use case: %w", err)
	}

	repairer, err := c.IntegrityService()
	if err != nil {
		return nil, fmt.Errorf("failed to get integrity service for outbox use case: %w", err)
	}

	pipelineMetrics, err := c.PipelineMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline metrics for outbox use case: %w", err)
	}

	useCaseConfig := outboxUsecase.Config{
		PollInterval: c.config.OutboxPollInterval,
		BatchSize:    c.config.OutboxBatchSize,
		MaxAttempts:  c.config.OutboxMaxAttempts,
		AutoRepair:   c.config.AutoRepairOnCorruption,
	}

	baseUseCase := outboxUsecase.NewOutboxUseCase(
		useCaseConfig,
		txManager,
		outboxRepo,
		fileReader,
		fileRepo,
		projection.MetadataContentProvider{},
		indexer,
		repairer,
		nil,
		pipelineMetrics,
		logger,
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for outbox use case: %w", err)
		}
		pipelineMetrics, err := c.PipelineMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get pipeline metrics for outbox use case: %w", err)
		}
		return outboxUsecase.NewOutboxUseCaseWithMetrics(baseUseCase, businessMetrics, pipelineMetrics), nil
	}

	return baseUseCase, nil
}
