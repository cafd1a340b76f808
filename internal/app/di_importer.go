package app

import (
	"fmt"

	"github.com/allisson/filecatalog/internal/importer"
)

// ImportUseCase returns the batch import use case.
func (c *Container) ImportUseCase() (importer.Importer, error) {
	var err error
	c.importUseCaseInit.Do(func() {
		c.importUseCase, err = c.initImportUseCase()
		if err != nil {
			c.initErrors["importUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["importUseCase"]; exists {
		return nil, storedErr
	}
	return c.importUseCase, nil
}

// initImportUseCase creates the import use case with all its dependencies.
func (c *Container) initImportUseCase() (importer.Importer, error) {
	logger := c.Logger()

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for import use case: %w", err)
	}

	fileRepo, err := c.FileRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get file repository for import use case: %w", err)
	}

	indexer, err := c.Indexer()
	if err != nil {
		return nil, fmt.Errorf("failed to get indexer for import use case: %w", err)
	}

	outboxUseCase, err := c.OutboxUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox use case for import use case: %w", err)
	}

	limits := importer.Limits{
		MinBatchSize: c.config.ImportMinBatchSize,
		MaxBatchSize: c.config.ImportMaxBatchSize,
		TxRetries:    c.config.DBBusyRetries,
	}

	baseUseCase := importer.NewUseCase(limits, txManager, fileRepo, indexer, outboxUseCase, logger)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for import use case: %w", err)
		}
		pipelineMetrics, err := c.PipelineMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get pipeline metrics for import use case: %w", err)
		}
		return importer.NewUseCaseWithMetrics(baseUseCase, businessMetrics, pipelineMetrics), nil
	}

	return baseUseCase, nil
}
