package app

import (
	"fmt"

	"github.com/allisson/filecatalog/internal/integrity"
	"github.com/allisson/filecatalog/internal/search/projection"
)

// IntegrityService returns the full-text integrity service.
func (c *Container) IntegrityService() (integrity.Checker, error) {
	var err error
	c.integrityServiceInit.Do(func() {
		c.integrityService, err = c.initIntegrityService()
		if err != nil {
			c.initErrors["integrityService"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["integrityService"]; exists {
		return nil, storedErr
	}
	return c.integrityService, nil
}

// initIntegrityService creates the integrity service with all its dependencies.
func (c *Container) initIntegrityService() (integrity.Checker, error) {
	logger := c.Logger()

	fileRepo, err := c.FileRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get file repository for integrity service: %w", err)
	}

	store, err := c.IndexStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get index store for integrity service: %w", err)
	}

	indexer, err := c.Indexer()
	if err != nil {
		return nil, fmt.Errorf("failed to get indexer for integrity service: %w", err)
	}

	baseService := integrity.NewService(
		integrity.Config{},
		fileRepo,
		store,
		indexer,
		projection.MetadataContentProvider{},
		logger,
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for integrity service: %w", err)
		}
		pipelineMetrics, err := c.PipelineMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get pipeline metrics for integrity service: %w", err)
		}
		return integrity.NewServiceWithMetrics(baseService, businessMetrics, pipelineMetrics), nil
	}

	return baseService, nil
}
