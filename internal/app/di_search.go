package app

import (
	"fmt"

	"github.com/allisson/filecatalog/internal/clock"
	"github.com/allisson/filecatalog/internal/search/index"
	"github.com/allisson/filecatalog/internal/search/projection"
	"github.com/allisson/filecatalog/internal/search/signature"
)

// IndexStore returns the full-text index store.
func (c *Container) IndexStore() (*index.Store, error) {
	var err error
	c.indexStoreInit.Do(func() {
		c.indexStore, err = c.initIndexStore()
		if err != nil {
			c.initErrors["indexStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["indexStore"]; exists {
		return nil, storedErr
	}
	return c.indexStore, nil
}

// SignatureCalculator returns the document signature calculator.
func (c *Container) SignatureCalculator() *signature.Calculator {
	c.signatureCalculatorInit.Do(func() {
		c.signatureCalculator = signature.NewCalculator()
	})
	return c.signatureCalculator
}

// Indexer returns the drift-recovering search projection indexer.
func (c *Container) Indexer() (*projection.Indexer, error) {
	var err error
	c.indexerInit.Do(func() {
		c.indexer, err = c.initIndexer()
		if err != nil {
			c.initErrors["indexer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["indexer"]; exists {
		return nil, storedErr
	}
	return c.indexer, nil
}

// initIndexStore creates the search store from the configured addresses.
func (c *Container) initIndexStore() (*index.Store, error) {
	store, err := index.NewStore(index.Config{
		Addrs:     c.config.SearchAddrList(),
		Username:  c.config.SearchUsername,
		Password:  c.config.SearchPassword,
		IndexName: c.config.SearchIndexName,
		KeyPrefix: c.config.SearchKeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to search store: %w", err)
	}
	return store, nil
}

// initIndexer creates the indexer with its projector and scope factory.
func (c *Container) initIndexer() (*projection.Indexer, error) {
	store, err := c.IndexStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get index store for indexer: %w", err)
	}

	clk := clock.System{}
	projector := projection.NewProjector(store, clk)
	scopeFactory := func() projection.Scope { return store.NewScope() }

	return projection.NewIndexer(c.SignatureCalculator(), projector, scopeFactory, clk), nil
}
