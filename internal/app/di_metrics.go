package app

import (
	"fmt"

	"github.com/allisson/filecatalog/internal/http"
	"github.com/allisson/filecatalog/internal/metrics"
)

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

// BusinessMetrics returns the business metrics recorder.
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

// PipelineMetrics returns the pipeline metrics recorder.
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

// MetricsServer returns the metrics HTTP server, or nil when metrics are
// disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// initBusinessMetrics creates the business metrics recorder. A no-op recorder
// is returned when metrics are disabled.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	if !c.config.MetricsEnabled {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}

	return metrics.NewBusinessMetrics(metricsProvider.MeterProvider(), metricsProvider.Namespace())
}

// initPipelineMetrics creates the pipeline metrics recorder. A no-op recorder
// is returned when metrics are disabled.
func (c *Container) initPipelineMetrics() (metrics.PipelineMetrics, error) {
	if !c.config.MetricsEnabled {
		return metrics.NewNoOpPipelineMetrics(), nil
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for pipeline metrics: %w", err)
	}

	return metrics.NewPipelineMetrics(metricsProvider.MeterProvider(), metricsProvider.Namespace())
}

// initMetricsServer creates the metrics HTTP server.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}

	return http.NewMetricsServer(
		c.config.ServerHost,
		c.config.MetricsPort,
		c.Logger(),
		metricsProvider,
	), nil
}
