package jobs

import (
	"context"
	"fmt"

	"github.com/Genius-apple/open-alpha/internal/dataset"
	"github.com/Genius-apple/open-alpha/internal/metrics"
	"github.com/Genius-apple/open-alpha/pkg/logger"
)

// CatalogRefreshJob rescans the data directory so new symbol or
// interval files show up without a restart.
type CatalogRefreshJob struct {
	svc      *dataset.Service
	schedule string
	logger   *logger.Logger
}

// NewCatalogRefreshJob creates a new catalog refresh job
func NewCatalogRefreshJob(svc *dataset.Service, schedule string, log *logger.Logger) *CatalogRefreshJob {
	return &CatalogRefreshJob{
		svc:      svc,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *CatalogRefreshJob) Name() string {
	return "catalog_refresh"
}

// Schedule returns the cron schedule
func (j *CatalogRefreshJob) Schedule() string {
	return j.schedule
}

// Run executes the catalog refresh
func (j *CatalogRefreshJob) Run(ctx context.Context) error {
	catalog, err := j.svc.RefreshCatalog()
	if err != nil {
		return fmt.Errorf("refresh catalog: %w", err)
	}

	metrics.UpdateCatalogSymbols(float64(len(catalog)))
	j.logger.WithField("symbols", len(catalog)).Debug("Catalog refreshed")
	return nil
}
