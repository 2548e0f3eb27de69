package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Genius-apple/open-alpha/internal/dataset"
	"github.com/Genius-apple/open-alpha/pkg/config"
	"github.com/Genius-apple/open-alpha/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{
		Env:      "development",
		LogLevel: "error", // Reduce log noise
	})
}

func testService(t *testing.T, files ...string) *dataset.Service {
	t.Helper()
	dir := t.TempDir()
	for _, name := range files {
		// The catalog scan only looks at file names.
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("date,open,high,low,close,volume\n"), 0o644))
	}
	log := testLogger()
	return dataset.NewService(dataset.NewLoader(dir, log), time.Minute, time.Minute, log)
}

func TestCatalogRefreshJob(t *testing.T) {
	svc := testService(t, "BTC_1d.csv", "BTC_4h.csv", "ETH_1d.csv")
	job := NewCatalogRefreshJob(svc, "@every 5m", testLogger())

	assert.Equal(t, "catalog_refresh", job.Name())
	assert.Equal(t, "@every 5m", job.Schedule())

	require.NoError(t, job.Run(context.Background()))

	catalog, err := svc.Catalog()
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"BTC": {"1d", "4h"},
		"ETH": {"1d"},
	}, catalog)
}

func TestCatalogRefreshJobEmptyDir(t *testing.T) {
	svc := testService(t)
	job := NewCatalogRefreshJob(svc, "@every 5m", testLogger())

	require.NoError(t, job.Run(context.Background()))

	catalog, err := svc.Catalog()
	require.NoError(t, err)
	assert.Empty(t, catalog)
}
