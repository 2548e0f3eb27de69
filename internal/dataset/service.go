package dataset

import (
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/Genius-apple/open-alpha/internal/metrics"
	"github.com/Genius-apple/open-alpha/pkg/logger"
)

const catalogKey = "catalog"

// Service serves frames and the symbol catalog with an in-memory TTL
// cache in front of the loader. Safe for concurrent use.
type Service struct {
	loader *Loader
	cache  *cache.Cache
	log    *logger.Logger
}

// NewService creates a dataset service backed by loader.
func NewService(loader *Loader, ttl, purge time.Duration, log *logger.Logger) *Service {
	return &Service{
		loader: loader,
		cache:  cache.New(ttl, purge),
		log:    log,
	}
}

// Catalog returns the available intervals per symbol.
func (s *Service) Catalog() (map[string][]string, error) {
	if cached, found := s.cache.Get(catalogKey); found {
		if catalog, ok := cached.(map[string][]string); ok {
			return catalog, nil
		}
	}
	return s.RefreshCatalog()
}

// RefreshCatalog rescans the data directory and replaces the cached
// catalog. Frames cached for symbols that disappeared simply expire.
func (s *Service) RefreshCatalog() (map[string][]string, error) {
	catalog, err := s.loader.Catalog()
	if err != nil {
		return nil, err
	}
	s.cache.Set(catalogKey, catalog, cache.DefaultExpiration)
	s.log.Debugf("catalog refreshed: %d symbols", len(catalog))
	return catalog, nil
}

// Frame returns the full candle frame for symbol/interval.
func (s *Service) Frame(symbol, interval string) (*Frame, error) {
	key := frameKey(symbol, interval)
	if cached, found := s.cache.Get(key); found {
		if frame, ok := cached.(*Frame); ok {
			metrics.RecordDatasetLoad("cache")
			return frame, nil
		}
	}

	frame, err := s.loader.LoadAll(symbol, interval)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, frame, cache.DefaultExpiration)
	metrics.RecordDatasetLoad("disk")
	return frame, nil
}

// Range returns the candle frame for symbol/interval restricted to
// from <= timestamp <= to. Zero bounds are unbounded.
func (s *Service) Range(symbol, interval string, from, to time.Time) (*Frame, error) {
	frame, err := s.Frame(symbol, interval)
	if err != nil {
		return nil, err
	}
	return frame.Slice(from, to), nil
}

// Flush drops every cached frame and the catalog.
func (s *Service) Flush() {
	s.cache.Flush()
}

func frameKey(symbol, interval string) string {
	return fmt.Sprintf("frame:%s:%s", symbol, interval)
}
