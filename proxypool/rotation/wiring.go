package rotation

import (
	"context"
	"time"

	"proxyfinder/internal/shared/types"
	"proxyfinder/proxypool/fetcher"
	"proxyfinder/proxypool/model"
	"proxyfinder/proxypool/scraper"
	"proxyfinder/proxypool/storage"
	"proxyfinder/proxypool/validator"
)

// SourceTable adapts the concurrent fetcher plus the built-in source
// table to the CandidateSource interface.
type SourceTable struct {
	fetcher *fetcher.Fetcher
}

// NewSourceTable wraps f over scraper.DefaultSources.
func NewSourceTable(f *fetcher.Fetcher) *SourceTable {
	return &SourceTable{fetcher: f}
}

// Fetch runs one concurrent round against the default sources for the
// given country ("" means a global fetch).
func (s *SourceTable) Fetch(ctx context.Context, country string) []model.CandidateProxy {
	return s.fetcher.Fetch(ctx, scraper.DefaultSources(country), country)
}

// NewFromConfig assembles the full production pipeline from the loaded
// configuration: default sources behind the concurrent fetcher, the
// two-phase validator and the on-disk cache.
func NewFromConfig(cfg *types.Config) *Manager {
	f := fetcher.New(
		time.Duration(cfg.SourceTimeoutSeconds)*time.Second,
		time.Duration(cfg.FetchDeadlineSeconds)*time.Second,
	)
	v := validator.New(validator.Config{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		Lenient: cfg.Lenient,
	})
	cache := storage.NewFileCache(cfg.CacheConf.Path, cfg.CacheConf.MaxEntries)

	return New(NewSourceTable(f), v, cache, Config{
		MaxRetries:          cfg.MaxRetries,
		MaxAttemptsPerProxy: cfg.MaxAttemptsPerProxy,
		MaxCandidates:       cfg.MaxCandidates,
	})
}
