package fetcher

import (
	"context"
	"sync"
	"time"

	"proxyfinder/internal/shared/logger"
	"proxyfinder/proxypool/model"
	"proxyfinder/proxypool/scraper"
)

// MaxWorkers bounds the fan-out pool regardless of how many sources are
// configured.
const MaxWorkers = 5

// Fetcher fans source fetches out across a bounded worker pool and fans
// the results back in. It performs no retries; retry policy belongs to
// the rotation manager.
type Fetcher struct {
	sourceTimeout  time.Duration
	globalDeadline time.Duration
}

// New creates a Fetcher. sourceTimeout bounds each individual source
// fetch; globalDeadline bounds the whole round.
func New(sourceTimeout, globalDeadline time.Duration) *Fetcher {
	if sourceTimeout <= 0 {
		sourceTimeout = 10 * time.Second
	}
	if globalDeadline <= 0 {
		globalDeadline = 30 * time.Second
	}
	return &Fetcher{
		sourceTimeout:  sourceTimeout,
		globalDeadline: globalDeadline,
	}
}

type sourceResult struct {
	source     string
	candidates []model.CandidateProxy
}

// Fetch queries all sources concurrently and returns the combined raw
// candidates. A source that errors or times out contributes nothing and
// never delays the others. When the global deadline elapses, results
// collected so far are returned and in-flight fetches are abandoned.
// Result order across sources is unspecified.
func (f *Fetcher) Fetch(ctx context.Context, sources []scraper.SourceSpec, country string) []model.CandidateProxy {
	l := logger.WithComponent("ProxyPool/Fetcher")
	if len(sources) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.globalDeadline)
	defer cancel()

	workers := MaxWorkers
	if len(sources) < workers {
		workers = len(sources)
	}

	// Buffered so abandoned workers can still complete their send and
	// exit; their results are simply never drained.
	results := make(chan sourceResult, len(sources))
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, src := range sources {
		wg.Add(1)
		go func(spec scraper.SourceSpec) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				return
			}

			srcCtx, srcCancel := context.WithTimeout(ctx, f.sourceTimeout)
			defer srcCancel()

			candidates, err := spec.Fetch(srcCtx, country)
			if err != nil {
				l.Warn().Err(err).Str("source", spec.Name).Msg("Source fetch failed.")
				return
			}
			l.Info().Int("count", len(candidates)).Str("source", spec.Name).Msg("Source fetch finished.")
			results <- sourceResult{source: spec.Name, candidates: candidates}
		}(src)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		l.Warn().Dur("deadline", f.globalDeadline).Msg("Global fetch deadline reached, abandoning in-flight sources.")
	}

	// Drain whatever completed in time.
	var all []model.CandidateProxy
	for {
		select {
		case r := <-results:
			all = append(all, r.candidates...)
		default:
			l.Info().Int("total", len(all)).Int("sources", len(sources)).Msg("Fetch round complete.")
			return all
		}
	}
}
