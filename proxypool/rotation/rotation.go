package rotation

import (
	"context"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"proxyfinder/internal/shared/logger"
	"proxyfinder/proxypool/filter"
	"proxyfinder/proxypool/model"
)

// CandidateSource supplies the raw candidates for one fetch round. The
// production implementation fans out across the configured sources; it
// absorbs per-source failures and returns whatever arrived in time.
type CandidateSource interface {
	Fetch(ctx context.Context, country string) []model.CandidateProxy
}

// Checker validates a single candidate. An error means the candidate is
// unusable and is treated as absence, never surfaced.
type Checker interface {
	Check(ctx context.Context, c model.CandidateProxy) (model.ValidatedProxy, error)
}

// Store persists a validated batch. Optional; a nil store disables
// persistence.
type Store interface {
	Save(entries []model.ValidatedProxy) error
}

// Config tunes the rotation manager.
type Config struct {
	// MaxRetries bounds GetOne's fetch->validate rounds.
	MaxRetries int

	// MaxAttemptsPerProxy scales GetMany's attempt budget: the total is
	// MaxAttemptsPerProxy * n. A tunable heuristic carried over from
	// the historical behavior, not a correctness invariant.
	MaxAttemptsPerProxy int

	// MaxCandidates caps how many filtered candidates one round keeps.
	MaxCandidates int
}

// Options scope a single GetOne/GetMany request.
type Options struct {
	// Countries is an allowlist of ISO 3166-1 alpha-2 codes. Multiple
	// countries are fetched one at a time. Validated before any network
	// activity; a bad code is a ConfigurationError.
	Countries []string

	// Anonymity keeps only proxies of the given tier when set.
	Anonymity model.Anonymity
}

// Manager orchestrates fetch -> filter -> validate -> cache rounds to
// satisfy "get one" / "get N" requests. All retry and budget policy
// lives here; the stages below it never retry.
type Manager struct {
	source CandidateSource
	check  Checker
	store  Store
	geo    *filter.GeoResolver
	cfg    Config
}

// New creates a Manager. store may be nil; zero config values get
// defaults.
func New(source CandidateSource, check Checker, store Store, cfg Config) *Manager {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxAttemptsPerProxy <= 0 {
		cfg.MaxAttemptsPerProxy = 10
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 100
	}
	return &Manager{
		source: source,
		check:  check,
		store:  store,
		geo:    filter.NewGeoResolver(),
		cfg:    cfg,
	}
}

// validateOptions normalizes the request before any network activity.
func validateOptions(opts Options) ([]string, error) {
	countries, err := filter.NormalizeCountries(opts.Countries)
	if err != nil {
		return nil, err
	}
	switch opts.Anonymity {
	case "", model.AnonymityTransparent, model.AnonymityAnonymous, model.AnonymityElite:
	default:
		return nil, &model.ConfigurationError{
			Field:  "anonymity",
			Value:  string(opts.Anonymity),
			Reason: "must be transparent, anonymous or elite",
		}
	}
	return countries, nil
}

// fetchCountries returns the per-round fetch targets: each requested
// country in turn, or one global fetch when none were given.
func fetchCountries(countries []string) []string {
	if len(countries) == 0 {
		return []string{""}
	}
	return countries
}

// round fetches and filters the candidates for one country.
func (m *Manager) round(ctx context.Context, country string, allow []string) []model.CandidateProxy {
	raw := m.source.Fetch(ctx, country)
	return filter.Filter(raw, filter.Options{
		Countries: allow,
		MaxCount:  m.cfg.MaxCandidates,
		Geo:       m.geo,
	})
}

// wantTier reports whether a validated proxy satisfies the requested
// anonymity tier.
func wantTier(v model.ValidatedProxy, tier model.Anonymity) bool {
	return tier == "" || v.Anonymity == tier
}

// hintExcludes pre-filters on the source's anonymity claim: a candidate
// whose hint is known and wrong is not worth a probe. Unknown hints are
// kept, since validation may still infer the requested tier.
func hintExcludes(c model.CandidateProxy, tier model.Anonymity) bool {
	return tier != "" && c.AnonymityHint != model.AnonymityUnknown && c.AnonymityHint != "" && c.AnonymityHint != tier
}

// FetchCandidates runs a single fetch->filter round without any
// validation. Presentation layers use it to show the raw candidate
// supply. maxCount <= 0 falls back to the configured round cap.
func (m *Manager) FetchCandidates(ctx context.Context, opts Options, maxCount int) ([]model.CandidateProxy, error) {
	countries, err := validateOptions(opts)
	if err != nil {
		return nil, err
	}
	if maxCount <= 0 {
		maxCount = m.cfg.MaxCandidates
	}

	var raw []model.CandidateProxy
	for _, country := range fetchCountries(countries) {
		raw = append(raw, m.source.Fetch(ctx, country)...)
	}
	return filter.Filter(raw, filter.Options{
		Countries: countries,
		MaxCount:  maxCount,
		Geo:       m.geo,
	}), nil
}

// GetOne returns the first proxy that validates, retrying whole
// fetch->validate rounds up to MaxRetries times. When no round yields a
// proxy the request fails with ExhaustionError.
func (m *Manager) GetOne(ctx context.Context, opts Options) (model.ValidatedProxy, error) {
	countries, err := validateOptions(opts)
	if err != nil {
		return model.ValidatedProxy{}, err
	}

	l := logger.WithComponent("ProxyPool/Rotation").With().
		Str("session", uuid.New().String()).Logger()

	attempts := 0
	for retry := 0; retry < m.cfg.MaxRetries; retry++ {
		if ctx.Err() != nil {
			break
		}
		l.Info().Int("round", retry+1).Int("max_retries", m.cfg.MaxRetries).Msg("Starting fetch round.")

		for _, country := range fetchCountries(countries) {
			candidates := m.round(ctx, country, countries)
			for _, c := range candidates {
				if ctx.Err() != nil {
					break
				}
				if hintExcludes(c, opts.Anonymity) {
					continue
				}
				attempts++
				validated, err := m.check.Check(ctx, c)
				if err != nil {
					continue
				}
				if !wantTier(validated, opts.Anonymity) {
					continue
				}
				l.Info().Str("address", validated.Address).
					Dur("latency", validated.Latency).
					Msg("Found valid proxy.")
				return validated, nil
			}
		}
		l.Warn().Int("round", retry+1).Msg("No valid proxy found this round.")
	}

	return model.ValidatedProxy{}, &model.ExhaustionError{Wanted: 1, Found: 0, Attempts: attempts}
}

// GetMany collects up to n validated proxies across repeated rounds,
// bounded by an attempt budget of MaxAttemptsPerProxy * n. Results are
// sorted by ascending latency and truncated to n. Exhausting the budget
// with zero results is an ExhaustionError; a partial set below n is
// returned without error, so callers needing an exact count must check
// the length.
func (m *Manager) GetMany(ctx context.Context, n int, opts Options) ([]model.ValidatedProxy, error) {
	if n <= 0 {
		return nil, &model.ConfigurationError{Field: "n", Value: "", Reason: "must be positive"}
	}
	countries, err := validateOptions(opts)
	if err != nil {
		return nil, err
	}

	l := logger.WithComponent("ProxyPool/Rotation").With().
		Str("session", uuid.New().String()).Logger()

	budget := m.cfg.MaxAttemptsPerProxy * n
	attempts := 0

	// Session-local state: which addresses were already offered, their
	// candidate records (for the late-budget retry sample) and any
	// validation results, so an address is never probed twice.
	seen := make(map[string]model.CandidateProxy)
	results := make(map[string]model.ValidatedProxy)

	for len(results) < n && attempts < budget && ctx.Err() == nil {
		var fresh []model.CandidateProxy
		for _, country := range fetchCountries(countries) {
			for _, c := range m.round(ctx, country, countries) {
				if _, dup := seen[c.Address]; dup {
					continue
				}
				seen[c.Address] = c
				fresh = append(fresh, c)
			}
		}

		// In the final stretch of the budget, stop giving up on
		// already-seen candidates: flaky proxies sometimes pass on a
		// second probe, and fresh supply is usually gone by now.
		if attempts*5 >= budget*4 {
			fresh = append(fresh, m.sampleSeen(seen, results, n)...)
		}

		if len(fresh) == 0 {
			if stretch := (budget*4 + 4) / 5; attempts < stretch {
				// Fresh supply is gone; skip ahead to the final stretch
				// where already-seen candidates get a second chance.
				attempts = stretch
				continue
			}
			l.Warn().Int("attempts", attempts).Msg("No candidates left to try.")
			break
		}

		before := attempts
		attempts = m.validateBatch(ctx, l, fresh, opts.Anonymity, results, attempts, budget, n)
		if attempts == before {
			// Every candidate this round was skipped; still consume
			// budget so the request terminates.
			attempts++
		}
		l.Info().Int("found", len(results)).Int("wanted", n).Int("attempts", attempts).Int("budget", budget).
			Msg("Round complete.")
	}

	if len(results) == 0 {
		return nil, &model.ExhaustionError{Wanted: n, Found: 0, Attempts: attempts}
	}

	sorted := make([]model.ValidatedProxy, 0, len(results))
	for _, v := range results {
		sorted = append(sorted, v)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Latency < sorted[j].Latency
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	if m.store != nil {
		if err := m.store.Save(sorted); err != nil {
			l.Warn().Err(err).Msg("Failed to persist validated proxies.")
		}
	}
	return sorted, nil
}

// validateBatch probes candidates until the budget or the target count
// runs out, returning the updated attempt counter.
func (m *Manager) validateBatch(ctx context.Context, l zerolog.Logger, candidates []model.CandidateProxy,
	tier model.Anonymity, results map[string]model.ValidatedProxy, attempts, budget, n int) int {

	for _, c := range candidates {
		if len(results) >= n || attempts >= budget || ctx.Err() != nil {
			break
		}
		if _, done := results[c.Address]; done {
			continue
		}
		if hintExcludes(c, tier) {
			continue
		}

		attempts++
		validated, err := m.check.Check(ctx, c)
		if err != nil {
			continue
		}
		if !wantTier(validated, tier) {
			continue
		}
		results[c.Address] = validated
		l.Info().Str("address", validated.Address).Dur("latency", validated.Latency).Msg("Found valid proxy.")
	}
	return attempts
}

// sampleSeen picks a bounded random sample of previously seen, not yet
// validated candidates for a second chance.
func (m *Manager) sampleSeen(seen map[string]model.CandidateProxy, results map[string]model.ValidatedProxy, n int) []model.CandidateProxy {
	pool := make([]model.CandidateProxy, 0, len(seen))
	for addr, c := range seen {
		if _, done := results[addr]; done {
			continue
		}
		pool = append(pool, c)
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > n {
		pool = pool[:n]
	}
	return pool
}
