package validator

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"proxyfinder/internal/shared/logger"
	"proxyfinder/proxypool/model"
)

const (
	// FallbackLatency is the sentinel recorded when every functional
	// probe failed but the candidate is kept under lenient policy.
	FallbackLatency = 999990 * time.Millisecond

	// maxConnectTimeout caps the Phase A socket probe regardless of the
	// configured validation timeout.
	maxConnectTimeout = 5 * time.Second

	// Latency thresholds for the anonymity inference heuristic.
	eliteLatency     = 2 * time.Second
	anonymousLatency = 5 * time.Second
)

// ErrUnreachable marks a Phase A failure: the raw connection to the
// candidate never opened.
var ErrUnreachable = errors.New("proxy unreachable")

// ErrNotFunctional marks a Phase B failure under strict policy: the
// candidate was reachable but forwarded nothing.
var ErrNotFunctional = errors.New("proxy not functional")

// defaultProbeURLs are small, low-risk echo endpoints tried in order
// during the functional probe.
var defaultProbeURLs = []string{
	"http://httpbin.org/ip",
	"http://ip-api.com/json",
	"http://ifconfig.me/ip",
	"http://www.google.com",
	"http://example.com",
}

// Config tunes a Validator.
type Config struct {
	// Timeout bounds each functional probe attempt.
	Timeout time.Duration

	// Concurrency bounds CheckAll's worker pool.
	Concurrency int

	// Lenient keeps reachable candidates whose functional probes all
	// failed, marked StatusUnvalidated. Strict mode drops them.
	Lenient bool

	// ProbeURLs overrides the default echo endpoints. Mostly for tests.
	ProbeURLs []string
}

// Validator performs the two-phase reachability + functional check.
type Validator struct {
	timeout     time.Duration
	concurrency int
	lenient     bool
	probeURLs   []string
}

// New creates a Validator from cfg, applying defaults for zero values.
func New(cfg Config) *Validator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if len(cfg.ProbeURLs) == 0 {
		cfg.ProbeURLs = defaultProbeURLs
	}
	return &Validator{
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		lenient:     cfg.Lenient,
		probeURLs:   cfg.ProbeURLs,
	}
}

// Check validates a single candidate. A returned error means the
// candidate is invalid; callers treat it as absence, not failure.
//
// Phase A opens a raw TCP connection as a cheap pre-filter. Phase B
// issues a GET through the candidate against the probe URL ladder,
// stopping at the first success. An HTTP 407 marks the proxy as
// requiring auth and ends probing.
func (v *Validator) Check(ctx context.Context, c model.CandidateProxy) (model.ValidatedProxy, error) {
	connectTimeout := v.timeout / 2
	if connectTimeout > maxConnectTimeout {
		connectTimeout = maxConnectTimeout
	}

	conn, err := net.DialTimeout("tcp", c.Address, connectTimeout)
	if err != nil {
		return model.ValidatedProxy{}, fmt.Errorf("%w: %s", ErrUnreachable, c.Address)
	}
	conn.Close()

	latency, requiresAuth, functional := v.probe(ctx, c.Address)

	result := model.ValidatedProxy{
		Address:      c.Address,
		Country:      c.CountryHint,
		Anonymity:    c.AnonymityHint,
		RequiresAuth: requiresAuth,
		ValidatedAt:  time.Now(),
	}
	if result.Country == "" {
		result.Country = model.CountryUnknown
	}

	if functional {
		result.Status = model.StatusValid
		result.Latency = latency
	} else {
		if !v.lenient {
			return model.ValidatedProxy{}, fmt.Errorf("%w: %s", ErrNotFunctional, c.Address)
		}
		// Phase A already proved basic reachability; keep the entry but
		// mark it unproven and give it the worst possible latency.
		result.Status = model.StatusUnvalidated
		result.Latency = FallbackLatency
	}

	// Latency-based tier inference is an approximation used only when
	// the source supplied no hint; it is not header inspection.
	if result.Anonymity == model.AnonymityUnknown || result.Anonymity == "" {
		result.Anonymity = inferAnonymity(result.Latency, functional)
	}

	return result, nil
}

// probe runs Phase B and reports the first successful attempt's
// latency, whether the proxy demanded authentication, and whether any
// probe succeeded.
func (v *Validator) probe(ctx context.Context, address string) (time.Duration, bool, bool) {
	l := logger.WithComponent("ProxyPool/Validator")

	proxyURL, err := url.Parse("http://" + address)
	if err != nil {
		return 0, false, false
	}

	dialer := &net.Dialer{
		Timeout:   v.timeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy: http.ProxyURL(proxyURL),
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: true},
		IdleConnTimeout:       v.timeout,
		TLSHandshakeTimeout:   v.timeout / 2,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     true,
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   v.timeout,
	}
	defer transport.CloseIdleConnections()

	for _, probeURL := range v.probeURLs {
		if ctx.Err() != nil {
			return 0, false, false
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
		if err != nil {
			continue
		}

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			l.Debug().Err(err).Str("address", address).Str("probe", probeURL).Msg("Functional probe failed.")
			continue
		}
		elapsed := time.Since(start)
		resp.Body.Close()

		if resp.StatusCode == http.StatusProxyAuthRequired {
			return 0, true, false
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return elapsed, false, true
		}
	}

	return 0, false, false
}

// inferAnonymity maps latency to a coarse tier: fast proxies tend to be
// elite, slow or unproven ones transparent. A heuristic, not a measure.
func inferAnonymity(latency time.Duration, functional bool) model.Anonymity {
	switch {
	case functional && latency < eliteLatency:
		return model.AnonymityElite
	case functional && latency < anonymousLatency:
		return model.AnonymityAnonymous
	default:
		return model.AnonymityTransparent
	}
}

// CheckAll validates a batch concurrently and returns the survivors.
// Failed candidates are dropped silently; the output carries no
// ordering guarantee.
func (v *Validator) CheckAll(ctx context.Context, candidates []model.CandidateProxy) []model.ValidatedProxy {
	l := logger.WithComponent("ProxyPool/Validator")
	if len(candidates) == 0 {
		return nil
	}

	l.Info().Int("count", len(candidates)).Int("concurrency", v.concurrency).Msg("Starting validation batch...")

	var wg sync.WaitGroup
	resultsChan := make(chan model.ValidatedProxy, len(candidates))
	semaphore := make(chan struct{}, v.concurrency)

	for _, c := range candidates {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(candidate model.CandidateProxy) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if validated, err := v.Check(ctx, candidate); err == nil {
				resultsChan <- validated
			}
		}(c)
	}

	wg.Wait()
	close(resultsChan)

	validated := make([]model.ValidatedProxy, 0, len(candidates))
	for p := range resultsChan {
		validated = append(validated, p)
	}

	l.Info().Int("validated", len(validated)).Msg("Validation batch finished.")
	return validated
}
