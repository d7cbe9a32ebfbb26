package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"

	"proxyfinder/proxypool/model"
)

const (
	// MaxSources caps how many sources a single fetch round queries.
	MaxSources = 8

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"
)

// FetchFunc fetches and parses one source into raw candidates. It must
// honor the context deadline. Site-specific parsing lives entirely
// behind this function value; the pipeline only sees candidates.
type FetchFunc func(ctx context.Context, country string) ([]model.CandidateProxy, error)

// SourceSpec describes one proxy source. Static configuration, never
// mutated at runtime.
type SourceSpec struct {
	Name string

	// CountrySupported reports whether the source can filter by country
	// on its own side.
	CountrySupported bool

	// Priority orders sources; lower runs first.
	Priority int

	Fetch FetchFunc
}

// DefaultSources returns the built-in source table, ordered by priority
// and capped at MaxSources. When a country is requested, sources that
// support country filtering are preferred.
func DefaultSources(country string) []SourceSpec {
	sources := []SourceSpec{
		TextListSource("github-clarketm", "https://raw.githubusercontent.com/clarketm/proxy-list/master/proxy-list-raw.txt", 1),
		TextListSource("github-speedx", "https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/http.txt", 1),
		TextListSource("github-monosans", "https://raw.githubusercontent.com/monosans/proxy-list/main/proxies/http.txt", 1),
		ProxyScrapeSource(),
		GeoNodeSource(),
		FreeProxyListSource(),
		FreeProxyWorldSource(),
	}

	if country != "" {
		sort.SliceStable(sources, func(i, j int) bool {
			if sources[i].CountrySupported != sources[j].CountrySupported {
				return sources[i].CountrySupported
			}
			return sources[i].Priority < sources[j].Priority
		})
	} else {
		sort.SliceStable(sources, func(i, j int) bool {
			return sources[i].Priority < sources[j].Priority
		})
	}

	if len(sources) > MaxSources {
		sources = sources[:MaxSources]
	}
	return sources
}

// fetchBody performs a plain GET with the shared browser User-Agent and
// returns the response body. The context carries the deadline.
func fetchBody(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code (%d)", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}
