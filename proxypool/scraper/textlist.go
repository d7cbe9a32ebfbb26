package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"proxyfinder/internal/shared/logger"
	"proxyfinder/proxypool/model"
)

// addrPattern is the loose IP:PORT shape accepted from raw lists. The
// filter stage performs the strict octet and port range checks.
var addrPattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}:\d{1,5}$`)

// TextListSource builds a SourceSpec for a plain-text proxy list, one
// "ip:port" per line. Lines starting with '#' are comments.
func TextListSource(name, url string, priority int) SourceSpec {
	return SourceSpec{
		Name:             name,
		CountrySupported: false,
		Priority:         priority,
		Fetch: func(ctx context.Context, country string) ([]model.CandidateProxy, error) {
			body, err := fetchBody(ctx, url, nil)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return ParseTextList(string(body), name), nil
		},
	}
}

// ProxyScrapeSource builds a SourceSpec for the proxyscrape API, which
// serves a text list and accepts a country query parameter.
func ProxyScrapeSource() SourceSpec {
	const name = "proxyscrape"
	return SourceSpec{
		Name:             name,
		CountrySupported: true,
		Priority:         2,
		Fetch: func(ctx context.Context, country string) ([]model.CandidateProxy, error) {
			c := country
			if c == "" {
				c = "all"
			}
			url := fmt.Sprintf("https://api.proxyscrape.com/v2/?request=getproxies&protocol=http&timeout=10000&country=%s&ssl=all&anonymity=all", c)
			body, err := fetchBody(ctx, url, nil)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			candidates := ParseTextList(string(body), name)
			// The API already filtered server-side; record the hint so
			// the country filter does not have to guess.
			if country != "" {
				for i := range candidates {
					candidates[i].CountryHint = country
				}
			}
			return candidates, nil
		},
	}
}

// ParseTextList parses a one-proxy-per-line body into candidates.
// Malformed lines are dropped silently.
func ParseTextList(text, sourceName string) []model.CandidateProxy {
	l := logger.WithComponent("ProxyPool/Scraper")

	var candidates []model.CandidateProxy
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !addrPattern.MatchString(line) {
			continue
		}
		candidates = append(candidates, model.CandidateProxy{
			Address:       line,
			CountryHint:   model.CountryUnknown,
			AnonymityHint: model.AnonymityUnknown,
			Source:        sourceName,
			FetchedAt:     time.Now(),
		})
	}

	l.Debug().Int("count", len(candidates)).Str("source", sourceName).Msg("Parsed text list.")
	return candidates
}
