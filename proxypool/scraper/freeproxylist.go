package scraper

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"proxyfinder/internal/shared/logger"
	"proxyfinder/proxypool/model"
)

// FreeProxyListSource builds a SourceSpec for free-proxy-list.net, an
// HTML table listing proxies with country and anonymity columns.
func FreeProxyListSource() SourceSpec {
	const name = "free-proxy-list"
	return SourceSpec{
		Name:             name,
		CountrySupported: false,
		Priority:         3,
		Fetch: func(ctx context.Context, country string) ([]model.CandidateProxy, error) {
			body, err := fetchBody(ctx, "https://free-proxy-list.net/", nil)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return ParseFreeProxyList(body, name)
		},
	}
}

// ParseFreeProxyList extracts candidates from the free-proxy-list.net
// table markup. Column order: IP, Port, Code, Country, Anonymity, ...
func ParseFreeProxyList(body []byte, sourceName string) ([]model.CandidateProxy, error) {
	l := logger.WithComponent("ProxyPool/Scraper")

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse HTML: %w", sourceName, err)
	}

	var candidates []model.CandidateProxy
	doc.Find("table tbody tr").Each(func(i int, sel *goquery.Selection) {
		cells := sel.Find("td")
		if cells.Length() < 5 {
			return
		}
		ip := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		code := strings.TrimSpace(cells.Eq(2).Text())
		anonymity := strings.ToLower(strings.TrimSpace(cells.Eq(4).Text()))

		if ip == "" || port == "" {
			return
		}
		if code == "" {
			code = model.CountryUnknown
		}
		// The site labels elite proxies "elite proxy".
		anonymity = strings.TrimSuffix(anonymity, " proxy")

		candidates = append(candidates, model.CandidateProxy{
			Address:       fmt.Sprintf("%s:%s", ip, port),
			CountryHint:   code,
			AnonymityHint: model.ParseAnonymity(anonymity),
			Source:        sourceName,
			FetchedAt:     time.Now(),
		})
	})

	l.Debug().Int("count", len(candidates)).Str("source", sourceName).Msg("Parsed proxy table.")
	return candidates, nil
}
