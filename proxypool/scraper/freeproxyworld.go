package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"proxyfinder/internal/shared/logger"
	"proxyfinder/proxypool/model"
)

// FreeProxyWorldSource builds a SourceSpec for freeproxy.world, scraped
// with a colly collector. The site supports a country query parameter.
func FreeProxyWorldSource() SourceSpec {
	const name = "freeproxy-world"
	return SourceSpec{
		Name:             name,
		CountrySupported: true,
		Priority:         3,
		Fetch: func(ctx context.Context, country string) ([]model.CandidateProxy, error) {
			return scrapeFreeProxyWorld(ctx, name, country)
		},
	}
}

func scrapeFreeProxyWorld(ctx context.Context, sourceName, country string) ([]model.CandidateProxy, error) {
	l := logger.WithComponent("ProxyPool/Scraper")

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
	)
	if deadline, ok := ctx.Deadline(); ok {
		c.SetRequestTimeout(time.Until(deadline))
	} else {
		c.SetRequestTimeout(20 * time.Second)
	}

	var (
		candidates []model.CandidateProxy
		scrapeErr  error
		mu         sync.Mutex
	)

	c.OnHTML("table.layui-table tbody tr", func(e *colly.HTMLElement) {
		ip := strings.TrimSpace(e.ChildText("td:nth-child(1)"))
		port := strings.TrimSpace(e.ChildText("td:nth-child(2) a"))
		if port == "" {
			port = strings.TrimSpace(e.ChildText("td:nth-child(2)"))
		}
		code := strings.ToUpper(strings.TrimSpace(e.ChildAttr("td:nth-child(3) a", "href")))
		// The country cell links to /?country=XX; keep only the code.
		if idx := strings.LastIndex(code, "="); idx >= 0 {
			code = code[idx+1:]
		}
		anonymity := strings.ToLower(strings.TrimSpace(e.ChildText("td:nth-child(6)")))

		if ip == "" || port == "" {
			return
		}
		if code == "" {
			code = model.CountryUnknown
		}

		mu.Lock()
		candidates = append(candidates, model.CandidateProxy{
			Address:       fmt.Sprintf("%s:%s", ip, port),
			CountryHint:   code,
			AnonymityHint: model.ParseAnonymity(anonymity),
			Source:        sourceName,
			FetchedAt:     time.Now(),
		})
		mu.Unlock()
	})

	c.OnError(func(r *colly.Response, err error) {
		l.Warn().Err(err).Int("status_code", r.StatusCode).Str("source", sourceName).Msg("Scrape request failed.")
		scrapeErr = err
	})

	url := "https://www.freeproxy.world/?type=http&page=1"
	if country != "" {
		url = fmt.Sprintf("https://www.freeproxy.world/?type=http&country=%s&page=1", country)
	}
	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("%s: %w", sourceName, err)
	}
	c.Wait()

	if scrapeErr != nil && len(candidates) == 0 {
		return nil, fmt.Errorf("%s: %w", sourceName, scrapeErr)
	}

	l.Debug().Int("count", len(candidates)).Str("source", sourceName).Msg("Scrape finished.")
	return candidates, nil
}
