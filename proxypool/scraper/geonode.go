package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"proxyfinder/internal/shared/logger"
	"proxyfinder/proxypool/model"
)

// geoNodeResponse mirrors the fields we consume from the GeoNode API.
type geoNodeResponse struct {
	Data []struct {
		IP             string `json:"ip"`
		Port           string `json:"port"`
		CountryCode    string `json:"country_code"`
		AnonymityLevel string `json:"anonymityLevel"`
	} `json:"data"`
}

// GeoNodeSource builds a SourceSpec for the GeoNode proxy-list API. It
// is the richest source: entries carry country and anonymity hints.
func GeoNodeSource() SourceSpec {
	const name = "geonode"
	return SourceSpec{
		Name:             name,
		CountrySupported: true,
		Priority:         2,
		Fetch: func(ctx context.Context, country string) ([]model.CandidateProxy, error) {
			url := "https://proxylist.geonode.com/api/proxy-list?limit=500&page=1&sort_by=lastChecked&sort_type=desc"
			if country != "" {
				url += "&country=" + country
			}
			body, err := fetchBody(ctx, url, map[string]string{"Accept": "application/json"})
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return parseGeoNode(body, name, country)
		},
	}
}

func parseGeoNode(body []byte, sourceName, country string) ([]model.CandidateProxy, error) {
	l := logger.WithComponent("ProxyPool/Scraper")

	var apiResp geoNodeResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("%s: failed to unmarshal response: %w", sourceName, err)
	}

	var candidates []model.CandidateProxy
	for _, item := range apiResp.Data {
		if item.IP == "" || item.Port == "" {
			continue
		}
		countryCode := item.CountryCode
		if countryCode == "" {
			countryCode = model.CountryUnknown
		}
		// Server-side country filter is advisory only; drop mismatches
		// here rather than trusting the API.
		if country != "" && !strings.EqualFold(countryCode, country) {
			continue
		}
		candidates = append(candidates, model.CandidateProxy{
			Address:       fmt.Sprintf("%s:%s", item.IP, item.Port),
			CountryHint:   countryCode,
			AnonymityHint: model.ParseAnonymity(item.AnonymityLevel),
			Source:        sourceName,
			FetchedAt:     time.Now(),
		})
	}

	l.Debug().Int("count", len(candidates)).Str("source", sourceName).Msg("Parsed GeoNode response.")
	return candidates, nil
}
