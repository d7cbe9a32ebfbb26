package filter

import (
	"regexp"
	"strconv"
	"strings"

	"proxyfinder/internal/shared/logger"
	"proxyfinder/proxypool/model"
)

var addrPattern = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3}):(\d{1,5})$`)

// ValidAddress reports whether s is a syntactically valid IPv4:port
// address with octets in [0,255] and port in [1,65535].
func ValidAddress(s string) bool {
	m := addrPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	for _, octet := range m[1:5] {
		n, err := strconv.Atoi(octet)
		if err != nil || n > 255 {
			return false
		}
	}
	port, err := strconv.Atoi(m[5])
	if err != nil || port < 1 || port > 65535 {
		return false
	}
	return true
}

// Options controls a Filter pass.
type Options struct {
	// Countries is an allowlist of normalized ISO codes; empty means no
	// country filtering.
	Countries []string

	// MaxCount truncates the output; <=0 means unbounded.
	MaxCount int

	// Geo resolves unknown-country entries as a last resort. Optional;
	// a nil resolver disables the heuristic.
	Geo *GeoResolver
}

// Filter drops malformed candidates, deduplicates by address keeping
// the first occurrence, applies the country allowlist and truncates to
// MaxCount, all order-preserving. An empty result is valid, not an
// error.
func Filter(candidates []model.CandidateProxy, opts Options) []model.CandidateProxy {
	l := logger.WithComponent("ProxyPool/Filter")

	seen := make(map[string]struct{}, len(candidates))
	out := make([]model.CandidateProxy, 0, len(candidates))

	for _, c := range candidates {
		if !ValidAddress(c.Address) {
			continue
		}
		if _, dup := seen[c.Address]; dup {
			continue
		}
		seen[c.Address] = struct{}{}

		if len(opts.Countries) > 0 {
			country := c.CountryHint
			if (country == "" || strings.EqualFold(country, model.CountryUnknown)) && opts.Geo != nil {
				country = opts.Geo.Country(c.Address)
				c.CountryHint = country
			}
			if !matchesCountry(country, opts.Countries) {
				continue
			}
		}

		out = append(out, c)
		if opts.MaxCount > 0 && len(out) >= opts.MaxCount {
			break
		}
	}

	l.Debug().
		Int("in", len(candidates)).
		Int("out", len(out)).
		Int("unique", len(seen)).
		Msg("Filter pass complete.")
	return out
}

func matchesCountry(country string, allowlist []string) bool {
	for _, allowed := range allowlist {
		if strings.EqualFold(country, allowed) {
			return true
		}
	}
	return false
}
