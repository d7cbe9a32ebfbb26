package filter

import (
	"strings"

	"proxyfinder/proxypool/model"
)

// countryNames maps lowercase country names to their ISO 3166-1 alpha-2
// codes. This is the set of countries the source table can actually
// serve; it doubles as the validation table for caller-supplied codes.
var countryNames = map[string]string{
	"united states": "US", "usa": "US", "united kingdom": "GB", "uk": "GB",
	"germany": "DE", "france": "FR", "canada": "CA", "australia": "AU",
	"netherlands": "NL", "russia": "RU", "china": "CN", "japan": "JP",
	"brazil": "BR", "india": "IN", "singapore": "SG", "south korea": "KR",
	"italy": "IT", "spain": "ES", "sweden": "SE", "switzerland": "CH",
	"poland": "PL", "turkey": "TR", "mexico": "MX", "indonesia": "ID",
	"thailand": "TH", "vietnam": "VN", "ukraine": "UA", "egypt": "EG",
	"south africa": "ZA", "argentina": "AR", "pakistan": "PK", "malaysia": "MY",
	"ireland": "IE", "denmark": "DK", "finland": "FI", "norway": "NO",
	"belgium": "BE", "austria": "AT", "portugal": "PT", "greece": "GR",
}

var countryCodes = func() map[string]struct{} {
	codes := make(map[string]struct{}, len(countryNames))
	for _, code := range countryNames {
		codes[code] = struct{}{}
	}
	return codes
}()

// SupportedCountries returns the name-to-code table of countries the
// pipeline recognizes.
func SupportedCountries() map[string]string {
	out := make(map[string]string, len(countryNames))
	for name, code := range countryNames {
		out[name] = code
	}
	return out
}

// NormalizeCountry upper-cases and validates a caller-supplied country
// code. An unrecognized code is a ConfigurationError; this runs before
// any network activity.
func NormalizeCountry(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if _, ok := countryCodes[normalized]; !ok {
		return "", &model.ConfigurationError{
			Field:  "country",
			Value:  code,
			Reason: "not a recognized ISO 3166-1 alpha-2 code",
		}
	}
	return normalized, nil
}

// NormalizeCountries validates a whole allowlist, rejecting on the
// first bad code.
func NormalizeCountries(codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		normalized, err := NormalizeCountry(code)
		if err != nil {
			return nil, err
		}
		out = append(out, normalized)
	}
	return out, nil
}
