package filter

import (
	"regexp"
	"strings"
	"sync"

	"proxyfinder/proxypool/model"
)

// geoPattern pairs an address-prefix regexp with the country it is
// assumed to belong to. The table is static, has no accuracy guarantee
// and exists only as a last resort for sources that report no country.
type geoPattern struct {
	re      *regexp.Regexp
	country string
}

var geoPatterns = []geoPattern{
	{regexp.MustCompile(`^(104\.16|104\.17|144\.|146\.|147\.|148\.|149\.|152\.|153\.|154\.|155\.|156\.|165\.|166\.|167\.|168\.|169\.|170\.|171\.|172\.|173\.|174\.|192\.|198\.|199\.|204\.|205\.|206\.|207\.|208\.|209\.|216\.|63\.|64\.|65\.|66\.|67\.|68\.|69\.|70\.|71\.|72\.|73\.|74\.|75\.|76\.|96\.|97\.|98\.|99\.)`), "US"},
	{regexp.MustCompile(`^(5\.|46\.)`), "DE"},
	{regexp.MustCompile(`^(185\.|95\.)`), "RU"},
	{regexp.MustCompile(`^103\.`), "IN"},
	{regexp.MustCompile(`^(1\.|116\.|118\.|121\.|122\.|123\.|124\.|125\.|222\.|223\.|58\.|59\.|60\.|61\.)`), "CN"},
	{regexp.MustCompile(`^(14\.|111\.|112\.|211\.)`), "KR"},
	{regexp.MustCompile(`^(119\.|175\.|202\.)`), "SG"},
	{regexp.MustCompile(`^195\.`), "FR"},
	{regexp.MustCompile(`^91\.`), "NL"},
	{regexp.MustCompile(`^(200\.|201\.)`), "MX"},
	{regexp.MustCompile(`^(45\.|187\.|189\.)`), "BR"},
	{regexp.MustCompile(`^213\.`), "GB"},
	{regexp.MustCompile(`^139\.`), "JP"},
	{regexp.MustCompile(`^203\.`), "AU"},
}

// GeoResolver guesses a country from an address prefix. Best effort
// only: results must never be treated as authoritative. The resolver
// owns its cache; callers share one per session instead of relying on
// package state.
type GeoResolver struct {
	mu    sync.Mutex
	cache map[string]string
}

// NewGeoResolver creates an empty resolver.
func NewGeoResolver() *GeoResolver {
	return &GeoResolver{cache: make(map[string]string)}
}

// Country returns the guessed ISO code for an "ip:port" address, or
// model.CountryUnknown when no prefix matches.
func (g *GeoResolver) Country(address string) string {
	g.mu.Lock()
	if country, ok := g.cache[address]; ok {
		g.mu.Unlock()
		return country
	}
	g.mu.Unlock()

	ip := address
	if idx := strings.IndexByte(address, ':'); idx >= 0 {
		ip = address[:idx]
	}

	country := model.CountryUnknown
	for _, p := range geoPatterns {
		if p.re.MatchString(ip) {
			country = p.country
			break
		}
	}

	g.mu.Lock()
	g.cache[address] = country
	g.mu.Unlock()
	return country
}
