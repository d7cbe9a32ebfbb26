package filter

import (
	"errors"
	"testing"

	"proxyfinder/proxypool/model"
)

func candidates(addrs ...string) []model.CandidateProxy {
	out := make([]model.CandidateProxy, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, model.CandidateProxy{
			Address:       a,
			CountryHint:   model.CountryUnknown,
			AnonymityHint: model.AnonymityUnknown,
			Source:        "test",
		})
	}
	return out
}

func TestValidAddress(t *testing.T) {
	valid := []string{"1.2.3.4:8080", "255.255.255.255:1", "0.0.0.0:65535"}
	for _, addr := range valid {
		if !ValidAddress(addr) {
			t.Errorf("ValidAddress(%q) = false, want true", addr)
		}
	}

	invalid := []string{
		"not-a-proxy",
		"1.2.3.4",
		"1.2.3.4:0",
		"1.2.3.4:65536",
		"1.2.3.256:8080",
		"1.2.3:8080",
		"example.com:8080",
		"1.2.3.4:8080 ",
		"",
	}
	for _, addr := range invalid {
		if ValidAddress(addr) {
			t.Errorf("ValidAddress(%q) = true, want false", addr)
		}
	}
}

func TestFilterDropsMalformedAndDeduplicates(t *testing.T) {
	in := candidates("1.2.3.4:8080", "1.2.3.4:8080", "not-a-proxy", "5.6.7.8:3128")

	out := Filter(in, Options{})

	if len(out) != 2 {
		t.Fatalf("got %d candidates, want 2: %v", len(out), out)
	}
	// First occurrence wins, order preserved.
	if out[0].Address != "1.2.3.4:8080" || out[1].Address != "5.6.7.8:3128" {
		t.Errorf("unexpected order: %q, %q", out[0].Address, out[1].Address)
	}
}

func TestFilterOutputHasNoDuplicateAddresses(t *testing.T) {
	in := candidates(
		"1.1.1.1:80", "2.2.2.2:80", "1.1.1.1:80", "3.3.3.3:80",
		"2.2.2.2:80", "1.1.1.1:80",
	)

	out := Filter(in, Options{})

	seen := make(map[string]bool)
	for _, c := range out {
		if seen[c.Address] {
			t.Errorf("address %q repeats in output", c.Address)
		}
		seen[c.Address] = true
	}
}

func TestFilterCountryAllowlist(t *testing.T) {
	in := []model.CandidateProxy{
		{Address: "1.1.1.1:80", CountryHint: "DE"},
		{Address: "2.2.2.2:80", CountryHint: "US"},
		{Address: "3.3.3.3:80", CountryHint: model.CountryUnknown},
	}

	out := Filter(in, Options{Countries: []string{"US"}, Geo: NewGeoResolver()})

	for _, c := range out {
		if c.CountryHint != "US" {
			t.Errorf("entry %q kept with country %q, want US", c.Address, c.CountryHint)
		}
	}
	found := false
	for _, c := range out {
		if c.Address == "2.2.2.2:80" {
			found = true
		}
	}
	if !found {
		t.Error("US-tagged entry was dropped")
	}
}

func TestFilterCountryCaseInsensitive(t *testing.T) {
	in := []model.CandidateProxy{{Address: "1.1.1.1:80", CountryHint: "us"}}

	out := Filter(in, Options{Countries: []string{"US"}})

	if len(out) != 1 {
		t.Fatalf("got %d candidates, want 1", len(out))
	}
}

func TestFilterMaxCount(t *testing.T) {
	in := candidates("1.1.1.1:80", "2.2.2.2:80", "3.3.3.3:80", "4.4.4.4:80")

	out := Filter(in, Options{MaxCount: 2})

	if len(out) != 2 {
		t.Fatalf("got %d candidates, want 2", len(out))
	}
	if out[0].Address != "1.1.1.1:80" || out[1].Address != "2.2.2.2:80" {
		t.Errorf("truncation did not preserve order: %v", out)
	}
}

func TestFilterEmptyResultIsValid(t *testing.T) {
	out := Filter(candidates("1.1.1.1:80"), Options{Countries: []string{"JP"}})
	if len(out) != 0 {
		t.Fatalf("got %d candidates, want 0", len(out))
	}
}

func TestNormalizeCountry(t *testing.T) {
	code, err := NormalizeCountry(" us ")
	if err != nil {
		t.Fatalf("NormalizeCountry: %v", err)
	}
	if code != "US" {
		t.Errorf("got %q, want US", code)
	}

	_, err = NormalizeCountry("XX")
	var confErr *model.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("got %v, want ConfigurationError", err)
	}
}

func TestNormalizeCountriesRejectsFirstBadCode(t *testing.T) {
	_, err := NormalizeCountries([]string{"US", "nope", "DE"})
	var confErr *model.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("got %v, want ConfigurationError", err)
	}
}

func TestGeoResolverReturnsKnownCodeOrUnknown(t *testing.T) {
	// The prefix table is best effort; assert only that results are
	// drawn from the recognized code set, never a specific country.
	codes := make(map[string]bool)
	for _, code := range SupportedCountries() {
		codes[code] = true
	}

	geo := NewGeoResolver()
	addrs := []string{"104.16.1.1:80", "5.5.5.5:80", "8.8.8.8:80", "203.0.113.9:3128"}
	for _, addr := range addrs {
		got := geo.Country(addr)
		if got != model.CountryUnknown && !codes[got] {
			t.Errorf("Country(%q) = %q, not a recognized code or unknown", addr, got)
		}
	}
}

func TestGeoResolverCachesResults(t *testing.T) {
	geo := NewGeoResolver()
	first := geo.Country("104.16.1.1:80")
	second := geo.Country("104.16.1.1:80")
	if first != second {
		t.Errorf("cached lookup diverged: %q vs %q", first, second)
	}
}
