package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"proxyfinder/proxypool/model"
)

func TestParseTextList(t *testing.T) {
	body := "1.2.3.4:8080\n# comment line\n\nnot-a-proxy\n5.6.7.8:3128\r\n"

	got := ParseTextList(body, "test")

	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2: %v", len(got), got)
	}
	if got[0].Address != "1.2.3.4:8080" || got[1].Address != "5.6.7.8:3128" {
		t.Errorf("unexpected addresses: %q, %q", got[0].Address, got[1].Address)
	}
	if got[0].CountryHint != model.CountryUnknown {
		t.Errorf("country hint = %q, want unknown for bare lists", got[0].CountryHint)
	}
	if got[0].Source != "test" {
		t.Errorf("source = %q, want test", got[0].Source)
	}
}

func TestParseTextListHandlesCarriageReturns(t *testing.T) {
	got := ParseTextList("1.2.3.4:8080\r\n5.6.7.8:3128\r\n", "test")
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2 (CRLF input)", len(got))
	}
}

func TestTextListSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1.2.3.4:8080\n5.6.7.8:3128\n"))
	}))
	defer srv.Close()

	spec := TextListSource("test-list", srv.URL, 1)
	got, err := spec.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
}

func TestTextListSourceHonorsDeadline(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	spec := TextListSource("slow-list", srv.URL, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := spec.Fetch(ctx, "")
	if err == nil {
		t.Fatal("Fetch returned nil error, want deadline failure")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("fetch took %v, want prompt return on deadline", elapsed)
	}
}

func TestTextListSourceNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	spec := TextListSource("flaky-list", srv.URL, 1)
	if _, err := spec.Fetch(context.Background(), ""); err == nil {
		t.Fatal("Fetch returned nil error, want non-200 failure")
	}
}

func TestParseGeoNode(t *testing.T) {
	body := []byte(`{
		"data": [
			{"ip": "1.2.3.4", "port": "8080", "country_code": "US", "anonymityLevel": "elite"},
			{"ip": "5.6.7.8", "port": "3128", "country_code": "DE", "anonymityLevel": "weird"},
			{"ip": "", "port": "80", "country_code": "FR", "anonymityLevel": "anonymous"}
		]
	}`)

	got, err := parseGeoNode(body, "geonode", "")
	if err != nil {
		t.Fatalf("parseGeoNode: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2 (empty IP dropped)", len(got))
	}
	if got[0].Address != "1.2.3.4:8080" || got[0].CountryHint != "US" || got[0].AnonymityHint != model.AnonymityElite {
		t.Errorf("unexpected first candidate: %+v", got[0])
	}
	if got[1].AnonymityHint != model.AnonymityUnknown {
		t.Errorf("anonymity = %q, want unknown for unrecognized labels", got[1].AnonymityHint)
	}
}

func TestParseGeoNodeCountryFilter(t *testing.T) {
	body := []byte(`{
		"data": [
			{"ip": "1.2.3.4", "port": "8080", "country_code": "US", "anonymityLevel": "elite"},
			{"ip": "5.6.7.8", "port": "3128", "country_code": "DE", "anonymityLevel": "elite"}
		]
	}`)

	got, err := parseGeoNode(body, "geonode", "DE")
	if err != nil {
		t.Fatalf("parseGeoNode: %v", err)
	}
	if len(got) != 1 || got[0].CountryHint != "DE" {
		t.Fatalf("got %v, want only the DE entry", got)
	}
}

func TestParseGeoNodeMalformedBody(t *testing.T) {
	if _, err := parseGeoNode([]byte("<html>"), "geonode", ""); err == nil {
		t.Fatal("parseGeoNode returned nil error for malformed body")
	}
}

const freeProxyListHTML = `
<html><body>
<table><tbody>
<tr><td>1.2.3.4</td><td>8080</td><td>US</td><td>United States</td><td>elite proxy</td><td>no</td></tr>
<tr><td>5.6.7.8</td><td>3128</td><td>DE</td><td>Germany</td><td>anonymous</td><td>yes</td></tr>
<tr><td></td><td>80</td><td>FR</td><td>France</td><td>transparent</td><td>no</td></tr>
<tr><td>short row</td></tr>
</tbody></table>
</body></html>`

func TestParseFreeProxyList(t *testing.T) {
	got, err := ParseFreeProxyList([]byte(freeProxyListHTML), "free-proxy-list")
	if err != nil {
		t.Fatalf("ParseFreeProxyList: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2: %v", len(got), got)
	}
	if got[0].Address != "1.2.3.4:8080" || got[0].CountryHint != "US" {
		t.Errorf("unexpected first candidate: %+v", got[0])
	}
	// "elite proxy" labels normalize to the elite tier.
	if got[0].AnonymityHint != model.AnonymityElite {
		t.Errorf("anonymity = %q, want elite", got[0].AnonymityHint)
	}
	if got[1].AnonymityHint != model.AnonymityAnonymous {
		t.Errorf("anonymity = %q, want anonymous", got[1].AnonymityHint)
	}
}

func TestDefaultSourcesCapAndOrder(t *testing.T) {
	global := DefaultSources("")
	if len(global) > MaxSources {
		t.Errorf("got %d sources, want at most %d", len(global), MaxSources)
	}
	for i := 1; i < len(global); i++ {
		if global[i-1].Priority > global[i].Priority {
			t.Errorf("sources not ordered by priority at %d: %v", i, global)
		}
	}

	// A country request moves country-capable sources to the front.
	byCountry := DefaultSources("US")
	if len(byCountry) == 0 || !byCountry[0].CountrySupported {
		t.Error("country-capable source not preferred for a country request")
	}
}
