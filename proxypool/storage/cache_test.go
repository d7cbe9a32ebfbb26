package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"proxyfinder/proxypool/model"
)

func tempCache(t *testing.T, maxEntries int) *FileCache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache", "proxy_cache.json")
	return NewFileCache(path, maxEntries)
}

func validated(address string, latency time.Duration) model.ValidatedProxy {
	return model.ValidatedProxy{
		Address:     address,
		Country:     "US",
		Anonymity:   model.AnonymityElite,
		Latency:     latency,
		Status:      model.StatusValid,
		ValidatedAt: time.Now(),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fc := tempCache(t, 0)
	in := []model.ValidatedProxy{
		validated("1.1.1.1:80", time.Second),
		validated("2.2.2.2:3128", 2*time.Second),
	}

	if err := fc.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := fc.Load(time.Hour)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(out) != len(in) {
		t.Fatalf("got %d entries, want %d", len(out), len(in))
	}
	byAddr := make(map[string]model.ValidatedProxy, len(out))
	for _, p := range out {
		byAddr[p.Address] = p
	}
	for _, want := range in {
		got, ok := byAddr[want.Address]
		if !ok {
			t.Fatalf("entry %q missing after round trip", want.Address)
		}
		if got.Latency != want.Latency || got.Country != want.Country ||
			got.Anonymity != want.Anonymity || got.Status != want.Status {
			t.Errorf("entry %q changed across round trip: got %+v want %+v", want.Address, got, want)
		}
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	fc := tempCache(t, 0)
	out, err := fc.Load(time.Hour)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d entries, want 0", len(out))
	}
}

func TestLoadFiltersStaleEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy_cache.json")
	records := []CacheRecord{
		{ValidatedProxy: validated("1.1.1.1:80", time.Second), CachedAt: time.Now()},
		{ValidatedProxy: validated("2.2.2.2:80", time.Second), CachedAt: time.Now().Add(-48 * time.Hour)},
	}
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	fc := NewFileCache(path, 0)
	out, err := fc.Load(24 * time.Hour)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(out) != 1 || out[0].Address != "1.1.1.1:80" {
		t.Fatalf("got %v, want only the fresh entry", out)
	}
}

func TestLoadSkipsMalformedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy_cache.json")
	good, err := json.Marshal(CacheRecord{
		ValidatedProxy: validated("1.1.1.1:80", time.Second),
		CachedAt:       time.Now(),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// One record with the wrong shape, one missing its address, one good.
	raw := fmt.Sprintf(`[{"latency": "bogus"}, {"country": "US"}, %s]`, good)
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	fc := NewFileCache(path, 0)
	out, err := fc.Load(time.Hour)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(out) != 1 || out[0].Address != "1.1.1.1:80" {
		t.Fatalf("got %v, want only the well-formed entry", out)
	}
}

func TestLoadUnreadableFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy_cache.json")
	if err := os.WriteFile(path, []byte("not json at all"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	fc := NewFileCache(path, 0)
	out, err := fc.Load(time.Hour)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d entries, want 0", len(out))
	}
}

func TestSaveOverwritesWholeCollection(t *testing.T) {
	fc := tempCache(t, 0)
	if err := fc.Save([]model.ValidatedProxy{validated("1.1.1.1:80", time.Second)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := fc.Save([]model.ValidatedProxy{validated("2.2.2.2:80", time.Second)}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := fc.Load(time.Hour)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 1 || out[0].Address != "2.2.2.2:80" {
		t.Fatalf("got %v, want only the second save's entry", out)
	}
}

func TestSaveCapsEntries(t *testing.T) {
	fc := tempCache(t, 3)
	entries := make([]model.ValidatedProxy, 10)
	for i := range entries {
		entries[i] = validated(fmt.Sprintf("10.0.0.%d:80", i+1), time.Second)
	}

	if err := fc.Save(entries); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := fc.Load(time.Hour)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d entries, want the capacity bound of 3", len(out))
	}
}

func TestSaveDeduplicatesByAddress(t *testing.T) {
	fc := tempCache(t, 0)
	a := validated("1.1.1.1:80", time.Second)
	b := validated("1.1.1.1:80", 5*time.Second)

	if err := fc.Save([]model.ValidatedProxy{a, b}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := fc.Load(time.Hour)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d entries, want 1", len(out))
	}
	if out[0].Latency != a.Latency {
		t.Errorf("latency = %v, want the first occurrence kept", out[0].Latency)
	}
}
