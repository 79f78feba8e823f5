package collector

import (
	"os"
	"testing"
	"time"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestPerSourceRateLimit(t *testing.T) {
	f := NewFetcher()

	a := f.limiter("source_a")
	if a != f.limiter("source_a") {
		t.Error("limiter not cached per source")
	}
	if a == f.limiter("source_b") {
		t.Error("distinct sources share a limiter")
	}
	if a.Limit() != 1 {
		t.Errorf("limit = %v, want 1 req/s", a.Limit())
	}
	if a.Burst() != 1 {
		t.Errorf("burst = %v, want 1", a.Burst())
	}
}

func TestLimiterDelaysSecondRequest(t *testing.T) {
	f := NewFetcher()
	l := f.limiter("src")

	start := time.Now()
	if err := l.Wait(t.Context()); err != nil {
		t.Fatal(err)
	}
	if err := l.Wait(t.Context()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("two waits took %v, want >= ~1s inter-request delay", elapsed)
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://www.dipres.gob.cl/ley.csv", true},
		{"http://localhost:8080/x.csv", true},
		{"file:///tmp/x.csv", true},
		{"ftp://example.org/x.csv", false},
		{"relative.csv", false},
		{"", false},
	}
	for _, tt := range tests {
		err := validateURL(tt.url)
		if tt.ok && err != nil {
			t.Errorf("validateURL(%q) = %v, want nil", tt.url, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("validateURL(%q) = nil, want error", tt.url)
		}
	}
}
