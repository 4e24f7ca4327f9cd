package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SourceURL != "https://www.dragonsteelbooks.com/search?q=signed" {
		t.Fatalf("unexpected source_url %q", cfg.SourceURL)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Fatalf("expected 30s fetch timeout, got %v", cfg.FetchTimeout)
	}
	if cfg.Parser != ParserDOM {
		t.Fatalf("expected dom parser by default, got %q", cfg.Parser)
	}
	if cfg.StorageType != "none" {
		t.Fatalf("expected storage disabled by default, got %q", cfg.StorageType)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SOURCE_URL", "https://example.com/search?q=signed")
	t.Setenv("PARSER", "STREAM")
	t.Setenv("FETCH_TIMEOUT_SECONDS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SourceURL != "https://example.com/search?q=signed" {
		t.Fatalf("unexpected source_url %q", cfg.SourceURL)
	}
	if cfg.Parser != ParserStream {
		t.Fatalf("expected stream parser, got %q", cfg.Parser)
	}
	if cfg.FetchTimeout != 5*time.Second {
		t.Fatalf("expected 5s fetch timeout, got %v", cfg.FetchTimeout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"FETCH_TIMEOUT_SECONDS": "0",
		"PARSER":                "regex",
		"STORAGE_TTL_SECONDS":   "-1",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}
