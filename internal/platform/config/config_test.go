package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnv_defaults(t *testing.T) {
	for _, k := range []string{"PORT", "MEDIAMTX_API_URL", "MEDIAMTX_HLS_URL", "POLL_INTERVAL", "POLL_CYCLE_TIMEOUT", "MEDIAMTX_CATCHALL_PATH", "API_RETRY_MAX", "COOKIE_SECURE"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.Port != "8080" || c.APIURL != DefaultAPIURL || c.HLSURL != DefaultHLSURL {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.PollInterval != 10*time.Second || c.PollCycleTimeout != 0 {
		t.Errorf("unexpected poll defaults: %+v", c)
	}
	if c.CatchAllPath != "all_others" || c.APIRetryMax != 2 || c.CookieSecure {
		t.Errorf("unexpected defaults: %+v", c)
	}
}

func TestFromEnv_overrides(t *testing.T) {
	t.Setenv("MEDIAMTX_API_URL", "http://mtx:9997/")
	t.Setenv("POLL_INTERVAL", "3")
	t.Setenv("POLL_CYCLE_TIMEOUT", "20s")
	t.Setenv("COOKIE_SECURE", "true")
	c := FromEnv()
	if c.APIURL != "http://mtx:9997" {
		t.Errorf("trailing slash not trimmed: %q", c.APIURL)
	}
	if c.PollInterval != 3*time.Second || c.PollCycleTimeout != 20*time.Second {
		t.Errorf("durations not parsed: %+v", c)
	}
	if !c.CookieSecure {
		t.Error("COOKIE_SECURE not parsed")
	}
}

func TestGetEnvDuration_invalid(t *testing.T) {
	t.Setenv("X_DUR", "soon")
	if got := GetEnvDuration("X_DUR", time.Minute); got != time.Minute {
		t.Errorf("expected fallback, got %v", got)
	}
	t.Setenv("X_DUR", "-5s")
	if got := GetEnvDuration("X_DUR", time.Minute); got != time.Minute {
		t.Errorf("expected fallback for negative, got %v", got)
	}
}

func TestGetEnvBool_invalid(t *testing.T) {
	t.Setenv("X_BOOL", "maybe")
	if !GetEnvBool("X_BOOL", true) {
		t.Error("expected fallback")
	}
}

func TestLoad_dotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("MTX_TEST_FROM_DOTENV=yes\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MTX_TEST_FROM_DOTENV", "")
	os.Unsetenv("MTX_TEST_FROM_DOTENV")
	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if GetEnv("MTX_TEST_FROM_DOTENV", "") != "yes" {
		t.Error("value from .env not loaded")
	}
}

func TestConsoleValidate(t *testing.T) {
	ok := Console{APIURL: DefaultAPIURL, HLSURL: "https://cdn.example.com/hls"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	for _, bad := range []Console{
		{APIURL: "localhost:9997", HLSURL: DefaultHLSURL},
		{APIURL: DefaultAPIURL, HLSURL: "ftp://media/hls"},
		{APIURL: "http://", HLSURL: DefaultHLSURL},
	} {
		if err := bad.Validate(); err == nil {
			t.Errorf("expected %+v to be rejected", bad)
		}
	}
}
