package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the console configuration.
const (
	DefaultPort         = "8080"
	DefaultAPIURL       = "http://localhost:9997"
	DefaultHLSURL       = "http://localhost:8888"
	DefaultCatchAllPath = "all_others"
	DefaultPollInterval = 10 * time.Second
	DefaultRetryMax     = 2
)

// Console is the environment-provided configuration of the console server.
type Console struct {
	Port             string
	LogLevel         string
	LogFormat        string
	APIURL           string
	HLSURL           string
	PollInterval     time.Duration
	PollCycleTimeout time.Duration
	CatchAllPath     string
	APIRetryMax      int
	CookieSecure     bool
}

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// FromEnv builds the console configuration from the environment. Call Load
// first to pick up a .env file.
func FromEnv() Console {
	return Console{
		Port:             GetEnv("PORT", DefaultPort),
		LogLevel:         GetEnv("LOG_LEVEL", "info"),
		LogFormat:        GetEnv("LOG_FORMAT", "json"),
		APIURL:           strings.TrimRight(GetEnv("MEDIAMTX_API_URL", DefaultAPIURL), "/"),
		HLSURL:           strings.TrimRight(GetEnv("MEDIAMTX_HLS_URL", DefaultHLSURL), "/"),
		PollInterval:     GetEnvDuration("POLL_INTERVAL", DefaultPollInterval),
		PollCycleTimeout: GetEnvDuration("POLL_CYCLE_TIMEOUT", 0),
		CatchAllPath:     GetEnv("MEDIAMTX_CATCHALL_PATH", DefaultCatchAllPath),
		APIRetryMax:      GetEnvInt("API_RETRY_MAX", DefaultRetryMax),
		CookieSecure:     GetEnvBool("COOKIE_SECURE", false),
	}
}

// Validate rejects base URLs the console could never reach.
func (c Console) Validate() error {
	for name, raw := range map[string]string{"MEDIAMTX_API_URL": c.APIURL, "MEDIAMTX_HLS_URL": c.HLSURL} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s: %q is not an http(s) URL", name, raw)
		}
	}
	return nil
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvBool returns the boolean value of key, or fallback if unset or invalid.
func GetEnvBool(key string, fallback bool) bool {
	if s := os.Getenv(key); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return fallback
}

// GetEnvDuration parses key as a Go duration ("10s", "1m"). A bare integer is
// taken as seconds. Invalid or non-positive values yield fallback.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
