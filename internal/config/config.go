package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates the widget runtime's settings.
type Config struct {
	// Origin is the backend base URL, e.g. "https://bot.example.com".
	Origin string
	// SiteID is the tenant key the embedding page declared.
	SiteID int
	// Position is a presentation hint passed through to the renderer.
	Position string
	// Transport selects the delivery mechanism, "rest" or "duplex".
	// The choice is fixed for the session lifetime.
	Transport string
	// StorageDir is where the session identifier is persisted. Empty
	// means in-memory only.
	StorageDir string
	// TimeoutSeconds bounds a single request/response exchange.
	TimeoutSeconds int
}

// Load reads widget configuration from environment variables, applying
// the same defaults the embed contract uses.
func Load() (Config, error) {
	siteID := 1
	if raw := strings.TrimSpace(os.Getenv("WIDGET_SITE_ID")); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WIDGET_SITE_ID value %q: %w", raw, err)
		}
		siteID = val
	}

	transport := getEnvOrDefault("WIDGET_TRANSPORT", "rest")
	if transport != "rest" && transport != "duplex" {
		return Config{}, fmt.Errorf("invalid WIDGET_TRANSPORT value %q: want rest or duplex", transport)
	}

	timeout := 30
	if override, err := parseOptionalIntEnv("WIDGET_TIMEOUT"); err != nil {
		return Config{}, err
	} else if override != nil {
		timeout = *override
	}

	return Config{
		Origin:         getEnvOrDefault("WIDGET_ORIGIN", "http://localhost:5000"),
		SiteID:         siteID,
		Position:       getEnvOrDefault("WIDGET_POSITION", "bottom-right"),
		Transport:      transport,
		StorageDir:     strings.TrimSpace(os.Getenv("WIDGET_STORAGE_DIR")),
		TimeoutSeconds: timeout,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
