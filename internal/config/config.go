package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config contains runtime configuration required by the service. Credentials
// live here and are injected into the clients at startup; nothing reads them
// from the environment at request time and nothing logs them.
type Config struct {
	Addr string `env:"ADDR" envDefault:":8080"`

	// Payment provider.
	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`

	// Conversion ingestion API.
	FBAccessToken   string        `env:"FB_ACCESS_TOKEN"`
	FBPixelID       string        `env:"FB_PIXEL_ID"`
	FBGraphVersion  string        `env:"FB_GRAPH_VERSION" envDefault:"v20.0"`
	FBGraphBaseURL  string        `env:"FB_GRAPH_BASE_URL"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`

	// Optional delivery log. Empty means the service runs stateless.
	DBURL string `env:"DB_URL"`

	// Operator keys for the /ops surface.
	// API_KEYS format: "operator1:key1,operator2:key2"
	APIKeysRaw string `env:"API_KEYS"`

	APIKeys map[string]string // apiKey -> operator name
}

// Load reads configuration from the environment, with an optional .env file
// for local development.
func Load() (Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	keys, err := parseAPIKeys(cfg.APIKeysRaw)
	if err != nil {
		return Config{}, err
	}
	cfg.APIKeys = keys

	return cfg, nil
}

// parseAPIKeys expands the comma-separated operator:key list into a lookup
// map keyed by the secret.
func parseAPIKeys(raw string) (map[string]string, error) {
	keys := map[string]string{}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return keys, nil
	}

	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 {
			return nil, errors.New(`API_KEYS must be "operator:key,operator:key"`)
		}
		operator := strings.TrimSpace(parts[0])
		key := strings.TrimSpace(parts[1])
		if operator == "" || key == "" {
			return nil, errors.New(`API_KEYS must be "operator:key,operator:key"`)
		}
		keys[key] = operator
	}

	return keys, nil
}
