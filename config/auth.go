package config

import (
	"fmt"
	"strings"
	"time"
)

// StoreBackend selects where shared auth state lives.
type StoreBackend string

const (
	// StoreBackendRedis keeps auth state in Redis (the default).
	StoreBackendRedis StoreBackend = "redis"
	// StoreBackendPostgres keeps auth state in PostgreSQL.
	StoreBackendPostgres StoreBackend = "postgres"
	// StoreBackendMemory keeps auth state in process memory (dev/tests only;
	// state is lost on restart and not shared across replicas).
	StoreBackendMemory StoreBackend = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for StoreBackend.
func (s *StoreBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "redis", "postgres", "memory":
		*s = StoreBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid StoreBackend: %q (valid options: redis, postgres, memory)", v)
	}
}

// StoreConfig selects and tunes the shared auth state store.
type StoreConfig struct {
	// Backend determines which store adapter holds session state.
	Backend StoreBackend `env:"STORE_BACKEND" envDefault:"redis"`

	// KeyPrefix namespaces all Redis keys written by this service.
	KeyPrefix string `env:"STORE_KEY_PREFIX" envDefault:"authstate:"`
}

// GatewayConfig configures the HTTP client for the upstream IndiaBills
// backend that owns accounts, organizations and token issuance.
type GatewayConfig struct {
	// BaseURL is the backend API root, e.g. "https://api.indiabills.com".
	BaseURL string `env:"BASE_URL,required"`

	// Timeout caps each backend request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`

	// ReadRetries is the attempt count for idempotent reads that fail
	// transiently. Writes are never retried.
	ReadRetries int `env:"READ_RETRIES" envDefault:"3"`
}

// Sanitize applies guardrails to gateway configuration values.
func (g *GatewayConfig) Sanitize() {
	if g.ReadRetries < 1 {
		g.ReadRetries = 1
	}
	if g.ReadRetries > 10 {
		g.ReadRetries = 10
	}
}
