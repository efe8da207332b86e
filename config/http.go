package config

import "time"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// LoginPath receives unauthenticated browser navigations.
	LoginPath string `env:"APP_LOGIN_PATH" envDefault:"/auth/login"`

	// DefaultPath receives authenticated browser navigations whose role is
	// not allowed on the requested view.
	DefaultPath string `env:"APP_DEFAULT_PATH" envDefault:"/"`

	// ShutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
	if h.LoginPath == "" {
		h.LoginPath = "/auth/login"
	}
	if h.DefaultPath == "" {
		h.DefaultPath = "/"
	}
}
