package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
	apperrors "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/errors"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/service"
)

// ClientIDCookie names the durable cookie that namespaces one browser's
// stored auth state. Every request either carries it or gets one minted.
const ClientIDCookie = "ib_client_id"

// clientIDMaxAge keeps the namespace cookie for a year; the state behind it
// is cleared by logout, not by cookie expiry.
const clientIDMaxAge = int(365 * 24 * time.Hour / time.Second)

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush forwards to the underlying writer so streaming responses (the events
// endpoint) work behind the access log.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Logging logs one line per request with method, path, status and duration.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.InfoContext(r.Context(), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// Recover converts panics into 500 responses instead of dropped connections.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.ErrorContext(r.Context(), "panic recovered",
						slog.Any("panic", rec),
						slog.String("stack", string(debug.Stack())),
					)
					WriteError(w, apperrors.Internal("internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// ClientID ensures every request runs inside a per-browser state namespace.
// A missing or malformed cookie gets a fresh uuid; the id is placed in the
// request context for handlers and the guard.
func ClientID(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(ClientIDCookie); err == nil {
				if _, parseErr := uuid.Parse(c.Value); parseErr == nil {
					id = c.Value
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     ClientIDCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   clientIDMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(SetClientIDInContext(r.Context(), id)))
		})
	}
}

// Guard wraps protected routes with the session validator. Each navigation
// revalidates against the server, refreshes local state, and enforces the
// route's role allow-list.
type Guard struct {
	Validator *service.SessionValidator
	Repos     ports.RepositoryFactory
	Logger    *slog.Logger
	// LoginPath receives unauthenticated browser requests.
	LoginPath string
	// DefaultPath receives authenticated browser requests whose role is not
	// allowed on the requested view.
	DefaultPath string
}

// Protect returns next wrapped with validation. An empty allow-list admits
// every authenticated role.
func (g *Guard) Protect(next http.Handler, allowed ...domainauth.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID, ok := GetClientIDFromContext(r.Context())
		if !ok {
			g.deny(w, r, service.Decision{Outcome: service.OutcomeRedirectLogin})
			return
		}
		repo := g.Repos.Repo(clientID)

		decision, err := g.Validator.Validate(r.Context(), repo, allowed)
		if err != nil {
			g.Logger.ErrorContext(r.Context(), "session validation failed", slog.Any("error", err))
			WriteError(w, err)
			return
		}
		if decision.Outcome != service.OutcomeAllow {
			g.deny(w, r, decision)
			return
		}
		next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), decision.Session)))
	})
}

func (g *Guard) deny(w http.ResponseWriter, r *http.Request, decision service.Decision) {
	switch decision.Outcome {
	case service.OutcomeRedirectDefault:
		if wantsHTML(r) {
			http.Redirect(w, r, g.DefaultPath, http.StatusSeeOther)
			return
		}
		WriteError(w, apperrors.Forbidden("role not allowed for this view"))
	default:
		if wantsHTML(r) {
			target := g.LoginPath + "?redirect_uri=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		WriteError(w, apperrors.SessionExpired("not authenticated"))
	}
}

// wantsHTML distinguishes browser navigations from API calls so denials can
// redirect instead of returning JSON.
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
