package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/adapters/memstore"
	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
	apperrors "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/errors"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/mocks"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func clientIDCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == ClientIDCookie {
			return c
		}
	}
	return nil
}

func TestClientID_MintsCookieWhenMissing(t *testing.T) {
	var seen string
	handler := ClientID(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetClientIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	c := clientIDCookie(rec)
	require.NotNil(t, c, "a namespace cookie is set")
	_, err := uuid.Parse(c.Value)
	assert.NoError(t, err)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, c.Value, seen, "handler sees the minted id")
}

func TestClientID_KeepsValidCookie(t *testing.T) {
	id := uuid.NewString()
	var seen string
	handler := ClientID(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetClientIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ClientIDCookie, Value: id})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Nil(t, clientIDCookie(rec), "an existing id is not reissued")
	assert.Equal(t, id, seen)
}

func TestClientID_ReplacesMalformedCookie(t *testing.T) {
	handler := ClientID(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ClientIDCookie, Value: "not-a-uuid"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	c := clientIDCookie(rec)
	require.NotNil(t, c)
	_, err := uuid.Parse(c.Value)
	assert.NoError(t, err)
}

func TestClientID_SecureFlag(t *testing.T) {
	handler := ClientID(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	c := clientIDCookie(rec)
	require.NotNil(t, c)
	assert.True(t, c.Secure)
}

func TestRecover_ConvertsPanicToInternalError(t *testing.T) {
	handler := Recover(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal")
}

type guardFixture struct {
	guard    *Guard
	gateway  *mocks.MockAuthGateway
	store    *memstore.Store
	clientID string
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	gw := mocks.NewMockAuthGateway(ctrl)
	store := memstore.NewStore()
	return &guardFixture{
		guard: &Guard{
			Validator:   service.NewSessionValidator(service.SessionValidatorOptions{Gateway: gw, Logger: discardLogger()}),
			Repos:       store,
			Logger:      discardLogger(),
			LoginPath:   "/auth/login",
			DefaultPath: "/",
		},
		gateway:  gw,
		store:    store,
		clientID: uuid.NewString(),
	}
}

func (f *guardFixture) request(path, accept string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return req.WithContext(SetClientIDInContext(req.Context(), f.clientID))
}

func (f *guardFixture) commitSession(t *testing.T, role domainauth.Role) {
	t.Helper()
	active := domainauth.NewActiveSession(domainauth.Session{
		UserID:         "u-1",
		Role:           role,
		Token:          "tok-1",
		OrganizationID: "org-1",
		Orgs:           []domainauth.OrgMembership{{ID: "org-1", Name: "Acme", Role: role}},
	})
	require.NoError(t, f.store.Repo(f.clientID).CommitActive(context.Background(), active))
}

func (f *guardFixture) validCheck(role domainauth.Role) ports.CheckResult {
	return ports.CheckResult{
		Valid:     true,
		User:      domainauth.User{ID: "u-1", Orgs: []domainauth.OrgMembership{{ID: "org-1", Name: "Acme", Role: role}}},
		ActiveOrg: &ports.ActiveOrg{OrgID: "org-1", Role: role},
	}
}

func TestGuard_AllowsAndInjectsSession(t *testing.T) {
	f := newGuardFixture(t)
	f.commitSession(t, domainauth.RoleAdmin)
	f.gateway.EXPECT().CheckSession(gomock.Any(), "tok-1").Return(f.validCheck(domainauth.RoleAdmin), nil)

	var injected *domainauth.Session
	handler := f.guard.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		injected, _ = GetSessionFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, f.request("/api/v1/me", ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, injected)
	assert.Equal(t, "u-1", injected.UserID)
}

func TestGuard_BrowserWithoutSessionRedirectsToLogin(t *testing.T) {
	f := newGuardFixture(t)
	handler := f.guard.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("protected handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, f.request("/workspace?tab=jobs", "text/html"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	loc := rec.Header().Get("Location")
	assert.Contains(t, loc, "/auth/login")
	assert.Contains(t, loc, "redirect_uri=", "original destination survives the round trip")
}

func TestGuard_APIWithoutSessionGetsUnauthorizedJSON(t *testing.T) {
	f := newGuardFixture(t)
	handler := f.guard.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("protected handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, f.request("/api/v1/me", "application/json"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "session_expired")
}

func TestGuard_RoleDeniedBrowserRedirectsToDefault(t *testing.T) {
	f := newGuardFixture(t)
	f.commitSession(t, domainauth.RoleOperator)
	f.gateway.EXPECT().CheckSession(gomock.Any(), "tok-1").Return(f.validCheck(domainauth.RoleOperator), nil)

	handler := f.guard.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("protected handler must not run")
	}), domainauth.RoleAdmin)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, f.request("/admin", "text/html"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"), "authorized-but-wrong-role goes home, not to login")
}

func TestGuard_RoleDeniedAPIGetsForbidden(t *testing.T) {
	f := newGuardFixture(t)
	f.commitSession(t, domainauth.RoleOperator)
	f.gateway.EXPECT().CheckSession(gomock.Any(), "tok-1").Return(f.validCheck(domainauth.RoleOperator), nil)

	handler := f.guard.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("protected handler must not run")
	}), domainauth.RoleAdmin)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, f.request("/api/v1/admin/overview", "application/json"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "forbidden")
}

func TestGuard_RejectedSessionClearsStateAndRedirects(t *testing.T) {
	f := newGuardFixture(t)
	f.commitSession(t, domainauth.RoleAdmin)
	f.gateway.EXPECT().CheckSession(gomock.Any(), "tok-1").Return(ports.CheckResult{Valid: false}, nil)

	handler := f.guard.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("protected handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, f.request("/workspace", "text/html"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	_, ok, err := f.store.Repo(f.clientID).Token(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "rejected session state is gone")
}

func TestGuard_TransientFailureStillAdmits(t *testing.T) {
	f := newGuardFixture(t)
	f.commitSession(t, domainauth.RoleAdmin)
	f.gateway.EXPECT().CheckSession(gomock.Any(), "tok-1").
		Return(ports.CheckResult{}, apperrors.Transient("gateway unavailable"))

	handler := f.guard.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, f.request("/api/v1/me", "application/json"))
	assert.Equal(t, http.StatusOK, rec.Code, "network trouble must not log the user out")
}
