package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
	apperrors "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/errors"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/service"
)

// AuthHandlers exposes the login, organization switch, logout and
// organization creation flows over HTTP. Every handler resolves the caller's
// state namespace from the client id cookie before touching the store.
type AuthHandlers struct {
	login     *service.LoginFlow
	switcher  *service.SwitchFlow
	logout    *service.LogoutFlow
	orgCreate *service.OrgCreateFlow
	repos     ports.RepositoryFactory
	logger    *slog.Logger
}

// AuthHandlersOptions groups dependencies for AuthHandlers.
type AuthHandlersOptions struct {
	Login     *service.LoginFlow
	Switcher  *service.SwitchFlow
	Logout    *service.LogoutFlow
	OrgCreate *service.OrgCreateFlow
	Repos     ports.RepositoryFactory
	Logger    *slog.Logger
}

// NewAuthHandlers constructs AuthHandlers.
func NewAuthHandlers(opts AuthHandlersOptions) *AuthHandlers {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandlers{
		login:     opts.Login,
		switcher:  opts.Switcher,
		logout:    opts.Logout,
		orgCreate: opts.OrgCreate,
		repos:     opts.Repos,
		logger:    logger,
	}
}

func (h *AuthHandlers) repo(r *http.Request) (ports.SessionRepository, error) {
	clientID, ok := GetClientIDFromContext(r.Context())
	if !ok {
		return nil, apperrors.Internal("missing client namespace")
	}
	return h.repos.Repo(clientID), nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionView struct {
	UserID         string                  `json:"userId"`
	Name           string                  `json:"name"`
	Email          string                  `json:"email"`
	Username       string                  `json:"username,omitempty"`
	Role           domainauth.Role         `json:"role"`
	OrganizationID string                  `json:"organizationId"`
	Organizations  []orgView               `json:"organizations,omitempty"`
	Subscription   domainauth.Subscription `json:"subscription"`
}

type orgView struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Domain    string          `json:"domain,omitempty"`
	Subdomain string          `json:"subdomain,omitempty"`
	LogoURL   string          `json:"logoUrl,omitempty"`
	Role      domainauth.Role `json:"role,omitempty"`
}

type loginResponse struct {
	Next          service.NextStep `json:"next"`
	Session       *sessionView     `json:"session,omitempty"`
	Organizations []orgView        `json:"organizations,omitempty"`
}

func newSessionView(sess domainauth.Session) *sessionView {
	return &sessionView{
		UserID:         sess.UserID,
		Name:           sess.Name,
		Email:          sess.Email,
		Username:       sess.Username,
		Role:           sess.Role,
		OrganizationID: sess.OrganizationID,
		Organizations:  orgViews(sess.Orgs),
		Subscription:   sess.Subscription,
	}
}

func orgViews(orgs []domainauth.OrgMembership) []orgView {
	if len(orgs) == 0 {
		return nil
	}
	out := make([]orgView, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, orgView{
			ID:        o.ID,
			Name:      o.Name,
			Domain:    o.Domain,
			Subdomain: o.Subdomain,
			LogoURL:   o.LogoURL,
			Role:      o.Role,
		})
	}
	return out
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	repo, err := h.repo(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.login.Login(r.Context(), repo, req.Email, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := loginResponse{Next: res.Next}
	switch {
	case res.Session != nil:
		resp.Session = newSessionView(*res.Session)
	case res.Temp != nil:
		resp.Organizations = orgViews(res.Temp.User.Orgs)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Status handles GET /api/v1/auth/session. It reports the committed session
// without a server round-trip; protected views go through the guard instead.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	repo, err := h.repo(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	sess, ok, err := repo.Session(r.Context())
	if err != nil {
		WriteError(w, apperrors.Wrap(err, apperrors.ErrCodeInternal, "read session"))
		return
	}
	if !ok {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"session":       newSessionView(sess),
	})
}

type orgSummaryView struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Domain             string          `json:"domain,omitempty"`
	Subdomain          string          `json:"subdomain,omitempty"`
	LogoURL            string          `json:"logoUrl,omitempty"`
	Role               domainauth.Role `json:"role,omitempty"`
	IsActive           bool            `json:"isActive"`
	SubscriptionStatus string          `json:"subscriptionStatus,omitempty"`
}

// Organizations handles GET /api/v1/auth/organizations.
func (h *AuthHandlers) Organizations(w http.ResponseWriter, r *http.Request) {
	repo, err := h.repo(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	orgs, err := h.switcher.Organizations(r.Context(), repo)
	if err != nil {
		WriteError(w, err)
		return
	}
	out := make([]orgSummaryView, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, orgSummaryView{
			ID:                 o.ID,
			Name:               o.Name,
			Domain:             o.Domain,
			Subdomain:          o.Subdomain,
			LogoURL:            o.LogoURL,
			Role:               o.Role,
			IsActive:           o.IsActive,
			SubscriptionStatus: o.SubscriptionStatus,
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"organizations": out})
}

type switchRequest struct {
	OrganizationID string `json:"organizationId"`
}

// Switch handles POST /api/v1/auth/switch.
func (h *AuthHandlers) Switch(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.OrganizationID == "" {
		WriteError(w, apperrors.ValidationField("organizationId", "organizationId is required"))
		return
	}
	repo, err := h.repo(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	out, err := h.switcher.Switch(r.Context(), repo, req.OrganizationID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"session": newSessionView(out.Session)})
}

type logoutRequest struct {
	// Scope is "ORG" (leave the organization context, keep the account
	// signed in) or "ALL" (full sign-out). Empty means ALL.
	Scope string `json:"scope"`
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	// Body is optional; a bare POST means full logout.
	if err := DecodeJSON(r, &req); err != nil && !apperrors.IsValidation(err) {
		WriteError(w, err)
		return
	}

	scope := domainauth.LogoutScopeAll
	switch req.Scope {
	case "", string(domainauth.LogoutScopeAll):
	case string(domainauth.LogoutScopeOrg):
		scope = domainauth.LogoutScopeOrg
	default:
		WriteError(w, apperrors.ValidationField("scope", "scope must be ORG or ALL"))
		return
	}

	repo, err := h.repo(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := h.logout.Logout(r.Context(), repo, scope); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"scope": string(scope)})
}

type createOrgRequest struct {
	Name      string `json:"name"`
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain"`
	LogoURL   string `json:"logoUrl"`
}

// CreateOrganization handles POST /api/v1/organizations, the first-time
// organization creation step for accounts with no membership.
func (h *AuthHandlers) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req createOrgRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	repo, err := h.repo(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	res, err := h.orgCreate.Create(r.Context(), repo, ports.OrgForm{
		Name:      req.Name,
		Domain:    req.Domain,
		Subdomain: req.Subdomain,
		LogoURL:   req.LogoURL,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"organizationId": res.OrganizationID})
}
