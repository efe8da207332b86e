package ports

// Package ports defines interfaces (hexagonal ports) for session and
// authorization behavior. Implementations live in internal/adapters;
// orchestration in internal/service.

import (
	"context"

	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
)

// LoginResult is the payload of a successful credential check.
type LoginResult struct {
	Token        string
	User         domainauth.User
	Case         domainauth.LoginCase
	Subscription domainauth.Subscription
}

// ActiveOrg is the backend's resolution of the caller's active organization
// after a switch or during revalidation.
type ActiveOrg struct {
	OrgID string
	Role  domainauth.Role
}

// CheckResult is the payload of a session revalidation.
type CheckResult struct {
	Valid        bool
	User         domainauth.User
	ActiveOrg    *ActiveOrg
	Subscription domainauth.Subscription
}

// SwitchResult is the payload of a successful organization switch. Token is
// always a fresh credential scoped to the new organization.
type SwitchResult struct {
	Token        string
	ActiveOrg    ActiveOrg
	Subscription domainauth.Subscription
}

// OrgSummary is one organization the caller belongs to, as listed by the
// backend for selection UI.
type OrgSummary struct {
	ID                 string
	Name               string
	Domain             string
	Subdomain          string
	LogoURL            string
	Role               domainauth.Role
	IsActive           bool
	SubscriptionStatus string
}

// OrgForm carries the fields for first-time organization creation.
type OrgForm struct {
	Name      string
	Domain    string
	Subdomain string
	LogoURL   string
}

// AuthGateway is the only component that talks to the upstream backend.
// All methods return errors from the internal/errors taxonomy so callers can
// distinguish wrong credentials, expired sessions, transient failures, and
// validation problems.
type AuthGateway interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
	CheckSession(ctx context.Context, token string) (CheckResult, error)
	SwitchOrganization(ctx context.Context, token, orgID string) (SwitchResult, error)
	GetUserOrganizations(ctx context.Context, token string) ([]OrgSummary, error)
	Logout(ctx context.Context, token string, scope domainauth.LogoutScope) error
	CreateFirstTimeOrganization(ctx context.Context, tempToken string, form OrgForm) (string, error)
}

// ChangeKind labels what a repository write did to the stored state.
type ChangeKind string

const (
	// ChangeCommitted means a Session + OrgContext pair was committed.
	ChangeCommitted ChangeKind = "committed"
	// ChangeTempSeeded means a TempSession replaced any committed state.
	ChangeTempSeeded ChangeKind = "temp_seeded"
	// ChangeCleared means all state for the client was removed.
	ChangeCleared ChangeKind = "cleared"
)

// ChangeEvent is delivered on a repository watch feed whenever the stored
// state changes, including changes made by other processes sharing the store.
type ChangeEvent struct {
	Kind ChangeKind
}

// SessionRepository persists the per-client authentication state: the
// committed Session, its OrgContext, the raw bearer token, and the transient
// TempSession. A repository is already scoped to one client namespace.
//
// The three mutating operations are deliberately coarse so every write keeps
// the invariants of the aggregate: after any successful mutation exactly one
// of {Session, TempSession} is present (or neither, after ClearAll), and a
// Session is never observable without a consistent OrgContext.
type SessionRepository interface {
	// Key identifies the client namespace this repository is bound to.
	Key() string

	Session(ctx context.Context) (domainauth.Session, bool, error)
	Token(ctx context.Context) (string, bool, error)
	OrgContext(ctx context.Context) (domainauth.OrgContext, bool, error)
	TempSession(ctx context.Context) (domainauth.TempSession, bool, error)

	// CommitActive atomically writes Session, token, and OrgContext and
	// deletes any TempSession.
	CommitActive(ctx context.Context, active domainauth.ActiveSession) error

	// SeedTemp atomically writes the TempSession and token and deletes any
	// committed Session and OrgContext.
	SeedTemp(ctx context.Context, temp domainauth.TempSession) error

	// ClearAll removes all four entities. It is idempotent.
	ClearAll(ctx context.Context) error

	// Watch delivers change events for this client namespace until ctx is
	// done. Events produced by other writers of the same store are included.
	Watch(ctx context.Context) (<-chan ChangeEvent, error)
}

// RepositoryFactory scopes session repositories per client. Each browser
// client (identified by a durable cookie) gets its own namespace, mirroring
// per-origin shared storage.
type RepositoryFactory interface {
	Repo(clientID string) SessionRepository
}
