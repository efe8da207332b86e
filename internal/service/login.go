package service

import (
	"context"
	"log/slog"

	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
	apperrors "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/errors"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports"
)

// NextStep tells the caller where the user must land after a successful
// credential check.
type NextStep string

const (
	// NextWorkspace means a session was committed and the workspace can load.
	NextWorkspace NextStep = "workspace"
	// NextCreateOrganization means the user has no organization yet.
	NextCreateOrganization NextStep = "create_organization"
	// NextSelectOrganization means the user must pick among 2+ organizations.
	NextSelectOrganization NextStep = "select_organization"
)

// LoginFlowOptions groups dependencies for LoginFlow.
type LoginFlowOptions struct {
	Gateway ports.AuthGateway
	Logger  *slog.Logger
}

// LoginFlow interprets the gateway's login result and resolves the three
// terminal cases: no organization, a single organization, or several.
type LoginFlow struct {
	gateway ports.AuthGateway
	logger  *slog.Logger
}

// NewLoginFlow constructs a LoginFlow.
func NewLoginFlow(opts LoginFlowOptions) *LoginFlow {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginFlow{gateway: opts.Gateway, logger: logger}
}

// LoginResult is the terminal action of a login. After success exactly one of
// Session and Temp is non-nil, matching what was persisted.
type LoginResult struct {
	Next    NextStep
	Session *domainauth.Session
	Temp    *domainauth.TempSession
}

// Login runs the credential check and commits the resulting state. Failures
// are returned as typed errors and never mutate the store.
func (f *LoginFlow) Login(ctx context.Context, repo ports.SessionRepository, email, password string) (*LoginResult, error) {
	if email == "" {
		return nil, apperrors.ValidationField("email", "email is required")
	}
	if password == "" {
		return nil, apperrors.ValidationField("password", "password is required")
	}

	res, err := f.gateway.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	switch res.Case {
	case domainauth.LoginCaseSingleOrg:
		return f.commitSingleOrg(ctx, repo, res)
	case domainauth.LoginCaseNoOrg:
		return f.seedTemp(ctx, repo, res, NextCreateOrganization)
	case domainauth.LoginCaseMultiOrg:
		return f.seedTemp(ctx, repo, res, NextSelectOrganization)
	default:
		return nil, apperrors.Internalf("unknown login case %q", res.Case)
	}
}

// commitSingleOrg synthesizes a committed session directly from the sole
// membership entry; no temp session is created.
func (f *LoginFlow) commitSingleOrg(ctx context.Context, repo ports.SessionRepository, res ports.LoginResult) (*LoginResult, error) {
	if len(res.User.Orgs) != 1 {
		return nil, apperrors.Internalf("single-org login carried %d memberships", len(res.User.Orgs))
	}
	m := res.User.Orgs[0]

	active := domainauth.NewActiveSession(domainauth.Session{
		UserID:         res.User.ID,
		Name:           res.User.Name,
		Email:          res.User.Email,
		Username:       res.User.Username,
		Role:           m.Role.Normalize(),
		Token:          res.Token,
		OrganizationID: m.ID,
		Orgs:           res.User.Orgs,
		Subscription:   res.Subscription,
	})
	if err := repo.CommitActive(ctx, active); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "persist session")
	}

	f.logger.InfoContext(ctx, "login committed",
		"user", res.User.ID, "organization", m.ID, "role", string(active.Session.Role))
	sess := active.Session
	return &LoginResult{Next: NextWorkspace, Session: &sess}, nil
}

// seedTemp parks the authenticated-but-unbound user in a temp session.
func (f *LoginFlow) seedTemp(ctx context.Context, repo ports.SessionRepository, res ports.LoginResult, next NextStep) (*LoginResult, error) {
	temp := domainauth.TempSession{
		Token:        res.Token,
		User:         res.User,
		Subscription: res.Subscription,
	}
	if err := repo.SeedTemp(ctx, temp); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "persist temp session")
	}

	f.logger.InfoContext(ctx, "login pending organization",
		"user", res.User.ID, "memberships", len(res.User.Orgs), "next", string(next))
	return &LoginResult{Next: next, Temp: &temp}, nil
}
