package service

import (
	"context"
	"log/slog"

	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
	apperrors "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/errors"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports"
)

// SwitchFlowOptions groups dependencies for SwitchFlow.
type SwitchFlowOptions struct {
	Gateway ports.AuthGateway
	Logger  *slog.Logger
}

// SwitchFlow converts a selected organization into a committed session with a
// fresh organization-scoped token. It serves both the first selection after a
// multi-org login (from a temp session) and later voluntary switches (from a
// committed session).
type SwitchFlow struct {
	gateway ports.AuthGateway
	logger  *slog.Logger
}

// NewSwitchFlow constructs a SwitchFlow.
func NewSwitchFlow(opts SwitchFlowOptions) *SwitchFlow {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SwitchFlow{gateway: opts.Gateway, logger: logger}
}

// SwitchOutcome carries the committed state after a successful switch.
type SwitchOutcome struct {
	Session    domainauth.Session
	OrgContext domainauth.OrgContext
}

// Switch binds the caller to the given organization. On any failure the
// stored state is left untouched; it never partially commits.
func (f *SwitchFlow) Switch(ctx context.Context, repo ports.SessionRepository, orgID string) (*SwitchOutcome, error) {
	if orgID == "" {
		return nil, apperrors.ValidationField("organizationId", "organization id is required")
	}

	user, token, err := f.identitySource(ctx, repo)
	if err != nil {
		return nil, err
	}

	res, err := f.gateway.SwitchOrganization(ctx, token, orgID)
	if err != nil {
		return nil, err
	}

	active := domainauth.NewActiveSession(domainauth.Session{
		UserID:         user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Username:       user.Username,
		Role:           res.ActiveOrg.Role.Normalize(),
		Token:          res.Token,
		OrganizationID: res.ActiveOrg.OrgID,
		Orgs:           user.Orgs,
		Subscription:   res.Subscription,
	})
	if err := repo.CommitActive(ctx, active); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "persist switched session")
	}

	f.logger.InfoContext(ctx, "organization switched",
		"user", user.ID, "organization", res.ActiveOrg.OrgID, "role", string(active.Session.Role))
	return &SwitchOutcome{Session: active.Session, OrgContext: active.OrgContext}, nil
}

// Organizations lists the caller's organizations from the server. The server
// response is authoritative; the membership list cached on the session is
// only a hint for offline rendering.
func (f *SwitchFlow) Organizations(ctx context.Context, repo ports.SessionRepository) ([]ports.OrgSummary, error) {
	_, token, err := f.identitySource(ctx, repo)
	if err != nil {
		return nil, err
	}
	return f.gateway.GetUserOrganizations(ctx, token)
}

// identitySource picks the authoritative identity for a switch: the temp
// session when the user has not committed to an organization yet, otherwise
// the committed session.
func (f *SwitchFlow) identitySource(ctx context.Context, repo ports.SessionRepository) (domainauth.User, string, error) {
	temp, hasTemp, err := repo.TempSession(ctx)
	if err != nil {
		return domainauth.User{}, "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "read temp session")
	}
	if hasTemp {
		return temp.User, temp.Token, nil
	}

	sess, hasSess, err := repo.Session(ctx)
	if err != nil {
		return domainauth.User{}, "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "read session")
	}
	if hasSess {
		return sess.User(), sess.Token, nil
	}

	return domainauth.User{}, "", apperrors.SessionExpired("no authenticated state to switch from")
}
