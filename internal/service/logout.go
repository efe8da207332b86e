package service

import (
	"context"
	"log/slog"

	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
	apperrors "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/errors"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports"
)

// LogoutFlowOptions groups dependencies for LogoutFlow.
type LogoutFlowOptions struct {
	Gateway ports.AuthGateway
	Logger  *slog.Logger
}

// LogoutFlow terminates authentication state at one of two scopes. Both
// scopes are idempotent.
type LogoutFlow struct {
	gateway ports.AuthGateway
	logger  *slog.Logger
}

// NewLogoutFlow constructs a LogoutFlow.
func NewLogoutFlow(opts LogoutFlowOptions) *LogoutFlow {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LogoutFlow{gateway: opts.Gateway, logger: logger}
}

// Logout applies the requested scope.
//
// ORG keeps the user authenticated as a person: on upstream success the
// session is demoted to a temp session seeded from the same token, sending
// the user back to organization selection. ALL clears everything client-side
// unconditionally, even when the upstream call fails; logout must never leave
// a half-authenticated client.
func (f *LogoutFlow) Logout(ctx context.Context, repo ports.SessionRepository, scope domainauth.LogoutScope) error {
	switch scope {
	case domainauth.LogoutScopeOrg:
		return f.logoutOrg(ctx, repo)
	case domainauth.LogoutScopeAll:
		return f.logoutAll(ctx, repo)
	default:
		return apperrors.ValidationField("scope", "scope must be ORG or ALL")
	}
}

func (f *LogoutFlow) logoutOrg(ctx context.Context, repo ports.SessionRepository) error {
	sess, ok, err := repo.Session(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "read session")
	}
	if !ok {
		// Already org-less (or anonymous); nothing to demote.
		return nil
	}

	if err := f.gateway.Logout(ctx, sess.Token, domainauth.LogoutScopeOrg); err != nil {
		if apperrors.IsSessionExpired(err) {
			// The token is already dead server-side. Demoting to a temp
			// session would strand the user on organization selection with
			// a credential every call rejects, so escalate to a full clear.
			if clearErr := repo.ClearAll(ctx); clearErr != nil {
				return apperrors.Wrap(clearErr, apperrors.ErrCodeInternal, "clear expired session")
			}
			f.logger.InfoContext(ctx, "token expired during org logout, cleared all auth state",
				"user", sess.UserID)
			return nil
		}
		return err
	}

	temp := domainauth.TempSession{
		Token:        sess.Token,
		User:         sess.User(),
		Subscription: sess.Subscription,
	}
	if err := repo.SeedTemp(ctx, temp); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "demote session")
	}

	f.logger.InfoContext(ctx, "left organization", "user", sess.UserID, "organization", sess.OrganizationID)
	return nil
}

func (f *LogoutFlow) logoutAll(ctx context.Context, repo ports.SessionRepository) error {
	token, ok, err := repo.Token(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "read token")
	}
	if ok {
		err := f.gateway.Logout(ctx, token, domainauth.LogoutScopeAll)
		if err != nil && !apperrors.IsSessionExpired(err) {
			// Client-side clearing is unconditional. An expired token is
			// the goal state and not worth a warning.
			f.logger.WarnContext(ctx, "server logout failed, clearing local state anyway", "error", err)
		}
	}

	if err := repo.ClearAll(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "clear auth state")
	}
	f.logger.InfoContext(ctx, "logged out all sessions")
	return nil
}
