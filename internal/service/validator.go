package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
	apperrors "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/errors"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports"
)

// Outcome is the terminal decision of one validator pass.
type Outcome string

const (
	// OutcomeAllow means the caller is authenticated and authorized.
	OutcomeAllow Outcome = "allow"
	// OutcomeRedirectLogin means no usable authentication state exists.
	OutcomeRedirectLogin Outcome = "redirect_login"
	// OutcomeRedirectDefault means the caller is authenticated but the role
	// is not in the view's allow-list; send them somewhere safe, not to
	// login.
	OutcomeRedirectDefault Outcome = "redirect_default"
)

// Decision is the result of validating one protected navigation.
type Decision struct {
	Outcome Outcome
	// Session is set for both Allow and RedirectDefault outcomes.
	Session *domainauth.Session
	// Stale is true when the server could not be reached and the decision
	// was made from the existing, unrefreshed session.
	Stale bool
}

// SessionValidatorOptions groups dependencies for SessionValidator.
type SessionValidatorOptions struct {
	Gateway ports.AuthGateway
	Logger  *slog.Logger
}

// SessionValidator runs before every protected view: it revalidates the
// session against the server, refreshes role/organization/subscription data,
// and authorizes by role.
//
// Failure policy, deliberately asymmetric: an authoritative rejection
// (valid:false or 401) clears all local state, while a transient failure
// (network error, 5xx) proceeds on the existing session. A flaky network must
// not log a legitimate user out.
type SessionValidator struct {
	gateway ports.AuthGateway
	logger  *slog.Logger
	group   singleflight.Group
}

// NewSessionValidator constructs a SessionValidator.
func NewSessionValidator(opts SessionValidatorOptions) *SessionValidator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionValidator{gateway: opts.Gateway, logger: logger}
}

// Validate runs one guard pass. Errors are returned only for repository
// failures; every gateway condition folds into the Decision.
func (v *SessionValidator) Validate(ctx context.Context, repo ports.SessionRepository, allowed []domainauth.Role) (Decision, error) {
	token, hasToken, err := repo.Token(ctx)
	if err != nil {
		return Decision{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "read token")
	}
	sess, hasSess, err := repo.Session(ctx)
	if err != nil {
		return Decision{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "read session")
	}
	if !hasToken || !hasSess {
		return Decision{Outcome: OutcomeRedirectLogin}, nil
	}

	check, checkErr := v.checkOnce(ctx, repo.Key(), token)
	switch {
	case checkErr == nil && check.Valid:
		refreshed, err := v.applyRefresh(ctx, repo, token, sess, check)
		if err != nil {
			return Decision{}, err
		}
		if refreshed == nil {
			// The session changed under us (logout or switch in another
			// tab); the validation result no longer applies.
			return v.revalidateCurrent(ctx, repo, allowed)
		}
		return authorize(*refreshed, allowed, false), nil

	case checkErr == nil && !check.Valid,
		apperrors.IsSessionExpired(checkErr):
		// Authoritative rejection: handled identically to an explicit
		// logout, full local clear with no partial state.
		if err := repo.ClearAll(ctx); err != nil {
			return Decision{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "clear rejected session")
		}
		return Decision{Outcome: OutcomeRedirectLogin}, nil

	default:
		// Transient failure: fail open on the existing, unrefreshed session.
		v.logger.WarnContext(ctx, "session revalidation unavailable, proceeding on stale session",
			"error", checkErr)
		return authorize(sess, allowed, true), nil
	}
}

// checkOnce deduplicates concurrent revalidations of the same token: many
// protected navigations landing at once produce a single upstream call.
func (v *SessionValidator) checkOnce(ctx context.Context, key, token string) (ports.CheckResult, error) {
	res, err, _ := v.group.Do(key+":"+token, func() (any, error) {
		return v.gateway.CheckSession(ctx, token)
	})
	if err != nil {
		return ports.CheckResult{}, err
	}
	return res.(ports.CheckResult), nil
}

// applyRefresh merges the server's fresh view into the session and persists
// it together with a recomputed organization context. It returns nil (and no
// error) when the stored token no longer matches the one that was validated,
// in which case the result must be discarded.
func (v *SessionValidator) applyRefresh(ctx context.Context, repo ports.SessionRepository, checkedToken string, sess domainauth.Session, check ports.CheckResult) (*domainauth.Session, error) {
	current, ok, err := repo.Token(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "re-read token")
	}
	if !ok || current != checkedToken {
		return nil, nil
	}

	if check.User.ID != "" {
		sess.UserID = check.User.ID
		sess.Name = check.User.Name
		sess.Email = check.User.Email
		sess.Username = check.User.Username
	}
	if len(check.User.Orgs) > 0 {
		sess.Orgs = check.User.Orgs
	}
	sess.Subscription = check.Subscription

	switch {
	case check.ActiveOrg != nil:
		sess.OrganizationID = check.ActiveOrg.OrgID
		sess.Role = check.ActiveOrg.Role.Normalize()
	case sess.OrganizationID == "" && len(sess.Orgs) == 1:
		// Self-heal a session that lost its organization binding when the
		// membership list leaves no ambiguity.
		sess.OrganizationID = sess.Orgs[0].ID
		sess.Role = sess.Orgs[0].Role.Normalize()
	}

	active := domainauth.NewActiveSession(sess)
	if err := repo.CommitActive(ctx, active); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "persist refreshed session")
	}
	return &active.Session, nil
}

// revalidateCurrent decides from whatever state exists now, without another
// server round trip; the next navigation triggers a fresh check.
func (v *SessionValidator) revalidateCurrent(ctx context.Context, repo ports.SessionRepository, allowed []domainauth.Role) (Decision, error) {
	sess, ok, err := repo.Session(ctx)
	if err != nil {
		return Decision{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "re-read session")
	}
	if !ok {
		return Decision{Outcome: OutcomeRedirectLogin}, nil
	}
	return authorize(sess, allowed, true), nil
}

func authorize(sess domainauth.Session, allowed []domainauth.Role, stale bool) Decision {
	if !sess.Role.In(allowed) {
		return Decision{Outcome: OutcomeRedirectDefault, Session: &sess, Stale: stale}
	}
	return Decision{Outcome: OutcomeAllow, Session: &sess, Stale: stale}
}
