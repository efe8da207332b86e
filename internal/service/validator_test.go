package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
	apperrors "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/errors"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/mocks"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports"
)

func validCheckResult() ports.CheckResult {
	return ports.CheckResult{
		Valid:        true,
		User:         multiOrgUser(),
		ActiveOrg:    &ports.ActiveOrg{OrgID: "org-1", Role: domainauth.RoleAdmin},
		Subscription: domainauth.Subscription{Plan: "pro", Status: "active"},
	}
}

func TestValidator_NoStateRedirectsToLogin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gw := mocks.NewMockAuthGateway(ctrl)
	gw.EXPECT().CheckSession(gomock.Any(), gomock.Any()).Times(0)
	v := NewSessionValidator(SessionValidatorOptions{Gateway: gw})

	decision, err := v.Validate(context.Background(), newTestRepo(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRedirectLogin, decision.Outcome)
}

func TestValidator_TempSessionAloneRedirectsToLogin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo()
	seedMultiOrgTemp(t, repo)

	// A temp session carries a token but no committed session; it must never
	// admit the user to a protected view.
	gw := mocks.NewMockAuthGateway(ctrl)
	gw.EXPECT().CheckSession(gomock.Any(), gomock.Any()).Times(0)
	v := NewSessionValidator(SessionValidatorOptions{Gateway: gw})

	decision, err := v.Validate(context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRedirectLogin, decision.Outcome)
}

func TestValidator_ValidSessionIsAllowedAndRefreshed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo()
	commitOrg1Session(t, repo)

	gw := mocks.NewMockAuthGateway(ctrl)
	gw.EXPECT().CheckSession(gomock.Any(), "tok-1").Return(validCheckResult(), nil)
	v := NewSessionValidator(SessionValidatorOptions{Gateway: gw})

	decision, err := v.Validate(context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, decision.Outcome)
	assert.False(t, decision.Stale)
	require.NotNil(t, decision.Session)

	sess := requireOnlySession(t, repo)
	assert.Equal(t, "pro", sess.Subscription.Plan, "subscription refreshed from server")
	assert.Equal(t, "tok-1", sess.Token, "token unchanged by revalidation")
}

func TestValidator_AuthoritativeRejectionClearsEverything(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo()
	commitOrg1Session(t, repo)

	gw := mocks.NewMockAuthGateway(ctrl)
	gw.EXPECT().CheckSession(gomock.Any(), "tok-1").Return(ports.CheckResult{Valid: false}, nil)
	v := NewSessionValidator(SessionValidatorOptions{Gateway: gw})

	decision, err := v.Validate(context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRedirectLogin, decision.Outcome)
	requireEmptyState(t, repo)
}

func TestValidator_SessionExpiredErrorClearsEverything(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo()
	commitOrg1Session(t, repo)

	gw := mocks.NewMockAuthGateway(ctrl)
	gw.EXPECT().CheckSession(gomock.Any(), "tok-1").
		Return(ports.CheckResult{}, apperrors.SessionExpired("token rejected"))
	v := NewSessionValidator(SessionValidatorOptions{Gateway: gw})

	decision, err := v.Validate(context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRedirectLogin, decision.Outcome)
	requireEmptyState(t, repo)
}

func TestValidator_TransientFailureFailsOpenOnStaleSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo()
	before := commitOrg1Session(t, repo)

	gw := mocks.NewMockAuthGateway(ctrl)
	gw.EXPECT().CheckSession(gomock.Any(), "tok-1").
		Return(ports.CheckResult{}, apperrors.Transient("connection refused"))
	v := NewSessionValidator(SessionValidatorOptions{Gateway: gw})

	decision, err := v.Validate(context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, decision.Outcome)
	assert.True(t, decision.Stale)

	after, ok, err := repo.Session(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, before, after, "transient failure must not modify stored state")
}

func TestValidator_RoleNotAllowedRedirectsToDefaultView(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo()
	commitOrg1Session(t, repo) // admin

	check := validCheckResult()
	check.ActiveOrg = &ports.ActiveOrg{OrgID: "org-1", Role: domainauth.RoleCustomer}
	gw := mocks.NewMockAuthGateway(ctrl)
	gw.EXPECT().CheckSession(gomock.Any(), "tok-1").Return(check, nil)
	v := NewSessionValidator(SessionValidatorOptions{Gateway: gw})

	decision, err := v.Validate(context.Background(), repo, []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleOperator})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRedirectDefault, decision.Outcome,
		"an authenticated but unauthorized user is never sent to login")
	require.NotNil(t, decision.Session)

	// State survives: the user stays logged in.
	requireOnlySession(t, repo)
}

func TestValidator_EmptyAllowListAdmitsAnyRole(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo()
	commitOrg1Session(t, repo)

	check := validCheckResult()
	check.ActiveOrg = &ports.ActiveOrg{OrgID: "org-1", Role: domainauth.RoleCustomer}
	gw := mocks.NewMockAuthGateway(ctrl)
	gw.EXPECT().CheckSession(gomock.Any(), "tok-1").Return(check, nil)
	v := NewSessionValidator(SessionValidatorOptions{Gateway: gw})

	decision, err := v.Validate(context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, decision.Outcome)
}

func TestValidator_SelfHealsMissingOrganizationBinding(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo()
	// A session that lost its organization binding but has exactly one
	// membership; the server check does not name an active org either.
	active := domainauth.NewActiveSession(domainauth.Session{
		UserID: "u-1",
		Role:   domainauth.RoleAdmin,
		Token:  "tok-1",
		Orgs:   singleOrgUser().Orgs,
	})
	require.NoError(t, repo.CommitActive(context.Background(), active))

	gw := mocks.NewMockAuthGateway(ctrl)
	gw.EXPECT().CheckSession(gomock.Any(), "tok-1").
		Return(ports.CheckResult{Valid: true, User: singleOrgUser()}, nil)
	v := NewSessionValidator(SessionValidatorOptions{Gateway: gw})

	decision, err := v.Validate(context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, decision.Outcome)

	sess := requireOnlySession(t, repo)
	assert.Equal(t, "org-1", sess.OrganizationID, "binding healed from the sole membership")
	assert.Equal(t, domainauth.RoleAdmin, sess.Role)
}

func TestValidator_RepairsDesyncedOrgContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo()
	commitOrg1Session(t, repo)

	// The server says the active organization is org-2 now; the refresh must
	// rewrite both session and context together.
	check := validCheckResult()
	check.ActiveOrg = &ports.ActiveOrg{OrgID: "org-2", Role: domainauth.RoleOperator}
	gw := mocks.NewMockAuthGateway(ctrl)
	gw.EXPECT().CheckSession(gomock.Any(), "tok-1").Return(check, nil)
	v := NewSessionValidator(SessionValidatorOptions{Gateway: gw})

	decision, err := v.Validate(context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, decision.Outcome)

	sess := requireOnlySession(t, repo)
	assert.Equal(t, "org-2", sess.OrganizationID)
	octx, _, err := repo.OrgContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "org-2", octx.ID)
	assert.Equal(t, "Globex", octx.Name)
}

// driftedOctxRepo serves a fixed organization context until the next commit,
// standing in for an out-of-band store writer that left the context pointing
// at a different organization than the session.
type driftedOctxRepo struct {
	ports.SessionRepository
	octx *domainauth.OrgContext
}

func (r *driftedOctxRepo) OrgContext(ctx context.Context) (domainauth.OrgContext, bool, error) {
	if r.octx != nil {
		return *r.octx, true, nil
	}
	return r.SessionRepository.OrgContext(ctx)
}

func (r *driftedOctxRepo) CommitActive(ctx context.Context, active domainauth.ActiveSession) error {
	if err := r.SessionRepository.CommitActive(ctx, active); err != nil {
		return err
	}
	r.octx = nil
	return nil
}

func TestValidator_OverwritesOrgContextDriftedFromSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	inner := newTestRepo()
	commitOrg1Session(t, inner)
	repo := &driftedOctxRepo{
		SessionRepository: inner,
		octx:              &domainauth.OrgContext{ID: "org-5", Name: "Stray", Role: domainauth.RoleOperator},
	}

	gw := mocks.NewMockAuthGateway(ctrl)
	gw.EXPECT().CheckSession(gomock.Any(), "tok-1").Return(validCheckResult(), nil)
	v := NewSessionValidator(SessionValidatorOptions{Gateway: gw})

	// The context says org-5 while the session says org-1. A single guard
	// pass recomputes the context from the refreshed session, so the drift
	// never survives a navigation.
	decision, err := v.Validate(context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAllow, decision.Outcome)

	sess := requireOnlySession(t, repo)
	octx, ok, err := repo.OrgContext(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sess.OrganizationID, octx.ID)
	assert.Equal(t, "Acme", octx.Name)
}

func TestValidator_DiscardsResultWhenStateChangedDuringCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo()
	commitOrg1Session(t, repo)

	// Another process logs the user out while the check is in flight. The
	// validation result no longer applies and must not resurrect the session.
	gw := mocks.NewMockAuthGateway(ctrl)
	gw.EXPECT().CheckSession(gomock.Any(), "tok-1").
		DoAndReturn(func(ctx context.Context, token string) (ports.CheckResult, error) {
			require.NoError(t, repo.ClearAll(ctx))
			return validCheckResult(), nil
		})
	v := NewSessionValidator(SessionValidatorOptions{Gateway: gw})

	decision, err := v.Validate(context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRedirectLogin, decision.Outcome)
	requireEmptyState(t, repo)
}
