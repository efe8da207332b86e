package service

import (
	"context"
	"log/slog"

	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
	apperrors "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/errors"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports"
)

// OrgCreateFlowOptions groups dependencies for OrgCreateFlow.
type OrgCreateFlowOptions struct {
	Gateway ports.AuthGateway
	Logger  *slog.Logger
}

// OrgCreateFlow creates a first organization for a user who authenticated
// with zero memberships. It operates on the temp session token; the first
// committed session is produced afterwards by the switch flow.
type OrgCreateFlow struct {
	gateway ports.AuthGateway
	logger  *slog.Logger
}

// NewOrgCreateFlow constructs an OrgCreateFlow.
func NewOrgCreateFlow(opts OrgCreateFlowOptions) *OrgCreateFlow {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OrgCreateFlow{gateway: opts.Gateway, logger: logger}
}

// OrgCreateResult carries the created organization id.
type OrgCreateResult struct {
	OrganizationID string
}

// Create registers the organization. On success the temp session's cached
// membership list is extended with the new organization so the subsequent
// switch can derive a full organization context without a round trip.
func (f *OrgCreateFlow) Create(ctx context.Context, repo ports.SessionRepository, form ports.OrgForm) (*OrgCreateResult, error) {
	if form.Name == "" {
		return nil, apperrors.ValidationField("name", "organization name is required")
	}

	temp, ok, err := repo.TempSession(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "read temp session")
	}
	if !ok {
		return nil, apperrors.SessionExpired("no pending login to create an organization for")
	}

	orgID, err := f.gateway.CreateFirstTimeOrganization(ctx, temp.Token, form)
	if err != nil {
		return nil, err
	}

	// The creator administers the organization they just created.
	temp.User.Orgs = append(temp.User.Orgs, domainauth.OrgMembership{
		ID:        orgID,
		Name:      form.Name,
		Domain:    form.Domain,
		Subdomain: form.Subdomain,
		LogoURL:   form.LogoURL,
		Role:      domainauth.RoleAdmin,
	})
	if err := repo.SeedTemp(ctx, temp); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "update temp session")
	}

	f.logger.InfoContext(ctx, "organization created", "user", temp.User.ID, "organization", orgID)
	return &OrgCreateResult{OrganizationID: orgID}, nil
}
