package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_In(t *testing.T) {
	assert.True(t, RoleAdmin.In(nil), "empty allow-list admits every role")
	assert.True(t, RoleCustomer.In([]Role{}), "empty allow-list admits every role")
	assert.True(t, RoleOperator.In([]Role{RoleAdmin, RoleOperator}))
	assert.False(t, RoleCustomer.In([]Role{RoleAdmin, RoleOperator}))
}

func TestRole_In_CaseInsensitive(t *testing.T) {
	// Sessions written by older app versions stored server-cased roles.
	assert.True(t, Role("ADMIN").In([]Role{RoleAdmin}))
	assert.True(t, RoleAdmin.In([]Role{Role("Admin")}))
}

func TestRole_UnmarshalText_Normalizes(t *testing.T) {
	var m OrgMembership
	require.NoError(t, json.Unmarshal([]byte(`{"id":"org-1","name":"Acme","role":" Manager "}`), &m))
	assert.Equal(t, RoleManager, m.Role)
}

func TestUser_MembershipFor(t *testing.T) {
	u := User{
		ID: "u-1",
		Orgs: []OrgMembership{
			{ID: "org-1", Name: "Acme", Role: RoleAdmin},
			{ID: "org-2", Name: "Globex", Role: RoleOperator},
		},
	}

	m, ok := u.MembershipFor("org-2")
	require.True(t, ok)
	assert.Equal(t, "Globex", m.Name)
	assert.Equal(t, RoleOperator, m.Role)

	_, ok = u.MembershipFor("org-9")
	assert.False(t, ok)
}

func TestNewActiveSession_DerivesOrgContextFromMembership(t *testing.T) {
	active := NewActiveSession(Session{
		UserID:         "u-1",
		Role:           Role("ADMIN"),
		Token:          "tok-1",
		OrganizationID: "org-1",
		Orgs: []OrgMembership{
			{ID: "org-1", Name: "Acme", Domain: "acme.example", Subdomain: "acme", Role: RoleAdmin},
		},
		Subscription: Subscription{Plan: "pro", Status: "active"},
	})

	assert.True(t, active.Consistent())
	assert.Equal(t, RoleAdmin, active.Session.Role, "role is normalized on construction")
	assert.Equal(t, "org-1", active.OrgContext.ID)
	assert.Equal(t, "Acme", active.OrgContext.Name)
	assert.Equal(t, "acme.example", active.OrgContext.Domain)
	assert.Equal(t, RoleAdmin, active.OrgContext.Role)
	assert.Equal(t, "pro", active.OrgContext.Subscription.Plan)
}

func TestNewActiveSession_MissingMembershipFallsBackToPlaceholder(t *testing.T) {
	// A stale membership list must not block access to the organization the
	// backend switched us into.
	active := NewActiveSession(Session{
		UserID:         "u-1",
		Role:           RoleOperator,
		OrganizationID: "org-new",
		Orgs:           []OrgMembership{{ID: "org-1", Name: "Acme", Role: RoleAdmin}},
	})

	assert.True(t, active.Consistent())
	assert.Equal(t, "org-new", active.OrgContext.ID)
	assert.Equal(t, "Organization", active.OrgContext.Name)
	assert.Equal(t, RoleOperator, active.OrgContext.Role)
}

func TestSession_UserProjection(t *testing.T) {
	sess := Session{
		UserID:         "u-1",
		Name:           "Asha",
		Email:          "asha@example.com",
		Username:       "asha",
		Role:           RoleAdmin,
		Token:          "tok-1",
		OrganizationID: "org-1",
		Orgs:           []OrgMembership{{ID: "org-1", Name: "Acme", Role: RoleAdmin}},
	}

	u := sess.User()
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, "asha@example.com", u.Email)
	assert.Len(t, u.Orgs, 1)
}

func TestDecodeSession_ToleratesUnknownFieldsAndNormalizesRole(t *testing.T) {
	payload := []byte(`{
		"id": "u-1",
		"name": "Asha",
		"role": "OPERATOR",
		"token": "tok-1",
		"organizationId": "org-1",
		"futureField": {"nested": true}
	}`)

	sess, err := DecodeSession(payload)
	require.NoError(t, err)
	assert.Equal(t, "u-1", sess.UserID)
	assert.Equal(t, RoleOperator, sess.Role)
	assert.Equal(t, "org-1", sess.OrganizationID)
}

func TestDecodeSession_RejectsMalformedPayload(t *testing.T) {
	_, err := DecodeSession([]byte(`{"id":`))
	assert.Error(t, err)
}

func TestDecodeOrgContext_NormalizesRole(t *testing.T) {
	octx, err := DecodeOrgContext([]byte(`{"id":"org-1","name":"Acme","role":"Manager"}`))
	require.NoError(t, err)
	assert.Equal(t, RoleManager, octx.Role)
}

func TestDecodeTempSession(t *testing.T) {
	temp, err := DecodeTempSession([]byte(`{"token":"tok-1","user":{"id":"u-1","orgs":[]}}`))
	require.NoError(t, err)
	assert.Equal(t, "tok-1", temp.Token)
	assert.Equal(t, "u-1", temp.User.ID)
}
