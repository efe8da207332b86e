// Package auth contains domain-level types for identity, organization
// membership, and session state. It is pure and free of framework/adapter
// concerns; the durable JSON schema of each entity is defined by the struct
// tags below and must stay stable across app versions.
package auth

import (
	"encoding/json"
	"strings"
)

// Role represents the caller's authorization role within the active
// organization. Kept in string form for easy persistence; always stored
// lower-cased (see UnmarshalText).
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleManager  Role = "manager"
	RoleCustomer Role = "customer"
)

// UnmarshalText normalizes roles to lower case on decode so that sessions
// written by older app versions (which stored server-cased roles) compare
// equal to current values.
func (r *Role) UnmarshalText(text []byte) error {
	*r = Role(strings.ToLower(strings.TrimSpace(string(text))))
	return nil
}

// Normalize returns the lower-cased form of the role.
func (r Role) Normalize() Role {
	return Role(strings.ToLower(strings.TrimSpace(string(r))))
}

// In reports whether the role is a member of the given allow-list.
// An empty allow-list permits every role.
func (r Role) In(allowed []Role) bool {
	if len(allowed) == 0 {
		return true
	}
	n := r.Normalize()
	for _, a := range allowed {
		if n == a.Normalize() {
			return true
		}
	}
	return false
}

// OrgMembership is one entry of a user's organization membership list as
// returned by the backend.
type OrgMembership struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Domain    string `json:"domain,omitempty"`
	Subdomain string `json:"subdomain,omitempty"`
	LogoURL   string `json:"logoUrl,omitempty"`
	Role      Role   `json:"role"`
}

// User is the identity payload returned by the backend on login and
// revalidation.
type User struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Username string          `json:"username"`
	Orgs     []OrgMembership `json:"orgs"`
}

// MembershipFor returns the membership entry matching the given organization
// id, and whether one was found.
func (u User) MembershipFor(orgID string) (OrgMembership, bool) {
	for _, m := range u.Orgs {
		if m.ID == orgID {
			return m, true
		}
	}
	return OrgMembership{}, false
}

// Subscription is a plan/status snapshot for the active organization.
type Subscription struct {
	Plan   string `json:"plan,omitempty"`
	Status string `json:"status,omitempty"`
}

// LoginCase discriminates the three terminal outcomes of a credential check.
type LoginCase string

const (
	LoginCaseNoOrg     LoginCase = "NO_ORG"
	LoginCaseSingleOrg LoginCase = "SINGLE_ORG"
	LoginCaseMultiOrg  LoginCase = "MULTI_ORG"
)

// LogoutScope selects how much authentication state a logout destroys.
type LogoutScope string

const (
	// LogoutScopeOrg leaves the current organization only; the user stays
	// authenticated as a person and is demoted to organization selection.
	LogoutScopeOrg LogoutScope = "ORG"
	// LogoutScopeAll terminates all sessions.
	LogoutScopeAll LogoutScope = "ALL"
)

// Session is the committed, durable record binding a user to exactly one
// active organization and role. It is the single source of truth for
// "who is logged in and in which organization".
type Session struct {
	UserID         string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Username       string          `json:"username"`
	Role           Role            `json:"role"`
	Token          string          `json:"token"`
	OrganizationID string          `json:"organizationId"`
	Orgs           []OrgMembership `json:"orgs"`
	Subscription   Subscription    `json:"subscription"`
}

// User projects the session back into a User payload. Used when an
// org-scoped logout re-seeds a temp session from committed state.
func (s Session) User() User {
	return User{
		ID:       s.UserID,
		Name:     s.Name,
		Email:    s.Email,
		Username: s.Username,
		Orgs:     s.Orgs,
	}
}

// MembershipFor returns the cached membership entry for the given
// organization id.
func (s Session) MembershipFor(orgID string) (OrgMembership, bool) {
	return s.User().MembershipFor(orgID)
}

// OrgContext is a denormalized, UI-facing view of the active organization,
// cached alongside the Session so renders don't re-derive it.
type OrgContext struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Domain       string       `json:"domain,omitempty"`
	Subdomain    string       `json:"subdomain,omitempty"`
	LogoURL      string       `json:"logoUrl,omitempty"`
	Role         Role         `json:"role"`
	Subscription Subscription `json:"subscription"`
}

// TempSession is the transient, pre-commitment record held between a
// successful credential check and organization selection or creation.
// It is never a valid credential for protected views.
type TempSession struct {
	Token        string       `json:"token"`
	User         User         `json:"user"`
	Subscription Subscription `json:"subscription,omitempty"`
}

// ActiveSession is the aggregate of a committed Session and its OrgContext.
// It exists so the two can only be written together: constructing one through
// NewActiveSession is the single place the Session/OrgContext id invariant is
// enforced.
type ActiveSession struct {
	Session    Session
	OrgContext OrgContext
}

// placeholderOrgName is used when the cached membership list does not contain
// the organization the backend switched us into. Staleness of the list must
// not block usable access.
const placeholderOrgName = "Organization"

// NewActiveSession derives the OrgContext for the session's active
// organization from its membership list. When the list has no matching entry
// the context falls back to a placeholder name carrying the session's own
// role and subscription.
func NewActiveSession(sess Session) ActiveSession {
	sess.Role = sess.Role.Normalize()
	octx := OrgContext{
		ID:           sess.OrganizationID,
		Name:         placeholderOrgName,
		Role:         sess.Role,
		Subscription: sess.Subscription,
	}
	if m, ok := sess.MembershipFor(sess.OrganizationID); ok {
		octx.Name = m.Name
		octx.Domain = m.Domain
		octx.Subdomain = m.Subdomain
		octx.LogoURL = m.LogoURL
	}
	return ActiveSession{Session: sess, OrgContext: octx}
}

// Consistent reports whether the OrgContext still describes the Session's
// active organization. A divergence means the context is stale and must not
// be trusted until the next validator pass.
func (a ActiveSession) Consistent() bool {
	return a.OrgContext.ID == a.Session.OrganizationID
}

// DecodeSession decodes a durable session payload, tolerating unknown and
// missing fields from older or newer schema versions.
func DecodeSession(data []byte) (Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, err
	}
	s.Role = s.Role.Normalize()
	return s, nil
}

// DecodeTempSession decodes a durable temp session payload.
func DecodeTempSession(data []byte) (TempSession, error) {
	var t TempSession
	if err := json.Unmarshal(data, &t); err != nil {
		return TempSession{}, err
	}
	return t, nil
}

// DecodeOrgContext decodes a durable organization context payload.
func DecodeOrgContext(data []byte) (OrgContext, error) {
	var o OrgContext
	if err := json.Unmarshal(data, &o); err != nil {
		return OrgContext{}, err
	}
	o.Role = o.Role.Normalize()
	return o, nil
}
