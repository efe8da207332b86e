// Package gateway implements ports.AuthGateway over the upstream IndiaBills
// core API. It is the only code that knows the wire format; every non-2xx
// status is classified into the internal/errors taxonomy so flows never see
// raw HTTP statuses.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpillora/backoff"

	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
	apperrors "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/errors"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports"
)

// Option configures a Client.
type Option func(c *Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRetries sets how many attempts idempotent reads make before giving up.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxReadAttempts = n
		}
	}
}

// Client talks to the upstream auth endpoints.
type Client struct {
	hc              *http.Client
	logger          *slog.Logger
	baseURL         url.URL
	maxReadAttempts int
}

var _ ports.AuthGateway = (*Client)(nil)

// NewClient constructs a gateway client for the given base URL.
func NewClient(baseURL url.URL, opts ...Option) *Client {
	c := &Client{
		hc:              &http.Client{Timeout: 15 * time.Second},
		logger:          slog.Default(),
		baseURL:         baseURL,
		maxReadAttempts: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wire shapes; the envelope is {status, data} on success and
// {status, message, errors} on failure.

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type failureBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

type loginData struct {
	Token        string                  `json:"token"`
	User         domainauth.User         `json:"user"`
	CaseType     domainauth.LoginCase    `json:"caseType"`
	Subscription domainauth.Subscription `json:"subscription"`
}

type activeOrgData struct {
	OrgID string          `json:"orgId"`
	Role  domainauth.Role `json:"role"`
}

type checkData struct {
	Valid        bool                    `json:"valid"`
	User         domainauth.User         `json:"user"`
	ActiveOrg    *activeOrgData          `json:"activeOrg"`
	Subscription domainauth.Subscription `json:"subscription"`
}

type switchData struct {
	Token        string                  `json:"token"`
	ActiveOrg    activeOrgData           `json:"activeOrg"`
	Subscription domainauth.Subscription `json:"subscription"`
}

type orgSummaryData struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Domain             string          `json:"domain"`
	Subdomain          string          `json:"subdomain"`
	LogoURL            string          `json:"logoUrl"`
	Role               domainauth.Role `json:"role"`
	IsActive           bool            `json:"isActive"`
	SubscriptionStatus string          `json:"subscriptionStatus"`
}

type createOrgData struct {
	ID string `json:"id"`
}

// Login exchanges credentials for a token, the user payload, and the login
// case discriminator.
func (c *Client) Login(ctx context.Context, email, password string) (ports.LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", body)
	if err != nil {
		return ports.LoginResult{}, err
	}
	defer closeBody(resp, c.logger)

	if resp.StatusCode != http.StatusOK {
		return ports.LoginResult{}, classifyLoginStatus(resp)
	}

	var data loginData
	if err := decodeData(resp.Body, &data); err != nil {
		return ports.LoginResult{}, apperrors.Wrap(err, apperrors.ErrCodeTransient, "decode login response")
	}
	return ports.LoginResult{
		Token:        data.Token,
		User:         normalizeUser(data.User),
		Case:         data.CaseType,
		Subscription: data.Subscription,
	}, nil
}

// CheckSession revalidates the given token. A 401 is reported as
// SessionExpired; any other failure is Transient so callers can fail open.
func (c *Client) CheckSession(ctx context.Context, token string) (ports.CheckResult, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/auth/session", token, nil)
	if err != nil {
		return ports.CheckResult{}, err
	}
	defer closeBody(resp, c.logger)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ports.CheckResult{}, apperrors.SessionExpired("session rejected by server")
	case resp.StatusCode != http.StatusOK:
		return ports.CheckResult{}, apperrors.Transientf("check session: unexpected status %d", resp.StatusCode)
	}

	var data checkData
	if err := decodeData(resp.Body, &data); err != nil {
		return ports.CheckResult{}, apperrors.Wrap(err, apperrors.ErrCodeTransient, "decode check session response")
	}
	result := ports.CheckResult{
		Valid:        data.Valid,
		User:         normalizeUser(data.User),
		Subscription: data.Subscription,
	}
	if data.ActiveOrg != nil {
		result.ActiveOrg = &ports.ActiveOrg{OrgID: data.ActiveOrg.OrgID, Role: data.ActiveOrg.Role.Normalize()}
	}
	return result, nil
}

// SwitchOrganization asks the backend for a token scoped to the given
// organization. Failures never carry partial results.
func (c *Client) SwitchOrganization(ctx context.Context, token, orgID string) (ports.SwitchResult, error) {
	body := map[string]string{"organizationId": orgID}
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/switch", token, body)
	if err != nil {
		return ports.SwitchResult{}, err
	}
	defer closeBody(resp, c.logger)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ports.SwitchResult{}, apperrors.SessionExpired("switch rejected: token no longer valid")
	case resp.StatusCode == http.StatusForbidden:
		return ports.SwitchResult{}, apperrors.Forbidden("not a member of the requested organization")
	case resp.StatusCode == http.StatusBadRequest:
		return ports.SwitchResult{}, readValidationError(resp, "invalid organization switch request")
	case resp.StatusCode != http.StatusOK:
		return ports.SwitchResult{}, apperrors.Transientf("switch organization: unexpected status %d", resp.StatusCode)
	}

	var data switchData
	if err := decodeData(resp.Body, &data); err != nil {
		return ports.SwitchResult{}, apperrors.Wrap(err, apperrors.ErrCodeTransient, "decode switch response")
	}
	return ports.SwitchResult{
		Token:        data.Token,
		ActiveOrg:    ports.ActiveOrg{OrgID: data.ActiveOrg.OrgID, Role: data.ActiveOrg.Role.Normalize()},
		Subscription: data.Subscription,
	}, nil
}

// GetUserOrganizations lists the organizations the token's user belongs to.
// The read is idempotent and retried with jittered backoff on transient
// failures.
func (c *Client) GetUserOrganizations(ctx context.Context, token string) ([]ports.OrgSummary, error) {
	bo := &backoff.Backoff{Min: 100 * time.Millisecond, Max: 2 * time.Second, Jitter: true}

	var lastErr error
	for attempt := 0; attempt < c.maxReadAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrCodeTransient, "list organizations canceled")
			case <-time.After(bo.Duration()):
			}
		}

		summaries, err := c.getUserOrganizationsOnce(ctx, token)
		if err == nil {
			return summaries, nil
		}
		if !apperrors.IsTransient(err) {
			return nil, err
		}
		c.logger.WarnContext(ctx, "list organizations failed, will retry", "attempt", attempt+1, "error", err)
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) getUserOrganizationsOnce(ctx context.Context, token string) ([]ports.OrgSummary, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/auth/organizations", token, nil)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp, c.logger)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, apperrors.SessionExpired("organization list rejected: token no longer valid")
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.Transientf("list organizations: unexpected status %d", resp.StatusCode)
	}

	var data []orgSummaryData
	if err := decodeData(resp.Body, &data); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeTransient, "decode organization list")
	}
	summaries := make([]ports.OrgSummary, 0, len(data))
	for _, d := range data {
		summaries = append(summaries, ports.OrgSummary{
			ID:                 d.ID,
			Name:               d.Name,
			Domain:             d.Domain,
			Subdomain:          d.Subdomain,
			LogoURL:            d.LogoURL,
			Role:               d.Role.Normalize(),
			IsActive:           d.IsActive,
			SubscriptionStatus: d.SubscriptionStatus,
		})
	}
	return summaries, nil
}

// Logout terminates the token's session at the requested scope.
func (c *Client) Logout(ctx context.Context, token string, scope domainauth.LogoutScope) error {
	body := map[string]string{"scope": string(scope)}
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/logout", token, body)
	if err != nil {
		return err
	}
	defer closeBody(resp, c.logger)

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		// Token already dead server-side. Callers decide what that means:
		// full logout treats it as the goal state, org logout must not
		// re-seed state around a rejected credential.
		return apperrors.SessionExpired("logout rejected: token no longer valid")
	default:
		return apperrors.Transientf("logout: unexpected status %d", resp.StatusCode)
	}
}

// CreateFirstTimeOrganization creates the user's first organization using the
// temp session token and returns the new organization id.
func (c *Client) CreateFirstTimeOrganization(ctx context.Context, tempToken string, form ports.OrgForm) (string, error) {
	body := map[string]string{
		"name":      form.Name,
		"domain":    form.Domain,
		"subdomain": form.Subdomain,
		"logoUrl":   form.LogoURL,
	}
	resp, err := c.doJSON(ctx, http.MethodPost, "/organizations", tempToken, body)
	if err != nil {
		return "", err
	}
	defer closeBody(resp, c.logger)

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusCreated:
		var data createOrgData
		if err := decodeData(resp.Body, &data); err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrCodeTransient, "decode create organization response")
		}
		return data.ID, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return "", apperrors.SessionExpired("organization creation rejected: token no longer valid")
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		return "", readValidationError(resp, "invalid organization data")
	default:
		return "", apperrors.Transientf("create organization: unexpected status %d", resp.StatusCode)
	}
}

// doJSON builds and executes one request. Transport-level failures are
// classified as Transient.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode request body")
		}
		reader = bytes.NewReader(buf)
	}

	u := c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/api/v1" + path

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeTransient, "%s %s failed", method, path)
	}
	c.logger.InfoContext(ctx, "gateway",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func decodeData(r io.Reader, dst any) error {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("response envelope has no data")
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// classifyLoginStatus maps login failure statuses onto the error taxonomy.
func classifyLoginStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return apperrors.InvalidCredentials("email or password is incorrect")
	case http.StatusForbidden:
		return apperrors.AccountBlocked("account is blocked")
	case http.StatusNotFound:
		return apperrors.AccountNotFound("account not found")
	case http.StatusGone:
		return apperrors.AccountDeleted("account has been deleted")
	default:
		return apperrors.Transientf("login: unexpected status %d", resp.StatusCode)
	}
}

// readValidationError extracts field-level errors from a failure payload.
func readValidationError(resp *http.Response, fallback string) error {
	var fb failureBody
	if err := json.NewDecoder(resp.Body).Decode(&fb); err == nil {
		for field, msg := range fb.Errors {
			// Surface the first field error; callers with richer needs read
			// the message, which carries all of them.
			return apperrors.ValidationField(field, msg)
		}
		if fb.Message != "" {
			return apperrors.Validation(fb.Message)
		}
	}
	return apperrors.Validation(fallback)
}

func normalizeUser(u domainauth.User) domainauth.User {
	for i := range u.Orgs {
		u.Orgs[i].Role = u.Orgs[i].Role.Normalize()
	}
	return u
}

func closeBody(resp *http.Response, logger *slog.Logger) {
	if err := resp.Body.Close(); err != nil {
		logger.Warn("close response body failed", "error", err)
	}
}
