package httpx

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
)

// readEvent scans the stream until the next "event:" line, skipping
// heartbeats and blank separators.
func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err, "stream ended before an event arrived")
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			return strings.TrimSpace(name)
		}
	}
}

func TestEventsEndpoint_StreamsChangesFromOtherWriters(t *testing.T) {
	f := newRouterFixture(t)
	srv := httptest.NewServer(f.handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/auth/events", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: ClientIDCookie, Value: f.clientID})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	handshake, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": connected\n", handshake)

	// Another tab in the same namespace logs in, switches, and logs out.
	repo := f.repo()
	active := domainauth.NewActiveSession(domainauth.Session{
		UserID:         "u-1",
		Role:           domainauth.RoleAdmin,
		Token:          "tok-1",
		OrganizationID: "org-1",
	})
	require.NoError(t, repo.CommitActive(context.Background(), active))
	assert.Equal(t, "committed", readEvent(t, reader))

	require.NoError(t, repo.SeedTemp(context.Background(), domainauth.TempSession{
		Token: "tok-2",
		User:  domainauth.User{ID: "u-1"},
	}))
	assert.Equal(t, "temp_seeded", readEvent(t, reader))

	require.NoError(t, repo.ClearAll(context.Background()))
	assert.Equal(t, "cleared", readEvent(t, reader))
}

func TestEventsEndpoint_ScopedToOwnNamespace(t *testing.T) {
	f := newRouterFixture(t)
	srv := httptest.NewServer(f.handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/auth/events", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: ClientIDCookie, Value: f.clientID})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	reader := bufio.NewReader(resp.Body)
	handshake, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": connected\n", handshake)

	// A write in a different client's namespace must not reach this stream;
	// a write in our own must, and must be the first event delivered.
	other := f.store.Repo("other-client")
	require.NoError(t, other.ClearAll(context.Background()))

	repo := f.repo()
	active := domainauth.NewActiveSession(domainauth.Session{
		UserID:         "u-1",
		Role:           domainauth.RoleAdmin,
		Token:          "tok-1",
		OrganizationID: "org-1",
	})
	require.NoError(t, repo.CommitActive(context.Background(), active))
	assert.Equal(t, "committed", readEvent(t, reader),
		"first delivered event must be the own-namespace write")
}
