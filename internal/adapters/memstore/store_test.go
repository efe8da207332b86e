package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports"
)

func activeSession(token, orgID string) domainauth.ActiveSession {
	return domainauth.NewActiveSession(domainauth.Session{
		UserID:         "u-1",
		Role:           domainauth.RoleAdmin,
		Token:          token,
		OrganizationID: orgID,
		Orgs: []domainauth.OrgMembership{
			{ID: orgID, Name: "Acme", Role: domainauth.RoleAdmin},
		},
	})
}

func TestRepository_CommitActive_WritesAllKeysAndDropsTemp(t *testing.T) {
	repo := NewStore().Repo("client-1")
	ctx := context.Background()

	require.NoError(t, repo.SeedTemp(ctx, domainauth.TempSession{Token: "temp-tok"}))
	require.NoError(t, repo.CommitActive(ctx, activeSession("tok-1", "org-1")))

	sess, ok, err := repo.Session(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "org-1", sess.OrganizationID)

	token, ok, err := repo.Token(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-1", token)

	octx, ok, err := repo.OrgContext(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "org-1", octx.ID)

	_, ok, err = repo.TempSession(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "commit removes any pending temp session")
}

func TestRepository_CommitActive_RejectsInconsistentState(t *testing.T) {
	repo := NewStore().Repo("client-1")

	bad := activeSession("tok-1", "org-1")
	bad.OrgContext.ID = "org-2"
	assert.Error(t, repo.CommitActive(context.Background(), bad))

	_, ok, err := repo.Session(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "rejected commit writes nothing")
}

func TestRepository_SeedTemp_DropsCommittedState(t *testing.T) {
	repo := NewStore().Repo("client-1")
	ctx := context.Background()

	require.NoError(t, repo.CommitActive(ctx, activeSession("tok-1", "org-1")))
	require.NoError(t, repo.SeedTemp(ctx, domainauth.TempSession{Token: "temp-tok"}))

	_, ok, err := repo.Session(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = repo.OrgContext(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	token, ok, err := repo.Token(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "temp-tok", token, "token follows the temp session")
}

func TestRepository_SeedTemp_RequiresToken(t *testing.T) {
	repo := NewStore().Repo("client-1")
	assert.Error(t, repo.SeedTemp(context.Background(), domainauth.TempSession{}))
}

func TestRepository_ClearAll_IsIdempotent(t *testing.T) {
	repo := NewStore().Repo("client-1")
	ctx := context.Background()

	require.NoError(t, repo.CommitActive(ctx, activeSession("tok-1", "org-1")))
	require.NoError(t, repo.ClearAll(ctx))
	require.NoError(t, repo.ClearAll(ctx))

	for name, probe := range map[string]func() (bool, error){
		"session": func() (bool, error) { _, ok, err := repo.Session(ctx); return ok, err },
		"token":   func() (bool, error) { _, ok, err := repo.Token(ctx); return ok, err },
		"orgctx":  func() (bool, error) { _, ok, err := repo.OrgContext(ctx); return ok, err },
		"temp":    func() (bool, error) { _, ok, err := repo.TempSession(ctx); return ok, err },
	} {
		ok, err := probe()
		require.NoError(t, err)
		assert.False(t, ok, "%s should be gone", name)
	}
}

func TestStore_NamespacesAreIsolated(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	a := store.Repo("client-a")
	b := store.Repo("client-b")
	require.NoError(t, a.CommitActive(ctx, activeSession("tok-a", "org-1")))

	_, ok, err := b.Session(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.ClearAll(ctx))
	_, ok, err = a.Session(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "clearing one client never touches another")
}

func TestStore_RepoReturnsSharedStatePerClient(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := store.Repo("client-1")
	require.NoError(t, first.CommitActive(ctx, activeSession("tok-1", "org-1")))

	second := store.Repo("client-1")
	sess, ok, err := second.Session(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-1", sess.Token)
}

func TestRepository_Watch_DeliversChangeEvents(t *testing.T) {
	repo := NewStore().Repo("client-1")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := repo.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.SeedTemp(ctx, domainauth.TempSession{Token: "temp-tok"}))
	require.NoError(t, repo.CommitActive(ctx, activeSession("tok-1", "org-1")))
	require.NoError(t, repo.ClearAll(ctx))

	want := []ports.ChangeKind{ports.ChangeTempSeeded, ports.ChangeCommitted, ports.ChangeCleared}
	for _, kind := range want {
		select {
		case ev := <-events:
			assert.Equal(t, kind, ev.Kind)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func TestRepository_Watch_ClosesOnContextCancel(t *testing.T) {
	repo := NewStore().Repo("client-1")
	ctx, cancel := context.WithCancel(context.Background())

	events, err := repo.Watch(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, open := <-events:
		assert.False(t, open, "channel closes after cancellation")
	case <-time.After(time.Second):
		t.Fatal("watch channel did not close")
	}
}
