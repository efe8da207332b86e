// Package memstore provides an in-process SessionRepository for development
// mode and unit tests. Semantics match the Redis adapter, including the
// change feed, but nothing survives a restart.
package memstore

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports"
)

// Store hands out client-scoped in-memory repositories.
type Store struct {
	mu      sync.Mutex
	clients map[string]*clientState
}

var _ ports.RepositoryFactory = (*Store)(nil)

type clientState struct {
	mu       sync.Mutex
	session  *domainauth.Session
	token    string
	orgCtx   *domainauth.OrgContext
	temp     *domainauth.TempSession
	watchers map[string]chan ports.ChangeEvent
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{clients: make(map[string]*clientState)}
}

// Repo returns a repository scoped to the given client namespace.
func (s *Store) Repo(clientID string) ports.SessionRepository {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.clients[clientID]
	if !ok {
		state = &clientState{watchers: make(map[string]chan ports.ChangeEvent)}
		s.clients[clientID] = state
	}
	return &Repository{clientID: clientID, state: state}
}

// Repository implements ports.SessionRepository over shared in-process state.
type Repository struct {
	clientID string
	state    *clientState
}

var _ ports.SessionRepository = (*Repository)(nil)

// Key identifies the client namespace this repository is bound to.
func (r *Repository) Key() string { return r.clientID }

// Session returns the committed session, if present.
func (r *Repository) Session(_ context.Context) (domainauth.Session, bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if r.state.session == nil {
		return domainauth.Session{}, false, nil
	}
	return *r.state.session, true, nil
}

// Token returns the raw bearer token, if present.
func (r *Repository) Token(_ context.Context) (string, bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if r.state.token == "" {
		return "", false, nil
	}
	return r.state.token, true, nil
}

// OrgContext returns the cached organization context, if present.
func (r *Repository) OrgContext(_ context.Context) (domainauth.OrgContext, bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if r.state.orgCtx == nil {
		return domainauth.OrgContext{}, false, nil
	}
	return *r.state.orgCtx, true, nil
}

// TempSession returns the transient pre-commitment session, if present.
func (r *Repository) TempSession(_ context.Context) (domainauth.TempSession, bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if r.state.temp == nil {
		return domainauth.TempSession{}, false, nil
	}
	return *r.state.temp, true, nil
}

// CommitActive writes Session, token, and OrgContext and deletes any temp
// session under one lock acquisition.
func (r *Repository) CommitActive(_ context.Context, active domainauth.ActiveSession) error {
	if !active.Consistent() {
		return errors.New("active session and organization context ids diverge")
	}
	sess := active.Session
	octx := active.OrgContext

	r.state.mu.Lock()
	r.state.session = &sess
	r.state.orgCtx = &octx
	r.state.token = sess.Token
	r.state.temp = nil
	r.state.mu.Unlock()

	r.notify(ports.ChangeCommitted)
	return nil
}

// SeedTemp writes the temp session and token and deletes committed state.
func (r *Repository) SeedTemp(_ context.Context, temp domainauth.TempSession) error {
	if temp.Token == "" {
		return errors.New("temp session token cannot be empty")
	}
	t := temp

	r.state.mu.Lock()
	r.state.temp = &t
	r.state.token = t.Token
	r.state.session = nil
	r.state.orgCtx = nil
	r.state.mu.Unlock()

	r.notify(ports.ChangeTempSeeded)
	return nil
}

// ClearAll removes all state. Idempotent.
func (r *Repository) ClearAll(_ context.Context) error {
	r.state.mu.Lock()
	r.state.session = nil
	r.state.orgCtx = nil
	r.state.temp = nil
	r.state.token = ""
	r.state.mu.Unlock()

	r.notify(ports.ChangeCleared)
	return nil
}

// Watch delivers change events for this client namespace until ctx is done.
func (r *Repository) Watch(ctx context.Context) (<-chan ports.ChangeEvent, error) {
	id := uuid.NewString()
	ch := make(chan ports.ChangeEvent, 8)

	r.state.mu.Lock()
	r.state.watchers[id] = ch
	r.state.mu.Unlock()

	out := make(chan ports.ChangeEvent)
	go func() {
		defer close(out)
		defer func() {
			r.state.mu.Lock()
			delete(r.state.watchers, id)
			r.state.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// notify is non-blocking; a watcher that has fallen behind loses events
// rather than stalling writers, matching the Redis pub/sub contract.
func (r *Repository) notify(kind ports.ChangeKind) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, ch := range r.state.watchers {
		select {
		case ch <- ports.ChangeEvent{Kind: kind}:
		default:
		}
	}
}
