// Package redis provides the production SessionRepository: per-client
// authentication state in Redis under stable keys, with atomic multi-key
// commits and a pub/sub change feed so every process sharing the store can
// re-run its route guard when another one writes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports"
)

// Key suffixes are part of the durable schema and must remain stable across
// app versions.
const (
	keySession    = "session"
	keyToken      = "token"
	keyOrgContext = "organizationContext"
	keyTemp       = "tempUserSession"
	keyEvents     = "events"
)

// Store hands out client-scoped session repositories backed by one Redis
// deployment.
type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.RepositoryFactory = (*Store)(nil)

// NewStore creates a Store with the default key prefix.
func NewStore(client redis.UniversalClient) *Store {
	return NewStoreWithPrefix(client, "authstate:")
}

// NewStoreWithPrefix creates a Store with a custom key prefix.
func NewStoreWithPrefix(client redis.UniversalClient, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Repo returns a repository scoped to the given client namespace.
func (s *Store) Repo(clientID string) ports.SessionRepository {
	return &Repository{client: s.client, prefix: s.prefix, clientID: clientID}
}

// Repository implements ports.SessionRepository for one client namespace.
type Repository struct {
	client   redis.UniversalClient
	prefix   string
	clientID string
}

var _ ports.SessionRepository = (*Repository)(nil)

// Key identifies the client namespace this repository is bound to.
func (r *Repository) Key() string { return r.clientID }

func (r *Repository) key(suffix string) string {
	return r.prefix + r.clientID + ":" + suffix
}

// Session returns the committed session, if present.
func (r *Repository) Session(ctx context.Context) (domainauth.Session, bool, error) {
	data, ok, err := r.get(ctx, keySession)
	if err != nil || !ok {
		return domainauth.Session{}, false, err
	}
	sess, err := domainauth.DecodeSession(data)
	if err != nil {
		return domainauth.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return sess, true, nil
}

// Token returns the raw bearer token, if present. It is duplicated from the
// session for low-overhead reads.
func (r *Repository) Token(ctx context.Context) (string, bool, error) {
	data, ok, err := r.get(ctx, keyToken)
	if err != nil || !ok {
		return "", false, err
	}
	return string(data), true, nil
}

// OrgContext returns the cached organization context, if present.
func (r *Repository) OrgContext(ctx context.Context) (domainauth.OrgContext, bool, error) {
	data, ok, err := r.get(ctx, keyOrgContext)
	if err != nil || !ok {
		return domainauth.OrgContext{}, false, err
	}
	octx, err := domainauth.DecodeOrgContext(data)
	if err != nil {
		return domainauth.OrgContext{}, false, fmt.Errorf("decode organization context: %w", err)
	}
	return octx, true, nil
}

// TempSession returns the transient pre-commitment session, if present.
func (r *Repository) TempSession(ctx context.Context) (domainauth.TempSession, bool, error) {
	data, ok, err := r.get(ctx, keyTemp)
	if err != nil || !ok {
		return domainauth.TempSession{}, false, err
	}
	temp, err := domainauth.DecodeTempSession(data)
	if err != nil {
		return domainauth.TempSession{}, false, fmt.Errorf("decode temp session: %w", err)
	}
	return temp, true, nil
}

// CommitActive writes Session, token, and OrgContext and deletes any temp
// session in one MULTI/EXEC, so a reader never observes a session pointing at
// a missing context. The context is queued before the session to keep the
// write-ahead ordering even for non-transactional readers of a pipeline.
func (r *Repository) CommitActive(ctx context.Context, active domainauth.ActiveSession) error {
	if !active.Consistent() {
		return errors.New("active session and organization context ids diverge")
	}
	sessData, err := json.Marshal(active.Session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	octxData, err := json.Marshal(active.OrgContext)
	if err != nil {
		return fmt.Errorf("marshal organization context: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(keyOrgContext), octxData, 0)
	pipe.Set(ctx, r.key(keySession), sessData, 0)
	pipe.Set(ctx, r.key(keyToken), active.Session.Token, 0)
	pipe.Del(ctx, r.key(keyTemp))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("commit active session: %w", err)
	}

	r.publish(ctx, ports.ChangeCommitted)
	return nil
}

// SeedTemp writes the temp session and its token and deletes any committed
// session and context in one MULTI/EXEC.
func (r *Repository) SeedTemp(ctx context.Context, temp domainauth.TempSession) error {
	if temp.Token == "" {
		return errors.New("temp session token cannot be empty")
	}
	data, err := json.Marshal(temp)
	if err != nil {
		return fmt.Errorf("marshal temp session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(keyTemp), data, 0)
	pipe.Set(ctx, r.key(keyToken), temp.Token, 0)
	pipe.Del(ctx, r.key(keySession))
	pipe.Del(ctx, r.key(keyOrgContext))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("seed temp session: %w", err)
	}

	r.publish(ctx, ports.ChangeTempSeeded)
	return nil
}

// ClearAll removes all four entities. Idempotent.
func (r *Repository) ClearAll(ctx context.Context) error {
	keys := []string{r.key(keySession), r.key(keyToken), r.key(keyOrgContext), r.key(keyTemp)}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear auth state: %w", err)
	}
	r.publish(ctx, ports.ChangeCleared)
	return nil
}

// Watch subscribes to the namespace's event channel and delivers change
// events until ctx is done. Writes made by any process sharing the Redis
// deployment are included.
func (r *Repository) Watch(ctx context.Context) (<-chan ports.ChangeEvent, error) {
	sub := r.client.Subscribe(ctx, r.key(keyEvents))
	// Force the subscription to be established before returning so callers
	// don't miss events written immediately after Watch.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe auth state events: %w", err)
	}

	out := make(chan ports.ChangeEvent)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- ports.ChangeEvent{Kind: ports.ChangeKind(msg.Payload)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *Repository) get(ctx context.Context, suffix string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key(suffix)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", suffix, err)
	}
	return data, true, nil
}

// publish is best effort; a missed notification only delays the next guard
// pass, it never corrupts state.
func (r *Repository) publish(ctx context.Context, kind ports.ChangeKind) {
	_ = r.client.Publish(ctx, r.key(keyEvents), string(kind)).Err()
}
