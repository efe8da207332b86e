// Package pgstore provides a PostgreSQL-backed SessionRepository for
// deployments without Redis. State lives in one row per client/entity;
// commits run in a transaction and the change feed uses LISTEN/NOTIFY.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainauth "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/domain/auth"
	apperrors "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/errors"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports"
)

// Entity names are part of the durable schema and mirror the Redis key
// suffixes.
const (
	entitySession    = "session"
	entityToken      = "token"
	entityOrgContext = "organizationContext"
	entityTemp       = "tempUserSession"
)

const notifyChannel = "auth_state_events"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS auth_client_state (
	client_id  text        NOT NULL,
	entity     text        NOT NULL,
	payload    text        NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (client_id, entity)
)`

// Store hands out client-scoped session repositories backed by one
// PostgreSQL pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ ports.RepositoryFactory = (*Store)(nil)

// NewStore creates a Store over the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the backing table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure auth state schema: %w", err)
	}
	return nil
}

// Repo returns a repository scoped to the given client namespace.
func (s *Store) Repo(clientID string) ports.SessionRepository {
	return &Repository{pool: s.pool, clientID: clientID}
}

// Repository implements ports.SessionRepository for one client namespace.
type Repository struct {
	pool     *pgxpool.Pool
	clientID string
}

var _ ports.SessionRepository = (*Repository)(nil)

// Key identifies the client namespace this repository is bound to.
func (r *Repository) Key() string { return r.clientID }

// Session returns the committed session, if present.
func (r *Repository) Session(ctx context.Context) (domainauth.Session, bool, error) {
	payload, ok, err := r.get(ctx, entitySession)
	if err != nil || !ok {
		return domainauth.Session{}, false, err
	}
	sess, err := domainauth.DecodeSession([]byte(payload))
	if err != nil {
		return domainauth.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return sess, true, nil
}

// Token returns the raw bearer token, if present.
func (r *Repository) Token(ctx context.Context) (string, bool, error) {
	return r.get(ctx, entityToken)
}

// OrgContext returns the cached organization context, if present.
func (r *Repository) OrgContext(ctx context.Context) (domainauth.OrgContext, bool, error) {
	payload, ok, err := r.get(ctx, entityOrgContext)
	if err != nil || !ok {
		return domainauth.OrgContext{}, false, err
	}
	octx, err := domainauth.DecodeOrgContext([]byte(payload))
	if err != nil {
		return domainauth.OrgContext{}, false, fmt.Errorf("decode organization context: %w", err)
	}
	return octx, true, nil
}

// TempSession returns the transient pre-commitment session, if present.
func (r *Repository) TempSession(ctx context.Context) (domainauth.TempSession, bool, error) {
	payload, ok, err := r.get(ctx, entityTemp)
	if err != nil || !ok {
		return domainauth.TempSession{}, false, err
	}
	temp, err := domainauth.DecodeTempSession([]byte(payload))
	if err != nil {
		return domainauth.TempSession{}, false, fmt.Errorf("decode temp session: %w", err)
	}
	return temp, true, nil
}

// CommitActive writes Session, token, and OrgContext and deletes any temp
// session in one transaction. The context row is written before the session
// row so even a reader outside the transaction isolation never observes a
// session pointing at a missing context.
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

	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if err := r.upsert(ctx, tx, entityOrgContext, string(octxData)); err != nil {
			return err
		}
		if err := r.upsert(ctx, tx, entitySession, string(sessData)); err != nil {
			return err
		}
		if err := r.upsert(ctx, tx, entityToken, active.Session.Token); err != nil {
			return err
		}
		if err := r.delete(ctx, tx, entityTemp); err != nil {
			return err
		}
		return r.notify(ctx, tx, ports.ChangeCommitted)
	})
	if err != nil {
		return classify(err, "commit active session")
	}
	return nil
}

// SeedTemp writes the temp session and token and deletes committed state in
// one transaction.
func (r *Repository) SeedTemp(ctx context.Context, temp domainauth.TempSession) error {
	if temp.Token == "" {
		return errors.New("temp session token cannot be empty")
	}
	data, err := json.Marshal(temp)
	if err != nil {
		return fmt.Errorf("marshal temp session: %w", err)
	}

	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if err := r.upsert(ctx, tx, entityTemp, string(data)); err != nil {
			return err
		}
		if err := r.upsert(ctx, tx, entityToken, temp.Token); err != nil {
			return err
		}
		if err := r.delete(ctx, tx, entitySession); err != nil {
			return err
		}
		if err := r.delete(ctx, tx, entityOrgContext); err != nil {
			return err
		}
		return r.notify(ctx, tx, ports.ChangeTempSeeded)
	})
	if err != nil {
		return classify(err, "seed temp session")
	}
	return nil
}

// ClearAll removes all state for the client. Idempotent.
func (r *Repository) ClearAll(ctx context.Context) error {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM auth_client_state WHERE client_id = $1`, r.clientID); err != nil {
			return err
		}
		return r.notify(ctx, tx, ports.ChangeCleared)
	})
	if err != nil {
		return classify(err, "clear auth state")
	}
	return nil
}

// Watch LISTENs on a dedicated connection and delivers events for this client
// namespace until ctx is done.
func (r *Repository) Watch(ctx context.Context) (<-chan ports.ChangeEvent, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", notifyChannel, err)
	}

	out := make(chan ports.ChangeEvent)
	go func() {
		defer close(out)
		defer conn.Release()
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				return
			}
			clientID, kind, ok := strings.Cut(n.Payload, " ")
			if !ok || clientID != r.clientID {
				continue
			}
			select {
			case out <- ports.ChangeEvent{Kind: ports.ChangeKind(kind)}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (r *Repository) get(ctx context.Context, entity string) (string, bool, error) {
	var payload string
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM auth_client_state WHERE client_id = $1 AND entity = $2`,
		r.clientID, entity).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, classify(err, "read "+entity)
	}
	return payload, true, nil
}

func (r *Repository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) upsert(ctx context.Context, tx pgx.Tx, entity, payload string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO auth_client_state (client_id, entity, payload, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (client_id, entity)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		r.clientID, entity, payload)
	return err
}

func (r *Repository) delete(ctx context.Context, tx pgx.Tx, entity string) error {
	_, err := tx.Exec(ctx,
		`DELETE FROM auth_client_state WHERE client_id = $1 AND entity = $2`,
		r.clientID, entity)
	return err
}

// notify fires inside the transaction so listeners only see events for
// commits that actually happened.
func (r *Repository) notify(ctx context.Context, tx pgx.Tx, kind ports.ChangeKind) error {
	_, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, r.clientID+" "+string(kind))
	return err
}

// classify maps PostgreSQL failures onto the error taxonomy; see
// apperrors.MapDBError for the transient/internal split.
func classify(err error, op string) error {
	return apperrors.MapDBError(err, op)
}
