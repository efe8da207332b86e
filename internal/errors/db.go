package errors

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError maps database failures onto the error taxonomy.
//
// Connection exceptions, serialization failures, deadlocks, and context
// deadlines become Transient: the session validator and the logout flow must
// treat an unreachable store the same way they treat an unreachable backend,
// never as authoritative state loss. Everything else is Internal.
func MapDBError(err error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Wrap(err, ErrCodeTransient, op)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgErr.Code == pgerrcode.SerializationFailure,
			pgErr.Code == pgerrcode.DeadlockDetected:
			return Wrap(err, ErrCodeTransient, op)
		}
		return Wrap(err, ErrCodeInternal, op)
	}

	return Wrap(err, ErrCodeInternal, op)
}
