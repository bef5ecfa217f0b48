package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Session is a request-scoped database connection.
type Session struct {
	conn       *sql.Conn
	isPostgres bool
}

// Close returns the connection to the pool. It is safe to call twice.
func (s *Session) Close() error {
	err := s.conn.Close()
	if errors.Is(err, sql.ErrConnDone) {
		return nil
	}
	return err
}

func (s *Session) q(query string) string { return rebind(s.isPostgres, query) }

// inTx runs fn in a transaction on the session's connection, committing on
// success and rolling back otherwise.
func (s *Session) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Session) insertReturningID(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, query string, args ...any) (int64, error) {
	var id int64
	if err := q.QueryRowContext(ctx, s.q(query+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
