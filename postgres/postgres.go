package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/ost"
)

// PGStore implements ost.Store using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

var _ ost.Store = (*PGStore)(nil)

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Open connects to dsn, falling back to DATABASE_URL when dsn is empty.
func Open(ctx context.Context, dsn string, maxConns int32) (*PGStore, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, errors.New("ost: postgres DSN or DATABASE_URL required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("ost: parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ost: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ost: ping: %w", err)
	}
	return New(pool), nil
}

// Close releases the pool.
func (s *PGStore) Close() {
	s.db.Close()
}

// isNoRows checks if the error is a "no rows" error from pgx.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// foreign_key_violation
const fkViolation = "23503"

// wrapWrite maps constraint failures onto the ost sentinels.
func wrapWrite(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == fkViolation {
		return fmt.Errorf("ost: %s: %s: %w", op, pgErr.ConstraintName, ost.ErrInvalidParent)
	}
	return fmt.Errorf("ost: %s: %w", op, err)
}

// updateSet accumulates "col = $n" assignments for partial updates.
type updateSet struct {
	cols []string
	args []any
}

func (u *updateSet) add(col string, v any) {
	u.args = append(u.args, v)
	u.cols = append(u.cols, fmt.Sprintf("%s = $%d", col, len(u.args)))
}

func addIf[T any](u *updateSet, col string, v *T) {
	if v != nil {
		u.add(col, *v)
	}
}

func addOptional[T any](u *updateSet, col string, o ost.Optional[T]) {
	if o.Set {
		u.add(col, o.Value)
	}
}

func (u *updateSet) empty() bool { return len(u.cols) == 0 }

// sql renders the UPDATE statement for table with id as the last argument.
func (u *updateSet) sql(table, id, returning string) (string, []any) {
	args := append(u.args, id)
	q := fmt.Sprintf("UPDATE %s SET ", table)
	for i, c := range u.cols {
		if i > 0 {
			q += ", "
		}
		q += c
	}
	q += fmt.Sprintf(" WHERE id = $%d RETURNING %s", len(args), returning)
	return q, args
}
