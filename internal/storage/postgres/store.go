package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hongminglow/deepsea-be/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ensure Store satisfies the storage interfaces at compile time.
var (
	_ storage.Store          = (*Store)(nil)
	_ storage.AdminBootstrap = (*Store)(nil)
)

// Options bounds the connection pool.
type Options struct {
	MaxConns       int32
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration
	// AcquireTimeout caps how long a request waits for a free connection.
	AcquireTimeout time.Duration
}

// querier is implemented by pooled connections and transactions alike.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// db hands out scoped connections with a bounded acquisition wait.
type db struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

func (d *db) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	acquireCtx := ctx
	if d.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, d.acquireTimeout)
		defer cancel()
	}
	conn, err := d.pool.Acquire(acquireCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", storage.ErrPoolTimeout, d.acquireTimeout)
		}
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

// withConn runs fn on a connection that is released when fn returns.
func (d *db) withConn(ctx context.Context, fn func(q querier) error) error {
	conn, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return fn(conn)
}

// inTx runs fn inside a transaction, committing only if fn succeeds.
func (d *db) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	conn, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Store provides Postgres-backed persistence for the directory.
type Store struct {
	db          *db
	users       *UserStore
	sessions    *SessionStore
	permissions *PermissionStore
	directory   *DirectoryStore
}

// Open connects a bounded pool and verifies the database is reachable.
func Open(ctx context.Context, databaseURL string, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.IdleTimeout > 0 {
		cfg.MaxConnIdleTime = opts.IdleTimeout
	}
	if opts.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return newStore(pool, opts.AcquireTimeout), nil
}

func newStore(pool *pgxpool.Pool, acquireTimeout time.Duration) *Store {
	d := &db{pool: pool, acquireTimeout: acquireTimeout}
	return &Store{
		db:          d,
		users:       &UserStore{db: d},
		sessions:    &SessionStore{db: d},
		permissions: &PermissionStore{db: d},
		directory:   &DirectoryStore{db: d},
	}
}

func (s *Store) Users() storage.UserStore             { return s.users }
func (s *Store) Sessions() storage.SessionStore       { return s.sessions }
func (s *Store) Permissions() storage.PermissionStore { return s.permissions }
func (s *Store) Departments() storage.DepartmentStore { return s.directory }
func (s *Store) JobTitles() storage.JobTitleStore     { return s.directory }

// Ping checks that a connection can be acquired and used.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.withConn(ctx, func(q querier) error {
		_, err := q.Exec(ctx, "SELECT 1")
		return err
	})
}

// Close releases database resources.
func (s *Store) Close() {
	if s.db != nil && s.db.pool != nil {
		s.db.pool.Close()
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// userWriteErr maps constraint violations from an insert or update on users.
func userWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == "23505":
		return storage.ErrAlreadyExists
	case pgErr.Code == "23503" && strings.Contains(pgErr.ConstraintName, "department_id"):
		return storage.ErrUnknownDepartment
	case pgErr.Code == "23503" && strings.Contains(pgErr.ConstraintName, "job_title_id"):
		return storage.ErrUnknownJobTitle
	}
	return err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}
