// Package pg implementa el adapter PostgreSQL sobre pgxpool.
package pg

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	"github.com/dropDatabas3/printdesk/internal/security/password"
	"github.com/dropDatabas3/printdesk/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// nullIfEmpty retorna nil si s está vacío (columnas opcionales).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// mapErr traduce errores de pgx a los sentinels del dominio.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("pg: %s: %w", op, repository.ErrConflict)
		case "23514", "22P02": // check_violation, invalid_text_representation
			return fmt.Errorf("pg: %s: %w", op, repository.ErrInvalidInput)
		}
	}
	return fmt.Errorf("pg: %s: %w", op, err)
}

// postgresAdapter implementa store.Adapter para PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}
	if cfg.ConnMaxLife > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLife
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &pgConnection{pool: pool, sessionTTL: ttl, hash: password.Default}, nil
}

// pgConnection representa una conexión activa a PostgreSQL.
type pgConnection struct {
	pool       *pgxpool.Pool
	sessionTTL time.Duration
	hash       password.Params
}

func (c *pgConnection) Name() string { return "postgres" }

func (c *pgConnection) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *pgConnection) Close() error {
	c.pool.Close()
	return nil
}

// ─── Repositorios ───

func (c *pgConnection) Credentials() repository.CredentialStore {
	return &credentialRepo{pool: c.pool, sessionTTL: c.sessionTTL, hash: c.hash}
}
func (c *pgConnection) Profiles() repository.ProfileRepository { return &profileRepo{pool: c.pool} }
func (c *pgConnection) Staff() repository.StaffRepository      { return &staffRepo{pool: c.pool} }

// Migrate implementa store.Migratable.
func (c *pgConnection) Migrate(ctx context.Context) (*store.MigrationResult, error) {
	return store.NewMigrator(migrationsFS, "migrations").Run(ctx, &poolExecutor{pool: c.pool})
}

// poolExecutor adapta pgxpool.Pool a store.SQLExecutor.
type poolExecutor struct {
	pool *pgxpool.Pool
}

func (e *poolExecutor) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := e.pool.Exec(ctx, sql, args...)
	return err
}

func (e *poolExecutor) QueryInts(ctx context.Context, sql string, args ...any) ([]int, error) {
	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

func (e *poolExecutor) Tx(ctx context.Context, fn func(store.SQLExecutor) error) error {
	return pgx.BeginFunc(ctx, e.pool, func(tx pgx.Tx) error {
		return fn(&txExecutor{tx: tx})
	})
}

// txExecutor corre dentro de una transacción abierta; Tx anidado reusa la misma.
type txExecutor struct {
	tx pgx.Tx
}

func (e *txExecutor) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := e.tx.Exec(ctx, sql, args...)
	return err
}

func (e *txExecutor) QueryInts(ctx context.Context, sql string, args ...any) ([]int, error) {
	rows, err := e.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

func (e *txExecutor) Tx(_ context.Context, fn func(store.SQLExecutor) error) error {
	return fn(e)
}
