package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/yolwise/leadscore-cli/internal/db"
)

// PostgresStore implements Store using pgxpool. It exists for shared
// deployments where several operators run batches against one database.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_checkpoint":    `SELECT value FROM checkpoints WHERE key = $1`,
	"set_checkpoint":    `INSERT INTO checkpoints (key, value, updated_at) VALUES ($1, $2, $3) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
	"delete_checkpoint": `DELETE FROM checkpoints WHERE key = $1`,
	"acquire_lock":      `INSERT INTO batch_locks (key, token, expires_at) VALUES ($1, $2, $3) ON CONFLICT (key) DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at WHERE batch_locks.expires_at <= $4`,
	"refresh_lock":      `UPDATE batch_locks SET expires_at = $3 WHERE key = $1 AND token = $2`,
	"release_lock":      `DELETE FROM batch_locks WHERE key = $1 AND token = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS checkpoints (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS batch_locks (
	key        TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_batch_locks_expires_at ON batch_locks(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM checkpoints WHERE key = $1`,
		key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get checkpoint")
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	if len(value) > MaxPayload {
		return ErrPayloadTooLarge
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO checkpoints (key, value, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: set checkpoint")
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM checkpoints WHERE key = $1`, key)
	return eris.Wrap(err, "postgres: delete checkpoint")
}

// Lock acquires the advisory lock for key. An existing lock only yields
// once its expiry has lapsed; until then callers get ErrLockHeld.
func (s *PostgresStore) Lock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	now := time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO batch_locks (key, token, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
		 WHERE batch_locks.expires_at <= $4`,
		key, token, now.Add(ttl), now,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: lock %s", key)
	}
	if tag.RowsAffected() == 0 {
		return "", ErrLockHeld
	}
	return token, nil
}

// Refresh extends the expiry of a lock the token still owns. ErrLockLost
// means the lock was released or reclaimed; the caller no longer holds it.
func (s *PostgresStore) Refresh(ctx context.Context, key, token string, ttl time.Duration) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE batch_locks SET expires_at = $3 WHERE key = $1 AND token = $2`,
		key, token, time.Now().UTC().Add(ttl),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: refresh lock %s", key)
	}
	if tag.RowsAffected() == 0 {
		return ErrLockLost
	}
	return nil
}

// Unlock releases the lock while token still owns it. A lock already
// released or reclaimed by a newer run is left alone.
func (s *PostgresStore) Unlock(ctx context.Context, key, token string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM batch_locks WHERE key = $1 AND token = $2`,
		key, token,
	)
	return eris.Wrapf(err, "postgres: unlock %s", key)
}
