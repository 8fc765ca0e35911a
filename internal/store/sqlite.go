package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Timestamps are unix seconds. The driver binds time.Time as an RFC3339
// string, which does not compare cleanly against SQLite's own datetime()
// text, so the schema sticks to integers.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS checkpoints (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS batch_locks (
	key        TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_batch_locks_expires_at ON batch_locks(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM checkpoints WHERE key = ?`,
		key,
	)

	var value string
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get checkpoint")
	}
	return []byte(value), nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if len(value) > MaxPayload {
		return ErrPayloadTooLarge
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().Unix(),
	)
	return eris.Wrap(err, "sqlite: set checkpoint")
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE key = ?`, key)
	return eris.Wrap(err, "sqlite: delete checkpoint")
}

// Lock acquires the advisory lock for key. An existing lock only yields
// once its expiry has lapsed; until then callers get ErrLockHeld.
func (s *SQLiteStore) Lock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_locks (key, token, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET token = excluded.token, expires_at = excluded.expires_at
		 WHERE batch_locks.expires_at <= ?`,
		key, token, now.Add(ttl).Unix(), now.Unix(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: lock %s", key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return "", ErrLockHeld
	}
	return token, nil
}

// Refresh extends the expiry of a lock the token still owns. ErrLockLost
// means the lock was released or reclaimed; the caller no longer holds it.
func (s *SQLiteStore) Refresh(ctx context.Context, key, token string, ttl time.Duration) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE batch_locks SET expires_at = ? WHERE key = ? AND token = ?`,
		time.Now().UTC().Add(ttl).Unix(), key, token,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: refresh lock %s", key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}

// Unlock releases the lock while token still owns it. A lock already
// released or reclaimed by a newer run is left alone.
func (s *SQLiteStore) Unlock(ctx context.Context, key, token string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM batch_locks WHERE key = ? AND token = ?`,
		key, token,
	)
	return eris.Wrapf(err, "sqlite: unlock %s", key)
}
