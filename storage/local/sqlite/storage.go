package sqlitestorage

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/trezcool/formportal/core"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// Storage persists keys in a single sqlite file, one profile per file.
type Storage struct {
	db *sqlx.DB
}

var _ core.LocalStorage = (*Storage)(nil) // interface compliance check

// Open opens (creating if needed) the sqlite file at path.
func Open(ctx context.Context, path string) (*Storage, error) {
	db, err := sqlx.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating kv table")
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	var val string
	if err := s.db.GetContext(ctx, &val, `SELECT value FROM kv WHERE key = ?`, key); err != nil {
		if err == sql.ErrNoRows {
			return "", core.ErrKeyNotFound
		}
		return "", errors.Wrapf(err, "getting %q", key)
	}
	return val, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	q := `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.ExecContext(ctx, q, key, value); err != nil {
		return errors.Wrapf(err, "setting %q", key)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return errors.Wrapf(err, "deleting %q", key)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}
