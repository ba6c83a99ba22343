package state

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const (
	DefaultSQLitePath = ".ekscd/state.db"
	stateKey          = "default"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS state_lock (
	name      TEXT PRIMARY KEY,
	id        TEXT NOT NULL,
	operation TEXT NOT NULL,
	who       TEXT NOT NULL,
	created   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS state (
	name    TEXT PRIMARY KEY,
	serial  INTEGER NOT NULL,
	lineage TEXT NOT NULL,
	body    TEXT NOT NULL
);`

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating state directory for %s", path)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "opening state database %s", path)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating state schema")
	}
	log.Debug().Msgf("using sqlite state store %s", path)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Lock(ctx context.Context, info LockInfo) (string, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO state_lock (name, id, operation, who, created) VALUES (?, ?, ?, ?, ?) ON CONFLICT(name) DO NOTHING`,
		stateKey, info.ID, info.Operation, info.Who, info.Created.Format(time.RFC3339Nano))
	if err != nil {
		return "", errors.Wrap(err, "taking state lock")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return "", err
	}
	if affected == 0 {
		holder, err := s.LockInfo(ctx)
		if err != nil {
			return "", err
		}
		if holder == nil {
			return "", ErrLocked
		}
		return "", &LockedError{Holder: *holder}
	}
	return info.ID, nil
}

func (s *SQLiteStore) Unlock(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM state_lock WHERE name = ? AND id = ?`, stateKey, id)
	if err != nil {
		return errors.Wrap(err, "releasing state lock")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (s *SQLiteStore) ForceUnlock(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM state_lock WHERE name = ?`, stateKey)
	return errors.Wrap(err, "force releasing state lock")
}

func (s *SQLiteStore) LockInfo(ctx context.Context) (*LockInfo, error) {
	var info LockInfo
	var created string
	err := s.db.QueryRowContext(ctx, `SELECT id, operation, who, created FROM state_lock WHERE name = ?`, stateKey).
		Scan(&info.ID, &info.Operation, &info.Who, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading state lock")
	}
	info.Created, _ = time.Parse(time.RFC3339Nano, created)
	return &info, nil
}

func (s *SQLiteStore) Read(ctx context.Context) (*Snapshot, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM state WHERE name = ?`, stateKey).Scan(&body)
	if err == sql.ErrNoRows {
		return NewSnapshot(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading state")
	}
	snapshot := NewSnapshot()
	if err := decodeSnapshot(body, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *SQLiteStore) Write(ctx context.Context, lockID string, snapshot *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var holder string
	err = tx.QueryRowContext(ctx, `SELECT id FROM state_lock WHERE name = ?`, stateKey).Scan(&holder)
	if err == sql.ErrNoRows || (err == nil && holder != lockID) {
		return ErrLockNotHeld
	}
	if err != nil {
		return err
	}

	var serial int64
	err = tx.QueryRowContext(ctx, `SELECT serial FROM state WHERE name = ?`, stateKey).Scan(&serial)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if serial != snapshot.Serial {
		return errors.Wrapf(ErrStaleSerial, "stored serial %d, snapshot serial %d", serial, snapshot.Serial)
	}

	prepareWrite(snapshot)
	next := snapshot.Clone()
	next.Serial = serial + 1
	body, err := encodeSnapshot(next)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO state (name, serial, lineage, body) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET serial = excluded.serial, lineage = excluded.lineage, body = excluded.body`,
		stateKey, next.Serial, next.Lineage, body)
	if err != nil {
		return errors.Wrap(err, "writing state")
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	snapshot.Serial = next.Serial
	return nil
}
