// Package storage persists swap sessions in a local sqlite database so
// in-flight swaps survive daemon restarts.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Ashar20/fusion-cross-chain-bridge/pkg/logging"
)

// Storage wraps the sqlite database. sqlite allows a single writer, so
// all access goes through this one handle.
type Storage struct {
	db  *sql.DB
	log *logging.Logger
}

// New opens (or creates) the database under dataDir.
func New(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dataDir, "bridge.db")
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Storage{db: db, log: logging.GetDefault().Component("storage")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Debug("database opened", "path", path)
	return s, nil
}

// Close releases the database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS swap_sessions (
		id            TEXT PRIMARY KEY,
		state         TEXT NOT NULL,
		hash_algo     TEXT NOT NULL,
		hashlock      TEXT NOT NULL,
		secret        TEXT NOT NULL DEFAULT '',

		src_chain     TEXT NOT NULL,
		src_lock_id   TEXT NOT NULL DEFAULT '',
		src_sender    TEXT NOT NULL,
		src_recipient TEXT NOT NULL,
		src_amount    INTEGER NOT NULL,
		src_timelock  INTEGER NOT NULL,
		src_status    TEXT NOT NULL DEFAULT '',
		src_secret    TEXT NOT NULL DEFAULT '',
		src_create_tx TEXT NOT NULL DEFAULT '',
		src_claim_tx  TEXT NOT NULL DEFAULT '',
		src_refund_tx TEXT NOT NULL DEFAULT '',

		dst_chain     TEXT NOT NULL,
		dst_lock_id   TEXT NOT NULL DEFAULT '',
		dst_sender    TEXT NOT NULL,
		dst_recipient TEXT NOT NULL,
		dst_amount    INTEGER NOT NULL,
		dst_timelock  INTEGER NOT NULL,
		dst_status    TEXT NOT NULL DEFAULT '',
		dst_secret    TEXT NOT NULL DEFAULT '',
		dst_create_tx TEXT NOT NULL DEFAULT '',
		dst_claim_tx  TEXT NOT NULL DEFAULT '',
		dst_refund_tx TEXT NOT NULL DEFAULT '',

		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_state ON swap_sessions(state);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
