package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/swap"
	"github.com/Ashar20/fusion-cross-chain-bridge/pkg/helpers"
)

const sessionColumns = `
	id, state, hash_algo, hashlock, secret,
	src_chain, src_lock_id, src_sender, src_recipient, src_amount,
	src_timelock, src_status, src_secret, src_create_tx, src_claim_tx, src_refund_tx,
	dst_chain, dst_lock_id, dst_sender, dst_recipient, dst_amount,
	dst_timelock, dst_status, dst_secret, dst_create_tx, dst_claim_tx, dst_refund_tx,
	created_at, updated_at`

// SaveSession inserts or updates a session. The secret is stored so a
// restarted daemon can finish a half-claimed swap; the data directory
// is created owner-only for that reason.
func (s *Storage) SaveSession(session *swap.Session) error {
	_, err := s.db.Exec(`
		INSERT INTO swap_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?,
		        ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		        ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		        ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			secret = excluded.secret,
			src_lock_id = excluded.src_lock_id,
			src_status = excluded.src_status,
			src_secret = excluded.src_secret,
			src_create_tx = excluded.src_create_tx,
			src_claim_tx = excluded.src_claim_tx,
			src_refund_tx = excluded.src_refund_tx,
			dst_lock_id = excluded.dst_lock_id,
			dst_status = excluded.dst_status,
			dst_secret = excluded.dst_secret,
			dst_create_tx = excluded.dst_create_tx,
			dst_claim_tx = excluded.dst_claim_tx,
			dst_refund_tx = excluded.dst_refund_tx,
			updated_at = excluded.updated_at`,
		session.ID, string(session.State), string(session.HashAlgo),
		helpers.BytesToHex(session.Hashlock[:]), helpers.BytesToHex(session.Secret),
		session.Source.Chain, session.Source.ID, session.Source.Sender,
		session.Source.Recipient, session.Source.Amount,
		session.Source.Timelock.Unix(), string(session.Source.Status),
		helpers.BytesToHex(session.Source.Secret),
		session.Source.CreateTxID, session.Source.ClaimTxID, session.Source.RefundTxID,
		session.Destination.Chain, session.Destination.ID, session.Destination.Sender,
		session.Destination.Recipient, session.Destination.Amount,
		session.Destination.Timelock.Unix(), string(session.Destination.Status),
		helpers.BytesToHex(session.Destination.Secret),
		session.Destination.CreateTxID, session.Destination.ClaimTxID, session.Destination.RefundTxID,
		session.CreatedAt.Unix(), session.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}

// GetSession loads one session by id.
func (s *Storage) GetSession(id string) (*swap.Session, error) {
	row := s.db.QueryRow(
		`SELECT `+sessionColumns+` FROM swap_sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, swap.ErrSessionNotFound
	}
	return session, err
}

// ListSessions returns every stored session, newest first.
func (s *Storage) ListSessions() ([]*swap.Session, error) {
	return s.querySessions(
		`SELECT ` + sessionColumns + ` FROM swap_sessions ORDER BY created_at DESC`)
}

// PendingSessions returns sessions that still need driving: everything
// outside the terminal states.
func (s *Storage) PendingSessions() ([]*swap.Session, error) {
	return s.querySessions(
		`SELECT `+sessionColumns+` FROM swap_sessions
		 WHERE state NOT IN (?, ?, ?) ORDER BY created_at`,
		string(swap.StateBothClaimed), string(swap.StateExpired), string(swap.StateCancelled))
}

func (s *Storage) querySessions(query string, args ...any) ([]*swap.Session, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*swap.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*swap.Session, error) {
	var (
		session                  swap.Session
		state, algo              string
		hashlock, secret         string
		srcStatus, srcSecret     string
		dstStatus, dstSecret     string
		srcTimelock, dstTimelock int64
		createdAt, updatedAt     int64
	)

	err := row.Scan(
		&session.ID, &state, &algo, &hashlock, &secret,
		&session.Source.Chain, &session.Source.ID, &session.Source.Sender,
		&session.Source.Recipient, &session.Source.Amount,
		&srcTimelock, &srcStatus, &srcSecret,
		&session.Source.CreateTxID, &session.Source.ClaimTxID, &session.Source.RefundTxID,
		&session.Destination.Chain, &session.Destination.ID, &session.Destination.Sender,
		&session.Destination.Recipient, &session.Destination.Amount,
		&dstTimelock, &dstStatus, &dstSecret,
		&session.Destination.CreateTxID, &session.Destination.ClaimTxID, &session.Destination.RefundTxID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	session.State = swap.State(state)
	session.HashAlgo = htlc.HashAlgo(algo)
	session.Source.HashAlgo = htlc.HashAlgo(algo)
	session.Destination.HashAlgo = htlc.HashAlgo(algo)
	session.Source.Status = htlc.Status(srcStatus)
	session.Destination.Status = htlc.Status(dstStatus)
	session.Source.Timelock = time.Unix(srcTimelock, 0).UTC()
	session.Destination.Timelock = time.Unix(dstTimelock, 0).UTC()
	session.CreatedAt = time.Unix(createdAt, 0).UTC()
	session.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	hl, err := helpers.HexToBytes(hashlock)
	if err != nil || len(hl) != 32 {
		return nil, fmt.Errorf("decode hashlock for %s: %w", session.ID, err)
	}
	copy(session.Hashlock[:], hl)
	session.Source.Hashlock = session.Hashlock
	session.Destination.Hashlock = session.Hashlock

	if session.Secret, err = decodeHexField(secret); err != nil {
		return nil, fmt.Errorf("decode secret for %s: %w", session.ID, err)
	}
	if session.Source.Secret, err = decodeHexField(srcSecret); err != nil {
		return nil, fmt.Errorf("decode source secret for %s: %w", session.ID, err)
	}
	if session.Destination.Secret, err = decodeHexField(dstSecret); err != nil {
		return nil, fmt.Errorf("decode destination secret for %s: %w", session.ID, err)
	}
	return &session, nil
}

// decodeHexField treats an empty column as an absent value, so a
// secret that was never recorded round-trips as nil.
func decodeHexField(s string) ([]byte, error) {
	if s == "" || s == "0x" {
		return nil, nil
	}
	return helpers.HexToBytes(s)
}
