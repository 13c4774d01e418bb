// Package sqlite provides a SQLite-backed implementation of the storage interface.
// It uses the pure-Go modernc.org/sqlite driver so no CGO toolchain is needed.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/storage"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Storage persists users, invitations, matches, moves and logs in SQLite
type Storage struct {
	db *sql.DB
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage: sqlite path is required")
	}

	dsn := path
	if path != MemoryPath {
		cleanPath := filepath.Clean(path)
		if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
			return nil, fmt.Errorf("storage: cannot create directory for %s: %w", cleanPath, err)
		}
		dsn = cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// SQLite has a single writer; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}
	return s, nil
}

// migrate creates the database schema if it doesn't exist
func (s *Storage) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS online_users (
			user_id TEXT PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS invitations (
			id TEXT PRIMARY KEY,
			from_user_id TEXT NOT NULL,
			to_user_id TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL,
			version INTEGER NOT NULL DEFAULT 0
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_invitations_pending_pair
			ON invitations(from_user_id, to_user_id) WHERE status = 'PENDING';

		CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			player1_id TEXT NOT NULL,
			player2_id TEXT NOT NULL,
			board TEXT NOT NULL,
			status TEXT NOT NULL,
			current_player_id TEXT NOT NULL DEFAULT '',
			winner_id TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			CHECK (player1_id <> player2_id)
		);

		CREATE TABLE IF NOT EXISTS moves (
			id TEXT PRIMARY KEY,
			match_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			position INTEGER NOT NULL CHECK (position BETWEEN 0 AND 8),
			mark TEXT NOT NULL,
			seq INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_moves_match ON moves(match_id, seq);

		CREATE TABLE IF NOT EXISTS logs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			match_id TEXT NOT NULL DEFAULT '',
			user_id TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL DEFAULT '{}',
			created_at INTEGER NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func encodeBoard(b model.Board) string {
	var sb strings.Builder
	for _, m := range b {
		if m == model.MarkEmpty {
			sb.WriteByte('.')
		} else {
			sb.WriteString(m.String())
		}
	}
	return sb.String()
}

func decodeBoard(s string) (model.Board, error) {
	var b model.Board
	if len(s) != model.BoardSize {
		return b, fmt.Errorf("storage: board %q has %d cells", s, len(s))
	}
	for i := range model.BoardSize {
		switch s[i] {
		case '.':
			b[i] = model.MarkEmpty
		case 'X':
			b[i] = model.MarkX
		case 'O':
			b[i] = model.MarkO
		default:
			return b, fmt.Errorf("storage: board %q has invalid cell %q", s, s[i])
		}
	}
	return b, nil
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, display_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, updated_at = excluded.updated_at`,
		string(user.ID), user.DisplayName, toMillis(user.CreatedAt), toMillis(user.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save user: %w", err)
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	var (
		user             model.User
		online           int
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT u.id, u.display_name, o.user_id IS NOT NULL, u.created_at, u.updated_at
		 FROM users u LEFT JOIN online_users o ON o.user_id = u.id
		 WHERE u.id = ?`,
		string(id),
	).Scan(&user.ID, &user.DisplayName, &online, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("storage: cannot get user: %w", err)
	}
	user.IsOnline = online != 0
	user.CreatedAt = fromMillis(created)
	user.UpdatedAt = fromMillis(updated)
	return &user, nil
}

// Online-status operations

func (s *Storage) SetOnline(ctx context.Context, id model.UserID, online bool) error {
	query := `DELETE FROM online_users WHERE user_id = ?`
	if online {
		query = `INSERT OR IGNORE INTO online_users (user_id) VALUES (?)`
	}
	if _, err := s.db.ExecContext(ctx, query, string(id)); err != nil {
		return fmt.Errorf("storage: cannot set online status: %w", err)
	}
	return nil
}

func (s *Storage) IsOnline(ctx context.Context, id model.UserID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM online_users WHERE user_id = ?`, string(id),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage: cannot read online status: %w", err)
	}
	return n > 0, nil
}

// Invitation operations

const invitationColumns = `id, from_user_id, to_user_id, status, created_at, updated_at, expires_at, version`

func scanInvitation(row interface{ Scan(...any) error }) (*model.Invitation, error) {
	var (
		inv                       model.Invitation
		created, updated, expires int64
	)
	if err := row.Scan(&inv.ID, &inv.FromUserID, &inv.ToUserID, &inv.Status,
		&created, &updated, &expires, &inv.Version); err != nil {
		return nil, err
	}
	inv.CreatedAt = fromMillis(created)
	inv.UpdatedAt = fromMillis(updated)
	inv.ExpiresAt = fromMillis(expires)
	return &inv, nil
}

func (s *Storage) CreateInvitation(ctx context.Context, inv *model.Invitation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invitations (`+invitationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(inv.ID), string(inv.FromUserID), string(inv.ToUserID), string(inv.Status),
		toMillis(inv.CreatedAt), toMillis(inv.UpdatedAt), toMillis(inv.ExpiresAt), inv.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("storage: cannot create invitation: %w", err)
	}
	return nil
}

func (s *Storage) GetInvitation(ctx context.Context, id model.InvitationID) (*model.Invitation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, string(id))
	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("storage: cannot get invitation: %w", err)
	}
	return inv, nil
}

func (s *Storage) UpdateInvitation(ctx context.Context, inv *model.Invitation) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invitations SET status = ?, updated_at = ?, expires_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		string(inv.Status), toMillis(inv.UpdatedAt), toMillis(inv.ExpiresAt), string(inv.ID), inv.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("storage: cannot update invitation: %w", err)
	}
	if err := s.checkUpdated(ctx, res, "invitations", string(inv.ID), model.ErrInvitationNotFound); err != nil {
		return err
	}
	inv.Version++
	return nil
}

func (s *Storage) FindPendingInvitation(ctx context.Context, from, to model.UserID) (*model.Invitation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		 WHERE from_user_id = ? AND to_user_id = ? AND status = ?`,
		string(from), string(to), string(model.InvitationStatusPending))
	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("storage: cannot find pending invitation: %w", err)
	}
	return inv, nil
}

// checkUpdated distinguishes a missing row from a stale version after a conditional UPDATE
func (s *Storage) checkUpdated(ctx context.Context, res sql.Result, table, id string, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: cannot read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("storage: cannot check %s: %w", table, err)
	}
	if exists == 0 {
		return notFound
	}
	return storage.ErrConflict
}

// Match operations

const matchColumns = `id, player1_id, player2_id, board, status, current_player_id, winner_id, created_at, updated_at, version`

func (s *Storage) CreateMatch(ctx context.Context, match *model.Match) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matches (`+matchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(match.ID), string(match.Player1ID), string(match.Player2ID), encodeBoard(match.Board),
		string(match.Status), string(match.CurrentPlayerID), string(match.WinnerID),
		toMillis(match.CreatedAt), toMillis(match.UpdatedAt), match.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("storage: cannot create match: %w", err)
	}
	return nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	var (
		m                model.Match
		board            string
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = ?`, string(id),
	).Scan(&m.ID, &m.Player1ID, &m.Player2ID, &board, &m.Status, &m.CurrentPlayerID,
		&m.WinnerID, &created, &updated, &m.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrMatchNotFound
		}
		return nil, fmt.Errorf("storage: cannot get match: %w", err)
	}

	if m.Board, err = decodeBoard(board); err != nil {
		return nil, err
	}
	m.CreatedAt = fromMillis(created)
	m.UpdatedAt = fromMillis(updated)
	return &m, nil
}

func (s *Storage) UpdateMatch(ctx context.Context, match *model.Match) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE matches SET board = ?, status = ?, current_player_id = ?, winner_id = ?,
		   updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		encodeBoard(match.Board), string(match.Status), string(match.CurrentPlayerID),
		string(match.WinnerID), toMillis(match.UpdatedAt), string(match.ID), match.Version,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot update match: %w", err)
	}
	if err := s.checkUpdated(ctx, res, "matches", string(match.ID), model.ErrMatchNotFound); err != nil {
		return err
	}
	match.Version++
	return nil
}

// Move operations

func (s *Storage) AppendMove(ctx context.Context, move *model.Move) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO moves (id, match_id, player_id, position, mark, seq, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(move.ID), string(move.MatchID), string(move.PlayerID), move.Position,
		move.Mark.String(), move.Seq, toMillis(move.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("storage: cannot append move: %w", err)
	}
	return nil
}

func (s *Storage) ListMoves(ctx context.Context, matchID model.MatchID) ([]*model.Move, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, match_id, player_id, position, mark, seq, created_at
		 FROM moves WHERE match_id = ? ORDER BY seq ASC`, string(matchID))
	if err != nil {
		return nil, fmt.Errorf("storage: cannot list moves: %w", err)
	}
	defer func() { _ = rows.Close() }()

	moves := make([]*model.Move, 0)
	for rows.Next() {
		var (
			mv      model.Move
			mark    string
			created int64
		)
		if err := rows.Scan(&mv.ID, &mv.MatchID, &mv.PlayerID, &mv.Position, &mark, &mv.Seq, &created); err != nil {
			return nil, fmt.Errorf("storage: cannot scan move: %w", err)
		}
		if mv.Mark, err = model.ParseMark(mark); err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		mv.CreatedAt = fromMillis(created)
		moves = append(moves, &mv)
	}
	return moves, rows.Err()
}

// Event log operations

func (s *Storage) AppendLog(ctx context.Context, entry *model.LogEntry) error {
	data := []byte("{}")
	if entry.Data != nil {
		var err error
		if data, err = json.Marshal(entry.Data); err != nil {
			return fmt.Errorf("storage: cannot encode log data: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (id, kind, name, match_id, user_id, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.Kind), entry.Name, string(entry.MatchID), string(entry.UserID),
		string(data), toMillis(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot append log: %w", err)
	}
	return nil
}

// RecentLogs returns up to limit entries, newest first
func (s *Storage) RecentLogs(ctx context.Context, limit int) ([]*model.LogEntry, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, name, match_id, user_id, data, created_at
		 FROM logs ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot list logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	logs := make([]*model.LogEntry, 0)
	for rows.Next() {
		var (
			entry   model.LogEntry
			data    string
			created int64
		)
		if err := rows.Scan(&entry.ID, &entry.Kind, &entry.Name, &entry.MatchID, &entry.UserID, &data, &created); err != nil {
			return nil, fmt.Errorf("storage: cannot scan log: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &entry.Data); err != nil {
			return nil, fmt.Errorf("storage: cannot decode log data: %w", err)
		}
		entry.CreatedAt = fromMillis(created)
		logs = append(logs, &entry)
	}
	return logs, rows.Err()
}
