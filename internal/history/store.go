// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"

	"github.com/jeranaias/docchat-tui/internal/util"
)

// Message roles.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// previewWidth bounds the first-question preview in listings.
const previewWidth = 60

// =============================================================================
// TYPES
// =============================================================================

// Session is one server session known locally.
type Session struct {
	ID           string
	Title        string
	Server       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
	// Preview is the first user message, shortened
	Preview string
}

// DisplayTitle returns the title, or the preview, or the id.
func (s Session) DisplayTitle() string {
	switch {
	case s.Title != "":
		return s.Title
	case s.Preview != "":
		return s.Preview
	default:
		return s.ID
	}
}

// Message is one stored chat message.
type Message struct {
	ID        string
	SessionID string
	Role      string
	Content   string
	// State is the render outcome for bot messages
	State     string
	CreatedAt time.Time
}

// =============================================================================
// STORE
// =============================================================================

// Store is the SQLite history database. Safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, "create history directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "set %s", pragma)
		}
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return errors.Wrap(err, "init schema")
	}
	if _, err := s.db.Exec(InitMetadata); err != nil {
		return errors.Wrap(err, "init metadata")
	}

	var version string
	if err := s.db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version); err != nil {
		return errors.Wrap(err, "read schema version")
	}
	if v, _ := strconv.Atoi(version); v > SchemaVersion {
		return errors.Errorf("history database schema %s is newer than supported %d", version, SchemaVersion)
	}
	return nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Touch records that session id is in use, creating it if needed. A
// non-empty title replaces the stored one; an empty title keeps it.
func (s *Store) Touch(ctx context.Context, id, title, server string) error {
	if id == "" {
		return errors.New("empty session id")
	}
	now := s.now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, title, server, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = CASE WHEN excluded.title != '' THEN excluded.title ELSE sessions.title END,
			server = CASE WHEN excluded.server != '' THEN excluded.server ELSE sessions.server END,
			updated_at = excluded.updated_at`,
		id, title, server, now, now)
	if err != nil {
		return errors.Wrap(err, "touch session")
	}
	return nil
}

// AppendMessage appends a message to a session, creating the session if
// needed, and returns the new message id.
func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content, state string) (string, error) {
	if sessionID == "" {
		return "", errors.New("empty session id")
	}
	if role != RoleUser && role != RoleBot {
		return "", errors.Errorf("invalid role %q", role)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	now := s.now().UnixMilli()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, now, now); err != nil {
		return "", errors.Wrap(err, "touch session")
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE session_id = ?", sessionID).Scan(&seq); err != nil {
		return "", errors.Wrap(err, "next sequence")
	}

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, seq, role, content, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, sessionID, seq, role, content, state, now); err != nil {
		return "", errors.Wrap(err, "insert message")
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "commit")
	}
	return id, nil
}

const sessionColumns = `
	s.id, s.title, s.server, s.created_at, s.updated_at,
	(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id),
	COALESCE((SELECT m.content FROM messages m
	          WHERE m.session_id = s.id AND m.role = 'user'
	          ORDER BY m.seq LIMIT 1), '')`

func scanSession(row interface{ Scan(...any) error }) (Session, error) {
	var sess Session
	var created, updated int64
	var preview string
	if err := row.Scan(&sess.ID, &sess.Title, &sess.Server, &created, &updated, &sess.MessageCount, &preview); err != nil {
		return Session{}, err
	}
	sess.CreatedAt = time.UnixMilli(created)
	sess.UpdatedAt = time.UnixMilli(updated)
	sess.Preview = util.TruncateRunes(util.OneLine(preview), previewWidth)
	return sess, nil
}

// List returns sessions, most recently used first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions s ORDER BY s.updated_at DESC, s.id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan session")
		}
		sessions = append(sessions, sess)
	}
	return sessions, errors.Wrap(rows.Err(), "list sessions")
}

// Get returns one session or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions s WHERE s.id = ?", id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "session %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get session")
	}
	return &sess, nil
}

// Find resolves a full id or a unique id prefix.
func (s *Store) Find(ctx context.Context, idOrPrefix string) (*Session, error) {
	if sess, err := s.Get(ctx, idOrPrefix); err == nil || !errors.Is(err, ErrNotFound) {
		return sess, err
	}

	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(idOrPrefix)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM sessions WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escaped+"%")
	if err != nil {
		return nil, errors.Wrap(err, "find session")
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan session id")
		}
		ids = append(ids, id)
	}
	rows.Close()

	switch len(ids) {
	case 0:
		return nil, errors.Wrapf(ErrNotFound, "session %s", idOrPrefix)
	case 1:
		return s.Get(ctx, ids[0])
	default:
		return nil, errors.Errorf("session prefix %q is ambiguous", idOrPrefix)
	}
}

// Messages returns a session's messages in order.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, state, created_at
		FROM messages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "query messages")
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var created int64
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.State, &created); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		m.CreatedAt = time.UnixMilli(created)
		msgs = append(msgs, m)
	}
	return msgs, errors.Wrap(rows.Err(), "query messages")
}

// Delete removes a session and its messages.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "delete session")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrNotFound, "session %s", id)
	}
	return nil
}

// Prune keeps the keep most recently used sessions and deletes the rest.
// keep <= 0 is a no-op.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE id NOT IN (
			SELECT id FROM sessions ORDER BY updated_at DESC, id LIMIT ?
		)`, keep)
	if err != nil {
		return 0, errors.Wrap(err, "prune sessions")
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		log.Debug().Int64("deleted", n).Int("kept", keep).Msg("pruned history")
	}
	return int(n), nil
}
