package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/flagmap/flagmap/server/internal/model"
	"github.com/flagmap/flagmap/server/internal/store"
)

// Open opens (or creates) a SQLite database at the given path and enables
// WAL journal mode. ":memory:" is supported for tests.
func Open(path string) (*sql.DB, error) {
	if !strings.Contains(path, ":memory:") {
		// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New opens a SQLite database file and ensures the schema exists.
func New(path string) (store.Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db)
}

// NewWithDB allows wiring with an existing connection (used by factory and tests).
func NewWithDB(db *sql.DB) (store.Store, error) {
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS users (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL,
    type       TEXT NOT NULL DEFAULT 'user',
    team       TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS tokens (
    value      TEXT PRIMARY KEY,
    user_id    INTEGER NOT NULL REFERENCES users(id),
    expiration TIMESTAMP
);
CREATE TABLE IF NOT EXISTS challenges (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    name     TEXT NOT NULL,
    category TEXT NOT NULL,
    x        INTEGER NOT NULL DEFAULT 0,
    y        INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS action_logs (
    action_id     INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id       INTEGER NOT NULL REFERENCES users(id),
    action_type   INTEGER NOT NULL,
    action_detail TEXT NOT NULL,
    topic_name    TEXT NOT NULL,
    action_date   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_action_logs_user ON action_logs(user_id);
`)
	return err
}

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Users() store.Users           { return &users{db: s.db} }
func (s *sqliteStore) Tokens() store.Tokens         { return &tokens{db: s.db} }
func (s *sqliteStore) Challenges() store.Challenges { return &challenges{db: s.db} }
func (s *sqliteStore) ActionLogs() store.ActionLogs { return &actionLogs{db: s.db} }

// HealthPing implements health.Pinger.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	typ := m.Type
	if typ == "" {
		typ = "user"
	}
	res, err := u.db.ExecContext(ctx,
		`INSERT INTO users (name, type, team) VALUES (?,?,?)`,
		m.Name, typ, m.Team)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *m
	out.ID = id
	out.Type = typ
	return &out, nil
}

func (u *users) Get(ctx context.Context, id int64) (*model.User, error) {
	var out model.User
	row := u.db.QueryRowContext(ctx,
		`SELECT id, name, type, team FROM users WHERE id=?`, id)
	if err := row.Scan(&out.ID, &out.Name, &out.Type, &out.Team); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

// --- Tokens ---

type tokens struct{ db *sql.DB }

func (t *tokens) Create(ctx context.Context, m *model.Token) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO tokens (value, user_id, expiration) VALUES (?,?,?)`,
		m.Value, m.UserID, m.Expiration)
	return err
}

func (t *tokens) GetByValue(ctx context.Context, value string) (*model.Token, error) {
	var out model.Token
	row := t.db.QueryRowContext(ctx,
		`SELECT value, user_id, expiration FROM tokens WHERE value=?`, value)
	if err := row.Scan(&out.Value, &out.UserID, &out.Expiration); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrTokenNotFound
		}
		return nil, err
	}
	return &out, nil
}

// --- Challenges ---

type challenges struct{ db *sql.DB }

func (c *challenges) Create(ctx context.Context, m *model.Challenge) (*model.Challenge, error) {
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO challenges (name, category, x, y) VALUES (?,?,?,?)`,
		m.Name, m.Category, m.X, m.Y)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *m
	out.ID = id
	return &out, nil
}

func (c *challenges) GetByID(ctx context.Context, id int64) (*model.Challenge, error) {
	var out model.Challenge
	row := c.db.QueryRowContext(ctx,
		`SELECT id, name, category, x, y FROM challenges WHERE id=?`, id)
	if err := row.Scan(&out.ID, &out.Name, &out.Category, &out.X, &out.Y); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (c *challenges) List(ctx context.Context) ([]*model.Challenge, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, category, x, y FROM challenges ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Challenge
	for rows.Next() {
		var ch model.Challenge
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Category, &ch.X, &ch.Y); err != nil {
			return nil, err
		}
		out = append(out, &ch)
	}
	return out, rows.Err()
}

// --- ActionLogs ---

type actionLogs struct{ db *sql.DB }

func (a *actionLogs) Create(ctx context.Context, m *model.ActionLog) (*model.ActionLog, error) {
	res, err := a.db.ExecContext(ctx,
		`INSERT INTO action_logs (user_id, action_type, action_detail, topic_name, action_date)
         VALUES (?,?,?,?,?)`,
		m.UserID, m.ActionType, m.ActionDetail, m.TopicName, m.ActionDate)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *m
	out.ActionID = id
	return &out, nil
}

func (a *actionLogs) GetByID(ctx context.Context, id int64) (*model.ActionLog, error) {
	var out model.ActionLog
	row := a.db.QueryRowContext(ctx,
		`SELECT action_id, user_id, action_type, action_detail, topic_name, action_date
         FROM action_logs WHERE action_id=?`, id)
	if err := row.Scan(&out.ActionID, &out.UserID, &out.ActionType, &out.ActionDetail, &out.TopicName, &out.ActionDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (a *actionLogs) ListDetailed(ctx context.Context) ([]*model.ActionLogDetail, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT l.action_id, l.user_id, l.action_type, l.action_detail, l.topic_name, l.action_date,
               u.name, c.id, c.name
        FROM action_logs l
        JOIN users u ON u.id = l.user_id
        LEFT JOIN challenges c ON c.category = l.topic_name
        ORDER BY l.action_date DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanDetails(rows)
}

func (a *actionLogs) ListWithUserNames(ctx context.Context) ([]*model.ActionLogDetail, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT l.action_id, l.user_id, l.action_type, l.action_detail, l.topic_name, l.action_date,
               u.name, NULL, NULL
        FROM action_logs l
        JOIN users u ON u.id = l.user_id
        ORDER BY l.action_date DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanDetails(rows)
}

func scanDetails(rows *sql.Rows) ([]*model.ActionLogDetail, error) {
	var out []*model.ActionLogDetail
	for rows.Next() {
		var d model.ActionLogDetail
		if err := rows.Scan(&d.ActionID, &d.UserID, &d.ActionType, &d.ActionDetail, &d.TopicName, &d.ActionDate,
			&d.UserName, &d.ChallengeID, &d.ChallengeName); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (a *actionLogs) ListByUser(ctx context.Context, userID int64) ([]*model.ActionLog, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT action_id, user_id, action_type, action_detail, topic_name, action_date
         FROM action_logs WHERE user_id=? ORDER BY action_date DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.ActionLog
	for rows.Next() {
		var l model.ActionLog
		if err := rows.Scan(&l.ActionID, &l.UserID, &l.ActionType, &l.ActionDetail, &l.TopicName, &l.ActionDate); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

func (a *actionLogs) Delete(ctx context.Context, id int64) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM action_logs WHERE action_id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
