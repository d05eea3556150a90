package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/flagmap/flagmap/server/internal/model"
	"github.com/flagmap/flagmap/server/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies
// connectivity. Schema setup is handled by the platform's migrations.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New opens a connection and returns a postgres-backed store.
func New(dsn string) (store.Store, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB constructs a postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Users() store.Users           { return &users{db: s.db} }
func (s *pgStore) Tokens() store.Tokens         { return &tokens{db: s.db} }
func (s *pgStore) Challenges() store.Challenges { return &challenges{db: s.db} }
func (s *pgStore) ActionLogs() store.ActionLogs { return &actionLogs{db: s.db} }

// HealthPing implements health.Pinger.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	typ := m.Type
	if typ == "" {
		typ = "user"
	}
	var id int64
	row := u.db.QueryRowContext(ctx, `
        INSERT INTO users (name, type, team) VALUES ($1,$2,$3)
        RETURNING id
    `, m.Name, typ, m.Team)
	if err := row.Scan(&id); err != nil {
		return nil, err
	}
	out := *m
	out.ID = id
	out.Type = typ
	return &out, nil
}

func (u *users) Get(ctx context.Context, id int64) (*model.User, error) {
	var out model.User
	row := u.db.QueryRowContext(ctx, `
        SELECT id, name, type, team FROM users WHERE id=$1
    `, id)
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
	_, err := t.db.ExecContext(ctx, `
        INSERT INTO tokens (value, user_id, expiration) VALUES ($1,$2,$3)
    `, m.Value, m.UserID, m.Expiration)
	return err
}

func (t *tokens) GetByValue(ctx context.Context, value string) (*model.Token, error) {
	var out model.Token
	row := t.db.QueryRowContext(ctx, `
        SELECT value, user_id, expiration FROM tokens WHERE value=$1
    `, value)
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
	var id int64
	row := c.db.QueryRowContext(ctx, `
        INSERT INTO challenges (name, category, x, y) VALUES ($1,$2,$3,$4)
        RETURNING id
    `, m.Name, m.Category, m.X, m.Y)
	if err := row.Scan(&id); err != nil {
		return nil, err
	}
	out := *m
	out.ID = id
	return &out, nil
}

func (c *challenges) GetByID(ctx context.Context, id int64) (*model.Challenge, error) {
	var out model.Challenge
	row := c.db.QueryRowContext(ctx, `
        SELECT id, name, category, x, y FROM challenges WHERE id=$1
    `, id)
	if err := row.Scan(&out.ID, &out.Name, &out.Category, &out.X, &out.Y); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (c *challenges) List(ctx context.Context) ([]*model.Challenge, error) {
	rows, err := c.db.QueryContext(ctx, `
        SELECT id, name, category, x, y FROM challenges ORDER BY id
    `)
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
	var id int64
	row := a.db.QueryRowContext(ctx, `
        INSERT INTO action_logs (user_id, action_type, action_detail, topic_name, action_date)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING action_id
    `, m.UserID, m.ActionType, m.ActionDetail, m.TopicName, m.ActionDate)
	if err := row.Scan(&id); err != nil {
		return nil, err
	}
	out := *m
	out.ActionID = id
	return &out, nil
}

func (a *actionLogs) GetByID(ctx context.Context, id int64) (*model.ActionLog, error) {
	var out model.ActionLog
	row := a.db.QueryRowContext(ctx, `
        SELECT action_id, user_id, action_type, action_detail, topic_name, action_date
        FROM action_logs WHERE action_id=$1
    `, id)
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
        ORDER BY l.action_date DESC
    `)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanDetails(rows)
}

func (a *actionLogs) ListWithUserNames(ctx context.Context) ([]*model.ActionLogDetail, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT l.action_id, l.user_id, l.action_type, l.action_detail, l.topic_name, l.action_date,
               u.name, NULL::bigint, NULL::text
        FROM action_logs l
        JOIN users u ON u.id = l.user_id
        ORDER BY l.action_date DESC
    `)
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
	rows, err := a.db.QueryContext(ctx, `
        SELECT action_id, user_id, action_type, action_detail, topic_name, action_date
        FROM action_logs WHERE user_id=$1 ORDER BY action_date DESC
    `, userID)
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
	res, err := a.db.ExecContext(ctx, `DELETE FROM action_logs WHERE action_id=$1`, id)
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
