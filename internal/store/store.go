package store

import (
	"context"

	"github.com/flagmap/flagmap/server/internal/model"
)

// Store exposes the persistence operations the realtime core and the
// action-log API require. Implementations live under internal/store/<driver>/
// (sqlite, postgres). Users, tokens and challenges are owned by the
// surrounding platform; this service holds narrow read/write contracts only.
type Store interface {
	Users() Users
	Tokens() Tokens
	Challenges() Challenges
	ActionLogs() ActionLogs
}

type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, id int64) (*model.User, error)
}

type Tokens interface {
	Create(ctx context.Context, t *model.Token) error
	GetByValue(ctx context.Context, value string) (*model.Token, error)
}

type Challenges interface {
	Create(ctx context.Context, c *model.Challenge) (*model.Challenge, error)
	GetByID(ctx context.Context, id int64) (*model.Challenge, error)
	List(ctx context.Context) ([]*model.Challenge, error)
}

type ActionLogs interface {
	Create(ctx context.Context, l *model.ActionLog) (*model.ActionLog, error)
	GetByID(ctx context.Context, id int64) (*model.ActionLog, error)
	// ListDetailed returns all logs joined with user names and, via
	// topic-name/category match, challenge identity. Newest first.
	ListDetailed(ctx context.Context) ([]*model.ActionLogDetail, error)
	// ListWithUserNames returns all logs joined with user names only.
	// Newest first.
	ListWithUserNames(ctx context.Context) ([]*model.ActionLogDetail, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.ActionLog, error)
	Delete(ctx context.Context, id int64) error
}
