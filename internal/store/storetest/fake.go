// Package storetest provides an in-memory store.Store for unit tests.
package storetest

import (
	"context"
	"sort"
	"sync"

	"github.com/flagmap/flagmap/server/internal/model"
	"github.com/flagmap/flagmap/server/internal/store"
)

// Fake is a mutex-guarded in-memory implementation of store.Store.
// The zero value from New is ready to use.
type Fake struct {
	mu         sync.Mutex
	users      map[int64]*model.User
	tokens     map[string]*model.Token
	challenges map[int64]*model.Challenge
	logs       map[int64]*model.ActionLog
	nextUser   int64
	nextChal   int64
	nextLog    int64

	// FailCreateLog forces ActionLogs().Create to return this error.
	FailCreateLog error
}

func New() *Fake {
	return &Fake{
		users:      make(map[int64]*model.User),
		tokens:     make(map[string]*model.Token),
		challenges: make(map[int64]*model.Challenge),
		logs:       make(map[int64]*model.ActionLog),
	}
}

func (f *Fake) Users() store.Users           { return (*fakeUsers)(f) }
func (f *Fake) Tokens() store.Tokens         { return (*fakeTokens)(f) }
func (f *Fake) Challenges() store.Challenges { return (*fakeChallenges)(f) }
func (f *Fake) ActionLogs() store.ActionLogs { return (*fakeLogs)(f) }

func (f *Fake) HealthPing(ctx context.Context) error { return nil }

type fakeUsers Fake

func (f *fakeUsers) Create(_ context.Context, u *model.User) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *u
	if out.ID == 0 {
		f.nextUser++
		out.ID = f.nextUser
	}
	if out.Type == "" {
		out.Type = "user"
	}
	f.users[out.ID] = &out
	return &out, nil
}

func (f *fakeUsers) Get(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *u
	return &out, nil
}

type fakeTokens Fake

func (f *fakeTokens) Create(_ context.Context, t *model.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.tokens[t.Value] = &cp
	return nil
}

func (f *fakeTokens) GetByValue(_ context.Context, value string) (*model.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[value]
	if !ok {
		return nil, model.ErrTokenNotFound
	}
	out := *t
	return &out, nil
}

type fakeChallenges Fake

func (f *fakeChallenges) Create(_ context.Context, c *model.Challenge) (*model.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *c
	if out.ID == 0 {
		f.nextChal++
		out.ID = f.nextChal
	}
	f.challenges[out.ID] = &out
	return &out, nil
}

func (f *fakeChallenges) GetByID(_ context.Context, id int64) (*model.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (f *fakeChallenges) List(_ context.Context) ([]*model.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Challenge, 0, len(f.challenges))
	for _, c := range f.challenges {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeLogs Fake

func (f *fakeLogs) Create(_ context.Context, l *model.ActionLog) (*model.ActionLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreateLog != nil {
		return nil, f.FailCreateLog
	}
	out := *l
	f.nextLog++
	out.ActionID = f.nextLog
	f.logs[out.ActionID] = &out
	return &out, nil
}

func (f *fakeLogs) GetByID(_ context.Context, id int64) (*model.ActionLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.logs[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *l
	return &out, nil
}

func (f *fakeLogs) ListDetailed(_ context.Context) ([]*model.ActionLogDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.detailsLocked(true)
	return out, nil
}

func (f *fakeLogs) ListWithUserNames(_ context.Context) ([]*model.ActionLogDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.detailsLocked(false)
	return out, nil
}

func (f *fakeLogs) detailsLocked(withChallenges bool) []*model.ActionLogDetail {
	out := make([]*model.ActionLogDetail, 0, len(f.logs))
	for _, l := range f.logs {
		d := &model.ActionLogDetail{ActionLog: *l}
		if u, ok := f.users[l.UserID]; ok {
			d.UserName = u.Name
		}
		if withChallenges {
			for _, c := range f.challenges {
				if c.Category == l.TopicName {
					id, name := c.ID, c.Name
					d.ChallengeID = &id
					d.ChallengeName = &name
					break
				}
			}
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActionDate > out[j].ActionDate })
	return out
}

func (f *fakeLogs) ListByUser(_ context.Context, userID int64) ([]*model.ActionLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ActionLog
	for _, l := range f.logs {
		if l.UserID == userID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActionDate > out[j].ActionDate })
	return out, nil
}

func (f *fakeLogs) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.logs[id]; !ok {
		return model.ErrNotFound
	}
	delete(f.logs, id)
	return nil
}
