package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/flagmap/flagmap/server/internal/api/validate"
	"github.com/flagmap/flagmap/server/internal/model"
	"github.com/flagmap/flagmap/server/internal/realtime"
	"github.com/flagmap/flagmap/server/internal/store"
)

// nullTopic marks logs that carry no resolvable challenge category.
const nullTopic = "Null"

type actionLogsPayload struct {
	Type string                   `json:"type"`
	Logs []*model.ActionLogDetail `json:"logs"`
}

type challengeSelectedEntry struct {
	UserID        int64  `json:"userId"`
	TopicName     string `json:"topicName"`
	ChallengeID   int64  `json:"challengeId"`
	ChallengeName string `json:"challengeName"`
	ActionType    int    `json:"actionType"`
	ActionDate    string `json:"actionDate"`
}

// ActionLogService persists contestant action logs and pushes the resulting
// audit and challenge-selection events to every connected client.
type ActionLogService struct {
	store store.Store
	pub   realtime.Publisher
	log   zerolog.Logger
	now   func() time.Time
}

func NewActionLogService(st store.Store, pub realtime.Publisher, log zerolog.Logger) *ActionLogService {
	return &ActionLogService{store: st, pub: pub, log: log, now: time.Now}
}

// Create validates and persists a new action log for the actor, then reads
// the full log list back and broadcasts it. When a challenge id was supplied
// a challenge-selected event follows. Broadcast failures never fail the
// create; the log is already durable.
func (s *ActionLogService) Create(ctx context.Context, actor *model.User, challengeID *int64, actionType int, actionDetail string) (*model.ActionLog, error) {
	if violations := validate.ActionLog(actionType, actionDetail); len(violations) > 0 {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, violations)
	}

	topicName := nullTopic
	challengeName := "Unknown"
	if challengeID != nil {
		ch, err := s.store.Challenges().GetByID(ctx, *challengeID)
		switch {
		case err == nil:
			topicName = ch.Category
			challengeName = ch.Name
		case errors.Is(err, model.ErrNotFound):
			// unknown challenge keeps the Null topic
		default:
			return nil, err
		}
	}

	entry := &model.ActionLog{
		UserID:       actor.ID,
		ActionType:   actionType,
		ActionDetail: actionDetail,
		TopicName:    topicName,
		ActionDate:   s.now().Format(time.RFC3339),
	}
	created, err := s.store.ActionLogs().Create(ctx, entry)
	if err != nil {
		return nil, err
	}

	logs, err := s.store.ActionLogs().ListWithUserNames(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("reading back action logs for broadcast failed")
	} else {
		s.pub.Broadcast(realtime.EventActionLogs, actionLogsPayload{Type: "action_logs", Logs: logs})
	}

	if challengeID != nil {
		s.pub.Broadcast(realtime.EventChallengeSelected, []challengeSelectedEntry{{
			UserID:        actor.ID,
			TopicName:     topicName,
			ChallengeID:   *challengeID,
			ChallengeName: challengeName,
			ActionType:    actionType,
			ActionDate:    created.ActionDate,
		}})
	}

	return created, nil
}

// List returns all logs joined with user and challenge details, newest
// first. An empty result is a not-found condition for API parity.
func (s *ActionLogService) List(ctx context.Context) ([]*model.ActionLogDetail, error) {
	logs, err := s.store.ActionLogs().ListDetailed(ctx)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, fmt.Errorf("%w: no logs found", model.ErrNotFound)
	}
	return logs, nil
}

// Get returns one log, visible to its owner and to admins.
func (s *ActionLogService) Get(ctx context.Context, actor *model.User, id int64) (*model.ActionLog, error) {
	entry, err := s.store.ActionLogs().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.UserID != actor.ID && !actor.IsAdmin() {
		return nil, model.ErrPermissionDenied
	}
	return entry, nil
}

// Delete removes a log. Admin only.
func (s *ActionLogService) Delete(ctx context.Context, actor *model.User, id int64) error {
	if !actor.IsAdmin() {
		return model.ErrPermissionDenied
	}
	return s.store.ActionLogs().Delete(ctx, id)
}

// ListByUser returns one user's logs, visible to that user and to admins.
func (s *ActionLogService) ListByUser(ctx context.Context, actor *model.User, userID int64) ([]*model.ActionLog, error) {
	logs, err := s.store.ActionLogs().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, fmt.Errorf("%w: no action logs found for this user", model.ErrNotFound)
	}
	if actor.ID != userID && !actor.IsAdmin() {
		return nil, model.ErrPermissionDenied
	}
	return logs, nil
}
