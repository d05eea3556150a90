package services

import (
	"context"

	"github.com/flagmap/flagmap/server/internal/store"
)

type challengePosition struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type challengePositionsPayload struct {
	Positions []challengePosition `json:"positions"`
}

// ChallengeService reads challenge map positions for the realtime push.
type ChallengeService struct {
	store store.Store
}

func NewChallengeService(st store.Store) *ChallengeService {
	return &ChallengeService{store: st}
}

// Positions implements realtime.ChallengeSource.
func (s *ChallengeService) Positions(ctx context.Context) (interface{}, error) {
	list, err := s.store.Challenges().List(ctx)
	if err != nil {
		return nil, err
	}
	out := challengePositionsPayload{Positions: make([]challengePosition, 0, len(list))}
	for _, c := range list {
		out.Positions = append(out.Positions, challengePosition{ID: c.ID, Name: c.Name, X: c.X, Y: c.Y})
	}
	return out, nil
}
