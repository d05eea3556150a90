package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flagmap/flagmap/server/internal/model"
	"github.com/flagmap/flagmap/server/internal/store/storetest"
)

func TestChallengePositions(t *testing.T) {
	st := storetest.New()
	ctx := context.Background()

	_, err := st.Challenges().Create(ctx, &model.Challenge{Name: "Crypto101", Category: "crypto", X: 120, Y: -40})
	require.NoError(t, err)
	_, err = st.Challenges().Create(ctx, &model.Challenge{Name: "Web Warmup", Category: "web", X: -15, Y: 60})
	require.NoError(t, err)

	payload, err := NewChallengeService(st).Positions(ctx)
	require.NoError(t, err)

	got := payload.(challengePositionsPayload)
	require.Len(t, got.Positions, 2)
	require.Equal(t, "Crypto101", got.Positions[0].Name)
	require.Equal(t, 120, got.Positions[0].X)
	require.Equal(t, -40, got.Positions[0].Y)
	require.Equal(t, "Web Warmup", got.Positions[1].Name)
}

func TestChallengePositionsEmpty(t *testing.T) {
	payload, err := NewChallengeService(storetest.New()).Positions(context.Background())
	require.NoError(t, err)
	require.Empty(t, payload.(challengePositionsPayload).Positions)
	require.NotNil(t, payload.(challengePositionsPayload).Positions, "serializes as [] not null")
}
