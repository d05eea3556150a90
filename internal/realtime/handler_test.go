package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubChallenges struct {
	payload interface{}
	err     error
}

func (s stubChallenges) Positions(context.Context) (interface{}, error) {
	return s.payload, s.err
}

type wsFixture struct {
	srv      *httptest.Server
	registry *Registry
	roster   *Roster
}

func newWSFixture(t *testing.T, challenges ChallengeSource) *wsFixture {
	t.Helper()
	gw := NewGateway(zerolog.Nop())
	reg := NewRegistry()
	ro := NewRoster()
	ro.spawn = func() (int, int) { return 0, 0 }

	h := NewHandler(gw, reg, ro, challenges, "*", 32, zerolog.Nop())
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &wsFixture{srv: srv, registry: reg, roster: ro}
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

// awaitEvent reads frames until the named event arrives, skipping unrelated
// broadcasts, and returns its data payload.
func awaitEvent(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		var env struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &env))
		if env.Event == event {
			return env.Data
		}
	}
}

// expectSilence fails if the named event shows up within the window.
func expectSilence(t *testing.T, conn *websocket.Conn, event string) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return // timeout: nothing arrived
		}
		var env struct {
			Event string `json:"event"`
		}
		if json.Unmarshal(raw, &env) == nil && env.Event == event {
			t.Fatalf("unexpected %q event", event)
		}
	}
}

func TestConnectSendsAckAndRoster(t *testing.T) {
	f := newWSFixture(t, nil)
	conn := f.dial(t)

	ack := awaitEvent(t, conn, EventConnectionAck)
	var status map[string]string
	require.NoError(t, json.Unmarshal(ack, &status))
	require.Equal(t, "connected", status["status"])

	snap := awaitEvent(t, conn, EventAllCharacters)
	var payload struct {
		Characters []json.RawMessage `json:"characters"`
	}
	require.NoError(t, json.Unmarshal(snap, &payload))
	require.Empty(t, payload.Characters)
}

func TestLoginHappyPath(t *testing.T) {
	f := newWSFixture(t, nil)
	conn := f.dial(t)
	awaitEvent(t, conn, EventConnectionAck)

	sendEvent(t, conn, "login", map[string]interface{}{
		"id": 7, "name": "alice", "team": "Red",
		"position": map[string]int{"x": 11, "y": -4},
	})

	success := awaitEvent(t, conn, EventLoginSuccess)
	var ok struct {
		Status    string `json:"status"`
		UserID    int64  `json:"userId"`
		Character struct {
			ID        int64  `json:"id"`
			Name      string `json:"name"`
			Team      string `json:"team"`
			X         int    `json:"x"`
			Y         int    `json:"y"`
			Animation string `json:"animation"`
		} `json:"character"`
	}
	require.NoError(t, json.Unmarshal(success, &ok))
	require.Equal(t, "success", ok.Status)
	require.Equal(t, int64(7), ok.UserID)
	require.Equal(t, "alice", ok.Character.Name)
	require.Equal(t, "Red", ok.Character.Team)
	require.Equal(t, 11, ok.Character.X)
	require.Equal(t, -4, ok.Character.Y)
	require.Equal(t, "idle", ok.Character.Animation)

	added := awaitEvent(t, conn, EventAddCharacter)
	var ch struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(added, &ch))
	require.Equal(t, int64(7), ch.ID)

	awaitEvent(t, conn, EventAllCharacters)
	notice := awaitEvent(t, conn, EventUserLoginNotification)
	var n struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(notice, &n))
	require.Equal(t, int64(7), n.ID)
	require.Equal(t, "alice", n.Name)

	require.Equal(t, 1, f.roster.Len())
	require.Equal(t, 1, f.registry.Len())
}

func TestLoginWithoutIDFails(t *testing.T) {
	f := newWSFixture(t, nil)
	conn := f.dial(t)
	awaitEvent(t, conn, EventConnectionAck)

	sendEvent(t, conn, "login", map[string]interface{}{"name": "nobody"})

	data := awaitEvent(t, conn, EventLoginError)
	var e struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &e))
	require.Equal(t, "Missing user ID", e.Error)
	require.Equal(t, 0, f.roster.Len())
}

func TestSecondLoginForcesLogoutOfFirst(t *testing.T) {
	f := newWSFixture(t, nil)

	first := f.dial(t)
	awaitEvent(t, first, EventConnectionAck)
	sendEvent(t, first, "login", map[string]interface{}{"id": 7, "name": "alice"})
	awaitEvent(t, first, EventLoginSuccess)

	second := f.dial(t)
	awaitEvent(t, second, EventConnectionAck)
	sendEvent(t, second, "login", map[string]interface{}{"id": 7, "name": "alice"})

	data := awaitEvent(t, first, EventForceLogout)
	var msg map[string]string
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, "You have logged in on another device.", msg["message"])

	// the character is still on the map, so the second login is rejected
	awaitEvent(t, second, EventLoginError)
	require.Equal(t, 1, f.roster.Len())

	// the registry now points at the new connection
	require.Equal(t, 1, f.registry.Len())
}

func TestPositionUpdateBroadcast(t *testing.T) {
	f := newWSFixture(t, nil)

	player := f.dial(t)
	awaitEvent(t, player, EventConnectionAck)
	sendEvent(t, player, "login", map[string]interface{}{
		"id": 7, "name": "alice",
		"position": map[string]int{"x": 1, "y": 2},
	})
	awaitEvent(t, player, EventLoginSuccess)

	observer := f.dial(t)
	awaitEvent(t, observer, EventConnectionAck)

	sendEvent(t, player, EventUpdatePosition, map[string]interface{}{
		"userId":    7,
		"position":  map[string]int{"x": 50},
		"animation": "run",
	})

	data := awaitEvent(t, observer, EventUpdatePosition)
	var upd struct {
		ID       int64 `json:"id"`
		Position struct {
			X int `json:"x"`
			Y int `json:"y"`
		} `json:"position"`
		Animation string `json:"animation"`
	}
	require.NoError(t, json.Unmarshal(data, &upd))
	require.Equal(t, int64(7), upd.ID)
	require.Equal(t, 50, upd.Position.X)
	require.Equal(t, 2, upd.Position.Y)
	require.Equal(t, "run", upd.Animation)
}

func TestPositionUpdateForUnknownUserIsSilent(t *testing.T) {
	f := newWSFixture(t, nil)
	conn := f.dial(t)
	awaitEvent(t, conn, EventConnectionAck)

	sendEvent(t, conn, EventUpdatePosition, map[string]interface{}{
		"userId":   99,
		"position": map[string]int{"x": 1},
	})
	expectSilence(t, conn, EventUpdatePosition)
}

func TestLogoutRemovesCharacter(t *testing.T) {
	f := newWSFixture(t, nil)
	conn := f.dial(t)
	awaitEvent(t, conn, EventConnectionAck)
	sendEvent(t, conn, "login", map[string]interface{}{"id": 7, "name": "alice"})
	awaitEvent(t, conn, EventLoginSuccess)

	sendEvent(t, conn, "logout", map[string]interface{}{"userId": 7})

	data := awaitEvent(t, conn, EventRemoveCharacter)
	var rm struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data, &rm))
	require.Equal(t, int64(7), rm.ID)
	require.Equal(t, 0, f.roster.Len())
	require.Equal(t, 0, f.registry.Len())
}

func TestDisconnectRemovesLoggedInCharacter(t *testing.T) {
	f := newWSFixture(t, nil)

	player := f.dial(t)
	awaitEvent(t, player, EventConnectionAck)
	sendEvent(t, player, "login", map[string]interface{}{"id": 7, "name": "alice"})
	awaitEvent(t, player, EventLoginSuccess)

	observer := f.dial(t)
	awaitEvent(t, observer, EventConnectionAck)

	require.NoError(t, player.Close())

	data := awaitEvent(t, observer, EventRemoveCharacter)
	var rm struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data, &rm))
	require.Equal(t, int64(7), rm.ID)

	require.Eventually(t, func() bool {
		return f.roster.Len() == 0 && f.registry.Len() == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestAnonymousDisconnectIsSilent(t *testing.T) {
	f := newWSFixture(t, nil)

	visitor := f.dial(t)
	awaitEvent(t, visitor, EventConnectionAck)

	observer := f.dial(t)
	awaitEvent(t, observer, EventConnectionAck)

	require.NoError(t, visitor.Close())
	expectSilence(t, observer, EventRemoveCharacter)
}

func TestRequestAllCharacters(t *testing.T) {
	f := newWSFixture(t, nil)
	conn := f.dial(t)
	awaitEvent(t, conn, EventConnectionAck)
	awaitEvent(t, conn, EventAllCharacters)

	sendEvent(t, conn, "login", map[string]interface{}{"id": 3, "name": "carol"})
	awaitEvent(t, conn, EventLoginSuccess)
	awaitEvent(t, conn, EventUserLoginNotification)

	sendEvent(t, conn, "request-all-characters", nil)

	data := awaitEvent(t, conn, EventAllCharacters)
	var payload struct {
		Characters []struct {
			ID int64 `json:"id"`
		} `json:"characters"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Len(t, payload.Characters, 1)
	require.Equal(t, int64(3), payload.Characters[0].ID)
}

func TestRequestChallengePositions(t *testing.T) {
	f := newWSFixture(t, stubChallenges{payload: map[string]string{"marker": "spots"}})
	conn := f.dial(t)
	awaitEvent(t, conn, EventConnectionAck)

	sendEvent(t, conn, "request-challenge-positions", nil)

	data := awaitEvent(t, conn, EventChallengePositions)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Equal(t, "spots", payload["marker"])
}

func TestUnknownEventIsIgnored(t *testing.T) {
	f := newWSFixture(t, nil)
	conn := f.dial(t)
	awaitEvent(t, conn, EventConnectionAck)

	sendEvent(t, conn, "no-such-event", map[string]int{"x": 1})

	// the connection stays healthy
	sendEvent(t, conn, "request-all-characters", nil)
	awaitEvent(t, conn, EventAllCharacters)
}
