package realtime

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ChallengeSource supplies the current challenge map positions for the
// update-challenge-positions broadcast.
type ChallengeSource interface {
	Positions(ctx context.Context) (interface{}, error)
}

type loginRequest struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Team      string         `json:"team"`
	Position  *PositionPatch `json:"position"`
	Animation string         `json:"animation"`
}

type logoutRequest struct {
	UserID int64 `json:"userId"`
}

type moveRequest struct {
	UserID    int64          `json:"userId"`
	Position  *PositionPatch `json:"position"`
	Animation string         `json:"animation"`
}

type loginSuccess struct {
	Status    string      `json:"status"`
	UserID    int64       `json:"userId"`
	Character interface{} `json:"character"`
}

type errorNotice struct {
	Error string `json:"error"`
}

// Handler upgrades inbound websocket connections and dispatches their
// events onto the registry, roster and gateway.
type Handler struct {
	upgrader   websocket.Upgrader
	gateway    *Gateway
	registry   *Registry
	roster     *Roster
	challenges ChallengeSource
	sendBuffer int
	log        zerolog.Logger
}

// NewHandler wires the realtime core. allowedOrigin of "*" disables the
// origin check, matching the platform's permissive CORS posture.
func NewHandler(gw *Gateway, reg *Registry, roster *Roster, challenges ChallengeSource, allowedOrigin string, sendBuffer int, log zerolog.Logger) *Handler {
	h := &Handler{
		gateway:    gw,
		registry:   reg,
		roster:     roster,
		challenges: challenges,
		sendBuffer: sendBuffer,
		log:        log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "*" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}
	return h
}

// ServeHTTP completes the handshake, attaches the connection to the gateway,
// acknowledges it, and pushes the current roster to everyone.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newClient(conn, h.sendBuffer, h.log)
	h.gateway.Attach(c)
	go c.writePump()

	h.gateway.SendTo(c.ID(), EventConnectionAck, map[string]string{"status": "connected"})
	h.gateway.Publish([]Event{h.roster.SnapshotEvent()})

	c.readPump(func(event string, data json.RawMessage) {
		h.dispatch(c, event, data)
	}, func() {
		h.disconnect(c)
	})
}

func (h *Handler) dispatch(c *Client, event string, data json.RawMessage) {
	switch event {
	case eventLogin:
		h.handleLogin(c, data)
	case eventLogout:
		h.handleLogout(c, data)
	case EventUpdatePosition:
		h.handleMove(c, data)
	case eventRequestAllCharacters:
		h.gateway.Publish([]Event{h.roster.SnapshotEvent()})
	case eventRequestChallengeSpots:
		h.handleChallengePositions(c)
	default:
		h.log.Debug().Str("event", event).Msg("unknown client event")
	}
}

func (h *Handler) handleLogin(c *Client, data json.RawMessage) {
	var req loginRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ID == 0 {
		h.gateway.SendTo(c.ID(), EventLoginError, errorNotice{Error: "Missing user ID"})
		return
	}

	if displaced := h.registry.Register(req.ID, c.ID()); displaced != "" {
		h.log.Info().Int64("user", req.ID).Str("old_conn", displaced).Msg("forcing logout of prior session")
		h.gateway.SendTo(displaced, EventForceLogout, map[string]string{
			"message": "You have logged in on another device.",
		})
	}

	char, events, err := h.roster.Add(AddInput{
		ID:        req.ID,
		Name:      req.Name,
		Team:      req.Team,
		Position:  req.Position,
		Animation: req.Animation,
	})
	if err != nil {
		h.gateway.SendTo(c.ID(), EventLoginError, errorNotice{Error: err.Error()})
		return
	}

	h.log.Info().Int64("user", req.ID).Str("name", req.Name).Msg("user logged in")
	h.gateway.SendTo(c.ID(), EventLoginSuccess, loginSuccess{
		Status:    "success",
		UserID:    req.ID,
		Character: *char,
	})
	h.gateway.Publish(events)
}

func (h *Handler) handleLogout(c *Client, data json.RawMessage) {
	var req logoutRequest
	if err := json.Unmarshal(data, &req); err != nil || req.UserID == 0 {
		h.log.Debug().Msg("logout without user id")
		return
	}

	h.registry.RemoveUser(req.UserID)
	h.gateway.Publish(h.roster.Remove(req.UserID))
	h.log.Info().Int64("user", req.UserID).Msg("user logged out")
}

func (h *Handler) handleMove(c *Client, data json.RawMessage) {
	var req moveRequest
	if err := json.Unmarshal(data, &req); err != nil || req.UserID == 0 || req.Position == nil {
		h.log.Debug().Msg("position update missing user id or position")
		return
	}

	ok, events := h.roster.UpdatePosition(req.UserID, *req.Position, req.Animation)
	if !ok {
		h.log.Debug().Int64("user", req.UserID).Msg("position update for unknown character")
		return
	}
	h.gateway.Publish(events)
}

func (h *Handler) handleChallengePositions(c *Client) {
	if h.challenges == nil {
		return
	}
	payload, err := h.challenges.Positions(context.Background())
	if err != nil {
		h.log.Error().Err(err).Msg("loading challenge positions failed")
		return
	}
	h.gateway.Broadcast(EventChallengePositions, payload)
}

// disconnect detaches the connection and, when it belonged to a logged-in
// user, removes the character and announces the removal. Anonymous
// disconnects change nothing.
func (h *Handler) disconnect(c *Client) {
	h.gateway.Detach(c.ID())
	if userID, ok := h.registry.Unregister(c.ID()); ok {
		h.gateway.Publish(h.roster.Remove(userID))
		h.log.Info().Int64("user", userID).Msg("user disconnected")
	}
}
