package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// inboundEnvelope is the wire frame for client-sent events.
type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client is one live websocket connection. Outbound messages go through a
// buffered channel drained by writePump so broadcasts never block on a slow
// peer.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	log  zerolog.Logger
}

func newClient(conn *websocket.Conn, buffer int, log zerolog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, buffer),
		log:  log.With().Str("conn", id).Logger(),
	}
}

// ID returns the opaque per-connection handle.
func (c *Client) ID() string { return c.id }

// Enqueue implements the gateway subscriber contract. It never blocks;
// a full buffer drops the message and reports false.
func (c *Client) Enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// writePump drains the send buffer onto the connection and keeps the peer
// alive with pings. It exits on the first write failure.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads inbound envelopes and hands them to dispatch until the
// connection drops, then runs the disconnect callback.
func (c *Client) readPump(dispatch func(event string, data json.RawMessage), disconnect func()) {
	defer func() {
		disconnect()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}

		var env inboundEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Debug().Err(err).Msg("malformed client envelope")
			continue
		}
		dispatch(env.Event, env.Data)
	}
}
