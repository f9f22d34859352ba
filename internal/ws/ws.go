package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/buildrush/buildrush-backend/internal/game"
)

const writeTimeout = 10 * time.Second

// Client is one WebSocket connection. It implements game.Sender; writes are
// serialized behind the mutex because gorilla connections allow only one
// concurrent writer.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *Client) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

// Handler upgrades connections and routes inbound messages into the registry.
type Handler struct {
	registry *game.Registry
	upgrader websocket.Upgrader
}

func NewHandler(registry *game.Registry) *Handler {
	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{conn: conn}
	player := game.NewPlayer(uuid.NewString(), client)
	log.Info().Str("player", player.ID).Str("remote", r.RemoteAddr).Msg("connection opened")

	go h.readLoop(conn, client, player)
}

// Inbound payloads. Every message names a room code except createRoom.
type (
	roomRef struct {
		Code string `json:"code"`
	}
	setMatchTypeMsg struct {
		Code      string         `json:"code"`
		MatchType game.MatchType `json:"matchType"`
	}
	setReadyMsg struct {
		Code  string `json:"code"`
		Ready bool   `json:"ready"`
	}
	placeTileMsg struct {
		Code string    `json:"code"`
		X    int       `json:"x"`
		Y    int       `json:"y"`
		Tile game.Tile `json:"tile"`
	}
	submitToggleMsg struct {
		Code   string `json:"code"`
		Submit bool   `json:"submit"`
	}
)

func (h *Handler) readLoop(conn *websocket.Conn, client *Client, player *game.Player) {
	defer func() {
		conn.Close()
		h.registry.Disconnect(player)
		log.Info().Str("player", player.ID).Msg("connection closed")
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("player", player.ID).Msg("read error")
			}
			return
		}

		var msg game.Message[json.RawMessage]
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug().Err(err).Str("player", player.ID).Msg("malformed envelope")
			continue
		}
		h.route(client, player, msg)
	}
}

// route dispatches one inbound message. Fire-and-forget messages with bad
// payloads are dropped; only createRoom and joinRoom answer the sender.
func (h *Handler) route(client *Client, player *game.Player, msg game.Message[json.RawMessage]) {
	switch msg.Type {
	case "createRoom":
		ack := h.registry.CreateRoom(player)
		h.reply(client, player, "roomCreated", ack)

	case "joinRoom":
		var d roomRef
		if !decode(player, msg, &d) {
			return
		}
		ack := h.registry.JoinRoom(d.Code, player)
		h.reply(client, player, "roomJoined", ack)

	case "setMatchType":
		var d setMatchTypeMsg
		if decode(player, msg, &d) {
			h.registry.SetMatchType(d.Code, player.ID, d.MatchType)
		}

	case "setReady":
		var d setReadyMsg
		if decode(player, msg, &d) {
			h.registry.SetReady(d.Code, player.ID, d.Ready)
		}

	case "startMatch":
		var d roomRef
		if decode(player, msg, &d) {
			h.registry.StartMatch(d.Code, player.ID)
		}

	case "placeTile":
		var d placeTileMsg
		if decode(player, msg, &d) {
			h.registry.PlaceTile(d.Code, player.ID, d.X, d.Y, d.Tile)
		}

	case "submitToggle":
		var d submitToggleMsg
		if decode(player, msg, &d) {
			h.registry.SubmitToggle(d.Code, player.ID, d.Submit)
		}

	case "submit":
		// Legacy one-shot form of submitToggle.
		var d roomRef
		if decode(player, msg, &d) {
			h.registry.SubmitToggle(d.Code, player.ID, true)
		}

	case "peek":
		var d roomRef
		if decode(player, msg, &d) {
			h.registry.Peek(d.Code, player.ID)
		}

	default:
		log.Debug().Str("player", player.ID).Str("type", msg.Type).Msg("unknown message type")
	}
}

func (h *Handler) reply(client *Client, player *game.Player, msgType string, ack game.RoomAck) {
	if err := client.Send(game.Message[game.RoomAck]{Type: msgType, Data: ack}); err != nil {
		log.Debug().Err(err).Str("player", player.ID).Str("msg", msgType).Msg("failed to send ack")
	}
}

func decode[T any](player *game.Player, msg game.Message[json.RawMessage], into *T) bool {
	if err := json.Unmarshal(msg.Data, into); err != nil {
		log.Debug().Err(err).Str("player", player.ID).Str("type", msg.Type).Msg("malformed payload")
		return false
	}
	return true
}
