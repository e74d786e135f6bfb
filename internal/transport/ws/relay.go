package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"quizroom/internal/domain"
	"quizroom/internal/game"
)

// inbound is the client->server command envelope.
type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// outbound is the server->client notification envelope.
type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan outbound
}

// Relay owns the websocket connections and routes commands into the
// coordinator. It implements game.Emitter.
type Relay struct {
	coord    *game.Coordinator
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

func NewRelay(coord *game.Coordinator, log *zap.Logger) *Relay {
	return &Relay{
		coord: coord,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Emit queues an event for one connection. Unknown connections are
// dropped silently (the peer already went away); a full buffer drops the
// event rather than blocking the coordinator. The send stays inside the
// read-locked section: unregister closes the channel under the write
// lock, so a send can never race the close.
func (rl *Relay) Emit(connID, event string, payload any) {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	c, ok := rl.clients[connID]
	if !ok {
		return
	}

	select {
	case c.send <- outbound{Type: event, Payload: payload}:
	default:
		rl.log.Warn("dropping event for slow client",
			zap.String("conn", connID),
			zap.String("event", event),
		)
	}
}

// ServeWS upgrades the request and runs the connection until it closes.
func (rl *Relay) ServeWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := rl.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rl.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan outbound, 16),
	}

	rl.mu.Lock()
	rl.clients[c.id] = c
	rl.mu.Unlock()

	rl.log.Info("client connected", zap.String("conn", c.id))

	go c.writePump(rl.log)
	rl.readPump(c)
}

func (rl *Relay) readPump(c *client) {
	defer func() {
		rl.unregister(c)
		_ = c.conn.Close()

		rl.coord.Disconnect(c.id)
		rl.log.Info("client disconnected", zap.String("conn", c.id))
	}()

	for {
		var msg inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		rl.dispatch(c, msg)
	}
}

// unregister removes the client and closes its send channel in one
// write-locked step. Any Emit still inside the read lock finishes its
// send first, so the channel is closed only once no sender can hold it.
func (rl *Relay) unregister(c *client) {
	rl.mu.Lock()
	delete(rl.clients, c.id)
	close(c.send)
	rl.mu.Unlock()
}

func (c *client) writePump(log *zap.Logger) {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Debug("ws write error", zap.Error(err))
			return
		}
	}
}

// dispatch decodes one command and hands it to the coordinator. Handler
// errors come back to the originating connection only, as a single
// user-visible message; none are fatal.
func (rl *Relay) dispatch(c *client, msg inbound) {
	var err error

	switch msg.Type {
	case game.CmdCheckRoom:
		var code string
		if err = json.Unmarshal(msg.Payload, &code); err == nil {
			err = rl.coord.CheckRoom(c.id, code)
		}

	case game.CmdJoin:
		var p struct {
			Username string `json:"username"`
			Room     string `json:"room"`
		}
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = rl.coord.Join(c.id, p.Username, p.Room)
		}

	case game.CmdCreateRoom:
		var password string
		if len(msg.Payload) > 0 {
			err = json.Unmarshal(msg.Payload, &password)
		}
		if err == nil {
			err = rl.coord.CreateRoom(c.id, password)
		}

	case game.CmdKickPlayer:
		var playerID string
		if err = json.Unmarshal(msg.Payload, &playerID); err == nil {
			err = rl.coord.KickPlayer(c.id, playerID)
		}

	case game.CmdStartGame:
		err = rl.coord.StartGame(c.id)

	case game.CmdSelectedAnswer:
		var choice int
		if err = json.Unmarshal(msg.Payload, &choice); err == nil {
			err = rl.coord.SelectAnswer(c.id, choice)
		}

	case game.CmdAbortQuiz:
		err = rl.coord.AbortQuiz(c.id)

	case game.CmdNextQuestion:
		err = rl.coord.NextQuestion(c.id)

	case game.CmdShowLeaderboard:
		err = rl.coord.ShowLeaderboard(c.id)

	case game.CmdAddQuestion:
		var q *domain.Question
		if len(msg.Payload) > 0 {
			err = json.Unmarshal(msg.Payload, &q)
		}
		if err == nil {
			err = rl.coord.AddQuestion(c.id, q)
		}

	case game.CmdEditQuestion:
		var p struct {
			Index    int             `json:"index"`
			Question domain.Question `json:"questionObj"`
		}
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = rl.coord.EditQuestion(c.id, p.Index, p.Question)
		}

	case game.CmdDeleteQuestion:
		var index int
		if err = json.Unmarshal(msg.Payload, &index); err == nil {
			err = rl.coord.DeleteQuestion(c.id, index)
		}

	case game.CmdReplaceQuestions:
		var bank domain.QuestionBank
		if err = json.Unmarshal(msg.Payload, &bank); err == nil {
			err = rl.coord.ReplaceQuestions(context.Background(), c.id, bank)
		}

	default:
		rl.Emit(c.id, game.EventError, "unsupported message type")
		return
	}

	if err != nil {
		rl.Emit(c.id, game.EventError, userMessage(err))
	}
}

// userMessage maps handler errors onto the short strings the client UI
// shows verbatim.
func userMessage(err error) string {
	switch err {
	case domain.ErrBadPassword:
		return "Bad Password"
	case domain.ErrRoomExists:
		return "Already manager"
	case domain.ErrRoomNotFound:
		return "Room not found"
	case domain.ErrUsernameTaken:
		return "Username already taken"
	case domain.ErrAlreadyStarted:
		return "Game already started"
	default:
		return err.Error()
	}
}
