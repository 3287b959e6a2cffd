package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/MLLeKander/Magnets/game/engine"
)

const (
	writeTimeout = 10 * time.Second
	// a watcher that has not answered a ping within idleTimeout is dropped
	idleTimeout  = 60 * time.Second
	pingInterval = idleTimeout * 9 / 10
	readLimit    = 512
	// frames queued per watcher before it is considered too slow
	outboxSize = 256
)

// Event names sent to watchers
const (
	EventStateUpdate = "state_update"
	EventSolved      = "solved"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Message is the JSON frame pushed to watchers
type Message struct {
	SessionID string            `json:"session_id"`
	GameState *engine.GameState `json:"game_state,omitempty"`
	Event     string            `json:"event,omitempty"`
	Data      interface{}       `json:"data,omitempty"`
}

// watcher is one connection following one session
type watcher struct {
	conn    *websocket.Conn
	outbox  chan []byte
	session string
}

// Hub fans session updates out to the connections watching them. Joins,
// leaves and events go through Run; state updates are queued directly.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*watcher]struct{}

	joins  chan *watcher
	leaves chan *watcher
	events chan *Message
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[*watcher]struct{}),
		joins:  make(chan *watcher),
		leaves: make(chan *watcher),
		events: make(chan *Message),
	}
}

// Run serves joins, leaves and events until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case w := <-h.joins:
			h.join(w)
		case w := <-h.leaves:
			h.leave(w)
		case msg := <-h.events:
			data, err := json.Marshal(msg)
			if err != nil {
				log.WithError(err).WithField("event", msg.Event).Error("Failed to encode event")
				continue
			}
			h.fanOut(msg.SessionID, data)
		}
	}
}

// ServeWS upgrades the request into a watcher of sessionID. initial, when
// non-nil, is the first frame the watcher receives.
func (h *Hub) ServeWS(rw http.ResponseWriter, r *http.Request, sessionID string, initial *engine.GameState) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	w := &watcher{conn: conn, outbox: make(chan []byte, outboxSize), session: sessionID}
	if initial != nil {
		if data, err := encodeState(sessionID, initial); err == nil {
			w.outbox <- data
		}
	}

	h.joins <- w
	go w.writeLoop()
	go w.readLoop(h)
}

func encodeState(sessionID string, state *engine.GameState) ([]byte, error) {
	return json.Marshal(&Message{SessionID: sessionID, GameState: state, Event: EventStateUpdate})
}

// BroadcastToSession pushes state to every watcher of sessionID
func (h *Hub) BroadcastToSession(sessionID string, state *engine.GameState) {
	data, err := encodeState(sessionID, state)
	if err != nil {
		log.WithError(err).Error("Failed to encode game state")
		return
	}
	h.fanOut(sessionID, data)
}

// BroadcastEvent hands a named event to Run for delivery. It blocks until
// Run picks it up.
func (h *Hub) BroadcastEvent(sessionID, event string, data interface{}) {
	h.events <- &Message{SessionID: sessionID, Event: event, Data: data}
}

// ClientCount is the number of watchers of sessionID
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[sessionID])
}

func (h *Hub) join(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[w.session]
	if room == nil {
		room = make(map[*watcher]struct{})
		h.rooms[w.session] = room
	}
	room[w] = struct{}{}
	log.WithFields(log.Fields{"session": w.session, "watchers": len(room)}).Debug("Watcher joined")
}

func (h *Hub) leave(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.evict(w)
}

// evict closes w's outbox, which ends its write loop. h.mu must be held.
func (h *Hub) evict(w *watcher) {
	room := h.rooms[w.session]
	if _, ok := room[w]; !ok {
		return
	}
	delete(room, w)
	close(w.outbox)
	if len(room) == 0 {
		delete(h.rooms, w.session)
	}
	log.WithFields(log.Fields{"session": w.session, "watchers": len(room)}).Debug("Watcher left")
}

// fanOut queues data for each watcher of sessionID. A watcher with a full
// outbox is evicted instead of blocking the rest.
func (h *Hub) fanOut(sessionID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for w := range h.rooms[sessionID] {
		select {
		case w.outbox <- data:
		default:
			log.WithField("session", sessionID).Warn("Dropping slow watcher")
			h.evict(w)
		}
	}
}

// readLoop discards incoming frames and handles pongs. It returns, and the
// watcher leaves, once the connection fails or goes idle.
func (w *watcher) readLoop(h *Hub) {
	defer func() {
		h.leaves <- w
		w.conn.Close()
	}()

	w.conn.SetReadLimit(readLimit)
	w.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})

	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).WithField("session", w.session).Warn("WebSocket closed unexpectedly")
			}
			return
		}
	}
}

// writeLoop sends each queued frame as its own text message and pings on a
// timer. It sends a close frame once the outbox is closed.
func (w *watcher) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		w.conn.Close()
	}()

	for {
		select {
		case data, open := <-w.outbox:
			w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !open {
				w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
