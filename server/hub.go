package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrsingh-rishi/voice-translator/model"
)

const (
	// writeWait bounds a single websocket write.
	writeWait = 5 * time.Second
	// sendBuffer is how many results a client may lag behind before new ones are dropped.
	sendBuffer = 16
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans translation results out to every connected websocket client.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  zerolog.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  log.With().Str("component", "hub").Logger(),
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// remove unregisters c and closes its send channel, once.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Clients returns the number of connected listeners.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish queues r for every client and never blocks: a client whose buffer is full
// misses the result. It has the signature of a pipeline result sink.
func (h *Hub) Publish(r model.TranslationResult) {
	msg, err := json.Marshal(r)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal result")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn().Str("remote", c.conn.RemoteAddr().String()).Msg("websocket client lagging, result dropped")
		}
	}
}

// writePump drains c.send onto the socket. A failed or timed-out write closes the
// connection, which also ends the read loop in serve.
func (h *Hub) writePump(c *client, done chan<- struct{}) {
	defer close(done)
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug().Err(err).Msg("dropping websocket client")
			c.conn.Close()
			// keep draining so remove never races a full channel
			for range c.send {
			}
			return
		}
	}
}

// serve keeps a client registered until it disconnects. Incoming messages are ignored.
func (h *Hub) serve(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	done := make(chan struct{})
	h.add(c)
	go h.writePump(c, done)
	defer func() {
		h.remove(c)
		<-done
	}()

	h.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("results listener connected")
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}
