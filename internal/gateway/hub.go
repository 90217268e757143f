// WebSocket transport of the realtime gateway.

package gateway

import (
	"Wanna/internal/entity"
	"Wanna/internal/errors"
	"Wanna/pkg/log"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Must be less than pongWait.
	pingPeriod = 30 * time.Second
	// Maximum size of an inbound message.
	maxMessageSize = 64 * 1024
	// Outbound messages buffered per connection.
	sendQueueSize = 256
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendQueueFull    = errors.New("send queue full")
)

// ConnHandler receives the lifecycle and the messages of every websocket connection.
type ConnHandler interface {
	Connect(ctx context.Context, connID string)
	Disconnect(ctx context.Context, connID string)
	Receive(ctx context.Context, connID string, payload []byte)
}

type client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Hub owns every live websocket connection and implements broadcast.Sender.
type Hub struct {
	upgrader websocket.Upgrader
	logger   log.Logger

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
	wg      sync.WaitGroup
}

// NewHub returns a Hub accepting upgrades from allowedOrigin, "*" accepts any origin.
func NewHub(allowedOrigin string, logger log.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
		logger:  logger,
		clients: make(map[string]*client),
	}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send queues msg for connID without blocking.
func (h *Hub) Send(connID string, msg entity.OutboundMessage) error {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return ErrConnectionClosed
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// ServeWS upgrades the request and serves the connection until it closes.
func (h *Hub) ServeWS(handler ConnHandler) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		h.mu.RLock()
		closed := h.closed
		h.mu.RUnlock()
		if closed {
			gctx.AbortWithStatusJSON(http.StatusServiceUnavailable, errors.InternalServerError("Server is shutting down"))
			return
		}
		conn, err := h.upgrader.Upgrade(gctx.Writer, gctx.Request, nil)
		if err != nil {
			// Upgrade already replied with an HTTP error
			h.logger.WithCtx(gctx).Warn().Err(err).Msg("Websocket upgrade failed")
			return
		}
		c := &client{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan []byte, sendQueueSize),
			done: make(chan struct{}),
		}
		if !h.register(c) {
			conn.Close()
			return
		}
		// The gin context is recycled once this handler returns.
		ctx := context.Background()
		handler.Connect(ctx, c.id)
		go h.writePump(c)
		go h.readPump(ctx, c, handler)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.wg.Add(1)
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
}

// readPump handles the messages of c one at a time, in arrival order.
func (h *Hub) readPump(ctx context.Context, c *client, handler ConnHandler) {
	defer func() {
		h.unregister(c)
		c.close()
		handler.Disconnect(ctx, c.id)
		h.wg.Done()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Str("conn", c.id).Msg("Websocket closed unexpectedly")
			}
			return
		}
		handler.Receive(ctx, c.id, payload)
	}
}

// writePump is the only writer of c.conn.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Close stops accepting connections, closes the live ones and waits for their handlers to finish.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		h.logger.Info().Int("connections", len(clients)).Msg("Websocket hub closed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
