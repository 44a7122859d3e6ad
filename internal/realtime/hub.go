// README: WebSocket hub pushing live trip progress to subscribed dashboard and customer clients.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/tracking"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
	sendBuffer     = 32
)

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is what subscribers receive.
type Message struct {
	Type   string           `json:"type"`
	Update *tracking.Update `json:"update,omitempty"`
}

type client struct {
	tripID types.ID
	conn   *websocket.Conn
	send   chan []byte
}

// Hub fans tracking updates out to the websocket clients subscribed to a
// trip. A client that cannot keep up is disconnected rather than blocking
// ingestion.
type Hub struct {
	mu      sync.Mutex
	clients map[types.ID]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[types.ID]map[*client]struct{})}
}

func (h *Hub) Name() string { return "websocket" }

// Serve registers conn as a subscriber of tripID and blocks until the
// connection closes. The caller has already authorized the subscription.
func (h *Hub) Serve(conn *websocket.Conn, tripID types.ID) {
	c := &client{tripID: tripID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go c.writePump()
	c.readPump()
	h.unregister(c)
}

// Subscribers reports how many clients follow tripID.
func (h *Hub) Subscribers(tripID types.ID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[tripID])
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.tripID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.tripID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.tripID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.tripID)
	}
}

func (h *Hub) broadcast(tripID types.ID, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[tripID] {
		select {
		case c.send <- payload:
		default:
			slog.Warn("realtime: dropping slow subscriber", "trip_id", tripID)
			delete(h.clients[tripID], c)
			close(c.send)
		}
	}
}

func (h *Hub) TripUpdated(_ context.Context, u tracking.Update) error {
	payload, err := json.Marshal(Message{Type: "progress", Update: &u})
	if err != nil {
		return err
	}
	h.broadcast(u.TripID, payload)
	return nil
}

// TripEnded sends a final message and closes every subscription of the trip.
func (h *Hub) TripEnded(_ context.Context, trip tracking.Trip) error {
	payload, err := json.Marshal(Message{Type: "ended"})
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[trip.ID] {
		select {
		case c.send <- payload:
		default:
		}
		close(c.send)
	}
	delete(h.clients, trip.ID)
	return nil
}

// readPump only services control frames; subscribers do not send data.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
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
