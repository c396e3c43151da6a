package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"go_market_monitor/models"

	"github.com/gorilla/websocket"
)

// Constants for stream configuration
const (
	MaxClients     = 100 // Maximum concurrent WebSocket clients
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 256
)

// snapshotMessage is the JSON frame pushed to clients after each tick.
type snapshotMessage struct {
	Type   string         `json:"type"`
	Quotes []models.Quote `json:"quotes"`
	Time   string         `json:"time"`
}

// client represents a connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// QuoteStream broadcasts the quote snapshot computed on each monitor tick to
// all connected WebSocket clients. Slow clients are evicted rather than
// allowed to block the broadcast.
type QuoteStream struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	shutdown   chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

// NewQuoteStream creates the stream hub and starts its run loop.
func NewQuoteStream() *QuoteStream {
	qs := &QuoteStream{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, sendBufferSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		shutdown:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	go qs.run()
	return qs
}

// Publish queues a quote snapshot for broadcast. Never blocks the monitor
// tick: when the broadcast buffer is full the snapshot is dropped.
func (qs *QuoteStream) Publish(quotes []models.Quote) {
	data, err := json.Marshal(snapshotMessage{
		Type:   "quotes",
		Quotes: quotes,
		Time:   time.Now().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("Error marshaling quote snapshot: %v", err)
		return
	}

	select {
	case qs.broadcast <- data:
	case <-qs.shutdown:
	default:
		log.Println("Quote stream broadcast buffer full, dropping snapshot")
	}
}

// Shutdown closes all client connections and stops the hub.
func (qs *QuoteStream) Shutdown() {
	close(qs.shutdown)

	qs.mu.Lock()
	for c := range qs.clients {
		close(c.send)
		c.conn.Close()
	}
	qs.clients = make(map[*client]bool)
	qs.mu.Unlock()

	log.Println("Quote stream shutdown complete")
}

// run is the hub loop handling registration, disconnects and broadcasts.
func (qs *QuoteStream) run() {
	for {
		select {
		case <-qs.shutdown:
			return

		case c := <-qs.register:
			qs.mu.Lock()
			if len(qs.clients) >= MaxClients {
				qs.mu.Unlock()
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "Server at capacity"))
				c.conn.Close()
				log.Printf("WebSocket client rejected: max clients reached (%d)", MaxClients)
				continue
			}
			qs.clients[c] = true
			clientCount := len(qs.clients)
			qs.mu.Unlock()
			log.Printf("WebSocket client connected. Total clients: %d", clientCount)

		case c := <-qs.unregister:
			qs.mu.Lock()
			if _, ok := qs.clients[c]; ok {
				delete(qs.clients, c)
				close(c.send)
			}
			clientCount := len(qs.clients)
			qs.mu.Unlock()
			log.Printf("WebSocket client disconnected. Total clients: %d", clientCount)

		case message := <-qs.broadcast:
			qs.mu.Lock()
			var deadClients []*client
			for c := range qs.clients {
				select {
				case c.send <- message:
				default:
					// Client buffer full, mark for removal
					deadClients = append(deadClients, c)
				}
			}
			for _, c := range deadClients {
				delete(qs.clients, c)
				close(c.send)
			}
			qs.mu.Unlock()
		}
	}
}

// clientCount returns the number of connected clients.
func (qs *QuoteStream) clientCount() int {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	return len(qs.clients)
}

// HandleWebSocket upgrades an HTTP request and attaches the client to the hub.
func (qs *QuoteStream) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if qs.clientCount() >= MaxClients {
		http.Error(w, "Server at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := qs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	qs.register <- c

	go c.writePump()
	go c.readPump(qs)
}

// writePump writes broadcast messages and keepalive pings to the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection to process control frames and detect close.
// The stream is one-way; inbound text frames are ignored.
func (c *client) readPump(qs *QuoteStream) {
	defer func() {
		qs.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}
	}
}
