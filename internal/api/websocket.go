package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vinput/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins; access is guarded by the token
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub tracks WebSocket connections
type Hub struct {
	server    *Server
	clients   map[*wsConn]bool
	clientsMu sync.RWMutex
}

// wsConn is one connected controller
type wsConn struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	ip   string

	// set by handleMessage when the connection must end after the reply
	closing bool
}

func newHub(s *Server) *Hub {
	return &Hub{
		server:  s,
		clients: make(map[*wsConn]bool),
	}
}

func (h *Hub) add(c *wsConn) {
	h.clientsMu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.clientsMu.Unlock()
	log.Printf("WS: New client registered from %s. Total clients: %d", c.ip, n)
}

func (h *Hub) remove(c *wsConn) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.stop()
		log.Printf("WS: Client unregistered from %s. Total clients: %d", c.ip, len(h.clients))
	}
}

// closeAll disconnects every client
func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.stop()
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS: Failed to upgrade connection: %v", err)
		return
	}

	client := &wsConn{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
		ip:   r.RemoteAddr,
	}
	h.add(client)

	go client.writePump()
	go client.readPump()
}

func (c *wsConn) stop() {
	c.once.Do(func() { close(c.done) })
}

// readPump handles messages in arrival order, so injected events keep the
// order the controller sent them in.
func (c *wsConn) readPump() {
	defer func() {
		c.hub.remove(c)
		// writePump closes after sending the last reply
		if !c.closing {
			c.conn.Close()
		}
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WS: Read error: %v", err)
			}
			return
		}
		// Any traffic proves the peer is alive
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		res, ok := c.handleMessage(message)
		if !ok {
			continue
		}
		data, err := json.Marshal(res)
		if err != nil {
			log.Printf("WS: Failed to marshal result: %v", err)
			continue
		}
		select {
		case c.send <- data:
		case <-c.done:
			return
		}
		if c.closing {
			return
		}
	}
}

// writePump pumps results to the websocket connection.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(50 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(time.Second))
			c.drain()
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

// drain writes the results queued before the connection was stopped.
func (c *wsConn) drain() {
	for {
		select {
		case message := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

// handleMessage executes one message and returns the result to send back.
// ok is false when nothing should be sent.
func (c *wsConn) handleMessage(data []byte) (msg protocol.Message, ok bool) {
	env, err := protocol.ParseEnvelope(data)
	if err != nil {
		log.Printf("WS: Invalid message format: %v", err)
		return result(env.ID, failure(err)), true
	}
	s := c.hub.server

	switch env.Type {
	case protocol.TypeAuth:
		var p protocol.AuthPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return result(env.ID, failure(protocol.ErrInvalidPayload)), true
		}
		if token := s.Token(); token != "" && subtle.ConstantTimeCompare([]byte(p.Token), []byte(token)) != 1 {
			log.Printf("WS: Controller '%s' from %s sent an invalid token, closing", p.AgentName, c.ip)
			c.closing = true
			return result(env.ID, failure(protocol.ErrUnauthorized)), true
		}
		log.Printf("WS: Controller '%s' (%s) authenticated from %s", p.AgentName, p.AgentVersion, c.ip)
		return result(env.ID, protocol.ResultPayload{OK: true}), true

	case protocol.TypeSimulate:
		var p protocol.EventPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return result(env.ID, failure(protocol.ErrInvalidPayload)), true
		}
		ev, err := p.Event()
		if err != nil {
			return result(env.ID, failure(err)), true
		}
		if err := s.agent.Simulate(ev); err != nil {
			log.Printf("WS: %v: %v", err, errors.Unwrap(err))
			return result(env.ID, failure(err)), true
		}
		return result(env.ID, protocol.ResultPayload{OK: true}), true

	case protocol.TypeMoveRelative:
		var p protocol.MoveRelativePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return result(env.ID, failure(protocol.ErrInvalidPayload)), true
		}
		_, res := s.moveRelative(p)
		return result(env.ID, res), true

	case protocol.TypePing:
		return result(env.ID, protocol.ResultPayload{OK: true}), true

	case protocol.TypeResult:
		return protocol.Message{}, false

	default:
		log.Printf("WS: Unknown message type '%s' from %s", env.Type, c.ip)
		return result(env.ID, failure(protocol.ErrMalformed)), true
	}
}

func result(id string, res protocol.ResultPayload) protocol.Message {
	return protocol.Message{Type: protocol.TypeResult, ID: id, Payload: res}
}
