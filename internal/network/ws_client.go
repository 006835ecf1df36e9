package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"vinput/internal/input"
	"vinput/internal/protocol"
)

var (
	ErrClientClosed = errors.New("ws client: connection closed")
	ErrRemote       = errors.New("ws client: remote injection failed")
)

// WSClient drives a remote agent over its /ws endpoint. Requests are
// matched to results by message id.
type WSClient struct {
	conn *websocket.Conn
	send chan protocol.Message
	done chan struct{}

	nextID  atomic.Uint64
	mu      sync.Mutex
	pending map[string]chan protocol.ResultPayload
	err     error
}

// DialWS connects to the agent at hostAddr ("host:port"). token is sent
// as a bearer token when not empty.
func DialWS(ctx context.Context, hostAddr, token string) (*WSClient, error) {
	u := url.URL{Scheme: "ws", Host: hostAddr, Path: "/ws"}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	log.Printf("WS Client: Connecting to %s", u.String())
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("ws client: dial %s: %w", u.String(), err)
	}

	c := &WSClient{
		conn:    conn,
		send:    make(chan protocol.Message, 100),
		done:    make(chan struct{}),
		pending: make(map[string]chan protocol.ResultPayload),
	}
	go c.writePump()
	go c.readPump()
	return c, nil
}

func (c *WSClient) readPump() {
	defer c.shutdown(ErrClientClosed)

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WS Client: Read error: %v", err)
			}
			return
		}

		env, err := protocol.ParseEnvelope(data)
		if err != nil {
			log.Printf("WS Client: Invalid message: %v", err)
			continue
		}
		if env.Type != protocol.TypeResult {
			continue
		}
		var res protocol.ResultPayload
		if err := json.Unmarshal(env.Payload, &res); err != nil {
			log.Printf("WS Client: Invalid result payload: %v", err)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[env.ID]
		delete(c.pending, env.ID)
		c.mu.Unlock()
		if ok {
			ch <- res
		}
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(30 * time.Second) // Ping ticker
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("WS Client: Write error: %v", err)
				c.conn.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}

		case <-c.done:
			return
		}
	}
}

// shutdown fails every pending request with err. Only the first call has
// an effect.
func (c *WSClient) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	c.err = err
	close(c.done)
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// request sends a message and waits for its result.
func (c *WSClient) request(ctx context.Context, typ protocol.MessageType, payload any) (protocol.ResultPayload, error) {
	id := strconv.FormatUint(c.nextID.Add(1), 10)
	ch := make(chan protocol.ResultPayload, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return protocol.ResultPayload{}, err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	select {
	case c.send <- protocol.Message{Type: typ, ID: id, Payload: payload}:
	case <-c.done:
		forget()
		return protocol.ResultPayload{}, ErrClientClosed
	case <-ctx.Done():
		forget()
		return protocol.ResultPayload{}, ctx.Err()
	}

	select {
	case res, ok := <-ch:
		if !ok {
			return protocol.ResultPayload{}, ErrClientClosed
		}
		if !res.OK {
			return res, fmt.Errorf("%w: %s", ErrRemote, res.Error)
		}
		return res, nil
	case <-ctx.Done():
		forget()
		return protocol.ResultPayload{}, ctx.Err()
	}
}

// Simulate asks the agent to inject ev and waits for the outcome.
func (c *WSClient) Simulate(ctx context.Context, ev input.Event) error {
	_, err := c.request(ctx, protocol.TypeSimulate, protocol.NewEventPayload(ev))
	return err
}

// MoveRelative asks the agent to move the pointer and returns the start
// position it reported.
func (c *WSClient) MoveRelative(ctx context.Context, dx, dy int32, wantStart bool) (input.Point, error) {
	res, err := c.request(ctx, protocol.TypeMoveRelative, protocol.MoveRelativePayload{DX: dx, DY: dy, WantStart: wantStart})
	if err != nil {
		return input.Point{}, err
	}
	if res.Start == nil {
		return input.Point{}, nil
	}
	return input.Point{X: res.Start.X, Y: res.Start.Y}, nil
}

// Authenticate introduces the controller to the agent. The agent closes
// the connection when token no longer matches its own.
func (c *WSClient) Authenticate(ctx context.Context, token, name, version string) error {
	_, err := c.request(ctx, protocol.TypeAuth, protocol.AuthPayload{Token: token, AgentName: name, AgentVersion: version})
	return err
}

// Ping checks that the agent is responsive.
func (c *WSClient) Ping(ctx context.Context) error {
	_, err := c.request(ctx, protocol.TypePing, nil)
	return err
}

// Close sends a close frame and stops the client
func (c *WSClient) Close() error {
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.shutdown(ErrClientClosed)
	return c.conn.Close()
}
