// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	applog "visualizer/internal/log"

	"github.com/gorilla/websocket"
)

const (
	// BinsPath is the WebSocket endpoint for frames and commands.
	BinsPath = "/bins"

	broadcastQueue = 64
	writeTimeout   = time.Second
)

// Request is a command sent by a client, e.g. {"id":1,"method":"start"}.
type Request struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
}

// Response answers one Request. Exactly one of Result and Error is set.
type Response struct {
	ID     int64          `json:"id"`
	Result string         `json:"result,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError carries a stable code ("init_failed", "not_implemented",
// "bad_request", "error") and a human readable message.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// wsClient serializes writes to one connection.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) write(msgType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(msgType, data)
}

// WebSocketTransport broadcasts frames to every connected client and forwards
// client commands to a CommandHandler.
//
// Thread Safety:
//   - Send never blocks: frames arriving faster than minInterval, or while the
//     broadcast queue is full, are dropped
//   - Client map access is guarded by a mutex
//   - Each connection has its own write lock shared by broadcasts and replies
type WebSocketTransport struct {
	handlerMu   sync.RWMutex
	handler     CommandHandler
	minInterval time.Duration

	upgrader websocket.Upgrader
	listener net.Listener
	server   *http.Server

	clientsMu sync.Mutex
	clients   map[*wsClient]struct{}

	sendMu   sync.Mutex
	lastSend time.Time

	broadcast chan []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWebSocketTransport listens on addr and starts serving BinsPath. handler may
// be nil, in which case every command is answered with not_implemented.
func NewWebSocketTransport(addr string, minInterval time.Duration, handler CommandHandler) (*WebSocketTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("WebSocketTransport: listen on %s: %w", addr, err)
	}

	t := &WebSocketTransport{
		handler:     handler,
		minInterval: minInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local visualizer clients, any origin.
			},
		},
		listener:  ln,
		clients:   make(map[*wsClient]struct{}),
		broadcast: make(chan []byte, broadcastQueue),
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(BinsPath, t.handleWebSocket)
	t.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	t.wg.Add(2)
	go func() {
		defer t.wg.Done()
		applog.Infof("WebSocketTransport: Listening on ws://%s%s", ln.Addr(), BinsPath)
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	go t.handleBroadcasts()

	return t, nil
}

// Addr returns the address the server listens on.
func (t *WebSocketTransport) Addr() net.Addr {
	return t.listener.Addr()
}

// ClientCount returns the number of connected clients.
func (t *WebSocketTransport) ClientCount() int {
	t.clientsMu.Lock()
	defer t.clientsMu.Unlock()
	return len(t.clients)
}

func (t *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	c := &wsClient{conn: conn}
	t.clientsMu.Lock()
	t.clients[c] = struct{}{}
	total := len(t.clients)
	t.clientsMu.Unlock()
	applog.Infof("WebSocketTransport: Client %s connected, total: %d", conn.RemoteAddr(), total)

	t.readCommands(c)
}

// readCommands answers requests from c until the connection fails.
func (t *WebSocketTransport) readCommands(c *wsClient) {
	defer t.removeClient(c)

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req Request
		var resp Response
		if err := json.Unmarshal(msg, &req); err != nil || req.Method == "" {
			resp = Response{ID: req.ID, Error: &ResponseError{Code: "bad_request", Message: "expected {\"id\":n,\"method\":\"start\"|\"stop\"}"}}
		} else {
			resp = t.execute(req)
		}

		data, err := json.Marshal(resp)
		if err != nil {
			applog.Errorf("WebSocketTransport: Encoding response: %v", err)
			continue
		}
		if err := c.write(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// SetHandler replaces the handler that executes client commands.
func (t *WebSocketTransport) SetHandler(h CommandHandler) {
	t.handlerMu.Lock()
	t.handler = h
	t.handlerMu.Unlock()
}

func (t *WebSocketTransport) execute(req Request) Response {
	t.handlerMu.RLock()
	handler := t.handler
	t.handlerMu.RUnlock()

	if handler == nil {
		return Response{ID: req.ID, Error: &ResponseError{Code: "not_implemented", Message: req.Method}}
	}

	applog.Debugf("WebSocketTransport: Command %d %q", req.ID, req.Method)
	if err := handler.HandleCommand(req.Method); err != nil {
		return Response{ID: req.ID, Error: &ResponseError{Code: errorCode(err), Message: err.Error()}}
	}
	return Response{ID: req.ID, Result: "ok"}
}

// errorCode extracts a stable code from err, "error" when it has none.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return "error"
}

func (t *WebSocketTransport) removeClient(c *wsClient) {
	t.clientsMu.Lock()
	_, ok := t.clients[c]
	delete(t.clients, c)
	total := len(t.clients)
	t.clientsMu.Unlock()

	c.conn.Close()
	if ok {
		applog.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

// handleBroadcasts writes queued frames to all connected clients.
func (t *WebSocketTransport) handleBroadcasts() {
	defer t.wg.Done()

	for {
		select {
		case <-t.done:
			return
		case data := <-t.broadcast:
			t.clientsMu.Lock()
			clients := make([]*wsClient, 0, len(t.clients))
			for c := range t.clients {
				clients = append(clients, c)
			}
			t.clientsMu.Unlock()

			for _, c := range clients {
				if err := c.write(websocket.TextMessage, data); err != nil {
					applog.Debugf("WebSocketTransport: Error sending to client: %v", err)
					t.removeClient(c)
				}
			}
		}
	}
}

// Send queues data as JSON for all clients.
func (t *WebSocketTransport) Send(data any) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}

	t.sendMu.Lock()
	now := time.Now()
	if now.Sub(t.lastSend) < t.minInterval {
		t.sendMu.Unlock()
		return nil // Skip this update
	}
	t.lastSend = now
	t.sendMu.Unlock()

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	select {
	case t.broadcast <- payload:
	default:
		// Queue full, drop the frame.
	}
	return nil
}

// Close shuts down the server and disconnects every client. It is idempotent.
func (t *WebSocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		applog.Infof("WebSocketTransport: Closing server")
		close(t.done)
		err = t.server.Close()

		t.clientsMu.Lock()
		clients := make([]*wsClient, 0, len(t.clients))
		for c := range t.clients {
			clients = append(clients, c)
		}
		t.clientsMu.Unlock()
		for _, c := range clients {
			t.removeClient(c)
		}

		t.wg.Wait()
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
