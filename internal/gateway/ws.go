package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	wsReadLimit  = 1 << 20
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 25 * time.Second
	wsWriteWait  = 10 * time.Second
)

// WSServer serves the arena protocol over WebSocket at /ws. Clients
// identify themselves with a ?user= query parameter.
type WSServer struct {
	addr     string
	services Services
	logger   *log.Logger
	server   *http.Server
	upgrader websocket.Upgrader
}

// NewWSServer creates a WebSocket gateway bound to the given services.
func NewWSServer(addr string, svc Services) *WSServer {
	logger := svc.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &WSServer{
		addr:     addr,
		services: svc,
		logger:   logger.With("transport", "ws"),
		upgrader: websocket.Upgrader{
			// For dev, allow all origins. Lock this down in prod.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handle)
	s.server = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *WSServer) handle(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		http.Error(w, "user query parameter required", http.StatusBadRequest)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "err", err)
		return
	}

	ws.SetReadLimit(wsReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	conn := newWSConn(ws)
	go conn.pingLoop()

	s.logger.Info("session started", "user", user, "remote", r.RemoteAddr)
	NewBridge(conn, user, s.services).Run()
	s.logger.Info("session ended", "user", user, "remote", r.RemoteAddr)
}

// ListenAndServe starts the HTTP listener and blocks until Shutdown.
func (s *WSServer) ListenAndServe() error {
	s.logger.Info("starting WebSocket gateway", "address", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *WSServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *WSServer) Addr() string {
	return s.addr
}

// wsConn adapts a websocket connection to the bridge's framing. A
// single mutex serializes protocol writes with the ping loop, which
// gorilla requires.
type wsConn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws, done: make(chan struct{})}
}

// Read returns the next well-formed command. Frames that do not parse
// are skipped rather than ending the connection.
func (c *wsConn) Read() (ClientMessage, error) {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return ClientMessage{}, err
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(wsPongWait))

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		return msg, nil
	}
}

func (c *wsConn) Write(msg ServerMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.ws.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

func (c *wsConn) pingLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

var _ Conn = (*wsConn)(nil)
