package ipc

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/homewiseai/hwprobe/internal/command"
	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// WSServer serves the command boundary on a websocket endpoint plus a
// liveness route.
type WSServer struct {
	dispatcher Dispatcher
	addr       string
	logger     logging.Logger
	upgrader   websocket.Upgrader
}

// NewWSServer creates a websocket server for addr. Only local origins are
// accepted.
func NewWSServer(d Dispatcher, addr string, logger logging.Logger) *WSServer {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &WSServer{dispatcher: d, addr: addr, logger: logger}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if !isLocalOrigin(origin) {
				logger.Warn("websocket origin rejected", "origin", origin)
				return false
			}
			return true
		},
	}
	return s
}

// Handler returns the HTTP routes of the server.
func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(constants.IPCPath, s.serveWS)
	mux.HandleFunc(constants.HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *WSServer) ListenAndServe(ctx context.Context) error {
	const op = "ipc.ListenAndServe"

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrap(errors.System, "listen on "+s.addr, err).WithOp(op)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *WSServer) Serve(ctx context.Context, ln net.Listener) error {
	const op = "ipc.Serve"

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("websocket transport listening", "addr", ln.Addr().String(), "path", constants.IPCPath)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return errors.Wrap(errors.System, "websocket server failed", err).WithOp(op)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		s.logger.Info("websocket transport stopping")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(errors.System, "websocket shutdown", err).WithOp(op)
		}
		return nil
	}
}

func (s *WSServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		server: s,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: s.logger.WithFields("remote", r.RemoteAddr),
	}
	c.logger.Info("websocket client connected")

	go c.writePump()
	c.readPump(r.Context())
}

// wsClient is one connection. readPump owns reads and writePump owns
// writes; send is closed once every in-flight request has answered.
type wsClient struct {
	server *WSServer
	conn   *websocket.Conn
	send   chan []byte
	logger logging.Logger
}

func (c *wsClient) readPump(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
		close(c.send)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("client disconnected", "error", err)
			} else {
				c.logger.Info("client disconnected")
			}
			return
		}

		var req command.Request
		if err := json.Unmarshal(message, &req); err != nil {
			c.logger.Warn("invalid json message", "error", err)
			c.reply(command.Response{Error: "invalid request: " + err.Error()})
			continue
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			c.reply(c.server.dispatcher.Dispatch(ctx, req))
		}()
	}
}

func (c *wsClient) reply(resp command.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("failed to encode response", "error", err)
		return
	}
	c.send <- data
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("write failed", "error", err)
				c.drain()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.drain()
				return
			}
		}
	}
}

// drain discards replies after a write failure so readPump never blocks.
func (c *wsClient) drain() {
	c.conn.Close()
	go func() {
		for range c.send {
		}
	}()
}

// appScheme is the origin scheme of the desktop shell's webview.
const appScheme = "tauri"

// isLocalOrigin accepts requests without an Origin header (native
// clients), loopback web origins and the app scheme.
func isLocalOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case appScheme:
		return true
	case "http", "https", "ws", "wss":
	default:
		return false
	}
	host := u.Hostname()
	if host == "localhost" || host == "tauri.localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
