package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsConn maps one text frame to one line.
type wsConn struct {
	ws     *websocket.Conn
	remote string

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewWSConn adapts an upgraded WebSocket connection to Conn.
func NewWSConn(ws *websocket.Conn) Conn {
	ws.SetReadLimit(MaxLineLength)
	remote := ""
	if addr := ws.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	return &wsConn{ws: ws, remote: remote}
}

func (c *wsConn) ReadLine() (string, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				return "", ErrLineTooLong
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", fmt.Errorf("%w: %v", ErrClosed, err)
			}
			return "", err
		}
		if kind != websocket.TextMessage {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (c *wsConn) WriteLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		return fmt.Errorf("transport: ws write: %w", err)
	}
	return nil
}

func (c *wsConn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

func (c *wsConn) RemoteAddr() string { return c.remote }

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

// WSListener accepts WebSocket upgrades on one path and hands them out as
// Conns through Accept.
type WSListener struct {
	ln    net.Listener
	srv   *http.Server
	conns chan Conn

	done      chan struct{}
	closeOnce sync.Once
}

// ListenWS starts an HTTP server on addr that upgrades requests to path.
func ListenWS(addr, path string) (*WSListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen ws %s: %w", addr, err)
	}
	if path == "" {
		path = "/"
	}
	l := &WSListener{
		ln:    ln,
		conns: make(chan Conn),
		done:  make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.Handle(path, httpUpgradeFunc(l.offer))
	l.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("websocket listener stopped", "addr", addr, "err", err)
		}
	}()
	return l, nil
}

// offer blocks until Accept takes conn or the listener closes.
func (l *WSListener) offer(conn Conn) {
	select {
	case l.conns <- conn:
	case <-l.done:
		_ = conn.Close()
	}
}

func (l *WSListener) Accept() (Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, ErrClosed
	}
}

func (l *WSListener) Addr() string { return l.ln.Addr().String() }

func (l *WSListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		err = l.srv.Close()
	})
	return err
}

// httpUpgradeFunc upgrades every request and passes the Conn to fn.
type httpUpgradeFunc func(Conn)

func (fn httpUpgradeFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	fn(NewWSConn(ws))
}
