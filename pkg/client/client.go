// Package client implements the quizline client networking.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/NicolasHaas/quizline/pkg/protocol"
	"github.com/NicolasHaas/quizline/pkg/transport"
)

// Handler is a callback for incoming packages.
type Handler func(p protocol.Package)

// Client is one connection to a quizline server.
type Client struct {
	conn    transport.Conn
	wire    *protocol.Wire
	mu      sync.Mutex
	handler Handler
	done    chan struct{}
}

// Dial connects to the server's TCP listener.
func Dial(ctx context.Context, addr string, wire *protocol.Wire) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: connect: %w", err)
	}
	return New(transport.NewLineConn(conn), wire), nil
}

// New wraps an established line connection.
func New(conn transport.Conn, wire *protocol.Wire) *Client {
	return &Client{
		conn: conn,
		wire: wire,
		done: make(chan struct{}),
	}
}

// SetHandler sets the callback used by StartReceiving.
func (c *Client) SetHandler(h Handler) {
	c.handler = h
}

// Send seals and writes one package.
func (c *Client) Send(p protocol.Package) error {
	line, err := c.wire.Marshal(p)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteLine(line); err != nil {
		return fmt.Errorf("client: send %s: %w", p.Type, err)
	}
	return nil
}

// Login performs the handshake. The server accepts any credentials and does
// not reply.
func (c *Client) Login(username, password string) error {
	return c.Send(protocol.NewAccountInfo(username, password))
}

// Join asks to be placed into a game.
func (c *Client) Join() error { return c.Send(protocol.NewBroadcast("Join")) }

// Start starts the current game; only the owner may.
func (c *Client) Start() error { return c.Send(protocol.NewBroadcast("Start")) }

// Say sends a chat line to every other player.
func (c *Client) Say(text string) error { return c.Send(protocol.NewBroadcast(text)) }

// Choose submits a category, question id or answer.
func (c *Client) Choose(text string) error { return c.Send(protocol.NewGameChoice(text)) }

// Receive reads the next package. Do not mix with StartReceiving.
func (c *Client) Receive() (protocol.Package, error) {
	line, err := c.conn.ReadLine()
	if err != nil {
		return protocol.Package{}, err
	}
	return c.wire.Unmarshal(line)
}

// StartReceiving starts a goroutine that reads incoming packages and
// dispatches them to the handler. Undecodable lines are logged and skipped.
func (c *Client) StartReceiving() {
	go func() {
		defer close(c.done)
		for {
			line, err := c.conn.ReadLine()
			if err != nil {
				if transport.IsClosed(err) {
					slog.Debug("connection closed")
					return
				}
				slog.Error("read error", "err", err)
				return
			}
			p, err := c.wire.Unmarshal(line)
			if err != nil {
				slog.Warn("dropping undecodable line", "err", err)
				continue
			}
			if c.handler != nil {
				c.handler(p)
			}
		}
	}()
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Done returns a channel that's closed when the connection is lost.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
