package transport

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// DefaultWriteTimeout bounds a single line write on a stream connection.
const DefaultWriteTimeout = 10 * time.Second

type lineConn struct {
	conn         net.Conn
	reader       *bufio.Reader
	writeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// LineOption configures a line connection.
type LineOption func(*lineConn)

// WithWriteTimeout sets the deadline applied to every write. Zero or
// negative disables it.
func WithWriteTimeout(d time.Duration) LineOption {
	return func(c *lineConn) { c.writeTimeout = d }
}

// NewLineConn wraps a stream connection. Lines may end in "\n" or "\r\n".
// Writes time out after DefaultWriteTimeout unless overridden.
func NewLineConn(conn net.Conn, opts ...LineOption) Conn {
	c := &lineConn{
		conn:         conn,
		reader:       bufio.NewReaderSize(conn, 4096),
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *lineConn) ReadLine() (string, error) {
	var sb strings.Builder
	for {
		chunk, isPrefix, err := c.reader.ReadLine()
		if err != nil {
			return "", err
		}
		if sb.Len()+len(chunk) > MaxLineLength {
			return "", ErrLineTooLong
		}
		sb.Write(chunk)
		if !isPrefix {
			return sb.String(), nil
		}
	}
}

func (c *lineConn) WriteLine(line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("transport: line contains a line break")
	}
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("transport: set write deadline: %w", err)
		}
	}
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

func (c *lineConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *lineConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (c *lineConn) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.conn.Close() })
	return c.closeErr
}

type tcpListener struct {
	ln   net.Listener
	opts []LineOption
}

// ListenTCP opens a TCP listener producing line connections configured
// with opts.
func ListenTCP(addr string, opts ...LineOption) (Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	return &tcpListener{ln: ln, opts: opts}, nil
}

func (l *tcpListener) Accept() (Conn, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return NewLineConn(conn, l.opts...), nil
}

func (l *tcpListener) Addr() string { return l.ln.Addr().String() }

func (l *tcpListener) Close() error { return l.ln.Close() }
