// Package transport carries newline-delimited lines over byte streams.
//
// The server core only sees Conn and Listener; TCP and WebSocket are two
// implementations of the same line contract.
package transport

import (
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
	"time"
)

// MaxLineLength bounds a single line (64 KiB).
const MaxLineLength = 64 * 1024

var (
	// ErrLineTooLong is returned when a peer sends more than MaxLineLength
	// bytes without a newline.
	ErrLineTooLong = errors.New("transport: line too long")
	// ErrClosed is returned by operations on a closed Conn or Listener.
	ErrClosed = errors.New("transport: closed")
)

// Conn is a bidirectional line channel. ReadLine returns lines without their
// terminator. WriteLine must not be called concurrently with itself.
type Conn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	SetReadDeadline(t time.Time) error
	RemoteAddr() string
	Close() error
}

// Listener yields Conns.
type Listener interface {
	Accept() (Conn, error)
	Addr() string
	Close() error
}

// IsClosed reports whether err means the peer is gone or the handle was
// closed, as opposed to a malformed frame.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "broken pipe")
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
