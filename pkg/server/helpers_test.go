package server

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NicolasHaas/quizline/pkg/content"
	"github.com/NicolasHaas/quizline/pkg/crypto"
	"github.com/NicolasHaas/quizline/pkg/protocol"
	pb "github.com/NicolasHaas/quizline/pkg/protocol/pb"
	"github.com/NicolasHaas/quizline/pkg/transport"
)

const waitTimeout = 3 * time.Second

// recordConn is an in-memory transport.Conn that keeps every written line.
type recordConn struct {
	lines  chan string
	closed chan struct{}
	once   sync.Once
}

func newRecordConn() *recordConn {
	return &recordConn{
		lines:  make(chan string, 512),
		closed: make(chan struct{}),
	}
}

func (c *recordConn) ReadLine() (string, error) {
	<-c.closed
	return "", transport.ErrClosed
}

func (c *recordConn) WriteLine(line string) error {
	select {
	case <-c.closed:
		return transport.ErrClosed
	default:
	}
	select {
	case c.lines <- line:
		return nil
	case <-c.closed:
		return transport.ErrClosed
	}
}

func (c *recordConn) SetReadDeadline(time.Time) error { return nil }
func (c *recordConn) RemoteAddr() string              { return "pipe" }
func (c *recordConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

var _ transport.Conn = (*recordConn)(nil)

func testWire(t *testing.T) *protocol.Wire {
	t.Helper()
	codec, err := crypto.NewCodec(crypto.DefaultPassphrase, crypto.SuiteAESCBC)
	if err != nil {
		t.Fatal(err)
	}
	return protocol.NewWire(codec)
}

func testFanout(t *testing.T) *fanout {
	return &fanout{
		wire:    testWire(t),
		metrics: NewMetrics(),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testSeed() content.Seed {
	return content.NewSeed(content.DefaultQuestions(), nil)
}

// player is a session backed by a recordConn plus a decoder for its output.
type player struct {
	*Session
	conn *recordConn
	wire *protocol.Wire
}

func newPlayer(t *testing.T, wire *protocol.Wire, name string) *player {
	t.Helper()
	conn := newRecordConn()
	s := newSession(conn)
	if !s.promote(name, "pw") {
		t.Fatalf("promote %s failed", name)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &player{Session: s, conn: conn, wire: wire}
}

// expect reads packages until one of type typ contains text, skipping others.
func (p *player) expect(t *testing.T, typ pb.Type, text string) protocol.Package {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case line := <-p.conn.lines:
			pkg, err := p.wire.Unmarshal(line)
			if err != nil {
				t.Fatalf("%s: undecodable line: %v", p.Username(), err)
			}
			if pkg.Type == typ && strings.Contains(pkg.Text(), text) {
				return pkg
			}
		case <-deadline:
			t.Fatalf("%s: no %s containing %q within %s", p.Username(), typ, text, waitTimeout)
		}
	}
}

func (p *player) drain() {
	for {
		select {
		case <-p.conn.lines:
		default:
			return
		}
	}
}

func newTestGame(t *testing.T, cfg GameConfig) (*Game, *fanout) {
	t.Helper()
	out := testFanout(t)
	g := newGame("Jeopardy #1", cfg, testSeed(), out, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go g.run(ctx)
	t.Cleanup(func() {
		cancel()
		<-g.Done()
	})
	return g, out
}

func defaultGameConfig() GameConfig {
	return GameConfig{MinPlayers: 1, MaxPlayers: 6, AttemptCap: 12, PollInterval: 20 * time.Millisecond}
}
