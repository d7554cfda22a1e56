package client

import (
	"net"
	"testing"
	"time"

	"github.com/NicolasHaas/quizline/pkg/crypto"
	"github.com/NicolasHaas/quizline/pkg/protocol"
	pb "github.com/NicolasHaas/quizline/pkg/protocol/pb"
	"github.com/NicolasHaas/quizline/pkg/transport"
)

func newPair(t *testing.T) (*Client, transport.Conn, *protocol.Wire) {
	t.Helper()
	codec, err := crypto.NewCodec(crypto.DefaultPassphrase, crypto.SuiteAESCBC)
	if err != nil {
		t.Fatal(err)
	}
	wire := protocol.NewWire(codec)
	a, b := net.Pipe()
	c := New(transport.NewLineConn(a), wire)
	peer := transport.NewLineConn(b)
	t.Cleanup(func() {
		_ = c.Close()
		_ = peer.Close()
	})
	return c, peer, wire
}

func TestCommandsProducePackages(t *testing.T) {
	c, peer, wire := newPair(t)

	tests := []struct {
		send     func() error
		wantType pb.Type
		wantText string
	}{
		{func() error { return c.Join() }, pb.TypeBroadcast, "Join"},
		{func() error { return c.Start() }, pb.TypeBroadcast, "Start"},
		{func() error { return c.Say("hello") }, pb.TypeBroadcast, "hello"},
		{func() error { return c.Choose("Science") }, pb.TypeGameChoice, "Science"},
	}
	for _, tt := range tests {
		errc := make(chan error, 1)
		go func() { errc <- tt.send() }()
		line, err := peer.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if err := <-errc; err != nil {
			t.Fatalf("send: %v", err)
		}
		p, err := wire.Unmarshal(line)
		if err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if p.Type != tt.wantType || p.Text() != tt.wantText {
			t.Errorf("got %s %q, want %s %q", p.Type, p.Text(), tt.wantType, tt.wantText)
		}
	}
}

func TestLoginSendsAccountInfo(t *testing.T) {
	c, peer, wire := newPair(t)
	go func() { _ = c.Login("alice", "x") }()

	line, err := peer.ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	p, err := wire.Unmarshal(line)
	if err != nil {
		t.Fatal(err)
	}
	info, ok := p.Data.(pb.AccountInfo)
	if !ok || info.AccountInfo.Username != "alice" || info.AccountInfo.Password != "x" {
		t.Errorf("unexpected package %v", p)
	}
}

func TestStartReceivingDispatchesAndSkipsGarbage(t *testing.T) {
	c, peer, wire := newPair(t)
	got := make(chan protocol.Package, 4)
	c.SetHandler(func(p protocol.Package) { got <- p })
	c.StartReceiving()

	line, err := wire.Marshal(protocol.NewGameMessage("You picked Arts"))
	if err != nil {
		t.Fatal(err)
	}
	if err := peer.WriteLine("garbage"); err != nil {
		t.Fatal(err)
	}
	if err := peer.WriteLine(line); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-got:
		if p.Text() != "You picked Arts" {
			t.Errorf("handler got %v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}

	_ = peer.Close()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after peer hung up")
	}
}
