package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"skirmish/pkg/core"
	"skirmish/pkg/protocol"

	kcp "github.com/xtaci/kcp-go/v5"
	"go.uber.org/zap/zaptest"
)

func TestConnectErrorIs(t *testing.T) {
	err := error(&ConnectError{Addr: "x:1", Proto: "tcp", Err: ErrJoinTimeout})
	if !errors.Is(err, ErrConnect) || !errors.Is(err, ErrJoinTimeout) {
		t.Fatalf("errors.Is failed for %v", err)
	}
	var ce *ConnectError
	if !errors.As(err, &ce) || ce.Addr != "x:1" {
		t.Fatalf("errors.As failed: %v", err)
	}
}

func TestNetworkClientConnectFailure(t *testing.T) {
	tests := []struct {
		name  string
		addr  string
		proto string
	}{
		{"empty address", "", "tcp"},
		{"unsupported proto", "127.0.0.1:1", "carrier-pigeon"},
		{"refused", "127.0.0.1:1", "tcp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nc := NewNetworkClient(tt.addr, tt.proto, zaptest.NewLogger(t).Sugar())
			err := nc.Connect(context.Background())
			if !errors.Is(err, ErrConnect) {
				t.Fatalf("err = %v, want ErrConnect", err)
			}
			if err := nc.Send(&protocol.Ping{}); !errors.Is(err, ErrNotConnected) {
				t.Fatalf("send err = %v", err)
			}
		})
	}
}

func TestNetworkClientTCPRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	codec := protocol.BinaryCodec{}
	serverErr := make(chan error, 1)
	release := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverErr <- err
			return
		}
		defer conn.Close()

		data, err := protocol.ReadFrame(conn)
		if err != nil {
			serverErr <- err
			return
		}
		msg, err := codec.Unmarshal(data)
		if err != nil {
			serverErr <- err
			return
		}
		join, ok := msg.(*protocol.PlayerJoin)
		if !ok {
			serverErr <- errors.New("expected player:join")
			return
		}
		reply, _ := codec.Marshal(&protocol.GameInit{
			Self: core.PlayerState{ID: join.Username, X: 10, Y: 20},
		})
		serverErr <- protocol.WriteFrame(conn, reply)
		<-release
	}()

	nc := NewNetworkClient(ln.Addr().String(), "tcp", zaptest.NewLogger(t).Sugar())
	if err := nc.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer nc.Close()

	s := NewSession(nc, Options{Username: "alice"})
	if err := Join(context.Background(), s, nc, 2*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := <-serverErr; err != nil {
		t.Fatal(err)
	}
	if s.SelfID() != "alice" || s.Local().X != 10 {
		t.Fatalf("self=%q local=%+v", s.SelfID(), s.Local())
	}

	// 服务端关闭连接后 Done 关闭并带有原因
	close(release)
	select {
	case <-nc.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("done not closed after server hung up")
	}
	if nc.Err() == nil {
		t.Fatal("expected a disconnect cause")
	}
}

func TestWSURL(t *testing.T) {
	if got := wsURL("localhost:8080"); got != "ws://localhost:8080/ws" {
		t.Fatalf("got %q", got)
	}
	if got := wsURL("wss://example.com/ws"); got != "wss://example.com/ws" {
		t.Fatalf("got %q", got)
	}
}

func TestDeliverDropsOnlySnapshotsWhenFull(t *testing.T) {
	nc := NewNetworkClient("127.0.0.1:1", "tcp", zaptest.NewLogger(t).Sugar())
	for i := 0; i < InboxSize; i++ {
		if !nc.deliver(&protocol.Ping{ClientTime: int64(i)}) {
			t.Fatal("deliver failed on open client")
		}
	}

	if !nc.deliver(&protocol.SnapshotMsg{}) {
		t.Fatal("snapshot delivery reported closed client")
	}
	if len(nc.inbox) != InboxSize {
		t.Fatalf("inbox len = %d", len(nc.inbox))
	}

	delivered := make(chan bool, 1)
	go func() { delivered <- nc.deliver(&protocol.PlayerLeft{ID: "bob"}) }()
	select {
	case <-delivered:
		t.Fatal("player:left dropped or overtook a full inbox")
	case <-time.After(50 * time.Millisecond):
	}

	<-nc.inbox
	select {
	case ok := <-delivered:
		if !ok {
			t.Fatal("player:left not delivered")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("player:left still blocked after the inbox drained")
	}

	var last protocol.Message
	for len(nc.inbox) > 0 {
		last = <-nc.inbox
	}
	if left, ok := last.(*protocol.PlayerLeft); !ok || left.ID != "bob" {
		t.Fatalf("last message = %+v", last)
	}
}

func TestDeliverUnblocksOnClose(t *testing.T) {
	nc := NewNetworkClient("127.0.0.1:1", "tcp", zaptest.NewLogger(t).Sugar())
	for i := 0; i < InboxSize; i++ {
		nc.deliver(&protocol.Ping{})
	}

	delivered := make(chan bool, 1)
	go func() { delivered <- nc.deliver(&protocol.GameInit{}) }()
	time.Sleep(20 * time.Millisecond)
	nc.Close()

	select {
	case ok := <-delivered:
		if ok {
			t.Fatal("deliver reported success after close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("deliver still blocked after close")
	}
}

func TestDialKCP(t *testing.T) {
	ln, err := kcp.ListenWithOptions("127.0.0.1:0", nil, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	sess, err := dialKCP(context.Background(), ln.Addr().String())
	if err != nil {
		t.Fatalf("dialKCP: %v", err)
	}
	_ = sess.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sess, err = dialKCP(ctx, ln.Addr().String())
	switch {
	case err == nil:
		// 拨号先于取消完成
		_ = sess.Close()
	case !errors.Is(err, context.Canceled):
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
