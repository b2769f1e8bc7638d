package server

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"skirmish/internal/transport"
	"skirmish/pkg/core"
	"skirmish/pkg/protocol"

	"go.uber.org/zap/zaptest"
)

type recordingHandler struct {
	mu     sync.Mutex
	inputs []InputEvent
	pings  []int64
	bad    int
	left   chan string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{left: make(chan string, 1)}
}

func (h *recordingHandler) OnJoin(sess Session, ev JoinEvent) error {
	sess.SetPlayerID("p-" + ev.Username)
	return sess.Send(&protocol.GameInit{Self: core.PlayerState{ID: sess.ID()}, TickRate: 60})
}

func (h *recordingHandler) OnInput(ev InputEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inputs = append(h.inputs, ev)
}

func (h *recordingHandler) OnPing(sess Session, ev PingEvent) {
	h.mu.Lock()
	h.pings = append(h.pings, ev.ClientTime)
	h.mu.Unlock()
	_ = sess.Send(&protocol.Pong{ClientTime: ev.ClientTime})
}

func (h *recordingHandler) OnLeave(id string) { h.left <- id }

func (h *recordingHandler) OnBadPacket(error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bad++
}

func (h *recordingHandler) counts() (inputs, pings, bad int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.inputs), len(h.pings), h.bad
}

// startConnection 返回客户端一侧的 Transport
func startConnection(t *testing.T, parent context.Context, h EventHandler) (transport.Transport, *Connection, *sync.WaitGroup) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	conn := NewConnection(parent, transport.NewStream(serverSide), h, zaptest.NewLogger(t).Sugar())
	var wg sync.WaitGroup
	wg.Add(1)
	go conn.Serve(&wg)
	return transport.NewStream(clientSide), conn, &wg
}

func send(t *testing.T, tr transport.Transport, msg protocol.Message) {
	t.Helper()
	data, err := tr.Codec().Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.WritePacket(data); err != nil {
		t.Fatal(err)
	}
}

func receive(t *testing.T, tr transport.Transport) protocol.Message {
	t.Helper()
	_ = tr.SetReadDeadline(time.Now().Add(2 * time.Second))
	data, err := tr.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	msg, err := tr.Codec().Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestConnectionDispatchesAndNotifiesLeave(t *testing.T) {
	h := newRecordingHandler()
	client, conn, wg := startConnection(t, t.Context(), h)

	// 加入前的输入被拒绝
	send(t, client, &protocol.InputMsg{Input: core.Input{Seq: 0, Kind: core.InputMove}})

	send(t, client, &protocol.PlayerJoin{Username: "alice"})
	gi, ok := receive(t, client).(*protocol.GameInit)
	if !ok || gi.Self.ID != "p-alice" {
		t.Fatalf("game:init = %+v", gi)
	}

	// 客户端自报的 id 被连接身份覆盖
	send(t, client, &protocol.InputMsg{ClientID: "mallory", Input: core.Input{Seq: 1, Kind: core.InputMove}})
	send(t, client, &protocol.Ping{ClientTime: 7})
	if pong, ok := receive(t, client).(*protocol.Pong); !ok || pong.ClientTime != 7 {
		t.Fatalf("pong = %+v", pong)
	}
	send(t, client, &protocol.PlayerJoin{Username: "again"})
	send(t, client, &protocol.Pong{})

	_ = client.Close()
	select {
	case id := <-h.left:
		if id != "p-alice" {
			t.Fatalf("left = %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnLeave not called")
	}
	wg.Wait()

	inputs, pings, bad := h.counts()
	if inputs != 1 || pings != 1 || bad != 3 {
		t.Fatalf("inputs=%d pings=%d bad=%d", inputs, pings, bad)
	}
	if h.inputs[0].PlayerID != "p-alice" {
		t.Fatalf("input bound to %q", h.inputs[0].PlayerID)
	}
	if err := conn.Send(&protocol.Pong{}); err != ErrConnectionClosed {
		t.Fatalf("Send after close = %v", err)
	}
}

func TestConnectionServerShutdownSkipsLeave(t *testing.T) {
	h := newRecordingHandler()
	parent, cancel := context.WithCancel(t.Context())
	client, _, wg := startConnection(t, parent, h)
	defer client.Close()

	send(t, client, &protocol.PlayerJoin{Username: "bob"})
	receive(t, client)

	cancel()
	wg.Wait()
	select {
	case id := <-h.left:
		t.Fatalf("OnLeave(%q) during shutdown", id)
	default:
	}
}

func TestConnectionCloseWithoutNotify(t *testing.T) {
	h := newRecordingHandler()
	client, conn, wg := startConnection(t, t.Context(), h)
	defer client.Close()

	send(t, client, &protocol.PlayerJoin{Username: "carol"})
	receive(t, client)

	conn.CloseWithoutNotify()
	wg.Wait()
	select {
	case id := <-h.left:
		t.Fatalf("OnLeave(%q) after CloseWithoutNotify", id)
	default:
	}
}
