package transport

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"skirmish/pkg/protocol"

	"github.com/gorilla/websocket"
)

func TestStreamPacketBoundaries(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	sa, sb := NewStream(a), NewStream(b)
	go func() {
		_ = sa.WritePacket([]byte("first"))
		_ = sa.WritePacket([]byte("second packet"))
	}()

	for _, want := range []string{"first", "second packet"} {
		got, err := sb.ReadPacket()
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
	if _, ok := sb.Codec().(protocol.BinaryCodec); !ok {
		t.Fatal("stream should use the binary codec")
	}
}

func TestWSRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		tr := NewWS(conn)
		defer tr.Close()
		data, err := tr.ReadPacket()
		if err != nil {
			return
		}
		_ = tr.WritePacket(append([]byte("echo:"), data...))
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	tr := NewWS(conn)
	defer tr.Close()

	if err := tr.WritePacket([]byte(`{"t":"ping"}`)); err != nil {
		t.Fatal(err)
	}
	got, err := tr.ReadPacket()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `echo:{"t":"ping"}` {
		t.Fatalf("got %q", got)
	}
	if _, ok := tr.Codec().(protocol.JSONCodec); !ok {
		t.Fatal("websocket should use the JSON codec")
	}
}
