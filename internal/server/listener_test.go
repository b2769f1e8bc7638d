package server

import (
	"net"
	"testing"

	"skirmish/pkg/protocol"
)

func TestListenRejectsUnknownProto(t *testing.T) {
	if _, err := Listen("quic", "127.0.0.1:0"); err == nil {
		t.Fatal("quic accepted")
	}
}

func TestListenTCPDeliversFramedTransport(t *testing.T) {
	ln, err := Listen("", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	if ln.Proto() != "tcp" {
		t.Fatalf("Proto = %q", ln.Proto())
	}

	go func() {
		conn, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			return
		}
		defer conn.Close()
		_ = protocol.WriteFrame(conn, []byte("hello"))
	}()

	tr, err := ln.Accept()
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()
	if _, ok := tr.Codec().(protocol.BinaryCodec); !ok {
		t.Fatalf("codec = %T, want BinaryCodec", tr.Codec())
	}
	data, err := tr.ReadPacket()
	if err != nil || string(data) != "hello" {
		t.Fatalf("ReadPacket = %q, %v", data, err)
	}
}
