package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"skirmish/pkg/core"
	"skirmish/pkg/protocol"

	"go.uber.org/zap/zaptest"
)

// joinServer 接受 n 个连接，记录 player:join 携带的令牌并回复 game:init；
// 每个连接在 kick 关闭后断开
type joinServer struct {
	ln     net.Listener
	tokens chan string
	kick   chan struct{}
}

func startJoinServer(t *testing.T, n int) *joinServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	js := &joinServer{ln: ln, tokens: make(chan string, n), kick: make(chan struct{})}
	go func() {
		defer ln.Close()
		codec := protocol.BinaryCodec{}
		for i := 0; i < n; i++ {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			data, err := protocol.ReadFrame(conn)
			if err != nil {
				conn.Close()
				return
			}
			msg, _ := codec.Unmarshal(data)
			join, _ := msg.(*protocol.PlayerJoin)
			if join == nil {
				conn.Close()
				return
			}
			js.tokens <- join.Token

			out, _ := codec.Marshal(&protocol.GameInit{
				Self:     core.NewPlayerState("e1", 10, 10, ""),
				Token:    fmt.Sprintf("tok-%d", i+1),
				TickRate: core.TickRate,
			})
			_ = protocol.WriteFrame(conn, out)
			if i == 0 {
				<-js.kick
			}
			conn.Close()
		}
	}()
	return js
}

func (js *joinServer) connector(t *testing.T) *Connector {
	return &Connector{
		Addr:        js.ln.Addr().String(),
		Proto:       "tcp",
		Options:     Options{Username: "alice", Token: "start"},
		JoinTimeout: 2 * time.Second,
		Log:         zaptest.NewLogger(t).Sugar(),
	}
}

func TestRejoinCarriesLatestToken(t *testing.T) {
	js := startJoinServer(t, 2)

	calls := 0
	err := Rejoin(t.Context(), js.connector(t), 3, time.Millisecond,
		func(ctx context.Context, nc *NetworkClient, s *Session) error {
			calls++
			if s.SelfID() != "e1" {
				t.Errorf("self = %q", s.SelfID())
			}
			if calls == 1 {
				close(js.kick)
				<-nc.Done()
				return fmt.Errorf("%w: %w", ErrDisconnected, nc.Err())
			}
			return nil
		})
	if err != nil {
		t.Fatalf("Rejoin: %v", err)
	}
	if calls != 2 {
		t.Fatalf("run called %d times, want 2", calls)
	}
	if first, second := <-js.tokens, <-js.tokens; first != "start" || second != "tok-1" {
		t.Fatalf("join tokens = %q, %q", first, second)
	}
}

func TestRejoinGivesUpAfterRetries(t *testing.T) {
	js := startJoinServer(t, 1)

	calls := 0
	err := Rejoin(t.Context(), js.connector(t), 2, time.Millisecond,
		func(ctx context.Context, nc *NetworkClient, s *Session) error {
			calls++
			close(js.kick)
			<-nc.Done()
			return fmt.Errorf("%w: %w", ErrDisconnected, nc.Err())
		})
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("err = %v, want ErrConnect after retries", err)
	}
	if calls != 1 {
		t.Fatalf("run called %d times", calls)
	}
}

func TestRejoinReturnsOtherErrors(t *testing.T) {
	js := startJoinServer(t, 1)
	defer close(js.kick)

	err := Rejoin(t.Context(), js.connector(t), 3, time.Millisecond,
		func(context.Context, *NetworkClient, *Session) error { return errBroken })
	if !errors.Is(err, errBroken) {
		t.Fatalf("err = %v", err)
	}
}

func TestRejoinFirstConnectFailure(t *testing.T) {
	c := &Connector{Addr: "127.0.0.1:1", Proto: "tcp", Log: zaptest.NewLogger(t).Sugar()}
	err := Rejoin(t.Context(), c, 3, time.Millisecond,
		func(context.Context, *NetworkClient, *Session) error {
			t.Fatal("run called without a connection")
			return nil
		})
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("err = %v", err)
	}
}
