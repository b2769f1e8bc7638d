package client

import (
	"errors"
	"testing"
	"time"

	"skirmish/pkg/core"
	"skirmish/pkg/protocol"

	"go.uber.org/zap/zaptest"
)

// fakeChannel 记录会话发出的消息
type fakeChannel struct {
	sent []protocol.Message
	err  error
}

func (c *fakeChannel) Send(msg protocol.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeChannel) inputs() []core.Input {
	var out []core.Input
	for _, m := range c.sent {
		if in, ok := m.(*protocol.InputMsg); ok {
			out = append(out, in.Input)
		}
	}
	return out
}

func (c *fakeChannel) count(msgType string) int {
	n := 0
	for _, m := range c.sent {
		if m.Type() == msgType {
			n++
		}
	}
	return n
}

// fakeInbound 可控的入站消息源
type fakeInbound struct {
	inbox chan protocol.Message
	done  chan struct{}
	err   error
}

func newFakeInbound() *fakeInbound {
	return &fakeInbound{
		inbox: make(chan protocol.Message, 16),
		done:  make(chan struct{}),
	}
}

func (f *fakeInbound) Inbox() <-chan protocol.Message { return f.inbox }
func (f *fakeInbound) Done() <-chan struct{} { return f.done }
func (f *fakeInbound) Err() error { return f.err }

func (f *fakeInbound) close(err error) {
	f.err = err
	close(f.done)
}

// fakeClock 手动推进的时钟
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var errBroken = errors.New("broken pipe")

func newTestSession(t *testing.T, ch Channel, speed float64) *Session {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	return NewSession(ch, Options{
		Username:  "tester",
		MoveSpeed: speed,
		Now:       clock.Now,
		Logger:    zaptest.NewLogger(t).Sugar(),
	})
}

// joined 返回已收到 game:init 的会话
func joined(t *testing.T, ch Channel, speed float64, x, y float64, others ...core.PlayerState) *Session {
	t.Helper()
	s := newTestSession(t, ch, speed)
	s.OnGameInit(&protocol.GameInit{
		Self:     core.NewPlayerState("me", x, y, "#ff0000"),
		Players:  others,
		Token:    "tok",
		TickRate: core.TickRate,
	})
	if s.State() != StatePredicting {
		t.Fatalf("state = %v, want predicting", s.State())
	}
	return s
}

var right = Intent{Right: true, PointerX: core.WorldWidth, PointerY: 0}

func snapshot(tick uint64, self core.PlayerState, acks ...uint64) *protocol.SnapshotMsg {
	snap := core.Snapshot{
		Tick:    tick,
		Players: map[string]core.PlayerState{self.ID: self},
	}
	if len(acks) > 0 {
		snap.ProcessedInputs = map[string][]uint64{self.ID: acks}
	}
	return &protocol.SnapshotMsg{Snapshot: snap}
}
