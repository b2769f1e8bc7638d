package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"skirmish/pkg/core"

	"google.golang.org/protobuf/encoding/protowire"
)

func sampleSnapshot() *SnapshotMsg {
	return &SnapshotMsg{Snapshot: core.Snapshot{
		Tick: 42,
		Players: map[string]core.PlayerState{
			"a": {ID: "a", X: 6, Y: 0, Rotation: 1.5, Color: "#ff0000"},
			"b": {ID: "b", X: 300, Y: 200, Color: "#00ff00"},
		},
		ProcessedInputs: map[string][]uint64{"a": {0, 1}},
	}}
}

func TestCodecsPreserveSnapshot(t *testing.T) {
	codecs := map[string]Codec{"json": JSONCodec{}, "binary": BinaryCodec{}}

	for name, codec := range codecs {
		t.Run(name, func(t *testing.T) {
			data, err := codec.Marshal(sampleSnapshot())
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			msg, err := codec.Unmarshal(data)
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			snap, ok := msg.(*SnapshotMsg)
			if !ok {
				t.Fatalf("decoded %T, want *SnapshotMsg", msg)
			}
			if snap.Snapshot.Tick != 42 {
				t.Fatalf("Tick = %d, want 42", snap.Snapshot.Tick)
			}
			if seq, ok := snap.Snapshot.LastProcessed("a"); !ok || seq != 1 {
				t.Fatalf("LastProcessed(a) = %d, %v", seq, ok)
			}
			if got := snap.Snapshot.Players["b"]; got.X != 300 || got.Color != "#00ff00" {
				t.Fatalf("player b = %+v", got)
			}
		})
	}
}

func TestCodecsPreserveInput(t *testing.T) {
	in := &InputMsg{ClientID: "a", Input: core.Input{
		Seq: 7, Kind: core.InputMove, VX: 2.8284, VY: -2.8284, HeadingDeg: -45, SentAtX: 10, SentAtY: 20, Timestamp: 1700000000000,
	}}
	for _, codec := range []Codec{JSONCodec{}, BinaryCodec{}} {
		data, err := codec.Marshal(in)
		if err != nil {
			t.Fatalf("%T Marshal: %v", codec, err)
		}
		msg, err := codec.Unmarshal(data)
		if err != nil {
			t.Fatalf("%T Unmarshal: %v", codec, err)
		}
		got, ok := msg.(*InputMsg)
		if !ok || got.Input != in.Input || got.ClientID != "a" {
			t.Fatalf("%T decoded %+v", codec, msg)
		}
	}
}

func TestJSONEnvelopeShape(t *testing.T) {
	data, err := JSONCodec{}.Marshal(&PlayerLeft{ID: "x"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if env.T != MsgPlayerLeft {
		t.Fatalf("T = %q, want %q", env.T, MsgPlayerLeft)
	}
}

func TestJSONPingWithoutPayload(t *testing.T) {
	msg, err := JSONCodec{}.Unmarshal([]byte(`{"t":"ping"}`))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := msg.(*Ping); !ok {
		t.Fatalf("decoded %T, want *Ping", msg)
	}
}

func TestUnknownMessageType(t *testing.T) {
	if _, err := (JSONCodec{}).Unmarshal([]byte(`{"t":"player:moved","p":{}}`)); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("json err = %v, want ErrUnknownMessage", err)
	}

	b := protowire.AppendTag(nil, packetFieldType, protowire.BytesType)
	b = protowire.AppendString(b, "shoot")
	if _, err := (BinaryCodec{}).Unmarshal(b); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("binary err = %v, want ErrUnknownMessage", err)
	}
}

func TestBinarySkipsUnknownFields(t *testing.T) {
	data, err := BinaryCodec{}.Marshal(&PlayerLeft{ID: "gone"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	data = protowire.AppendTag(data, 15, protowire.VarintType)
	data = protowire.AppendVarint(data, 99)

	msg, err := BinaryCodec{}.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if left, ok := msg.(*PlayerLeft); !ok || left.ID != "gone" {
		t.Fatalf("decoded %+v", msg)
	}
}

func TestBinaryTruncated(t *testing.T) {
	data, _ := BinaryCodec{}.Marshal(&PlayerJoin{Username: "alice"})
	if _, err := (BinaryCodec{}).Unmarshal(data[:len(data)-3]); err == nil {
		t.Fatalf("expected error for truncated packet")
	}
}

func TestEmptyAndNil(t *testing.T) {
	for _, codec := range []Codec{JSONCodec{}, BinaryCodec{}} {
		if _, err := codec.Unmarshal(nil); !errors.Is(err, ErrEmptyPacket) {
			t.Fatalf("%T: err = %v, want ErrEmptyPacket", codec, err)
		}
		if _, err := codec.Marshal(nil); !errors.Is(err, ErrNilMessage) {
			t.Fatalf("%T: err = %v, want ErrNilMessage", codec, err)
		}
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	for _, payload := range [][]byte{[]byte("hello"), {}, []byte("world")} {
		if err := WriteFrame(&buf, payload); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	for _, want := range []string{"hello", "", "world"} {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if string(got) != want {
			t.Fatalf("ReadFrame = %q, want %q", got, want)
		}
	}
}

func TestFrameTooLarge(t *testing.T) {
	if err := WriteFrame(&bytes.Buffer{}, make([]byte, MaxPacketSize+1)); !errors.Is(err, ErrPacketTooLarge) {
		t.Fatalf("WriteFrame err = %v", err)
	}
	header := []byte{0xff, 0xff, 0xff, 0xff}
	if _, err := ReadFrame(bytes.NewReader(header)); !errors.Is(err, ErrPacketTooLarge) {
		t.Fatalf("ReadFrame err = %v", err)
	}
}
