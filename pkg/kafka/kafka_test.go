package kafka

import (
	"context"
	"testing"
)

func TestEncode(t *testing.T) {
	msgs, err := encode([]Event{
		{Key: "@", Value: map[string]any{"command": "@ E14 5"}},
		{Key: "C", Value: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if string(msgs[0].Key) != "@" || string(msgs[0].Value) != `{"command":"@ E14 5"}` {
		t.Errorf("msgs[0] = %s %s", msgs[0].Key, msgs[0].Value)
	}
	if string(msgs[1].Value) != "2" {
		t.Errorf("msgs[1].Value = %s", msgs[1].Value)
	}
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	if _, err := encode([]Event{{Key: "bad", Value: make(chan int)}}); err == nil {
		t.Error("encode(chan) = nil error")
	}
}

func TestDecodeJSON(t *testing.T) {
	type command struct {
		Command string `json:"command"`
	}
	got, err := DecodeJSON[command]([]byte(`{"command":"P 3 -c"}`))
	if err != nil || got.Command != "P 3 -c" {
		t.Errorf("DecodeJSON() = %+v, %v", got, err)
	}
	if _, err := DecodeJSON[command]([]byte("{")); err == nil {
		t.Error("DecodeJSON(truncated) = nil error")
	}
}

func TestPingWithoutBrokers(t *testing.T) {
	if err := Ping(context.Background(), nil); err == nil {
		t.Error("Ping(nil) = nil error")
	}
}
