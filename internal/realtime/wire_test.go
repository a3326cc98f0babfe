package realtime

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

var decodeNow = time.UnixMilli(1700000000000)

func TestDecodeIncoming(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Incoming
	}{
		{
			"numeric ts",
			`{"event":"message","data":{"id":"m1","from":"u2","to":"u1","content":"hey","ts":1700000001000}}`,
			Incoming{ID: "m1", From: "u2", To: "u1", Content: "hey", TS: 1700000001000},
		},
		{
			"rfc3339 ts",
			`{"event":"message","data":{"id":"m2","from":"u2","to":"u1","content":"yo","ts":"2023-11-14T22:13:21Z"}}`,
			Incoming{ID: "m2", From: "u2", To: "u1", Content: "yo", TS: 1700000001000},
		},
		{
			"missing id and ts",
			`{"event":"message","data":{"from":"u2","to":"u1","content":"x"}}`,
			Incoming{ID: "r1700000000000", From: "u2", To: "u1", Content: "x", TS: 1700000000000},
		},
		{
			"numeric id",
			`{"event":"message","data":{"id":77,"from":"u2","to":"u1","content":"x","ts":5}}`,
			Incoming{ID: "77", From: "u2", To: "u1", Content: "x", TS: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.in), decodeNow)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Decode = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeAck(t *testing.T) {
	got, err := Decode([]byte(`{"event":"message:sent","data":{"tempId":"t1000-5","serverId":"m42","ts":1005}}`), decodeNow)
	if err != nil {
		t.Fatal(err)
	}
	want := Ack{TempID: "t1000-5", ServerID: "m42", TS: 1005}
	if got != want {
		t.Errorf("Decode = %+v, want %+v", got, want)
	}

	got, err = Decode([]byte(`{"event":"message:sent","data":{"tempId":"t1-1"}}`), decodeNow)
	if err != nil {
		t.Fatal(err)
	}
	if ack := got.(Ack); ack.ServerID != "" || ack.TS != 0 {
		t.Errorf("expected empty server id and ts, got %+v", ack)
	}
}

func TestDecodeError(t *testing.T) {
	for _, in := range []string{
		`{"event":"error","data":"invalid_token"}`,
		`{"event":"error","data":{"message":"invalid_token"}}`,
		`{"event":"error","data":{"error":"invalid_token"}}`,
	} {
		got, err := Decode([]byte(in), decodeNow)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if se, ok := got.(ServerError); !ok || se.Message != "invalid_token" {
			t.Errorf("%s: got %#v", in, got)
		}
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"not json", `nope`, ErrMalformed},
		{"no event", `{"data":{}}`, ErrMalformed},
		{"unknown event", `{"event":"typing","data":{}}`, ErrUnknownEvent},
		{"message without from", `{"event":"message","data":{"to":"u1","content":"x"}}`, ErrMalformed},
		{"message bad ts", `{"event":"message","data":{"from":"a","to":"b","ts":"yesterday"}}`, ErrMalformed},
		{"ack without temp id", `{"event":"message:sent","data":{"serverId":"m1"}}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.in), decodeNow)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEncodeOutgoing(t *testing.T) {
	b, err := Encode(EventMessage, Outgoing{To: "u2", Content: "hi", TempID: "t1-2"})
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	data := got["data"].(map[string]any)
	if got["event"] != "message" || data["to"] != "u2" || data["content"] != "hi" || data["tempId"] != "t1-2" {
		t.Errorf("unexpected frame %s", b)
	}
}

func TestIsAuthFailure(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"missing_token", true},
		{"Invalid_Token", true},
		{"jwt expired", true},
		{"Unauthorized", true},
		{"connection refused", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsAuthFailure(tt.msg); got != tt.want {
			t.Errorf("IsAuthFailure(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}
