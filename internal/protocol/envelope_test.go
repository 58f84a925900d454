package protocol

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestDecodeRejectsMissingType(t *testing.T) {
	if _, err := Decode([]byte(`{"data":"x"}`)); err == nil {
		t.Fatalf("expected error for missing type")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed frame")
	}
}

func TestDecodeKeepsPayloadBytes(t *testing.T) {
	raw := []byte(`{"type":"webrtc_offer","data":{"toUserId":"b","signal":"SDP-XYZ"}}`)
	env, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != TypeWebRTCOffer {
		t.Fatalf("unexpected type %q", env.Type)
	}
	if !bytes.Equal(env.Data, []byte(`{"toUserId":"b","signal":"SDP-XYZ"}`)) {
		t.Fatalf("payload bytes altered: %s", env.Data)
	}
}

func TestRelayForwardsVerbatim(t *testing.T) {
	data := json.RawMessage(`{"toUserId":"b","signal":"SDP-XYZ"}`)
	env := Relay(TypeICECandidate, data)

	frame, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var round struct {
		Type string `json:"type"`
		Data struct {
			Signal string `json:"signal"`
		} `json:"data"`
	}
	if err := json.Unmarshal(frame, &round); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if round.Data.Signal != "SDP-XYZ" {
		t.Fatalf("signal changed across relay: %q", round.Data.Signal)
	}
}

func TestPongShape(t *testing.T) {
	frame, err := json.Marshal(Pong())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(frame) != `{"type":"pong","data":""}` {
		t.Fatalf("unexpected pong frame: %s", frame)
	}
}

func TestEncodeSingleEncoding(t *testing.T) {
	env, err := EncodeCallStatus("call-1", "ACTIVE")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	frame, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// data must be an object, not a quoted string of an object.
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(frame, &outer); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if outer["data"][0] != '{' {
		t.Fatalf("payload double-encoded: %s", outer["data"])
	}

	var p struct {
		CallID string `json:"callId"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(outer["data"], &p); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if p.CallID != "call-1" || p.Status != "ACTIVE" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestIsSignalRelay(t *testing.T) {
	for _, tag := range []string{TypeWebRTCOffer, TypeWebRTCAnswer, TypeICECandidate, TypeCallEnded} {
		if !IsSignalRelay(tag) {
			t.Fatalf("expected %q to be a relay tag", tag)
		}
	}
	if IsSignalRelay(TypeTyping) {
		t.Fatalf("typing_indicator is not a relay tag")
	}
}
