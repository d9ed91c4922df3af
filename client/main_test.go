package main

import (
	"testing"

	"github.com/wfunc/partyroom/state"
)

func TestParseCommand(t *testing.T) {
	tk := &tokens{}
	tk.update(map[string]any{"type": "session", "clientId": "client_1", "seatToken": "seat_1"})

	msg := parseCommand("join abcd red", tk)
	if msg["type"] != "join_room" || msg["code"] != "abcd" || msg["avatar"] != "red" {
		t.Fatalf("unexpected join message: %v", msg)
	}
	if msg["clientId"] != "client_1" || msg["seatToken"] != "seat_1" {
		t.Errorf("join should carry remembered tokens, got %v", msg)
	}

	msg = parseCommand("move 4", tk)
	if msg["type"] != "move" {
		t.Fatalf("unexpected move message: %v", msg)
	}
	if idx := msg["move"].(map[string]int)["index"]; idx != 4 {
		t.Errorf("expected index 4, got %d", idx)
	}
	if _, ok := msg["seatToken"]; ok {
		t.Error("in-room commands should not carry tokens")
	}

	if parseCommand("move x", tk) != nil {
		t.Error("non-numeric move should be rejected")
	}
	if parseCommand("dance", tk) != nil {
		t.Error("unknown command should be rejected")
	}
	if parseCommand("   ", tk) != nil {
		t.Error("blank line should be ignored")
	}
}

func TestRoundStatus(t *testing.T) {
	cases := map[string]state.Status{
		`{"type":"room_state","room":{"round":{"status":"playing"}}}`:   state.StatusPlaying,
		`{"type":"room_state","room":{"round":{"status":"SHUFFLING"}}}`: state.StatusShuffling,
		`{"type":"room_state","room":{"round":{"status":"ready"}}}`:     state.StatusWaitingGame,
		`{"type":"room_state","room":{"round":{"status":"waiting"}}}`:   state.StatusWaitingGame,
	}
	for frame, want := range cases {
		got, ok := roundStatus([]byte(frame))
		if !ok || got != want {
			t.Errorf("roundStatus(%s) = %q, %v; want %q", frame, got, ok, want)
		}
	}

	for _, frame := range []string{`{"type":"pong"}`, `{"type":"room_state","room":{}}`, `{not json`} {
		if _, ok := roundStatus([]byte(frame)); ok {
			t.Errorf("roundStatus(%s) should report no status", frame)
		}
	}
}
