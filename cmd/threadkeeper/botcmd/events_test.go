package botcmd

import (
	"encoding/json"
	"fmt"
	"testing"
)

func eventsEnvelope(t *testing.T, teamID string, event string) socketEnvelope {
	t.Helper()
	payload := fmt.Sprintf(`{"team_id":%q,"event_id":"Ev1","event":%s}`, teamID, event)
	return socketEnvelope{Type: "events_api", Payload: json.RawMessage(payload)}
}

func TestParseInboundEventMessage(t *testing.T) {
	t.Parallel()

	env := eventsEnvelope(t, "T1", `{"type":"message","user":"U1","text":"@pending","channel":"C1","ts":"1700000001.000200","thread_ts":"1700000000.000100"}`)
	ev, ok, err := parseInboundEvent(env, "UBOT")
	if err != nil {
		t.Fatalf("parseInboundEvent() error = %v", err)
	}
	if !ok {
		t.Fatalf("parseInboundEvent() ok = false, want true")
	}
	if ev.TeamID != "T1" || ev.ChannelID != "C1" || ev.UserID != "U1" {
		t.Fatalf("event = %+v, want T1/C1/U1", ev)
	}
	if ev.MessageTS != "1700000001.000200" || ev.ThreadTS != "1700000000.000100" {
		t.Fatalf("event = %+v, want message and thread timestamps", ev)
	}
	if ev.Text != "@pending" || ev.TopicChanged {
		t.Fatalf("event = %+v, want message event", ev)
	}
	if ev.EventID != "Ev1" {
		t.Fatalf("event_id = %q, want Ev1", ev.EventID)
	}
}

func TestParseInboundEventTopicChange(t *testing.T) {
	t.Parallel()

	env := eventsEnvelope(t, "T1", `{"type":"message","subtype":"channel_topic","user":"U1","topic":"on call: <@U2>","channel":"C1","ts":"1.1"}`)
	ev, ok, err := parseInboundEvent(env, "UBOT")
	if err != nil {
		t.Fatalf("parseInboundEvent() error = %v", err)
	}
	if !ok {
		t.Fatalf("parseInboundEvent() ok = false, want true")
	}
	if !ev.TopicChanged {
		t.Fatalf("event = %+v, want topic change", ev)
	}
	if ev.Topic != "on call: <@U2>" || ev.ChannelID != "C1" {
		t.Fatalf("event = %+v, want topic text and channel", ev)
	}
}

func TestParseInboundEventTeamIDFallsBackToEvent(t *testing.T) {
	t.Parallel()

	env := eventsEnvelope(t, "", `{"type":"message","user":"U1","text":"hi","channel":"C1","ts":"1.1","team":"T9"}`)
	ev, ok, err := parseInboundEvent(env, "UBOT")
	if err != nil || !ok {
		t.Fatalf("parseInboundEvent() = ok %v, err %v", ok, err)
	}
	if ev.TeamID != "T9" {
		t.Fatalf("team_id = %q, want fallback T9", ev.TeamID)
	}
}

func TestParseInboundEventIgnores(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		envelope socketEnvelope
	}{
		{
			name:     "non events_api envelope",
			envelope: socketEnvelope{Type: "hello"},
		},
		{
			name:     "non message event",
			envelope: eventsEnvelope(t, "T1", `{"type":"reaction_added","user":"U1","channel":"C1","ts":"1.1"}`),
		},
		{
			name:     "bot message",
			envelope: eventsEnvelope(t, "T1", `{"type":"message","bot_id":"B1","text":"hi","channel":"C1","ts":"1.1"}`),
		},
		{
			name:     "own message",
			envelope: eventsEnvelope(t, "T1", `{"type":"message","user":"UBOT","text":"hi","channel":"C1","ts":"1.1"}`),
		},
		{
			name:     "other subtype",
			envelope: eventsEnvelope(t, "T1", `{"type":"message","subtype":"message_changed","user":"U1","text":"hi","channel":"C1","ts":"1.1"}`),
		},
		{
			name:     "empty text",
			envelope: eventsEnvelope(t, "T1", `{"type":"message","user":"U1","text":"  ","channel":"C1","ts":"1.1"}`),
		},
		{
			name:     "missing channel",
			envelope: eventsEnvelope(t, "T1", `{"type":"message","user":"U1","text":"hi","ts":"1.1"}`),
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, ok, err := parseInboundEvent(tc.envelope, "UBOT")
			if err != nil {
				t.Fatalf("parseInboundEvent() error = %v", err)
			}
			if ok {
				t.Fatalf("parseInboundEvent() ok = true, want ignored")
			}
		})
	}
}

func TestParseInboundEventMalformedPayload(t *testing.T) {
	t.Parallel()

	env := socketEnvelope{Type: "events_api", Payload: json.RawMessage(`{not json`)}
	if _, ok, err := parseInboundEvent(env, "UBOT"); err == nil || ok {
		t.Fatalf("parseInboundEvent() = ok %v, err %v, want error", ok, err)
	}
}
