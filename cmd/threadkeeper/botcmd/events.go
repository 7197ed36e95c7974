package botcmd

import (
	"encoding/json"
	"strings"
)

type socketEnvelope struct {
	EnvelopeID string          `json:"envelope_id,omitempty"`
	Type       string          `json:"type,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type eventsAPIPayload struct {
	TeamID  string          `json:"team_id,omitempty"`
	EventID string          `json:"event_id,omitempty"`
	Event   json.RawMessage `json:"event,omitempty"`
}

type slackEvent struct {
	Type        string `json:"type,omitempty"`
	Subtype     string `json:"subtype,omitempty"`
	User        string `json:"user,omitempty"`
	Text        string `json:"text,omitempty"`
	Topic       string `json:"topic,omitempty"`
	Channel     string `json:"channel,omitempty"`
	ChannelType string `json:"channel_type,omitempty"`
	TS          string `json:"ts,omitempty"`
	ThreadTS    string `json:"thread_ts,omitempty"`
	BotID       string `json:"bot_id,omitempty"`
	Team        string `json:"team,omitempty"`
}

const subtypeChannelTopic = "channel_topic"

// inboundEvent is a socket envelope reduced to what the controller
// consumes: either a chat message or a topic change.
type inboundEvent struct {
	TeamID       string
	ChannelID    string
	MessageTS    string
	ThreadTS     string
	UserID       string
	Text         string
	Topic        string
	TopicChanged bool
	EventID      string
}

// parseInboundEvent extracts a message or topic-change event from a
// Socket Mode envelope. The bool result is false for anything the bot
// ignores: non-events_api envelopes, non-message events, bot messages,
// the bot's own messages, and messages with other subtypes.
func parseInboundEvent(envelope socketEnvelope, botUserID string) (inboundEvent, bool, error) {
	if strings.TrimSpace(envelope.Type) != "events_api" || len(envelope.Payload) == 0 {
		return inboundEvent{}, false, nil
	}
	var payload eventsAPIPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return inboundEvent{}, false, err
	}
	var event slackEvent
	if err := json.Unmarshal(payload.Event, &event); err != nil {
		return inboundEvent{}, false, err
	}
	if strings.TrimSpace(event.Type) != "message" {
		return inboundEvent{}, false, nil
	}
	if strings.TrimSpace(event.BotID) != "" {
		return inboundEvent{}, false, nil
	}
	userID := strings.TrimSpace(event.User)
	if userID != "" && userID == strings.TrimSpace(botUserID) {
		return inboundEvent{}, false, nil
	}
	channelID := strings.TrimSpace(event.Channel)
	if channelID == "" {
		return inboundEvent{}, false, nil
	}

	teamID := strings.TrimSpace(payload.TeamID)
	if teamID == "" {
		teamID = strings.TrimSpace(event.Team)
	}

	subtype := strings.TrimSpace(event.Subtype)
	if subtype == subtypeChannelTopic {
		return inboundEvent{
			TeamID:       teamID,
			ChannelID:    channelID,
			MessageTS:    strings.TrimSpace(event.TS),
			UserID:       userID,
			Topic:        event.Topic,
			TopicChanged: true,
			EventID:      strings.TrimSpace(payload.EventID),
		}, true, nil
	}
	if subtype != "" {
		return inboundEvent{}, false, nil
	}
	text := strings.TrimSpace(event.Text)
	if text == "" {
		return inboundEvent{}, false, nil
	}
	messageTS := strings.TrimSpace(event.TS)
	if messageTS == "" {
		return inboundEvent{}, false, nil
	}
	return inboundEvent{
		TeamID:    teamID,
		ChannelID: channelID,
		MessageTS: messageTS,
		ThreadTS:  strings.TrimSpace(event.ThreadTS),
		UserID:    userID,
		Text:      text,
		EventID:   strings.TrimSpace(payload.EventID),
	}, true, nil
}
