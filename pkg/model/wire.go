package model

import "time"

// InboundFrame is what a client sends over its websocket. The channel is
// implicit from the connection; SenderID, when present, must match the
// authenticated identity of the connection.
type InboundFrame struct {
	MessageText string `json:"message_text"`
	SenderID    string `json:"sender_id,omitempty"`
	FileRef     string `json:"file_ref,omitempty"`
}

// Event is a delivery event pushed to live subscribers.
type Event struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	Sender    string    `json:"sender"`
	SenderID  string    `json:"sender_id"`
	ChannelID string    `json:"channel_id"`
	Timestamp string    `json:"timestamp"`
}

// NewChatEvent renders the delivery event for a persisted message.
func NewChatEvent(msg *Message, senderName string) Event {
	return Event{
		Type:      EventChatMessage,
		Message:   msg.Text,
		Sender:    senderName,
		SenderID:  msg.SenderID,
		ChannelID: msg.ChannelID,
		Timestamp: msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ErrorReply is sent to the offending connection only.
type ErrorReply struct {
	Error string `json:"error"`
}

// PushJob is one offline-notification attempt, published to Kafka by the
// fan-out router and consumed by the notifier. At most one job is emitted
// per (message, offline member).
type PushJob struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	MessageID int64  `json:"message_id"`
	Preview   string `json:"preview"`
}

// RelayEnvelope wraps an event for cross-gateway fan-out. Origin is the
// publishing gateway's instance id; an instance skips its own envelopes so
// local subscribers see each event exactly once.
type RelayEnvelope struct {
	Origin    string `json:"origin"`
	ChannelID string `json:"channel_id"`
	Payload   []byte `json:"payload"`
}
